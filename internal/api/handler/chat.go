package handler

import (
	"encoding/json"
	"net/http"

	"studyhub/internal/api/middleware"
	"studyhub/internal/api/response"
	"studyhub/internal/security"
	"studyhub/internal/service"
)

// ChatHandler handles message channel endpoints
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type postMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type setTypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// Post appends a user message and queues the responder work.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	var input postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if !security.ValidContent(input.Content) {
		response.BadRequest(w, "content missing or too long")
		return
	}

	msg, err := h.chat.Post(r.Context(), code, identity.UserID, identity.DisplayName, input.Content)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, msg)
}

// History returns the session's messages in append order.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	messages, err := h.chat.History(r.Context(), code, identity.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, messages)
}

// Clear wipes the session's chat history. Any current member may do it.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	if err := h.chat.ClearHistory(r.Context(), code, identity.UserID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

// Typing sets or clears the caller's typing flag.
func (h *ChatHandler) Typing(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	var input setTypingRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.chat.SetTyping(r.Context(), code, identity.UserID, identity.DisplayName, input.IsTyping); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}
