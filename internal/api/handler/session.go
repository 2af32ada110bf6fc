package handler

import (
	"net/http"

	"studyhub/internal/api/middleware"
	"studyhub/internal/api/response"
	"studyhub/internal/service"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create handles session creation. The creator becomes the owner and is
// auto-joined as the first member.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	session, err := h.sessions.Create(r.Context(), identity.UserID, identity.DisplayName)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, session)
}

// Get handles session lookup by code.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	session, err := h.sessions.Get(r.Context(), code)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, session)
}

// End handles session termination (owner only).
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
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

	session, err := h.sessions.End(r.Context(), code, identity.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, session)
}

// Delete handles permanent session removal (owner only).
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.sessions.Delete(r.Context(), code, identity.UserID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

// Archive returns the durable record of an ended session, if one was
// written. Available to anyone holding the code, like Get.
func (h *SessionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	archive, err := h.sessions.Archive(r.Context(), code)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, archive)
}
