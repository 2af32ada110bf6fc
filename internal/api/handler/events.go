package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"studyhub/internal/api/middleware"
	"studyhub/internal/api/response"
	"studyhub/internal/service"
)

const keepAliveInterval = 15 * time.Second

// EventsHandler streams a session's live events over Server-Sent Events:
// appended messages, typing transitions, responder queue status, notes
// board changes and session state. A session-state event with is_active
// false is the self-eviction signal; the stream closes after sending it.
type EventsHandler struct {
	sessions *service.SessionService
	chat     *service.ChatService
	notes    *service.NotesService
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(sessions *service.SessionService, chat *service.ChatService, notes *service.NotesService) *EventsHandler {
	return &EventsHandler{sessions: sessions, chat: chat, notes: notes}
}

// Stream handles GET /sessions/{code}/events.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
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

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()

	messages, cancelMsgs, err := h.chat.Subscribe(ctx, code, identity.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer cancelMsgs()

	typing, cancelTyping, err := h.chat.SubscribeTyping(ctx, code, identity.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer cancelTyping()

	queue, cancelQueue, err := h.chat.SubscribeQueue(ctx, code, identity.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer cancelQueue()

	noteEvents, cancelNotes, err := h.notes.Subscribe(ctx, code, identity.UserID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer cancelNotes()

	sessionStates, cancelSession, err := h.sessions.Watch(ctx, code)
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer cancelSession()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(event string, payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case msg, ok := <-messages:
			if !ok {
				return
			}
			if !send("message", msg) {
				return
			}

		case ev, ok := <-typing:
			if !ok {
				return
			}
			if !send("typing", ev) {
				return
			}

		case entry, ok := <-queue:
			if !ok {
				return
			}
			if !send("queue", entry) {
				return
			}

		case ev, ok := <-noteEvents:
			if !ok {
				return
			}
			if !send("note", ev) {
				return
			}

		case state, ok := <-sessionStates:
			if !ok {
				return
			}
			if !send("session", state) {
				return
			}
			if !state.IsActive {
				// Terminal state; subscribers evict themselves.
				return
			}
		}
	}
}
