package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studyhub/internal/api/middleware"
	"studyhub/internal/api/response"
	"studyhub/internal/domain"
	"studyhub/internal/security"
	"studyhub/internal/service"
)

// NotesHandler handles shared notes board endpoints
type NotesHandler struct {
	notes *service.NotesService
}

// NewNotesHandler creates a new notes handler
func NewNotesHandler(notes *service.NotesService) *NotesHandler {
	return &NotesHandler{notes: notes}
}

type createNoteRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
	Folder  string `json:"folder"`
}

type moveNoteRequest struct {
	Folder string `json:"folder" validate:"required"`
}

func noteID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "noteID"))
	return id, err == nil
}

// Create adds a note to the board.
func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var input createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if !security.ValidTitle(input.Title) {
		response.BadRequest(w, "title missing or too long")
		return
	}

	note, err := h.notes.Create(r.Context(), code, identity.UserID, identity.DisplayName, input.Title, input.Content, input.Folder)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, note)
}

// List returns the board, optionally filtered with ?folder=.
func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
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

	notes, err := h.notes.List(r.Context(), code, identity.UserID, r.URL.Query().Get("folder"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, notes)
}

// Update applies a partial edit to a note.
func (h *NotesHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	id, ok := noteID(r)
	if !ok {
		response.BadRequest(w, "invalid note ID")
		return
	}

	var input domain.NoteUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if input.Title != nil && !security.ValidTitle(*input.Title) {
		response.BadRequest(w, "title missing or too long")
		return
	}
	if input.Content != nil && len(*input.Content) > 0 && !security.ValidContent(*input.Content) {
		response.BadRequest(w, "content too long")
		return
	}

	note, err := h.notes.Update(r.Context(), code, id, identity.UserID, input)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, note)
}

// Move relocates a note to another folder.
func (h *NotesHandler) Move(w http.ResponseWriter, r *http.Request) {
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
	id, ok := noteID(r)
	if !ok {
		response.BadRequest(w, "invalid note ID")
		return
	}

	var input moveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	note, err := h.notes.Move(r.Context(), code, id, identity.UserID, input.Folder)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, note)
}

// Delete removes a note.
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	id, ok := noteID(r)
	if !ok {
		response.BadRequest(w, "invalid note ID")
		return
	}

	if err := h.notes.Delete(r.Context(), code, id, identity.UserID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}
