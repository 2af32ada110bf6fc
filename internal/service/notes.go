package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studyhub/internal/domain"
)

// NotesService owns the shared notes board. Fully collaborative: any
// current member may create, edit, move or delete any note. Concurrent
// edits of the same note resolve last-write-wins.
type NotesService struct {
	membership *MembershipService
	notes      domain.NoteRepository
}

// NewNotesService creates a new notes service.
func NewNotesService(membership *MembershipService, notes domain.NoteRepository) *NotesService {
	return &NotesService{membership: membership, notes: notes}
}

// Create adds a note to the board. Empty folder defaults to General.
// Titles are not unique keys: two notes with the same title coexist.
func (s *NotesService) Create(ctx context.Context, code, userID, displayName, title, content, folder string) (*domain.Note, error) {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return nil, err
	}

	if folder == "" {
		folder = domain.DefaultFolder
	}
	if !domain.ValidFolder(folder) {
		return nil, domain.ErrInvalidFolder
	}

	now := time.Now().UTC()
	note := &domain.Note{
		ID:                   uuid.New(),
		SessionCode:          code,
		Title:                title,
		Content:              content,
		Folder:               folder,
		CreatedBy:            userID,
		CreatedByDisplayName: displayName,
		CreatedAt:            now,
		LastModified:         now,
		LastModifiedBy:       userID,
	}

	if err := s.notes.Put(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

// Update applies a partial edit. The write replaces the whole document:
// if two members edit simultaneously, the later write wins and the
// earlier one is dropped. That trade-off is accepted, not hidden.
func (s *NotesService) Update(ctx context.Context, code string, noteID uuid.UUID, userID string, update domain.NoteUpdate) (*domain.Note, error) {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return nil, err
	}

	note, err := s.notes.Get(ctx, code, noteID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		note.Title = *update.Title
	}
	if update.Content != nil {
		note.Content = *update.Content
	}
	if update.Folder != nil {
		if !domain.ValidFolder(*update.Folder) {
			return nil, domain.ErrInvalidFolder
		}
		note.Folder = *update.Folder
	}
	note.LastModified = time.Now().UTC()
	note.LastModifiedBy = userID

	if err := s.notes.Put(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

// Move relocates a note to another folder in the fixed set.
func (s *NotesService) Move(ctx context.Context, code string, noteID uuid.UUID, userID, folder string) (*domain.Note, error) {
	if !domain.ValidFolder(folder) {
		return nil, domain.ErrInvalidFolder
	}
	return s.Update(ctx, code, noteID, userID, domain.NoteUpdate{Folder: &folder})
}

// Delete removes a note. A second delete of the same id fails NotFound.
func (s *NotesService) Delete(ctx context.Context, code string, noteID uuid.UUID, userID string) error {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return err
	}
	return s.notes.Delete(ctx, code, noteID)
}

// List returns the board, optionally filtered by folder. folder == ""
// means all folders.
func (s *NotesService) List(ctx context.Context, code, userID, folder string) ([]domain.Note, error) {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return nil, err
	}
	if folder != "" && !domain.ValidFolder(folder) {
		return nil, domain.ErrInvalidFolder
	}

	notes, err := s.notes.List(ctx, code)
	if err != nil {
		return nil, err
	}
	if folder == "" {
		return notes, nil
	}

	filtered := notes[:0]
	for _, n := range notes {
		if n.Folder == folder {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

// Subscribe streams board changes for a current member.
func (s *NotesService) Subscribe(ctx context.Context, code, userID string) (<-chan domain.NoteEvent, func(), error) {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return nil, nil, err
	}
	return s.notes.Subscribe(ctx, code)
}
