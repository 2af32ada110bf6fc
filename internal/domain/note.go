package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultFolder is where notes land when no folder is chosen.
const DefaultFolder = "General"

// Folders is the closed set of note folders. Anything else fails
// validation; there is no free-form taxonomy.
var Folders = []string{"General", "Important", "Doubts", "References"}

// ValidFolder reports whether name is in the allowed set.
func ValidFolder(name string) bool {
	for _, f := range Folders {
		if f == name {
			return true
		}
	}
	return false
}

// Note is a collaboratively editable document scoped to a session.
// The board is fully symmetric: any member may edit or delete any note.
// Concurrent edits resolve last-write-wins; the losing editor's change is
// dropped silently. That is the store's universal conflict rule, accepted
// here rather than papered over.
type Note struct {
	ID                   uuid.UUID `json:"id"`
	SessionCode          string    `json:"session_code"`
	Title                string    `json:"title"`
	Content              string    `json:"content"`
	Folder               string    `json:"folder"`
	CreatedBy            string    `json:"created_by"`
	CreatedByDisplayName string    `json:"created_by_display_name"`
	CreatedAt            time.Time `json:"created_at"`
	LastModified         time.Time `json:"last_modified"`
	LastModifiedBy       string    `json:"last_modified_by"`
}

// NoteUpdate is a partial update; nil fields are left untouched.
type NoteUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Folder  *string `json:"folder,omitempty"`
}

// NoteEvent tells subscribers what changed on the board.
type NoteEvent struct {
	Op   string `json:"op"` // "put" or "delete"
	Note Note   `json:"note"`
}

// NoteRepository defines the interface for the notes board.
type NoteRepository interface {
	// Put writes a note (create or replace) and notifies subscribers.
	Put(ctx context.Context, note *Note) error

	// Get returns the note or ErrNotFound.
	Get(ctx context.Context, code string, id uuid.UUID) (*Note, error)

	// Delete removes the note, failing with ErrNotFound if absent.
	Delete(ctx context.Context, code string, id uuid.UUID) error

	// List returns all notes for the session, oldest first.
	List(ctx context.Context, code string) ([]Note, error)

	// Subscribe streams board changes.
	Subscribe(ctx context.Context, code string) (<-chan NoteEvent, func(), error)
}
