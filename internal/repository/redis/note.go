package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studyhub/internal/domain"
)

// NoteRepository stores a session's notes board as a hash of note
// documents. Writes are whole-document and last-write-wins, matching the
// store's universal conflict rule.
type NoteRepository struct {
	store *Store
}

// NewNoteRepository creates a new note repository.
func NewNoteRepository(store *Store) *NoteRepository {
	return &NoteRepository{store: store}
}

// Put writes a note (create or replace) and notifies subscribers.
func (r *NoteRepository) Put(ctx context.Context, note *domain.Note) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal note: %w", err)
	}
	if err := r.store.client.rdb.HSet(ctx, notesKey(note.SessionCode), note.ID.String(), data).Err(); err != nil {
		return wrapStore(err)
	}
	return r.store.Publish(ctx, notesKey(note.SessionCode), domain.NoteEvent{Op: "put", Note: *note})
}

// Get returns the note or ErrNotFound.
func (r *NoteRepository) Get(ctx context.Context, code string, id uuid.UUID) (*domain.Note, error) {
	data, err := r.store.client.rdb.HGet(ctx, notesKey(code), id.String()).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, wrapStore(err)
	}
	var note domain.Note
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, fmt.Errorf("failed to unmarshal note %s: %w", id, err)
	}
	return &note, nil
}

// Delete removes the note, failing with ErrNotFound if absent.
func (r *NoteRepository) Delete(ctx context.Context, code string, id uuid.UUID) error {
	note, err := r.Get(ctx, code, id)
	if err != nil {
		return err
	}
	removed, err := r.store.client.rdb.HDel(ctx, notesKey(code), id.String()).Result()
	if err != nil {
		return wrapStore(err)
	}
	if removed == 0 {
		return domain.ErrNotFound
	}
	return r.store.Publish(ctx, notesKey(code), domain.NoteEvent{Op: "delete", Note: *note})
}

// List returns all notes for the session, oldest first.
func (r *NoteRepository) List(ctx context.Context, code string) ([]domain.Note, error) {
	items, err := r.store.client.rdb.HGetAll(ctx, notesKey(code)).Result()
	if err != nil {
		return nil, wrapStore(err)
	}
	notes := make([]domain.Note, 0, len(items))
	for id, item := range items {
		var note domain.Note
		if err := json.Unmarshal([]byte(item), &note); err != nil {
			return nil, fmt.Errorf("failed to unmarshal note %s: %w", id, err)
		}
		notes = append(notes, note)
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
	return notes, nil
}

// Subscribe streams board changes.
func (r *NoteRepository) Subscribe(ctx context.Context, code string) (<-chan domain.NoteEvent, func(), error) {
	raw, cancel, err := r.store.Watch(ctx, notesKey(code))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.NoteEvent, 32)
	go func() {
		defer close(out)
		for data := range raw {
			var ev domain.NoteEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()
	return out, cancel, nil
}
