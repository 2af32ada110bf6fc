package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"studyhub/internal/domain"
)

// SessionRepository stores session documents in the synchronized store.
// One key per session; the active-code index set lets background jobs
// enumerate live sessions without scanning the keyspace.
type SessionRepository struct {
	store *Store
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(store *Store) *SessionRepository {
	return &SessionRepository{store: store}
}

// Create writes a new session only if its code is unoccupied.
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) (bool, error) {
	ok, err := r.store.SetIfAbsent(ctx, sessionKey(session.Code), session)
	if err != nil || !ok {
		return ok, err
	}
	if err := r.store.client.rdb.SAdd(ctx, activeSetKey, session.Code).Err(); err != nil {
		return true, wrapStore(err)
	}
	return true, nil
}

// Get returns the session or ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, code string) (*domain.Session, error) {
	var session domain.Session
	if err := r.store.Get(ctx, sessionKey(code), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Mutate applies fn atomically to the current session state. The active
// index is kept in sync with IsActive on every commit.
func (r *SessionRepository) Mutate(ctx context.Context, code string, fn func(*domain.Session) error) (*domain.Session, error) {
	committed, err := r.store.Update(ctx, sessionKey(code), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, domain.ErrNotFound
		}
		var session domain.Session
		if err := json.Unmarshal(old, &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session %s: %w", code, err)
		}
		if err := fn(&session); err != nil {
			return nil, err
		}
		return json.Marshal(&session)
	})
	if err != nil {
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(committed, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", code, err)
	}

	if !session.IsActive {
		if err := r.store.client.rdb.SRem(ctx, activeSetKey, code).Err(); err != nil {
			return &session, wrapStore(err)
		}
	}
	return &session, nil
}

// Delete removes the session and cascades over everything scoped to it:
// chat stream, notes board, queue entries, typing flags and presence
// markers. No orphaned children survive.
func (r *SessionRepository) Delete(ctx context.Context, code string) error {
	rdb := r.store.client.rdb

	keys := []string{sessionKey(code), chatKey(code), notesKey(code), queueSessionKey(code)}

	entryIDs, err := rdb.SMembers(ctx, queueSessionKey(code)).Result()
	if err != nil {
		return wrapStore(err)
	}
	for _, id := range entryIDs {
		keys = append(keys, queueEntryKey(id))
	}

	for _, pattern := range []string{
		fmt.Sprintf("typing:%s:*", code),
		fmt.Sprintf("presence:%s:*", code),
	} {
		var cursor uint64
		for {
			batch, next, err := rdb.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return wrapStore(err)
			}
			keys = append(keys, batch...)
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}

	pipe := rdb.Pipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, activeSetKey, code)
	if len(entryIDs) > 0 {
		members := make([]interface{}, len(entryIDs))
		for i, id := range entryIDs {
			members[i] = id
		}
		pipe.ZRem(ctx, queueInflightKey, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapStore(err)
	}
	return nil
}

// ActiveCodes lists codes of sessions that have not been ended.
func (r *SessionRepository) ActiveCodes(ctx context.Context) ([]string, error) {
	codes, err := r.store.client.rdb.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, wrapStore(err)
	}
	return codes, nil
}

// Watch streams every committed session state.
func (r *SessionRepository) Watch(ctx context.Context, code string) (<-chan domain.Session, func(), error) {
	raw, cancel, err := r.store.Watch(ctx, sessionKey(code))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.Session, 8)
	go func() {
		defer close(out)
		for data := range raw {
			var session domain.Session
			if err := json.Unmarshal(data, &session); err != nil {
				continue
			}
			select {
			case out <- session:
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()
	return out, cancel, nil
}
