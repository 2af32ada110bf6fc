package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studyhub/internal/domain"
)

// MessageRepository stores the per-session chat stream as an append-only
// list and pushes each appended message to subscribers.
type MessageRepository struct {
	store *Store
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(store *Store) *MessageRepository {
	return &MessageRepository{store: store}
}

// Append adds a message to the stream and notifies subscribers.
func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := r.store.client.rdb.RPush(ctx, chatKey(msg.SessionCode), data).Err(); err != nil {
		return wrapStore(err)
	}
	return r.store.Publish(ctx, chatKey(msg.SessionCode), msg)
}

// List returns the stream in append order.
func (r *MessageRepository) List(ctx context.Context, code string) ([]domain.Message, error) {
	items, err := r.store.client.rdb.LRange(ctx, chatKey(code), 0, -1).Result()
	if err != nil {
		return nil, wrapStore(err)
	}
	messages := make([]domain.Message, 0, len(items))
	for _, item := range items {
		var msg domain.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Clear removes every message for the session.
func (r *MessageRepository) Clear(ctx context.Context, code string) error {
	return r.store.Delete(ctx, chatKey(code))
}

// Subscribe streams appended messages. Delivery is monotonic per
// subscriber; no cross-client total order is promised.
func (r *MessageRepository) Subscribe(ctx context.Context, code string) (<-chan domain.Message, func(), error) {
	raw, cancel, err := r.store.Watch(ctx, chatKey(code))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.Message, 32)
	go func() {
		defer close(out)
		for data := range raw {
			var msg domain.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()
	return out, cancel, nil
}

// QueueRepository stores responder queue entries. Pending IDs sit on a
// blocking list consumed by the worker; an inflight index (scored by
// creation time) lets the sweeper find entries that never completed.
type QueueRepository struct {
	store *Store
}

// NewQueueRepository creates a new queue repository.
func NewQueueRepository(store *Store) *QueueRepository {
	return &QueueRepository{store: store}
}

// Enqueue registers a pending entry.
func (r *QueueRepository) Enqueue(ctx context.Context, entry *domain.QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal queue entry: %w", err)
	}

	id := entry.ID.String()
	pipe := r.store.client.rdb.Pipeline()
	pipe.Set(ctx, queueEntryKey(id), data, 0)
	pipe.SAdd(ctx, queueSessionKey(entry.SessionCode), id)
	pipe.ZAdd(ctx, queueInflightKey, redis.Z{
		Score:  float64(entry.CreatedAt.UnixMilli()),
		Member: id,
	})
	pipe.LPush(ctx, queuePendingKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapStore(err)
	}
	return nil
}

// Dequeue blocks up to wait for the next pending entry. Returns (nil, nil)
// when the wait elapses with nothing pending.
func (r *QueueRepository) Dequeue(ctx context.Context, wait time.Duration) (*domain.QueueEntry, error) {
	res, err := r.store.client.rdb.BRPop(ctx, wait, queuePendingKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStore(err)
	}

	id := res[1]
	data, err := r.store.client.rdb.Get(ctx, queueEntryKey(id)).Bytes()
	if err == redis.Nil {
		// Entry purged (session deleted) between push and pop.
		return nil, nil
	}
	if err != nil {
		return nil, wrapStore(err)
	}

	var entry domain.QueueEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue entry %s: %w", id, err)
	}
	return &entry, nil
}

// SetStatus updates an entry's status and pushes the transition to the
// session's queue subscribers. Terminal statuses drop the entry from the
// inflight index.
func (r *QueueRepository) SetStatus(ctx context.Context, entry *domain.QueueEntry, status domain.QueueStatus) error {
	entry.Status = status
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal queue entry: %w", err)
	}

	id := entry.ID.String()
	pipe := r.store.client.rdb.Pipeline()
	pipe.Set(ctx, queueEntryKey(id), data, 0)
	if status == domain.QueueCompleted || status == domain.QueueFailed {
		pipe.ZRem(ctx, queueInflightKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapStore(err)
	}
	return r.store.Publish(ctx, queueSessionKey(entry.SessionCode), entry)
}

// Subscribe streams status transitions for a session's entries.
func (r *QueueRepository) Subscribe(ctx context.Context, code string) (<-chan domain.QueueEntry, func(), error) {
	raw, cancel, err := r.store.Watch(ctx, queueSessionKey(code))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.QueueEntry, 32)
	go func() {
		defer close(out)
		for data := range raw {
			var entry domain.QueueEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				continue
			}
			select {
			case out <- entry:
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()
	return out, cancel, nil
}

// Stale returns entries still pending or processing created before cutoff.
func (r *QueueRepository) Stale(ctx context.Context, cutoff time.Time) ([]domain.QueueEntry, error) {
	ids, err := r.store.client.rdb.ZRangeByScore(ctx, queueInflightKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff.UnixMilli()),
	}).Result()
	if err != nil {
		return nil, wrapStore(err)
	}

	entries := make([]domain.QueueEntry, 0, len(ids))
	for _, id := range ids {
		data, err := r.store.client.rdb.Get(ctx, queueEntryKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, wrapStore(err)
		}
		var entry domain.QueueEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// TypingRepository stores ephemeral typing flags. The flag itself expires
// on its own; subscribers get the transition as a pushed event.
type TypingRepository struct {
	store *Store
}

// NewTypingRepository creates a new typing repository.
func NewTypingRepository(store *Store) *TypingRepository {
	return &TypingRepository{store: store}
}

// Set writes the flag with a TTL and notifies subscribers. Last write wins.
func (r *TypingRepository) Set(ctx context.Context, ev *domain.TypingEvent, ttl time.Duration) error {
	if ev.IsTyping {
		if err := r.store.SetEphemeral(ctx, typingKey(ev.SessionCode, ev.UserID), ev, ttl); err != nil {
			return err
		}
	} else {
		if err := r.store.Delete(ctx, typingKey(ev.SessionCode, ev.UserID)); err != nil {
			return err
		}
	}
	return r.store.Publish(ctx, typingChannel(ev.SessionCode), ev)
}

// Subscribe streams typing transitions for the session.
func (r *TypingRepository) Subscribe(ctx context.Context, code string) (<-chan domain.TypingEvent, func(), error) {
	raw, cancel, err := r.store.Watch(ctx, typingChannel(code))
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.TypingEvent, 32)
	go func() {
		defer close(out)
		for data := range raw {
			var ev domain.TypingEvent
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
