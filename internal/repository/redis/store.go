package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"studyhub/internal/domain"
	"studyhub/internal/store"
)

const casRetries = 8

var (
	_ store.KV        = (*Store)(nil)
	_ store.Publisher = (*Store)(nil)
)

// Store implements store.KV on Redis. Values are JSON documents; every
// committed write is published on a per-key channel so subscribed clients
// see it without polling.
type Store struct {
	client *Client
}

// NewStore creates the synchronized store adapter.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

func watchChannel(key string) string { return "watch:" + key }

// wrapStore tags transport failures so callers can retry with backoff.
// Domain sentinels and context errors pass through untouched.
func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

// Get retrieves and unmarshals the value at key.
func (s *Store) Get(ctx context.Context, key string, dest any) error {
	data, err := s.client.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.ErrNotFound
	}
	if err != nil {
		return wrapStore(err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// Set writes key and pushes the new value to watchers.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.client.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return wrapStore(err)
	}
	return s.Publish(ctx, key, json.RawMessage(data))
}

// SetIfAbsent writes key only when unoccupied.
func (s *Store) SetIfAbsent(ctx context.Context, key string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	ok, err := s.client.rdb.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return false, wrapStore(err)
	}
	if ok {
		if err := s.Publish(ctx, key, json.RawMessage(data)); err != nil {
			return true, err
		}
	}
	return ok, nil
}

// Update runs an optimistic read-modify-write on key using WATCH/MULTI.
// The transaction aborts and retries when the key changes between the read
// and the commit.
func (s *Store) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) ([]byte, error) {
	var committed []byte

	for i := 0; i < casRetries; i++ {
		var fnErr error

		err := s.client.rdb.Watch(ctx, func(tx *redis.Tx) error {
			old, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				old = nil
			} else if err != nil {
				return err
			}

			next, err := fn(old)
			if err != nil {
				fnErr = err
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next, 0)
				return nil
			})
			if err == nil {
				committed = next
			}
			return err
		}, key)

		if fnErr != nil {
			return nil, fnErr
		}
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, wrapStore(err)
		}

		if err := s.Publish(ctx, key, json.RawMessage(committed)); err != nil {
			return committed, err
		}
		return committed, nil
	}

	return nil, domain.ErrConflict
}

// Delete removes keys. Absent keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.rdb.Del(ctx, keys...).Err(); err != nil {
		return wrapStore(err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, wrapStore(err)
	}
	return n > 0, nil
}

// SetEphemeral writes key with a TTL. Expiry is handled by the store.
func (s *Store) SetEphemeral(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.client.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return wrapStore(err)
	}
	return nil
}

// Publish pushes value to watchers of key without storing it.
func (s *Store) Publish(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", key, err)
	}
	if err := s.client.rdb.Publish(ctx, watchChannel(key), data).Err(); err != nil {
		return wrapStore(err)
	}
	return nil
}

// Watch subscribes to pushes for key until cancel is called or ctx ends.
func (s *Store) Watch(ctx context.Context, key string) (<-chan []byte, func(), error) {
	sub := s.client.rdb.Subscribe(ctx, watchChannel(key))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, wrapStore(err)
	}

	out := make(chan []byte, 32)
	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = sub.Close() })
	}

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					cancel()
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
