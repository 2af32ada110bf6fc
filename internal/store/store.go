// Package store defines the thin adapter over the shared realtime store.
// Every repository is built on these primitives; nothing else in the system
// talks to the store directly.
package store

import (
	"context"
	"time"
)

// KV is a push-based, key-addressed synchronized store.
//
// Reads are always possibly stale by the time a dependent write commits.
// Compound invariants (capacity, create-once) therefore go through the
// conditional primitives SetIfAbsent and Update rather than plain Set.
type KV interface {
	// Get unmarshals the value at key into dest. domain.ErrNotFound on miss.
	Get(ctx context.Context, key string, dest any) error

	// Set writes key atomically, last-write-wins, and pushes the new value
	// to watchers of the key.
	Set(ctx context.Context, key string, value any) error

	// SetIfAbsent writes key only when it does not exist yet. Returns false
	// when the key was already occupied.
	SetIfAbsent(ctx context.Context, key string, value any) (bool, error)

	// Update runs an optimistic read-modify-write on key: fn receives the
	// current raw value (nil if absent) and returns the replacement. The
	// commit fails and retries when the key changed underneath; bounded
	// retries, then domain.ErrConflict. The committed value is pushed to
	// watchers.
	Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) ([]byte, error)

	// Delete removes keys. Deleting an absent key is not an error.
	Delete(ctx context.Context, keys ...string) error

	// Watch subscribes to pushes for key. The channel closes when cancel is
	// called or ctx ends.
	Watch(ctx context.Context, key string) (<-chan []byte, func(), error)

	// SetEphemeral writes key with a time-to-live. Used for typing flags
	// and presence heartbeats; expiry is the store's job, not the client's.
	SetEphemeral(ctx context.Context, key string, value any, ttl time.Duration) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// Publisher pushes an event payload to watchers of a key without storing
// anything under it. Repositories use it for append-only feeds where the
// durable shape (a list) differs from the pushed shape (one element).
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}
