package domain

import (
	"context"
	"time"
)

// PresenceRepository tracks liveness separately from membership.
// A member is "present" while their heartbeat marker has not expired;
// membership itself only changes through explicit join/leave/end mutations
// or the reaper acting on expired markers.
type PresenceRepository interface {
	// Heartbeat refreshes the member's liveness marker.
	Heartbeat(ctx context.Context, code, userID string, ttl time.Duration) error

	// Alive reports whether the marker still exists.
	Alive(ctx context.Context, code, userID string) (bool, error)

	// Clear drops the marker immediately (clean leave).
	Clear(ctx context.Context, code, userID string) error
}

// SessionArchive is the durable record written when a session ends.
type SessionArchive struct {
	Session  Session   `bson:"session"`
	Messages []Message `bson:"messages"`
	Notes    []Note    `bson:"notes"`
	EndedAt  time.Time `bson:"ended_at"`
}

// ArchiveRepository persists ended sessions for long-term history.
// Archival is best effort; the realtime store remains authoritative until
// the owner deletes the session.
type ArchiveRepository interface {
	Save(ctx context.Context, archive *SessionArchive) error

	// Get returns the archived record for a code, or ErrNotFound.
	Get(ctx context.Context, code string) (*SessionArchive, error)
}
