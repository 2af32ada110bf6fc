package domain

import (
	"context"
	"time"
)

// MemberLimit is the hard capacity of a session.
const MemberLimit = 5

// Member is one entry in a session's membership map.
type Member struct {
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Session is the bounded collaborative context identified by a code.
// It is the unit of contention: every membership mutation is a single-key
// write of this document.
type Session struct {
	Code        string            `json:"code"`
	OwnerID     string            `json:"owner_id"`
	CreatedAt   time.Time         `json:"created_at"`
	IsActive    bool              `json:"is_active"`
	MemberLimit int               `json:"member_limit"`
	Members     map[string]Member `json:"members"`
	EndedAt     *time.Time        `json:"ended_at,omitempty"`
}

// IsMember reports whether userID is currently listed.
func (s *Session) IsMember(userID string) bool {
	_, ok := s.Members[userID]
	return ok
}

// IsOwner reports whether userID created the session.
func (s *Session) IsOwner(userID string) bool {
	return s.OwnerID == userID
}

// SessionRepository defines the interface for session storage.
type SessionRepository interface {
	// Create writes a new session only if its code is unoccupied.
	// Returns false (and no error) when the code is already taken.
	Create(ctx context.Context, session *Session) (bool, error)

	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, code string) (*Session, error)

	// Mutate applies fn to the current session state and commits the result
	// atomically (optimistic, retried on concurrent modification). fn may
	// return a sentinel error to abort without writing. The committed
	// session is returned.
	Mutate(ctx context.Context, code string, fn func(*Session) error) (*Session, error)

	// Delete removes the session and everything scoped to it: messages,
	// notes, queue entries, typing and presence keys.
	Delete(ctx context.Context, code string) error

	// ActiveCodes lists codes of sessions that have not been ended.
	ActiveCodes(ctx context.Context) ([]string, error)

	// Watch streams every committed session state until cancel is called.
	Watch(ctx context.Context, code string) (<-chan Session, func(), error)
}
