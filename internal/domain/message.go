package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageKind identifies the author side of a chat message.
type MessageKind string

const (
	KindUser      MessageKind = "user"
	KindAssistant MessageKind = "assistant"
)

// Message is one entry in a session's append-only chat stream.
// Messages are never mutated after creation; they are only removed in bulk
// by ClearHistory or by session deletion.
type Message struct {
	ID          uuid.UUID   `json:"id"`
	SessionCode string      `json:"session_code"`
	UserID      string      `json:"user_id,omitempty"` // empty for assistant messages
	DisplayName string      `json:"display_name"`
	Content     string      `json:"content"`
	Kind        MessageKind `json:"kind"`
	CreatedAt   time.Time   `json:"created_at"`
}

// QueueStatus tracks a queue entry through the responder pipeline.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueCompleted  QueueStatus = "completed"
	QueueFailed     QueueStatus = "failed"
)

// QueueEntry is a pending request for an asynchronous AI-generated reply.
// Entries are created alongside user messages and consumed by the responder
// worker. An entry that never reaches completed is a tolerated failure mode:
// the sweeper marks it failed after the reply timeout.
type QueueEntry struct {
	ID          uuid.UUID   `json:"id"`
	SessionCode string      `json:"session_code"`
	UserID      string      `json:"user_id"`
	DisplayName string      `json:"display_name"`
	Content     string      `json:"content"`
	Status      QueueStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TypingEvent is the ephemeral per-user typing flag, delivered to
// subscribers and forgotten. Last write wins, no history.
type TypingEvent struct {
	SessionCode string `json:"session_code"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsTyping    bool   `json:"is_typing"`
}

// MessageRepository defines the interface for the chat stream.
type MessageRepository interface {
	// Append adds a message to the session's stream and pushes it to
	// subscribers.
	Append(ctx context.Context, msg *Message) error

	// List returns the stream in append order.
	List(ctx context.Context, code string) ([]Message, error)

	// Clear removes every message for the session.
	Clear(ctx context.Context, code string) error

	// Subscribe streams messages as they are appended. Delivery is
	// monotonic per subscriber; no cross-client total order is promised.
	Subscribe(ctx context.Context, code string) (<-chan Message, func(), error)
}

// QueueRepository defines the interface for the responder queue.
type QueueRepository interface {
	Enqueue(ctx context.Context, entry *QueueEntry) error

	// Dequeue blocks up to wait for the next pending entry. Returns
	// (nil, nil) when the wait elapses with nothing pending.
	Dequeue(ctx context.Context, wait time.Duration) (*QueueEntry, error)

	SetStatus(ctx context.Context, entry *QueueEntry, status QueueStatus) error

	// Stale returns entries still pending or processing that were created
	// before the cutoff.
	Stale(ctx context.Context, cutoff time.Time) ([]QueueEntry, error)

	// Subscribe streams status transitions for a session's entries, so
	// clients can show "no reply" when an entry fails or times out.
	Subscribe(ctx context.Context, code string) (<-chan QueueEntry, func(), error)
}

// TypingRepository defines the interface for ephemeral typing flags.
type TypingRepository interface {
	Set(ctx context.Context, ev *TypingEvent, ttl time.Duration) error
	Subscribe(ctx context.Context, code string) (<-chan TypingEvent, func(), error)
}
