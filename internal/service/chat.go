package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studyhub/internal/domain"
	"studyhub/internal/metrics"
)

// ChatService owns the message channel: posting, typing flags, the live
// stream and history clearing. Posting also enqueues the responder work;
// the reply arrives asynchronously or not at all.
type ChatService struct {
	membership *MembershipService
	messages   domain.MessageRepository
	queue      domain.QueueRepository
	typing     domain.TypingRepository
	typingTTL  time.Duration
}

// NewChatService creates a new chat service.
func NewChatService(
	membership *MembershipService,
	messages domain.MessageRepository,
	queue domain.QueueRepository,
	typing domain.TypingRepository,
	typingTTL time.Duration,
) *ChatService {
	return &ChatService{
		membership: membership,
		messages:   messages,
		queue:      queue,
		typing:     typing,
		typingTTL:  typingTTL,
	}
}

// Post appends a user message and enqueues a responder entry, returning
// immediately. The assistant reply, if any, arrives on the stream later.
func (s *ChatService) Post(ctx context.Context, code, userID, displayName, content string) (*domain.Message, error) {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg := &domain.Message{
		ID:          uuid.New(),
		SessionCode: code,
		UserID:      userID,
		DisplayName: displayName,
		Content:     content,
		Kind:        domain.KindUser,
		CreatedAt:   now,
	}

	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	metrics.MessagesPosted.Inc()

	entry := &domain.QueueEntry{
		ID:          uuid.New(),
		SessionCode: code,
		UserID:      userID,
		DisplayName: displayName,
		Content:     content,
		Status:      domain.QueuePending,
		CreatedAt:   now,
	}
	if err := s.queue.Enqueue(ctx, entry); err != nil {
		// The message is already visible; a lost queue entry only means no
		// reply, which clients must tolerate anyway.
		return msg, fmt.Errorf("failed to enqueue responder entry: %w", err)
	}

	return msg, nil
}

// History returns the session's messages in append order.
func (s *ChatService) History(ctx context.Context, code, userID string) ([]domain.Message, error) {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return nil, err
	}
	return s.messages.List(ctx, code)
}

// Subscribe streams messages for a current member.
func (s *ChatService) Subscribe(ctx context.Context, code, userID string) (<-chan domain.Message, func(), error) {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return nil, nil, err
	}
	return s.messages.Subscribe(ctx, code)
}

// SetTyping writes the caller's ephemeral typing flag. Last write wins.
func (s *ChatService) SetTyping(ctx context.Context, code, userID, displayName string, isTyping bool) error {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return err
	}
	return s.typing.Set(ctx, &domain.TypingEvent{
		SessionCode: code,
		UserID:      userID,
		DisplayName: displayName,
		IsTyping:    isTyping,
	}, s.typingTTL)
}

// SubscribeTyping streams typing transitions for a current member.
func (s *ChatService) SubscribeTyping(ctx context.Context, code, userID string) (<-chan domain.TypingEvent, func(), error) {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return nil, nil, err
	}
	return s.typing.Subscribe(ctx, code)
}

// SubscribeQueue streams responder status transitions, letting clients
// render a "no reply" indicator when an entry fails or times out.
func (s *ChatService) SubscribeQueue(ctx context.Context, code, userID string) (<-chan domain.QueueEntry, func(), error) {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return nil, nil, err
	}
	return s.queue.Subscribe(ctx, code)
}

// ClearHistory removes every message for the session. Any current member
// may do this; the board is symmetric and so is the eraser.
func (s *ChatService) ClearHistory(ctx context.Context, code, userID string) error {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return err
	}
	return s.messages.Clear(ctx, code)
}
