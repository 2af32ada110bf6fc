package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"studyhub/internal/domain"
	"studyhub/internal/metrics"
)

const codeAttempts = 5

// SessionService owns session lifecycle: code generation, creation,
// lookup, termination and deletion.
type SessionService struct {
	sessions domain.SessionRepository
	messages domain.MessageRepository
	notes    domain.NoteRepository
	archive  domain.ArchiveRepository // nil disables archiving
}

// NewSessionService creates a new session service.
func NewSessionService(
	sessions domain.SessionRepository,
	messages domain.MessageRepository,
	notes domain.NoteRepository,
	archive domain.ArchiveRepository,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		messages: messages,
		notes:    notes,
		archive:  archive,
	}
}

// newCode returns a random 6-digit session code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate session code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create generates a collision-free code and writes the new session with
// the owner as its first member. Creation is conditional on the code being
// unoccupied, so a concurrent creator picking the same code loses cleanly
// and we retry with a fresh code.
func (s *SessionService) Create(ctx context.Context, ownerID, ownerDisplayName string) (*domain.Session, error) {
	now := time.Now().UTC()

	for i := 0; i < codeAttempts; i++ {
		code, err := newCode()
		if err != nil {
			return nil, err
		}

		session := &domain.Session{
			Code:        code,
			OwnerID:     ownerID,
			CreatedAt:   now,
			IsActive:    true,
			MemberLimit: domain.MemberLimit,
			Members: map[string]domain.Member{
				ownerID: {DisplayName: ownerDisplayName, JoinedAt: now},
			},
		}

		ok, err := s.sessions.Create(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		if ok {
			metrics.SessionsCreated.Inc()
			return session, nil
		}
	}

	return nil, domain.ErrCodeExhausted
}

// Get returns the session or ErrNotFound.
func (s *SessionService) Get(ctx context.Context, code string) (*domain.Session, error) {
	return s.sessions.Get(ctx, code)
}

// End terminates the session: isActive false, members cleared, endedAt
// set. Owner only. This is the single mutation every subscribed client
// observes to evict itself; nothing transitions out of the ended state.
func (s *SessionService) End(ctx context.Context, code, requesterID string) (*domain.Session, error) {
	session, err := s.sessions.Mutate(ctx, code, func(sess *domain.Session) error {
		if !sess.IsOwner(requesterID) {
			return domain.ErrNotOwner
		}
		if !sess.IsActive {
			return domain.ErrAlreadyEnded
		}
		now := time.Now().UTC()
		sess.IsActive = false
		sess.EndedAt = &now
		sess.Members = map[string]domain.Member{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionsEnded.Inc()
	s.archiveSession(ctx, session)
	return session, nil
}

// archiveSession writes the durable record of an ended session. Best
// effort: the realtime copy stays authoritative until deletion, so a
// failed archive is logged, not surfaced.
func (s *SessionService) archiveSession(ctx context.Context, session *domain.Session) {
	if s.archive == nil {
		return
	}

	messages, err := s.messages.List(ctx, session.Code)
	if err != nil {
		log.Warn().Err(err).Str("code", session.Code).Msg("archive: could not read messages")
	}
	notes, err := s.notes.List(ctx, session.Code)
	if err != nil {
		log.Warn().Err(err).Str("code", session.Code).Msg("archive: could not read notes")
	}

	endedAt := time.Now().UTC()
	if session.EndedAt != nil {
		endedAt = *session.EndedAt
	}

	if err := s.archive.Save(ctx, &domain.SessionArchive{
		Session:  *session,
		Messages: messages,
		Notes:    notes,
		EndedAt:  endedAt,
	}); err != nil {
		log.Warn().Err(err).Str("code", session.Code).Msg("archive: save failed")
	}
}

// Archive returns the durable record of an ended session. It survives
// Delete, which only clears the realtime store. ErrNotFound when the code
// was never archived or archiving is disabled.
func (s *SessionService) Archive(ctx context.Context, code string) (*domain.SessionArchive, error) {
	if s.archive == nil {
		return nil, domain.ErrNotFound
	}
	return s.archive.Get(ctx, code)
}

// Delete removes the session and everything under it. Owner only,
// irreversible.
func (s *SessionService) Delete(ctx context.Context, code, requesterID string) error {
	session, err := s.sessions.Get(ctx, code)
	if err != nil {
		return err
	}
	if !session.IsOwner(requesterID) {
		return domain.ErrNotOwner
	}
	return s.sessions.Delete(ctx, code)
}

// Watch streams committed session states for subscribers. Observing
// IsActive=false is the self-eviction signal, not an error.
func (s *SessionService) Watch(ctx context.Context, code string) (<-chan domain.Session, func(), error) {
	if _, err := s.sessions.Get(ctx, code); err != nil {
		return nil, nil, err
	}
	return s.sessions.Watch(ctx, code)
}
