package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"studyhub/internal/domain"
)

// PresenceService implements heartbeat-and-expiry disconnect detection.
// Members refresh a TTL marker while connected; the reaper removes
// non-owner members whose marker expired. No unload hooks, no trust in
// the client saying goodbye.
type PresenceService struct {
	sessions   domain.SessionRepository
	presence   domain.PresenceRepository
	membership *MembershipService
	ttl        time.Duration
	grace      time.Duration
}

// NewPresenceService creates a new presence service. ttl is the heartbeat
// marker lifetime; grace is how long after joining a member may go without
// a heartbeat before the reaper considers them gone.
func NewPresenceService(
	sessions domain.SessionRepository,
	presence domain.PresenceRepository,
	membership *MembershipService,
	ttl, grace time.Duration,
) *PresenceService {
	return &PresenceService{
		sessions:   sessions,
		presence:   presence,
		membership: membership,
		ttl:        ttl,
		grace:      grace,
	}
}

// Heartbeat refreshes the caller's liveness marker. Only current members
// of an active session may heartbeat.
func (s *PresenceService) Heartbeat(ctx context.Context, code, userID string) error {
	if _, err := s.membership.RequireMember(ctx, code, userID); err != nil {
		return err
	}
	return s.presence.Heartbeat(ctx, code, userID, s.ttl)
}

// ReapOnce sweeps every active session once, removing non-owner members
// whose presence marker expired and whose join is older than the grace
// period. Owners are never reaped; only EndSession removes them. Also
// reconciles any over-capacity state it finds. Returns removed count.
func (s *PresenceService) ReapOnce(ctx context.Context) (int, error) {
	codes, err := s.sessions.ActiveCodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("reaper: failed to list active sessions: %w", err)
	}

	removed := 0
	for _, code := range codes {
		n, err := s.reapSession(ctx, code)
		if err != nil {
			// A session may disappear mid-sweep; that is not a failure.
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			log.Warn().Err(err).Str("code", code).Msg("reaper: sweep failed for session")
			continue
		}
		removed += n
	}
	return removed, nil
}

func (s *PresenceService) reapSession(ctx context.Context, code string) (int, error) {
	session, err := s.sessions.Get(ctx, code)
	if err != nil {
		return 0, err
	}
	if !session.IsActive {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-s.grace)
	var dead []string
	for id, m := range session.Members {
		if session.IsOwner(id) {
			continue
		}
		if m.JoinedAt.After(cutoff) {
			continue
		}
		alive, err := s.presence.Alive(ctx, code, id)
		if err != nil {
			return 0, err
		}
		if !alive {
			dead = append(dead, id)
		}
	}

	kicked, err := s.membership.Reconcile(ctx, code)
	if err != nil {
		return 0, err
	}

	if len(dead) == 0 {
		return len(kicked), nil
	}

	_, err = s.sessions.Mutate(ctx, code, func(sess *domain.Session) error {
		if !sess.IsActive {
			return errUnchanged
		}
		changed := false
		for _, id := range dead {
			// Re-check under the transaction: the member may have left or
			// been kicked since the liveness probe.
			if sess.IsOwner(id) || !sess.IsMember(id) {
				continue
			}
			delete(sess.Members, id)
			changed = true
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return len(kicked), nil
	}
	if err != nil {
		return 0, err
	}

	log.Info().Str("code", code).Strs("members", dead).Msg("reaper: removed disconnected members")
	return len(dead) + len(kicked), nil
}
