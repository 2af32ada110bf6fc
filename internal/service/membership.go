package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"studyhub/internal/domain"
)

// errUnchanged aborts a Mutate without writing anything.
var errUnchanged = errors.New("unchanged")

// MembershipService owns join/leave semantics, capacity enforcement and
// the over-capacity reconciler.
//
// Joins and leaves commit through the store's conditional write, so the
// capacity check and the member insert are a single atomic step: two
// joiners racing at capacity-minus-one serialize, and the loser observes
// the full state.
type MembershipService struct {
	sessions domain.SessionRepository
	presence domain.PresenceRepository
}

// NewMembershipService creates a new membership service.
func NewMembershipService(sessions domain.SessionRepository, presence domain.PresenceRepository) *MembershipService {
	return &MembershipService{sessions: sessions, presence: presence}
}

// Join adds the user to the session.
func (s *MembershipService) Join(ctx context.Context, code, userID, displayName string) (*domain.Session, error) {
	return s.sessions.Mutate(ctx, code, func(sess *domain.Session) error {
		if !sess.IsActive {
			return domain.ErrSessionEnded
		}
		if sess.IsMember(userID) {
			return domain.ErrAlreadyMember
		}
		if len(sess.Members) >= sess.MemberLimit {
			return domain.ErrRoomFull
		}
		sess.Members[userID] = domain.Member{
			DisplayName: displayName,
			JoinedAt:    time.Now().UTC(),
		}
		return nil
	})
}

// Leave removes a non-owner member. The owner never leaves: ending the
// session is the only path that removes them. The session stays active
// regardless of remaining member count, including zero.
func (s *MembershipService) Leave(ctx context.Context, code, userID string) error {
	_, err := s.sessions.Mutate(ctx, code, func(sess *domain.Session) error {
		if sess.IsOwner(userID) {
			return domain.ErrOwnerMustEndSession
		}
		if !sess.IsActive {
			return domain.ErrSessionEnded
		}
		if !sess.IsMember(userID) {
			return domain.ErrNotMember
		}
		delete(sess.Members, userID)
		return nil
	})
	if err != nil {
		return err
	}
	return s.presence.Clear(ctx, code, userID)
}

// ListedMember pairs a userID with its membership entry for display.
type ListedMember struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
	IsOwner     bool      `json:"is_owner"`
}

// ListMembers returns the membership roster ordered by join time.
func (s *MembershipService) ListMembers(ctx context.Context, code string) ([]ListedMember, error) {
	session, err := s.sessions.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	members := make([]ListedMember, 0, len(session.Members))
	for id, m := range session.Members {
		members = append(members, ListedMember{
			UserID:      id,
			DisplayName: m.DisplayName,
			JoinedAt:    m.JoinedAt,
			IsOwner:     session.IsOwner(id),
		})
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

// RequireMember verifies the session is active and the user is listed.
// Content operations (messages, notes, typing) gate on this.
func (s *MembershipService) RequireMember(ctx context.Context, code, userID string) (*domain.Session, error) {
	session, err := s.sessions.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, domain.ErrSessionEnded
	}
	if !session.IsMember(userID) {
		return nil, domain.ErrNotMember
	}
	return session, nil
}

// Reconcile kicks the most-recently-joined non-owner members while the
// session is over capacity. With conditional writes this should never
// fire; it defends against states written by clients that bypassed them.
// Returns the userIDs removed.
func (s *MembershipService) Reconcile(ctx context.Context, code string) ([]string, error) {
	var kicked []string

	_, err := s.sessions.Mutate(ctx, code, func(sess *domain.Session) error {
		kicked = kicked[:0]
		if !sess.IsActive || len(sess.Members) <= sess.MemberLimit {
			return errUnchanged
		}

		type entry struct {
			id       string
			joinedAt time.Time
		}
		var candidates []entry
		for id, m := range sess.Members {
			if sess.IsOwner(id) {
				continue
			}
			candidates = append(candidates, entry{id: id, joinedAt: m.JoinedAt})
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].joinedAt.After(candidates[j].joinedAt)
		})

		for _, c := range candidates {
			if len(sess.Members) <= sess.MemberLimit {
				break
			}
			delete(sess.Members, c.id)
			kicked = append(kicked, c.id)
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return kicked, nil
}
