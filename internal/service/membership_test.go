package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"studyhub/internal/domain"
)

func TestMembershipService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		mockSessions.On("Mutate", ctx, "123456").Return(activeSession("123456", "owner"), nil)

		session, err := svc.Join(ctx, "123456", "guest", "Bob")
		assert.NoError(t, err)
		assert.Len(t, session.Members, 2)
		assert.Equal(t, "Bob", session.Members["guest"].DisplayName)
	})

	t.Run("ended session rejects joins", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		sess := activeSession("123456", "owner")
		sess.IsActive = false
		mockSessions.On("Mutate", ctx, "123456").Return(sess, nil)

		_, err := svc.Join(ctx, "123456", "guest", "Bob")
		assert.ErrorIs(t, err, domain.ErrSessionEnded)
	})

	t.Run("joining twice fails", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		sess := activeSession("123456", "owner")
		sess.Members["guest"] = domain.Member{DisplayName: "Bob", JoinedAt: time.Now().UTC()}
		mockSessions.On("Mutate", ctx, "123456").Return(sess, nil)

		_, err := svc.Join(ctx, "123456", "guest", "Bob")
		assert.ErrorIs(t, err, domain.ErrAlreadyMember)
	})

	t.Run("capacity is a hard limit", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		sess := activeSession("123456", "owner")
		mockSessions.On("Mutate", ctx, "123456").Return(sess, nil)

		// Owner plus four joiners fill the room.
		for i := 0; i < domain.MemberLimit-1; i++ {
			_, err := svc.Join(ctx, "123456", fmt.Sprintf("user-%d", i), "Guest")
			assert.NoError(t, err)
		}
		assert.Len(t, sess.Members, domain.MemberLimit)

		_, err := svc.Join(ctx, "123456", "one-too-many", "Late")
		assert.ErrorIs(t, err, domain.ErrRoomFull)
		assert.Len(t, sess.Members, domain.MemberLimit)
	})
}

func TestMembershipService_Leave(t *testing.T) {
	ctx := context.Background()

	t.Run("member leaves and presence is cleared", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		mockPresence := new(MockPresenceRepository)
		svc := NewMembershipService(mockSessions, mockPresence)

		sess := activeSession("123456", "owner")
		sess.Members["guest"] = domain.Member{DisplayName: "Bob", JoinedAt: time.Now().UTC()}
		mockSessions.On("Mutate", ctx, "123456").Return(sess, nil)
		mockPresence.On("Clear", ctx, "123456", "guest").Return(nil)

		err := svc.Leave(ctx, "123456", "guest")
		assert.NoError(t, err)
		assert.NotContains(t, sess.Members, "guest")

		mockPresence.AssertExpectations(t)
	})

	t.Run("owner cannot leave", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		mockSessions.On("Mutate", ctx, "123456").Return(activeSession("123456", "owner"), nil)

		err := svc.Leave(ctx, "123456", "owner")
		assert.ErrorIs(t, err, domain.ErrOwnerMustEndSession)
	})

	t.Run("non-member cannot leave", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		mockSessions.On("Mutate", ctx, "123456").Return(activeSession("123456", "owner"), nil)

		err := svc.Leave(ctx, "123456", "stranger")
		assert.ErrorIs(t, err, domain.ErrNotMember)
	})

	t.Run("session stays active when last guest leaves", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		mockPresence := new(MockPresenceRepository)
		svc := NewMembershipService(mockSessions, mockPresence)

		sess := activeSession("123456", "owner")
		sess.Members["guest"] = domain.Member{DisplayName: "Bob", JoinedAt: time.Now().UTC()}
		mockSessions.On("Mutate", ctx, "123456").Return(sess, nil)
		mockPresence.On("Clear", ctx, "123456", "guest").Return(nil)

		err := svc.Leave(ctx, "123456", "guest")
		assert.NoError(t, err)
		assert.True(t, sess.IsActive)
	})
}

func TestMembershipService_ListMembers(t *testing.T) {
	ctx := context.Background()

	mockSessions := new(MockSessionRepository)
	svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

	base := time.Now().UTC().Add(-time.Hour)
	sess := activeSession("123456", "owner")
	sess.Members["owner"] = domain.Member{DisplayName: "Owner", JoinedAt: base}
	sess.Members["second"] = domain.Member{DisplayName: "Second", JoinedAt: base.Add(time.Minute)}
	sess.Members["third"] = domain.Member{DisplayName: "Third", JoinedAt: base.Add(2 * time.Minute)}
	mockSessions.On("Get", ctx, "123456").Return(sess, nil)

	members, err := svc.ListMembers(ctx, "123456")
	assert.NoError(t, err)
	assert.Len(t, members, 3)
	assert.Equal(t, "owner", members[0].UserID)
	assert.True(t, members[0].IsOwner)
	assert.Equal(t, "second", members[1].UserID)
	assert.Equal(t, "third", members[2].UserID)
	assert.False(t, members[2].IsOwner)
}

func TestMembershipService_RequireMember(t *testing.T) {
	ctx := context.Background()

	t.Run("member of active session passes", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		mockSessions.On("Get", ctx, "123456").Return(activeSession("123456", "owner"), nil)

		session, err := svc.RequireMember(ctx, "123456", "owner")
		assert.NoError(t, err)
		assert.NotNil(t, session)
	})

	t.Run("ended session rejects everyone", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		sess := activeSession("123456", "owner")
		sess.IsActive = false
		mockSessions.On("Get", ctx, "123456").Return(sess, nil)

		_, err := svc.RequireMember(ctx, "123456", "owner")
		assert.ErrorIs(t, err, domain.ErrSessionEnded)
	})

	t.Run("non-member rejected", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		mockSessions.On("Get", ctx, "123456").Return(activeSession("123456", "owner"), nil)

		_, err := svc.RequireMember(ctx, "123456", "stranger")
		assert.ErrorIs(t, err, domain.ErrNotMember)
	})
}

func TestMembershipService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("no-op at or under capacity", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		mockSessions.On("Mutate", ctx, "123456").Return(activeSession("123456", "owner"), nil)

		kicked, err := svc.Reconcile(ctx, "123456")
		assert.NoError(t, err)
		assert.Nil(t, kicked)
	})

	t.Run("kicks newest non-owners first", func(t *testing.T) {
		mockSessions := new(MockSessionRepository)
		svc := NewMembershipService(mockSessions, new(MockPresenceRepository))

		base := time.Now().UTC().Add(-time.Hour)
		sess := activeSession("123456", "owner")
		for i := 0; i < domain.MemberLimit+1; i++ {
			sess.Members[fmt.Sprintf("user-%d", i)] = domain.Member{
				DisplayName: "Guest",
				JoinedAt:    base.Add(time.Duration(i) * time.Minute),
			}
		}
		mockSessions.On("Mutate", ctx, "123456").Return(sess, nil)

		kicked, err := svc.Reconcile(ctx, "123456")
		assert.NoError(t, err)
		// Two over the limit; the latest two joiners go.
		assert.ElementsMatch(t, []string{"user-5", "user-4"}, kicked)
		assert.Len(t, sess.Members, domain.MemberLimit)
		assert.Contains(t, sess.Members, "owner")
	})
}
