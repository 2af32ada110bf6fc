package redis

import (
	"context"
	"time"

	"studyhub/internal/domain"
)

// PresenceRepository keeps per-member liveness markers with a TTL.
// A marker that is never refreshed simply expires; the reaper turns the
// expiry into a membership removal. No client-side unload hook involved.
type PresenceRepository struct {
	store *Store
}

// NewPresenceRepository creates a new presence repository.
func NewPresenceRepository(store *Store) *PresenceRepository {
	return &PresenceRepository{store: store}
}

type presenceMarker struct {
	UserID string    `json:"user_id"`
	SeenAt time.Time `json:"seen_at"`
}

// Heartbeat refreshes the member's liveness marker.
func (r *PresenceRepository) Heartbeat(ctx context.Context, code, userID string, ttl time.Duration) error {
	return r.store.SetEphemeral(ctx, presenceKey(code, userID), presenceMarker{
		UserID: userID,
		SeenAt: time.Now().UTC(),
	}, ttl)
}

// Alive reports whether the marker still exists.
func (r *PresenceRepository) Alive(ctx context.Context, code, userID string) (bool, error) {
	return r.store.Exists(ctx, presenceKey(code, userID))
}

// Clear drops the marker immediately.
func (r *PresenceRepository) Clear(ctx context.Context, code, userID string) error {
	return r.store.Delete(ctx, presenceKey(code, userID))
}

var _ domain.PresenceRepository = (*PresenceRepository)(nil)
