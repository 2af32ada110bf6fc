package jobs

import (
	"context"

	"github.com/rs/zerolog/log"

	"studyhub/internal/metrics"
	"studyhub/internal/service"
)

// PresenceReaperJob sweeps active sessions and removes members whose
// heartbeat marker expired. This replaces client-side unload hooks: a
// killed process or dropped network stops heartbeating and gets removed
// the same way as a closed tab.
type PresenceReaperJob struct {
	presence *service.PresenceService
}

// NewPresenceReaperJob creates a new presence reaper job.
func NewPresenceReaperJob(presence *service.PresenceService) *PresenceReaperJob {
	return &PresenceReaperJob{presence: presence}
}

// Run performs one sweep.
func (j *PresenceReaperJob) Run(ctx context.Context) error {
	removed, err := j.presence.ReapOnce(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		metrics.MembersReaped.Add(float64(removed))
		log.Info().Int("removed", removed).Msg("presence reaper sweep complete")
	}
	return nil
}
