package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"studyhub/internal/domain"
	"studyhub/internal/metrics"
)

// QueueSweeperJob finds queue entries that never produced a reply within
// the timeout (responder down, provider unreachable, crashed mid-entry)
// and marks them failed so clients stop waiting. The original user
// message is untouched.
type QueueSweeperJob struct {
	queue        domain.QueueRepository
	replyTimeout time.Duration
}

// NewQueueSweeperJob creates a new queue sweeper job.
func NewQueueSweeperJob(queue domain.QueueRepository, replyTimeout time.Duration) *QueueSweeperJob {
	return &QueueSweeperJob{queue: queue, replyTimeout: replyTimeout}
}

// Run performs one sweep.
func (j *QueueSweeperJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.replyTimeout)
	stale, err := j.queue.Stale(ctx, cutoff)
	if err != nil {
		return err
	}

	for i := range stale {
		entry := &stale[i]
		if err := j.queue.SetStatus(ctx, entry, domain.QueueFailed); err != nil {
			log.Warn().Err(err).Str("entry", entry.ID.String()).Msg("queue sweeper: could not mark failed")
			continue
		}
		log.Warn().
			Err(domain.ErrResponderTimeout).
			Str("session", entry.SessionCode).
			Str("entry", entry.ID.String()).
			Msg("reply never arrived")
		metrics.ResponderFailures.Inc()
	}
	if len(stale) > 0 {
		log.Info().Int("entries", len(stale)).Msg("queue sweeper marked stale entries failed")
	}
	return nil
}
