package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Job is one periodic maintenance task.
type Job interface {
	Run(ctx context.Context) error
}

// Entry pairs a job with its run interval. Entries are independent;
// several jobs may share the same interval.
type Entry struct {
	Every time.Duration
	Job   Job
}

// Scheduler runs the maintenance jobs on fixed intervals.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler builds the gocron scheduler with the given jobs.
func NewScheduler(entries []Entry) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	for _, entry := range entries {
		entry := entry
		_, err := s.NewJob(
			gocron.DurationJob(entry.Every),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), entry.Every)
				defer cancel()
				if err := entry.Job.Run(ctx); err != nil {
					log.Warn().Err(err).Msgf("job %T failed", entry.Job)
				}
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule %T: %w", entry.Job, err)
		}
	}

	return &Scheduler{scheduler: s}, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
