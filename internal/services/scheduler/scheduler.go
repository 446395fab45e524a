package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/common"
	"github.com/ternarybob/copia/internal/interfaces"
)

// Service runs periodic maintenance. Its one job today is the stalled-import
// sweep: non-terminal jobs with no recent activity (a crashed or host-killed
// processor) are logged so operators can spot imports that need resubmitting.
type Service struct {
	jobs      interfaces.JobStorage
	cron      *cron.Cron
	config    *common.SchedulerConfig
	threshold time.Duration
	logger    arbor.ILogger
}

// NewService creates the maintenance scheduler
func NewService(jobs interfaces.JobStorage, config *common.SchedulerConfig, staleThreshold time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		jobs:      jobs,
		cron:      cron.New(),
		config:    config,
		threshold: staleThreshold,
		logger:    logger,
	}
}

// Start registers and starts the sweep schedule. A disabled scheduler is a
// no-op so tests and dev setups can skip it.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled")
		return nil
	}

	schedule := s.config.SweepSchedule
	if schedule == "" {
		schedule = "*/5 * * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.sweepStalledJobs); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("Stalled-job sweep scheduled")
	return nil
}

// Stop stops the cron runner and waits for a running sweep to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Service) sweepStalledJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stalled, err := s.jobs.ListStalled(ctx, s.threshold)
	if err != nil {
		s.logger.Error().Err(err).Msg("Stalled-job sweep failed")
		return
	}

	for _, job := range stalled {
		s.logger.Warn().
			Str("job_id", job.ID).
			Str("owner_id", job.OwnerID).
			Str("status", string(job.Status)).
			Int("processed", job.Processed).
			Int("total", job.Total).
			Str("last_activity", job.LastActivityAt.Format(time.RFC3339)).
			Msg("Import job appears stalled")
	}

	if len(stalled) > 0 {
		s.logger.Info().Int("count", len(stalled)).Msg("Stalled-job sweep completed")
	} else {
		s.logger.Debug().Msg("Stalled-job sweep completed, none found")
	}
}
