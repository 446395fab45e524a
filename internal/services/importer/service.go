package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/common"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/models"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrNoRecords is returned for a submission with nothing to import.
	ErrNoRecords = errors.New("no records to import")
	// ErrTooManyRecords is returned when a submission exceeds the
	// configured per-job record cap.
	ErrTooManyRecords = errors.New("too many records in one submission")
)

// Service is the import job facade: it accepts submissions, runs each job on
// its own goroutine behind a concurrency gate, and answers status queries.
// Submission is asynchronous; callers poll job status for progress.
type Service struct {
	jobs      interfaces.JobStorage
	processor *Processor
	config    *common.ImportConfig
	logger    arbor.ILogger

	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewService creates the import service. maxConcurrentJobs bounds how many
// jobs run at once across all owners; excess submissions queue as pending.
func NewService(jobs interfaces.JobStorage, processor *Processor, config *common.ImportConfig, logger arbor.ILogger) *Service {
	maxConcurrent := config.MaxConcurrentJobs
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		jobs:      jobs,
		processor: processor,
		config:    config,
		logger:    logger,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Submit validates and persists a new pending job, then starts processing in
// the background. The returned job snapshot is what the caller should poll.
func (s *Service) Submit(ctx context.Context, ownerID, sourceLabel string, mode models.ImportMode, records []models.RawRecord) (*models.ImportJob, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	if s.config.MaxRecords > 0 && len(records) > s.config.MaxRecords {
		return nil, fmt.Errorf("%w: %d records, limit %d", ErrTooManyRecords, len(records), s.config.MaxRecords)
	}

	job := models.NewImportJob(common.NewJobID(), ownerID, sourceLabel, mode, len(records))
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", ownerID).
		Str("source", sourceLabel).
		Int("total", job.Total).
		Msg("Import job submitted")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// The job outlives the submitting request, so processing runs on
		// the service's own context, not the HTTP request's.
		if err := s.sem.Acquire(s.baseCtx, 1); err != nil {
			s.logger.Warn().Str("job_id", job.ID).Msg("Shutdown before job started, job left pending")
			return
		}
		defer s.sem.Release(1)

		if err := s.processor.Run(s.baseCtx, job, records); err != nil {
			s.logger.Warn().Str("job_id", job.ID).Err(err).Msg("Import job did not complete")
		}
	}()

	return job, nil
}

// GetJob returns the owner's job or interfaces.ErrJobNotFound.
func (s *Service) GetJob(ctx context.Context, jobID, ownerID string) (*models.ImportJob, error) {
	return s.jobs.GetJob(ctx, jobID, ownerID)
}

// ListRecent returns the owner's most recently active jobs. A non-positive
// limit falls back to the configured default.
func (s *Service) ListRecent(ctx context.Context, ownerID string, limit int) ([]*models.ImportJob, error) {
	if limit <= 0 {
		limit = s.config.DefaultListLimit
	}
	if limit <= 0 {
		limit = 10
	}
	return s.jobs.ListRecentJobs(ctx, ownerID, limit)
}

// Cancel requests cooperative cancellation. Returns true when the flag was
// newly set, false when the job is already terminal or already flagged.
func (s *Service) Cancel(ctx context.Context, jobID, ownerID string) (bool, error) {
	return s.jobs.RequestCancellation(ctx, jobID, ownerID)
}

// Stop cancels the processing context and waits for in-flight goroutines.
// Jobs interrupted mid-chunk remain active and surface as stalled.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}
