package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger.
//
// BadgerHold has no atomic field update, so counter and flag mutations are
// read-modify-write guarded by a process-local mutex. Job execution is
// single-process, so the mutex is sufficient to serialize the processor's
// counter updates against cancellation requests from the HTTP path.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) CreateJob(ctx context.Context, job *models.ImportJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if job.OwnerID == "" {
		return fmt.Errorf("job owner is required")
	}
	if job.Total < 0 {
		return fmt.Errorf("job total cannot be negative")
	}

	if err := s.db.Store().Insert(job.ID, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID, ownerID string) (*models.ImportJob, error) {
	job, err := s.getJob(jobID)
	if err != nil {
		return nil, err
	}
	// Owner mismatch reads as not-found so job ids cannot be probed
	// across principals.
	if job.OwnerID != ownerID {
		return nil, interfaces.ErrJobNotFound
	}
	return job, nil
}

func (s *JobStorage) getJob(jobID string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListRecentJobs(ctx context.Context, ownerID string, limit int) ([]*models.ImportJob, error) {
	query := badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID").
		SortBy("LastActivityAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []models.ImportJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.ImportJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) ApplyChunkResult(ctx context.Context, jobID string, delta models.ChunkResult) (*models.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getJob(jobID)
	if err != nil {
		return nil, err
	}

	// Terminal counters are frozen.
	if job.IsTerminal() {
		return job, nil
	}

	job.Apply(delta, time.Now())

	if err := s.db.Store().Update(jobID, job); err != nil {
		return nil, fmt.Errorf("failed to apply chunk result: %w", err)
	}
	return job, nil
}

func (s *JobStorage) MarkStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getJob(jobID)
	if err != nil {
		return err
	}

	// No transitions out of a terminal state.
	if job.IsTerminal() {
		return nil
	}

	now := time.Now()
	job.Status = status
	job.LastActivityAt = now

	switch status {
	case models.JobStatusActive:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case models.JobStatusCompleted, models.JobStatusCancelled, models.JobStatusFailed:
		job.CompletedAt = &now
		if errMsg != "" {
			job.Error = errMsg
		}
	}

	if err := s.db.Store().Update(jobID, job); err != nil {
		return fmt.Errorf("failed to mark job status: %w", err)
	}
	return nil
}

func (s *JobStorage) RequestCancellation(ctx context.Context, jobID, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getJob(jobID)
	if err != nil {
		return false, err
	}
	if job.OwnerID != ownerID {
		return false, interfaces.ErrJobNotFound
	}

	if job.IsTerminal() || job.CancelRequested {
		return false, nil
	}

	job.CancelRequested = true
	if err := s.db.Store().Update(jobID, job); err != nil {
		return false, fmt.Errorf("failed to request cancellation: %w", err)
	}
	return true, nil
}

func (s *JobStorage) IsCancellationRequested(ctx context.Context, jobID string) (bool, error) {
	job, err := s.getJob(jobID)
	if err != nil {
		return false, err
	}
	return job.CancelRequested, nil
}

func (s *JobStorage) ListStalled(ctx context.Context, olderThan time.Duration) ([]*models.ImportJob, error) {
	threshold := time.Now().Add(-olderThan)

	var jobs []models.ImportJob
	query := badgerhold.Where("Status").In(models.JobStatusPending, models.JobStatusActive).
		And("LastActivityAt").Lt(threshold)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list stalled jobs: %w", err)
	}

	result := make([]*models.ImportJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) Close() error {
	return nil
}
