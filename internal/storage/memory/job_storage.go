package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/models"
)

// JobStorage is an in-memory JobStorage for development and tests. Jobs are
// pruned after a period of inactivity so a long-running dev instance does not
// grow without bound.
type JobStorage struct {
	mu          sync.RWMutex
	jobs        map[string]*models.ImportJob
	expireAfter time.Duration
	logger      arbor.ILogger
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewJobStorage creates an in-memory job store. A zero expireAfter disables
// pruning.
func NewJobStorage(expireAfter time.Duration, logger arbor.ILogger) *JobStorage {
	s := &JobStorage{
		jobs:        make(map[string]*models.ImportJob),
		expireAfter: expireAfter,
		logger:      logger,
		stop:        make(chan struct{}),
	}
	if expireAfter > 0 {
		go s.pruneLoop()
	}
	return s
}

func (s *JobStorage) pruneLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.prune(time.Now())
		}
	}
}

func (s *JobStorage) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if now.Sub(job.LastActivityAt) > s.expireAfter {
			delete(s.jobs, id)
			if s.logger != nil {
				s.logger.Debug().Str("job_id", id).Msg("Expired inactive job from memory store")
			}
		}
	}
}

func (s *JobStorage) CreateJob(ctx context.Context, job *models.ImportJob) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if job.OwnerID == "" {
		return fmt.Errorf("job owner is required")
	}
	if job.Total < 0 {
		return fmt.Errorf("job total cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job already exists: %s", job.ID)
	}
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID, ownerID string) (*models.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok || job.OwnerID != ownerID {
		return nil, interfaces.ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (s *JobStorage) ListRecentJobs(ctx context.Context, ownerID string, limit int) ([]*models.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []*models.ImportJob
	for _, job := range s.jobs {
		if job.OwnerID == ownerID {
			clone := *job
			jobs = append(jobs, &clone)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].LastActivityAt.After(jobs[j].LastActivityAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *JobStorage) ApplyChunkResult(ctx context.Context, jobID string, delta models.ChunkResult) (*models.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	if !job.IsTerminal() {
		job.Apply(delta, time.Now())
	}
	clone := *job
	return &clone, nil
}

func (s *JobStorage) MarkStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return interfaces.ErrJobNotFound
	}
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
		if status == models.JobStatusFailed {
			job.Error = errMsg
		}
	}
	return nil
}

func (s *JobStorage) RequestCancellation(ctx context.Context, jobID, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.OwnerID != ownerID {
		return false, interfaces.ErrJobNotFound
	}
	if job.IsTerminal() || job.CancelRequested {
		return false, nil
	}
	job.CancelRequested = true
	return true, nil
}

func (s *JobStorage) IsCancellationRequested(ctx context.Context, jobID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return false, interfaces.ErrJobNotFound
	}
	return job.CancelRequested, nil
}

func (s *JobStorage) ListStalled(ctx context.Context, olderThan time.Duration) ([]*models.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var stalled []*models.ImportJob
	for _, job := range s.jobs {
		if job.IsStalled(olderThan, now) {
			clone := *job
			stalled = append(stalled, &clone)
		}
	}
	return stalled, nil
}

func (s *JobStorage) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
