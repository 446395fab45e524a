package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/copia/internal/models"
)

// ErrJobNotFound is returned when a job does not exist or belongs to a
// different owner. The two cases are deliberately indistinguishable so that
// job ids cannot be enumerated across principals.
var ErrJobNotFound = errors.New("job not found")

// JobStorage is durable keyed storage for import jobs, scoped per principal.
//
// Counter mutations and the cancellation flag may race: ApplyChunkResult is
// called from the job's processor while RequestCancellation arrives from a
// request-handling context. Implementations must make both safe to call
// concurrently; cancellation never rolls back counters already applied.
type JobStorage interface {
	// CreateJob persists a new job. Fails if the id is empty or total < 0.
	CreateJob(ctx context.Context, job *models.ImportJob) error

	// GetJob returns the job only when it is owned by ownerID;
	// ErrJobNotFound otherwise.
	GetJob(ctx context.Context, jobID, ownerID string) (*models.ImportJob, error)

	// ListRecentJobs returns the owner's jobs, most recently active first.
	ListRecentJobs(ctx context.Context, ownerID string, limit int) ([]*models.ImportJob, error)

	// ApplyChunkResult atomically increments counters and refreshes the
	// activity timestamp, returning the updated job. Applying to a
	// terminal job is a no-op: terminal counters are frozen.
	ApplyChunkResult(ctx context.Context, jobID string, delta models.ChunkResult) (*models.ImportJob, error)

	// MarkStatus transitions the job's status. Transitions out of a
	// terminal state are no-ops. errMsg is recorded for failed jobs.
	MarkStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error

	// RequestCancellation sets the cancellation flag if the job is owned
	// by ownerID and not yet terminal. Returns whether the flag was newly
	// set; ErrJobNotFound for missing or foreign jobs.
	RequestCancellation(ctx context.Context, jobID, ownerID string) (bool, error)

	// IsCancellationRequested reports the flag for the processor's
	// chunk-boundary check.
	IsCancellationRequested(ctx context.Context, jobID string) (bool, error)

	// ListStalled returns non-terminal jobs with no activity for longer
	// than olderThan.
	ListStalled(ctx context.Context, olderThan time.Duration) ([]*models.ImportJob, error)

	Close() error
}

// StorageManager bundles the stores behind one lifecycle. The backing engine
// (badger or memory) is a deployment choice, not a per-store one.
type StorageManager interface {
	JobStorage() JobStorage
	CatalogStorage() CatalogStorage
	Close() error
}

// CatalogStorage is the material catalog reachable by the import pipeline,
// keyed by (owner id, normalized material name) for matching purposes.
type CatalogStorage interface {
	// FindByOwnerAndName returns the owner's material with the given name
	// (case-insensitive, whitespace-trimmed), or nil when none exists.
	FindByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Material, error)

	// Insert stores a new material and returns its id.
	Insert(ctx context.Context, material *models.Material) (string, error)

	// UpdateFields applies a partial field update to an existing material.
	UpdateFields(ctx context.Context, id string, fields models.FieldDiff) error

	// ListByOwner returns a page of the owner's catalog, name-ordered.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Material, error)

	// CountByOwner returns the owner's catalog size.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}
