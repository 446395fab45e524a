package models

import (
	"time"
)

// JobStatus represents the state of an import job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusFailed    JobStatus = "failed"
)

// ImportMode controls how matched records are handled during an import.
type ImportMode struct {
	UpdateExisting bool `json:"update_existing"`
	ImportNew      bool `json:"import_new"`
}

// ChunkResult is the tally of one processed chunk, applied atomically to the
// job's cumulative counters.
type ChunkResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Processed returns the number of records the chunk accounted for.
func (c ChunkResult) Processed() int {
	return c.Imported + c.Updated + c.Skipped + c.Errors
}

// Add merges another tally into this one.
func (c *ChunkResult) Add(other ChunkResult) {
	c.Imported += other.Imported
	c.Updated += other.Updated
	c.Skipped += other.Skipped
	c.Errors += other.Errors
}

// ImportJob represents one import run. Counters are mutated only by the chunk
// processor; the cancellation flag is the single field with a concurrent
// writer (the HTTP cancel path).
//
// Invariants, held at every observation point:
//   - Processed == Imported + Updated + Skipped + Errors
//   - Processed <= Total
//   - counters are frozen once Status is terminal
type ImportJob struct {
	ID          string     `json:"id" badgerhold:"key"`
	OwnerID     string     `json:"owner_id" badgerhold:"index"`
	SourceLabel string     `json:"source_label"`
	Mode        ImportMode `json:"mode"`

	Total     int `json:"total"`
	Processed int `json:"processed"`
	Imported  int `json:"imported"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`

	Status JobStatus `json:"status" badgerhold:"index"`
	// Error holds a concise description of why the job failed. Only
	// populated for status "failed".
	Error string `json:"error,omitempty"`

	CancelRequested bool `json:"cancel_requested,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewImportJob creates a pending job with counters at zero.
func NewImportJob(id, ownerID, sourceLabel string, mode ImportMode, total int) *ImportJob {
	now := time.Now()
	return &ImportJob{
		ID:             id,
		OwnerID:        ownerID,
		SourceLabel:    sourceLabel,
		Mode:           mode,
		Total:          total,
		Status:         JobStatusPending,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// IsTerminal returns true once no further counter mutation may occur.
func (j *ImportJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusCancelled ||
		j.Status == JobStatusFailed
}

// IsStalled reports whether a non-terminal job has shown no activity for
// longer than the given threshold. A host-imposed kill mid-import leaves the
// job active with Processed < Total; it is reported as stalled, not corrupt,
// and is recoverable by resubmission.
func (j *ImportJob) IsStalled(threshold time.Duration, now time.Time) bool {
	if j.IsTerminal() {
		return false
	}
	return now.Sub(j.LastActivityAt) > threshold
}

// Apply increments the cumulative counters with one chunk's tally and
// refreshes the activity timestamp. Callers must not apply to terminal jobs.
func (j *ImportJob) Apply(delta ChunkResult, now time.Time) {
	j.Imported += delta.Imported
	j.Updated += delta.Updated
	j.Skipped += delta.Skipped
	j.Errors += delta.Errors
	j.Processed += delta.Processed()
	j.LastActivityAt = now
}
