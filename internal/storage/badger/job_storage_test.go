package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/common"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()
	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func newTestJobStorage(t *testing.T) interfaces.JobStorage {
	t.Helper()
	return NewJobStorage(newTestDB(t), arbor.NewLogger())
}

func createJob(t *testing.T, storage interfaces.JobStorage, ownerID string, total int) *models.ImportJob {
	t.Helper()
	job := models.NewImportJob(common.NewJobID(), ownerID, "test", models.ImportMode{UpdateExisting: true, ImportNew: true}, total)
	require.NoError(t, storage.CreateJob(context.Background(), job))
	return job
}

func TestJobStorage_CreateAndGet(t *testing.T) {
	storage := newTestJobStorage(t)
	ctx := context.Background()

	job := createJob(t, storage, "owner-1", 100)

	got, err := storage.GetJob(ctx, job.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, 100, got.Total)
	assert.Zero(t, got.Processed)
}

func TestJobStorage_OwnerScoping(t *testing.T) {
	storage := newTestJobStorage(t)
	ctx := context.Background()

	job := createJob(t, storage, "owner-1", 10)

	// Foreign owner and unknown id are indistinguishable.
	_, err := storage.GetJob(ctx, job.ID, "owner-2")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)

	_, err = storage.GetJob(ctx, "job_does_not_exist", "owner-1")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)

	_, err = storage.RequestCancellation(ctx, job.ID, "owner-2")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestJobStorage_ApplyChunkResult(t *testing.T) {
	storage := newTestJobStorage(t)
	ctx := context.Background()

	job := createJob(t, storage, "owner-1", 200)

	updated, err := storage.ApplyChunkResult(ctx, job.ID, models.ChunkResult{Imported: 80, Updated: 10, Skipped: 5, Errors: 5})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.Processed)

	updated, err = storage.ApplyChunkResult(ctx, job.ID, models.ChunkResult{Imported: 100})
	require.NoError(t, err)
	assert.Equal(t, 200, updated.Processed)
	assert.Equal(t, 180, updated.Imported)
	assert.Equal(t, updated.Processed, updated.Imported+updated.Updated+updated.Skipped+updated.Errors)
}

func TestJobStorage_TerminalCountersFrozen(t *testing.T) {
	storage := newTestJobStorage(t)
	ctx := context.Background()

	job := createJob(t, storage, "owner-1", 100)
	_, err := storage.ApplyChunkResult(ctx, job.ID, models.ChunkResult{Imported: 50})
	require.NoError(t, err)
	require.NoError(t, storage.MarkStatus(ctx, job.ID, models.JobStatusCancelled, ""))

	// Late chunk result after cancellation must not move the counters.
	got, err := storage.ApplyChunkResult(ctx, job.ID, models.ChunkResult{Imported: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, got.Processed)
	assert.Equal(t, models.JobStatusCancelled, got.Status)

	// Terminal status never transitions again.
	require.NoError(t, storage.MarkStatus(ctx, job.ID, models.JobStatusActive, ""))
	got, err = storage.GetJob(ctx, job.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, got.Status)
}

func TestJobStorage_StatusTransitions(t *testing.T) {
	storage := newTestJobStorage(t)
	ctx := context.Background()

	job := createJob(t, storage, "owner-1", 10)

	require.NoError(t, storage.MarkStatus(ctx, job.ID, models.JobStatusActive, ""))
	got, err := storage.GetJob(ctx, job.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusActive, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, storage.MarkStatus(ctx, job.ID, models.JobStatusFailed, "storage exploded"))
	got, err = storage.GetJob(ctx, job.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "storage exploded", got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestJobStorage_CancellationFlag(t *testing.T) {
	storage := newTestJobStorage(t)
	ctx := context.Background()

	job := createJob(t, storage, "owner-1", 10)

	requested, err := storage.RequestCancellation(ctx, job.ID, "owner-1")
	require.NoError(t, err)
	assert.True(t, requested)

	// Second request is not "newly set".
	requested, err = storage.RequestCancellation(ctx, job.ID, "owner-1")
	require.NoError(t, err)
	assert.False(t, requested)

	flagged, err := storage.IsCancellationRequested(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, flagged)

	// Terminal jobs cannot be flagged.
	done := createJob(t, storage, "owner-1", 10)
	require.NoError(t, storage.MarkStatus(ctx, done.ID, models.JobStatusCompleted, ""))
	requested, err = storage.RequestCancellation(ctx, done.ID, "owner-1")
	require.NoError(t, err)
	assert.False(t, requested)
}

func TestJobStorage_ListRecentJobs(t *testing.T) {
	storage := newTestJobStorage(t)
	ctx := context.Background()

	first := createJob(t, storage, "owner-1", 10)
	second := createJob(t, storage, "owner-1", 10)
	createJob(t, storage, "owner-2", 10)

	// Touch the first job so it becomes the most recently active.
	time.Sleep(5 * time.Millisecond)
	_, err := storage.ApplyChunkResult(ctx, first.ID, models.ChunkResult{Imported: 1})
	require.NoError(t, err)

	jobs, err := storage.ListRecentJobs(ctx, "owner-1", 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].ID)
	assert.Equal(t, second.ID, jobs[1].ID)

	jobs, err = storage.ListRecentJobs(ctx, "owner-1", 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, first.ID, jobs[0].ID)
}

func TestJobStorage_ListStalled(t *testing.T) {
	storage := newTestJobStorage(t)
	ctx := context.Background()

	stale := createJob(t, storage, "owner-1", 10)
	require.NoError(t, storage.MarkStatus(ctx, stale.ID, models.JobStatusActive, ""))

	finished := createJob(t, storage, "owner-1", 10)
	require.NoError(t, storage.MarkStatus(ctx, finished.ID, models.JobStatusCompleted, ""))

	time.Sleep(20 * time.Millisecond)
	fresh := createJob(t, storage, "owner-1", 10)
	_ = fresh

	stalled, err := storage.ListStalled(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, stalled, 1)
	assert.Equal(t, stale.ID, stalled[0].ID)
}
