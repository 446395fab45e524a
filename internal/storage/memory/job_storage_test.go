package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/models"
)

func newJob(id, ownerID string) *models.ImportJob {
	return models.NewImportJob(id, ownerID, "test", models.ImportMode{UpdateExisting: true, ImportNew: true}, 10)
}

func TestJobStorage_Expiry(t *testing.T) {
	storage := NewJobStorage(30*time.Minute, arbor.NewLogger())
	t.Cleanup(func() { storage.Close() })
	ctx := context.Background()

	old := newJob("job_old", "owner-1")
	old.LastActivityAt = time.Now().Add(-time.Hour)
	require.NoError(t, storage.CreateJob(ctx, old))
	// CreateJob clones; rewind the stored copy's activity directly.
	storage.jobs["job_old"].LastActivityAt = time.Now().Add(-time.Hour)

	fresh := newJob("job_fresh", "owner-1")
	require.NoError(t, storage.CreateJob(ctx, fresh))

	storage.prune(time.Now())

	_, err := storage.GetJob(ctx, "job_old", "owner-1")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)

	got, err := storage.GetJob(ctx, "job_fresh", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "job_fresh", got.ID)
}

func TestJobStorage_SnapshotsAreIsolated(t *testing.T) {
	storage := NewJobStorage(0, arbor.NewLogger())
	t.Cleanup(func() { storage.Close() })
	ctx := context.Background()

	require.NoError(t, storage.CreateJob(ctx, newJob("job_1", "owner-1")))

	got, err := storage.GetJob(ctx, "job_1", "owner-1")
	require.NoError(t, err)

	// Mutating the returned snapshot must not affect the stored job.
	got.Imported = 999

	again, err := storage.GetJob(ctx, "job_1", "owner-1")
	require.NoError(t, err)
	assert.Zero(t, again.Imported)
}

func TestJobStorage_DuplicateCreateRejected(t *testing.T) {
	storage := NewJobStorage(0, arbor.NewLogger())
	t.Cleanup(func() { storage.Close() })
	ctx := context.Background()

	require.NoError(t, storage.CreateJob(ctx, newJob("job_1", "owner-1")))
	assert.Error(t, storage.CreateJob(ctx, newJob("job_1", "owner-1")))
}
