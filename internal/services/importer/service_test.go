package importer

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
	"github.com/ternarybob/copia/internal/services/matcher"
	"github.com/ternarybob/copia/internal/services/normalizer"
	"github.com/ternarybob/copia/internal/storage/memory"
)

func newTestService(t *testing.T, cfg *common.ImportConfig) (*Service, interfaces.JobStorage) {
	t.Helper()
	logger := arbor.NewLogger()
	jobs := memory.NewJobStorage(0, logger)
	catalog := memory.NewCatalogStorage()
	t.Cleanup(func() { jobs.Close() })

	processor := NewProcessor(jobs, catalog,
		normalizer.NewService(logger),
		matcher.NewService(catalog, logger),
		cfg.ChunkSize, cfg.UpsertRateLimit, logger)
	svc := NewService(jobs, processor, cfg, logger)
	t.Cleanup(svc.Stop)
	return svc, jobs
}

func defaultTestConfig() *common.ImportConfig {
	return &common.ImportConfig{
		ChunkSize:         100,
		MaxConcurrentJobs: 2,
		MaxRecords:        100,
		DefaultListLimit:  10,
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newTestService(t, defaultTestConfig())
	ctx := context.Background()

	_, err := svc.Submit(ctx, "owner-1", "test", upsertMode, nil)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = svc.Submit(ctx, "owner-1", "test", upsertMode, makeRecords(101))
	assert.ErrorIs(t, err, ErrTooManyRecords)
}

func TestSubmit_RunsJobToCompletion(t *testing.T) {
	svc, jobs := newTestService(t, defaultTestConfig())
	ctx := context.Background()

	job, err := svc.Submit(ctx, "owner-1", "supplier scrape", upsertMode, makeRecords(50))
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 50, job.Total)

	require.Eventually(t, func() bool {
		got, err := jobs.GetJob(ctx, job.ID, "owner-1")
		return err == nil && got.Status == models.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	got, err := svc.GetJob(ctx, job.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 50, got.Imported)
}

func TestCancel_UnknownJob(t *testing.T) {
	svc, _ := newTestService(t, defaultTestConfig())

	_, err := svc.Cancel(context.Background(), "job_missing", "owner-1")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestListRecent_DefaultLimit(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.DefaultListLimit = 2
	svc, _ := newTestService(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, "owner-1", "test", upsertMode, makeRecords(1))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		listed, err := svc.ListRecent(ctx, "owner-1", 0)
		return err == nil && len(listed) == 2
	}, 5*time.Second, 10*time.Millisecond)

	listed, err := svc.ListRecent(ctx, "owner-1", 10)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}
