package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/models"
	"github.com/ternarybob/copia/internal/services/matcher"
	"github.com/ternarybob/copia/internal/services/normalizer"
	"golang.org/x/time/rate"
)

// Processor runs one import job to completion: records are walked in fixed
// chunks, each chunk's tally is persisted as a single progress update, and
// the cancellation flag is honoured at chunk boundaries only. Per-record
// failures increment the error counter; the job as a whole fails only on
// persistence failures against the job store or a catalog store outage.
type Processor struct {
	jobs       interfaces.JobStorage
	catalog    interfaces.CatalogStorage
	normalizer *normalizer.Service
	matcher    *matcher.Service
	chunkSize  int
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// NewProcessor creates a chunk processor. upsertRateLimit bounds catalog
// writes per second; 0 disables throttling.
func NewProcessor(jobs interfaces.JobStorage, catalog interfaces.CatalogStorage, norm *normalizer.Service, match *matcher.Service, chunkSize, upsertRateLimit int, logger arbor.ILogger) *Processor {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	var limiter *rate.Limiter
	if upsertRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(upsertRateLimit), upsertRateLimit)
	}
	return &Processor{
		jobs:       jobs,
		catalog:    catalog,
		normalizer: norm,
		matcher:    match,
		chunkSize:  chunkSize,
		limiter:    limiter,
		logger:     logger,
	}
}

// Run processes all records for the given job. A context cancellation
// between chunks returns without a terminal transition: the job stays active
// with its progress intact and is later reported as stalled. A cooperative
// cancellation request transitions the job to cancelled at the next chunk
// boundary.
func (p *Processor) Run(ctx context.Context, job *models.ImportJob, records []models.RawRecord) error {
	if err := p.jobs.MarkStatus(ctx, job.ID, models.JobStatusActive, ""); err != nil {
		return p.fail(ctx, job.ID, fmt.Errorf("failed to activate job: %w", err))
	}

	for start := 0; start < len(records); start += p.chunkSize {
		if ctx.Err() != nil {
			p.logger.Warn().
				Str("job_id", job.ID).
				Int("processed", start).
				Msg("Context cancelled mid-import, leaving job active")
			return ctx.Err()
		}

		cancelled, err := p.jobs.IsCancellationRequested(ctx, job.ID)
		if err != nil {
			return p.fail(ctx, job.ID, fmt.Errorf("failed to read cancellation flag: %w", err))
		}
		if cancelled {
			if err := p.jobs.MarkStatus(ctx, job.ID, models.JobStatusCancelled, ""); err != nil {
				return p.fail(ctx, job.ID, fmt.Errorf("failed to cancel job: %w", err))
			}
			p.logger.Info().
				Str("job_id", job.ID).
				Int("processed", start).
				Int("total", len(records)).
				Msg("Import cancelled at chunk boundary")
			return nil
		}

		end := start + p.chunkSize
		if end > len(records) {
			end = len(records)
		}

		tally, err := p.processChunk(ctx, job, records[start:end])
		if err != nil {
			return p.fail(ctx, job.ID, err)
		}

		if _, err := p.jobs.ApplyChunkResult(ctx, job.ID, tally); err != nil {
			return p.fail(ctx, job.ID, fmt.Errorf("failed to persist progress: %w", err))
		}
	}

	if err := p.jobs.MarkStatus(ctx, job.ID, models.JobStatusCompleted, ""); err != nil {
		return p.fail(ctx, job.ID, fmt.Errorf("failed to complete job: %w", err))
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Int("total", len(records)).
		Msg("Import completed")
	return nil
}

// processChunk walks one chunk record by record. Per-record failures are
// folded into the error counter and never abort the chunk. The one exception
// is a catalog outage: when every record in the chunk fails on the catalog
// store with nothing applied, the store is treated as unavailable and the
// returned error fails the whole job.
func (p *Processor) processChunk(ctx context.Context, job *models.ImportJob, chunk []models.RawRecord) (models.ChunkResult, error) {
	var tally models.ChunkResult
	var storeErrs int
	var lastStoreErr error

	for _, raw := range chunk {
		rec, err := p.normalizer.Normalize(raw)
		if err != nil {
			tally.Errors++
			p.logger.Debug().Str("job_id", job.ID).Err(err).Msg("Record failed normalization")
			continue
		}

		decision, err := p.matcher.Match(ctx, job.OwnerID, rec, job.Mode)
		if err != nil {
			tally.Errors++
			storeErrs++
			lastStoreErr = err
			p.logger.Warn().Str("job_id", job.ID).Str("name", rec.Name).Err(err).Msg("Record failed matching")
			continue
		}

		switch decision.Kind {
		case models.DecisionCreate:
			if err := p.throttle(ctx); err != nil {
				tally.Errors++
				continue
			}
			material := models.NewMaterial("", job.OwnerID, decision.Record, time.Now())
			if _, err := p.catalog.Insert(ctx, material); err != nil {
				tally.Errors++
				storeErrs++
				lastStoreErr = err
				p.logger.Warn().Str("job_id", job.ID).Str("name", rec.Name).Err(err).Msg("Failed to insert material")
				continue
			}
			tally.Imported++

		case models.DecisionUpdate:
			if err := p.throttle(ctx); err != nil {
				tally.Errors++
				continue
			}
			if err := p.catalog.UpdateFields(ctx, decision.MaterialID, decision.Diff); err != nil {
				tally.Errors++
				storeErrs++
				lastStoreErr = err
				p.logger.Warn().Str("job_id", job.ID).Str("material_id", decision.MaterialID).Err(err).Msg("Failed to update material")
				continue
			}
			tally.Updated++

		case models.DecisionSkip:
			tally.Skipped++
		}
	}

	if len(chunk) > 0 && storeErrs == len(chunk) {
		return tally, fmt.Errorf("catalog store unavailable: %w", lastStoreErr)
	}
	return tally, nil
}

func (p *Processor) throttle(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// fail records a systemic failure on the job and returns the cause.
func (p *Processor) fail(ctx context.Context, jobID string, cause error) error {
	p.logger.Error().Str("job_id", jobID).Err(cause).Msg("Import failed")
	if err := p.jobs.MarkStatus(ctx, jobID, models.JobStatusFailed, cause.Error()); err != nil {
		p.logger.Error().Str("job_id", jobID).Err(err).Msg("Failed to record job failure")
	}
	return cause
}
