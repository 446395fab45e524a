package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestImportJob_Apply(t *testing.T) {
	job := NewImportJob("job_1", "owner-1", "test", ImportMode{UpdateExisting: true, ImportNew: true}, 300)

	before := job.LastActivityAt
	time.Sleep(time.Millisecond)

	job.Apply(ChunkResult{Imported: 60, Updated: 20, Skipped: 15, Errors: 5}, time.Now())
	assert.Equal(t, 100, job.Processed)

	job.Apply(ChunkResult{Imported: 100}, time.Now())
	assert.Equal(t, 200, job.Processed)
	assert.Equal(t, 160, job.Imported)
	assert.Equal(t, job.Processed, job.Imported+job.Updated+job.Skipped+job.Errors)
	assert.True(t, job.LastActivityAt.After(before))
}

func TestImportJob_IsTerminal(t *testing.T) {
	job := NewImportJob("job_1", "owner-1", "test", ImportMode{}, 10)

	assert.False(t, job.IsTerminal())
	job.Status = JobStatusActive
	assert.False(t, job.IsTerminal())

	for _, status := range []JobStatus{JobStatusCompleted, JobStatusCancelled, JobStatusFailed} {
		job.Status = status
		assert.True(t, job.IsTerminal(), string(status))
	}
}

func TestImportJob_IsStalled(t *testing.T) {
	now := time.Now()
	job := NewImportJob("job_1", "owner-1", "test", ImportMode{}, 10)
	job.Status = JobStatusActive
	job.LastActivityAt = now.Add(-15 * time.Minute)

	assert.True(t, job.IsStalled(10*time.Minute, now))
	assert.False(t, job.IsStalled(20*time.Minute, now))

	// Terminal jobs are never stalled, no matter how old.
	job.Status = JobStatusCompleted
	assert.False(t, job.IsStalled(10*time.Minute, now))
}

func TestParseUnit(t *testing.T) {
	tests := map[string]Unit{
		"each":           UnitEach,
		"EA":             UnitEach,
		" Linear Metre ": UnitLinearMetre,
		"m2":             UnitSquareMetre,
		"sheet":          UnitSheet,
		"kg":             UnitKilogram,
		"":               UnitEach,
		"dozen":          UnitEach,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParseUnit(raw), "raw=%q", raw)
	}
}

func TestMaterialMatchKey(t *testing.T) {
	assert.Equal(t,
		MaterialMatchKey("owner-1", "Treated Pine"),
		MaterialMatchKey("owner-1", "  TREATED pine "))
	assert.NotEqual(t,
		MaterialMatchKey("owner-1", "Treated Pine"),
		MaterialMatchKey("owner-2", "Treated Pine"))
	// No fuzzy matching: spelling variants stay distinct.
	assert.NotEqual(t,
		MaterialMatchKey("owner-1", "Treated Pine"),
		MaterialMatchKey("owner-1", "Treated Pine Sleeper"))
}
