package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/models"
	"github.com/ternarybob/copia/internal/storage/memory"
)

func newTestMatcher(t *testing.T) (*Service, *memory.CatalogStorage) {
	t.Helper()
	catalog := memory.NewCatalogStorage()
	return NewService(catalog, arbor.NewLogger()), catalog
}

func seedMaterial(t *testing.T, catalog *memory.CatalogStorage, ownerID, name string, price float64) *models.Material {
	t.Helper()
	rec := &models.MaterialRecord{
		Name:         name,
		Unit:         models.UnitEach,
		PricePerUnit: price,
		GSTInclusive: true,
		InStock:      true,
	}
	material := models.NewMaterial("", ownerID, rec, time.Now())
	_, err := catalog.Insert(context.Background(), material)
	require.NoError(t, err)
	return material
}

var allowAll = models.ImportMode{UpdateExisting: true, ImportNew: true}

func TestMatch_CreateWhenUnknown(t *testing.T) {
	svc, _ := newTestMatcher(t)

	rec := &models.MaterialRecord{Name: "Treated Pine Sleeper", Unit: models.UnitEach}
	decision, err := svc.Match(context.Background(), "owner-1", rec, allowAll)
	require.NoError(t, err)

	assert.Equal(t, models.DecisionCreate, decision.Kind)
	assert.Same(t, rec, decision.Record)
}

func TestMatch_UpdateWhenKnown(t *testing.T) {
	svc, catalog := newTestMatcher(t)
	existing := seedMaterial(t, catalog, "owner-1", "Treated Pine Sleeper", 18.0)

	rec := &models.MaterialRecord{
		Name:         "Treated Pine Sleeper",
		Unit:         models.UnitEach,
		PricePerUnit: 19.5,
		GSTInclusive: true,
		InStock:      true,
	}
	decision, err := svc.Match(context.Background(), "owner-1", rec, allowAll)
	require.NoError(t, err)

	assert.Equal(t, models.DecisionUpdate, decision.Kind)
	assert.Equal(t, existing.ID, decision.MaterialID)
	assert.Equal(t, 19.5, decision.Diff["price_per_unit"])
	assert.Contains(t, decision.Diff, "last_scraped_at")
	assert.NotContains(t, decision.Diff, "in_stock")
}

func TestMatch_CaseAndWhitespaceInsensitive(t *testing.T) {
	svc, catalog := newTestMatcher(t)
	existing := seedMaterial(t, catalog, "owner-1", "Treated Pine Sleeper", 18.0)

	rec := &models.MaterialRecord{
		Name:         "  TREATED pine SLEEPER ",
		Unit:         models.UnitEach,
		PricePerUnit: 18.0,
		GSTInclusive: true,
		InStock:      true,
	}
	decision, err := svc.Match(context.Background(), "owner-1", rec, allowAll)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionUpdate, decision.Kind)
	assert.Equal(t, existing.ID, decision.MaterialID)
}

func TestMatch_OwnersAreIsolated(t *testing.T) {
	svc, catalog := newTestMatcher(t)
	seedMaterial(t, catalog, "owner-1", "Treated Pine Sleeper", 18.0)

	rec := &models.MaterialRecord{Name: "Treated Pine Sleeper"}
	decision, err := svc.Match(context.Background(), "owner-2", rec, allowAll)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionCreate, decision.Kind)
}

func TestMatch_ModeRestrictions(t *testing.T) {
	svc, catalog := newTestMatcher(t)
	seedMaterial(t, catalog, "owner-1", "Known Material", 10.0)

	ctx := context.Background()

	// New record with import_new disabled
	decision, err := svc.Match(ctx, "owner-1",
		&models.MaterialRecord{Name: "Unknown Material"},
		models.ImportMode{UpdateExisting: true})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionSkip, decision.Kind)
	assert.Equal(t, models.SkipNewNotAllowed, decision.Reason)

	// Known record with update_existing disabled
	decision, err = svc.Match(ctx, "owner-1",
		&models.MaterialRecord{Name: "Known Material"},
		models.ImportMode{ImportNew: true})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionSkip, decision.Kind)
	assert.Equal(t, models.SkipUpdateNotAllowed, decision.Reason)
}

func TestMatch_SparseRecordKeepsUserFields(t *testing.T) {
	svc, catalog := newTestMatcher(t)

	rec := &models.MaterialRecord{
		Name:         "Wall Tile White 300x600",
		Description:  "Gloss ceramic",
		Category:     "Tiles",
		Unit:         models.UnitSquareMetre,
		PricePerUnit: 32.0,
		GSTInclusive: false,
		InStock:      true,
	}
	material := models.NewMaterial("", "owner-1", rec, time.Now())
	_, err := catalog.Insert(context.Background(), material)
	require.NoError(t, err)

	// A later scrape of a page that omits description, category, unit and
	// GST arrives with normalizer defaults (each, GST-inclusive). None of
	// those defaults may clobber the stored material.
	sparse := &models.MaterialRecord{
		Name:         "Wall Tile White 300x600",
		Unit:         models.UnitEach,
		PricePerUnit: 29.0,
		GSTInclusive: true,
		InStock:      true,
	}
	decision, err := svc.Match(context.Background(), "owner-1", sparse, allowAll)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionUpdate, decision.Kind)
	assert.NotContains(t, decision.Diff, "description")
	assert.NotContains(t, decision.Diff, "category")
	assert.NotContains(t, decision.Diff, "unit")
	assert.NotContains(t, decision.Diff, "gst_inclusive")
	assert.Equal(t, 29.0, decision.Diff["price_per_unit"])
}

func TestMatch_IdenticalRecordStillUpdates(t *testing.T) {
	svc, catalog := newTestMatcher(t)
	existing := seedMaterial(t, catalog, "owner-1", "Sand 20kg", 8.5)

	rec := &models.MaterialRecord{
		Name:         "Sand 20kg",
		Unit:         models.UnitEach,
		PricePerUnit: 8.5,
		GSTInclusive: true,
		InStock:      true,
	}
	decision, err := svc.Match(context.Background(), "owner-1", rec, allowAll)
	require.NoError(t, err)

	// No field changes, but the scrape is still recorded as an update so
	// the last-scraped timestamp moves forward.
	assert.Equal(t, models.DecisionUpdate, decision.Kind)
	assert.Equal(t, existing.ID, decision.MaterialID)
	assert.Len(t, decision.Diff, 1)
	assert.Contains(t, decision.Diff, "last_scraped_at")
}
