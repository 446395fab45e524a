package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/models"
)

// Service decides, for each normalized record, whether it creates a new
// catalog entry, updates an existing one, or is skipped. Matching is an exact
// lookup on (owner, normalized name); spelling variants are distinct
// materials on purpose, since silently merging near-matches would corrupt
// user catalogs.
type Service struct {
	catalog interfaces.CatalogStorage
	logger  arbor.ILogger
}

// NewService creates a new matcher service
func NewService(catalog interfaces.CatalogStorage, logger arbor.ILogger) *Service {
	return &Service{
		catalog: catalog,
		logger:  logger,
	}
}

// Match resolves one record against the owner's catalog under the given
// import mode. Storage lookup failures are returned as errors; mode
// restrictions produce skip decisions instead.
func (s *Service) Match(ctx context.Context, ownerID string, rec *models.MaterialRecord, mode models.ImportMode) (*models.MatchDecision, error) {
	existing, err := s.catalog.FindByOwnerAndName(ctx, ownerID, rec.Name)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup failed: %w", err)
	}

	if existing == nil {
		if !mode.ImportNew {
			return &models.MatchDecision{Kind: models.DecisionSkip, Reason: models.SkipNewNotAllowed}, nil
		}
		return &models.MatchDecision{Kind: models.DecisionCreate, Record: rec}, nil
	}

	if !mode.UpdateExisting {
		return &models.MatchDecision{Kind: models.DecisionSkip, Reason: models.SkipUpdateNotAllowed}, nil
	}

	return &models.MatchDecision{
		Kind:       models.DecisionUpdate,
		MaterialID: existing.ID,
		Diff:       buildDiff(existing, rec),
	}, nil
}

// buildDiff computes the fields to overwrite on an update. Only price and
// the stock flag track the incoming record; descriptive fields are updated
// when the record carries a non-empty value, so a sparse scrape does not
// wipe user-entered detail. Unit and GST are never overwritten on update:
// the normalizer fills defaults for them when a page omits the field, and a
// defaulted value is indistinguishable from a scraped one. An empty diff
// still counts as an update: the last-scraped timestamp is refreshed
// regardless.
func buildDiff(existing *models.Material, rec *models.MaterialRecord) models.FieldDiff {
	diff := models.FieldDiff{}

	if existing.PricePerUnit != rec.PricePerUnit {
		diff["price_per_unit"] = rec.PricePerUnit
	}
	if existing.InStock != rec.InStock {
		diff["in_stock"] = rec.InStock
	}
	if rec.Description != "" && existing.Description != rec.Description {
		diff["description"] = rec.Description
	}
	if rec.Category != "" && existing.Category != rec.Category {
		diff["category"] = rec.Category
	}
	if rec.SKU != "" && existing.SKU != rec.SKU {
		diff["sku"] = rec.SKU
	}
	if rec.Supplier != "" && existing.Supplier != rec.Supplier {
		diff["supplier"] = rec.Supplier
	}

	diff["last_scraped_at"] = time.Now()
	return diff
}
