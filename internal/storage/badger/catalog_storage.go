package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/common"
	"github.com/ternarybob/copia/internal/interfaces"
	"github.com/ternarybob/copia/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CatalogStorage implements the CatalogStorage interface for Badger.
// Materials are keyed by id, with an index on MatchKey (owner + normalized
// name) for the matcher's duplicate lookups.
type CatalogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCatalogStorage creates a new CatalogStorage instance
func NewCatalogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CatalogStorage {
	return &CatalogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CatalogStorage) FindByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Material, error) {
	key := models.MaterialMatchKey(ownerID, name)

	var materials []models.Material
	query := badgerhold.Where("MatchKey").Eq(key).Index("MatchKey").Limit(1)
	if err := s.db.Store().Find(&materials, query); err != nil {
		return nil, fmt.Errorf("failed to find material: %w", err)
	}
	if len(materials) == 0 {
		return nil, nil
	}
	return &materials[0], nil
}

func (s *CatalogStorage) Insert(ctx context.Context, material *models.Material) (string, error) {
	if material.ID == "" {
		material.ID = common.NewMaterialID()
	}
	if material.MatchKey == "" {
		material.MatchKey = models.MaterialMatchKey(material.OwnerID, material.Name)
	}

	if err := s.db.Store().Insert(material.ID, material); err != nil {
		return "", fmt.Errorf("failed to insert material: %w", err)
	}
	return material.ID, nil
}

// UpdateFields applies a partial update. Unknown field names are ignored
// rather than rejected, matching the forgiving posture of the rest of the
// pipeline.
func (s *CatalogStorage) UpdateFields(ctx context.Context, id string, fields models.FieldDiff) error {
	var material models.Material
	if err := s.db.Store().Get(id, &material); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("material not found: %s", id)
		}
		return fmt.Errorf("failed to get material: %w", err)
	}

	applyMaterialFields(&material, fields)
	material.UpdatedAt = time.Now()

	if err := s.db.Store().Update(id, &material); err != nil {
		return fmt.Errorf("failed to update material: %w", err)
	}
	return nil
}

func (s *CatalogStorage) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Material, error) {
	query := badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID").SortBy("Name")
	if offset > 0 {
		query = query.Skip(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var materials []models.Material
	if err := s.db.Store().Find(&materials, query); err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}

	result := make([]*models.Material, len(materials))
	for i := range materials {
		result[i] = &materials[i]
	}
	return result, nil
}

func (s *CatalogStorage) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	count, err := s.db.Store().Count(&models.Material{}, badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count materials: %w", err)
	}
	return int(count), nil
}

// applyMaterialFields maps diff keys onto material fields. The key set
// mirrors what the matcher emits in a FieldDiff.
func applyMaterialFields(m *models.Material, fields models.FieldDiff) {
	for key, value := range fields {
		switch key {
		case "price_per_unit":
			if v, ok := value.(float64); ok {
				m.PricePerUnit = v
			}
		case "in_stock":
			if v, ok := value.(bool); ok {
				m.InStock = v
			}
		case "description":
			if v, ok := value.(string); ok && v != "" {
				m.Description = v
			}
		case "category":
			if v, ok := value.(string); ok && v != "" {
				m.Category = v
			}
		case "sku":
			if v, ok := value.(string); ok && v != "" {
				m.SKU = v
			}
		case "supplier":
			if v, ok := value.(string); ok && v != "" {
				m.Supplier = v
			}
		case "last_scraped_at":
			if v, ok := value.(time.Time); ok {
				m.LastScrapedAt = &v
			}
		}
	}
}
