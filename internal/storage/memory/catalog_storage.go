package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/copia/internal/common"
	"github.com/ternarybob/copia/internal/models"
)

// CatalogStorage is an in-memory material catalog for development and tests.
type CatalogStorage struct {
	mu        sync.RWMutex
	materials map[string]*models.Material
	byKey     map[string]string
}

// NewCatalogStorage creates an empty in-memory catalog.
func NewCatalogStorage() *CatalogStorage {
	return &CatalogStorage{
		materials: make(map[string]*models.Material),
		byKey:     make(map[string]string),
	}
}

func (s *CatalogStorage) FindByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[models.MaterialMatchKey(ownerID, name)]
	if !ok {
		return nil, nil
	}
	clone := *s.materials[id]
	return &clone, nil
}

func (s *CatalogStorage) Insert(ctx context.Context, material *models.Material) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if material.ID == "" {
		material.ID = common.NewMaterialID()
	}
	if material.MatchKey == "" {
		material.MatchKey = models.MaterialMatchKey(material.OwnerID, material.Name)
	}
	if _, exists := s.byKey[material.MatchKey]; exists {
		return "", fmt.Errorf("material already exists: %s", material.Name)
	}

	clone := *material
	s.materials[material.ID] = &clone
	s.byKey[material.MatchKey] = material.ID
	return material.ID, nil
}

func (s *CatalogStorage) UpdateFields(ctx context.Context, id string, fields models.FieldDiff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	material, ok := s.materials[id]
	if !ok {
		return fmt.Errorf("material not found: %s", id)
	}
	applyFields(material, fields)
	material.UpdatedAt = time.Now()
	return nil
}

func (s *CatalogStorage) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Material
	for _, m := range s.materials {
		if m.OwnerID == ownerID {
			clone := *m
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	if offset > 0 {
		if offset >= len(result) {
			return nil, nil
		}
		result = result[offset:]
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *CatalogStorage) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.materials {
		if m.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func applyFields(m *models.Material, fields models.FieldDiff) {
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
