package models

import (
	"strings"
	"time"
)

// Unit is the unit of measure for a material price.
type Unit string

const (
	UnitEach        Unit = "each"
	UnitLinearMetre Unit = "lm"
	UnitSquareMetre Unit = "sqm"
	UnitCubicMetre  Unit = "cubm"
	UnitPack        Unit = "pack"
	UnitBox         Unit = "box"
	UnitBag         Unit = "bag"
	UnitRoll        Unit = "roll"
	UnitSheet       Unit = "sheet"
	UnitLitre       Unit = "litre"
	UnitKilogram    Unit = "kg"
)

// unitAliases maps the unit spellings seen in scraped supplier pages and
// spreadsheet uploads onto the canonical enum. Lookups are lowercase.
var unitAliases = map[string]Unit{
	"each": UnitEach, "ea": UnitEach, "item": UnitEach, "unit": UnitEach,
	"lm": UnitLinearMetre, "m": UnitLinearMetre, "metre": UnitLinearMetre,
	"meter": UnitLinearMetre, "linear metre": UnitLinearMetre, "linear meter": UnitLinearMetre, "lin m": UnitLinearMetre,
	"sqm": UnitSquareMetre, "m2": UnitSquareMetre, "sq m": UnitSquareMetre,
	"square metre": UnitSquareMetre, "square meter": UnitSquareMetre,
	"cubm": UnitCubicMetre, "m3": UnitCubicMetre, "cubic metre": UnitCubicMetre, "cubic meter": UnitCubicMetre,
	"pack": UnitPack, "pk": UnitPack, "packet": UnitPack,
	"box": UnitBox, "bag": UnitBag, "roll": UnitRoll, "sheet": UnitSheet,
	"litre": UnitLitre, "liter": UnitLitre, "l": UnitLitre,
	"kg": UnitKilogram, "kilogram": UnitKilogram,
}

// ParseUnit normalizes a raw unit string to a recognized Unit.
// Unrecognized or empty values fall back to "each" rather than failing,
// to keep the pipeline resilient to messy scraped input.
func ParseUnit(raw string) Unit {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return u
	}
	return UnitEach
}

// RawRecord is one loosely-typed row from a scraper or spreadsheet upload.
// Field names are not trusted; the normalizer resolves aliases.
type RawRecord map[string]interface{}

// MaterialRecord is the canonical material shape produced by the normalizer.
type MaterialRecord struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	SKU          string  `json:"sku,omitempty"`
	Supplier     string  `json:"supplier,omitempty"`
	Unit         Unit    `json:"unit"`
	PricePerUnit float64 `json:"price_per_unit"`
	GSTInclusive bool    `json:"gst_inclusive"`
	Category     string  `json:"category,omitempty"`
	InStock      bool    `json:"in_stock"`
}

// Material is a catalog entry owned by a principal. The (owner, normalized
// name) pair is the match key used for import deduplication.
type Material struct {
	ID            string     `json:"id" badgerhold:"key"`
	OwnerID       string     `json:"owner_id" badgerhold:"index"`
	MatchKey      string     `json:"-" badgerhold:"index"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	SKU           string     `json:"sku,omitempty"`
	Supplier      string     `json:"supplier,omitempty"`
	Unit          Unit       `json:"unit"`
	PricePerUnit  float64    `json:"price_per_unit"`
	GSTInclusive  bool       `json:"gst_inclusive"`
	Category      string     `json:"category,omitempty"`
	InStock       bool       `json:"in_stock"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
}

// NormalizeName produces the name component of the match key:
// whitespace-trimmed, lowercased exact match. No fuzzy matching is done;
// spelling variants are intentionally treated as distinct materials.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MaterialMatchKey builds the storage match key for an (owner, name) pair.
func MaterialMatchKey(ownerID, name string) string {
	return ownerID + "\x00" + NormalizeName(name)
}

// NewMaterial creates a catalog entry from a normalized record.
func NewMaterial(id, ownerID string, rec *MaterialRecord, now time.Time) *Material {
	return &Material{
		ID:            id,
		OwnerID:       ownerID,
		MatchKey:      MaterialMatchKey(ownerID, rec.Name),
		Name:          strings.TrimSpace(rec.Name),
		Description:   rec.Description,
		SKU:           rec.SKU,
		Supplier:      rec.Supplier,
		Unit:          rec.Unit,
		PricePerUnit:  rec.PricePerUnit,
		GSTInclusive:  rec.GSTInclusive,
		Category:      rec.Category,
		InStock:       rec.InStock,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastScrapedAt: &now,
	}
}
