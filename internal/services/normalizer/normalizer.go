package normalizer

import (
	"math"
	"strings"

	"github.com/spf13/cast"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/models"
)

// Service normalizes loosely-typed raw records into canonical material
// records. Scraped pages and spreadsheet uploads disagree on field names and
// value formats, so every field is resolved through an alias list and coerced
// leniently. Only a missing name is fatal for a record.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new normalizer service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// Field alias lists, checked in order. First key present in the raw record
// wins, even when its value is empty.
var (
	nameAliases     = []string{"name", "title", "product_name", "material_name", "product"}
	descAliases     = []string{"description", "desc", "details"}
	priceAliases    = []string{"price", "price_per_unit", "unit_price", "cost", "rate"}
	unitAliases     = []string{"unit", "uom", "unit_of_measure", "per"}
	skuAliases      = []string{"sku", "code", "product_code", "item_code"}
	supplierAliases = []string{"supplier", "vendor", "store", "brand"}
	categoryAliases = []string{"category", "cat", "type", "group"}
	stockAliases    = []string{"in_stock", "available", "availability", "stock"}
	gstAliases      = []string{"gst_inclusive", "gst_incl", "incl_gst", "includes_gst"}
)

// Normalize converts one raw record into a MaterialRecord. The returned error
// is a per-record failure to be counted against the job, never a reason to
// abort the import.
func (s *Service) Normalize(raw models.RawRecord) (*models.MaterialRecord, error) {
	name := strings.TrimSpace(firstString(raw, nameAliases))
	if name == "" {
		return nil, &RecordError{Code: ErrEmptyName, Message: "record has no usable name"}
	}

	rec := &models.MaterialRecord{
		Name:         name,
		Description:  strings.TrimSpace(firstString(raw, descAliases)),
		SKU:          strings.TrimSpace(firstString(raw, skuAliases)),
		Supplier:     strings.TrimSpace(firstString(raw, supplierAliases)),
		Category:     strings.TrimSpace(firstString(raw, categoryAliases)),
		Unit:         models.ParseUnit(firstString(raw, unitAliases)),
		PricePerUnit: parsePrice(firstValue(raw, priceAliases)),
		InStock:      parseBoolDefault(raw, stockAliases, true),
		GSTInclusive: parseBoolDefault(raw, gstAliases, true),
	}

	return rec, nil
}

// firstValue returns the value of the first alias present in the record.
func firstValue(raw models.RawRecord, aliases []string) interface{} {
	for _, key := range aliases {
		if v, ok := raw[key]; ok {
			return v
		}
	}
	return nil
}

func firstString(raw models.RawRecord, aliases []string) string {
	return cast.ToString(firstValue(raw, aliases))
}

// parsePrice coerces scraped price values ("$1,234.50", 12, "12.5") to a
// non-negative float. Anything unparseable, negative or non-finite becomes 0;
// a zero price means "price unknown", not "free".
func parsePrice(value interface{}) float64 {
	if value == nil {
		return 0
	}
	if str, ok := value.(string); ok {
		str = strings.TrimSpace(str)
		str = strings.TrimPrefix(str, "$")
		str = strings.ReplaceAll(str, ",", "")
		value = str
	}
	price, err := cast.ToFloat64E(value)
	if err != nil {
		return 0
	}
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return price
}

// parseBoolDefault reads the first boolean-ish alias, keeping the default
// when the field is absent or unparseable.
func parseBoolDefault(raw models.RawRecord, aliases []string, def bool) bool {
	v := firstValue(raw, aliases)
	if v == nil {
		return def
	}
	if str, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(str)) {
		case "yes", "y", "in stock", "available":
			return true
		case "no", "n", "out of stock", "unavailable":
			return false
		}
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}
