package tally

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"github.com/aqib-kha9/backendgo/internal/models"
)

// Sentinel values for items whose Tally stock group is missing, so
// downstream filtering never sees empty category buckets.
const (
	DefaultCategory = "Uncategorized"
	DefaultBrand    = "Generic"
)

// Candidate is a normalized (Product, Inventory) pair mapped from one raw
// stock item. The Tally pipeline does not model multi-batch inventory:
// each item yields a single default lot.
type Candidate struct {
	Product   models.Product
	Inventory models.Inventory
}

var (
	leadingNumber = regexp.MustCompile(`[\d.]+`)
	currencyJunk  = regexp.MustCompile(`[^0-9.\-]+`)
)

// parseQuantity reads the first floating-point-looking numeric substring,
// defending against trailing unit suffixes like "10 Nos".
func parseQuantity(raw string) float64 {
	match := leadingNumber.FindString(raw)
	if match == "" {
		return 0
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseAmount reads a currency-decorated value by stripping every
// non-digit, non-dot, non-minus character ("₹150.00" -> 150).
func parseAmount(raw string) float64 {
	cleaned := currencyJunk.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return n
}

// MapStockItem converts one raw stock-item record into a normalized
// candidate for the given party scope. Returns nil when neither a name
// nor a GUID resolves; such items are unprocessable and are skipped by
// the reconciler, never fatal for the batch.
func MapStockItem(item StockItem, partyID string) *Candidate {
	guid, _ := ExtractValue(item, "$GUID", "GUID")
	name, _ := ExtractValue(item, "$NAME", "NAME", "LANGUAGENAME.LIST")

	// Readable SKUs are preferred over opaque identifiers: name first,
	// GUID only as a fallback.
	sku := name
	if sku == "" {
		sku = guid
	}
	if sku == "" {
		return nil
	}

	baseUnit, _ := ExtractValue(item, "BASEUNITS")

	openingBalance := 0.0
	if raw, ok := ExtractValue(item, "OPENINGBALANCE"); ok {
		openingBalance = parseQuantity(raw)
	}

	openingValue := 0.0
	if raw, ok := ExtractValue(item, "OPENINGVALUE", "OPENINGRATE", "STANDARDCOST"); ok {
		openingValue = parseAmount(raw)
	}

	price := 0.0
	if raw, ok := ExtractValue(item, "STANDARDCOST", "OPENINGVALUE"); ok {
		price = parseAmount(raw)
	}
	if price == 0 {
		// Never leave price meaningfully unset if any pricing signal exists
		price = openingValue
	}

	category := DefaultCategory
	if parent, ok := ExtractValue(item, "PARENT"); ok {
		category = parent
	}
	brand := DefaultBrand
	if category != DefaultCategory {
		brand = category
	}

	hsn, _ := ExtractValue(item, "HSN")
	gst, _ := ExtractValue(item, "GSTAPPLICABLE")
	description, _ := ExtractValue(item, "DESCRIPTION", "DESC")

	displayName := name
	if displayName == "" {
		displayName = sku
	}

	attributes := models.JSONB{
		"guid":         guid,
		"parent_group": category,
		"base_unit":    baseUnit,
		"hsn":          hsn,
		"gst":          gst,
	}

	rawData, _ := json.Marshal(item)

	product := models.Product{
		SKU:              sku,
		PartyID:          partyID,
		Name:             displayName,
		BaseUnit:         baseUnit,
		Price:            price,
		OpeningBalance:   openingBalance,
		OpeningValue:     openingValue,
		Category:         category,
		Brand:            brand,
		HSN:              hsn,
		GST:              gst,
		ShortDescription: description,
		Attributes:       attributes,
		RawData:          rawData,
	}

	inventory := models.Inventory{
		PartyID:   partyID,
		Quantity:  openingBalance,
		BatchNo:   "default",
		UpdatedAt: time.Now(),
	}

	return &Candidate{Product: product, Inventory: inventory}
}
