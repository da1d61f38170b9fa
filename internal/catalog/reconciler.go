package catalog

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aqib-kha9/backendgo/internal/database"
	"github.com/aqib-kha9/backendgo/internal/models"
	"github.com/aqib-kha9/backendgo/internal/tally"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Summary reports the outcome of one sync pass. Partial success is the
// normal outcome: unmappable items are counted, not fatal.
type Summary struct {
	Processed int `json:"processed"`
	NewCount  int `json:"new"`
	Errors    int `json:"errors"`
}

// Message renders the summary the way the protocol reports task results
func (s *Summary) Message() string {
	return fmt.Sprintf("Sync successful. Processed %d items. New: %d", s.Processed, s.NewCount)
}

// Reconciler converges a party's catalog to a batch of raw Tally stock
// items: diff incoming SKUs against existing products, allocate ids for
// new SKUs in one block, bulk upsert products and inventory.
type Reconciler struct {
	db    *database.DB
	alloc *Allocator
}

// NewReconciler creates a reconciler using the given allocator
func NewReconciler(db *database.DB, alloc *Allocator) *Reconciler {
	return &Reconciler{db: db, alloc: alloc}
}

// SyncTallyXML ingests a raw Tally export for the user's party scope.
// A returned error is batch-fatal (missing scope, unparseable XML, a
// failed bulk write); already-committed writes are not rolled back, and
// every upsert is keyed so the whole batch can simply be retried.
func (r *Reconciler) SyncTallyXML(userID, xmlData string) (*Summary, error) {
	var user models.User
	if err := r.db.Where("userid = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s not found", userID)
		}
		return nil, err
	}

	var party models.Party
	if err := r.db.Where("userid = ?", userID).First(&party).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("party not found for user %s", userID)
		}
		return nil, err
	}

	items, err := tally.ParseStockItems(xmlData)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &Summary{}, nil
	}

	// Map every raw item; unprocessable items are skipped and counted.
	// Processed counts every mapped item. Duplicate SKUs within one export
	// still collapse to the last occurrence for the writes, so the bulk
	// upsert never touches the same row twice in one statement.
	summary := &Summary{}
	order := make([]string, 0, len(items))
	bySKU := make(map[string]*tally.Candidate, len(items))
	for _, item := range items {
		cand := tally.MapStockItem(item, party.PartyID)
		if cand == nil {
			summary.Errors++
			log.Printf("⚠️ Tally sync: skipping unprocessable stock item for party %s", party.PartyID)
			continue
		}
		summary.Processed++
		if _, seen := bySKU[cand.Product.SKU]; !seen {
			order = append(order, cand.Product.SKU)
		}
		bySKU[cand.Product.SKU] = cand
	}
	if len(order) == 0 {
		return summary, nil
	}

	// One lookup covers the whole batch
	var existing []models.Product
	if err := r.db.Select("sku", "product_id").
		Where("party_id = ? AND sku IN ?", party.PartyID, order).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load existing products: %w", err)
	}

	skuToProductID := make(map[string]string, len(existing))
	for _, p := range existing {
		skuToProductID[p.SKU] = p.ProductID
	}

	newSKUs := make([]string, 0)
	for _, sku := range order {
		if _, ok := skuToProductID[sku]; !ok {
			newSKUs = append(newSKUs, sku)
		}
	}

	// One atomic block reservation for every new SKU in the batch
	if len(newSKUs) > 0 {
		start, err := r.alloc.ReserveBlock(CounterProductID, len(newSKUs))
		if err != nil {
			return nil, err
		}
		for i, sku := range newSKUs {
			skuToProductID[sku] = FormatProductID(start + int64(i))
		}
	}
	summary.NewCount = len(newSKUs)

	now := time.Now()
	products := make([]models.Product, 0, len(order))
	inventories := make([]models.Inventory, 0, len(order))
	for _, sku := range order {
		cand := bySKU[sku]
		cand.Product.ProductID = skuToProductID[sku]
		cand.Product.LastSyncedAt = &now
		products = append(products, cand.Product)

		cand.Inventory.ProductID = cand.Product.ProductID
		inventories = append(inventories, cand.Inventory)
	}

	// Bulk upsert keyed by (sku, party_id): set semantics for existing
	// rows, insert for new, as one write
	err = r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}, {Name: "party_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "base_unit", "price", "opening_balance", "opening_value",
			"category", "brand", "hsn", "gst", "short_description",
			"attributes", "raw_data", "last_synced_at", "updated_at",
		}),
	}).Create(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert products: %w", err)
	}

	// Inventory rows are overwritten wholesale, keyed by (product_id, party_id)
	err = r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "party_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity", "batch_no", "updated_at",
		}),
	}).Create(&inventories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert inventory: %w", err)
	}

	return summary, nil
}
