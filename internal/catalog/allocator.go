package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/aqib-kha9/backendgo/internal/database"
	"github.com/aqib-kha9/backendgo/internal/models"
)

// Logical counter names. The product counter is global across tenants;
// gaps are benign, reissuing a value is not.
const (
	CounterProductID = "productid"
	CounterPartyID   = "partyid"
)

const defaultSeed = 1000

// First value issued per counter name when the row does not exist yet
var counterSeeds = map[string]int64{
	CounterProductID: 1000,
	CounterPartyID:   101,
}

// Allocator mints unique, strictly increasing, human-readable entity IDs
// from durable counter rows. All mutation is a single atomic SQL statement
// so two concurrent callers can never observe the same pre-increment value,
// including across horizontally-scaled instances.
type Allocator struct {
	db *database.DB
}

// NewAllocator creates an allocator backed by the given database
func NewAllocator(db *database.DB) *Allocator {
	return &Allocator{db: db}
}

func seedFor(name string) int64 {
	if seed, ok := counterSeeds[name]; ok {
		return seed
	}
	return defaultSeed
}

// ReserveBlock atomically advances the counter by n and returns the
// pre-increment value: the caller owns the contiguous block
// [start, start+n-1]. One round-trip regardless of n.
func (a *Allocator) ReserveBlock(name string, n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("block size must be positive, got %d", n)
	}

	var end int64
	err := a.db.Raw(`
		INSERT INTO counters (name, seq, created_at, updated_at)
		VALUES (?, ?, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + ?, updated_at = NOW()
		RETURNING seq`,
		name, seedFor(name)+int64(n), n,
	).Scan(&end).Error
	if err != nil {
		return 0, fmt.Errorf("failed to reserve id block %q: %w", name, err)
	}
	return end - int64(n), nil
}

// Peek returns the current head of the sequence without consuming it,
// seeding the counter row atomically on first use. Pair with Advance for
// single reservations: peek a candidate, attempt an insert-only write,
// advance only if the insert actually created a row. A racing duplicate
// insert then leaves a benign gap instead of consuming a value twice.
func (a *Allocator) Peek(name string) (int64, error) {
	var seq int64
	err := a.db.Raw(`
		INSERT INTO counters (name, seq, created_at, updated_at)
		VALUES (?, ?, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq
		RETURNING seq`,
		name, seedFor(name),
	).Scan(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("failed to peek counter %q: %w", name, err)
	}
	return seq, nil
}

// Advance consumes one value from the sequence
func (a *Allocator) Advance(name string) error {
	return a.db.Exec(`UPDATE counters SET seq = seq + 1, updated_at = NOW() WHERE name = ?`, name).Error
}

// ErrDuplicateSKU is returned when a product insert loses to an existing
// row with the same sku in the same party scope
var ErrDuplicateSKU = errors.New("product with this sku already exists")

const singleReserveAttempts = 5

// CreateProduct inserts one product under a freshly peeked counter value,
// advancing the counter only when the insert actually created the row.
// A duplicate sku consumes nothing and returns ErrDuplicateSKU. When a
// concurrent caller wins the race for the peeked id, the insert fails on
// the product_id constraint instead; the peek is retried so every caller
// with a distinct sku is eventually issued a distinct id.
func (a *Allocator) CreateProduct(product *models.Product) error {
	for attempt := 0; attempt < singleReserveAttempts; attempt++ {
		if attempt > 0 {
			// Give the racing winner time to advance the counter
			time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
		}

		seq, err := a.Peek(CounterProductID)
		if err != nil {
			return err
		}
		product.ProductID = FormatProductID(seq)

		err = a.db.Create(product).Error
		if err == nil {
			return a.Advance(CounterProductID)
		}
		if database.IsUniqueViolation(err, "idx_sku_party") {
			return ErrDuplicateSKU
		}
		if !database.IsUniqueViolation(err, "") {
			return fmt.Errorf("failed to create product: %w", err)
		}
		// Lost the id race; loop back for a fresh peek
	}
	return fmt.Errorf("exhausted %d id reservation attempts for sku %q", singleReserveAttempts, product.SKU)
}

// FormatProductID renders an allocator value as a product id ("PRD1007")
func FormatProductID(seq int64) string {
	return fmt.Sprintf("PRD%d", seq)
}

// FormatPartyID renders an allocator value as a party id ("PYT101")
func FormatPartyID(seq int64) string {
	return fmt.Sprintf("PYT%d", seq)
}
