package catalog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aqib-kha9/backendgo/internal/database"
	"github.com/aqib-kha9/backendgo/internal/models"
	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testPGPort = 5641

var testDB *database.DB

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	dir, err := os.MkdirTemp("", "catalog-pg")
	if err != nil {
		log.Printf("Failed to create temp dir: %v", err)
		return 1
	}
	defer os.RemoveAll(dir)

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(testPGPort).
		DataPath(filepath.Join(dir, "data")).
		RuntimePath(filepath.Join(dir, "runtime")).
		Username("postgres").
		Password("postgres").
		Database("catalog_test").
		Logger(io.Discard))
	if err := pg.Start(); err != nil {
		log.Printf("Failed to start embedded postgres: %v", err)
		return 1
	}
	defer pg.Stop()

	dsn := fmt.Sprintf(
		"host=localhost port=%d user=postgres password=postgres dbname=catalog_test sslmode=disable",
		testPGPort,
	)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Printf("Failed to connect to embedded postgres: %v", err)
		return 1
	}

	testDB = database.Wrap(gdb)
	err = testDB.AutoMigrate(
		&models.User{}, &models.Party{}, &models.Counter{},
		&models.Product{}, &models.Inventory{},
	)
	if err != nil {
		log.Printf("Failed to migrate test schema: %v", err)
		return 1
	}

	return m.Run()
}

func TestReserveBlock_Contiguity(t *testing.T) {
	alloc := NewAllocator(testDB)

	start, err := alloc.ReserveBlock("contigtest", 5)
	if err != nil {
		t.Fatalf("Failed to reserve block: %v", err)
	}
	if start != defaultSeed {
		t.Errorf("Expected first block to start at seed %d, got %d", defaultSeed, start)
	}

	next, err := alloc.ReserveBlock("contigtest", 1)
	if err != nil {
		t.Fatalf("Failed to reserve follow-up block: %v", err)
	}
	if next != start+5 {
		t.Errorf("Expected next value %d immediately after the block, got %d", start+5, next)
	}
}

func TestCreateProduct_ConcurrentDistinctIDs(t *testing.T) {
	alloc := NewAllocator(testDB)
	const callers = 4

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  = make(map[string]string, callers)
		errs []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			product := models.Product{
				SKU:     fmt.Sprintf("race-sku-%d", n),
				PartyID: "PYT800",
				Name:    fmt.Sprintf("Race Item %d", n),
			}
			err := alloc.CreateProduct(&product)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if owner, dup := ids[product.ProductID]; dup {
				t.Errorf("Product id %s issued to both %s and %s", product.ProductID, owner, product.SKU)
			}
			ids[product.ProductID] = product.SKU
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		t.Errorf("Concurrent create failed: %v", err)
	}
	if len(ids) != callers {
		t.Errorf("Expected %d distinct product ids, got %d", callers, len(ids))
	}
}

func TestCreateProduct_DuplicateSKUConsumesNothing(t *testing.T) {
	alloc := NewAllocator(testDB)

	first := models.Product{SKU: "dup-sku", PartyID: "PYT801", Name: "Original"}
	if err := alloc.CreateProduct(&first); err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	before, err := alloc.Peek(CounterProductID)
	if err != nil {
		t.Fatalf("Failed to peek counter: %v", err)
	}

	second := models.Product{SKU: "dup-sku", PartyID: "PYT801", Name: "Impostor"}
	if err := alloc.CreateProduct(&second); err != ErrDuplicateSKU {
		t.Fatalf("Expected ErrDuplicateSKU, got %v", err)
	}

	after, err := alloc.Peek(CounterProductID)
	if err != nil {
		t.Fatalf("Failed to peek counter: %v", err)
	}
	if after != before {
		t.Errorf("Rejected duplicate consumed a counter value: %d -> %d", before, after)
	}
}

const resyncEnvelope = `<ENVELOPE><BODY><DATA><COLLECTION>
<STOCKITEM NAME="Widget"><PARENT>Hardware</PARENT><OPENINGBALANCE>10 Nos</OPENINGBALANCE><STANDARDCOST>150.00</STANDARDCOST></STOCKITEM>
<STOCKITEM NAME="Gadget"><OPENINGBALANCE>4 Nos</OPENINGBALANCE></STOCKITEM>
<STOCKITEM NAME="Widget"><PARENT>Hardware</PARENT><OPENINGBALANCE>12 Nos</OPENINGBALANCE><STANDARDCOST>150.00</STANDARDCOST></STOCKITEM>
</COLLECTION></DATA></BODY></ENVELOPE>`

func TestSyncTallyXML_IdempotentResync(t *testing.T) {
	if err := testDB.Create(&models.User{
		UserID: "r901", Email: "r901@example.com", Password: "x", Role: models.RoleRetailer,
	}).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if err := testDB.Create(&models.Party{PartyID: "PYT901", UserID: "r901"}).Error; err != nil {
		t.Fatalf("Failed to create party: %v", err)
	}

	rec := NewReconciler(testDB, NewAllocator(testDB))

	first, err := rec.SyncTallyXML("r901", resyncEnvelope)
	if err != nil {
		t.Fatalf("First sync failed: %v", err)
	}
	// Three mapped items, two of which share a sku
	if first.Processed != 3 {
		t.Errorf("Expected 3 processed items, got %d", first.Processed)
	}
	if first.NewCount != 2 {
		t.Errorf("Expected 2 new products, got %d", first.NewCount)
	}

	var products []models.Product
	if err := testDB.Where("party_id = ?", "PYT901").Order("sku").Find(&products).Error; err != nil {
		t.Fatalf("Failed to list products: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("Expected 2 product rows after duplicate collapse, got %d", len(products))
	}
	idsBefore := map[string]string{}
	for _, p := range products {
		idsBefore[p.SKU] = p.ProductID
	}
	// Last occurrence of the duplicated sku wins
	var widget models.Product
	if err := testDB.Where("party_id = ? AND sku = ?", "PYT901", "Widget").First(&widget).Error; err != nil {
		t.Fatalf("Failed to load widget: %v", err)
	}
	if widget.OpeningBalance != 12 {
		t.Errorf("Expected last duplicate occurrence to win (balance 12), got %v", widget.OpeningBalance)
	}

	second, err := rec.SyncTallyXML("r901", resyncEnvelope)
	if err != nil {
		t.Fatalf("Second sync failed: %v", err)
	}
	if second.NewCount != 0 {
		t.Errorf("Resync of identical payload should create nothing new, got %d", second.NewCount)
	}
	if second.Processed != 3 {
		t.Errorf("Expected 3 processed items on resync, got %d", second.Processed)
	}

	if err := testDB.Where("party_id = ?", "PYT901").Order("sku").Find(&products).Error; err != nil {
		t.Fatalf("Failed to list products after resync: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("Expected product count unchanged after resync, got %d", len(products))
	}
	for _, p := range products {
		if idsBefore[p.SKU] != p.ProductID {
			t.Errorf("Product id for %s changed across resync: %s -> %s", p.SKU, idsBefore[p.SKU], p.ProductID)
		}
	}
}
