package agent

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aqib-kha9/backendgo/internal/catalog"
	"github.com/aqib-kha9/backendgo/internal/database"
	"github.com/aqib-kha9/backendgo/internal/models"
	"github.com/aqib-kha9/backendgo/internal/security"
	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testPGPort     = 5642
	testHMACSecret = "agent-test-hmac"
)

var (
	testDB       *database.DB
	testRegistry *Registry
)

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	dir, err := os.MkdirTemp("", "agent-pg")
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
		Database("agent_test").
		Logger(io.Discard))
	if err := pg.Start(); err != nil {
		log.Printf("Failed to start embedded postgres: %v", err)
		return 1
	}
	defer pg.Stop()

	dsn := fmt.Sprintf(
		"host=localhost port=%d user=postgres password=postgres dbname=agent_test sslmode=disable",
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
		&models.Agent{}, &models.AgentTask{}, &models.TallyData{},
	)
	if err != nil {
		log.Printf("Failed to migrate test schema: %v", err)
		return 1
	}

	alloc := catalog.NewAllocator(testDB)
	testRegistry = NewRegistry(testDB, catalog.NewReconciler(testDB, alloc), testHMACSecret)

	return m.Run()
}

// registerTestAgent provisions a tenant scope and an agent bound to it
func registerTestAgent(t *testing.T, token, userID string) string {
	t.Helper()
	if err := testDB.Create(&models.User{
		UserID: userID, Email: userID + "@example.com", Password: "x", Role: models.RoleRetailer,
	}).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if err := testDB.Create(&models.Party{PartyID: "PYT-" + userID, UserID: userID}).Error; err != nil {
		t.Fatalf("Failed to create party: %v", err)
	}

	out, err := testRegistry.RegisterAgent(RegisterInput{
		BackendURL: "http://localhost:3001",
		AuthToken:  token,
		TallyPort:  9000,
		UserID:     userID,
	})
	if err != nil {
		t.Fatalf("Failed to register agent: %v", err)
	}
	return out.AgentID
}

func TestRegisterAgent_IdempotentOnToken(t *testing.T) {
	agentID := registerTestAgent(t, "token-idem", "r910")

	again, err := testRegistry.RegisterAgent(RegisterInput{
		BackendURL: "http://localhost:3001",
		AuthToken:  "token-idem",
		TallyPort:  9000,
		UserID:     "r910",
	})
	if err != nil {
		t.Fatalf("Re-registration failed: %v", err)
	}
	if again.AgentID != agentID {
		t.Errorf("Re-registering the same token should return agent %s, got %s", agentID, again.AgentID)
	}
}

func TestPollTasks_ClaimIsExclusive(t *testing.T) {
	registerTestAgent(t, "token-claim", "r911")

	created, err := testRegistry.CreateFetchTask("token-claim", "Acme Traders", 9000)
	if err != nil {
		t.Fatalf("Failed to create fetch task: %v", err)
	}

	const pollers = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed []*SignedCommand
	)
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := testRegistry.PollTasks("token-claim")
			if err != nil {
				t.Errorf("Poll failed: %v", err)
				return
			}
			if out.Task != nil {
				mu.Lock()
				claimed = append(claimed, out.Task)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(claimed) != 1 {
		t.Fatalf("Expected exactly one poller to claim the task, got %d", len(claimed))
	}
	if claimed[0].RequestID != created.RequestID {
		t.Errorf("Claimed wrong task: %s, want %s", claimed[0].RequestID, created.RequestID)
	}

	// The claimed command must verify against the shared secret
	if !security.VerifySignature(claimed[0].Command, claimed[0].Signature, testHMACSecret) {
		t.Error("Claimed command should carry a valid signature")
	}

	// Nothing left to claim
	again, err := testRegistry.PollTasks("token-claim")
	if err != nil {
		t.Fatalf("Follow-up poll failed: %v", err)
	}
	if again.Task != nil {
		t.Errorf("Expected no task on follow-up poll, got %s", again.Task.RequestID)
	}
}

func signedReport(t *testing.T, requestID, companyName, xml string) TallyReport {
	t.Helper()
	report := TallyReport{
		RequestID:   requestID,
		CompanyName: companyName,
		Data:        ReportData{XML: xml},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	sig, err := security.SignPayload(report.Claims(), testHMACSecret)
	if err != nil {
		t.Fatalf("Failed to sign report: %v", err)
	}
	report.Signature = sig
	return report
}

const reportEnvelope = `<ENVELOPE><BODY><DATA><COLLECTION>
<STOCKITEM NAME="Widget"><PARENT>Hardware</PARENT><OPENINGBALANCE>10 Nos</OPENINGBALANCE><STANDARDCOST>150.00</STANDARDCOST></STOCKITEM>
</COLLECTION></DATA></BODY></ENVELOPE>`

func TestReceiveResult_DoubleReportRejected(t *testing.T) {
	registerTestAgent(t, "token-report", "r912")

	created, err := testRegistry.CreateFetchTask("token-report", "Acme Traders", 9000)
	if err != nil {
		t.Fatalf("Failed to create fetch task: %v", err)
	}
	if _, err := testRegistry.PollTasks("token-report"); err != nil {
		t.Fatalf("Failed to claim task: %v", err)
	}

	report := signedReport(t, created.RequestID, "Acme Traders", reportEnvelope)
	out, err := testRegistry.ReceiveResult("token-report", report)
	if err != nil {
		t.Fatalf("First report failed: %v", err)
	}
	if !out.Success {
		t.Error("First report should succeed")
	}

	var task models.AgentTask
	if err := testDB.Where("request_id = ?", created.RequestID).First(&task).Error; err != nil {
		t.Fatalf("Failed to load task: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("Expected COMPLETED task, got %s", task.Status)
	}

	// The raw payload is kept exactly once
	var auditCount int64
	testDB.Model(&models.TallyData{}).Where("request_id = ?", created.RequestID).Count(&auditCount)
	if auditCount != 1 {
		t.Errorf("Expected one audit row, got %d", auditCount)
	}

	// Replaying the identical report must be rejected: the task is no
	// longer IN_PROGRESS
	_, err = testRegistry.ReceiveResult("token-report", report)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected a request error on replay, got %v", err)
	}

	testDB.Model(&models.TallyData{}).Where("request_id = ?", created.RequestID).Count(&auditCount)
	if auditCount != 1 {
		t.Errorf("Replay should not add audit rows, got %d", auditCount)
	}
}

func TestReceiveResult_RejectsBadSignature(t *testing.T) {
	registerTestAgent(t, "token-badsig", "r913")

	created, err := testRegistry.CreateFetchTask("token-badsig", "Acme Traders", 9000)
	if err != nil {
		t.Fatalf("Failed to create fetch task: %v", err)
	}
	if _, err := testRegistry.PollTasks("token-badsig"); err != nil {
		t.Fatalf("Failed to claim task: %v", err)
	}

	report := signedReport(t, created.RequestID, "Acme Traders", reportEnvelope)
	report.Data.XML = `<ENVELOPE><BODY><DATA><COLLECTION><STOCKITEM NAME="Injected"/></COLLECTION></DATA></BODY></ENVELOPE>`

	if _, err := testRegistry.ReceiveResult("token-badsig", report); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Expected ErrInvalidSignature for report with swapped XML, got %v", err)
	}

	// A rejected report must not finalize the task
	var task models.AgentTask
	if err := testDB.Where("request_id = ?", created.RequestID).First(&task).Error; err != nil {
		t.Fatalf("Failed to load task: %v", err)
	}
	if task.Status != models.TaskStatusInProgress {
		t.Errorf("Rejected report should leave the task IN_PROGRESS, got %s", task.Status)
	}
}
