package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aqib-kha9/backendgo/internal/catalog"
	"github.com/aqib-kha9/backendgo/internal/database"
	"github.com/aqib-kha9/backendgo/internal/models"
	"github.com/aqib-kha9/backendgo/internal/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tally listens on a port in this range; anything else is a config mistake
const (
	TallyPortMin = 9000
	TallyPortMax = 10000
)

// Registry drives the task state machine for remote agents: register,
// create fetch tasks, claim on poll, finalize on report. Concurrency
// safety comes from conditional single-statement updates, not locks.
type Registry struct {
	db         *database.DB
	reconciler *catalog.Reconciler
	hmacSecret string
}

// NewRegistry creates an agent task registry
func NewRegistry(db *database.DB, reconciler *catalog.Reconciler, hmacSecret string) *Registry {
	return &Registry{db: db, reconciler: reconciler, hmacSecret: hmacSecret}
}

// HashToken derives the stored identity of a bearer secret. The secret
// itself is never persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validTallyPort(port int) bool {
	return port >= TallyPortMin && port <= TallyPortMax
}

// resolveAgent authenticates a raw bearer secret by hash match
func (r *Registry) resolveAgent(token string) (*models.Agent, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	var agent models.Agent
	err := r.db.Where("token_hash = ?", HashToken(token)).First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &agent, nil
}

// RegisterInput is the registration payload from a new agent process
type RegisterInput struct {
	BackendURL string `json:"backendUrl"`
	AuthToken  string `json:"authToken"`
	TallyPort  int    `json:"tallyPort"`
	Name       string `json:"name,omitempty"`
	UserID     string `json:"userid"`
}

// RegisterOutput echoes the resolved identity back to the agent
type RegisterOutput struct {
	AgentID    string `json:"agentId"`
	BackendURL string `json:"backendUrl"`
}

// RegisterAgent registers a remote agent, idempotently on the hash of its
// bearer secret: re-registering a known token returns the existing agentId.
func (r *Registry) RegisterAgent(in RegisterInput) (*RegisterOutput, error) {
	if in.BackendURL == "" || in.AuthToken == "" {
		return nil, badRequest("backendUrl and authToken are required")
	}
	if !validTallyPort(in.TallyPort) {
		return nil, badRequest("Invalid Tally port range")
	}

	tokenHash := HashToken(in.AuthToken)

	var existing models.Agent
	err := r.db.Where("token_hash = ?", tokenHash).First(&existing).Error
	if err == nil {
		return &RegisterOutput{AgentID: existing.AgentID, BackendURL: in.BackendURL}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	agent := models.Agent{
		AgentID:   uuid.NewString(),
		Name:      in.Name,
		TokenHash: tokenHash,
		Port:      in.TallyPort,
		UserID:    in.UserID,
		LastSeen:  time.Now(),
	}
	if err := r.db.Create(&agent).Error; err != nil {
		return nil, fmt.Errorf("failed to register agent: %w", err)
	}

	log.Printf("✅ Agent registered: %s (user %s)", agent.AgentID, agent.UserID)
	return &RegisterOutput{AgentID: agent.AgentID, BackendURL: in.BackendURL}, nil
}

// CreateTaskOutput is the response to a fetch-task creation
type CreateTaskOutput struct {
	Success   bool          `json:"success"`
	RequestID string        `json:"requestId"`
	Command   SignedCommand `json:"command"`
}

// CreateFetchTask persists a PENDING FETCH_TALLY task for the agent
// identified by the bearer secret and returns the signed command.
func (r *Registry) CreateFetchTask(token, companyName string, port int) (*CreateTaskOutput, error) {
	agent, err := r.resolveAgent(token)
	if err != nil {
		return nil, err
	}
	if !validTallyPort(port) {
		return nil, badRequest("Invalid port number")
	}

	task := models.AgentTask{
		RequestID:   uuid.NewString(),
		AgentID:     agent.AgentID,
		Action:      models.ActionFetchTally,
		CompanyName: companyName,
		TallyPort:   port,
		Status:      models.TaskStatusPending,
	}
	if err := r.db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	cmd := Command{
		RequestID: task.RequestID,
		Action:    task.Action,
		Payload:   TaskPayload{CompanyName: companyName, Port: port},
	}
	signature, err := security.SignPayload(cmd, r.hmacSecret)
	if err != nil {
		return nil, err
	}

	return &CreateTaskOutput{
		Success:   true,
		RequestID: task.RequestID,
		Command:   SignedCommand{Command: cmd, Signature: signature},
	}, nil
}

// PollOutput wraps the claimed task, or null when no work is pending
type PollOutput struct {
	Task *SignedCommand `json:"task"`
}

// PollTasks claims the oldest PENDING task for the calling agent and
// returns its signed command. The claim is one conditional update guarded
// by the task's own current state, so two concurrent pollers can never
// both claim the same task.
func (r *Registry) PollTasks(token string) (*PollOutput, error) {
	agent, err := r.resolveAgent(token)
	if err != nil {
		return nil, err
	}
	r.db.Model(&models.Agent{}).Where("agent_id = ?", agent.AgentID).
		UpdateColumn("last_seen", time.Now())

	var task models.AgentTask
	res := r.db.Raw(`
		UPDATE agent_tasks SET status = ?, updated_at = NOW()
		WHERE id = (
			SELECT id FROM agent_tasks
			WHERE agent_id = ? AND status = ?
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		) AND status = ?
		RETURNING *`,
		models.TaskStatusInProgress, agent.AgentID,
		models.TaskStatusPending, models.TaskStatusPending,
	).Scan(&task)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to claim task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &PollOutput{Task: nil}, nil
	}

	cmd := Command{
		RequestID: task.RequestID,
		Action:    task.Action,
		Payload:   TaskPayload{CompanyName: task.CompanyName, Port: task.TallyPort},
	}
	signature, err := security.SignPayload(cmd, r.hmacSecret)
	if err != nil {
		return nil, err
	}

	return &PollOutput{Task: &SignedCommand{Command: cmd, Signature: signature}}, nil
}

// ReceiveOutput is the protocol-shaped answer for sync-related calls
type ReceiveOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ReceiveResult finalizes an IN_PROGRESS task from an agent report. The
// raw payload is persisted as an audit copy before any terminal
// transition, whether the outcome is success or failure.
func (r *Registry) ReceiveResult(token string, report TallyReport) (*ReceiveOutput, error) {
	agent, err := r.resolveAgent(token)
	if err != nil {
		return nil, err
	}

	// Nothing in the report, including the XML, is trusted before the
	// signature checks out.
	if !security.VerifySignature(report.Claims(), report.Signature, r.hmacSecret) {
		return nil, ErrInvalidSignature
	}

	var task models.AgentTask
	err = r.db.Where("request_id = ?", report.RequestID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, badRequest("Invalid or inactive requestId")
		}
		return nil, err
	}
	if task.Status != models.TaskStatusInProgress {
		return nil, badRequest("Invalid or inactive requestId")
	}

	audit := models.TallyData{
		RequestID:   report.RequestID,
		AgentID:     agent.AgentID,
		CompanyName: report.CompanyName,
		XML:         report.Data.XML,
		Timestamp:   report.Timestamp,
	}
	err = r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_id"}},
		DoNothing: true,
	}).Create(&audit).Error
	if err != nil {
		return nil, fmt.Errorf("failed to persist raw payload: %w", err)
	}

	if report.Error != "" {
		if err := r.finalize(report.RequestID, models.TaskStatusFailed, "", report.Error); err != nil {
			return nil, err
		}
		log.Printf("⚠️ Agent reported error for task %s: %s", report.RequestID, report.Error)
		return &ReceiveOutput{Success: true, Message: "Error reported successfully"}, nil
	}

	if NormalizeCompanyName(task.CompanyName) != NormalizeCompanyName(report.CompanyName) {
		msg := fmt.Sprintf("Company name mismatch. Expected %q, got %q", task.CompanyName, report.CompanyName)
		if err := r.finalize(report.RequestID, models.TaskStatusFailed, "", msg); err != nil {
			return nil, err
		}
		return nil, badRequest("%s", msg)
	}

	summary, err := r.reconciler.SyncTallyXML(agent.UserID, report.Data.XML)
	if err != nil {
		msg := fmt.Sprintf("Sync failed: %v", err)
		if ferr := r.finalize(report.RequestID, models.TaskStatusFailed, "", msg); ferr != nil {
			return nil, ferr
		}
		log.Printf("❌ %s (task %s)", msg, report.RequestID)
		return nil, badRequest("%s", msg)
	}

	if err := r.finalize(report.RequestID, models.TaskStatusCompleted, summary.Message(), ""); err != nil {
		return nil, err
	}
	return &ReceiveOutput{Success: true, Message: summary.Message()}, nil
}

// finalize moves an IN_PROGRESS task to a terminal state exactly once.
// The state guard rejects duplicate and out-of-order reports.
func (r *Registry) finalize(requestID string, status models.TaskStatus, result, errMsg string) error {
	res := r.db.Model(&models.AgentTask{}).
		Where("request_id = ? AND status = ?", requestID, models.TaskStatusInProgress).
		Updates(map[string]interface{}{
			"status": status,
			"result": result,
			"error":  errMsg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return badRequest("Invalid or inactive requestId")
	}
	return nil
}

// AgentInfo resolves an agent by its bearer secret
func (r *Registry) AgentInfo(token string) (*models.Agent, error) {
	return r.resolveAgent(token)
}

// UserAgents lists the agents owned by a tenant, most recently seen first
func (r *Registry) UserAgents(userid string) ([]models.Agent, error) {
	var agents []models.Agent
	err := r.db.Where("userid = ?", userid).
		Order("last_seen DESC").
		Find(&agents).Error
	return agents, err
}
