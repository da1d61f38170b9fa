package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus defines the lifecycle state of a dispatched agent task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// Task actions dispatched to agents
const (
	ActionFetchTally = "FETCH_TALLY"
)

// Agent represents a registered remote worker process bridging an
// on-premises Tally instance and this backend. Identity is resolved
// solely by matching the SHA-256 hash of the presented bearer secret;
// the secret itself is never persisted.
type Agent struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	AgentID   string    `gorm:"column:agent_id;unique;not null" json:"agentId"`
	Name      string    `json:"name,omitempty"`
	TokenHash string    `gorm:"column:token_hash;unique;not null" json:"-"`
	Port      int       `json:"port"`
	UserID    string    `gorm:"column:userid;index;not null" json:"userid"`
	LastSeen  time.Time `json:"lastSeen"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Agent model
func (Agent) TableName() string {
	return "agents"
}

// AgentTask is one unit of work dispatched to an Agent. Status moves
// PENDING -> IN_PROGRESS exactly once (claim on poll), then to a terminal
// COMPLETED or FAILED exactly once (report by requestId). Terminal states
// never transition again; a retry means creating a new task.
type AgentTask struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	RequestID   string     `gorm:"column:request_id;unique;not null" json:"requestId"`
	AgentID     string     `gorm:"column:agent_id;index;not null" json:"agentId"`
	Action      string     `gorm:"not null" json:"action"`
	CompanyName string     `json:"companyName"`
	TallyPort   int        `json:"tallyPort"`
	Status      TaskStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for AgentTask model
func (AgentTask) TableName() string {
	return "agent_tasks"
}

// TallyData is the immutable audit copy of every raw payload an agent
// ever reported, keyed by requestId. Write-once, never mutated.
type TallyData struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	RequestID   string    `gorm:"column:request_id;unique;not null" json:"requestId"`
	AgentID     string    `gorm:"column:agent_id;index" json:"agentId"`
	CompanyName string    `json:"companyName"`
	XML         string    `gorm:"column:xml;type:text" json:"xml"`
	Timestamp   string    `json:"timestamp,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name for TallyData model
func (TallyData) TableName() string {
	return "tally_data"
}
