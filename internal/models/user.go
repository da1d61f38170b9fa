package models

import (
	"time"

	"gorm.io/gorm"
)

// Role values in the superadmin -> admin -> retailer hierarchy
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleRetailer   = "retailer"
)

// User represents an account in the system
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type User struct {
	ID           string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID       string     `gorm:"column:userid;unique;not null" json:"userid"`
	Email        string     `gorm:"unique;not null" json:"email"`
	Password     string     `gorm:"not null" json:"-"`
	Name         string     `json:"name,omitempty"`
	Role         string     `gorm:"default:'retailer'" json:"role"`
	AdminID      string     `gorm:"column:adminid" json:"adminid,omitempty"`
	Status       string     `gorm:"default:'active'" json:"status"`
	Subscription int        `gorm:"default:0" json:"subscription"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// Party is the tenant scope that owns a catalog. Every catalog-owning
// user has exactly one Party; all Product/Inventory rows carry its id.
type Party struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PartyID   string    `gorm:"column:party_id;unique;not null" json:"partyId"`
	UserID    string    `gorm:"column:userid;index;not null" json:"userid"`
	PartyType string    `gorm:"default:'admin'" json:"partyType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Party model
func (Party) TableName() string {
	return "parties"
}
