package models

import "time"

// Customer is an invoice recipient belonging to a Party's book
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PartyID   string    `gorm:"column:party_id;index;not null" json:"party_id"`
	Name      string    `gorm:"not null" json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	GSTIN     string    `gorm:"column:gstin" json:"gstin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Customer model
func (Customer) TableName() string {
	return "customers"
}
