package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product is a catalog entry scoped to one Party. product_id is issued by
// the counter-backed allocator ("PRD1007"); sku is unique within a party
// and drives the upsert targeting during Tally sync.
type Product struct {
	ID               uint    `gorm:"primaryKey" json:"-"`
	ProductID        string  `gorm:"column:product_id;unique;not null" json:"product_id"`
	SKU              string  `gorm:"column:sku;not null;uniqueIndex:idx_sku_party" json:"sku"`
	PartyID          string  `gorm:"column:party_id;not null;uniqueIndex:idx_sku_party;index" json:"party_id"`
	Name             string  `json:"name"`
	BaseUnit         string  `json:"base_unit,omitempty"`
	Price            float64 `json:"price"`
	OpeningBalance   float64 `json:"opening_balance"`
	OpeningValue     float64 `json:"opening_value"`
	Category         string  `json:"category"`
	Subcategory      string  `json:"subcategory,omitempty"`
	Brand            string  `json:"brand"`
	HSN              string  `gorm:"column:hsn" json:"hsn,omitempty"`
	GST              string  `gorm:"column:gst" json:"gst,omitempty"`
	ShortDescription string  `json:"short_description,omitempty"`
	LongDescription  string  `json:"long_description,omitempty"`
	Attributes       JSONB   `gorm:"type:jsonb;default:'{}'" json:"attributes"`

	// Raw stock-item payload from the last sync, kept for diagnostics
	RawData datatypes.JSON `gorm:"type:jsonb" json:"raw_data,omitempty"`

	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Product model
func (Product) TableName() string {
	return "products"
}

// Inventory holds one row per (product_id, party_id). It is overwritten
// wholesale on every sync pass; there is no historical versioning.
type Inventory struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	ProductID string     `gorm:"column:product_id;not null;uniqueIndex:idx_inv_product_party" json:"product_id"`
	PartyID   string     `gorm:"column:party_id;not null;uniqueIndex:idx_inv_product_party" json:"party_id"`
	Quantity  float64    `gorm:"default:0" json:"quantity"`
	BatchNo   string     `gorm:"default:'default'" json:"batch_no"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Inventory model
func (Inventory) TableName() string {
	return "inventories"
}

// Offer is a promotional discount attached to a product
type Offer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   string    `gorm:"column:product_id;index;not null" json:"product_id"`
	PartyID     string    `gorm:"column:party_id;index;not null" json:"party_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Discount    float64   `json:"discount"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	Active      bool      `gorm:"default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Offer model
func (Offer) TableName() string {
	return "offers"
}
