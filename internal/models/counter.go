package models

import "time"

// Counter is a durable monotonic sequence, one row per logical name
// (e.g. "productid", "partyid"). seq is the next unissued value; all
// mutation goes through atomic SQL in catalog.Allocator, never a
// read-modify-write from Go.
type Counter struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	Seq       int64     `gorm:"not null" json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Counter model
func (Counter) TableName() string {
	return "counters"
}
