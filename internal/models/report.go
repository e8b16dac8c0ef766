package models

import "time"

// Report groups the trades of a single imported activity export.
// The record set behind a report is immutable once the import commits.
type Report struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Source     string    `gorm:"not null" json:"source"` // upload filename, fetched URL or watched file
	ImportedAt time.Time `gorm:"index;not null" json:"imported_at"`
	TradeCount int       `gorm:"not null" json:"trade_count"`
	CreatedAt  time.Time `json:"-"`
}
