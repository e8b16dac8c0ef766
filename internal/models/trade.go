package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade represents one closed position from an imported activity report.
// NetProfit, Balance and Lots keep their invalid state when the source cell
// could not be parsed; the row itself is still imported.
type Trade struct {
	gorm.Model
	ReportID   string              `gorm:"index;not null" json:"report_id"`
	Symbol     string              `json:"symbol"`
	Direction  string              `json:"direction"` // "buy" or "sell"
	CloseTime  time.Time           `gorm:"index" json:"close_time"`
	NetProfit  decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"net_profit"`
	Balance    decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"balance"`
	Lots       sql.NullFloat64     `json:"lots"`
	Profitable bool                `json:"profitable"`
}
