package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget caps the spending of one expense category over a period.
type Budget struct {
	Base
	BoutiqueID        string          `gorm:"type:uuid;not null;index" json:"boutique_id"`
	CategoryID        string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Name              string          `gorm:"not null" json:"name"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	SpentAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"spent_amount"`
	AlertThresholdPct int             `gorm:"not null;default:80" json:"alert_threshold_pct"`
	StartDate         time.Time       `gorm:"not null" json:"start_date"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	IsActive          bool            `gorm:"default:true" json:"is_active"`
}
