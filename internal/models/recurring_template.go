package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the base period of a recurring template.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// RecurringCashFlowTemplate materializes a cash flow on every occurrence
// (rent, salaries, subscriptions).
type RecurringCashFlowTemplate struct {
	Base
	BoutiqueID  string          `gorm:"type:uuid;not null;index" json:"boutique_id"`
	Label       string          `gorm:"not null" json:"label"`
	Description string          `json:"description"`
	Type        CashFlowType    `gorm:"not null" json:"type"`
	CategoryID  string          `gorm:"type:uuid;not null" json:"category_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	AccountID   string          `gorm:"type:uuid;not null" json:"account_id"`

	PaymentMethod string `json:"payment_method,omitempty"`

	Frequency  Frequency `gorm:"not null" json:"frequency"`
	Interval   int       `gorm:"not null;default:1" json:"interval"`
	DayOfMonth *int      `json:"day_of_month,omitempty"`
	DayOfWeek  *int      `json:"day_of_week,omitempty"`

	StartDate       time.Time  `gorm:"not null" json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	NextOccurrence  time.Time  `gorm:"not null;index" json:"next_occurrence"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
	GeneratedCount  int        `gorm:"not null;default:0" json:"generated_count"`

	AutoValidate bool      `gorm:"not null;default:false" json:"auto_validate"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	CreatedBy    Principal `gorm:"type:varchar(64);not null" json:"created_by"`
}

// TableName uses the domain name rather than gorm's pluralization.
func (RecurringCashFlowTemplate) TableName() string { return "recurring_cash_flow_templates" }
