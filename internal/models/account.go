package models

import "github.com/shopspring/decimal"

// AccountType represents the type of treasury account
type AccountType string

const (
	AccountTypeBank        AccountType = "bank"
	AccountTypeCash        AccountType = "cash"
	AccountTypeMobileMoney AccountType = "mobile_money"
)

// Account is a boutique's bank, till or mobile-money account. Its
// CurrentBalance is only ever changed by the ledger.
type Account struct {
	Base
	BoutiqueID     string              `gorm:"type:uuid;not null;index" json:"boutique_id"`
	Name           string              `gorm:"not null" json:"name"`
	Type           AccountType         `gorm:"not null" json:"type"`
	Currency       string              `gorm:"not null;default:'XOF'" json:"currency"`
	InitialBalance decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"initial_balance"`
	CurrentBalance decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"current_balance"`
	OverdraftLimit decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"overdraft_limit"`
	AlertThreshold decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"alert_threshold"`
	IsActive       bool                `gorm:"default:true" json:"is_active"`
	IsDefault      bool                `gorm:"not null;default:false" json:"is_default"`
	UpdatedBy      Principal           `gorm:"type:varchar(64)" json:"updated_by"`

	// Version is bumped on every balance change and guards concurrent writers.
	Version int64 `gorm:"not null;default:0" json:"-"`
}
