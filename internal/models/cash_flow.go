package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowType represents the direction of a cash movement
type CashFlowType string

const (
	CashFlowTypeIncome   CashFlowType = "income"
	CashFlowTypeExpense  CashFlowType = "expense"
	CashFlowTypeTransfer CashFlowType = "transfer"
)

// Inverse returns the type that cancels t. Transfers have no inverse.
func (t CashFlowType) Inverse() (CashFlowType, bool) {
	switch t {
	case CashFlowTypeIncome:
		return CashFlowTypeExpense, true
	case CashFlowTypeExpense:
		return CashFlowTypeIncome, true
	default:
		return "", false
	}
}

// MatchesCategory reports whether a category of type c may classify t.
func (t CashFlowType) MatchesCategory(c CategoryType) bool {
	return (t == CashFlowTypeIncome && c == CategoryTypeIncome) ||
		(t == CashFlowTypeExpense && c == CategoryTypeExpense)
}

// CashFlowStatus is the workflow state of a cash flow.
type CashFlowStatus string

const (
	CashFlowStatusDraft    CashFlowStatus = "draft"
	CashFlowStatusPending  CashFlowStatus = "pending"
	CashFlowStatusApproved CashFlowStatus = "approved"
	CashFlowStatusRejected CashFlowStatus = "rejected"
)

// SourceType names the business document a cash flow originates from.
type SourceType string

const (
	SourceTypeManual   SourceType = "manual"
	SourceTypeSale     SourceType = "sale"
	SourceTypePurchase SourceType = "purchase"
	SourceTypeReversal SourceType = "reversal"
)

// CashFlow is a single recorded cash movement and its approval trail.
type CashFlow struct {
	Base
	BoutiqueID           string          `gorm:"type:uuid;not null;index" json:"boutique_id"`
	Type                 CashFlowType    `gorm:"not null;index" json:"type"`
	Status               CashFlowStatus  `gorm:"not null;index" json:"status"`
	CategoryID           *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Label                string          `gorm:"not null" json:"label"`
	Description          string          `json:"description"`
	Amount               decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	TaxRate              decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount            decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	AccountID            string          `gorm:"type:uuid;not null;index" json:"account_id"`
	DestinationAccountID *string         `gorm:"type:uuid" json:"destination_account_id,omitempty"`
	Date                 time.Time       `gorm:"not null;index" json:"date"`
	PaymentMethod        string          `json:"payment_method,omitempty"`
	Reference            string          `json:"reference,omitempty"`
	SourceType           SourceType      `gorm:"not null;default:'manual'" json:"source_type"`
	SourceID             *string         `gorm:"index" json:"source_id,omitempty"`

	CreatedBy       Principal  `gorm:"type:varchar(64);not null" json:"created_by"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	SubmittedBy     Principal  `gorm:"type:varchar(64)" json:"submitted_by"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`
	ValidatedBy     Principal  `gorm:"type:varchar(64)" json:"validated_by"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      Principal  `gorm:"type:varchar(64)" json:"rejected_by"`
	RejectionReason string     `gorm:"size:500" json:"rejection_reason,omitempty"`

	IsReconciled           bool       `gorm:"not null;default:false;index" json:"is_reconciled"`
	ReconciledAt           *time.Time `json:"reconciled_at,omitempty"`
	ReconciledBy           Principal  `gorm:"type:varchar(64)" json:"reconciled_by"`
	BankStatementReference string     `json:"bank_statement_reference,omitempty"`

	IsRecurring         bool    `gorm:"not null;default:false" json:"is_recurring"`
	RecurringTemplateID *string `gorm:"type:uuid;index" json:"recurring_template_id,omitempty"`

	IsReversed         bool       `gorm:"not null;default:false" json:"is_reversed"`
	ReversedAt         *time.Time `json:"reversed_at,omitempty"`
	IsReversal         bool       `gorm:"not null;default:false" json:"is_reversal"`
	OriginalCashFlowID *string    `gorm:"type:uuid;index" json:"original_cash_flow_id,omitempty"`
	ReversalReason     string     `gorm:"size:500" json:"reversal_reason,omitempty"`

	IsSystemGenerated bool `gorm:"not null;default:false" json:"is_system_generated"`
	AutoApproved      bool `gorm:"not null;default:false" json:"auto_approved"`
}

// SignedEffect returns the balance delta this flow applies to accountID
// once approved. Transfers debit the source and credit the destination.
func (f *CashFlow) SignedEffect(accountID string) decimal.Decimal {
	switch f.Type {
	case CashFlowTypeIncome:
		if f.AccountID == accountID {
			return f.Amount
		}
	case CashFlowTypeExpense:
		if f.AccountID == accountID {
			return f.Amount.Neg()
		}
	case CashFlowTypeTransfer:
		effect := decimal.Zero
		if f.AccountID == accountID {
			effect = effect.Sub(f.Amount)
		}
		if f.DestinationAccountID != nil && *f.DestinationAccountID == accountID {
			effect = effect.Add(f.Amount)
		}
		return effect
	}
	return decimal.Zero
}
