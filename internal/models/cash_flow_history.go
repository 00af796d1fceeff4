package models

import (
	"time"

	"treasury/internal/uuid"

	"gorm.io/gorm"
)

// HistoryAction names a workflow event recorded on a cash flow.
type HistoryAction string

const (
	HistoryActionCreated    HistoryAction = "created"
	HistoryActionUpdated    HistoryAction = "updated"
	HistoryActionSubmitted  HistoryAction = "submitted"
	HistoryActionApproved   HistoryAction = "approved"
	HistoryActionRejected   HistoryAction = "rejected"
	HistoryActionReconciled HistoryAction = "reconciled"
	HistoryActionReversed   HistoryAction = "reversed"
)

// CashFlowHistory is an append-only audit row.
// Rows are never updated or deleted: no Base embed, no soft deletes.
type CashFlowHistory struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	CashFlowID string         `gorm:"type:uuid;not null;index" json:"cash_flow_id"`
	Action     HistoryAction  `gorm:"not null" json:"action"`
	OldStatus  CashFlowStatus `json:"old_status,omitempty"`
	NewStatus  CashFlowStatus `json:"new_status,omitempty"`
	Comment    string         `gorm:"size:500" json:"comment,omitempty"`
	Actor      Principal      `gorm:"type:varchar(64);not null" json:"actor"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

// TableName keeps the history table name singular-free and explicit.
func (CashFlowHistory) TableName() string { return "cash_flow_histories" }

// BeforeCreate hook generates a UUIDv7 for new records
func (h *CashFlowHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New()
	}
	return nil
}
