package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
)

// historyEntry is one workflow event to append to a cash flow's history.
type historyEntry struct {
	action    models.HistoryAction
	oldStatus models.CashFlowStatus
	newStatus models.CashFlowStatus
	comment   string
	actor     models.Principal
}

// appendHistory writes the entry in the caller's transaction. Unlike a
// best-effort audit log, a failure here aborts the whole operation.
func appendHistory(tx *gorm.DB, cashFlowID string, e historyEntry, at time.Time) error {
	row := &models.CashFlowHistory{
		CashFlowID: cashFlowID,
		Action:     e.action,
		OldStatus:  e.oldStatus,
		NewStatus:  e.newStatus,
		Comment:    truncate(e.comment, maxCommentLength),
		Actor:      e.actor,
		CreatedAt:  at,
	}
	if err := tx.Create(row).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// listHistory returns a cash flow's history, oldest first.
func listHistory(db *gorm.DB, cashFlowID string) ([]models.CashFlowHistory, error) {
	var rows []models.CashFlowHistory
	if err := db.Where("cash_flow_id = ?", cashFlowID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
