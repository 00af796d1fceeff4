package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "treasury/internal/errors"
	"treasury/internal/logger"
	"treasury/internal/models"
	"treasury/internal/recurrence"
)

const (
	maxReasonLength  = 500
	maxCommentLength = 500
	maxBatchSize     = 500
)

// cashFlowService runs the cash-flow workflow. Each command is one database
// transaction: checks, ledger mutations, status change and history commit
// together or not at all.
type cashFlowService struct {
	db         *gorm.DB
	ledger     LedgerServicer
	categories CategoryServicer
	budgets    BudgetTracker
	now        func() time.Time
}

// NewCashFlowService creates a new CashFlowServicer.
func NewCashFlowService(db *gorm.DB, ledger LedgerServicer, categories CategoryServicer, budgets BudgetTracker) CashFlowServicer {
	return &cashFlowService{
		db:         db,
		ledger:     ledger,
		categories: categories,
		budgets:    budgets,
		now:        time.Now,
	}
}

// CreateCashFlow records a new income or expense as a draft. A transfer is
// created through CreateTransfer and comes back already approved.
func (s *cashFlowService) CreateCashFlow(ctx context.Context, actor models.Actor, in CreateCashFlowInput) (*models.CashFlow, error) {
	if in.Type == models.CashFlowTypeTransfer {
		if in.DestinationAccountID == nil || *in.DestinationAccountID == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "destination account is required for transfers")
		}
		res, err := s.CreateTransfer(ctx, actor, TransferInput{
			SourceAccountID:      in.AccountID,
			DestinationAccountID: *in.DestinationAccountID,
			Amount:               in.Amount,
			Label:                in.Label,
			Description:          in.Description,
			Date:                 in.Date,
			Reference:            in.Reference,
		})
		if err != nil {
			return nil, err
		}
		return res.CashFlow, nil
	}

	if in.Type != models.CashFlowTypeIncome && in.Type != models.CashFlowTypeExpense {
		return nil, apperrors.ErrInvalidCashFlowType
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if in.CategoryID == nil || *in.CategoryID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if in.DestinationAccountID != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "destination account is only allowed for transfers")
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "label is required")
	}
	if err := validateTaxRate(in.TaxRate); err != nil {
		return nil, err
	}
	sourceType, err := normalizeSourceType(in.SourceType, models.SourceTypeManual)
	if err != nil {
		return nil, err
	}

	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	flow := &models.CashFlow{
		BoutiqueID:    actor.BoutiqueID,
		Type:          in.Type,
		Status:        models.CashFlowStatusDraft,
		CategoryID:    in.CategoryID,
		Label:         label,
		Description:   in.Description,
		Amount:        in.Amount,
		TaxRate:       in.TaxRate,
		TaxAmount:     taxAmount(in.Amount, in.TaxRate),
		AccountID:     in.AccountID,
		Date:          recurrence.Day(date),
		PaymentMethod: in.PaymentMethod,
		Reference:     in.Reference,
		SourceType:    sourceType,
		SourceID:      in.SourceID,
		CreatedBy:     actor.Principal,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ledger.RequireActiveAccount(tx, actor.BoutiqueID, in.AccountID); err != nil {
			return err
		}
		if _, err := s.categories.RequireMatchingCategory(tx, actor.BoutiqueID, *in.CategoryID, in.Type); err != nil {
			return err
		}
		if err := checkSourceReference(tx, actor.BoutiqueID, sourceType, in.SourceID, false); err != nil {
			return err
		}
		if err := tx.Create(flow).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return appendHistory(tx, flow.ID, historyEntry{
			action:    models.HistoryActionCreated,
			newStatus: models.CashFlowStatusDraft,
			actor:     actor.Principal,
		}, now)
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// UpdateCashFlow edits a draft. Only its creator may do so; type, creator
// and creation date never change.
func (s *cashFlowService) UpdateCashFlow(ctx context.Context, actor models.Actor, id string, in UpdateCashFlowInput) (*models.CashFlow, error) {
	var flow *models.CashFlow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		flow, err = loadCashFlow(tx, actor.BoutiqueID, id)
		if err != nil {
			return err
		}
		if err := requireEditableDraft(flow, actor); err != nil {
			return err
		}

		if in.Label != nil {
			label := strings.TrimSpace(*in.Label)
			if label == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "label cannot be empty")
			}
			flow.Label = label
		}
		if in.Description != nil {
			flow.Description = *in.Description
		}
		if in.Amount != nil {
			if !in.Amount.IsPositive() {
				return apperrors.ErrInvalidAmount
			}
			flow.Amount = *in.Amount
		}
		if in.TaxRate != nil {
			if err := validateTaxRate(*in.TaxRate); err != nil {
				return err
			}
			flow.TaxRate = *in.TaxRate
		}
		if in.AccountID != nil {
			if _, err := s.ledger.RequireActiveAccount(tx, actor.BoutiqueID, *in.AccountID); err != nil {
				return err
			}
			flow.AccountID = *in.AccountID
		}
		if in.CategoryID != nil {
			if _, err := s.categories.RequireMatchingCategory(tx, actor.BoutiqueID, *in.CategoryID, flow.Type); err != nil {
				return err
			}
			categoryID := *in.CategoryID
			flow.CategoryID = &categoryID
		}
		if in.Date != nil {
			flow.Date = recurrence.Day(*in.Date)
		}
		if in.PaymentMethod != nil {
			flow.PaymentMethod = *in.PaymentMethod
		}
		if in.Reference != nil {
			flow.Reference = *in.Reference
		}
		flow.TaxAmount = taxAmount(flow.Amount, flow.TaxRate)

		now := s.now()
		if err := transitionCashFlow(tx, flow.ID, flowIs(models.CashFlowStatusDraft), map[string]interface{}{
			"label":          flow.Label,
			"description":    flow.Description,
			"amount":         flow.Amount,
			"tax_rate":       flow.TaxRate,
			"tax_amount":     flow.TaxAmount,
			"account_id":     flow.AccountID,
			"category_id":    flow.CategoryID,
			"date":           flow.Date,
			"payment_method": flow.PaymentMethod,
			"reference":      flow.Reference,
			"updated_at":     now,
		}); err != nil {
			return err
		}
		if err := appendHistory(tx, flow.ID, historyEntry{
			action:    models.HistoryActionUpdated,
			oldStatus: models.CashFlowStatusDraft,
			newStatus: models.CashFlowStatusDraft,
			actor:     actor.Principal,
		}, now); err != nil {
			return err
		}

		flow, err = loadCashFlow(tx, actor.BoutiqueID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// DeleteCashFlow hard-deletes a draft. Only its creator may do so.
func (s *cashFlowService) DeleteCashFlow(ctx context.Context, actor models.Actor, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flow, err := loadCashFlow(tx, actor.BoutiqueID, id)
		if err != nil {
			return err
		}
		if err := requireEditableDraft(flow, actor); err != nil {
			return err
		}

		result := tx.Unscoped().
			Where("id = ? AND status = ?", flow.ID, models.CashFlowStatusDraft).
			Delete(&models.CashFlow{})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrConflict
		}
		return nil
	})
}

// SubmitCashFlow moves a draft to pending. For expenses it also reports,
// without blocking, whether the category budget crosses its alert threshold.
func (s *cashFlowService) SubmitCashFlow(ctx context.Context, actor models.Actor, id string) (*SubmitResult, error) {
	var result SubmitResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flow, err := loadCashFlow(tx, actor.BoutiqueID, id)
		if err != nil {
			return err
		}
		if flow.Status != models.CashFlowStatusDraft {
			return invalidTransition("submit", flow.Status)
		}

		now := s.now()
		if err := transitionCashFlow(tx, flow.ID, flowIs(models.CashFlowStatusDraft), map[string]interface{}{
			"status":       models.CashFlowStatusPending,
			"submitted_at": now,
			"submitted_by": actor.Principal,
			"updated_at":   now,
		}); err != nil {
			return err
		}
		if err := appendHistory(tx, flow.ID, historyEntry{
			action:    models.HistoryActionSubmitted,
			oldStatus: models.CashFlowStatusDraft,
			newStatus: models.CashFlowStatusPending,
			actor:     actor.Principal,
		}, now); err != nil {
			return err
		}

		if flow.Type == models.CashFlowTypeExpense && flow.CategoryID != nil {
			warning, err := s.budgets.CheckThreshold(tx, actor.BoutiqueID, *flow.CategoryID, flow.Amount)
			if err != nil {
				return err
			}
			result.BudgetWarning = warning
		}

		result.CashFlow, err = loadCashFlow(tx, actor.BoutiqueID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ApproveCashFlow moves a pending flow to approved and applies its effect
// to the account balance, exactly once.
func (s *cashFlowService) ApproveCashFlow(ctx context.Context, actor models.Actor, id string) (*ApproveResult, error) {
	if err := requireValidator(actor, "approve"); err != nil {
		return nil, err
	}

	var result ApproveResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flow, err := loadCashFlow(tx, actor.BoutiqueID, id)
		if err != nil {
			return err
		}
		if flow.Status != models.CashFlowStatusPending {
			return invalidTransition("approve", flow.Status)
		}

		now := s.now()
		if err := transitionCashFlow(tx, flow.ID, flowIs(models.CashFlowStatusPending), map[string]interface{}{
			"status":       models.CashFlowStatusApproved,
			"validated_at": now,
			"validated_by": actor.Principal,
			"updated_at":   now,
		}); err != nil {
			return err
		}
		if err := appendHistory(tx, flow.ID, historyEntry{
			action:    models.HistoryActionApproved,
			oldStatus: models.CashFlowStatusPending,
			newStatus: models.CashFlowStatusApproved,
			actor:     actor.Principal,
		}, now); err != nil {
			return err
		}

		balance, err := s.applyApprovedEffect(tx, flow, actor.Principal)
		if err != nil {
			return err
		}
		result.AccountBalance = balance

		result.CashFlow, err = loadCashFlow(tx, actor.BoutiqueID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RejectCashFlow moves a pending flow to rejected. It has no ledger effect.
func (s *cashFlowService) RejectCashFlow(ctx context.Context, actor models.Actor, id, reason string) (*models.CashFlow, error) {
	if err := requireValidator(actor, "reject"); err != nil {
		return nil, err
	}
	reason, err := requireReason(reason, "rejection reason")
	if err != nil {
		return nil, err
	}

	var flow *models.CashFlow
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		flow, err = loadCashFlow(tx, actor.BoutiqueID, id)
		if err != nil {
			return err
		}
		if flow.Status != models.CashFlowStatusPending {
			return invalidTransition("reject", flow.Status)
		}

		now := s.now()
		if err := transitionCashFlow(tx, flow.ID, flowIs(models.CashFlowStatusPending), map[string]interface{}{
			"status":           models.CashFlowStatusRejected,
			"rejected_at":      now,
			"rejected_by":      actor.Principal,
			"rejection_reason": reason,
			"updated_at":       now,
		}); err != nil {
			return err
		}
		if err := appendHistory(tx, flow.ID, historyEntry{
			action:    models.HistoryActionRejected,
			oldStatus: models.CashFlowStatusPending,
			newStatus: models.CashFlowStatusRejected,
			comment:   reason,
			actor:     actor.Principal,
		}, now); err != nil {
			return err
		}

		flow, err = loadCashFlow(tx, actor.BoutiqueID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// ReconcileCashFlow marks an approved flow as matched against a bank statement.
func (s *cashFlowService) ReconcileCashFlow(ctx context.Context, actor models.Actor, id, bankStatementRef string) (*models.CashFlow, error) {
	flows, err := s.ReconcileCashFlowsBatch(ctx, actor, []string{id}, bankStatementRef)
	if err != nil {
		return nil, err
	}
	return &flows[0], nil
}

// ReconcileCashFlowsBatch reconciles every id or none: all preconditions are
// checked before the first row changes.
func (s *cashFlowService) ReconcileCashFlowsBatch(ctx context.Context, actor models.Actor, ids []string, bankStatementRef string) ([]models.CashFlow, error) {
	if err := requireValidator(actor, "reconcile"); err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one cash flow id is required")
	}
	if len(ids) > maxBatchSize {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("at most %d cash flows can be reconciled at once", maxBatchSize))
	}
	bankStatementRef = strings.TrimSpace(bankStatementRef)

	var flows []models.CashFlow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		byID, err := loadCashFlows(tx, actor.BoutiqueID, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			flow, ok := byID[id]
			if !ok {
				return apperrors.WithMessage(apperrors.ErrCashFlowNotFound, "cash flow "+id+" not found")
			}
			if err := requireReconcilable(flow); err != nil {
				return err
			}
		}

		now := s.now()
		result := tx.Model(&models.CashFlow{}).
			Where("id IN ? AND status = ? AND is_reconciled = ?", ids, models.CashFlowStatusApproved, false).
			Updates(map[string]interface{}{
				"is_reconciled":            true,
				"reconciled_at":            now,
				"reconciled_by":            actor.Principal,
				"bank_statement_reference": bankStatementRef,
				"updated_at":               now,
			})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected != int64(len(ids)) {
			return apperrors.ErrConflict
		}

		for _, id := range ids {
			if err := appendHistory(tx, id, historyEntry{
				action:    models.HistoryActionReconciled,
				oldStatus: models.CashFlowStatusApproved,
				newStatus: models.CashFlowStatusApproved,
				comment:   bankStatementRef,
				actor:     actor.Principal,
			}, now); err != nil {
				return err
			}
		}

		reloaded, err := loadCashFlows(tx, actor.BoutiqueID, ids)
		if err != nil {
			return err
		}
		flows = make([]models.CashFlow, 0, len(ids))
		for _, id := range ids {
			flows = append(flows, *reloaded[id])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flows, nil
}

// ReverseCashFlow cancels an approved flow with a new, inverse, approved
// flow. The original is only marked reversed; it is never deleted.
func (s *cashFlowService) ReverseCashFlow(ctx context.Context, actor models.Actor, id string, in ReverseInput) (*ReverseResult, error) {
	if err := requireValidator(actor, "reverse"); err != nil {
		return nil, err
	}
	reason, err := requireReason(in.Reason, "reversal reason")
	if err != nil {
		return nil, err
	}
	sourceType, err := normalizeSourceType(in.SourceType, models.SourceTypeReversal)
	if err != nil {
		return nil, err
	}

	var result ReverseResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := loadCashFlow(tx, actor.BoutiqueID, id)
		if err != nil {
			return err
		}
		if original.Status != models.CashFlowStatusApproved {
			return invalidTransition("reverse", original.Status)
		}
		if original.IsReversed {
			return apperrors.ErrAlreadyReversed
		}
		if original.IsReversal {
			return apperrors.WithMessage(apperrors.ErrInvalidTransition, "a reversal cannot itself be reversed")
		}
		if err := checkSourceReference(tx, actor.BoutiqueID, sourceType, in.SourceID, true); err != nil {
			return err
		}

		now := s.now()
		reversal := buildReversal(original, actor.Principal, reason, sourceType, in.SourceID, now)
		if err := tx.Create(reversal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := appendHistory(tx, reversal.ID, historyEntry{
			action:    models.HistoryActionApproved,
			newStatus: models.CashFlowStatusApproved,
			comment:   reason,
			actor:     actor.Principal,
		}, now); err != nil {
			return err
		}

		if err := transitionCashFlow(tx, original.ID, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ? AND is_reversed = ?", models.CashFlowStatusApproved, false)
		}, map[string]interface{}{
			"is_reversed":     true,
			"reversed_at":     now,
			"reversal_reason": reason,
			"updated_at":      now,
		}); err != nil {
			return err
		}
		if err := appendHistory(tx, original.ID, historyEntry{
			action:    models.HistoryActionReversed,
			oldStatus: models.CashFlowStatusApproved,
			newStatus: models.CashFlowStatusApproved,
			comment:   reason,
			actor:     actor.Principal,
		}, now); err != nil {
			return err
		}

		for _, accountID := range touchedAccounts(reversal) {
			if _, err := s.ledger.ApplyDelta(tx, accountID, reversal.SignedEffect(accountID), actor.Principal); err != nil {
				return err
			}
		}
		if original.Type == models.CashFlowTypeExpense && original.CategoryID != nil {
			if err := s.budgets.AdjustSpent(tx, actor.BoutiqueID, *original.CategoryID, original.Amount.Neg()); err != nil {
				return err
			}
		}

		result.Reversal = reversal
		result.Original, err = loadCashFlow(tx, actor.BoutiqueID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("cash flow reversed",
		"cash_flow_id", id,
		"reversal_id", result.Reversal.ID,
		"by", actor.Principal.String(),
	)
	return &result, nil
}

// CreateTransfer moves money between two accounts of the boutique. The
// transfer is approved on creation and both balances change atomically.
func (s *cashFlowService) CreateTransfer(ctx context.Context, actor models.Actor, in TransferInput) (*TransferResult, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if in.SourceAccountID == "" || in.DestinationAccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "source and destination accounts are required")
	}
	if in.SourceAccountID == in.DestinationAccountID {
		return nil, apperrors.ErrSameAccountTransfer
	}

	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	label := strings.TrimSpace(in.Label)

	var result TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := s.ledger.RequireActiveAccount(tx, actor.BoutiqueID, in.SourceAccountID)
		if err != nil {
			return err
		}
		destination, err := s.ledger.RequireActiveAccount(tx, actor.BoutiqueID, in.DestinationAccountID)
		if err != nil {
			return err
		}
		if source.Currency != destination.Currency {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfers between accounts of different currencies are not supported")
		}
		if label == "" {
			label = fmt.Sprintf("Transfer from %s to %s", source.Name, destination.Name)
		}

		destinationID := destination.ID
		flow := &models.CashFlow{
			BoutiqueID:           actor.BoutiqueID,
			Type:                 models.CashFlowTypeTransfer,
			Status:               models.CashFlowStatusApproved,
			Label:                label,
			Description:          in.Description,
			Amount:               in.Amount,
			AccountID:            source.ID,
			DestinationAccountID: &destinationID,
			Date:                 recurrence.Day(date),
			Reference:            in.Reference,
			SourceType:           models.SourceTypeManual,
			CreatedBy:            actor.Principal,
			SubmittedAt:          &now,
			SubmittedBy:          actor.Principal,
			ValidatedAt:          &now,
			ValidatedBy:          actor.Principal,
			AutoApproved:         true,
		}
		if err := tx.Create(flow).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := appendHistory(tx, flow.ID, historyEntry{
			action:    models.HistoryActionCreated,
			newStatus: models.CashFlowStatusApproved,
			actor:     actor.Principal,
		}, now); err != nil {
			return err
		}

		if result.SourceBalance, err = s.ledger.ApplyDelta(tx, source.ID, in.Amount.Neg(), actor.Principal); err != nil {
			return err
		}
		if result.DestinationBalance, err = s.ledger.ApplyDelta(tx, destination.ID, in.Amount, actor.Principal); err != nil {
			return err
		}
		result.CashFlow = flow
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// applyApprovedEffect mutates the balance of every account the flow
// touches and tracks expense budgets. It returns the balance of the
// flow's own account.
func (s *cashFlowService) applyApprovedEffect(tx *gorm.DB, flow *models.CashFlow, by models.Principal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	for _, accountID := range touchedAccounts(flow) {
		b, err := s.ledger.ApplyDelta(tx, accountID, flow.SignedEffect(accountID), by)
		if err != nil {
			return decimal.Zero, err
		}
		if accountID == flow.AccountID {
			balance = b
		}
	}
	if flow.Type == models.CashFlowTypeExpense && flow.CategoryID != nil {
		if err := s.budgets.AdjustSpent(tx, flow.BoutiqueID, *flow.CategoryID, flow.Amount); err != nil {
			return decimal.Zero, err
		}
	}
	return balance, nil
}

// buildReversal returns the approved flow cancelling original. Income and
// expense swap type; a transfer swaps its accounts.
func buildReversal(original *models.CashFlow, by models.Principal, reason string, sourceType models.SourceType, sourceID *string, now time.Time) *models.CashFlow {
	originalID := original.ID
	reversal := &models.CashFlow{
		BoutiqueID:         original.BoutiqueID,
		Type:               original.Type,
		Status:             models.CashFlowStatusApproved,
		CategoryID:         original.CategoryID,
		Label:              "Reversal: " + original.Label,
		Description:        original.Description,
		Amount:             original.Amount,
		TaxRate:            original.TaxRate,
		TaxAmount:          original.TaxAmount,
		AccountID:          original.AccountID,
		Date:               recurrence.Day(now),
		PaymentMethod:      original.PaymentMethod,
		Reference:          original.Reference,
		SourceType:         sourceType,
		SourceID:           sourceID,
		CreatedBy:          by,
		SubmittedAt:        &now,
		SubmittedBy:        by,
		ValidatedAt:        &now,
		ValidatedBy:        by,
		IsReversal:         true,
		OriginalCashFlowID: &originalID,
		ReversalReason:     reason,
	}

	if inverse, ok := original.Type.Inverse(); ok {
		reversal.Type = inverse
	} else if original.DestinationAccountID != nil {
		source := original.AccountID
		reversal.AccountID = *original.DestinationAccountID
		reversal.DestinationAccountID = &source
	}
	return reversal
}

func touchedAccounts(flow *models.CashFlow) []string {
	ids := []string{flow.AccountID}
	if flow.DestinationAccountID != nil && *flow.DestinationAccountID != flow.AccountID {
		ids = append(ids, *flow.DestinationAccountID)
	}
	return ids
}

// transitionCashFlow applies updates only if the row still satisfies the
// precondition scope. A miss means someone else moved the flow first.
func transitionCashFlow(tx *gorm.DB, id string, precondition func(*gorm.DB) *gorm.DB, updates map[string]interface{}) error {
	result := tx.Model(&models.CashFlow{}).
		Where("id = ?", id).
		Scopes(precondition).
		Updates(updates)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func flowIs(status models.CashFlowStatus) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", status)
	}
}

func loadCashFlow(db *gorm.DB, boutiqueID, id string) (*models.CashFlow, error) {
	var flow models.CashFlow
	if err := db.Where("id = ? AND boutique_id = ?", id, boutiqueID).First(&flow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCashFlowNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &flow, nil
}

func loadCashFlows(db *gorm.DB, boutiqueID string, ids []string) (map[string]*models.CashFlow, error) {
	var flows []models.CashFlow
	if err := db.Where("boutique_id = ? AND id IN ?", boutiqueID, ids).Find(&flows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]*models.CashFlow, len(flows))
	for i := range flows {
		byID[flows[i].ID] = &flows[i]
	}
	return byID, nil
}

// checkSourceReference rejects a second flow for the same sale or purchase.
// Reversals are checked separately from the flows they cancel.
func checkSourceReference(tx *gorm.DB, boutiqueID string, sourceType models.SourceType, sourceID *string, reversal bool) error {
	if sourceID == nil || *sourceID == "" {
		return nil
	}
	if sourceType != models.SourceTypeSale && sourceType != models.SourceTypePurchase {
		return nil
	}

	var count int64
	if err := tx.Model(&models.CashFlow{}).
		Where("boutique_id = ? AND source_type = ? AND source_id = ? AND is_reversal = ?", boutiqueID, sourceType, *sourceID, reversal).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.WithMessage(apperrors.ErrDuplicateSourceRef,
			fmt.Sprintf("a cash flow already exists for %s %s", sourceType, *sourceID))
	}
	return nil
}

func requireEditableDraft(flow *models.CashFlow, actor models.Actor) error {
	if flow.Status != models.CashFlowStatusDraft {
		return apperrors.ErrCashFlowNotEditable
	}
	userID, ok := actor.Principal.UserID()
	if !ok || !flow.CreatedBy.Is(userID) {
		return apperrors.ErrNotOwner
	}
	return nil
}

func requireReconcilable(flow *models.CashFlow) error {
	if flow.Status != models.CashFlowStatusApproved {
		return apperrors.WithMessage(apperrors.ErrInvalidTransition,
			fmt.Sprintf("cash flow %s is %s, only approved cash flows can be reconciled", flow.ID, flow.Status))
	}
	if flow.IsReconciled {
		return apperrors.WithMessage(apperrors.ErrAlreadyReconciled,
			fmt.Sprintf("cash flow %s is already reconciled", flow.ID))
	}
	return nil
}

func requireValidator(actor models.Actor, action string) error {
	if !actor.Role.CanValidate() {
		return apperrors.WithMessage(apperrors.ErrForbidden, "only managers and admins can "+action+" cash flows")
	}
	return nil
}

func requireReason(reason, what string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, what+" is required")
	}
	if len([]rune(reason)) > maxReasonLength {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("%s must be at most %d characters", what, maxReasonLength))
	}
	return reason, nil
}

func invalidTransition(action string, status models.CashFlowStatus) error {
	return apperrors.WithMessage(apperrors.ErrInvalidTransition,
		fmt.Sprintf("cannot %s a cash flow in status %s", action, status))
}

func normalizeSourceType(st, fallback models.SourceType) (models.SourceType, error) {
	switch st {
	case "":
		return fallback, nil
	case models.SourceTypeManual, models.SourceTypeSale, models.SourceTypePurchase:
		return st, nil
	case models.SourceTypeReversal:
		if fallback == models.SourceTypeReversal {
			return st, nil
		}
	}
	return "", apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unsupported source type %q", st))
}

func validateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "tax rate must be between 0 and 100")
	}
	return nil
}

func taxAmount(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(2)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
