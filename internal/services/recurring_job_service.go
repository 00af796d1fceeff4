package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "treasury/internal/errors"
	"treasury/internal/logger"
	"treasury/internal/models"
	"treasury/internal/recurrence"
)

// errTemplateRaced means another run advanced the template between
// selection and commit.
var errTemplateRaced = errors.New("template advanced by a concurrent run")

// recurringJobService materializes due recurring templates. Each template is
// its own transaction: a failure is logged and counted, and the batch
// moves on to the next template.
type recurringJobService struct {
	db      *gorm.DB
	ledger  LedgerServicer
	budgets BudgetTracker
}

// NewRecurringJobService creates a new RecurringJobServicer.
func NewRecurringJobService(db *gorm.DB, ledger LedgerServicer, budgets BudgetTracker) RecurringJobServicer {
	return &recurringJobService{db: db, ledger: ledger, budgets: budgets}
}

// Run generates one cash flow for every active template due on or before
// now's date. A template behind by several periods catches up one period
// per run.
func (s *recurringJobService) Run(ctx context.Context, now time.Time) (*JobResult, error) {
	start := time.Now()
	log := logger.Named("recurring")
	today := recurrence.Day(now)

	var templates []models.RecurringCashFlowTemplate
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND next_occurrence <= ?", true, today).
		Where("end_date IS NULL OR end_date >= ?", today).
		Order("next_occurrence ASC").
		Order("id ASC").
		Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &JobResult{RunAt: now, GeneratedIDs: []string{}}
	for i := range templates {
		if err := ctx.Err(); err != nil {
			log.Warnw("recurring generation interrupted",
				"processed", i,
				"remaining", len(templates)-i,
				"error", err,
			)
			return result, err
		}

		t := &templates[i]
		if !recurrence.IsGenerationDue(t, today) {
			result.Skipped++
			continue
		}

		flow, err := s.generate(ctx, t, now)
		switch {
		case errors.Is(err, errTemplateRaced):
			result.Skipped++
			log.Infow("recurring template already handled by another run", "template_id", t.ID)
		case err != nil:
			result.Errors++
			result.TemplateErrors = append(result.TemplateErrors, TemplateError{TemplateID: t.ID, Error: err.Error()})
			log.Errorw("recurring generation failed",
				"template_id", t.ID,
				"boutique_id", t.BoutiqueID,
				"occurrence", t.NextOccurrence.Format("2006-01-02"),
				"error", err,
			)
		default:
			result.Generated++
			if flow.Status == models.CashFlowStatusApproved {
				result.AutoApproved++
			} else {
				result.Pending++
			}
			result.GeneratedIDs = append(result.GeneratedIDs, flow.ID)
		}
	}

	log.Infow("recurring generation finished",
		"due", len(templates),
		"generated", result.Generated,
		"auto_approved", result.AutoApproved,
		"pending", result.Pending,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"duration", time.Since(start),
	)
	return result, nil
}

// generate creates the cash flow for the template's current occurrence,
// applies it to the ledger when auto-validated, and advances the template,
// all in one transaction.
func (s *recurringJobService) generate(ctx context.Context, t *models.RecurringCashFlowTemplate, now time.Time) (*models.CashFlow, error) {
	actor := models.SystemActor(t.BoutiqueID)
	occurrence := recurrence.Day(t.NextOccurrence)

	var flow *models.CashFlow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ledger.RequireActiveAccount(tx, t.BoutiqueID, t.AccountID); err != nil {
			return err
		}

		categoryID := t.CategoryID
		templateID := t.ID
		flow = &models.CashFlow{
			BoutiqueID:          t.BoutiqueID,
			Type:                t.Type,
			Status:              models.CashFlowStatusPending,
			CategoryID:          &categoryID,
			Label:               t.Label,
			Description:         t.Description,
			Amount:              t.Amount,
			TaxRate:             t.TaxRate,
			TaxAmount:           taxAmount(t.Amount, t.TaxRate),
			AccountID:           t.AccountID,
			Date:                occurrence,
			PaymentMethod:       t.PaymentMethod,
			SourceType:          models.SourceTypeManual,
			CreatedBy:           actor.Principal,
			SubmittedAt:         &now,
			SubmittedBy:         actor.Principal,
			IsRecurring:         true,
			RecurringTemplateID: &templateID,
			IsSystemGenerated:   true,
		}
		entry := historyEntry{
			action:    models.HistoryActionSubmitted,
			newStatus: models.CashFlowStatusPending,
			comment:   "generated from recurring template " + t.Label,
			actor:     actor.Principal,
		}
		if t.AutoValidate {
			flow.Status = models.CashFlowStatusApproved
			flow.ValidatedAt = &now
			flow.ValidatedBy = actor.Principal
			flow.AutoApproved = true
			entry.action = models.HistoryActionApproved
			entry.newStatus = models.CashFlowStatusApproved
		}

		if err := tx.Create(flow).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := appendHistory(tx, flow.ID, entry, now); err != nil {
			return err
		}

		if flow.Status == models.CashFlowStatusApproved {
			if _, err := s.ledger.ApplyDelta(tx, flow.AccountID, flow.SignedEffect(flow.AccountID), actor.Principal); err != nil {
				return err
			}
			if flow.Type == models.CashFlowTypeExpense {
				if err := s.budgets.AdjustSpent(tx, t.BoutiqueID, t.CategoryID, flow.Amount); err != nil {
					return err
				}
			}
		}

		return advanceTemplate(tx, t, occurrence, now)
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// advanceTemplate moves the template to its next occurrence. The update is
// conditional on the generation count read at selection, so two runs can
// never both materialize the same occurrence. A template whose next
// occurrence passes its end date is deactivated.
func advanceTemplate(tx *gorm.DB, t *models.RecurringCashFlowTemplate, occurrence, now time.Time) error {
	next := recurrence.RuleOf(t).Next(occurrence)
	updates := map[string]interface{}{
		"next_occurrence":   next,
		"last_generated_at": now,
		"generated_count":   t.GeneratedCount + 1,
		"updated_at":        now,
	}
	if t.EndDate != nil && next.After(recurrence.Day(*t.EndDate)) {
		updates["is_active"] = false
	}

	result := tx.Model(&models.RecurringCashFlowTemplate{}).
		Where("id = ? AND generated_count = ? AND is_active = ?", t.ID, t.GeneratedCount, true).
		Updates(updates)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return errTemplateRaced
	}
	return nil
}
