package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/recurrence"
)

var hundred = decimal.NewFromInt(100)

// budgetTracker keeps budgets' spent amounts in step with approved expenses.
type budgetTracker struct {
	now func() time.Time
}

// NewBudgetTracker creates a new BudgetTracker. It works on the caller's
// transaction and holds no connection of its own.
func NewBudgetTracker() BudgetTracker {
	return &budgetTracker{now: time.Now}
}

// CheckThreshold returns a warning when adding amount to the category's
// current budget reaches its alert threshold. No budget means no warning.
func (b *budgetTracker) CheckThreshold(tx *gorm.DB, boutiqueID, categoryID string, amount decimal.Decimal) (*BudgetWarning, error) {
	budget, err := b.activeBudget(tx, boutiqueID, categoryID)
	if err != nil || budget == nil {
		return nil, err
	}
	if !budget.Amount.IsPositive() {
		return nil, nil
	}

	projected := budget.SpentAmount.Add(amount)
	pct := projected.Mul(hundred).Div(budget.Amount).Round(2)
	if pct.LessThan(decimal.NewFromInt(int64(budget.AlertThresholdPct))) {
		return nil, nil
	}

	return &BudgetWarning{
		BudgetID:     budget.ID,
		BudgetName:   budget.Name,
		Budgeted:     budget.Amount,
		Spent:        budget.SpentAmount,
		Projected:    projected,
		Percentage:   pct,
		ThresholdPct: budget.AlertThresholdPct,
		Exceeded:     projected.GreaterThan(budget.Amount),
	}, nil
}

// AdjustSpent adds delta to the spent amount of the category's current
// budget, never going below zero. No budget is not an error.
func (b *budgetTracker) AdjustSpent(tx *gorm.DB, boutiqueID, categoryID string, delta decimal.Decimal) error {
	budget, err := b.activeBudget(tx, boutiqueID, categoryID)
	if err != nil || budget == nil {
		return err
	}

	spent := budget.SpentAmount.Add(delta)
	if spent.IsNegative() {
		spent = decimal.Zero
	}
	if err := tx.Model(&models.Budget{}).
		Where("id = ?", budget.ID).
		Update("spent_amount", spent).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (b *budgetTracker) activeBudget(tx *gorm.DB, boutiqueID, categoryID string) (*models.Budget, error) {
	today := recurrence.Day(b.now())

	var budget models.Budget
	err := tx.Where("boutique_id = ? AND category_id = ? AND is_active = ?", boutiqueID, categoryID, true).
		Where("start_date <= ?", today).
		Where("end_date IS NULL OR end_date >= ?", today).
		Order("start_date DESC").
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}
