package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	apperrors "treasury/internal/errors"
	"treasury/internal/logger"
	"treasury/internal/models"
	"treasury/internal/recurrence"
)

// HardMaxForecastDays caps any configured horizon.
const HardMaxForecastDays = 90

// forecastService projects balances from current state. It only reads.
type forecastService struct {
	db      *gorm.DB
	ledger  LedgerServicer
	maxDays int
	now     func() time.Time
	group   singleflight.Group
}

// NewForecastService creates a new ForecastServicer. maxDays outside
// 1..HardMaxForecastDays falls back to the hard maximum.
func NewForecastService(db *gorm.DB, ledger LedgerServicer, maxDays int) ForecastServicer {
	if maxDays < 1 || maxDays > HardMaxForecastDays {
		maxDays = HardMaxForecastDays
	}
	return &forecastService{db: db, ledger: ledger, maxDays: maxDays, now: time.Now}
}

// pendingFlow is the slice of a pending cash flow the projection needs.
type pendingFlow struct {
	Type   models.CashFlowType
	Amount decimal.Decimal
	Date   time.Time
}

// GetCashFlowForecast projects the boutique's balance over days days,
// starting today. Identical concurrent queries share one computation.
func (s *forecastService) GetCashFlowForecast(ctx context.Context, boutiqueID string, days int, includePending bool) (*Forecast, error) {
	if days < 1 || days > s.maxDays {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidHorizon,
			fmt.Sprintf("Forecast horizon must be between 1 and %d days", s.maxDays))
	}

	now := s.now()
	key := fmt.Sprintf("%s|%d|%t|%s", boutiqueID, days, includePending, now.Format("2006-01-02"))
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// The computation outlives the first caller if others joined it.
		return s.compute(context.WithoutCancel(ctx), boutiqueID, days, includePending, now)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Forecast), nil
	}
}

func (s *forecastService) compute(ctx context.Context, boutiqueID string, days int, includePending bool, now time.Time) (*Forecast, error) {
	start := time.Now()
	today := recurrence.Day(now)
	last := today.AddDate(0, 0, days-1)

	accounts, err := s.ledger.ListActiveAccounts(ctx, boutiqueID)
	if err != nil {
		return nil, err
	}
	seed := decimal.Zero
	for _, account := range accounts {
		seed = seed.Add(account.CurrentBalance)
	}
	threshold := primaryThreshold(accounts)

	var pending []pendingFlow
	if includePending {
		if err := s.db.WithContext(ctx).
			Model(&models.CashFlow{}).
			Select("type", "amount", "date").
			Where("boutique_id = ? AND status = ?", boutiqueID, models.CashFlowStatusPending).
			Where("type IN ?", []models.CashFlowType{models.CashFlowTypeIncome, models.CashFlowTypeExpense}).
			Where("date <= ?", last).
			Find(&pending).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	var templates []models.RecurringCashFlowTemplate
	if err := s.db.WithContext(ctx).
		Where("boutique_id = ? AND is_active = ?", boutiqueID, true).
		Where("start_date <= ?", last).
		Where("end_date IS NULL OR end_date >= ?", today).
		Order("label ASC").
		Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	forecast := &Forecast{
		GeneratedAt:    now,
		Days:           days,
		IncludePending: includePending,
		AlertThreshold: threshold,
		Series:         make([]ForecastDay, 0, days),
		CriticalDates:  []CriticalDate{},
	}
	summary := &forecast.Summary
	summary.StartingBalance = seed
	summary.LowestBalance = seed
	summary.LowestBalanceDate = today

	running := seed
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i)
		point := ForecastDay{
			Date:             day,
			OpeningBalance:   running,
			PendingIncome:    decimal.Zero,
			PendingExpense:   decimal.Zero,
			RecurringIncome:  decimal.Zero,
			RecurringExpense: decimal.Zero,
		}

		for _, p := range pending {
			d := recurrence.Day(p.Date)
			// Overdue pending flows are still expected, on the first day.
			if !d.Equal(day) && !(i == 0 && d.Before(today)) {
				continue
			}
			if p.Type == models.CashFlowTypeIncome {
				point.PendingIncome = point.PendingIncome.Add(p.Amount)
			} else {
				point.PendingExpense = point.PendingExpense.Add(p.Amount)
			}
		}

		var expenseLabels []string
		for j := range templates {
			t := &templates[j]
			// Occurrences before NextOccurrence already exist as cash flows.
			if day.Before(recurrence.Day(t.NextOccurrence)) || !recurrence.IsDueOn(t, day) {
				continue
			}
			if t.Type == models.CashFlowTypeIncome {
				point.RecurringIncome = point.RecurringIncome.Add(t.Amount)
			} else {
				point.RecurringExpense = point.RecurringExpense.Add(t.Amount)
				expenseLabels = append(expenseLabels, t.Label)
			}
		}

		point.ClosingBalance = running.
			Add(point.PendingIncome).
			Add(point.RecurringIncome).
			Sub(point.PendingExpense).
			Sub(point.RecurringExpense)
		point.IsNegative = point.ClosingBalance.IsNegative()
		point.IsCritical = threshold != nil && point.ClosingBalance.LessThan(*threshold)

		if point.IsNegative || point.IsCritical {
			forecast.CriticalDates = append(forecast.CriticalDates, CriticalDate{
				Date:       day,
				Balance:    point.ClosingBalance,
				IsNegative: point.IsNegative,
				IsCritical: point.IsCritical,
				Reason:     criticalReason(expenseLabels, point.PendingExpense),
			})
		}

		summary.TotalPendingIncome = summary.TotalPendingIncome.Add(point.PendingIncome)
		summary.TotalPendingExpense = summary.TotalPendingExpense.Add(point.PendingExpense)
		summary.TotalRecurringIncome = summary.TotalRecurringIncome.Add(point.RecurringIncome)
		summary.TotalRecurringExpense = summary.TotalRecurringExpense.Add(point.RecurringExpense)
		if point.ClosingBalance.LessThan(summary.LowestBalance) {
			summary.LowestBalance = point.ClosingBalance
			summary.LowestBalanceDate = day
		}

		forecast.Series = append(forecast.Series, point)
		running = point.ClosingBalance
	}

	summary.EndingBalance = running
	summary.TotalIncome = summary.TotalPendingIncome.Add(summary.TotalRecurringIncome)
	summary.TotalExpense = summary.TotalPendingExpense.Add(summary.TotalRecurringExpense)
	summary.NetVariation = summary.TotalIncome.Sub(summary.TotalExpense)
	summary.CriticalDays = len(forecast.CriticalDates)

	logger.Get().Debugw("forecast computed",
		"boutique_id", boutiqueID,
		"days", days,
		"include_pending", includePending,
		"templates", len(templates),
		"pending_flows", len(pending),
		"critical_days", summary.CriticalDays,
		"duration", time.Since(start),
	)
	return forecast, nil
}

// primaryThreshold returns the alert threshold of the default account, if
// the boutique has one and it sets a threshold.
func primaryThreshold(accounts []models.Account) *decimal.Decimal {
	for _, account := range accounts {
		if account.IsDefault && account.AlertThreshold.Valid {
			threshold := account.AlertThreshold.Decimal
			return &threshold
		}
	}
	return nil
}

func criticalReason(expenseLabels []string, pendingExpense decimal.Decimal) string {
	var parts []string
	if len(expenseLabels) > 0 {
		parts = append(parts, "recurring: "+strings.Join(expenseLabels, ", "))
	}
	if pendingExpense.IsPositive() {
		parts = append(parts, "pending flows")
	}
	if len(parts) == 0 {
		return "balance carried over"
	}
	return strings.Join(parts, "; ")
}
