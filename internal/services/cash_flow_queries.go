package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"gorm.io/gorm"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/recurrence"
)

var exportHeader = []string{
	"id", "date", "type", "status", "label", "category", "account", "destination_account",
	"amount", "tax_rate", "tax_amount", "reconciled", "bank_statement_reference",
	"reference", "is_reversal", "original_cash_flow_id",
}

// GetCashFlow retrieves a cash flow with its history.
func (s *cashFlowService) GetCashFlow(ctx context.Context, actor models.Actor, id string) (*CashFlowDetail, error) {
	db := s.db.WithContext(ctx)
	flow, err := loadCashFlow(db, actor.BoutiqueID, id)
	if err != nil {
		return nil, err
	}
	history, err := listHistory(db, flow.ID)
	if err != nil {
		return nil, err
	}
	return &CashFlowDetail{CashFlow: flow, History: history}, nil
}

// GetCashFlows returns a paginated, filtered list of the boutique's cash flows, newest first.
func (s *cashFlowService) GetCashFlows(ctx context.Context, actor models.Actor, filter CashFlowFilter, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error) {
	base := s.db.WithContext(ctx).Model(&models.CashFlow{}).Where("boutique_id = ?", actor.BoutiqueID)
	return paginateCashFlows(applyCashFlowFilters(base, filter), page, "date DESC")
}

// GetPendingCashFlows returns the flows awaiting approval, oldest first.
func (s *cashFlowService) GetPendingCashFlows(ctx context.Context, actor models.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error) {
	base := s.db.WithContext(ctx).Model(&models.CashFlow{}).
		Where("boutique_id = ? AND status = ?", actor.BoutiqueID, models.CashFlowStatusPending)
	return paginateCashFlows(base, page, "date ASC")
}

// GetUnreconciledCashFlows returns approved flows not yet matched to a bank statement.
func (s *cashFlowService) GetUnreconciledCashFlows(ctx context.Context, actor models.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error) {
	base := s.db.WithContext(ctx).Model(&models.CashFlow{}).
		Where("boutique_id = ? AND status = ? AND is_reconciled = ?", actor.BoutiqueID, models.CashFlowStatusApproved, false)
	return paginateCashFlows(base, page, "date ASC")
}

// ExportCashFlows streams the filtered flows as CSV, oldest first.
func (s *cashFlowService) ExportCashFlows(ctx context.Context, actor models.Actor, filter CashFlowFilter, w io.Writer) error {
	db := s.db.WithContext(ctx)

	categoryNames, err := namesByID(db, &models.Category{}, actor.BoutiqueID)
	if err != nil {
		return err
	}
	accountNames, err := namesByID(db, &models.Account{}, actor.BoutiqueID)
	if err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write(exportHeader); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	query := applyCashFlowFilters(db.Model(&models.CashFlow{}).Where("boutique_id = ?", actor.BoutiqueID), filter)
	rows, err := query.Order("date ASC").Order("id ASC").Rows()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer rows.Close()

	for rows.Next() {
		var flow models.CashFlow
		if err := db.ScanRows(rows, &flow); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := out.Write(exportRecord(&flow, categoryNames, accountNames)); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func exportRecord(f *models.CashFlow, categories, accounts map[string]string) []string {
	return []string{
		f.ID,
		f.Date.Format("2006-01-02"),
		string(f.Type),
		string(f.Status),
		f.Label,
		lookupName(categories, f.CategoryID),
		accounts[f.AccountID],
		lookupName(accounts, f.DestinationAccountID),
		f.Amount.StringFixed(2),
		f.TaxRate.StringFixed(2),
		f.TaxAmount.StringFixed(2),
		strconv.FormatBool(f.IsReconciled),
		f.BankStatementReference,
		f.Reference,
		strconv.FormatBool(f.IsReversal),
		derefString(f.OriginalCashFlowID),
	}
}

func applyCashFlowFilters(q *gorm.DB, f CashFlowFilter) *gorm.DB {
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ? OR destination_account_id = ?", *f.AccountID, *f.AccountID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.RecurringTemplateID != nil {
		q = q.Where("recurring_template_id = ?", *f.RecurringTemplateID)
	}
	if f.IsReconciled != nil {
		q = q.Where("is_reconciled = ?", *f.IsReconciled)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", recurrence.Day(*f.FromDate))
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", recurrence.Day(*f.ToDate))
	}
	return q
}

func paginateCashFlows(base *gorm.DB, page pagination.PageRequest, order string) (*pagination.PageResponse[models.CashFlow], error) {
	page.Defaults()

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var flows []models.CashFlow
	if err := base.Scopes(pagination.Paginate(page)).
		Order(order).
		Order("created_at DESC").
		Find(&flows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(flows, page, totalItems)
	return &result, nil
}

type namedRow struct {
	ID   string
	Name string
}

func namesByID(db *gorm.DB, model interface{}, boutiqueID string) (map[string]string, error) {
	var rows []namedRow
	if err := db.Model(model).Unscoped().Where("boutique_id = ?", boutiqueID).Select("id", "name").Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	names := make(map[string]string, len(rows))
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

func lookupName(names map[string]string, id *string) string {
	if id == nil {
		return ""
	}
	return names[*id]
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
