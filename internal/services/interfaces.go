package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"treasury/internal/models"
	"treasury/internal/pagination"
)

// LedgerServicer is the only writer of account balances.
type LedgerServicer interface {
	GetAccount(ctx context.Context, boutiqueID, accountID string) (*models.Account, error)
	ListActiveAccounts(ctx context.Context, boutiqueID string) ([]models.Account, error)
	RequireActiveAccount(tx *gorm.DB, boutiqueID, accountID string) (*models.Account, error)
	ApplyDelta(tx *gorm.DB, accountID string, delta decimal.Decimal, by models.Principal) (decimal.Decimal, error)
}

// CategoryServicer looks categories up for type validation.
type CategoryServicer interface {
	GetCategory(ctx context.Context, boutiqueID, categoryID string) (*models.Category, error)
	RequireMatchingCategory(tx *gorm.DB, boutiqueID, categoryID string, flowType models.CashFlowType) (*models.Category, error)
}

// BudgetWarning is returned when an expense pushes its category's budget
// over the alert threshold. It never blocks the operation.
type BudgetWarning struct {
	BudgetID     string          `json:"budget_id"`
	BudgetName   string          `json:"budget_name"`
	Budgeted     decimal.Decimal `json:"budgeted"`
	Spent        decimal.Decimal `json:"spent"`
	Projected    decimal.Decimal `json:"projected"`
	Percentage   decimal.Decimal `json:"percentage"`
	ThresholdPct int             `json:"threshold_pct"`
	Exceeded     bool            `json:"exceeded"`
}

// BudgetTracker keeps the spent amount of category budgets in step with
// approved expenses.
type BudgetTracker interface {
	CheckThreshold(tx *gorm.DB, boutiqueID, categoryID string, amount decimal.Decimal) (*BudgetWarning, error)
	AdjustSpent(tx *gorm.DB, boutiqueID, categoryID string, delta decimal.Decimal) error
}

// CashFlowFilter holds optional filter parameters for listing cash flows.
type CashFlowFilter struct {
	Type                *models.CashFlowType
	Status              *models.CashFlowStatus
	AccountID           *string
	CategoryID          *string
	RecurringTemplateID *string
	IsReconciled        *bool
	FromDate            *time.Time
	ToDate              *time.Time
}

// CreateCashFlowInput carries the fields of a new cash flow. Transfers only
// use AccountID, DestinationAccountID, Amount and the descriptive fields.
type CreateCashFlowInput struct {
	Type                 models.CashFlowType
	CategoryID           *string
	Label                string
	Description          string
	Amount               decimal.Decimal
	TaxRate              decimal.Decimal
	AccountID            string
	DestinationAccountID *string
	Date                 time.Time
	PaymentMethod        string
	Reference            string
	SourceType           models.SourceType
	SourceID             *string
}

// UpdateCashFlowInput is a partial update of a draft; nil fields are left unchanged.
type UpdateCashFlowInput struct {
	CategoryID    *string
	Label         *string
	Description   *string
	Amount        *decimal.Decimal
	TaxRate       *decimal.Decimal
	AccountID     *string
	Date          *time.Time
	PaymentMethod *string
	Reference     *string
}

// TransferInput describes a movement between two accounts of the same boutique.
type TransferInput struct {
	SourceAccountID      string
	DestinationAccountID string
	Amount               decimal.Decimal
	Label                string
	Description          string
	Date                 time.Time
	Reference            string
}

// ReverseInput optionally links the reversal to the business document that caused it.
type ReverseInput struct {
	Reason     string
	SourceType models.SourceType
	SourceID   *string
}

// CashFlowDetail is a cash flow with its history, oldest first.
type CashFlowDetail struct {
	CashFlow *models.CashFlow         `json:"cash_flow"`
	History  []models.CashFlowHistory `json:"history"`
}

// SubmitResult is a submitted cash flow and the optional budget warning.
type SubmitResult struct {
	CashFlow      *models.CashFlow `json:"cash_flow"`
	BudgetWarning *BudgetWarning   `json:"budget_warning,omitempty"`
}

// ApproveResult is an approved cash flow and the balance of its account afterwards.
type ApproveResult struct {
	CashFlow       *models.CashFlow `json:"cash_flow"`
	AccountBalance decimal.Decimal  `json:"account_balance"`
}

// ReverseResult pairs the original cash flow with the reversal that cancels it.
type ReverseResult struct {
	Original *models.CashFlow `json:"original"`
	Reversal *models.CashFlow `json:"reversal"`
}

// TransferResult is a transfer and the resulting balances of both accounts.
type TransferResult struct {
	CashFlow           *models.CashFlow `json:"cash_flow"`
	SourceBalance      decimal.Decimal  `json:"source_balance"`
	DestinationBalance decimal.Decimal  `json:"destination_balance"`
}

// CashFlowServicer is the cash-flow workflow engine plus its queries.
type CashFlowServicer interface {
	CreateCashFlow(ctx context.Context, actor models.Actor, in CreateCashFlowInput) (*models.CashFlow, error)
	UpdateCashFlow(ctx context.Context, actor models.Actor, id string, in UpdateCashFlowInput) (*models.CashFlow, error)
	DeleteCashFlow(ctx context.Context, actor models.Actor, id string) error
	SubmitCashFlow(ctx context.Context, actor models.Actor, id string) (*SubmitResult, error)
	ApproveCashFlow(ctx context.Context, actor models.Actor, id string) (*ApproveResult, error)
	RejectCashFlow(ctx context.Context, actor models.Actor, id, reason string) (*models.CashFlow, error)
	ReconcileCashFlow(ctx context.Context, actor models.Actor, id, bankStatementRef string) (*models.CashFlow, error)
	ReconcileCashFlowsBatch(ctx context.Context, actor models.Actor, ids []string, bankStatementRef string) ([]models.CashFlow, error)
	ReverseCashFlow(ctx context.Context, actor models.Actor, id string, in ReverseInput) (*ReverseResult, error)
	CreateTransfer(ctx context.Context, actor models.Actor, in TransferInput) (*TransferResult, error)

	GetCashFlow(ctx context.Context, actor models.Actor, id string) (*CashFlowDetail, error)
	GetCashFlows(ctx context.Context, actor models.Actor, filter CashFlowFilter, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error)
	GetPendingCashFlows(ctx context.Context, actor models.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error)
	GetUnreconciledCashFlows(ctx context.Context, actor models.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error)
	ExportCashFlows(ctx context.Context, actor models.Actor, filter CashFlowFilter, w io.Writer) error
}

// TemplateInput carries the fields of a new recurring template.
type TemplateInput struct {
	Label         string
	Description   string
	Type          models.CashFlowType
	CategoryID    string
	Amount        decimal.Decimal
	TaxRate       decimal.Decimal
	AccountID     string
	PaymentMethod string
	Frequency     models.Frequency
	Interval      int
	DayOfMonth    *int
	DayOfWeek     *int
	StartDate     time.Time
	EndDate       *time.Time
	AutoValidate  bool
}

// UpdateTemplateInput is a partial template update; nil fields are left unchanged.
// ClearEndDate removes an existing end date.
type UpdateTemplateInput struct {
	Label         *string
	Description   *string
	CategoryID    *string
	Amount        *decimal.Decimal
	TaxRate       *decimal.Decimal
	AccountID     *string
	PaymentMethod *string
	Frequency     *models.Frequency
	Interval      *int
	DayOfMonth    *int
	DayOfWeek     *int
	StartDate     *time.Time
	EndDate       *time.Time
	ClearEndDate  bool
	AutoValidate  *bool
}

// TemplateDetail is a template with a preview of its next due dates.
type TemplateDetail struct {
	Template *models.RecurringCashFlowTemplate `json:"template"`
	Upcoming []time.Time                       `json:"upcoming"`
}

// RecurringTemplateServicer manages recurring cash flow templates.
type RecurringTemplateServicer interface {
	CreateRecurringTemplate(ctx context.Context, actor models.Actor, in TemplateInput) (*models.RecurringCashFlowTemplate, error)
	UpdateRecurringTemplate(ctx context.Context, actor models.Actor, id string, in UpdateTemplateInput) (*models.RecurringCashFlowTemplate, error)
	ToggleRecurringTemplate(ctx context.Context, actor models.Actor, id string) (*models.RecurringCashFlowTemplate, error)
	GetRecurringTemplates(ctx context.Context, actor models.Actor, activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringCashFlowTemplate], error)
	GetRecurringTemplate(ctx context.Context, actor models.Actor, id string) (*TemplateDetail, error)
}

// TemplateError records why one template failed during a generation run.
type TemplateError struct {
	TemplateID string `json:"template_id"`
	Error      string `json:"error"`
}

// JobResult summarizes one recurring generation run.
type JobResult struct {
	RunAt          time.Time       `json:"run_at"`
	Generated      int             `json:"generated"`
	AutoApproved   int             `json:"auto_approved"`
	Pending        int             `json:"pending"`
	Skipped        int             `json:"skipped"`
	Errors         int             `json:"errors"`
	GeneratedIDs   []string        `json:"generated_ids"`
	TemplateErrors []TemplateError `json:"template_errors,omitempty"`
}

// RecurringJobServicer materializes due recurring templates.
type RecurringJobServicer interface {
	Run(ctx context.Context, now time.Time) (*JobResult, error)
}

// ForecastDay is one day of the projected balance curve.
type ForecastDay struct {
	Date             time.Time       `json:"date"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	PendingIncome    decimal.Decimal `json:"pending_income"`
	PendingExpense   decimal.Decimal `json:"pending_expense"`
	RecurringIncome  decimal.Decimal `json:"recurring_income"`
	RecurringExpense decimal.Decimal `json:"recurring_expense"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	IsNegative       bool            `json:"is_negative"`
	IsCritical       bool            `json:"is_critical"`
}

// CriticalDate flags a day whose closing balance is negative or under the
// primary account's alert threshold.
type CriticalDate struct {
	Date       time.Time       `json:"date"`
	Balance    decimal.Decimal `json:"balance"`
	IsNegative bool            `json:"is_negative"`
	IsCritical bool            `json:"is_critical"`
	Reason     string          `json:"reason"`
}

// ForecastSummary aggregates the whole horizon.
type ForecastSummary struct {
	StartingBalance       decimal.Decimal `json:"starting_balance"`
	EndingBalance         decimal.Decimal `json:"ending_balance"`
	TotalRecurringIncome  decimal.Decimal `json:"total_recurring_income"`
	TotalRecurringExpense decimal.Decimal `json:"total_recurring_expense"`
	TotalPendingIncome    decimal.Decimal `json:"total_pending_income"`
	TotalPendingExpense   decimal.Decimal `json:"total_pending_expense"`
	TotalIncome           decimal.Decimal `json:"total_income"`
	TotalExpense          decimal.Decimal `json:"total_expense"`
	NetVariation          decimal.Decimal `json:"net_variation"`
	LowestBalance         decimal.Decimal `json:"lowest_balance"`
	LowestBalanceDate     time.Time       `json:"lowest_balance_date"`
	CriticalDays          int             `json:"critical_days"`
}

// Forecast is the projected balance curve over a horizon.
type Forecast struct {
	GeneratedAt    time.Time        `json:"generated_at"`
	Days           int              `json:"days"`
	IncludePending bool             `json:"include_pending"`
	AlertThreshold *decimal.Decimal `json:"alert_threshold,omitempty"`
	Series         []ForecastDay    `json:"series"`
	CriticalDates  []CriticalDate   `json:"critical_dates"`
	Summary        ForecastSummary  `json:"summary"`
}

// ForecastServicer projects balances without writing anything.
type ForecastServicer interface {
	GetCashFlowForecast(ctx context.Context, boutiqueID string, days int, includePending bool) (*Forecast, error)
}
