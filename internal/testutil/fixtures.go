package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"treasury/internal/models"
	"treasury/internal/recurrence"
	"treasury/internal/uuid"
)

// TestUserID is the default creator used by fixtures.
const TestUserID = "0192f0c6-0000-7000-8000-00000000a11c"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewBoutiqueID returns a fresh scope id so tests never see each other's rows.
func NewBoutiqueID() string {
	return uuid.New()
}

// CreateTestAccount creates an active cash account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, boutiqueID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, boutiqueID, "0")
}

// CreateTestAccountWithBalance creates an active cash account whose initial
// and current balances are both balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, boutiqueID, balance string) *models.Account {
	t.Helper()

	amount := decimal.RequireFromString(balance)
	account := &models.Account{
		BoutiqueID:     boutiqueID,
		Name:           fmt.Sprintf("Test Account %d", nextID()),
		Type:           models.AccountTypeCash,
		Currency:       "XOF",
		InitialBalance: amount,
		CurrentBalance: amount,
		IsActive:       true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// DeactivateAccount flips is_active off. A plain Create cannot do it
// because the column defaults to true.
func DeactivateAccount(t *testing.T, db *gorm.DB, account *models.Account) {
	t.Helper()

	if err := db.Model(account).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate test account: %v", err)
	}
	account.IsActive = false
}

// CreateTestCategory creates an active category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, boutiqueID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		BoutiqueID: boutiqueID,
		Name:       fmt.Sprintf("Test Category %d", nextID()),
		Type:       categoryType,
		IsActive:   true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestCashFlow stores a cash flow in the given status without going
// through the workflow, so no balance is touched. Its type follows the
// category type and it is dated today.
func CreateTestCashFlow(t *testing.T, db *gorm.DB, account *models.Account, category *models.Category, status models.CashFlowStatus, amount string) *models.CashFlow {
	t.Helper()

	categoryID := category.ID
	flow := &models.CashFlow{
		BoutiqueID: account.BoutiqueID,
		Type:       models.CashFlowType(category.Type),
		Status:     status,
		CategoryID: &categoryID,
		Label:      fmt.Sprintf("Test Flow %d", nextID()),
		Amount:     decimal.RequireFromString(amount),
		AccountID:  account.ID,
		Date:       recurrence.Day(time.Now()),
		SourceType: models.SourceTypeManual,
		CreatedBy:  models.Human(TestUserID),
	}
	if status != models.CashFlowStatusDraft {
		now := time.Now()
		flow.SubmittedAt = &now
		flow.SubmittedBy = models.Human(TestUserID)
	}
	if status == models.CashFlowStatusApproved {
		now := time.Now()
		flow.ValidatedAt = &now
		flow.ValidatedBy = models.Human(TestUserID)
	}
	if err := db.Create(flow).Error; err != nil {
		t.Fatalf("failed to create test cash flow: %v", err)
	}
	return flow
}

// CreateTestTemplate creates an active daily template starting today. mutate,
// when non-nil, runs before the first occurrence is computed and the row saved.
func CreateTestTemplate(t *testing.T, db *gorm.DB, account *models.Account, category *models.Category, amount string, mutate func(*models.RecurringCashFlowTemplate)) *models.RecurringCashFlowTemplate {
	t.Helper()

	template := &models.RecurringCashFlowTemplate{
		BoutiqueID: account.BoutiqueID,
		Label:      fmt.Sprintf("Test Template %d", nextID()),
		Type:       models.CashFlowType(category.Type),
		CategoryID: category.ID,
		Amount:     decimal.RequireFromString(amount),
		AccountID:  account.ID,
		Frequency:  models.FrequencyDaily,
		Interval:   1,
		StartDate:  recurrence.Day(time.Now()),
		IsActive:   true,
		CreatedBy:  models.Human(TestUserID),
	}
	if mutate != nil {
		mutate(template)
	}
	if template.NextOccurrence.IsZero() {
		template.NextOccurrence = recurrence.RuleOf(template).First(template.StartDate)
	}
	active := template.IsActive
	if err := db.Create(template).Error; err != nil {
		t.Fatalf("failed to create test template: %v", err)
	}
	if !active {
		if err := db.Model(template).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate test template: %v", err)
		}
		template.IsActive = false
	}
	return template
}

// CreateTestBudget creates an active budget for the category, open since 30 days ago.
func CreateTestBudget(t *testing.T, db *gorm.DB, category *models.Category, amount string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		BoutiqueID:        category.BoutiqueID,
		CategoryID:        category.ID,
		Name:              fmt.Sprintf("Test Budget %d", nextID()),
		Amount:            decimal.RequireFromString(amount),
		AlertThresholdPct: 80,
		StartDate:         recurrence.Day(time.Now()).AddDate(0, 0, -30),
		IsActive:          true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
