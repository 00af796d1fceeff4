package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "treasury/internal/errors"
	"treasury/internal/logger"
	"treasury/internal/models"
)

// ledgerService owns account balances. Every balance change goes through
// ApplyDelta inside the caller's transaction.
type ledgerService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB) LedgerServicer {
	return &ledgerService{db: db, now: time.Now}
}

// GetAccount retrieves an account by ID within a boutique.
func (s *ledgerService) GetAccount(ctx context.Context, boutiqueID, accountID string) (*models.Account, error) {
	return findAccount(s.db.WithContext(ctx), boutiqueID, accountID)
}

// ListActiveAccounts returns the active accounts of a boutique, default account first.
func (s *ledgerService) ListActiveAccounts(ctx context.Context, boutiqueID string) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).
		Where("boutique_id = ? AND is_active = ?", boutiqueID, true).
		Order("is_default DESC").
		Order("created_at ASC").
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return accounts, nil
}

// RequireActiveAccount loads an account that must exist in the boutique and be active.
func (s *ledgerService) RequireActiveAccount(tx *gorm.DB, boutiqueID, accountID string) (*models.Account, error) {
	account, err := findAccount(tx, boutiqueID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, apperrors.WithMessage(apperrors.ErrInactiveAccount, "account "+account.Name+" is inactive")
	}
	return account, nil
}

// ApplyDelta adds a signed amount to the account's current balance and
// returns the new balance. The write is conditional on the version read, so
// a concurrent writer makes it fail with ErrConflict instead of losing an update.
func (s *ledgerService) ApplyDelta(tx *gorm.DB, accountID string, delta decimal.Decimal, by models.Principal) (decimal.Decimal, error) {
	var account models.Account
	if err := tx.Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, apperrors.ErrAccountNotFound
		}
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	balance := account.CurrentBalance.Add(delta)
	result := tx.Model(&models.Account{}).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Updates(map[string]interface{}{
			"current_balance": balance,
			"version":         account.Version + 1,
			"updated_by":      by,
			"updated_at":      s.now(),
		})
	if result.Error != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, apperrors.ErrConflict
	}

	logger.Get().Debugw("account balance updated",
		"account_id", account.ID,
		"delta", delta.String(),
		"balance", balance.String(),
		"by", by.String(),
	)
	return balance, nil
}

func findAccount(db *gorm.DB, boutiqueID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := db.Where("id = ? AND boutique_id = ?", accountID, boutiqueID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}
