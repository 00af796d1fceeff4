package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
)

// categoryService resolves categories for type validation. Categories are
// managed elsewhere; this service never writes them.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// GetCategory retrieves a category by ID within a boutique.
func (s *categoryService) GetCategory(ctx context.Context, boutiqueID, categoryID string) (*models.Category, error) {
	return findCategory(s.db.WithContext(ctx), boutiqueID, categoryID)
}

// RequireMatchingCategory loads a category whose type must match flowType.
func (s *categoryService) RequireMatchingCategory(tx *gorm.DB, boutiqueID, categoryID string, flowType models.CashFlowType) (*models.Category, error) {
	category, err := findCategory(tx, boutiqueID, categoryID)
	if err != nil {
		return nil, err
	}
	if !flowType.MatchesCategory(category.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrCategoryTypeMismatch,
			fmt.Sprintf("category %q is of type %s, cash flow is %s", category.Name, category.Type, flowType))
	}
	return category, nil
}

func findCategory(db *gorm.DB, boutiqueID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ? AND boutique_id = ?", categoryID, boutiqueID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}
