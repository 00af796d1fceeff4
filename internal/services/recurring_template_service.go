package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/recurrence"
)

// upcomingPreview is how many next due dates GetRecurringTemplate returns.
const upcomingPreview = 5

// recurringTemplateService manages recurring templates. It never creates
// cash flows; the generation job does.
type recurringTemplateService struct {
	db         *gorm.DB
	ledger     LedgerServicer
	categories CategoryServicer
	now        func() time.Time
}

// NewRecurringTemplateService creates a new RecurringTemplateServicer.
func NewRecurringTemplateService(db *gorm.DB, ledger LedgerServicer, categories CategoryServicer) RecurringTemplateServicer {
	return &recurringTemplateService{
		db:         db,
		ledger:     ledger,
		categories: categories,
		now:        time.Now,
	}
}

// CreateRecurringTemplate validates and stores a template. Its first due
// date is the start date aligned to the rule.
func (s *recurringTemplateService) CreateRecurringTemplate(ctx context.Context, actor models.Actor, in TemplateInput) (*models.RecurringCashFlowTemplate, error) {
	if err := requireTemplateManager(actor); err != nil {
		return nil, err
	}

	template := &models.RecurringCashFlowTemplate{
		BoutiqueID:    actor.BoutiqueID,
		Label:         strings.TrimSpace(in.Label),
		Description:   in.Description,
		Type:          in.Type,
		CategoryID:    in.CategoryID,
		Amount:        in.Amount,
		TaxRate:       in.TaxRate,
		AccountID:     in.AccountID,
		PaymentMethod: in.PaymentMethod,
		Frequency:     in.Frequency,
		Interval:      in.Interval,
		DayOfMonth:    in.DayOfMonth,
		DayOfWeek:     in.DayOfWeek,
		StartDate:     recurrence.Day(in.StartDate),
		AutoValidate:  in.AutoValidate,
		IsActive:      true,
		CreatedBy:     actor.Principal,
	}
	if template.Interval == 0 {
		template.Interval = 1
	}
	if in.StartDate.IsZero() {
		template.StartDate = recurrence.Day(s.now())
	}
	if in.EndDate != nil {
		end := recurrence.Day(*in.EndDate)
		template.EndDate = &end
	}
	if err := validateTemplate(template); err != nil {
		return nil, err
	}
	template.NextOccurrence = recurrence.RuleOf(template).First(template.StartDate)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkReferences(tx, template); err != nil {
			return err
		}
		if err := tx.Create(template).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// UpdateRecurringTemplate applies a partial update. Changing any schedule
// field recomputes the next due date from the later of start date and today.
func (s *recurringTemplateService) UpdateRecurringTemplate(ctx context.Context, actor models.Actor, id string, in UpdateTemplateInput) (*models.RecurringCashFlowTemplate, error) {
	if err := requireTemplateManager(actor); err != nil {
		return nil, err
	}

	var template *models.RecurringCashFlowTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		template, err = loadTemplate(tx, actor.BoutiqueID, id)
		if err != nil {
			return err
		}

		scheduleChanged := in.Frequency != nil || in.Interval != nil || in.DayOfMonth != nil ||
			in.DayOfWeek != nil || in.StartDate != nil
		referencesChanged := in.CategoryID != nil || in.AccountID != nil

		if in.Label != nil {
			template.Label = strings.TrimSpace(*in.Label)
		}
		if in.Description != nil {
			template.Description = *in.Description
		}
		if in.CategoryID != nil {
			template.CategoryID = *in.CategoryID
		}
		if in.Amount != nil {
			template.Amount = *in.Amount
		}
		if in.TaxRate != nil {
			template.TaxRate = *in.TaxRate
		}
		if in.AccountID != nil {
			template.AccountID = *in.AccountID
		}
		if in.PaymentMethod != nil {
			template.PaymentMethod = *in.PaymentMethod
		}
		if in.Frequency != nil {
			template.Frequency = *in.Frequency
		}
		if in.Interval != nil {
			template.Interval = *in.Interval
		}
		if in.DayOfMonth != nil {
			dom := *in.DayOfMonth
			template.DayOfMonth = &dom
		}
		if in.DayOfWeek != nil {
			dow := *in.DayOfWeek
			template.DayOfWeek = &dow
		}
		if in.StartDate != nil {
			template.StartDate = recurrence.Day(*in.StartDate)
		}
		if in.ClearEndDate {
			template.EndDate = nil
		} else if in.EndDate != nil {
			end := recurrence.Day(*in.EndDate)
			template.EndDate = &end
		}
		if in.AutoValidate != nil {
			template.AutoValidate = *in.AutoValidate
		}

		if err := validateTemplate(template); err != nil {
			return err
		}
		if referencesChanged {
			if err := s.checkReferences(tx, template); err != nil {
				return err
			}
		}
		if scheduleChanged {
			template.NextOccurrence = s.realign(template)
		}

		if err := tx.Model(&models.RecurringCashFlowTemplate{}).
			Where("id = ?", template.ID).
			Updates(map[string]interface{}{
				"label":           template.Label,
				"description":     template.Description,
				"category_id":     template.CategoryID,
				"amount":          template.Amount,
				"tax_rate":        template.TaxRate,
				"account_id":      template.AccountID,
				"payment_method":  template.PaymentMethod,
				"frequency":       template.Frequency,
				"interval":        template.Interval,
				"day_of_month":    template.DayOfMonth,
				"day_of_week":     template.DayOfWeek,
				"start_date":      template.StartDate,
				"end_date":        template.EndDate,
				"next_occurrence": template.NextOccurrence,
				"auto_validate":   template.AutoValidate,
				"updated_at":      s.now(),
			}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		template, err = loadTemplate(tx, actor.BoutiqueID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// ToggleRecurringTemplate flips a template between active and inactive.
// Reactivation never back-fills: a due date in the past moves to today.
func (s *recurringTemplateService) ToggleRecurringTemplate(ctx context.Context, actor models.Actor, id string) (*models.RecurringCashFlowTemplate, error) {
	if err := requireTemplateManager(actor); err != nil {
		return nil, err
	}

	var template *models.RecurringCashFlowTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		template, err = loadTemplate(tx, actor.BoutiqueID, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"is_active":  !template.IsActive,
			"updated_at": s.now(),
		}
		if !template.IsActive && template.NextOccurrence.Before(recurrence.Day(s.now())) {
			updates["next_occurrence"] = s.realign(template)
		}
		if err := tx.Model(&models.RecurringCashFlowTemplate{}).
			Where("id = ?", template.ID).
			Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		template, err = loadTemplate(tx, actor.BoutiqueID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

// GetRecurringTemplates returns a paginated list of the boutique's templates.
func (s *recurringTemplateService) GetRecurringTemplates(ctx context.Context, actor models.Actor, activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringCashFlowTemplate], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.RecurringCashFlowTemplate{}).Where("boutique_id = ?", actor.BoutiqueID)
	if activeOnly {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var templates []models.RecurringCashFlowTemplate
	if err := base.Scopes(pagination.Paginate(page)).
		Order("next_occurrence ASC").
		Order("label ASC").
		Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(templates, page, totalItems)
	return &result, nil
}

// GetRecurringTemplate retrieves a template with its next due dates.
func (s *recurringTemplateService) GetRecurringTemplate(ctx context.Context, actor models.Actor, id string) (*TemplateDetail, error) {
	template, err := loadTemplate(s.db.WithContext(ctx), actor.BoutiqueID, id)
	if err != nil {
		return nil, err
	}

	upcoming := []time.Time{}
	if template.IsActive {
		upcoming = recurrence.RuleOf(template).Upcoming(template.NextOccurrence, upcomingPreview, template.EndDate)
	}
	return &TemplateDetail{Template: template, Upcoming: upcoming}, nil
}

// realign returns the first occurrence on or after the later of the start
// date and today.
func (s *recurringTemplateService) realign(t *models.RecurringCashFlowTemplate) time.Time {
	from := t.StartDate
	if today := recurrence.Day(s.now()); today.After(from) {
		from = today
	}
	return recurrence.RuleOf(t).First(from)
}

func (s *recurringTemplateService) checkReferences(tx *gorm.DB, t *models.RecurringCashFlowTemplate) error {
	if _, err := s.ledger.RequireActiveAccount(tx, t.BoutiqueID, t.AccountID); err != nil {
		return err
	}
	_, err := s.categories.RequireMatchingCategory(tx, t.BoutiqueID, t.CategoryID, t.Type)
	return err
}

func validateTemplate(t *models.RecurringCashFlowTemplate) error {
	if t.Type != models.CashFlowTypeIncome && t.Type != models.CashFlowTypeExpense {
		return apperrors.WithMessage(apperrors.ErrInvalidCashFlowType, "recurring templates must be income or expense")
	}
	if t.Label == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "label is required")
	}
	if t.CategoryID == "" || t.AccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category and account are required")
	}
	if !t.Amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if err := validateTaxRate(t.TaxRate); err != nil {
		return err
	}
	if err := recurrence.RuleOf(t).Validate(); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidFrequencyRule, err.Error())
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
	}
	return nil
}

func requireTemplateManager(actor models.Actor) error {
	if !actor.Role.CanValidate() {
		return apperrors.WithMessage(apperrors.ErrForbidden, "only managers and admins can manage recurring templates")
	}
	return nil
}

func loadTemplate(db *gorm.DB, boutiqueID, id string) (*models.RecurringCashFlowTemplate, error) {
	var template models.RecurringCashFlowTemplate
	if err := db.Where("id = ? AND boutique_id = ?", id, boutiqueID).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &template, nil
}
