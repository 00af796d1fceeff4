package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/services"
)

// RecurringTemplateHandler handles recurring template management.
type RecurringTemplateHandler struct {
	templateService services.RecurringTemplateServicer
}

// NewRecurringTemplateHandler creates a new RecurringTemplateHandler.
func NewRecurringTemplateHandler(templateService services.RecurringTemplateServicer) *RecurringTemplateHandler {
	return &RecurringTemplateHandler{templateService: templateService}
}

// CreateTemplateRequest represents the request payload for a new recurring template.
type CreateTemplateRequest struct {
	Label         string              `json:"label" binding:"required,max=255"`
	Description   string              `json:"description" binding:"max=1000"`
	Type          models.CashFlowType `json:"type" binding:"required,template_type"`
	CategoryID    string              `json:"category_id" binding:"required,uuid"`
	Amount        decimal.Decimal     `json:"amount" swaggertype:"string" binding:"gt=0"`
	TaxRate       decimal.Decimal     `json:"tax_rate" swaggertype:"string" binding:"gte=0,lte=100"`
	AccountID     string              `json:"account_id" binding:"required,uuid"`
	PaymentMethod string              `json:"payment_method" binding:"max=50"`
	Frequency     models.Frequency    `json:"frequency" binding:"required,frequency"`
	Interval      int                 `json:"interval" binding:"omitempty,min=1,max=366"`
	DayOfMonth    *int                `json:"day_of_month" binding:"omitempty,day_of_month"`
	DayOfWeek     *int                `json:"day_of_week" binding:"omitempty,day_of_week"`
	StartDate     *string             `json:"start_date"`
	EndDate       *string             `json:"end_date"`
	AutoValidate  bool                `json:"auto_validate"`
}

// UpdateTemplateRequest is a partial template update. Set clear_end_date to
// remove the end date.
type UpdateTemplateRequest struct {
	Label         *string           `json:"label" binding:"omitempty,min=1,max=255"`
	Description   *string           `json:"description" binding:"omitempty,max=1000"`
	CategoryID    *string           `json:"category_id" binding:"omitempty,uuid"`
	Amount        *decimal.Decimal  `json:"amount" swaggertype:"string" binding:"omitempty,gt=0"`
	TaxRate       *decimal.Decimal  `json:"tax_rate" swaggertype:"string" binding:"omitempty,gte=0,lte=100"`
	AccountID     *string           `json:"account_id" binding:"omitempty,uuid"`
	PaymentMethod *string           `json:"payment_method" binding:"omitempty,max=50"`
	Frequency     *models.Frequency `json:"frequency" binding:"omitempty,frequency"`
	Interval      *int              `json:"interval" binding:"omitempty,min=1,max=366"`
	DayOfMonth    *int              `json:"day_of_month" binding:"omitempty,day_of_month"`
	DayOfWeek     *int              `json:"day_of_week" binding:"omitempty,day_of_week"`
	StartDate     *string           `json:"start_date"`
	EndDate       *string           `json:"end_date"`
	ClearEndDate  bool              `json:"clear_end_date"`
	AutoValidate  *bool             `json:"auto_validate"`
}

// CreateRecurringTemplate handles the creation of a recurring template
// @Summary     Create a recurring template
// @Description Weekly templates need day_of_week (1=Monday..7=Sunday), monthly ones day_of_month (1-31, clamped to short months).
// @Tags        recurring-templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTemplateRequest true "Template details"
// @Success     201 {object} models.RecurringCashFlowTemplate "Template created"
// @Failure     400 {object} ErrorResponse "Invalid input or recurrence settings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Role may not manage templates"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-templates [post]
func (h *RecurringTemplateHandler) CreateRecurringTemplate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTemplateRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	start, err := parseOptionalDate(req.StartDate, "start_date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseOptionalDate(req.EndDate, "end_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	in := services.TemplateInput{
		Label:         req.Label,
		Description:   req.Description,
		Type:          req.Type,
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		TaxRate:       req.TaxRate,
		AccountID:     req.AccountID,
		PaymentMethod: req.PaymentMethod,
		Frequency:     req.Frequency,
		Interval:      req.Interval,
		DayOfMonth:    req.DayOfMonth,
		DayOfWeek:     req.DayOfWeek,
		EndDate:       end,
		AutoValidate:  req.AutoValidate,
	}
	if start != nil {
		in.StartDate = *start
	}

	template, err := h.templateService.CreateRecurringTemplate(c.Request.Context(), actor, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// UpdateRecurringTemplate handles a partial template update
// @Summary     Update a recurring template
// @Description Changing the schedule recomputes the next occurrence from today or the start date, whichever is later.
// @Tags        recurring-templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Template ID"
// @Param       request body UpdateTemplateRequest true "Fields to update"
// @Success     200 {object} models.RecurringCashFlowTemplate "Template updated"
// @Failure     400 {object} ErrorResponse "Invalid input or recurrence settings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Role may not manage templates"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-templates/{id} [put]
func (h *RecurringTemplateHandler) UpdateRecurringTemplate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTemplateRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	start, err := parseOptionalDate(req.StartDate, "start_date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseOptionalDate(req.EndDate, "end_date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if req.ClearEndDate && end != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_date and clear_end_date are mutually exclusive"))
		return
	}

	template, err := h.templateService.UpdateRecurringTemplate(c.Request.Context(), actor, id, services.UpdateTemplateInput{
		Label:         req.Label,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		TaxRate:       req.TaxRate,
		AccountID:     req.AccountID,
		PaymentMethod: req.PaymentMethod,
		Frequency:     req.Frequency,
		Interval:      req.Interval,
		DayOfMonth:    req.DayOfMonth,
		DayOfWeek:     req.DayOfWeek,
		StartDate:     start,
		EndDate:       end,
		ClearEndDate:  req.ClearEndDate,
		AutoValidate:  req.AutoValidate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// ToggleRecurringTemplate activates or deactivates a template
// @Summary     Toggle a recurring template
// @Description Deactivated templates are kept with their history. Reactivation never back-fills missed occurrences.
// @Tags        recurring-templates
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} models.RecurringCashFlowTemplate "Template toggled"
// @Failure     400 {object} ErrorResponse "Invalid template ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Role may not manage templates"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-templates/{id}/toggle [post]
func (h *RecurringTemplateHandler) ToggleRecurringTemplate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	template, err := h.templateService.ToggleRecurringTemplate(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// GetRecurringTemplates lists templates
// @Summary     List recurring templates
// @Tags        recurring-templates
// @Produce     json
// @Security    BearerAuth
// @Param       page        query int  false "Page number (default 1)"
// @Param       page_size   query int  false "Items per page (default 20, max 100)"
// @Param       active_only query bool false "Only active templates"
// @Success     200 {object} pagination.PageResponse[models.RecurringCashFlowTemplate] "Paginated templates"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-templates [get]
func (h *RecurringTemplateHandler) GetRecurringTemplates(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	activeOnly := false
	if v := c.Query("active_only"); v != "" {
		activeOnly, err = strconv.ParseBool(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid active_only"))
			return
		}
	}

	result, err := h.templateService.GetRecurringTemplates(c.Request.Context(), actor, activeOnly, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecurringTemplate returns a template and its next due dates
// @Summary     Get a recurring template
// @Tags        recurring-templates
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} services.TemplateDetail "Template and upcoming occurrences"
// @Failure     400 {object} ErrorResponse "Invalid template ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-templates/{id} [get]
func (h *RecurringTemplateHandler) GetRecurringTemplate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	detail, err := h.templateService.GetRecurringTemplate(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}
