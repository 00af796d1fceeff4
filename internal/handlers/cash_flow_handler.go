package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/services"
	"treasury/internal/uuid"
)

// CashFlowHandler handles the cash flow workflow endpoints.
type CashFlowHandler struct {
	cashFlowService services.CashFlowServicer
}

// NewCashFlowHandler creates a new CashFlowHandler.
func NewCashFlowHandler(cashFlowService services.CashFlowServicer) *CashFlowHandler {
	return &CashFlowHandler{cashFlowService: cashFlowService}
}

// CreateCashFlowRequest represents the request payload for creating a cash flow.
// A transfer needs destination_account_id and ignores the category.
type CreateCashFlowRequest struct {
	Type                 models.CashFlowType `json:"type" binding:"required,cash_flow_type"`
	CategoryID           *string             `json:"category_id" binding:"omitempty,uuid"`
	Label                string              `json:"label" binding:"max=255"`
	Description          string              `json:"description" binding:"max=1000"`
	Amount               decimal.Decimal     `json:"amount" swaggertype:"string" binding:"gt=0"`
	TaxRate              decimal.Decimal     `json:"tax_rate" swaggertype:"string" binding:"gte=0,lte=100"`
	AccountID            string              `json:"account_id" binding:"required,uuid"`
	DestinationAccountID *string             `json:"destination_account_id" binding:"omitempty,uuid"`
	Date                 *string             `json:"date"`
	PaymentMethod        string              `json:"payment_method" binding:"max=50"`
	Reference            string              `json:"reference" binding:"max=100"`
	SourceType           models.SourceType   `json:"source_type" binding:"omitempty,source_type"`
	SourceID             *string             `json:"source_id" binding:"omitempty,max=100"`
}

// UpdateCashFlowRequest is a partial update of a draft cash flow.
type UpdateCashFlowRequest struct {
	CategoryID    *string          `json:"category_id" binding:"omitempty,uuid"`
	Label         *string          `json:"label" binding:"omitempty,min=1,max=255"`
	Description   *string          `json:"description" binding:"omitempty,max=1000"`
	Amount        *decimal.Decimal `json:"amount" swaggertype:"string" binding:"omitempty,gt=0"`
	TaxRate       *decimal.Decimal `json:"tax_rate" swaggertype:"string" binding:"omitempty,gte=0,lte=100"`
	AccountID     *string          `json:"account_id" binding:"omitempty,uuid"`
	Date          *string          `json:"date"`
	PaymentMethod *string          `json:"payment_method" binding:"omitempty,max=50"`
	Reference     *string          `json:"reference" binding:"omitempty,max=100"`
}

// RejectCashFlowRequest carries the mandatory rejection reason.
type RejectCashFlowRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ReconcileCashFlowRequest carries the bank statement line a cash flow matches.
type ReconcileCashFlowRequest struct {
	BankStatementReference string `json:"bank_statement_reference" binding:"omitempty,bank_reference"`
}

// ReconcileBatchRequest reconciles several approved cash flows at once.
type ReconcileBatchRequest struct {
	IDs                    []string `json:"ids" binding:"required,min=1,max=500,dive,uuid"`
	BankStatementReference string   `json:"bank_statement_reference" binding:"omitempty,bank_reference"`
}

// ReverseCashFlowRequest carries the reversal reason and optional source document.
type ReverseCashFlowRequest struct {
	Reason     string            `json:"reason" binding:"required,max=500"`
	SourceType models.SourceType `json:"source_type" binding:"omitempty,source_type"`
	SourceID   *string           `json:"source_id" binding:"omitempty,max=100"`
}

// CreateTransferRequest represents the request payload for a transfer between accounts.
type CreateTransferRequest struct {
	SourceAccountID      string          `json:"source_account_id" binding:"required,uuid"`
	DestinationAccountID string          `json:"destination_account_id" binding:"required,uuid"`
	Amount               decimal.Decimal `json:"amount" swaggertype:"string" binding:"gt=0"`
	Label                string          `json:"label" binding:"max=255"`
	Description          string          `json:"description" binding:"max=1000"`
	Date                 *string         `json:"date"`
	Reference            string          `json:"reference" binding:"max=100"`
}

// CreateCashFlow handles the creation of a draft cash flow
// @Summary     Create a cash flow
// @Description Create a draft income or expense. A transfer is created approved and moves the balances immediately.
// @Tags        cash-flows
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCashFlowRequest true "Cash flow details"
// @Success     201 {object} models.CashFlow "Cash flow created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     409 {object} ErrorResponse "Source document already recorded"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows [post]
func (h *CashFlowHandler) CreateCashFlow(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCashFlowRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseOptionalDate(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	in := services.CreateCashFlowInput{
		Type:                 req.Type,
		CategoryID:           req.CategoryID,
		Label:                req.Label,
		Description:          req.Description,
		Amount:               req.Amount,
		TaxRate:              req.TaxRate,
		AccountID:            req.AccountID,
		DestinationAccountID: req.DestinationAccountID,
		PaymentMethod:        req.PaymentMethod,
		Reference:            req.Reference,
		SourceType:           req.SourceType,
		SourceID:             req.SourceID,
	}
	if date != nil {
		in.Date = *date
	}

	flow, err := h.cashFlowService.CreateCashFlow(c.Request.Context(), actor, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, flow)
}

// CreateTransfer handles a transfer between two accounts
// @Summary     Create a transfer
// @Description Move funds between two active accounts of the boutique. Transfers are approved on creation.
// @Tags        cash-flows
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransferRequest true "Transfer details"
// @Success     201 {object} services.TransferResult "Transfer created"
// @Failure     400 {object} ErrorResponse "Invalid input, same account or inactive account"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/transfer [post]
func (h *CashFlowHandler) CreateTransfer(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransferRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseOptionalDate(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	in := services.TransferInput{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		Label:                req.Label,
		Description:          req.Description,
		Reference:            req.Reference,
	}
	if date != nil {
		in.Date = *date
	}

	result, err := h.cashFlowService.CreateTransfer(c.Request.Context(), actor, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// UpdateCashFlow handles a partial update of a draft
// @Summary     Update a draft cash flow
// @Description Only the creator may update a cash flow, and only while it is a draft
// @Tags        cash-flows
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Cash flow ID"
// @Param       request body UpdateCashFlowRequest true "Fields to update"
// @Success     200 {object} models.CashFlow "Cash flow updated"
// @Failure     400 {object} ErrorResponse "Invalid input or not a draft"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not the creator"
// @Failure     404 {object} ErrorResponse "Cash flow not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/{id} [put]
func (h *CashFlowHandler) UpdateCashFlow(c *gin.Context) {
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

	var req UpdateCashFlowRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseOptionalDate(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	flow, err := h.cashFlowService.UpdateCashFlow(c.Request.Context(), actor, id, services.UpdateCashFlowInput{
		CategoryID:    req.CategoryID,
		Label:         req.Label,
		Description:   req.Description,
		Amount:        req.Amount,
		TaxRate:       req.TaxRate,
		AccountID:     req.AccountID,
		Date:          date,
		PaymentMethod: req.PaymentMethod,
		Reference:     req.Reference,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, flow)
}

// DeleteCashFlow handles the deletion of a draft
// @Summary     Delete a draft cash flow
// @Tags        cash-flows
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Cash flow ID"
// @Success     204 "Cash flow deleted"
// @Failure     400 {object} ErrorResponse "Not a draft"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not the creator"
// @Failure     404 {object} ErrorResponse "Cash flow not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/{id} [delete]
func (h *CashFlowHandler) DeleteCashFlow(c *gin.Context) {
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

	if err := h.cashFlowService.DeleteCashFlow(c.Request.Context(), actor, id); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitCashFlow moves a draft to pending
// @Summary     Submit a cash flow for approval
// @Description Moves a draft to pending. Expenses report a budget warning when they push their category over its alert threshold.
// @Tags        cash-flows
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Cash flow ID"
// @Success     200 {object} services.SubmitResult "Cash flow submitted"
// @Failure     400 {object} ErrorResponse "Invalid state transition"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Cash flow not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/{id}/submit [post]
func (h *CashFlowHandler) SubmitCashFlow(c *gin.Context) {
	h.transition(c, func(actor models.Actor, id string) (interface{}, error) {
		return h.cashFlowService.SubmitCashFlow(c.Request.Context(), actor, id)
	})
}

// ApproveCashFlow approves a pending cash flow and applies it to the ledger
// @Summary     Approve a cash flow
// @Tags        cash-flows
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Cash flow ID"
// @Success     200 {object} services.ApproveResult "Cash flow approved"
// @Failure     400 {object} ErrorResponse "Invalid state transition or inactive account"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Role may not validate"
// @Failure     404 {object} ErrorResponse "Cash flow not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/{id}/approve [post]
func (h *CashFlowHandler) ApproveCashFlow(c *gin.Context) {
	h.transition(c, func(actor models.Actor, id string) (interface{}, error) {
		return h.cashFlowService.ApproveCashFlow(c.Request.Context(), actor, id)
	})
}

// RejectCashFlow rejects a pending cash flow
// @Summary     Reject a cash flow
// @Tags        cash-flows
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Cash flow ID"
// @Param       request body RejectCashFlowRequest true "Rejection reason"
// @Success     200 {object} models.CashFlow "Cash flow rejected"
// @Failure     400 {object} ErrorResponse "Invalid input or state transition"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Role may not validate"
// @Failure     404 {object} ErrorResponse "Cash flow not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/{id}/reject [post]
func (h *CashFlowHandler) RejectCashFlow(c *gin.Context) {
	var req RejectCashFlowRequest
	h.transitionWithBody(c, &req, func(actor models.Actor, id string) (interface{}, error) {
		return h.cashFlowService.RejectCashFlow(c.Request.Context(), actor, id, req.Reason)
	})
}

// ReconcileCashFlow marks an approved cash flow as matched to the bank statement
// @Summary     Reconcile a cash flow
// @Tags        cash-flows
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Cash flow ID"
// @Param       request body ReconcileCashFlowRequest false "Bank statement reference"
// @Success     200 {object} models.CashFlow "Cash flow reconciled"
// @Failure     400 {object} ErrorResponse "Not approved or already reconciled"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Role may not validate"
// @Failure     404 {object} ErrorResponse "Cash flow not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/{id}/reconcile [post]
func (h *CashFlowHandler) ReconcileCashFlow(c *gin.Context) {
	var req ReconcileCashFlowRequest
	h.transitionWithBody(c, &req, func(actor models.Actor, id string) (interface{}, error) {
		return h.cashFlowService.ReconcileCashFlow(c.Request.Context(), actor, id, req.BankStatementReference)
	})
}

// ReconcileCashFlowsBatch reconciles several cash flows, all or none
// @Summary     Reconcile cash flows in batch
// @Description Every cash flow is validated before any is modified. One invalid id fails the whole batch.
// @Tags        cash-flows
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ReconcileBatchRequest true "Cash flow ids and bank statement reference"
// @Success     200 {object} map[string]interface{} "Reconciled cash flows"
// @Failure     400 {object} ErrorResponse "A cash flow is not approved or already reconciled"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Role may not validate"
// @Failure     404 {object} ErrorResponse "Cash flow not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/reconcile-batch [post]
func (h *CashFlowHandler) ReconcileCashFlowsBatch(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReconcileBatchRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	flows, err := h.cashFlowService.ReconcileCashFlowsBatch(c.Request.Context(), actor, req.IDs, req.BankStatementReference)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cash_flows": flows, "count": len(flows)})
}

// ReverseCashFlow cancels an approved cash flow with an opposite movement
// @Summary     Reverse a cash flow
// @Description Creates an approved reversal that cancels the original's effect on the balances. The original stays approved and is marked reversed.
// @Tags        cash-flows
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Cash flow ID"
// @Param       request body ReverseCashFlowRequest true "Reversal reason"
// @Success     201 {object} services.ReverseResult "Reversal created"
// @Failure     400 {object} ErrorResponse "Not approved, already reversed or a reversal itself"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Role may not validate"
// @Failure     404 {object} ErrorResponse "Cash flow not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/{id}/reverse [post]
func (h *CashFlowHandler) ReverseCashFlow(c *gin.Context) {
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

	var req ReverseCashFlowRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.cashFlowService.ReverseCashFlow(c.Request.Context(), actor, id, services.ReverseInput{
		Reason:     req.Reason,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetCashFlow returns a cash flow with its history
// @Summary     Get a cash flow
// @Tags        cash-flows
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Cash flow ID"
// @Success     200 {object} services.CashFlowDetail "Cash flow and history"
// @Failure     400 {object} ErrorResponse "Invalid cash flow ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Cash flow not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/{id} [get]
func (h *CashFlowHandler) GetCashFlow(c *gin.Context) {
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

	detail, err := h.cashFlowService.GetCashFlow(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetCashFlows lists cash flows
// @Summary     List cash flows
// @Description Paginated list of the boutique's cash flows, newest first
// @Tags        cash-flows
// @Produce     json
// @Security    BearerAuth
// @Param       page                  query int    false "Page number (default 1)"
// @Param       page_size             query int    false "Items per page (default 20, max 100)"
// @Param       type                  query string false "income, expense or transfer"
// @Param       status                query string false "draft, pending, approved or rejected"
// @Param       account_id            query string false "Source or destination account"
// @Param       category_id           query string false "Category"
// @Param       recurring_template_id query string false "Generating template"
// @Param       is_reconciled         query bool   false "Reconciliation state"
// @Param       from_date             query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date               query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} pagination.PageResponse[models.CashFlow] "Paginated cash flows"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows [get]
func (h *CashFlowHandler) GetCashFlows(c *gin.Context) {
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

	filter, err := parseCashFlowFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.cashFlowService.GetCashFlows(c.Request.Context(), actor, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPendingCashFlows lists cash flows awaiting approval
// @Summary     List pending cash flows
// @Tags        cash-flows
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.CashFlow] "Paginated pending cash flows"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/pending [get]
func (h *CashFlowHandler) GetPendingCashFlows(c *gin.Context) {
	h.list(c, h.cashFlowService.GetPendingCashFlows)
}

// GetUnreconciledCashFlows lists approved cash flows not yet reconciled
// @Summary     List unreconciled cash flows
// @Tags        cash-flows
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.CashFlow] "Paginated unreconciled cash flows"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/unreconciled [get]
func (h *CashFlowHandler) GetUnreconciledCashFlows(c *gin.Context) {
	h.list(c, h.cashFlowService.GetUnreconciledCashFlows)
}

// ExportCashFlows streams the filtered cash flows as CSV
// @Summary     Export cash flows
// @Tags        cash-flows
// @Produce     text/csv
// @Security    BearerAuth
// @Param       type        query string false "income, expense or transfer"
// @Param       status      query string false "draft, pending, approved or rejected"
// @Param       account_id  query string false "Source or destination account"
// @Param       category_id query string false "Category"
// @Param       from_date   query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date     query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {file} file "CSV export"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cash-flows/export [get]
func (h *CashFlowHandler) ExportCashFlows(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseCashFlowFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="cash-flows.csv"`)
	if err := h.cashFlowService.ExportCashFlows(c.Request.Context(), actor, filter, c.Writer); err != nil {
		if c.Writer.Written() {
			// Headers are gone; the truncated body is all the client gets.
			_ = c.Error(err)
			return
		}
		respondWithError(c, err)
	}
}

// transition runs a body-less workflow command on the cash flow in the path.
func (h *CashFlowHandler) transition(c *gin.Context, run func(actor models.Actor, id string) (interface{}, error)) {
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

	result, err := run(actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// transitionWithBody binds req before running the command. An empty body is
// accepted and left to the binding tags of req.
func (h *CashFlowHandler) transitionWithBody(c *gin.Context, req interface{}, run func(actor models.Actor, id string) (interface{}, error)) {
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, req); err != nil {
			respondWithError(c, err)
			return
		}
	} else if err := binding.Validator.ValidateStruct(req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "request body is required"))
		return
	}
	h.transition(c, run)
}

func (h *CashFlowHandler) list(c *gin.Context, query func(ctx context.Context, actor models.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error)) {
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

	result, err := query(c.Request.Context(), actor, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseCashFlowFilter(c *gin.Context) (services.CashFlowFilter, error) {
	var filter services.CashFlowFilter

	if v := c.Query("type"); v != "" {
		t := models.CashFlowType(v)
		switch t {
		case models.CashFlowTypeIncome, models.CashFlowTypeExpense, models.CashFlowTypeTransfer:
			filter.Type = &t
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be income, expense or transfer")
		}
	}

	if v := c.Query("status"); v != "" {
		s := models.CashFlowStatus(v)
		switch s {
		case models.CashFlowStatusDraft, models.CashFlowStatusPending,
			models.CashFlowStatusApproved, models.CashFlowStatusRejected:
			filter.Status = &s
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid status, must be draft, pending, approved or rejected")
		}
	}

	for param, dst := range map[string]**string{
		"account_id":            &filter.AccountID,
		"category_id":           &filter.CategoryID,
		"recurring_template_id": &filter.RecurringTemplateID,
	} {
		if v := c.Query(param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid "+param)
			}
			*dst = &id
		}
	}

	if v := c.Query("is_reconciled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid is_reconciled")
		}
		filter.IsReconciled = &b
	}

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	if filter.FromDate != nil && filter.ToDate != nil && filter.ToDate.Before(*filter.FromDate) {
		return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date must not be before from_date")
	}

	return filter, nil
}
