package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/services"
)

// --- mock cash flow service ---

type mockCashFlowService struct {
	createCashFlowFn  func(actor models.Actor, in services.CreateCashFlowInput) (*models.CashFlow, error)
	updateCashFlowFn  func(actor models.Actor, id string, in services.UpdateCashFlowInput) (*models.CashFlow, error)
	deleteCashFlowFn  func(actor models.Actor, id string) error
	submitCashFlowFn  func(actor models.Actor, id string) (*services.SubmitResult, error)
	approveCashFlowFn func(actor models.Actor, id string) (*services.ApproveResult, error)
	rejectCashFlowFn  func(actor models.Actor, id, reason string) (*models.CashFlow, error)
	reconcileFn       func(actor models.Actor, id, ref string) (*models.CashFlow, error)
	reconcileBatchFn  func(actor models.Actor, ids []string, ref string) ([]models.CashFlow, error)
	reverseFn         func(actor models.Actor, id string, in services.ReverseInput) (*services.ReverseResult, error)
	createTransferFn  func(actor models.Actor, in services.TransferInput) (*services.TransferResult, error)
	getCashFlowFn     func(actor models.Actor, id string) (*services.CashFlowDetail, error)
	getCashFlowsFn    func(actor models.Actor, filter services.CashFlowFilter, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error)
	exportFn          func(actor models.Actor, filter services.CashFlowFilter, w io.Writer) error
}

func emptyPage() *pagination.PageResponse[models.CashFlow] {
	resp := pagination.NewPageResponse([]models.CashFlow{}, pagination.PageRequest{}, 0)
	return &resp
}

func (m *mockCashFlowService) CreateCashFlow(_ context.Context, actor models.Actor, in services.CreateCashFlowInput) (*models.CashFlow, error) {
	if m.createCashFlowFn != nil {
		return m.createCashFlowFn(actor, in)
	}
	return &models.CashFlow{}, nil
}

func (m *mockCashFlowService) UpdateCashFlow(_ context.Context, actor models.Actor, id string, in services.UpdateCashFlowInput) (*models.CashFlow, error) {
	if m.updateCashFlowFn != nil {
		return m.updateCashFlowFn(actor, id, in)
	}
	return &models.CashFlow{}, nil
}

func (m *mockCashFlowService) DeleteCashFlow(_ context.Context, actor models.Actor, id string) error {
	if m.deleteCashFlowFn != nil {
		return m.deleteCashFlowFn(actor, id)
	}
	return nil
}

func (m *mockCashFlowService) SubmitCashFlow(_ context.Context, actor models.Actor, id string) (*services.SubmitResult, error) {
	if m.submitCashFlowFn != nil {
		return m.submitCashFlowFn(actor, id)
	}
	return &services.SubmitResult{CashFlow: &models.CashFlow{}}, nil
}

func (m *mockCashFlowService) ApproveCashFlow(_ context.Context, actor models.Actor, id string) (*services.ApproveResult, error) {
	if m.approveCashFlowFn != nil {
		return m.approveCashFlowFn(actor, id)
	}
	return &services.ApproveResult{CashFlow: &models.CashFlow{}}, nil
}

func (m *mockCashFlowService) RejectCashFlow(_ context.Context, actor models.Actor, id, reason string) (*models.CashFlow, error) {
	if m.rejectCashFlowFn != nil {
		return m.rejectCashFlowFn(actor, id, reason)
	}
	return &models.CashFlow{}, nil
}

func (m *mockCashFlowService) ReconcileCashFlow(_ context.Context, actor models.Actor, id, ref string) (*models.CashFlow, error) {
	if m.reconcileFn != nil {
		return m.reconcileFn(actor, id, ref)
	}
	return &models.CashFlow{}, nil
}

func (m *mockCashFlowService) ReconcileCashFlowsBatch(_ context.Context, actor models.Actor, ids []string, ref string) ([]models.CashFlow, error) {
	if m.reconcileBatchFn != nil {
		return m.reconcileBatchFn(actor, ids, ref)
	}
	return []models.CashFlow{}, nil
}

func (m *mockCashFlowService) ReverseCashFlow(_ context.Context, actor models.Actor, id string, in services.ReverseInput) (*services.ReverseResult, error) {
	if m.reverseFn != nil {
		return m.reverseFn(actor, id, in)
	}
	return &services.ReverseResult{}, nil
}

func (m *mockCashFlowService) CreateTransfer(_ context.Context, actor models.Actor, in services.TransferInput) (*services.TransferResult, error) {
	if m.createTransferFn != nil {
		return m.createTransferFn(actor, in)
	}
	return &services.TransferResult{}, nil
}

func (m *mockCashFlowService) GetCashFlow(_ context.Context, actor models.Actor, id string) (*services.CashFlowDetail, error) {
	if m.getCashFlowFn != nil {
		return m.getCashFlowFn(actor, id)
	}
	return &services.CashFlowDetail{CashFlow: &models.CashFlow{}}, nil
}

func (m *mockCashFlowService) GetCashFlows(_ context.Context, actor models.Actor, filter services.CashFlowFilter, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error) {
	if m.getCashFlowsFn != nil {
		return m.getCashFlowsFn(actor, filter, page)
	}
	return emptyPage(), nil
}

func (m *mockCashFlowService) GetPendingCashFlows(_ context.Context, _ models.Actor, _ pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error) {
	return emptyPage(), nil
}

func (m *mockCashFlowService) GetUnreconciledCashFlows(_ context.Context, _ models.Actor, _ pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error) {
	return emptyPage(), nil
}

func (m *mockCashFlowService) ExportCashFlows(_ context.Context, actor models.Actor, filter services.CashFlowFilter, w io.Writer) error {
	if m.exportFn != nil {
		return m.exportFn(actor, filter, w)
	}
	return nil
}

var _ services.CashFlowServicer = (*mockCashFlowService)(nil)

func setupCashFlowRouter(handler *CashFlowHandler, role models.Role) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectActor(role))
	auth.POST("/cash-flows", handler.CreateCashFlow)
	auth.GET("/cash-flows", handler.GetCashFlows)
	auth.GET("/cash-flows/pending", handler.GetPendingCashFlows)
	auth.GET("/cash-flows/unreconciled", handler.GetUnreconciledCashFlows)
	auth.GET("/cash-flows/export", handler.ExportCashFlows)
	auth.POST("/cash-flows/transfer", handler.CreateTransfer)
	auth.POST("/cash-flows/reconcile-batch", handler.ReconcileCashFlowsBatch)
	auth.GET("/cash-flows/:id", handler.GetCashFlow)
	auth.PUT("/cash-flows/:id", handler.UpdateCashFlow)
	auth.DELETE("/cash-flows/:id", handler.DeleteCashFlow)
	auth.POST("/cash-flows/:id/submit", handler.SubmitCashFlow)
	auth.POST("/cash-flows/:id/approve", handler.ApproveCashFlow)
	auth.POST("/cash-flows/:id/reject", handler.RejectCashFlow)
	auth.POST("/cash-flows/:id/reconcile", handler.ReconcileCashFlow)
	auth.POST("/cash-flows/:id/reverse", handler.ReverseCashFlow)
	return r
}

func TestCashFlowHandler_CreateCashFlow(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.CreateCashFlowInput
		var gotActor models.Actor
		svc := &mockCashFlowService{
			createCashFlowFn: func(actor models.Actor, in services.CreateCashFlowInput) (*models.CashFlow, error) {
				got, gotActor = in, actor
				return &models.CashFlow{
					Type:   in.Type,
					Status: models.CashFlowStatusDraft,
					Amount: in.Amount,
					Label:  in.Label,
				}, nil
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "POST", "/cash-flows",
			`{"type":"expense","category_id":"`+testCategoryID+`","label":"Electricity","amount":"125.50","account_id":"`+testAccountID+`","date":"2025-03-10"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.Amount.Equal(decimal.RequireFromString("125.50")) {
			t.Errorf("expected amount 125.50, got %s", got.Amount)
		}
		if got.Date.Format("2006-01-02") != "2025-03-10" {
			t.Errorf("expected date 2025-03-10, got %s", got.Date)
		}
		if !gotActor.Principal.Is(testUserID) || gotActor.BoutiqueID != testBoutiqueID || gotActor.Role != models.RoleStaff {
			t.Errorf("unexpected actor %+v", gotActor)
		}
		result := parseJSON(t, rec)
		if result["status"] != "draft" || result["amount"] != "125.5" {
			t.Errorf("unexpected body %v", result)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing type", `{"label":"x","amount":"10","account_id":"` + testAccountID + `"}`},
		{"invalid type", `{"type":"investment","label":"x","amount":"10","account_id":"` + testAccountID + `"}`},
		{"zero amount", `{"type":"income","label":"x","amount":"0","account_id":"` + testAccountID + `"}`},
		{"negative amount", `{"type":"income","label":"x","amount":-5,"account_id":"` + testAccountID + `"}`},
		{"tax rate over 100", `{"type":"income","label":"x","amount":"10","tax_rate":"101","account_id":"` + testAccountID + `"}`},
		{"account not a uuid", `{"type":"income","label":"x","amount":"10","account_id":"42"}`},
		{"unknown source type", `{"type":"income","label":"x","amount":"10","account_id":"` + testAccountID + `","source_type":"invoice"}`},
		{"bad date", `{"type":"income","label":"x","amount":"10","account_id":"` + testAccountID + `","date":"10/03/2025"}`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			called := false
			svc := &mockCashFlowService{
				createCashFlowFn: func(models.Actor, services.CreateCashFlowInput) (*models.CashFlow, error) {
					called = true
					return &models.CashFlow{}, nil
				},
			}
			r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

			rec := doRequest(r, "POST", "/cash-flows", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
			if called {
				t.Error("service must not be called on invalid input")
			}
		})
	}

	t.Run("returns 409 on duplicate source reference", func(t *testing.T) {
		svc := &mockCashFlowService{
			createCashFlowFn: func(models.Actor, services.CreateCashFlowInput) (*models.CashFlow, error) {
				return nil, apperrors.ErrDuplicateSourceRef
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "POST", "/cash-flows",
			`{"type":"income","category_id":"`+testCategoryID+`","label":"Sale","amount":"10","account_id":"`+testAccountID+`","source_type":"sale","source_id":"S-1"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_SOURCE_REFERENCE")
	})
}

func TestCashFlowHandler_Transitions(t *testing.T) {
	t.Run("submit returns budget warning", func(t *testing.T) {
		svc := &mockCashFlowService{
			submitCashFlowFn: func(_ models.Actor, id string) (*services.SubmitResult, error) {
				if id != testFlowID {
					t.Errorf("expected id %s, got %s", testFlowID, id)
				}
				return &services.SubmitResult{
					CashFlow:      &models.CashFlow{Status: models.CashFlowStatusPending},
					BudgetWarning: &services.BudgetWarning{Percentage: decimal.NewFromInt(85), ThresholdPct: 80},
				}, nil
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "POST", "/cash-flows/"+testFlowID+"/submit", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		warning := parseJSON(t, rec)["budget_warning"].(map[string]interface{})
		if warning["percentage"] != "85" {
			t.Errorf("expected percentage 85, got %v", warning["percentage"])
		}
	})

	t.Run("approve maps forbidden", func(t *testing.T) {
		svc := &mockCashFlowService{
			approveCashFlowFn: func(actor models.Actor, _ string) (*services.ApproveResult, error) {
				if actor.Role.CanValidate() {
					t.Error("expected a staff actor")
				}
				return nil, apperrors.ErrForbidden
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "POST", "/cash-flows/"+testFlowID+"/approve", "")

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "FORBIDDEN")
	})

	t.Run("approve maps concurrent modification", func(t *testing.T) {
		svc := &mockCashFlowService{
			approveCashFlowFn: func(models.Actor, string) (*services.ApproveResult, error) {
				return nil, apperrors.ErrConflict
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleManager)

		rec := doRequest(r, "POST", "/cash-flows/"+testFlowID+"/approve", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		r := setupCashFlowRouter(NewCashFlowHandler(&mockCashFlowService{}), models.RoleManager)

		for _, body := range []string{"", `{}`, `{"reason":""}`} {
			rec := doRequest(r, "POST", "/cash-flows/"+testFlowID+"/reject", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %q: expected 400, got %d", body, rec.Code)
			}
		}
	})

	t.Run("reject passes the reason", func(t *testing.T) {
		var gotReason string
		svc := &mockCashFlowService{
			rejectCashFlowFn: func(_ models.Actor, _ string, reason string) (*models.CashFlow, error) {
				gotReason = reason
				return &models.CashFlow{Status: models.CashFlowStatusRejected}, nil
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleManager)

		rec := doRequest(r, "POST", "/cash-flows/"+testFlowID+"/reject", `{"reason":"missing receipt"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotReason != "missing receipt" {
			t.Errorf("expected reason to be passed, got %q", gotReason)
		}
	})

	t.Run("reconcile accepts an empty body", func(t *testing.T) {
		called := false
		svc := &mockCashFlowService{
			reconcileFn: func(_ models.Actor, _ string, ref string) (*models.CashFlow, error) {
				called = true
				if ref != "" {
					t.Errorf("expected no reference, got %q", ref)
				}
				return &models.CashFlow{IsReconciled: true}, nil
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleManager)

		rec := doRequest(r, "POST", "/cash-flows/"+testFlowID+"/reconcile", "")

		if rec.Code != http.StatusOK || !called {
			t.Fatalf("expected 200 and a service call, got %d", rec.Code)
		}
	})

	t.Run("invalid path id", func(t *testing.T) {
		r := setupCashFlowRouter(NewCashFlowHandler(&mockCashFlowService{}), models.RoleManager)

		rec := doRequest(r, "POST", "/cash-flows/42/approve", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("reverse returns 201", func(t *testing.T) {
		var got services.ReverseInput
		svc := &mockCashFlowService{
			reverseFn: func(_ models.Actor, _ string, in services.ReverseInput) (*services.ReverseResult, error) {
				got = in
				return &services.ReverseResult{
					Original: &models.CashFlow{IsReversed: true},
					Reversal: &models.CashFlow{IsReversal: true},
				}, nil
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleAdmin)

		rec := doRequest(r, "POST", "/cash-flows/"+testFlowID+"/reverse", `{"reason":"sale refunded","source_type":"sale","source_id":"S-9"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Reason != "sale refunded" || got.SourceType != models.SourceTypeSale || got.SourceID == nil || *got.SourceID != "S-9" {
			t.Errorf("unexpected input %+v", got)
		}
	})

	t.Run("reverse maps already reversed", func(t *testing.T) {
		svc := &mockCashFlowService{
			reverseFn: func(models.Actor, string, services.ReverseInput) (*services.ReverseResult, error) {
				return nil, apperrors.ErrAlreadyReversed
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleAdmin)

		rec := doRequest(r, "POST", "/cash-flows/"+testFlowID+"/reverse", `{"reason":"twice"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ALREADY_REVERSED")
	})
}

func TestCashFlowHandler_ReconcileBatch(t *testing.T) {
	t.Run("returns reconciled flows", func(t *testing.T) {
		var gotIDs []string
		svc := &mockCashFlowService{
			reconcileBatchFn: func(_ models.Actor, ids []string, ref string) ([]models.CashFlow, error) {
				gotIDs = ids
				return make([]models.CashFlow, len(ids)), nil
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleManager)

		rec := doRequest(r, "POST", "/cash-flows/reconcile-batch",
			`{"ids":["`+testFlowID+`","`+testTemplateID+`"],"bank_statement_reference":"STMT-2025-03"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(gotIDs) != 2 || parseJSON(t, rec)["count"].(float64) != 2 {
			t.Errorf("expected 2 reconciled flows, got %v", gotIDs)
		}
	})

	t.Run("rejects empty and malformed ids", func(t *testing.T) {
		r := setupCashFlowRouter(NewCashFlowHandler(&mockCashFlowService{}), models.RoleManager)

		for _, body := range []string{`{"ids":[]}`, `{"ids":["nope"]}`, `{}`} {
			rec := doRequest(r, "POST", "/cash-flows/reconcile-batch", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %s: expected 400, got %d", body, rec.Code)
			}
		}
	})

	t.Run("maps not found", func(t *testing.T) {
		svc := &mockCashFlowService{
			reconcileBatchFn: func(models.Actor, []string, string) ([]models.CashFlow, error) {
				return nil, apperrors.WithMessage(apperrors.ErrCashFlowNotFound, "cash flow "+testFlowID+" not found")
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleManager)

		rec := doRequest(r, "POST", "/cash-flows/reconcile-batch", `{"ids":["`+testFlowID+`"]}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestCashFlowHandler_CreateTransfer(t *testing.T) {
	t.Run("returns 201 with balances", func(t *testing.T) {
		svc := &mockCashFlowService{
			createTransferFn: func(_ models.Actor, in services.TransferInput) (*services.TransferResult, error) {
				return &services.TransferResult{
					CashFlow:           &models.CashFlow{Type: models.CashFlowTypeTransfer, Amount: in.Amount},
					SourceBalance:      decimal.NewFromInt(700),
					DestinationBalance: decimal.NewFromInt(300),
				}, nil
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "POST", "/cash-flows/transfer",
			`{"source_account_id":"`+testAccountID+`","destination_account_id":"`+testAccount2ID+`","amount":"300"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["source_balance"] != "700" {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("maps same account", func(t *testing.T) {
		svc := &mockCashFlowService{
			createTransferFn: func(models.Actor, services.TransferInput) (*services.TransferResult, error) {
				return nil, apperrors.ErrSameAccountTransfer
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "POST", "/cash-flows/transfer",
			`{"source_account_id":"`+testAccountID+`","destination_account_id":"`+testAccountID+`","amount":"300"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SAME_ACCOUNT_TRANSFER")
	})
}

func TestCashFlowHandler_Queries(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		var got services.CashFlowFilter
		var gotPage pagination.PageRequest
		svc := &mockCashFlowService{
			getCashFlowsFn: func(_ models.Actor, filter services.CashFlowFilter, page pagination.PageRequest) (*pagination.PageResponse[models.CashFlow], error) {
				got, gotPage = filter, page
				return emptyPage(), nil
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "GET", "/cash-flows?type=expense&status=approved&account_id="+testAccountID+
			"&is_reconciled=false&from_date=2025-03-01&to_date=2025-03-31&page=2&page_size=10", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Type == nil || *got.Type != models.CashFlowTypeExpense {
			t.Errorf("expected type filter, got %v", got.Type)
		}
		if got.Status == nil || *got.Status != models.CashFlowStatusApproved {
			t.Errorf("expected status filter, got %v", got.Status)
		}
		if got.AccountID == nil || *got.AccountID != testAccountID {
			t.Errorf("expected account filter, got %v", got.AccountID)
		}
		if got.IsReconciled == nil || *got.IsReconciled {
			t.Errorf("expected is_reconciled=false, got %v", got.IsReconciled)
		}
		if got.FromDate == nil || got.ToDate == nil {
			t.Error("expected date range")
		}
		if gotPage.Page != 2 || gotPage.PageSize != 10 {
			t.Errorf("unexpected page %+v", gotPage)
		}
	})

	tests := []string{
		"/cash-flows?type=loan",
		"/cash-flows?status=void",
		"/cash-flows?account_id=7",
		"/cash-flows?is_reconciled=maybe",
		"/cash-flows?from_date=yesterday",
		"/cash-flows?from_date=2025-03-31&to_date=2025-03-01",
		"/cash-flows?page_size=1000",
	}
	for _, path := range tests {
		t.Run("returns 400 on "+path, func(t *testing.T) {
			r := setupCashFlowRouter(NewCashFlowHandler(&mockCashFlowService{}), models.RoleStaff)

			rec := doRequest(r, "GET", path, "")

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}

	t.Run("get returns history", func(t *testing.T) {
		svc := &mockCashFlowService{
			getCashFlowFn: func(models.Actor, string) (*services.CashFlowDetail, error) {
				return &services.CashFlowDetail{
					CashFlow: &models.CashFlow{Label: "Rent"},
					History:  []models.CashFlowHistory{{Action: models.HistoryActionCreated}},
				}, nil
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "GET", "/cash-flows/"+testFlowID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(parseJSON(t, rec)["history"].([]interface{})) != 1 {
			t.Errorf("expected one history row, got %s", rec.Body.String())
		}
	})

	t.Run("pending and unreconciled", func(t *testing.T) {
		r := setupCashFlowRouter(NewCashFlowHandler(&mockCashFlowService{}), models.RoleStaff)

		for _, path := range []string{"/cash-flows/pending", "/cash-flows/unreconciled"} {
			rec := doRequest(r, "GET", path, "")
			if rec.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", path, rec.Code)
			}
		}
	})

	t.Run("export streams csv", func(t *testing.T) {
		svc := &mockCashFlowService{
			exportFn: func(_ models.Actor, _ services.CashFlowFilter, w io.Writer) error {
				_, err := io.WriteString(w, "id,date\n1,2025-03-10\n")
				return err
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "GET", "/cash-flows/export?type=income", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
			t.Errorf("expected csv content type, got %s", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != "id,date\n1,2025-03-10\n" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
	})

	t.Run("delete returns 204", func(t *testing.T) {
		r := setupCashFlowRouter(NewCashFlowHandler(&mockCashFlowService{}), models.RoleStaff)

		rec := doRequest(r, "DELETE", "/cash-flows/"+testFlowID, "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("update maps not owner", func(t *testing.T) {
		svc := &mockCashFlowService{
			updateCashFlowFn: func(models.Actor, string, services.UpdateCashFlowInput) (*models.CashFlow, error) {
				return nil, apperrors.ErrNotOwner
			},
		}
		r := setupCashFlowRouter(NewCashFlowHandler(svc), models.RoleStaff)

		rec := doRequest(r, "PUT", "/cash-flows/"+testFlowID, `{"label":"Water"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NOT_OWNER")
	})
}

func TestCashFlowHandler_Unauthenticated(t *testing.T) {
	r := gin.New()
	handler := NewCashFlowHandler(&mockCashFlowService{})
	r.POST("/cash-flows", handler.CreateCashFlow)

	rec := doRequest(r, "POST", "/cash-flows", `{}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
}
