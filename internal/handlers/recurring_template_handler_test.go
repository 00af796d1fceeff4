package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "treasury/internal/errors"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/services"
)

type mockRecurringTemplateService struct {
	createFn func(actor models.Actor, in services.TemplateInput) (*models.RecurringCashFlowTemplate, error)
	updateFn func(actor models.Actor, id string, in services.UpdateTemplateInput) (*models.RecurringCashFlowTemplate, error)
	toggleFn func(actor models.Actor, id string) (*models.RecurringCashFlowTemplate, error)
	listFn   func(actor models.Actor, activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringCashFlowTemplate], error)
	getFn    func(actor models.Actor, id string) (*services.TemplateDetail, error)
}

func (m *mockRecurringTemplateService) CreateRecurringTemplate(_ context.Context, actor models.Actor, in services.TemplateInput) (*models.RecurringCashFlowTemplate, error) {
	if m.createFn != nil {
		return m.createFn(actor, in)
	}
	return &models.RecurringCashFlowTemplate{}, nil
}

func (m *mockRecurringTemplateService) UpdateRecurringTemplate(_ context.Context, actor models.Actor, id string, in services.UpdateTemplateInput) (*models.RecurringCashFlowTemplate, error) {
	if m.updateFn != nil {
		return m.updateFn(actor, id, in)
	}
	return &models.RecurringCashFlowTemplate{}, nil
}

func (m *mockRecurringTemplateService) ToggleRecurringTemplate(_ context.Context, actor models.Actor, id string) (*models.RecurringCashFlowTemplate, error) {
	if m.toggleFn != nil {
		return m.toggleFn(actor, id)
	}
	return &models.RecurringCashFlowTemplate{}, nil
}

func (m *mockRecurringTemplateService) GetRecurringTemplates(_ context.Context, actor models.Actor, activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringCashFlowTemplate], error) {
	if m.listFn != nil {
		return m.listFn(actor, activeOnly, page)
	}
	resp := pagination.NewPageResponse([]models.RecurringCashFlowTemplate{}, page, 0)
	return &resp, nil
}

func (m *mockRecurringTemplateService) GetRecurringTemplate(_ context.Context, actor models.Actor, id string) (*services.TemplateDetail, error) {
	if m.getFn != nil {
		return m.getFn(actor, id)
	}
	return &services.TemplateDetail{Template: &models.RecurringCashFlowTemplate{}}, nil
}

var _ services.RecurringTemplateServicer = (*mockRecurringTemplateService)(nil)

func setupTemplateRouter(handler *RecurringTemplateHandler, role models.Role) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectActor(role))
	auth.POST("/recurring-templates", handler.CreateRecurringTemplate)
	auth.GET("/recurring-templates", handler.GetRecurringTemplates)
	auth.GET("/recurring-templates/:id", handler.GetRecurringTemplate)
	auth.PUT("/recurring-templates/:id", handler.UpdateRecurringTemplate)
	auth.POST("/recurring-templates/:id/toggle", handler.ToggleRecurringTemplate)
	return r
}

func TestRecurringTemplateHandler_Create(t *testing.T) {
	t.Run("returns 201 and passes the schedule", func(t *testing.T) {
		var got services.TemplateInput
		svc := &mockRecurringTemplateService{
			createFn: func(_ models.Actor, in services.TemplateInput) (*models.RecurringCashFlowTemplate, error) {
				got = in
				return &models.RecurringCashFlowTemplate{Label: in.Label}, nil
			},
		}
		r := setupTemplateRouter(NewRecurringTemplateHandler(svc), models.RoleManager)

		rec := doRequest(r, "POST", "/recurring-templates",
			`{"label":"Rent","type":"expense","category_id":"`+testCategoryID+`","amount":"1200","account_id":"`+testAccountID+
				`","frequency":"monthly","day_of_month":5,"start_date":"2025-01-05","end_date":"2025-12-31","auto_validate":true}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Frequency != models.FrequencyMonthly || got.DayOfMonth == nil || *got.DayOfMonth != 5 {
			t.Errorf("unexpected schedule %+v", got)
		}
		if !got.StartDate.Equal(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected start date %s", got.StartDate)
		}
		if got.EndDate == nil || got.EndDate.Format(time.DateOnly) != "2025-12-31" {
			t.Errorf("unexpected end date %v", got.EndDate)
		}
		if !got.AutoValidate {
			t.Error("expected auto_validate to be passed")
		}
	})

	base := `"label":"Rent","category_id":"` + testCategoryID + `","amount":"1200","account_id":"` + testAccountID + `"`
	tests := []struct {
		name string
		body string
	}{
		{"transfer type", `{` + base + `,"type":"transfer","frequency":"monthly"}`},
		{"unknown frequency", `{` + base + `,"type":"expense","frequency":"hourly"}`},
		{"day of month 32", `{` + base + `,"type":"expense","frequency":"monthly","day_of_month":32}`},
		{"day of week 8", `{` + base + `,"type":"expense","frequency":"weekly","day_of_week":8}`},
		{"negative interval", `{` + base + `,"type":"expense","frequency":"daily","interval":-1}`},
		{"missing category", `{"label":"Rent","amount":"1200","account_id":"` + testAccountID + `","type":"expense","frequency":"daily"}`},
		{"bad start date", `{` + base + `,"type":"expense","frequency":"daily","start_date":"soon"}`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupTemplateRouter(NewRecurringTemplateHandler(&mockRecurringTemplateService{}), models.RoleManager)

			rec := doRequest(r, "POST", "/recurring-templates", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("maps forbidden for staff", func(t *testing.T) {
		svc := &mockRecurringTemplateService{
			createFn: func(models.Actor, services.TemplateInput) (*models.RecurringCashFlowTemplate, error) {
				return nil, apperrors.ErrForbidden
			},
		}
		r := setupTemplateRouter(NewRecurringTemplateHandler(svc), models.RoleStaff)

		rec := doRequest(r, "POST", "/recurring-templates", `{`+base+`,"type":"income","frequency":"daily"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("maps invalid frequency rule", func(t *testing.T) {
		svc := &mockRecurringTemplateService{
			createFn: func(models.Actor, services.TemplateInput) (*models.RecurringCashFlowTemplate, error) {
				return nil, apperrors.ErrInvalidFrequencyRule
			},
		}
		r := setupTemplateRouter(NewRecurringTemplateHandler(svc), models.RoleManager)

		rec := doRequest(r, "POST", "/recurring-templates", `{`+base+`,"type":"income","frequency":"weekly"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_FREQUENCY_RULE")
	})
}

func TestRecurringTemplateHandler_Update(t *testing.T) {
	t.Run("clear end date", func(t *testing.T) {
		var got services.UpdateTemplateInput
		svc := &mockRecurringTemplateService{
			updateFn: func(_ models.Actor, id string, in services.UpdateTemplateInput) (*models.RecurringCashFlowTemplate, error) {
				if id != testTemplateID {
					t.Errorf("expected id %s, got %s", testTemplateID, id)
				}
				got = in
				return &models.RecurringCashFlowTemplate{}, nil
			},
		}
		r := setupTemplateRouter(NewRecurringTemplateHandler(svc), models.RoleManager)

		rec := doRequest(r, "PUT", "/recurring-templates/"+testTemplateID, `{"clear_end_date":true,"amount":"950.00"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.ClearEndDate || got.EndDate != nil {
			t.Errorf("expected the end date to be cleared, got %+v", got)
		}
		if got.Amount == nil || got.Amount.String() != "950" {
			t.Errorf("unexpected amount %v", got.Amount)
		}
		if got.Label != nil {
			t.Error("omitted fields must stay nil")
		}
	})

	t.Run("end date conflicts with clear", func(t *testing.T) {
		called := false
		svc := &mockRecurringTemplateService{
			updateFn: func(models.Actor, string, services.UpdateTemplateInput) (*models.RecurringCashFlowTemplate, error) {
				called = true
				return &models.RecurringCashFlowTemplate{}, nil
			},
		}
		r := setupTemplateRouter(NewRecurringTemplateHandler(svc), models.RoleManager)

		rec := doRequest(r, "PUT", "/recurring-templates/"+testTemplateID, `{"clear_end_date":true,"end_date":"2025-12-31"}`)

		if rec.Code != http.StatusBadRequest || called {
			t.Fatalf("expected 400 without a service call, got %d", rec.Code)
		}
	})

	t.Run("maps not found", func(t *testing.T) {
		svc := &mockRecurringTemplateService{
			updateFn: func(models.Actor, string, services.UpdateTemplateInput) (*models.RecurringCashFlowTemplate, error) {
				return nil, apperrors.ErrTemplateNotFound
			},
		}
		r := setupTemplateRouter(NewRecurringTemplateHandler(svc), models.RoleManager)

		rec := doRequest(r, "PUT", "/recurring-templates/"+testTemplateID, `{"label":"Office rent"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TEMPLATE_NOT_FOUND")
	})
}

func TestRecurringTemplateHandler_Queries(t *testing.T) {
	t.Run("active_only is parsed", func(t *testing.T) {
		var gotActive bool
		svc := &mockRecurringTemplateService{
			listFn: func(_ models.Actor, activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringCashFlowTemplate], error) {
				gotActive = activeOnly
				resp := pagination.NewPageResponse([]models.RecurringCashFlowTemplate{}, page, 0)
				return &resp, nil
			},
		}
		r := setupTemplateRouter(NewRecurringTemplateHandler(svc), models.RoleStaff)

		rec := doRequest(r, "GET", "/recurring-templates?active_only=true", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !gotActive {
			t.Error("expected active_only=true")
		}
	})

	t.Run("invalid active_only", func(t *testing.T) {
		r := setupTemplateRouter(NewRecurringTemplateHandler(&mockRecurringTemplateService{}), models.RoleStaff)

		rec := doRequest(r, "GET", "/recurring-templates?active_only=sometimes", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("detail includes upcoming dates", func(t *testing.T) {
		svc := &mockRecurringTemplateService{
			getFn: func(models.Actor, string) (*services.TemplateDetail, error) {
				return &services.TemplateDetail{
					Template: &models.RecurringCashFlowTemplate{Label: "Rent"},
					Upcoming: []time.Time{
						time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC),
						time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC),
					},
				}, nil
			},
		}
		r := setupTemplateRouter(NewRecurringTemplateHandler(svc), models.RoleStaff)

		rec := doRequest(r, "GET", "/recurring-templates/"+testTemplateID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		upcoming := parseJSON(t, rec)["upcoming"].([]interface{})
		if len(upcoming) != 2 || upcoming[0] != "2025-04-05T00:00:00Z" {
			t.Errorf("unexpected upcoming %v", upcoming)
		}
	})

	t.Run("toggle", func(t *testing.T) {
		svc := &mockRecurringTemplateService{
			toggleFn: func(models.Actor, string) (*models.RecurringCashFlowTemplate, error) {
				return &models.RecurringCashFlowTemplate{IsActive: false}, nil
			},
		}
		r := setupTemplateRouter(NewRecurringTemplateHandler(svc), models.RoleAdmin)

		rec := doRequest(r, "POST", "/recurring-templates/"+testTemplateID+"/toggle", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["is_active"] != false {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})
}
