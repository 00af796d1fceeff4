package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type templateRequest struct {
	Type       string          `validate:"required,template_type"`
	Frequency  string          `validate:"required,frequency"`
	DayOfWeek  *int            `validate:"omitempty,day_of_week"`
	DayOfMonth *int            `validate:"omitempty,day_of_month"`
	Amount     decimal.Decimal `validate:"gt=0"`
	TaxRate    decimal.Decimal `validate:"gte=0,lte=100"`
}

type cashFlowRequest struct {
	Type       string `validate:"required,cash_flow_type"`
	SourceType string `validate:"omitempty,source_type"`
	BankRef    string `validate:"omitempty,bank_reference"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	RegisterOn(v)
	return v
}

func intPtr(n int) *int { return &n }

func TestTemplateValidators(t *testing.T) {
	valid := func() templateRequest {
		return templateRequest{
			Type:       "expense",
			Frequency:  "monthly",
			DayOfMonth: intPtr(31),
			Amount:     decimal.RequireFromString("150.00"),
			TaxRate:    decimal.RequireFromString("18"),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*templateRequest)
		wantErr bool
	}{
		{"valid", func(*templateRequest) {}, false},
		{"transfer_template", func(r *templateRequest) { r.Type = "transfer" }, true},
		{"unknown_frequency", func(r *templateRequest) { r.Frequency = "hourly" }, true},
		{"quarterly", func(r *templateRequest) { r.Frequency = "quarterly" }, false},
		{"day_of_week_zero", func(r *templateRequest) { r.DayOfWeek = intPtr(0) }, true},
		{"day_of_week_sunday", func(r *templateRequest) { r.DayOfWeek = intPtr(7) }, false},
		{"day_of_month_32", func(r *templateRequest) { r.DayOfMonth = intPtr(32) }, true},
		{"zero_amount", func(r *templateRequest) { r.Amount = decimal.Zero }, true},
		{"negative_amount", func(r *templateRequest) { r.Amount = decimal.NewFromInt(-5) }, true},
		{"tax_over_100", func(r *templateRequest) { r.TaxRate = decimal.RequireFromString("100.01") }, true},
	}
	v := newValidate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := v.Struct(req)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCashFlowValidators(t *testing.T) {
	tests := []struct {
		name    string
		req     cashFlowRequest
		wantErr bool
	}{
		{"income", cashFlowRequest{Type: "income"}, false},
		{"transfer", cashFlowRequest{Type: "transfer"}, false},
		{"uppercase_rejected", cashFlowRequest{Type: "INCOME"}, true},
		{"sale_source", cashFlowRequest{Type: "income", SourceType: "sale"}, false},
		{"unknown_source", cashFlowRequest{Type: "income", SourceType: "invoice"}, true},
		{"bank_reference", cashFlowRequest{Type: "income", BankRef: "STMT-2025/03 #"}, true},
		{"bank_reference_ok", cashFlowRequest{Type: "income", BankRef: "STMT-2025/03"}, false},
	}
	v := newValidate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
