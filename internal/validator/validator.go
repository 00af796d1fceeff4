// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"treasury/internal/models"
)

var bankReferenceRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ./_-]{0,99}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	// Lets numeric tags such as gt=0 and lte=100 apply to decimal fields.
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})

	_ = v.RegisterValidation("cash_flow_type", validateCashFlowType)
	_ = v.RegisterValidation("template_type", validateTemplateType)
	_ = v.RegisterValidation("frequency", validateFrequency)
	_ = v.RegisterValidation("source_type", validateSourceType)
	_ = v.RegisterValidation("day_of_week", validateDayOfWeek)
	_ = v.RegisterValidation("day_of_month", validateDayOfMonth)
	_ = v.RegisterValidation("bank_reference", validateBankReference)
}

func decimalValue(field reflect.Value) interface{} {
	switch d := field.Interface().(type) {
	case decimal.Decimal:
		return d.InexactFloat64()
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		return d.Decimal.InexactFloat64()
	}
	return nil
}

func validateCashFlowType(fl validator.FieldLevel) bool {
	switch models.CashFlowType(fl.Field().String()) {
	case models.CashFlowTypeIncome, models.CashFlowTypeExpense, models.CashFlowTypeTransfer:
		return true
	}
	return false
}

// Templates never produce transfers.
func validateTemplateType(fl validator.FieldLevel) bool {
	switch models.CashFlowType(fl.Field().String()) {
	case models.CashFlowTypeIncome, models.CashFlowTypeExpense:
		return true
	}
	return false
}

func validateFrequency(fl validator.FieldLevel) bool {
	switch models.Frequency(fl.Field().String()) {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly,
		models.FrequencyQuarterly, models.FrequencyYearly:
		return true
	}
	return false
}

func validateSourceType(fl validator.FieldLevel) bool {
	switch models.SourceType(fl.Field().String()) {
	case models.SourceTypeManual, models.SourceTypeSale, models.SourceTypePurchase, models.SourceTypeReversal:
		return true
	}
	return false
}

func validateDayOfWeek(fl validator.FieldLevel) bool {
	n := fl.Field().Int()
	return n >= 1 && n <= 7
}

func validateDayOfMonth(fl validator.FieldLevel) bool {
	n := fl.Field().Int()
	return n >= 1 && n <= 31
}

func validateBankReference(fl validator.FieldLevel) bool {
	return bankReferenceRegex.MatchString(fl.Field().String())
}
