// Package errors provides the error taxonomy of the treasury API.
// Every service-layer error is an *AppError so that handlers can render a
// stable code and message without leaking storage details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches on the error code so that errors.Is works against sentinels
// even after Wrap or WithMessage produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden    = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrNotOwner     = &AppError{Code: "NOT_OWNER", Message: "Only the creator may modify this cash flow", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrConflict       = &AppError{Code: "CONCURRENT_MODIFICATION", Message: "The resource was modified concurrently, retry the operation", StatusCode: http.StatusConflict}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Account errors.
var (
	ErrAccountNotFound     = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrInactiveAccount     = &AppError{Code: "INACTIVE_ACCOUNT", Message: "Account is inactive", StatusCode: http.StatusBadRequest}
	ErrSameAccountTransfer = &AppError{Code: "SAME_ACCOUNT_TRANSFER", Message: "Cannot transfer to the same account", StatusCode: http.StatusBadRequest}
)

// Category errors.
var (
	ErrCategoryNotFound     = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryTypeMismatch = &AppError{Code: "CATEGORY_TYPE_MISMATCH", Message: "Category type does not match the cash flow type", StatusCode: http.StatusBadRequest}
)

// Cash flow errors.
var (
	ErrCashFlowNotFound    = &AppError{Code: "CASH_FLOW_NOT_FOUND", Message: "Cash flow not found", StatusCode: http.StatusNotFound}
	ErrInvalidAmount       = &AppError{Code: "INVALID_AMOUNT", Message: "Amount must be greater than zero", StatusCode: http.StatusBadRequest}
	ErrInvalidCashFlowType = &AppError{Code: "INVALID_CASH_FLOW_TYPE", Message: "Unsupported cash flow type", StatusCode: http.StatusBadRequest}
	ErrInvalidTransition   = &AppError{Code: "INVALID_STATE_TRANSITION", Message: "This action is not allowed in the current status", StatusCode: http.StatusBadRequest}
	ErrCashFlowNotEditable = &AppError{Code: "CASH_FLOW_NOT_EDITABLE", Message: "Only draft cash flows can be modified", StatusCode: http.StatusBadRequest}
	ErrAlreadyReconciled   = &AppError{Code: "ALREADY_RECONCILED", Message: "Cash flow is already reconciled", StatusCode: http.StatusBadRequest}
	ErrAlreadyReversed     = &AppError{Code: "ALREADY_REVERSED", Message: "Cash flow is already reversed", StatusCode: http.StatusBadRequest}
	ErrDuplicateSourceRef  = &AppError{Code: "DUPLICATE_SOURCE_REFERENCE", Message: "A cash flow already exists for this source document", StatusCode: http.StatusConflict}
)

// Recurring template errors.
var (
	ErrTemplateNotFound     = &AppError{Code: "TEMPLATE_NOT_FOUND", Message: "Recurring template not found", StatusCode: http.StatusNotFound}
	ErrInvalidFrequencyRule = &AppError{Code: "INVALID_FREQUENCY_RULE", Message: "Invalid recurrence settings", StatusCode: http.StatusBadRequest}
)

// Forecast errors.
var (
	ErrInvalidHorizon = &AppError{Code: "INVALID_FORECAST_HORIZON", Message: "Forecast horizon must be between 1 and 90 days", StatusCode: http.StatusBadRequest}
)

// Job errors.
var (
	ErrJobAlreadyRunning = &AppError{Code: "JOB_ALREADY_RUNNING", Message: "Recurring generation is already running", StatusCode: http.StatusConflict}
)
