// Package errors provides custom error types for the brokerage API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// Kind is the machine-readable class of an AppError. Callers branch on the
// kind; the code narrows it down to a specific business condition.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindInternal     Kind = "INTERNAL"
)

// AppError represents a structured application error with an error code,
// kind, human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches two AppErrors by code so that copies made by Wrap and
// WithMessage still satisfy errors.Is against their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Kind:       sentinel.Kind,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Kind:       sentinel.Kind,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

func notFound(code, message string) *AppError {
	return &AppError{Code: code, Kind: KindNotFound, Message: message, StatusCode: http.StatusNotFound}
}

func conflict(code, message string) *AppError {
	return &AppError{Code: code, Kind: KindConflict, Message: message, StatusCode: http.StatusConflict}
}

// Authentication errors.
var (
	ErrUnauthorized  = &AppError{Code: "UNAUTHORIZED", Kind: KindUnauthorized, Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidAPIKey = &AppError{Code: "INVALID_API_KEY", Kind: KindUnauthorized, Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Kind: KindValidation, Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = notFound("NOT_FOUND", "Resource not found")
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Kind: KindInternal, Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Reference errors.
var (
	ErrClientNotFound  = notFound("CLIENT_NOT_FOUND", "Client not found")
	ErrCarrierNotFound = notFound("CARRIER_NOT_FOUND", "Carrier not found")
)

// Policy errors.
var (
	ErrPolicyNotFound        = notFound("POLICY_NOT_FOUND", "Policy not found")
	ErrDuplicatePolicyNumber = conflict("DUPLICATE_POLICY_NUMBER", "Policy number already exists")
	ErrPolicyNumberImmutable = &AppError{Code: "POLICY_NUMBER_IMMUTABLE", Kind: KindValidation, Message: "Policy number cannot be changed", StatusCode: http.StatusBadRequest}
	ErrInvalidPolicyCategory = &AppError{Code: "INVALID_POLICY_CATEGORY", Kind: KindValidation, Message: "Unsupported policy category", StatusCode: http.StatusBadRequest}
	ErrInvalidPolicyStatus   = &AppError{Code: "INVALID_POLICY_STATUS", Kind: KindValidation, Message: "Unsupported policy status", StatusCode: http.StatusBadRequest}
	ErrNegativeMoney         = &AppError{Code: "NEGATIVE_AMOUNT", Kind: KindValidation, Message: "Monetary amounts cannot be negative", StatusCode: http.StatusBadRequest}
	ErrMoneyPrecision        = &AppError{Code: "INVALID_MONEY_PRECISION", Kind: KindValidation, Message: "Amounts and rates support at most 4 decimal places", StatusCode: http.StatusBadRequest}
)

// Ledger errors.
var (
	ErrTransactionNotFound    = notFound("TRANSACTION_NOT_FOUND", "Transaction not found")
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Kind: KindValidation, Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
	ErrInvalidPaymentMethod   = &AppError{Code: "INVALID_PAYMENT_METHOD", Kind: KindValidation, Message: "Unsupported payment method", StatusCode: http.StatusBadRequest}
	ErrInvalidLedgerStatus    = &AppError{Code: "INVALID_TRANSACTION_STATUS", Kind: KindValidation, Message: "Unsupported transaction status", StatusCode: http.StatusBadRequest}
	ErrLedgerImmutable        = &AppError{Code: "LEDGER_IMMUTABLE", Kind: KindValidation, Message: "Only status and note of a recorded transaction can change", StatusCode: http.StatusBadRequest}
	ErrIdempotencyInFlight    = conflict("IDEMPOTENCY_IN_FLIGHT", "A request with this idempotency key is still being processed")
)
