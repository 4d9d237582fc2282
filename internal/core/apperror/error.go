// Package apperror provides structured error handling for the platform.
// Every expected business rejection is an AppError with a machine-readable
// code, so callers and the HTTP layer can distinguish error kinds without
// parsing prose.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by kind
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Invariant violations (422)
	CodeInsufficientAvailable  = "INSUFFICIENT_AVAILABLE_BALANCE"
	CodeReleaseExceedsReserved = "RELEASE_EXCEEDS_RESERVED"
	CodeInvalidBalanceState    = "INVALID_BALANCE_STATE"
	CodeCapacityBelowOccupancy = "CAPACITY_BELOW_OCCUPANCY"

	// State errors (422)
	CodeLedgerHasStock = "LEDGER_HAS_STOCK"
	CodeLedgerInactive = "LEDGER_INACTIVE"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict               = "CONFLICT"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeIdempotency            = "IDEMPOTENCY_CONFLICT"
)

// AppError is the standard error type for the platform.
// It implements the error interface and carries structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientAvailable signals that an exit or reservation would drive
// the available balance below zero.
func NewInsufficientAvailable(requested, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientAvailable,
		Message:    "Insufficient available balance",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"requested": requested,
			"available": available,
		},
	}
}

// NewReleaseExceedsReserved signals that a release or reservation consumption
// would drive the reserved balance below zero.
func NewReleaseExceedsReserved(requested, reserved int64) *AppError {
	return &AppError{
		Code:       CodeReleaseExceedsReserved,
		Message:    "Release exceeds reserved balance",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"requested": requested,
			"reserved":  reserved,
		},
	}
}

// NewInvalidBalanceState signals a balance that would violate
// 0 <= reserved <= physical.
func NewInvalidBalanceState(physical, reserved int64) *AppError {
	return &AppError{
		Code:       CodeInvalidBalanceState,
		Message:    "Invalid balance state",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"physical": physical,
			"reserved": reserved,
		},
	}
}

// NewCapacityBelowOccupancy signals a capacity change below current occupancy.
func NewCapacityBelowOccupancy(capacity, occupancy int64) *AppError {
	return &AppError{
		Code:       CodeCapacityBelowOccupancy,
		Message:    "Capacity is below current occupancy",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"capacity":  capacity,
			"occupancy": occupancy,
		},
	}
}

// NewLedgerHasStock signals an attempt to deactivate a ledger that still
// holds physical stock.
func NewLedgerHasStock(ledgerID string, occupancy int64) *AppError {
	return &AppError{
		Code:       CodeLedgerHasStock,
		Message:    "Ledger still holds physical stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"ledger_id": ledgerID,
			"occupancy": occupancy,
		},
	}
}

// NewLedgerInactive signals a mutating operation on a deactivated ledger.
func NewLedgerInactive(ledgerID string) *AppError {
	return &AppError{
		Code:       CodeLedgerInactive,
		Message:    "Ledger is inactive",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"ledger_id": ledgerID},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode checks whether err carries the given error code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return IsCode(err, CodeConcurrentModification)
}
