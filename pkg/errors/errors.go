package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInternal        = errors.New("internal error")
	ErrConflict        = errors.New("conflict")
	ErrServiceUnavail  = errors.New("service unavailable")
	ErrIneligible      = errors.New("not eligible")
	ErrNoDiscount      = errors.New("no discount applicable")
	ErrBudgetExhausted = errors.New("budget exhausted")
	ErrDuplicateOrder  = errors.New("order already redeemed")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Ineligible creates a 422 error for a failed eligibility check. The message
// carries the specific reason (inactive, outside window, not targeted, daily
// limit reached) verbatim to the caller.
func Ineligible(message string) *AppError {
	return &AppError{
		Code:    "INELIGIBLE",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrIneligible,
	}
}

// NoDiscount creates a 422 error for a redemption whose computed discount is zero.
func NoDiscount() *AppError {
	return &AppError{
		Code:    "NO_DISCOUNT",
		Message: "no discount applicable",
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrNoDiscount,
	}
}

// BudgetExhausted creates a 409 error for a campaign whose remaining budget
// cannot cover the computed discount.
func BudgetExhausted(campaignID string) *AppError {
	return &AppError{
		Code:    "BUDGET_EXHAUSTED",
		Message: fmt.Sprintf("campaign %s budget exhausted", campaignID),
		Status:  http.StatusConflict,
		Err:     ErrBudgetExhausted,
	}
}

// DuplicateOrder creates a 409 error for a redemption that would violate the
// (campaign, order_id) uniqueness invariant.
func DuplicateOrder(orderID string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_ORDER",
		Message: fmt.Sprintf("order %s has already redeemed this campaign", orderID),
		Status:  http.StatusConflict,
		Err:     ErrDuplicateOrder,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrIneligible), errors.Is(err, ErrNoDiscount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBudgetExhausted), errors.Is(err, ErrDuplicateOrder):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
