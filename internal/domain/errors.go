package domain

import "fmt"

// Error types for consistent error handling across the API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConflict indicates the operation clashes with existing state.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrMonthLocked indicates a write into a month that month-end already closed.
type ErrMonthLocked struct {
	Year  int
	Month int
}

func (e *ErrMonthLocked) Error() string {
	return fmt.Sprintf("month %04d-%02d is locked", e.Year, e.Month)
}

// ErrInsufficientBalance indicates a virtual account or borrowing cannot cover the amount.
type ErrInsufficientBalance struct {
	Available float64
	Required  float64
}

func (e *ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance: available=%.2f required=%.2f", e.Available, e.Required)
}

// ErrForbidden indicates the caller may not act on the tenant.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates a missing or invalid token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
