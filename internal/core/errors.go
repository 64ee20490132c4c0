package core

import "errors"

var (
	// ErrNotFound covers both absent records and records owned by someone else.
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrInvalidAmount     = &ValidationError{Field: "amount", Reason: "must be a non-negative number"}
	ErrMissingAmount     = &ValidationError{Field: "amount", Reason: "is required"}
	ErrMissingCategory   = &ValidationError{Field: "categoryId", Reason: "is required"}
	ErrMissingDate       = &ValidationError{Field: "date", Reason: "is required"}
	ErrInvalidDate       = &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD or RFC 3339"}
	ErrEmptyTripName     = &ValidationError{Field: "name", Reason: "is required"}
	ErrMissingStartDate  = &ValidationError{Field: "startDate", Reason: "is required"}
	ErrEmptyCategoryName = &ValidationError{Field: "name", Reason: "is required"}
)

// ValidationError describes a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a one-off validation error for fields without a predefined value.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
