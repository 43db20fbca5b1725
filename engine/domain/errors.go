package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped to HTTP statuses at the API layer.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidEntity   = errors.New("invalid entity type")
	ErrInvalidRelation = errors.New("invalid relationship type")
	ErrInvalidContent  = errors.New("invalid content type")
	ErrRestrictedQuery = errors.New("query contains restricted mutation keywords")
	ErrEmptyContent    = errors.New("content must not be empty")
)

// ValidationError wraps a sentinel with the field and value that failed.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// NotFoundf wraps ErrNotFound with a human-readable detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflictf wraps ErrConflict with a human-readable detail message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}
