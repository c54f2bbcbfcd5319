// Package errors holds the error kinds shared by the storage core.
//
// Callers match on kinds with errors.Is (or the Is* helpers below); every
// error produced by this module wraps exactly one of the sentinels, except
// storage failures, which wrap the driver error unchanged.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("not found")

	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidValue is returned when a field is present but malformed.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidDimensionKey is returned for dimension mappings or signatures
	// that can't be canonicalized.
	ErrInvalidDimensionKey = errors.New("invalid dimension key")

	// ErrInvalidReference is returned when a group references a member that
	// does not exist.
	ErrInvalidReference = errors.New("invalid reference")
)

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation returns true if err was raised before any write because the
// input was rejected.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidDimensionKey)
}

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidValue)
}

// NewInvalidDimensionKey creates a dimension codec error.
func NewInvalidDimensionKey(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidDimensionKey)
}
