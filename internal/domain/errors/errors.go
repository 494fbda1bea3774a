package errors

import (
	"errors"
)

var (
	// ErrItemNotFound is returned when no item exists for the requested ID
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidInput is returned when a request fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrDatabaseError is returned when the storage layer cannot complete a call
	ErrDatabaseError = errors.New("database error")
)

// IsNotFoundError reports whether err is (or wraps) ErrItemNotFound
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

// IsValidationError reports whether err is (or wraps) ErrInvalidInput
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
