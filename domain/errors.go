package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when storage rejects a write because of a
	// uniqueness constraint or a concurrent modification. Callers should
	// re-read state rather than repeat the mutation.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when a user touches another user's data.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput wraps every validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDeliveryFailed reports that a push notification was not handed
	// to the delivery provider.
	ErrDeliveryFailed = errors.New("notification not sent")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// OutOfWindowError is returned when a date falls outside of a daily task's
// duration window.
type OutOfWindowError struct {
	Date  Date
	Start Date
	End   Date
}

func (e *OutOfWindowError) Error() string {
	return fmt.Sprintf("date %s is outside of the allowed duration window %s..%s for this daily task", e.Date, e.Start, e.End)
}
