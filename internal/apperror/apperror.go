// Package apperror defines the error taxonomy shared by the store, the
// services and the HTTP layer.
//
// Every error the core produces is an *AppError carrying a sentinel (used
// with errors.Is) and a human-readable message. Store-level failures also
// carry the underlying driver error as Cause so it can be logged, while the
// message stays safe to show to the user.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMissingEmail    = errors.New("missing email")
	ErrSchemaDrift     = errors.New("schema drift")
	ErrPersistence     = errors.New("persistence failure")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying driver or library error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// ErrPersistence and errors.As can still reach a *pq.Error underneath.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// UniqueConflict reports that the store rejected a duplicate value for field.
func UniqueConflict(field string, cause error) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("this %s is already in use", field),
		Field:   field,
		Cause:   cause,
	}
}

// Unauthenticated is returned when an operation runs without a principal.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}

// MissingEmail is returned when the identity provider supplied no address.
func MissingEmail(identityID string) *AppError {
	return &AppError{
		Err:     ErrMissingEmail,
		Message: fmt.Sprintf("identity %s has no email address", identityID),
		Field:   "email",
	}
}

// SchemaDrift reports that the store is missing a column or table the code
// expects. It needs a manual migration, not a retry.
func SchemaDrift(column string, cause error) *AppError {
	return &AppError{
		Err:     ErrSchemaDrift,
		Message: "a database migration is required",
		Field:   column,
		Cause:   cause,
	}
}

// Persistence wraps any other store failure. The message never includes the
// cause.
func Persistence(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrPersistence,
		Message: fmt.Sprintf("%s failed", op),
		Cause:   cause,
	}
}
