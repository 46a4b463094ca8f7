package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "this username is already in use", "code": "conflict", "field": "username"}
//
// "error" is always safe to show to the user. "code" is machine-readable and
// "field" names the offending form field when there is one.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/profilesync/internal/apperror"
)

const genericErrorMessage = "An internal error occurred"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`           // Human-readable description
	Code  string `json:"code"`            // Machine-readable error type (e.g., "validation_error")
	Field string `json:"field,omitempty"` // Offending field, if any
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
//
//  1. w.Header().Set(...)     ← set headers
//  2. w.WriteHeader(status)   ← send status + headers
//  3. json.Encode(data)       ← send body
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, the headers are already sent — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorStatus maps a domain error to an HTTP status and error code.
//
// The service layer returns apperror values; this is the only place that
// knows about HTTP status codes.
//
//	unauthenticated                      → 401
//	validation, conflict, missing email  → 400
//	not found                            → 404
//	schema drift, persistence, anything  → 500
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusBadRequest, "conflict"
	case errors.Is(err, apperror.ErrMissingEmail):
		return http.StatusBadRequest, "missing_email"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrSchemaDrift):
		return http.StatusInternalServerError, "schema_drift"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// errors.As() walks the chain and fills appErr if it finds an *AppError:
//
//	service returns: fmt.Errorf("service/profile: ...: %w", apperror.ValidationFailed(...))
//	errors.As walks: outer error → AppError ✓
//
// 500s never carry the underlying message: it might contain SQL, file paths
// or other internals. Schema drift is the one exception, its message only
// says a migration is required.
func writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)

	resp := ErrorResponse{Error: genericErrorMessage, Code: code}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if status < http.StatusInternalServerError || code == "schema_drift" {
			resp.Error = appErr.Message
		}
		if status < http.StatusInternalServerError {
			resp.Field = appErr.Field
		}
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", slog.String("code", code), slog.String("error", err.Error()), slog.Any("cause", causeOf(err)))
	}

	writeJSON(w, status, resp)
}

// causeOf returns the driver error behind an AppError, for logging.
func causeOf(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		return appErr.Cause
	}
	return nil
}
