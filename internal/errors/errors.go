package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeNotAuthenticated indicates an operation that requires a signed-in user was attempted without one.
	ErrCodeNotAuthenticated ErrorCode = "not_authenticated"
	// ErrCodeProviderUnavailable indicates the identity provider or document store could not be reached.
	ErrCodeProviderUnavailable ErrorCode = "provider_unavailable"
	// ErrCodeNavigationFailed indicates a route change did not complete. Non-fatal; session state already changed.
	ErrCodeNavigationFailed ErrorCode = "navigation_failed"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// NotAuthenticated creates a new NotAuthenticated error.
func NotAuthenticated(message string) *AppError {
	return &AppError{Code: ErrCodeNotAuthenticated, Message: message}
}

// ProviderUnavailable wraps a provider failure. Best-effort callers
// (privilege checks, role lookups) swallow this and fall back to the
// unprivileged default; user-initiated callers surface it.
func ProviderUnavailable(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeProviderUnavailable, Message: message, Cause: cause}
}

// NavigationFailed wraps a router failure. Logged, never fatal.
func NavigationFailed(path string, cause error) *AppError {
	return &AppError{Code: ErrCodeNavigationFailed, Message: "navigate to " + path, Cause: cause}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsNotAuthenticated checks if an error is a NotAuthenticated error.
func IsNotAuthenticated(err error) bool {
	return isCode(err, ErrCodeNotAuthenticated)
}

// IsProviderUnavailable checks if an error is a ProviderUnavailable error.
func IsProviderUnavailable(err error) bool {
	return isCode(err, ErrCodeProviderUnavailable)
}

// IsNavigationFailed checks if an error is a NavigationFailed error.
func IsNavigationFailed(err error) bool {
	return isCode(err, ErrCodeNavigationFailed)
}
