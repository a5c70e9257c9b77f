package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error taxonomy shared by the gateway, the session manager and the sync layer
var (
	// Transport errors
	ErrNetworkUnavailable = errors.New("network unavailable")

	// Authentication errors
	ErrAuthenticationExpired = errors.New("authentication expired")
	ErrRefreshFailed         = errors.New("token refresh failed")
	ErrSessionExpired        = errors.New("session expired, please login again")
	ErrNotAuthenticated      = errors.New("not authenticated")

	// Server errors
	ErrServerError = errors.New("server error")

	// Caller errors
	ErrValidation = errors.New("validation error")

	// General errors
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the HR API. It unwraps to the taxonomy
// sentinel chosen from the status code.
type APIError struct {
	StatusCode int
	Message    string // server supplied text from {"error": ...} or {"message": ...}
	Kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// NewAPIError classifies a response status code.
func NewAPIError(statusCode int, message string) *APIError {
	kind := ErrServerError
	switch statusCode {
	case http.StatusUnauthorized:
		kind = ErrAuthenticationExpired
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = ErrValidation
	}
	return &APIError{StatusCode: statusCode, Message: strings.TrimSpace(message), Kind: kind}
}

// ValidationError reports caller supplied bad input.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// UserMessage returns the server supplied message when the error carries one,
// the validation text for validation errors, and fallback otherwise.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrValidation) {
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	}
	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired.Error()
	}
	return fallback
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
