// Package errors defines coded service errors with HTTP status mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes used across the console host.
const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeInvalidFormat     = "INVALID_FORMAT"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL"
)

// ServiceError is an error with a stable code and an HTTP status mapping.
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`

	err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *ServiceError) Unwrap() error {
	return e.err
}

// WithCause attaches an underlying cause and returns the error.
func (e *ServiceError) WithCause(err error) *ServiceError {
	e.err = err
	return e
}

// Unauthorized indicates missing or unusable credentials.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden indicates valid credentials without sufficient rights.
func Forbidden(message string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// InvalidToken indicates a malformed, expired or otherwise rejected token.
func InvalidToken(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidToken, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// InvalidFormat indicates a request the server could not parse.
func InvalidFormat(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidFormat, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NotFound indicates a missing resource, provider or service.
func NotFound(kind, name string) *ServiceError {
	return &ServiceError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", kind, name),
		HTTPStatus: http.StatusNotFound,
	}
}

// AlreadyExists indicates a registration collision.
func AlreadyExists(kind, name string) *ServiceError {
	return &ServiceError{
		Code:       CodeAlreadyExists,
		Message:    fmt.Sprintf("%s already exists: %s", kind, name),
		HTTPStatus: http.StatusConflict,
	}
}

// RateLimitExceeded indicates the caller exceeded its request budget.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return &ServiceError{
		Code:       CodeRateLimitExceeded,
		Message:    fmt.Sprintf("rate limit exceeded: %d requests per %s", limit, window),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Internal indicates an unexpected server-side failure.
func Internal(message string) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// GetServiceError extracts a *ServiceError from err's chain. Unknown errors
// are wrapped as Internal so every error maps to a response.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return Internal(err.Error())
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Code == CodeNotFound
}
