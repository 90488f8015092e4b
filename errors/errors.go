package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the HTTP status this error maps to.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// WithDetail sets a single detail and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError; retryability follows the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// FromStatus maps an HTTP status to an AppError. An empty message uses the
// standard status text. Statuses below 400 are not errors and return nil.
func FromStatus(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	var code ErrorCode
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized:
		code = ErrCodeUnauthorized
	case status == http.StatusForbidden:
		code = ErrCodeForbidden
	case status == http.StatusNotFound:
		code = ErrCodeNotFound
	case status == http.StatusConflict:
		code = ErrCodeConflict
	case status == http.StatusTooManyRequests:
		code = ErrCodeRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		code = ErrCodeTimeout
	case status == http.StatusServiceUnavailable:
		code = ErrCodeServiceUnavailable
	case status == http.StatusNotImplemented:
		code = ErrCodeUnsupported
	case status < 500:
		code = ErrCodeInvalidInput
	default:
		code = ErrCodeExternalService
	}
	return New(code, message, status)
}

// --- Constructors ---

// ServiceUnavailable reports a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// ConnectionFailed reports a failed connection to a service.
func ConnectionFailed(service string) *AppError {
	return New(ErrCodeConnectionFailed, fmt.Sprintf("unable to connect to %s", service), http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// Timeout reports an operation that took too long.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, operation+" timed out", http.StatusGatewayTimeout).
		WithDetail("operation", operation)
}

// RateLimited reports a rejected request due to rate limiting.
func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "too many requests", http.StatusTooManyRequests)
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, resource+" not found", http.StatusNotFound).WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// Validation reports invalid input.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// InvalidFormat reports a value that is not in the expected format.
func InvalidFormat(field, expectedFormat string) *AppError {
	return New(ErrCodeInvalidFormat, fmt.Sprintf("%s is not valid %s", field, expectedFormat), http.StatusBadRequest).
		WithDetails(map[string]any{"field": field, "expected_format": expectedFormat})
}

// Unsupported reports an operation that is not available.
func Unsupported(operation string) *AppError {
	return New(ErrCodeUnsupported, operation+" is not supported", http.StatusNotImplemented).
		WithDetail("operation", operation)
}

// Unauthorized reports missing or rejected credentials.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "authentication required"
	}
	return New(ErrCodeUnauthorized, reason, http.StatusUnauthorized)
}

// Forbidden reports credentials that lack permission.
func Forbidden(reason string) *AppError {
	if reason == "" {
		reason = "permission denied"
	}
	return New(ErrCodeForbidden, reason, http.StatusForbidden)
}

// Internal reports an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "unexpected error", http.StatusInternalServerError).WithCause(cause)
}

// ExternalServiceError reports a failure returned by a remote service.
func ExternalServiceError(service string, cause error) *AppError {
	return New(ErrCodeExternalService, service+" returned an error", http.StatusBadGateway).
		WithDetail("service", service).
		WithCause(cause)
}
