package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/kbukum/httpkit/errors"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, etc).
	ErrCodeConnection
	// ErrCodeAuth indicates an authentication/authorization failure (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates a client-side validation error (4xx or bad request input).
	ErrCodeValidation
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
	// ErrCodeRedirect indicates an unfollowed redirect (3xx).
	ErrCodeRedirect
	// ErrCodeInvalidPayload indicates a payload that the body format cannot encode.
	ErrCodeInvalidPayload
	// ErrCodeDecode indicates a body that is not valid JSON.
	ErrCodeDecode
	// ErrCodeUnsupported indicates a capability the response handle lacks.
	ErrCodeUnsupported
	// ErrCodeRejected indicates a request turned away by client-side
	// middleware before reaching the upstream.
	ErrCodeRejected
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	case ErrCodeRedirect:
		return "redirect"
	case ErrCodeInvalidPayload:
		return "invalid_payload"
	case ErrCodeDecode:
		return "decode"
	case ErrCodeUnsupported:
		return "unsupported"
	case ErrCodeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is a structured HTTP client error with classification.
type Error struct {
	// StatusCode is the HTTP status code (0 for errors raised before or without a response).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether the operation can be retried.
	Retryable bool
	// Body is the original response body (may be nil).
	Body []byte
	// RetryAfter is the delay requested by the server, if any.
	RetryAfter time.Duration
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// AppError converts the error into the application-wide error type.
// Errors carrying an upstream error body keep the upstream code and message.
func (e *Error) AppError() *apperrors.AppError {
	var app *apperrors.AppError
	switch e.Code {
	case ErrCodeTimeout:
		app = apperrors.Timeout("http request")
	case ErrCodeConnection:
		app = apperrors.ConnectionFailed("upstream")
	case ErrCodeInvalidPayload:
		app = apperrors.Validation(e.Message)
	case ErrCodeDecode:
		app = apperrors.InvalidFormat("body", "json")
	case ErrCodeUnsupported:
		app = apperrors.New(apperrors.ErrCodeUnsupported, e.Message, http.StatusNotImplemented)
	case ErrCodeRejected:
		app = apperrors.ServiceUnavailable("upstream")
	default:
		if parsed, ok := apperrors.ParseErrorResponse(e.StatusCode, e.Body); ok {
			return parsed.WithDetail("status_code", e.StatusCode).WithCause(e)
		}
		if e.StatusCode == 0 {
			app = apperrors.Validation(e.Message)
		} else if app = apperrors.FromStatus(e.StatusCode, ""); app == nil {
			app = apperrors.ExternalServiceError("upstream", nil)
		}
	}
	app.Retryable = e.Retryable
	if e.RetryAfter > 0 {
		app.WithDetail("retry_after_ms", e.RetryAfter.Milliseconds())
	}
	if e.StatusCode > 0 {
		app.WithDetail("status_code", e.StatusCode)
	}
	return app.WithCause(e)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{
		Code:      ErrCodeTimeout,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{
		Code:      ErrCodeConnection,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewAuthError creates an authentication error.
func NewAuthError(statusCode int, body []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       ErrCodeAuth,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Retryable:  false,
		Body:       body,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(body []byte) *Error {
	return &Error{
		StatusCode: 404,
		Code:       ErrCodeNotFound,
		Message:    "HTTP 404",
		Retryable:  false,
		Body:       body,
	}
}

// NewRateLimitError creates a rate-limit error.
func NewRateLimitError(body []byte) *Error {
	return &Error{
		StatusCode: 429,
		Code:       ErrCodeRateLimit,
		Message:    "HTTP 429",
		Retryable:  true,
		Body:       body,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(msg string) *Error {
	return &Error{
		Code:      ErrCodeValidation,
		Message:   msg,
		Retryable: false,
	}
}

// NewServerError creates a server error.
func NewServerError(statusCode int, body []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       ErrCodeServer,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Retryable:  true,
		Body:       body,
	}
}

// NewInvalidPayloadError reports a payload the body format cannot encode.
func NewInvalidPayloadError(format BodyFormat, msg string) *Error {
	return &Error{
		Code:    ErrCodeInvalidPayload,
		Message: fmt.Sprintf("%s body: %s", format, msg),
	}
}

// NewDecodeError reports a body that could not be decoded as JSON.
func NewDecodeError(err error) *Error {
	return &Error{
		Code:    ErrCodeDecode,
		Message: err.Error(),
		Err:     err,
	}
}

// NewUnsupportedError reports a capability the response does not offer.
func NewUnsupportedError(op string) *Error {
	return &Error{
		Code:    ErrCodeUnsupported,
		Message: op + " is not supported by this response",
	}
}

// NewRejectedError reports a request refused by client-side middleware.
func NewRejectedError(err error) *Error {
	return &Error{
		Code:    ErrCodeRejected,
		Message: err.Error(),
		Err:     err,
	}
}

// ClassifyStatusCode converts an HTTP status code into a typed error.
// Returns nil for 2xx status codes.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode >= 300 && statusCode < 400:
		return &Error{
			StatusCode: statusCode,
			Code:       ErrCodeRedirect,
			Message:    fmt.Sprintf("HTTP %d", statusCode),
			Body:       body,
		}
	case statusCode == 401 || statusCode == 403:
		return NewAuthError(statusCode, body)
	case statusCode == 404:
		return NewNotFoundError(body)
	case statusCode == 429:
		return NewRateLimitError(body)
	case statusCode >= 400 && statusCode < 500:
		return &Error{
			StatusCode: statusCode,
			Code:       ErrCodeValidation,
			Message:    fmt.Sprintf("HTTP %d", statusCode),
			Retryable:  false,
			Body:       body,
		}
	case statusCode >= 500:
		return NewServerError(statusCode, body)
	default:
		return &Error{
			StatusCode: statusCode,
			Code:       ErrCodeServer,
			Message:    fmt.Sprintf("HTTP %d", statusCode),
			Retryable:  false,
			Body:       body,
		}
	}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsTransport checks if an error came from the transport (timeout or connection).
func IsTransport(err error) bool { return IsTimeout(err) || IsConnection(err) }

// IsAuth checks if an error is an authentication error.
func IsAuth(err error) bool { return hasCode(err, ErrCodeAuth) }

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsRateLimit checks if an error is a rate-limit error.
func IsRateLimit(err error) bool { return hasCode(err, ErrCodeRateLimit) }

// IsValidation checks if an error is a validation error, raised either
// before sending or for a generic 4xx response.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsInvalidPayload checks if an error is a payload/body format mismatch.
func IsInvalidPayload(err error) bool { return hasCode(err, ErrCodeInvalidPayload) }

// IsDecode checks if an error is a JSON decode failure.
func IsDecode(err error) bool { return hasCode(err, ErrCodeDecode) }

// IsUnsupported checks if an error is an unsupported operation.
func IsUnsupported(err error) bool { return hasCode(err, ErrCodeUnsupported) }

// IsRejected checks if an error is a client-side rejection.
func IsRejected(err error) bool { return hasCode(err, ErrCodeRejected) }

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
