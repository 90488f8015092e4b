package errors

import (
	stderrors "errors"

	"github.com/tidwall/gjson"
)

// ErrorResponse is the {"error":{...}} envelope exchanged between services.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details of an ErrorResponse.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// ParseErrorResponse reads an upstream error body. It understands the
// ErrorResponse envelope and RFC 7807 problem documents; for anything else
// it reports false. status fills in the code when the body carries none.
func ParseErrorResponse(status int, body []byte) (*AppError, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	doc := gjson.ParseBytes(body)

	if env := doc.Get("error"); env.IsObject() {
		app := fromStatusOrDefault(status, env.Get("message").String())
		if code := env.Get("code").String(); code != "" {
			app.Code = ErrorCode(code)
		}
		if r := env.Get("retryable"); r.Exists() {
			app.Retryable = r.Bool()
		}
		if details, ok := env.Get("details").Value().(map[string]any); ok {
			app.WithDetails(details)
		}
		return app, true
	}

	title, detail := doc.Get("title"), doc.Get("detail")
	if !title.Exists() && !detail.Exists() {
		return nil, false
	}
	if s := doc.Get("status"); s.Exists() && status == 0 {
		status = int(s.Int())
	}
	message := detail.String()
	if message == "" {
		message = title.String()
	}
	app := fromStatusOrDefault(status, message)
	if typ := doc.Get("type").String(); typ != "" {
		app.WithDetail("type", typ)
	}
	if inst := doc.Get("instance").String(); inst != "" {
		app.WithDetail("instance", inst)
	}
	return app, true
}

func fromStatusOrDefault(status int, message string) *AppError {
	if app := FromStatus(status, message); app != nil {
		return app
	}
	return ExternalServiceError("upstream", nil).withMessage(message)
}

func (e *AppError) withMessage(message string) *AppError {
	if message != "" {
		e.Message = message
	}
	return e
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
