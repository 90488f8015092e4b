package httpclient

import (
	"encoding/json"
	"io"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// StatusCode classifies HTTP status codes into ranges. The ranges do not
// overlap; codes below 200 belong to none of them.
type StatusCode int

// IsSuccess reports codes in [200, 300).
func (s StatusCode) IsSuccess() bool { return s >= 200 && s < 300 }

// IsRedirect reports codes in [300, 400).
func (s StatusCode) IsRedirect() bool { return s >= 300 && s < 400 }

// IsClientError reports codes in [400, 500).
func (s StatusCode) IsClientError() bool { return s >= 400 && s < 500 }

// IsServerError reports codes of 500 and above.
func (s StatusCode) IsServerError() bool { return s >= 500 }

// Response is a read-only view over a transport Handle. Reading the status,
// headers or body waits for the request to complete that far.
type Response struct {
	handle      Handle
	throwErrors bool

	bodyOnce sync.Once
	body     []byte
	bodyErr  error
}

// NewResponse wraps h. With throwErrors, Status and Body report non-2xx
// responses as errors.
func NewResponse(h Handle, throwErrors bool) *Response {
	return &Response{handle: h, throwErrors: throwErrors}
}

// Handle returns the underlying transport handle.
func (r *Response) Handle() Handle { return r.handle }

// Status returns the status code. Transport failures are returned as
// errors; with ThrowErrors, so are non-2xx codes, alongside the code.
func (r *Response) Status() (int, error) {
	code, err := r.handle.StatusCode()
	if err != nil {
		return 0, err
	}
	if r.throwErrors {
		if classErr := ClassifyStatusCode(code, nil); classErr != nil {
			return code, classErr
		}
	}
	return code, nil
}

func (r *Response) code() StatusCode {
	code, _ := r.handle.StatusCode()
	return StatusCode(code)
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool { return r.code().IsSuccess() }

// IsOK is an alias for IsSuccess.
func (r *Response) IsOK() bool { return r.IsSuccess() }

// IsRedirect reports a 3xx status.
func (r *Response) IsRedirect() bool { return r.code().IsRedirect() }

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool { return r.code().IsClientError() }

// IsServerError reports a status of 500 or above.
func (r *Response) IsServerError() bool { return r.code().IsServerError() }

// Header returns the first value of a header by case-insensitive name, or
// "" when it is absent or the response failed.
func (r *Response) Header(name string) string {
	h, err := r.handle.Headers()
	if err != nil {
		return ""
	}
	return h.Get(name)
}

// Headers returns the first value of every header keyed by lower-cased name.
func (r *Response) Headers() map[string]string {
	h, err := r.handle.Headers()
	if err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[strings.ToLower(k)] = v[0]
		}
	}
	return out
}

// Body returns the response body, read from the transport at most once.
func (r *Response) Body() ([]byte, error) {
	r.bodyOnce.Do(func() {
		r.body, r.bodyErr = r.handle.ReadBody(r.throwErrors)
	})
	return r.body, r.bodyErr
}

// AsString returns the body as a string.
func (r *Response) AsString() (string, error) {
	body, err := r.Body()
	return string(body), err
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	body, err := r.Body()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return NewDecodeError(err)
	}
	return nil
}

// AsObject decodes the JSON body into generic Go values.
func (r *Response) AsObject() (any, error) {
	var v any
	if err := r.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// AsMap decodes a JSON object body.
func (r *Response) AsMap() (map[string]any, error) {
	var m map[string]any
	if err := r.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// AsCollection decodes a JSON array body.
func (r *Response) AsCollection() ([]any, error) {
	var items []any
	if err := r.Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

// DecodeAs decodes the JSON body of r into a value of type T.
func DecodeAs[T any](r *Response) (T, error) {
	var v T
	err := r.Decode(&v)
	return v, err
}

// Path looks up a gjson path expression (for example "users.0.id") in the
// body. The result does not exist when the body cannot be read.
func (r *Response) Path(expr string) gjson.Result {
	body, err := r.Body()
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(body, expr)
}

// ContentType returns the content-type header.
func (r *Response) ContentType() string {
	return r.Header("content-type")
}

// IsJSON reports an application/json content type, ignoring parameters.
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType())
	return err == nil && mediaType == ContentTypeJSON
}

// UserAgent returns the user-agent header of the response.
func (r *Response) UserAgent() string {
	return r.Header("user-agent")
}

// Info returns the transport metadata.
func (r *Response) Info() Info {
	return r.handle.Info()
}

// RequestURL returns the URL the request was sent to.
func (r *Response) RequestURL() string {
	return r.Info().URL
}

// ExecutionTime returns the total request time, or 0 when unavailable.
func (r *Response) ExecutionTime() time.Duration {
	return r.Info().TotalTime
}

// CustomData returns the value set with SetUserData, unchanged.
func (r *Response) CustomData() any {
	return r.Info().UserData
}

// ToStream returns the raw body for incremental reading.
func (r *Response) ToStream() (io.ReadCloser, error) {
	sh, ok := r.handle.(StreamableHandle)
	if !ok {
		return nil, NewUnsupportedError("ToStream")
	}
	return sh.BodyStream(r.throwErrors)
}

// Close releases the response when the handle holds resources, such as an
// unread network body. It is safe to call more than once.
func (r *Response) Close() error {
	if c, ok := r.handle.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
