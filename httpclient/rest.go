package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// TypedResponse wraps a response with a decoded body of type T.
type TypedResponse[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers keyed by lower-cased name.
	Headers map[string]string
	// Data is the decoded response body.
	Data T
}

// RequestOption adjusts the options of a single typed request.
type RequestOption func(*OptionSet)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(o *OptionSet) { o.SetHeader(key, value) }
}

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(o *OptionSet) { o.SetQueryParam(key, value) }
}

// WithRequestAuth overrides authentication for the request.
func WithRequestAuth(auth *AuthConfig) RequestOption {
	return func(o *OptionSet) { o.SetAuth(auth) }
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request with a payload and decodes the response into type T.
func Post[T any](c *Client, ctx context.Context, path string, body Payload, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request with a payload and decodes the response into type T.
func Put[T any](c *Client, ctx context.Context, path string, body Payload, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPut, path, body, opts...)
}

// Patch performs a PATCH request with a payload and decodes the response into type T.
func Patch[T any](c *Client, ctx context.Context, path string, body Payload, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request and decodes the JSON response into type T.
func Delete[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodDelete, path, nil, opts...)
}

// doTyped sends an independent request built from the client's per-call
// options and waits for the decoded result. Non-2xx responses are returned
// with a classified error; their body is decoded when it is valid JSON.
func doTyped[T any](c *Client, ctx context.Context, method, path string, body Payload, opts ...RequestOption) (*TypedResponse[T], error) {
	o := c.Options().Clone()
	if body != nil {
		o.SetPayload(body)
	}
	for _, opt := range opts {
		opt(o)
	}

	resp, err := c.SendWith(ctx, method, path, o)
	if err != nil {
		return nil, err
	}
	code, err := resp.Handle().StatusCode()
	if err != nil {
		return nil, err
	}
	raw, err := resp.Handle().ReadBody(false)
	if err != nil {
		return nil, err
	}

	out := &TypedResponse[T]{StatusCode: code, Headers: resp.Headers()}
	if classErr := ClassifyStatusCode(code, raw); classErr != nil {
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &out.Data)
		}
		return out, classErr
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.Data); err != nil {
			return nil, NewDecodeError(err)
		}
	}
	return out, nil
}
