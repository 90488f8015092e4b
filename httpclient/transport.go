package httpclient

import (
	"bytes"
	"context"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// NoRedirects disables redirect following.
	NoRedirects = -1
	// DefaultMaxRedirects applies when no redirect limit was configured.
	DefaultMaxRedirects = 20
)

// WireOptions is the fully merged and resolved option set handed to a
// Transport. It is built fresh for every request.
type WireOptions struct {
	// Headers are keyed by lower-cased name.
	Headers map[string]string
	// Query entries in insertion order.
	Query []QueryParam
	// BodyFormat is the format the body was resolved with.
	BodyFormat BodyFormat
	// Body is the encoded body for json, form, multipart and raw text payloads.
	Body []byte
	// BodyStream is a raw streamed body. Read at most once.
	BodyStream io.Reader
	// BodyProducer generates a raw body at send time.
	BodyProducer Producer
	// Timeout is the idle timeout. Zero means no limit.
	Timeout time.Duration
	// MaxDuration is the total time budget. Zero means no limit.
	MaxDuration time.Duration
	// MaxRedirects is NoRedirects or the number of redirects to follow.
	MaxRedirects int
	// Auth is applied by the transport using its native mechanism.
	Auth *AuthConfig
	// UserData is echoed unchanged in the response Info.
	UserData any
	// Proxy routes the request through a proxy when set.
	Proxy *ProxyConfig
	// VerifyTLS controls server certificate verification.
	VerifyTLS bool
}

// Header returns a header by case-insensitive name.
func (w *WireOptions) Header(name string) string {
	return w.Headers[strings.ToLower(name)]
}

// HasBody reports whether any body variant is set.
func (w *WireOptions) HasBody() bool {
	return w.Body != nil || w.BodyStream != nil || w.BodyProducer != nil
}

// BodyReader returns a reader over whichever body variant is set, or nil.
func (w *WireOptions) BodyReader() (io.Reader, error) {
	switch {
	case w.Body != nil:
		return bytes.NewReader(w.Body), nil
	case w.BodyStream != nil:
		return w.BodyStream, nil
	case w.BodyProducer != nil:
		data, err := w.BodyProducer()
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	default:
		return nil, nil
	}
}

// EncodeQuery renders the query string in insertion order.
func (w *WireOptions) EncodeQuery() string {
	var b strings.Builder
	for i, q := range w.Query {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(q.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q.Value))
	}
	return b.String()
}

// URL appends the query string to rawURL, keeping any query it already has.
func (w *WireOptions) URL(rawURL string) string {
	q := w.EncodeQuery()
	switch {
	case q == "":
		return rawURL
	case strings.Contains(rawURL, "?"):
		return rawURL + "&" + q
	default:
		return rawURL + "?" + q
	}
}

// HTTPHeader converts the headers for net/http.
func (w *WireOptions) HTTPHeader() http.Header {
	h := make(http.Header, len(w.Headers))
	for k, v := range w.Headers {
		h.Set(k, v)
	}
	return h
}

// Info is transport metadata about a request.
type Info struct {
	// URL is the final request URL.
	URL string
	// Method is the request method.
	Method string
	// HTTPCode is the status code, 0 until headers arrive.
	HTTPCode int
	// TotalTime is the wall-clock duration, 0 while in flight.
	TotalTime time.Duration
	// UserData is the value set with SetUserData.
	UserData any
	// ResponseHeaders are the received headers.
	ResponseHeaders http.Header
}

// Transport issues requests. Issue must not wait for the response; the
// returned Handle blocks on first access instead.
type Transport interface {
	Issue(ctx context.Context, method, url string, opts *WireOptions) (Handle, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, method, url string, opts *WireOptions) (Handle, error)

// Issue calls f.
func (f TransportFunc) Issue(ctx context.Context, method, url string, opts *WireOptions) (Handle, error) {
	return f(ctx, method, url, opts)
}

// Handle is an in-flight or completed response.
type Handle interface {
	// StatusCode blocks until headers arrive.
	StatusCode() (int, error)
	// Headers blocks until headers arrive.
	Headers() (http.Header, error)
	// ReadBody blocks until the body is complete. With throwOnError, a
	// status of 300 or above returns a classified error.
	ReadBody(throwOnError bool) ([]byte, error)
	// Info never blocks.
	Info() Info
}

// StreamableHandle is implemented by handles that expose the raw body.
type StreamableHandle interface {
	Handle
	BodyStream(throwOnError bool) (io.ReadCloser, error)
}

// Chunk is one unit of a streamed response.
type Chunk interface {
	// IsLast reports the final chunk of a completed response.
	IsLast() bool
	// IsTimeout reports that the response was idle longer than its timeout.
	IsTimeout() bool
	// Err reports a transport failure for this response.
	Err() error
}

// Streamer is implemented by transports that can multiplex handles into a
// single sequence of chunks in arrival order.
type Streamer interface {
	Stream(ctx context.Context, handles ...Handle) iter.Seq2[Handle, Chunk]
}
