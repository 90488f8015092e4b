// Package fake provides an in-memory httpclient.Transport for tests.
//
// Every request is answered with the same canned body and metadata, and
// recorded so tests can assert on the exact method, URL and resolved
// options that were sent.
//
//	tr := fake.New(`{"id":1}`, fake.Info{HTTPCode: 201})
//	client, _ := httpclient.New(tr, httpclient.Config{BaseURL: "https://api.test"})
//	resp, _ := client.Post(ctx, "/items")
//	tr.LastRequest().Options.Body // the encoded payload
package fake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/httpkit/httpclient"
)

// Info is the canned response metadata.
type Info struct {
	// HTTPCode is the status code. Defaults to 200.
	HTTPCode int
	// ResponseHeaders are returned as the response headers. When nil, the
	// request headers are echoed back.
	ResponseHeaders http.Header
	// TotalTime is reported as the execution time.
	TotalTime time.Duration
	// Err makes every response fail with this transport error. Errors that
	// are not already *httpclient.Error are reported as connection errors.
	Err error
}

// Request is one recorded request.
type Request struct {
	Method string
	// URL includes the encoded query string.
	URL     string
	Options *httpclient.WireOptions
}

// Chunk is a scripted stream event.
type Chunk struct {
	Last    bool
	Timeout bool
	Error   error
}

func (c Chunk) IsLast() bool    { return c.Last }
func (c Chunk) IsTimeout() bool { return c.Timeout }
func (c Chunk) Err() error      { return c.Error }

// Transport answers every request with the same canned response.
type Transport struct {
	body string
	info Info

	mu       sync.Mutex
	requests []Request
	chunks   []Chunk
}

var (
	_ httpclient.Transport = (*Transport)(nil)
	_ httpclient.Streamer  = (*Transport)(nil)
)

// New returns a transport that answers with body and info.
func New(body string, info Info) *Transport {
	if info.HTTPCode == 0 {
		info.HTTPCode = http.StatusOK
	}
	var clientErr *httpclient.Error
	if info.Err != nil && !errors.As(info.Err, &clientErr) {
		info.Err = httpclient.NewConnectionError(info.Err)
	}
	return &Transport{body: body, info: info}
}

// WithChunks scripts the chunks streamed for every handle. Without a script
// each handle streams a single last chunk, or a failed chunk when Info.Err
// is set.
func (t *Transport) WithChunks(chunks ...Chunk) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunks = append([]Chunk(nil), chunks...)
	return t
}

// Issue records the request and returns a completed handle.
func (t *Transport) Issue(_ context.Context, method, url string, opts *httpclient.WireOptions) (httpclient.Handle, error) {
	full := opts.URL(url)

	t.mu.Lock()
	t.requests = append(t.requests, Request{Method: method, URL: full, Options: opts})
	t.mu.Unlock()

	headers := t.info.ResponseHeaders
	if headers == nil {
		headers = opts.HTTPHeader()
	}
	return &Handle{
		body:    []byte(t.body),
		err:     t.info.Err,
		headers: headers.Clone(),
		info: httpclient.Info{
			URL:             full,
			Method:          method,
			HTTPCode:        t.info.HTTPCode,
			TotalTime:       t.info.TotalTime,
			UserData:        opts.UserData,
			ResponseHeaders: headers.Clone(),
		},
	}, nil
}

// Requests returns the recorded requests in order.
func (t *Transport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

// LastRequest returns the most recent request, or the zero Request.
func (t *Transport) LastRequest() Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return Request{}
	}
	return t.requests[len(t.requests)-1]
}

// Stream yields the scripted chunks for each handle, one handle after the
// other.
func (t *Transport) Stream(ctx context.Context, handles ...httpclient.Handle) iter.Seq2[httpclient.Handle, httpclient.Chunk] {
	t.mu.Lock()
	script := append([]Chunk(nil), t.chunks...)
	t.mu.Unlock()

	return func(yield func(httpclient.Handle, httpclient.Chunk) bool) {
		for _, h := range handles {
			chunks := script
			if len(chunks) == 0 {
				chunks = []Chunk{{Last: true}}
				if fh, ok := h.(*Handle); ok && fh.err != nil {
					chunks = []Chunk{{Error: fh.err}}
				}
			}
			for _, c := range chunks {
				if ctx.Err() != nil {
					return
				}
				if !yield(h, c) {
					return
				}
			}
		}
	}
}

// Handle is a completed canned response.
type Handle struct {
	body    []byte
	err     error
	headers http.Header
	info    httpclient.Info
}

var _ httpclient.StreamableHandle = (*Handle)(nil)

func (h *Handle) StatusCode() (int, error) {
	if h.err != nil {
		return 0, h.err
	}
	return h.info.HTTPCode, nil
}

func (h *Handle) Headers() (http.Header, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.headers, nil
}

func (h *Handle) ReadBody(throwOnError bool) ([]byte, error) {
	if h.err != nil {
		return nil, h.err
	}
	body := bytes.Clone(h.body)
	if throwOnError {
		if classErr := httpclient.ClassifyStatusCode(h.info.HTTPCode, body); classErr != nil {
			return body, classErr
		}
	}
	return body, nil
}

func (h *Handle) BodyStream(throwOnError bool) (io.ReadCloser, error) {
	body, err := h.ReadBody(throwOnError)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (h *Handle) Info() httpclient.Info {
	return h.info
}
