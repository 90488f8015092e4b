package nethttp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/logger"
)

var errBodyTaken = httpclient.NewValidationError("response body was already taken as a stream")

// handle is one in-flight request. The request runs in its own goroutine;
// every accessor blocks until the state it needs is available.
type handle struct {
	method   string
	url      string
	userData any
	timeout  time.Duration
	start    time.Time
	cancel   context.CancelFunc
	log      *logger.Logger

	// lastActivity is the unix nano time of the last progress on the wire.
	lastActivity atomic.Int64

	headersDone chan struct{}
	done        chan struct{}
	doneOnce    sync.Once
	headersOnce sync.Once
	bodyOnce    sync.Once

	mu       sync.Mutex
	resp     *http.Response
	finalURL string
	status   int
	header   http.Header
	body     bytes.Buffer
	err      error
	total    time.Duration
	streamed bool
}

func newHandle(cancel context.CancelFunc, method, url string, opts *httpclient.WireOptions, log *logger.Logger) *handle {
	h := &handle{
		method:      method,
		url:         url,
		finalURL:    url,
		userData:    opts.UserData,
		timeout:     opts.Timeout,
		start:       time.Now(),
		cancel:      cancel,
		log:         log,
		headersDone: make(chan struct{}),
		done:        make(chan struct{}),
	}
	h.touch()
	return h
}

// run sends req and records the response headers.
func (h *handle) run(client *http.Client, req *http.Request, body func() (io.Reader, error)) {
	if body != nil {
		r, err := body()
		if err != nil {
			h.fail(httpclient.NewInvalidPayloadError(httpclient.FormatRaw, err.Error()))
			return
		}
		req.Body = io.NopCloser(r)
	}

	resp, err := client.Do(req)
	if err != nil {
		h.fail(h.classify(err))
		return
	}
	h.touch()

	h.mu.Lock()
	if h.err != nil {
		h.mu.Unlock()
		_ = resp.Body.Close()
		return
	}
	h.resp = resp
	h.status = resp.StatusCode
	h.header = resp.Header
	if resp.Request != nil && resp.Request.URL != nil {
		h.finalURL = resp.Request.URL.String()
	}
	h.mu.Unlock()
	h.headersOnce.Do(func() { close(h.headersDone) })
}

// buffer reads the whole body in the background, once.
func (h *handle) buffer() {
	h.bodyOnce.Do(func() {
		go func() {
			<-h.headersDone
			h.mu.Lock()
			resp := h.resp
			h.mu.Unlock()
			if resp == nil {
				return
			}
			defer func() { _ = resp.Body.Close() }()

			buf := make([]byte, 32*1024)
			for {
				n, err := resp.Body.Read(buf)
				if n > 0 {
					h.mu.Lock()
					h.body.Write(buf[:n])
					h.mu.Unlock()
					h.touch()
				}
				if errors.Is(err, io.EOF) {
					h.complete()
					return
				}
				if err != nil {
					h.fail(h.classify(err))
					return
				}
			}
		}()
	})
}

func (h *handle) complete() {
	h.doneOnce.Do(func() {
		h.mu.Lock()
		h.total = time.Since(h.start)
		status, total := h.status, h.total
		h.mu.Unlock()
		close(h.done)
		h.log.Debug("request completed", logger.ResponseFields(h.method, h.url, status, total))
	})
	h.cancel()
}

// fail records the first error and releases every waiter.
func (h *handle) fail(err error) {
	h.doneOnce.Do(func() {
		h.mu.Lock()
		h.err = err
		h.total = time.Since(h.start)
		h.mu.Unlock()
		close(h.done)
		h.log.Debug("request failed", logger.MergeWithError(logger.RequestFields(h.method, h.url), err))
	})
	h.cancel()
	h.headersOnce.Do(func() { close(h.headersDone) })
}

func (h *handle) failure() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *handle) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return httpclient.NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return httpclient.NewTimeoutError(err)
	}
	return httpclient.NewConnectionError(err)
}

func (h *handle) touch() {
	h.lastActivity.Store(time.Now().UnixNano())
}

// idle returns how long the request has made no progress.
func (h *handle) idle() time.Duration {
	return time.Since(time.Unix(0, h.lastActivity.Load()))
}

// wait blocks until ch is closed. With an idle timeout, a request that makes
// no progress for that long is aborted with a timeout error.
func (h *handle) wait(ch <-chan struct{}) error {
	if h.timeout <= 0 {
		<-ch
		return h.failure()
	}
	timer := time.NewTimer(h.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ch:
			return h.failure()
		case <-timer.C:
			if idle := h.idle(); idle < h.timeout {
				timer.Reset(h.timeout - idle)
				continue
			}
			h.fail(httpclient.NewTimeoutError(errors.New("idle timeout of " + h.timeout.String() + " reached")))
			return h.failure()
		}
	}
}

// StatusCode stays available when the body fails after the headers arrived.
func (h *handle) StatusCode() (int, error) {
	err := h.wait(h.headersDone)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resp == nil {
		return 0, err
	}
	return h.status, nil
}

func (h *handle) Headers() (http.Header, error) {
	err := h.wait(h.headersDone)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resp == nil {
		return nil, err
	}
	return h.header, nil
}

func (h *handle) ReadBody(throwOnError bool) ([]byte, error) {
	h.mu.Lock()
	streamed := h.streamed
	h.mu.Unlock()
	if streamed {
		return nil, errBodyTaken
	}

	h.buffer()
	if err := h.wait(h.done); err != nil {
		return nil, err
	}

	h.mu.Lock()
	body := bytes.Clone(h.body.Bytes())
	status := h.status
	h.mu.Unlock()
	if throwOnError {
		if classErr := httpclient.ClassifyStatusCode(status, body); classErr != nil {
			return body, classErr
		}
	}
	return body, nil
}

// BodyStream hands the raw body to the caller unless it is already being
// buffered, in which case the buffered copy is returned once complete.
func (h *handle) BodyStream(throwOnError bool) (io.ReadCloser, error) {
	code, err := h.StatusCode()
	if err != nil {
		return nil, err
	}
	if throwOnError {
		if classErr := httpclient.ClassifyStatusCode(code, nil); classErr != nil {
			return nil, classErr
		}
	}

	claimed := false
	h.bodyOnce.Do(func() { claimed = true })
	if !claimed {
		body, err := h.ReadBody(false)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	h.mu.Lock()
	h.streamed = true
	resp := h.resp
	h.mu.Unlock()
	return &streamBody{h: h, rc: resp.Body}, nil
}

// Close aborts the request and releases the connection.
func (h *handle) Close() error {
	h.mu.Lock()
	resp := h.resp
	streamed := h.streamed
	h.mu.Unlock()
	if resp != nil && !streamed {
		h.bodyOnce.Do(func() { _ = resp.Body.Close() })
	}
	h.cancel()
	return nil
}

func (h *handle) Info() httpclient.Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return httpclient.Info{
		URL:             h.finalURL,
		Method:          h.method,
		HTTPCode:        h.status,
		TotalTime:       h.total,
		UserData:        h.userData,
		ResponseHeaders: h.header,
	}
}

// streamBody completes the handle when the caller finishes reading.
type streamBody struct {
	h  *handle
	rc io.ReadCloser
}

func (s *streamBody) Read(p []byte) (int, error) {
	n, err := s.rc.Read(p)
	if n > 0 {
		s.h.touch()
	}
	if errors.Is(err, io.EOF) {
		s.h.complete()
	} else if err != nil {
		s.h.fail(s.h.classify(err))
	}
	return n, err
}

func (s *streamBody) Close() error {
	err := s.rc.Close()
	s.h.complete()
	return err
}
