package httpclient

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/httpkit/resilience"
)

// SendWithRetry sends a request through c until it succeeds, fails with a
// non-retryable error or cfg runs out of attempts. Transport failures and
// retryable status codes (429, 5xx) are retried. A nil cfg.RetryIf retries
// whatever IsRetryable accepts, and a nil cfg.Delay waits as long as the
// server's Retry-After header asks, capped at cfg.MaxBackoff.
//
// Each attempt waits for the response headers. Stream payloads can only be
// sent once and should not be retried.
//
// The last response is returned alongside the final error when one arrived.
func SendWithRetry(ctx context.Context, c *Client, method, path string, cfg resilience.RetryConfig) (*Response, error) {
	if cfg.RetryIf == nil {
		cfg.RetryIf = IsRetryable
	}
	if cfg.Delay == nil {
		cfg.Delay = RetryAfter
	}

	var last *Response
	resp, err := resilience.Retry(ctx, cfg, func() (*Response, error) {
		r, err := c.Send(ctx, method, path)
		if err != nil {
			return nil, err
		}
		last = r

		code, err := r.Handle().StatusCode()
		if err != nil {
			return nil, err
		}
		if classErr := ClassifyStatusCode(code, nil); classErr != nil && classErr.Retryable {
			if hdr, err := r.Handle().Headers(); err == nil {
				classErr.RetryAfter, _ = resilience.ParseRetryAfter(hdr.Get("Retry-After"), time.Now())
			}
			return nil, classErr
		}
		return r, nil
	})
	if err != nil {
		return last, err
	}
	return resp, nil
}

// RetryAfter returns the delay the server asked for in err, or zero.
func RetryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}
