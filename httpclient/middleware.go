package httpclient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/observability"
	"github.com/kbukum/httpkit/resilience"
)

// RequestIDHeader carries the request id set by WithTracing.
const RequestIDHeader = "x-request-id"

// Middleware decorates a Transport.
type Middleware func(Transport) Transport

// WithTracing records a client span per request and injects the trace
// context into the request headers. A request id header is added when the
// caller did not set one, taken from the context when present. The span
// ends once the response headers arrive. A nil tracer uses the global
// provider.
func WithTracing(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = observability.Tracer(observability.TracerName)
	}
	return observe(tracer, nil, "")
}

// WithMetrics records request counts and latency on m under the given
// client name. Latency is measured until the response headers arrive.
func WithMetrics(m *observability.Metrics, client string) Middleware {
	return observe(nil, m, client)
}

// WithObservability traces and measures each request in a single pass.
func WithObservability(tracer trace.Tracer, m *observability.Metrics, client string) Middleware {
	if tracer == nil {
		tracer = observability.Tracer(observability.TracerName)
	}
	return observe(tracer, m, client)
}

func observe(tracer trace.Tracer, m *observability.Metrics, client string) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, method, url string, opts *WireOptions) (Handle, error) {
			ex := &observability.Exchange{Client: client, Method: method, URL: url}
			if tracer != nil {
				ex.RequestID = requestID(ctx, opts)
			}
			ctx = ex.Begin(ctx, tracer, m)
			if tracer != nil {
				otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(opts.Headers))
			}

			h, err := next.Issue(ctx, method, url, opts)
			if err != nil {
				ex.Fail(err, errorType(err))
				return nil, err
			}
			go func() {
				code, err := h.StatusCode()
				if err != nil {
					ex.Fail(err, errorType(err))
					return
				}
				ex.Done(code)
			}()
			return h, nil
		})
	}
}

func requestID(ctx context.Context, opts *WireOptions) string {
	if id := opts.Header(RequestIDHeader); id != "" {
		return id
	}
	id := logger.RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	if opts.Headers == nil {
		opts.Headers = map[string]string{}
	}
	opts.Headers[RequestIDHeader] = id
	return id
}

func errorType(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.String()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "other"
}

// WithCircuitBreaker sends requests through cb. An open circuit rejects the
// request at once. Transport failures and 5xx responses count as failures;
// they are recorded once the response headers arrive, so Issue does not wait.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, method, url string, opts *WireOptions) (Handle, error) {
			done, err := cb.Allow()
			if err != nil {
				return nil, NewRejectedError(err)
			}
			h, err := next.Issue(ctx, method, url, opts)
			if err != nil {
				done(false)
				return nil, err
			}
			go func() {
				code, err := h.StatusCode()
				done(err == nil && !StatusCode(code).IsServerError())
			}()
			return h, nil
		})
	}
}

// WithRateLimiter waits for a token from rl before each request. A request
// whose context expires before its token arrives is rejected.
func WithRateLimiter(rl *resilience.RateLimiter) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, method, url string, opts *WireOptions) (Handle, error) {
			if err := rl.Wait(ctx); err != nil {
				if errors.Is(err, resilience.ErrRateLimited) {
					return nil, NewRejectedError(err)
				}
				return nil, err
			}
			return next.Issue(ctx, method, url, opts)
		})
	}
}

// WithBulkhead bounds the number of requests waiting for headers at once.
// A slot is taken when the request is issued and released in the background
// once the response headers arrive.
func WithBulkhead(b *resilience.Bulkhead) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, method, url string, opts *WireOptions) (Handle, error) {
			release, err := b.Acquire(ctx)
			if err != nil {
				if errors.Is(err, resilience.ErrBulkheadFull) || errors.Is(err, resilience.ErrBulkheadTimeout) {
					return nil, NewRejectedError(err)
				}
				return nil, err
			}
			h, err := next.Issue(ctx, method, url, opts)
			if err != nil {
				release()
				return nil, err
			}
			go func() {
				_, _ = h.StatusCode()
				release()
			}()
			return h, nil
		})
	}
}
