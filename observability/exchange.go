package observability

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/httpkit/util"
)

// Exchange follows one outgoing request from dispatch until its response
// headers arrive or it fails.
type Exchange struct {
	Client    string
	Method    string
	URL       string
	RequestID string
	Start     time.Time

	span    trace.Span
	metrics *Metrics
	ctx     context.Context
	once    sync.Once
}

// Begin opens a client span on tracer and counts the request on metrics.
// Either may be nil. The returned context carries the span.
func (e *Exchange) Begin(ctx context.Context, tracer trace.Tracer, metrics *Metrics) context.Context {
	e.Start = time.Now()
	e.metrics = metrics
	e.ctx = context.WithoutCancel(ctx)

	if tracer != nil {
		attrs := []attribute.KeyValue{
			attribute.String(AttrHTTPMethod, e.Method),
			attribute.String(AttrURLFull, util.RedactURL(e.URL)),
		}
		if u, err := url.Parse(e.URL); err == nil && u.Hostname() != "" {
			attrs = append(attrs, attribute.String(AttrServerAddr, u.Hostname()))
		}
		if e.RequestID != "" {
			attrs = append(attrs, attribute.String(AttrRequestID, e.RequestID))
		}
		if e.Client != "" {
			attrs = append(attrs, attribute.String(AttrClientName, e.Client))
		}
		ctx, e.span = tracer.Start(ctx, SpanHTTPRequest,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...))
	}
	if metrics != nil {
		metrics.RecordRequestStart(e.ctx)
	}
	return ctx
}

// Done records the response status. Statuses of 400 and above mark the
// span as failed.
func (e *Exchange) Done(status int) {
	e.once.Do(func() {
		code := strconv.Itoa(status)
		if e.span != nil {
			e.span.SetAttributes(attribute.Int(AttrStatusCode, status))
			if status >= 400 {
				e.span.SetAttributes(attribute.String(AttrErrorType, code))
				e.span.SetStatus(codes.Error, "HTTP "+code)
			}
			e.span.End()
		}
		if e.metrics != nil {
			e.metrics.RecordRequestEnd(e.ctx, e.Client, e.Method, code, e.Elapsed())
		}
	})
}

// Fail records a request that ended without a response.
func (e *Exchange) Fail(err error, errType string) {
	e.once.Do(func() {
		if e.span != nil {
			e.span.RecordError(err)
			e.span.SetAttributes(attribute.String(AttrErrorType, errType))
			e.span.SetStatus(codes.Error, err.Error())
			e.span.End()
		}
		if e.metrics != nil {
			e.metrics.RecordRequestEnd(e.ctx, e.Client, e.Method, "error", e.Elapsed())
			e.metrics.RecordError(e.ctx, e.Client, errType)
		}
	})
}

// Elapsed returns the time since Begin.
func (e *Exchange) Elapsed() time.Duration {
	return time.Since(e.Start)
}
