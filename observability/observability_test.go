package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("billing")
	if cfg.ServiceName != "billing" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" || !cfg.Insecure || cfg.SampleRate != 1.0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("billing")
	if cfg.ServiceName != "billing" || cfg.Interval != 15*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource(context.Background(), "billing", "1.2.3", "test")
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	want := map[attribute.Key]string{
		"service.name":           "billing",
		"service.version":        "1.2.3",
		"deployment.environment": "test",
	}
	for _, kv := range res.Attributes() {
		if w, ok := want[kv.Key]; ok {
			if kv.Value.AsString() != w {
				t.Errorf("%s = %q, want %q", kv.Key, kv.Value.AsString(), w)
			}
			delete(want, kv.Key)
		}
	}
	if len(want) > 0 {
		t.Errorf("missing attributes: %v", want)
	}
}

func TestNewMetrics_Noop(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, "billing", "GET", "200", 10*time.Millisecond)
	m.RecordError(ctx, "billing", "timeout")
}

func newTracer() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func newMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sum(data metricdata.Aggregation) int64 {
	var total int64
	if s, ok := data.(metricdata.Sum[int64]); ok {
		for _, dp := range s.DataPoints {
			total += dp.Value
		}
	}
	return total
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestExchange_Done(t *testing.T) {
	rec, tp := newTracer()
	m, reader := newMetrics(t)

	ex := &Exchange{Client: "billing", Method: "GET", URL: "https://billing.test:8443/invoices", RequestID: "req-1"}
	ctx := ex.Begin(context.Background(), tp.Tracer("test"), m)
	if got := collect(t, reader)[MetricActiveRequests]; sum(got) != 1 {
		t.Errorf("active requests = %d, want 1", sum(got))
	}
	ex.Done(200)
	ex.Done(500)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != SpanHTTPRequest {
		t.Errorf("span name = %q", span.Name())
	}
	if span.Status().Code == codes.Error {
		t.Error("200 should not mark the span as failed")
	}
	if !span.SpanContext().IsValid() {
		t.Error("invalid span context")
	}
	for key, want := range map[string]string{
		AttrHTTPMethod: "GET",
		AttrServerAddr: "billing.test",
		AttrRequestID:  "req-1",
		AttrClientName: "billing",
	} {
		if v, ok := spanAttr(span, key); !ok || v.AsString() != want {
			t.Errorf("%s = %v, want %q", key, v.Emit(), want)
		}
	}
	if v, _ := spanAttr(span, AttrStatusCode); v.AsInt64() != 200 {
		t.Errorf("status attribute = %v", v.Emit())
	}
	if ctx == context.Background() {
		t.Error("Begin should return a context carrying the span")
	}

	data := collect(t, reader)
	if sum(data[MetricActiveRequests]) != 0 {
		t.Errorf("active requests after Done = %d", sum(data[MetricActiveRequests]))
	}
	if sum(data[MetricRequests]) != 1 {
		t.Errorf("requests = %d, want 1", sum(data[MetricRequests]))
	}
}

func TestExchange_ErrorStatus(t *testing.T) {
	rec, tp := newTracer()
	ex := &Exchange{Method: "POST", URL: "http://api.test/x"}
	ex.Begin(context.Background(), tp.Tracer("test"), nil)
	ex.Done(503)

	span := rec.Ended()[0]
	if span.Status().Code != codes.Error || span.Status().Description != "HTTP 503" {
		t.Errorf("status = %+v", span.Status())
	}
	if v, _ := spanAttr(span, AttrErrorType); v.AsString() != "503" {
		t.Errorf("error.type = %v", v.Emit())
	}
}

func TestExchange_Fail(t *testing.T) {
	rec, tp := newTracer()
	m, reader := newMetrics(t)
	ex := &Exchange{Client: "billing", Method: "GET", URL: "http://api.test"}
	ex.Begin(context.Background(), tp.Tracer("test"), m)
	ex.Fail(errors.New("dial tcp: refused"), "connection")

	span := rec.Ended()[0]
	if span.Status().Code != codes.Error {
		t.Error("span should be failed")
	}
	if len(span.Events()) == 0 {
		t.Error("error event should be recorded")
	}
	data := collect(t, reader)
	if sum(data[MetricErrors]) != 1 || sum(data[MetricRequests]) != 1 {
		t.Errorf("errors=%d requests=%d", sum(data[MetricErrors]), sum(data[MetricRequests]))
	}
}

func TestExchange_MetricsOnly(t *testing.T) {
	m, reader := newMetrics(t)
	ex := &Exchange{Client: "billing", Method: "GET", URL: "http://api.test"}
	ctx := context.Background()
	if got := ex.Begin(ctx, nil, m); got != ctx {
		t.Error("without a tracer the context should be unchanged")
	}
	ex.Done(204)
	if sum(collect(t, reader)[MetricRequests]) != 1 {
		t.Error("request should be counted")
	}
	if ex.Start.IsZero() {
		t.Error("Begin should set Start")
	}
}

func TestExchange_RecordsAfterCancel(t *testing.T) {
	m, reader := newMetrics(t)
	ctx, cancel := context.WithCancel(context.Background())
	ex := &Exchange{Client: "billing", Method: "GET", URL: "http://api.test"}
	ex.Begin(ctx, nil, m)
	cancel()
	ex.Fail(context.Canceled, "canceled")
	if sum(collect(t, reader)[MetricErrors]) != 1 {
		t.Error("error should be recorded after cancellation")
	}
}

func TestSetSpanError(t *testing.T) {
	rec, tp := newTracer()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	SetSpanError(ctx, errors.New("boom"))
	span.End()
	if len(rec.Ended()[0].Events()) != 1 {
		t.Error("expected an error event")
	}
	SetSpanError(context.Background(), errors.New("no span"))
}

func TestTracerAndMeter(t *testing.T) {
	if Tracer(TracerName) == nil {
		t.Error("Tracer returned nil")
	}
	if Meter(TracerName) == nil {
		t.Error("Meter returned nil")
	}
}

func TestInitTracer(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		cfg := DefaultTracerConfig("test")
		cfg.Insecure = insecure
		tp, err := InitTracer(context.Background(), &cfg)
		if err != nil {
			t.Fatalf("InitTracer(insecure=%v): %v", insecure, err)
		}
		shutdown(tp.Shutdown)
	}
}

func TestInitMeter(t *testing.T) {
	cfg := DefaultMeterConfig("test")
	cfg.Interval = 0
	mp, err := InitMeter(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("InitMeter: %v", err)
	}
	shutdown(mp.Shutdown)
}

// shutdown bounds the final export, which has no collector to reach.
func shutdown(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = fn(ctx)
}
