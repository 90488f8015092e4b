package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/httpkit/logger"
)

// MeterConfig configures export of client metrics over OTLP/HTTP.
type MeterConfig struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the collector host:port, e.g. "localhost:4318".
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the export period. Zero keeps the SDK default.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// DefaultMeterConfig exports to a local collector every 15 seconds.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider. Shut it down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Instrument names.
const (
	MetricRequests       = "http.client.requests"
	MetricDuration       = "http.client.request.duration"
	MetricActiveRequests = "http.client.active_requests"
	MetricErrors         = "http.client.errors"
)

// Metrics holds the instruments recorded for outgoing requests.
type Metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
	errors   metric.Int64Counter
}

// NewMetrics creates the client instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Completed outgoing requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequests, err)
	}

	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Time until response headers arrive"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricDuration, err)
	}

	active, err := meter.Int64UpDownCounter(MetricActiveRequests,
		metric.WithDescription("Requests waiting for response headers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricActiveRequests, err)
	}

	errs, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Requests that failed without a response, by error type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrors, err)
	}

	return &Metrics{requests: requests, duration: duration, active: active, errors: errs}, nil
}

// RecordRequestStart counts a request as in flight.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.active.Add(ctx, 1)
}

// RecordRequestEnd ends an in-flight request. status is the response
// status code, or "error" when no response arrived.
func (m *Metrics) RecordRequestEnd(ctx context.Context, client, method, status string, duration time.Duration) {
	m.active.Add(ctx, -1)
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrClientName, client),
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrStatusCode, status),
	))
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrClientName, client),
		attribute.String(AttrHTTPMethod, method),
	))
}

// RecordError counts a failed request by error type.
func (m *Metrics) RecordError(ctx context.Context, client, errType string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrClientName, client),
		attribute.String(AttrErrorType, errType),
	))
}
