// Package observability exports traces and metrics of outgoing requests
// through OpenTelemetry.
//
//	tp, err := observability.InitTracer(ctx, &tracerCfg)
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter(observability.TracerName))
//
// An Exchange follows a single request. The httpclient tracing and metrics
// middleware drive it:
//
//	ex := &observability.Exchange{Client: "billing", Method: "GET", URL: target}
//	ctx = ex.Begin(ctx, tracer, metrics)
//	...
//	ex.Done(status)
package observability
