package logger

import (
	"time"

	"github.com/kbukum/httpkit/util"
)

// Standard field keys.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
	FieldRequestID  = "request_id"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldMethod     = "method"
	FieldURL        = "url"
	FieldStatusCode = "status_code"
)

// Fields builds a field map from alternating key-value pairs. Pairs with a
// non-string key are skipped.
//
//	logger.Info("done", logger.Fields("op", "save", "id", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}

// RequestFields describes an outgoing request.
func RequestFields(method, url string) map[string]interface{} {
	return map[string]interface{}{
		FieldMethod: method,
		FieldURL:    util.RedactURL(url),
	}
}

// ResponseFields describes a completed exchange.
func ResponseFields(method, url string, status int, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldMethod:     method,
		FieldURL:        util.RedactURL(url),
		FieldStatusCode: status,
		FieldDuration:   d.Milliseconds(),
	}
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}
