package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func newJSON(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(buf, &Config{Level: level, Format: FormatJSON}, "test-svc")
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := newJSON(&buf, "info")
	l.Info("hello", Fields("key", "value"))

	m := decodeLine(t, &buf)
	if m["message"] != "hello" {
		t.Errorf("message = %v", m["message"])
	}
	if m[FieldService] != "test-svc" {
		t.Errorf("service = %v", m[FieldService])
	}
	if m["key"] != "value" {
		t.Errorf("key = %v", m["key"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newJSON(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got %q", buf.String())
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newJSON(&buf, "loud")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	newJSON(&buf, "info").WithComponent("httpclient").Info("x")
	if m := decodeLine(t, &buf); m[FieldComponent] != "httpclient" {
		t.Errorf("component = %v", m[FieldComponent])
	}
}

func TestWithContext(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = ContextWithRequestID(ctx, "req-1")

	var buf bytes.Buffer
	newJSON(&buf, "info").WithContext(ctx).Info("x")

	m := decodeLine(t, &buf)
	if m[FieldTraceID] != traceID.String() {
		t.Errorf("trace_id = %v", m[FieldTraceID])
	}
	if m[FieldSpanID] != spanID.String() {
		t.Errorf("span_id = %v", m[FieldSpanID])
	}
	if m[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v", m[FieldRequestID])
	}
}

func TestWithContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	newJSON(&buf, "info").WithContext(context.Background()).Info("x")
	m := decodeLine(t, &buf)
	if _, ok := m[FieldTraceID]; ok {
		t.Error("unexpected trace_id without span context")
	}
	if _, ok := m[FieldRequestID]; ok {
		t.Error("unexpected request_id")
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	newJSON(&buf, "info").WithFields(map[string]interface{}{"attempt": 2}).WithError(errors.New("boom")).Error("failed")
	m := decodeLine(t, &buf)
	if m["attempt"] != float64(2) {
		t.Errorf("attempt = %v", m["attempt"])
	}
	if m["error"] != "boom" {
		t.Errorf("error = %v", m["error"])
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "info", Format: FormatConsole, NoColor: true}, "billing")
	l.Info("ready", Fields("port", 8080))
	out := buf.String()
	for _, want := range []string{"[billing][INF]", "ready", "port:8080"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "service:") {
		t.Errorf("service field should be excluded from console output: %q", out)
	}
}

func TestNop(t *testing.T) {
	Nop().Error("discarded")
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	var buf bytes.Buffer
	SetGlobalLogger(newJSON(&buf, "debug"))
	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	WithComponent("c").Info("component")
	WithContext(context.Background()).Info("ctx")

	if n := strings.Count(buf.String(), "\n"); n != 6 {
		t.Errorf("expected 6 lines, got %d: %q", n, buf.String())
	}
}

func TestInit(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	Init(Config{Level: "debug", Format: FormatJSON}, "init-svc")
	if GetGlobalLogger().service != "init-svc" {
		t.Errorf("service = %q", GetGlobalLogger().service)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	l := NewFromEnv("env-svc")
	if l.Zerolog().GetLevel().String() != "debug" {
		t.Errorf("level = %v", l.Zerolog().GetLevel())
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatConsole || cfg.Output != "stderr" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"trace level", Config{Level: "trace", Format: "console"}, false},
		{"bad level", Config{Level: "verbose", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, 2, "skipped", "b", "two", "dangling")
	if len(m) != 2 || m["a"] != 1 || m["b"] != "two" {
		t.Errorf("Fields = %v", m)
	}
}

func TestFieldHelpers(t *testing.T) {
	ef := ErrorFields("decode", errors.New("bad json"))
	if ef[FieldOperation] != "decode" || ef[FieldError] != "bad json" {
		t.Errorf("ErrorFields = %v", ef)
	}

	df := DurationFields("send", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("DurationFields = %v", df)
	}

	rf := ResponseFields("GET", "https://api.test", 204, 20*time.Millisecond)
	if rf[FieldMethod] != "GET" || rf[FieldStatusCode] != 204 || rf[FieldDuration] != int64(20) {
		t.Errorf("ResponseFields = %v", rf)
	}

	mf := MergeWithError(nil, errors.New("x"))
	if mf[FieldError] != "x" {
		t.Errorf("MergeWithError(nil) = %v", mf)
	}
	mf = MergeWithError(RequestFields("POST", "/u"), errors.New("y"))
	if mf[FieldMethod] != "POST" || mf[FieldError] != "y" {
		t.Errorf("MergeWithError = %v", mf)
	}

	rq := RequestFields("GET", "https://api.test/x?token=abc")
	if rq[FieldURL] != "https://api.test/x?token=REDACTED" {
		t.Errorf("RequestFields should redact credentials, got %v", rq[FieldURL])
	}
}
