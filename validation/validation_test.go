package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/httpkit/errors"
)

func TestValidatorRequired(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"John", false},
		{"", true},
		{"   ", true},
	}
	for _, tt := range tests {
		if got := New().Required("name", tt.value).HasErrors(); got != tt.wantErr {
			t.Errorf("Required(%q) HasErrors = %v, want %v", tt.value, got, tt.wantErr)
		}
	}
}

func TestValidatorURL(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"https://api.test/v1", true},
		{"HTTP://api.test", true},
		{"http://127.0.0.1:8080", true},
		{"/relative/path", false},
		{"ftp://files.test", false},
		{"https://", false},
		{"", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		if got := !New().URL("url", tt.value).HasErrors(); got != tt.valid {
			t.Errorf("URL(%q) valid = %v, want %v", tt.value, got, tt.valid)
		}
	}
}

func TestValidatorMethod(t *testing.T) {
	for _, m := range []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE"} {
		if New().Method("method", m).HasErrors() {
			t.Errorf("Method(%q) should be valid", m)
		}
	}
	for _, m := range []string{"get", "TRACE", "CONNECT", "OPTIONS", ""} {
		if !New().Method("method", m).HasErrors() {
			t.Errorf("Method(%q) should be invalid", m)
		}
	}
}

func TestValidatorHeaders(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{"simple", "X-Request-Id", "abc", false},
		{"token chars", "x_custom.header~1", "v", false},
		{"space in name", "Bad Header", "v", true},
		{"colon in name", "bad:header", "v", true},
		{"empty name", "", "v", true},
		{"crlf value", "X-Test", "a\r\nInjected: yes", true},
		{"nul value", "X-Test", "a\x00b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New().HeaderName("name", tt.key).HeaderValue("value", tt.value)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("errors = %v, wantErr %v", v.Errors(), tt.wantErr)
			}
		})
	}
}

func TestValidatorOptionalUUID(t *testing.T) {
	if New().OptionalUUID("id", "").HasErrors() {
		t.Error("empty value should be accepted")
	}
	if New().OptionalUUID("id", uuid.NewString()).HasErrors() {
		t.Error("valid UUID should be accepted")
	}
	if !New().OptionalUUID("id", "not-a-uuid").HasErrors() {
		t.Error("invalid UUID should be rejected")
	}
}

func TestValidatorMinOneOfCustom(t *testing.T) {
	v := New().
		Min("retries", -1, 0).
		OneOf("format", "xml", []string{"json", "form"}).
		OneOf("empty", "", []string{"json"}).
		Custom(false, "auth", "username requires password")

	if got := len(v.Errors()); got != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", got, v.Errors())
	}
	if v.Errors()[1].Message != "must be one of: json, form" {
		t.Errorf("OneOf message = %q", v.Errors()[1].Message)
	}
}

func TestValidatorValidate(t *testing.T) {
	if New().Validate() != nil {
		t.Error("expected nil AppError without errors")
	}
	if New().Err() != nil {
		t.Error("expected nil error without errors")
	}

	v := New().Required("name", "").URL("base_url", "nope")
	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected AppError")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("code = %v", appErr.Code)
	}
	if !strings.Contains(appErr.Message, "name: is required") || !strings.Contains(appErr.Message, "base_url:") {
		t.Errorf("message = %q", appErr.Message)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Errorf("details = %v", appErr.Details)
	}
}

type tlsSection struct {
	CAFile string `yaml:"ca_file" validate:"omitempty,min=3"`
}

type clientConfig struct {
	Name        string            `yaml:"name" validate:"required"`
	BaseURL     string            `yaml:"base_url" validate:"omitempty,http_url"`
	Method      string            `json:"method" validate:"omitempty,http_method"`
	Headers     map[string]string `yaml:"headers" validate:"dive,keys,header_name,endkeys"`
	Timeout     time.Duration     `yaml:"timeout" validate:"gte=0"`
	Redirects   int               `yaml:"max_redirects" validate:"min=-1,max=50"`
	Format      string            `yaml:"body_format" validate:"omitempty,oneof=json form"`
	TLS         *tlsSection       `yaml:"tls"`
	UntaggedKey string            `validate:"omitempty,max=2"`
}

func TestStructValidateValid(t *testing.T) {
	cfg := clientConfig{
		Name:      "billing",
		BaseURL:   "https://billing.test",
		Method:    "POST",
		Headers:   map[string]string{"X-Tenant": "acme"},
		Timeout:   time.Second,
		Redirects: -1,
		Format:    "json",
		TLS:       &tlsSection{CAFile: "ca.pem"},
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructValidateMessages(t *testing.T) {
	tests := []struct {
		name string
		cfg  clientConfig
		want string
	}{
		{"required", clientConfig{}, "name: is required"},
		{"http_url", clientConfig{Name: "x", BaseURL: "/api"}, "base_url: must be an absolute http or https URL"},
		{"http_method", clientConfig{Name: "x", Method: "TRACE"}, "method: must be an HTTP method"},
		{"header_name", clientConfig{Name: "x", Headers: map[string]string{"bad header": "v"}}, "headers[bad header]: must be a valid header name"},
		{"gte", clientConfig{Name: "x", Timeout: -time.Second}, "timeout: must be greater than or equal to 0"},
		{"numeric min", clientConfig{Name: "x", Redirects: -2}, "max_redirects: must be at least -1"},
		{"numeric max", clientConfig{Name: "x", Redirects: 51}, "max_redirects: must be at most 50"},
		{"oneof", clientConfig{Name: "x", Format: "xml"}, "body_format: must be one of: json form"},
		{"nested", clientConfig{Name: "x", TLS: &tlsSection{CAFile: "a"}}, "tls.ca_file: must be at least 3 characters"},
		{"snake case fallback", clientConfig{Name: "x", UntaggedKey: "abc"}, "untagged_key: must be at most 2 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.want)
			}
			appErr, ok := errors.AsAppError(err)
			if !ok || appErr.Code != errors.ErrCodeInvalidInput {
				t.Errorf("expected validation AppError, got %T", err)
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":        "name",
		"BaseURL":     "base_u_r_l",
		"maxDuration": "max_duration",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
