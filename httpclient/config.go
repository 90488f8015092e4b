package httpclient

import (
	"time"

	"github.com/kbukum/httpkit/config"
	apperrors "github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/resilience"
	"github.com/kbukum/httpkit/security"
	"github.com/kbukum/httpkit/validation"
	"github.com/kbukum/httpkit/version"
)

// Config holds the defaults applied to every request of a Client.
type Config struct {
	// Name identifies the client in logs, metrics and component listings.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is joined with relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,http_url"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers" validate:"dive,keys,header_name,endkeys"`

	// Query holds default query parameters, applied in key order.
	Query map[string]string `yaml:"query" mapstructure:"query"`

	// BodyFormat is the default payload encoding. Defaults to json.
	BodyFormat BodyFormat `yaml:"body_format" mapstructure:"body_format" validate:"omitempty,oneof=json multipart form raw"`

	// Timeout is the idle timeout. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// MaxDuration is the total time allowed per request. Zero means no limit.
	MaxDuration time.Duration `yaml:"max_duration" mapstructure:"max_duration" validate:"gte=0"`

	// MaxRedirects is the redirect limit; -1 disallows redirects. Nil keeps
	// the transport default.
	MaxRedirects *int `yaml:"max_redirects" mapstructure:"max_redirects" validate:"omitempty,gte=-1"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Proxy routes http and https requests through the given URL.
	Proxy string `yaml:"proxy" mapstructure:"proxy" validate:"omitempty,http_url"`

	// NoProxy lists hosts that bypass Proxy.
	NoProxy []string `yaml:"no_proxy" mapstructure:"no_proxy"`

	// TLS configures TLS settings for the transport.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// ThrowErrors makes responses report non-2xx statuses as errors.
	ThrowErrors bool `yaml:"throw_errors" mapstructure:"throw_errors"`

	// Auth configures default authentication applied to all requests.
	// Individual requests can override this.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// UserData is the default correlation value echoed on responses.
	UserData any `yaml:"-" mapstructure:"-"`

	// Options are additional defaults applied after the fields above.
	Options *OptionSet `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.BodyFormat == "" {
		c.BodyFormat = FormatJSON
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return wrapValidation("config", err)
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return wrapValidation("config", err)
		}
	}
	return nil
}

// wrapValidation turns a validation failure into a client validation error.
func wrapValidation(scope string, err error) *Error {
	msg := err.Error()
	if app, ok := apperrors.AsAppError(err); ok {
		msg = app.Message
	}
	return &Error{Code: ErrCodeValidation, Message: scope + ": " + msg, Err: err}
}

// OptionSet builds the default options described by the configuration.
func (c *Config) OptionSet() *OptionSet {
	o := NewOptions()
	if c.UserAgent != "" {
		o.SetUserAgent(c.UserAgent)
	}
	switch c.BodyFormat {
	case FormatJSON:
		o.AsJSON()
	case "":
	default:
		o.SetBodyFormat(c.BodyFormat)
	}
	o.SetHeaders(c.Headers)
	o.SetQueryParams(c.Query)

	if c.Timeout > 0 {
		o.SetTimeout(c.Timeout)
	}
	if c.MaxDuration > 0 {
		o.SetMaxDuration(c.MaxDuration)
	}
	if c.MaxRedirects != nil {
		if *c.MaxRedirects == NoRedirects {
			o.DisallowRedirects()
		} else {
			o.AllowRedirects(*c.MaxRedirects)
		}
	}
	if c.Proxy != "" {
		o.SetProxy(c.Proxy)
	}
	if len(c.NoProxy) > 0 {
		o.SetNoProxy(c.NoProxy...)
	}
	if c.TLS != nil && c.TLS.SkipVerify {
		o.SkipTLSVerify()
	}
	if c.ThrowErrors {
		o.ThrowErrors()
	}
	if c.Auth != nil {
		o.SetAuth(c.Auth)
	}
	if c.UserData != nil {
		o.SetUserData(c.UserData)
	}
	return o.merge(c.Options)
}

// LoadConfig reads the "http" section of a service configuration using the
// shared config loader, then applies defaults and validates it.
func LoadConfig(serviceName string, opts ...config.LoaderOption) (Config, error) {
	var file struct {
		HTTP Config `yaml:"http" mapstructure:"http"`
	}
	if err := config.LoadConfig(serviceName, &file, opts...); err != nil {
		return Config{}, err
	}
	cfg := file.HTTP
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultRetryConfig returns a retry config that re-sends on retryable
// client errors and honours Retry-After.
func DefaultRetryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	cfg.Delay = RetryAfter
	return cfg
}

// DefaultCircuitBreakerConfig returns a default circuit breaker config.
func DefaultCircuitBreakerConfig(name string) resilience.CircuitBreakerConfig {
	return resilience.DefaultCircuitBreakerConfig(name)
}

// DefaultRateLimiterConfig returns a default rate limiter config.
func DefaultRateLimiterConfig(name string) resilience.RateLimiterConfig {
	return resilience.DefaultRateLimiterConfig(name)
}
