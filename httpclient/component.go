package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/httpkit/component"
	"github.com/kbukum/httpkit/util"
)

// DefaultHealthTimeout bounds a health check.
const DefaultHealthTimeout = 2 * time.Second

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component manages a Client bound to one upstream. The client is created
// on Start, or on first use through Client.
type Component struct {
	config    Config
	transport Transport
	opts      []Option
	lazy      *component.Lazy

	client        *Client
	healthPath    string
	healthTimeout time.Duration
}

// NewComponent creates a component that builds its client from cfg and
// transport.
func NewComponent(cfg Config, transport Transport, opts ...Option) *Component {
	c := &Component{config: cfg, transport: transport, opts: opts}
	c.lazy = component.NewLazy(c.Name(), c.init).WithCloser(c.close)
	return c
}

// WithHealthCheck makes Health check the upstream with a HEAD request to
// path. Without it, Health only reports whether the client was built.
func (c *Component) WithHealthCheck(path string, timeout time.Duration) *Component {
	c.healthPath = path
	c.healthTimeout = timeout
	return c
}

func (c *Component) init(context.Context) error {
	client, err := New(c.transport, c.config, c.opts...)
	if err != nil {
		return err
	}
	c.client = client
	return nil
}

func (c *Component) close() error {
	if closer, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	c.client = nil
	return nil
}

// Name returns the configured client name, or "http-client".
func (c *Component) Name() string {
	return util.Coalesce(c.config.Name, "http-client")
}

// Start builds the client.
func (c *Component) Start(ctx context.Context) error {
	return c.lazy.Ensure(ctx)
}

// Stop drops the client and closes idle transport connections.
func (c *Component) Stop(context.Context) error {
	return c.lazy.Close()
}

// Client returns the client, building it first if needed.
func (c *Component) Client(ctx context.Context) (*Client, error) {
	if err := c.lazy.Ensure(ctx); err != nil {
		return nil, err
	}
	return c.client, nil
}

// Health reports unhealthy before Start. With a health check configured,
// a 2xx or 3xx answer is healthy, 4xx degraded, and anything else unhealthy.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.lazy.Ready() {
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
		return h
	}
	if c.healthPath == "" {
		return h
	}

	timeout := c.healthTimeout
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	opts := NewOptions().SetMaxDuration(timeout)
	resp, err := c.client.SendWith(ctx, http.MethodHead, c.healthPath, opts)
	if err != nil {
		h.Status, h.Message = component.StatusUnhealthy, err.Error()
		return h
	}
	defer func() { _ = resp.Close() }()

	status, err := resp.Handle().StatusCode()
	if err != nil {
		h.Status, h.Message = component.StatusUnhealthy, err.Error()
		return h
	}
	switch code := StatusCode(status); {
	case code.IsClientError():
		h.Status, h.Message = component.StatusDegraded, fmt.Sprintf("HTTP %d", status)
	case code.IsServerError():
		h.Status, h.Message = component.StatusUnhealthy, fmt.Sprintf("HTTP %d", status)
	}
	return h
}

// Describe summarises the upstream and limits.
func (c *Component) Describe() component.Description {
	details := util.Coalesce(util.RedactURL(c.config.BaseURL), "no base url")
	if c.config.Timeout > 0 {
		details += " timeout=" + c.config.Timeout.String()
	}
	if c.config.MaxDuration > 0 {
		details += " max_duration=" + c.config.MaxDuration.String()
	}
	if c.config.Auth != nil {
		details += " auth=" + c.config.Auth.Summary()
	}
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: details,
	}
}
