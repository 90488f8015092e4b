package httpclient

import (
	"context"
	"iter"
	"net/http"
	"strings"

	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/validation"
)

// Client sends requests through a Transport. Every request starts from the
// Config defaults, merged key by key with the per-call options.
//
// The per-call OptionSet returned by Options accumulates across Send calls
// until Reset is called on it. Use SendWith for fully independent calls.
type Client struct {
	config     Config
	base       Transport
	transport  Transport
	defaults   *OptionSet
	options    *OptionSet
	log        *logger.Logger
	middleware []Middleware
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request logging.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMiddleware wraps the transport. The first middleware is the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// New creates a client that issues requests through transport.
func New(transport Transport, cfg Config, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, NewValidationError("transport is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   cfg,
		base:     transport,
		defaults: cfg.OptionSet(),
		options:  NewOptions(),
		log:      logger.WithComponent("httpclient"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.transport = transport
	for i := len(c.middleware) - 1; i >= 0; i-- {
		c.transport = c.middleware[i](c.transport)
	}
	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.config }

// Defaults returns the options applied to every request. Changes made to the
// returned set affect later requests.
func (c *Client) Defaults() *OptionSet { return c.defaults }

// Options returns the per-call options used by Send and the verb helpers.
func (c *Client) Options() *OptionSet { return c.options }

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Send(ctx, http.MethodGet, path)
}

// Head sends a HEAD request.
func (c *Client) Head(ctx context.Context, path string) (*Response, error) {
	return c.Send(ctx, http.MethodHead, path)
}

// Post sends a POST request.
func (c *Client) Post(ctx context.Context, path string) (*Response, error) {
	return c.Send(ctx, http.MethodPost, path)
}

// Put sends a PUT request.
func (c *Client) Put(ctx context.Context, path string) (*Response, error) {
	return c.Send(ctx, http.MethodPut, path)
}

// Patch sends a PATCH request.
func (c *Client) Patch(ctx context.Context, path string) (*Response, error) {
	return c.Send(ctx, http.MethodPatch, path)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Send(ctx, http.MethodDelete, path)
}

// Send issues a request with the client's per-call options.
func (c *Client) Send(ctx context.Context, method, path string) (*Response, error) {
	return c.SendWith(ctx, method, path, c.options)
}

// SendWith issues a request with opts merged over the client defaults.
// Payload and option errors are returned before anything is sent; transport
// failures surface later from the Response.
func (c *Client) SendWith(ctx context.Context, method, path string, opts *OptionSet) (*Response, error) {
	method = strings.ToUpper(method)
	target := c.resolveURL(path)
	if err := validation.New().Method("method", method).URL("url", target).Err(); err != nil {
		return nil, wrapValidation("request", err)
	}

	merged := c.defaults.merge(opts)
	wire, err := Resolve(merged)
	if err != nil {
		c.log.Debug("request rejected before dispatch", logger.MergeWithError(logger.RequestFields(method, target), err))
		return nil, err
	}

	fields := logger.RequestFields(method, target)
	fields["body_format"] = string(wire.BodyFormat)
	c.log.WithContext(ctx).Debug("dispatching request", fields)

	h, err := c.transport.Issue(ctx, method, target, wire)
	if err != nil {
		return nil, err
	}
	return NewResponse(h, merged.ShouldThrowErrors()), nil
}

// Stream yields each chunk of the given responses in arrival order, paired
// with the response it belongs to. The transport must implement Streamer.
func (c *Client) Stream(ctx context.Context, responses ...*Response) (iter.Seq2[*Response, Chunk], error) {
	s, ok := c.base.(Streamer)
	if !ok {
		return nil, NewUnsupportedError("Stream")
	}
	handles := make([]Handle, len(responses))
	for i, r := range responses {
		handles[i] = r.handle
	}

	return func(yield func(*Response, Chunk) bool) {
		for h, chunk := range s.Stream(ctx, handles...) {
			if !yield(responseFor(responses, h), chunk) {
				return
			}
		}
	}, nil
}

// Each streams the responses and dispatches every classified chunk to
// handlers. It returns when all responses completed or ctx is done.
func (c *Client) Each(ctx context.Context, handlers Handlers, responses ...*Response) error {
	seq, err := c.Stream(ctx, responses...)
	if err != nil {
		return err
	}
	for resp, chunk := range seq {
		outcome := Classify(resp, chunk)
		c.log.Debug("stream chunk classified", logger.Fields(
			"url", resp.RequestURL(), "status", outcome.Status.String()))
		handlers.Dispatch(outcome)
	}
	return ctx.Err()
}

func responseFor(responses []*Response, h Handle) *Response {
	for _, r := range responses {
		if r.handle == h {
			return r
		}
	}
	return NewResponse(h, false)
}

// resolveURL joins relative paths to the base URL. Absolute URLs are used
// as given.
func (c *Client) resolveURL(path string) string {
	if c.config.BaseURL == "" || isAbsoluteURL(path) {
		return path
	}
	if path == "" {
		return c.config.BaseURL
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func isAbsoluteURL(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
