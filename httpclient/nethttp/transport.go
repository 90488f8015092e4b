// Package nethttp implements httpclient.Transport on top of net/http.
//
// Every request runs in its own goroutine; Issue returns at once and the
// handle blocks on first access. HTTP/2 is enabled through
// golang.org/x/net/http2 and per-request proxies are resolved with
// golang.org/x/net/http/httpproxy.
package nethttp

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/http2"

	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/security"
)

// Transport issues requests with net/http.
type Transport struct {
	secure   *http.Client
	insecure *http.Client
	log      *logger.Logger
	dialer   *net.Dialer
}

var (
	_ httpclient.Transport = (*Transport)(nil)
	_ httpclient.Streamer  = (*Transport)(nil)
)

// Option configures a Transport.
type Option func(*options)

type options struct {
	tls         *security.TLSConfig
	log         *logger.Logger
	dialTimeout time.Duration
}

// WithTLS sets the TLS configuration for https requests.
func WithTLS(cfg *security.TLSConfig) Option {
	return func(o *options) { o.tls = cfg }
}

// WithLogger sets the transport logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithDialTimeout bounds connection setup. Defaults to 30s.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// New creates a Transport.
func New(opts ...Option) (*Transport, error) {
	o := options{dialTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.WithComponent("httpclient.nethttp")
	}

	tlsCfg, err := o.tls.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	insecureCfg := tlsCfg.Clone()
	insecureCfg.InsecureSkipVerify = true

	t := &Transport{
		log:    o.log,
		dialer: &net.Dialer{Timeout: o.dialTimeout, KeepAlive: 30 * time.Second},
	}
	t.secure = &http.Client{Transport: t.roundTripper(tlsCfg), CheckRedirect: checkRedirect}
	t.insecure = &http.Client{Transport: t.roundTripper(insecureCfg), CheckRedirect: checkRedirect}
	return t, nil
}

// NewClient builds an httpclient.Client backed by a Transport configured
// from cfg.
func NewClient(cfg httpclient.Config, opts ...httpclient.Option) (*httpclient.Client, error) {
	t, err := New(WithTLS(cfg.TLS))
	if err != nil {
		return nil, err
	}
	return httpclient.New(t, cfg, opts...)
}

func (t *Transport) roundTripper(tlsCfg *tls.Config) *http.Transport {
	rt := &http.Transport{
		Proxy:                 proxyFromContext,
		DialContext:           t.dialer.DialContext,
		TLSClientConfig:       tlsCfg,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if err := http2.ConfigureTransport(rt); err != nil {
		t.log.Warn("http2 disabled", logger.ErrorFields("configure_transport", err))
	}
	return rt
}

// Issue starts the request and returns without waiting for the response.
// Malformed URLs are reported immediately.
func (t *Transport) Issue(ctx context.Context, method, rawURL string, opts *httpclient.WireOptions) (httpclient.Handle, error) {
	target, err := url.Parse(opts.URL(rawURL))
	if err != nil {
		return nil, httpclient.NewValidationError("invalid url: " + err.Error())
	}

	reqCtx, cancel := context.WithCancel(ctx)
	if opts.MaxDuration > 0 {
		reqCtx, cancel = withDeadline(reqCtx, cancel, opts.MaxDuration)
	}
	reqCtx = context.WithValue(reqCtx, redirectKey{}, opts.MaxRedirects)
	if opts.Proxy != nil {
		reqCtx = context.WithValue(reqCtx, proxyKey{}, opts.Proxy)
	}

	var body io.Reader
	var produce func() (io.Reader, error)
	if opts.BodyProducer != nil {
		produce = opts.BodyReader
	} else if body, err = opts.BodyReader(); err != nil {
		cancel()
		return nil, err
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target.String(), body)
	if err != nil {
		cancel()
		return nil, httpclient.NewValidationError("create request: " + err.Error())
	}
	req.Header = opts.HTTPHeader()
	opts.Auth.Apply(req)

	client := t.secure
	if !opts.VerifyTLS {
		client = t.insecure
	}

	h := newHandle(cancel, method, req.URL.String(), opts, t.log)
	go h.run(client, req, produce)
	return h, nil
}

// CloseIdleConnections closes idle keep-alive connections.
func (t *Transport) CloseIdleConnections() {
	t.secure.CloseIdleConnections()
	t.insecure.CloseIdleConnections()
}

func withDeadline(parent context.Context, cancelParent context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		cancel()
		cancelParent()
	}
}

type redirectKey struct{}

type proxyKey struct{}

// checkRedirect follows up to the configured number of redirects and then
// returns the last redirect response as is.
func checkRedirect(req *http.Request, via []*http.Request) error {
	limit, ok := req.Context().Value(redirectKey{}).(int)
	if !ok {
		limit = httpclient.DefaultMaxRedirects
	}
	if limit <= 0 || len(via) > limit {
		return http.ErrUseLastResponse
	}
	return nil
}

// proxyFromContext uses the request's proxy settings, falling back to the
// environment.
func proxyFromContext(req *http.Request) (*url.URL, error) {
	p, ok := req.Context().Value(proxyKey{}).(*httpclient.ProxyConfig)
	if !ok || p == nil {
		return http.ProxyFromEnvironment(req)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  p.HTTP,
		HTTPSProxy: p.HTTPS,
		NoProxy:    p.NoProxy,
	}
	return cfg.ProxyFunc()(req.URL)
}
