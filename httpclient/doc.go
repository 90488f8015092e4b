// Package httpclient provides a fluent HTTP request builder on top of a
// pluggable Transport.
//
// A Client carries default options from its Config and a per-call OptionSet
// that accumulates until Reset. Payloads (Text, Fields, List, Stream,
// Producer) are encoded by Resolve for the selected body format: json, form,
// multipart or raw. Requests are issued without waiting; a Response blocks
// on first access to its status, headers or body.
//
// Subpackages:
//
//   - nethttp: the net/http Transport
//   - fake: an in-memory Transport for tests
//   - sse: Server-Sent Events reader
//
// # Basic Usage
//
//	client, err := nethttp.NewClient(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Timeout: 30 * time.Second,
//	    Auth:    httpclient.BearerAuth("my-token"),
//	})
//
//	client.Options().SetQueryParam("page", "2")
//	resp, err := client.Get(ctx, "/users")
//	defer resp.Close()
//	name := resp.Path("0.name").String()
//
// # Payloads
//
//	client.Options().AsForm().SetPayload(httpclient.Fields{
//	    {Name: "name", Value: "Ada"},
//	    {Name: "role", Value: "admin"},
//	})
//	resp, err := client.Post(ctx, "/users")
//
// # Typed Requests
//
//	user, err := httpclient.Get[User](client, ctx, "/users/123")
//
// # With Resilience
//
//	client, err := nethttp.NewClient(cfg, httpclient.WithMiddleware(
//	    httpclient.WithCircuitBreaker(resilience.NewCircuitBreaker(
//	        httpclient.DefaultCircuitBreakerConfig("users-api"))),
//	))
//	resp, err := httpclient.SendWithRetry(ctx, client, http.MethodGet, "/users",
//	    httpclient.DefaultRetryConfig())
package httpclient
