// Package resilience shapes outgoing traffic to an upstream service.
//
//   - CircuitBreaker fails fast while the upstream keeps failing.
//   - Retry repeats a call with jittered exponential backoff and can honour
//     a server-provided delay such as Retry-After.
//   - RateLimiter is a token bucket shared by all calls.
//   - Bulkhead bounds the number of calls in flight.
//
// The httpclient package exposes each of them as transport middleware:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("billing"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 50, Burst: 10})
//	client, _ := httpclient.New(transport, cfg,
//	    httpclient.WithMiddleware(httpclient.WithCircuitBreaker(cb), httpclient.WithRateLimiter(rl)))
package resilience
