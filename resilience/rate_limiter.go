package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a token cannot be obtained in time.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	// Name identifies the upstream in callbacks.
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the number of requests allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	// Burst is the bucket size. Zero uses Rate.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	// OnLimit is called when a caller has to wait, with the wait it faces.
	OnLimit func(name string, wait time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRateLimiterConfig allows 10 requests per second with bursts of 20.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10,
		Burst: 20,
	}
}

// RateLimiter is a token bucket shared by all requests to one upstream.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = DefaultRateLimiterConfig("").Rate
	}
	if config.Burst <= 0 {
		config.Burst = max(int(config.Rate), 1)
	}
	rl := &RateLimiter{config: config, now: time.Now}
	rl.tokens = float64(config.Burst)
	rl.lastRefill = rl.now()
	return rl
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// Wait blocks until a token is available. It fails with ErrRateLimited
// without waiting when ctx expires before the token would arrive, and with
// ctx.Err() when ctx ends while waiting. A failed wait returns its token.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	wait := rl.reserve()
	if wait <= 0 {
		return nil
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name, wait)
	}
	if deadline, ok := ctx.Deadline(); ok && deadline.Sub(rl.now()) < wait {
		rl.cancel()
		return ErrRateLimited
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		rl.cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Tokens returns the number of tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// Rate returns the refill rate per second.
func (rl *RateLimiter) Rate() float64 { return rl.config.Rate }

// Burst returns the bucket size.
func (rl *RateLimiter) Burst() int { return rl.config.Burst }

// reserve takes a token, possibly going into debt, and returns how long
// the caller must wait for it.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.config.Rate * float64(time.Second))
}

func (rl *RateLimiter) cancel() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	rl.tokens = min(rl.tokens+1, float64(rl.config.Burst))
}

// refill must be called with mu held.
func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now
	rl.tokens = min(rl.tokens+elapsed*rl.config.Rate, float64(rl.config.Burst))
}
