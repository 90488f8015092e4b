package resilience

import (
	"context"
	"errors"
	"time"
)

// Bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	// Name identifies the upstream in callbacks.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxConcurrent is the number of calls allowed in flight.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// MaxWait is how long to queue for a slot. Zero rejects at once.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait" validate:"gte=0"`
	// OnReject is called with the reason a call was turned away.
	OnReject func(name string, err error) `yaml:"-" mapstructure:"-"`
}

// DefaultBulkheadConfig allows 10 concurrent calls and does not queue.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{Name: name, MaxConcurrent: 10}
}

// Bulkhead bounds the number of concurrent calls to one upstream.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultBulkheadConfig("").MaxConcurrent
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire takes a slot. The returned release func must be called exactly
// once when the call is done.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name, err)
		}
		return nil, err
	}
	return func() { <-b.sem }, nil
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	release, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// ExecuteWithResult runs fn while holding a slot of b.
func ExecuteWithResult[T any](b *Bulkhead, ctx context.Context, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}
	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of held slots.
func (b *Bulkhead) InUse() int { return len(b.sem) }

// Available returns the number of free slots.
func (b *Bulkhead) Available() int { return b.config.MaxConcurrent - len(b.sem) }

// MaxConcurrent returns the slot count.
func (b *Bulkhead) MaxConcurrent() int { return b.config.MaxConcurrent }
