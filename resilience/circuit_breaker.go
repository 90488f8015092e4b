package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is the position of a circuit breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until OpenTimeout elapses.
	StateOpen
	// StateHalfOpen admits a few trial calls.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned for calls rejected by an open breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// Name identifies the upstream in logs and callbacks.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=0"`
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration `yaml:"open_timeout" mapstructure:"open_timeout" validate:"gte=0"`
	// HalfOpenMaxCalls is the number of trial calls, all of which must succeed
	// to close the circuit again.
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls" validate:"gte=0"`
	// OnStateChange is called after each transition, outside the lock.
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// DefaultCircuitBreakerConfig opens after 5 failures for 30 seconds.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker fails calls fast while an upstream keeps failing.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	trials    int
	successes int
	openedAt  time.Time
}

type transition struct {
	from, to State
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(config.Name)
	if config.MaxFailures <= 0 {
		config.MaxFailures = def.MaxFailures
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = def.OpenTimeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute runs fn when the breaker admits it. A non-nil error from fn
// counts as a failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	done, err := cb.Allow()
	if err != nil {
		return err
	}
	err = fn()
	done(err == nil)
	return err
}

// Allow admits one call without running it. The caller reports the outcome
// through done, exactly once, when the call finishes. Use it when the result
// arrives later than the call is started.
func (cb *CircuitBreaker) Allow() (done func(success bool), err error) {
	if err := cb.admit(); err != nil {
		return nil, err
	}
	var once sync.Once
	return func(success bool) { once.Do(func() { cb.record(success) }) }, nil
}

// State returns the current state, moving an expired open circuit to
// half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	changes := cb.advance()
	state := cb.state
	cb.mu.Unlock()
	cb.notify(changes)
	return state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Name returns the configured name.
func (cb *CircuitBreaker) Name() string { return cb.config.Name }

// Reset closes the circuit and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	changes := cb.moveTo(nil, StateClosed)
	cb.mu.Unlock()
	cb.notify(changes)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	changes := cb.advance()
	var err error
	switch cb.state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.trials >= cb.config.HalfOpenMaxCalls {
			err = ErrCircuitOpen
		} else {
			cb.trials++
		}
	}
	cb.mu.Unlock()
	cb.notify(changes)
	return err
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	var changes []transition
	switch cb.state {
	case StateClosed:
		if ok {
			cb.failures = 0
			break
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			changes = cb.moveTo(changes, StateOpen)
		}
	case StateHalfOpen:
		if !ok {
			cb.failures++
			changes = cb.moveTo(changes, StateOpen)
			break
		}
		cb.successes++
		if cb.successes >= cb.config.HalfOpenMaxCalls {
			changes = cb.moveTo(changes, StateClosed)
		}
	}
	// Results arriving while open belong to calls admitted earlier.
	cb.mu.Unlock()
	cb.notify(changes)
}

// advance must be called with mu held.
func (cb *CircuitBreaker) advance() []transition {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.OpenTimeout {
		return cb.moveTo(nil, StateHalfOpen)
	}
	return nil
}

// moveTo must be called with mu held.
func (cb *CircuitBreaker) moveTo(changes []transition, to State) []transition {
	from := cb.state
	cb.state = to
	cb.trials = 0
	cb.successes = 0
	switch to {
	case StateClosed:
		cb.failures = 0
	case StateOpen:
		cb.openedAt = cb.now()
	}
	if from == to {
		return changes
	}
	return append(changes, transition{from: from, to: to})
}

func (cb *CircuitBreaker) notify(changes []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, c := range changes {
		cb.config.OnStateChange(cb.config.Name, c.from, c.to)
	}
}
