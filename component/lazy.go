package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/httpkit/logger"
)

// Lazy runs an initializer on first use. A failed initialization is not
// remembered, so the next call tries again.
type Lazy struct {
	name   string
	init   func(ctx context.Context) error
	closer func() error

	mu    sync.Mutex
	ready bool
}

// NewLazy creates a Lazy that runs init on the first Ensure.
func NewLazy(name string, init func(context.Context) error) *Lazy {
	return &Lazy{name: name, init: init}
}

// WithCloser sets the function Close runs once initialized.
func (l *Lazy) WithCloser(fn func() error) *Lazy {
	l.closer = fn
	return l
}

// Name returns the component name.
func (l *Lazy) Name() string { return l.name }

// Ensure runs the initializer unless it already succeeded.
func (l *Lazy) Ensure(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready {
		return nil
	}
	if l.init == nil {
		return fmt.Errorf("component %s: no initializer", l.name)
	}
	if err := l.init(ctx); err != nil {
		return fmt.Errorf("component %s: initialize: %w", l.name, err)
	}
	l.ready = true
	logger.Debug("component initialized", logger.Fields(logger.FieldComponent, l.name))
	return nil
}

// Ready reports whether initialization has succeeded.
func (l *Lazy) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// Close runs the closer if initialized and resets the component, so a
// later Ensure initializes it again.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return nil
	}
	l.ready = false
	if l.closer != nil {
		return l.closer()
	}
	return nil
}
