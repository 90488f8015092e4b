package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBulkhead_Defaults(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	if b.MaxConcurrent() != 10 || b.Available() != 10 || b.InUse() != 0 {
		t.Errorf("max=%d available=%d inUse=%d", b.MaxConcurrent(), b.Available(), b.InUse())
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	var rejected error
	b := NewBulkhead(BulkheadConfig{
		Name:          "search",
		MaxConcurrent: 1,
		OnReject:      func(_ string, err error) { rejected = err },
	})

	release, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.InUse() != 1 || b.Available() != 0 {
		t.Errorf("inUse=%d available=%d", b.InUse(), b.Available())
	}

	if err := b.Execute(context.Background(), func() error { return nil }); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Execute = %v, want ErrBulkheadFull", err)
	}
	if !errors.Is(rejected, ErrBulkheadFull) {
		t.Errorf("OnReject got %v", rejected)
	}

	release()
	if b.InUse() != 0 {
		t.Errorf("InUse after release = %d", b.InUse())
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	release, _ := b.Acquire(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()

	got, err := ExecuteWithResult(b, context.Background(), func() (string, error) { return "done", nil })
	if err != nil || got != "done" {
		t.Errorf("ExecuteWithResult = %q, %v", got, err)
	}
}

func TestBulkhead_WaitTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 5 * time.Millisecond})
	release, _ := b.Acquire(context.Background())
	defer release()

	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("Acquire = %v, want ErrBulkheadTimeout", err)
	}
}

func TestBulkhead_ContextCancelled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	release, _ := b.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire = %v, want context.Canceled", err)
	}
}

func TestBulkhead_BoundsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 3, MaxWait: time.Second})
	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for range 12 {
		wg.Go(func() {
			_ = b.Execute(context.Background(), func() error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				current.Add(-1)
				return nil
			})
		})
	}
	wg.Wait()
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestExecuteWithResult_PropagatesError(t *testing.T) {
	b := NewBulkhead(DefaultBulkheadConfig("x"))
	_, err := ExecuteWithResult(b, context.Background(), func() (int, error) { return 0, errUpstream })
	if !errors.Is(err, errUpstream) {
		t.Errorf("err = %v", err)
	}
	if b.InUse() != 0 {
		t.Error("slot leaked after error")
	}
}
