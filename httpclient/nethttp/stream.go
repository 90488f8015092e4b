package nethttp

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/kbukum/httpkit/httpclient"
)

// Chunk is one event of a streamed response.
type Chunk struct {
	first   bool
	last    bool
	timeout bool
	err     error
}

var _ httpclient.Chunk = (*Chunk)(nil)

// IsFirst reports that the response headers arrived.
func (c *Chunk) IsFirst() bool { return c.first }

// IsLast reports that the body is complete.
func (c *Chunk) IsLast() bool { return c.last }

// IsTimeout reports that the response was idle for longer than its timeout.
func (c *Chunk) IsTimeout() bool { return c.timeout }

// Err returns the transport failure, if any.
func (c *Chunk) Err() error { return c.err }

type event struct {
	handle httpclient.Handle
	chunk  *Chunk
}

// Stream yields chunks from all handles in the order they happen. Each
// handle produces a first chunk when its headers arrive, a timeout chunk for
// every idle period longer than its timeout, and ends with a last chunk or
// a failed one. Streaming does not abort idle requests.
//
// Handles not created by this transport yield a single failed chunk.
func (t *Transport) Stream(ctx context.Context, handles ...httpclient.Handle) iter.Seq2[httpclient.Handle, httpclient.Chunk] {
	return func(yield func(httpclient.Handle, httpclient.Chunk) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		events := make(chan event)
		var wg sync.WaitGroup
		for _, h := range handles {
			wg.Add(1)
			go func() {
				defer wg.Done()
				watch(ctx, h, events)
			}()
		}
		go func() {
			wg.Wait()
			close(events)
		}()

		for ev := range events {
			if !yield(ev.handle, ev.chunk) {
				return
			}
		}
	}
}

func watch(ctx context.Context, orig httpclient.Handle, events chan<- event) {
	send := func(c *Chunk) bool {
		select {
		case events <- event{handle: orig, chunk: c}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	h, ok := orig.(*handle)
	if !ok {
		send(&Chunk{err: httpclient.NewUnsupportedError("Stream")})
		return
	}
	h.buffer()

	headers := h.headersDone
	lastTimeout := time.Time{}
	for {
		var timer *time.Timer
		var timerC <-chan time.Time
		if h.timeout > 0 {
			since := time.Unix(0, h.lastActivity.Load())
			if lastTimeout.After(since) {
				since = lastTimeout
			}
			timer = time.NewTimer(time.Until(since.Add(h.timeout)))
			timerC = timer.C
		}

		keep := step(ctx, h, &headers, &lastTimeout, timerC, send)
		if timer != nil {
			timer.Stop()
		}
		if !keep {
			return
		}
	}
}

// step waits for the next event of h and reports whether to keep watching.
func step(ctx context.Context, h *handle, headers *chan struct{}, lastTimeout *time.Time, timerC <-chan time.Time, send func(*Chunk) bool) bool {
	select {
	case <-ctx.Done():
		return false
	case <-*headers:
		*headers = nil
		if h.failure() != nil {
			return true
		}
		return send(&Chunk{first: true})
	case <-h.done:
		if err := h.failure(); err != nil {
			send(&Chunk{err: err})
		} else {
			send(&Chunk{last: true})
		}
		return false
	case <-timerC:
		if h.idle() < h.timeout {
			return true
		}
		*lastTimeout = time.Now()
		return send(&Chunk{timeout: true})
	}
}
