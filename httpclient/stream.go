package httpclient

// Status is the completion state of a streamed response.
type Status int

const (
	// StatusPending means the chunk carried neither completion nor failure.
	StatusPending Status = iota
	// StatusFulfilled means the response completed.
	StatusFulfilled
	// StatusTimeout means the response exceeded its idle timeout.
	StatusTimeout
	// StatusRejected means the transport failed.
	StatusRejected
)

// String returns the state name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusTimeout:
		return "timeout"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome is the classification of one (response, chunk) pair.
type Outcome struct {
	Status   Status
	Response *Response
	Chunk    Chunk
	// Err is the transport failure for rejected outcomes.
	Err error
}

// Classify inspects a chunk. A failure wins over completion, and completion
// wins over a timeout.
func Classify(resp *Response, chunk Chunk) *Outcome {
	o := &Outcome{Status: StatusPending, Response: resp, Chunk: chunk}
	if chunk == nil {
		return o
	}
	switch {
	case chunk.Err() != nil:
		o.Status = StatusRejected
		o.Err = chunk.Err()
	case chunk.IsLast():
		o.Status = StatusFulfilled
	case chunk.IsTimeout():
		o.Status = StatusTimeout
	}
	return o
}

// Then runs fn when the outcome is fulfilled.
func (o *Outcome) Then(fn func(*Response)) *Outcome {
	if o.Status == StatusFulfilled && fn != nil {
		fn(o.Response)
	}
	return o
}

// OnTimeout runs fn when the outcome timed out.
func (o *Outcome) OnTimeout(fn func(*Response)) *Outcome {
	if o.Status == StatusTimeout && fn != nil {
		fn(o.Response)
	}
	return o
}

// Catch runs fn when the outcome was rejected.
func (o *Outcome) Catch(fn func(error, *Response)) *Outcome {
	if o.Status == StatusRejected && fn != nil {
		fn(o.Err, o.Response)
	}
	return o
}

// Handlers groups the callbacks for a stream. Nil callbacks are skipped.
type Handlers struct {
	OnFulfilled func(*Response)
	OnTimeout   func(*Response)
	OnRejected  func(error, *Response)
}

// Dispatch runs the callback matching the outcome, if any.
func (h Handlers) Dispatch(o *Outcome) {
	o.Then(h.OnFulfilled).OnTimeout(h.OnTimeout).Catch(h.OnRejected)
}
