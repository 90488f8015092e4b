// Package sse reads Server-Sent Events from an httpclient response body.
//
//	resp, _ := client.Get(ctx, "/events")
//	events, _ := sse.Open(resp)
//	defer events.Close()
//	for ev, err := range events.All() {
//	    ...
//	}
package sse

import (
	"bufio"
	"io"
	"iter"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/httpkit/httpclient"
)

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

// Event is one dispatched server-sent event.
type Event struct {
	// Type is the "event:" field. Empty for data-only events.
	Type string
	// Data is the "data:" payload; multiple data lines are joined with "\n".
	Data string
	// ID is the last "id:" field seen on the stream.
	ID string
	// Retry is the reconnection delay requested with "retry:", or 0.
	Retry time.Duration
}

// Reader reads events from a stream.
type Reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	lastID  string
}

// NewReader reads events from body.
func NewReader(body io.ReadCloser) *Reader {
	return &Reader{scanner: bufio.NewScanner(body), body: body}
}

// Open takes the body of resp as an event stream. The response must declare
// the text/event-stream content type.
func Open(resp *httpclient.Response) (*Reader, error) {
	mediaType, _, err := mime.ParseMediaType(resp.ContentType())
	if err != nil || mediaType != ContentType {
		return nil, httpclient.NewValidationError("response is not an event stream: " + resp.ContentType())
	}
	body, err := resp.ToStream()
	if err != nil {
		return nil, err
	}
	return NewReader(body), nil
}

// Next returns the next event, or io.EOF when the stream ends.
func (r *Reader) Next() (*Event, error) {
	ev := Event{ID: r.lastID}
	var data []string

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if data != nil {
				ev.Data = strings.Join(data, "\n")
				return &ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			data = append(data, value)
		case "event":
			ev.Type = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
				ev.ID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				ev.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if data != nil {
		ev.Data = strings.Join(data, "\n")
		return &ev, nil
	}
	return nil, io.EOF
}

// All iterates over the remaining events. Iteration stops after the first
// error other than io.EOF, which is yielded.
func (r *Reader) All() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for {
			ev, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// LastID returns the id of the most recent event that carried one.
func (r *Reader) LastID() string { return r.lastID }

// Close releases the underlying stream.
func (r *Reader) Close() error {
	return r.body.Close()
}

// parseLine splits a field line; a single space after the colon is dropped.
func parseLine(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
