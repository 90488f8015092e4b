package fake

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/kbukum/httpkit/httpclient"
)

func issue(t *testing.T, tr *Transport, opts *httpclient.WireOptions) httpclient.Handle {
	t.Helper()
	h, err := tr.Issue(context.Background(), http.MethodGet, "https://api.test/items", opts)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return h
}

func TestTransport_RecordsRequests(t *testing.T) {
	tr := New(`{"id":1}`, Info{})
	opts := &httpclient.WireOptions{
		Headers:  map[string]string{"x-tenant": "acme"},
		Query:    []httpclient.QueryParam{{Key: "page", Value: "2"}},
		UserData: "corr",
	}
	h := issue(t, tr, opts)

	if code, err := h.StatusCode(); err != nil || code != http.StatusOK {
		t.Errorf("StatusCode = %d, %v", code, err)
	}
	headers, _ := h.Headers()
	if headers.Get("X-Tenant") != "acme" {
		t.Errorf("request headers should be echoed, got %v", headers)
	}
	if info := h.Info(); info.URL != "https://api.test/items?page=2" || info.UserData != "corr" {
		t.Errorf("info = %+v", info)
	}
	if got := tr.LastRequest(); got.Method != http.MethodGet || got.Options != opts {
		t.Errorf("last request = %+v", got)
	}
	if len(tr.Requests()) != 1 {
		t.Errorf("requests = %d", len(tr.Requests()))
	}
}

func TestTransport_Errors(t *testing.T) {
	tr := New("", Info{Err: errors.New("refused")})
	h := issue(t, tr, &httpclient.WireOptions{})
	if _, err := h.StatusCode(); !httpclient.IsConnection(err) {
		t.Errorf("StatusCode = %v, want connection error", err)
	}

	tr = New("", Info{Err: httpclient.NewTimeoutError(errors.New("slow"))})
	h = issue(t, tr, &httpclient.WireOptions{})
	if _, err := h.ReadBody(false); !httpclient.IsTimeout(err) {
		t.Errorf("ReadBody = %v, want the given error kept", err)
	}
}

func TestHandle_ThrowOnError(t *testing.T) {
	tr := New(`{"message":"gone"}`, Info{HTTPCode: http.StatusNotFound})
	h := issue(t, tr, &httpclient.WireOptions{}).(*Handle)

	if body, err := h.ReadBody(false); err != nil || string(body) != `{"message":"gone"}` {
		t.Errorf("ReadBody(false) = %s, %v", body, err)
	}
	if _, err := h.ReadBody(true); !httpclient.IsNotFound(err) {
		t.Errorf("ReadBody(true) = %v", err)
	}
	if _, err := h.BodyStream(true); !httpclient.IsNotFound(err) {
		t.Errorf("BodyStream(true) = %v", err)
	}
	rc, err := h.BodyStream(false)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != `{"message":"gone"}` {
		t.Errorf("stream = %s", data)
	}
}

func TestTransport_Stream(t *testing.T) {
	tr := New("", Info{})
	a := issue(t, tr, &httpclient.WireOptions{})
	b := issue(t, tr, &httpclient.WireOptions{})

	var order []httpclient.Handle
	for h, c := range tr.Stream(context.Background(), a, b) {
		if !c.IsLast() {
			t.Errorf("default chunk should be last, got %+v", c)
		}
		order = append(order, h)
	}
	if len(order) != 2 || order[0] != a || order[1] != b {
		t.Errorf("order = %v", order)
	}

	tr.WithChunks(Chunk{Timeout: true}, Chunk{Last: true})
	n := 0
	for range tr.Stream(context.Background(), a) {
		n++
	}
	if n != 2 {
		t.Errorf("scripted chunks = %d", n)
	}

	failing := New("", Info{Err: errors.New("reset")})
	fh := issue(t, failing, &httpclient.WireOptions{})
	for _, c := range failing.Stream(context.Background(), fh) {
		if !httpclient.IsConnection(c.Err()) {
			t.Errorf("chunk err = %v", c.Err())
		}
	}
}

func TestTransport_StreamStopsOnCancel(t *testing.T) {
	tr := New("", Info{}).WithChunks(Chunk{}, Chunk{}, Chunk{Last: true})
	h := issue(t, tr, &httpclient.WireOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := 0
	for range tr.Stream(ctx, h) {
		n++
		cancel()
	}
	if n != 1 {
		t.Errorf("chunks after cancel = %d", n)
	}
}
