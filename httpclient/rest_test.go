package httpclient_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/httpclient/fake"
)

type invoice struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

type apiError struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func TestGet_DecodesBody(t *testing.T) {
	tr := fake.New(`{"id":7,"status":"paid"}`, fake.Info{
		ResponseHeaders: http.Header{"Content-Type": {"application/json"}, "X-Version": {"3"}},
	})
	c := newClient(t, tr, httpclient.Config{BaseURL: "https://billing.test"})

	resp, err := httpclient.Get[invoice](c, context.Background(), "/invoices/7")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != 200 || resp.Data.ID != 7 || resp.Data.Status != "paid" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Headers["x-version"] != "3" {
		t.Errorf("headers = %v", resp.Headers)
	}
	if req := tr.LastRequest(); req.Method != http.MethodGet || req.Options.HasBody() {
		t.Errorf("request = %s body=%v", req.Method, req.Options.HasBody())
	}
}

func TestWriteVerbs_SendPayload(t *testing.T) {
	type send func(*httpclient.Client, context.Context, string, httpclient.Payload, ...httpclient.RequestOption) (*httpclient.TypedResponse[invoice], error)
	tests := []struct {
		method string
		call   send
	}{
		{http.MethodPost, httpclient.Post[invoice]},
		{http.MethodPut, httpclient.Put[invoice]},
		{http.MethodPatch, httpclient.Patch[invoice]},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			tr := fake.New(`{"id":1,"status":"draft"}`, fake.Info{HTTPCode: http.StatusCreated})
			c := newClient(t, tr, httpclient.Config{BaseURL: "https://billing.test"})

			payload := httpclient.Fields{{Name: "status", Value: "draft"}}
			resp, err := tt.call(c, context.Background(), "/invoices", payload)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusCreated || resp.Data.Status != "draft" {
				t.Errorf("resp = %+v", resp)
			}
			req := tr.LastRequest()
			if req.Method != tt.method || string(req.Options.Body) != `{"status":"draft"}` {
				t.Errorf("request = %s %s", req.Method, req.Options.Body)
			}
		})
	}
}

func TestDelete_EmptyBody(t *testing.T) {
	tr := fake.New("", fake.Info{HTTPCode: http.StatusNoContent})
	c := newClient(t, tr, httpclient.Config{BaseURL: "https://billing.test"})

	resp, err := httpclient.Delete[struct{}](c, context.Background(), "/invoices/7")
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Errorf("Delete = %+v, %v", resp, err)
	}
	if tr.LastRequest().Method != http.MethodDelete {
		t.Errorf("method = %s", tr.LastRequest().Method)
	}
}

func TestTyped_RequestOptions(t *testing.T) {
	tr := fake.New("{}", fake.Info{})
	c := newClient(t, tr, httpclient.Config{BaseURL: "https://billing.test", Auth: httpclient.BearerAuth("default")})
	c.Options().SetHeader("X-Shared", "1")

	_, err := httpclient.Get[map[string]any](c, context.Background(), "/search",
		httpclient.WithHeader("X-Trace", "abc"),
		httpclient.WithQueryParam("q", "overdue"),
		httpclient.WithRequestAuth(httpclient.APIKeyAuth("key")),
	)
	if err != nil {
		t.Fatal(err)
	}

	req := tr.LastRequest()
	if req.URL != "https://billing.test/search?q=overdue" {
		t.Errorf("URL = %q", req.URL)
	}
	if req.Options.Header("x-trace") != "abc" || req.Options.Header("x-shared") != "1" {
		t.Errorf("headers = %v", req.Options.Headers)
	}
	if req.Options.Auth.Type != httpclient.AuthAPIKey {
		t.Errorf("auth = %+v", req.Options.Auth)
	}
	if c.Options().Header("x-trace") != "" {
		t.Error("request options must not leak into the client options")
	}
}

func TestTyped_ErrorResponse(t *testing.T) {
	tr := fake.New(`{"error":{"code":"INVOICE_LOCKED"}}`, fake.Info{HTTPCode: http.StatusConflict})
	c := newClient(t, tr, httpclient.Config{BaseURL: "https://billing.test"})

	resp, err := httpclient.Get[apiError](c, context.Background(), "/invoices/7")
	var clientErr *httpclient.Error
	if !errors.As(err, &clientErr) || clientErr.StatusCode != http.StatusConflict {
		t.Fatalf("err = %v", err)
	}
	if resp == nil || resp.Data.Error.Code != "INVOICE_LOCKED" {
		t.Errorf("error body should still be decoded, got %+v", resp)
	}
	if app := clientErr.AppError(); app.Code != "INVOICE_LOCKED" {
		t.Errorf("AppError code = %s", app.Code)
	}
}

func TestTyped_Failures(t *testing.T) {
	c := newClient(t, fake.New("<html>", fake.Info{}), httpclient.Config{BaseURL: "https://billing.test"})
	if _, err := httpclient.Get[invoice](c, context.Background(), "/"); !httpclient.IsDecode(err) {
		t.Errorf("non-JSON body = %v", err)
	}

	c = newClient(t, fake.New("", fake.Info{Err: errors.New("refused")}), httpclient.Config{BaseURL: "https://billing.test"})
	if _, err := httpclient.Get[invoice](c, context.Background(), "/"); !httpclient.IsConnection(err) {
		t.Errorf("transport failure = %v", err)
	}

	c = newClient(t, fake.New("", fake.Info{}), httpclient.Config{})
	if _, err := httpclient.Get[invoice](c, context.Background(), "relative"); !httpclient.IsValidation(err) {
		t.Errorf("relative path without base = %v", err)
	}
}
