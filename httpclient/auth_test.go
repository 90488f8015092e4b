package httpclient

import (
	"net/http"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func TestBearerAuth(t *testing.T) {
	auth := BearerAuth("my-token")
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.Apply(req)
	if got := req.Header.Get("Authorization"); got != "Bearer my-token" {
		t.Errorf("got %q, want %q", got, "Bearer my-token")
	}
}

func TestBasicAuth(t *testing.T) {
	auth := BasicAuth("user", "pass")
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.Apply(req)
	u, p, ok := req.BasicAuth()
	if !ok || u != "user" || p != "pass" {
		t.Errorf("basic auth not set correctly: user=%q pass=%q ok=%v", u, p, ok)
	}
}

func TestAPIKeyAuth_Header(t *testing.T) {
	auth := APIKeyAuth("secret-key")
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.Apply(req)
	if got := req.Header.Get("X-API-Key"); got != "secret-key" {
		t.Errorf("got %q, want %q", got, "secret-key")
	}
}

func TestAPIKeyAuthHeader_CustomName(t *testing.T) {
	auth := APIKeyAuthHeader("secret-key", "X-Custom-Key")
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.Apply(req)
	if got := req.Header.Get("X-Custom-Key"); got != "secret-key" {
		t.Errorf("got %q, want %q", got, "secret-key")
	}
}

func TestAPIKeyAuthQuery(t *testing.T) {
	auth := APIKeyAuthQuery("secret-key", "api_key")
	req, _ := http.NewRequest("GET", "http://example.com/path", nil)
	auth.Apply(req)
	if got := req.URL.Query().Get("api_key"); got != "secret-key" {
		t.Errorf("got %q, want %q", got, "secret-key")
	}
}

func TestCustomAuth(t *testing.T) {
	auth := CustomAuth(func(req *http.Request) {
		req.Header.Set("X-Custom", "value")
	})
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.Apply(req)
	if got := req.Header.Get("X-Custom"); got != "value" {
		t.Errorf("got %q, want %q", got, "value")
	}
}

func TestBasicAuth_UsernameOnly(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	NewOptions().SetAuthBasic("user").Auth().Apply(req)
	u, p, ok := req.BasicAuth()
	if !ok || u != "user" || p != "" {
		t.Errorf("basic auth not set correctly: user=%q pass=%q ok=%v", u, p, ok)
	}
}

func TestBearerAuth_FromOptions(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	NewOptions().SetAuthBearer("abc").Auth().Apply(req)
	if got := req.Header.Get("Authorization"); got != "Bearer abc" {
		t.Errorf("got %q, want %q", got, "Bearer abc")
	}
}

func TestNilAuth(t *testing.T) {
	var auth *AuthConfig
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.Apply(req) // should not panic
}

func TestAuthNone(t *testing.T) {
	auth := &AuthConfig{Type: AuthNone}
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.Apply(req) // should not modify request
	if req.Header.Get("Authorization") != "" {
		t.Error("AuthNone should not set Authorization header")
	}
}

func TestJWTAuth(t *testing.T) {
	key := []byte("test-secret")
	auth := JWTAuth(&JWTSigner{
		Method: gojwt.SigningMethodHS256,
		Key:    key,
		Claims: func() gojwt.Claims {
			return gojwt.RegisteredClaims{
				Subject:   "billing-service",
				ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Minute)),
			}
		},
	})
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.Apply(req)

	header := req.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		t.Fatalf("expected bearer token, got %q", header)
	}
	claims := &gojwt.RegisteredClaims{}
	_, err := gojwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
		func(*gojwt.Token) (any, error) { return key, nil })
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Subject != "billing-service" {
		t.Errorf("subject = %q, want billing-service", claims.Subject)
	}
}

func TestJWTAuth_SignFailureSendsNoCredentials(t *testing.T) {
	auth := JWTAuth(&JWTSigner{
		Method: gojwt.SigningMethodHS256,
		Key:    "not-a-byte-slice",
		Claims: func() gojwt.Claims { return gojwt.RegisteredClaims{} },
	})
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	auth.Apply(req)
	if got := req.Header.Get("Authorization"); got != "" {
		t.Errorf("expected no Authorization header, got %q", got)
	}
}

func TestAuthConfig_Summary(t *testing.T) {
	tests := []struct {
		name string
		auth *AuthConfig
		want string
	}{
		{"nil", nil, "none"},
		{"bearer", BearerAuth("tok_live_123"), "bearer tok_***"},
		{"short bearer", BearerAuth("ab"), "bearer ***"},
		{"basic", BasicAuth("svc", "pw"), "basic svc:***"},
		{"api key", APIKeyAuth("k-98765"), "api_key k-98***"},
		{"custom", CustomAuth(func(*http.Request) {}), "custom"},
		{"jwt", JWTAuth(nil), "jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.auth.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}
