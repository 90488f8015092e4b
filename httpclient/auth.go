package httpclient

import (
	"net/http"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/util"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer uses Bearer token authentication.
	AuthBearer
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic
	// AuthAPIKey uses API key authentication (header or query parameter).
	AuthAPIKey
	// AuthCustom uses a custom authentication function.
	AuthCustom
	// AuthJWT signs a fresh bearer token for every request.
	AuthJWT
)

// AuthConfig configures request authentication. Transports apply it when
// the request is built.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType
	// Token is the bearer token (AuthBearer).
	Token string
	// Username is the basic auth username (AuthBasic).
	Username string
	// Password is the basic auth password (AuthBasic).
	Password string
	// Key is the API key value (AuthAPIKey).
	Key string
	// In specifies where to place the API key: "header" (default) or "query" (AuthAPIKey).
	In string
	// Name is the header or query parameter name (AuthAPIKey). Defaults to "X-API-Key".
	Name string
	// Modify is a custom function that changes the request (AuthCustom).
	Modify func(*http.Request)
	// Signer mints the token (AuthJWT).
	Signer *JWTSigner
}

// JWTSigner signs service tokens with a fixed method and key.
type JWTSigner struct {
	// Method is the signing algorithm, for example gojwt.SigningMethodHS256.
	Method gojwt.SigningMethod
	// Key is the signing key: []byte for HMAC, a private key otherwise.
	Key any
	// Claims returns the claims for the next token.
	Claims func() gojwt.Claims
}

// Sign returns a signed token with fresh claims.
func (s *JWTSigner) Sign() (string, error) {
	return gojwt.NewWithClaims(s.Method, s.Claims()).SignedString(s.Key)
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config. An empty password sends the
// username alone.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: "X-API-Key"}
}

// APIKeyAuthHeader creates an API key auth config with a custom header name.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: headerName}
}

// APIKeyAuthQuery creates an API key auth config sent via query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// CustomAuth creates a custom auth config with a request modifier function.
func CustomAuth(fn func(*http.Request)) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Modify: fn}
}

// JWTAuth creates an auth config that sends a token signed by signer as a
// bearer token. A token is minted per request so short expiries stay valid.
func JWTAuth(signer *JWTSigner) *AuthConfig {
	return &AuthConfig{Type: AuthJWT, Signer: signer}
}

// Apply sets the credentials on req using the native net/http mechanisms.
// A nil config leaves the request unchanged.
func (a *AuthConfig) Apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		req.SetBasicAuth(a.Username, a.Password)
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = "X-API-Key"
		}
		if a.In == "query" {
			q := req.URL.Query()
			q.Set(name, a.Key)
			req.URL.RawQuery = q.Encode()
		} else {
			req.Header.Set(name, a.Key)
		}
	case AuthCustom:
		if a.Modify != nil {
			a.Modify(req)
		}
	case AuthJWT:
		if a.Signer == nil {
			return
		}
		token, err := a.Signer.Sign()
		if err != nil {
			logger.Warn("jwt signing failed, request sent without credentials",
				logger.ErrorFields("sign_jwt", err))
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// Summary describes the credentials with secrets masked, for logs and
// component listings.
func (a *AuthConfig) Summary() string {
	if a == nil {
		return "none"
	}
	switch a.Type {
	case AuthBearer:
		return "bearer " + util.MaskSecret(a.Token, 4)
	case AuthBasic:
		return "basic " + a.Username + ":***"
	case AuthAPIKey:
		return "api_key " + util.MaskSecret(a.Key, 4)
	case AuthCustom:
		return "custom"
	case AuthJWT:
		return "jwt"
	default:
		return "none"
	}
}
