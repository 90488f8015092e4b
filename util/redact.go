package util

import (
	"net/url"
	"strings"
)

// Redacted replaces secrets in logged URLs.
const Redacted = "REDACTED"

// sensitiveParams are query parameters whose values never reach logs.
var sensitiveParams = []string{
	"access_token", "api_key", "apikey", "key", "password",
	"secret", "signature", "sig", "token", "x-amz-signature",
}

// RedactURL hides the userinfo password and the values of well-known
// credential query parameters. Unparseable input is returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	changed := false
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), Redacted)
		changed = true
	}
	if u.RawQuery != "" {
		q := u.Query()
		for name := range q {
			if isSensitiveParam(name) {
				q[name] = []string{Redacted}
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	if !changed {
		return raw
	}
	return u.String()
}

func isSensitiveParam(name string) bool {
	name = strings.ToLower(name)
	for _, p := range sensitiveParams {
		if name == p {
			return true
		}
	}
	return false
}
