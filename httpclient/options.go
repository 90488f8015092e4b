package httpclient

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/kbukum/httpkit/logger"
)

// BodyFormat selects how the payload is encoded on the wire.
type BodyFormat string

const (
	// FormatJSON encodes Fields or List as application/json.
	FormatJSON BodyFormat = "json"
	// FormatMultipart encodes Fields as multipart/form-data.
	FormatMultipart BodyFormat = "multipart"
	// FormatForm encodes flat Fields as application/x-www-form-urlencoded.
	FormatForm BodyFormat = "form"
	// FormatRaw sends Text, Stream or Producer unchanged.
	FormatRaw BodyFormat = "raw"
)

// Content types set by the body format shortcuts.
const (
	ContentTypeJSON      = "application/json"
	ContentTypeText      = "text/plain"
	ContentTypeMultipart = "multipart/form-data"
	ContentTypeForm      = "application/x-www-form-urlencoded"
)

// Valid reports whether f is one of the known formats.
func (f BodyFormat) Valid() bool {
	switch f {
	case FormatJSON, FormatMultipart, FormatForm, FormatRaw:
		return true
	}
	return false
}

// QueryParam is one query string entry.
type QueryParam struct {
	Key   string
	Value string
}

// ProxyConfig routes requests through HTTP proxies.
type ProxyConfig struct {
	// HTTP is the proxy for http:// URLs.
	HTTP string `yaml:"http" mapstructure:"http"`
	// HTTPS is the proxy for https:// URLs.
	HTTPS string `yaml:"https" mapstructure:"https"`
	// NoProxy is a comma-separated list of hosts that bypass the proxy.
	NoProxy string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// OptionSet accumulates request options through chained setters.
// The zero value is ready to use. An OptionSet is not safe for concurrent
// mutation; configure it first, then send.
type OptionSet struct {
	headers      map[string]string
	implied      *impliedType
	impliedSet   bool
	query        []QueryParam
	auth         *AuthConfig
	bodyFormat   BodyFormat
	payload      Payload
	payloadSet   bool
	cache        *bodyCache
	timeout      *time.Duration
	maxDuration  *time.Duration
	maxRedirects *int
	userData     any
	userDataSet  bool
	proxy        *ProxyConfig
	verifyTLS    *bool
	throwErrors  *bool
}

// impliedType is a content type written by a format shortcut rather than by
// the caller. It yields to the default of whatever format is finally sent.
type impliedType struct {
	format BodyFormat
	value  string
}

// NewOptions returns an empty OptionSet.
func NewOptions() *OptionSet {
	return &OptionSet{}
}

// SetHeader sets a header, replacing any value stored under the same
// case-insensitive name.
func (o *OptionSet) SetHeader(key, value string) *OptionSet {
	key = strings.ToLower(key)
	o.putHeader(key, value)
	if key == "content-type" {
		o.implied, o.impliedSet = nil, true
	}
	return o
}

func (o *OptionSet) putHeader(key, value string) {
	if o.headers == nil {
		o.headers = make(map[string]string)
	}
	o.headers[key] = value
}

// SetHeaders applies SetHeader for each entry.
func (o *OptionSet) SetHeaders(headers map[string]string) *OptionSet {
	for k, v := range headers {
		o.SetHeader(k, v)
	}
	return o
}

// RemoveHeader deletes a header.
func (o *OptionSet) RemoveHeader(key string) *OptionSet {
	key = strings.ToLower(key)
	delete(o.headers, key)
	if key == "content-type" {
		o.implied, o.impliedSet = nil, true
	}
	return o
}

// SetContentType sets the content-type header.
func (o *OptionSet) SetContentType(contentType string) *OptionSet {
	return o.SetHeader("Content-Type", contentType)
}

// SetUserAgent sets the user-agent header.
func (o *OptionSet) SetUserAgent(agent string) *OptionSet {
	return o.SetHeader("User-Agent", agent)
}

// SetAccept sets the accept header.
func (o *OptionSet) SetAccept(value string) *OptionSet {
	return o.SetHeader("Accept", value)
}

// SetQueryParam sets a query parameter. Keys are case-sensitive; a key
// keeps the position of its first insertion.
func (o *OptionSet) SetQueryParam(key, value string) *OptionSet {
	for i := range o.query {
		if o.query[i].Key == key {
			o.query[i].Value = value
			return o
		}
	}
	o.query = append(o.query, QueryParam{Key: key, Value: value})
	return o
}

// SetQueryParams applies SetQueryParam for each entry in key order.
func (o *OptionSet) SetQueryParams(params map[string]string) *OptionSet {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.SetQueryParam(k, params[k])
	}
	return o
}

// SetAuth sets the request authentication.
func (o *OptionSet) SetAuth(auth *AuthConfig) *OptionSet {
	o.auth = auth
	return o
}

// SetAuthBasic uses HTTP basic auth. The password is optional.
func (o *OptionSet) SetAuthBasic(username string, password ...string) *OptionSet {
	pass := ""
	if len(password) > 0 {
		pass = password[0]
	}
	return o.SetAuth(BasicAuth(username, pass))
}

// SetAuthBearer uses a bearer token.
func (o *OptionSet) SetAuthBearer(token string) *OptionSet {
	return o.SetAuth(BearerAuth(token))
}

// SetBodyFormat selects the payload encoding. The payload is validated
// against the format only when the request is sent.
func (o *OptionSet) SetBodyFormat(format BodyFormat) *OptionSet {
	o.bodyFormat = format
	return o
}

// AsJSON selects the json body format and content type.
func (o *OptionSet) AsJSON() *OptionSet {
	return o.asFormat(FormatJSON, ContentTypeJSON)
}

// AsForm selects the form body format and content type.
func (o *OptionSet) AsForm() *OptionSet {
	return o.asFormat(FormatForm, ContentTypeForm)
}

// AsMultipart selects the multipart body format. The content type, with its
// boundary, is set when the payload is resolved.
func (o *OptionSet) AsMultipart() *OptionSet {
	return o.SetBodyFormat(FormatMultipart)
}

// AsRaw selects the raw body format without touching the content type.
func (o *OptionSet) AsRaw() *OptionSet {
	return o.SetBodyFormat(FormatRaw)
}

// AsText selects the raw body format with a text/plain content type.
func (o *OptionSet) AsText() *OptionSet {
	return o.asFormat(FormatRaw, ContentTypeText)
}

// asFormat sets the format and its content type. The content type stays
// tied to the format: if a later SetBodyFormat picks another format, the
// resolver replaces it with that format's default.
func (o *OptionSet) asFormat(format BodyFormat, contentType string) *OptionSet {
	o.SetBodyFormat(format)
	o.putHeader("content-type", contentType)
	o.implied, o.impliedSet = &impliedType{format: format, value: contentType}, true
	return o
}

// SetPayload sets the request payload. Passing nil clears it. Fields and
// List are copied, so later edits to the caller's slice do not reach the
// request; call SetPayload again to send changed values.
func (o *OptionSet) SetPayload(p Payload) *OptionSet {
	switch v := p.(type) {
	case Fields:
		p = slices.Clone(v)
	case List:
		p = slices.Clone(v)
	}
	o.payload = p
	o.payloadSet = true
	o.cache = &bodyCache{}
	return o
}

// SetTimeout sets the idle timeout. Zero means no limit; negative values
// are treated as zero.
func (o *OptionSet) SetTimeout(d time.Duration) *OptionSet {
	d = clampDuration("timeout", d)
	o.timeout = &d
	return o
}

// SetMaxDuration sets the total time allowed for the request. Zero means no
// limit; negative values are treated as zero.
func (o *OptionSet) SetMaxDuration(d time.Duration) *OptionSet {
	d = clampDuration("max_duration", d)
	o.maxDuration = &d
	return o
}

// AllowRedirects follows up to max redirects.
func (o *OptionSet) AllowRedirects(max int) *OptionSet {
	if max < 0 {
		logger.Warn("negative redirect limit treated as zero", logger.Fields("max_redirects", max))
		max = 0
	}
	o.maxRedirects = &max
	return o
}

// DisallowRedirects stops at the first redirect response.
func (o *OptionSet) DisallowRedirects() *OptionSet {
	v := NoRedirects
	o.maxRedirects = &v
	return o
}

// SetUserData attaches an opaque value that is echoed back on the response.
func (o *OptionSet) SetUserData(data any) *OptionSet {
	o.userData = data
	o.userDataSet = true
	return o
}

// SetProxy routes both http and https requests through proxyURL.
func (o *OptionSet) SetProxy(proxyURL string) *OptionSet {
	p := o.proxyConfig()
	p.HTTP = proxyURL
	p.HTTPS = proxyURL
	return o
}

// SetProxies sets proxies per URL scheme ("http", "https").
func (o *OptionSet) SetProxies(proxies map[string]string) *OptionSet {
	p := o.proxyConfig()
	for scheme, proxyURL := range proxies {
		switch strings.ToLower(scheme) {
		case "http":
			p.HTTP = proxyURL
		case "https":
			p.HTTPS = proxyURL
		}
	}
	return o
}

// SetNoProxy lists hosts that bypass the proxy.
func (o *OptionSet) SetNoProxy(hosts ...string) *OptionSet {
	o.proxyConfig().NoProxy = strings.Join(hosts, ",")
	return o
}

func (o *OptionSet) proxyConfig() *ProxyConfig {
	if o.proxy == nil {
		o.proxy = &ProxyConfig{}
	} else {
		cp := *o.proxy
		o.proxy = &cp
	}
	return o.proxy
}

// VerifyTLS enables certificate verification.
func (o *OptionSet) VerifyTLS() *OptionSet {
	v := true
	o.verifyTLS = &v
	return o
}

// SkipTLSVerify disables certificate verification.
func (o *OptionSet) SkipTLSVerify() *OptionSet {
	v := false
	o.verifyTLS = &v
	return o
}

// ThrowErrors makes Status and Body return an error for non-2xx responses.
func (o *OptionSet) ThrowErrors() *OptionSet {
	v := true
	o.throwErrors = &v
	return o
}

// Reset clears every option.
func (o *OptionSet) Reset() *OptionSet {
	*o = OptionSet{}
	return o
}

// Clone returns an independent copy. The resolved body cache is shared
// because it belongs to the payload, which is copied as well.
func (o *OptionSet) Clone() *OptionSet {
	cp := *o
	cp.headers = maps.Clone(o.headers)
	cp.query = append([]QueryParam(nil), o.query...)
	return &cp
}

// Header returns a header value by case-insensitive name.
func (o *OptionSet) Header(key string) string {
	return o.headers[strings.ToLower(key)]
}

// Headers returns a copy of the headers keyed by lower-cased name.
func (o *OptionSet) Headers() map[string]string {
	out := make(map[string]string, len(o.headers))
	maps.Copy(out, o.headers)
	return out
}

// ContentType returns the content-type header, if set.
func (o *OptionSet) ContentType() string {
	return o.Header("Content-Type")
}

// Query returns the query parameters in insertion order.
func (o *OptionSet) Query() []QueryParam {
	return append([]QueryParam(nil), o.query...)
}

// Auth returns the configured authentication, or nil.
func (o *OptionSet) Auth() *AuthConfig { return o.auth }

// BodyFormat returns the selected body format, or "" when unset.
func (o *OptionSet) BodyFormat() BodyFormat { return o.bodyFormat }

// Payload returns the payload, or nil.
func (o *OptionSet) Payload() Payload { return o.payload }

// Timeout returns the idle timeout and whether it was set.
func (o *OptionSet) Timeout() (time.Duration, bool) { return deref(o.timeout) }

// MaxDuration returns the total duration limit and whether it was set.
func (o *OptionSet) MaxDuration() (time.Duration, bool) { return deref(o.maxDuration) }

// MaxRedirects returns the redirect limit and whether it was set.
func (o *OptionSet) MaxRedirects() (int, bool) { return deref(o.maxRedirects) }

// UserData returns the correlation value and whether it was set.
func (o *OptionSet) UserData() (any, bool) { return o.userData, o.userDataSet }

// ShouldThrowErrors reports whether ThrowErrors was enabled.
func (o *OptionSet) ShouldThrowErrors() bool {
	v, _ := deref(o.throwErrors)
	return v
}

// merge returns a new set with over applied on top of o, key by key.
func (o *OptionSet) merge(over *OptionSet) *OptionSet {
	out := o.Clone()
	if over == nil {
		return out
	}
	for k, v := range over.headers {
		out.putHeader(k, v)
	}
	if over.impliedSet {
		out.implied, out.impliedSet = over.implied, true
	}
	for _, q := range over.query {
		out.SetQueryParam(q.Key, q.Value)
	}
	if over.auth != nil {
		out.auth = over.auth
	}
	if over.bodyFormat != "" {
		out.bodyFormat = over.bodyFormat
	}
	if over.payloadSet {
		out.payload = over.payload
		out.payloadSet = true
		out.cache = over.cache
	}
	if over.timeout != nil {
		out.timeout = over.timeout
	}
	if over.maxDuration != nil {
		out.maxDuration = over.maxDuration
	}
	if over.maxRedirects != nil {
		out.maxRedirects = over.maxRedirects
	}
	if over.userDataSet {
		out.userData = over.userData
		out.userDataSet = true
	}
	if over.proxy != nil {
		out.proxy = over.proxy
	}
	if over.verifyTLS != nil {
		out.verifyTLS = over.verifyTLS
	}
	if over.throwErrors != nil {
		out.throwErrors = over.throwErrors
	}
	return out
}

func clampDuration(name string, d time.Duration) time.Duration {
	if d < 0 {
		logger.Warn("negative duration treated as no limit", logger.Fields("option", name, "value", d.String()))
		return 0
	}
	return d
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
