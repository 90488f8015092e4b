package httpclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// bodyCache holds the encoded form of one payload so that resolving the
// same payload again yields the same bytes and multipart boundary.
type bodyCache struct {
	mu          sync.Mutex
	format      BodyFormat
	body        []byte
	contentType string
	boundary    string
}

// Resolve merges nothing and validates o on its own: it encodes the payload
// for the body format and returns the options a Transport receives. An
// unset body format defaults to json.
//
// Resolve never changes the values visible through o's getters.
func Resolve(o *OptionSet) (*WireOptions, error) {
	wire := &WireOptions{
		Headers:      o.Headers(),
		Query:        o.Query(),
		Auth:         o.auth,
		UserData:     o.userData,
		MaxRedirects: DefaultMaxRedirects,
		VerifyTLS:    true,
	}
	if d, ok := o.Timeout(); ok {
		wire.Timeout = d
	}
	if d, ok := o.MaxDuration(); ok {
		wire.MaxDuration = d
	}
	if n, ok := o.MaxRedirects(); ok {
		wire.MaxRedirects = n
	}
	if o.proxy != nil {
		p := *o.proxy
		wire.Proxy = &p
	}
	if v, ok := deref(o.verifyTLS); ok {
		wire.VerifyTLS = v
	}

	format := o.bodyFormat
	if format == "" {
		format = FormatJSON
	}
	if !format.Valid() {
		return nil, NewValidationError(fmt.Sprintf("unknown body format %q", format))
	}
	wire.BodyFormat = format
	if im := o.implied; im != nil && im.format != format && wire.Headers["content-type"] == im.value {
		delete(wire.Headers, "content-type")
	}

	if isEmptyPayload(o.payload) {
		return wire, nil
	}
	if err := resolveBody(wire, format, o.payload, o.cache); err != nil {
		return nil, err
	}
	return wire, nil
}

func resolveBody(wire *WireOptions, format BodyFormat, p Payload, cache *bodyCache) error {
	if cache == nil {
		cache = &bodyCache{}
	}

	switch format {
	case FormatJSON:
		switch p.(type) {
		case Fields, List:
		default:
			return NewInvalidPayloadError(format, "payload must be fields or a list, got "+p.payloadKind().String())
		}
		body, _, err := cache.load(format, func() ([]byte, string, error) {
			data, err := json.Marshal(p)
			if err != nil {
				return nil, "", NewInvalidPayloadError(format, err.Error())
			}
			return data, ContentTypeJSON, nil
		})
		if err != nil {
			return err
		}
		wire.Body = body
		setDefaultHeader(wire, "content-type", ContentTypeJSON)

	case FormatMultipart:
		fields, ok := p.(Fields)
		if !ok {
			return NewInvalidPayloadError(format, "payload must be fields, got "+p.payloadKind().String())
		}
		body, contentType, err := cache.load(format, func() ([]byte, string, error) {
			return encodeMultipart(fields, cache.boundaryOnce())
		})
		if err != nil {
			return err
		}
		wire.Body = body
		wire.Headers["content-type"] = contentType

	case FormatForm:
		fields, ok := p.(Fields)
		if !ok {
			return NewInvalidPayloadError(format, "payload must be fields, got "+p.payloadKind().String())
		}
		body, _, err := cache.load(format, func() ([]byte, string, error) {
			data, err := encodeForm(fields)
			return data, ContentTypeForm, err
		})
		if err != nil {
			return err
		}
		wire.Body = body
		setDefaultHeader(wire, "content-type", ContentTypeForm)

	case FormatRaw:
		switch v := p.(type) {
		case Text:
			wire.Body = []byte(v)
			setDefaultHeader(wire, "content-type", ContentTypeText)
		case Stream:
			wire.BodyStream = v.Reader
		case Producer:
			wire.BodyProducer = v
		default:
			return NewInvalidPayloadError(format, "payload must be text, a stream or a producer, got "+p.payloadKind().String())
		}
	}
	return nil
}

// load returns the cached encoding for format, encoding it on first use.
func (c *bodyCache) load(format BodyFormat, encode func() ([]byte, string, error)) ([]byte, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.body != nil && c.format == format {
		return c.body, c.contentType, nil
	}
	body, contentType, err := encode()
	if err != nil {
		return nil, "", err
	}
	c.format, c.body, c.contentType = format, body, contentType
	return body, contentType, nil
}

// boundaryOnce returns the payload's boundary. Callers hold c.mu.
func (c *bodyCache) boundaryOnce() string {
	if c.boundary == "" {
		c.boundary = newBoundary()
	}
	return c.boundary
}

func encodeForm(fields Fields) ([]byte, error) {
	var b strings.Builder
	for i, f := range fields {
		s, ok := scalarString(f.Value)
		if !ok {
			return nil, NewInvalidPayloadError(FormatForm,
				fmt.Sprintf("field %q must be a flat value, got %T", f.Name, f.Value))
		}
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s))
	}
	return []byte(b.String()), nil
}

// scalarString renders flat values; nested structures are rejected.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case Text:
		return string(x), true
	case []byte:
		return string(x), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}

func setDefaultHeader(wire *WireOptions, name, value string) {
	if wire.Headers[name] == "" {
		wire.Headers[name] = value
	}
}
