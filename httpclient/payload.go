package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Payload is the logical request body. The concrete variant decides which
// body formats can encode it:
//
//	Text     raw
//	Fields   json, multipart, form
//	List     json
//	Stream   raw
//	Producer raw
type Payload interface {
	payloadKind() payloadKind
}

type payloadKind int

const (
	kindText payloadKind = iota
	kindFields
	kindList
	kindStream
	kindProducer
)

// String returns the variant name used in error messages.
func (k payloadKind) String() string {
	switch k {
	case kindText:
		return "text"
	case kindFields:
		return "fields"
	case kindList:
		return "list"
	case kindStream:
		return "stream"
	case kindProducer:
		return "producer"
	default:
		return "unknown"
	}
}

// Text is a scalar string payload.
type Text string

// Field is one named entry of a Fields payload.
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered mapping from field name to value. Values may be
// scalars, nested Fields or List (json only) or a FilePart (multipart only).
type Fields []Field

// MarshalJSON encodes the fields as a JSON object, keeping field order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// List is an array-like payload, encodable as JSON only.
type List []any

// Stream is a binary payload read once when the request is sent.
//
// The reader is drained by the first send. Client options accumulate across
// sends, so set a fresh Stream before each call, or pass it through SendWith.
type Stream struct {
	Reader io.Reader
}

// Producer yields the body bytes on demand, for uploads generated at send time.
type Producer func() ([]byte, error)

func (Text) payloadKind() payloadKind     { return kindText }
func (Fields) payloadKind() payloadKind   { return kindFields }
func (List) payloadKind() payloadKind     { return kindList }
func (Stream) payloadKind() payloadKind   { return kindStream }
func (Producer) payloadKind() payloadKind { return kindProducer }

// Map builds Fields from a Go map. Keys are sorted so the encoded body is
// stable between runs.
func Map(m map[string]any) Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(Fields, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Name: k, Value: m[k]})
	}
	return fields
}

// StringMap builds Fields from a map of strings, sorted by key.
func StringMap(m map[string]string) Fields {
	generic := make(map[string]any, len(m))
	for k, v := range m {
		generic[k] = v
	}
	return Map(generic)
}

// Get returns the value of the first field with the given name.
func (f Fields) Get(name string) (any, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// FilePart describes a file uploaded as one multipart field value.
// Either Path or Reader must be set.
type FilePart struct {
	// Path is read when the multipart body is encoded.
	Path string
	// Reader is used instead of Path for in-memory or streamed content.
	Reader io.Reader
	// FileName is sent to the server. Defaults to the base name of Path.
	FileName string
	// ContentType is the part MIME type. Defaults to application/octet-stream.
	ContentType string
}

// FileHandler returns a FilePart for the file at path.
func FileHandler(path string) FilePart {
	return FilePart{Path: path, FileName: filepath.Base(path)}
}

// open returns the part content and a closer for files opened from Path.
func (p FilePart) open() (io.Reader, func() error, error) {
	if p.Reader != nil {
		return p.Reader, func() error { return nil }, nil
	}
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func (p FilePart) fileName() string {
	if p.FileName != "" {
		return p.FileName
	}
	if p.Path != "" {
		return filepath.Base(p.Path)
	}
	return "file"
}

// isEmptyPayload reports payloads that produce no body at all.
func isEmptyPayload(p Payload) bool {
	switch v := p.(type) {
	case nil:
		return true
	case Text:
		return v == ""
	case Fields:
		return len(v) == 0
	case List:
		return len(v) == 0
	case Stream:
		return v.Reader == nil
	case Producer:
		return v == nil
	default:
		return false
	}
}
