package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
)

// newBoundary returns a multipart boundary unique to one payload.
func newBoundary() string {
	return "httpkit-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// encodeMultipart writes fields as multipart/form-data using boundary and
// returns the body with its content-type header value.
func encodeMultipart(fields Fields, boundary string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, "", err
	}

	for _, f := range fields {
		switch v := f.Value.(type) {
		case FilePart:
			if err := writeFilePart(w, f.Name, v); err != nil {
				return nil, "", err
			}
		case *FilePart:
			if v == nil {
				continue
			}
			if err := writeFilePart(w, f.Name, *v); err != nil {
				return nil, "", err
			}
		default:
			s, ok := scalarString(v)
			if !ok {
				return nil, "", NewInvalidPayloadError(FormatMultipart,
					fmt.Sprintf("field %q has unsupported value type %T", f.Name, f.Value))
			}
			if err := w.WriteField(f.Name, s); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, name string, f FilePart) error {
	if f.Reader == nil && f.Path == "" {
		return NewInvalidPayloadError(FormatMultipart, fmt.Sprintf("file field %q has neither path nor reader", name))
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		`form-data; name="`+escapeQuotes(name)+`"; filename="`+escapeQuotes(f.fileName())+`"`)
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}

	r, closeFn, err := f.open()
	if err != nil {
		return fmt.Errorf("open file part %q: %w", name, err)
	}
	defer func() { _ = closeFn() }()

	_, err = io.Copy(part, r)
	return err
}

// escapeQuotes replaces special characters in header values.
func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}
