package request

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

// File is one file part of a multipart form.
type File struct {
	// Field is the form field name; defaults to "file".
	Field string
	// Name is the filename reported to the server.
	Name string
	// ContentType defaults to application/octet-stream.
	ContentType string
	Content     io.Reader
}

// Multipart is an encoded multipart/form-data body. Pass it as
// Descriptor.Data together with its ContentType header.
type Multipart struct {
	body        []byte
	contentType string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// NewMultipart encodes plain fields followed by files.
func NewMultipart(fields map[string]string, files ...File) (*Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, wrapKind("request.multipart", ErrBuildRequest, err)
		}
	}

	for _, f := range files {
		if f.Content == nil {
			return nil, wrapKind("request.multipart", ErrBuildRequest, fmt.Errorf("file %q has no content", f.Name))
		}
		field := f.Field
		if field == "" {
			field = "file"
		}
		ct := f.ContentType
		if ct == "" {
			ct = ContentTypeOctet
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
		h.Set(HeaderContentType, ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, wrapKind("request.multipart", ErrBuildRequest, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, wrapKind("request.multipart", ErrBuildRequest, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, wrapKind("request.multipart", ErrBuildRequest, err)
	}
	return &Multipart{body: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

// ContentType returns multipart/form-data with the boundary parameter.
func (m *Multipart) ContentType() string { return m.contentType }

// Bytes returns the encoded body.
func (m *Multipart) Bytes() []byte { return m.body }

// Len returns the encoded body size.
func (m *Multipart) Len() int { return len(m.body) }
