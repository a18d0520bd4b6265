// Package request is the shared dispatch layer behind the stratdesk API
// clients. Callers describe a call with a Descriptor; a Doer performs it.
package request

import (
	"context"
	"strings"
)

// ResponseType tells the dispatcher how the caller intends to consume the body.
type ResponseType string

const (
	// ResponseJSON is the default: the body is a JSON document.
	ResponseJSON ResponseType = "json"
	// ResponseBlob marks a binary download that must not be interpreted.
	ResponseBlob ResponseType = "blob"
)

// Header names the dispatcher sets or honours.
const (
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderAuthorization = "Authorization"
	HeaderUserAgent     = "User-Agent"
	HeaderRequestID     = "X-Request-ID"

	ContentTypeJSON      = "application/json"
	ContentTypeMultipart = "multipart/form-data"
	ContentTypeOctet     = "application/octet-stream"
)

// Descriptor is everything needed to perform one API call.
//
// URL is a path relative to the dispatcher's base URL. Params become the
// query string and Data the body; both are forwarded as given.
type Descriptor struct {
	URL          string
	Method       string
	Params       map[string]any
	Data         any
	Headers      map[string]string
	ResponseType ResponseType
}

// Doer dispatches a Descriptor and returns the server's response.
type Doer interface {
	Do(ctx context.Context, d Descriptor) (*Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(ctx context.Context, d Descriptor) (*Response, error)

// Do calls f(ctx, d).
func (f DoerFunc) Do(ctx context.Context, d Descriptor) (*Response, error) { return f(ctx, d) }

func (d Descriptor) responseType() ResponseType {
	if d.ResponseType == "" {
		return ResponseJSON
	}
	return d.ResponseType
}

func (d Descriptor) header(name string) (string, bool) {
	for k, v := range d.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
