package request

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Sentinel error kinds. Every error returned by Client matches exactly one of
// these with errors.Is.
var (
	ErrBuildRequest = errors.New("build request failed")
	ErrTransport    = errors.New("transport failed")
	ErrStatus       = errors.New("unexpected status")
	ErrDecode       = errors.New("decode response failed")

	errNilResponse = errors.New("nil response")
)

// wrapKind tags err with an operation name and a sentinel kind.
func wrapKind(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	// Message is the server's msg/message field when the body carried one.
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	var b strings.Builder
	b.WriteString(e.Method)
	b.WriteByte(' ')
	b.WriteString(e.URL)
	b.WriteString(": status ")
	b.WriteString(strconv.Itoa(e.StatusCode))
	if text := http.StatusText(e.StatusCode); text != "" {
		b.WriteString(" (" + text + ")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap lets errors.Is(err, ErrStatus) match.
func (e *StatusError) Unwrap() error { return ErrStatus }

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// errorType maps an error onto a low-cardinality metrics label.
func errorType(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		switch {
		case se.StatusCode >= http.StatusInternalServerError:
			return "server_error"
		case se.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case se.StatusCode == http.StatusNotFound:
			return "not_found"
		case se.StatusCode == http.StatusUnauthorized, se.StatusCode == http.StatusForbidden:
			return "auth"
		default:
			return "client_error"
		}
	case errors.Is(err, ErrBuildRequest):
		return "build"
	case errors.Is(err, ErrTransport):
		return "network"
	default:
		return "unknown"
	}
}
