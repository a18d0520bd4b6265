package request

import (
	"bytes"
	"net/http"

	json "github.com/goccy/go-json"
)

// Response is the raw result of a dispatched call. The body is fully read and
// the connection released before Do returns.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Type       ResponseType
}

// Envelope is the {code, msg, data} wrapper the backend puts around results.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r == nil {
		return wrapKind("request.decode", ErrDecode, errNilResponse)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return wrapKind("request.decode", ErrDecode, err)
	}
	return nil
}

// Envelope decodes the backend wrapper.
func (r *Response) Envelope() (Envelope, error) {
	var env Envelope
	if err := r.Decode(&env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// DecodeData decodes the envelope's data field into v. A missing or null
// data field leaves v untouched.
func (r *Response) DecodeData(v any) error {
	env, err := r.Envelope()
	if err != nil {
		return err
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return wrapKind("request.decode_data", ErrDecode, err)
	}
	return nil
}

// ContentType returns the response Content-Type header.
func (r *Response) ContentType() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get(HeaderContentType)
}

// serverMessage pulls a human readable message out of an error body.
func serverMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ""
	}
	var payload struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Msg != "":
		return payload.Msg
	case payload.Message != "":
		return payload.Message
	default:
		return payload.Error
	}
}
