package request

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/okian/stratdesk/pkg/logger"
	"github.com/okian/stratdesk/pkg/metrics"
)

// Client defaults.
const (
	defaultTimeout      = 30 * time.Second
	defaultUserAgent    = "stratdesk/1.0"
	defaultRetryInitial = 200 * time.Millisecond
	defaultRetryMax     = 5 * time.Second
)

// Client dispatches Descriptors over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	ownsHTTPClient bool
	timeout        time.Duration
	token          string
	userAgent      string
	limiter        *rate.Limiter
	maxRetries     int
	retryInitial   time.Duration
	retryMax       time.Duration
	log            logger.Logger
	metrics        *metrics.Manager
	newRequestID   func() string
}

var _ Doer = (*Client)(nil)

// NewClient builds a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{},
		ownsHTTPClient: true,
		timeout:        defaultTimeout,
		userAgent:      defaultUserAgent,
		retryInitial:   defaultRetryInitial,
		retryMax:       defaultRetryMax,
		log:            logger.Nop(),
		metrics:        metrics.Default(),
		newRequestID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ownsHTTPClient {
		c.httpClient.Timeout = c.timeout
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Do performs d and returns the fully read response. Non-2xx statuses are
// returned as *StatusError.
func (c *Client) Do(ctx context.Context, d Descriptor) (*Response, error) {
	const op = "request.do"
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.ToUpper(strings.TrimSpace(d.Method))
	if method == "" {
		method = http.MethodGet
	}
	route := routeLabel(d.URL)

	body, contentType, err := encodeBody(d.Data)
	if err != nil {
		c.metrics.RecordClientError(route, "build")
		return nil, wrapKind(op, ErrBuildRequest, err)
	}
	query, err := encodeParams(d.Params)
	if err != nil {
		c.metrics.RecordClientError(route, "build")
		return nil, wrapKind(op, ErrBuildRequest, err)
	}
	target := c.baseURL + d.URL
	if query != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query
	}

	headers := c.headers(d, contentType)

	retryable := c.maxRetries > 0 && (method == http.MethodGet || method == http.MethodHead)
	var bo *backoff.ExponentialBackOff
	if retryable {
		bo = backoff.NewExponentialBackOff()
		bo.InitialInterval = c.retryInitial
		bo.MaxInterval = c.retryMax
	}

	for attempt := 0; ; attempt++ {
		if err := c.wait(ctx, route); err != nil {
			return nil, err
		}
		resp, err := c.roundTrip(ctx, method, target, route, body, headers, d.responseType())
		if err == nil {
			return resp, nil
		}
		if !retryable || attempt >= c.maxRetries || !isTemporary(err) || ctx.Err() != nil {
			return nil, err
		}
		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			return nil, err
		}
		c.metrics.RecordClientRetry(route)
		c.log.Warn(ctx, "retrying request",
			logger.String("method", method),
			logger.String("url", d.URL),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", sleep),
			logger.Error(err))
		select {
		case <-ctx.Done():
			return nil, wrapKind(op, ErrTransport, ctx.Err())
		case <-time.After(sleep):
		}
	}
}

func (c *Client) wait(ctx context.Context, route string) error {
	if c.limiter == nil {
		return nil
	}
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.RecordClientError(route, "rate_limit_wait")
		return wrapKind("request.rate_limit", ErrTransport, err)
	}
	c.metrics.RecordRateLimitWait(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, target, route string, body []byte, headers http.Header, rt ResponseType) (*Response, error) {
	const op = "request.round_trip"

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		c.metrics.RecordClientError(route, "build")
		return nil, wrapKind(op, ErrBuildRequest, err)
	}
	req.Header = headers.Clone()

	c.metrics.AddClientInflight(1)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.AddClientInflight(-1)
	if err != nil {
		c.metrics.RecordClientError(route, "network")
		c.log.Debug(ctx, "request failed",
			logger.String("method", method),
			logger.String("url", target),
			logger.Error(err))
		return nil, wrapKind(op, ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	status := strconv.Itoa(resp.StatusCode)
	c.metrics.RecordClientRequest(route, method, status, float64(elapsed.Microseconds())/1000)
	if err != nil {
		c.metrics.RecordClientError(route, "network")
		return nil, wrapKind(op, ErrTransport, err)
	}

	c.log.Debug(ctx, "request completed",
		logger.String("method", method),
		logger.String("url", target),
		logger.Int("status", resp.StatusCode),
		logger.Int("bytes", len(data)),
		logger.Duration("elapsed", elapsed),
		logger.String("request_id", headers.Get(HeaderRequestID)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    serverMessage(data),
			Body:       data,
		}
		c.metrics.RecordClientError(route, errorType(serr))
		return nil, serr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Type:       rt,
	}, nil
}

// headers assembles defaults first so descriptor headers always win.
func (c *Client) headers(d Descriptor, contentType string) http.Header {
	h := make(http.Header)
	if d.responseType() == ResponseBlob {
		h.Set(HeaderAccept, "*/*")
	} else {
		h.Set(HeaderAccept, ContentTypeJSON)
	}
	if c.userAgent != "" {
		h.Set(HeaderUserAgent, c.userAgent)
	}
	if c.token != "" {
		h.Set(HeaderAuthorization, "Bearer "+c.token)
	}
	if contentType != "" {
		h.Set(HeaderContentType, contentType)
	}
	if _, ok := d.header(HeaderRequestID); !ok {
		h.Set(HeaderRequestID, c.newRequestID())
	}
	for k, v := range d.Headers {
		h.Set(k, v)
	}
	return h
}

// encodeBody turns Descriptor.Data into bytes plus an implied content type.
// Reader bodies are buffered so retries can replay them.
func encodeBody(data any) ([]byte, string, error) {
	if isNil(data) {
		return nil, "", nil
	}
	switch v := data.(type) {
	case *Multipart:
		return v.Bytes(), v.ContentType(), nil
	case json.RawMessage:
		return v, ContentTypeJSON, nil
	case []byte:
		return v, "", nil
	case string:
		return []byte(v), "text/plain; charset=utf-8", nil
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return nil, "", err
		}
		return b, "", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return b, ContentTypeJSON, nil
	}
}

func isTemporary(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrTransport)
}

// routeLabel replaces identifier-looking path segments with {id} so metric
// label cardinality stays bounded.
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s == "" {
			continue
		}
		if strings.IndexFunc(s, unicode.IsDigit) >= 0 {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}
