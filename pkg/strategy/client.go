// Package strategy is the client for the strategy-management API.
//
// Every method maps to exactly one REST call. Arguments are forwarded as
// given and the dispatcher's response and error are returned unaltered.
package strategy

import (
	"context"
	"net/http"

	"github.com/okian/stratdesk/pkg/request"
)

// Client wraps a request.Doer with the strategy endpoints.
type Client struct {
	doer request.Doer
}

// New returns a Client dispatching through doer.
func New(doer request.Doer) *Client {
	return &Client{doer: doer}
}

func idParams(id int64) map[string]any {
	return map[string]any{"id": id}
}

// List returns the caller's strategies, optionally filtered by user.
func (c *Client) List(ctx context.Context, p ListParams) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathList,
		Method: http.MethodGet,
		Params: p.params(),
	})
}

// Detail fetches one strategy.
func (c *Client) Detail(ctx context.Context, id int64) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathDetail,
		Method: http.MethodGet,
		Params: idParams(id),
	})
}

// Create creates a strategy.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathCreate,
		Method: http.MethodPost,
		Data:   req,
	})
}

// BatchCreate creates one strategy per symbol.
func (c *Client) BatchCreate(ctx context.Context, req BatchCreateRequest) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathBatchCreate,
		Method: http.MethodPost,
		Data:   req,
	})
}

// Update applies a partial update to strategy id.
func (c *Client) Update(ctx context.Context, id int64, req UpdateRequest) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathUpdate,
		Method: http.MethodPut,
		Params: idParams(id),
		Data:   req,
	})
}

// Stop stops a running strategy.
func (c *Client) Stop(ctx context.Context, id int64) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathStop,
		Method: http.MethodPost,
		Params: idParams(id),
	})
}

// Start starts a strategy.
func (c *Client) Start(ctx context.Context, id int64) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathStart,
		Method: http.MethodPost,
		Params: idParams(id),
	})
}

// Delete removes a strategy.
func (c *Client) Delete(ctx context.Context, id int64) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathDelete,
		Method: http.MethodDelete,
		Params: idParams(id),
	})
}

// BatchStart starts the selected strategies.
func (c *Client) BatchStart(ctx context.Context, req BatchRequest) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathBatchStart,
		Method: http.MethodPost,
		Data:   req,
	})
}

// BatchStop stops the selected strategies.
func (c *Client) BatchStop(ctx context.Context, req BatchRequest) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathBatchStop,
		Method: http.MethodPost,
		Data:   req,
	})
}

// BatchDelete removes the selected strategies. The selection travels in a
// DELETE body.
func (c *Client) BatchDelete(ctx context.Context, req BatchRequest) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathBatchDelete,
		Method: http.MethodDelete,
		Data:   req,
	})
}

// TestConnection asks the backend to verify exchange credentials.
func (c *Client) TestConnection(ctx context.Context, exchangeConfig Config) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathTestConnection,
		Method: http.MethodPost,
		Data:   map[string]any{"exchange_config": exchangeConfig},
	})
}

// Trades lists a strategy's trade records.
func (c *Client) Trades(ctx context.Context, id int64) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathTrades,
		Method: http.MethodGet,
		Params: idParams(id),
	})
}

// Positions lists a strategy's positions.
func (c *Client) Positions(ctx context.Context, id int64) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathPositions,
		Method: http.MethodGet,
		Params: idParams(id),
	})
}

// EquityCurve returns a strategy's equity curve.
func (c *Client) EquityCurve(ctx context.Context, id int64) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathEquityCurve,
		Method: http.MethodGet,
		Params: idParams(id),
	})
}

// Notifications returns persisted signal notifications.
func (c *Client) Notifications(ctx context.Context, p NotificationParams) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathNotifications,
		Method: http.MethodGet,
		Params: p.params(),
	})
}

// Import uploads an exported strategy document as multipart/form-data.
func (c *Client) Import(ctx context.Context, f ImportFile) (*request.Response, error) {
	form, err := request.NewMultipart(f.Fields, request.File{
		Field:       "file",
		Name:        f.Name,
		ContentType: request.ContentTypeJSON,
		Content:     f.Content,
	})
	if err != nil {
		return nil, err
	}
	return c.doer.Do(ctx, request.Descriptor{
		URL:     PathImport,
		Method:  http.MethodPost,
		Data:    form,
		Headers: map[string]string{request.HeaderContentType: form.ContentType()},
	})
}

// SyncPositions reconciles a strategy's positions with the exchange.
func (c *Client) SyncPositions(ctx context.Context, id int64) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathSync,
		Method: http.MethodPost,
		Params: idParams(id),
	})
}

// Export downloads a strategy's configuration as a binary blob.
func (c *Client) Export(ctx context.Context, id int64) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:          PathExport,
		Method:       http.MethodGet,
		Params:       idParams(id),
		ResponseType: request.ResponseBlob,
	})
}
