// Package backtest is the client for the backtest optimization agent.
//
// The agent runs an LLM-driven parameter search over a strategy. Jobs are
// started, steered with control actions and observed by polling their
// status.
package backtest

import (
	"context"
	"net/http"

	"github.com/okian/stratdesk/pkg/request"
)

// Client wraps a request.Doer with the agent endpoints.
type Client struct {
	doer request.Doer
}

// New returns a Client dispatching through doer.
func New(doer request.Doer) *Client {
	return &Client{doer: doer}
}

// StartOptimization starts a new optimization job.
func (c *Client) StartOptimization(ctx context.Context, req StartRequest) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathStart,
		Method: http.MethodPost,
		Data:   req,
	})
}

// ControlJob sends action to jobID.
func (c *Client) ControlJob(ctx context.Context, jobID string, action Action) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathControl,
		Method: http.MethodPost,
		Data:   controlBody{JobID: jobID, Action: action},
	})
}

// JobStatus fetches the job's current state. jobID is placed in the path
// verbatim.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*request.Response, error) {
	return c.doer.Do(ctx, request.Descriptor{
		URL:    PathStatus + "/" + jobID,
		Method: http.MethodGet,
	})
}

// Pause pauses a running job.
func (c *Client) Pause(ctx context.Context, jobID string) (*request.Response, error) {
	return c.ControlJob(ctx, jobID, ActionPause)
}

// Resume resumes a paused job.
func (c *Client) Resume(ctx context.Context, jobID string) (*request.Response, error) {
	return c.ControlJob(ctx, jobID, ActionResume)
}

// Stop cancels a job.
func (c *Client) Stop(ctx context.Context, jobID string) (*request.Response, error) {
	return c.ControlJob(ctx, jobID, ActionStop)
}
