package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/stratdesk/pkg/request"
)

// DecodeStart extracts the job id from a StartOptimization response.
func DecodeStart(resp *request.Response) (StartResult, error) {
	var out StartResult
	if err := decodeEnvelope(resp, &out); err != nil {
		return StartResult{}, err
	}
	return out, nil
}

// DecodeStatus turns a JobStatus response into a typed JobStatus.
func DecodeStatus(resp *request.Response) (JobStatus, error) {
	var out JobStatus
	if err := decodeEnvelope(resp, &out); err != nil {
		return JobStatus{}, err
	}
	if out.Status == "" {
		return JobStatus{}, ErrEmptyStatus
	}
	return out, nil
}

func decodeEnvelope(resp *request.Response, v any) error {
	env, err := resp.Envelope()
	if err != nil {
		return err
	}
	if env.Code != successCode {
		return rejected(env.Code, env.Msg)
	}
	return resp.DecodeData(v)
}

// Watch polls jobID every interval until the job reaches a terminal state,
// ctx is done, or fn returns an error. fn sees every decoded status,
// including the terminal one, and may be nil. The last status observed is
// returned.
func Watch(ctx context.Context, c *Client, jobID string, interval time.Duration, fn func(JobStatus) error) (JobStatus, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last JobStatus
	for {
		resp, err := c.JobStatus(ctx, jobID)
		if err != nil {
			return last, err
		}
		st, err := DecodeStatus(resp)
		if err != nil {
			return last, fmt.Errorf("job %s: %w", jobID, err)
		}
		last = st
		if fn != nil {
			if err := fn(st); err != nil {
				return last, err
			}
		}
		if st.IsTerminal() {
			return last, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
