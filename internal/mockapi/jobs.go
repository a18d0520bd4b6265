package mockapi

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/stratdesk/pkg/backtest"
)

// job is one optimization run. The search advances one iteration per
// status poll while running.
type job struct {
	status backtest.JobStatus
	config map[string]any
	code   string
	model  string
}

// StartJob registers a running job and returns its id.
func (s *Store) StartJob(_ context.Context, req backtest.StartRequest) string {
	target := req.TargetMetric
	if target == "" {
		target = backtest.TargetTotalReturn
	}
	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j := &job{
		status: backtest.JobStatus{
			ID:            s.newJobID(),
			Status:        backtest.StateRunning,
			MaxIterations: maxIter,
			TargetMetric:  target,
		},
		config: req.Config,
		code:   req.StrategyCode,
		model:  req.Model,
	}
	s.jobs[j.status.ID] = j
	s.logLocked(j, fmt.Sprintf("Optimization started: target=%s max_iterations=%d", target, maxIter))
	if req.Model != "" {
		s.logLocked(j, "Using model "+req.Model)
	}
	return j.status.ID
}

// ControlJob applies pause, resume or stop.
func (s *Store) ControlJob(_ context.Context, id string, action backtest.Action) (backtest.JobStatus, error) {
	const op = "mockapi.control_job"
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return backtest.JobStatus{}, wrapKind(op, ErrNotFound, fmt.Errorf("job %s", id))
	}
	switch action {
	case backtest.ActionPause, backtest.ActionResume, backtest.ActionStop:
	default:
		return backtest.JobStatus{}, wrapKind(op, ErrUnknownAction, fmt.Errorf("%q", action))
	}
	if j.status.Status.IsTerminal() {
		s.logLocked(j, fmt.Sprintf("Ignored %s: job already %s.", action, j.status.Status))
		return snapshot(j), nil
	}
	switch action {
	case backtest.ActionPause:
		j.status.Status = backtest.StatePaused
		s.logLocked(j, "Job paused by user.")
	case backtest.ActionResume:
		j.status.Status = backtest.StateRunning
		s.logLocked(j, "Job resumed.")
	case backtest.ActionStop:
		j.status.Status = backtest.StateCancelled
		s.logLocked(j, "Job cancelled by user.")
	}
	return snapshot(j), nil
}

// PollJob returns the job state after advancing a running job by one
// iteration. The job completes once MaxIterations is reached.
func (s *Store) PollJob(_ context.Context, id string) (backtest.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return backtest.JobStatus{}, wrapKind("mockapi.poll_job", ErrNotFound, fmt.Errorf("job %s", id))
	}
	if j.status.Status == backtest.StateRunning {
		s.stepLocked(j)
	}
	return snapshot(j), nil
}

func (s *Store) stepLocked(j *job) {
	st := &j.status
	st.CurrentIteration++
	it := st.CurrentIteration

	params := map[string]any{
		"fast_period": 5 + it,
		"slow_period": 20 + 2*it,
	}
	// A damped oscillation keeps the best result moving for a few
	// iterations and then settling.
	score := 1 + math.Sin(float64(it))/float64(it)
	metrics := map[string]float64{
		string(backtest.TargetSharpeRatio): round2(score),
		string(backtest.TargetTotalReturn): round2(score * 12.5),
		string(backtest.TargetWinRate):     round2(45 + score*5),
	}
	st.History = append(st.History, backtest.Iteration{
		Iteration: it,
		Params:    params,
		Metrics:   metrics,
		Reasoning: fmt.Sprintf("iteration %d: widen slow period to %d", it, params["slow_period"]),
	})

	key := string(st.TargetMetric)
	if st.BestResult == nil || metrics[key] > st.BestResult.Metrics[key] {
		st.BestResult = &backtest.Result{Params: params, Metrics: metrics}
		s.logLocked(j, fmt.Sprintf("New best %s=%.2f at iteration %d", key, metrics[key], it))
	} else {
		s.logLocked(j, fmt.Sprintf("Iteration %d done", it))
	}

	if it >= st.MaxIterations {
		st.Status = backtest.StateCompleted
		s.logLocked(j, fmt.Sprintf("Optimization complete. Best %s: %.2f", key, st.BestResult.Metrics[key]))
	}
}

func (s *Store) logLocked(j *job, msg string) {
	j.status.Logs = append(j.status.Logs, "["+s.now().Format("15:04:05")+"] "+msg)
	if over := len(j.status.Logs) - s.maxJobLogs; over > 0 {
		j.status.Logs = j.status.Logs[over:]
	}
}

// JobCounts returns the number of jobs per state.
func (s *Store) JobCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, j := range s.jobs {
		out[string(j.status.Status)]++
	}
	return out
}

// snapshot copies a job's status so callers never share slices with the
// store.
func snapshot(j *job) backtest.JobStatus {
	out := j.status
	out.History = append([]backtest.Iteration(nil), j.status.History...)
	out.Logs = append([]string(nil), j.status.Logs...)
	if j.status.BestResult != nil {
		best := *j.status.BestResult
		out.BestResult = &best
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
