package backtest

// TargetMetric is the metric the optimizer maximizes. Values are not
// validated client side.
type TargetMetric string

// Known target metrics.
const (
	TargetSharpeRatio TargetMetric = "sharpeRatio"
	TargetTotalReturn TargetMetric = "totalReturn"
	TargetWinRate     TargetMetric = "winRate"
)

// Action is a job control command. Values are not validated client side.
type Action string

// Known control actions.
const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
)

// State is the lifecycle state of an optimization job.
type State string

// Job states reported by the agent.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// StartRequest is the body of StartOptimization.
type StartRequest struct {
	// Config is the backtest configuration (symbol, timeframe, capital...).
	Config        map[string]any `json:"config"`
	StrategyCode  string         `json:"strategy_code"`
	TargetMetric  TargetMetric   `json:"target_metric"`
	MaxIterations int            `json:"max_iterations"`
	// Model optionally selects the LLM used to propose parameters.
	Model string `json:"model,omitempty"`
}

// StartResult is the data payload returned by StartOptimization.
type StartResult struct {
	JobID string `json:"job_id"`
}

type controlBody struct {
	JobID  string `json:"job_id"`
	Action Action `json:"action"`
}

// Result is one evaluated parameter set.
type Result struct {
	Params  map[string]any     `json:"params"`
	Metrics map[string]float64 `json:"metrics"`
}

// Iteration is one step of the optimizer's history.
type Iteration struct {
	Iteration int                `json:"iteration"`
	Params    map[string]any     `json:"params"`
	Metrics   map[string]float64 `json:"metrics"`
	Reasoning string             `json:"reasoning,omitempty"`
}

// JobStatus is the typed view of a status response's data field.
type JobStatus struct {
	ID               string       `json:"id"`
	Status           State        `json:"status"`
	CurrentIteration int          `json:"current_iteration"`
	MaxIterations    int          `json:"max_iterations"`
	TargetMetric     TargetMetric `json:"target_metric"`
	BestResult       *Result      `json:"best_result,omitempty"`
	History          []Iteration  `json:"history,omitempty"`
	Logs             []string     `json:"logs,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// IsTerminal reports whether the job has finished.
func (s JobStatus) IsTerminal() bool { return s.Status.IsTerminal() }
