package backtest

// Backtest-agent endpoints.
const (
	PathStart   = "/api/indicator/backtest/agent/start"
	PathControl = "/api/indicator/backtest/agent/control"
	// PathStatus is suffixed with "/{jobID}".
	PathStatus = "/api/indicator/backtest/agent/status"
)
