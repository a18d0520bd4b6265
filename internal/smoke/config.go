package smoke

import "time"

// Config holds smoke run parameters.
type Config struct {
	// UserID owns the strategies created by the run.
	UserID int64
	// StrategyName prefixes every strategy the run creates.
	StrategyName string
	// Symbols drive the batch-create step.
	Symbols []string
	// MaxIterations is the agent job size.
	MaxIterations int
	// PollInterval spaces agent status polls.
	PollInterval time.Duration
	// Readers bounds the concurrent read fan-out.
	Readers int
}

// DefaultConfig returns a small lifecycle suitable for a fake backend.
func DefaultConfig() Config {
	return Config{
		UserID:        1,
		StrategyName:  "smoke",
		Symbols:       []string{"Crypto:BTC/USDT", "Crypto:ETH/USDT"},
		MaxIterations: 3,
		PollInterval:  100 * time.Millisecond,
		Readers:       4,
	}
}

// Step is the outcome of one lifecycle step.
type Step struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Stats summarizes a run.
type Stats struct {
	Steps      []Step
	Requests   int
	Strategies int
	JobID      string
	JobState   string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// Failed returns the first failed step, if any.
func (s *Stats) Failed() (Step, bool) {
	for _, st := range s.Steps {
		if st.Err != nil {
			return st, true
		}
	}
	return Step{}, false
}
