package mockapi

import "time"

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithJobIDFunc replaces the job id generator.
func WithJobIDFunc(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newJobID = fn
		}
	}
}

// WithMaxJobLogs caps the log lines kept per agent job.
func WithMaxJobLogs(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxJobLogs = n
		}
	}
}
