// Package config defines stratdesk configuration and its loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig; loader failures wrap ErrLoadConfig.
package config

import (
	"time"
)

// Config contains process configuration shared by stratctl and mockapi.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// BaseURL is the backend root, e.g. "http://localhost:5000".
	BaseURL string `koanf:"base_url"`

	// Token is sent as a Bearer credential when non-empty.
	Token string `koanf:"token"`

	// Timeout bounds each HTTP round trip.
	Timeout time.Duration `koanf:"timeout"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `koanf:"user_agent"`

	// RateLimit caps outbound requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the limiter bucket size.
	RateBurst int `koanf:"rate_burst"`

	// MaxRetries applies to GET requests only; 0 disables retries.
	MaxRetries int `koanf:"max_retries"`

	// PollInterval is the agent job watch cadence.
	PollInterval time.Duration `koanf:"poll_interval"`

	// MetricsAddr exposes /metrics from stratctl when non-empty.
	MetricsAddr string `koanf:"metrics_addr"`

	// MockAddr is the listen address of the fake backend.
	MockAddr string `koanf:"mock_addr"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		BaseURL:      "http://localhost:5000",
		Timeout:      30 * time.Second,
		UserAgent:    "stratdesk/1.0",
		RateLimit:    0,
		RateBurst:    1,
		MaxRetries:   0,
		PollInterval: 2 * time.Second,
		MetricsAddr:  "",
		MockAddr:     ":5000",
	}
}
