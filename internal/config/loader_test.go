package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/stratdesk/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.BaseURL, convey.ShouldEqual, "http://localhost:5000")
			convey.So(cfg.Timeout, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.MaxRetries, convey.ShouldEqual, 0)
			convey.So(cfg.RateLimit, convey.ShouldEqual, 0)
			convey.So(cfg.PollInterval, convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BaseURL, convey.ShouldEqual, "http://localhost:5000")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("STRATDESK_BASE_URL", "https://quant.example.com")
			_ = os.Setenv("STRATDESK_TOKEN", "secret")
			_ = os.Setenv("STRATDESK_TIMEOUT", "5s")
			_ = os.Setenv("STRATDESK_RATE_LIMIT", "2.5")
			_ = os.Setenv("STRATDESK_MAX_RETRIES", "3")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BaseURL, convey.ShouldEqual, "https://quant.example.com")
				convey.So(cfg.Token, convey.ShouldEqual, "secret")
				convey.So(cfg.Timeout, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.RateLimit, convey.ShouldEqual, 2.5)
				convey.So(cfg.MaxRetries, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
base_url: "http://10.0.0.5:5000"
timeout: 12s
poll_interval: 500ms
rate_burst: 4
log_format: json
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("STRATDESK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BaseURL, convey.ShouldEqual, "http://10.0.0.5:5000")
				convey.So(cfg.Timeout, convey.ShouldEqual, 12*time.Second)
				convey.So(cfg.PollInterval, convey.ShouldEqual, 500*time.Millisecond)
				convey.So(cfg.RateBurst, convey.ShouldEqual, 4)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.UserAgent, convey.ShouldEqual, "stratdesk/1.0")
			})
		})

		convey.Convey("When both file and environment set a key", func() {
			tmpFile := createTempConfigFile(`
base_url: "http://10.0.0.5:5000"
token: from-file
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("STRATDESK_CONFIG", tmpFile)
			_ = os.Setenv("STRATDESK_TOKEN", "from-env")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BaseURL, convey.ShouldEqual, "http://10.0.0.5:5000")
				convey.So(cfg.Token, convey.ShouldEqual, "from-env")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("STRATDESK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("STRATDESK_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the base URL is empty", func() {
			_ = os.Setenv("STRATDESK_BASE_URL", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "base_url must not be empty")
			})
		})

		convey.Convey("When the base URL is relative", func() {
			_ = os.Setenv("STRATDESK_BASE_URL", "/api")

			_, err := config.Load(ctx)

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When numeric environment variables are malformed", func() {
			_ = os.Setenv("STRATDESK_MAX_RETRIES", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When retries are negative", func() {
			_ = os.Setenv("STRATDESK_MAX_RETRIES", "-1")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "max_retries")
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"STRATDESK_CONFIG",
		"STRATDESK_BASE_URL",
		"STRATDESK_TOKEN",
		"STRATDESK_TIMEOUT",
		"STRATDESK_RATE_LIMIT",
		"STRATDESK_MAX_RETRIES",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "stratdesk-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
