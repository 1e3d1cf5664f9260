// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and SACK_ prefixed env vars on top of the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration shared by the HTTP service and sackctl.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ArtifactURI locates the trained artifact: a local path or s3://bucket/key.
	ArtifactURI string `koanf:"artifact_uri"`

	// HistoryPath is the sqlite file used for prediction history. ":memory:" keeps it in process.
	HistoryPath string `koanf:"history_path"`

	// ScoringWorkers sets the number of scoring goroutines.
	ScoringWorkers int `koanf:"scoring_workers"`

	// ScoringRetries bounds retries of transient scoring failures.
	ScoringRetries int `koanf:"scoring_retries"`

	// PredictTimeoutMS caps a single prediction request.
	PredictTimeoutMS int `koanf:"predict_timeout_ms"`

	// MaxHistoryLimit caps GET /history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// MetricsEnabled turns Prometheus recording on. /metrics is served either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// AWSRegion is used by the s3 artifact backend when the environment does not set one.
	AWSRegion string `koanf:"aws_region"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		ArtifactURI:      "artifacts/sack-model.json",
		HistoryPath:      "sack-history.db",
		ScoringWorkers:   runtime.NumCPU(),
		ScoringRetries:   2,
		PredictTimeoutMS: 2000,
		MaxHistoryLimit:  100,
		MetricsEnabled:   true,
		AWSRegion:        "us-east-1",
	}
}

// PredictTimeout returns PredictTimeoutMS as a duration.
func (c *Config) PredictTimeout() time.Duration {
	return time.Duration(c.PredictTimeoutMS) * time.Millisecond
}

// Validate checks the values a running service depends on.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ArtifactURI) == "":
		return fmt.Errorf("%w: artifact_uri must not be empty", ErrInvalidConfig)
	case c.ScoringWorkers < 1:
		return fmt.Errorf("%w: scoring_workers must be >= 1, got %d", ErrInvalidConfig, c.ScoringWorkers)
	case c.ScoringRetries < 0:
		return fmt.Errorf("%w: scoring_retries must be >= 0, got %d", ErrInvalidConfig, c.ScoringRetries)
	case c.PredictTimeoutMS <= 0:
		return fmt.Errorf("%w: predict_timeout_ms must be > 0, got %d", ErrInvalidConfig, c.PredictTimeoutMS)
	case c.MaxHistoryLimit < 1:
		return fmt.Errorf("%w: max_history_limit must be >= 1, got %d", ErrInvalidConfig, c.MaxHistoryLimit)
	}
	return nil
}
