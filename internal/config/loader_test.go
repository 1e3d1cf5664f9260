package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/sackline/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ArtifactURI, convey.ShouldEqual, "artifacts/sack-model.json")
				convey.So(cfg.ScoringRetries, convey.ShouldEqual, 2)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("SACK_ADDR", ":8080")
			t.Setenv("SACK_SCORING_WORKERS", "16")
			t.Setenv("SACK_ARTIFACT_URI", "s3://models/sack.json")
			t.Setenv("SACK_PREDICT_TIMEOUT_MS", "500")
			t.Setenv("SACK_METRICS_ENABLED", "false")

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ScoringWorkers, convey.ShouldEqual, 16)
				convey.So(cfg.ArtifactURI, convey.ShouldEqual, "s3://models/sack.json")
				convey.So(cfg.PredictTimeoutMS, convey.ShouldEqual, 500)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
# service
addr: ":9090"
history_path: ":memory:"
scoring_retries: 0
max_history_limit: 25
`)
			t.Setenv("SACK_CONFIG", path)

			cfg, err := config.Load()

			convey.Convey("Then it should merge the file with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.HistoryPath, convey.ShouldEqual, ":memory:")
				convey.So(cfg.ScoringRetries, convey.ShouldEqual, 0)
				convey.So(cfg.MaxHistoryLimit, convey.ShouldEqual, 25)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := writeConfigFile(t, "addr: \":9090\"\nscoring_workers: 3\n")
			t.Setenv("SACK_CONFIG", path)
			t.Setenv("SACK_SCORING_WORKERS", "7")

			cfg, err := config.Load()

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ScoringWorkers, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			path := writeConfigFile(t, "addr: [unclosed\n")
			t.Setenv("SACK_CONFIG", path)

			_, err := config.Load()

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			t.Setenv("SACK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load()

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			t.Setenv("SACK_SCORING_WORKERS", "many")

			_, err := config.Load()

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When loading config with zero workers", func() {
			t.Setenv("SACK_SCORING_WORKERS", "0")

			_, err := config.Load()

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SACK_CONFIG", "SACK_LOG_LEVEL", "SACK_ADDR", "SACK_ARTIFACT_URI", "SACK_HISTORY_PATH",
		"SACK_SCORING_WORKERS", "SACK_SCORING_RETRIES", "SACK_PREDICT_TIMEOUT_MS",
		"SACK_MAX_HISTORY_LIMIT", "SACK_METRICS_ENABLED", "SACK_AWS_REGION",
	} {
		if v, ok := os.LookupEnv(key); ok {
			t.Setenv(key, v)
			_ = os.Unsetenv(key)
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
