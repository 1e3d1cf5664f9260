package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/sackline/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.ScoringWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ScoringRetries, convey.ShouldEqual, 2)
			convey.So(cfg.MaxHistoryLimit, convey.ShouldEqual, 100)
			convey.So(cfg.PredictTimeout(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }},
			{"empty artifact", func(c *config.Config) { c.ArtifactURI = "" }},
			{"zero workers", func(c *config.Config) { c.ScoringWorkers = 0 }},
			{"negative retries", func(c *config.Config) { c.ScoringRetries = -1 }},
			{"zero timeout", func(c *config.Config) { c.PredictTimeoutMS = 0 }},
			{"zero history size", func(c *config.Config) { c.MaxHistoryLimit = 0 }},
		}
		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then it wraps ErrInvalidConfig", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}
