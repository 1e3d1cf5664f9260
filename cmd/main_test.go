package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/sackline/internal/adapters/artifactstore"
	service "github.com/okian/sackline/internal/app"
	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/internal/config"
	"github.com/okian/sackline/internal/domain/schema"
	"github.com/okian/sackline/internal/domain/scoring"
	"github.com/okian/sackline/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeArtifact(t *testing.T, path string) {
	t.Helper()
	s, err := schema.New([]schema.Block{
		{Field: schema.FieldDown, Categories: []string{"1", "2", "3", "4"}},
		{Field: schema.FieldPosition, Categories: []string{"CB", "DE"}},
		{Field: schema.FieldOffenseFormation, Categories: []string{"SHOTGUN"}},
	}, schema.FallbackDefaults())
	if err != nil {
		t.Fatal(err)
	}
	e := &scoring.Ensemble{Width: s.Width(), Trees: []scoring.Tree{{
		Feature:     []int{s.ColumnIndex("dist_from_qb"), scoring.Leaf, scoring.Leaf},
		Threshold:   []float64{7, 0, 0},
		Left:        []int{1, 0, 0},
		Right:       []int{2, 0, 0},
		DefaultLeft: []bool{false, false, false},
		Value:       []float64{0, 2, -2},
		Gain:        []float64{1, 0, 0},
	}}}
	a, err := artifact.New(s, e, artifact.Evaluation{}, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if err := artifactstore.New().Save(context.Background(), path, a); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.New()
	cfg.ArtifactURI = filepath.Join(dir, "model.json")
	cfg.HistoryPath = filepath.Join(dir, "history.db")
	cfg.ScoringWorkers = 2
	writeArtifact(t, cfg.ArtifactURI)
	return cfg
}

const scenarioBody = `{
	"down": 3,
	"offense_personnel": "11",
	"defense_formation": "4-2-5",
	"ball_spot": "Middle",
	"offense_formation": "SHOTGUN",
	"yards_to_go": 2,
	"yardline": 59,
	"defenders_in_box": 6,
	"defenders": [
		{"label": "Corner", "position": "CB", "rel_x": 7, "rel_y": 13},
		{"label": "Edge", "position": "DE", "rel_x": 1, "rel_y": 3}
	]
}`

func TestRun(t *testing.T) {
	convey.Convey("Given a configured server", t, func() {
		cfg := testConfig(t)
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		base := "http://" + ln.Addr().String()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg, ln) }()

		convey.Reset(func() {
			cancel()
			<-done
		})

		convey.Convey("When a scenario is posted", func() {
			resp, err := http.Post(base+"/predict", "application/json", strings.NewReader(scenarioBody))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then it is scored and recorded", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var pred service.Prediction
				convey.So(json.NewDecoder(resp.Body).Decode(&pred), convey.ShouldBeNil)
				convey.So(pred.Players, convey.ShouldHaveLength, 2)
				convey.So(pred.Players[0].Label, convey.ShouldEqual, "Edge")

				got, err := http.Get(base + "/history/" + pred.ID)
				convey.So(err, convey.ShouldBeNil)
				defer got.Body.Close()
				convey.So(got.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When the docs and landing page are requested", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/schema", "/healthz", "/stats"} {
				resp, err := http.Get(base + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestRunDrainsInFlightPredictions(t *testing.T) {
	convey.Convey("Given a server with a prediction still uploading", t, func() {
		cfg := testConfig(t)
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		base := "http://" + ln.Addr().String()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg, ln) }()

		health, err := http.Get(base + "/healthz")
		convey.So(err, convey.ShouldBeNil)
		_ = health.Body.Close()

		body, upload := io.Pipe()
		status := make(chan int, 1)
		go func() {
			resp, err := http.Post(base+"/predict", "application/json", body)
			if err != nil {
				status <- 0
				return
			}
			_ = resp.Body.Close()
			status <- resp.StatusCode
		}()
		half := len(scenarioBody) / 2
		_, err = upload.Write([]byte(scenarioBody[:half]))
		convey.So(err, convey.ShouldBeNil)
		time.Sleep(100 * time.Millisecond)

		convey.Convey("When the server context is canceled mid-request", func() {
			cancel()
			time.Sleep(200 * time.Millisecond)
			_, err := upload.Write([]byte(scenarioBody[half:]))
			convey.So(err, convey.ShouldBeNil)
			convey.So(upload.Close(), convey.ShouldBeNil)

			convey.Convey("Then the request is still scored before run returns", func() {
				convey.So(<-status, convey.ShouldEqual, http.StatusOK)
				convey.So(<-done, convey.ShouldBeNil)
			})
		})
	})
}

func TestRunFailures(t *testing.T) {
	convey.Convey("Given a config pointing at a missing artifact", t, func() {
		cfg := config.New()
		cfg.ArtifactURI = filepath.Join(t.TempDir(), "missing.json")
		cfg.HistoryPath = ":memory:"

		convey.Convey("Then run fails before serving", func() {
			err := run(context.Background(), cfg, nil)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load artifact")
		})
	})
}
