package loadtest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/sackline/internal/adapters/http/api"
	service "github.com/okian/sackline/internal/app"
	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/internal/domain/roles"
	"github.com/okian/sackline/internal/domain/scenario"
	"github.com/okian/sackline/internal/domain/schema"
	"github.com/okian/sackline/internal/domain/scoring"
	"github.com/okian/sackline/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fullSchema accepts every position and formation the generator emits.
func fullSchema() *schema.Schema {
	var positions, formations []string
	for _, p := range roles.Supported() {
		positions = append(positions, string(p))
	}
	for _, f := range scenario.Formations() {
		formations = append(formations, string(f))
	}
	s, err := schema.New([]schema.Block{
		{Field: schema.FieldDown, Categories: []string{"1", "2", "3", "4"}},
		{Field: schema.FieldPosition, Categories: positions},
		{Field: schema.FieldOffenseFormation, Categories: formations},
	}, schema.FallbackDefaults())
	if err != nil {
		panic(err)
	}
	return s
}

func newServer(t *testing.T) *httptest.Server {
	s := fullSchema()
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
	svc, err := service.New(service.WithArtifact(a), service.WithWorkerCount(2), service.WithQueueSize(256))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, svc.MaxHistoryLimit()).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop(ctx)
	})
	return srv
}

func TestGenerator(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a, b := NewGenerator(7), NewGenerator(7)

		Convey("Then they produce the same scenarios", func() {
			for range 20 {
				So(a.Scenario(), ShouldResemble, b.Scenario())
			}
		})
	})

	Convey("Given a generator", t, func() {
		g := NewGenerator(11)
		recon := scenario.NewReconstructor(fullSchema())

		Convey("Then every scenario it produces reconstructs", func() {
			for range 200 {
				sc := g.Scenario()
				So(len(sc.Defenders), ShouldBeBetweenOrEqual, 1, scenario.MaxDefenders)
				_, err := recon.Build(sc)
				So(err, ShouldBeNil)
			}
		})
	})
}

func TestVerifyPrediction(t *testing.T) {
	Convey("Given a two defender scenario", t, func() {
		sc := NewGenerator(1).Scenario()
		sc.Defenders = sc.Defenders[:1]
		sc.Defenders = append(sc.Defenders, sc.Defenders[0])

		Convey("When players are sorted and in range", func() {
			pred := Prediction{ID: "x", Players: []service.PlayerResult{{Probability: 80}, {Probability: 20}}}
			So(verifyPrediction(sc, pred), ShouldBeNil)
		})

		Convey("When players are out of order", func() {
			pred := Prediction{ID: "x", Players: []service.PlayerResult{{Probability: 20}, {Probability: 80}}}
			So(errors.Is(verifyPrediction(sc, pred), ErrVerification), ShouldBeTrue)
		})

		Convey("When a probability exceeds 100", func() {
			pred := Prediction{ID: "x", Players: []service.PlayerResult{{Probability: 101}, {Probability: 20}}}
			So(errors.Is(verifyPrediction(sc, pred), ErrVerification), ShouldBeTrue)
		})

		Convey("When a player is missing", func() {
			pred := Prediction{ID: "x", Players: []service.PlayerResult{{Probability: 20}}}
			So(errors.Is(verifyPrediction(sc, pred), ErrVerification), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv := newServer(t)

		Convey("When a load test runs against it", func() {
			stats, err := Run(context.Background(), &Config{
				BaseURL:  srv.URL,
				Requests: 60,
				Workers:  4,
				Timeout:  5 * time.Second,
				Seed:     3,
			})

			Convey("Then every request is scored and verified", func() {
				So(err, ShouldBeNil)
				So(stats.Generated, ShouldEqual, 60)
				So(stats.Submitted, ShouldEqual, 60)
				So(stats.Successful+stats.Backpressed, ShouldEqual, 60)
				So(stats.Violations, ShouldEqual, 0)
				So(stats.HistoryHits, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given no server", t, func() {
		_, err := Run(context.Background(), &Config{BaseURL: "http://127.0.0.1:1", Requests: 1, Workers: 1, Timeout: time.Second})
		So(err, ShouldNotBeNil)
	})
}
