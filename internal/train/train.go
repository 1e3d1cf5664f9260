// Package train fits the sack classifier and evaluates it on a held-out split.
package train

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/internal/domain/model"
	"github.com/okian/sackline/internal/domain/schema"
	"github.com/okian/sackline/internal/domain/scoring"
	"github.com/okian/sackline/pkg/logger"
)

// Trainer turns assembled rows into an artifact.
type Trainer struct {
	params       Params
	testFraction float64
	seed         uint64
	log          logger.Logger
	now          func() time.Time
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithParams overrides the boosting parameters.
func WithParams(p Params) Option { return func(t *Trainer) { t.params = p } }

// WithTestFraction sets the held-out share.
func WithTestFraction(f float64) Option { return func(t *Trainer) { t.testFraction = f } }

// WithSeed sets the split seed.
func WithSeed(seed uint64) Option { return func(t *Trainer) { t.seed = seed } }

// WithLogger sets the logger. Without it the trainer uses the global
// logger, resolved when Train runs.
func WithLogger(l logger.Logger) Option { return func(t *Trainer) { t.log = l } }

// WithClock sets the artifact timestamp source.
func WithClock(now func() time.Time) Option { return func(t *Trainer) { t.now = now } }

// NewTrainer returns a trainer with default settings.
func NewTrainer(opts ...Option) *Trainer {
	t := &Trainer{
		params:       DefaultParams(),
		testFraction: DefaultTestFraction,
		seed:         DefaultSeed,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Encode builds the feature matrix and label vector of rows under s.
func Encode(s *schema.Schema, rows []model.DefenderFeatureRow) (*mat.Dense, []float64) {
	if len(rows) == 0 {
		return nil, nil
	}
	x := mat.NewDense(len(rows), s.Width(), nil)
	y := make([]float64, len(rows))
	for i, r := range rows {
		s.EncodeInto(x.RawRowView(i), r)
		y[i] = float64(r.Sack)
	}
	return x, y
}

// Predictions scores every row of x.
func Predictions(e *scoring.Ensemble, x *mat.Dense) []float64 {
	if x == nil {
		return nil
	}
	n, _ := x.Dims()
	p := make([]float64, n)
	for i := range n {
		p[i] = e.Predict(x.RawRowView(i))
	}
	return p
}

// Evaluate computes held-out metrics of e on rows.
func Evaluate(e *scoring.Ensemble, s *schema.Schema, trainRows int, rows []model.DefenderFeatureRow) artifact.Evaluation {
	eval := artifact.Evaluation{
		TrainRows:  trainRows,
		TestRows:   len(rows),
		Importance: Importance(e, s),
	}
	x, y := Encode(s, rows)
	if x == nil {
		return eval
	}
	p := Predictions(e, x)
	var pos float64
	for _, v := range y {
		pos += v
	}
	eval.Prevalence = pos / float64(len(y))
	eval.Brier = Brier(p, y)
	eval.LogLoss = LogLoss(p, y)
	if auc := AUC(p, y); !math.IsNaN(auc) {
		eval.AUC = auc
	}
	eval.Calibration = Calibration(p, y)
	return eval
}

// Train splits rows, derives the schema from the training split, fits the
// ensemble and evaluates it on the held-out split.
func (t *Trainer) Train(ctx context.Context, rows []model.DefenderFeatureRow) (*artifact.Artifact, error) {
	trainRows, testRows, err := Split(rows, t.testFraction, t.seed)
	if err != nil {
		return nil, err
	}
	if len(trainRows) == 0 {
		return nil, fmt.Errorf("%w: split left no training rows", ErrNoRows)
	}
	log := t.log
	if log == nil {
		log = logger.Named("train")
	}
	log.Info(ctx, "split dataset",
		logger.Int("train_rows", len(trainRows)),
		logger.Int("test_rows", len(testRows)),
	)

	s, err := schema.Derive(trainRows)
	if err != nil {
		return nil, fmt.Errorf("derive schema: %w", err)
	}
	x, y := Encode(s, trainRows)

	start := time.Now()
	e, err := Fit(ctx, x, y, t.params, log)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	eval := Evaluate(e, s, len(trainRows), testRows)
	log.Info(ctx, "trained model",
		logger.Int("trees", len(e.Trees)),
		logger.Int("columns", s.Width()),
		logger.Duration("elapsed", time.Since(start)),
		logger.Float64("brier", eval.Brier),
		logger.Float64("log_loss", eval.LogLoss),
		logger.Float64("auc", eval.AUC),
	)

	return artifact.New(s, e, eval, t.now())
}
