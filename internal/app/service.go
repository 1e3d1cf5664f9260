// Package service provides the prediction service that implements the
// dependencies required by the HTTP API and the CLI.
package service

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/sackline/internal/adapters/mq/queue"
	workerpool "github.com/okian/sackline/internal/adapters/mq/worker"
	"github.com/okian/sackline/internal/adapters/repository"
	"github.com/okian/sackline/internal/artifact"
	"github.com/okian/sackline/internal/domain/personnel"
	"github.com/okian/sackline/internal/domain/scenario"
	"github.com/okian/sackline/pkg/logger"
	"github.com/okian/sackline/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultRetries         = 2
	defaultQueueSize       = 4096
	defaultPredictTimeout  = 2 * time.Second
	defaultMaxHistoryLimit = 100
)

// PlayerResult is one defender's predicted sack probability.
type PlayerResult struct {
	Label       string  `json:"label"`
	Position    string  `json:"position"`
	Probability float64 `json:"probability"` // percent, three decimals
	RelX        float64 `json:"rel_x"`
	RelY        float64 `json:"rel_y"`
	DistFromQB  float64 `json:"dist_from_qb"` // yards, one decimal
}

// Prediction is the response to one scenario. Players are sorted by probability, highest first.
type Prediction struct {
	ID            string            `json:"id"`
	SchemaVersion string            `json:"schema_version"`
	CreatedAt     time.Time         `json:"created_at"`
	Scenario      scenario.Scenario `json:"scenario"`
	Players       []PlayerResult    `json:"players"`
	Diagram       scenario.Diagram  `json:"diagram"`
}

// SchemaInfo describes the encoded layout and the accepted scenario values.
type SchemaInfo struct {
	Version          string              `json:"version"`
	CreatedAt        time.Time           `json:"created_at"`
	Columns          []string            `json:"columns"`
	Categories       map[string][]string `json:"categories"`
	OffensePersonnel []string            `json:"offense_personnel"`
	Formations       []string            `json:"offense_formations"`
	BallSpots        []string            `json:"ball_spots"`
	Techniques       []string            `json:"techniques"`
}

// Service scores scenarios against one immutable artifact.
type Service struct {
	mu sync.RWMutex

	// Core components
	artifact *artifact.Artifact
	recon    *scenario.Reconstructor
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	history  repository.Store

	// Configuration
	workerCount     int
	retries         int
	queueSize       int
	predictTimeout  time.Duration
	maxHistoryLimit int
	now             func() time.Time
	newID           func() string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithArtifact sets the model artifact. Required.
func WithArtifact(a *artifact.Artifact) Option {
	return func(s *Service) { s.artifact = a }
}

// WithWorkerCount sets the number of scoring goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithRetries sets how often a transient scoring failure is retried.
func WithRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithQueueSize sets the capacity of the scoring queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithHistory sets the prediction history store. Defaults to an in-memory store.
func WithHistory(store repository.Store) Option {
	return func(s *Service) { s.history = store }
}

// WithPredictTimeout bounds a single prediction.
func WithPredictTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.predictTimeout = d
		}
	}
}

// WithMaxHistoryLimit caps History's n.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHistoryLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source for prediction timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the prediction id source.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// New constructs a Service. The artifact is validated here and never reloaded.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		retries:         defaultRetries,
		queueSize:       defaultQueueSize,
		predictTimeout:  defaultPredictTimeout,
		maxHistoryLimit: defaultMaxHistoryLimit,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.artifact == nil {
		return nil, ErrNoArtifact
	}
	if err := s.artifact.Validate(); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.history == nil {
		s.history = repository.NewMemoryStore()
	}
	s.recon = scenario.NewReconstructor(s.artifact.Schema)
	return s, nil
}

// Start starts the scoring pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.artifact.Model,
		workerpool.WithRetries(s.retries),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.String("schema_version", s.artifact.Version),
		logger.Int("workers", s.workerCount),
		logger.Int("retries", s.retries),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop drains the scoring pool and closes the history store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping prediction service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "scoring pool shutdown", logger.Error(err))
	}
	if err := s.history.Close(); err != nil {
		s.logger.Warn(ctx, "history close", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

func percent(p float64) float64 { return math.Round(p*100*1000) / 1000 }

func oneDecimal(v float64) float64 { return math.Round(v*10) / 10 }

// Predict validates sc, scores every defender and records the result.
func (s *Service) Predict(ctx context.Context, sc scenario.Scenario) (Prediction, error) {
	start := time.Now()
	s.mu.RLock()
	started, pool := s.started, s.pool
	s.mu.RUnlock()
	if !started {
		return Prediction{}, ErrNotStarted
	}

	ctx, cancel := context.WithTimeout(ctx, s.predictTimeout)
	defer cancel()

	batch, err := s.recon.Build(sc)
	if err != nil {
		outcome := "error"
		if errors.Is(err, scenario.ErrInvalidScenario) {
			outcome = "invalid"
		}
		metrics.RecordPrediction(outcome)
		return Prediction{}, err
	}

	rows := make([][]float64, batch.Len())
	for i := range rows {
		rows[i] = batch.Row(i)
	}
	probs, err := pool.ScoreBatch(ctx, rows)
	if err != nil {
		metrics.RecordPrediction("error")
		s.logger.Error(ctx, "scoring failed", logger.Error(err))
		return Prediction{}, fmt.Errorf("score scenario: %w", err)
	}

	percents := make([]float64, len(probs))
	players := make([]PlayerResult, len(probs))
	for i, p := range probs {
		d := batch.Defenders[i]
		percents[i] = percent(p)
		players[i] = PlayerResult{
			Label:       d.Label,
			Position:    string(d.Position),
			Probability: percents[i],
			RelX:        d.RelX,
			RelY:        d.RelY,
			DistFromQB:  oneDecimal(d.DistFromQB),
		}
		metrics.RecordSackProbability(string(d.Position), p)
	}
	slices.SortStableFunc(players, func(a, b PlayerResult) int {
		return cmp.Compare(b.Probability, a.Probability)
	})

	pred := Prediction{
		ID:            s.newID(),
		SchemaVersion: s.artifact.Version,
		CreatedAt:     s.now().UTC(),
		Scenario:      sc,
		Players:       players,
		Diagram:       scenario.NewDiagram(batch, percents),
	}
	s.record(ctx, pred)

	metrics.RecordPrediction("ok")
	metrics.RecordScenarioDefenders(batch.Len())
	metrics.RecordPredictionLatency(float64(time.Since(start).Microseconds()) / 1000)
	s.logger.Debug(ctx, "prediction served",
		logger.String("id", pred.ID),
		logger.Int("defenders", batch.Len()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return pred, nil
}

// record stores pred in the history. Failures are logged, not returned.
func (s *Service) record(ctx context.Context, pred Prediction) {
	scenarioJSON, err := json.Marshal(pred.Scenario)
	if err == nil {
		var result []byte
		if result, err = json.Marshal(pred); err == nil {
			err = s.history.Save(ctx, repository.Record{
				ID:            pred.ID,
				CreatedAt:     pred.CreatedAt,
				SchemaVersion: pred.SchemaVersion,
				Scenario:      scenarioJSON,
				Result:        result,
			})
		}
	}
	if err != nil {
		s.logger.Warn(ctx, "prediction not recorded", logger.String("id", pred.ID), logger.Error(err))
	}
}

func decode(rec repository.Record) (Prediction, error) {
	var p Prediction
	if err := json.Unmarshal(rec.Result, &p); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction %s: %w", rec.ID, err)
	}
	return p, nil
}

// History returns the n most recent predictions, newest first.
func (s *Service) History(ctx context.Context, n int) ([]Prediction, error) {
	if n < 1 || n > s.maxHistoryLimit {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidLimit, n, s.maxHistoryLimit)
	}
	recs, err := s.history.Recent(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, 0, len(recs))
	for _, r := range recs {
		p, err := decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Lookup returns one recorded prediction.
func (s *Service) Lookup(ctx context.Context, id string) (Prediction, error) {
	rec, err := s.history.Get(ctx, id)
	if err != nil {
		return Prediction{}, err
	}
	return decode(rec)
}

// MaxHistoryLimit is the largest n History accepts.
func (s *Service) MaxHistoryLimit() int { return s.maxHistoryLimit }

// Schema describes the artifact's layout and the accepted scenario values.
func (s *Service) Schema() SchemaInfo {
	sch := s.artifact.Schema
	info := SchemaInfo{
		Version:          s.artifact.Version,
		CreatedAt:        s.artifact.CreatedAt,
		Columns:          sch.Columns(),
		Categories:       make(map[string][]string, len(sch.Blocks)),
		OffensePersonnel: personnel.OffenseCodes(),
		Techniques:       s.recon.Tables().Techniques(),
	}
	for _, b := range sch.Blocks {
		info.Categories[b.Field] = sch.Categories(b.Field)
	}
	for _, f := range scenario.Formations() {
		info.Formations = append(info.Formations, string(f))
	}
	for _, b := range scenario.BallSpots() {
		info.BallSpots = append(info.BallSpots, string(b))
	}
	return info
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"retries":        s.retries,
		"queueSize":      s.queueSize,
		"schemaVersion":  s.artifact.Version,
		"columns":        s.artifact.Schema.Width(),
		"trees":          len(s.artifact.Model.Trees),
		"historyRecords": s.history.Count(ctx),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len()
	}
	return stats
}
