package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/sackline/internal/adapters/mq/queue"
	"github.com/okian/sackline/internal/domain/scoring"
	"github.com/okian/sackline/pkg/logger"
	"github.com/okian/sackline/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultRetries      = 2
	defaultBackoff      = 10 * time.Millisecond
	poolShutdownTimeout = 30 * time.Second
)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown waits for the worker to finish its loop.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker scores jobs from a queue.
type InMemoryWorker struct {
	queue   Queue
	scorer  scoring.Scorer
	name    string
	retries int
	backoff time.Duration
	active  *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer scoring.Scorer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scorer:   scorer,
		name:     "worker",
		retries:  defaultRetries,
		backoff:  defaultBackoff,
		active:   &atomic.Int64{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
			j.Reply <- w.process(j)
			metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process scores one job, retrying transient failures.
func (w *InMemoryWorker) process(j queue.Job) queue.Result {
	res := queue.Result{Index: j.Index}
	ctx := j.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		start := time.Now()
		p, err := w.scorer.Score(ctx, j.Features)
		metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
		res.Attempts = attempt + 1
		if err == nil {
			res.Probability = p
			return res
		}

		metrics.RecordScoringError()
		if !errors.Is(err, scoring.ErrTransient) || attempt >= w.retries {
			w.logger.Error(ctx, "scoring failed",
				logger.Int("row", j.Index),
				logger.Int("attempts", res.Attempts),
				logger.Error(err),
			)
			res.Err = fmt.Errorf("score row %d: %w", j.Index, err)
			return res
		}

		metrics.RecordScoringRetry()
		w.logger.Debug(ctx, "retrying transient scoring failure",
			logger.Int("row", j.Index),
			logger.Int("attempt", res.Attempts),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			return res
		case <-time.After(time.Duration(attempt+1) * w.backoff):
		}
	}
}

// Enqueuer is the producer side of the queue.
type Enqueuer interface {
	Queue
	Enqueue(ctx context.Context, j queue.Job) error
	Close() error
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Enqueuer
	started atomic.Bool
	stopped atomic.Bool

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. Options apply to every worker.
func NewPool(workerCount int, q Enqueuer, scorer scoring.Scorer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	active := &atomic.Int64{}
	for i := range workerCount {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, scorer, wopts...)
		w.active = active
		pool.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// ScoreBatch scores every row and returns probabilities in row order. The
// first failure cancels the remaining rows and is returned.
func (p *Pool) ScoreBatch(ctx context.Context, rows [][]float64) ([]float64, error) {
	if p.stopped.Load() {
		return nil, ErrStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reply := make(chan queue.Result, len(rows))
	for i, row := range rows {
		if err := p.queue.Enqueue(ctx, queue.Job{Ctx: ctx, Index: i, Features: row, Reply: reply}); err != nil {
			if errors.Is(err, queue.ErrClosed) {
				return nil, ErrStopped
			}
			return nil, err
		}
	}

	out := make([]float64, len(rows))
	for range rows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-reply:
			if r.Err != nil {
				return nil, r.Err
			}
			out[r.Index] = r.Probability
		}
	}
	return out, nil
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			err = fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return err
}
