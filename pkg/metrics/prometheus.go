// Package metrics provides Prometheus metrics for the sack probability service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the sack service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Prediction metrics
	predictions        *prometheus.CounterVec
	predictionLatency  prometheus.Histogram
	predictedDefenders prometheus.Histogram
	sackProbability    *prometheus.HistogramVec

	// Scoring metrics
	scoringLatency prometheus.Histogram
	scoringErrors  prometheus.Counter
	scoringRetries prometheus.Counter
	workerCount    prometheus.Gauge
	workerActive   prometheus.Gauge

	// Queue metrics
	queueSize       prometheus.Gauge
	queueRejections *prometheus.CounterVec

	// Pipeline metrics
	pipelineRows  prometheus.Counter
	pipelineDrops *prometheus.CounterVec

	// Artifact and history metrics
	artifactLoads      *prometheus.CounterVec
	historyRecords     prometheus.Gauge
	historyWriteErrors prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sack",
		subsystem:        "predictor",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// NewMetricsManager is an alias of NewManager.
func NewMetricsManager(opts ...Option) *Manager {
	return NewManager(opts...)
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.predictions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("predictions_total"),
		Help:        "Total number of scenario predictions by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("prediction_latency_milliseconds"),
		Help:        "End to end latency of a scenario prediction in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.predictedDefenders = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scenario_defenders"),
		Help:        "Number of defenders per scored scenario",
		Buckets:     []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		ConstLabels: constLabels,
	})

	m.sackProbability = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("sack_probability"),
		Help:        "Distribution of predicted sack probabilities by defensive position",
		Buckets:     prometheus.LinearBuckets(0, 0.05, 20),
		ConstLabels: constLabels,
	}, []string{"position"})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scoring_latency_milliseconds"),
		Help:        "Latency of scoring a single feature vector in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.scoringErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scoring_errors_total"),
		Help:        "Total number of scoring invocations that failed",
		ConstLabels: constLabels,
	})

	m.scoringRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scoring_retries_total"),
		Help:        "Total number of scoring retries after transient failures",
		ConstLabels: constLabels,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_count"),
		Help:        "Configured number of scoring workers",
		ConstLabels: constLabels,
	})

	m.workerActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_active_count"),
		Help:        "Number of scoring workers currently busy",
		ConstLabels: constLabels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_size"),
		Help:        "Number of scoring jobs waiting in the queue",
		ConstLabels: constLabels,
	})

	m.queueRejections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_rejections_total"),
		Help:        "Total number of scoring jobs the queue refused, by reason",
		ConstLabels: constLabels,
	}, []string{"reason"})

	m.pipelineRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("pipeline_rows_total"),
		Help:        "Total number of defender feature rows assembled",
		ConstLabels: constLabels,
	})

	m.pipelineDrops = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("pipeline_drops_total"),
		Help:        "Total number of entities, plays or defenders dropped by the assembler, by reason",
		ConstLabels: constLabels,
	}, []string{"reason"})

	m.artifactLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("artifact_loads_total"),
		Help:        "Total number of artifact loads by backend and outcome",
		ConstLabels: constLabels,
	}, []string{"backend", "outcome"})

	m.historyRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("history_records"),
		Help:        "Number of predictions stored in the history store",
		ConstLabels: constLabels,
	})

	m.historyWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("history_write_errors_total"),
		Help:        "Total number of failed history writes",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Total number of errors by endpoint, method and error type",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})
}

// SetEnabled switches recording on the global manager. While disabled the
// Record and Update functions are no-ops and the system collector does not start.
func SetEnabled(on bool) { globalManager.enabled.Store(on) }

// Enabled reports whether the global manager records.
func Enabled() bool { return globalManager.enabled.Load() }

// Prediction metrics.

// RecordPrediction increments the predictions counter for the given outcome (ok, invalid, error).
func RecordPrediction(outcome string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.predictions.WithLabelValues(outcome).Inc()
}

// RecordPredictionLatency records end to end prediction latency in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordScenarioDefenders records the number of defenders in a scored scenario.
func RecordScenarioDefenders(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.predictedDefenders.Observe(float64(n))
}

// RecordSackProbability records a predicted probability in [0,1] for a position.
func RecordSackProbability(position string, p float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.sackProbability.WithLabelValues(position).Observe(p)
}

// Scoring metrics.

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.scoringErrors.Inc()
}

// RecordScoringRetry increments the scoring retries counter.
func RecordScoringRetry() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.scoringRetries.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerActive.Set(float64(count))
}

// Queue metrics.

// UpdateQueueSize sets the number of queued scoring jobs.
func UpdateQueueSize(size int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueRejection increments the rejected jobs counter for reason (full, closed).
func RecordQueueRejection(reason string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueRejections.WithLabelValues(reason).Inc()
}

// Pipeline metrics.

// RecordPipelineRows adds n assembled rows.
func RecordPipelineRows(n int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.pipelineRows.Add(float64(n))
}

// RecordPipelineDrops adds n drops for reason.
func RecordPipelineDrops(reason string, n int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.pipelineDrops.WithLabelValues(reason).Add(float64(n))
}

// Artifact and history metrics.

// RecordArtifactLoad increments the artifact load counter.
func RecordArtifactLoad(backend, outcome string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.artifactLoads.WithLabelValues(backend, outcome).Inc()
}

// UpdateHistoryRecords sets the number of stored predictions.
func UpdateHistoryRecords(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.historyRecords.Set(float64(count))
}

// RecordHistoryWriteError increments the history write error counter.
func RecordHistoryWriteError() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.historyWriteErrors.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
