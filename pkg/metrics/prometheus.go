// Package metrics provides Prometheus metrics for the myplaces relevance service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace = "myplaces"
	defaultSubsystem = "relevance"
)

// Manager owns every collector exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline
	passesTotal     *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
	poisScored      prometheus.Counter
	scoringLatency  prometheus.Histogram
	modelFailures   *prometheus.CounterVec
	universeSize    prometheus.Gauge
	relevantPOIs    prometheus.Gauge
	workerCount     prometheus.Gauge
	catalogRefresh  *prometheus.CounterVec
	sensingFallback *prometheus.CounterVec

	// Ledger
	ledgerWrites       *prometheus.CounterVec
	ledgerErrors       *prometheus.CounterVec
	interactionsTotal  *prometheus.CounterVec
	ledgerQueryLatency prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec

	// Upstream clients
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
	breakerRequests    *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
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
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collector definitions
	auto := promauto.With(m.registry)

	m.passesTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "passes_total",
		Help: "Scoring passes run, by pass (theme, relevance) and outcome",
	}, []string{"pass", "outcome"})

	m.passDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "pass_duration_milliseconds",
		Help:    "Wall time of a scoring pass in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"pass"})

	m.poisScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "pois_scored_total",
		Help: "POIs that went through the relevance model",
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "scoring_latency_milliseconds",
		Help:    "Latency of a single relevance model call in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.modelFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "model_failures_total",
		Help: "Model invocations that failed and fell back to a default, by capability",
	}, []string{"capability"})

	m.universeSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "universe_size",
		Help: "Number of POIs in the current catalog snapshot",
	})

	m.relevantPOIs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "relevant_pois",
		Help: "Number of POIs above the relevance threshold after the last filter",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_count",
		Help: "Workers used by the relevance pass",
	})

	m.catalogRefresh = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "catalog_refresh_total",
		Help: "Catalog refreshes by outcome",
	}, []string{"outcome"})

	m.sensingFallback = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sensing_fallback_total",
		Help: "Context signals that degraded to their default, by signal",
	}, []string{"signal"})

	m.ledgerWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ledger_writes_total",
		Help: "Successful ledger writes by operation",
	}, []string{"op"})

	m.ledgerErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ledger_errors_total",
		Help: "Ledger operations that failed and were dropped, by operation",
	}, []string{"op"})

	m.interactionsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "interactions_total",
		Help: "Recorded POI interactions by kind (click, favorite)",
	}, []string{"kind"})

	m.ledgerQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "ledger_query_latency_milliseconds",
		Help:    "Latency of threshold queries against the ledger in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size",
		Help: "Jobs waiting in the relevance pass queue",
	})

	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueue_errors_total",
		Help: "Jobs rejected by the relevance pass queue, by reason",
	}, []string{"reason"})

	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "breaker_state",
		Help: "Circuit breaker state by upstream (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	m.breakerTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "breaker_transitions_total",
		Help: "Circuit breaker state transitions by upstream",
	}, []string{"name", "from", "to"})

	m.breakerRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "breaker_requests_total",
		Help: "Upstream requests through a circuit breaker by result (success, failure, rejected)",
	}, []string{"name", "result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_errors_total",
		Help: "HTTP error responses by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// RecordPass counts a finished pass and observes its duration.
func RecordPass(pass, outcome string, took time.Duration) {
	globalManager.passesTotal.WithLabelValues(pass, outcome).Inc()
	globalManager.passDuration.WithLabelValues(pass).Observe(ms(took))
}

// RecordPOIScored counts one relevance model call and its latency.
func RecordPOIScored(took time.Duration) {
	globalManager.poisScored.Inc()
	globalManager.scoringLatency.Observe(ms(took))
}

// RecordModelFailure counts a model call that fell back to its default.
func RecordModelFailure(capability string) {
	globalManager.modelFailures.WithLabelValues(capability).Inc()
}

// UpdateUniverseSize sets the catalog snapshot size.
func UpdateUniverseSize(n int) {
	globalManager.universeSize.Set(float64(n))
}

// UpdateRelevantPOIs sets the size of the last filtered subset.
func UpdateRelevantPOIs(n int) {
	globalManager.relevantPOIs.Set(float64(n))
}

// UpdateWorkerCount sets the relevance pass worker count.
func UpdateWorkerCount(n int) {
	globalManager.workerCount.Set(float64(n))
}

// RecordCatalogRefresh counts a catalog refresh by outcome.
func RecordCatalogRefresh(outcome string) {
	globalManager.catalogRefresh.WithLabelValues(outcome).Inc()
}

// RecordSensingFallback counts a context signal that used its default.
func RecordSensingFallback(signal string) {
	globalManager.sensingFallback.WithLabelValues(signal).Inc()
}

// RecordLedgerWrite counts a successful ledger write.
func RecordLedgerWrite(op string) {
	globalManager.ledgerWrites.WithLabelValues(op).Inc()
}

// RecordLedgerError counts a failed ledger operation.
func RecordLedgerError(op string) {
	globalManager.ledgerErrors.WithLabelValues(op).Inc()
}

// RecordInteraction counts a recorded interaction.
func RecordInteraction(kind string) {
	globalManager.interactionsTotal.WithLabelValues(kind).Inc()
}

// RecordLedgerQueryLatency observes a threshold query.
func RecordLedgerQueryLatency(took time.Duration) {
	globalManager.ledgerQueryLatency.Observe(ms(took))
}

// UpdateQueueSize sets the number of queued jobs.
func UpdateQueueSize(n int) {
	globalManager.queueSize.Set(float64(n))
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateBreakerState sets the state gauge of a circuit breaker.
func UpdateBreakerState(name string, state float64) {
	globalManager.breakerState.WithLabelValues(name).Set(state)
}

// RecordBreakerTransition counts a circuit breaker state change.
func RecordBreakerTransition(name, from, to string) {
	globalManager.breakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordBreakerRequest counts an upstream request by result.
func RecordBreakerRequest(name, result string) {
	globalManager.breakerRequests.WithLabelValues(name, result).Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError counts an HTTP error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the registry the service metrics live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
