// Package metrics provides Prometheus metrics for the F1 predictor service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion metrics.
	ingestRecordsProcessed *prometheus.CounterVec
	ingestRecordsDuplicate prometheus.Counter
	ingestLoadErrors       prometheus.Counter

	// Rating metrics.
	ratingUpdates         prometheus.Counter
	ratingRacesApplied    prometheus.Counter
	rankedDrivers         prometheus.Gauge
	rankingsUpdateLatency prometheus.Histogram
	rankingsQueryLatency  prometheus.Histogram
	rankingsSnapshotCount prometheus.Counter
	rankingsSnapshotTime  prometheus.Histogram

	// Prediction and simulation metrics.
	predictionRequests prometheus.Counter
	predictionLatency  prometheus.Histogram
	simulationRequests prometheus.Counter
	simulationRuns     prometheus.Counter
	simulationLatency  prometheus.Histogram

	// Queue metrics.
	queueCapacity          prometheus.Gauge
	queueSize              prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics.
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Store metrics.
	storeRows *prometheus.GaugeVec

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics.
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System metrics.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "f1",
		subsystem:        "predictor",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	histOpts := func(name, help string) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
			Buckets:   m.histogramBuckets,
		}
	}

	m.ingestRecordsProcessed = prometheus.NewCounterVec(factory("ingest_records_total", "Ingestion records processed, by kind"), []string{"kind"})
	m.ingestRecordsDuplicate = prometheus.NewCounter(factory("ingest_duplicates_total", "Ingestion records dropped as duplicates"))
	m.ingestLoadErrors = prometheus.NewCounter(factory("ingest_load_errors_total", "Ingestion records that failed to load"))

	m.ratingUpdates = prometheus.NewCounter(factory("rating_updates_total", "Driver rating changes applied"))
	m.ratingRacesApplied = prometheus.NewCounter(factory("rating_races_applied_total", "Races folded into the rating model"))
	m.rankedDrivers = prometheus.NewGauge(gaugeOpts("ranked_drivers", "Drivers present in the power rankings"))
	m.rankingsUpdateLatency = prometheus.NewHistogram(histOpts("rankings_update_latency_ms", "Rankings update latency in milliseconds"))
	m.rankingsQueryLatency = prometheus.NewHistogram(histOpts("rankings_query_latency_ms", "Rankings query latency in milliseconds"))
	m.rankingsSnapshotCount = prometheus.NewCounter(factory("rankings_snapshots_total", "Ranking snapshots published"))
	m.rankingsSnapshotTime = prometheus.NewHistogram(histOpts("rankings_snapshot_duration_ms", "Ranking snapshot rebuild duration in milliseconds"))

	m.predictionRequests = prometheus.NewCounter(factory("prediction_requests_total", "Prediction requests served"))
	m.predictionLatency = prometheus.NewHistogram(histOpts("prediction_latency_ms", "Prediction latency in milliseconds"))
	m.simulationRequests = prometheus.NewCounter(factory("simulation_requests_total", "Simulation requests served"))
	m.simulationRuns = prometheus.NewCounter(factory("simulation_runs_total", "Monte Carlo runs executed"))
	m.simulationLatency = prometheus.NewHistogram(histOpts("simulation_latency_ms", "Simulation latency in milliseconds"))

	m.queueCapacity = prometheus.NewGauge(gaugeOpts("queue_capacity", "Ingestion queue capacity"))
	m.queueSize = prometheus.NewGauge(gaugeOpts("queue_size", "Ingestion queue length"))
	m.queueUtilization = prometheus.NewGauge(gaugeOpts("queue_utilization", "Ingestion queue fill ratio"))
	m.queueEnqueueRate = prometheus.NewCounter(factory("queue_enqueues_total", "Records enqueued"))
	m.queueDequeueRate = prometheus.NewCounter(factory("queue_dequeues_total", "Records dequeued"))
	m.queueEnqueueErrors = prometheus.NewCounter(factory("queue_enqueue_errors_total", "Enqueue failures"))
	m.queueProcessingLatency = prometheus.NewHistogram(histOpts("queue_latency_ms", "Enqueue latency in milliseconds"))

	m.workerCount = prometheus.NewGauge(gaugeOpts("worker_count", "Ingestion workers running"))
	m.workerProcessingLatency = prometheus.NewHistogram(histOpts("worker_latency_ms", "Per-record worker latency in milliseconds"))
	m.workerErrors = prometheus.NewCounter(factory("worker_errors_total", "Worker processing errors"))

	m.storeRows = prometheus.NewGaugeVec(gaugeOpts("store_rows", "Race store row counts by table"), []string{"table"})

	m.httpRequests = prometheus.NewCounterVec(factory("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(histOpts("http_request_duration_ms", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status"})

	m.errorsByComponent = prometheus.NewCounterVec(factory("errors_by_component_total", "Errors by component and reason"), []string{"component", "reason"})
	m.errorsByType = prometheus.NewCounterVec(factory("errors_by_type_total", "Errors by type and severity"), []string{"type", "severity"})
	m.errorsByEndpoint = prometheus.NewCounterVec(factory("errors_by_endpoint_total", "Errors by endpoint and method"), []string{"endpoint", "method", "type"})

	m.systemMemoryUsage = prometheus.NewGauge(gaugeOpts("system_memory_bytes", "Allocated heap bytes"))
	m.systemGoroutineCount = prometheus.NewGauge(gaugeOpts("system_goroutines", "Goroutine count"))
	m.systemGCPauseTime = prometheus.NewHistogram(histOpts("system_gc_pause_ms", "Average GC pause in milliseconds"))

	m.registry.MustRegister(
		m.ingestRecordsProcessed, m.ingestRecordsDuplicate, m.ingestLoadErrors,
		m.ratingUpdates, m.ratingRacesApplied, m.rankedDrivers,
		m.rankingsUpdateLatency, m.rankingsQueryLatency,
		m.rankingsSnapshotCount, m.rankingsSnapshotTime,
		m.predictionRequests, m.predictionLatency,
		m.simulationRequests, m.simulationRuns, m.simulationLatency,
		m.queueCapacity, m.queueSize, m.queueUtilization,
		m.queueEnqueueRate, m.queueDequeueRate, m.queueEnqueueErrors, m.queueProcessingLatency,
		m.workerCount, m.workerProcessingLatency, m.workerErrors,
		m.storeRows,
		m.httpRequests, m.httpRequestDuration,
		m.errorsByComponent, m.errorsByType, m.errorsByEndpoint,
		m.systemMemoryUsage, m.systemGoroutineCount, m.systemGCPauseTime,
	)
}

// GetRegistry returns the custom registry backing /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers against the global manager.

func RecordIngestRecordProcessed(kind string) {
	globalManager.ingestRecordsProcessed.WithLabelValues(kind).Inc()
}

func RecordIngestRecordDuplicate() { globalManager.ingestRecordsDuplicate.Inc() }
func RecordIngestLoadError()       { globalManager.ingestLoadErrors.Inc() }

func RecordRatingUpdate()      { globalManager.ratingUpdates.Inc() }
func RecordRatingRaceApplied() { globalManager.ratingRacesApplied.Inc() }

func UpdateRankedDrivers(n int) { globalManager.rankedDrivers.Set(float64(n)) }

func RecordRankingsUpdateLatency(ms float64)   { globalManager.rankingsUpdateLatency.Observe(ms) }
func RecordRankingsQueryLatency(ms float64)    { globalManager.rankingsQueryLatency.Observe(ms) }
func IncrementRankingsSnapshotCount()          { globalManager.rankingsSnapshotCount.Inc() }
func RecordRankingsSnapshotDuration(ms float64) { globalManager.rankingsSnapshotTime.Observe(ms) }

func RecordPredictionRequest()           { globalManager.predictionRequests.Inc() }
func RecordPredictionLatency(ms float64) { globalManager.predictionLatency.Observe(ms) }

func RecordSimulationRequest()           { globalManager.simulationRequests.Inc() }
func RecordSimulationRuns(n int)         { globalManager.simulationRuns.Add(float64(n)) }
func RecordSimulationLatency(ms float64) { globalManager.simulationLatency.Observe(ms) }

func UpdateQueueCapacity(n int)            { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueSize(n int)                { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

func RecordQueueEnqueue()                    { globalManager.queueEnqueueRate.Inc() }
func RecordQueueDequeue()                    { globalManager.queueDequeueRate.Inc() }
func RecordQueueEnqueueError()               { globalManager.queueEnqueueErrors.Inc() }
func RecordQueueProcessingLatency(ms float64) { globalManager.queueProcessingLatency.Observe(ms) }

func UpdateWorkerCount(n int)                  { globalManager.workerCount.Set(float64(n)) }
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }
func RecordWorkerError()                       { globalManager.workerErrors.Inc() }

func UpdateStoreRows(table string, n int) {
	globalManager.storeRows.WithLabelValues(table).Set(float64(n))
}

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

func RecordErrorByComponent(component, reason string) {
	globalManager.errorsByComponent.WithLabelValues(component, reason).Inc()
}

func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

func UpdateSystemMemoryUsage(bytes uint64)  { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(n int)      { globalManager.systemGoroutineCount.Set(float64(n)) }
func RecordSystemGCPauseTime(ms float64)    { globalManager.systemGCPauseTime.Observe(ms) }
