// Package metrics provides Prometheus metrics for the hotspot alert service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Hotspot discovery
	queriesTotal      prometheus.Counter
	queryLatency      prometheus.Histogram
	catalogHits       prometheus.Counter
	generatedSpots    prometheus.Counter
	dedupeDropped     prometheus.Counter
	generationClamped prometheus.Counter

	// Catalog state
	catalogPoints   prometheus.Gauge
	catalogHotspots prometheus.Gauge
	catalogReloads  *prometheus.CounterVec

	// Alert fan-out
	dispatchesTotal  *prometheus.CounterVec
	outcomesTotal    *prometheus.CounterVec
	alertsSent       prometheus.Counter
	alertsFailed     *prometheus.CounterVec
	deliveryLatency  prometheus.Histogram
	registeredTotal  prometheus.Counter
	observersTracked prometheus.Gauge

	// Delivery queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueRejected    *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerBusy       prometheus.Gauge

	// Stream clients
	streamClients prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager on a fresh registry with the given
// options. Call it once at startup, before recording or serving metrics.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	opts = append(append([]Option{}, opts...), WithPrometheusRegistry(registry))
	globalManager = NewManager(opts...)
	customRegistry = registry
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// collectors register on prometheus.DefaultRegisterer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hotspot",
		subsystem:        "alerts",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.queriesTotal = m.counter("queries_total", "Total number of hotspot queries served")
	m.queryLatency = m.histogram("query_latency_milliseconds", "Hotspot query latency in milliseconds")
	m.catalogHits = m.counter("catalog_hits_total", "Catalog hotspots returned before merging")
	m.generatedSpots = m.counter("generated_spots_total", "Synthetic hotspots produced before merging")
	m.dedupeDropped = m.counter("dedupe_dropped_total", "Candidates discarded as near-duplicates")
	m.generationClamped = m.counter("generation_clamped_total", "Generator runs whose offset range collapsed to one distance")

	m.catalogPoints = m.gauge("catalog_points", "Points in the active catalog snapshot")
	m.catalogHotspots = m.gauge("catalog_hotspots", "Points flagged as hotspots in the active catalog snapshot")
	m.catalogReloads = m.counterVec("catalog_reloads_total", "Catalog reload attempts by result", "result")

	m.dispatchesTotal = m.counterVec("dispatches_total", "Alert dispatch requests by result", "result")
	m.outcomesTotal = m.counterVec("outcomes_total", "Observer classifications by reason", "reason")
	m.alertsSent = m.counter("sent_total", "Alerts delivered successfully")
	m.alertsFailed = m.counterVec("failed_total", "Alerts that could not be delivered by cause", "cause")
	m.deliveryLatency = m.histogram("delivery_latency_milliseconds", "Notification sender latency in milliseconds")
	m.registeredTotal = m.counter("observers_registered_total", "Observer registrations accepted")
	m.observersTracked = m.gauge("observers", "Observers currently stored")

	m.queueSize = m.gauge("queue_size", "Deliveries waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum delivery queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Deliveries accepted by the queue")
	m.queueRejected = m.counterVec("queue_rejected_total", "Deliveries rejected by the queue by cause", "cause")
	m.workerCount = m.gauge("worker_count", "Delivery workers running")
	m.workerBusy = m.gauge("worker_busy", "Delivery workers currently sending")

	m.streamClients = m.gauge("stream_clients", "Connected websocket stream clients")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "http_request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// Hotspot discovery.

func RecordQuery(latencyMs float64) {
	globalManager.queriesTotal.Inc()
	globalManager.queryLatency.Observe(latencyMs)
}

func RecordCatalogHits(n int)      { globalManager.catalogHits.Add(float64(n)) }
func RecordGeneratedSpots(n int)   { globalManager.generatedSpots.Add(float64(n)) }
func RecordDedupeDropped(n int)    { globalManager.dedupeDropped.Add(float64(n)) }
func RecordGenerationClamped()     { globalManager.generationClamped.Inc() }
func UpdateCatalogPoints(n int)    { globalManager.catalogPoints.Set(float64(n)) }
func UpdateCatalogHotspots(n int)  { globalManager.catalogHotspots.Set(float64(n)) }
func RecordCatalogReload(ok bool)  { globalManager.catalogReloads.WithLabelValues(result(ok)).Inc() }
func RecordDispatch(result string) { globalManager.dispatchesTotal.WithLabelValues(result).Inc() }

// Alert fan-out.

func RecordOutcome(reason string)          { globalManager.outcomesTotal.WithLabelValues(reason).Inc() }
func RecordAlertSent()                     { globalManager.alertsSent.Inc() }
func RecordAlertFailed(cause string)       { globalManager.alertsFailed.WithLabelValues(cause).Inc() }
func RecordDeliveryLatency(ms float64)     { globalManager.deliveryLatency.Observe(ms) }
func RecordObserverRegistered()            { globalManager.registeredTotal.Inc() }
func UpdateObserverCount(n int)            { globalManager.observersTracked.Set(float64(n)) }
func UpdateStreamClients(n int)            { globalManager.streamClients.Set(float64(n)) }
func UpdateWorkerCount(n int)              { globalManager.workerCount.Set(float64(n)) }
func AddWorkerBusy(delta int)              { globalManager.workerBusy.Add(float64(delta)) }
func UpdateQueueCapacity(capacity int)     { globalManager.queueCapacity.Set(float64(capacity)) }
func RecordQueueEnqueue()                  { globalManager.queueEnqueued.Inc() }
func RecordQueueRejected(cause string)     { globalManager.queueRejected.WithLabelValues(cause).Inc() }
func RecordErrorByComponent(c, t string)   { globalManager.errorsByComponent.WithLabelValues(c, t).Inc() }
func RecordErrorByType(t, severity string) { globalManager.errorsByType.WithLabelValues(t, severity).Inc() }

// UpdateQueueSize sets the queue depth and derived utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// HTTP.

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval is how often background updaters should refresh gauges.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
