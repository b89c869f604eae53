// Package metrics provides Prometheus metrics for the VisualVerse service.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/model"
)

// Manager manages all Prometheus metrics for the VisualVerse service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Rendering
	rendersTotal    *prometheus.CounterVec
	renderLatency   *prometheus.HistogramVec
	framesGenerated *prometheus.CounterVec

	// Jobs
	jobsSubmitted  prometheus.Counter
	jobsDuplicate  prometheus.Counter
	jobsRejected   prometheus.Counter
	jobsByStatus   *prometheus.GaugeVec
	jobsCompleted  *prometheus.CounterVec
	jobsStoredSize prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Content store
	contentOps     *prometheus.CounterVec
	contentLatency *prometheus.HistogramVec
	contentItems   *prometheus.GaugeVec

	// Streaming
	streamSessions   prometheus.Gauge
	streamFramesSent prometheus.Counter

	// Admin console
	adminLogins    *prometheus.CounterVec
	activeSessions prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init errors.
var (
	ErrInvalidName    = errors.New("metrics: invalid metric or label name")
	ErrInvalidBuckets = errors.New("metrics: histogram buckets must increase")
)

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it before handlers capture GetRegistry.
func Init(opts ...Option) error {
	registry := prometheus.NewRegistry()
	staged := &Manager{}
	for _, opt := range opts {
		opt(staged)
	}
	if staged.metricPrefix != "" && !model.IsValidLegacyMetricName(staged.metricPrefix+"x") {
		return fmt.Errorf("%w: prefix %q", ErrInvalidName, staged.metricPrefix)
	}
	for name := range staged.customLabels {
		if !model.LabelName(name).IsValidLegacy() {
			return fmt.Errorf("%w: label %q", ErrInvalidName, name)
		}
	}
	for i := 1; i < len(staged.histogramBuckets); i++ {
		if staged.histogramBuckets[i] <= staged.histogramBuckets[i-1] {
			return fmt.Errorf("%w: %v", ErrInvalidBuckets, staged.histogramBuckets)
		}
	}
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
	return nil
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "visualverse",
		subsystem:        "platform",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.rendersTotal = m.counterVec("renders_total", "Total number of frame sequences rendered", "domain", "kind", "outcome")
	m.renderLatency = m.histogramVec("render_latency_milliseconds", "Frame sequence generation latency in milliseconds", "domain")
	m.framesGenerated = m.counterVec("frames_generated_total", "Total number of animation frames generated", "domain")

	m.jobsSubmitted = m.counter("jobs_submitted_total", "Total number of render jobs accepted")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Total number of job submissions answered from an idempotency key")
	m.jobsRejected = m.counter("jobs_rejected_total", "Total number of render jobs rejected by backpressure")
	m.jobsByStatus = m.gaugeVec("jobs", "Number of stored render jobs by status", "status")
	m.jobsCompleted = m.counterVec("jobs_completed_total", "Total number of render jobs reaching a terminal status", "status")
	m.jobsStoredSize = m.gauge("jobs_stored", "Number of job records currently retained")

	m.queueSize = m.gauge("queue_size", "Current size of the render job queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum render job queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue failures")

	m.workerCount = m.gauge("worker_count", "Configured number of render workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently rendering")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Render job processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Total number of failed render jobs")

	m.contentOps = m.counterVec("content_operations_total", "Content store operations by operation and outcome", "operation", "outcome")
	m.contentLatency = m.histogramVec("content_latency_milliseconds", "Content store operation latency in milliseconds", "operation")
	m.contentItems = m.gaugeVec("content_items", "Number of content items by type", "type")

	m.streamSessions = m.gauge("stream_sessions", "Number of open frame streaming sessions")
	m.streamFramesSent = m.counter("stream_frames_sent_total", "Total number of frames pushed over websockets")

	m.adminLogins = m.counterVec("admin_logins_total", "Admin console login attempts by outcome", "outcome")
	m.activeSessions = m.gauge("admin_active_sessions", "Number of live admin sessions")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// Rendering.

// RecordRender counts a finished render and its frames.
func RecordRender(domain, kind, outcome string, frames int, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.rendersTotal.WithLabelValues(domain, kind, outcome).Inc()
	globalManager.renderLatency.WithLabelValues(domain).Observe(latencyMs)
	if frames > 0 {
		globalManager.framesGenerated.WithLabelValues(domain).Add(float64(frames))
	}
}

// Jobs.

// RecordJobSubmitted increments the accepted jobs counter.
func RecordJobSubmitted() { globalManager.jobsSubmitted.Inc() }

// RecordJobDuplicate increments the idempotent replay counter.
func RecordJobDuplicate() { globalManager.jobsDuplicate.Inc() }

// RecordJobRejected increments the backpressure counter.
func RecordJobRejected() { globalManager.jobsRejected.Inc() }

// RecordJobCompleted counts a job reaching status.
func RecordJobCompleted(status string) { globalManager.jobsCompleted.WithLabelValues(status).Inc() }

// UpdateJobsByStatus sets the per-status gauges.
func UpdateJobsByStatus(counts map[string]int) {
	total := 0
	for status, n := range counts {
		globalManager.jobsByStatus.WithLabelValues(status).Set(float64(n))
		total += n
	}
	globalManager.jobsStoredSize.Set(float64(total))
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueTotal.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueTotal.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// Workers.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records render job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// Content store.

// RecordContentOperation records a store call.
func RecordContentOperation(operation, outcome string, latencyMs float64) {
	globalManager.contentOps.WithLabelValues(operation, outcome).Inc()
	globalManager.contentLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateContentItems sets the number of stored items of a type (subjects, courses, concepts, prerequisites).
func UpdateContentItems(itemType string, count int) {
	globalManager.contentItems.WithLabelValues(itemType).Set(float64(count))
}

// Streaming.

// UpdateStreamSessions adjusts the open stream gauge by delta.
func UpdateStreamSessions(delta int) { globalManager.streamSessions.Add(float64(delta)) }

// RecordStreamFrameSent increments the pushed frames counter.
func RecordStreamFrameSent() { globalManager.streamFramesSent.Inc() }

// Admin console.

// RecordAdminLogin counts a login attempt with outcome "success" or "failure".
func RecordAdminLogin(outcome string) { globalManager.adminLogins.WithLabelValues(outcome).Inc() }

// UpdateActiveSessions sets the live admin session gauge.
func UpdateActiveSessions(count int) { globalManager.activeSessions.Set(float64(count)) }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
