// Package metrics provides Prometheus metrics for the verdict judging service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the judging service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Assignment ledger
	assignmentsCreated *prometheus.CounterVec
	ensureCalls        prometheus.Counter
	ledgerLatency      *prometheus.HistogramVec

	// Review consistency
	reviewsSubmitted    prometheus.Counter
	reviewConflicts     prometheus.Counter
	reviewRejected      *prometheus.CounterVec
	reviewLatency       prometheus.Histogram
	mirrorWriteFailures prometheus.Counter
	mirrorRepairs       prometheus.Counter

	// Scoring
	scoringRuns    *prometheus.CounterVec
	scoringLatency prometheus.Histogram
	scoringErrors  prometheus.Counter

	// Reminders
	remindersSent       prometheus.Counter
	remindersSuppressed prometheus.Counter
	dedupeEntries       prometheus.Gauge

	// Notification pipeline
	notificationsPublished *prometheus.CounterVec
	notificationsDropped   prometheus.Counter
	notificationErrors     prometheus.Counter

	// Queue Metrics - Message queue performance
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics - Processing performance
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec
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
		namespace:        "verdict",
		subsystem:        "judging",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.assignmentsCreated = auto.NewCounterVec(
		m.counterOpts("assignments_created_total", "Submission assignments inserted into the ledger by path"),
		[]string{"path"},
	)
	m.ensureCalls = auto.NewCounter(m.counterOpts("ensure_calls_total", "Lazy per-judge assignment materializations"))
	m.ledgerLatency = auto.NewHistogramVec(
		m.histogramOpts("ledger_latency_milliseconds", "Ledger operation latency in milliseconds"),
		[]string{"operation"},
	)

	m.reviewsSubmitted = auto.NewCounter(m.counterOpts("reviews_submitted_total", "Reviews accepted by the ledger"))
	m.reviewConflicts = auto.NewCounter(m.counterOpts("review_conflicts_total", "Reviews rejected because the assignment was missing or already reviewed"))
	m.reviewRejected = auto.NewCounterVec(
		m.counterOpts("reviews_rejected_total", "Reviews rejected before reaching the ledger by reason"),
		[]string{"reason"},
	)
	m.reviewLatency = auto.NewHistogram(m.histogramOpts("review_latency_milliseconds", "End to end review submission latency in milliseconds"))
	m.mirrorWriteFailures = auto.NewCounter(m.counterOpts("mirror_write_failures_total", "Score mirror appends that failed after the ledger commit"))
	m.mirrorRepairs = auto.NewCounter(m.counterOpts("mirror_repairs_total", "Score entries appended by mirror reconciliation"))

	m.scoringRuns = auto.NewCounterVec(
		m.counterOpts("scoring_runs_total", "Result and leaderboard computations by kind"),
		[]string{"kind"},
	)
	m.scoringLatency = auto.NewHistogram(m.histogramOpts("scoring_latency_milliseconds", "Score aggregation latency in milliseconds"))
	m.scoringErrors = auto.NewCounter(m.counterOpts("scoring_errors_total", "Score aggregations that failed"))

	m.remindersSent = auto.NewCounter(m.counterOpts("reminders_sent_total", "Pending review reminders published"))
	m.remindersSuppressed = auto.NewCounter(m.counterOpts("reminders_suppressed_total", "Pending review reminders suppressed by the deduper"))
	m.dedupeEntries = auto.NewGauge(m.gaugeOpts("dedupe_entries", "Live entries in the reminder deduper"))

	m.notificationsPublished = auto.NewCounterVec(
		m.counterOpts("notifications_published_total", "Notifications delivered to the sink by topic"),
		[]string{"topic"},
	)
	m.notificationsDropped = auto.NewCounter(m.counterOpts("notifications_dropped_total", "Notifications dropped because the queue was full or closed"))
	m.notificationErrors = auto.NewCounter(m.counterOpts("notification_errors_total", "Notification sink delivery failures"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the notification queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of messages enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of messages dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Total number of enqueue errors"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts("queue_processing_latency_milliseconds", "Queue processing latency in milliseconds"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured number of notification workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Number of running notification workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds"))
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Total number of worker errors"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
}

// Assignment ledger.

// RecordAssignmentsCreated adds n inserted assignments for the given path (fanout, ensure).
func RecordAssignmentsCreated(path string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.assignmentsCreated.WithLabelValues(path).Add(float64(n))
}

// RecordEnsureCall increments the lazy materialization counter.
func RecordEnsureCall() {
	globalManager.ensureCalls.Inc()
}

// RecordLedgerLatency records a ledger operation latency.
func RecordLedgerLatency(operation string, latencyMs float64) {
	globalManager.ledgerLatency.WithLabelValues(operation).Observe(latencyMs)
}

// Review consistency.

// RecordReviewSubmitted increments the accepted review counter.
func RecordReviewSubmitted() {
	globalManager.reviewsSubmitted.Inc()
}

// RecordReviewConflict increments the not-assigned-or-already-reviewed counter.
func RecordReviewConflict() {
	globalManager.reviewConflicts.Inc()
}

// RecordReviewRejected increments the pre-ledger rejection counter for reason.
func RecordReviewRejected(reason string) {
	globalManager.reviewRejected.WithLabelValues(reason).Inc()
}

// RecordReviewLatency records review submission latency in milliseconds.
func RecordReviewLatency(latencyMs float64) {
	globalManager.reviewLatency.Observe(latencyMs)
}

// RecordMirrorWriteFailure increments the mirror failure counter.
func RecordMirrorWriteFailure() {
	globalManager.mirrorWriteFailures.Inc()
}

// RecordMirrorRepairs adds n repaired mirror entries.
func RecordMirrorRepairs(n int) {
	if n <= 0 {
		return
	}
	globalManager.mirrorRepairs.Add(float64(n))
}

// Scoring.

// RecordScoringRun increments the computation counter for kind (results, leaderboard).
func RecordScoringRun(kind string) {
	globalManager.scoringRuns.WithLabelValues(kind).Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	globalManager.scoringErrors.Inc()
}

// Reminders.

// RecordReminderSent increments the sent reminders counter.
func RecordReminderSent() {
	globalManager.remindersSent.Inc()
}

// RecordReminderSuppressed increments the suppressed reminders counter.
func RecordReminderSuppressed() {
	globalManager.remindersSuppressed.Inc()
}

// UpdateDedupeEntries sets the live deduper entry count.
func UpdateDedupeEntries(count int) {
	globalManager.dedupeEntries.Set(float64(count))
}

// Notifications.

// RecordNotificationPublished increments the delivered counter for topic.
func RecordNotificationPublished(topic string) {
	globalManager.notificationsPublished.WithLabelValues(topic).Inc()
}

// RecordNotificationDropped increments the dropped notification counter.
func RecordNotificationDropped() {
	globalManager.notificationsDropped.Inc()
}

// RecordNotificationError increments the sink failure counter.
func RecordNotificationError() {
	globalManager.notificationErrors.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// SinceMs returns the milliseconds elapsed since start.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
