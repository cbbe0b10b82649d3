package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Lifecycle metrics
	Transitions         *prometheus.CounterVec
	TransitionsRejected *prometheus.CounterVec

	// Notification metrics
	NotificationsCreated *prometheus.CounterVec
	DispatchFailures     *prometheus.CounterVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec
	OutboxEventsPurged      prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every metric under namespace on reg. Pass
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_transitions_total",
			Help:      "Total number of committed appointment status transitions",
		}, []string{"from", "to"}),
		TransitionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_transitions_rejected_total",
			Help:      "Total number of rejected appointment operations by error code",
		}, []string{"operation", "code"}),

		NotificationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Total number of notifications persisted",
		}, []string{"event"}),
		DispatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_dispatch_failures_total",
			Help:      "Total number of dispatches that failed after the transition committed",
		}, []string{"event"}),

		// Outbox metrics
		OutboxEventsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
		OutboxEventsPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_purged_total",
			Help:      "Total number of processed outbox events deleted after retention",
		}),

		// Database metrics
		DatabaseOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) TransitionCommitted(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) TransitionRejected(operation, code string) {
	if m == nil {
		return
	}
	m.TransitionsRejected.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) NotificationsPersisted(event string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.NotificationsCreated.WithLabelValues(event).Add(float64(n))
}

func (m *Metrics) DispatchFailed(event string) {
	if m == nil {
		return
	}
	m.DispatchFailures.WithLabelValues(event).Inc()
}

func (m *Metrics) DatabaseOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DatabaseOperations.WithLabelValues(operation, status).Inc()
}
