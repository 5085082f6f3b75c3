package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification oracle. All helpers
// are nil-receiver safe so components can run without metrics wired.
type Metrics struct {
	// Submissions accepted into the pipeline
	RequestsSubmitted prometheus.Counter

	// Guard rejections by guard name
	GuardRejections *prometheus.CounterVec

	// Terminal outcomes by status and method
	RequestsCompleted *prometheus.CounterVec

	// Full pipeline duration, submission to terminal state
	ProcessingDuration prometheus.Histogram

	// Authority call latency
	ProviderLatency prometheus.Histogram

	// Ledger bridge calls by operation and outcome
	LedgerCalls *prometheus.CounterVec

	// Requests waiting in the scheduler
	QueueDepth prometheus.Gauge

	// Lifecycle notifications dropped because a sink was saturated
	NotificationsDropped prometheus.Counter
}

// New creates a Metrics instance with all oracle metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verivote_requests_submitted_total",
			Help: "Total verification requests accepted past the submission guards",
		}),
		GuardRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verivote_guard_rejections_total",
			Help: "Submissions rejected by a guard before entering the pipeline",
		}, []string{"guard"}), // guard: "duplicate", "rate", "already_verified"
		RequestsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verivote_requests_completed_total",
			Help: "Requests that reached a terminal state by status and method",
		}, []string{"status", "method"}),
		ProcessingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verivote_processing_duration_seconds",
			Help:    "Duration of one pipeline run from pickup to terminal state",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ProviderLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verivote_provider_duration_seconds",
			Help:    "Latency of identity authority verify calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LedgerCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verivote_ledger_calls_total",
			Help: "Ledger bridge calls by operation and outcome",
		}, []string{"operation", "outcome"}), // operation: "submit", "complete"; outcome: "ok", "error"
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "verivote_queue_depth",
			Help: "Verification requests waiting for a worker",
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verivote_notifications_dropped_total",
			Help: "Lifecycle notifications dropped because a sink was saturated",
		}),
	}
}

// IncrementSubmitted records an accepted submission.
func (m *Metrics) IncrementSubmitted() {
	if m != nil {
		m.RequestsSubmitted.Inc()
	}
}

// IncrementGuardRejection records a guard rejection.
func (m *Metrics) IncrementGuardRejection(guard string) {
	if m != nil {
		m.GuardRejections.WithLabelValues(guard).Inc()
	}
}

// IncrementCompleted records a terminal outcome.
func (m *Metrics) IncrementCompleted(status, method string) {
	if m != nil {
		m.RequestsCompleted.WithLabelValues(status, method).Inc()
	}
}

// ObserveProcessing records a full pipeline run duration.
func (m *Metrics) ObserveProcessing(d time.Duration) {
	if m != nil {
		m.ProcessingDuration.Observe(d.Seconds())
	}
}

// ObserveProvider records an authority call duration.
func (m *Metrics) ObserveProvider(d time.Duration) {
	if m != nil {
		m.ProviderLatency.Observe(d.Seconds())
	}
}

// IncrementLedgerCall records a bridge call outcome.
func (m *Metrics) IncrementLedgerCall(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.LedgerCalls.WithLabelValues(operation, outcome).Inc()
}

// SetQueueDepth records the current scheduler backlog.
func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

// IncrementNotificationsDropped records a dropped lifecycle notification.
func (m *Metrics) IncrementNotificationsDropped() {
	if m != nil {
		m.NotificationsDropped.Inc()
	}
}
