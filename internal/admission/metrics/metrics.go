package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the admission module. Tracks lifecycle
// transition outcomes, notification dispatch outcomes, and the duration of
// the transition critical path.
type Metrics struct {
	Submissions   prometheus.Counter
	Transitions   *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	ApplyDuration prometheus.Histogram
}

// New creates a Metrics instance with all admission module metrics registered.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "enrolldesk_applications_submitted_total",
			Help: "Total number of admission applications submitted",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolldesk_transitions_total",
			Help: "Lifecycle transitions by transition name and outcome",
		}, []string{"transition", "outcome"}),
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolldesk_notifications_total",
			Help: "Notification dispatch attempts by kind and status",
		}, []string{"kind", "status"}),
		ApplyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrolldesk_apply_duration_seconds",
			Help:    "Duration of lifecycle transition operations (conditional write plus dispatch)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementSubmissions records a successful submission.
func (m *Metrics) IncrementSubmissions() {
	m.Submissions.Inc()
}

// ObserveTransition records a transition attempt outcome.
func (m *Metrics) ObserveTransition(transition, outcome string) {
	m.Transitions.WithLabelValues(transition, outcome).Inc()
}

// ObserveNotification records a dispatch outcome.
func (m *Metrics) ObserveNotification(kind, status string) {
	m.Notifications.WithLabelValues(kind, status).Inc()
}

// ObserveApply records the duration of an Apply call. Call with time.Now()
// captured at the start of the operation.
func (m *Metrics) ObserveApply(start time.Time) {
	m.ApplyDuration.Observe(time.Since(start).Seconds())
}
