// internal/metrics/metrics.go
//
// Prometheus instruments for survey activity. A nil *Metrics is valid and
// records nothing, so front ends without an exposition endpoint can skip it.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "survey"

// Metrics groups the counters and histograms recorded by the survey core.
type Metrics struct {
	edits       *prometheus.CounterVec
	submissions *prometheus.CounterVec
	persist     *prometheus.HistogramVec
	sessions    prometheus.Gauge
}

// New creates the instruments and registers them on reg. A nil reg leaves
// them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Roadmap edits by result (added, duplicate, noop).",
		}, []string{"result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submission attempts by sink and terminal state.",
		}, []string{"sink", "state"}),
		persist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Time spent writing a response to its sink.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Survey sessions currently held in memory.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.edits, m.submissions, m.persist, m.sessions)
	}
	return m
}

// ObserveEdit counts a roadmap edit.
func (m *Metrics) ObserveEdit(result string) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(result).Inc()
}

// ObserveSubmission counts a finished submission attempt.
func (m *Metrics) ObserveSubmission(sink, state string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(sink, state).Inc()
}

// ObservePersist records how long a sink write took.
func (m *Metrics) ObservePersist(sink string, d time.Duration) {
	if m == nil {
		return
	}
	m.persist.WithLabelValues(sink).Observe(d.Seconds())
}

// SetSessions reports the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}
