package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments session lifecycle transitions. A nil *Metrics is a no-op.
type Metrics struct {
	transitions    *prometheus.CounterVec
	finalized      *prometheus.CounterVec
	scores         prometheus.Histogram
	staleResponses prometheus.Counter
	genFailures    prometheus.Counter
	genDuration    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Accepted lifecycle transitions.",
		}, []string{"from", "to"}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Subsystem: "session",
			Name:      "finalized_total",
			Help:      "Finalized sessions by trigger.",
		}, []string{"reason"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quiz",
			Subsystem: "session",
			Name:      "score_ratio",
			Help:      "Score divided by question count at finalization.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		staleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quiz",
			Subsystem: "generator",
			Name:      "stale_responses_total",
			Help:      "Generator responses discarded because the request was abandoned or replaced.",
		}),
		genFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quiz",
			Subsystem: "generator",
			Name:      "failures_total",
			Help:      "Content requests that ended in the error state.",
		}),
		genDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quiz",
			Subsystem: "generator",
			Name:      "request_duration_seconds",
			Help:      "Time from content request to its outcome.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.finalized, m.scores, m.staleResponses, m.genFailures, m.genDuration)
	}
	return m
}

func (m *Metrics) transition(from, to State) {
	if m == nil || from == to {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) finalize(reason string, score, total int) {
	if m == nil {
		return
	}
	m.finalized.WithLabelValues(reason).Inc()
	if total > 0 {
		m.scores.Observe(float64(score) / float64(total))
	}
}

func (m *Metrics) staleResponse() {
	if m == nil {
		return
	}
	m.staleResponses.Inc()
}

func (m *Metrics) generated(seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.genDuration.Observe(seconds)
	if failed {
		m.genFailures.Inc()
	}
}
