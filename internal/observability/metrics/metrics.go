package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics exposes counters/histograms for the support chat flow.
type ChatMetrics struct {
	completionTotal   *prometheus.CounterVec
	completionLatency *prometheus.HistogramVec
	completionRetries prometheus.Counter
	gateDecisions     *prometheus.CounterVec
	messagesTotal     *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		completionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "photka",
			Subsystem: "support",
			Name:      "completion_total",
			Help:      "Completion calls by outcome code",
		}, []string{"outcome"}),
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "photka",
			Subsystem: "support",
			Name:      "completion_latency_seconds",
			Help:      "Latency of completion calls including retries",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider"}),
		completionRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "photka",
			Subsystem: "support",
			Name:      "completion_retries_total",
			Help:      "Completion attempts retried after a transient failure",
		}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "photka",
			Subsystem: "support",
			Name:      "gate_decisions_total",
			Help:      "Booking call-to-action gate evaluations",
		}, []string{"shown", "timing"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "photka",
			Subsystem: "support",
			Name:      "messages_total",
			Help:      "Support chat messages appended by role",
		}, []string{"role"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.completionTotal, m.completionLatency, m.completionRetries, m.gateDecisions, m.messagesTotal)
	return m
}

func (m *ChatMetrics) ObserveCompletion(provider, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.completionTotal.WithLabelValues(outcome).Inc()
	m.completionLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *ChatMetrics) IncCompletionRetry() {
	if m == nil {
		return
	}
	m.completionRetries.Inc()
}

func (m *ChatMetrics) ObserveGate(shown bool, timing string) {
	if m == nil {
		return
	}
	if timing == "" {
		timing = "none"
	}
	m.gateDecisions.WithLabelValues(strconv.FormatBool(shown), timing).Inc()
}

func (m *ChatMetrics) ObserveMessage(role string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(role).Inc()
}
