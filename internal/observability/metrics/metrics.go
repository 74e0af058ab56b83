package metrics

import "github.com/prometheus/client_golang/prometheus"

// Turn outcomes recorded on haven_chat_turns_total.
const (
	OutcomeGenerated = "generated"
	OutcomeFallback  = "fallback"
	OutcomeCrisis    = "crisis"
)

// ChatMetrics exposes counters/histograms for the conversation pipeline.
type ChatMetrics struct {
	turnsTotal         *prometheus.CounterVec
	generationFailures *prometheus.CounterVec
	storageErrors      *prometheus.CounterVec
	turnDuration       prometheus.Histogram
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "haven",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Completed conversation turns",
		}, []string{"emotion", "outcome"}),
		generationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "haven",
			Subsystem: "chat",
			Name:      "generation_failures_total",
			Help:      "Generation attempts that fell back to templates",
		}, []string{"kind"}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "haven",
			Subsystem: "chat",
			Name:      "storage_errors_total",
			Help:      "Message store failures seen by the pipeline",
		}, []string{"op"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "haven",
			Subsystem: "chat",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end latency of a conversation turn",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.generationFailures, m.storageErrors, m.turnDuration)
	return m
}

func (m *ChatMetrics) ObserveTurn(emotion, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(emotion, outcome).Inc()
	m.turnDuration.Observe(seconds)
}

func (m *ChatMetrics) ObserveGenerationFailure(kind string) {
	if m == nil {
		return
	}
	m.generationFailures.WithLabelValues(kind).Inc()
}

func (m *ChatMetrics) ObserveStorageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}
