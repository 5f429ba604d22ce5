package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeStored labels signals accepted and persisted.
	OutcomeStored = "stored"
	// OutcomeDeduplicated labels signals dropped as duplicates.
	OutcomeDeduplicated = "deduplicated"
	// OutcomeRejected labels signals that failed validation.
	OutcomeRejected = "rejected"
)

const (
	// GateProceed labels gate checks that let automation continue.
	GateProceed = "proceed"
	// GateBlocked labels gate checks that held automation back.
	GateBlocked = "blocked"
)

var (
	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "signals_total",
			Help:      "Total number of ingested signals, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "feedback_transitions_total",
			Help:      "Total number of feedback lifecycle transitions, partitioned by action.",
		},
		[]string{"action"},
	)

	escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "escalations_total",
			Help:      "Total number of escalations raised by the sweep, partitioned by reason.",
		},
		[]string{"reason"},
	)

	gateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "steward",
			Name:      "gate_checks_total",
			Help:      "Total number of automation gate checks, partitioned by result.",
		},
		[]string{"result"},
	)

	sweepSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "steward",
			Name:      "sweep_seconds",
			Help:      "Escalation sweep latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// Register attaches steward collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		signalsTotal,
		transitionsTotal,
		escalationsTotal,
		gateChecksTotal,
		sweepSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// RecordSignal counts an ingested signal under its outcome label.
func RecordSignal(outcome string) {
	label := outcome
	switch label {
	case OutcomeStored, OutcomeDeduplicated, OutcomeRejected:
	default:
		label = OutcomeRejected
	}
	signalsTotal.WithLabelValues(label).Inc()
}

// RecordTransition counts a feedback lifecycle transition under its action.
func RecordTransition(action string) {
	transitionsTotal.WithLabelValues(action).Inc()
}

// RecordEscalation counts an escalation under the rule that raised it.
func RecordEscalation(reason string) {
	escalationsTotal.WithLabelValues(reason).Inc()
}

// RecordGateCheck counts an automation gate decision.
func RecordGateCheck(blocked bool) {
	label := GateProceed
	if blocked {
		label = GateBlocked
	}
	gateChecksTotal.WithLabelValues(label).Inc()
}

// ObserveSweep records an escalation sweep duration.
func ObserveSweep(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	sweepSeconds.Observe(duration.Seconds())
}
