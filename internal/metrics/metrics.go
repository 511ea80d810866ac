package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/flightwatch/internal/models"
)

const (
	// OutcomeSuccess labels evaluations that produced a (possibly empty) anomaly set.
	OutcomeSuccess = "success"
	// OutcomeInvalid labels evaluations rejected because the snapshot was malformed.
	OutcomeInvalid = "invalid"
)

// Monitor tick results.
const (
	TickEvaluated = "evaluated"
	TickEmpty     = "empty"
	TickFailed    = "failed"
	TickPaused    = "paused"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightwatch",
			Name:      "evaluations_total",
			Help:      "Total number of snapshot evaluations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	evaluationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "flightwatch",
			Name:      "evaluation_seconds",
			Help:      "Rule engine evaluation latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		},
	)

	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightwatch",
			Name:      "anomalies_total",
			Help:      "Anomaly records produced, partitioned by type and severity.",
		},
		[]string{"type", "severity"},
	)

	sinkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightwatch",
			Name:      "sink_errors_total",
			Help:      "Failed anomaly publications, partitioned by sink.",
		},
		[]string{"sink"},
	)

	monitorTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightwatch",
			Name:      "monitor_ticks_total",
			Help:      "Monitor cycles, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches flightwatch collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		evaluationsTotal,
		evaluationDurationSeconds,
		anomaliesTotal,
		sinkErrorsTotal,
		monitorTicksTotal,
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

// ObserveEvaluation records an evaluation duration, its outcome and the
// anomalies it produced.
func ObserveEvaluation(duration time.Duration, outcome string, records []models.AnomalyRecord) {
	label := outcome
	if label != OutcomeInvalid {
		label = OutcomeSuccess
	}
	evaluationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	evaluationDurationSeconds.Observe(duration.Seconds())
	for _, rec := range records {
		anomaliesTotal.WithLabelValues(string(rec.Type), string(rec.Severity)).Inc()
	}
}

// SinkError counts a failed publication to the named sink.
func SinkError(sink string) {
	sinkErrorsTotal.WithLabelValues(sink).Inc()
}

// MonitorTick counts one monitor cycle by result.
func MonitorTick(result string) {
	monitorTicksTotal.WithLabelValues(result).Inc()
}
