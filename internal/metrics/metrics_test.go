package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/miradorstack/flightwatch/internal/models"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should be ignored, got %v", err)
	}
}

func TestObserveEvaluationCounts(t *testing.T) {
	beforeSuccess := testutil.ToFloat64(evaluationsTotal.WithLabelValues(OutcomeSuccess))
	beforeInvalid := testutil.ToFloat64(evaluationsTotal.WithLabelValues(OutcomeInvalid))
	beforeCritical := testutil.ToFloat64(anomaliesTotal.WithLabelValues(string(models.AnomalyPressureLimit), string(models.SeverityCritical)))

	ObserveEvaluation(40*time.Microsecond, "anything", []models.AnomalyRecord{
		{Type: models.AnomalyPressureLimit, Severity: models.SeverityCritical},
	})
	ObserveEvaluation(-time.Second, OutcomeInvalid, nil)

	if got := testutil.ToFloat64(evaluationsTotal.WithLabelValues(OutcomeSuccess)) - beforeSuccess; got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := testutil.ToFloat64(evaluationsTotal.WithLabelValues(OutcomeInvalid)) - beforeInvalid; got != 1 {
		t.Fatalf("expected one invalid, got %v", got)
	}
	if got := testutil.ToFloat64(anomaliesTotal.WithLabelValues(string(models.AnomalyPressureLimit), string(models.SeverityCritical))) - beforeCritical; got != 1 {
		t.Fatalf("expected one critical pressure anomaly, got %v", got)
	}
}

func TestSinkErrorAndTicks(t *testing.T) {
	before := testutil.ToFloat64(sinkErrorsTotal.WithLabelValues("kafka"))
	SinkError("kafka")
	if got := testutil.ToFloat64(sinkErrorsTotal.WithLabelValues("kafka")) - before; got != 1 {
		t.Fatalf("expected one sink error, got %v", got)
	}

	beforeTicks := testutil.ToFloat64(monitorTicksTotal.WithLabelValues(TickPaused))
	MonitorTick(TickPaused)
	if got := testutil.ToFloat64(monitorTicksTotal.WithLabelValues(TickPaused)) - beforeTicks; got != 1 {
		t.Fatalf("expected one paused tick, got %v", got)
	}
}
