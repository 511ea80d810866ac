package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/flightwatch/internal/api"
	"github.com/miradorstack/flightwatch/internal/engine"
	"github.com/miradorstack/flightwatch/internal/models"
)

func cruiseSnapshot() models.FlightSnapshot {
	return models.FlightSnapshot{
		Timestamp:           time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC),
		CabinAltitudeSD:     6100,
		CabinAltitudePR:     6100,
		DiffPressureSD64521: 7.8,
		DiffPressureSD64515: 7.8,
		OutflowValveSD:      15,
		OutflowValvePR:      15,
		CabinVS:             1500,
		Altitude:            35000,
		Phase:               models.PhaseCruise,
	}
}

func TestEvaluateSnapshotGradesHealth(t *testing.T) {
	service := NewEngineService(nil, engine.NewRuleEngine())

	ev, err := service.EvaluateSnapshot(context.Background(), cruiseSnapshot())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ev.Anomalies) != 1 || ev.Anomalies[0].Type != models.AnomalyHighCabinVS {
		t.Fatalf("unexpected anomalies: %+v", ev.Anomalies)
	}
	if ev.SystemHealth != models.HealthDegraded {
		t.Fatalf("expected degraded health, got %s", ev.SystemHealth)
	}
	if service.latencies.Count() != 1 {
		t.Fatalf("expected one latency sample, got %d", service.latencies.Count())
	}
}

func TestEvaluateSnapshotRejectsInvalid(t *testing.T) {
	service := NewEngineService(nil, engine.NewRuleEngine())
	snap := cruiseSnapshot()
	snap.Phase = models.FlightPhase(42)

	_, err := service.EvaluateSnapshot(context.Background(), snap)
	if !errors.Is(err, models.ErrInvalidSnapshot) {
		t.Fatalf("expected invalid snapshot, got %v", err)
	}
}

func TestEvaluateGRPC(t *testing.T) {
	service := NewEngineService(nil, engine.NewRuleEngine())
	req, err := api.ToProtoSnapshot(cruiseSnapshot())
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}

	resp, err := service.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev, err := api.FromProtoEvaluation(resp)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(ev.Anomalies) != 1 || ev.Anomalies[0].Severity != models.SeverityHigh {
		t.Fatalf("unexpected evaluation: %+v", ev)
	}
}

func TestEvaluateGRPCInvalidArgument(t *testing.T) {
	service := NewEngineService(nil, engine.NewRuleEngine())

	if _, err := service.Evaluate(context.Background(), nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for nil request, got %v", err)
	}
	req, _ := structpb.NewStruct(map[string]any{models.ParamCabinVS: 1200.0})
	if _, err := service.Evaluate(context.Background(), req); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for partial snapshot, got %v", err)
	}
}

func TestRulesWithoutEngine(t *testing.T) {
	service := NewEngineService(nil, nil)
	if rules := service.Rules(); len(rules) != 0 {
		t.Fatalf("expected empty catalogue, got %d", len(rules))
	}
	if _, err := service.EvaluateSnapshot(context.Background(), cruiseSnapshot()); err == nil {
		t.Fatalf("expected error without engine")
	}
}
