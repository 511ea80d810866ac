package source

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/miradorstack/flightwatch/internal/engine"
	"github.com/miradorstack/flightwatch/internal/models"
)

func TestDefaultProfileCyclesThroughFlight(t *testing.T) {
	r, err := LoadReplay("")
	if err != nil {
		t.Fatalf("load default profile: %v", err)
	}
	fixed := time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	ctx := context.Background()
	seen := map[models.FlightPhase]bool{}
	types := map[models.AnomalyType]bool{}
	eng := engine.NewRuleEngine()
	for i := 0; i < r.Len(); i++ {
		snap, err := r.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !snap.Timestamp.Equal(fixed) {
			t.Fatalf("frame %d not stamped with the replay clock: %v", i, snap.Timestamp)
		}
		seen[snap.Phase] = true
		records, err := eng.Evaluate(snap)
		if err != nil {
			t.Fatalf("frame %d rejected: %v", i, err)
		}
		for _, rec := range records {
			types[rec.Type] = true
		}
	}
	for p := models.PhasePreFlight; p <= models.PhasePostFlight; p++ {
		if !seen[p] {
			t.Fatalf("default profile never visits %s", p)
		}
	}
	for _, want := range []models.AnomalyType{
		models.AnomalySensorMismatch, models.AnomalyHighCabinVS, models.AnomalyPressureLimit,
		models.AnomalyLandingGearWarning, models.AnomalyValveSensorMismatch,
	} {
		if !types[want] {
			t.Fatalf("default profile never raises %s", want)
		}
	}

	first, _ := r.Next(ctx)
	if first.TimeTag != 1 {
		t.Fatalf("expected wraparound to first frame, got TimeTag %v", first.TimeTag)
	}
}

func TestLoadReplayFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	body := `name: short
base:
  DateTime: "2024-05-14T09:30:00Z"
  TimeTag: 1
  RecorderTime: 1
  CabinAltitude_SD69218: 6000
  CabinAltitude_PR69218: 6000
  CabinDifferentialPressure_SD64521: 7
  CabinDifferentialPressure_SD64515: 7
  OutflowValvePosition_SD6B222: 20
  OutflowValvePosition_PR6B222: 20
  CabinPressure_SD6A420: 11.8
  CabinVS_SD68222: 0
  Altitude_AD83212: 35000
  AltitudeRate_DM8A518: 0
  AltitudeRate_FGF5114: 0
  VerticalSpeed_DMF5518: 0
  LandingElevation_FMAE115: 0
  NoseLandingGearCompressed_LG11212: false
  LHLandingGearCompressed_LG11213: false
  RHLandingGearCompressed_LG11214: false
  FlightPhase_FW56211: 5
frames:
  - {}
  - {CabinVS_SD68222: 2500}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	r, err := LoadReplay(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Name() != "short" || r.Len() != 2 {
		t.Fatalf("unexpected profile: %s/%d", r.Name(), r.Len())
	}
	_, _ = r.Next(context.Background())
	snap, _ := r.Next(context.Background())
	if snap.CabinVS != 2500 || snap.Timestamp.Year() != 2024 {
		t.Fatalf("unexpected frame: %+v", snap)
	}
}

func TestNewReplayRejectsBadFrames(t *testing.T) {
	if _, err := NewReplay(Profile{Name: "empty"}); err == nil {
		t.Fatalf("expected error for empty profile")
	}
	_, err := NewReplay(Profile{Frames: []map[string]any{{models.ParamCabinVS: 10}}})
	if !errors.Is(err, models.ErrInvalidSnapshot) {
		t.Fatalf("expected invalid snapshot error, got %v", err)
	}
}

type fakeMessage struct {
	mqtt.Message
	payload []byte
}

func (f fakeMessage) Payload() []byte { return f.payload }
func (f fakeMessage) Topic() string   { return "aircraft/4X-EKA/snapshot" }

func snapshotPayload(t *testing.T, tag float64) []byte {
	t.Helper()
	snap := models.FlightSnapshot{
		Timestamp: time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC),
		TimeTag:   tag,
		Altitude:  35000,
		Phase:     models.PhaseCruise,
	}
	payload, err := json.Marshal(snap.Fields())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return payload
}

func TestMQTTQueueDropsOldest(t *testing.T) {
	m := NewMQTT(MQTTConfig{Broker: "tcp://127.0.0.1:1883", Topic: "aircraft/+/snapshot", QueueSize: 2}, nil)
	ctx := context.Background()

	if _, err := m.Next(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot on empty queue, got %v", err)
	}

	for tag := 1.0; tag <= 3; tag++ {
		m.handle(nil, fakeMessage{payload: snapshotPayload(t, tag)})
	}
	m.handle(nil, fakeMessage{payload: []byte("not json")})
	m.handle(nil, fakeMessage{payload: []byte(`{"TimeTag": 4}`)})

	first, err := m.Next(ctx)
	if err != nil || first.TimeTag != 2 {
		t.Fatalf("expected oldest surviving snapshot 2, got %v (%v)", first.TimeTag, err)
	}
	second, _ := m.Next(ctx)
	if second.TimeTag != 3 {
		t.Fatalf("expected snapshot 3, got %v", second.TimeTag)
	}
	received, dropped, rejected := m.Stats()
	if received != 5 || dropped != 1 || rejected != 2 {
		t.Fatalf("unexpected stats: received=%d dropped=%d rejected=%d", received, dropped, rejected)
	}
}
