package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{50 * time.Microsecond, 10 * time.Microsecond, 40 * time.Microsecond, 20 * time.Microsecond, 30 * time.Microsecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}
	if p := tracker.Percentile(0); p != 10*time.Microsecond {
		t.Fatalf("expected min 10µs, got %v", p)
	}
	if p := tracker.Percentile(100); p != 50*time.Microsecond {
		t.Fatalf("expected max 50µs, got %v", p)
	}
	if p95 := tracker.Percentile(95); p95 < 40*time.Microsecond {
		t.Fatalf("expected percentile >= 40µs, got %v", p95)
	}
}

func TestLatencyTrackerBoundedSize(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
	if p := tracker.Percentile(0); p != 7*time.Millisecond {
		t.Fatalf("expected oldest retained sample 7ms, got %v", p)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	if p := NewLatencyTracker(0).Percentile(50); p != 0 {
		t.Fatalf("expected zero percentile without samples, got %v", p)
	}
}
