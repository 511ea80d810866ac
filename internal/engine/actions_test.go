package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/miradorstack/flightwatch/internal/models"
)

func writePack(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "actions.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write action pack: %v", err)
	}
	return path
}

func TestLoadActionPackOverridesActions(t *testing.T) {
	path := writePack(t, `actions:
  pressure_limit:
    - "Declare emergency"
    - ""
    - "Descend to 10000 ft"
`)

	overrides, err := LoadActionPack(path)
	if err != nil {
		t.Fatalf("load action pack: %v", err)
	}
	if got := overrides[models.AnomalyPressureLimit]; len(got) != 2 {
		t.Fatalf("expected blank entries to be dropped, got %v", got)
	}

	e := NewRuleEngine(WithActionOverrides(overrides))
	snap := nominalSnapshot()
	snap.DiffPressureSD64521 = 9.1
	records := evaluate(t, e, snap)
	if len(records) != 1 || records[0].RecommendedActions[0] != "Declare emergency" {
		t.Fatalf("expected overridden actions, got %+v", records)
	}

	// untouched rules keep their defaults
	for _, info := range e.Rules() {
		if info.Type == models.AnomalySensorMismatch && info.RecommendedActions[0] != "Cross-check with backup instruments" {
			t.Fatalf("sensor mismatch actions changed: %v", info.RecommendedActions)
		}
	}
}

func TestActionOverridesIgnoreOptionOrder(t *testing.T) {
	overrides := map[models.AnomalyType][]string{
		models.AnomalyHighCabinVS: {"Check pressurization controller"},
	}
	snap := nominalSnapshot()
	snap.CabinVS = 1500

	for name, opts := range map[string][]Option{
		"overrides first": {WithActionOverrides(overrides), WithRules(DefaultRules())},
		"rules first":     {WithRules(DefaultRules()), WithActionOverrides(overrides)},
	} {
		records := evaluate(t, NewRuleEngine(opts...), snap)
		if len(records) != 1 || len(records[0].RecommendedActions) != 1 || records[0].RecommendedActions[0] != "Check pressurization controller" {
			t.Fatalf("%s: expected overridden actions, got %+v", name, records)
		}
	}
}

func TestLoadActionPackMissingFile(t *testing.T) {
	overrides, err := LoadActionPack(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if overrides != nil {
		t.Fatalf("expected nil overrides when file missing")
	}

	if overrides, err := LoadActionPack(""); err != nil || overrides != nil {
		t.Fatalf("expected nil overrides for empty path")
	}
}

func TestLoadActionPackRejectsBadPacks(t *testing.T) {
	bodies := map[string]string{
		"unknown type": "actions:\n  engine_fire:\n    - \"Pull handle\"\n",
		"empty list":   "actions:\n  high_cabin_vs: []\n",
		"bad yaml":     "actions: [\n",
	}
	for name, body := range bodies {
		if _, err := LoadActionPack(writePack(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
