package engine

import (
	"fmt"
	"math"

	"github.com/miradorstack/flightwatch/internal/models"
)

// Detection thresholds. Comparisons are strict: a reading exactly on a
// threshold does not fire.
const (
	// CabinAltitudeMismatchFt is the redundant cabin altitude sensor disagreement (ft) that raises sensor_mismatch.
	CabinAltitudeMismatchFt = 200.0
	// CabinAltitudeMismatchHighFt escalates sensor_mismatch from medium to high.
	CabinAltitudeMismatchHighFt = 500.0

	// CabinVSLimitFpm is the absolute cabin vertical speed (fpm) that raises high_cabin_vs.
	CabinVSLimitFpm = 1000.0
	// CabinVSCriticalFpm escalates high_cabin_vs from high to critical.
	CabinVSCriticalFpm = 2000.0

	// DiffPressureMaxPsi and DiffPressureMinPsi bound the structural differential pressure envelope.
	DiffPressureMaxPsi = 8.5
	DiffPressureMinPsi = -0.5

	// GearCheckAltitudeFt is the altitude below which gear must be down on approach and landing.
	GearCheckAltitudeFt = 5000.0

	// OutflowValveMismatchPct is the redundant outflow valve sensor disagreement (%) that raises valve_sensor_mismatch.
	OutflowValveMismatchPct = 10.0
)

// Finding carries the per-detection fields a rule computes from the snapshot.
// Everything else on the record is fixed by the rule or stamped by the engine.
type Finding struct {
	Description   string
	Severity      models.Severity
	CurrentValues map[string]any
}

// Rule is one independent detection: a predicate over the snapshot and a
// builder for the finding it produces.
type Rule struct {
	Type       models.AnomalyType
	Systems    []string
	Parameters []string
	Actions    []string
	Match      func(models.FlightSnapshot) bool
	Build      func(models.FlightSnapshot) Finding
}

// DefaultRules returns the detection table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		SensorMismatchRule(),
		HighCabinVSRule(),
		PressureLimitRule(),
		LandingGearRule(),
		ValveSensorMismatchRule(),
	}
}

// SensorMismatchRule compares the two redundant cabin altitude sensors.
func SensorMismatchRule() Rule {
	diff := func(s models.FlightSnapshot) float64 {
		return math.Abs(s.CabinAltitudeSD - s.CabinAltitudePR)
	}
	return Rule{
		Type:       models.AnomalySensorMismatch,
		Systems:    []string{"Pressurization", "Sensor System"},
		Parameters: []string{models.ParamCabinAltitudeSD, models.ParamCabinAltitudePR},
		Actions: []string{
			"Cross-check with backup instruments",
			"Monitor for sensor drift",
			"Schedule sensor calibration at next maintenance",
		},
		Match: func(s models.FlightSnapshot) bool {
			return diff(s) > CabinAltitudeMismatchFt
		},
		Build: func(s models.FlightSnapshot) Finding {
			d := diff(s)
			severity := models.SeverityMedium
			if d > CabinAltitudeMismatchHighFt {
				severity = models.SeverityHigh
			}
			return Finding{
				Description: fmt.Sprintf("Cabin altitude sensor mismatch detected: %.0f ft difference", d),
				Severity:    severity,
				CurrentValues: map[string]any{
					"Sensor 1 (SD69218)": s.CabinAltitudeSD,
					"Sensor 2 (PR69218)": s.CabinAltitudePR,
					"Difference":         d,
				},
			}
		},
	}
}

// HighCabinVSRule flags excessive cabin climb or descent rates.
func HighCabinVSRule() Rule {
	return Rule{
		Type:       models.AnomalyHighCabinVS,
		Systems:    []string{"Pressurization", "Passenger Comfort"},
		Parameters: []string{models.ParamCabinVS},
		Actions: []string{
			"Reduce rate of climb/descent",
			"Check outflow valve operation",
			"Monitor passenger comfort",
			"Verify pressurization schedule",
		},
		Match: func(s models.FlightSnapshot) bool {
			return math.Abs(s.CabinVS) > CabinVSLimitFpm
		},
		Build: func(s models.FlightSnapshot) Finding {
			rate := math.Abs(s.CabinVS)
			severity := models.SeverityHigh
			if rate > CabinVSCriticalFpm {
				severity = models.SeverityCritical
			}
			return Finding{
				Description: fmt.Sprintf("High cabin vertical speed: %.0f fpm", rate),
				Severity:    severity,
				CurrentValues: map[string]any{
					"Cabin VS":          s.CabinVS,
					"Aircraft Altitude": s.Altitude,
					"Outflow Valve":     s.OutflowValveSD,
				},
			}
		},
	}
}

// PressureLimitRule guards the differential pressure envelope.
func PressureLimitRule() Rule {
	return Rule{
		Type:       models.AnomalyPressureLimit,
		Systems:    []string{"Pressurization", "Structural"},
		Parameters: []string{models.ParamDiffPressureSD64521, models.ParamDiffPressureSD64515},
		Actions: []string{
			"Immediate action required",
			"Reduce altitude if safe",
			"Check pressure relief valves",
			"Prepare for possible emergency descent",
		},
		Match: func(s models.FlightSnapshot) bool {
			return s.DiffPressureSD64521 > DiffPressureMaxPsi || s.DiffPressureSD64521 < DiffPressureMinPsi
		},
		Build: func(s models.FlightSnapshot) Finding {
			direction := "below"
			if s.DiffPressureSD64521 > DiffPressureMaxPsi {
				direction = "exceeding"
			}
			return Finding{
				Description: fmt.Sprintf("Differential pressure %s limits: %.2f psi", direction, s.DiffPressureSD64521),
				Severity:    models.SeverityCritical,
				CurrentValues: map[string]any{
					"Diff Pressure SD":  s.DiffPressureSD64521,
					"Diff Pressure SD2": s.DiffPressureSD64515,
					"Cabin Altitude":    s.CabinAltitudeSD,
				},
			}
		},
	}
}

// LandingGearRule requires gear down below GearCheckAltitudeFt on approach and landing.
func LandingGearRule() Rule {
	return Rule{
		Type:       models.AnomalyLandingGearWarning,
		Systems:    []string{"Landing Gear", "Flight Control"},
		Parameters: []string{models.ParamNoseGear, models.ParamLeftGear, models.ParamRightGear},
		Actions: []string{
			"Verify landing gear position",
			"Execute go-around if necessary",
			"Check hydraulic pressure",
			"Follow landing gear emergency procedures",
		},
		Match: func(s models.FlightSnapshot) bool {
			if s.Phase != models.PhaseApproach && s.Phase != models.PhaseLanding {
				return false
			}
			return !s.GearDown() && s.Altitude < GearCheckAltitudeFt
		},
		Build: func(s models.FlightSnapshot) Finding {
			return Finding{
				Description: fmt.Sprintf("Landing gear not confirmed down during %s at %.0f ft", phaseLabel(s.Phase), s.Altitude),
				Severity:    models.SeverityCritical,
				CurrentValues: map[string]any{
					"Nose Gear":  gearState(s.NoseGearCompressed),
					"Left Main":  gearState(s.LeftGearCompressed),
					"Right Main": gearState(s.RightGearCompressed),
					"Altitude":   s.Altitude,
				},
			}
		},
	}
}

// ValveSensorMismatchRule compares the two redundant outflow valve position sensors.
func ValveSensorMismatchRule() Rule {
	diff := func(s models.FlightSnapshot) float64 {
		return math.Abs(s.OutflowValveSD - s.OutflowValvePR)
	}
	return Rule{
		Type:       models.AnomalyValveSensorMismatch,
		Systems:    []string{"Pressurization", "Valve Control"},
		Parameters: []string{models.ParamOutflowValveSD, models.ParamOutflowValvePR},
		Actions: []string{
			"Monitor valve behavior",
			"Switch to manual control if needed",
			"Schedule valve sensor inspection",
		},
		Match: func(s models.FlightSnapshot) bool {
			return diff(s) > OutflowValveMismatchPct
		},
		Build: func(s models.FlightSnapshot) Finding {
			d := diff(s)
			return Finding{
				Description: fmt.Sprintf("Outflow valve sensor disagreement: %.1f%% difference", d),
				Severity:    models.SeverityMedium,
				CurrentValues: map[string]any{
					"Sensor SD":  s.OutflowValveSD,
					"Sensor PR":  s.OutflowValvePR,
					"Difference": d,
				},
			}
		},
	}
}

func gearState(compressed bool) string {
	if compressed {
		return "Down"
	}
	return "Up"
}

func phaseLabel(p models.FlightPhase) string {
	if p == models.PhaseLanding {
		return "landing"
	}
	return "approach"
}
