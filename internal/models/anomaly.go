package models

import "time"

// AnomalyType enumerates the detection rules.
type AnomalyType string

const (
	AnomalySensorMismatch      AnomalyType = "sensor_mismatch"
	AnomalyHighCabinVS         AnomalyType = "high_cabin_vs"
	AnomalyPressureLimit       AnomalyType = "pressure_limit"
	AnomalyLandingGearWarning  AnomalyType = "landing_gear_warning"
	AnomalyValveSensorMismatch AnomalyType = "valve_sensor_mismatch"
)

// Severity captures impact levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from low (1) to critical (4). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Status is the anomaly lifecycle state.
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// SystemHealth summarises a set of anomalies for the manager view.
type SystemHealth string

const (
	HealthNormal   SystemHealth = "normal"
	HealthDegraded SystemHealth = "degraded"
	HealthCritical SystemHealth = "critical"
)

// AnomalyRecord is a single rule detection against one snapshot.
type AnomalyRecord struct {
	ID                 string         `json:"id"`
	Timestamp          time.Time      `json:"timestamp"`
	Type               AnomalyType    `json:"type"`
	Description        string         `json:"description"`
	Severity           Severity       `json:"severity"`
	AffectedSystems    []string       `json:"affectedSystems"`
	AffectedParameters []string       `json:"affectedParameters"`
	Status             Status         `json:"status"`
	CurrentValues      map[string]any `json:"currentValues"`
	RecommendedActions []string       `json:"recommendedActions"`
}

// Clone returns a deep copy so sinks can hold records without sharing storage.
func (r AnomalyRecord) Clone() AnomalyRecord {
	out := r
	out.AffectedSystems = append([]string(nil), r.AffectedSystems...)
	out.AffectedParameters = append([]string(nil), r.AffectedParameters...)
	out.RecommendedActions = append([]string(nil), r.RecommendedActions...)
	if r.CurrentValues != nil {
		out.CurrentValues = make(map[string]any, len(r.CurrentValues))
		for k, v := range r.CurrentValues {
			out.CurrentValues[k] = v
		}
	}
	return out
}

// Evaluation is the result of one engine pass over a snapshot.
type Evaluation struct {
	Anomalies    []AnomalyRecord `json:"anomalies"`
	SystemHealth SystemHealth    `json:"systemHealth"`
}
