package models

import (
	"fmt"
	"strings"
	"time"
)

// Role selects a display projection of the current snapshot.
type Role string

const (
	RolePilot      Role = "pilot"
	RoleTechnician Role = "technician"
	RoleManager    Role = "manager"
)

// ParseRole accepts a role name case-insensitively. An empty name selects
// the common projection and returns "".
func ParseRole(name string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(name))); r {
	case "", RolePilot, RoleTechnician, RoleManager:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", name)
	}
}

// GearStatus reports each gear leg as compressed (down and weighted).
type GearStatus struct {
	Nose      bool `json:"nose"`
	LeftMain  bool `json:"leftMain"`
	RightMain bool `json:"rightMain"`
}

// DisplayData is the view of one snapshot every role shares, plus the
// role-specific block for the requested role.
type DisplayData struct {
	Role                    Role       `json:"role,omitempty"`
	FlightPhase             string     `json:"flightPhase"`
	AltitudeFt              float64    `json:"altitudeFt"`
	CabinAltitudeFt         float64    `json:"cabinAltitudeFt"`
	VerticalSpeedFpm        float64    `json:"verticalSpeedFpm"`
	CabinVSFpm              float64    `json:"cabinVsFpm"`
	DifferentialPressurePsi float64    `json:"differentialPressurePsi"`
	OutflowValvePercent     float64    `json:"outflowValvePercent"`
	CabinPressurePsi        float64    `json:"cabinPressurePsi"`
	Timestamp               time.Time  `json:"timestamp"`
	LandingGear             GearStatus `json:"landingGearStatus"`

	Pilot      *PilotData      `json:"pilot,omitempty"`
	Technician *TechnicianData `json:"technician,omitempty"`
	Manager    *ManagerData    `json:"manager,omitempty"`
}

// PilotData adds the flight-path values a pilot needs.
type PilotData struct {
	AltitudeRateFpm    float64 `json:"altitudeRateFpm"`
	LandingElevationFt float64 `json:"landingElevationFt"`
}

// TechnicianData exposes redundant sensor readings and their disagreement.
type TechnicianData struct {
	CabinAltitudeSensor1        float64 `json:"cabinAltitudeSensor1"`
	CabinAltitudeSensor2        float64 `json:"cabinAltitudeSensor2"`
	CabinAltitudeMismatch       float64 `json:"cabinAltitudeMismatch"`
	DifferentialPressureSensor1 float64 `json:"differentialPressureSensor1"`
	DifferentialPressureSensor2 float64 `json:"differentialPressureSensor2"`
	OutflowValveSensor          float64 `json:"outflowValveSensor"`
	OutflowValvePrimary         float64 `json:"outflowValvePrimary"`
	OutflowValveMismatch        float64 `json:"outflowValveMismatch"`
	AltitudeRateDM              float64 `json:"altitudeRateDM"`
	AltitudeRateFGF             float64 `json:"altitudeRateFGF"`
}

// ManagerData summarises the open anomalies.
type ManagerData struct {
	ActiveAnomalies int          `json:"activeAnomaliesCount"`
	SystemHealth    SystemHealth `json:"systemHealth"`
}
