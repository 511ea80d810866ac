package engine

import (
	"math"

	"github.com/miradorstack/flightwatch/internal/models"
)

// Project builds the display view of snap for role. open holds the anomalies
// still awaiting resolution and only feeds the manager block.
func Project(role models.Role, snap models.FlightSnapshot, open []models.AnomalyRecord) models.DisplayData {
	view := models.DisplayData{
		Role:                    role,
		FlightPhase:             snap.Phase.String(),
		AltitudeFt:              snap.Altitude,
		CabinAltitudeFt:         snap.CabinAltitudeSD,
		VerticalSpeedFpm:        snap.VerticalSpeed,
		CabinVSFpm:              snap.CabinVS,
		DifferentialPressurePsi: snap.DiffPressureSD64521,
		OutflowValvePercent:     snap.OutflowValveSD,
		CabinPressurePsi:        snap.CabinPressure,
		Timestamp:               snap.Timestamp,
		LandingGear: models.GearStatus{
			Nose:      snap.NoseGearCompressed,
			LeftMain:  snap.LeftGearCompressed,
			RightMain: snap.RightGearCompressed,
		},
	}

	switch role {
	case models.RolePilot:
		view.Pilot = &models.PilotData{
			AltitudeRateFpm:    snap.AltitudeRateDM,
			LandingElevationFt: snap.LandingElevation,
		}
	case models.RoleTechnician:
		view.Technician = &models.TechnicianData{
			CabinAltitudeSensor1:        snap.CabinAltitudeSD,
			CabinAltitudeSensor2:        snap.CabinAltitudePR,
			CabinAltitudeMismatch:       math.Abs(snap.CabinAltitudeSD - snap.CabinAltitudePR),
			DifferentialPressureSensor1: snap.DiffPressureSD64521,
			DifferentialPressureSensor2: snap.DiffPressureSD64515,
			OutflowValveSensor:          snap.OutflowValveSD,
			OutflowValvePrimary:         snap.OutflowValvePR,
			OutflowValveMismatch:        math.Abs(snap.OutflowValveSD - snap.OutflowValvePR),
			AltitudeRateDM:              snap.AltitudeRateDM,
			AltitudeRateFGF:             snap.AltitudeRateFGF,
		}
	case models.RoleManager:
		view.Manager = &models.ManagerData{
			ActiveAnomalies: len(open),
			SystemHealth:    AssessHealth(open),
		}
	}
	return view
}
