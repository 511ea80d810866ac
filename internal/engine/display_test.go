package engine

import (
	"testing"

	"github.com/miradorstack/flightwatch/internal/models"
)

func TestProjectRoles(t *testing.T) {
	snap := nominalSnapshot()
	snap.CabinAltitudePR = 7650
	snap.OutflowValvePR = 52
	snap.AltitudeRateDM = -1200
	snap.AltitudeRateFGF = -1190
	snap.NoseGearCompressed = true

	base := Project("", snap, nil)
	if base.FlightPhase != "Cruise" || base.AltitudeFt != 35000 || !base.LandingGear.Nose || base.LandingGear.LeftMain {
		t.Fatalf("unexpected common view: %+v", base)
	}
	if base.Pilot != nil || base.Technician != nil || base.Manager != nil {
		t.Fatalf("common view should carry no role block")
	}

	pilot := Project(models.RolePilot, snap, nil)
	if pilot.Pilot == nil || pilot.Pilot.AltitudeRateFpm != -1200 || pilot.Pilot.LandingElevationFt != 430 {
		t.Fatalf("unexpected pilot view: %+v", pilot.Pilot)
	}

	tech := Project(models.RoleTechnician, snap, nil)
	if tech.Technician == nil || tech.Technician.CabinAltitudeMismatch != 350 || tech.Technician.OutflowValveMismatch != 7 {
		t.Fatalf("unexpected technician view: %+v", tech.Technician)
	}
	if tech.Technician.AltitudeRateFGF != -1190 || tech.Pilot != nil {
		t.Fatalf("technician view mixed roles: %+v", tech)
	}

	open := []models.AnomalyRecord{
		{Type: models.AnomalySensorMismatch, Severity: models.SeverityMedium},
		{Type: models.AnomalyHighCabinVS, Severity: models.SeverityHigh},
	}
	manager := Project(models.RoleManager, snap, open)
	if manager.Manager == nil || manager.Manager.ActiveAnomalies != 2 || manager.Manager.SystemHealth != models.HealthDegraded {
		t.Fatalf("unexpected manager view: %+v", manager.Manager)
	}
}

func TestParseRole(t *testing.T) {
	for name, want := range map[string]models.Role{"": "", "Pilot": models.RolePilot, " manager ": models.RoleManager} {
		got, err := models.ParseRole(name)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %q, %v", name, got, err)
		}
	}
	if _, err := models.ParseRole("dispatcher"); err == nil {
		t.Fatalf("expected unknown role error")
	}
}
