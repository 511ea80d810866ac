package models

import "time"

// Recorder parameter names. They are the wire names of snapshot fields and the
// values reported in AnomalyRecord.AffectedParameters.
const (
	ParamDateTime            = "DateTime"
	ParamTimeTag             = "TimeTag"
	ParamRecorderTime        = "RecorderTime"
	ParamCabinAltitudeSD     = "CabinAltitude_SD69218"
	ParamCabinAltitudePR     = "CabinAltitude_PR69218"
	ParamDiffPressureSD64521 = "CabinDifferentialPressure_SD64521"
	ParamDiffPressureSD64515 = "CabinDifferentialPressure_SD64515"
	ParamOutflowValveSD      = "OutflowValvePosition_SD6B222"
	ParamOutflowValvePR      = "OutflowValvePosition_PR6B222"
	ParamCabinPressure       = "CabinPressure_SD6A420"
	ParamCabinVS             = "CabinVS_SD68222"
	ParamAltitude            = "Altitude_AD83212"
	ParamAltitudeRateDM      = "AltitudeRate_DM8A518"
	ParamAltitudeRateFGF     = "AltitudeRate_FGF5114"
	ParamVerticalSpeed       = "VerticalSpeed_DMF5518"
	ParamLandingElevation    = "LandingElevation_FMAE115"
	ParamNoseGear            = "NoseLandingGearCompressed_LG11212"
	ParamLeftGear            = "LHLandingGearCompressed_LG11213"
	ParamRightGear           = "RHLandingGearCompressed_LG11214"
	ParamFlightPhase         = "FlightPhase_FW56211"
)

// FlightSnapshot is one instant of recorded aircraft state.
type FlightSnapshot struct {
	Timestamp    time.Time
	TimeTag      float64
	RecorderTime float64

	CabinAltitudeSD     float64
	CabinAltitudePR     float64
	DiffPressureSD64521 float64
	DiffPressureSD64515 float64
	OutflowValveSD      float64
	OutflowValvePR      float64
	CabinPressure       float64
	CabinVS             float64

	Altitude         float64
	AltitudeRateDM   float64
	AltitudeRateFGF  float64
	VerticalSpeed    float64
	LandingElevation float64

	NoseGearCompressed  bool
	LeftGearCompressed  bool
	RightGearCompressed bool

	Phase FlightPhase
}

// GearDown reports whether all three gear legs read compressed.
func (s FlightSnapshot) GearDown() bool {
	return s.NoseGearCompressed && s.LeftGearCompressed && s.RightGearCompressed
}

// FlightPhase is the recorder's numeric flight phase.
type FlightPhase int

const (
	PhaseUnknown FlightPhase = iota
	PhasePreFlight
	PhaseTaxiOut
	PhaseTakeoff
	PhaseClimb
	PhaseCruise
	PhaseDescent
	PhaseApproach
	PhaseLanding
	PhaseRollout
	PhaseTaxiIn
	PhasePostFlight
)

var phaseNames = [...]string{
	PhaseUnknown:    "Unknown",
	PhasePreFlight:  "Pre-Flight",
	PhaseTaxiOut:    "Taxi-Out",
	PhaseTakeoff:    "Takeoff",
	PhaseClimb:      "Climb",
	PhaseCruise:     "Cruise",
	PhaseDescent:    "Descent",
	PhaseApproach:   "Approach",
	PhaseLanding:    "Landing",
	PhaseRollout:    "Rollout",
	PhaseTaxiIn:     "Taxi-In",
	PhasePostFlight: "Post-Flight",
}

// Valid reports whether p is one of the recorder's enumerators.
func (p FlightPhase) Valid() bool {
	return p >= PhaseUnknown && p <= PhasePostFlight
}

// String returns the display name of the phase.
func (p FlightPhase) String() string {
	if !p.Valid() {
		return "Unknown"
	}
	return phaseNames[p]
}
