package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"

	"github.com/miradorstack/flightwatch/internal/utils"
)

// ErrInvalidSnapshot marks snapshots outside the declared input domain.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// FieldError reports a missing or malformed snapshot field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid snapshot: field %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidSnapshot
}

// DecodeSnapshot builds a FlightSnapshot from a generic field map as produced
// by JSON, YAML or structpb decoding. Every recorder parameter is required.
func DecodeSnapshot(fields map[string]any) (FlightSnapshot, error) {
	d := snapshotDecoder{fields: fields}
	snap := FlightSnapshot{
		Timestamp:    d.timestamp(ParamDateTime),
		TimeTag:      d.number(ParamTimeTag),
		RecorderTime: d.number(ParamRecorderTime),

		CabinAltitudeSD:     d.number(ParamCabinAltitudeSD),
		CabinAltitudePR:     d.number(ParamCabinAltitudePR),
		DiffPressureSD64521: d.number(ParamDiffPressureSD64521),
		DiffPressureSD64515: d.number(ParamDiffPressureSD64515),
		OutflowValveSD:      d.number(ParamOutflowValveSD),
		OutflowValvePR:      d.number(ParamOutflowValvePR),
		CabinPressure:       d.number(ParamCabinPressure),
		CabinVS:             d.number(ParamCabinVS),

		Altitude:         d.number(ParamAltitude),
		AltitudeRateDM:   d.number(ParamAltitudeRateDM),
		AltitudeRateFGF:  d.number(ParamAltitudeRateFGF),
		VerticalSpeed:    d.number(ParamVerticalSpeed),
		LandingElevation: d.number(ParamLandingElevation),

		NoseGearCompressed:  d.flag(ParamNoseGear),
		LeftGearCompressed:  d.flag(ParamLeftGear),
		RightGearCompressed: d.flag(ParamRightGear),

		Phase: d.phase(ParamFlightPhase),
	}
	if d.err != nil {
		return FlightSnapshot{}, d.err
	}
	return snap, nil
}

// Fields renders the snapshot back into its wire map. Gear flags use the
// recorder's 0/1 encoding.
func (s FlightSnapshot) Fields() map[string]any {
	return map[string]any{
		ParamDateTime:            utils.FormatRFC3339(s.Timestamp),
		ParamTimeTag:             s.TimeTag,
		ParamRecorderTime:        s.RecorderTime,
		ParamCabinAltitudeSD:     s.CabinAltitudeSD,
		ParamCabinAltitudePR:     s.CabinAltitudePR,
		ParamDiffPressureSD64521: s.DiffPressureSD64521,
		ParamDiffPressureSD64515: s.DiffPressureSD64515,
		ParamOutflowValveSD:      s.OutflowValveSD,
		ParamOutflowValvePR:      s.OutflowValvePR,
		ParamCabinPressure:       s.CabinPressure,
		ParamCabinVS:             s.CabinVS,
		ParamAltitude:            s.Altitude,
		ParamAltitudeRateDM:      s.AltitudeRateDM,
		ParamAltitudeRateFGF:     s.AltitudeRateFGF,
		ParamVerticalSpeed:       s.VerticalSpeed,
		ParamLandingElevation:    s.LandingElevation,
		ParamNoseGear:            flagValue(s.NoseGearCompressed),
		ParamLeftGear:            flagValue(s.LeftGearCompressed),
		ParamRightGear:           flagValue(s.RightGearCompressed),
		ParamFlightPhase:         int(s.Phase),
	}
}

func flagValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// snapshotDecoder keeps the first error so DecodeSnapshot reads as a flat
// field list.
type snapshotDecoder struct {
	fields map[string]any
	err    error
}

func (d *snapshotDecoder) lookup(name string) (any, bool) {
	if d.err != nil {
		return nil, false
	}
	v, ok := d.fields[name]
	if !ok || v == nil {
		d.err = &FieldError{Field: name, Reason: "missing"}
		return nil, false
	}
	return v, true
}

func (d *snapshotDecoder) number(name string) float64 {
	v, ok := d.lookup(name)
	if !ok {
		return 0
	}
	if _, isBool := v.(bool); isBool {
		d.err = &FieldError{Field: name, Reason: "expected a number, got bool"}
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		d.err = &FieldError{Field: name, Reason: err.Error()}
		return 0
	}
	return f
}

func (d *snapshotDecoder) flag(name string) bool {
	v, ok := d.lookup(name)
	if !ok {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		d.err = &FieldError{Field: name, Reason: err.Error()}
		return false
	}
	switch f {
	case 0:
		return false
	case 1:
		return true
	default:
		d.err = &FieldError{Field: name, Reason: fmt.Sprintf("flag must be 0 or 1, got %v", f)}
		return false
	}
}

func (d *snapshotDecoder) phase(name string) FlightPhase {
	f := d.number(name)
	if d.err != nil {
		return PhaseUnknown
	}
	if f != math.Trunc(f) {
		d.err = &FieldError{Field: name, Reason: fmt.Sprintf("phase must be an integer, got %v", f)}
		return PhaseUnknown
	}
	return FlightPhase(int(f))
}

func (d *snapshotDecoder) timestamp(name string) time.Time {
	v, ok := d.lookup(name)
	if !ok {
		return time.Time{}
	}
	if t, isTime := v.(time.Time); isTime {
		return t
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		d.err = &FieldError{Field: name, Reason: err.Error()}
		return time.Time{}
	}
	t, err := utils.ParseRFC3339(s)
	if err != nil {
		d.err = &FieldError{Field: name, Reason: err.Error()}
		return time.Time{}
	}
	return t
}
