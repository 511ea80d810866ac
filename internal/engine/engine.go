package engine

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/miradorstack/flightwatch/internal/models"
)

// RuleEngine evaluates snapshots against an ordered rule table. It holds no
// per-evaluation state and is safe for concurrent use.
type RuleEngine struct {
	rules     []Rule
	newID     func() string
	overrides map[models.AnomalyType][]string
}

// Option customises a RuleEngine.
type Option func(*RuleEngine)

// WithRules replaces the default rule table. Order is preserved.
func WithRules(rules []Rule) Option {
	return func(e *RuleEngine) {
		e.rules = append([]Rule(nil), rules...)
	}
}

// WithIDGenerator sets the function used to mint anomaly ids.
func WithIDGenerator(gen func() string) Option {
	return func(e *RuleEngine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithActionOverrides replaces the recommended actions of the named rule types.
// Overrides apply after every other option, so they also reach rules
// supplied by WithRules. Types without a matching rule are ignored.
func WithActionOverrides(actions map[models.AnomalyType][]string) Option {
	return func(e *RuleEngine) {
		for typ, override := range actions {
			if len(override) > 0 {
				e.overrides[typ] = append([]string(nil), override...)
			}
		}
	}
}

// NewRuleEngine builds an engine over DefaultRules unless WithRules is given.
func NewRuleEngine(opts ...Option) *RuleEngine {
	e := &RuleEngine{
		rules:     DefaultRules(),
		newID:     uuid.NewString,
		overrides: make(map[models.AnomalyType][]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	for i := range e.rules {
		if override, ok := e.overrides[e.rules[i].Type]; ok {
			e.rules[i].Actions = append([]string(nil), override...)
		}
	}
	return e
}

// Evaluate runs every rule against the snapshot and returns one record per
// matching rule, in rule order. Malformed snapshots are rejected with a
// *ValidationError before any rule runs.
func (e *RuleEngine) Evaluate(snap models.FlightSnapshot) ([]models.AnomalyRecord, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}

	records := make([]models.AnomalyRecord, 0, len(e.rules))
	for _, rule := range e.rules {
		if !rule.Match(snap) {
			continue
		}
		records = append(records, e.record(rule, snap))
	}
	return records, nil
}

func (e *RuleEngine) record(rule Rule, snap models.FlightSnapshot) models.AnomalyRecord {
	finding := rule.Build(snap)
	return models.AnomalyRecord{
		ID:                 e.newID(),
		Timestamp:          snap.Timestamp,
		Type:               rule.Type,
		Description:        finding.Description,
		Severity:           finding.Severity,
		AffectedSystems:    append([]string(nil), rule.Systems...),
		AffectedParameters: append([]string(nil), rule.Parameters...),
		Status:             models.StatusActive,
		CurrentValues:      finding.CurrentValues,
		RecommendedActions: append([]string(nil), rule.Actions...),
	}
}

// RuleInfo describes a rule for catalogue listings.
type RuleInfo struct {
	Type               models.AnomalyType `json:"type"`
	AffectedSystems    []string           `json:"affectedSystems"`
	AffectedParameters []string           `json:"affectedParameters"`
	RecommendedActions []string           `json:"recommendedActions"`
}

// Rules returns the rule catalogue in evaluation order.
func (e *RuleEngine) Rules() []RuleInfo {
	out := make([]RuleInfo, 0, len(e.rules))
	for _, rule := range e.rules {
		out = append(out, RuleInfo{
			Type:               rule.Type,
			AffectedSystems:    append([]string(nil), rule.Systems...),
			AffectedParameters: append([]string(nil), rule.Parameters...),
			RecommendedActions: append([]string(nil), rule.Actions...),
		})
	}
	return out
}

// ValidationError reports a snapshot value outside the engine's input domain.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return models.ErrInvalidSnapshot
}

// Validate checks the snapshot against the declared input domain: finite
// numeric fields, a known flight phase and a timestamp.
func Validate(snap models.FlightSnapshot) error {
	if snap.Timestamp.IsZero() {
		return &ValidationError{Field: models.ParamDateTime, Reason: "is zero"}
	}
	if !snap.Phase.Valid() {
		return &ValidationError{Field: models.ParamFlightPhase, Reason: fmt.Sprintf("has unknown value %d", int(snap.Phase))}
	}
	numeric := []struct {
		name  string
		value float64
	}{
		{models.ParamTimeTag, snap.TimeTag},
		{models.ParamRecorderTime, snap.RecorderTime},
		{models.ParamCabinAltitudeSD, snap.CabinAltitudeSD},
		{models.ParamCabinAltitudePR, snap.CabinAltitudePR},
		{models.ParamDiffPressureSD64521, snap.DiffPressureSD64521},
		{models.ParamDiffPressureSD64515, snap.DiffPressureSD64515},
		{models.ParamOutflowValveSD, snap.OutflowValveSD},
		{models.ParamOutflowValvePR, snap.OutflowValvePR},
		{models.ParamCabinPressure, snap.CabinPressure},
		{models.ParamCabinVS, snap.CabinVS},
		{models.ParamAltitude, snap.Altitude},
		{models.ParamAltitudeRateDM, snap.AltitudeRateDM},
		{models.ParamAltitudeRateFGF, snap.AltitudeRateFGF},
		{models.ParamVerticalSpeed, snap.VerticalSpeed},
		{models.ParamLandingElevation, snap.LandingElevation},
	}
	for _, field := range numeric {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) {
			return &ValidationError{Field: field.name, Reason: "is not finite"}
		}
	}
	return nil
}
