package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/flightwatch/internal/models"
)

// FromProtoSnapshot maps a gRPC request struct into a domain snapshot.
func FromProtoSnapshot(req *structpb.Struct) (models.FlightSnapshot, error) {
	if req == nil {
		return models.FlightSnapshot{}, fmt.Errorf("request is nil: %w", models.ErrInvalidSnapshot)
	}
	return models.DecodeSnapshot(req.AsMap())
}

// ToProtoSnapshot converts a snapshot into its wire struct.
func ToProtoSnapshot(snap models.FlightSnapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(snap.Fields())
}

// ToProtoEvaluation converts an evaluation into
// {"anomalies": [...], "systemHealth": "..."}.
func ToProtoEvaluation(ev models.Evaluation) (*structpb.Struct, error) {
	if ev.Anomalies == nil {
		ev.Anomalies = []models.AnomalyRecord{}
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode evaluation: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert evaluation: %w", err)
	}
	return out, nil
}

// FromProtoEvaluation decodes an evaluation response.
func FromProtoEvaluation(resp *structpb.Struct) (models.Evaluation, error) {
	if resp == nil {
		return models.Evaluation{}, fmt.Errorf("response is nil")
	}
	data, err := protojson.Marshal(resp)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("encode response: %w", err)
	}
	var ev models.Evaluation
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.Evaluation{}, fmt.Errorf("decode evaluation: %w", err)
	}
	return ev, nil
}
