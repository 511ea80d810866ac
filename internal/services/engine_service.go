package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/flightwatch/internal/api"
	"github.com/miradorstack/flightwatch/internal/engine"
	"github.com/miradorstack/flightwatch/internal/metrics"
	"github.com/miradorstack/flightwatch/internal/models"
	"github.com/miradorstack/flightwatch/internal/utils"
)

// SnapshotEvaluator is the rule engine contract.
type SnapshotEvaluator interface {
	Evaluate(snap models.FlightSnapshot) ([]models.AnomalyRecord, error)
	Rules() []engine.RuleInfo
}

// EngineService implements the gRPC AnomalyEngine service and is the single
// evaluation path for HTTP and the monitor loop.
type EngineService struct {
	logger    *slog.Logger
	engine    SnapshotEvaluator
	latencies *utils.LatencyTracker
}

// NewEngineService constructs the engine facade.
func NewEngineService(logger *slog.Logger, eng SnapshotEvaluator) *EngineService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EngineService{
		logger:    logger,
		engine:    eng,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Evaluate handles the gRPC call.
func (s *EngineService) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	snap, err := api.FromProtoSnapshot(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ev, err := s.EvaluateSnapshot(ctx, snap)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSnapshot) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, "evaluation failed")
	}

	resp, err := api.ToProtoEvaluation(ev)
	if err != nil {
		s.logger.Error("encode evaluation failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode evaluation")
	}
	return resp, nil
}

// EvaluateSnapshot runs the engine, grades system health and records metrics.
func (s *EngineService) EvaluateSnapshot(ctx context.Context, snap models.FlightSnapshot) (models.Evaluation, error) {
	if s.engine == nil {
		return models.Evaluation{}, errors.New("rule engine not configured")
	}
	if err := ctx.Err(); err != nil {
		return models.Evaluation{}, err
	}

	start := time.Now()
	records, err := s.engine.Evaluate(snap)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveEvaluation(duration, metrics.OutcomeInvalid, nil)
		s.logger.Debug("snapshot rejected", slog.Any("error", err))
		return models.Evaluation{}, utils.WrapOp("evaluate", "snapshot rejected", err)
	}

	metrics.ObserveEvaluation(duration, metrics.OutcomeSuccess, records)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 100 && count%100 == 0 {
		s.logger.Info("evaluation latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	return models.Evaluation{
		Anomalies:    records,
		SystemHealth: engine.AssessHealth(records),
	}, nil
}

// Rules lists the active rule catalogue.
func (s *EngineService) Rules() []engine.RuleInfo {
	if s.engine == nil {
		return []engine.RuleInfo{}
	}
	return s.engine.Rules()
}

// LatencyP95 returns the current p95 evaluation latency.
func (s *EngineService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}
