package api

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/flightwatch/internal/config"
	"github.com/miradorstack/flightwatch/internal/engine"
	"github.com/miradorstack/flightwatch/internal/models"
)

type structEvaluator struct {
	eval engineEvaluator
}

func (s structEvaluator) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	snap, err := FromProtoSnapshot(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	ev, err := s.eval.EvaluateSnapshot(ctx, snap)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return ToProtoEvaluation(ev)
}

func TestServerRoundTrip(t *testing.T) {
	srv, err := NewServer(config.ServerConfig{Address: "127.0.0.1:0", GracefulTimeout: time.Second},
		structEvaluator{eval: engineEvaluator{eng: engine.NewRuleEngine()}})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	go func() { _ = srv.Start() }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), srv.GracefulTimeout())
		defer cancel()
		srv.Shutdown(ctx)
	}()

	conn, err := grpc.NewClient(srv.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: AnomalyEngineServiceName})
	if err != nil || hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health check: %v %v", hc.GetStatus(), err)
	}

	client := NewAnomalyEngineClient(conn)
	req, _ := ToProtoSnapshot(approachSnapshot())
	resp, err := client.Evaluate(ctx, req)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	ev, err := FromProtoEvaluation(resp)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.SystemHealth != models.HealthCritical || len(ev.Anomalies) != 1 {
		t.Fatalf("unexpected evaluation: %+v", ev)
	}

	bad, _ := structpb.NewStruct(map[string]any{models.ParamAltitude: 3000.0})
	if _, err := client.Evaluate(ctx, bad); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
