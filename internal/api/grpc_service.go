package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// AnomalyEngineServiceName is the fully qualified gRPC service name.
const AnomalyEngineServiceName = "flightwatch.v1.AnomalyEngine"

const evaluateMethod = "/" + AnomalyEngineServiceName + "/Evaluate"

// AnomalyEngineServer evaluates snapshots carried as google.protobuf.Struct.
type AnomalyEngineServer interface {
	Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAnomalyEngineServer attaches srv to the gRPC registrar.
func RegisterAnomalyEngineServer(s grpc.ServiceRegistrar, srv AnomalyEngineServer) {
	s.RegisterService(&anomalyEngineServiceDesc, srv)
}

func evaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnomalyEngineServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnomalyEngineServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var anomalyEngineServiceDesc = grpc.ServiceDesc{
	ServiceName: AnomalyEngineServiceName,
	HandlerType: (*AnomalyEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flightwatch/v1/anomaly_engine.proto",
}

// AnomalyEngineClient calls a remote AnomalyEngine.
type AnomalyEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewAnomalyEngineClient wraps an established connection.
func NewAnomalyEngineClient(cc grpc.ClientConnInterface) *AnomalyEngineClient {
	return &AnomalyEngineClient{cc: cc}
}

// Evaluate sends one snapshot for evaluation.
func (c *AnomalyEngineClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, evaluateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
