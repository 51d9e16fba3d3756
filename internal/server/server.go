// Package server exposes the order pipeline over gRPC. Messages are plain Go
// structs carried with a JSON codec.
package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/voice-orders/internal/observe"
)

// NewGRPCServer registers both services and the standard health service.
// The health server reports SERVING; callers flip it on shutdown.
func NewGRPCServer(orders *OrderServer, history *HistoryServer, metrics *observe.Metrics, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryInterceptor(logger, metrics))}, opts...)
	gs := grpc.NewServer(opts...)

	RegisterOrderServiceServer(gs, orders)
	RegisterHistoryServiceServer(gs, history)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	for _, name := range []string{"", OrderServiceName, HistoryServiceName} {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	return gs, hs
}
