package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server exposes the standard grpc health service so mesh probes can check
// liveness without going through the HTTP surface.
type Server struct {
	logger *slog.Logger
	server *grpc.Server
	health *health.Server
	addr   string
}

func NewServer(logger *slog.Logger, addr string) *Server {
	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	return &Server{logger: logger, server: server, health: healthServer, addr: addr}
}

func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", s.addr, err)
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	go func() {
		<-ctx.Done()
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		s.server.GracefulStop()
	}()
	s.logger.Info("grpc health server listening", "module", "grpc.server", "layer", "adapter", "addr", s.addr)
	if err := s.server.Serve(listener); err != nil {
		return fmt.Errorf("serve grpc: %w", err)
	}
	return nil
}
