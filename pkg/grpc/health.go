package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/example/farmmarket/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const probeTimeout = 3 * time.Second

// Probe checks one dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthServer exposes the standard gRPC health service. The overall status and the
// named service are SERVING only while every probe passes.
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	service string
	probes  []Probe
	config  config.GRPCConfig
	logger  *zap.Logger
}

func NewHealthServer(cfg config.GRPCConfig, service string, logger *zap.Logger, probes ...Probe) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		server:  srv,
		health:  hs,
		service: service,
		probes:  probes,
		config:  cfg,
		logger:  logger.Named("health"),
	}
}

// Listen binds the configured address and serves until Stop.
func (s *HealthServer) Listen() error {
	addr := s.config.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.logger.Info("Health service started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Probe runs every probe once and publishes the result.
func (s *HealthServer) Probe(ctx context.Context) bool {
	healthy := true
	for _, p := range s.probes {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := p.Check(pctx)
		cancel()
		if err != nil {
			healthy = false
			s.logger.Warn("Dependency check failed", zap.String("dependency", p.Name), zap.Error(err))
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
	return healthy
}

// Watch probes immediately and then every ProbeInterval until ctx is done.
func (s *HealthServer) Watch(ctx context.Context) {
	interval := s.config.ProbeInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
