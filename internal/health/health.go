// Package health exposes the standard gRPC health service, driven by
// periodic database pings.
package health

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"archivist/internal/logger"
)

// Service is the name reported alongside the overall ("") status.
const Service = "archivist"

// DefaultInterval is how often the reporter pings the store.
const DefaultInterval = 10 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Reporter struct {
	pinger   Pinger
	server   *health.Server
	interval time.Duration
}

func NewReporter(p Pinger, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{pinger: p, server: health.NewServer(), interval: interval}
}

// Server returns the health service implementation to register.
func (r *Reporter) Server() *health.Server {
	return r.server
}

// Check pings once and publishes the result.
func (r *Reporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := r.pinger.Ping(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		logger.For(ctx).WithError(err).Warn("health.ping.failed")
	}
	r.server.SetServingStatus("", status)
	r.server.SetServingStatus(Service, status)
	return status
}

// Run checks immediately and then every interval until ctx is done, when
// all services are marked NOT_SERVING.
func (r *Reporter) Run(ctx context.Context) {
	r.Check(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}

// NewGRPCServer returns a gRPC server with the health service registered.
func NewGRPCServer(r *Reporter) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, r.Server())
	return s
}

// Serve runs s on lis until ctx is done, then stops it gracefully.
func Serve(ctx context.Context, s *grpc.Server, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
