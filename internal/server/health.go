package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check probes one dependency. A nil error means it is serving.
type Check func(ctx context.Context) error

// HealthService serves the standard gRPC health protocol. Each named check
// is exposed as its own service name; the empty name reports SERVING only
// when every check passes.
type HealthService struct {
	addr     string
	checks   map[string]Check
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	grpc   *grpc.Server
	health *health.Server

	mu       sync.Mutex
	listener net.Listener
	quit     chan struct{}
	stopped  bool
}

// NewHealthService creates a HealthService listening on addr that reruns
// checks every interval.
//
// Precondition: addr must be a "host:port" address; interval must be > 0.
// Postcondition: Returns a HealthService ready to be started.
func NewHealthService(addr string, checks map[string]Check, interval time.Duration, logger *zap.Logger) *HealthService {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthService{
		addr:     addr,
		checks:   checks,
		interval: interval,
		timeout:  min(interval, 2*time.Second),
		logger:   logger,
		grpc:     srv,
		health:   hs,
		quit:     make(chan struct{}),
	}
}

// Start listens on the configured address and serves until Stop is called.
//
// Postcondition: Returns nil after Stop, or the listen/serve error.
func (h *HealthService) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		lis.Close()
		return nil
	}
	h.listener = lis
	h.mu.Unlock()

	h.Refresh(context.Background())
	go h.poll()

	h.logger.Info("health service listening", zap.String("addr", lis.Addr().String()))
	if err := h.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serving health: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops the gRPC server gracefully.
func (h *HealthService) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	close(h.quit)
	h.mu.Unlock()

	h.health.Shutdown()
	h.grpc.GracefulStop()
}

// Addr returns the listening address, or empty string if not yet listening.
func (h *HealthService) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Refresh runs every check once and publishes the results.
func (h *HealthService) Refresh(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		status := healthpb.HealthCheckResponse_SERVING
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := check(cctx)
		cancel()
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
		}
		h.health.SetServingStatus(name, status)
	}
	h.health.SetServingStatus("", overall)
}

func (h *HealthService) poll() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			h.Refresh(context.Background())
		}
	}
}
