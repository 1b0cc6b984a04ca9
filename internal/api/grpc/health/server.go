package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/camera-funnel/internal/logger"
)

// Name identifies the listener.
const Name = "grpc-health"

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("health server is already running")

// Server serves grpc.health.v1.Health.
type Server struct {
	address string
	health  *health.Server

	mu   sync.Mutex
	grpc *grpc.Server
	addr net.Addr
	done chan struct{}
}

// NewServer creates a stopped health server. Listeners start as NOT_SERVING.
func NewServer(address string, listeners ...string) *Server {
	h := health.NewServer()
	for _, name := range listeners {
		h.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	return &Server{address: address, health: h}
}

// SetListenerUp implements the listener status sink.
func (s *Server) SetListenerUp(name string, up bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if up {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(name, status)
}

// Check answers a health check in-process.
func (s *Server) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}

	return resp.GetStatus(), nil
}

// Name returns the listener name.
func (s *Server) Name() string {
	return Name
}

// Addr returns the bound address while running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addr
}

// Start binds the address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grpc != nil {
		return ErrAlreadyRunning
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, s.health)

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.ErrorKV(ctx, "gRPC health server failed", "error", err)
		}
	}()

	s.grpc = server
	s.addr = lis.Addr()
	s.done = done

	logger.InfoKV(ctx, "gRPC health server listening", "address", s.addr.String())

	return nil
}

// Stop marks everything NOT_SERVING and stops gracefully. Later status updates are ignored.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server, done := s.grpc, s.done
	s.grpc, s.addr, s.done = nil, nil, nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	s.health.Shutdown()
	server.GracefulStop()
	<-done

	logger.Info(ctx, "gRPC health server stopped")

	return nil
}
