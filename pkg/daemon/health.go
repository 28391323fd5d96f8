package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the service name reported by the health server.
const HealthService = "dragabyte.Hub"

// HealthServer exposes grpc.health.v1 on a Unix socket so supervisors can
// probe a headless hub.
type HealthServer struct {
	path     string
	grpc     *grpc.Server
	health   *health.Server
	listener net.Listener
}

// NewHealthServer listens on socketPath, replacing a stale socket. The hub
// is reported NOT_SERVING until SetServing is called.
func NewHealthServer(socketPath string) (*HealthServer, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", socketPath)
	if err != nil {
		return nil, err
	}

	hs := &HealthServer{
		path:     socketPath,
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		listener: listener,
	}
	healthpb.RegisterHealthServer(hs.grpc, hs.health)
	hs.SetServing(false)
	return hs, nil
}

// Serve blocks until Close.
func (s *HealthServer) Serve() error {
	err := s.grpc.Serve(s.listener)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// SetServing updates both the overall and the hub service status.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(HealthService, status)
}

// Close stops the server and removes the socket.
func (s *HealthServer) Close() error {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	return os.RemoveAll(s.path)
}
