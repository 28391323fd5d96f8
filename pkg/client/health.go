package client

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jamesainslie/dragabyte/pkg/daemon"
)

// CheckHealth queries the hub health service on socketPath.
func CheckHealth(ctx context.Context, socketPath string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health socket not found at %s", socketPath)
	}

	conn, err := grpc.NewClient("unix://"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("dial health socket: %w", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: daemon.HealthService})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check: %w", err)
	}
	return resp.GetStatus(), nil
}
