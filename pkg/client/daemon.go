package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/dragabyte/pkg/daemon"
	"github.com/jamesainslie/dragabyte/pkg/daemon/protocol"
)

// DaemonBinary is the headless hub executable name.
const DaemonBinary = "dragabyted"

// DaemonPaths configures paths for managing a headless hub. Empty fields use
// daemon.DefaultPaths.
type DaemonPaths struct {
	Binary string // dragabyted executable (auto-discovered if empty)
	PID    string
	Status string
}

func (p DaemonPaths) withDefaults() DaemonPaths {
	defaults := daemon.DefaultPaths()
	if p.PID == "" {
		p.PID = defaults.PID
	}
	if p.Status == "" {
		p.Status = defaults.Status
	}
	return p
}

// StartDaemon launches dragabyted in the background with args and waits for
// its status file to report ready or error. It returns the bound address.
// Idempotent: a running hub is left alone and its recorded address returned.
func StartDaemon(paths DaemonPaths, args ...string) (string, error) {
	paths = paths.withDefaults()

	if daemon.IsRunning(paths.PID) {
		if status, err := daemon.ReadStatus(paths.Status); err == nil {
			return status.Bind, nil
		}
		return "", nil
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return "", fmt.Errorf("find %s: %w", DaemonBinary, err)
	}

	_ = daemon.RemoveStatus(paths.Status)

	args = append(args, "--pid-file", paths.PID, "--status-file", paths.Status)

	// exec.Command rather than CommandContext: the hub must outlive the caller.
	cmd := exec.Command(binary, args...) //nolint:gosec // binary path is resolved above
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", DaemonBinary, err)
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	for range 50 {
		time.Sleep(100 * time.Millisecond)

		status, err := daemon.ReadStatus(paths.Status)
		if err != nil {
			continue
		}
		switch status.Status {
		case daemon.StatusReady:
			return status.Bind, nil
		case daemon.StatusError:
			return "", fmt.Errorf("%s failed to start: %s", DaemonBinary, status.Error)
		}
	}
	return "", errors.New("hub did not become ready within timeout")
}

// StopDaemon asks the headless hub to shut down over its own protocol and
// waits for the process to exit. Idempotent: returns nil if nothing runs.
func StopDaemon(ctx context.Context, paths DaemonPaths, token string) error {
	paths = paths.withDefaults()

	if !daemon.IsRunning(paths.PID) {
		return nil
	}

	status, err := daemon.ReadStatus(paths.Status)
	if err != nil {
		return fmt.Errorf("read hub status: %w", err)
	}
	if status.Bind == "" {
		return errors.New("hub address unknown")
	}

	reply, err := Request(ctx, status.Bind, token, map[string]any{"action": protocol.ActionShutdown})
	if err != nil {
		return fmt.Errorf("shutdown hub: %w", err)
	}
	if reply["event"] != protocol.EventShutdown {
		return fmt.Errorf("shutdown refused: %v", reply["message"])
	}

	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !daemon.IsRunning(paths.PID) {
			return nil
		}
	}
	return errors.New("hub did not stop within timeout")
}

// Request sends req to the hub at address and returns the first reply
// carrying the same id. A random id is assigned when req has none. It is a
// synchronous convenience over Client for scripts and process control.
func Request(ctx context.Context, address, token string, req map[string]any) (map[string]any, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	id, ok := req["id"].(string)
	if !ok {
		id = uuid.New().String()
		req["id"] = id
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	replies := make(chan map[string]any, 1)
	sink := SinkFuncs{Event: func(event map[string]any) {
		if event["id"] != id {
			return
		}
		select {
		case replies <- event:
		default:
		}
	}}

	c := New(sink)
	if err := c.Connect(ctx, host, uint16(port), token); err != nil {
		return nil, err
	}
	defer c.Disconnect()

	if err := c.Send(payload); err != nil {
		return nil, err
	}

	select {
	case reply := <-replies:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SinkFuncs adapts optional callbacks to Sink.
type SinkFuncs struct {
	Event  func(map[string]any)
	Status func(Status)
}

// RemoteEvent calls Event when set.
func (f SinkFuncs) RemoteEvent(event map[string]any) {
	if f.Event != nil {
		f.Event(event)
	}
}

// RemoteStatus calls Status when set.
func (f SinkFuncs) RemoteStatus(status Status) {
	if f.Status != nil {
		f.Status(status)
	}
}

// resolveBinary finds dragabyted: the configured path, then next to the
// running executable, then PATH.
func resolveBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), DaemonBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(DaemonBinary); err == nil {
		return path, nil
	}

	return "", errors.New(DaemonBinary + " not found")
}
