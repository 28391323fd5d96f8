package daemon

import (
	"os"
	"syscall"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
)

// RecoverStale removes the files left behind by a hub that died without
// cleaning up. Missing or unreadable PID files need no recovery. It returns
// ErrAlreadyRunning when the recorded process is still alive.
func RecoverStale(paths Paths) error {
	pid, err := ReadPIDFile(paths.PID)
	if err != nil || pid <= 0 {
		return nil //nolint:nilerr // no usable PID file means nothing to recover
	}
	if ProcessAlive(pid) {
		return ErrAlreadyRunning
	}

	logging.Get("hub").Warn("cleaning up stale hub files", "stale_pid", pid)
	for _, path := range []string{paths.PID, paths.Status, paths.Health} {
		if path != "" {
			_ = os.Remove(path)
		}
	}
	return nil
}

// ProcessAlive reports whether a process with pid exists.
func ProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return process.Signal(syscall.Signal(0)) == nil
}
