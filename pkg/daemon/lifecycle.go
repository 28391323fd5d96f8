package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
)

// Paths locates the files a headless hub process maintains.
type Paths struct {
	PID    string
	Status string
	Health string
}

// DefaultPaths places every file under $XDG_DATA_HOME/dragabyte.
func DefaultPaths() Paths {
	dir := filepath.Join(xdg.DataHome, "dragabyte")
	return Paths{
		PID:    filepath.Join(dir, "dragabyte.pid"),
		Status: StatusPath(dir),
		Health: filepath.Join(dir, "health.sock"),
	}
}

// WritePIDFile writes the current process ID to path, creating its
// directory.
func WritePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPIDFile reads a PID from path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(path string) error {
	return os.Remove(path)
}

// IsRunning reports whether the process named by the PID file is alive.
func IsRunning(pidPath string) bool {
	pid, err := ReadPIDFile(pidPath)
	if err != nil || pid <= 0 {
		return false
	}

	return ProcessAlive(pid)
}

// ErrAlreadyRunning is returned when a headless hub is already running.
var ErrAlreadyRunning = errors.New("dragabyte hub already running")
