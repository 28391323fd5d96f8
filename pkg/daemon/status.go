package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// StatusFile reports the outcome of headless startup to whoever launched
// the process.
type StatusFile struct {
	Status string `json:"status"`          // "ready" or "error"
	PID    int    `json:"pid,omitempty"`   // set when ready
	Bind   string `json:"bind,omitempty"`  // listener address when ready
	Error  string `json:"error,omitempty"` // set on error
}

// Status values.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// WriteStatusReady records a ready hub listening on bind.
func WriteStatusReady(path, bind string) error {
	return writeStatus(path, &StatusFile{
		Status: StatusReady,
		PID:    os.Getpid(),
		Bind:   bind,
	})
}

// WriteStatusError records a startup failure.
func WriteStatusError(path string, err error) error {
	return writeStatus(path, &StatusFile{
		Status: StatusError,
		Error:  err.Error(),
	})
}

func writeStatus(path string, status *StatusFile) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// StartDaemon polls this file; rename so it never reads a partial write.
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadStatus reads a status file.
func ReadStatus(path string) (*StatusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status StatusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RemoveStatus removes the status file.
func RemoveStatus(path string) error {
	return os.Remove(path)
}

// StatusPath returns the status file path for a data directory.
func StatusPath(dataDir string) string {
	return filepath.Join(dataDir, "dragabyte.status")
}
