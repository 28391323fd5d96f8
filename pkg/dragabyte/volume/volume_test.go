package volume

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestUsage(t *testing.T) {
	dir := t.TempDir()

	got, err := Usage(dir)
	if err != nil {
		t.Fatalf("Usage(%q) error = %v", dir, err)
	}
	if got.Path != dir {
		t.Errorf("Path = %q, want %q", got.Path, dir)
	}
	if got.TotalBytes == 0 {
		t.Error("TotalBytes should be positive")
	}
	if got.FreeBytes > got.TotalBytes {
		t.Errorf("FreeBytes %d > TotalBytes %d", got.FreeBytes, got.TotalBytes)
	}
}

func TestUsage_PathNotFound(t *testing.T) {
	_, err := Usage(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Usage() error = %v, want ErrPathNotFound", err)
	}
}

func TestOS(t *testing.T) {
	if OS != "unix" && OS != "windows" {
		t.Errorf("OS = %q", OS)
	}
}
