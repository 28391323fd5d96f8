package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriter_RotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	w, err := newRotatingWriter(path, 64)
	if err != nil {
		t.Fatalf("newRotatingWriter() error = %v", err)
	}
	defer w.Close()

	line := []byte(strings.Repeat("x", 40) + "\n")
	for i := 0; i < 3; i++ {
		if _, err := w.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	rotated, _ := filepath.Glob(filepath.Join(dir, "app.*.log"))
	if len(rotated) == 0 {
		t.Fatal("expected at least one rotated file")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() > 64 {
		t.Errorf("active log size = %d, want <= 64", info.Size())
	}
}

func TestRotatingWriter_PrunesBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	for _, name := range []string{"app.20200101-000000.000.log", "app.20200102-000000.000.log", "app.20200103-000000.000.log", "app.20200104-000000.000.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w := &rotatingWriter{path: path}
	w.prune()

	matches, _ := filepath.Glob(filepath.Join(dir, "app.*.log"))
	if len(matches) != maxBackups {
		t.Fatalf("backups = %v, want %d", matches, maxBackups)
	}
	if _, err := os.Stat(filepath.Join(dir, "app.20200101-000000.000.log")); !os.IsNotExist(err) {
		t.Error("oldest backup should have been removed")
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := newRotatingWriter(filepath.Join(t.TempDir(), "a.log"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("Write after Close should fail")
	}
}
