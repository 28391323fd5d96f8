package logging_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    log.Level
		wantErr bool
	}{
		{input: "debug", want: log.DebugLevel},
		{input: "INFO", want: log.InfoLevel},
		{input: "", want: log.InfoLevel},
		{input: "warning", want: log.WarnLevel},
		{input: "error", want: log.ErrorLevel},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, logging.ErrInvalidLevel) {
					t.Errorf("ParseLevel(%q) error = %v, want ErrInvalidLevel", tt.input, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// These tests touch global state and must not run in parallel.

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")
	before := logging.Get("early")

	if err := logging.Init(logging.Config{Level: "debug", Path: path}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = logging.Close() })

	logging.Get("scanner").Info("scan started", "root", "/data")
	before.Debug("rebuilt after init")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	for _, want := range []string{"scanner", "scan started", "root=/data", "rebuilt after init"} {
		if !strings.Contains(content, want) {
			t.Errorf("log file missing %q:\n%s", want, content)
		}
	}
}

func TestInit_ComponentLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	err := logging.Init(logging.Config{
		Level:      "info",
		Path:       path,
		Components: map[string]string{"hub": "error"},
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = logging.Close() })

	logging.Get("hub").Info("hidden message")
	logging.Get("hub").Error("visible message")

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden message") {
		t.Error("component override did not suppress info")
	}
	if !strings.Contains(string(data), "visible message") {
		t.Error("component override dropped error")
	}
}

func TestInit_InvalidLevels(t *testing.T) {
	dir := t.TempDir()
	cases := []logging.Config{
		{Level: "nope", Path: filepath.Join(dir, "a.log")},
		{Level: "info", Path: filepath.Join(dir, "b.log"), ConsoleLevel: "nope"},
		{Level: "info", Path: filepath.Join(dir, "c.log"), Components: map[string]string{"x": "nope"}},
	}
	for _, cfg := range cases {
		if err := logging.Init(cfg); err == nil {
			t.Errorf("Init(%+v) expected error", cfg)
		}
	}
}

func TestGet_SameInstance(t *testing.T) {
	if logging.Get("same") != logging.Get("same") {
		t.Error("Get should return the same logger for a component")
	}
}

func TestClose_Idempotent(t *testing.T) {
	if err := logging.Init(logging.Config{Path: "-"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := logging.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := logging.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	logging.Get("after").Info("discarded")
}

func TestDefaultLogPath(t *testing.T) {
	path := logging.DefaultLogPath()
	if filepath.Base(path) != "dragabyte.log" {
		t.Errorf("DefaultLogPath() = %q", path)
	}
}
