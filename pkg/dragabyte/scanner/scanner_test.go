package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/filter"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// createTestDir builds:
//
//	root/
//	  small.txt    10 B
//	  large.bin    4096 B
//	  empty.txt    0 B
//	  subdir/
//	    medium.log 1024 B
//	    nested/
//	      big.bin  8192 B
//	  node_modules/
//	    dep.js     2048 B
func createTestDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]int{
		"small.txt":             10,
		"large.bin":             4096,
		"empty.txt":             0,
		"subdir/medium.log":     1024,
		"subdir/nested/big.bin": 8192,
		"node_modules/dep.js":   2048,
	}
	for rel, size := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", path, err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return root
}

func mustConfig(t *testing.T, opts Options) *Config {
	t.Helper()
	cfg, err := NewConfig(opts)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	return cfg
}

func finalSummary(t *testing.T, rec *Recorder) *types.ScanSummary {
	t.Helper()
	last, ok := rec.Last()
	if !ok {
		t.Fatal("no events emitted")
	}
	if last.Kind != KindComplete {
		t.Fatalf("last event = %v, want %v", last.Kind, KindComplete)
	}
	if last.Summary == nil {
		t.Fatal("complete event without summary")
	}
	return last.Summary
}

func TestRun_Totals(t *testing.T) {
	root := createTestDir(t)
	rec := &Recorder{}

	id := "scan-1"
	if err := Run(context.Background(), root, mustConfig(t, DefaultOptions()), NewToken(), rec, &id); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	s := finalSummary(t, rec)
	if want := uint64(10 + 4096 + 1024 + 8192 + 2048); s.TotalBytes != want {
		t.Errorf("TotalBytes = %d, want %d", s.TotalBytes, want)
	}
	if s.FileCount != 6 {
		t.Errorf("FileCount = %d, want 6", s.FileCount)
	}
	if s.DirCount != 3 {
		t.Errorf("DirCount = %d, want 3", s.DirCount)
	}
	if s.ID == nil || *s.ID != "scan-1" {
		t.Errorf("ID = %v, want scan-1", s.ID)
	}
	if len(s.LargestFiles) != 5 {
		t.Errorf("LargestFiles = %d entries, want 5 (zero-size excluded)", len(s.LargestFiles))
	}
	if s.LargestFiles[0].Name != "big.bin" {
		t.Errorf("largest file = %q, want big.bin", s.LargestFiles[0].Name)
	}
	if s.Root.Path != filepath.Clean(root) {
		t.Errorf("Root.Path = %q, want %q", s.Root.Path, root)
	}
}

func TestRun_Filters(t *testing.T) {
	root := createTestDir(t)

	tests := []struct {
		name      string
		spec      filter.Spec
		wantBytes uint64
		wantDirs  uint64
	}{
		{
			name:      "exclude dir name prunes subtree",
			spec:      filter.Spec{ExcludeNames: []string{"node_modules"}},
			wantBytes: 10 + 4096 + 1024 + 8192,
			wantDirs:  2,
		},
		{
			name:      "include extension",
			spec:      filter.Spec{IncludeExtensions: []string{"bin"}},
			wantBytes: 4096 + 8192,
			wantDirs:  3,
		},
		{
			name:      "size bounds",
			spec:      filter.Spec{MinSizeBytes: ptr[uint64](1024), MaxSizeBytes: ptr[uint64](4096)},
			wantBytes: 4096 + 1024 + 2048,
			wantDirs:  3,
		},
		{
			name:      "exclude path regex",
			spec:      filter.Spec{ExcludeRegex: ptr(`nested`)},
			wantBytes: 10 + 4096 + 1024 + 2048,
			wantDirs:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			cfg := mustConfig(t, Options{Filters: tt.spec})
			if err := Run(context.Background(), root, cfg, NewToken(), rec, nil); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			s := finalSummary(t, rec)
			if s.TotalBytes != tt.wantBytes {
				t.Errorf("TotalBytes = %d, want %d", s.TotalBytes, tt.wantBytes)
			}
			if s.DirCount != tt.wantDirs {
				t.Errorf("DirCount = %d, want %d", s.DirCount, tt.wantDirs)
			}
		})
	}
}

func TestRun_ProgressIsMonotonic(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 40; i++ {
		dir := filepath.Join(root, fmt.Sprintf("d%02d", i%5))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%02d", i)), make([]byte, i+1), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := mustConfig(t, Options{PriorityMode: PriorityPerformance})
	cfg.EmitEvery = 1
	rec := &Recorder{}
	if err := Run(context.Background(), root, cfg, NewToken(), rec, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var last uint64
	progress := 0
	for _, e := range rec.Events() {
		if e.Kind != KindProgress {
			continue
		}
		progress++
		if e.Summary.TotalBytes < last {
			t.Fatalf("progress total went from %d to %d", last, e.Summary.TotalBytes)
		}
		last = e.Summary.TotalBytes
		if len(e.Summary.Root.Files) != 0 {
			t.Error("progress snapshots should not list files")
		}
	}
	if progress == 0 {
		t.Error("expected progress events")
	}
	if got := finalSummary(t, rec).TotalBytes; got != 40*41/2 {
		t.Errorf("TotalBytes = %d, want %d", got, 40*41/2)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	root := createTestDir(t)
	token := NewToken()
	token.Cancel()

	rec := &Recorder{}
	if err := Run(context.Background(), root, mustConfig(t, DefaultOptions()), token, rec, nil); err != nil {
		t.Fatalf("Run() error = %v, cancellation is not an error", err)
	}

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want exactly 1", len(events))
	}
	if events[0].Kind != KindCancelled || events[0].Message != CancelledMessage {
		t.Errorf("event = %+v, want cancelled", events[0])
	}
}

func TestRun_CancelDuringScan(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 200; i++ {
		if err := os.WriteFile(filepath.Join(root, fmt.Sprintf("f%03d", i)), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := mustConfig(t, Options{PriorityMode: PriorityLow})
	cfg.EmitEvery = 10
	token := NewToken()

	var events []Event
	emit := EmitterFunc(func(e Event) {
		events = append(events, e)
		if e.Kind == KindProgress {
			token.Cancel()
		}
	})

	if err := Run(context.Background(), root, cfg, token, emit, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	cancelled := 0
	for _, e := range events {
		switch e.Kind {
		case KindCancelled:
			cancelled++
		case KindComplete:
			t.Error("cancelled scan must not complete")
		}
	}
	if cancelled != 1 {
		t.Errorf("cancelled events = %d, want 1", cancelled)
	}
	if events[len(events)-1].Kind != KindCancelled {
		t.Errorf("last event = %v, want cancelled", events[len(events)-1].Kind)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	root := createTestDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &Recorder{}
	if err := Run(ctx, root, mustConfig(t, DefaultOptions()), NewToken(), rec, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if last, _ := rec.Last(); last.Kind != KindCancelled {
		t.Errorf("last event = %v, want cancelled", last.Kind)
	}
}

func TestRun_Throttled(t *testing.T) {
	root := createTestDir(t)
	cfg := mustConfig(t, Options{ThrottleLevel: ThrottleHigh})
	cfg.Throttle = &Throttle{Every: 1, Sleep: time.Millisecond}

	rec := &Recorder{}
	start := time.Now()
	if err := Run(context.Background(), root, cfg, NewToken(), rec, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("throttled scan finished faster than its sleeps allow")
	}
	finalSummary(t, rec)
}

func TestRun_SkipsSymlinks(t *testing.T) {
	root := createTestDir(t)
	if err := os.Symlink(filepath.Join(root, "large.bin"), filepath.Join(root, "link.bin")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	rec := &Recorder{}
	if err := Run(context.Background(), root, mustConfig(t, DefaultOptions()), NewToken(), rec, nil); err != nil {
		t.Fatal(err)
	}
	if s := finalSummary(t, rec); s.FileCount != 6 {
		t.Errorf("FileCount = %d, want 6", s.FileCount)
	}
}

func TestRun_RootErrors(t *testing.T) {
	cfg := mustConfig(t, DefaultOptions())
	rec := &Recorder{}

	err := Run(context.Background(), filepath.Join(t.TempDir(), "missing"), cfg, NewToken(), rec, nil)
	if !errors.Is(err, ErrPathNotFound) {
		t.Errorf("missing root error = %v, want ErrPathNotFound", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Run(context.Background(), file, cfg, NewToken(), rec, nil); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("file root error = %v, want ErrNotDirectory", err)
	}
	if len(rec.Events()) != 0 {
		t.Error("validation failures should not emit events")
	}
}

func ptr[T any](v T) *T { return &v }
