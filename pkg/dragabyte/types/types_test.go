package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{name: "plain bytes", input: "1024", want: 1024},
		{name: "zero bytes", input: "0", want: 0},
		{name: "bytes with B suffix", input: "512B", want: 512},
		{name: "kilobytes", input: "100K", want: 100 * 1024},
		{name: "kilobytes with iB", input: "100KiB", want: 100 * 1024},
		{name: "megabytes lowercase", input: "50m", want: 50 * 1024 * 1024},
		{name: "gigabytes with B", input: "2GB", want: 2 * 1024 * 1024 * 1024},
		{name: "terabytes", input: "1T", want: 1024 * 1024 * 1024 * 1024},
		{name: "surrounding whitespace", input: "  100M  ", want: 100 * 1024 * 1024},
		{name: "decimal values truncated", input: "1.5G", want: 1610612736},

		{name: "empty string", input: "", wantErr: true},
		{name: "invalid suffix", input: "100X", wantErr: true},
		{name: "negative value", input: "-100M", wantErr: true},
		{name: "suffix only", input: "M", wantErr: true},
		{name: "invalid format", input: "100M100", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSize_ErrorKinds(t *testing.T) {
	if _, err := ParseSize("-1"); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("ParseSize(-1) error = %v, want ErrNegativeSize", err)
	}
	if _, err := ParseSize("abc"); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("ParseSize(abc) error = %v, want ErrInvalidSize", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1024, "1.0 KiB"},
		{1536 * 1024, "1.5 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestScanSummary_JSONFieldNames(t *testing.T) {
	id := "req-1"
	summary := ScanSummary{
		ID:           &id,
		Root:         ScanNode{Path: "/a", Name: "a"},
		TotalBytes:   10,
		LargestFiles: []ScanFile{{Path: "/a/f", Name: "f", SizeBytes: 10}},
	}

	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, key := range []string{`"id":"req-1"`, `"totalBytes":10`, `"largestFiles"`, `"durationMs"`, `"sizeBytes":10`, `"dirCount"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded summary %s missing %s", data, key)
		}
	}
}

func TestScanSummary_OmitsEmptyID(t *testing.T) {
	data, err := json.Marshal(ScanSummary{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), `"id"`) {
		t.Errorf("encoded summary %s should not contain id", data)
	}
}

func TestDiskUsageSnapshot_UsedBytes(t *testing.T) {
	if got := (DiskUsageSnapshot{TotalBytes: 100, FreeBytes: 30}).UsedBytes(); got != 70 {
		t.Errorf("UsedBytes() = %d, want 70", got)
	}
	if got := (DiskUsageSnapshot{TotalBytes: 10, FreeBytes: 30}).UsedBytes(); got != 0 {
		t.Errorf("UsedBytes() = %d, want 0", got)
	}
}

func TestStringPtr(t *testing.T) {
	if StringPtr("") != nil {
		t.Error("StringPtr(\"\") should be nil")
	}
	if p := StringPtr("x"); p == nil || *p != "x" {
		t.Errorf("StringPtr(\"x\") = %v", p)
	}
}
