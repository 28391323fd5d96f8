// Package types holds the data model shared by the dragabyte walker, the
// control hub and the CLI: scan files, tree nodes, summaries and disk usage
// snapshots, plus helpers for parsing and formatting byte sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// ScanFile is a single file observed during a scan.
type ScanFile struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	SizeBytes uint64 `json:"sizeBytes"`
}

// ScanNode is one directory in a snapshot tree.
//
// SizeBytes and FileCount include every descendant that passed the filters.
// DirCount counts descendant directories, not the node itself.
type ScanNode struct {
	Path      string     `json:"path"`
	Name      string     `json:"name"`
	SizeBytes uint64     `json:"sizeBytes"`
	FileCount uint64     `json:"fileCount"`
	DirCount  uint64     `json:"dirCount"`
	Files     []ScanFile `json:"files"`
	Children  []ScanNode `json:"children"`
}

// ScanSummary is the payload of progress and completion events.
type ScanSummary struct {
	// ID correlates the summary with the request that started the scan.
	ID *string `json:"id,omitempty"`

	Root         ScanNode   `json:"root"`
	TotalBytes   uint64     `json:"totalBytes"`
	FileCount    uint64     `json:"fileCount"`
	DirCount     uint64     `json:"dirCount"`
	LargestFiles []ScanFile `json:"largestFiles"`
	DurationMs   uint64     `json:"durationMs"`
}

// DiskUsageSnapshot reports capacity for the volume containing Path.
type DiskUsageSnapshot struct {
	Path       string `json:"path"`
	TotalBytes uint64 `json:"totalBytes"`
	FreeBytes  uint64 `json:"freeBytes"`
}

// UsedBytes returns TotalBytes minus FreeBytes, clamped at zero.
func (d DiskUsageSnapshot) UsedBytes() uint64 {
	if d.FreeBytes > d.TotalBytes {
		return 0
	}
	return d.TotalBytes - d.FreeBytes
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GiB".
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// Units are binary: "10K" is 10240 bytes and "1.5G" is 1.5 GiB. The suffix may
// be written as "K", "KB" or "KiB" in any case. Fractions are truncated.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	unit := strings.ToUpper(matches[2])
	unit = strings.TrimSuffix(unit, "IB")
	unit = strings.TrimSuffix(unit, "B")

	var multiplier int64
	switch unit {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, unit)
	}

	return uint64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable IEC string,
// e.g. FormatSize(1536) returns "1.5 KiB".
func FormatSize(bytes uint64) string {
	return humanize.IBytes(bytes)
}
