// Package volume reports capacity of the filesystem holding a path and
// enumerates platform roots.
package volume

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// ErrPathNotFound indicates that the queried path does not exist.
var ErrPathNotFound = errors.New("path-not-found")

// ErrUsageFailed wraps platform failures while querying capacity.
var ErrUsageFailed = errors.New("disk-usage-failed")

// Usage returns total and free bytes for the volume containing path. Free
// bytes are those available to unprivileged callers.
func Usage(path string) (types.DiskUsageSnapshot, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.DiskUsageSnapshot{}, ErrPathNotFound
		}
		return types.DiskUsageSnapshot{}, fmt.Errorf("%w: %v", ErrUsageFailed, err)
	}

	total, free, err := statVolume(path)
	if err != nil {
		return types.DiskUsageSnapshot{}, fmt.Errorf("%w: %v", ErrUsageFailed, err)
	}
	return types.DiskUsageSnapshot{Path: path, TotalBytes: total, FreeBytes: free}, nil
}

// Root is one entry of the platform root listing.
type Root struct {
	Name string
	Path string
}
