package tree

import (
	"path/filepath"
	"sort"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// DefaultTopFiles is the number of largest files tracked per scan.
const DefaultTopFiles = 10

// TopFiles keeps the N largest files seen so far, ordered by size descending.
// Zero-byte files are never tracked. Files of equal size keep arrival order.
type TopFiles struct {
	limit int
	files []types.ScanFile
}

// NewTopFiles returns a tracker holding at most limit files.
func NewTopFiles(limit int) *TopFiles {
	if limit <= 0 {
		limit = DefaultTopFiles
	}
	return &TopFiles{limit: limit, files: make([]types.ScanFile, 0, limit+1)}
}

// Offer records a file if it ranks among the largest. It returns true when
// the file was kept.
func (t *TopFiles) Offer(path string, size uint64) bool {
	if size == 0 {
		return false
	}
	if len(t.files) >= t.limit && size <= t.files[len(t.files)-1].SizeBytes {
		return false
	}

	i := sort.Search(len(t.files), func(i int) bool {
		return t.files[i].SizeBytes < size
	})
	t.files = append(t.files, types.ScanFile{})
	copy(t.files[i+1:], t.files[i:])
	t.files[i] = types.ScanFile{Path: path, Name: filepath.Base(path), SizeBytes: size}

	if len(t.files) > t.limit {
		t.files = t.files[:t.limit]
	}
	return true
}

// Len returns the number of tracked files.
func (t *TopFiles) Len() int {
	return len(t.files)
}

// Files returns a copy of the tracked files, largest first.
func (t *TopFiles) Files() []types.ScanFile {
	out := make([]types.ScanFile, len(t.files))
	copy(out, t.files)
	return out
}
