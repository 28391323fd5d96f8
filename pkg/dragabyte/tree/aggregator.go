// Package tree accumulates per-directory statistics during a scan and renders
// them into ScanNode snapshots.
//
// An Aggregator is not safe for concurrent use. The walker funnels every
// entry to the single goroutine that owns it.
package tree

import (
	"path/filepath"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// DirStats holds the direct, non-recursive totals of one directory.
type DirStats struct {
	DirectBytes uint64
	DirectFiles uint64
	DirectDirs  uint64
}

// Aggregator is the mutable state of one traversal.
type Aggregator struct {
	root     string
	stats    map[string]*DirStats
	dirs     map[string]struct{}
	children map[string][]string
	files    map[string][]types.ScanFile
	top      *TopFiles
}

// NewAggregator returns an empty aggregator for a scan of root.
func NewAggregator(root string) *Aggregator {
	root = filepath.Clean(root)
	a := &Aggregator{
		root:     root,
		stats:    make(map[string]*DirStats),
		dirs:     make(map[string]struct{}),
		children: make(map[string][]string),
		files:    make(map[string][]types.ScanFile),
		top:      NewTopFiles(DefaultTopFiles),
	}
	a.stats[root] = &DirStats{}
	a.dirs[root] = struct{}{}
	return a
}

// Root returns the cleaned scan root.
func (a *Aggregator) Root() string {
	return a.root
}

// AddDir registers an accepted directory and links it to its parent.
// Registering the root or an already known directory is a no-op.
func (a *Aggregator) AddDir(path string) {
	if _, ok := a.dirs[path]; ok {
		return
	}
	a.dirs[path] = struct{}{}
	a.statsFor(path)

	parent := filepath.Dir(path)
	a.children[parent] = append(a.children[parent], path)
	a.statsFor(parent).DirectDirs++
}

// AddFile records an accepted file under its parent directory.
func (a *Aggregator) AddFile(path string, size uint64) {
	parent := filepath.Dir(path)
	a.files[parent] = append(a.files[parent], types.ScanFile{
		Path:      path,
		Name:      filepath.Base(path),
		SizeBytes: size,
	})
	a.top.Offer(path, size)

	s := a.statsFor(parent)
	s.DirectBytes += size
	s.DirectFiles++
}

// Stats returns the direct totals recorded for path.
func (a *Aggregator) Stats(path string) (DirStats, bool) {
	s, ok := a.stats[path]
	if !ok {
		return DirStats{}, false
	}
	return *s, true
}

// Children returns the child directories of path in discovery order.
func (a *Aggregator) Children(path string) []string {
	return a.children[path]
}

// LargestFiles returns the largest files seen so far.
func (a *Aggregator) LargestFiles() []types.ScanFile {
	return a.top.Files()
}

func (a *Aggregator) statsFor(path string) *DirStats {
	s, ok := a.stats[path]
	if !ok {
		s = &DirStats{}
		a.stats[path] = s
	}
	return s
}
