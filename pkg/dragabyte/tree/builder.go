package tree

import (
	"cmp"
	"path/filepath"
	"slices"
	"time"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// Mode selects how much of the aggregated tree a snapshot renders.
type Mode int

const (
	// ModeCompact renders only the root's immediate children, without files,
	// capped at CompactChildLimit children sorted by name. Used for progress.
	ModeCompact Mode = iota
	// ModeFull renders the whole tree with every accepted file. Used for the
	// final summary.
	ModeFull
)

// CompactChildLimit caps the number of children listed in compact snapshots.
const CompactChildLimit = 400

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "compact"
}

// Snapshot renders the current state rooted at the scan root. Counts are
// recomputed bottom-up on every call and the aggregator is left untouched.
func (a *Aggregator) Snapshot(mode Mode) types.ScanNode {
	return a.build(a.root, 0, mode)
}

// Summary renders a snapshot and wraps it with root totals, the largest files
// and the elapsed time.
func (a *Aggregator) Summary(mode Mode, elapsed time.Duration, id *string) types.ScanSummary {
	root := a.Snapshot(mode)
	return types.ScanSummary{
		ID:           id,
		Root:         root,
		TotalBytes:   root.SizeBytes,
		FileCount:    root.FileCount,
		DirCount:     root.DirCount,
		LargestFiles: a.LargestFiles(),
		DurationMs:   uint64(elapsed.Milliseconds()),
	}
}

func (a *Aggregator) build(path string, depth int, mode Mode) types.ScanNode {
	node := types.ScanNode{
		Path:     path,
		Name:     filepath.Base(path),
		Files:    []types.ScanFile{},
		Children: []types.ScanNode{},
	}

	if s, ok := a.stats[path]; ok {
		node.SizeBytes = s.DirectBytes
		node.FileCount = s.DirectFiles
	}

	keepChildren := mode == ModeFull || depth == 0
	for _, childPath := range a.children[path] {
		child := a.build(childPath, depth+1, mode)
		node.SizeBytes += child.SizeBytes
		node.FileCount += child.FileCount
		node.DirCount += 1 + child.DirCount

		if !keepChildren {
			continue
		}
		if mode == ModeCompact && len(node.Children) >= CompactChildLimit {
			continue
		}
		node.Children = append(node.Children, child)
	}

	if mode == ModeCompact {
		slices.SortFunc(node.Children, func(x, y types.ScanNode) int {
			return cmp.Compare(x.Name, y.Name)
		})
		return node
	}

	slices.SortFunc(node.Children, func(x, y types.ScanNode) int {
		if c := cmp.Compare(y.SizeBytes, x.SizeBytes); c != 0 {
			return c
		}
		return cmp.Compare(x.Name, y.Name)
	})

	if files := a.files[path]; len(files) > 0 {
		node.Files = slices.Clone(files)
		slices.SortStableFunc(node.Files, func(x, y types.ScanFile) int {
			if c := cmp.Compare(y.SizeBytes, x.SizeBytes); c != 0 {
				return c
			}
			return cmp.Compare(x.Name, y.Name)
		})
	}
	return node
}
