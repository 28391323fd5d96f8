package tree_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/tree"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(parts ...string) string {
	return filepath.Join(append([]string{string(filepath.Separator), "scan"}, parts...)...)
}

// sample builds:
//
//	/scan            a.txt(10)
//	/scan/src        main.go(100) util.go(50)
//	/scan/src/inner  deep.bin(1000)
//	/scan/docs       readme.md(5)
func sample() *tree.Aggregator {
	agg := tree.NewAggregator(p())
	agg.AddDir(p())
	agg.AddFile(p("a.txt"), 10)
	agg.AddDir(p("src"))
	agg.AddDir(p("docs"))
	agg.AddFile(p("src", "main.go"), 100)
	agg.AddFile(p("src", "util.go"), 50)
	agg.AddDir(p("src", "inner"))
	agg.AddFile(p("src", "inner", "deep.bin"), 1000)
	agg.AddFile(p("docs", "readme.md"), 5)
	return agg
}

func TestSnapshot_Full(t *testing.T) {
	root := sample().Snapshot(tree.ModeFull)

	assert.Equal(t, p(), root.Path)
	assert.Equal(t, uint64(1165), root.SizeBytes)
	assert.Equal(t, uint64(5), root.FileCount)
	assert.Equal(t, uint64(3), root.DirCount)
	require.Len(t, root.Files, 1)
	assert.Equal(t, "a.txt", root.Files[0].Name)

	require.Len(t, root.Children, 2)
	src := root.Children[0]
	assert.Equal(t, "src", src.Name, "children sorted by size descending")
	assert.Equal(t, uint64(1150), src.SizeBytes)
	assert.Equal(t, uint64(3), src.FileCount)
	assert.Equal(t, uint64(1), src.DirCount)
	require.Len(t, src.Files, 2)
	assert.Equal(t, "main.go", src.Files[0].Name, "files sorted by size descending")

	require.Len(t, src.Children, 1)
	assert.Equal(t, uint64(1000), src.Children[0].SizeBytes)
	assert.Equal(t, "docs", root.Children[1].Name)
}

func TestSnapshot_CountsEqualDirectPlusChildren(t *testing.T) {
	agg := sample()
	var check func(n types.ScanNode)
	check = func(n types.ScanNode) {
		stats, _ := agg.Stats(n.Path)
		size, files, dirs := stats.DirectBytes, stats.DirectFiles, uint64(0)
		for _, c := range n.Children {
			size += c.SizeBytes
			files += c.FileCount
			dirs += 1 + c.DirCount
			check(c)
		}
		assert.Equal(t, size, n.SizeBytes, n.Path)
		assert.Equal(t, files, n.FileCount, n.Path)
		assert.Equal(t, dirs, n.DirCount, n.Path)
	}
	check(agg.Snapshot(tree.ModeFull))
}

func TestSnapshot_Compact(t *testing.T) {
	root := sample().Snapshot(tree.ModeCompact)

	assert.Equal(t, uint64(1165), root.SizeBytes, "totals still include the whole tree")
	assert.Equal(t, uint64(3), root.DirCount)
	assert.Empty(t, root.Files)

	require.Len(t, root.Children, 2)
	assert.Equal(t, "docs", root.Children[0].Name, "children sorted by name")
	assert.Equal(t, "src", root.Children[1].Name)
	for _, c := range root.Children {
		assert.Empty(t, c.Files)
		assert.Empty(t, c.Children, "compact snapshots stop at depth one")
	}
	assert.Equal(t, uint64(1150), root.Children[1].SizeBytes)
}

func TestSnapshot_CompactCapsChildren(t *testing.T) {
	agg := tree.NewAggregator(p())
	for i := 0; i < tree.CompactChildLimit+50; i++ {
		dir := p(fmt.Sprintf("d%04d", i))
		agg.AddDir(dir)
		agg.AddFile(filepath.Join(dir, "f"), 1)
	}

	compact := agg.Snapshot(tree.ModeCompact)
	assert.Len(t, compact.Children, tree.CompactChildLimit)
	assert.Equal(t, uint64(tree.CompactChildLimit+50), compact.SizeBytes)
	assert.Equal(t, "d0000", compact.Children[0].Name, "first children in discovery order are kept")

	full := agg.Snapshot(tree.ModeFull)
	assert.Len(t, full.Children, tree.CompactChildLimit+50)
}

func TestSnapshot_Repeatable(t *testing.T) {
	agg := sample()
	first := agg.Snapshot(tree.ModeFull)
	agg.Snapshot(tree.ModeCompact)
	second := agg.Snapshot(tree.ModeFull)
	assert.Equal(t, first, second)

	agg.AddFile(p("docs", "more.md"), 7)
	third := agg.Snapshot(tree.ModeFull)
	assert.Equal(t, first.SizeBytes+7, third.SizeBytes)
}

func TestSnapshot_EmptyRoot(t *testing.T) {
	root := tree.NewAggregator(p()).Snapshot(tree.ModeFull)
	assert.Equal(t, uint64(0), root.SizeBytes)
	assert.NotNil(t, root.Files)
	assert.NotNil(t, root.Children)
}

func TestSummary(t *testing.T) {
	id := "abc"
	s := sample().Summary(tree.ModeFull, 1500*time.Millisecond, &id)

	require.NotNil(t, s.ID)
	assert.Equal(t, "abc", *s.ID)
	assert.Equal(t, s.Root.SizeBytes, s.TotalBytes)
	assert.Equal(t, s.Root.FileCount, s.FileCount)
	assert.Equal(t, s.Root.DirCount, s.DirCount)
	assert.Equal(t, uint64(1500), s.DurationMs)
	require.Len(t, s.LargestFiles, 5)
	assert.Equal(t, "deep.bin", s.LargestFiles[0].Name)
}

func TestAggregator_AddDirIdempotent(t *testing.T) {
	agg := tree.NewAggregator(p())
	agg.AddDir(p("x"))
	agg.AddDir(p("x"))
	assert.Len(t, agg.Children(p()), 1)

	stats, ok := agg.Stats(p())
	require.True(t, ok)
	assert.Equal(t, uint64(1), stats.DirectDirs)
}
