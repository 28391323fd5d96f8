package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.bin"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "deep.bin"), make([]byte, 300), 0o644))
	return dir
}

func TestScanLocal_Complete(t *testing.T) {
	dir := writeTree(t)

	var progress int
	out := scanLocal(context.Background(), dir, scanner.DefaultOptions(), func(types.ScanSummary) { progress++ })

	require.NoError(t, out.Err)
	assert.False(t, out.Cancelled)
	require.NotNil(t, out.Summary)
	assert.Equal(t, uint64(400), out.Summary.TotalBytes)
	assert.Equal(t, uint64(2), out.Summary.FileCount)
	require.NotEmpty(t, out.Summary.LargestFiles)
	assert.Equal(t, "deep.bin", out.Summary.LargestFiles[0].Name)
}

func TestScanLocal_Filtered(t *testing.T) {
	dir := writeTree(t)
	minSize := uint64(200)
	opts := scanner.DefaultOptions()
	opts.Filters.MinSizeBytes = &minSize

	out := scanLocal(context.Background(), dir, opts, nil)
	require.NoError(t, out.Err)
	require.NotNil(t, out.Summary)
	assert.Equal(t, uint64(300), out.Summary.TotalBytes)
}

func TestScanLocal_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := scanLocal(ctx, writeTree(t), scanner.DefaultOptions(), nil)
	assert.True(t, out.Cancelled)
	assert.NoError(t, out.Err)
}

func TestScanLocal_BadRoot(t *testing.T) {
	dir := writeTree(t)

	out := scanLocal(context.Background(), filepath.Join(dir, "missing"), scanner.DefaultOptions(), nil)
	assert.ErrorIs(t, out.Err, scanner.ErrPathNotFound)

	out = scanLocal(context.Background(), filepath.Join(dir, "top.bin"), scanner.DefaultOptions(), nil)
	assert.ErrorIs(t, out.Err, scanner.ErrNotDirectory)
}

func TestScanRoot(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	root, err := scanRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, wd, root)

	root, err = scanRoot([]string{"rel"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "rel"), root)
}
