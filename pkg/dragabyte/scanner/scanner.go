package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/tree"
)

// ErrPathNotFound indicates that the scan root does not exist.
var ErrPathNotFound = errors.New("path-not-found")

// ErrNotDirectory indicates that the scan root is not a directory.
var ErrNotDirectory = errors.New("not-a-directory")

// errStopped unwinds fastwalk once the aggregator stops consuming.
var errStopped = errors.New("scan stopped")

// ValidateRoot cleans root and checks that it is an existing directory.
func ValidateRoot(root string) (string, error) {
	if root == "" {
		return "", ErrPathNotFound
	}
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrPathNotFound
		}
		return "", fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", ErrNotDirectory
	}
	return root, nil
}

// entry is what a walker hands to the aggregator.
type entry struct {
	path    string
	dir     bool
	regular bool
	pruned  bool
	size    uint64
}

// Run scans root and reports through emit until the walk completes or the
// token (or ctx) is cancelled. Cancellation is not an error: Run emits a
// single KindCancelled event and returns nil.
//
// Walker goroutines only stat and forward entries. All aggregation happens on
// the calling goroutine, which also applies throttling and decides when to
// emit snapshots.
func Run(ctx context.Context, root string, cfg *Config, token *Token, emit Emitter, id *string) error {
	log := logging.Get("scanner")

	root, err := ValidateRoot(root)
	if err != nil {
		return err
	}
	if token == nil {
		token = NewToken()
	}

	start := time.Now()
	log.Debug("scan started", "root", root, "workers", cfg.Workers)

	entries := make(chan entry, max(cfg.QueueSize, 1))
	stop := make(chan struct{})
	walkDone := make(chan error, 1)

	go func() {
		defer close(entries)
		conf := fastwalk.Config{
			Follow:     false,
			NumWorkers: max(cfg.Workers, 1),
		}
		walkDone <- fastwalk.Walk(&conf, root, walkFunc(root, cfg, entries, stop))
	}()

	var stopOnce sync.Once
	halt := func() {
		stopOnce.Do(func() { close(stop) })
		for range entries {
		}
		<-walkDone
	}

	agg := tree.NewAggregator(root)
	var (
		processed uint64
		lastEmit  = time.Now()
		lastBytes uint64
	)

	for e := range entries {
		if token.Cancelled() || ctx.Err() != nil {
			halt()
			log.Debug("scan cancelled", "root", root, "processed", processed)
			emit.Emit(Event{Kind: KindCancelled, Message: CancelledMessage})
			return nil
		}
		processed++

		switch {
		case e.pruned:
		case e.dir:
			agg.AddDir(e.path)
		case e.regular:
			if cfg.Filter.IncludeFile(e.path, e.size) {
				agg.AddFile(e.path, e.size)
			}
		}

		if t := cfg.Throttle; t != nil && t.Sleep > 0 && t.Every > 0 && processed%t.Every == 0 {
			time.Sleep(t.Sleep)
		}

		if (cfg.EmitEvery > 0 && processed%cfg.EmitEvery == 0) ||
			(cfg.EmitInterval > 0 && time.Since(lastEmit) >= cfg.EmitInterval) {
			summary := agg.Summary(tree.ModeCompact, time.Since(start), id)
			if summary.TotalBytes >= lastBytes {
				lastBytes = summary.TotalBytes
				emit.Emit(Event{Kind: KindProgress, Summary: &summary})
				lastEmit = time.Now()
			}
		}
	}

	if err := <-walkDone; err != nil && !errors.Is(err, errStopped) {
		log.Warn("walk ended with error", "root", root, "error", err)
	}

	if token.Cancelled() || ctx.Err() != nil {
		emit.Emit(Event{Kind: KindCancelled, Message: CancelledMessage})
		return nil
	}

	summary := agg.Summary(tree.ModeFull, time.Since(start), id)
	log.Debug("scan complete", "root", root, "processed", processed,
		"bytes", summary.TotalBytes, "duration", time.Since(start))
	emit.Emit(Event{Kind: KindComplete, Summary: &summary})
	return nil
}

// walkFunc returns the fastwalk callback. It runs concurrently on every
// walker goroutine, so it touches nothing but its arguments.
func walkFunc(root string, cfg *Config, out chan<- entry, stop <-chan struct{}) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		// Unreadable entries are skipped. Returning nil lets fastwalk carry on
		// with the siblings.
		if err != nil || d == nil {
			return nil
		}

		e := entry{path: path}
		var ret error
		switch {
		case d.IsDir():
			e.dir = true
			if path != root && cfg.Filter.SkipDirectory(root, path) {
				e.pruned = true
				ret = fastwalk.SkipDir
			}
		case d.Type().IsRegular():
			e.regular = true
			if info, err := d.Info(); err == nil {
				e.size = uint64(info.Size())
			}
		}

		select {
		case out <- e:
			return ret
		case <-stop:
			return errStopped
		}
	}
}
