// Package output renders scan summaries and disk usage snapshots for the
// terminal or for scripts (pretty, plain, json, yaml).
//
// Formatters are looked up by name from a registry:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// Defaults for Result rendering limits.
const (
	DefaultDepth = 1
	DefaultLimit = 10
)

// Result is everything a formatter may render. Either Summary or Disk, or
// both, are set.
type Result struct {
	// Source is the path the user asked about.
	Source string

	// Summary is the final (or last progress) scan summary.
	Summary *types.ScanSummary

	// Disk is the capacity of the volume holding Source.
	Disk *types.DiskUsageSnapshot

	// Cancelled is set when the scan stopped before completing.
	Cancelled bool

	// Error is the message of a failed scan.
	Error string

	// Depth is how many directory levels text formatters expand below the
	// root. Zero means DefaultDepth.
	Depth int

	// Limit caps the largest files listed by text formatters. Zero means
	// DefaultLimit.
	Limit int

	Warnings []string
}

func (r *Result) depth() int {
	if r.Depth <= 0 {
		return DefaultDepth
	}
	return r.Depth
}

func (r *Result) largest() []types.ScanFile {
	if r.Summary == nil {
		return nil
	}
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	files := r.Summary.LargestFiles
	if len(files) > limit {
		files = files[:limit]
	}
	return files
}

// Formatter is the interface that all output formatters implement.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any existing one with the
// same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the registered formatter names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// walk visits node and its descendants up to maxDepth levels below it.
func walk(node types.ScanNode, depth, maxDepth int, visit func(types.ScanNode, int)) {
	visit(node, depth)
	if depth >= maxDepth {
		return
	}
	for _, child := range node.Children {
		walk(child, depth+1, maxDepth, visit)
	}
}

// percent returns part as a share of whole, 0 when whole is zero.
func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
