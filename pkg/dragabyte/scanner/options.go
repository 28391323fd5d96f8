// Package scanner walks a directory tree in parallel with fastwalk, feeds a
// single aggregating goroutine and streams progress snapshots to an Emitter.
package scanner

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/filter"
)

// PriorityMode trades scan speed against host load.
type PriorityMode string

// Priority modes.
const (
	PriorityPerformance PriorityMode = "performance"
	PriorityBalanced    PriorityMode = "balanced"
	PriorityLow         PriorityMode = "low"
)

// ThrottleLevel controls how often the walker pauses to yield I/O and CPU.
type ThrottleLevel string

// Throttle levels.
const (
	ThrottleOff    ThrottleLevel = "off"
	ThrottleLow    ThrottleLevel = "low"
	ThrottleMedium ThrottleLevel = "medium"
	ThrottleHigh   ThrottleLevel = "high"
)

// ErrInvalidOption indicates an unknown priority mode or throttle level.
var ErrInvalidOption = errors.New("invalid scan option")

// Options is the client facing scan configuration.
type Options struct {
	PriorityMode  PriorityMode  `json:"priorityMode,omitempty"`
	ThrottleLevel ThrottleLevel `json:"throttleLevel,omitempty"`
	Filters       filter.Spec   `json:"filters"`
}

// DefaultOptions returns balanced priority without throttling or filters.
func DefaultOptions() Options {
	return Options{
		PriorityMode:  PriorityBalanced,
		ThrottleLevel: ThrottleOff,
	}
}

// Validate fills empty fields with defaults and rejects unknown values.
func (o *Options) Validate() error {
	switch o.PriorityMode {
	case "":
		o.PriorityMode = PriorityBalanced
	case PriorityPerformance, PriorityBalanced, PriorityLow:
	default:
		return fmt.Errorf("%w: priority mode %q", ErrInvalidOption, o.PriorityMode)
	}

	switch o.ThrottleLevel {
	case "":
		o.ThrottleLevel = ThrottleOff
	case ThrottleOff, ThrottleLow, ThrottleMedium, ThrottleHigh:
	default:
		return fmt.Errorf("%w: throttle level %q", ErrInvalidOption, o.ThrottleLevel)
	}
	return nil
}

// Throttle pauses the walk for Sleep after every Every processed entries.
type Throttle struct {
	Every uint64
	Sleep time.Duration
}

// Config is the resolved, ready to run form of Options.
type Config struct {
	Filter *filter.Compiled

	// Workers is the number of fastwalk goroutines.
	Workers int

	// A progress snapshot is emitted every EmitEvery entries or when
	// EmitInterval has elapsed since the previous one.
	EmitEvery    uint64
	EmitInterval time.Duration

	// Throttle is nil when throttling is off.
	Throttle *Throttle

	// QueueSize bounds the channel between walkers and the aggregator.
	QueueSize int
}

// DefaultQueueSize is the walker to aggregator channel capacity.
const DefaultQueueSize = 4096

// cpuCount is swapped in tests.
var cpuCount = runtime.NumCPU

// NewConfig validates opts and resolves workers, cadence and throttling.
// Filter compilation errors are returned unchanged so callers can match
// filter.ErrInvalidPattern and filter.ErrInvalidRange.
func NewConfig(opts Options) (*Config, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	compiled, err := filter.Compile(opts.Filters)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Filter:    compiled,
		Workers:   Workers(opts.PriorityMode),
		QueueSize: DefaultQueueSize,
	}
	cfg.EmitEvery, cfg.EmitInterval = Cadence(opts.PriorityMode)
	cfg.Throttle = ThrottleFor(opts.ThrottleLevel)
	return cfg, nil
}

// Workers returns the walker parallelism for a priority mode.
func Workers(mode PriorityMode) int {
	n := cpuCount()
	if n < 1 {
		n = 1
	}
	switch mode {
	case PriorityPerformance:
		return n
	case PriorityLow:
		return 1
	default:
		return (n + 1) / 2
	}
}

// Cadence returns the progress emission cadence for a priority mode.
func Cadence(mode PriorityMode) (every uint64, interval time.Duration) {
	switch mode {
	case PriorityPerformance:
		return 5000, 500 * time.Millisecond
	case PriorityLow:
		return 20000, 2 * time.Second
	default:
		return 10000, time.Second
	}
}

// ThrottleFor returns the throttle for a level, or nil when it is off.
func ThrottleFor(level ThrottleLevel) *Throttle {
	switch level {
	case ThrottleLow:
		return &Throttle{Every: 1200, Sleep: time.Millisecond}
	case ThrottleMedium:
		return &Throttle{Every: 600, Sleep: 3 * time.Millisecond}
	case ThrottleHigh:
		return &Throttle{Every: 250, Sleep: 6 * time.Millisecond}
	default:
		return nil
	}
}
