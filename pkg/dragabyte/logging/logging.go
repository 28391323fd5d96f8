// Package logging provides component loggers shared by the dragabyte CLI and
// the headless server.
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	log := logging.Get("hub")
//	log.Info("listening", "addr", addr)
//
// Loggers obtained before Init write nowhere.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default file log level.
	Level string

	// Path is the log file. Empty uses DefaultLogPath(); "-" disables the file.
	Path string

	// MaxSize rotates the log file once it grows past this many bytes.
	// Zero uses DefaultMaxSize.
	MaxSize int64

	// ConsoleLevel enables stderr output at this level. Empty disables it.
	ConsoleLevel string

	// Components overrides the level for individual components.
	Components map[string]string
}

// Logger writes to the log file and, when enabled, to the console.
type Logger struct {
	file    *log.Logger
	console *log.Logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.file.Debug(msg, args...)
	if l.console != nil {
		l.console.Debug(msg, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	l.file.Info(msg, args...)
	if l.console != nil {
		l.console.Info(msg, args...)
	}
}

// Warn logs a warning.
func (l *Logger) Warn(msg string, args ...any) {
	l.file.Warn(msg, args...)
	if l.console != nil {
		l.console.Warn(msg, args...)
	}
}

// Error logs an error.
func (l *Logger) Error(msg string, args ...any) {
	l.file.Error(msg, args...)
	if l.console != nil {
		l.console.Error(msg, args...)
	}
}

// With returns a logger that adds the given key/value pairs to every entry.
func (l *Logger) With(args ...any) *Logger {
	out := &Logger{file: l.file.With(args...)}
	if l.console != nil {
		out.console = l.console.With(args...)
	}
	return out
}

type state struct {
	mu           sync.Mutex
	initialized  bool
	writer       *rotatingWriter
	level        log.Level
	consoleLevel log.Level
	console      bool
	components   map[string]log.Level
	loggers      map[string]*Logger
}

var global = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]log.Level),
}

// Init configures the global logging state. Loggers handed out earlier are
// rebuilt so they pick up the new outputs.
func Init(cfg Config) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]log.Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	console := false
	consoleLevel := log.InfoLevel
	if cfg.ConsoleLevel != "" {
		if consoleLevel, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		console = true
	}

	var writer *rotatingWriter
	if cfg.Path != "-" {
		path := cfg.Path
		if path == "" {
			path = DefaultLogPath()
		}
		if writer, err = newRotatingWriter(path, cfg.MaxSize); err != nil {
			return fmt.Errorf("creating log writer: %w", err)
		}
	}

	if global.writer != nil {
		_ = global.writer.Close()
	}

	global.writer = writer
	global.level = level
	global.components = components
	global.console = console
	global.consoleLevel = consoleLevel
	global.initialized = true

	for component := range global.loggers {
		*global.loggers[component] = *newLogger(component)
	}
	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	global.mu.Lock()
	defer global.mu.Unlock()

	if l, ok := global.loggers[component]; ok {
		return l
	}
	l := newLogger(component)
	global.loggers[component] = l
	return l
}

// newLogger must be called with global.mu held.
func newLogger(component string) *Logger {
	level := global.level
	if lvl, ok := global.components[component]; ok {
		level = lvl
	}

	var out io.Writer = io.Discard
	if global.initialized && global.writer != nil {
		out = global.writer
	}

	l := &Logger{
		file: log.NewWithOptions(out, log.Options{
			Level:           level,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
	}

	if global.initialized && global.console {
		l.console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           global.consoleLevel,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}
	return l
}

// Close flushes and closes the log file. Loggers fall back to discarding.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if !global.initialized {
		return nil
	}

	var err error
	if global.writer != nil {
		err = global.writer.Close()
		global.writer = nil
	}
	global.initialized = false
	for component := range global.loggers {
		*global.loggers[component] = *newLogger(component)
	}
	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/dragabyte/dragabyte.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "dragabyte", "dragabyte.log")
}
