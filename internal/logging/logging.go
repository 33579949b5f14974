// Package logging configures the process-wide slog logger. The TUI owns
// the terminal, so interactive runs log to a file; CLI runs log to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Component names used with ForComponent.
const (
	CompScan    = "scan"
	CompParse   = "parse"
	CompAux     = "aux"
	CompSearch  = "search"
	CompCatalog = "catalog"
	CompWatch   = "watch"
	CompTUI     = "tui"
)

type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // empty means stderr
}

var (
	mu     sync.Mutex
	closer io.Closer
)

// Setup installs the default logger and returns a function that releases
// the log file, if any.
func Setup(cfg Config) (func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	var f *os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
	}

	slog.SetDefault(slog.New(NewHandler(w, cfg.Format, level)))

	mu.Lock()
	if closer != nil {
		closer.Close()
	}
	closer = f
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if closer != nil {
			closer.Close()
			closer = nil
		}
	}, nil
}

func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ForComponent returns a logger tagged with the component name. It resolves
// slog.Default at call time, so package-level loggers must call it lazily.
func ForComponent(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
