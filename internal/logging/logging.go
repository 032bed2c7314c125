// Package logging owns the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

const (
	// FormatText is colored, human-oriented output.
	FormatText = "text"
	// FormatJSON is one JSON object per line.
	FormatJSON = "json"
)

var (
	level = new(slog.LevelVar)

	mu     sync.RWMutex
	logger = newLogger(os.Stderr, FormatText)
)

// Logger returns the process logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLevel changes the minimum level of the process logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Level returns the current minimum level.
func Level() slog.Level {
	return level.Level()
}

// Configure replaces the process logger with one writing format to w.
func Configure(w io.Writer, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid log format %q (allowed: %q, %q)", format, FormatText, FormatJSON)
	}
	if w == nil {
		w = os.Stderr
	}

	next := newLogger(w, format)
	mu.Lock()
	logger = next
	mu.Unlock()
	return nil
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

func newLogger(w io.Writer, format string) *slog.Logger {
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
