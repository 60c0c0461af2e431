// Package logging builds the slog loggers shared by the CLI and the engine.
// Logs go to stderr; stdout carries the report.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Log formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatAuto = "auto" // text on a terminal, json otherwise
)

// NewLogger creates a logger writing to stderr.
func NewLogger(level slog.Level, format string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if ResolveFormat(format, w) == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Component returns a child logger tagged with the component name and any
// extra attributes.
func Component(l *slog.Logger, name string, args ...any) *slog.Logger {
	return l.With(append([]any{"component", name}, args...)...)
}

// ParseLevel converts a level name (debug, info, warn/warning, error) to a
// slog.Level. Unrecognized values yield slog.LevelInfo.
func ParseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ResolveFormat turns FormatAuto into FormatText when w is a terminal and
// FormatJSON otherwise. Other values are returned lower-cased.
func ResolveFormat(format string, w io.Writer) string {
	format = strings.ToLower(format)
	if format != FormatAuto {
		return format
	}
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return FormatText
		}
	}
	return FormatJSON
}
