package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"msg=\"task dispatched\"", "task=P1"}},
		{"TEXT", []string{"msg=\"task dispatched\"", "task=P1"}},
		{"json", []string{`"msg":"task dispatched"`, `"task":"P1"`}},
		{"auto", []string{`"msg":"task dispatched"`, `"tick":4`}},
		{"", []string{"msg=\"task dispatched\""}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(slog.LevelInfo, tt.format, &buf)
			logger.Info("task dispatched", "task", "P1", "tick", 4)

			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected %q in output, got: %s", want, buf.String())
				}
			}
		})
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

	logger.Info("task admitted")
	logger.Warn("deadlock detected")

	output := buf.String()
	if strings.Contains(output, "task admitted") {
		t.Errorf("INFO message should be filtered at WARN level, got: %s", output)
	}
	if !strings.Contains(output, "deadlock detected") {
		t.Errorf("WARN message should appear at WARN level, got: %s", output)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewLoggerWithWriter(slog.LevelDebug, "text", &buf), "scheduler", "run_id", "run_1")

	logger.Debug("tick", "task", "P3")

	for _, want := range []string{"component=scheduler", "run_id=run_1", "task=P3"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in output, got: %s", want, buf.String())
		}
	}
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		format string
		want   string
	}{
		{"text", FormatText},
		{"JSON", FormatJSON},
		{"auto", FormatJSON},
	}
	for _, tt := range tests {
		if got := ResolveFormat(tt.format, &buf); got != tt.want {
			t.Errorf("ResolveFormat(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
