package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelMapping(t *testing.T) {
	tests := []struct {
		flag  string
		level LogLevel
		slog  slog.Level
	}{
		{"debug", LogLevelDebug, slog.LevelDebug},
		{"info", LogLevelInfo, slog.LevelInfo},
		{"warning", LogLevelWarning, slog.LevelWarn},
		{"error", LogLevelError, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			level, err := ParseLogLevel(tt.flag)
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) failed: %v", tt.flag, err)
			}
			if level != tt.level {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.flag, level, tt.level)
			}
			if level.String() != tt.flag {
				t.Errorf("String() = %q, want %q so --log-level round-trips", level.String(), tt.flag)
			}
			if level.SlogLevel() != tt.slog {
				t.Errorf("SlogLevel() = %v, want %v", level.SlogLevel(), tt.slog)
			}
		})
	}
}

func TestParseLogLevel_Rejects(t *testing.T) {
	for _, input := range []string{"", "warn", "DEBUG", "trace"} {
		t.Run(input, func(t *testing.T) {
			level, err := ParseLogLevel(input)
			if err == nil {
				t.Fatalf("Expected error for %q", input)
			}
			if level != LogLevelError {
				t.Errorf("Rejected input should fall back to error level, got %v", level)
			}
			if !strings.Contains(err.Error(), "debug, info, warning, or error") {
				t.Errorf("Error should list accepted levels, got %q", err.Error())
			}
		})
	}
}

func TestNewLogger_PerLevel(t *testing.T) {
	tests := []struct {
		level   LogLevel
		visible []string
		hidden  []string
	}{
		{LogLevelDebug, []string{"fetch-debug", "fetch-info", "fetch-warn", "fetch-error"}, nil},
		{LogLevelInfo, []string{"fetch-info", "fetch-warn", "fetch-error"}, []string{"fetch-debug"}},
		{LogLevelError, []string{"fetch-error"}, []string{"fetch-debug", "fetch-info", "fetch-warn"}},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)
			logger.Debug("fetch-debug")
			logger.Info("fetch-info")
			logger.Warn("fetch-warn")
			logger.Error("fetch-error")

			out := buf.String()
			for _, msg := range tt.visible {
				if !strings.Contains(out, msg) {
					t.Errorf("Expected %q at level %v, got: %s", msg, tt.level, out)
				}
			}
			for _, msg := range tt.hidden {
				if strings.Contains(out, msg) {
					t.Errorf("Did not expect %q at level %v, got: %s", msg, tt.level, out)
				}
			}
		})
	}
}

func TestNewLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogLevelWarning)

	logger.Info("hidden message")
	logger.Warn("visible message", ErrAttr(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("Info record should be filtered at warning level, got: %s", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("Warn record should be written, got: %s", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("Expected error attribute in output, got: %s", out)
	}
}

func TestErrAttr_Nil(t *testing.T) {
	attr := ErrAttr(nil)
	if attr.Key != "error" || attr.Value.String() != "" {
		t.Errorf("ErrAttr(nil) = %v, want empty error attribute", attr)
	}
}
