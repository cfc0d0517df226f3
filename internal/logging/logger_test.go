package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown %d", 1)
	l.Error("shown")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), buf.String())
	}
	if lines[0]["message"] != "shown 1" {
		t.Errorf("message = %v, want %q", lines[0]["message"], "shown 1")
	}
	if lines[0]["level"] != "warn" {
		t.Errorf("level = %v, want warn", lines[0]["level"])
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, Prefix: "test"})

	l.WithComponent("scratch").WithField("path", "/tmp/a.md").Debug("saved")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	got := lines[0]
	if got["component"] != "scratch" {
		t.Errorf("component = %v", got["component"])
	}
	if got["path"] != "/tmp/a.md" {
		t.Errorf("path = %v", got["path"])
	}
	if got["logger"] != "test" {
		t.Errorf("logger = %v", got["logger"])
	}
}

func TestLogger_PercentWithoutArgs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf})

	l.Info("100% literal")

	lines := decodeLines(t, &buf)
	if lines[0]["message"] != "100% literal" {
		t.Errorf("message = %v", lines[0]["message"])
	}
}

func TestLogger_WithLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelError, Output: &buf})

	if l.Enabled(LevelDebug) {
		t.Error("debug should be disabled")
	}

	dbg := l.WithLevel(LevelDebug)
	if !dbg.Enabled(LevelDebug) {
		t.Error("debug should be enabled after WithLevel")
	}
	dbg.Debug("visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	if l.Enabled(LevelError) {
		t.Error("Nop logger should not be enabled at any level")
	}
	// Must not panic.
	l.Debug("x")
	l.Err(nil, "y")
	l.WithComponent("c").Info("z")
}
