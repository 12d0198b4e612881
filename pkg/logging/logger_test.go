package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// decodeLines parses JSON log output, one event per line.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var events []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("log line %q is not JSON: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Level = %s, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Pretty should default to false")
	}
	if cfg.Output != os.Stderr {
		t.Error("Output should default to stderr")
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want no log file", cfg.File)
	}
	if cfg.FileMaxSizeMB != 10 || cfg.FileMaxBackups != 3 {
		t.Errorf("rotation = %dMB/%d backups, want 10MB/3", cfg.FileMaxSizeMB, cfg.FileMaxBackups)
	}
}

func TestSetup_RecoveryEvents(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		emit  func(l zerolog.Logger)
		msg   string
		field string
		value any
	}{
		{
			name:  "page_fetched",
			level: LevelDebug,
			emit: func(l zerolog.Logger) {
				l.Debug().Str("endpoint", "v1/recovery").Int("page", 2).Int("records", 25).Msg("Page fetched")
			},
			msg:   "Page fetched",
			field: "page",
			value: float64(2),
		},
		{
			name:  "fetch_complete",
			level: LevelInfo,
			emit: func(l zerolog.Logger) {
				l.Info().Int("pages", 4).Int("records", 79).Msg("Recovery records fetched")
			},
			msg:   "Recovery records fetched",
			field: "records",
			value: float64(79),
		},
		{
			name:  "page_failed",
			level: LevelWarn,
			emit: func(l zerolog.Logger) {
				l.Warn().Str("endpoint", "v1/recovery").Str("error_class", "server").Msg("Page fetch failed")
			},
			msg:   "Page fetch failed",
			field: "error_class",
			value: "server",
		},
		{
			name:  "login_rejected",
			level: LevelError,
			emit: func(l zerolog.Logger) {
				l.Error().Int("status_code", 401).Msg("Authentication rejected")
			},
			msg:   "Authentication rejected",
			field: "status_code",
			value: float64(401),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.emit(Setup(Config{Level: tt.level, Output: buf}))

			events := decodeLines(t, buf)
			if len(events) != 1 {
				t.Fatalf("events = %d, want 1: %q", len(events), buf.String())
			}
			ev := events[0]
			if ev["level"] != string(tt.level) {
				t.Errorf("level = %v, want %s", ev["level"], tt.level)
			}
			if ev["message"] != tt.msg {
				t.Errorf("message = %v, want %q", ev["message"], tt.msg)
			}
			if ev[tt.field] != tt.value {
				t.Errorf("%s = %v, want %v", tt.field, ev[tt.field], tt.value)
			}
			if _, ok := ev["time"]; !ok {
				t.Error("event should carry a timestamp")
			}
		})
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger.Info().Str("location", "docs/recovery.png").Msg("Chart written")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("pretty output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "Chart written") || !strings.Contains(out, "docs/recovery.png") {
		t.Errorf("output = %q, want message and location", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"DEBUG", zerolog.DebugLevel},
		{LevelError, zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger_Component(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	for _, component := range []string{"recovery-plot", "recovery"} {
		l := NewLogger(component)
		l.Info().Str("user_id", "10129").Msg("Logged in")
	}

	events := decodeLines(t, buf)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0]["component"] != "recovery-plot" || events[1]["component"] != "recovery" {
		t.Errorf("components = %v, %v", events[0]["component"], events[1]["component"])
	}
	if events[0]["user_id"] != "10129" {
		t.Errorf("user_id = %v, want 10129", events[0]["user_id"])
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	l := NewLogger("recovery")
	l.Debug().Str("start", "2024-02-01T00:00:00Z").Msg("Query bounds")
	l.Info().Int("records", 79).Msg("Recovery records fetched")
	l.Warn().Str("path", "/nonexistent/whoop.prom").Msg("Failed to write metrics textfile")
	l.Error().Msg("Run failed")

	out := buf.String()
	if strings.Contains(out, "Query bounds") {
		t.Error("debug event should be filtered at warn level")
	}
	if strings.Contains(out, "Recovery records fetched") {
		t.Error("info event should be filtered at warn level")
	}
	if !strings.Contains(out, "Failed to write metrics textfile") {
		t.Error("warn event should pass at warn level")
	}
	if !strings.Contains(out, "Run failed") {
		t.Error("error event should pass at warn level")
	}
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "recovery.log")
	buf := &bytes.Buffer{}

	Setup(Config{
		Level:  LevelInfo,
		Output: buf,
		File:   path,
	})
	defer Close()

	l := NewLogger("recovery-plot")
	l.Info().Str("location", "docs/recovery.png").Msg("Chart written")

	if err := Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	fileEvents := decodeLines(t, bytes.NewBuffer(data))
	if len(fileEvents) != 1 || fileEvents[0]["location"] != "docs/recovery.png" {
		t.Errorf("log file = %q, want the chart event", string(data))
	}
	if !strings.Contains(buf.String(), "Chart written") {
		t.Errorf("output = %q, want the chart event", buf.String())
	}
}

func TestSetup_ReplacesFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	Setup(Config{Level: LevelInfo, Output: &bytes.Buffer{}, File: first})
	l := NewLogger("recovery")
	l.Info().Msg("first run")

	Setup(Config{Level: LevelInfo, Output: &bytes.Buffer{}, File: second})
	defer Close()
	l = NewLogger("recovery")
	l.Info().Msg("second run")

	if err := Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read first log: %v", err)
	}
	if strings.Contains(string(data), "second run") {
		t.Error("events after a new Setup should not reach the previous file")
	}
	data, err = os.ReadFile(second)
	if err != nil {
		t.Fatalf("read second log: %v", err)
	}
	if !strings.Contains(string(data), "second run") {
		t.Errorf("second log = %q, want second run", string(data))
	}
}

func TestClose_WithoutFile(t *testing.T) {
	Setup(Config{Level: LevelInfo, Output: &bytes.Buffer{}})

	if err := Close(); err != nil {
		t.Errorf("Close() without a file = %v, want nil", err)
	}
}
