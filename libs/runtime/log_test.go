package runtime

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerTagsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("booking-service", LogOptions{Level: "warn"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "fecha", "2030-01-07")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if entry["service"] != "booking-service" || entry["msg"] != "kept" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestLoggerWritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "turnos.log")
	var buf bytes.Buffer
	logger := newLogger("auth-service", LogOptions{File: file, Format: "text"}, &buf)
	logger.Info("hello")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") {
		t.Fatalf("expected text log in file, got %q", data)
	}
	if buf.Len() == 0 {
		t.Fatal("expected stdout copy too")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
