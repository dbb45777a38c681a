package capturelog

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

var errBoom = errors.New("boom")

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelWarn, FormatText, &buf)

	logger.Debug("should not appear", nil)
	logger.Info("should not appear either", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}

	logger.Warn("visible", nil)
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected warn message in output, got %q", buf.String())
	}
}

func TestLoggerTextFormatIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, FormatText, &buf)

	logger.Info("attempt failed", Fields{"attempt": 3, "device": "/dev/nst0"})
	out := buf.String()
	if !strings.Contains(out, "attempt failed") || !strings.Contains(out, "attempt=3") || !strings.Contains(out, "device=/dev/nst0") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, FormatJSON, &buf)

	logger.Info("json test", Fields{"number": 42})

	var e entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("failed to parse JSON log line: %v", err)
	}
	if e.Message != "json test" || e.Level != "info" {
		t.Fatalf("got %#v", e)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"unknown", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWithFieldsMergesPresetAndCallSiteFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelDebug, FormatJSON, &buf)

	fl := logger.WithFields(Fields{"component": "pipeline"})
	fl.Info("with fields", Fields{"extra": "data"})

	var e entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("failed to parse JSON log line: %v", err)
	}
	if e.Fields["component"] != "pipeline" || e.Fields["extra"] != "data" {
		t.Fatalf("got fields %#v", e.Fields)
	}
}

func TestDiscardLoggerProducesNoOutput(t *testing.T) {
	logger := Discard()
	logger.Error("should be dropped", Fields{"x": 1})
	if logger.output != io.Discard || logger.level <= LevelError {
		t.Fatalf("Discard logger writes to %v at level %v, want io.Discard above error", logger.output, logger.level)
	}
}

func TestWithDeviceAnnotatesEveryEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, FormatJSON, &buf)

	fl := logger.WithDevice("/dev/nst0")
	fl.Info("block read", Fields{FieldRecords: 1})

	var e entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("failed to parse JSON log line: %v", err)
	}
	if e.Fields[FieldDevice] != "/dev/nst0" || e.Fields[FieldRecords] != float64(1) {
		t.Fatalf("got fields %#v", e.Fields)
	}
}

func TestAttemptLogsAttemptAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelWarn, FormatText, &buf)

	fl := logger.WithDevice("/dev/nst0")
	fl.Attempt(2, errBoom)

	out := buf.String()
	if !strings.Contains(out, "attempt=2") || !strings.Contains(out, "error=boom") || !strings.Contains(out, "device=/dev/nst0") {
		t.Fatalf("unexpected output: %q", out)
	}
}
