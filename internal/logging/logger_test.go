package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsComponentLine(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger = NewComponentLogger(logger, "dispatcher")
	logger.Info("job started", String(FieldJobID, "abc-123"), Int("progress", 40))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO dispatcher: job started") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "job_id=abc-123") || !strings.Contains(line, "progress=40") {
		t.Fatalf("expected attrs on line %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Warn("job failed", String("reason", "source missing"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, `reason="source missing"`) {
		t.Fatalf("expected quoted value on line %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("hidden")
	logger.Warn("visible")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Fatalf("expected info suppressed, got %q", output)
	}
	if !strings.Contains(output, "visible") {
		t.Fatalf("expected warn emitted, got %q", output)
	}
}

func TestJSONHandlerRenamesTimestampKey(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar))

	logger.Info("hello", String("component", "worker"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if payload["component"] != "worker" {
		t.Fatalf("expected component attr, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if parseLevel("verbose") != slog.LevelInfo {
		t.Fatal("expected unknown level to default to info")
	}
	if parseLevel("debug") != slog.LevelDebug {
		t.Fatal("expected debug level")
	}
}
