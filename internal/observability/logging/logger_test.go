package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		records = append(records, record)
	}
	return records
}

func TestLoggerTagsEveryRecordWithService(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "worker", "info")

	log.Info("document_indexed", "document_id", "d1")
	log.Error("index_failed", "document_id", "d2")

	records := decodeLines(t, &buf)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, record := range records {
		if record["service"] != "worker" {
			t.Fatalf("record missing service attribute: %v", record)
		}
	}
	if records[0]["msg"] != "document_indexed" || records[0]["document_id"] != "d1" {
		t.Fatalf("unexpected first record: %v", records[0])
	}
}

func TestLoggerFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "api", "warn")

	log.Debug("noisy")
	log.Info("still noisy")
	log.Warn("kept")

	records := decodeLines(t, &buf)
	if len(records) != 1 || records[0]["msg"] != "kept" {
		t.Fatalf("expected only the warn record, got %v", records)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"  WARN ": slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
