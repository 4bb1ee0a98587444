package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var text, js bytes.Buffer
	logger := New(&text, &js, slog.LevelInfo, "json")

	logger.Debug("hidden")
	logger.Info("Expense recorded", "payer", "alice")

	if text.Len() != 0 {
		t.Errorf("text output written in json mode: %q", text.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(js.Bytes(), &entry); err != nil {
		t.Fatalf("output is not one JSON line: %v (%q)", err, js.String())
	}
	if entry["msg"] != "Expense recorded" || entry["payer"] != "alice" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_Text(t *testing.T) {
	var text, js bytes.Buffer
	logger := New(&text, &js, slog.LevelWarn, "text")

	logger.Info("hidden")
	logger.Warn("Expense rejected")

	if js.Len() != 0 {
		t.Errorf("json output written in text mode: %q", js.String())
	}
	if !strings.Contains(text.String(), "Expense rejected") || strings.Contains(text.String(), "hidden") {
		t.Errorf("unexpected text output: %q", text.String())
	}
}
