package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "json", slog.LevelInfo))
	logger.Debug("hidden")
	logger.Info("Order created", "order_id", "o1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "Order created" || entry["order_id"] != "o1" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewHandlerText(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "", slog.LevelInfo))
	logger.Info("Table released", "table_id", "t1")
	if !strings.Contains(buf.String(), "Table released") || !strings.Contains(buf.String(), "t1") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
