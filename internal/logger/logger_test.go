package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "pricer", nil)
	ctx := context.Background()

	log.Debug(ctx, "debug message")
	log.Info(ctx, "info message")
	log.Warn(ctx, "warn message", "asset", "ETH")
	log.Error(ctx, "error message", "network", "ethereum")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %s", len(entries), buf.String())
	}
	if entries[0]["msg"] != "warn message" || entries[0]["asset"] != "ETH" {
		t.Errorf("unexpected warn entry: %v", entries[0])
	}
	if entries[1]["level"] != "error" || entries[1]["network"] != "ethereum" {
		t.Errorf("unexpected error entry: %v", entries[1])
	}
}

func TestLogger_ServiceAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "pricer", map[string]any{"env": "test"})

	log.Infoc(context.Background(), 0, "hello")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["service"] != "pricer" {
		t.Errorf("expected service field, got %v", entries[0]["service"])
	}
	if entries[0]["env"] != "test" {
		t.Errorf("expected env field, got %v", entries[0]["env"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Error(context.Background(), "ignored", "k", "v")
}

type codedErr struct{}

func (codedErr) Error() string    { return "boom" }
func (codedErr) LogFields() []any { return []any{"error_code", "PRICE_NOT_FOUND", "error", "boom"} }

func TestLogger_ExpandsFieldProviders(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "", nil)

	log.Error(context.Background(), "lookup failed", "error", codedErr{}, "asset", "ETH")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["error_code"] != "PRICE_NOT_FOUND" || entries[0]["asset"] != "ETH" {
		t.Errorf("fields not expanded: %v", entries[0])
	}
}
