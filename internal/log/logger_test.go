package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentLedger, Output: &buf})
	logger.Info("saved", FieldCount, 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentLedger {
		t.Fatalf("missing component: %v", entry)
	}
	if entry[FieldCount] != float64(3) {
		t.Fatalf("missing count: %v", entry)
	}

	buf.Reset()
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Output: &buf}).WithComponent(ComponentWorker)
	logger.Warn("mirror failed")
	if !strings.Contains(buf.String(), "component=worker") {
		t.Fatalf("expected worker component, got %q", buf.String())
	}
	if logger.Component() != ComponentWorker {
		t.Fatalf("unexpected component %q", logger.Component())
	}
}

func TestFields(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentRecords).
		WithOperation(OpCreate).
		WithRecord("id-1", []string{"venta"}, 8000).
		WithError(errors.New("boom"))
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatalf("unexpected slice length")
	}
	if f[FieldError] != "boom" || f[FieldRecordID] != "id-1" {
		t.Fatalf("unexpected fields %v", f)
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := Discard().WithComponent(ComponentHTTP)
	ctx := IntoContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("logger not found in context")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}
