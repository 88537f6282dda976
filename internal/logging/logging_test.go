package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestDefault(t *testing.T) {
	if Default(nil).Enabled(context.Background(), slog.LevelError) {
		t.Error("Default(nil) should discard")
	}

	var buf bytes.Buffer
	original := NewText(&buf, slog.LevelInfo)
	if Default(original) != original {
		t.Error("Default should return the given logger")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewTextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelWarn)
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered, got %q", buf.String())
	}
	logger.Warn("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("warn missing from %q", buf.String())
	}
}
