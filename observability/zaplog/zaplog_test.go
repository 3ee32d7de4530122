package zaplog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/perceptlab/go-frame-scheduler/core"
)

// Main test items:
// 1. Each core.Logger level maps to the matching zap level.
// 2. core.Field values arrive as structured zap fields.
func TestLoggerForwardsLevelsAndFields(t *testing.T) {
	zcore, logs := observer.New(zapcore.DebugLevel)
	logger := New(zap.New(zcore))

	logger.Debug("task queued", core.F("depth", 3))
	logger.Info("scheduler started", core.F("scheduler", "root"))
	logger.Warn("slow frame")
	logger.Error("fetch failed", core.F("resource", "tone"))

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("captured %d entries, want 4", len(entries))
	}

	wantLevels := []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
	}
	for i, want := range wantLevels {
		if entries[i].Level != want {
			t.Fatalf("entry %d level = %v, want %v", i, entries[i].Level, want)
		}
	}

	if entries[1].Message != "scheduler started" {
		t.Fatalf("info message = %q, want %q", entries[1].Message, "scheduler started")
	}
	if got := entries[1].ContextMap()["scheduler"]; got != "root" {
		t.Fatalf("scheduler field = %v, want root", got)
	}
	if got := entries[0].ContextMap()["depth"]; got != int64(3) {
		t.Fatalf("depth field = %v (%T), want 3", got, got)
	}
	if len(entries[2].Context) != 0 {
		t.Fatalf("warn entry carries %d fields, want none", len(entries[2].Context))
	}
}

// New(nil) falls back to the global logger instead of panicking.
func TestNewNilBaseUsesGlobal(t *testing.T) {
	logger := New(nil)
	logger.Info("discarded by the default global logger")
}
