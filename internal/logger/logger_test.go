package logger

import (
	"context"
	"log/slog"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", env, err)
		}
		_ = l.Sync()
	}
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("local", "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug to be enabled")
	}

	l, err = NewLogger("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected local default to be warn")
	}

	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNewSlog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewSlog(zap.New(core))

	l.Debug("hidden", "op", "get_doc")
	l.Warn("operation failed", "op", "put_doc", "status", 404)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Message != "operation failed" || e.Level != zapcore.WarnLevel || e.LoggerName != "sdk" {
		t.Errorf("entry = %s %v %q", e.Message, e.Level, e.LoggerName)
	}
	if got := e.ContextMap()["op"]; got != "put_doc" {
		t.Errorf("op field = %v", got)
	}
}

func TestNewSlog_FollowsLoggerLevel(t *testing.T) {
	l, err := NewLogger("local", "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !NewSlog(l).Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be enabled")
	}

	l, err = NewLogger("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if NewSlog(l).Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected local default to be warn")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected nop logger")
	}
	l := zap.NewExample()
	if got := FromContext(ContextWithLogger(context.Background(), l)); got != l {
		t.Error("expected stored logger")
	}
}

func TestWith(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))
	ctx = With(ctx, zap.String("command", "put-doc"))

	FromContext(ctx).Info("stored")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["command"]; got != "put-doc" {
		t.Errorf("command field = %v", got)
	}
}

func TestWith_NoLogger(t *testing.T) {
	// Fields on a no-op logger must not panic.
	FromContext(With(context.Background(), zap.Int("n", 1))).Info("dropped")
}
