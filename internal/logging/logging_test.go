package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetAndL(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	defer Set(nil)

	Info("hello", zap.String("k", "v"))
	Debug("dbg")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Message != "hello" {
		t.Fatalf("message: %q", entries[0].Message)
	}
	if entries[0].ContextMap()["k"] != "v" {
		t.Fatalf("fields: %+v", entries[0].ContextMap())
	}
}

func TestSetNilRestoresNop(t *testing.T) {
	Set(nil)
	if L() == nil {
		t.Fatal("L returned nil")
	}
	// Must not panic.
	Warn("ignored")
	Error("ignored")
	Sync()
}
