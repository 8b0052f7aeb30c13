package main

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLoggerLevelSelection(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	fromEnv, err := newLogger("")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if !fromEnv.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected LOG_LEVEL=debug to enable debug logs")
	}

	fromFlag, err := newLogger("warn")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if fromFlag.Core().Enabled(zap.InfoLevel) {
		t.Fatal("expected --log-level to take precedence over LOG_LEVEL")
	}
}
