package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// Tests that error fields are attached and secrets are masked
func TestErrorFieldsAndRedaction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Error("token refresh failed", errors.New("invalid_grant"), "email", "a@b.c", "refreshToken", "secret-value")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["error"] != "invalid_grant" {
		t.Errorf("Expected error field, got %v", fields["error"])
	}
	if fields["email"] != "a@b.c" {
		t.Errorf("Expected email field, got %v", fields["email"])
	}
	if fields["refreshToken"] != "[REDACTED]" {
		t.Errorf("Expected refreshToken to be redacted, got %v", fields["refreshToken"])
	}
}

func TestNewLoggerFormats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		if NewLogger("info", format) == nil {
			t.Errorf("NewLogger(%q) returned nil", format)
		}
	}
}
