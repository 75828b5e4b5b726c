// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	if !ValidLevel("Debug") {
		t.Error("ValidLevel(Debug) = false, want true")
	}
	if ValidLevel("verbose") {
		t.Error("ValidLevel(verbose) = true, want false")
	}
}

// Tests below mutate the global logger and must not run in parallel.

func TestInit_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("namespace", "/messaging").Msg("connected")

	out := buf.String()
	if !strings.Contains(out, `"message":"connected"`) {
		t.Errorf("expected message field, got: %s", out)
	}
	if !strings.Contains(out, `"namespace":"/messaging"`) {
		t.Errorf("expected namespace field, got: %s", out)
	}
}

func TestInit_ProcessFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{
		Level:  "info",
		Fields: map[string]string{"version": "1.2.3", "user_id": "u1", "empty": ""},
		Output: &buf,
	})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("started")

	out := buf.String()
	if !strings.Contains(out, `"user_id":"u1","version":"1.2.3"`) {
		t.Errorf("expected sorted process fields, got: %s", out)
	}
	if strings.Contains(out, `"empty"`) {
		t.Errorf("empty field written: %s", out)
	}
	if strings.Contains(out, `"time"`) {
		t.Errorf("timestamp written with Timestamp=false: %s", out)
	}
}

func TestForConnection(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := ForConnection("abcd1234", "")
	l.Info().Msg("opened")

	out := buf.String()
	for _, want := range []string{`"conn_id":"abcd1234"`, `"namespace":"/"`, `"component":"connection"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestCtx_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithCorrelationID(context.Background(), "corr0001")
	ctx = ContextWithNamespace(ctx, "/meetings")
	Ctx(ctx).Info().Msg("joined")

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"corr0001"`) {
		t.Errorf("missing correlation_id: %s", out)
	}
	if !strings.Contains(out, `"namespace":"/meetings"`) {
		t.Errorf("missing namespace: %s", out)
	}
}

func TestNamespaceFromContext_MainNamespace(t *testing.T) {
	t.Parallel()

	if _, ok := NamespaceFromContext(context.Background()); ok {
		t.Error("expected no namespace on empty context")
	}
	ns, ok := NamespaceFromContext(ContextWithNamespace(context.Background(), ""))
	if !ok || ns != "" {
		t.Errorf("NamespaceFromContext() = %q, %v; want \"\", true", ns, ok)
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if len(a) != 8 {
		t.Errorf("len(GenerateCorrelationID()) = %d, want 8", len(a))
	}
	if a == b {
		t.Error("expected distinct correlation IDs")
	}
}

func TestSlogHandler_RoutesThroughZerolog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf)))
	logger.WithGroup("supervisor").With("service", "connection").Warn("restarting", "attempt", 2)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"supervisor.service":"connection"`, `"supervisor.attempt":2`, `"message":"restarting"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	t.Parallel()

	h := NewSlogHandlerWithLogger(zerolog.New(nil).Level(zerolog.WarnLevel))
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(info) = true for warn logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(error) = false for warn logger")
	}
}
