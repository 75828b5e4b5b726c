// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies the built-in defaults match the documented policy.
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Realtime.MaxReconnectAttempts != 5 {
		t.Errorf("Realtime.MaxReconnectAttempts = %d, want 5", cfg.Realtime.MaxReconnectAttempts)
	}
	if cfg.Realtime.ReconnectInterval != 3*time.Second {
		t.Errorf("Realtime.ReconnectInterval = %v, want 3s", cfg.Realtime.ReconnectInterval)
	}
	if cfg.Realtime.HeartbeatInterval != 30*time.Second {
		t.Errorf("Realtime.HeartbeatInterval = %v, want 30s", cfg.Realtime.HeartbeatInterval)
	}
	if cfg.Presence.TypingTTL != 5*time.Second {
		t.Errorf("Presence.TypingTTL = %v, want 5s", cfg.Presence.TypingTTL)
	}
	if cfg.Presence.SweepInterval != time.Second {
		t.Errorf("Presence.SweepInterval = %v, want 1s", cfg.Presence.SweepInterval)
	}
	if cfg.Namespaces.Messaging != "/messaging" || cfg.Namespaces.Meetings != "/meetings" {
		t.Errorf("Namespaces = %+v", cfg.Namespaces)
	}
	if cfg.Namespaces.Notifications != "" {
		t.Errorf("Namespaces.Notifications = %q, want main namespace", cfg.Namespaces.Notifications)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig().Validate() = %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"TELESYNC_SERVER_URL", "server.url"},
		{"TELESYNC_REALTIME_MAX_RECONNECT_ATTEMPTS", "realtime.max_reconnect_attempts"},
		{"TELESYNC_SESSION_USER_ID", "session.user_id"},
		{"WS_URL", "server.url"},
		{"NEXT_PUBLIC_WS_URL", "server.url"},
		{"LOG_LEVEL", "logging.level"},
		{"TELESYNC_CONFIG", ""},
		{"TELESYNC_", ""},
		{"HOME", ""},
		{"PATH", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telesync.yaml")
	yaml := `
server:
  url: wss://file.example.com
realtime:
  reconnect_strategy: exponential
  reconnect_interval: 2s
  max_reconnect_interval: 20s
session:
  user_id: from-file
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("TELESYNC_SESSION_USER_ID", "from-env")
	t.Setenv("TELESYNC_REALTIME_MAX_RECONNECT_ATTEMPTS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.URL != "wss://file.example.com" {
		t.Errorf("Server.URL = %q, want file value", cfg.Server.URL)
	}
	if cfg.Realtime.ReconnectStrategy != StrategyExponential {
		t.Errorf("Realtime.ReconnectStrategy = %q", cfg.Realtime.ReconnectStrategy)
	}
	if cfg.Realtime.ReconnectInterval != 2*time.Second {
		t.Errorf("Realtime.ReconnectInterval = %v, want 2s", cfg.Realtime.ReconnectInterval)
	}
	if cfg.Session.UserID != "from-env" {
		t.Errorf("Session.UserID = %q, want env override", cfg.Session.UserID)
	}
	if cfg.Realtime.MaxReconnectAttempts != 7 {
		t.Errorf("Realtime.MaxReconnectAttempts = %d, want 7", cfg.Realtime.MaxReconnectAttempts)
	}
	// Untouched defaults survive both layers.
	if cfg.Realtime.HeartbeatInterval != 30*time.Second {
		t.Errorf("Realtime.HeartbeatInterval = %v, want default 30s", cfg.Realtime.HeartbeatInterval)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Load() with missing explicit file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"empty url", func(c *Config) { c.Server.URL = "" }, "server.url is required"},
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://x" }, "scheme"},
		{"negative attempts", func(c *Config) { c.Realtime.MaxReconnectAttempts = -1 }, "max_reconnect_attempts"},
		{"zero interval", func(c *Config) { c.Realtime.ReconnectInterval = 0 }, "reconnect_interval"},
		{"unknown strategy", func(c *Config) { c.Realtime.ReconnectStrategy = "fibonacci" }, "reconnect_strategy"},
		{"exponential cap below base", func(c *Config) {
			c.Realtime.ReconnectStrategy = StrategyExponential
			c.Realtime.MaxReconnectInterval = time.Second
		}, "max_reconnect_interval"},
		{"heartbeat timeout below interval", func(c *Config) { c.Realtime.HeartbeatTimeout = time.Second }, "heartbeat_timeout"},
		{"namespace without slash", func(c *Config) { c.Namespaces.Meetings = "meetings" }, "namespaces.meetings"},
		{"bad permission", func(c *Config) { c.Notifications.Permission = "maybe" }, "permission"},
		{"status without addr", func(c *Config) {
			c.Status.Enabled = true
			c.Status.Addr = ""
		}, "status.addr"},
		{"negative rate limit", func(c *Config) { c.Status.RateLimit = -1 }, "status.rate_limit"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
