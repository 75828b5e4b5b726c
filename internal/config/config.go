// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package config

import "time"

// Config is the complete client configuration.
type Config struct {
	Server        ServerConfig       `koanf:"server"`
	Realtime      RealtimeConfig     `koanf:"realtime"`
	Namespaces    NamespaceConfig    `koanf:"namespaces"`
	Presence      PresenceConfig     `koanf:"presence"`
	Notifications NotificationConfig `koanf:"notifications"`
	Session       SessionConfig      `koanf:"session"`
	Status        StatusConfig       `koanf:"status"`
	Logging       LoggingConfig      `koanf:"logging"`
}

// ServerConfig locates the real-time endpoint.
type ServerConfig struct {
	URL               string        `koanf:"url"`               // ws:// or wss:// base URL; the namespace path is appended
	HandshakeTimeout  time.Duration `koanf:"handshake_timeout"` // WebSocket handshake timeout
	WriteTimeout      time.Duration `koanf:"write_timeout"`     // Per-frame write deadline
	EnableCompression bool          `koanf:"enable_compression"`
	TokenQueryParam   string        `koanf:"token_query_param"` // Query parameter that carries the bearer token (empty: header only)
}

// RealtimeConfig controls connection lifecycle policy.
type RealtimeConfig struct {
	MaxReconnectAttempts int           `koanf:"max_reconnect_attempts"`
	ReconnectInterval    time.Duration `koanf:"reconnect_interval"`
	ReconnectStrategy    string        `koanf:"reconnect_strategy"` // constant or exponential
	MaxReconnectInterval time.Duration `koanf:"max_reconnect_interval"`
	HeartbeatInterval    time.Duration `koanf:"heartbeat_interval"`
	HeartbeatTimeout     time.Duration `koanf:"heartbeat_timeout"` // 0 disables stale detection
}

// NamespaceConfig maps each domain to its namespace. The empty string is
// the main namespace.
type NamespaceConfig struct {
	Messaging     string `koanf:"messaging"`
	Meetings      string `koanf:"meetings"`
	Notifications string `koanf:"notifications"`
	Worksheets    string `koanf:"worksheets"`
}

// PresenceConfig controls typing expiry and outbound typing throttling.
type PresenceConfig struct {
	TypingTTL       time.Duration `koanf:"typing_ttl"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
	TypingAutoStop  time.Duration `koanf:"typing_auto_stop"`
	TypingRateLimit time.Duration `koanf:"typing_rate_limit"` // minimum gap between outbound typing_start frames
}

// NotificationConfig controls user-facing interruptions.
type NotificationConfig struct {
	Toasts     bool   `koanf:"toasts"`
	System     bool   `koanf:"system"`
	Permission string `koanf:"permission"` // granted, denied or default
}

// SessionConfig identifies the current user.
type SessionConfig struct {
	UserID    string `koanf:"user_id"`
	Token     string `koanf:"token"`
	TokenFile string `koanf:"token_file"`
}

// StatusConfig controls the local status/metrics HTTP endpoint.
type StatusConfig struct {
	Enabled     bool     `koanf:"enabled"`
	Addr        string   `koanf:"addr"`
	CORSOrigins []string `koanf:"cors_origins"`
	RateLimit   int      `koanf:"rate_limit"` // requests per minute per client IP, 0 disables
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before the config
// file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:               "ws://localhost:3001",
			HandshakeTimeout:  10 * time.Second,
			WriteTimeout:      10 * time.Second,
			EnableCompression: true,
			TokenQueryParam:   "token",
		},
		Realtime: RealtimeConfig{
			MaxReconnectAttempts: 5,
			ReconnectInterval:    3 * time.Second,
			ReconnectStrategy:    StrategyConstant,
			MaxReconnectInterval: 30 * time.Second,
			HeartbeatInterval:    30 * time.Second,
			HeartbeatTimeout:     0,
		},
		Namespaces: NamespaceConfig{
			Messaging:     "/messaging",
			Meetings:      "/meetings",
			Notifications: "",
			Worksheets:    "",
		},
		Presence: PresenceConfig{
			TypingTTL:       5 * time.Second,
			SweepInterval:   time.Second,
			TypingAutoStop:  3 * time.Second,
			TypingRateLimit: time.Second,
		},
		Notifications: NotificationConfig{
			Toasts:     true,
			System:     true,
			Permission: PermissionDefault,
		},
		Status: StatusConfig{
			Enabled:   false,
			Addr:      "127.0.0.1:9464",
			RateLimit: 600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Reconnect strategies.
const (
	StrategyConstant    = "constant"
	StrategyExponential = "exponential"
)

// OS notification permission values.
const (
	PermissionGranted = "granted"
	PermissionDenied  = "denied"
	PermissionDefault = "default"
)
