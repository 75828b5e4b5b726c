// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/telesync/internal/logging"
)

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRealtime(); err != nil {
		return err
	}
	if err := c.validateNamespaces(); err != nil {
		return err
	}
	if err := c.validatePresence(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateStatus(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("server.url must use ws, wss, http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server.url must include a host")
	}
	if c.Server.HandshakeTimeout <= 0 {
		return fmt.Errorf("server.handshake_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	return nil
}

func (c *Config) validateRealtime() error {
	r := c.Realtime
	if r.MaxReconnectAttempts < 0 {
		return fmt.Errorf("realtime.max_reconnect_attempts must not be negative, got %d", r.MaxReconnectAttempts)
	}
	if r.ReconnectInterval <= 0 {
		return fmt.Errorf("realtime.reconnect_interval must be positive")
	}
	switch r.ReconnectStrategy {
	case StrategyConstant:
	case StrategyExponential:
		if r.MaxReconnectInterval < r.ReconnectInterval {
			return fmt.Errorf("realtime.max_reconnect_interval (%v) must be >= reconnect_interval (%v)",
				r.MaxReconnectInterval, r.ReconnectInterval)
		}
	default:
		return fmt.Errorf("realtime.reconnect_strategy must be %q or %q, got %q",
			StrategyConstant, StrategyExponential, r.ReconnectStrategy)
	}
	if r.HeartbeatInterval <= 0 {
		return fmt.Errorf("realtime.heartbeat_interval must be positive")
	}
	if r.HeartbeatTimeout < 0 {
		return fmt.Errorf("realtime.heartbeat_timeout must not be negative")
	}
	if r.HeartbeatTimeout > 0 && r.HeartbeatTimeout <= r.HeartbeatInterval {
		return fmt.Errorf("realtime.heartbeat_timeout (%v) must exceed heartbeat_interval (%v)",
			r.HeartbeatTimeout, r.HeartbeatInterval)
	}
	return nil
}

func (c *Config) validateNamespaces() error {
	for name, ns := range map[string]string{
		"messaging":     c.Namespaces.Messaging,
		"meetings":      c.Namespaces.Meetings,
		"notifications": c.Namespaces.Notifications,
		"worksheets":    c.Namespaces.Worksheets,
	} {
		if ns != "" && !strings.HasPrefix(ns, "/") {
			return fmt.Errorf("namespaces.%s must be empty or start with '/', got %q", name, ns)
		}
	}
	return nil
}

func (c *Config) validatePresence() error {
	if c.Presence.TypingTTL <= 0 {
		return fmt.Errorf("presence.typing_ttl must be positive")
	}
	if c.Presence.SweepInterval <= 0 {
		return fmt.Errorf("presence.sweep_interval must be positive")
	}
	if c.Presence.TypingAutoStop < 0 || c.Presence.TypingRateLimit < 0 {
		return fmt.Errorf("presence typing durations must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	switch c.Notifications.Permission {
	case PermissionGranted, PermissionDenied, PermissionDefault:
		return nil
	default:
		return fmt.Errorf("notifications.permission must be granted, denied or default, got %q", c.Notifications.Permission)
	}
}

func (c *Config) validateStatus() error {
	if c.Status.Enabled && c.Status.Addr == "" {
		return fmt.Errorf("status.addr is required when status.enabled is true")
	}
	if c.Status.RateLimit < 0 {
		return fmt.Errorf("status.rate_limit must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
