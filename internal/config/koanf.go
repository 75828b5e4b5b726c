// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"telesync.yaml",
	"telesync.yml",
	"config.yaml",
	"/etc/telesync/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "TELESYNC_CONFIG"

// envPrefix marks environment variables that map generically to config keys.
const envPrefix = "telesync_"

// legacyEnv maps environment names used by the web client deployment.
var legacyEnv = map[string]string{
	"ws_url":             "server.url",
	"next_public_ws_url": "server.url",
	"log_level":          "logging.level",
	"log_format":         "logging.format",
}

// Load reads configuration with the precedence defaults < file < environment.
// An explicit path takes priority over the search path; a missing explicit
// file is an error, a missing default file is not.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf paths:
//
//   - TELESYNC_SERVER_URL -> server.url
//   - TELESYNC_REALTIME_MAX_RECONNECT_ATTEMPTS -> realtime.max_reconnect_attempts
//   - WS_URL -> server.url
//
// Anything else returns "" so unrelated variables never reach the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if mapped, ok := legacyEnv[key]; ok {
		return mapped
	}
	if !strings.HasPrefix(key, envPrefix) || key == strings.ToLower(ConfigPathEnvVar) {
		return ""
	}

	section, rest, ok := strings.Cut(strings.TrimPrefix(key, envPrefix), "_")
	if !ok || rest == "" {
		return ""
	}
	return section + "." + rest
}
