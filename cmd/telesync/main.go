// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

// Package main is the telesync command-line client.
//
// telesync keeps one WebSocket connection per namespace to the platform's
// real-time service, reconciles pushed events into an in-memory query
// cache and surfaces user-facing events as log-rendered toasts.
//
// # Commands
//
//	telesync listen                 # hold connections until interrupted
//	telesync send message <conv> <text>
//	telesync send read-all
//	telesync status                 # query a running listener
//	telesync version
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (TELESYNC_SERVER_URL, TELESYNC_SESSION_USER_ID,
//     TELESYNC_SESSION_TOKEN, ...; WS_URL is accepted for server.url)
//   - Config file (--config, $TELESYNC_CONFIG, or telesync.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// listen shuts down on SIGINT and SIGTERM: adapters leave their rooms,
// the supervisor tree stops every service, then all sockets are closed
// with a normal closure.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/telesync/internal/config"
	"github.com/tomtom215/telesync/internal/logging"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "telesync",
	Short:         "Real-time event synchronization client for telehealth",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $TELESYNC_CONFIG or telesync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
}

// loadConfig loads configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logging.Init(logging.Config{
		Level:     level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Fields: map[string]string{
			"app":     "telesync",
			"version": version,
			"user_id": cfg.Session.UserID,
		},
	})
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
