// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

// Package logging provides the process-wide zerolog logger for Telesync.
//
// Every package logs through here so that one level, one format and the
// process fields (app, version, user_id) apply everywhere:
//
//	logging.Init(logging.Config{
//		Level:  "info",
//		Format: "json",
//		Fields: map[string]string{"user_id": "u1"},
//	})
//
//	logging.Info().Str("namespace", "/messaging").Msg("Connected")
//	logging.Warn().Err(err).Msg("Dropping malformed frame")
//
// Connection-scoped loggers carry `conn_id` and `namespace`:
//
//	log := logging.ForConnection(connID, namespace)
//	log.Info().Msg("Heartbeat sent")
//
// An event chain is only written once it ends in Msg() or Send().
package logging

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, disabled.
	Level string

	// Format is json or console.
	Format string

	// Caller adds file:line to each entry.
	Caller bool

	// Timestamp adds a time field. Default: true.
	Timestamp bool

	// Fields are attached to every entry, e.g. version and user_id.
	Fields map[string]string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Fields:    map[string]string{"app": "telesync"},
		Output:    os.Stderr,
	}
}

var current atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // packages log before the CLI has parsed its config
func init() {
	cfg := DefaultConfig()
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Level = lvl
	}
	Init(cfg)
}

// Init replaces the global logger. Safe to call more than once and from
// multiple goroutines; the last call wins.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	zc := zerolog.New(out).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}

	// Sorted so field order is stable across runs.
	names := make([]string, 0, len(cfg.Fields))
	for k := range cfg.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if v := cfg.Fields[k]; v != "" {
			zc = zc.Str(k, v)
		}
	}

	l := zc.Logger()
	current.Store(&l)
}

var levelAliases = map[string]zerolog.Level{
	"warning": zerolog.WarnLevel,
	"off":     zerolog.Disabled,
}

// parseLevel maps a level name to zerolog.Level. Unknown or empty names
// mean info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if lvl, ok := levelAliases[level]; ok {
		return lvl
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	level = strings.ToLower(strings.TrimSpace(level))
	if _, ok := levelAliases[level]; ok {
		return true
	}
	lvl, err := zerolog.ParseLevel(level)
	return err == nil && level != "" && lvl != zerolog.NoLevel
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return *current.Load()
}

// SetLogger replaces the global logger. Tests use it to capture output.
//
//nolint:gocritic // zerolog.Logger is passed by value throughout zerolog
func SetLogger(l zerolog.Logger) {
	current.Store(&l)
}

// Debug starts a debug level message.
func Debug() *zerolog.Event { return current.Load().Debug() }

// Info starts an info level message.
func Info() *zerolog.Event { return current.Load().Info() }

// Warn starts a warn level message.
func Warn() *zerolog.Event { return current.Load().Warn() }

// Error starts an error level message.
func Error() *zerolog.Event { return current.Load().Error() }

// SetLevelString updates the global level by name.
func SetLevelString(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// NewTestLogger creates a JSON logger writing to w.
//
//	var buf bytes.Buffer
//	logging.SetLogger(logging.NewTestLogger(&buf))
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
