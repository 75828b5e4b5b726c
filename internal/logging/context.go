// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	namespaceKey     contextKey = "namespace"
)

// GenerateCorrelationID returns the first 8 characters of a UUID.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a context carrying id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context carrying a fresh correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation ID or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithNamespace returns a context carrying the real-time namespace.
func ContextWithNamespace(ctx context.Context, namespace string) context.Context {
	return context.WithValue(ctx, namespaceKey, namespace)
}

// NamespaceFromContext returns the namespace and whether one was set.
// The main namespace is the empty string, so presence is reported separately.
func NamespaceFromContext(ctx context.Context) (string, bool) {
	ns, ok := ctx.Value(namespaceKey).(string)
	return ns, ok
}

// Ctx returns the global logger decorated with the correlation ID and
// namespace stored in ctx.
//
//	logging.Ctx(ctx).Info().Msg("Subscribed")
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := Logger().With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		lc = lc.Str("correlation_id", id)
	}
	if ns, ok := NamespaceFromContext(ctx); ok {
		lc = lc.Str("namespace", DisplayNamespace(ns))
	}
	l := lc.Logger()
	return &l
}

// ForConnection returns a logger for one physical connection.
func ForConnection(connID, namespace string) zerolog.Logger {
	return Logger().With().
		Str("component", "connection").
		Str("conn_id", connID).
		Str("namespace", DisplayNamespace(namespace)).
		Logger()
}

// WithComponent creates a child logger with a component field.
//
//	log := logging.WithComponent("reconciler")
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// DisplayNamespace renders the main namespace as "/" so it is visible in logs.
func DisplayNamespace(ns string) string {
	if ns == "" {
		return "/"
	}
	return ns
}
