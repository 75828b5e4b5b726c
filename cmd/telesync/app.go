// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package main

import (
	"errors"
	"io"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/telesync/internal/adapters"
	"github.com/tomtom215/telesync/internal/cache"
	"github.com/tomtom215/telesync/internal/config"
	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/presence"
	"github.com/tomtom215/telesync/internal/realtime"
	"github.com/tomtom215/telesync/internal/reconcile"
	"github.com/tomtom215/telesync/internal/status"
)

var errNoUser = errors.New("session.user_id is required (set TELESYNC_SESSION_USER_ID)")

// app is the wired client: one hub, one cache and the consumers attached
// to the hub's dispatcher.
type app struct {
	cfg        *config.Config
	hub        *realtime.Hub
	tokens     *realtime.TokenSource
	cache      *cache.QueryCache
	reconciler *reconcile.Reconciler
	tracker    *presence.Tracker
	detach     []func()
}

func newApp(cfg *config.Config, toasts io.Writer) (*app, error) {
	if cfg.Session.UserID == "" {
		return nil, errNoUser
	}

	a := &app{cfg: cfg, cache: cache.New()}

	opts := realtime.DefaultOptions(cfg.Server.URL)
	opts.UserID = cfg.Session.UserID
	opts.TokenQueryParam = cfg.Server.TokenQueryParam
	opts.HandshakeTimeout = cfg.Server.HandshakeTimeout
	opts.WriteTimeout = cfg.Server.WriteTimeout
	opts.EnableCompression = cfg.Server.EnableCompression
	opts.HeartbeatInterval = cfg.Realtime.HeartbeatInterval
	opts.HeartbeatTimeout = cfg.Realtime.HeartbeatTimeout
	opts.Reconnect = realtime.ReconnectPolicy{
		MaxAttempts: cfg.Realtime.MaxReconnectAttempts,
		Interval:    cfg.Realtime.ReconnectInterval,
		Strategy:    cfg.Realtime.ReconnectStrategy,
		MaxInterval: cfg.Realtime.MaxReconnectInterval,
	}
	opts.OnNotice = logNotice

	switch {
	case cfg.Session.TokenFile != "":
		a.tokens = realtime.NewTokenSource(realtime.FileToken(cfg.Session.TokenFile))
	case cfg.Session.Token != "":
		a.tokens = realtime.NewTokenSource(realtime.StaticToken(cfg.Session.Token))
	}
	if a.tokens != nil {
		opts.Token = a.tokens
	}

	a.hub = realtime.NewHub(opts)

	a.reconciler = reconcile.New(a.cache, reconcile.Options{
		UserID:       cfg.Session.UserID,
		EnableToasts: cfg.Notifications.Toasts,
		EnableSystem: cfg.Notifications.System,
		Notifier:     newLogNotifier(toasts),
		Permission:   reconcile.StaticPermission(cfg.Notifications.Permission),
	})
	a.tracker = presence.NewTracker(presence.Options{
		UserID:        cfg.Session.UserID,
		TypingTTL:     cfg.Presence.TypingTTL,
		SweepInterval: cfg.Presence.SweepInterval,
	})

	dispatcher := a.hub.Dispatcher()
	a.detach = append(a.detach, a.reconciler.Attach(dispatcher), a.tracker.Attach(dispatcher))

	a.cache.OnChange(func(keys []string) {
		logging.Debug().Strs("keys", keys).Msg("Cache updated")
	})
	return a, nil
}

// close detaches consumers and closes every connection.
func (a *app) close() {
	for _, fn := range a.detach {
		fn()
	}
	if err := a.hub.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing hub")
	}
}

// statusHandler reports on this app.
func (a *app) statusHandler() *status.Handler {
	src := status.Sources{
		Connections: a.hub,
		Cache:       a.cache,
		Presence:    a.tracker,
		UserID:      a.cfg.Session.UserID,
		Version:     version,
	}
	if a.tokens != nil {
		src.Token = a.tokens
	}
	return status.NewHandler(src, status.Options{
		CORSOrigins:       a.cfg.Status.CORSOrigins,
		RequestsPerMinute: a.cfg.Status.RateLimit,
	})
}

// namespacePlan is the channel set a listener holds in one namespace.
type namespacePlan struct {
	namespace string
	channels  []string
}

// plans groups the per-user channels by namespace. Domains sharing a
// namespace share one connection. Messaging and meetings are held even
// with no user-level channel so presence and room traffic can flow.
func (a *app) plans() []namespacePlan {
	ns := a.cfg.Namespaces
	user := a.cfg.Session.UserID

	byNS := map[string][]string{
		ns.Messaging: nil,
		ns.Meetings:  nil,
	}
	byNS[ns.Notifications] = append(byNS[ns.Notifications], adapters.NotificationChannel(user))
	byNS[ns.Worksheets] = append(byNS[ns.Worksheets], adapters.WorksheetChannel(user))

	out := make([]namespacePlan, 0, len(byNS))
	for namespace, channels := range byNS {
		out = append(out, namespacePlan{namespace: namespace, channels: channels})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].namespace < out[j].namespace })
	return out
}

func logNotice(n realtime.Notice) {
	ev := logging.Warn()
	if n.Kind == realtime.NoticeConnectionLost {
		ev = logging.Error()
	}
	ev.Err(n.Err).Str("notice", string(n.Kind)).
		Str("namespace", logging.DisplayNamespace(n.Namespace)).
		Msg(n.Message)
}

// logNotifier renders toasts and system notifications as JSON lines on a
// dedicated writer. Lines carry no level so logging.level never hides them.
type logNotifier struct {
	log zerolog.Logger
}

func newLogNotifier(w io.Writer) *logNotifier {
	if w == nil {
		w = io.Discard
	}
	return &logNotifier{log: zerolog.New(w).With().Timestamp().Logger()}
}

func (n *logNotifier) Toast(t reconcile.Toast) {
	n.log.Log().
		Str("surface", "toast").
		Str("kind", string(t.Kind)).
		Str("title", t.Title).
		Str("body", t.Message).
		Dur("duration", t.Duration).
		Str("action_url", t.ActionURL).
		Send()
}

func (n *logNotifier) SystemNotify(s reconcile.SystemNotification) {
	n.log.Log().
		Str("surface", "system").
		Str("title", s.Title).
		Str("body", s.Body).
		Str("tag", s.Tag).
		Bool("require_interaction", s.RequireInteraction).
		Send()
}
