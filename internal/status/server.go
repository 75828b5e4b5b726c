// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

// Package status serves the local health, status and metrics endpoints.
package status

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/telesync/internal/cache"
	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/realtime"
)

// ConnectionLister is satisfied by *realtime.Hub.
type ConnectionLister interface {
	Connections() []realtime.ConnectionStats
}

// Sources feeds the status document. Only Connections is required.
type Sources struct {
	Connections ConnectionLister
	Token       interface{ BreakerState() string }
	Cache       interface{ GetStats() cache.Stats }
	Presence    interface{ OnlineUsers() []string }
	UserID      string
	Version     string
}

// Report is the /status document.
type Report struct {
	Status       string                     `json:"status"`
	Version      string                     `json:"version,omitempty"`
	UserID       string                     `json:"userId,omitempty"`
	Uptime       float64                    `json:"uptimeSeconds"`
	Connections  []realtime.ConnectionStats `json:"connections"`
	TokenBreaker string                     `json:"tokenBreaker,omitempty"`
	Cache        *cache.Stats               `json:"cache,omitempty"`
	OnlineUsers  []string                   `json:"onlineUsers,omitempty"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// Options tunes the HTTP surface.
type Options struct {
	// CORSOrigins allows browser dashboards on these origins to read
	// /status. Empty disables CORS handling.
	CORSOrigins []string

	// RequestsPerMinute limits each client IP. Zero disables limiting.
	RequestsPerMinute int
}

// Handler builds status reports.
type Handler struct {
	src   Sources
	opts  Options
	start time.Time
	now   func() time.Time
}

// NewHandler creates a handler over src.
func NewHandler(src Sources, opts Options) *Handler {
	return &Handler{src: src, opts: opts, start: time.Now(), now: time.Now}
}

// Router mounts /healthz, /status and /metrics.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogging)
	r.Use(chimiddleware.Recoverer)
	if len(h.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			MaxAge:         300,
		}))
	}
	if h.opts.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(h.opts.RequestsPerMinute, time.Minute))
	}

	r.Get("/healthz", h.Health)
	r.Get("/status", h.Status)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Report assembles the current status document.
//
// Overall status is "ok" when every connection is connected, "degraded"
// while any is connecting or disconnected, and "error" when any has
// exhausted its reconnect attempts.
func (h *Handler) Report() Report {
	conns := h.src.Connections.Connections()
	rep := Report{
		Status:      overall(conns),
		Version:     h.src.Version,
		UserID:      h.src.UserID,
		Uptime:      h.now().Sub(h.start).Seconds(),
		Connections: conns,
		Timestamp:   h.now().UTC(),
	}
	if h.src.Token != nil {
		rep.TokenBreaker = h.src.Token.BreakerState()
	}
	if h.src.Cache != nil {
		stats := h.src.Cache.GetStats()
		rep.Cache = &stats
	}
	if h.src.Presence != nil {
		rep.OnlineUsers = h.src.Presence.OnlineUsers()
	}
	return rep
}

func overall(conns []realtime.ConnectionStats) string {
	status := "ok"
	for _, c := range conns {
		switch c.State {
		case models.StateError:
			return "error"
		case models.StateConnected:
		default:
			status = "degraded"
		}
	}
	return status
}

// Health answers 200 unless a connection is in the terminal error state.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	rep := h.Report()
	code := http.StatusOK
	if rep.Status == "error" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": rep.Status})
}

// Status serves the full report.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Report())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal status response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	//nolint:errcheck // HTTP response write errors are not recoverable
	w.Write(data)
}

// NewServer wraps the router in an http.Server for addr.
func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
