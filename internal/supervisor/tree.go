// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration. Zero fields take the
// values from DefaultTreeConfig.
type TreeConfig struct {
	// FailureThreshold is the number of failures before a layer backs off.
	FailureThreshold float64

	// FailureDecay is the rate, in seconds, at which failures decay.
	FailureDecay float64

	// FailureBackoff is the backoff of the presence and api layers.
	FailureBackoff time.Duration

	// RealtimeBackoff is the backoff of the realtime layer. It is shorter
	// than FailureBackoff because a namespace service that keeps failing
	// means the user is offline for that domain.
	RealtimeBackoff time.Duration

	// ShutdownTimeout bounds how long each service gets to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the production defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		RealtimeBackoff:  5 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	def := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = def.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = def.FailureBackoff
	}
	if c.RealtimeBackoff == 0 {
		c.RealtimeBackoff = def.RealtimeBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) spec(backoff time.Duration) suture.Spec {
	return suture.Spec{
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   backoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// SupervisorTree runs the listener's long-lived services in three
// independent layers:
//   - realtime: one NamespaceService per held namespace
//   - presence: the typing indicator sweeper
//   - api: the local status server
//
// A status server crash never drops a live connection, and a namespace
// restart never pauses typing expiry.
type SupervisorTree struct {
	root     *suture.Supervisor
	realtime *suture.Supervisor
	presence *suture.Supervisor
	api      *suture.Supervisor
	config   TreeConfig
}

// NewSupervisorTree builds the tree. Supervisor events are logged through
// logger via sutureslog.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	config = config.withDefaults()

	rootSpec := config.spec(config.FailureBackoff)
	// Children inherit the hook from the root.
	rootSpec.EventHook = (&sutureslog.Handler{Logger: logger}).MustHook()

	t := &SupervisorTree{
		root:     suture.New("telesync", rootSpec),
		realtime: suture.New("realtime-layer", config.spec(config.RealtimeBackoff)),
		presence: suture.New("presence-layer", config.spec(config.FailureBackoff)),
		api:      suture.New("api-layer", config.spec(config.FailureBackoff)),
		config:   config,
	}
	for _, layer := range []*suture.Supervisor{t.realtime, t.presence, t.api} {
		t.root.Add(layer)
	}
	return t, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor { return t.root }

// AddRealtimeService adds a namespace connection service.
func (t *SupervisorTree) AddRealtimeService(svc suture.Service) suture.ServiceToken {
	return t.realtime.Add(svc)
}

// RemoveRealtimeService stops and removes a namespace connection service.
func (t *SupervisorTree) RemoveRealtimeService(token suture.ServiceToken) error {
	return t.realtime.Remove(token)
}

// AddPresenceService adds the typing sweeper.
func (t *SupervisorTree) AddPresenceService(svc suture.Service) suture.ServiceToken {
	return t.presence.Add(svc)
}

// AddAPIService adds the status server.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error { return t.root.Serve(ctx) }

// ServeBackground runs the tree in a goroutine. The returned channel
// receives exactly one value when the tree stops and is never closed.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
