// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/realtime"
)

// ErrConnectionExhausted is returned by NamespaceService when its
// connection gave up reconnecting and RestartOnExhausted is set.
var ErrConnectionExhausted = errors.New("namespace connection exhausted its reconnect attempts")

// Holder acquires namespace sessions. Satisfied by *realtime.Hub.
type Holder interface {
	Acquire(ctx context.Context, namespace string) (*realtime.Session, error)
}

// NamespaceOptions tunes a NamespaceService.
type NamespaceOptions struct {
	// Channels are subscribed for as long as the service runs.
	Channels []string

	// RestartOnExhausted makes the service fail once the connection enters
	// the terminal error state, so the supervisor starts a fresh connection
	// after its own backoff. Without it the error state is left for an
	// operator to resolve.
	RestartOnExhausted bool

	// PollInterval is how often the connection state is checked. Default 1s.
	PollInterval time.Duration

	// OnSession is called with every acquired session, before channels are
	// subscribed. Handlers registered on it are released with it.
	OnSession func(*realtime.Session)
}

// NamespaceService holds one namespace connection for the process
// lifetime.
type NamespaceService struct {
	hub       Holder
	namespace string
	opts      NamespaceOptions
}

// NewNamespaceService creates a service for namespace. opts may be nil.
func NewNamespaceService(hub Holder, namespace string, opts *NamespaceOptions) *NamespaceService {
	s := &NamespaceService{hub: hub, namespace: namespace}
	if opts != nil {
		s.opts = *opts
	}
	if s.opts.PollInterval <= 0 {
		s.opts.PollInterval = time.Second
	}
	return s
}

// Serve implements suture.Service. The session is released on every exit
// path.
func (s *NamespaceService) Serve(ctx context.Context) error {
	sess, err := s.hub.Acquire(ctx, s.namespace)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", s, err)
	}
	defer sess.Release()

	if s.opts.OnSession != nil {
		s.opts.OnSession(sess)
	}
	for _, ch := range s.opts.Channels {
		sess.Subscribe(ch)
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.opts.RestartOnExhausted && sess.State() == models.StateError {
				logging.Warn().Err(sess.LastError()).Str("service", s.String()).
					Msg("Connection exhausted, restarting namespace service")
				return fmt.Errorf("%s: %w", s, ErrConnectionExhausted)
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *NamespaceService) String() string {
	return "namespace:" + logging.DisplayNamespace(s.namespace)
}
