// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/realtime"
	"github.com/tomtom215/telesync/internal/validation"
)

var (
	// ErrInvalidChannel is returned by Open when a channel name is malformed.
	ErrInvalidChannel = errors.New("invalid channel name")

	// ErrNotOpen is returned by operations that need an open adapter.
	ErrNotOpen = errors.New("adapter not open")
)

// Acquirer hands out sessions on shared namespace connections.
type Acquirer interface {
	Acquire(ctx context.Context, namespace string) (*realtime.Session, error)
}

var _ Acquirer = (*realtime.Hub)(nil)

// Channel builders.
func ConversationChannel(conversationID string) string { return "conversation:" + conversationID }
func NotificationChannel(userID string) string         { return "notifications:" + userID }
func MeetingChannel(meetingID string) string           { return "meeting:" + meetingID }
func WorksheetChannel(userID string) string            { return "worksheets:" + userID }

// scope is the open/close lifetime shared by every adapter. It owns one
// session and the channels subscribed through it.
type scope struct {
	hub       Acquirer
	namespace string
	log       zerolog.Logger

	mu      sync.Mutex
	session *realtime.Session
}

func (s *scope) bind(hub Acquirer, namespace, component string) {
	s.hub = hub
	s.namespace = namespace
	s.log = logging.WithComponent(component).With().
		Str("namespace", logging.DisplayNamespace(namespace)).Logger()
}

// open acquires the session and subscribes channels. Opening an open
// scope is a no-op. On any error nothing stays acquired.
func (s *scope) open(ctx context.Context, channels ...string) (*realtime.Session, bool, error) {
	for _, ch := range channels {
		if !validation.ValidChannel(ch) {
			return nil, false, fmt.Errorf("%w: %q", ErrInvalidChannel, ch)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session, false, nil
	}

	sess, err := s.hub.Acquire(ctx, s.namespace)
	if err != nil {
		return nil, false, err
	}
	for _, ch := range channels {
		sess.Subscribe(ch)
	}
	s.session = sess
	s.log.Debug().Strs("channels", channels).Msg("Adapter opened")
	return sess, true, nil
}

// close releases the session, which revokes its subscriptions and
// handlers. It reports whether the scope was open.
func (s *scope) close() bool {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()
	if sess == nil {
		return false
	}
	sess.Release()
	s.log.Debug().Msg("Adapter closed")
	return true
}

func (s *scope) current() *realtime.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// send forwards an action frame. It fails when the scope is closed or the
// connection is down; nothing is queued.
func (s *scope) send(frameType string, payload any) bool {
	sess := s.current()
	if sess == nil {
		s.log.Warn().Str("type", frameType).Msg("Action on a closed adapter")
		return false
	}
	return sess.SendMessage(frameType, payload)
}

// IsConnected reports whether the adapter's shared connection is open.
func (s *scope) IsConnected() bool {
	sess := s.current()
	return sess != nil && sess.IsConnected()
}

// ConnectionState returns the shared connection state, or Disconnected
// while the adapter is closed.
func (s *scope) ConnectionState() models.ConnectionState {
	sess := s.current()
	if sess == nil {
		return models.StateDisconnected
	}
	return sess.State()
}

// LastError returns the shared connection's last error.
func (s *scope) LastError() error {
	sess := s.current()
	if sess == nil {
		return nil
	}
	return sess.LastError()
}
