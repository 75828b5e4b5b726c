// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"sync"

	"github.com/tomtom215/telesync/internal/models"
)

// Session is one holder's handle on a shared namespace connection. It
// tracks the subscriptions and handlers made through it and undoes all of
// them on Release, so a holder cannot leak interest past its lifetime.
type Session struct {
	hub  *Hub
	conn *Connection

	mu          sync.Mutex
	channels    map[string]int
	deregisters []func()
	released    bool
	releaseOnce sync.Once
}

func newSession(h *Hub, conn *Connection) *Session {
	return &Session{
		hub:      h,
		conn:     conn,
		channels: make(map[string]int),
	}
}

// Namespace returns the namespace of the underlying connection.
func (s *Session) Namespace() string { return s.conn.Namespace() }

// IsConnected reports whether the shared connection is open.
func (s *Session) IsConnected() bool { return s.conn.IsConnected() }

// State returns the shared connection state.
func (s *Session) State() models.ConnectionState { return s.conn.State() }

// LastError returns the shared connection's last transport error.
func (s *Session) LastError() error { return s.conn.LastError() }

// SendMessage sends payload as a frame of frameType. It returns false when
// not connected or after Release.
func (s *Session) SendMessage(frameType string, payload any) bool {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return false
	}
	return s.conn.Send(frameType, payload)
}

// Subscribe registers interest in channel on the shared connection.
func (s *Session) Subscribe(channel string) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.channels[channel]++
	s.mu.Unlock()
	s.conn.Subscriptions().Subscribe(channel)
}

// Unsubscribe drops one unit of interest this session holds in channel.
// Channels this session never subscribed are ignored.
func (s *Session) Unsubscribe(channel string) {
	s.mu.Lock()
	if s.channels[channel] == 0 {
		s.mu.Unlock()
		return
	}
	s.channels[channel]--
	if s.channels[channel] == 0 {
		delete(s.channels, channel)
	}
	s.mu.Unlock()
	s.conn.Subscriptions().Unsubscribe(channel)
}

// On registers h for eventType on the shared dispatcher. The handler is
// removed on Release or by calling the returned function.
func (s *Session) On(eventType models.EventType, h Handler) func() {
	return s.track(s.hub.dispatcher.RegisterHandler(eventType, h))
}

// OnAny registers h for every event type.
func (s *Session) OnAny(h Handler) func() {
	return s.track(s.hub.dispatcher.RegisterAny(h))
}

func (s *Session) track(deregister func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		deregister()
		return func() {}
	}
	s.deregisters = append(s.deregisters, deregister)
	return deregister
}

// Release removes the session's handlers and subscriptions and drops its
// hold on the connection. It is safe to call more than once.
func (s *Session) Release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		s.released = true
		deregisters := s.deregisters
		channels := s.channels
		s.deregisters = nil
		s.channels = map[string]int{}
		s.mu.Unlock()

		for _, d := range deregisters {
			d()
		}
		subs := s.conn.Subscriptions()
		for ch, n := range channels {
			for range n {
				subs.Unsubscribe(ch)
			}
		}
		s.hub.release(s.conn)
	})
}
