// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package adapters

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/realtime"
)

// frameServer is a WebSocket endpoint that records every client frame and
// can push frames back.
type frameServer struct {
	t   *testing.T
	srv *httptest.Server

	mu     sync.Mutex
	conns  []*websocket.Conn
	frames []models.WireMessage
}

func newFrameServer(t *testing.T) *frameServer {
	t.Helper()
	s := &frameServer{t: t}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *frameServer) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg models.WireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.mu.Lock()
		s.frames = append(s.frames, msg)
		s.mu.Unlock()
	}
}

func (s *frameServer) push(frameType string, data any) {
	s.t.Helper()
	msg, err := models.NewWireMessage(frameType, data)
	if err != nil {
		s.t.Fatalf("encode: %v", err)
	}
	raw, _ := json.Marshal(msg)
	s.mu.Lock()
	conn := s.conns[len(s.conns)-1]
	s.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		s.t.Fatalf("push: %v", err)
	}
}

// types returns the frame types received so far, ignoring heartbeats.
func (s *frameServer) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.frames {
		if f.Type != models.TypeHeartbeat {
			out = append(out, f.Type)
		}
	}
	return out
}

func (s *frameServer) last(frameType string, into any) {
	s.t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Type == frameType {
			if err := json.Unmarshal(s.frames[i].Data, into); err != nil {
				s.t.Fatalf("decode %s: %v", frameType, err)
			}
			return
		}
	}
	s.t.Fatalf("no %s frame received", frameType)
}

func (s *frameServer) count(frameType string) int {
	n := 0
	for _, ft := range s.types() {
		if ft == frameType {
			n++
		}
	}
	return n
}

// waitFor polls until the server has seen want frames of frameType.
func (s *frameServer) waitFor(frameType string, want int) {
	s.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.count(frameType) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.t.Fatalf("saw %d %s frames, want %d (all: %v)", s.count(frameType), frameType, want, s.types())
}

func newTestHub(t *testing.T, s *frameServer) *realtime.Hub {
	t.Helper()
	opts := realtime.DefaultOptions(s.srv.URL)
	opts.UserID = "u1"
	opts.HeartbeatInterval = time.Hour
	opts.Reconnect = realtime.ReconnectPolicy{MaxAttempts: 3, Interval: 20 * time.Millisecond}
	h := realtime.NewHub(opts)
	t.Cleanup(func() { _ = h.Close() })
	return h
}
