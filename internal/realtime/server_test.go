// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/telesync/internal/models"
)

// receivedFrame is a client frame as seen by the mock server.
type receivedFrame struct {
	conn int
	msg  models.WireMessage
}

// handshake records one upgrade request.
type handshake struct {
	path   string
	query  string
	header http.Header
}

// mockServer is a WebSocket endpoint that records client frames and lets
// tests push frames or kill the socket.
type mockServer struct {
	t   *testing.T
	srv *httptest.Server

	// reject answers handshakes with 503 while set.
	reject atomic.Bool
	// echoHeartbeats echoes client heartbeats while set.
	echoHeartbeats atomic.Bool

	attempts atomic.Int32

	mu         sync.Mutex
	writeMu    sync.Mutex
	conns      []*websocket.Conn
	frames     []receivedFrame
	handshakes []handshake
	closeCodes []int
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{t: t}
	m.echoHeartbeats.Store(true)
	m.srv = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.srv.Close)
	return m
}

// URL returns the http:// base URL; Connection maps it to ws://.
func (m *mockServer) URL() string { return m.srv.URL }

func (m *mockServer) handle(w http.ResponseWriter, r *http.Request) {
	m.attempts.Add(1)
	if m.reject.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	m.mu.Lock()
	idx := len(m.conns)
	m.conns = append(m.conns, conn)
	m.handshakes = append(m.handshakes, handshake{
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		header: r.Header.Clone(),
	})
	m.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				m.mu.Lock()
				m.closeCodes = append(m.closeCodes, ce.Code)
				m.mu.Unlock()
			}
			return
		}
		var msg models.WireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		m.mu.Lock()
		m.frames = append(m.frames, receivedFrame{conn: idx, msg: msg})
		m.mu.Unlock()

		if msg.Type == models.TypeHeartbeat && m.echoHeartbeats.Load() {
			m.write(conn, data)
		}
	}
}

func (m *mockServer) write(conn *websocket.Conn, data []byte) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// latest returns the most recently accepted socket.
func (m *mockServer) latest() *websocket.Conn {
	m.t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.conns) == 0 {
		m.t.Fatal("no connection accepted yet")
	}
	return m.conns[len(m.conns)-1]
}

// push writes a raw text frame to the latest socket.
func (m *mockServer) push(raw string) {
	m.t.Helper()
	m.write(m.latest(), []byte(raw))
}

// pushFrame writes a frame of frameType with data to the latest socket.
func (m *mockServer) pushFrame(frameType string, data any) {
	m.t.Helper()
	msg, err := models.NewWireMessage(frameType, data)
	if err != nil {
		m.t.Fatalf("encode frame: %v", err)
	}
	msg.Stamp(time.Now())
	raw, err := json.Marshal(msg)
	if err != nil {
		m.t.Fatalf("encode frame: %v", err)
	}
	m.write(m.latest(), raw)
}

// drop kills the latest socket without a close frame; the client sees 1006.
func (m *mockServer) drop() {
	m.t.Helper()
	_ = m.latest().UnderlyingConn().Close()
}

func (m *mockServer) connCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// framesOf returns frames of frameType, optionally restricted to socket idx
// (idx < 0 means all sockets).
func (m *mockServer) framesOf(frameType string, idx int) []models.WireMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WireMessage
	for _, f := range m.frames {
		if f.msg.Type == frameType && (idx < 0 || f.conn == idx) {
			out = append(out, f.msg)
		}
	}
	return out
}

// channelsOf decodes the channel of each subscribe/unsubscribe frame.
func channelsOf(t *testing.T, frames []models.WireMessage) []string {
	t.Helper()
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		var p models.SubscriptionPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			t.Fatalf("decode subscription payload: %v", err)
		}
		out = append(out, p.Channel)
	}
	return out
}

func (m *mockServer) handshakeAt(i int) handshake {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handshakes[i]
}

func (m *mockServer) codes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.closeCodes...)
}

// eventually polls cond until it holds or timeout elapses.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("%s: condition not met after %v", msg, timeout)
	}
}

// testOptions returns options with short timers for tests.
func testOptions(url string) Options {
	opts := DefaultOptions(url)
	opts.UserID = "u1"
	opts.HandshakeTimeout = 2 * time.Second
	opts.WriteTimeout = time.Second
	opts.HeartbeatInterval = time.Hour
	opts.Reconnect = ReconnectPolicy{
		MaxAttempts: 5,
		Interval:    20 * time.Millisecond,
		Strategy:    StrategyConstant,
	}
	return opts
}
