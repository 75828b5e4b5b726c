// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/metrics"
	"github.com/tomtom215/telesync/internal/models"
)

// HeartbeatRecord tracks liveness of the current socket.
type HeartbeatRecord struct {
	LastSent time.Time
	LastAck  time.Time
}

// ConnectionStats is a point-in-time view of a connection for status output.
type ConnectionStats struct {
	Namespace         string                 `json:"namespace"`
	ConnID            string                 `json:"connId"`
	State             models.ConnectionState `json:"state"`
	Attempts          int                    `json:"reconnectAttempts"`
	MaxAttempts       int                    `json:"maxReconnectAttempts"`
	LastError         string                 `json:"lastError,omitempty"`
	LastConnected     time.Time              `json:"lastConnected,omitzero"`
	LastHeartbeatSent time.Time              `json:"lastHeartbeatSent,omitzero"`
	LastHeartbeatAck  time.Time              `json:"lastHeartbeatAck,omitzero"`
	PingMs            int64                  `json:"pingMs"`
	Quality           Quality                `json:"quality"`
	Subscriptions     []string               `json:"subscriptions"`
	Timeline          []TimelineEvent        `json:"timeline"`
}

// Connection owns one physical WebSocket for one namespace: handshake,
// heartbeat and automatic reconnection.
//
// Every socket gets a generation number. Callbacks from the read loop,
// heartbeat loop and reconnect timer carry the generation they were started
// for and become no-ops once Disconnect or a newer socket bumped it, so a
// torn-down socket can never change state.
type Connection struct {
	namespace  string
	opts       Options
	dispatcher *Dispatcher
	subs       *Subscriptions
	connID     string
	log        zerolog.Logger

	mu             sync.Mutex
	state          models.ConnectionState
	conn           *websocket.Conn
	gen            uint64
	manual         bool
	attempts       int
	backoff        backoff.BackOff
	reconnectTimer *time.Timer
	lifeCtx        context.Context
	lifeCancel     context.CancelFunc
	stopHeartbeat  chan struct{}
	lastError      error
	lastConnected  time.Time
	heartbeat      HeartbeatRecord
	rtt            time.Duration
	timeline       timeline
	onConnect      []func()

	// writeMu serializes frame writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	wg sync.WaitGroup
}

// NewConnection creates a disconnected connection for namespace. Inbound
// events are routed to dispatcher.
func NewConnection(namespace string, opts Options, dispatcher *Dispatcher) *Connection {
	opts.withDefaults()
	connID := logging.GenerateCorrelationID()
	c := &Connection{
		namespace:  namespace,
		opts:       opts,
		dispatcher: dispatcher,
		connID:     connID,
		log:        logging.ForConnection(connID, namespace),
		backoff:    opts.Reconnect.newBackOff(),
	}
	c.subs = newSubscriptions(namespace, opts.UserID, c)
	metrics.SetConnectionState(namespace, int(models.StateDisconnected))
	return c
}

// Namespace returns the namespace this connection serves.
func (c *Connection) Namespace() string { return c.namespace }

// Subscriptions returns the channel registry bound to this connection.
func (c *Connection) Subscriptions() *Subscriptions { return c.subs }

// State returns the current lifecycle state.
func (c *Connection) State() models.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether State() == StateConnected.
func (c *Connection) IsConnected() bool {
	return c.State() == models.StateConnected
}

// LastError returns the most recent transport error, or nil after a
// successful open.
func (c *Connection) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// OnConnect registers fn to run after every successful open.
func (c *Connection) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

// Connect opens the socket. It is a no-op while connected or connecting.
// A failed dial is handed to the reconnect policy and also returned so the
// caller can log it; the caller need not retry.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == models.StateConnected || c.state == models.StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.manual = false
	c.stopReconnectTimerLocked()
	if c.state == models.StateError {
		c.attempts = 0
		c.backoff.Reset()
	}
	if c.lifeCancel == nil {
		c.lifeCtx, c.lifeCancel = context.WithCancel(context.Background())
	}
	gen := c.beginDialLocked()
	lifeCtx := c.lifeCtx
	c.mu.Unlock()

	dialCtx, cancel := mergeCancel(ctx, lifeCtx)
	defer cancel()
	return c.dial(dialCtx, gen)
}

// Reconnect resets the attempt counter and connects. It is the only way out
// of the terminal error state besides a plain Connect.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	c.attempts = 0
	c.backoff.Reset()
	c.mu.Unlock()
	return c.Connect(ctx)
}

// Disconnect stops reconnection, stops the heartbeat and closes the socket
// with a normal closure. It is safe to call repeatedly and from handlers;
// it does not wait for the read goroutine (use Close for that).
func (c *Connection) Disconnect() {
	c.mu.Lock()
	c.manual = true
	c.gen++
	c.stopReconnectTimerLocked()
	c.stopHeartbeatLocked()
	if c.lifeCancel != nil {
		c.lifeCancel()
		c.lifeCtx, c.lifeCancel = nil, nil
	}
	conn := c.conn
	c.conn = nil
	wasOpen := c.state != models.StateDisconnected
	c.setStateLocked(models.StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			c.log.Debug().Err(err).Msg("Close frame not delivered")
		}
		_ = conn.Close()
	}
	if wasOpen {
		c.log.Info().Msg("Disconnected")
	}
}

// Close disconnects and waits for the read and heartbeat goroutines to
// exit. It must not be called from an event handler.
func (c *Connection) Close() {
	c.Disconnect()
	c.wg.Wait()
}

// SendMessage writes msg, stamping its timestamp if absent. It returns
// false without writing when not connected; that path also raises a
// NoticeNotConnected notice.
func (c *Connection) SendMessage(msg models.WireMessage) bool {
	_, ok, err := c.write(msg)
	if errors.Is(err, ErrNotConnected) {
		c.log.Warn().Str("type", msg.Type).Msg("Cannot send message: not connected")
		c.notify(Notice{
			Kind:      NoticeNotConnected,
			Namespace: c.namespace,
			Message:   "Not connected to real-time service",
			Err:       ErrNotConnected,
		})
	}
	return ok
}

// Send marshals payload into a frame of frameType and sends it.
func (c *Connection) Send(frameType string, payload any) bool {
	msg, err := models.NewWireMessage(frameType, payload)
	if err != nil {
		c.log.Error().Err(err).Str("type", frameType).Msg("Failed to encode outbound payload")
		metrics.RecordSendFailure(c.namespace, "encode")
		return false
	}
	return c.SendMessage(msg)
}

// sendFrame implements frameSender for the subscription registry. Frames
// sent while offline are silently skipped; resubscribe covers them.
func (c *Connection) sendFrame(msg models.WireMessage) (uint64, bool) {
	gen, ok, _ := c.write(msg)
	return gen, ok
}

// write stamps and writes msg on the current socket, returning the socket
// generation it went out on.
func (c *Connection) write(msg models.WireMessage) (uint64, bool, error) {
	c.mu.Lock()
	conn, state, gen := c.conn, c.state, c.gen
	c.mu.Unlock()

	if state != models.StateConnected || conn == nil {
		metrics.RecordSendFailure(c.namespace, "not_connected")
		return 0, false, ErrNotConnected
	}

	msg.Stamp(time.Now())
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Str("type", msg.Type).Msg("Failed to encode frame")
		metrics.RecordSendFailure(c.namespace, "encode")
		return 0, false, err
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()

	if err != nil {
		// The read loop observes the broken socket and drives reconnection.
		c.log.Warn().Err(err).Str("type", msg.Type).Msg("Failed to write frame")
		metrics.RecordSendFailure(c.namespace, "write")
		return 0, false, err
	}
	metrics.RecordFrameSent(c.namespace, msg.Type)
	return gen, true, nil
}

// Stats returns a snapshot for status output.
func (c *Connection) Stats() ConnectionStats {
	c.mu.Lock()
	stats := ConnectionStats{
		Namespace:         c.namespace,
		ConnID:            c.connID,
		State:             c.state,
		Attempts:          c.attempts,
		MaxAttempts:       c.opts.Reconnect.MaxAttempts,
		LastConnected:     c.lastConnected,
		LastHeartbeatSent: c.heartbeat.LastSent,
		LastHeartbeatAck:  c.heartbeat.LastAck,
		PingMs:            c.rtt.Milliseconds(),
		Quality:           rateQuality(c.state, c.rtt),
		Timeline:          c.timeline.snapshot(),
	}
	if c.lastError != nil {
		stats.LastError = c.lastError.Error()
	}
	c.mu.Unlock()

	stats.Subscriptions = c.subs.Channels()
	return stats
}

// beginDialLocked moves to Connecting under a fresh generation.
func (c *Connection) beginDialLocked() uint64 {
	c.gen++
	c.setStateLocked(models.StateConnecting)
	return c.gen
}

func (c *Connection) dial(ctx context.Context, gen uint64) error {
	token := ""
	if c.opts.Token != nil {
		tok, err := c.opts.Token.Token(ctx)
		if err != nil {
			c.fail(gen, err)
			return err
		}
		token = tok
	}

	target, err := endpoint(c.opts.URL, c.namespace, c.opts.TokenQueryParam, token)
	if err != nil {
		c.fail(gen, err)
		return err
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  c.opts.HandshakeTimeout,
		EnableCompression: c.opts.EnableCompression,
	}

	c.log.Debug().Uint64("gen", gen).Msg("Connecting")
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug().Err(cerr).Msg("Failed to close handshake response body")
		}
	}
	metrics.RecordDial(c.namespace, err)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		} else {
			err = fmt.Errorf("websocket dial failed: %w", err)
		}
		c.fail(gen, err)
		return err
	}

	c.mu.Lock()
	if gen != c.gen || c.manual {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrDisconnected
	}
	c.conn = conn
	c.attempts = 0
	c.backoff.Reset()
	c.lastError = nil
	c.lastConnected = time.Now()
	c.heartbeat = HeartbeatRecord{}
	c.rtt = 0
	stop := make(chan struct{})
	c.stopHeartbeat = stop
	c.setStateLocked(models.StateConnected)
	callbacks := append([]func(){}, c.onConnect...)
	// Added under mu so a Close that follows Disconnect waits for both loops.
	c.wg.Add(2)
	c.mu.Unlock()

	c.log.Info().Msg("Connected")

	c.subs.resubscribe(gen)

	go c.readLoop(gen, conn)
	go c.heartbeatLoop(gen, conn, stop)

	for _, fn := range callbacks {
		if !c.current(gen) {
			return ErrDisconnected
		}
		c.safeCallback(fn)
	}
	return nil
}

// current reports whether gen is still the live socket generation.
func (c *Connection) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen && !c.manual
}

// readLoop delivers frames in wire order until the socket fails.
func (c *Connection) readLoop(gen uint64, conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.closed(gen, conn, err)
			return
		}
		c.handleFrame(gen, data)
	}
}

func (c *Connection) handleFrame(gen uint64, data []byte) {
	var msg models.WireMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		if err == nil {
			err = errors.New("frame has no type")
		}
		c.log.Warn().Err(err).Int("bytes", len(data)).Msg("Dropping malformed frame")
		metrics.RecordFrameDropped(c.namespace, "malformed")
		return
	}
	metrics.RecordFrameReceived(c.namespace, msg.Type)

	if msg.Type == models.TypeHeartbeat {
		c.recordHeartbeatAck(gen)
		return
	}

	if !c.current(gen) {
		return
	}
	c.dispatcher.Dispatch(context.Background(), c.namespace, msg)
}

// closed handles the end of socket conn of generation gen. Only the first
// report for a socket counts.
func (c *Connection) closed(gen uint64, conn *websocket.Conn, err error) {
	c.mu.Lock()
	if gen != c.gen || c.conn != conn {
		// Disconnect, a newer socket or an earlier report already took over.
		c.mu.Unlock()
		return
	}
	c.stopHeartbeatLocked()
	c.conn = nil
	code := -1
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		code = ce.Code
	}
	c.trackLocked(TimelineClosed, fmt.Sprintf("code %d: %v", code, err))
	c.mu.Unlock()
	_ = conn.Close()

	c.log.Warn().Err(err).Int("close_code", code).Msg("Connection closed abnormally")
	c.fail(gen, err)
}

// fail records err for generation gen and schedules a reconnect or enters
// the terminal error state.
func (c *Connection) fail(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || c.manual {
		c.mu.Unlock()
		return
	}
	c.lastError = err
	if c.state == models.StateConnecting {
		c.trackLocked(TimelineDialFailed, err.Error())
	}

	delay := c.backoff.NextBackOff()
	if delay == backoff.Stop {
		c.lastError = fmt.Errorf("%w: %w", ErrReconnectExhausted, err)
		c.trackLocked(TimelineReconnectExhausted, fmt.Sprintf("after %d attempts", c.attempts))
		c.setStateLocked(models.StateError)
		attempts := c.attempts
		c.mu.Unlock()

		metrics.RecordReconnectExhausted(c.namespace)
		c.log.Error().Err(err).Int("attempts", attempts).Msg("Max retry attempts reached")
		c.notify(Notice{
			Kind:      NoticeConnectionLost,
			Namespace: c.namespace,
			Message:   "Connection lost. Please try reconnecting.",
			Err:       ErrReconnectExhausted,
		})
		return
	}

	c.attempts++
	attempt := c.attempts
	c.trackLocked(TimelineReconnectScheduled, fmt.Sprintf("attempt %d in %s", attempt, delay))
	c.setStateLocked(models.StateDisconnected)
	c.stopReconnectTimerLocked()
	c.reconnectTimer = time.AfterFunc(delay, func() { c.reconnectFromTimer(gen) })
	c.mu.Unlock()

	metrics.RecordReconnectScheduled(c.namespace)
	c.log.Info().Err(err).Int("attempt", attempt).
		Int("max_attempts", c.opts.Reconnect.MaxAttempts).
		Dur("delay", delay).Msg("Scheduling reconnect")
}

func (c *Connection) reconnectFromTimer(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.manual || c.state != models.StateDisconnected || c.lifeCtx == nil {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	next := c.beginDialLocked()
	ctx := c.lifeCtx
	c.mu.Unlock()

	_ = c.dial(ctx, next)
}

// setStateLocked must be called with mu held.
func (c *Connection) setStateLocked(state models.ConnectionState) {
	if c.state == state {
		return
	}
	c.log.Debug().Str("from", c.state.String()).Str("to", state.String()).Msg("State change")
	c.trackLocked(TimelineStateChange, c.state.String()+" -> "+state.String())
	c.state = state
	metrics.SetConnectionState(c.namespace, int(state))
}

func (c *Connection) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Connection) stopHeartbeatLocked() {
	if c.stopHeartbeat != nil {
		close(c.stopHeartbeat)
		c.stopHeartbeat = nil
	}
}

func (c *Connection) notify(n Notice) {
	if c.opts.OnNotice == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("Notice callback panicked")
		}
	}()
	c.opts.OnNotice(n)
}

func (c *Connection) safeCallback(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("OnConnect callback panicked")
		}
	}()
	fn()
}

// mergeCancel returns a context cancelled when either parent is.
func mergeCancel(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
