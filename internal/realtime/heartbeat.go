// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/telesync/internal/metrics"
	"github.com/tomtom215/telesync/internal/models"
)

// heartbeatLoop sends a heartbeat frame every HeartbeatInterval until stop
// is closed. With a HeartbeatTimeout, a socket that has not echoed a
// heartbeat within the timeout is closed, which the read loop reports as
// an abnormal close.
func (c *Connection) heartbeatLoop(gen uint64, conn *websocket.Conn, stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if c.heartbeatStale(gen, now) {
				c.log.Warn().Dur("timeout", c.opts.HeartbeatTimeout).
					Msg("Heartbeat not acknowledged, closing stale connection")
				c.closed(gen, conn, ErrHeartbeatTimeout)
				return
			}
			c.sendHeartbeat(gen, now)
		}
	}
}

func (c *Connection) sendHeartbeat(gen uint64, now time.Time) {
	msg, err := models.NewWireMessage(models.TypeHeartbeat, models.HeartbeatPayload{
		Timestamp: now.UnixMilli(),
	})
	if err != nil {
		return
	}
	if sentGen, ok := c.sendFrame(msg); ok && sentGen == gen {
		c.mu.Lock()
		if c.gen == gen {
			c.heartbeat.LastSent = now
		}
		c.mu.Unlock()
	}
}

func (c *Connection) heartbeatStale(gen uint64, now time.Time) bool {
	if c.opts.HeartbeatTimeout <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	since := c.lastConnected
	if c.heartbeat.LastAck.After(since) {
		since = c.heartbeat.LastAck
	}
	return now.Sub(since) > c.opts.HeartbeatTimeout
}

// recordHeartbeatAck notes an echoed heartbeat. Heartbeats are never
// delivered to handlers.
func (c *Connection) recordHeartbeatAck(gen uint64) {
	now := time.Now()
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.heartbeat.LastAck = now
	sent := c.heartbeat.LastSent
	var rtt time.Duration
	if !sent.IsZero() {
		rtt = now.Sub(sent)
		c.rtt = rtt
	}
	c.mu.Unlock()

	if rtt > 0 {
		metrics.RecordHeartbeatRTT(c.namespace, rtt)
	}
}
