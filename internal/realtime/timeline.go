// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"time"

	"github.com/tomtom215/telesync/internal/models"
)

// TimelineCapacity is the number of lifecycle events a connection keeps.
const TimelineCapacity = 50

// Timeline event names.
const (
	TimelineStateChange        = "state_change"
	TimelineDialFailed         = "dial_failed"
	TimelineClosed             = "closed"
	TimelineReconnectScheduled = "reconnect_scheduled"
	TimelineReconnectExhausted = "reconnect_exhausted"
)

// TimelineEvent is one entry of a connection's lifecycle history.
type TimelineEvent struct {
	Time   time.Time `json:"time"`
	Event  string    `json:"event"`
	Detail string    `json:"detail,omitempty"`
}

// timeline is a fixed ring of the most recent TimelineCapacity events.
// Callers hold Connection.mu.
type timeline struct {
	buf  [TimelineCapacity]TimelineEvent
	next int
	n    int
}

func (t *timeline) add(ev TimelineEvent) {
	t.buf[t.next] = ev
	t.next = (t.next + 1) % TimelineCapacity
	if t.n < TimelineCapacity {
		t.n++
	}
}

// snapshot returns the events oldest first.
func (t *timeline) snapshot() []TimelineEvent {
	out := make([]TimelineEvent, 0, t.n)
	start := (t.next - t.n + TimelineCapacity) % TimelineCapacity
	for i := 0; i < t.n; i++ {
		out = append(out, t.buf[(start+i)%TimelineCapacity])
	}
	return out
}

func (t *timeline) reset() { *t = timeline{} }

// Quality rates a connection from its last heartbeat round trip.
type Quality string

// Connection quality ratings.
const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityPoor      Quality = "poor"
	QualityUnknown   Quality = "unknown"
)

// Round-trip bounds for each rating.
const (
	excellentRTT = 100 * time.Millisecond
	goodRTT      = 300 * time.Millisecond
)

// rateQuality maps state and the last round trip to a rating. A connected
// socket with no measured round trip yet rates good.
func rateQuality(state models.ConnectionState, rtt time.Duration) Quality {
	switch {
	case state != models.StateConnected:
		return QualityUnknown
	case rtt <= 0:
		return QualityGood
	case rtt < excellentRTT:
		return QualityExcellent
	case rtt < goodRTT:
		return QualityGood
	default:
		return QualityPoor
	}
}

// Timeline returns the connection's recent lifecycle events, oldest first.
func (c *Connection) Timeline() []TimelineEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline.snapshot()
}

// ClearTimeline drops the recorded lifecycle events.
func (c *Connection) ClearTimeline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeline.reset()
}

// Quality rates the current socket from its last heartbeat round trip.
func (c *Connection) Quality() Quality {
	c.mu.Lock()
	defer c.mu.Unlock()
	return rateQuality(c.state, c.rtt)
}

// trackLocked appends a timeline event. Must be called with mu held.
func (c *Connection) trackLocked(event, detail string) {
	c.timeline.add(TimelineEvent{Time: time.Now(), Event: event, Detail: detail})
}
