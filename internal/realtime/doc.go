// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

/*
Package realtime maintains live WebSocket connections to the platform's
real-time service and turns inbound frames into canonical events.

# Architecture

	Hub (one per process)
	 ├── Dispatcher (shared)        wire frame -> CanonicalEvent -> handlers
	 └── Connection per namespace   /messaging, /meetings, ...
	      ├── Subscriptions         ref-counted channel interest
	      ├── read loop             FIFO delivery to the Dispatcher
	      ├── heartbeat loop        liveness, optional stale detection
	      └── reconnect timer       ReconnectPolicy (cenkalti/backoff)

Callers never hold a Connection directly. Hub.Acquire returns a Session,
a scoped handle whose Release undoes every subscription and handler made
through it and drops the hold on the shared connection. The last Release
for a namespace disconnects it.

# Connection lifecycle

	Disconnected --Connect--> Connecting --open--> Connected
	     ^                        |                    |
	     |                     dial error        abnormal close
	     +------ timer <----------+--------------------+
	                              |
	                     policy exhausted --> Error (until Reconnect)

Disconnect is the only call that halts reconnection. It is reentrant and
prevents any pending timer from firing. Sends while not connected fail
immediately with false; nothing is queued.

# Wire format

Frames are JSON objects {type, data, timestamp, id}. Heartbeats are
answered inside the Connection and never reach handlers. Frames of type
real_time_event carry a pre-canonicalized event; every other inbound type
is looked up in a declarative route table that names its payload struct,
its canonical type and how to derive the channel hint. Payloads are
validated with go-playground/validator before delivery; frames that fail
are logged and dropped.

# Ordering

Within one physical connection handlers observe frames in wire order.
Events missed while disconnected are not replayed.

# Usage Example

Holding a namespace and reacting to its events:

	hub := realtime.NewHub(realtime.Options{
	    URL:    "wss://api.example.com",
	    UserID: "u1",
	    Token:  realtime.NewTokenSource(realtime.FileToken("/run/secrets/token")),
	    Reconnect: realtime.ReconnectPolicy{
	        MaxAttempts: 5,
	        Interval:    3 * time.Second,
	    },
	    OnNotice: func(n realtime.Notice) { log.Warn().Msg(n.Message) },
	})
	defer hub.Close()

	sess, err := hub.Acquire(ctx, "/messaging")
	if err != nil {
	    return err // only ErrHubClosed
	}
	defer sess.Release()

	sess.Subscribe("conversation:42")
	sess.On(models.EventMessageSent, func(ctx context.Context, ev *models.CanonicalEvent) error {
	    msg := ev.Payload.(*models.Message)
	    fmt.Println(msg.Content)
	    return nil
	})

	if !sess.SendMessage(models.ActionSendMessage, req) {
	    // not connected; the caller decides whether to retry
	}

Acquire never fails because the server is unreachable. A failed dial is
handed to the reconnect policy and the Session reports it through State
and LastError.

# Subscriptions

Channels are ref-counted per connection:

  - Subscribe sends a wire subscribe only on the 0 -> 1 transition
  - Unsubscribe sends a wire unsubscribe only on the 1 -> 0 transition
  - Unsubscribe of a channel with no holders is a no-op
  - Subscribes made while offline are sent when the socket opens
  - After every successful open each live channel is resubscribed once

# Tokens

TokenSource wraps any TokenProvider (StaticToken, FileToken or a
TokenFunc) with:

  - singleflight, so namespaces connecting at once share one fetch
  - a gobreaker circuit breaker, so a failing accessor is not hammered
  - unverified JWT inspection, warning when the token is expired or close
    to expiry

The token is sent as a bearer Authorization header and, when
TokenQueryParam is set, as a query parameter.

# Diagnostics

Connection.Stats (and Hub.Connections for every namespace) reports state,
attempts, last error, heartbeat times, subscriptions and:

  - Timeline: the last TimelineCapacity lifecycle events (state changes,
    dial failures, closes, scheduled and exhausted reconnects)
  - PingMs and Quality: the last heartbeat round trip rated excellent
    (under 100ms), good (under 300ms, or connected and not yet measured)
    or poor; unknown while not connected

ClearTimeline resets the history, e.g. before reproducing a problem.

# Errors and Notices

Nothing here panics or returns errors across an asynchronous boundary.
Transient failures are visible through State and LastError. Two events
are also raised through Options.OnNotice for user-facing surfaces:

  - NoticeConnectionLost: automatic reconnection is exhausted
  - NoticeNotConnected: a send was attempted while offline

A handler that returns an error or panics is logged and counted; the
remaining handlers still run and the connection is unaffected.

# Thread Safety

All exported methods are safe for concurrent use. Handlers run on the
connection's read goroutine, serialized across connections by the
Dispatcher. They may call Send and Subscribe. They must not call
Dispatch, or Connection.Close, which waits for that goroutine.

# Metrics

Dials, state, frames in and out, dropped frames, reconnects, heartbeat
round trips, dispatch latency and handler failures are exported through
internal/metrics.
*/
package realtime
