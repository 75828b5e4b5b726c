// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import "errors"

var (
	// ErrNotConnected is reported when a send is attempted without an open socket.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrReconnectExhausted marks the terminal error state after the
	// reconnect policy gave up.
	ErrReconnectExhausted = errors.New("realtime: max retry attempts reached")

	// ErrDisconnected is returned by a Connect that was overtaken by Disconnect.
	ErrDisconnected = errors.New("realtime: disconnected while connecting")

	// ErrHubClosed is returned by Acquire after Hub.Close.
	ErrHubClosed = errors.New("realtime: hub closed")

	// ErrUnknownEventType is returned for frames with no route.
	ErrUnknownEventType = errors.New("realtime: unknown event type")

	// ErrInvalidPayload is returned when a frame's data fails decoding or validation.
	ErrInvalidPayload = errors.New("realtime: invalid payload")

	// ErrTokenUnavailable wraps token accessor failures, including an open breaker.
	ErrTokenUnavailable = errors.New("realtime: token unavailable")

	// ErrHeartbeatTimeout is recorded when no heartbeat echo arrived in time.
	ErrHeartbeatTimeout = errors.New("realtime: heartbeat timeout")
)
