// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package models

import "fmt"

// ConnectionState is the lifecycle state of one physical connection.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	// StateError is terminal: automatic reconnection has been exhausted and
	// only an explicit reconnect leaves it.
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// MarshalText renders the state by name in JSON status output.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *ConnectionState) UnmarshalText(text []byte) error {
	for _, st := range []ConnectionState{StateDisconnected, StateConnecting, StateConnected, StateError} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", text)
}
