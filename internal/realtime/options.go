// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Options configures connections created by a Hub.
type Options struct {
	// URL is the server base URL. The namespace is appended to its path.
	URL string

	// UserID is the current user, sent with subscribe frames.
	UserID string

	// Token supplies the bearer credential at every dial. Optional.
	Token TokenProvider

	// TokenQueryParam, when set, also passes the token as a query parameter
	// for servers that cannot read headers during the upgrade.
	TokenQueryParam string

	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	EnableCompression bool

	Reconnect ReconnectPolicy

	// HeartbeatInterval is how often a heartbeat frame is sent while connected.
	HeartbeatInterval time.Duration

	// HeartbeatTimeout closes a socket that has not echoed a heartbeat for
	// this long. Zero disables stale detection.
	HeartbeatTimeout time.Duration

	// OnNotice receives user-visible notices. Optional.
	OnNotice func(Notice)
}

// DefaultOptions returns the client defaults for url.
func DefaultOptions(url string) Options {
	return Options{
		URL:               url,
		TokenQueryParam:   "token",
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		EnableCompression: true,
		Reconnect:         DefaultReconnectPolicy(),
		HeartbeatInterval: 30 * time.Second,
	}
}

func (o *Options) withDefaults() {
	d := DefaultOptions(o.URL)
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = d.HandshakeTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = d.HeartbeatInterval
	}
	if o.Reconnect.Interval <= 0 {
		o.Reconnect.Interval = d.Reconnect.Interval
	}
}

// endpoint builds the dial URL for namespace, mapping http(s) to ws(s).
func endpoint(base, namespace, tokenParam, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + namespace
	if tokenParam != "" && token != "" {
		q := u.Query()
		q.Set(tokenParam, token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// NoticeKind classifies user-visible notices.
type NoticeKind string

const (
	// NoticeNotConnected is transient: a send was attempted while disconnected.
	NoticeNotConnected NoticeKind = "not_connected"
	// NoticeConnectionLost is terminal: reconnection was exhausted.
	NoticeConnectionLost NoticeKind = "connection_lost"
)

// Notice is a user-visible signal raised by a connection.
type Notice struct {
	Kind      NoticeKind
	Namespace string
	Message   string
	Err       error
}
