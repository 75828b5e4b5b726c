// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/telesync/internal/logging"
)

type hubEntry struct {
	conn    *Connection
	holders int
}

// Hub is the process-wide registry of connections keyed by namespace.
// Callers acquire a Session for a namespace; the underlying Connection is
// created and connected on first acquisition and torn down when the last
// Session is released.
type Hub struct {
	opts       Options
	dispatcher *Dispatcher

	mu      sync.Mutex
	entries map[string]*hubEntry
	closed  bool
}

// NewHub creates an empty registry. opts apply to every connection.
func NewHub(opts Options) *Hub {
	return &Hub{
		opts:       opts,
		dispatcher: NewDispatcher(),
		entries:    make(map[string]*hubEntry),
	}
}

// Dispatcher returns the dispatcher shared by all namespaces.
func (h *Hub) Dispatcher() *Dispatcher { return h.dispatcher }

// UserID returns the user the hub was configured for.
func (h *Hub) UserID() string { return h.opts.UserID }

// Acquire returns a Session for namespace, connecting if this is the first
// holder. A failed initial dial is not an error: the connection keeps
// retrying and the session observes its state. Only ErrHubClosed is returned.
func (h *Hub) Acquire(ctx context.Context, namespace string) (*Session, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	entry, ok := h.entries[namespace]
	if !ok {
		entry = &hubEntry{conn: NewConnection(namespace, h.opts, h.dispatcher)}
		h.entries[namespace] = entry
	}
	entry.holders++
	conn := entry.conn
	h.mu.Unlock()

	if err := conn.Connect(ctx); err != nil {
		logging.Debug().Err(err).Str("namespace", logging.DisplayNamespace(namespace)).
			Msg("Initial connect failed, reconnect policy engaged")
	}
	return newSession(h, conn), nil
}

// release drops one holder of conn; the last one disconnects it.
func (h *Hub) release(conn *Connection) {
	h.mu.Lock()
	entry, ok := h.entries[conn.Namespace()]
	if !ok || entry.conn != conn {
		h.mu.Unlock()
		return
	}
	entry.holders--
	if entry.holders > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.entries, conn.Namespace())
	h.mu.Unlock()

	conn.Disconnect()
}

// Connection returns the live connection for namespace, if any.
func (h *Hub) Connection(namespace string) (*Connection, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.entries[namespace]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

// Holders returns the number of live sessions for namespace.
func (h *Hub) Holders(namespace string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if entry, ok := h.entries[namespace]; ok {
		return entry.holders
	}
	return 0
}

// Connections returns stats for every live connection, sorted by namespace.
func (h *Hub) Connections() []ConnectionStats {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.entries))
	for _, e := range h.entries {
		conns = append(conns, e.conn)
	}
	h.mu.Unlock()

	out := make([]ConnectionStats, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out
}

// Close disconnects every connection and waits for their goroutines.
// Later Acquire calls fail with ErrHubClosed. Close is idempotent.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Connection, 0, len(h.entries))
	for ns, e := range h.entries {
		conns = append(conns, e.conn)
		delete(h.entries, ns)
	}
	h.mu.Unlock()

	var g errgroup.Group
	for _, c := range conns {
		g.Go(func() error {
			c.Close()
			return nil
		})
	}
	return g.Wait()
}
