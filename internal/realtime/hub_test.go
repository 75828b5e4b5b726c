// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/telesync/internal/models"
)

func newTestHub(t *testing.T, server *mockServer) *Hub {
	t.Helper()
	h := NewHub(testOptions(server.URL()))
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHub_AcquireSharesConnection(t *testing.T) {
	server := newMockServer(t)
	h := newTestHub(t, server)
	ctx := context.Background()

	s1, err := h.Acquire(ctx, "/messaging")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	s2, err := h.Acquire(ctx, "/messaging")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !s1.IsConnected() || !s2.IsConnected() {
		t.Fatal("sessions not connected")
	}
	eventually(t, time.Second, func() bool { return server.connCount() == 1 }, "server accept")
	time.Sleep(20 * time.Millisecond)
	if server.connCount() != 1 {
		t.Errorf("server connections = %d, want 1 shared socket", server.connCount())
	}
	if h.Holders("/messaging") != 2 {
		t.Errorf("Holders = %d, want 2", h.Holders("/messaging"))
	}

	s1.Release()
	s1.Release() // idempotent
	if h.Holders("/messaging") != 1 {
		t.Errorf("Holders after one release = %d, want 1", h.Holders("/messaging"))
	}
	if !s2.IsConnected() {
		t.Error("remaining session lost its connection")
	}

	conn, _ := h.Connection("/messaging")
	s2.Release()
	if _, ok := h.Connection("/messaging"); ok {
		t.Error("connection still registered after last release")
	}
	if conn.State() != models.StateDisconnected {
		t.Errorf("state after last release = %v, want disconnected", conn.State())
	}
}

func TestHub_SeparateNamespaces(t *testing.T) {
	server := newMockServer(t)
	h := newTestHub(t, server)
	ctx := context.Background()

	msgs, _ := h.Acquire(ctx, "/messaging")
	meet, _ := h.Acquire(ctx, "/meetings")
	defer msgs.Release()
	defer meet.Release()

	eventually(t, time.Second, func() bool { return server.connCount() == 2 }, "one socket per namespace")
	stats := h.Connections()
	if len(stats) != 2 || stats[0].Namespace != "/meetings" || stats[1].Namespace != "/messaging" {
		t.Errorf("Connections() = %+v", stats)
	}
}

func TestHub_ClosedRejectsAcquire(t *testing.T) {
	server := newMockServer(t)
	h := newTestHub(t, server)

	s, _ := h.Acquire(context.Background(), "/messaging")
	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s.IsConnected() {
		t.Error("session still connected after hub Close")
	}
	if _, err := h.Acquire(context.Background(), "/messaging"); !errors.Is(err, ErrHubClosed) {
		t.Errorf("Acquire after Close error = %v, want ErrHubClosed", err)
	}
	s.Release() // must not panic after Close
	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestHub_AcquireWhileServerDown(t *testing.T) {
	server := newMockServer(t)
	server.reject.Store(true)
	h := newTestHub(t, server)

	s, err := h.Acquire(context.Background(), "/messaging")
	if err != nil {
		t.Fatalf("Acquire() error = %v, want nil while policy retries", err)
	}
	defer s.Release()
	if s.IsConnected() {
		t.Error("session connected against rejecting server")
	}

	server.reject.Store(false)
	eventually(t, 2*time.Second, s.IsConnected, "connected once server recovers")
}

func TestSession_ReleaseUndoesSubscriptionsAndHandlers(t *testing.T) {
	server := newMockServer(t)
	h := newTestHub(t, server)
	ctx := context.Background()

	keep, _ := h.Acquire(ctx, "/messaging")
	defer keep.Release()
	s, _ := h.Acquire(ctx, "/messaging")

	keep.Subscribe("conversation:1")
	s.Subscribe("conversation:1")
	s.Subscribe("conversation:2")
	s.Subscribe("conversation:2")
	s.Unsubscribe("conversation:404") // never subscribed by this session

	s.On(models.EventMessageSent, func(context.Context, *models.CanonicalEvent) error {
		return nil
	})
	if h.Dispatcher().HandlerCount(models.EventMessageSent) != 1 {
		t.Fatal("handler not registered")
	}

	s.Release()

	conn, _ := h.Connection("/messaging")
	if got := conn.Subscriptions().RefCount("conversation:1"); got != 1 {
		t.Errorf("conversation:1 RefCount = %d, want 1 (still held by other session)", got)
	}
	if got := conn.Subscriptions().RefCount("conversation:2"); got != 0 {
		t.Errorf("conversation:2 RefCount = %d, want 0", got)
	}
	if h.Dispatcher().HandlerCount(models.EventMessageSent) != 0 {
		t.Error("handler survived Release")
	}
	if s.SendMessage(models.ActionTypingStart, models.TypingRequest{ConversationID: "1", IsTyping: true}) {
		t.Error("SendMessage after Release = true, want false")
	}

	eventually(t, time.Second, func() bool {
		return len(server.framesOf(models.TypeUnsubscribe, -1)) == 1
	}, "unsubscribe frame for conversation:2")
	if got := channelsOf(t, server.framesOf(models.TypeUnsubscribe, -1)); got[0] != "conversation:2" {
		t.Errorf("unsubscribed %v, want conversation:2", got)
	}
}
