// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package status

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/telesync/internal/cache"
	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/realtime"
)

type fakeConns []realtime.ConnectionStats

func (f fakeConns) Connections() []realtime.ConnectionStats { return f }

type fakeBreaker string

func (f fakeBreaker) BreakerState() string { return string(f) }

type fakePresence []string

func (f fakePresence) OnlineUsers() []string { return f }

func conns(states ...models.ConnectionState) fakeConns {
	out := make(fakeConns, len(states))
	for i, s := range states {
		out[i] = realtime.ConnectionStats{Namespace: "/ns" + string(rune('a'+i)), State: s}
	}
	return out
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		conns      fakeConns
		wantStatus string
		wantCode   int
	}{
		{"no connections", conns(), "ok", http.StatusOK},
		{"all connected", conns(models.StateConnected, models.StateConnected), "ok", http.StatusOK},
		{"one reconnecting", conns(models.StateConnected, models.StateDisconnected), "degraded", http.StatusOK},
		{"one exhausted", conns(models.StateConnecting, models.StateError), "error", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(Sources{Connections: tt.conns}, Options{})
			rec := httptest.NewRecorder()
			h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %q, want %q", body["status"], tt.wantStatus)
			}
		})
	}
}

func TestStatusReport(t *testing.T) {
	c := cache.New()
	c.Set(cache.NotificationsUnreadCount(), 2)

	h := NewHandler(Sources{
		Connections: conns(models.StateConnected),
		Token:       fakeBreaker("closed"),
		Cache:       c,
		Presence:    fakePresence{"u2", "u3"},
		UserID:      "u1",
		Version:     "test",
	}, Options{})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{`"state":"connected"`, `"tokenBreaker":"closed"`, `"userId":"u1"`, `"onlineUsers":["u2","u3"]`, `"quality":`, `"pingMs":`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s: %s", want, body)
		}
	}

	rep := h.Report()
	if rep.Cache == nil || rep.Cache.Writes != 1 {
		t.Errorf("cache stats = %+v, want one write", rep.Cache)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewHandler(Sources{Connections: conns()}, Options{})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing default collectors")
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHandler(Sources{Connections: conns()}, Options{}))
	if srv.Addr != "127.0.0.1:0" || srv.Handler == nil || srv.ReadHeaderTimeout == 0 {
		t.Errorf("unexpected server config: %+v", srv)
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	logging.SetLevelString("debug")
	t.Cleanup(func() {
		logging.SetLogger(prev)
		logging.SetLevelString("info")
	})

	h := NewHandler(Sources{Connections: conns(models.StateConnected)}, Options{})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	out := buf.String()
	for _, want := range []string{`"message":"Status request"`, `"path":"/healthz"`, `"status":200`, `"request_id":"`, `"correlation_id":"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s:\n%s", want, out)
		}
	}
}

func TestRouterOptions(t *testing.T) {
	h := NewHandler(Sources{Connections: conns()}, Options{
		CORSOrigins:       []string{"https://dashboard.example"},
		RequestsPerMinute: 2,
	})
	router := h.Router()

	get := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	if got := get("https://dashboard.example").Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example" {
		t.Errorf("allowed origin header = %q", got)
	}
	if got := get("https://evil.example").Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
	if code := get("").Code; code != http.StatusTooManyRequests {
		t.Errorf("third request code = %d, want 429", code)
	}
}
