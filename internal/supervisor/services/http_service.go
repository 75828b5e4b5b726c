// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/telesync/internal/logging"
)

// HTTPServer is the lifecycle subset of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService keeps the local status endpoint up for as long as the
// listener runs. A bind failure is returned to the supervisor, which
// restarts the service with backoff.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	addr            string
	log             zerolog.Logger
}

// NewHTTPServerService wraps server. A non-positive timeout means 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	addr := "unknown"
	if s, ok := server.(*http.Server); ok && s.Addr != "" {
		addr = s.Addr
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		addr:            addr,
		log:             logging.WithComponent("status-server").With().Str("addr", addr).Logger(),
	}
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- h.server.ListenAndServe() }()
	h.log.Info().Msg("Status server listening")

	select {
	case err := <-done:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server on %s: %w", h.addr, err)
	case <-ctx.Done():
	}

	start := time.Now()
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
	defer cancel()
	if err := h.server.Shutdown(sctx); err != nil {
		return fmt.Errorf("status server shutdown on %s: %w", h.addr, err)
	}
	<-done
	h.log.Info().Dur("took", time.Since(start)).Msg("Status server stopped")
	return ctx.Err()
}

// String names the service in supervisor logs.
func (h *HTTPServerService) String() string { return "status-server" }
