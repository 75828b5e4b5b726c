// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/metrics"
)

// TokenProvider supplies a bearer credential at connect time.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken always returns tok.
func StaticToken(tok string) TokenFunc {
	return func(context.Context) (string, error) {
		return tok, nil
	}
}

// FileToken re-reads path on every call so rotated tokens are picked up.
func FileToken(path string) TokenFunc {
	return func(context.Context) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		tok := strings.TrimSpace(string(data))
		if tok == "" {
			return "", fmt.Errorf("token file %s is empty", path)
		}
		return tok, nil
	}
}

// TokenSource wraps an accessor with request coalescing and a circuit
// breaker. Connections for several namespaces dialing at once share one
// fetch, and an accessor that keeps failing is short-circuited instead of
// being hammered on every reconnect.
type TokenSource struct {
	fetch   TokenProvider
	breaker *gobreaker.CircuitBreaker[string]
	group   singleflight.Group
	now     func() time.Time

	// ExpiryWarning is how close to expiry a JWT must be before a warning is logged.
	ExpiryWarning time.Duration
}

// NewTokenSource wraps fetch. The breaker opens after three consecutive
// failures and half-opens after 30 seconds.
func NewTokenSource(fetch TokenProvider) *TokenSource {
	return &TokenSource{
		fetch: fetch,
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "token-accessor",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).
					Str("from", from.String()).Str("to", to.String()).
					Msg("Token accessor circuit breaker state changed")
			},
		}),
		now:           time.Now,
		ExpiryWarning: time.Minute,
	}
}

// Token returns a bearer token. The returned error wraps ErrTokenUnavailable.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	v, err, _ := s.group.Do("token", func() (any, error) {
		return s.breaker.Execute(func() (string, error) {
			return s.fetch.Token(ctx)
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordTokenFetch("circuit_open")
		} else {
			metrics.RecordTokenFetch("failure")
		}
		return "", fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	}
	metrics.RecordTokenFetch("success")

	tok, _ := v.(string)
	s.inspect(tok)
	return tok, nil
}

// BreakerState reports the breaker state for status output.
func (s *TokenSource) BreakerState() string {
	return s.breaker.State().String()
}

// inspect logs a warning for expired or nearly expired JWTs. The signature
// is not checked; the server does that.
func (s *TokenSource) inspect(tok string) {
	if strings.Count(tok, ".") != 2 {
		return
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		logging.Debug().Err(err).Msg("Bearer token is not a parseable JWT")
		return
	}
	if claims.ExpiresAt == nil {
		return
	}

	now := s.now()
	exp := claims.ExpiresAt.Time
	switch {
	case !exp.After(now):
		logging.Warn().Time("expired_at", exp).Msg("Bearer token has expired; server will likely reject the connection")
	case exp.Sub(now) < s.ExpiryWarning:
		logging.Warn().Dur("expires_in", exp.Sub(now)).Msg("Bearer token expires soon")
	}
}
