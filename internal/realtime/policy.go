// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Reconnect strategies.
const (
	StrategyConstant    = "constant"
	StrategyExponential = "exponential"
)

// ReconnectPolicy bounds automatic reconnection after an abnormal close.
type ReconnectPolicy struct {
	// MaxAttempts is the number of reconnects scheduled before the
	// connection enters the terminal error state. Zero disables reconnection.
	MaxAttempts int

	// Interval is the fixed delay, or the initial delay for exponential.
	Interval time.Duration

	// Strategy is StrategyConstant (default) or StrategyExponential.
	Strategy string

	// MaxInterval caps exponential delays.
	MaxInterval time.Duration
}

// DefaultReconnectPolicy returns 5 attempts at a fixed 3s interval.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: 5,
		Interval:    3 * time.Second,
		Strategy:    StrategyConstant,
		MaxInterval: 30 * time.Second,
	}
}

// newBackOff builds the schedule for one run of consecutive failures.
// NextBackOff returns backoff.Stop once MaxAttempts delays were handed out.
func (p ReconnectPolicy) newBackOff() backoff.BackOff {
	if p.MaxAttempts <= 0 {
		return &backoff.StopBackOff{}
	}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultReconnectPolicy().Interval
	}

	var base backoff.BackOff
	switch p.Strategy {
	case StrategyExponential:
		maxInterval := p.MaxInterval
		if maxInterval < interval {
			maxInterval = interval
		}
		base = backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(interval),
			backoff.WithMaxInterval(maxInterval),
			backoff.WithRandomizationFactor(0.2),
			backoff.WithMaxElapsedTime(0),
		)
	default:
		base = backoff.NewConstantBackOff(interval)
	}

	b := backoff.WithMaxRetries(base, uint64(p.MaxAttempts))
	b.Reset()
	return b
}
