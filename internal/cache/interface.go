// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

// Package cache provides the in-memory query cache the reconciler mutates
// and the key builders shared with its readers.
package cache

// Store is the cache handle consumed by the reconciler.
//
// QueryCache implements it; an application embedding telesync can supply
// its own implementation backed by a different query layer.
type Store interface {
	// Get returns the committed value for key.
	Get(key string) (any, bool)

	// Set replaces the value for key.
	Set(key string, value any)

	// Delete removes key.
	Delete(key string)

	// Batch applies every write staged by fn atomically, or none if fn
	// returns an error.
	Batch(fn func(tx *Tx) error) error

	// Invalidate marks keys with the given prefix as needing a refetch.
	Invalidate(prefix string) int
}

var _ Store = (*QueryCache)(nil)

// Reader is satisfied by both *QueryCache and *Tx.
type Reader interface {
	Get(key string) (any, bool)
}

// GetAs returns the value under key asserted to T. A missing key or a value
// of another type reports false.
func GetAs[T any](r Reader, key string) (T, bool) {
	var zero T
	v, ok := r.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
