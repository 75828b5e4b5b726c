// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package cache

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrTxClosed is returned when a transaction is used after its batch returned.
var ErrTxClosed = errors.New("cache: transaction used outside its batch")

// Entry is a cached value plus bookkeeping.
type Entry struct {
	Data      any
	UpdatedAt time.Time
	// Stale marks an entry whose owner should refetch it. Stale entries are
	// still returned by Get so consumers can render while refetching.
	Stale bool
}

// Stats tracks cache activity.
type Stats struct {
	Hits          int64
	Misses        int64
	Writes        int64
	Batches       int64
	Invalidations int64
	TotalKeys     int64
}

// ChangeFunc is called after a write commits with the keys it touched.
type ChangeFunc func(keys []string)

// QueryCache is a thread-safe keyed store of query results.
//
// Values are treated as immutable snapshots: writers replace a value, they
// never mutate one in place. That lets Get hand out values without copying.
//
// Thread Safety:
//   - All methods are safe for concurrent use
//   - Batch holds the write lock for the duration of fn, so fn must only
//     touch the cache through its Tx
//   - Change listeners run after the lock is released
//
// Example:
//
//	c := cache.New()
//	_ = c.Batch(func(tx *cache.Tx) error {
//	    tx.Set(cache.NotificationsList(), list)
//	    tx.Set(cache.NotificationsUnreadCount(), n)
//	    return nil
//	})
type QueryCache struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	stats     Stats
	now       func() time.Time
	listeners []ChangeFunc
}

// New creates an empty cache.
func New() *QueryCache {
	return &QueryCache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Get returns the value stored under key.
func (c *QueryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return entry.Data, true
}

// Entry returns the full entry for key, including staleness.
func (c *QueryCache) Entry(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Set stores value under key and clears any stale flag.
func (c *QueryCache) Set(key string, value any) {
	c.mu.Lock()
	c.setLocked(key, value)
	listeners := c.listeners
	c.mu.Unlock()

	notify(listeners, []string{key})
}

// Delete removes key. Deleting an absent key is a no-op.
func (c *QueryCache) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	if existed {
		delete(c.entries, key)
		c.stats.TotalKeys = int64(len(c.entries))
	}
	listeners := c.listeners
	c.mu.Unlock()

	if existed {
		notify(listeners, []string{key})
	}
}

// Invalidate marks every key with the given prefix as stale and returns how
// many entries were marked. An empty prefix marks everything.
func (c *QueryCache) Invalidate(prefix string) int {
	c.mu.Lock()
	var touched []string
	for key, entry := range c.entries {
		if !strings.HasPrefix(key, prefix) || entry.Stale {
			continue
		}
		entry.Stale = true
		c.entries[key] = entry
		touched = append(touched, key)
	}
	c.stats.Invalidations += int64(len(touched))
	listeners := c.listeners
	c.mu.Unlock()

	if len(touched) > 0 {
		sort.Strings(touched)
		notify(listeners, touched)
	}
	return len(touched)
}

// Keys returns all keys in sorted order.
func (c *QueryCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes all entries.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.stats.TotalKeys = 0
	c.mu.Unlock()
}

// OnChange registers fn to be called after every committed write.
func (c *QueryCache) OnChange(fn ChangeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(append([]ChangeFunc(nil), c.listeners...), fn)
}

// GetStats returns a copy of the current statistics.
func (c *QueryCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate returns hits / (hits + misses) as a percentage.
func (c *QueryCache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Batch runs fn against a transaction and commits every staged write at
// once if fn returns nil. If fn returns an error nothing is written.
// Other goroutines never observe a partially applied batch.
func (c *QueryCache) Batch(fn func(tx *Tx) error) error {
	keys, listeners, err := c.commit(fn)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		notify(listeners, keys)
	}
	return nil
}

// commit runs fn and applies its writes under mu. The lock is released on
// every exit, including a panic in fn, which then propagates with nothing
// written.
func (c *QueryCache) commit(fn func(tx *Tx) error) ([]string, []ChangeFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := &Tx{cache: c, staged: make(map[string]stagedWrite)}
	defer func() { tx.closed = true }()
	if err := fn(tx); err != nil {
		return nil, nil, err
	}

	keys := make([]string, 0, len(tx.staged))
	for key, w := range tx.staged {
		if w.deleted {
			delete(c.entries, key)
		} else {
			c.setLocked(key, w.value)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.Batches++
	return keys, c.listeners, nil
}

// setLocked must be called with mu held.
func (c *QueryCache) setLocked(key string, value any) {
	c.entries[key] = Entry{Data: value, UpdatedAt: c.now()}
	c.stats.Writes++
	c.stats.TotalKeys = int64(len(c.entries))
}

func notify(listeners []ChangeFunc, keys []string) {
	for _, fn := range listeners {
		fn(keys)
	}
}

type stagedWrite struct {
	value   any
	deleted bool
}

// Tx is a write batch. Reads see the batch's own staged writes.
type Tx struct {
	cache  *QueryCache
	staged map[string]stagedWrite
	closed bool
}

// Get returns the staged value for key, falling back to the committed one.
func (tx *Tx) Get(key string) (any, bool) {
	if tx.closed {
		return nil, false
	}
	if w, ok := tx.staged[key]; ok {
		if w.deleted {
			return nil, false
		}
		return w.value, true
	}
	entry, ok := tx.cache.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Data, true
}

// Set stages a write.
func (tx *Tx) Set(key string, value any) error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.staged[key] = stagedWrite{value: value}
	return nil
}

// Delete stages a removal.
func (tx *Tx) Delete(key string) error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.staged[key] = stagedWrite{deleted: true}
	return nil
}
