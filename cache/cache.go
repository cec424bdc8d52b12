/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package cache memoizes rendered-prompt strings to generated results. Keys
// are exact strings with no normalization. Besides plain memoization, the
// cache collapses duplicate concurrent work: while a computation for a key is
// in flight, other callers for the same key wait for and share its result
// instead of issuing a second external call.
//
// The cache's scope is the caller's choice: a run-scoped cache lives for one
// batch, a process-scoped cache is shared across runs and bounded by an LRU
// limit.
package cache

import (
	"container/list"
	"sync"
)

// entry tracks one key's computation. done is closed when text/err are set.
type entry struct {
	done chan struct{}
	text string
	err  error
	elem *list.Element // LRU position, nil until the computation succeeds
}

// Cache is safe for concurrent use by the worker pool.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	lru        *list.List // front = most recent; values are keys
	maxEntries int        // 0 = unbounded
}

// Option configures a Cache
type Option func(*Cache)

// WithMaxEntries bounds the cache to n completed entries, evicting the least
// recently used. Zero means unbounded; run-scoped caches should stay
// unbounded so a batch never recomputes its own work.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		lru:     list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the cached result for key, or runs compute to produce
// it. At most one compute runs per key at a time; concurrent callers block on
// the in-flight computation and share its outcome. Failed computations are
// not stored, so a later call (a retry) computes the key again.
//
// The second return value reports whether the result came from the cache
// (either stored or shared with a concurrent computation).
func (c *Cache) GetOrCompute(key string, compute func() (string, error)) (string, bool, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		<-e.done
		if e.err != nil {
			return "", true, e.err
		}
		c.touch(e)
		return e.text, true, nil
	}

	e := &entry{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	text, err := compute()

	c.mu.Lock()
	if err != nil {
		// Leave the key recomputable
		delete(c.entries, key)
	} else {
		e.elem = c.lru.PushFront(key)
		c.evictLocked()
	}
	e.text = text
	e.err = err
	c.mu.Unlock()
	close(e.done)

	if err != nil {
		return "", false, err
	}
	return text, false, nil
}

// Get returns a stored result without computing.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return "", false
	}
	select {
	case <-e.done:
	default:
		return "", false // still computing
	}
	if e.err != nil {
		return "", false
	}
	c.touch(e)
	return e.text, true
}

// Len returns the number of completed entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// touch moves a completed entry to the front of the LRU list.
func (c *Cache) touch(e *entry) {
	c.mu.Lock()
	if e.elem != nil {
		c.lru.MoveToFront(e.elem)
	}
	c.mu.Unlock()
}

// evictLocked drops least-recently-used completed entries while over the
// bound. Caller holds c.mu.
func (c *Cache) evictLocked() {
	if c.maxEntries <= 0 {
		return
	}
	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			return
		}
		key := oldest.Value.(string)
		c.lru.Remove(oldest)
		delete(c.entries, key)
	}
}
