// Package cache provides a sharded in-memory cache with per-entry TTL, keyed
// by operation identity plus arguments. Safe for concurrent use.
package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 16

// TTL is a sharded key/value cache where every entry expires a fixed duration
// after insertion.
type TTL struct {
	shards [numShards]*shard
}

type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

type entry struct {
	value   any
	expires time.Time
}

// NewTTL creates an empty cache.
func NewTTL() *TTL {
	c := &TTL{}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &shard{items: make(map[string]entry)}
	}
	return c
}

func (c *TTL) getShard(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Get returns the cached value for key if present and unexpired.
func (c *TTL) Get(key string) (any, bool) {
	s := c.getShard(key)
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		s.mu.Lock()
		// Re-check under the write lock; another writer may have refreshed it.
		if cur, still := s.items[key]; still && time.Now().After(cur.expires) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the given time-to-live.
func (c *TTL) Set(key string, value any, ttl time.Duration) {
	s := c.getShard(key)
	s.mu.Lock()
	s.items[key] = entry{value: value, expires: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// Delete removes key from the cache.
func (c *TTL) Delete(key string) {
	s := c.getShard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Len returns the total number of entries across all shards, expired included.
func (c *TTL) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *TTL) Cleanup() int {
	removed := 0
	now := time.Now()
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.items {
			if now.After(e.expires) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Clear drops every entry.
func (c *TTL) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.items = make(map[string]entry)
		s.mu.Unlock()
	}
}
