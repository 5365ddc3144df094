// Package series assembles per-date snapshots into the historical window
// the analytics layer consumes. Resolution results are memoized because a
// probe sweep is expensive for the publisher and slow for the caller.
package series

import (
	"log"
	"sync"
	"time"

	"availability-portal/internal/models"
)

type cacheEntry struct {
	snap     *models.DaySnapshot
	found    bool
	storedAt time.Time
}

// Cache memoizes resolution outcomes per date key. Misses are cached too:
// re-probing a date the publisher never filled is as wasteful as
// re-probing a hit, and both expire on the same TTL so a late-published
// tab is still picked up.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates a Cache with the given entry TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached outcome for key. The second return reports the
// cached resolution (hit or miss); the third reports whether a live entry
// exists at all.
func (c *Cache) Get(key string) (*models.DaySnapshot, bool, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.storedAt) > c.ttl {
		return nil, false, false
	}
	return e.snap, e.found, true
}

// Put caches a resolved snapshot.
func (c *Cache) Put(key string, snap *models.DaySnapshot) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{snap: snap, found: true, storedAt: c.now()}
	c.mu.Unlock()
}

// PutMiss caches a negative outcome for key.
func (c *Cache) PutMiss(key string) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{storedAt: c.now()}
	c.mu.Unlock()
}

// Purge drops every entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	log.Printf("[Cache] Purged %d entries", n)
	return n
}

// Len returns the number of live (unexpired) entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	n := 0
	for _, e := range c.entries {
		if now.Sub(e.storedAt) <= c.ttl {
			n++
		}
	}
	return n
}
