// Package cache provides a TTL cache for rendered pages.
package cache

import (
	"sync"
	"time"
)

// Entry represents one cached page.
type Entry struct {
	Body      []byte
	ExpiresAt time.Time
	StaleAt   time.Time // For stale-while-revalidate: when the page becomes stale (but still usable)
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// IsStale returns true if the entry is stale but not expired.
func (e *Entry) IsStale() bool {
	now := time.Now()
	return now.After(e.StaleAt) && now.Before(e.ExpiresAt)
}

// PageCache is an in-memory cache with TTL support. The server uses it for
// storefront pages, invalidating on publish and site data reloads.
type PageCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewPageCache creates a new in-memory page cache.
func NewPageCache() *PageCache {
	c := &PageCache{
		entries:         make(map[string]*Entry),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get retrieves a page from the cache.
// Returns (body, found, stale) where stale indicates the page is stale but
// usable.
func (c *PageCache) Get(key string) ([]byte, bool, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false, false
	}

	if entry.IsExpired() {
		c.Invalidate(key)
		return nil, false, false
	}

	return entry.Body, true, entry.IsStale()
}

// Set stores a page in the cache with the given TTL.
func (c *PageCache) Set(key string, body []byte, ttl time.Duration) {
	c.SetWithStale(key, body, ttl, ttl)
}

// SetWithStale stores a page with separate stale and expire times.
func (c *PageCache) SetWithStale(key string, body []byte, staleAfter, expireAfter time.Duration) {
	now := time.Now()
	entry := &Entry{
		Body:      body,
		StaleAt:   now.Add(staleAfter),
		ExpiresAt: now.Add(expireAfter),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Invalidate removes an entry from the cache.
func (c *PageCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll removes all entries from the cache.
func (c *PageCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
}

// cleanupLoop periodically removes expired entries.
func (c *PageCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *PageCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
}

// Stop stops the background cleanup goroutine. Safe to call multiple times.
func (c *PageCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

// Len returns the number of entries in the cache (for testing).
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
