package ics

import (
	"sort"
	"sync"
	"time"
)

// cacheEntry holds the last good response for one feed URL together
// with its HTTP validators. Fields never change after construction;
// only accessedAt is updated, under the cache mutex.
type cacheEntry struct {
	body         []byte
	etag         string
	lastModified string
	expiresAt    time.Time
	accessedAt   time.Time
}

// CacheConfig holds configuration for the feed response cache.
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for feed caching.
var DefaultCacheConfig = CacheConfig{
	TTL:             24 * time.Hour,   // Serve stale bodies for at most a day
	MaxEntries:      64,               // Well above any realistic feed count
	CleanupInterval: 15 * time.Minute, // Cleanup every 15 minutes
}

// responseCache remembers the last successful body and validators per
// feed URL. It backs conditional requests (If-None-Match and
// If-Modified-Since) and stale fallback when a feed is unreachable.
// Once an entry expires the feed is fetched in full again.
type responseCache struct {
	entries         map[string]*cacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

func newResponseCache(config CacheConfig) *responseCache {
	cache := &responseCache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// get retrieves the cached response for a URL if it exists and hasn't
// expired.
func (c *responseCache) get(url string) (*cacheEntry, bool) {
	c.mutex.RLock()
	entry, exists := c.entries[url]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		c.mutex.Lock()
		delete(c.entries, url)
		c.mutex.Unlock()
		return nil, false
	}

	c.mutex.Lock()
	entry.accessedAt = now
	c.mutex.Unlock()

	return entry, true
}

// set stores a fresh response for a URL.
func (c *responseCache) set(url string, body []byte, etag, lastModified string) {
	now := time.Now()
	entry := &cacheEntry{
		body:         body,
		etag:         etag,
		lastModified: lastModified,
		expiresAt:    now.Add(c.ttl),
		accessedAt:   now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[url] = entry

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries, then the least recently accessed
// entries while still over the limit. Callers hold the write lock.
func (c *responseCache) cleanup() {
	now := time.Now()

	for url, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, url)
		}
	}

	if len(c.entries) > c.maxEntries {
		type urlAccess struct {
			url        string
			accessedAt time.Time
		}

		byAccess := make([]urlAccess, 0, len(c.entries))
		for url, entry := range c.entries {
			byAccess = append(byAccess, urlAccess{url: url, accessedAt: entry.accessedAt})
		}
		sort.Slice(byAccess, func(i, j int) bool {
			return byAccess[i].accessedAt.Before(byAccess[j].accessedAt)
		})

		entriesToRemove := len(c.entries) - c.maxEntries
		for i := 0; i < entriesToRemove; i++ {
			delete(c.entries, byAccess[i].url)
		}
	}
}

// cleanupLoop runs periodic cleanup.
func (c *responseCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache.
func (c *responseCache) Close() {
	close(c.stopCleanup)
	c.mutex.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics.
func (c *responseCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entryCount := len(c.entries)
	expiredCount := 0
	now := time.Now()

	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   entryCount,
		ExpiredEntries: expiredCount,
		ActiveEntries:  entryCount - expiredCount,
	}
}

// CacheStats provides information about cache contents.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
