// Package cache keeps recognized document text so repeated extractions skip OCR.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss indicates a cache miss
var ErrCacheMiss = errors.New("cache miss")

// TextCache stores recognized text by document ID
type TextCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, text string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type memoryEntry struct {
	text      string
	expiresAt time.Time
}

// sweepInterval bounds how often Set scans for expired entries
const sweepInterval = time.Minute

// MemoryCache is an in-process TextCache. Expired entries are dropped on
// lookup and by a periodic sweep run from Set.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", ErrCacheMiss
	}
	if now := c.now(); entry.expired(now) {
		c.evictExpired(key, now)
		return "", ErrCacheMiss
	}
	return entry.text, nil
}

// evictExpired deletes key only if the entry held now is still expired.
// A concurrent Set may have stored fresh text since the read.
func (c *MemoryCache) evictExpired(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.entries[key]; ok && current.expired(now) {
		delete(c.entries, key)
	}
}

// Set stores text; a zero ttl keeps it until deleted
func (c *MemoryCache) Set(_ context.Context, key string, text string, ttl time.Duration) error {
	now := c.now()
	entry := memoryEntry{text: text}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}

	c.mu.Lock()
	if now.Sub(c.lastSweep) >= sweepInterval {
		c.sweepLocked(now)
	}
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// sweepLocked drops every expired entry. c.mu must be held for writing.
func (c *MemoryCache) sweepLocked(now time.Time) {
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
		}
	}
	c.lastSweep = now
}

// Len reports the number of entries held, expired or not
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}
