package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is a process-local Cache. Expired entries are dropped lazily on access.
type MemoryCache struct {
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache(prefix string) *MemoryCache {
	return &MemoryCache{
		prefix:  prefix,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// WithClock replaces the clock used for expiry
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := c.prefix + key
	entry, ok := c.entries[full]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(c.now()) {
		delete(c.entries, full)
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[c.prefix+key] = entry
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, c.prefix+k)
	}
	return nil
}

// DeletePattern matches with Redis MATCH semantics: '*' spans any characters, '/' included
func (c *MemoryCache) DeletePattern(_ context.Context, pattern string) (int, error) {
	g, err := glob.Compile(glob.QuoteMeta(c.prefix) + pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	deleted := 0
	for k, entry := range c.entries {
		if !g.Match(k) {
			continue
		}
		delete(c.entries, k)
		if !entry.expired(now) {
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) Ping(context.Context) error { return nil }

func (c *MemoryCache) Close() error { return nil }
