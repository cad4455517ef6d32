package ein

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CacheEntry is one cached resolution. A nil Result records a confirmed miss.
type CacheEntry struct {
	Key      string      `json:"key" yaml:"key"`
	Result   *Resolution `json:"result,omitempty" yaml:"result,omitempty"`
	CachedAt time.Time   `json:"cached_at" yaml:"cached_at"`
}

// CacheStore persists resolver cache snapshots
type CacheStore interface {
	SaveCache(ctx context.Context, entries []CacheEntry) error
	LoadCache(ctx context.Context) ([]CacheEntry, error)
}

// Cache is a mutex-guarded resolution cache
type Cache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	now     func() time.Time
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]CacheEntry),
		now:     time.Now,
	}
}

func cacheKey(ein, normName, state string) string {
	return ein + "|" + normName + "|" + state
}

// Get returns a copy of the cached resolution and whether the key was present
func (c *Cache) Get(key string) (*Resolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return copyResolution(e.Result), true
}

// Put stores a resolution, including misses
func (c *Cache) Put(key string, res *Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CacheEntry{Key: key, Result: copyResolution(res), CachedAt: c.now().UTC()}
}

// Len returns the number of cached keys
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns all entries sorted by key
func (c *Cache) Snapshot() []CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]CacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		e.Result = copyResolution(e.Result)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Restore merges entries into the cache, replacing existing keys
func (c *Cache) Restore(entries []CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		e.Result = copyResolution(e.Result)
		c.entries[e.Key] = e
	}
}

// SaveCache writes the resolver cache to store. A disabled cache saves nothing.
func (r *Resolver) SaveCache(ctx context.Context, store CacheStore) error {
	if r.cache == nil || store == nil {
		return nil
	}
	entries := r.cache.Snapshot()
	if err := store.SaveCache(ctx, entries); err != nil {
		return fmt.Errorf("failed to save EIN cache: %w", err)
	}
	r.logger.Debug("saved EIN cache", "entries", len(entries))
	return nil
}

// LoadCache restores the resolver cache from store
func (r *Resolver) LoadCache(ctx context.Context, store CacheStore) error {
	if r.cache == nil || store == nil {
		return nil
	}
	entries, err := store.LoadCache(ctx)
	if err != nil {
		return fmt.Errorf("failed to load EIN cache: %w", err)
	}
	r.cache.Restore(entries)
	r.logger.Debug("loaded EIN cache", "entries", len(entries))
	return nil
}
