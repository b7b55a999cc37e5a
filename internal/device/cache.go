package device

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// cacheEntry holds a cached snapshot with its timestamp.
type cacheEntry struct {
	snapshot  *Snapshot
	timestamp time.Time
}

// SharedFetchTimeout bounds a coalesced fetch. The fetch ignores the
// cancellation of the caller that started it because other callers may
// be waiting on the same result.
const SharedFetchTimeout = 30 * time.Second

// FetchFunc reads a fresh snapshot for a device.
type FetchFunc func(ctx context.Context) (*Snapshot, error)

// TreeCache provides a TTL-based cache of accessibility snapshots keyed by
// device udid. Concurrent misses for the same device share one fetch.
type TreeCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
}

// NewTreeCache creates a new cache. A ttl of 0 disables caching; concurrent
// reads are still coalesced.
func NewTreeCache(ttl time.Duration) *TreeCache {
	return &TreeCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached snapshot for udid if within TTL, otherwise calls
// fetch. Snapshots are shared between callers and must not be mutated.
func (c *TreeCache) Get(ctx context.Context, udid string, fetch FetchFunc) (*Snapshot, error) {
	if c.ttl > 0 {
		c.mu.Lock()
		if entry, ok := c.entries[udid]; ok && c.now().Sub(entry.timestamp) < c.ttl {
			c.mu.Unlock()
			return entry.snapshot, nil
		}
		c.mu.Unlock()
	}

	ch := c.group.DoChan(udid, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SharedFetchTimeout)
		defer cancel()
		snap, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			c.entries[udid] = cacheEntry{snapshot: snap, timestamp: c.now()}
			c.mu.Unlock()
		}
		return snap, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Invalidate removes the cache entry for one device.
func (c *TreeCache) Invalidate(udid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, udid)
}

// InvalidateAll clears the entire cache.
func (c *TreeCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
