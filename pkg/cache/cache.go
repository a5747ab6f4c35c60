// Package cache memoizes the full status snapshot for a short TTL so bursts
// of dashboard polls collapse into one underlying log fetch. The cache is
// deliberately not keyed by request parameters: any request arriving inside
// the TTL window receives the identical snapshot, whatever its own
// container/since/tail values. Keep it that way.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/supporttools/blockwatch/pkg/snapshot"
)

// BuildFunc produces a fresh snapshot on a cache miss.
type BuildFunc func() (*snapshot.Snapshot, error)

// SnapshotCache is a single-slot TTL memo. Concurrent misses are collapsed
// through singleflight so at most one build runs at a time.
type SnapshotCache struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu       sync.Mutex
	value    *snapshot.Snapshot
	storedAt time.Time
}

// New creates a cache with the given TTL. ttl <= 0 disables caching: every
// Get builds. now overrides the clock for tests; nil uses time.Now.
func New(ttl time.Duration, now func() time.Time) *SnapshotCache {
	if now == nil {
		now = time.Now
	}
	return &SnapshotCache{ttl: ttl, now: now}
}

// Get returns the cached snapshot when it is still fresh, or invokes build
// (collapsed across concurrent callers) and stores the result. The second
// return value reports whether the snapshot came from cache.
func (c *SnapshotCache) Get(build BuildFunc) (*snapshot.Snapshot, bool, error) {
	if snap, ok := c.peek(); ok {
		return snap, true, nil
	}

	v, err, _ := c.group.Do("status", func() (interface{}, error) {
		// Re-check under the flight: a racing caller may have stored a
		// fresh value while we waited our turn.
		if snap, ok := c.peek(); ok {
			return snap, nil
		}
		snap, err := build()
		if err != nil {
			return nil, err
		}
		c.store(snap)
		return snap, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*snapshot.Snapshot), false, nil
}

// Invalidate drops the cached snapshot immediately.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.storedAt = time.Time{}
}

func (c *SnapshotCache) peek() (*snapshot.Snapshot, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil || c.now().Sub(c.storedAt) > c.ttl {
		return nil, false
	}
	return c.value, true
}

func (c *SnapshotCache) store(snap *snapshot.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = snap
	c.storedAt = c.now()
}
