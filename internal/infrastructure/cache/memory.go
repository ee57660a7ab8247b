package cache

import (
	"context"
	"sync/atomic"
	"time"

	periodlockapp "github.com/commandx/backend/internal/application/periodlock"
	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// MemorySnapshotCache keeps snapshots in process memory
type MemorySnapshotCache struct {
	items *gocache.Cache

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemorySnapshotCache creates a cache whose entries live for ttl
func NewMemorySnapshotCache(ttl time.Duration) *MemorySnapshotCache {
	return &MemorySnapshotCache{items: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached snapshot of the tenant
func (c *MemorySnapshotCache) Get(_ context.Context, tenantID uuid.UUID) (periodlock.Snapshot, bool) {
	v, ok := c.items.Get(tenantID.String())
	if !ok {
		c.misses.Add(1)
		return periodlock.Snapshot{}, false
	}
	c.hits.Add(1)
	return v.(periodlock.Snapshot), true
}

// Set stores snap with the default TTL
func (c *MemorySnapshotCache) Set(_ context.Context, tenantID uuid.UUID, snap periodlock.Snapshot) {
	c.items.SetDefault(tenantID.String(), snap)
}

// SetWithTTL stores snap for ttl instead of the default. A non-positive ttl
// stores nothing.
func (c *MemorySnapshotCache) SetWithTTL(_ context.Context, tenantID uuid.UUID, snap periodlock.Snapshot, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.items.Set(tenantID.String(), snap, ttl)
}

// Delete evicts the tenant's snapshot
func (c *MemorySnapshotCache) Delete(_ context.Context, tenantID uuid.UUID) {
	c.items.Delete(tenantID.String())
}

// Stats returns hit and miss counts since creation
func (c *MemorySnapshotCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.items.ItemCount()}
}

// Stats is a point-in-time view of cache effectiveness
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

var _ periodlockapp.SnapshotCache = (*MemorySnapshotCache)(nil)
