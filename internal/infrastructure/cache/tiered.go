package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	periodlockapp "github.com/commandx/backend/internal/application/periodlock"
	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpiringSnapshotCache reports how long a cached snapshot has left to live
type ExpiringSnapshotCache interface {
	periodlockapp.SnapshotCache
	GetWithTTL(ctx context.Context, tenantID uuid.UUID) (periodlock.Snapshot, time.Duration, bool)
}

// TieredSnapshotCache checks the local L1 first, then the shared L2.
// L2 hits are copied into L1 for no longer than the L2 entry has left, so
// a snapshot is never served for more than one TTL after it was loaded.
type TieredSnapshotCache struct {
	l1          *MemorySnapshotCache
	l2          periodlockapp.SnapshotCache
	invalidator Invalidator
	logger      *zap.Logger

	l1Hits atomic.Int64
	l2Hits atomic.Int64
	misses atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// TieredOption configures a TieredSnapshotCache
type TieredOption func(*TieredSnapshotCache)

// WithInvalidator broadcasts deletes to other instances
func WithInvalidator(inv Invalidator) TieredOption {
	return func(c *TieredSnapshotCache) {
		c.invalidator = inv
	}
}

// WithTieredLogger sets the logger
func WithTieredLogger(logger *zap.Logger) TieredOption {
	return func(c *TieredSnapshotCache) {
		c.logger = logger
	}
}

// NewTieredSnapshotCache creates a two level cache
func NewTieredSnapshotCache(l1 *MemorySnapshotCache, l2 periodlockapp.SnapshotCache, opts ...TieredOption) *TieredSnapshotCache {
	c := &TieredSnapshotCache{
		l1:     l1,
		l2:     l2,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the snapshot from L1 or L2
func (c *TieredSnapshotCache) Get(ctx context.Context, tenantID uuid.UUID) (periodlock.Snapshot, bool) {
	if snap, ok := c.l1.Get(ctx, tenantID); ok {
		c.l1Hits.Add(1)
		return snap, true
	}
	if l2, ok := c.l2.(ExpiringSnapshotCache); ok {
		if snap, remaining, ok := l2.GetWithTTL(ctx, tenantID); ok {
			c.l2Hits.Add(1)
			c.l1.SetWithTTL(ctx, tenantID, snap, remaining)
			return snap, true
		}
	} else if snap, ok := c.l2.Get(ctx, tenantID); ok {
		c.l2Hits.Add(1)
		c.l1.Set(ctx, tenantID, snap)
		return snap, true
	}
	c.misses.Add(1)
	return periodlock.Snapshot{}, false
}

// Set writes through both levels
func (c *TieredSnapshotCache) Set(ctx context.Context, tenantID uuid.UUID, snap periodlock.Snapshot) {
	c.l1.Set(ctx, tenantID, snap)
	c.l2.Set(ctx, tenantID, snap)
}

// Delete evicts both levels and tells other instances to evict their L1
func (c *TieredSnapshotCache) Delete(ctx context.Context, tenantID uuid.UUID) {
	c.l1.Delete(ctx, tenantID)
	c.l2.Delete(ctx, tenantID)
	if c.invalidator == nil {
		return
	}
	if err := c.invalidator.Publish(ctx, tenantID); err != nil {
		c.logger.Warn("Snapshot invalidation broadcast failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

// Start listens for evictions from other instances in the background.
// It is a no-op without an invalidator or when already started.
func (c *TieredSnapshotCache) Start(ctx context.Context) {
	if c.invalidator == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		err := c.invalidator.Subscribe(ctx, func(tenantID uuid.UUID) {
			c.l1.Delete(ctx, tenantID)
		})
		if err != nil {
			c.logger.Error("Snapshot invalidation subscription ended", zap.Error(err))
		}
	}(c.done)
}

// Stop ends the subscription and waits for it to exit
func (c *TieredSnapshotCache) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// TieredStats reports where lookups were answered
type TieredStats struct {
	L1Hits  int64 `json:"l1_hits"`
	L2Hits  int64 `json:"l2_hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"l1_entries"`
}

// HitRate returns the share of lookups answered by either level
func (s TieredStats) HitRate() float64 {
	total := s.L1Hits + s.L2Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.L1Hits+s.L2Hits) / float64(total)
}

// Stats returns lookup counts since creation
func (c *TieredSnapshotCache) Stats() TieredStats {
	return TieredStats{
		L1Hits:  c.l1Hits.Load(),
		L2Hits:  c.l2Hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.l1.Stats().Entries,
	}
}

var _ periodlockapp.SnapshotCache = (*TieredSnapshotCache)(nil)
