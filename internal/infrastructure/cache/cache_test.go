package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(tenantID uuid.UUID) periodlock.Snapshot {
	return periodlock.Snapshot{
		Settings: periodlock.GlobalLockSetting{
			TenantID:   tenantID,
			Enabled:    true,
			CutoffDate: periodlock.MustParseDate("2024-12-31").Ptr(),
		},
		Periods: []periodlock.LockedPeriod{{
			TenantID:  tenantID,
			Name:      "Q1 2025",
			StartDate: periodlock.MustParseDate("2025-01-01"),
			EndDate:   periodlock.MustParseDate("2025-03-31"),
			IsLocked:  true,
		}},
	}
}

// fakeL2 is an in-process stand-in for the shared level
type fakeL2 struct {
	mu      sync.Mutex
	items   map[uuid.UUID]periodlock.Snapshot
	deletes int
}

func newFakeL2() *fakeL2 {
	return &fakeL2{items: make(map[uuid.UUID]periodlock.Snapshot)}
}

func (f *fakeL2) Get(_ context.Context, id uuid.UUID) (periodlock.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	return s, ok
}

func (f *fakeL2) Set(_ context.Context, id uuid.UUID, s periodlock.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id] = s
}

func (f *fakeL2) Delete(_ context.Context, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	f.deletes++
}

// expiringL2 is a fakeL2 whose entries expire at a fixed deadline
type expiringL2 struct {
	mu      sync.Mutex
	items   map[uuid.UUID]periodlock.Snapshot
	expires map[uuid.UUID]time.Time
}

func newExpiringL2() *expiringL2 {
	return &expiringL2{
		items:   make(map[uuid.UUID]periodlock.Snapshot),
		expires: make(map[uuid.UUID]time.Time),
	}
}

// store records an entry that was written storedAt with the given ttl
func (f *expiringL2) store(id uuid.UUID, s periodlock.Snapshot, storedAt time.Time, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id] = s
	f.expires[id] = storedAt.Add(ttl)
}

func (f *expiringL2) GetWithTTL(_ context.Context, id uuid.UUID) (periodlock.Snapshot, time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return periodlock.Snapshot{}, 0, false
	}
	remaining := time.Until(f.expires[id])
	if remaining <= 0 {
		return periodlock.Snapshot{}, 0, false
	}
	return s, remaining, true
}

func (f *expiringL2) Get(ctx context.Context, id uuid.UUID) (periodlock.Snapshot, bool) {
	s, _, ok := f.GetWithTTL(ctx, id)
	return s, ok
}

func (f *expiringL2) Set(_ context.Context, id uuid.UUID, s periodlock.Snapshot) {
	f.store(id, s, time.Now(), time.Minute)
}

func (f *expiringL2) Delete(_ context.Context, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	delete(f.expires, id)
}

// chanInvalidator delivers published tenants to the subscriber in process
type chanInvalidator struct {
	ch        chan uuid.UUID
	published []uuid.UUID
	mu        sync.Mutex
}

func newChanInvalidator() *chanInvalidator {
	return &chanInvalidator{ch: make(chan uuid.UUID, 8)}
}

func (c *chanInvalidator) Publish(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	c.published = append(c.published, id)
	c.mu.Unlock()
	c.ch <- id
	return nil
}

func (c *chanInvalidator) Subscribe(ctx context.Context, onEvict func(uuid.UUID)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-c.ch:
			onEvict(id)
		}
	}
}

func TestMemorySnapshotCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemorySnapshotCache(time.Minute)
	tenantID := uuid.New()

	_, ok := c.Get(ctx, tenantID)
	assert.False(t, ok)

	snap := sampleSnapshot(tenantID)
	c.Set(ctx, tenantID, snap)
	got, ok := c.Get(ctx, tenantID)
	require.True(t, ok)
	assert.Equal(t, snap, got)

	_, ok = c.Get(ctx, uuid.New())
	assert.False(t, ok, "tenants must not share entries")

	c.Delete(ctx, tenantID)
	_, ok = c.Get(ctx, tenantID)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(3), stats.Misses)
	assert.Equal(t, 0, stats.Entries)
}

func TestMemorySnapshotCache_Expires(t *testing.T) {
	ctx := context.Background()
	c := NewMemorySnapshotCache(20 * time.Millisecond)
	tenantID := uuid.New()

	c.Set(ctx, tenantID, sampleSnapshot(tenantID))
	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, tenantID)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestTieredSnapshotCache_PromotesL2Hits(t *testing.T) {
	ctx := context.Background()
	l1 := NewMemorySnapshotCache(time.Minute)
	l2 := newFakeL2()
	c := NewTieredSnapshotCache(l1, l2)
	tenantID := uuid.New()
	snap := sampleSnapshot(tenantID)

	l2.Set(ctx, tenantID, snap)

	got, ok := c.Get(ctx, tenantID)
	require.True(t, ok)
	assert.Equal(t, snap, got)

	_, ok = l1.Get(ctx, tenantID)
	assert.True(t, ok, "L2 hit must be copied to L1")

	_, ok = c.Get(ctx, tenantID)
	require.True(t, ok)
	_, ok = c.Get(ctx, uuid.New())
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.L1Hits)
	assert.Equal(t, int64(1), stats.L2Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate(), 0.001)
}

func TestTieredSnapshotCache_L1CopyKeepsL2Deadline(t *testing.T) {
	ctx := context.Background()
	ttl := 200 * time.Millisecond
	l1 := NewMemorySnapshotCache(ttl)
	l2 := newExpiringL2()
	c := NewTieredSnapshotCache(l1, l2)
	tenantID := uuid.New()

	// written by another instance almost a full TTL ago
	loadedAt := time.Now().Add(-190 * time.Millisecond)
	l2.store(tenantID, sampleSnapshot(tenantID), loadedAt, ttl)

	_, ok := c.Get(ctx, tenantID)
	require.True(t, ok)
	_, ok = l1.Get(ctx, tenantID)
	require.True(t, ok, "L2 hit must be copied to L1")

	// gone shortly after the original deadline, not a fresh TTL later
	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, tenantID)
		return !ok
	}, 120*time.Millisecond, 5*time.Millisecond)
	_, ok = l1.Get(ctx, tenantID)
	assert.False(t, ok)
}

func TestMemorySnapshotCache_SetWithTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemorySnapshotCache(time.Minute)
	tenantID := uuid.New()

	c.SetWithTTL(ctx, tenantID, sampleSnapshot(tenantID), 0)
	_, ok := c.Get(ctx, tenantID)
	assert.False(t, ok, "a spent lifetime must not fall back to the default TTL")

	c.SetWithTTL(ctx, tenantID, sampleSnapshot(tenantID), 20*time.Millisecond)
	_, ok = c.Get(ctx, tenantID)
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, tenantID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestTieredSnapshotCache_SetAndDeleteBothLevels(t *testing.T) {
	ctx := context.Background()
	l1 := NewMemorySnapshotCache(time.Minute)
	l2 := newFakeL2()
	inv := newChanInvalidator()
	c := NewTieredSnapshotCache(l1, l2, WithInvalidator(inv))
	tenantID := uuid.New()

	c.Set(ctx, tenantID, sampleSnapshot(tenantID))
	_, ok := l2.Get(ctx, tenantID)
	assert.True(t, ok)

	c.Delete(ctx, tenantID)
	_, ok = l1.Get(ctx, tenantID)
	assert.False(t, ok)
	_, ok = l2.Get(ctx, tenantID)
	assert.False(t, ok)
	assert.Equal(t, []uuid.UUID{tenantID}, inv.published)
}

func TestTieredSnapshotCache_RemoteInvalidationEvictsL1(t *testing.T) {
	ctx := context.Background()
	l1 := NewMemorySnapshotCache(time.Minute)
	inv := newChanInvalidator()
	c := NewTieredSnapshotCache(l1, newFakeL2(), WithInvalidator(inv))
	c.Start(ctx)
	defer c.Stop()

	tenantID := uuid.New()
	l1.Set(ctx, tenantID, sampleSnapshot(tenantID))

	// another instance changed the tenant's lock configuration
	require.NoError(t, inv.Publish(ctx, tenantID))

	assert.Eventually(t, func() bool {
		_, ok := l1.Get(ctx, tenantID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestTieredSnapshotCache_StopIsIdempotent(t *testing.T) {
	c := NewTieredSnapshotCache(NewMemorySnapshotCache(time.Minute), newFakeL2(), WithInvalidator(newChanInvalidator()))
	c.Start(context.Background())
	c.Start(context.Background())
	c.Stop()
	c.Stop()
}

func TestRedisSnapshotCache_UnreachableIsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedisSnapshotCache(client, time.Minute, WithOpTimeout(100*time.Millisecond))
	ctx := context.Background()
	tenantID := uuid.New()

	c.Set(ctx, tenantID, sampleSnapshot(tenantID))
	_, ok := c.Get(ctx, tenantID)
	assert.False(t, ok)
	c.Delete(ctx, tenantID)
}

func TestNewSnapshotCache_Backends(t *testing.T) {
	ctx := context.Background()

	c, stop, err := NewSnapshotCache(ctx, configFor(BackendMemory), nil, nil)
	require.NoError(t, err)
	defer stop()
	assert.IsType(t, &MemorySnapshotCache{}, c)

	for _, backend := range []string{BackendRedis, BackendTiered} {
		_, stop, err := NewSnapshotCache(ctx, configFor(backend), nil, nil)
		assert.Error(t, err, backend)
		stop()
	}

	_, _, err = NewSnapshotCache(ctx, configFor("memcached"), nil, nil)
	assert.ErrorContains(t, err, "unknown snapshot cache backend")
}
