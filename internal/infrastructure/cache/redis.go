package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	periodlockapp "github.com/commandx/backend/internal/application/periodlock"
	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix  = "period_lock:snapshot:"
	defaultRedisOpTTL = 250 * time.Millisecond
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisSnapshotCache shares snapshots between instances through Redis
type RedisSnapshotCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	opTimeout time.Duration
	logger    *zap.Logger
}

// RedisSnapshotCacheOption configures a RedisSnapshotCache
type RedisSnapshotCacheOption func(*RedisSnapshotCache)

// WithKeyPrefix overrides the key prefix
func WithKeyPrefix(prefix string) RedisSnapshotCacheOption {
	return func(c *RedisSnapshotCache) {
		c.keyPrefix = prefix
	}
}

// WithOpTimeout bounds each Redis round trip
func WithOpTimeout(d time.Duration) RedisSnapshotCacheOption {
	return func(c *RedisSnapshotCache) {
		c.opTimeout = d
	}
}

// WithRedisLogger sets the logger
func WithRedisLogger(logger *zap.Logger) RedisSnapshotCacheOption {
	return func(c *RedisSnapshotCache) {
		c.logger = logger
	}
}

// NewRedisSnapshotCache creates a cache on an existing client. The caller
// keeps ownership of the client.
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration, opts ...RedisSnapshotCacheOption) *RedisSnapshotCache {
	c := &RedisSnapshotCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: defaultKeyPrefix,
		opTimeout: defaultRedisOpTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisSnapshotCache) key(tenantID uuid.UUID) string {
	return c.keyPrefix + tenantID.String()
}

// Get returns the shared snapshot of the tenant. Redis errors and
// undecodable entries are misses.
func (c *RedisSnapshotCache) Get(ctx context.Context, tenantID uuid.UUID) (periodlock.Snapshot, bool) {
	snap, _, ok := c.GetWithTTL(ctx, tenantID)
	return snap, ok
}

// GetWithTTL is Get plus the entry's remaining lifetime, read in the same
// round trip. The lifetime is zero when Redis does not report one.
func (c *RedisSnapshotCache) GetWithTTL(ctx context.Context, tenantID uuid.UUID) (periodlock.Snapshot, time.Duration, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	key := c.key(tenantID)
	// the pipeline error repeats the first failing command's error
	_, _ = c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, key)
		pttl = p.PTTL(ctx, key)
		return nil
	})

	data, err := get.Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Snapshot cache read failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
		return periodlock.Snapshot{}, 0, false
	}

	var snap periodlock.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.logger.Warn("Discarding undecodable snapshot cache entry",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		c.Delete(ctx, tenantID)
		return periodlock.Snapshot{}, 0, false
	}

	remaining, err := pttl.Result()
	if err != nil || remaining < 0 {
		remaining = 0
	}
	return snap, remaining, true
}

// Set stores snap for the cache TTL
func (c *RedisSnapshotCache) Set(ctx context.Context, tenantID uuid.UUID, snap periodlock.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.logger.Error("Failed to encode snapshot", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.client.Set(ctx, c.key(tenantID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Snapshot cache write failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

// Delete evicts the tenant's snapshot
func (c *RedisSnapshotCache) Delete(ctx context.Context, tenantID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
	defer cancel()
	if err := c.client.Del(ctx, c.key(tenantID)).Err(); err != nil {
		c.logger.Warn("Snapshot cache delete failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

var (
	_ periodlockapp.SnapshotCache = (*RedisSnapshotCache)(nil)
	_ ExpiringSnapshotCache       = (*RedisSnapshotCache)(nil)
)
