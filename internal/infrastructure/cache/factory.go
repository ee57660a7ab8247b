package cache

import (
	"context"
	"fmt"

	periodlockapp "github.com/commandx/backend/internal/application/periodlock"
	"github.com/commandx/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend names accepted by NewSnapshotCache
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendTiered = "tiered"
)

// NewSnapshotCache builds the cache named by cfg.CacheBackend. client is
// required for redis and tiered. The returned stop func ends background
// work and is always safe to call.
func NewSnapshotCache(
	ctx context.Context,
	cfg config.PeriodLockConfig,
	client *redis.Client,
	logger *zap.Logger,
) (periodlockapp.SnapshotCache, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("snapshot_cache")
	noop := func() {}

	switch cfg.CacheBackend {
	case "", BackendMemory:
		logger.Info("Using in-memory snapshot cache", zap.Duration("ttl", cfg.AdvisoryTTL))
		return NewMemorySnapshotCache(cfg.AdvisoryTTL), noop, nil

	case BackendRedis:
		if client == nil {
			return nil, noop, fmt.Errorf("snapshot cache backend %q requires a redis client", cfg.CacheBackend)
		}
		logger.Info("Using Redis snapshot cache", zap.Duration("ttl", cfg.AdvisoryTTL))
		return NewRedisSnapshotCache(client, cfg.AdvisoryTTL, WithRedisLogger(logger)), noop, nil

	case BackendTiered:
		if client == nil {
			return nil, noop, fmt.Errorf("snapshot cache backend %q requires a redis client", cfg.CacheBackend)
		}
		tiered := NewTieredSnapshotCache(
			NewMemorySnapshotCache(cfg.AdvisoryTTL),
			NewRedisSnapshotCache(client, cfg.AdvisoryTTL, WithRedisLogger(logger)),
			WithInvalidator(NewRedisInvalidator(client, "", logger)),
			WithTieredLogger(logger),
		)
		tiered.Start(ctx)
		logger.Info("Using tiered snapshot cache", zap.Duration("ttl", cfg.AdvisoryTTL))
		return tiered, tiered.Stop, nil

	default:
		return nil, noop, fmt.Errorf("unknown snapshot cache backend %q", cfg.CacheBackend)
	}
}
