package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultInvalidationChannel carries tenant IDs whose snapshot changed
const DefaultInvalidationChannel = "period_lock:invalidate"

// Invalidator broadcasts snapshot evictions to every instance
type Invalidator interface {
	Publish(ctx context.Context, tenantID uuid.UUID) error
	// Subscribe calls onEvict for every published tenant until ctx is done.
	Subscribe(ctx context.Context, onEvict func(uuid.UUID)) error
}

// RedisInvalidator publishes evictions over Redis Pub/Sub
type RedisInvalidator struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisInvalidator creates an invalidator on channel. An empty channel
// uses DefaultInvalidationChannel.
func NewRedisInvalidator(client *redis.Client, channel string, logger *zap.Logger) *RedisInvalidator {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisInvalidator{client: client, channel: channel, logger: logger}
}

// Publish announces that the tenant's snapshot is stale
func (i *RedisInvalidator) Publish(ctx context.Context, tenantID uuid.UUID) error {
	if err := i.client.Publish(ctx, i.channel, tenantID.String()).Err(); err != nil {
		return fmt.Errorf("failed to publish snapshot invalidation: %w", err)
	}
	return nil
}

// Subscribe blocks until ctx is cancelled. Malformed messages are skipped.
func (i *RedisInvalidator) Subscribe(ctx context.Context, onEvict func(uuid.UUID)) error {
	pubsub := i.client.Subscribe(ctx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", i.channel, err)
	}
	i.logger.Info("Subscribed to snapshot invalidation", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			tenantID, err := uuid.Parse(msg.Payload)
			if err != nil {
				i.logger.Warn("Ignoring malformed invalidation message",
					zap.String("payload", msg.Payload))
				continue
			}
			onEvict(tenantID)
		}
	}
}
