package cache

import (
	"context"
	"log/slog"
	"time"

	"spotmarket/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	spotKeyPrefix     = "spot:"
	searchKeyPattern  = "search:*"
	operationTimeout  = 2 * time.Second
	connectionTimeout = 5 * time.Second
)

// RedisInvalidator purges derived cache entries when a booking mutation
// changes a spot's effective availability. The cache is disposable: every
// call is best-effort and failures are only logged, never returned, so a
// cache outage can never fail a booking.
type RedisInvalidator struct {
	client *redis.Client // nil when caching is disabled
}

func NewRedisInvalidator(cfg config.RedisConfig) *RedisInvalidator {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis connection failed, cache invalidation disabled", "addr", cfg.Addr, "error", err.Error())
		_ = client.Close()
		return &RedisInvalidator{}
	}

	return &RedisInvalidator{client: client}
}

// OnBookingMutated drops the spot's detail entry and every cached search
// result set. Search results are keyed by hashed query parameters and
// cannot be selectively patched, so the full purge is the accepted cost.
func (c *RedisInvalidator) OnBookingMutated(ctx context.Context, spotID uuid.UUID) {
	if c.client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if err := c.client.Del(ctx, spotKeyPrefix+spotID.String()).Err(); err != nil {
		slog.Warn("failed to invalidate spot cache entry", "spot_id", spotID.String(), "error", err.Error())
	}

	if err := c.deletePattern(ctx, searchKeyPattern); err != nil {
		slog.Warn("failed to invalidate search cache", "error", err.Error())
	}
}

func (c *RedisInvalidator) deletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisInvalidator) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err.Error())
		}
	}
}
