package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/chafukay/byootify/internal/config"
)

// Cache is a small JSON cache over redis, used for availability responses.
// Misses and redis failures are both treated as misses; the cache is never on
// the critical path for correctness.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisCacheDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, availability cache disabled", zap.Error(err))
		return &Cache{log: log}
	}

	return &Cache{rdb: rdb, ttl: 2 * time.Minute, log: log}
}

func availabilityKey(providerID, serviceID, day string) string {
	return fmt.Sprintf("availability:%s:%s:%s", providerID, serviceID, day)
}

func (c *Cache) GetAvailability(ctx context.Context, providerID, serviceID, day string, out any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, availabilityKey(providerID, serviceID, day)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (c *Cache) SetAvailability(ctx context.Context, providerID, serviceID, day string, v any) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, availabilityKey(providerID, serviceID, day), raw, c.ttl).Err(); err != nil {
		c.log.Debug("availability cache set failed", zap.Error(err))
	}
}

// InvalidateProviderDay drops all cached availability for one provider/day
// after a calendar mutation.
func (c *Cache) InvalidateProviderDay(ctx context.Context, providerID, day string) {
	if c == nil || c.rdb == nil {
		return
	}
	pattern := fmt.Sprintf("availability:%s:*:%s", providerID, day)
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Debug("availability cache invalidation failed", zap.Error(err))
	}
}
