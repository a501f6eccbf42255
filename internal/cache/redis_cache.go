package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"motomarket/backend/internal/domain"
)

const generationKey = "stats:generation"

// RedisStatisticsCache keys entries by a generation counter that Invalidate
// bumps; stale generations simply stop being read and expire via TTL. This
// keeps invalidation O(1) regardless of how many date-range variants were
// cached.
type RedisStatisticsCache struct {
	client *redis.Client
}

func NewRedisStatisticsCache(addr string, password string, db int) *RedisStatisticsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStatisticsCache{client: client}
}

func (c *RedisStatisticsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStatisticsCache) Close() error {
	return c.client.Close()
}

func (c *RedisStatisticsCache) Get(ctx context.Context, key string) (*domain.Statistics, bool, error) {
	fullKey, err := c.generationedKey(ctx, key)
	if err != nil {
		return nil, false, err
	}

	val, err := c.client.Get(ctx, fullKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stats domain.Statistics
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *RedisStatisticsCache) Set(ctx context.Context, key string, value *domain.Statistics, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	fullKey, err := c.generationedKey(ctx, key)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fullKey, payload, ttl).Err()
}

func (c *RedisStatisticsCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func (c *RedisStatisticsCache) generationedKey(ctx context.Context, key string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("stats:%d:%s", gen, key), nil
}
