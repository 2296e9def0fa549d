package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"loanbroker/internal/emi"
	"loanbroker/pkg/platform/sentinel"
)

// RedisCache stores quote results as JSON strings with a TTL.
type RedisCache struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (emi.Result, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return emi.Result{}, sentinel.ErrNotFound
		}
		return emi.Result{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	var res emi.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return emi.Result{}, fmt.Errorf("decode cached quote: %w", err)
	}
	return res, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result emi.Result, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
