package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-kitchen/internal/infrastructure/config"
	"smart-kitchen/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// redisBackend Redis 快取後端，供多實例部署共用
type redisBackend struct {
	client *redis.Client
}

func newRedisBackend(cfg *config.CacheConfig) (*redisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	common.LogInfo("Redis 快取後端已連線", zap.String("addr", cfg.RedisAddr))
	return &redisBackend{client: client}, nil
}

func (b *redisBackend) Get(ctx context.Context, key string) (string, error) {
	value, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return value, nil
}

func (b *redisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (b *redisBackend) Close() error {
	return b.client.Close()
}
