// Package database opens the Redis connection that stores per-client request counters.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"travel-planner/internal/common/config"
	"travel-planner/internal/common/logger"
)

type RedisClient struct {
	Client *redis.Client
	addr   string
}

// NewRedis creates a Redis client. It does not dial; use Ping or ConnectRedis.
func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisClient{Client: rdb, addr: cfg.Address}
}

// ConnectRedis pings the server up to attempts times, doubling delay between
// tries. The client is closed when every attempt fails.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, attempts int, delay time.Duration, log logger.Logger) (*RedisClient, error) {
	if attempts < 1 {
		attempts = 1
	}
	rc := NewRedis(cfg)

	var err error
	for i := 0; i < attempts; i++ {
		if err = rc.Ping(ctx); err == nil {
			return rc, nil
		}
		if i == attempts-1 {
			break
		}
		log.Warn("redis connection failed, retrying", map[string]interface{}{
			"address":     cfg.Address,
			"attempt":     i + 1,
			"maxAttempts": attempts,
			"nextRetryIn": delay.String(),
			"error":       err.Error(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = rc.Close()
			return nil, ctx.Err()
		}
		delay *= 2
	}

	_ = rc.Close()
	return nil, fmt.Errorf("redis at %s unavailable after %d attempts: %w", cfg.Address, attempts, err)
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.addr, err)
	}
	return nil
}

func (c *RedisClient) Addr() string { return c.addr }

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
