// Package cache stores short-lived search responses in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"campus-market/internal/config"
	"campus-market/internal/logger"
)

const dialTimeout = 5 * time.Second

// Cache is a byte cache with per-entry expiry. A miss and a backend failure
// look the same to callers; failures are logged.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Close() error
}

// Noop never hits. It is used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration) {}
func (Noop) Close() error                                       { return nil }

// client is the part of *redis.Client the cache uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis is a Cache backed by a Redis server.
type Redis struct {
	rdb client
}

// Connect dials Redis and pings it. An empty address yields Noop.
func Connect(ctx context.Context, cfg config.RedisConfig) (Cache, error) {
	if cfg.Address == "" {
		logger.Infof("redis not configured, search cache disabled")
		return Noop{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Address, err)
	}

	logger.Infof("connected to redis at %s", cfg.Address)
	return &Redis{rdb: rdb}, nil
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("cache get %s: %v", key, err)
		}
		return nil, false
	}
	return val, true
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Warnf("cache set %s: %v", key, err)
	}
}

func (c *Redis) Close() error {
	return c.rdb.Close()
}

// Key derives a fixed-length key from its parts: namespace:hash.
func Key(namespace string, parts ...string) string {
	sum := xxhash.Sum64String(strings.Join(parts, "\x00"))
	return namespace + ":" + strconv.FormatUint(sum, 16)
}
