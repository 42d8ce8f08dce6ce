// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores raw page bodies between runs so repeated research on
// overlapping topics does not refetch the same origin pages.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/market-research/pkg/types"
)

// KeyPrefix namespaces cached pages in Redis.
const KeyPrefix = "market-research:page:"

const defaultTTL = 24 * time.Hour

// Cache is a page body store keyed by URL.
type Cache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Set(ctx context.Context, url string, body []byte) error
}

// Nop is a Cache that never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }

// Redis stores pages in Redis with a fixed TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Open builds the cache selected by cfg: Redis when enabled, Nop otherwise.
// The returned close function releases the Redis connection.
func Open(ctx context.Context, cfg types.CacheConfig) (Cache, func() error, error) {
	if !cfg.Enabled {
		return Nop{}, func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedis(client, cfg.TTL), client.Close, nil
}

// Key returns the Redis key for url.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached body for url. A miss returns ok=false and no error.
func (r *Redis) Get(ctx context.Context, url string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, Key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return b, true, nil
}

// Set stores body for url with the cache TTL.
func (r *Redis) Set(ctx context.Context, url string, body []byte) error {
	if err := r.client.Set(ctx, Key(url), body, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
