package location

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache keeps the last successfully fetched directory. Only successful fetches
// are ever stored.
type Cache interface {
	Get(ctx context.Context, key string) (Directory, bool, error)
	Set(ctx context.Context, key string, dir Directory) error
}

// DefaultTTL is how long a fetched directory is reused.
const DefaultTTL = 24 * time.Hour

// LRUCache is an in-process expirable cache.
type LRUCache struct {
	lru *expirable.LRU[string, Directory]
}

// NewLRUCache returns a cache holding up to size directories for ttl.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 8
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRUCache{lru: expirable.NewLRU[string, Directory](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) (Directory, bool, error) {
	dir, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return dir.Clone(), true, nil
}

func (c *LRUCache) Set(_ context.Context, key string, dir Directory) error {
	c.lru.Add(key, dir.Clone())
	return nil
}

// RedisCache shares the directory between service replicas.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps client. Keys are stored under prefix.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "smarthika:locations:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Directory, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var dir Directory
	if err := json.Unmarshal(raw, &dir); err != nil {
		return nil, false, err
	}
	return dir, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, dir Directory) error {
	raw, err := json.Marshal(dir)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}
