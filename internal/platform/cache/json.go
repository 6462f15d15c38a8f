package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

// JSONCache stores JSON documents under a namespace whose version can be
// bumped to invalidate every key at once. A nil cache or nil client turns
// every call into a pass-through.
type JSONCache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewJSONCache instantiates the cache helper.
func NewJSONCache(client *redis.Client, namespace string, ttl time.Duration) *JSONCache {
	return &JSONCache{client: client, namespace: namespace, ttl: ttl}
}

func (c *JSONCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *JSONCache) versionKey() string {
	return c.namespace + ":version"
}

// Version returns the namespace version, initialising it when missing.
func (c *JSONCache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		if err := c.client.SetNX(ctx, c.versionKey(), 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, c.versionKey()).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a namespaced key carrying the current version.
func (c *JSONCache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if !c.enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%d", c.namespace, joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *JSONCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c.enabled() {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.enabled() {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// Set stores value under key with the given ttl; zero ttl uses the default.
func (c *JSONCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// Get decodes the value stored under key into dest.
func (c *JSONCache) Get(ctx context.Context, key string, dest any) error {
	if !c.enabled() {
		return ErrMiss
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

// Bump invalidates the namespace by incrementing its version.
func (c *JSONCache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey()).Err()
}
