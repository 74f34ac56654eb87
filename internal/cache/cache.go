// Package cache wraps redis for catalog read caching and order idempotency
// keys. A nil *Cache is valid and behaves as an always-empty cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	catalogPrefix     = "catalog:"
	idempotencyPrefix = "idem:order:"
	pendingMarker     = "pending"
)

// ErrIdempotencyInFlight is returned when a request with the same key is
// still being processed.
var ErrIdempotencyInFlight = errors.New("request with this idempotency key is in progress")

type Cache struct {
	client     *redis.Client
	catalogTTL time.Duration
	idemTTL    time.Duration
}

func New(client *redis.Client, catalogTTL, idemTTL time.Duration) *Cache {
	return &Cache{client: client, catalogTTL: catalogTTL, idemTTL: idemTTL}
}

// Connect dials addr and pings it. An empty addr disables caching and returns nil.
func Connect(ctx context.Context, addr, password string, db int, catalogTTL, idemTTL time.Duration) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, catalogTTL, idemTTL), nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func ProductsKey(category string, featuredOnly bool) string {
	return fmt.Sprintf("%sproducts:%s:%t", catalogPrefix, category, featuredOnly)
}

func CategoriesKey() string {
	return catalogPrefix + "categories"
}

// GetJSON decodes the cached value at key into dst. It reports false on a
// miss or when the cache is disabled.
func (c *Cache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.catalogTTL).Err()
}

// InvalidateCatalog drops every cached catalog listing.
func (c *Cache) InvalidateCatalog(ctx context.Context) error {
	if c == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, catalogPrefix+"*", 100).Iterator()
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

// ClaimIdempotencyKey marks key as in flight. It returns true when the caller
// owns the key and should process the request.
func (c *Cache) ClaimIdempotencyKey(ctx context.Context, key string) (bool, error) {
	if c == nil {
		return true, nil
	}
	return c.client.SetNX(ctx, idempotencyPrefix+key, pendingMarker, c.idemTTL).Result()
}

// StoreIdempotentResult replaces the in-flight marker with the response body.
func (c *Cache) StoreIdempotentResult(ctx context.Context, key string, body []byte) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, idempotencyPrefix+key, body, c.idemTTL).Err()
}

// ReleaseIdempotencyKey frees a claimed key so the request can be retried.
func (c *Cache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, idempotencyPrefix+key).Err()
}

// LookupIdempotentResult returns the stored response for key. found is false
// when nothing is stored; ErrIdempotencyInFlight means another request holds it.
func (c *Cache) LookupIdempotentResult(ctx context.Context, key string) (body []byte, found bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if string(raw) == pendingMarker {
		return nil, true, ErrIdempotencyInFlight
	}
	return raw, true, nil
}
