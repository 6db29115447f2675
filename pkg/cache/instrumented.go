package cache

import (
	"context"
	"time"

	"github.com/Adirelle/docker-graph/pkg/observability"
)

// InstrumentedCache reports hits, misses and writes of an inner cache to
// the registered observability hooks.
type InstrumentedCache struct {
	inner   Cache
	keyType string
}

// Instrumented wraps c; keyType labels the reported operations.
func Instrumented(c Cache, keyType string) Cache {
	return &InstrumentedCache{inner: c, keyType: keyType}
}

func (c *InstrumentedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.inner.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, hit, err
}

func (c *InstrumentedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.inner.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	}
	return err
}

func (c *InstrumentedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *InstrumentedCache) Close() error {
	return c.inner.Close()
}

var _ Cache = (*InstrumentedCache)(nil)
