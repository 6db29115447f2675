package cache

import (
	"context"
	"time"
)

// ScopedCache prefixes every key of an inner cache. This isolates the
// artifacts of several daemons sharing one backend.
//
// Example usage:
//
//	shared, _ := cache.NewRedisCache(ctx, "redis:6379", "", 0)
//	prod := cache.Scoped(shared, "prod-host:")
type ScopedCache struct {
	inner  Cache
	prefix string
}

// Scoped wraps c so that every key is prefixed with prefix.
func Scoped(c Cache, prefix string) Cache {
	if c == nil {
		c = NewNullCache()
	}
	return &ScopedCache{inner: c, prefix: prefix}
}

func (c *ScopedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

func (c *ScopedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

func (c *ScopedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

func (c *ScopedCache) Close() error {
	return c.inner.Close()
}

var _ Cache = (*ScopedCache)(nil)
