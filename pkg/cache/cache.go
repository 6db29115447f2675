// Package cache stores rendered graph artifacts.
//
// Rendering a large topology to SVG through Graphviz is the most expensive
// step of a flush, and the same graph is often rendered many times (every
// /api/graph.svg request, every watch flush while nothing visible changed).
// Artifacts are therefore keyed by the hash of their DOT source and kept in
// a [Cache]:
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one file per entry under the user cache directory
//   - [RedisCache]: shared between several serve instances
//
// [Open] builds the backend named in the configuration. [Scoped] prefixes
// every key, so several daemons can share one Redis database.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TTLArtifact is the default lifetime of a rendered artifact.
const TTLArtifact = 24 * time.Hour

// Backend names.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Cache is a byte store with per-entry expiration.
type Cache interface {
	// Get returns the value stored under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend resources.
	Close() error
}

// Options selects and configures a cache backend.
type Options struct {
	Backend string

	// Dir is the FileCache directory. Defaults to DefaultDir().
	Dir string

	// Redis connection settings.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Prefix namespaces every key.
	Prefix string
}

// Open builds the cache described by opts. Redis connections are checked
// with a ping before returning.
func Open(ctx context.Context, opts Options) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch opts.Backend {
	case "", BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		dir := opts.Dir
		if dir == "" {
			if dir, err = DefaultDir(); err != nil {
				return nil, err
			}
		}
		c, err = NewFileCache(dir)
	case BackendRedis:
		c, err = NewRedisCache(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	if opts.Prefix != "" {
		c = Scoped(c, opts.Prefix)
	}
	return c, nil
}

// DefaultDir returns the per-user cache directory.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache directory: %w", err)
	}
	return filepath.Join(base, "docker-graph"), nil
}

// Hash returns the hex SHA-256 of data. Renderers hash the DOT source.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ArtifactKey returns the key of the artifact rendered from a DOT source
// with the given hash in the given format, e.g. "artifact:svg:3f2a...".
func ArtifactKey(dotHash, format string) string {
	return "artifact:" + format + ":" + dotHash
}

// NullCache misses every lookup and drops every write. It backs the "none"
// backend and --no-cache.
type NullCache struct{}

// NewNullCache returns a NullCache.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
