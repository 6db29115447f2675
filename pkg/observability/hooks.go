// Package observability provides hooks for metrics and instrumentation.
//
// This package enables optional instrumentation without tying the engine to
// a specific backend. The engine, the stream transport and the render cache
// call the registered hooks; main decides what receives them.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [Prometheus] implements every hook interface on top of
// prometheus/client_golang and is what the serve command registers.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    prom := observability.NewPrometheus(prometheus.DefaultRegisterer)
//	    prom.Install()
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnEvent(ctx, e.Type, changed)
//	observability.Stream().OnConnect(ctx, url)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the graph pipeline.
type PipelineHooks interface {
	// OnEvent records one processed domain event and whether it changed
	// the graph.
	OnEvent(ctx context.Context, eventType string, changed bool)

	// OnFlush records a debounced flush of the graph to the sinks.
	OnFlush(ctx context.Context, nodes, links int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Stream Hooks
// =============================================================================

// StreamHooks receives events from the SSE transport.
type StreamHooks interface {
	// OnConnect records an accepted client connection.
	OnConnect(ctx context.Context, url string)

	// OnDisconnect records the end of a client connection. err is nil when
	// the server closed the stream cleanly.
	OnDisconnect(ctx context.Context, url string, err error)

	// OnMessage records a received message; valid is false for messages
	// that failed to decode.
	OnMessage(ctx context.Context, valid bool)

	// OnSubscriber records a server-side subscriber joining (+1) or
	// leaving (-1).
	OnSubscriber(ctx context.Context, delta int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnEvent(context.Context, string, bool)                            {}
func (NoopPipelineHooks) OnFlush(context.Context, int, int, time.Duration, error)          {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopStreamHooks is a no-op implementation of StreamHooks.
type NoopStreamHooks struct{}

func (NoopStreamHooks) OnConnect(context.Context, string)           {}
func (NoopStreamHooks) OnDisconnect(context.Context, string, error) {}
func (NoopStreamHooks) OnMessage(context.Context, bool)             {}
func (NoopStreamHooks) OnSubscriber(context.Context, int)           {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	streamHooks   StreamHooks   = NoopStreamHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetStreamHooks registers custom stream hooks.
func SetStreamHooks(h StreamHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		streamHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Stream returns the registered stream hooks.
func Stream() StreamHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return streamHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	streamHooks = NoopStreamHooks{}
	cacheHooks = NoopCacheHooks{}
}
