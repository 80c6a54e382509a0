// Package observability carries instrumentation events out of the
// pipeline, the cache layer and the HTTP server.
//
// Library code reports through [Pipeline], [Cache] and [HTTP], which
// return no-ops until a host registers an implementation:
//
//	stats := observability.NewStats()
//	observability.Register(stats)
//	defer observability.Reset()
//
// [Stats] is the bundled implementation; `umlstream serve` publishes it
// at /stats.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives backend invocation events.
type PipelineHooks interface {
	// argv is the compiled backend argument vector.
	OnGenerateStart(ctx context.Context, argv []string)
	OnGenerateComplete(ctx context.Context, argv []string, duration time.Duration, err error)

	// size is the number of source bytes consumed.
	OnEncodeStart(ctx context.Context)
	OnEncodeComplete(ctx context.Context, size int, err error)

	OnDecodeStart(ctx context.Context, token string)
	OnDecodeComplete(ctx context.Context, token string, duration time.Duration, err error)
}

// CacheHooks receives artifact cache events keyed by cache key.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, key string)
	OnCacheMiss(ctx context.Context, key string)
	OnCacheSet(ctx context.Context, key string, size int)
}

// HTTPHooks receives server request events.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path, requestID string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
	// OnError reports a request that failed with err.
	OnError(ctx context.Context, method, path string, err error)
}

// NoopPipelineHooks ignores every event.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnGenerateStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnGenerateComplete(context.Context, []string, time.Duration, error) {}
func (NoopPipelineHooks) OnEncodeStart(context.Context)                                      {}
func (NoopPipelineHooks) OnEncodeComplete(context.Context, int, error)                       {}
func (NoopPipelineHooks) OnDecodeStart(context.Context, string)                              {}
func (NoopPipelineHooks) OnDecodeComplete(context.Context, string, time.Duration, error)     {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)              {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// hookSet is swapped as a whole so readers never see a partial update.
type hookSet struct {
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var noops = hookSet{NoopPipelineHooks{}, NoopCacheHooks{}, NoopHTTPHooks{}}

var current atomic.Pointer[hookSet]

func init() { Reset() }

// Register installs h for each hook interface it implements and returns
// whether it implemented any. Other hooks stay as they were.
func Register(h any) bool {
	for {
		old := current.Load()
		next := *old
		ok := false
		if p, is := h.(PipelineHooks); is {
			next.pipeline, ok = p, true
		}
		if c, is := h.(CacheHooks); is {
			next.cache, ok = c, true
		}
		if x, is := h.(HTTPHooks); is {
			next.http, ok = x, true
		}
		if !ok {
			return false
		}
		if current.CompareAndSwap(old, &next) {
			return true
		}
	}
}

// Reset restores the no-op hooks.
func Reset() {
	set := noops
	current.Store(&set)
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return current.Load().pipeline }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return current.Load().cache }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return current.Load().http }
