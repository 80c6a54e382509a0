package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Stats counts pipeline, cache and HTTP events. It implements every hook
// interface; the zero value is ready to use.
type Stats struct {
	started time.Time

	renders, renderErrors atomic.Int64
	renderNanos           atomic.Int64
	encodes, encodeErrors atomic.Int64
	encodedBytes          atomic.Int64
	decodes, decodeErrors atomic.Int64

	hits, misses, writes atomic.Int64
	writtenBytes         atomic.Int64

	requests, failed     atomic.Int64
	status2xx, status4xx atomic.Int64
	status5xx            atomic.Int64
}

// NewStats returns Stats whose uptime starts now.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Uptime string `json:"uptime"`

	Renders         int64   `json:"renders"`
	RenderErrors    int64   `json:"render_errors"`
	RenderAvgMillis float64 `json:"render_avg_ms"`
	Encodes         int64   `json:"encodes"`
	EncodeErrors    int64   `json:"encode_errors"`
	EncodedBytes    int64   `json:"encoded_bytes"`
	Decodes         int64   `json:"decodes"`
	DecodeErrors    int64   `json:"decode_errors"`

	CacheHits    int64 `json:"cache_hits"`
	CacheMisses  int64 `json:"cache_misses"`
	CacheWrites  int64 `json:"cache_writes"`
	CachedBytes  int64 `json:"cached_bytes"`
	Requests     int64 `json:"requests"`
	FailedReqs   int64 `json:"failed_requests"`
	Responses2xx int64 `json:"responses_2xx"`
	Responses4xx int64 `json:"responses_4xx"`
	Responses5xx int64 `json:"responses_5xx"`
}

// Snapshot reads the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Renders:      s.renders.Load(),
		RenderErrors: s.renderErrors.Load(),
		Encodes:      s.encodes.Load(),
		EncodeErrors: s.encodeErrors.Load(),
		EncodedBytes: s.encodedBytes.Load(),
		Decodes:      s.decodes.Load(),
		DecodeErrors: s.decodeErrors.Load(),
		CacheHits:    s.hits.Load(),
		CacheMisses:  s.misses.Load(),
		CacheWrites:  s.writes.Load(),
		CachedBytes:  s.writtenBytes.Load(),
		Requests:     s.requests.Load(),
		FailedReqs:   s.failed.Load(),
		Responses2xx: s.status2xx.Load(),
		Responses4xx: s.status4xx.Load(),
		Responses5xx: s.status5xx.Load(),
	}
	if !s.started.IsZero() {
		snap.Uptime = time.Since(s.started).Round(time.Second).String()
	}
	if snap.Renders > 0 {
		snap.RenderAvgMillis = float64(s.renderNanos.Load()) / float64(snap.Renders) / float64(time.Millisecond)
	}
	return snap
}

func (s *Stats) OnGenerateStart(context.Context, []string) {}

func (s *Stats) OnGenerateComplete(_ context.Context, _ []string, d time.Duration, err error) {
	s.renders.Add(1)
	s.renderNanos.Add(int64(d))
	if err != nil {
		s.renderErrors.Add(1)
	}
}

func (s *Stats) OnEncodeStart(context.Context) {}

func (s *Stats) OnEncodeComplete(_ context.Context, size int, err error) {
	s.encodes.Add(1)
	s.encodedBytes.Add(int64(size))
	if err != nil {
		s.encodeErrors.Add(1)
	}
}

func (s *Stats) OnDecodeStart(context.Context, string) {}

func (s *Stats) OnDecodeComplete(_ context.Context, _ string, _ time.Duration, err error) {
	s.decodes.Add(1)
	if err != nil {
		s.decodeErrors.Add(1)
	}
}

func (s *Stats) OnCacheHit(context.Context, string)  { s.hits.Add(1) }
func (s *Stats) OnCacheMiss(context.Context, string) { s.misses.Add(1) }

func (s *Stats) OnCacheSet(_ context.Context, _ string, size int) {
	s.writes.Add(1)
	s.writtenBytes.Add(int64(size))
}

func (s *Stats) OnRequest(context.Context, string, string, string) { s.requests.Add(1) }

func (s *Stats) OnResponse(_ context.Context, _, _ string, code int, _ time.Duration) {
	switch {
	case code >= 500:
		s.status5xx.Add(1)
	case code >= 400:
		s.status4xx.Add(1)
	case code >= 200 && code < 300:
		s.status2xx.Add(1)
	}
}

func (s *Stats) OnError(context.Context, string, string, error) { s.failed.Add(1) }

var (
	_ PipelineHooks = (*Stats)(nil)
	_ CacheHooks    = (*Stats)(nil)
	_ HTTPHooks     = (*Stats)(nil)
)
