package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDefaultsAreNoops(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Errorf("Pipeline() = %T", Pipeline())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T", Cache())
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("HTTP() = %T", HTTP())
	}
}

func TestRegister(t *testing.T) {
	Reset()
	defer Reset()

	cacheOnly := &cacheHooks{}
	if !Register(cacheOnly) {
		t.Fatal("Register(cacheHooks) = false")
	}
	if Cache() != cacheOnly {
		t.Error("cache hooks not installed")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("registering cache hooks replaced pipeline hooks")
	}

	if Register("not a hook") {
		t.Error("Register(string) = true")
	}
	if Register(nil) {
		t.Error("Register(nil) = true")
	}
	if Cache() != cacheOnly {
		t.Error("a failed Register changed the hooks")
	}

	stats := NewStats()
	Register(stats)
	if Pipeline() != stats || Cache() != stats || HTTP() != stats {
		t.Error("Stats should be installed for all three interfaces")
	}
}

func TestRegisterConcurrent(t *testing.T) {
	Reset()
	defer Reset()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() { defer wg.Done(); Register(&cacheHooks{}) }()
		go func() { defer wg.Done(); Cache().OnCacheHit(context.Background(), "k") }()
	}
	wg.Wait()
	if _, ok := Cache().(*cacheHooks); !ok {
		t.Errorf("Cache() = %T", Cache())
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := NewStats()
	argv := []string{"-pipe", "-svg"}
	boom := errors.New("boom")

	s.OnGenerateComplete(ctx, argv, 10*time.Millisecond, nil)
	s.OnGenerateComplete(ctx, argv, 30*time.Millisecond, boom)
	s.OnEncodeComplete(ctx, 42, nil)
	s.OnDecodeComplete(ctx, "SyfF", time.Millisecond, boom)
	s.OnCacheHit(ctx, "k")
	s.OnCacheMiss(ctx, "k")
	s.OnCacheSet(ctx, "k", 512)
	s.OnRequest(ctx, "GET", "/svg/x", "id")
	for _, code := range []int{200, 304, 404, 429, 502} {
		s.OnResponse(ctx, "GET", "/svg/x", code, time.Millisecond)
	}
	s.OnError(ctx, "GET", "/svg/x", boom)

	got := s.Snapshot()
	want := StatsSnapshot{
		Uptime:          got.Uptime,
		Renders:         2,
		RenderErrors:    1,
		RenderAvgMillis: 20,
		Encodes:         1,
		EncodedBytes:    42,
		Decodes:         1,
		DecodeErrors:    1,
		CacheHits:       1,
		CacheMisses:     1,
		CacheWrites:     1,
		CachedBytes:     512,
		Requests:        1,
		FailedReqs:      1,
		Responses2xx:    1,
		Responses4xx:    2,
		Responses5xx:    1,
	}
	if got != want {
		t.Errorf("Snapshot() =\n%+v\nwant\n%+v", got, want)
	}
	if got.Uptime == "" {
		t.Error("Uptime should be set for NewStats")
	}
}

func TestStatsZeroValue(t *testing.T) {
	var s Stats
	s.OnCacheHit(context.Background(), "k")
	if snap := s.Snapshot(); snap.CacheHits != 1 || snap.Uptime != "" || snap.RenderAvgMillis != 0 {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

type cacheHooks struct{ NoopCacheHooks }
