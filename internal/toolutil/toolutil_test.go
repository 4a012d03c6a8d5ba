package toolutil

import (
	"context"
	"testing"
	"time"

	"github.com/anatolykoptev/go_shorts/internal/engine"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, def, max, want int
	}{
		{0, 10, 50, 10},
		{-3, 10, 50, 10},
		{7, 10, 50, 7},
		{80, 10, 50, 50},
		{80, 10, 0, 80},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.limit, tt.def, tt.max); got != tt.want {
			t.Errorf("ClampLimit(%d, %d, %d) = %d, want %d", tt.limit, tt.def, tt.max, got, tt.want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", DefaultLimit},
		{"abc", DefaultLimit},
		{"0", DefaultLimit},
		{" 5 ", 5},
		{"500", 50},
	}
	for _, tt := range tests {
		if got := ParseLimit(tt.raw, 50); got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseLimitOr(t *testing.T) {
	if got := ParseLimitOr("", 5, 50); got != 5 {
		t.Errorf("ParseLimitOr(\"\") = %d, want 5", got)
	}
	if got := ParseLimitOr("x", 5, 50); got != 5 {
		t.Errorf("ParseLimitOr(\"x\") = %d, want 5", got)
	}
	if got := ParseLimitOr("99", 5, 20); got != 20 {
		t.Errorf("ParseLimitOr(\"99\") = %d, want 20", got)
	}
}

func TestCachedVideos(t *testing.T) {
	engine.InitCache("", time.Minute, 100, time.Minute)
	defer engine.InitCache("", 0, 0, 0)

	calls := 0
	enrich := func(_ context.Context, term string, _ bool, _ int) ([]engine.VideoRecord, bool) {
		calls++
		if term == "none" {
			return []engine.VideoRecord{}, true
		}
		return []engine.VideoRecord{engine.DefaultRecord("abcdefghijk")}, true
	}
	ctx := context.Background()

	out := CachedVideos(ctx, "shorts_fetch", "cats", 10, true, enrich)
	if out.Status != engine.StatusSuccess || out.Count != 1 {
		t.Fatalf("unexpected output %+v", out)
	}
	_ = CachedVideos(ctx, "shorts_fetch", "Cats ", 10, true, enrich)
	if calls != 1 {
		t.Errorf("expected cached second call, enrich ran %d times", calls)
	}

	_ = CachedVideos(ctx, "shorts_fetch", "none", 10, true, enrich)
	_ = CachedVideos(ctx, "shorts_fetch", "none", 10, true, enrich)
	if calls != 3 {
		t.Errorf("empty results must not be cached, enrich ran %d times", calls)
	}
}

func TestCachedVideosSkipsPartialBatch(t *testing.T) {
	engine.InitCache("", time.Minute, 100, time.Minute)
	defer engine.InitCache("", 0, 0, 0)

	calls := 0
	partial := func(_ context.Context, _ string, _ bool, _ int) ([]engine.VideoRecord, bool) {
		calls++
		return []engine.VideoRecord{engine.DefaultRecord("abcdefghijk")}, false
	}
	ctx := context.Background()

	out := CachedVideos(ctx, "shorts_search", "slow", 5, false, partial)
	if out.Count != 1 {
		t.Fatalf("partial batch should still be returned, got %+v", out)
	}
	_ = CachedVideos(ctx, "shorts_search", "slow", 5, false, partial)
	if calls != 2 {
		t.Errorf("partial batch must not be cached, enrich ran %d times", calls)
	}
	if _, ok := engine.CacheLoadJSON[engine.VideosOutput](ctx, engine.CacheKey("shorts_search", "slow", "5")); ok {
		t.Error("cache holds a partial batch")
	}
}
