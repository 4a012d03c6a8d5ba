// Package toolutil provides helpers shared by the MCP tools and the REST handlers.
package toolutil

import (
	"context"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_shorts/internal/engine"
)

// DefaultLimit is the number of videos requested when the caller gives none.
const DefaultLimit = 10

// ClampLimit normalises a requested limit: <= 0 → def, above max → max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

// ParseLimit reads a limit query parameter; empty or malformed values yield DefaultLimit.
func ParseLimit(raw string, max int) int {
	return ParseLimitOr(raw, DefaultLimit, max)
}

// ParseLimitOr is ParseLimit with a caller-chosen default.
func ParseLimitOr(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = def
	}
	return ClampLimit(n, def, max)
}

// EnrichFunc produces records for a term. complete is false when the batch
// was cut short and some discovered videos are missing.
type EnrichFunc func(ctx context.Context, term string, hashtag bool, limit int) (records []engine.VideoRecord, complete bool)

// CachedVideos runs enrich behind the result cache. Empty and partial batches
// are not cached so the next request gets another full attempt.
func CachedVideos(ctx context.Context, mode, term string, limit int, hashtag bool, enrich EnrichFunc) engine.VideosOutput {
	cacheKey := engine.CacheKey(mode, strings.ToLower(strings.TrimSpace(term)), strconv.Itoa(limit))
	if out, ok := engine.CacheLoadJSON[engine.VideosOutput](ctx, cacheKey); ok {
		return out
	}

	videos, complete := enrich(ctx, term, hashtag, limit)
	out := engine.VideosOutput{
		Status: engine.StatusSuccess,
		Count:  len(videos),
		Videos: videos,
	}
	if complete && len(videos) > 0 {
		engine.CacheStoreJSON(ctx, cacheKey, out)
	}
	return out
}
