// Package shortserver exposes the enrichment pipeline as MCP tools and REST endpoints.
package shortserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_shorts/internal/engine"
	"github.com/anatolykoptev/go_shorts/internal/engine/shorts"
	"github.com/anatolykoptev/go_shorts/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Enricher is the pipeline the serving surface drives.
type Enricher interface {
	Enrich(ctx context.Context, term string, hashtag bool, limit int) ([]engine.VideoRecord, bool)
	Video(ctx context.Context, id string) (engine.VideoRecord, error)
	Transcript(ctx context.Context, id string) string
}

// FetchInput is the input of shorts_fetch.
type FetchInput struct {
	Hashtag string `json:"hashtag" jsonschema:"Hashtag to scan, with or without the leading #"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of videos (default 10)"`
}

// SearchInput is the input of shorts_search.
type SearchInput struct {
	Query string `json:"query" jsonschema:"Free-text search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of videos (default 10)"`
}

// VideoInput is the input of shorts_video_info.
type VideoInput struct {
	URLOrID string `json:"url_or_id" jsonschema:"Video ID or watch, shorts, embed or youtu.be URL"`
}

// TranscriptInput is the input of shorts_transcript.
type TranscriptInput struct {
	Video string `json:"video" jsonschema:"Video ID or URL"`
}

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 4

// RegisterTools registers the shorts tools on the given MCP server.
func RegisterTools(server *mcp.Server, e Enricher, maxLimit int) {
	registerFetch(server, e, maxLimit)
	registerSearch(server, e, maxLimit)
	registerVideoInfo(server, e)
	registerTranscript(server, e)
}

func registerFetch(server *mcp.Server, e Enricher, maxLimit int) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "shorts_fetch",
		Description: "Fetch short-form videos listed under a hashtag. Returns title, channel, views, publish date, thumbnail, full description and spoken transcript for each video, in listing order.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input FetchInput) (*mcp.CallToolResult, engine.VideosOutput, error) {
		tag := strings.TrimSpace(input.Hashtag)
		if strings.TrimPrefix(tag, "#") == "" {
			return nil, engine.VideosOutput{}, errors.New("hashtag is required")
		}
		limit := toolutil.ClampLimit(input.Limit, toolutil.DefaultLimit, maxLimit)
		out := runEnrich(ctx, "shorts_fetch", tag, limit, true, e)
		return nil, out, nil
	})
}

func registerSearch(server *mcp.Server, e Enricher, maxLimit int) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "shorts_search",
		Description: "Search short-form videos by free-text query. Returns title, channel, views, publish date, thumbnail, full description and spoken transcript for each video, in result order.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, engine.VideosOutput, error) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return nil, engine.VideosOutput{}, errors.New("query is required")
		}
		limit := toolutil.ClampLimit(input.Limit, toolutil.DefaultLimit, maxLimit)
		out := runEnrich(ctx, "shorts_search", query, limit, false, e)
		return nil, out, nil
	})
}

func registerVideoInfo(server *mcp.Server, e Enricher) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "shorts_video_info",
		Description: "Fetch the metadata of one video: title, channel, views, publish date, thumbnail, full description and spoken transcript.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input VideoInput) (*mcp.CallToolResult, engine.VideoOutput, error) {
		id, ok := shorts.ParseVideoID(input.URLOrID)
		if !ok {
			return nil, engine.VideoOutput{}, errors.New("url_or_id must be a video ID or URL")
		}
		return nil, lookupVideo(ctx, id, e), nil
	})
}

func registerTranscript(server *mcp.Server, e Enricher) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "shorts_transcript",
		Description: "Fetch the spoken transcript of one video as plain text, preferring manual captions over auto-generated ones.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, engine.TranscriptOutput, error) {
		id, ok := shorts.ParseVideoID(input.Video)
		if !ok {
			return nil, engine.TranscriptOutput{}, errors.New("video must be a video ID or URL")
		}
		return nil, lookupTranscript(ctx, id, e), nil
	})
}

// lookupVideo fetches one record behind the result cache. Failures are
// reported in the output and never cached.
func lookupVideo(ctx context.Context, id string, e Enricher) engine.VideoOutput {
	cacheKey := engine.CacheKey("video", id)
	if out, ok := engine.CacheLoadJSON[engine.VideoOutput](ctx, cacheKey); ok {
		return out
	}

	var out engine.VideoOutput
	_ = engine.TrackOperation(ctx, "video_info", slowEnrichThreshold, func(ctx context.Context) error {
		rec, err := e.Video(ctx, id)
		if err != nil {
			out = engine.VideoOutput{Status: engine.StatusError, Error: err.Error()}
			return err
		}
		out = engine.VideoOutput{Status: engine.StatusSuccess, Video: &rec}
		return nil
	})
	if out.Status == engine.StatusSuccess {
		engine.CacheStoreJSON(ctx, cacheKey, out)
	}
	slog.Info("video_info: done", slog.String("id", id), slog.String("status", out.Status))
	return out
}

func lookupTranscript(ctx context.Context, id string, e Enricher) engine.TranscriptOutput {
	var text string
	_ = engine.TrackOperation(ctx, "transcript", slowEnrichThreshold, func(ctx context.Context) error {
		text = e.Transcript(ctx, id)
		return nil
	})
	return engine.TranscriptOutput{Status: engine.StatusSuccess, VideoID: id, Transcript: text}
}

// runEnrich is shared by the MCP tools and the REST handlers.
func runEnrich(ctx context.Context, mode, term string, limit int, hashtag bool, e Enricher) engine.VideosOutput {
	var out engine.VideosOutput
	_ = engine.TrackOperation(ctx, mode, slowEnrichThreshold, func(ctx context.Context) error {
		out = toolutil.CachedVideos(ctx, mode, term, limit, hashtag, e.Enrich)
		return nil
	})
	slog.Info(mode+": done", slog.String("term", term), slog.Int("limit", limit), slog.Int("count", out.Count))
	return out
}
