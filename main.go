// go_shorts: short-form video metadata MCP server and REST API.
//
// Discovers shorts for a hashtag or search query and enriches each with
// title, channel, views, publish date, description and transcript.
// Exposes MCP tools shorts_fetch and shorts_search, plus REST /fetch and /search.
package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_shorts/internal/engine"
	"github.com/anatolykoptev/go_shorts/internal/engine/shorts"
	"github.com/anatolykoptev/go_shorts/internal/engine/sources"
	"github.com/anatolykoptev/go_shorts/internal/shortserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8892")
	apiPort = env.Str("API_PORT", "7861")
)

func main() {
	cfg := loadConfig()
	enricher := initEngine(cfg)

	slog.Info("starting go_shorts",
		slog.String("mcp_port", mcpPort),
		slog.String("api_port", apiPort),
		slog.Int("workers", cfg.EnrichWorkers),
	)

	reg := prometheus.NewRegistry()
	if err := engine.RegisterCollectors(reg); err != nil {
		slog.Warn("prometheus collectors not registered", slog.Any("error", err))
	}

	api := shortserver.NewAPIServer(apiPort,
		shortserver.NewRouter(enricher, cfg.MaxLimit, reg),
		cfg.EnrichTimeout+30*time.Second)
	go func() {
		slog.Info("api: listening", slog.String("addr", api.Addr))
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server failed", slog.Any("error", err))
		}
	}()
	defer shortserver.Shutdown(api)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_shorts",
		Version: version,
	}, nil)

	shortserver.RegisterTools(server, enricher, cfg.MaxLimit)
	slog.Info("tools registered", slog.Int("count", shortserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_shorts",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: cfg.EnrichTimeout + 30*time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	c := engine.Config{
		BaseURL:              env.Str("YOUTUBE_BASE_URL", engine.DefaultBaseURL),
		DiscoveryTimeout:     env.Duration("DISCOVERY_TIMEOUT", 15*time.Second),
		DetailTimeout:        env.Duration("DETAIL_TIMEOUT", 12*time.Second),
		RequestDelay:         env.Duration("REQUEST_DELAY", 300*time.Millisecond),
		EnrichWorkers:        env.Int("ENRICH_WORKERS", 1),
		EnrichTimeout:        env.Duration("ENRICH_TIMEOUT", 120*time.Second),
		MaxLimit:             env.Int("MAX_LIMIT", 50),
		TranscriptLangs:      env.List("TRANSCRIPT_LANGS", "ar,en"),
		CacheTTL:             env.Duration("CACHE_TTL", 0),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		HTTPClient:           engine.NewHTTPClient(),
	}
	return c.WithDefaults()
}

func initEngine(c engine.Config) *shorts.Enricher {
	engine.InitCache(env.Str("REDIS_URL", ""), c.CacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)

	captions := sources.NewYouTubeCaptions(c.HTTPClient, c.BaseURL, c.DetailTimeout)
	slog.Info("transcript source ready", slog.Any("languages", c.TranscriptLangs))

	return shorts.New(c, engine.NewHTTPFetcher(c.HTTPClient), captions)
}
