package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	BaseURL              string        // upstream origin, e.g. https://www.youtube.com
	DiscoveryTimeout     time.Duration // listing page GET
	DetailTimeout        time.Duration // per-video detail page GET
	RequestDelay         time.Duration // minimum spacing between detail fetches
	EnrichWorkers        int
	EnrichTimeout        time.Duration // bounds a whole enrich call
	MaxLimit             int
	TranscriptLangs      []string
	CacheTTL             time.Duration // 0 = cache disabled
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client // shared for the process lifetime; nil lets each consumer build its own
}

// DefaultBaseURL is the public upstream origin.
const DefaultBaseURL = "https://www.youtube.com"

// WithDefaults fills zero values with the reference behavior.
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.DiscoveryTimeout <= 0 {
		c.DiscoveryTimeout = 15 * time.Second
	}
	if c.DetailTimeout <= 0 {
		c.DetailTimeout = 12 * time.Second
	}
	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}
	if c.EnrichWorkers <= 0 {
		c.EnrichWorkers = 1
	}
	if c.EnrichTimeout <= 0 {
		c.EnrichTimeout = 2 * time.Minute
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 50
	}
	if len(c.TranscriptLangs) == 0 {
		c.TranscriptLangs = []string{"ar", "en"}
	}
	return c
}
