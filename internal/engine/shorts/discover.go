package shorts

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/anatolykoptev/go_shorts/internal/engine"
)

// shortsSearchFilter is the search "sp" parameter selecting short-form results.
const shortsSearchFilter = "EgIQCQ%3D%3D"

var videoIDRe = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)

// Discoverer finds video IDs on a single listing page.
type Discoverer struct {
	getter   engine.Getter
	baseURL  string
	headers  map[string]string
	timeout  time.Duration
	maxLimit int
}

// NewDiscoverer creates a Discoverer from engine configuration.
func NewDiscoverer(cfg engine.Config, getter engine.Getter) *Discoverer {
	cfg = cfg.WithDefaults()
	return &Discoverer{
		getter:   getter,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		headers:  engine.BrowserHeaders(),
		timeout:  cfg.DiscoveryTimeout,
		maxLimit: cfg.MaxLimit,
	}
}

// ListingURL builds the hashtag page or the short-form search URL for term.
func (d *Discoverer) ListingURL(term string, hashtag bool) string {
	term = strings.TrimSpace(term)
	if hashtag {
		tag := strings.TrimPrefix(term, "#")
		return d.baseURL + "/hashtag/" + url.PathEscape(tag) + "/shorts"
	}
	return d.baseURL + "/results?search_query=" + url.QueryEscape(term) + "&sp=" + shortsSearchFilter
}

// Discover fetches the listing page for term and returns up to limit unique IDs
// in first-seen order. Any failure yields an empty result, never an error.
func (d *Discoverer) Discover(ctx context.Context, term string, hashtag bool, limit int) []string {
	term = strings.TrimSpace(term)
	if hashtag {
		term = strings.TrimSpace(strings.TrimPrefix(term, "#"))
	}
	if term == "" || limit <= 0 {
		return []string{}
	}
	if limit > d.maxLimit {
		limit = d.maxLimit
	}

	engine.IncrDiscoveryRequests()
	listingURL := d.ListingURL(term, hashtag)
	slog.Info("shorts: scanning listing", slog.String("url", listingURL), slog.Int("limit", limit))

	status, body, err := d.getter.Get(ctx, listingURL, d.headers, d.timeout)
	if err != nil {
		engine.IncrDiscoveryEmpty()
		slog.Warn("shorts: listing fetch failed", slog.String("url", listingURL), slog.Any("error", err))
		return []string{}
	}
	if !engine.IsSuccess(status) {
		engine.IncrDiscoveryEmpty()
		slog.Warn("shorts: listing returned non-success status", slog.String("url", listingURL), slog.Int("status", status))
		return []string{}
	}

	ids := ExtractIDs(body, limit)
	if len(ids) == 0 {
		engine.IncrDiscoveryEmpty()
		slog.Debug("shorts: no video IDs on listing page", slog.String("url", listingURL))
	}
	return ids
}

// ExtractIDs scans body for "videoId" keys and returns unique IDs in
// document order, truncated to limit.
func ExtractIDs(body string, limit int) []string {
	ids := []string{}
	if limit <= 0 {
		return ids
	}
	seen := make(map[string]struct{})
	for _, m := range videoIDRe.FindAllStringSubmatch(body, -1) {
		id := m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids
}
