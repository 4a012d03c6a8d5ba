package shorts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anatolykoptev/go_shorts/internal/engine"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Enricher runs discovery, then per-video extraction and transcript
// resolution, and assembles one VideoRecord per discovered ID.
// Created once per process and shared by all requests.
type Enricher struct {
	discoverer  *Discoverer
	transcripts *TranscriptResolver
	getter      engine.Getter
	limiter     *rate.Limiter // spaces detail fetches across all workers
	baseURL     string
	headers     map[string]string
	languages   Preference
	detailTTL   time.Duration
	workers     int
	timeout     time.Duration
}

// New creates an Enricher. getter serves listing and detail pages;
// src serves caption tracks and may be nil to disable transcripts.
func New(cfg engine.Config, getter engine.Getter, src TranscriptSource) *Enricher {
	cfg = cfg.WithDefaults()
	return &Enricher{
		discoverer:  NewDiscoverer(cfg, getter),
		transcripts: NewTranscriptResolver(src),
		getter:      getter,
		limiter:     newSpacingLimiter(cfg.RequestDelay),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		headers:     engine.BrowserHeaders(),
		languages:   Preference(cfg.TranscriptLangs),
		detailTTL:   cfg.DetailTimeout,
		workers:     cfg.EnrichWorkers,
		timeout:     cfg.EnrichTimeout,
	}
}

// newSpacingLimiter allows one detail fetch per interval; 0 disables spacing.
func newSpacingLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Enrich returns one record per discovered ID, in discovery order.
// Per-video failures produce defaulted records and never abort the batch.
// When the overall deadline expires, videos not yet finished are dropped
// and complete is false.
func (e *Enricher) Enrich(ctx context.Context, term string, hashtag bool, limit int) (records []engine.VideoRecord, complete bool) {
	engine.IncrEnrichCalls()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ids := e.discoverer.Discover(ctx, term, hashtag, limit)
	if len(ids) == 0 {
		return []engine.VideoRecord{}, true
	}

	results := make([]engine.VideoRecord, len(ids))
	done := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, id := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slog.Info("shorts: enriching", slog.String("id", id), slog.Int("position", i+1), slog.Int("total", len(ids)))
			rec, ok := e.enrichOne(ctx, id)
			if !ok || ctx.Err() != nil {
				return nil
			}
			results[i] = rec
			done[i] = true
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	out := make([]engine.VideoRecord, 0, len(ids))
	for i := range ids {
		if done[i] {
			out = append(out, results[i])
		}
	}
	dropped := len(ids) - len(out)
	if dropped > 0 {
		engine.AddRecordsDropped(dropped)
		slog.Warn("shorts: enrich deadline reached, dropping unfinished videos",
			slog.Int("dropped", dropped), slog.Int("returned", len(out)))
	}
	return out, dropped == 0
}

// Video builds the full record for one ID. Unlike Enrich, an unreachable
// detail page is reported as an error instead of a defaulted record.
func (e *Enricher) Video(ctx context.Context, id string) (engine.VideoRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.limiter.Wait(ctx); err != nil {
		return engine.VideoRecord{}, fmt.Errorf("wait: %w", err)
	}
	body, err := e.fetchDetail(ctx, id)
	if err != nil {
		return engine.VideoRecord{}, err
	}
	return e.assemble(ctx, id, body), nil
}

// Transcript resolves the spoken text of one ID with the process language policy.
func (e *Enricher) Transcript(ctx context.Context, id string) string {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.transcripts.Resolve(ctx, id, e.languages)
}

// DetailURL is the per-video page the fields are extracted from.
func (e *Enricher) DetailURL(id string) string {
	return e.baseURL + "/shorts/" + id
}

// enrichOne builds the record for a single ID. ok is false only when the
// deadline prevented the detail fetch from starting.
func (e *Enricher) enrichOne(ctx context.Context, id string) (engine.VideoRecord, bool) {
	if err := e.limiter.Wait(ctx); err != nil {
		return engine.DefaultRecord(id), false
	}
	body, err := e.fetchDetail(ctx, id)
	if err != nil {
		slog.Warn("shorts: detail page unavailable, using defaults",
			slog.String("id", id), slog.Any("error", err))
		return engine.DefaultRecord(id), true
	}
	return e.assemble(ctx, id, body), true
}

func (e *Enricher) fetchDetail(ctx context.Context, id string) (string, error) {
	engine.IncrDetailRequests()
	status, body, err := e.getter.Get(ctx, e.DetailURL(id), e.headers, e.detailTTL)
	if err != nil {
		engine.IncrDetailErrors()
		return "", fmt.Errorf("detail %s: %w", id, err)
	}
	if !engine.IsSuccess(status) {
		engine.IncrDetailErrors()
		return "", fmt.Errorf("detail %s: HTTP %d", id, status)
	}
	return body, nil
}

// assemble extracts every field from a fetched detail page.
func (e *Enricher) assemble(ctx context.Context, id, body string) engine.VideoRecord {
	rec := engine.DefaultRecord(id)

	fields := ExtractFields(body)
	rec.Title = fields.Title
	rec.ChannelName = fields.Channel
	rec.Views = fields.Views
	rec.PublishDate = fields.PublishDate

	if desc, ok := ExtractDescription(body); ok {
		rec.Description = desc
	} else {
		engine.IncrDescriptionMisses()
		rec.Description = rec.Title
	}

	rec.Transcript = e.transcripts.Resolve(ctx, id, e.languages)
	slog.Debug("shorts: enriched",
		slog.String("id", id),
		slog.String("title", engine.TruncateRunes(rec.Title, 60, "…")),
		slog.Int("transcript_runes", utf8.RuneCountInString(rec.Transcript)))
	return rec
}
