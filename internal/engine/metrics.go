package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	FetchRequests      atomic.Int64
	FetchErrors        atomic.Int64
	DiscoveryRequests  atomic.Int64
	DiscoveryEmpty     atomic.Int64
	DetailRequests     atomic.Int64
	DetailErrors       atomic.Int64
	DescriptionMisses  atomic.Int64
	TranscriptRequests atomic.Int64
	TranscriptMisses   atomic.Int64
	EnrichCalls        atomic.Int64
	RecordsDropped     atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"fetch_requests", "fetch_errors",
	"discovery_requests", "discovery_empty",
	"detail_requests", "detail_errors",
	"description_misses",
	"transcript_requests", "transcript_misses",
	"enrich_calls", "records_dropped",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"fetch_requests":      metrics.FetchRequests.Load(),
		"fetch_errors":        metrics.FetchErrors.Load(),
		"discovery_requests":  metrics.DiscoveryRequests.Load(),
		"discovery_empty":     metrics.DiscoveryEmpty.Load(),
		"detail_requests":     metrics.DetailRequests.Load(),
		"detail_errors":       metrics.DetailErrors.Load(),
		"description_misses":  metrics.DescriptionMisses.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"transcript_misses":   metrics.TranscriptMisses.Load(),
		"enrich_calls":        metrics.EnrichCalls.Load(),
		"records_dropped":     metrics.RecordsDropped.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// RegisterCollectors exposes every counter to Prometheus as go_shorts_<key>_total.
// The atomic counters stay the single source of truth.
func RegisterCollectors(reg prometheus.Registerer) error {
	for _, k := range metricKeys {
		key := k
		c := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "go_shorts",
			Name:      key + "_total",
			Help:      "Engine counter " + strings.ReplaceAll(key, "_", " ") + ".",
		}, func() float64 {
			return float64(GetMetrics()[key])
		})
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register %s: %w", key, err)
		}
	}
	return nil
}

// Incrementors for the shorts sub-package.
func IncrDiscoveryRequests()  { metrics.DiscoveryRequests.Add(1) }
func IncrDiscoveryEmpty()     { metrics.DiscoveryEmpty.Add(1) }
func IncrDetailRequests()     { metrics.DetailRequests.Add(1) }
func IncrDetailErrors()       { metrics.DetailErrors.Add(1) }
func IncrDescriptionMisses()  { metrics.DescriptionMisses.Add(1) }
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptMisses()   { metrics.TranscriptMisses.Add(1) }
func IncrEnrichCalls()        { metrics.EnrichCalls.Add(1) }
func AddRecordsDropped(n int) { metrics.RecordsDropped.Add(int64(n)) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
