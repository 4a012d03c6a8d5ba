package shortserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go_shorts/internal/engine"
	"github.com/anatolykoptev/go_shorts/internal/engine/shorts"
	"github.com/anatolykoptev/go_shorts/internal/toolutil"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// slowEnrichThreshold marks an enrich call as slow in the logs.
	slowEnrichThreshold = 60 * time.Second
	hashtagDefaultLimit = 5
)

// NewRouter builds the REST surface. gatherer may be nil to omit /metrics.
func NewRouter(e Enricher, maxLimit int, gatherer prometheus.Gatherer) *mux.Router {
	h := &handlers{enricher: e, maxLimit: maxLimit}

	r := mux.NewRouter()
	r.HandleFunc("/fetch", h.fetch).Methods(http.MethodGet)
	r.HandleFunc("/search", h.search).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	ysp := r.PathPrefix("/ysp").Subrouter()
	ysp.HandleFunc("/video/info", h.videoInfo).Methods(http.MethodGet)
	ysp.HandleFunc("/transcript", h.transcript).Methods(http.MethodGet)
	ysp.HandleFunc("/hashtag", h.hashtag).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// NewAPIServer wraps the router in an http.Server listening on port.
// writeTimeout must cover a full enrich call.
func NewAPIServer(port string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}
}

// Shutdown stops srv, waiting up to 15s for in-flight requests.
func Shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("api: shutdown", slog.Any("error", err))
	}
}

type handlers struct {
	enricher Enricher
	maxLimit int
}

func (h *handlers) fetch(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimSpace(r.URL.Query().Get("hashtag"))
	if strings.TrimPrefix(tag, "#") == "" {
		writeJSON(w, errorOutput("hashtag parameter is required"))
		return
	}
	limit := toolutil.ParseLimit(r.URL.Query().Get("limit"), h.maxLimit)
	writeJSON(w, runEnrich(r.Context(), "shorts_fetch", tag, limit, true, h.enricher))
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, errorOutput("query parameter is required"))
		return
	}
	limit := toolutil.ParseLimit(r.URL.Query().Get("limit"), h.maxLimit)
	writeJSON(w, runEnrich(r.Context(), "shorts_search", query, limit, false, h.enricher))
}

func (h *handlers) videoInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := shorts.ParseVideoID(r.URL.Query().Get("url_or_id"))
	if !ok {
		writeJSON(w, engine.VideoOutput{Status: engine.StatusError, Error: "url_or_id must be a video ID or URL"})
		return
	}
	writeJSON(w, lookupVideo(r.Context(), id, h.enricher))
}

func (h *handlers) transcript(w http.ResponseWriter, r *http.Request) {
	id, ok := shorts.ParseVideoID(r.URL.Query().Get("video_url"))
	if !ok {
		writeJSON(w, engine.TranscriptOutput{Status: engine.StatusError, Error: "video_url must be a video ID or URL"})
		return
	}
	writeJSON(w, lookupTranscript(r.Context(), id, h.enricher))
}

// hashtag is /fetch with a smaller default limit.
func (h *handlers) hashtag(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimSpace(r.URL.Query().Get("tag"))
	if strings.TrimPrefix(tag, "#") == "" {
		writeJSON(w, errorOutput("tag parameter is required"))
		return
	}
	limit := toolutil.ParseLimitOr(r.URL.Query().Get("limit"), hashtagDefaultLimit, h.maxLimit)
	writeJSON(w, runEnrich(r.Context(), "shorts_fetch", tag, limit, true, h.enricher))
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func errorOutput(msg string) engine.VideosOutput {
	return engine.VideosOutput{
		Status: engine.StatusError,
		Videos: []engine.VideoRecord{},
		Error:  msg,
	}
}

// writeJSON always answers 200; scraping outcomes are reported in the body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("api: encode response", slog.Any("error", err))
	}
}
