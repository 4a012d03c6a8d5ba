package shorts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_shorts/internal/engine"
)

// Preference is an ordered list of language codes.
// The first language with an available track wins, not the best match.
type Preference []string

// Select picks a track by preference order. Within one language a manually
// created track is preferred over an auto-generated one.
func (p Preference) Select(tracks []engine.TranscriptTrack) (engine.TranscriptTrack, bool) {
	for _, lang := range p {
		var generated *engine.TranscriptTrack
		for i, t := range tracks {
			if !strings.EqualFold(t.LanguageCode, lang) {
				continue
			}
			if !t.Generated() {
				return t, true
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}
		if generated != nil {
			return *generated, true
		}
	}
	return engine.TranscriptTrack{}, false
}

// TranscriptSource lists and fetches caption tracks for a video.
type TranscriptSource interface {
	List(ctx context.Context, videoID string) ([]engine.TranscriptTrack, error)
	Fetch(ctx context.Context, track engine.TranscriptTrack) ([]engine.TranscriptSegment, error)
}

var (
	errNoSource   = errors.New("no transcript source")
	errNoLanguage = errors.New("no track in preferred languages")
	errNoSpeech   = errors.New("transcript has no text")
)

// TranscriptResolver turns a video ID into plain transcript text.
type TranscriptResolver struct {
	source TranscriptSource
}

// NewTranscriptResolver creates a resolver over src. A nil src always resolves to the sentinel.
func NewTranscriptResolver(src TranscriptSource) *TranscriptResolver {
	return &TranscriptResolver{source: src}
}

// Resolve returns the transcript text for videoID, or engine.NoSpeech on any
// failure. It never returns an error and never panics.
func (r *TranscriptResolver) Resolve(ctx context.Context, videoID string, pref Preference) (text string) {
	engine.IncrTranscriptRequests()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("shorts: transcript source panicked", slog.String("id", videoID), slog.Any("panic", rec))
			engine.IncrTranscriptMisses()
			text = engine.NoSpeech
		}
	}()

	text, err := r.resolve(ctx, videoID, pref)
	if err != nil {
		slog.Debug("shorts: transcript unavailable", slog.String("id", videoID), slog.Any("error", err))
		engine.IncrTranscriptMisses()
		return engine.NoSpeech
	}
	return text
}

func (r *TranscriptResolver) resolve(ctx context.Context, videoID string, pref Preference) (string, error) {
	if r == nil || r.source == nil {
		return "", errNoSource
	}
	tracks, err := r.source.List(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("list: %w", err)
	}
	track, ok := pref.Select(tracks)
	if !ok {
		return "", fmt.Errorf("%w %v", errNoLanguage, []string(pref))
	}
	segments, err := r.source.Fetch(ctx, track)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", track.LanguageCode, err)
	}
	text := JoinSegments(segments)
	if text == "" {
		return "", errNoSpeech
	}
	return text, nil
}

// JoinSegments concatenates segment texts with single spaces in source order.
// Blank segments are skipped.
func JoinSegments(segments []engine.TranscriptSegment) string {
	var sb strings.Builder
	for _, s := range segments {
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
	}
	return sb.String()
}
