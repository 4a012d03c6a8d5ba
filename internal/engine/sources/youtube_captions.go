package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_shorts/internal/engine"
)

// YouTube caption tracks as a transcript source.
// List:  watch page ytInitialPlayerResponse → captionTracks
//        fallback: ANDROID Innertube /player → captionTracks
// Fetch: track baseUrl → timedtext XML → segments

const (
	ytAndroidVersion              = "20.10.38"
	ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "
	maxWatchPageBytes             = 6 * 1024 * 1024
	maxTimedTextBytes             = 512 * 1024
	defaultCaptionTimeout         = 12 * time.Second
)

// --- ANDROID client types (/player endpoint) ---

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResp struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
	Name         struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
}

func (c captionTrack) displayName() string {
	if c.Name.SimpleText != "" {
		return c.Name.SimpleText
	}
	var sb strings.Builder
	for _, r := range c.Name.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// --- Timedtext XML types ---

type timedText struct {
	Lines []timedLine `xml:"text"`
}

type timedLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Inner string `xml:",innerxml"`
}

// YouTubeCaptions implements the transcript source over YouTube caption tracks.
type YouTubeCaptions struct {
	client  *http.Client
	baseURL string
	timeout time.Duration // bounds each upstream call, retries included
}

// NewYouTubeCaptions creates a caption source. client is the process-wide
// HTTP client; baseURL is the upstream origin; timeout bounds each of the
// watch page, player and timedtext calls (<= 0 → 12s).
func NewYouTubeCaptions(client *http.Client, baseURL string, timeout time.Duration) *YouTubeCaptions {
	if client == nil {
		client = engine.NewHTTPClient()
	}
	if baseURL == "" {
		baseURL = engine.DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultCaptionTimeout
	}
	return &YouTubeCaptions{client: client, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// List returns the usable caption tracks for videoID.
func (y *YouTubeCaptions) List(ctx context.Context, videoID string) ([]engine.TranscriptTrack, error) {
	tracks, err := y.listFromWatchPage(ctx, videoID)
	if err == nil {
		return tracks, nil
	}
	slog.Debug("youtube: watch page tracks failed, trying player",
		slog.String("id", videoID), slog.Any("err", err))

	tracks, perr := y.listFromPlayer(ctx, videoID)
	if perr != nil {
		return nil, fmt.Errorf("watch page: %v; player: %w", err, perr)
	}
	return tracks, nil
}

// Fetch downloads and parses the timedtext XML of track.
func (y *YouTubeCaptions) Fetch(ctx context.Context, track engine.TranscriptTrack) ([]engine.TranscriptSegment, error) {
	if track.BaseURL == "" {
		return nil, errors.New("track has no URL")
	}
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		return y.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedTextBytes))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

// parseTimedText converts timedtext XML into segments in document order.
func parseTimedText(body []byte) ([]engine.TranscriptSegment, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty timedtext")
	}
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}
	segments := make([]engine.TranscriptSegment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		segments = append(segments, engine.TranscriptSegment{
			Text:     engine.PlainText(line.Inner),
			Start:    parseSeconds(line.Start),
			Duration: parseSeconds(line.Dur),
		})
	}
	return segments, nil
}

func parseSeconds(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// listFromWatchPage scrapes ytInitialPlayerResponse from the watch page HTML.
func (y *YouTubeCaptions) listFromWatchPage(ctx context.Context, videoID string) ([]engine.TranscriptTrack, error) {
	watchURL := y.baseURL + "/watch?v=" + url.QueryEscape(videoID)
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range engine.DefaultHeaders {
			req.Header.Set(k, v)
		}
		return y.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}
	return tracksFromWatchPage(body)
}

// tracksFromWatchPage extracts caption tracks from watch page HTML.
func tracksFromWatchPage(body []byte) ([]engine.TranscriptTrack, error) {
	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := engine.ExtractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}
	var pr playerResp
	if err := json.Unmarshal(jsonData, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return usableTracks(pr)
}

// listFromPlayer uses the ANDROID Innertube /player endpoint.
// Works from non-blocked (residential/cloud) IP addresses.
func (y *YouTubeCaptions) listFromPlayer(ctx context.Context, videoID string) ([]engine.TranscriptTrack, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	playerURL := y.baseURL + "/youtubei/v1/player?prettyPrint=false"
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, playerURL, bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", engine.UserAgentAndroid)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return y.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("android innertube: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("android innertube HTTP %d", resp.StatusCode)
	}

	var pr playerResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxWatchPageBytes)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return usableTracks(pr)
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// usableTracks converts player captions to tracks, skipping PoToken-only ones.
func usableTracks(pr playerResp) ([]engine.TranscriptTrack, error) {
	if pr.Captions == nil {
		if pr.PlayabilityStatus != nil && pr.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", pr.PlayabilityStatus.Reason)
		}
		return nil, errors.New("no captions in player response")
	}
	raw := pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(raw) == 0 {
		return nil, errors.New("no caption tracks")
	}
	tracks := make([]engine.TranscriptTrack, 0, len(raw))
	for _, t := range raw {
		if t.BaseURL == "" || needsPoToken(t.BaseURL) {
			continue
		}
		tracks = append(tracks, engine.TranscriptTrack{
			LanguageCode: t.LanguageCode,
			Name:         t.displayName(),
			Kind:         t.Kind,
			BaseURL:      t.BaseURL,
		})
	}
	if len(tracks) == 0 {
		return nil, errors.New("all caption tracks require PoToken")
	}
	return tracks, nil
}
