package shorts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_shorts/internal/engine"
)

// fakeResponse is one canned upstream answer.
type fakeResponse struct {
	status int
	body   string
	err    error
	delay  time.Duration
}

// fakeGetter serves canned responses keyed by URL and records every call.
type fakeGetter struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []string
	headers   []map[string]string
}

func newFakeGetter() *fakeGetter {
	return &fakeGetter{responses: make(map[string]fakeResponse)}
}

func (f *fakeGetter) set(url string, r fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = r
}

func (f *fakeGetter) Get(ctx context.Context, url string, headers map[string]string, _ time.Duration) (int, string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.headers = append(f.headers, headers)
	r, ok := f.responses[url]
	f.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return 0, "", ctx.Err()
		}
	}
	if !ok {
		return 0, "", errors.New("connection refused")
	}
	return r.status, r.body, r.err
}

func (f *fakeGetter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeSource is an in-memory TranscriptSource.
type fakeSource struct {
	tracks   map[string][]engine.TranscriptTrack
	segments map[string][]engine.TranscriptSegment // keyed by track BaseURL
	listErr  error
	fetchErr error
	panicOn  string
}

func (s *fakeSource) List(_ context.Context, videoID string) ([]engine.TranscriptTrack, error) {
	if videoID == s.panicOn {
		panic("source exploded")
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.tracks[videoID], nil
}

func (s *fakeSource) Fetch(_ context.Context, track engine.TranscriptTrack) ([]engine.TranscriptSegment, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.segments[track.BaseURL], nil
}

const testBase = "http://upstream.test"

func testID(i int) string { return fmt.Sprintf("vid%08d", i) }

// listingBody renders a listing page mentioning ids in order.
func listingBody(ids ...string) string {
	var sb strings.Builder
	sb.WriteString(`<html><script>var ytInitialData = {"contents":[`)
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `{"reelItemRenderer":{"videoId":"%s"}}`, id)
	}
	sb.WriteString(`]};</script></html>`)
	return sb.String()
}

// detailBody renders a detail page with all primary strategies present.
func detailBody(title, channel, views, date, description string) string {
	data := `{"engagementPanels":[` +
		`{"engagementPanelRenderer":{"targetId":"engagement-panel-comments-section"}},` +
		`{"engagementPanelRenderer":{"targetId":"engagement-panel-structured-description","content":{"structuredDescriptionContentRenderer":{"items":[` +
		`{"videoDescriptionHeaderRenderer":{"description":{"runs":[{"text":"` + description + `"}]}}}` +
		`]}}}}]}`
	return `<html><head>` +
		`<meta name="title" content="` + title + `">` +
		`<title>` + title + ` - YouTube</title>` +
		`</head><body><script>var ytInitialPlayerResponse = {"videoDetails":{"author":"` + channel + `"}};` +
		`var meta = {"ownerName":"` + channel + `","shortViewCountText":{"simpleText":"` + views + `"},"publishDate":"` + date + `"};</script>` +
		`<script>var ytInitialData = ` + data + `;</script></body></html>`
}
