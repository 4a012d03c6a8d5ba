package shortserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anatolykoptev/go_shorts/internal/engine"
	"github.com/anatolykoptev/go_shorts/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enrichCall struct {
	term    string
	hashtag bool
	limit   int
}

const stubID = "abcdefghijk"

type stubEnricher struct {
	mu       sync.Mutex
	calls    []enrichCall
	videoIDs []string
}

func (s *stubEnricher) Enrich(_ context.Context, term string, hashtag bool, limit int) ([]engine.VideoRecord, bool) {
	s.mu.Lock()
	s.calls = append(s.calls, enrichCall{term, hashtag, limit})
	s.mu.Unlock()
	if term == "empty" {
		return []engine.VideoRecord{}, true
	}
	return []engine.VideoRecord{engine.DefaultRecord(stubID)}, true
}

func (s *stubEnricher) Video(_ context.Context, id string) (engine.VideoRecord, error) {
	s.mu.Lock()
	s.videoIDs = append(s.videoIDs, id)
	s.mu.Unlock()
	if id != stubID {
		return engine.VideoRecord{}, fmt.Errorf("detail %s: HTTP 404", id)
	}
	rec := engine.DefaultRecord(id)
	rec.Title = "Stub Title"
	return rec, nil
}

func (s *stubEnricher) Transcript(_ context.Context, id string) string {
	if id != stubID {
		return engine.NoSpeech
	}
	return "hello there"
}

func (s *stubEnricher) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.videoIDs = nil
}

func (s *stubEnricher) recorded() []enrichCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]enrichCall(nil), s.calls...)
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, engine.VideosOutput) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var out engine.VideosOutput
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestRESTHandlers(t *testing.T) {
	engine.InitCache("", 0, 0, 0)
	stub := &stubEnricher{}
	h := NewRouter(stub, 50, nil)

	tests := []struct {
		name       string
		target     string
		wantStatus string
		wantCount  int
		wantCall   *enrichCall
	}{
		{"fetch default limit", "/fetch?hashtag=cats", engine.StatusSuccess, 1, &enrichCall{"cats", true, 10}},
		{"fetch explicit limit", "/fetch?hashtag=%23cats&limit=3", engine.StatusSuccess, 1, &enrichCall{"#cats", true, 3}},
		{"search clamps limit", "/search?query=funny+cats&limit=999", engine.StatusSuccess, 1, &enrichCall{"funny cats", false, 50}},
		{"search no results", "/search?query=empty", engine.StatusSuccess, 0, &enrichCall{"empty", false, 10}},
		{"fetch missing hashtag", "/fetch", engine.StatusError, 0, nil},
		{"search blank query", "/search?query=%20", engine.StatusError, 0, nil},
		{"hashtag default limit", "/ysp/hashtag?tag=cats", engine.StatusSuccess, 1, &enrichCall{"cats", true, 5}},
		{"hashtag clamps limit", "/ysp/hashtag?tag=cats&limit=80", engine.StatusSuccess, 1, &enrichCall{"cats", true, 50}},
		{"hashtag missing tag", "/ysp/hashtag?tag=%23", engine.StatusError, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub.reset()
			rec, out := get(t, h, tt.target)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantCount, out.Count)
			assert.NotNil(t, out.Videos)
			if tt.wantCall == nil {
				assert.Empty(t, stub.calls)
				assert.NotEmpty(t, out.Error)
				return
			}
			require.Len(t, stub.calls, 1)
			assert.Equal(t, *tt.wantCall, stub.calls[0])
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(&stubEnricher{}, 50, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, engine.RegisterCollectors(reg))

	h := NewRouter(&stubEnricher{}, 50, reg)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_shorts_enrich_calls_total")

	rec = httptest.NewRecorder()
	NewRouter(&stubEnricher{}, 50, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVideosOutputWireShape(t *testing.T) {
	engine.InitCache("", 0, 0, 0)
	rec := httptest.NewRecorder()
	NewRouter(&stubEnricher{}, 50, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?query=x", nil))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "success", raw["status"])
	assert.NotContains(t, raw, "error")
	videos := raw["videos"].([]any)
	require.Len(t, videos, 1)
	v := videos[0].(map[string]any)
	for _, k := range []string{"video_id", "url", "title", "channel_name", "views", "publish_date", "thumbnail", "full_description", "transcript"} {
		assert.Contains(t, v, k)
	}
}

func TestVideoInfoRoute(t *testing.T) {
	engine.InitCache("", 0, 0, 0)
	stub := &stubEnricher{}
	h := NewRouter(stub, 50, nil)

	tests := []struct {
		name       string
		target     string
		wantStatus string
		wantTitle  string
	}{
		{"bare id", "/ysp/video/info?url_or_id=" + stubID, engine.StatusSuccess, "Stub Title"},
		{"shorts url", "/ysp/video/info?url_or_id=https://www.youtube.com/shorts/" + stubID, engine.StatusSuccess, "Stub Title"},
		{"upstream failure", "/ysp/video/info?url_or_id=zzzzzzzzzzz", engine.StatusError, ""},
		{"not an id", "/ysp/video/info?url_or_id=nope", engine.StatusError, ""},
		{"missing", "/ysp/video/info", engine.StatusError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, http.StatusOK, rec.Code)

			var out engine.VideoOutput
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, tt.wantStatus, out.Status)
			if tt.wantStatus == engine.StatusError {
				assert.Nil(t, out.Video)
				assert.NotEmpty(t, out.Error)
				return
			}
			require.NotNil(t, out.Video)
			assert.Equal(t, stubID, out.Video.ID)
			assert.Equal(t, tt.wantTitle, out.Video.Title)
		})
	}
}

func TestVideoInfoCachesOnlySuccess(t *testing.T) {
	engine.InitCache("", time.Minute, 100, time.Minute)
	defer engine.InitCache("", 0, 0, 0)
	stub := &stubEnricher{}
	h := NewRouter(stub, 50, nil)

	for range 2 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ysp/video/info?url_or_id="+stubID, nil))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ysp/video/info?url_or_id=zzzzzzzzzzz", nil))
	}
	assert.Equal(t, []string{stubID, "zzzzzzzzzzz", "zzzzzzzzzzz"}, stub.videoIDs)
}

func TestTranscriptRoute(t *testing.T) {
	h := NewRouter(&stubEnricher{}, 50, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ysp/transcript?video_url=https://youtu.be/"+stubID, nil))
	assert.JSONEq(t, `{"status":"success","video_id":"abcdefghijk","transcript":"hello there"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ysp/transcript?video_url=x", nil))
	var out engine.TranscriptOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, engine.StatusError, out.Status)
	assert.Contains(t, out.Error, "video_url")
}

// connectTools serves the registered tools over an in-memory transport and
// returns a connected client session.
func connectTools(t *testing.T, e Enricher, maxLimit int) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "go_shorts_test", Version: "test"}, nil)
	RegisterTools(server, e, maxLimit)

	st, ct := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "go_shorts_client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// decodeStructured re-encodes a tool's structured content into v.
func decodeStructured(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	require.NotNil(t, res.StructuredContent)
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestToolsListed(t *testing.T) {
	cs := connectTools(t, &stubEnricher{}, 50)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"shorts_fetch", "shorts_search", "shorts_video_info", "shorts_transcript"}, names)
	assert.Len(t, names, ToolCount)
}

func TestVideoToolsOverMCP(t *testing.T) {
	engine.InitCache("", 0, 0, 0)
	stub := &stubEnricher{}
	cs := connectTools(t, stub, 50)
	ctx := context.Background()

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		wantErr  bool
		wantCall *enrichCall
		wantN    int
	}{
		{"fetch default limit", "shorts_fetch", map[string]any{"hashtag": "#cats"}, false, &enrichCall{"#cats", true, toolutil.DefaultLimit}, 1},
		{"fetch clamps limit", "shorts_fetch", map[string]any{"hashtag": "cats", "limit": 500}, false, &enrichCall{"cats", true, 50}, 1},
		{"fetch blank hashtag", "shorts_fetch", map[string]any{"hashtag": "  "}, true, nil, 0},
		{"fetch bare hash", "shorts_fetch", map[string]any{"hashtag": "#"}, true, nil, 0},
		{"search explicit limit", "shorts_search", map[string]any{"query": "funny cats", "limit": 3}, false, &enrichCall{"funny cats", false, 3}, 1},
		{"search no results", "shorts_search", map[string]any{"query": "empty"}, false, &enrichCall{"empty", false, toolutil.DefaultLimit}, 0},
		{"search blank query", "shorts_search", map[string]any{"query": " "}, true, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub.reset()
			res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: tt.tool, Arguments: tt.args})
			if tt.wantErr {
				assert.True(t, err != nil || res.IsError, "expected a tool error")
				assert.Empty(t, stub.recorded())
				return
			}
			require.NoError(t, err)
			require.False(t, res.IsError)

			var out engine.VideosOutput
			decodeStructured(t, res, &out)
			assert.Equal(t, engine.StatusSuccess, out.Status)
			assert.Equal(t, tt.wantN, out.Count)
			assert.Len(t, out.Videos, tt.wantN)
			assert.Empty(t, out.Error)

			calls := stub.recorded()
			require.Len(t, calls, 1)
			assert.Equal(t, *tt.wantCall, calls[0])
		})
	}
}

func TestVideoInfoToolOverMCP(t *testing.T) {
	engine.InitCache("", 0, 0, 0)
	cs := connectTools(t, &stubEnricher{}, 50)
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "shorts_video_info",
		Arguments: map[string]any{"url_or_id": "https://www.youtube.com/watch?v=" + stubID},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	var out engine.VideoOutput
	decodeStructured(t, res, &out)
	assert.Equal(t, engine.StatusSuccess, out.Status)
	require.NotNil(t, out.Video)
	assert.Equal(t, "Stub Title", out.Video.Title)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "shorts_video_info",
		Arguments: map[string]any{"url_or_id": "not a video"},
	})
	assert.True(t, err != nil || res.IsError)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "shorts_transcript",
		Arguments: map[string]any{"video": stubID},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	var tr engine.TranscriptOutput
	decodeStructured(t, res, &tr)
	assert.Equal(t, engine.TranscriptOutput{Status: engine.StatusSuccess, VideoID: stubID, Transcript: "hello there"}, tr)
}
