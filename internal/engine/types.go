package engine

// Sentinel values standing in for failed or missing extractions.
const (
	UnknownTitle     = "Unknown Title"
	UnknownChannel   = "Unknown Channel"
	NotAvailable     = "N/A"
	NoSpeech         = "No speech or disabled by owner."
	ShortsURLBase    = "https://www.youtube.com/shorts/"
	thumbnailURLBase = "https://i.ytimg.com/vi/"
)

// VideoRecord is the uniform output unit: one per discovered identifier.
// Every field holds either extracted data or its sentinel; never empty.
type VideoRecord struct {
	ID          string `json:"video_id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	ChannelName string `json:"channel_name"`
	Views       string `json:"views"`
	PublishDate string `json:"publish_date"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"full_description"`
	Transcript  string `json:"transcript"`
}

// DefaultRecord returns the fully defaulted record for id.
// It is what a video becomes when its detail page cannot be fetched.
func DefaultRecord(id string) VideoRecord {
	return VideoRecord{
		ID:          id,
		URL:         ShortsURL(id),
		Title:       UnknownTitle,
		ChannelName: UnknownChannel,
		Views:       NotAvailable,
		PublishDate: NotAvailable,
		Thumbnail:   ThumbnailURL(id),
		Description: NotAvailable,
		Transcript:  NotAvailable,
	}
}

// ShortsURL is the canonical public URL for a short.
func ShortsURL(id string) string { return ShortsURLBase + id }

// ThumbnailURL derives the max-resolution thumbnail without a network call.
func ThumbnailURL(id string) string { return thumbnailURLBase + id + "/maxresdefault.jpg" }

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// VideosOutput is the response shape shared by the REST and MCP surfaces.
type VideosOutput struct {
	Status string        `json:"status"`
	Count  int           `json:"count"`
	Videos []VideoRecord `json:"videos"`
	Error  string        `json:"error,omitempty"`
}

// VideoOutput is the response shape of a single-video lookup.
type VideoOutput struct {
	Status string       `json:"status"`
	Video  *VideoRecord `json:"video,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// TranscriptOutput is the response shape of a transcript lookup.
type TranscriptOutput struct {
	Status     string `json:"status"`
	VideoID    string `json:"video_id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

// --- Transcript types ---

// TranscriptTrack is one available caption track for a video.
type TranscriptTrack struct {
	LanguageCode string `json:"language_code"`
	Name         string `json:"name,omitempty"`
	Kind         string `json:"kind,omitempty"` // "asr" = auto-generated
	BaseURL      string `json:"-"`
}

// Generated reports whether the track was produced by speech recognition.
func (t TranscriptTrack) Generated() bool { return t.Kind == "asr" }

// TranscriptSegment is one timed caption line. Start and Duration are seconds.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}
