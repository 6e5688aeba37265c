package result

import "encoding/json"

// Result is a single search hit projected to its public fields.
type Result struct {
	title   string
	videoID string
}

// New creates a search result.
func New(title, videoID string) Result {
	return Result{title: title, videoID: videoID}
}

// Title returns the video title.
func (r *Result) Title() string { return r.title }

// VideoID returns the video identifier.
func (r *Result) VideoID() string { return r.videoID }

type resultJSON struct {
	Title   string `json:"title"`
	VideoID string `json:"video_id"`
}

// MarshalJSON encodes the result as {"title": ..., "video_id": ...}.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{Title: r.title, VideoID: r.videoID}) //nolint:wrapcheck // plain struct
}
