package models

import (
	"fmt"
	"time"
)

// Clip is one library row: a source video asset plus its probed
// technical metadata and the curation placeholder fields filled in
// later by the annotator or by hand.
type Clip struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Duration    float64   `json:"duration"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	FrameRate   float64   `json:"frame_rate"`
	Codec       string    `json:"codec"`
	Checksum    string    `json:"checksum"`
	Tags        string    `json:"tags"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Resolution renders the clip's dimensions as "WxH", or "" when unknown.
func (c Clip) Resolution() string {
	if c.Width <= 0 || c.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// Match is a single similarity search hit.
type Match struct {
	ID         string  `json:"id"`
	Similarity float32 `json:"similarity"`
}
