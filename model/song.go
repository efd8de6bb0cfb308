package model

import "time"

// SongRequest is a listener's request for one piece of content.
// It is never modified after EnqueueSong creates it.
type SongRequest struct {
	RequestID     string        `json:"requestId"`
	ContentID     string        `json:"contentId"`
	Title         string        `json:"title"`
	RequesterName string        `json:"requesterName,omitempty"`
	Note          string        `json:"note,omitempty"`
	Duration      time.Duration `json:"duration,omitempty"`
	EnqueuedAt    time.Time     `json:"enqueuedAt"`
}

// PreparedSong is a request whose audio has been acquired to local disk.
type PreparedSong struct {
	SongRequest
	Path     string        `json:"path"`               // absolute artifact path
	Duration time.Duration `json:"duration,omitempty"` // request duration or probed duration
}
