package model

import "time"

// SongState is the broadcast lifecycle state of a content id.
type SongState string

const (
	StateUnknown   SongState = "unknown"
	StateQueued    SongState = "queued"
	StatePreparing SongState = "preparing"
	StateReady     SongState = "ready"
	StatePlaying   SongState = "playing"
	StateCompleted SongState = "completed"
	StateFailed    SongState = "failed"
)

// Terminal reports whether no further transition is allowed out of s.
func (s SongState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// StatusRecord is the current state of one content id.
type StatusRecord struct {
	ContentID string    `json:"contentId"`
	Title     string    `json:"title"`
	State     SongState `json:"state"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var progress = map[SongState]int{
	StateUnknown:   0,
	StateQueued:    1,
	StatePreparing: 2,
	StateReady:     3,
	StatePlaying:   4,
	StateCompleted: 5,
}

// AtLeast reports whether s has reached target on the success path.
// Failed only satisfies Failed.
func (s SongState) AtLeast(target SongState) bool {
	if s == StateFailed || target == StateFailed {
		return s == target
	}
	return progress[s] >= progress[target]
}
