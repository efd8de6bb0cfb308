package status

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"LiveFM/core/events"
	"LiveFM/logger"
	"LiveFM/model"
)

// ErrInvalidTransition is returned when a state change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

var allowed = map[model.SongState][]model.SongState{
	model.StateQueued:    {model.StatePreparing, model.StateFailed},
	model.StatePreparing: {model.StateReady, model.StateFailed},
	model.StateReady:     {model.StatePlaying},
	model.StatePlaying:   {model.StateCompleted},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to model.SongState) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Tracker holds one StatusRecord per content id and announces every
// transition on the event bus.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]model.StatusRecord
	pub     events.Publisher
	now     func() time.Time
}

// NewTracker creates a Tracker publishing to pub, which may be nil.
func NewTracker(pub events.Publisher) *Tracker {
	return &Tracker{
		records: make(map[string]model.StatusRecord),
		pub:     pub,
		now:     time.Now,
	}
}

// Begin opens a record at Queued the first time contentID is requested and
// returns the current state. An existing record is never touched, so
// Completed and Failed stay final.
func (t *Tracker) Begin(contentID, title string) model.SongState {
	t.mu.Lock()
	rec, ok := t.records[contentID]
	if ok {
		t.mu.Unlock()
		return rec.State
	}
	rec = model.StatusRecord{
		ContentID: contentID,
		Title:     title,
		State:     model.StateQueued,
		UpdatedAt: t.now(),
	}
	t.records[contentID] = rec
	t.mu.Unlock()

	t.publish(rec)
	return model.StateQueued
}

// Transition moves contentID to state `to`.
func (t *Tracker) Transition(contentID string, to model.SongState) error {
	t.mu.Lock()
	rec, ok := t.records[contentID]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s has no record", ErrInvalidTransition, contentID)
	}
	if !CanTransition(rec.State, to) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, contentID, rec.State, to)
	}
	rec.State = to
	rec.UpdatedAt = t.now()
	t.records[contentID] = rec
	t.mu.Unlock()

	logger.Debug("song status changed",
		logger.String("contentId", contentID),
		logger.String("state", string(to)))
	t.publish(rec)
	return nil
}

// Get returns the state of contentID, or Unknown if it was never seen.
func (t *Tracker) Get(contentID string) model.SongState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rec, ok := t.records[contentID]; ok {
		return rec.State
	}
	return model.StateUnknown
}

// Record returns the full record for contentID.
func (t *Tracker) Record(contentID string) (model.StatusRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[contentID]
	return rec, ok
}

func (t *Tracker) publish(rec model.StatusRecord) {
	if t.pub == nil {
		return
	}
	typ, ok := events.TypeForState(rec.State)
	if !ok {
		return
	}
	t.pub.Publish(events.Event{
		Type:      typ,
		ContentID: rec.ContentID,
		Title:     rec.Title,
		State:     rec.State,
	})
}
