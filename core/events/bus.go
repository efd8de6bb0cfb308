package events

import (
	"sync"
	"time"

	"LiveFM/logger"
	"LiveFM/model"

	"github.com/google/uuid"
)

// Type names a notification.
type Type string

const (
	TypeQueueUpdated    Type = "queue_updated"
	TypeSongPreparing   Type = "song_preparing"
	TypeSongReady       Type = "song_ready"
	TypeSongFailed      Type = "song_failed"
	TypeSongStarted     Type = "song_started"
	TypeSongCompleted   Type = "song_completed"
	TypeStreamStarted   Type = "stream_started"
	TypeStreamStopped   Type = "stream_stopped"
	TypePlaylistUpdated Type = "playlist_updated"
)

// Event is one notification. Song events carry id, title and state only;
// internal error detail is never attached.
type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	ContentID string          `json:"contentId,omitempty"`
	Title     string          `json:"title,omitempty"`
	State     model.SongState `json:"state,omitempty"`
	Count     int             `json:"count"` // queue length or playlist size
	Timestamp int64           `json:"timestamp"`
}

// TypeForState maps a song state onto the event announcing it.
func TypeForState(s model.SongState) (Type, bool) {
	switch s {
	case model.StateQueued:
		return TypeQueueUpdated, true
	case model.StatePreparing:
		return TypeSongPreparing, true
	case model.StateReady:
		return TypeSongReady, true
	case model.StateFailed:
		return TypeSongFailed, true
	case model.StatePlaying:
		return TypeSongStarted, true
	case model.StateCompleted:
		return TypeSongCompleted, true
	}
	return "", false
}

// Publisher is what producers of notifications depend on.
type Publisher interface {
	Publish(ev Event)
}

// Subscription is a receive-only event feed. Close releases it.
type Subscription struct {
	C    <-chan Event
	bus  *Bus
	ch   chan Event
	once sync.Once
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.bus.remove(s) })
}

// Bus fans events out to subscribers. Delivery is at-most-once and never
// blocks the publisher: a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
	now    func() time.Time
}

// NewBus creates a bus whose subscribers buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		now:    time.Now,
	}
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch, bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish stamps ev and delivers it to every subscriber that has room.
func (b *Bus) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = b.now().UnixMilli()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			logger.Debug("event dropped for slow subscriber",
				logger.String("type", string(ev.Type)))
		}
	}
}

// Close closes every subscription; later Subscribe calls get a closed feed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
		delete(b.subs, sub)
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}
