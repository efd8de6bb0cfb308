package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"LiveFM/core/events"
	"LiveFM/model"
)

type memoryHistory struct {
	mu      sync.Mutex
	created []model.SongRequest
	states  map[string][]model.SongState
}

func (m *memoryHistory) Create(ctx context.Context, req model.SongRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, req)
	return nil
}

func (m *memoryHistory) UpdateState(ctx context.Context, contentID string, state model.SongState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[contentID] = append(m.states[contentID], state)
	return nil
}

func (m *memoryHistory) Recent(ctx context.Context, limit int) ([]*model.RequestHistory, error) {
	return nil, nil
}

func (m *memoryHistory) statesFor(id string) []model.SongState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SongState(nil), m.states[id]...)
}

func TestHistoryRecorderAppliesSongEvents(t *testing.T) {
	repo := &memoryHistory{states: map[string][]model.SongState{}}
	rec := NewHistoryRecorder(repo)
	bus := events.NewBus(16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() { rec.Run(ctx, sub); close(done) }()

	rec.Record(ctx, model.SongRequest{RequestID: "r1", ContentID: "abc"})
	bus.Publish(events.Event{Type: events.TypeQueueUpdated, ContentID: "abc", State: model.StateQueued})
	bus.Publish(events.Event{Type: events.TypeSongPreparing, ContentID: "abc", State: model.StatePreparing})
	bus.Publish(events.Event{Type: events.TypePlaylistUpdated, Count: 1})
	bus.Publish(events.Event{Type: events.TypeSongReady, ContentID: "abc", State: model.StateReady})

	deadline := time.Now().Add(2 * time.Second)
	for len(repo.statesFor("abc")) < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	got := repo.statesFor("abc")
	if len(got) != 2 || got[0] != model.StatePreparing || got[1] != model.StateReady {
		t.Errorf("states = %v", got)
	}
	if len(repo.created) != 1 || repo.created[0].RequestID != "r1" {
		t.Errorf("created = %v", repo.created)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop")
	}
}
