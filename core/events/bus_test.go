package events

import (
	"testing"

	"LiveFM/model"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	bus := NewBus(4)
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	bus.Publish(Event{Type: TypeSongReady, ContentID: "abc123", Title: "Test Song"})

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.C:
			if ev.Type != TypeSongReady || ev.ContentID != "abc123" {
				t.Errorf("unexpected event %+v", ev)
			}
			if ev.ID == "" || ev.Timestamp == 0 {
				t.Errorf("event not stamped: %+v", ev)
			}
		default:
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus(1)
	sub := bus.Subscribe()
	defer sub.Close()

	for i := 0; i < 10; i++ {
		bus.Publish(Event{Type: TypeQueueUpdated, Count: i})
	}

	ev := <-sub.C
	if ev.Count != 0 {
		t.Errorf("first buffered event Count = %d, want 0", ev.Count)
	}
	select {
	case extra := <-sub.C:
		t.Errorf("expected later events to be dropped, got %+v", extra)
	default:
	}
}

func TestCloseSubscriptionStopsDelivery(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()
	sub.Close()
	sub.Close()

	bus.Publish(Event{Type: TypeStreamStarted})
	if _, ok := <-sub.C; ok {
		t.Error("closed subscription still delivered")
	}
}

func TestBusCloseClosesSubscribers(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()
	bus.Close()

	if _, ok := <-sub.C; ok {
		t.Error("subscription should be closed")
	}
	late := bus.Subscribe()
	if _, ok := <-late.C; ok {
		t.Error("subscribe after Close should yield a closed feed")
	}
}

func TestTypeForState(t *testing.T) {
	cases := map[model.SongState]Type{
		model.StateQueued:    TypeQueueUpdated,
		model.StatePreparing: TypeSongPreparing,
		model.StateReady:     TypeSongReady,
		model.StateFailed:    TypeSongFailed,
		model.StatePlaying:   TypeSongStarted,
		model.StateCompleted: TypeSongCompleted,
	}
	for state, want := range cases {
		if got, ok := TypeForState(state); !ok || got != want {
			t.Errorf("TypeForState(%s) = %s, %v", state, got, ok)
		}
	}
	if _, ok := TypeForState(model.StateUnknown); ok {
		t.Error("unknown state should not map to an event")
	}
}
