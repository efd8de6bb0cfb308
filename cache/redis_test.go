package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"LiveFM/core/events"

	"github.com/go-redis/redis/v8"
)

// testClient connects to LIVEFM_TEST_REDIS (host:port) or skips.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("LIVEFM_TEST_REDIS")
	if addr == "" {
		t.Skip("LIVEFM_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestArtifactIndexRoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	key := "livefm:test:artifacts:" + t.Name()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	idx := NewArtifactIndex(client, key)
	if err := idx.Put(ctx, "a", "/m/a.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Put(ctx, "b", "/m/b.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Remove(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	all, err := idx.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all["a"] != "/m/a.mp3" {
		t.Errorf("All = %v", all)
	}
}

func TestEventRelay(t *testing.T) {
	client := testClient(t)
	relay := NewEventRelay(client, "livefm:test:events:"+t.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan events.Event, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		relay.Listen(ctx, func(ev events.Event) { got <- ev })
	}()
	<-ready
	time.Sleep(100 * time.Millisecond)

	bus := events.NewBus(8)
	go relay.Run(ctx, bus.Subscribe())
	time.Sleep(50 * time.Millisecond)
	bus.Publish(events.Event{Type: events.TypeSongReady, ContentID: "abc123"})

	select {
	case ev := <-got:
		if ev.Type != events.TypeSongReady || ev.ContentID != "abc123" {
			t.Errorf("relayed = %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("event never relayed")
	}
}
