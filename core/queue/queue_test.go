package queue

import (
	"fmt"
	"sync"
	"testing"

	"LiveFM/model"
)

func req(id string) model.SongRequest {
	return model.SongRequest{ContentID: id, Title: "title " + id}
}

func TestFIFOOrder(t *testing.T) {
	q := New()
	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(req(id))
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Dequeue()
		if !ok || got.ContentID != want {
			t.Fatalf("Dequeue() = %q, %v; want %q", got.ContentID, ok, want)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Error("Dequeue on empty queue should report false")
	}
}

func TestSnapshotAndPeekDoNotConsume(t *testing.T) {
	q := New()
	q.Enqueue(req("a"))
	q.Enqueue(req("b"))
	q.Enqueue(req("c"))

	snap := q.Snapshot()
	if len(snap) != 3 || snap[0].ContentID != "a" || snap[2].ContentID != "c" {
		t.Fatalf("Snapshot() = %+v", snap)
	}
	if peek := q.Peek(2); len(peek) != 2 || peek[1].ContentID != "b" {
		t.Fatalf("Peek(2) = %+v", peek)
	}
	if peek := q.Peek(10); len(peek) != 3 {
		t.Fatalf("Peek(10) len = %d", len(peek))
	}

	snap[0].ContentID = "mutated"
	if got, _ := q.Dequeue(); got.ContentID != "a" {
		t.Error("snapshot shares storage with the queue")
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
}

func TestEnqueueSignalsWaiter(t *testing.T) {
	q := New()
	select {
	case <-q.Wait():
		t.Fatal("signal before any enqueue")
	default:
	}

	q.Enqueue(req("a"))
	q.Enqueue(req("b"))

	select {
	case <-q.Wait():
	default:
		t.Fatal("no wake signal after enqueue")
	}
	// Two enqueues collapse into one pending signal.
	select {
	case <-q.Wait():
		t.Fatal("signal should not accumulate")
	default:
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Enqueue(req(fmt.Sprintf("%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	if q.Len() != 400 {
		t.Fatalf("Len() = %d, want 400", q.Len())
	}
	seen := make(map[string]bool)
	for {
		r, ok := q.Dequeue()
		if !ok {
			break
		}
		if seen[r.ContentID] {
			t.Fatalf("duplicate %s", r.ContentID)
		}
		seen[r.ContentID] = true
	}
	if len(seen) != 400 {
		t.Errorf("drained %d items, want 400", len(seen))
	}
}
