package queue

import (
	"sync"

	"LiveFM/model"
)

// RequestQueue is a FIFO of song requests. Any number of goroutines may
// enqueue; one consumer drains it, waking on Wait.
type RequestQueue struct {
	mu     sync.Mutex
	items  []model.SongRequest
	signal chan struct{}
}

// New creates an empty queue.
func New() *RequestQueue {
	return &RequestQueue{signal: make(chan struct{}, 1)}
}

// Enqueue appends req at the tail and wakes the consumer.
func (q *RequestQueue) Enqueue(req model.SongRequest) int {
	q.mu.Lock()
	q.items = append(q.items, req)
	n := len(q.items)
	q.mu.Unlock()

	// A pending signal already covers this item.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return n
}

// Dequeue removes and returns the oldest request.
func (q *RequestQueue) Dequeue() (model.SongRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return model.SongRequest{}, false
	}
	req := q.items[0]
	q.items[0] = model.SongRequest{}
	q.items = q.items[1:]
	return req, true
}

// Snapshot returns an ordered copy of every queued request.
func (q *RequestQueue) Snapshot() []model.SongRequest {
	return q.Peek(-1)
}

// Peek returns up to n of the oldest requests without removing them.
// A negative n returns everything.
func (q *RequestQueue) Peek(n int) []model.SongRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n < 0 || n > len(q.items) {
		n = len(q.items)
	}
	out := make([]model.SongRequest, n)
	copy(out, q.items[:n])
	return out
}

// Len reports the number of queued requests.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wait returns the wake channel. A receive means the queue may be non-empty;
// the consumer should drain with Dequeue until it reports false.
func (q *RequestQueue) Wait() <-chan struct{} {
	return q.signal
}
