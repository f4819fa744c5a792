package queue

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
)

const (
	DefaultMaxSize = 10
	DefaultMaxAge  = 5 * time.Minute
)

// Request is a pending translation. It is never modified after creation.
type Request struct {
	ID             string
	Text           string
	SourceLanguage string
	TargetLanguage string
	EnqueuedAt     time.Time
}

func NewRequest(text, sourceLanguage, targetLanguage string, now time.Time) Request {
	return Request{
		ID:             uuid.NewString(),
		Text:           text,
		SourceLanguage: sourceLanguage,
		TargetLanguage: targetLanguage,
		EnqueuedAt:     now,
	}
}

// Age reports how long the request has been waiting at the given instant.
func (r Request) Age(now time.Time) time.Duration {
	return now.Sub(r.EnqueuedAt)
}

// Queue is a bounded FIFO. When full, the oldest entry makes room for the new one.
type Queue struct {
	mu      sync.Mutex
	items   deque.Deque[Request]
	maxSize int
}

func New(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Queue{maxSize: maxSize}
}

func (q *Queue) MaxSize() int {
	return q.maxSize
}

// Enqueue appends r, evicting the oldest entry first when the queue is at
// capacity. The evicted request is returned with ok set.
func (q *Queue) Enqueue(r Request) (evicted Request, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() >= q.maxSize {
		evicted, ok = q.items.PopFront(), true
	}
	q.items.PushBack(r)
	return evicted, ok
}

func (q *Queue) DequeueFront() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return Request{}, false
	}
	return q.items.PopFront(), true
}

// PruneStale drops every request whose age is at least maxAge and returns
// how many were removed. The survivors keep their order.
func (q *Queue) PruneStale(now time.Time, maxAge time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.items.Len()
	removed := 0
	for i := 0; i < n; i++ {
		r := q.items.PopFront()
		if r.Age(now) >= maxAge {
			removed++
			continue
		}
		q.items.PushBack(r)
	}
	return removed
}

func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.items.Len()
	q.items.Clear()
	return n
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *Queue) Snapshot() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Request, q.items.Len())
	for i := range out {
		out[i] = q.items.At(i)
	}
	return out
}
