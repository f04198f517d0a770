package notifications

import (
	"sync"
	"time"
)

// QueuedDelivery is a notification created while its user was offline.
type QueuedDelivery struct {
	NotificationID string
	Title          string
	Message        string
	QueuedAt       time.Time
}

// Queue buffers deliveries per offline user. It is unbounded.
type Queue struct {
	mu      sync.Mutex
	pending map[string][]QueuedDelivery
	depth   int
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[string][]QueuedDelivery)}
}

// Enqueue appends entry to the user's pending list.
func (q *Queue) Enqueue(userID string, entry QueuedDelivery) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending[userID] = append(q.pending[userID], entry)
	q.depth++
}

// Take removes and returns every pending entry for userID in enqueue order.
func (q *Queue) Take(userID string) []QueuedDelivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.pending[userID]
	delete(q.pending, userID)
	q.depth -= len(entries)
	return entries
}

// Requeue puts entries back in front of the user's pending list, ahead of
// anything enqueued since they were taken.
func (q *Queue) Requeue(userID string, entries []QueuedDelivery) {
	if len(entries) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	existing := q.pending[userID]
	merged := make([]QueuedDelivery, 0, len(entries)+len(existing))
	merged = append(merged, entries...)
	q.pending[userID] = append(merged, existing...)
	q.depth += len(entries)
}

// Len returns the number of pending entries for userID.
func (q *Queue) Len(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[userID])
}

// Depth returns the number of pending entries across all users.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth
}
