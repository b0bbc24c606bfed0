// Package queue provides the bounded, priority-aware admission queue
// between job submission and the dispatcher. Higher priorities dequeue
// first; ties break FIFO by a monotonically increasing enqueue sequence.
// Capacity is a hard limit: enqueueing past it fails with
// domain.ErrQueueFull instead of growing without backpressure.
package queue

import (
	"container/heap"
	"context"
	"sync"

	"github.com/nulzo/inference-gateway/internal/core/domain"
)

type entry struct {
	jobID    string
	priority domain.JobPriority
	seq      uint64
	index    int
}

// Queue is safe for concurrent use; Enqueue and Dequeue are linearizable
// with respect to priority ordering under a single mutex.
type Queue struct {
	mu       sync.Mutex
	heap     entryHeap
	byJob    map[string]*entry
	capacity int
	seq      uint64
	closed   bool

	notify chan struct{}
	done   chan struct{}
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		byJob:    make(map[string]*entry),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Enqueue admits a job. It never blocks the caller: a full queue fails
// immediately with domain.ErrQueueFull.
func (q *Queue) Enqueue(jobID string, priority domain.JobPriority) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.ErrQueueClosed
	}
	if q.heap.Len() >= q.capacity {
		q.mu.Unlock()
		return domain.ErrQueueFull
	}

	q.seq++
	e := &entry{jobID: jobID, priority: priority, seq: q.seq}
	heap.Push(&q.heap, e)
	q.byJob[jobID] = e
	q.mu.Unlock()

	q.signal()
	return nil
}

// Dequeue blocks until a job is available, the context is cancelled, or the
// queue is closed and drained.
func (q *Queue) Dequeue(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if q.heap.Len() > 0 {
			e := heap.Pop(&q.heap).(*entry)
			delete(q.byJob, e.jobID)
			remaining := q.heap.Len()
			q.mu.Unlock()

			// Wake the next waiter if work is still pending.
			if remaining > 0 {
				q.signal()
			}
			return e.jobID, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return "", domain.ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.done:
		case <-q.notify:
		}
	}
}

// Remove drops a still-queued job, used when a pending job is cancelled
// before dispatch. It reports whether the job was found.
func (q *Queue) Remove(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.byJob[jobID]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, e.index)
	delete(q.byJob, jobID)
	return true
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Cap returns the configured capacity.
func (q *Queue) Cap() int {
	return q.capacity
}

// Close stops admission and wakes every blocked Dequeue once the queue is
// drained.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	q.mu.Unlock()
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// entryHeap orders by priority descending, then enqueue sequence ascending.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
