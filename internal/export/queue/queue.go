// Package queue holds export jobs waiting for a dispatch slot.
package queue

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the queue is at max capacity
	ErrQueueFull = errors.New("export queue is full")
	// ErrJobExists is returned when a job is already queued
	ErrJobExists = errors.New("job already exists in queue")
)

// QueuedJob is a job waiting to be dispatched.
type QueuedJob struct {
	JobID    string
	Priority int // higher first
	QueuedAt time.Time
	seq      uint64
	index    int
}

type jobHeap []*QueuedJob

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x interface{}) {
	item := x.(*QueuedJob)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// JobQueue is a priority queue of pending export jobs. Equal priorities
// are served first in, first out.
type JobQueue struct {
	mu      sync.Mutex
	heap    jobHeap
	jobs    map[string]*QueuedJob
	maxSize int
	seq     uint64
	ready   chan struct{}
}

// New creates a queue. maxSize <= 0 means unbounded.
func New(maxSize int) *JobQueue {
	return &JobQueue{
		jobs:    make(map[string]*QueuedJob),
		maxSize: maxSize,
		ready:   make(chan struct{}, 1),
	}
}

// Enqueue adds a job.
func (q *JobQueue) Enqueue(jobID string, priority int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[jobID]; exists {
		return ErrJobExists
	}
	if q.maxSize > 0 && len(q.heap) >= q.maxSize {
		return ErrQueueFull
	}

	q.seq++
	qj := &QueuedJob{JobID: jobID, Priority: priority, QueuedAt: time.Now(), seq: q.seq}
	heap.Push(&q.heap, qj)
	q.jobs[jobID] = qj
	q.signal()
	return nil
}

// Dequeue removes and returns the highest priority job, or nil.
func (q *JobQueue) Dequeue() *QueuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil
	}
	qj := heap.Pop(&q.heap).(*QueuedJob)
	delete(q.jobs, qj.JobID)
	if len(q.heap) > 0 {
		q.signal()
	}
	return qj
}

// Remove drops a queued job. It reports whether the job was queued.
func (q *JobQueue) Remove(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	qj, exists := q.jobs[jobID]
	if !exists {
		return false
	}
	heap.Remove(&q.heap, qj.index)
	delete(q.jobs, jobID)
	return true
}

// Len returns the number of queued jobs.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Ready is signalled whenever the queue may have become non-empty.
func (q *JobQueue) Ready() <-chan struct{} {
	return q.ready
}

func (q *JobQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
