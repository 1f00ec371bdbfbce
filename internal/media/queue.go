package media

import (
	"sync"
	"time"
)

const defaultQueueSize = 256

// Job is one outstanding extraction attempt for a file. Jobs are ephemeral:
// they exist only in memory while work is pending and vanish once terminal.
type Job struct {
	Reference string
	Attempt   int
}

// Queue feeds extraction jobs to the worker pool. Delayed re-enqueue backs
// retry scheduling; there is no busy-wait anywhere.
type Queue struct {
	jobs chan Job

	mu     sync.Mutex
	closed bool
	timers map[*time.Timer]struct{}
}

// NewQueue creates a job queue with the given buffer size.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{
		jobs:   make(chan Job, size),
		timers: map[*time.Timer]struct{}{},
	}
}

// Enqueue submits a first-attempt job. It reports false when the queue is
// closed or full; a full queue drops the job rather than blocking the
// caller's request.
func (q *Queue) Enqueue(reference string) bool {
	return q.push(Job{Reference: reference, Attempt: 1})
}

// EnqueueAfter schedules a job to be re-queued once delay elapses.
func (q *Queue) EnqueueAfter(job Job, delay time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		q.push(job)
	})
	q.timers[timer] = struct{}{}
	return true
}

// Jobs exposes the receive side for workers.
func (q *Queue) Jobs() <-chan Job {
	return q.jobs
}

// Close stops accepting jobs and cancels pending delayed re-enqueues.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for timer := range q.timers {
		timer.Stop()
	}
	q.timers = map[*time.Timer]struct{}{}
	close(q.jobs)
}

func (q *Queue) push(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}
