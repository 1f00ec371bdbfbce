package media

import (
	"testing"
	"time"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	if !q.Enqueue("fl-one") {
		t.Fatal("enqueue failed")
	}
	select {
	case job := <-q.Jobs():
		if job.Reference != "fl-one" || job.Attempt != 1 {
			t.Fatalf("job = %+v", job)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job")
	}
}

func TestQueueFullDropsInsteadOfBlocking(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()

	if !q.Enqueue("fl-a") {
		t.Fatal("first enqueue failed")
	}
	if q.Enqueue("fl-b") {
		t.Fatal("second enqueue should report a full queue")
	}
}

func TestQueueEnqueueAfter(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	if !q.EnqueueAfter(Job{Reference: "fl-retry", Attempt: 2}, 10*time.Millisecond) {
		t.Fatal("delayed enqueue failed")
	}

	select {
	case <-q.Jobs():
		t.Fatal("job arrived before delay elapsed")
	case <-time.After(2 * time.Millisecond):
	}

	select {
	case job := <-q.Jobs():
		if job.Attempt != 2 {
			t.Fatalf("attempt = %d, want 2", job.Attempt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delayed job")
	}
}

func TestQueueCloseRejectsAndCancelsTimers(t *testing.T) {
	q := NewQueue(4)
	if !q.EnqueueAfter(Job{Reference: "fl-cancelled", Attempt: 2}, 50*time.Millisecond) {
		t.Fatal("delayed enqueue failed")
	}
	q.Close()

	if q.Enqueue("fl-late") {
		t.Fatal("enqueue after close should fail")
	}
	if q.EnqueueAfter(Job{Reference: "fl-late"}, time.Millisecond) {
		t.Fatal("delayed enqueue after close should fail")
	}

	// The channel is closed; any pending timer fire must not panic or
	// deliver.
	time.Sleep(80 * time.Millisecond)
	if job, ok := <-q.Jobs(); ok {
		t.Fatalf("unexpected job after close: %+v", job)
	}
}
