package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/vo"
)

func queuedJob() *entity.Job {
	params, _ := vo.NewTranscodeParams("h264", "mp4", "", "", "")
	return entity.NewJob(vo.InputSource{LocalPath: "/tmp/in.mp4"}, *params, time.Minute)
}

// TestEnqueueRejectsAtCapacity verifies the K+1-th enqueue fails fast.
func TestEnqueueRejectsAtCapacity(t *testing.T) {
	q := NewMemoryAdmissionQueue(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, queuedJob()); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Enqueue(ctx, queuedJob()); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("enqueue over capacity = %v, want ErrQueueFull", err)
	}
	if q.Size() != 3 {
		t.Fatalf("size = %d, want 3", q.Size())
	}
}

// TestDequeueFIFO verifies strict submission ordering.
func TestDequeueFIFO(t *testing.T) {
	q := NewMemoryAdmissionQueue(5)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		j := queuedJob()
		ids = append(ids, j.ID)
		if err := q.Enqueue(ctx, j); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	for i := 0; i < 5; i++ {
		j, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if j.ID != ids[i] {
			t.Fatalf("dequeue %d = %s, want %s", i, j.ID, ids[i])
		}
	}
}

// TestEnqueueCancelledContext verifies a dead context is rejected even when
// the buffer has room.
func TestEnqueueCancelledContext(t *testing.T) {
	q := NewMemoryAdmissionQueue(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, queuedJob()); !errors.Is(err, context.Canceled) {
		t.Fatalf("enqueue = %v, want context.Canceled", err)
	}
	if q.Size() != 0 {
		t.Fatalf("size = %d, want 0", q.Size())
	}
}

// TestDequeueBlocksUntilCancel verifies the suspension point honors context.
func TestDequeueBlocksUntilCancel(t *testing.T) {
	q := NewMemoryAdmissionQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("dequeue returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("dequeue error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock on cancel")
	}
}

// TestCloseDrainsThenReports verifies shutdown semantics.
func TestCloseDrainsThenReports(t *testing.T) {
	q := NewMemoryAdmissionQueue(2)
	ctx := context.Background()

	if err := q.Enqueue(ctx, queuedJob()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Enqueue(ctx, queuedJob()); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("enqueue after close = %v, want ErrQueueClosed", err)
	}

	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("draining dequeue: %v", err)
	}
	if _, err := q.Dequeue(ctx); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("dequeue after drain = %v, want ErrQueueClosed", err)
	}
}
