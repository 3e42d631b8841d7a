package queue

import (
	"context"
	"errors"
	"sync"

	"transcode-jobs/ddd/domain/entity"
)

// ErrQueueFull is returned by Enqueue when the buffer is at capacity.
var ErrQueueFull = errors.New("admission queue is full")

// ErrQueueClosed is returned once the queue has been shut down.
var ErrQueueClosed = errors.New("admission queue is closed")

// AdmissionQueue is the bounded intake buffer between submission and the
// worker pool. Enqueue never blocks: at capacity it rejects so intake
// latency stays bounded under overload. Dequeue blocks until a job arrives,
// the context ends, or the queue closes. Ordering is strict FIFO.
type AdmissionQueue interface {
	Enqueue(ctx context.Context, job *entity.Job) error
	Dequeue(ctx context.Context) (*entity.Job, error)
	Size() int
	Capacity() int
	Close() error
	IsClosed() bool
}

// MemoryAdmissionQueue is the channel-backed implementation.
type MemoryAdmissionQueue struct {
	queue  chan *entity.Job
	closed bool
	mu     sync.RWMutex
}

// NewMemoryAdmissionQueue creates a queue of the given capacity.
func NewMemoryAdmissionQueue(capacity int) *MemoryAdmissionQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryAdmissionQueue{
		queue: make(chan *entity.Job, capacity),
	}
}

// Enqueue admits a job or rejects immediately.
func (q *MemoryAdmissionQueue) Enqueue(ctx context.Context, job *entity.Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	if job == nil {
		return errors.New("job cannot be nil")
	}
	// checked before the send so a dead context never admits a job
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until a job is available. After Close it drains the
// remaining buffered jobs, then reports ErrQueueClosed.
func (q *MemoryAdmissionQueue) Dequeue(ctx context.Context) (*entity.Job, error) {
	select {
	case job, ok := <-q.queue:
		if !ok {
			return nil, ErrQueueClosed
		}
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the number of buffered jobs.
func (q *MemoryAdmissionQueue) Size() int {
	return len(q.queue)
}

// Capacity returns the configured bound K.
func (q *MemoryAdmissionQueue) Capacity() int {
	return cap(q.queue)
}

// Close stops intake; buffered jobs remain dequeueable.
func (q *MemoryAdmissionQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.queue)
	return nil
}

// IsClosed reports whether the queue was shut down.
func (q *MemoryAdmissionQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

var _ AdmissionQueue = (*MemoryAdmissionQueue)(nil)
