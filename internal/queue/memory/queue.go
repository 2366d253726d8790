// Package memory provides the in-process job queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
)

// Queue is a bounded in-memory queue with context-aware operations. Each
// enqueued spec is delivered to exactly one consumer.
type Queue struct {
	ch      chan hdock.JobSpec
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan hdock.JobSpec, capacity),
	}
}

// Enqueue pushes a spec into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, spec hdock.JobSpec) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- spec:
		return nil
	}
}

// Dequeue pops the next spec, respecting context cancellation. Once the
// queue is closed and drained it returns hdock.ErrQueueClosed.
func (q *Queue) Dequeue(ctx context.Context) (hdock.JobSpec, error) {
	select {
	case <-ctx.Done():
		return hdock.JobSpec{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case spec, ok := <-q.ch:
		if !ok {
			return hdock.JobSpec{}, hdock.ErrQueueClosed
		}
		return spec, nil
	}
}

// Close signals consumers that no further specs will arrive. Safe to call
// more than once.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
