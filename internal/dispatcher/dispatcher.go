// Package dispatcher manages worker fan-out over the job queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/SidSin0809/hdock-batch/internal/hdock"
	"github.com/SidSin0809/hdock-batch/internal/worker"
)

// Dispatcher feeds the full ordered batch to a bounded pool of workers.
// Assignment order is whichever worker dequeues first; completion order is
// not defined.
type Dispatcher struct {
	queue   hdock.Queue
	workers []*worker.Worker
	logger  *zap.Logger
}

// New creates a Dispatcher. The worker count is the concurrency bound J.
func New(queue hdock.Queue, workers []*worker.Worker, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		workers: workers,
		logger:  logger,
	}
}

// Run starts all workers, enqueues every spec exactly once, closes the queue
// and blocks until the workers drain it. Per-job failures never abort the
// batch; Run only returns early when the context ends.
func (d *Dispatcher) Run(ctx context.Context, specs []hdock.JobSpec) error {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}

	var enqueueErr error
	for _, spec := range specs {
		if err := d.queue.Enqueue(ctx, spec); err != nil {
			enqueueErr = fmt.Errorf("enqueue row %d: %w", spec.RowIndex, err)
			break
		}
	}
	d.queue.Close()
	wg.Wait()

	if enqueueErr != nil {
		return enqueueErr
	}
	d.logger.Debug("batch drained", zap.Int("jobs", len(specs)), zap.Int("workers", len(d.workers)))
	return nil
}
