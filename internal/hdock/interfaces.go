package hdock

import (
	"context"
	"time"
)

// Browser owns one automation session. A Browser belongs to exactly one
// worker for the worker's lifetime; it is never shared or pooled.
type Browser interface {
	// NewPage opens a fresh page/tab for a single job.
	NewPage(ctx context.Context) (Page, error)
	// Close tears down the session and its underlying process resources.
	Close()
}

// Page exposes the automation primitives one job needs. Implementations
// bound every operation by the timeout configured for the session; callers
// release the page via Close on every exit path.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	AttachFile(ctx context.Context, selector, path string) error
	// AttachedFileCount reports how many files the input currently holds,
	// used to confirm an upload actually took.
	AttachedFileCount(ctx context.Context, selector string) (int, error)
	Click(ctx context.Context, selector string) error
	// SubmitAndWait clicks the submit control and waits for the service to
	// navigate to its acknowledgement page, bounded by timeout.
	SubmitAndWait(ctx context.Context, selector string, timeout time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
	Close()
}

// Queue hands each enqueued spec to exactly one consumer.
type Queue interface {
	Enqueue(ctx context.Context, spec JobSpec) error
	Dequeue(ctx context.Context) (JobSpec, error)
	Close()
}

// ResultStore mirrors run-log rows into durable storage.
type ResultStore interface {
	InsertResult(ctx context.Context, batchID string, res JobResult) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
