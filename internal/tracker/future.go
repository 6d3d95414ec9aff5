package tracker

import (
	"context"
	"sync"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// FinishFuture is the client-visible handle that resolves with the
// terminal fail cause (or nil) when a job reaches COMPLETE, or with
// ErrTrackerStopping on shutdown (spec §3, §4.1).
type FinishFuture struct {
	jobId core.JobId

	mu        sync.Mutex
	done      chan struct{}
	resolved  bool
	failCause error
}

func newFinishFuture(jobId core.JobId) *FinishFuture {
	return &FinishFuture{jobId: jobId, done: make(chan struct{})}
}

// resolved Pre-resolves a future with the given fail cause.
func resolved(jobId core.JobId, failCause error) *FinishFuture {
	f := newFinishFuture(jobId)
	f.resolve(failCause)
	return f
}

// resolve is idempotent: only the first call has any effect.
func (f *FinishFuture) resolve(failCause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return
	}
	f.resolved = true
	f.failCause = failCause
	close(f.done)
}

// JobId returns the JobId this future tracks.
func (f *FinishFuture) JobId() core.JobId {
	return f.jobId
}

// Get blocks until the future resolves or ctx is cancelled.
func (f *FinishFuture) Get(ctx context.Context) (core.JobId, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.jobId, f.failCause
	case <-ctx.Done():
		return f.jobId, ctx.Err()
	}
}

// Done reports whether the future has resolved without blocking.
func (f *FinishFuture) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
