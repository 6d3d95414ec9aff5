// Package registry implements the JobRegistry (spec §4.7): a local,
// per-node map from JobId to a lazily-materialized Job, ensuring
// at-most-one construction per JobId even under concurrent callers.
package registry

import (
	"sync"

	"github.com/nemanja-m/gomr/internal/tracker/collab"
	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// Factory constructs the runtime Job object for a JobId on first need.
type Factory func(jobId core.JobId, info core.JobInfo) (collab.Job, error)

type entry struct {
	done chan struct{}
	job  collab.Job
	err  error
}

// Registry ensures at-most-one construction per JobId. First caller to
// GetOrCreate for a JobId inserts a placeholder and runs the factory;
// later callers for the same JobId await that same placeholder.
type Registry struct {
	mu      sync.Mutex
	entries map[core.JobId]*entry
}

func New() *Registry {
	return &Registry{entries: make(map[core.JobId]*entry)}
}

// GetOrCreate returns the Job for jobId, constructing it via factory on
// first call. On construction failure the entry is removed so a retry can
// create a fresh instance.
func (r *Registry) GetOrCreate(jobId core.JobId, info core.JobInfo, factory Factory) (collab.Job, error) {
	r.mu.Lock()
	e, exists := r.entries[jobId]
	if exists {
		r.mu.Unlock()
		<-e.done
		return e.job, e.err
	}
	e = &entry{done: make(chan struct{})}
	r.entries[jobId] = e
	r.mu.Unlock()

	job, err := factory(jobId, info)
	e.job, e.err = job, err
	close(e.done)

	if err != nil {
		r.mu.Lock()
		delete(r.entries, jobId)
		r.mu.Unlock()
	}
	return job, err
}

// Get returns the already-materialized Job for jobId, if any.
func (r *Registry) Get(jobId core.JobId) (collab.Job, bool) {
	r.mu.Lock()
	e, exists := r.entries[jobId]
	r.mu.Unlock()
	if !exists {
		return nil, false
	}
	<-e.done
	return e.job, e.err == nil
}

// Remove disposes of and removes the Job for jobId. The tracker calls it
// when the job reaches COMPLETE (spec §4.4) and when Submit fails after the
// Job was constructed; JobTracker.Stop does not call it, so jobs still
// registered at shutdown are not disposed.
func (r *Registry) Remove(jobId core.JobId, interrupt bool) error {
	r.mu.Lock()
	e, exists := r.entries[jobId]
	delete(r.entries, jobId)
	r.mu.Unlock()

	if !exists {
		return nil
	}
	<-e.done
	if e.job == nil {
		return nil
	}
	return e.job.Dispose(interrupt)
}

// Len reports the number of materialized (or materializing) jobs, mainly
// for tests and diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
