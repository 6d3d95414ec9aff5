// Package store declares the replicated metadata cache contract (spec §3,
// §6) and provides an in-memory implementation of it. The real replication
// engine is an external collaborator out of scope for this design; the
// in-memory store here exists so the tracker has something concrete to run
// and be tested against.
package store

import (
	"context"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// TransformFunc mutates a JobMetadata snapshot. It must be pure: given the
// same input it always produces the same output, and it must tolerate
// apply(nil) -> nil (job already evicted), since the store may re-apply a
// closure on retry.
type TransformFunc func(old *core.JobMetadata) *core.JobMetadata

// MetadataStore is the replicated key/value store keyed by JobId holding
// JobMetadata (spec §6).
type MetadataStore interface {
	Get(jobId core.JobId) (*core.JobMetadata, error)

	// PutIfAbsent inserts meta if no record exists for meta.JobId. Returns
	// true if inserted, false if a record already existed.
	PutIfAbsent(meta *core.JobMetadata) (bool, error)

	// Transform asynchronously applies fn to the current record for jobId
	// and replicates the result. The returned channel receives the error
	// (if any) exactly once and is then closed.
	Transform(ctx context.Context, jobId core.JobId, fn TransformFunc) <-chan error

	// Subscribe registers cb to be invoked with every updated record,
	// including records produced by other participants. Returns an
	// unsubscribe function.
	Subscribe(cb func(meta *core.JobMetadata)) (unsubscribe func())

	// Jobs enumerates every non-evicted record currently held by the
	// store. Node-left recovery (spec §4.6) scans this set looking for
	// orphaned mappers/reducers.
	Jobs() ([]*core.JobMetadata, error)
}
