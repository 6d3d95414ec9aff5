package core

import "errors"

// Error taxonomy from spec §7. Every public JobTracker entry point returns
// one of these (wrapped with context via fmt.Errorf("...: %w", err)) rather
// than an ad-hoc error string, so callers can errors.Is against them.
var (
	// ErrTrackerStopping is returned by every public API once Stop has been
	// called; the lifecycle gate is closed and no new work is accepted.
	ErrTrackerStopping = errors.New("tracker: stopping")

	// ErrDuplicateJob is returned by Submit when the JobId is already known
	// locally or in the MetadataStore.
	ErrDuplicateJob = errors.New("tracker: duplicate job id")

	// ErrUnknownJob is returned by Status/Plan/Counters when no metadata
	// exists for the requested JobId.
	ErrUnknownJob = errors.New("tracker: unknown job id")

	// ErrPlanningFailure wraps a synchronous Planner.Plan failure at Submit;
	// the job is never persisted to the MetadataStore.
	ErrPlanningFailure = errors.New("tracker: planning failed")

	// ErrJobCancelled is the failCause recorded when Kill initiates
	// cancellation.
	ErrJobCancelled = errors.New("tracker: job cancelled")

	// ErrParticipantLost is the failCause recorded by node-left recovery
	// (spec §4.6) when a participating node departs mid-job.
	ErrParticipantLost = errors.New("tracker: one or more nodes failed")
)
