// Package transform implements the TransformStack (spec §4.3): every
// mutation of JobMetadata is expressed as a pure closure Func(old) -> new,
// submitted to MetadataStore.Transform. Closures stack: Stack(pred, next)
// composes next on top of pred's result, so several update intents can be
// layered onto the same job record without racing (e.g. a counter
// increment layered under a phase change).
package transform

import (
	"time"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// Func mutates a JobMetadata snapshot. It must tolerate old == nil (job
// already evicted) by returning nil, and must not mutate old in place.
//
// "Pure" in the package comment refers to the decision each Func makes (which
// fields change, which phase is next), not the timestamps a few of them
// stamp with time.Now(): those are a recording side effect, harmless to
// repeat since every re-apply just overwrites the same field again.
type Func func(old *core.JobMetadata) *core.JobMetadata

// Stack composes next on top of pred: apply(m) = next(pred(m)). Passing a
// nil pred is the same as next alone.
func Stack(pred Func, next Func) Func {
	if pred == nil {
		return next
	}
	return func(old *core.JobMetadata) *core.JobMetadata {
		return next(pred(old))
	}
}

// UpdatePhase sets phase, stamping setupCompleteTs on entry to MAP and
// completeTs on entry to COMPLETE (spec §4.3). MAP is only entered from
// SETUP: UpdatePhase(MAP) leaves a record in any other phase unchanged.
func UpdatePhase(phase core.Phase) Func {
	return func(old *core.JobMetadata) *core.JobMetadata {
		if old == nil {
			return nil
		}
		if phase == core.PhaseMap && old.Phase != core.PhaseSetup {
			return old
		}
		m := old.Clone()
		m.Phase = phase
		now := time.Now().UTC()
		switch phase {
		case core.PhaseMap:
			m.Timestamps.SetupCompleteAt = &now
		case core.PhaseComplete:
			m.Timestamps.CompleteAt = &now
		}
		return m
	}
}

// RemoveMappers removes splits from pendingSplits. If err is non-nil and
// the job is not already CANCELLING, it records failCause and transitions
// to CANCELLING. Otherwise, if pendingSplits becomes empty and the job is
// not CANCELLING, it transitions to REDUCE and stamps mapCompleteTs.
func RemoveMappers(splits []core.InputSplit, err error) Func {
	return func(old *core.JobMetadata) *core.JobMetadata {
		if old == nil {
			return nil
		}
		m := old.Clone()
		for _, s := range splits {
			delete(m.PendingSplits, s)
		}
		if err != nil && m.Phase != core.PhaseCancelling {
			m.FailCause = err
			m.Phase = core.PhaseCancelling
			return m
		}
		if len(m.PendingSplits) == 0 && m.Phase != core.PhaseCancelling {
			m.Phase = core.PhaseReduce
			now := time.Now().UTC()
			m.Timestamps.MapCompleteAt = &now
		}
		return m
	}
}

// RemoveReducer removes rdc from pendingReducers; on err, unless the job is
// already CANCELLING, it records failCause and transitions to CANCELLING.
func RemoveReducer(rdc int, err error) Func {
	return func(old *core.JobMetadata) *core.JobMetadata {
		if old == nil {
			return nil
		}
		m := old.Clone()
		delete(m.PendingReducers, rdc)
		if err != nil && m.Phase != core.PhaseCancelling {
			m.FailCause = err
			m.Phase = core.PhaseCancelling
		}
		return m
	}
}

// InitializeReducers merges desc into reducerAddresses for every reducer in
// rdcs.
func InitializeReducers(rdcs []int, desc core.ProcessDescriptor) Func {
	return func(old *core.JobMetadata) *core.JobMetadata {
		if old == nil {
			return nil
		}
		m := old.Clone()
		for _, r := range rdcs {
			m.ReducerAddresses[r] = desc
		}
		return m
	}
}

// CancelJob removes the given splits/reducers from the pending sets (when
// provided), sets phase=CANCELLING, and records failCause if err is
// non-nil. Callers must ensure phase is already CANCELLING or err is
// non-nil (spec §4.3 precondition).
func CancelJob(err error, splits []core.InputSplit, rdcs []int) Func {
	return func(old *core.JobMetadata) *core.JobMetadata {
		if old == nil {
			return nil
		}
		m := old.Clone()
		for _, s := range splits {
			delete(m.PendingSplits, s)
		}
		for _, r := range rdcs {
			delete(m.PendingReducers, r)
		}
		m.Phase = core.PhaseCancelling
		if err != nil {
			m.FailCause = err
		}
		return m
	}
}

// IncrementCounters merges c into the record's counters.
func IncrementCounters(c core.Counters) Func {
	return func(old *core.JobMetadata) *core.JobMetadata {
		if old == nil {
			return nil
		}
		m := old.Clone()
		m.Counters = m.Counters.Merge(c)
		return m
	}
}

// StampTTL sets the TTL at which the store may evict this record, once it
// has reached a terminal phase.
func StampTTL(ttl time.Duration) Func {
	return func(old *core.JobMetadata) *core.JobMetadata {
		if old == nil {
			return nil
		}
		m := old.Clone()
		m.TTL = time.Now().UTC().Add(ttl)
		return m
	}
}
