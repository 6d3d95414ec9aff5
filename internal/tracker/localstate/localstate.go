// Package localstate holds the per-job, per-node scheduler bookkeeping
// (spec §3 LocalJobState) that is never replicated: which splits/reducers
// this node has already dispatched, how many mappers finished, and the
// one-shot cancel/abort latches.
package localstate

import (
	"sync"
	"sync/atomic"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// LocalJobState is written by the EventLoop goroutine when it dispatches
// tasks, and read and updated by task-completion callbacks on other
// goroutines (the completed-mapper counter and the scheduled-mapper set),
// so the scheduled sets are mutex-guarded and the counter and the one-shot
// latches are atomics.
type LocalJobState struct {
	scheduledMappersMu sync.Mutex
	scheduledMappers   map[core.InputSplit]struct{}

	scheduledReducersMu sync.Mutex
	scheduledReducers   map[int]struct{}

	completedMappers atomic.Int64

	cancelledOnce atomic.Bool
	abortedOnce   atomic.Bool
	committedOnce atomic.Bool
}

func New() *LocalJobState {
	return &LocalJobState{
		scheduledMappers:  make(map[core.InputSplit]struct{}),
		scheduledReducers: make(map[int]struct{}),
	}
}

// TryScheduleMapper inserts split into scheduledMappers and reports whether
// it was newly inserted (idempotent under re-delivery, spec §8).
func (s *LocalJobState) TryScheduleMapper(split core.InputSplit) bool {
	s.scheduledMappersMu.Lock()
	defer s.scheduledMappersMu.Unlock()
	if _, exists := s.scheduledMappers[split]; exists {
		return false
	}
	s.scheduledMappers[split] = struct{}{}
	return true
}

// ScheduledMapperCount returns the number of mappers dispatched so far on
// this node.
func (s *LocalJobState) ScheduledMapperCount() int {
	s.scheduledMappersMu.Lock()
	defer s.scheduledMappersMu.Unlock()
	return len(s.scheduledMappers)
}

// ScheduledMappers returns a snapshot of every split dispatched on this
// node, used by onCombineFinished to remove them all at once (spec §4.5).
func (s *LocalJobState) ScheduledMappers() []core.InputSplit {
	s.scheduledMappersMu.Lock()
	defer s.scheduledMappersMu.Unlock()
	out := make([]core.InputSplit, 0, len(s.scheduledMappers))
	for split := range s.scheduledMappers {
		out = append(out, split)
	}
	return out
}

// IsMapperScheduled reports whether split has already been dispatched on
// this node, without inserting it.
func (s *LocalJobState) IsMapperScheduled(split core.InputSplit) bool {
	s.scheduledMappersMu.Lock()
	defer s.scheduledMappersMu.Unlock()
	_, exists := s.scheduledMappers[split]
	return exists
}

// TryScheduleReducer inserts rdc into scheduledReducers and reports whether
// it was newly inserted.
func (s *LocalJobState) TryScheduleReducer(rdc int) bool {
	s.scheduledReducersMu.Lock()
	defer s.scheduledReducersMu.Unlock()
	if _, exists := s.scheduledReducers[rdc]; exists {
		return false
	}
	s.scheduledReducers[rdc] = struct{}{}
	return true
}

// IsReducerScheduled reports whether rdc has already been dispatched on
// this node, without inserting it.
func (s *LocalJobState) IsReducerScheduled(rdc int) bool {
	s.scheduledReducersMu.Lock()
	defer s.scheduledReducersMu.Unlock()
	_, exists := s.scheduledReducers[rdc]
	return exists
}

// IncrementCompletedMappers atomically bumps the completed-mapper counter
// and reports the new total; safe to call from any goroutine.
func (s *LocalJobState) IncrementCompletedMappers() int64 {
	return s.completedMappers.Add(1)
}

func (s *LocalJobState) CompletedMappers() int64 {
	return s.completedMappers.Load()
}

// LastMapperFinished reports whether the node's completed-mapper count has
// caught up with every mapper it has scheduled.
func (s *LocalJobState) LastMapperFinished() bool {
	return s.CompletedMappers() == int64(s.ScheduledMapperCount())
}

// OnCancel latches true exactly once; subsequent calls return false.
func (s *LocalJobState) OnCancel() bool {
	return s.cancelledOnce.CompareAndSwap(false, true)
}

// OnAborted latches true exactly once; subsequent calls return false.
func (s *LocalJobState) OnAborted() bool {
	return s.abortedOnce.CompareAndSwap(false, true)
}

// OnCommit latches true exactly once; subsequent calls return false. Used
// so the update leader submits the singleton COMMIT task exactly once.
func (s *LocalJobState) OnCommit() bool {
	return s.committedOnce.CompareAndSwap(false, true)
}
