// Package tracker implements the JobTracker facade (spec §4.1): the
// per-node component that maintains the replicated per-job metadata
// record, drives each job through SETUP -> MAP -> REDUCE -> COMPLETE (with
// a CANCELLING branch), reacts to task-completion callbacks and cluster
// membership changes, and composes metadata mutations as stacked
// TransformStack closures applied atomically to the replicated record.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nemanja-m/gomr/internal/shared/logging"
	"github.com/nemanja-m/gomr/internal/tracker/collab"
	"github.com/nemanja-m/gomr/internal/tracker/core"
	"github.com/nemanja-m/gomr/internal/tracker/discovery"
	"github.com/nemanja-m/gomr/internal/tracker/localstate"
	"github.com/nemanja-m/gomr/internal/tracker/registry"
	"github.com/nemanja-m/gomr/internal/tracker/store"
	"github.com/nemanja-m/gomr/internal/tracker/transform"
)

// JobTracker is the public facade described in spec §4.1. It is safe for
// concurrent use from the client API, TaskExecutor callbacks, and
// discovery callbacks.
type JobTracker struct {
	store      store.MetadataStore
	discovery  discovery.Discovery
	planner    collab.Planner
	executor   collab.TaskExecutor
	shuffle    collab.Shuffle
	runtimeCtx collab.RuntimeContext
	jobFactory registry.Factory
	registry   *registry.Registry
	logger     logging.Logger

	// gateMu is the lifecycle gate: Submit, FinishFuture, ListJobs and the
	// read accessors hold a read lock while they run and return
	// ErrTrackerStopping once stopped is set, and each EventLoop
	// notification runs under a read lock. Stop takes the write lock to set
	// stopped, so it waits for those in-flight calls first. Kill holds the
	// gate only while it reads the record and obtains its finish future,
	// not while it waits on that future. OnTaskFinished and
	// OnExternalMappersInitialized do not take the gate, so they still
	// submit transforms after Stop.
	gateMu  sync.RWMutex
	stopped bool

	finishFutsMu sync.Mutex
	finishFuts   map[core.JobId]*FinishFuture

	localStatesMu sync.Mutex
	localStates   map[core.JobId]*localstate.LocalJobState

	eventCh          chan func()
	loopDone         chan struct{}
	unsubscribeStore func()
	unsubscribeDisco func()
}

// Deps bundles the external collaborators a JobTracker is built from (spec
// §6). All fields are required.
type Deps struct {
	Store      store.MetadataStore
	Discovery  discovery.Discovery
	Planner    collab.Planner
	Executor   collab.TaskExecutor
	Shuffle    collab.Shuffle
	RuntimeCtx collab.RuntimeContext
	JobFactory registry.Factory
	Logger     logging.Logger
	// EventQueueDepth bounds the EventLoop's notification buffer. A full
	// queue drops the incoming notification (logging a warning) rather
	// than blocking the store's callback thread. Dispatch decisions are
	// derived from each snapshot alone, so a later snapshot of the same job
	// re-derives them.
	EventQueueDepth int
}

func New(d Deps) *JobTracker {
	if d.EventQueueDepth <= 0 {
		d.EventQueueDepth = 256
	}
	return &JobTracker{
		store:        d.Store,
		discovery:    d.Discovery,
		planner:      d.Planner,
		executor:     d.Executor,
		shuffle:      d.Shuffle,
		runtimeCtx:   d.RuntimeCtx,
		jobFactory:   d.JobFactory,
		registry:     registry.New(),
		logger:       d.Logger,
		finishFuts:   make(map[core.JobId]*FinishFuture),
		localStates:  make(map[core.JobId]*localstate.LocalJobState),
		eventCh:      make(chan func(), d.EventQueueDepth),
		loopDone:     make(chan struct{}),
	}
}

// Start subscribes to metadata and discovery notifications and launches
// the EventLoop (spec §4.2).
func (t *JobTracker) Start() {
	t.unsubscribeStore = t.store.Subscribe(func(meta *core.JobMetadata) {
		t.enqueue(func() { t.onMetadataUpdate(meta) })
	})
	t.unsubscribeDisco = t.discovery.Subscribe(func(evt discovery.Event) {
		t.enqueue(func() { t.onDiscoveryEvent(evt) })
	})
	go t.runEventLoop()
}

// Stop takes the writer side of the lifecycle gate, so no new gated call
// (see gateMu) can begin, shuts the EventLoop down, and fails every in-flight finish
// future with ErrTrackerStopping (spec §4.1, §5).
func (t *JobTracker) Stop() {
	t.gateMu.Lock()
	if t.stopped {
		t.gateMu.Unlock()
		return
	}
	t.stopped = true
	t.gateMu.Unlock()

	if t.unsubscribeStore != nil {
		t.unsubscribeStore()
	}
	if t.unsubscribeDisco != nil {
		t.unsubscribeDisco()
	}
	close(t.eventCh)
	<-t.loopDone

	t.finishFutsMu.Lock()
	futs := t.finishFuts
	t.finishFuts = make(map[core.JobId]*FinishFuture)
	t.finishFutsMu.Unlock()

	for _, fut := range futs {
		fut.resolve(core.ErrTrackerStopping)
	}
}

func (t *JobTracker) enqueue(fn func()) {
	t.gateMu.RLock()
	defer t.gateMu.RUnlock()
	if t.stopped {
		return
	}
	select {
	case t.eventCh <- fn:
	default:
		t.logger.Warn("event loop queue full, dropping notification")
	}
}

func (t *JobTracker) runEventLoop() {
	defer close(t.loopDone)
	for fn := range t.eventCh {
		t.runNotification(fn)
	}
}

// runNotification processes one notification under the readers-lock,
// logging and continuing on panic rather than propagating it (spec §4.2,
// §7).
func (t *JobTracker) runNotification(fn func()) {
	t.gateMu.RLock()
	defer t.gateMu.RUnlock()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("event loop notification panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}

// Submit materializes the Job, plans it, installs the initial SETUP-phase
// metadata record, and returns a finish future (spec §4.1).
func (t *JobTracker) Submit(jobId core.JobId, info core.JobInfo) (*FinishFuture, error) {
	t.gateMu.RLock()
	defer t.gateMu.RUnlock()
	if t.stopped {
		return nil, core.ErrTrackerStopping
	}

	if existing, err := t.store.Get(jobId); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, core.ErrDuplicateJob
	}
	if _, exists := t.registry.Get(jobId); exists {
		return nil, core.ErrDuplicateJob
	}

	job, err := t.registry.GetOrCreate(jobId, info, t.jobFactory)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPlanningFailure, err)
	}
	if err := job.Initialize(t.runtimeCtx.LocalNodeId()); err != nil {
		_ = t.registry.Remove(jobId, true)
		return nil, fmt.Errorf("%w: %v", core.ErrPlanningFailure, err)
	}

	plan, err := t.planner.Plan(job, info, t.discovery.LiveNodes())
	if err != nil {
		_ = t.registry.Remove(jobId, true)
		return nil, fmt.Errorf("%w: %v", core.ErrPlanningFailure, err)
	}

	meta := core.NewJobMetadata(jobId, t.runtimeCtx.LocalNodeId(), info, plan)

	t.finishFutsMu.Lock()
	if _, exists := t.finishFuts[jobId]; exists {
		t.finishFutsMu.Unlock()
		return nil, core.ErrDuplicateJob
	}
	fut := newFinishFuture(jobId)
	t.finishFuts[jobId] = fut
	t.finishFutsMu.Unlock()

	inserted, err := t.store.PutIfAbsent(meta)
	if err != nil {
		t.finishFutsMu.Lock()
		delete(t.finishFuts, jobId)
		t.finishFutsMu.Unlock()
		return nil, err
	}
	if !inserted {
		t.finishFutsMu.Lock()
		delete(t.finishFuts, jobId)
		t.finishFutsMu.Unlock()
		return nil, core.ErrDuplicateJob
	}

	t.logger.Info("job submitted", "job_id", jobId.String(), "name", info.Name)
	return fut, nil
}

// Status returns the current phase for jobId.
func (t *JobTracker) Status(jobId core.JobId) (core.Phase, error) {
	meta, err := t.readMeta(jobId)
	if err != nil {
		return "", err
	}
	return meta.Phase, nil
}

// Plan returns the immutable assignment for jobId.
func (t *JobTracker) Plan(jobId core.JobId) (core.Plan, error) {
	meta, err := t.readMeta(jobId)
	if err != nil {
		return nil, err
	}
	return meta.Plan, nil
}

// Progress reports the number of splits and reducers still pending for
// jobId, read straight through from the replicated record.
func (t *JobTracker) Progress(jobId core.JobId) (pendingSplits int, pendingReducers int, err error) {
	meta, err := t.readMeta(jobId)
	if err != nil {
		return 0, 0, err
	}
	return len(meta.PendingSplits), len(meta.PendingReducers), nil
}

// JobSummary is a single row of ListJobs output.
type JobSummary struct {
	JobId core.JobId
	Name  string
	Phase core.Phase
}

// ListJobs returns a page of job summaries, optionally filtered to a single
// phase, ordered by JobId for stable pagination. limit <= 0 means no limit;
// offset beyond the result set returns an empty page rather than an error.
func (t *JobTracker) ListJobs(phase core.Phase, offset, limit int) ([]JobSummary, error) {
	t.gateMu.RLock()
	defer t.gateMu.RUnlock()
	if t.stopped {
		return nil, core.ErrTrackerStopping
	}

	all, err := t.store.Jobs()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].JobId.String() < all[j].JobId.String()
	})

	summaries := make([]JobSummary, 0, len(all))
	for _, meta := range all {
		if phase != "" && meta.Phase != phase {
			continue
		}
		summaries = append(summaries, JobSummary{JobId: meta.JobId, Name: meta.JobInfo.Name, Phase: meta.Phase})
	}

	if offset >= len(summaries) {
		return []JobSummary{}, nil
	}
	summaries = summaries[offset:]
	if limit > 0 && limit < len(summaries) {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// FailCause returns the recorded failure, if any, for jobId.
func (t *JobTracker) FailCause(jobId core.JobId) (error, error) {
	meta, err := t.readMeta(jobId)
	if err != nil {
		return nil, err
	}
	return meta.FailCause, nil
}

// Counters returns the accumulated counters for jobId.
func (t *JobTracker) Counters(jobId core.JobId) (core.Counters, error) {
	meta, err := t.readMeta(jobId)
	if err != nil {
		return nil, err
	}
	return meta.Counters, nil
}

func (t *JobTracker) readMeta(jobId core.JobId) (*core.JobMetadata, error) {
	t.gateMu.RLock()
	defer t.gateMu.RUnlock()
	if t.stopped {
		return nil, core.ErrTrackerStopping
	}
	meta, err := t.store.Get(jobId)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, core.ErrUnknownJob
	}
	return meta, nil
}

// FinishFuture returns a future resolving when jobId reaches COMPLETE. It
// is idempotent: a job already COMPLETE yields a pre-resolved future
// (spec §4.1).
func (t *JobTracker) FinishFuture(jobId core.JobId) (*FinishFuture, error) {
	t.gateMu.RLock()
	defer t.gateMu.RUnlock()
	if t.stopped {
		return nil, core.ErrTrackerStopping
	}

	meta, err := t.store.Get(jobId)
	if err != nil {
		return nil, err
	}
	if meta != nil && meta.Phase == core.PhaseComplete {
		return resolved(jobId, meta.FailCause), nil
	}

	t.finishFutsMu.Lock()
	fut, exists := t.finishFuts[jobId]
	if !exists {
		fut = newFinishFuture(jobId)
		t.finishFuts[jobId] = fut
	}
	t.finishFutsMu.Unlock()

	// A COMPLETE snapshot may have been published between the Get above
	// and the insert; re-read and resolve immediately if so.
	meta, err = t.store.Get(jobId)
	if err == nil && meta != nil && meta.Phase == core.PhaseComplete {
		fut.resolve(meta.FailCause)
	}
	return fut, nil
}

// Kill requests cancellation and waits for the job to finish, returning
// true iff it resolved with a cancellation cause (spec §4.1).
func (t *JobTracker) Kill(ctx context.Context, jobId core.JobId) (bool, error) {
	meta, err := t.readMeta(jobId)
	if err != nil {
		return false, err
	}

	if meta.Phase != core.PhaseComplete && meta.Phase != core.PhaseCancelling {
		t.submitTransform(jobId, transform.CancelJob(core.ErrJobCancelled, nil, nil))
	}

	fut, err := t.FinishFuture(jobId)
	if err != nil {
		return false, err
	}
	_, failCause := fut.Get(ctx)
	return errors.Is(failCause, core.ErrJobCancelled), nil
}

// OnTaskFinished is the callback from TaskExecutor; it may run on any
// goroutine (spec §4.1, §5).
func (t *JobTracker) OnTaskFinished(task core.TaskInfo, status core.TaskStatus, counters core.Counters) {
	// COMMIT/ABORT counters are layered into the COMPLETE transform; every
	// other completed task merges its counters with a transform of its own.
	if status == core.TaskStatusCompleted && len(counters) > 0 &&
		task.Type != core.TaskTypeCommit && task.Type != core.TaskTypeAbort {
		t.submitTransform(task.JobId, transform.IncrementCounters(counters))
	}

	switch task.Type {
	case core.TaskTypeSetup:
		t.onSetupFinished(task, status)
	case core.TaskTypeMap:
		t.onMapFinished(task, status)
	case core.TaskTypeReduce:
		t.onReduceFinished(task, status)
	case core.TaskTypeCombine:
		t.onCombineFinished(task, status)
	case core.TaskTypeCommit, core.TaskTypeAbort:
		t.onCommitOrAbortFinished(task, status, counters)
	}
}

func (t *JobTracker) onSetupFinished(task core.TaskInfo, status core.TaskStatus) {
	if !status.Failed() {
		t.submitTransform(task.JobId, transform.UpdatePhase(core.PhaseMap))
		return
	}
	t.submitTransform(task.JobId, transform.CancelJob(fmt.Errorf("setup task %s", status), nil, nil))
}

func (t *JobTracker) onMapFinished(task core.TaskInfo, status core.TaskStatus) {
	if status.Failed() {
		t.submitTransform(task.JobId, transform.RemoveMappers(
			[]core.InputSplit{task.Split}, fmt.Errorf("map task %s: split %s", status, task.Split.Path)))
		return
	}

	ls, _ := t.getOrCreateLocalState(task.JobId)
	ls.IncrementCompletedMappers()
	if ls.LastMapperFinished() {
		go t.flushThenRemoveMappers(task.JobId, []core.InputSplit{task.Split})
		return
	}
	t.submitTransform(task.JobId, transform.RemoveMappers([]core.InputSplit{task.Split}, nil))
}

func (t *JobTracker) onReduceFinished(task core.TaskInfo, status core.TaskStatus) {
	var err error
	if status.Failed() {
		err = fmt.Errorf("reduce task %s: reducer %d", status, task.Reducer)
	}
	t.submitTransform(task.JobId, transform.RemoveReducer(task.Reducer, err))
}

func (t *JobTracker) onCombineFinished(task core.TaskInfo, status core.TaskStatus) {
	ls, _ := t.getOrCreateLocalState(task.JobId)
	splits := ls.ScheduledMappers()

	if status.Failed() {
		t.submitTransform(task.JobId, transform.RemoveMappers(splits, fmt.Errorf("combine task %s", status)))
		return
	}
	go t.flushThenRemoveMappers(task.JobId, splits)
}

func (t *JobTracker) flushThenRemoveMappers(jobId core.JobId, splits []core.InputSplit) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var flushErr error
	select {
	case flushErr = <-t.shuffle.Flush(ctx, jobId):
	case <-ctx.Done():
		flushErr = ctx.Err()
	}
	t.submitTransform(jobId, transform.RemoveMappers(splits, flushErr))
}

func (t *JobTracker) onCommitOrAbortFinished(task core.TaskInfo, status core.TaskStatus, counters core.Counters) {
	ttl := time.Duration(t.runtimeCtx.FinishedJobInfoTTL()) * time.Second

	fn := transform.UpdatePhase(core.PhaseComplete)
	if status == core.TaskStatusCompleted {
		fn = transform.Stack(transform.IncrementCounters(counters), fn)
	}
	fn = transform.Stack(fn, transform.StampTTL(ttl))
	t.submitTransform(task.JobId, fn)
}

// OnExternalMappersInitialized merges the process descriptor for a set of
// externally-hosted reducers into the replicated record (spec §4.1).
func (t *JobTracker) OnExternalMappersInitialized(jobId core.JobId, reducers []int, desc core.ProcessDescriptor) {
	t.submitTransform(jobId, transform.InitializeReducers(reducers, desc))
}

// submitTransform submits fn asynchronously; per spec §5 the caller never
// awaits the result, only a logging listener observes it.
func (t *JobTracker) submitTransform(jobId core.JobId, fn transform.Func) {
	ch := t.store.Transform(context.Background(), jobId, store.TransformFunc(fn))
	go func() {
		if err := <-ch; err != nil {
			t.logger.Error("transform failed", "job_id", jobId.String(), "error", err)
		}
	}()
}

func (t *JobTracker) getOrCreateLocalState(jobId core.JobId) (*localstate.LocalJobState, bool) {
	t.localStatesMu.Lock()
	defer t.localStatesMu.Unlock()
	ls, exists := t.localStates[jobId]
	if exists {
		return ls, false
	}
	ls = localstate.New()
	t.localStates[jobId] = ls
	return ls, true
}

func (t *JobTracker) getLocalState(jobId core.JobId) (*localstate.LocalJobState, bool) {
	t.localStatesMu.Lock()
	defer t.localStatesMu.Unlock()
	ls, exists := t.localStates[jobId]
	return ls, exists
}

func (t *JobTracker) removeLocalState(jobId core.JobId) {
	t.localStatesMu.Lock()
	defer t.localStatesMu.Unlock()
	delete(t.localStates, jobId)
}
