package tracker

import (
	"github.com/nemanja-m/gomr/internal/tracker/core"
	"github.com/nemanja-m/gomr/internal/tracker/discovery"
	"github.com/nemanja-m/gomr/internal/tracker/transform"
)

// onMetadataUpdate is the EventLoop body for a MetadataStore notification
// (spec §4.2, §4.4). It always forwards the snapshot to the TaskExecutor
// (the open question in spec §9 assumes this is safe to do on repeats),
// then materializes this node's local slice of work for the job's current
// phase.
func (t *JobTracker) onMetadataUpdate(meta *core.JobMetadata) {
	if meta == nil {
		return
	}

	t.executor.OnJobStateChanged(meta)

	if !t.runtimeCtx.IsParticipating(meta) {
		return
	}

	switch meta.Phase {
	case core.PhaseSetup:
		t.dispatchSetup(meta)
	case core.PhaseMap:
		t.dispatchMap(meta)
	case core.PhaseReduce:
		t.dispatchReduce(meta)
	case core.PhaseCancelling:
		t.dispatchCancelling(meta)
	case core.PhaseComplete:
		t.dispatchComplete(meta)
	}
}

func (t *JobTracker) dispatchSetup(meta *core.JobMetadata) {
	if !t.runtimeCtx.JobUpdateLeader() {
		return
	}
	_, created := t.getOrCreateLocalState(meta.JobId)
	if !created {
		return
	}
	t.executor.Run(meta.JobId, []core.TaskInfo{{Type: core.TaskTypeSetup, JobId: meta.JobId}})
}

func (t *JobTracker) dispatchMap(meta *core.JobMetadata) {
	ls, _ := t.getOrCreateLocalState(meta.JobId)
	local := t.runtimeCtx.LocalNodeId()

	var tasks []core.TaskInfo
	for split := range meta.Plan.Mappers(local) {
		if !ls.TryScheduleMapper(split) {
			continue
		}
		tasks = append(tasks, core.TaskInfo{
			Type:       core.TaskTypeMap,
			JobId:      meta.JobId,
			TaskNumber: meta.Plan.TaskNumber(split),
			Split:      split,
		})
	}
	if len(tasks) > 0 {
		t.executor.Run(meta.JobId, tasks)
	}
}

func (t *JobTracker) dispatchReduce(meta *core.JobMetadata) {
	ls, _ := t.getOrCreateLocalState(meta.JobId)

	if len(meta.PendingReducers) == 0 {
		if t.runtimeCtx.JobUpdateLeader() && ls.OnCommit() {
			t.executor.Run(meta.JobId, []core.TaskInfo{{Type: core.TaskTypeCommit, JobId: meta.JobId}})
		}
		return
	}

	local := t.runtimeCtx.LocalNodeId()
	var tasks []core.TaskInfo
	for _, rdc := range meta.Plan.Reducers(local) {
		if !ls.TryScheduleReducer(rdc) {
			continue
		}
		tasks = append(tasks, core.TaskInfo{Type: core.TaskTypeReduce, JobId: meta.JobId, Reducer: rdc})
	}
	if len(tasks) > 0 {
		t.executor.Run(meta.JobId, tasks)
	}
}

func (t *JobTracker) dispatchCancelling(meta *core.JobMetadata) {
	ls, _ := t.getOrCreateLocalState(meta.JobId)

	if ls.OnCancel() {
		t.executor.CancelTasks(meta.JobId)
	}

	if len(meta.PendingSplits) == 0 && len(meta.PendingReducers) == 0 {
		if t.runtimeCtx.JobUpdateLeader() && ls.OnAborted() {
			t.executor.Run(meta.JobId, []core.TaskInfo{{Type: core.TaskTypeAbort, JobId: meta.JobId}})
		}
		return
	}

	local := t.runtimeCtx.LocalNodeId()

	var unscheduledSplits []core.InputSplit
	for split := range meta.Plan.Mappers(local) {
		if _, pending := meta.PendingSplits[split]; !pending {
			continue
		}
		if !ls.IsMapperScheduled(split) {
			unscheduledSplits = append(unscheduledSplits, split)
		}
	}

	var unscheduledReducers []int
	for _, rdc := range meta.Plan.Reducers(local) {
		if _, pending := meta.PendingReducers[rdc]; !pending {
			continue
		}
		if !ls.IsReducerScheduled(rdc) {
			unscheduledReducers = append(unscheduledReducers, rdc)
		}
	}

	if len(unscheduledSplits) > 0 || len(unscheduledReducers) > 0 {
		// Phase is already CANCELLING, so no failCause is attached here;
		// this only forces the replicated pending sets to converge.
		t.submitTransform(meta.JobId, transform.CancelJob(nil, unscheduledSplits, unscheduledReducers))
	}
}

func (t *JobTracker) dispatchComplete(meta *core.JobMetadata) {
	t.removeLocalState(meta.JobId)
	t.shuffle.JobFinished(meta.JobId)

	t.finishFutsMu.Lock()
	fut, exists := t.finishFuts[meta.JobId]
	delete(t.finishFuts, meta.JobId)
	t.finishFutsMu.Unlock()
	if exists {
		fut.resolve(meta.FailCause)
	}

	if t.runtimeCtx.JobUpdateLeader() {
		if job, ok := t.registry.Get(meta.JobId); ok && job != nil {
			if err := job.CleanupStagingDirectory(); err != nil {
				t.logger.Error("failed to clean up staging directory", "job_id", meta.JobId.String(), "error", err)
			}
		}
	}
	if err := t.registry.Remove(meta.JobId, false); err != nil {
		t.logger.Error("failed to dispose job", "job_id", meta.JobId.String(), "error", err)
	}
}

// onDiscoveryEvent is the EventLoop body for a node-left/node-failed
// notification (spec §4.6). Only the update leader acts; it scans every
// job in the store and prunes any mappers/reducers assigned to nodes that
// are no longer live, or fails SETUP over to itself.
func (t *JobTracker) onDiscoveryEvent(evt discovery.Event) {
	if !t.runtimeCtx.JobUpdateLeader() {
		return
	}

	jobs, err := t.store.Jobs()
	if err != nil {
		t.logger.Error("failed to enumerate jobs for node-left recovery", "error", err)
		return
	}

	live := make(map[core.NodeId]struct{})
	for _, id := range t.discovery.LiveNodes() {
		live[id] = struct{}{}
	}

	for _, meta := range jobs {
		switch meta.Phase {
		case core.PhaseSetup:
			t.recoverSetup(meta, evt)
		case core.PhaseMap, core.PhaseReduce:
			t.recoverOrphans(meta, live, evt)
		}
	}
}

func (t *JobTracker) recoverSetup(meta *core.JobMetadata, evt discovery.Event) {
	if _, exists := t.getLocalState(meta.JobId); exists {
		return
	}
	if _, created := t.getOrCreateLocalState(meta.JobId); !created {
		return
	}
	t.logger.Info("failing over SETUP after node departure",
		"job_id", meta.JobId.String(), "departed_node", evt.NodeId.String())
	t.executor.Run(meta.JobId, []core.TaskInfo{{Type: core.TaskTypeSetup, JobId: meta.JobId}})
}

func (t *JobTracker) recoverOrphans(meta *core.JobMetadata, live map[core.NodeId]struct{}, evt discovery.Event) {
	var orphanSplits []core.InputSplit
	for _, nodeId := range meta.Plan.MapperNodeIds() {
		if _, ok := live[nodeId]; ok {
			continue
		}
		for split := range meta.Plan.Mappers(nodeId) {
			if _, pending := meta.PendingSplits[split]; pending {
				orphanSplits = append(orphanSplits, split)
			}
		}
	}

	var orphanReducers []int
	for _, nodeId := range meta.Plan.ReducerNodeIds() {
		if _, ok := live[nodeId]; ok {
			continue
		}
		for _, rdc := range meta.Plan.Reducers(nodeId) {
			if _, pending := meta.PendingReducers[rdc]; pending {
				orphanReducers = append(orphanReducers, rdc)
			}
		}
	}

	if len(orphanSplits) == 0 && len(orphanReducers) == 0 {
		return
	}

	t.logger.Info("pruning orphaned work after node departure",
		"job_id", meta.JobId.String(),
		"departed_node", evt.NodeId.String(),
		"orphan_splits", len(orphanSplits),
		"orphan_reducers", len(orphanReducers),
	)
	t.submitTransform(meta.JobId, transform.CancelJob(core.ErrParticipantLost, orphanSplits, orphanReducers))
}
