// Package collab declares the collaborator contracts the job tracker
// depends on but does not implement (spec §1, §6): Planner, TaskExecutor,
// Shuffle, and RuntimeContext. Concrete instances are supplied by the
// process entry point (cmd/trackernode).
package collab

import (
	"context"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// Job is the runtime object materialized once per JobId (spec §3). Its
// construction and disposal are owned by the JobRegistry.
type Job interface {
	Id() core.JobId
	Initialize(localNodeId core.NodeId) error
	Dispose(interrupt bool) error
	CleanupStagingDirectory() error
}

// Planner produces a Plan from a job and the currently live node set.
type Planner interface {
	Plan(job Job, jobInfo core.JobInfo, liveNodes []core.NodeId) (core.Plan, error)
}

// TaskExecutor runs setup/map/reduce/combine/commit/abort tasks and
// receives every metadata snapshot so it can observe progress.
type TaskExecutor interface {
	Run(job core.JobId, tasks []core.TaskInfo)
	CancelTasks(job core.JobId)
	OnJobStateChanged(meta *core.JobMetadata)
}

// Shuffle hands off intermediate map output to reducers.
type Shuffle interface {
	Flush(ctx context.Context, job core.JobId) <-chan error
	JobFinished(job core.JobId)
}

// RuntimeContext exposes facts about the local node and cluster that the
// tracker needs but does not own: identity, leader election outcome,
// participation test, and configuration.
type RuntimeContext interface {
	LocalNodeId() core.NodeId
	JobUpdateLeader() bool
	IsParticipating(meta *core.JobMetadata) bool
	FinishedJobInfoTTL() (seconds int64)
}
