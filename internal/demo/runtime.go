package demo

import (
	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// SingleNodeRuntime is a RuntimeContext for a one-node cluster: the local
// node always participates, and whether it is the update leader is the
// flag passed to NewSingleNodeRuntime. Multi-node
// leader election is delegated to the surrounding runtime (spec §4.4
// design note) and is out of scope for this demo wiring.
type SingleNodeRuntime struct {
	localNodeId        core.NodeId
	updateLeader       bool
	finishedJobInfoTTL int64
}

func NewSingleNodeRuntime(localNodeId core.NodeId, updateLeader bool, finishedJobInfoTTLSeconds int64) *SingleNodeRuntime {
	return &SingleNodeRuntime{localNodeId: localNodeId, updateLeader: updateLeader, finishedJobInfoTTL: finishedJobInfoTTLSeconds}
}

func (r *SingleNodeRuntime) LocalNodeId() core.NodeId {
	return r.localNodeId
}

func (r *SingleNodeRuntime) JobUpdateLeader() bool {
	return r.updateLeader
}

func (r *SingleNodeRuntime) IsParticipating(meta *core.JobMetadata) bool {
	return true
}

func (r *SingleNodeRuntime) FinishedJobInfoTTL() int64 {
	return r.finishedJobInfoTTL
}
