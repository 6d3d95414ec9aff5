package core

import "github.com/google/uuid"

// JobId globally and uniquely identifies a submitted map/reduce job.
type JobId uuid.UUID

func NewJobId() JobId {
	return JobId(uuid.New())
}

func (id JobId) String() string {
	return uuid.UUID(id).String()
}

// NodeId identifies a participant in the cluster.
type NodeId uuid.UUID

func NewNodeId() NodeId {
	return NodeId(uuid.New())
}

func (id NodeId) String() string {
	return uuid.UUID(id).String()
}
