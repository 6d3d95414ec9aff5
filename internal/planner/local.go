// Package planner provides a default, local-filesystem Planner: it expands
// glob input patterns into input splits and assigns splits and reducer
// indices across every live node (spec §6 Planner.Plan).
package planner

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nemanja-m/gomr/internal/tracker/collab"
	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// LocalPlanner expands glob patterns against the local filesystem into
// InputSplits, then assigns them round-robin across the supplied live
// nodes. It is meant for single-machine demos and tests, not production
// multi-node clusters (the real split-to-node assignment is cluster and
// storage-layout specific, spec §1 non-goals).
type LocalPlanner struct{}

func NewLocalPlanner() *LocalPlanner {
	return &LocalPlanner{}
}

func (p *LocalPlanner) Plan(job collab.Job, info core.JobInfo, liveNodes []core.NodeId) (core.Plan, error) {
	if len(liveNodes) == 0 {
		return nil, fmt.Errorf("planner: no live nodes to assign work to")
	}

	splits, err := expandSplits(info.Input.Paths)
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	if len(splits) == 0 {
		return nil, fmt.Errorf("planner: no input splits matched %v", info.Input.Paths)
	}

	plan := &staticPlan{
		mapperNodes:  make(map[core.NodeId]map[core.InputSplit]struct{}),
		reducerNodes: make(map[core.NodeId][]int),
		taskNumbers:  make(map[core.InputSplit]int),
		reducerCount: info.Config.NumReducers,
	}

	for i, split := range splits {
		node := liveNodes[i%len(liveNodes)]
		if plan.mapperNodes[node] == nil {
			plan.mapperNodes[node] = make(map[core.InputSplit]struct{})
		}
		plan.mapperNodes[node][split] = struct{}{}
		plan.taskNumbers[split] = i
	}

	for r := 0; r < info.Config.NumReducers; r++ {
		node := liveNodes[r%len(liveNodes)]
		plan.reducerNodes[node] = append(plan.reducerNodes[node], r)
	}

	return plan, nil
}

// expandSplits mirrors FindLocalFiles's doublestar.FilepathGlob + Lstat
// filtering, but returns whole-file InputSplits (offset/length splitting
// within a file is a storage-format concern out of scope here).
func expandSplits(patterns []string) ([]core.InputSplit, error) {
	var splits []core.InputSplit
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, err
		}
		for _, name := range matches {
			info, err := os.Lstat(name)
			if err != nil {
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			splits = append(splits, core.InputSplit{Path: name, Offset: 0, Length: info.Size()})
		}
	}
	return splits, nil
}

type staticPlan struct {
	mapperNodes  map[core.NodeId]map[core.InputSplit]struct{}
	reducerNodes map[core.NodeId][]int
	taskNumbers  map[core.InputSplit]int
	reducerCount int
}

func (p *staticPlan) MapperNodeIds() []core.NodeId {
	ids := make([]core.NodeId, 0, len(p.mapperNodes))
	for id := range p.mapperNodes {
		ids = append(ids, id)
	}
	return ids
}

func (p *staticPlan) Mappers(nodeId core.NodeId) map[core.InputSplit]struct{} {
	return p.mapperNodes[nodeId]
}

func (p *staticPlan) ReducerNodeIds() []core.NodeId {
	ids := make([]core.NodeId, 0, len(p.reducerNodes))
	for id := range p.reducerNodes {
		ids = append(ids, id)
	}
	return ids
}

func (p *staticPlan) Reducers(nodeId core.NodeId) []int {
	return p.reducerNodes[nodeId]
}

func (p *staticPlan) ReducerCount() int {
	return p.reducerCount
}

func (p *staticPlan) TaskNumber(split core.InputSplit) int {
	return p.taskNumbers[split]
}
