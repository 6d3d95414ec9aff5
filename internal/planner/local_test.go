package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

func writeTempFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("content"), 0o644); err != nil {
			t.Fatalf("failed to write temp file: %v", err)
		}
	}
	return dir
}

func TestPlan_RejectsEmptyLiveNodes(t *testing.T) {
	p := NewLocalPlanner()
	_, err := p.Plan(nil, core.JobInfo{}, nil)
	if err == nil {
		t.Fatal("expected an error when no live nodes are supplied")
	}
}

func TestPlan_RejectsNoMatchingInput(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalPlanner()
	info := core.JobInfo{Input: core.InputConfig{Paths: []string{filepath.Join(dir, "*.missing")}}}

	_, err := p.Plan(nil, info, []core.NodeId{core.NewNodeId()})
	if err == nil {
		t.Fatal("expected an error when no splits match the input patterns")
	}
}

func TestPlan_AssignsSplitsRoundRobinAcrossLiveNodes(t *testing.T) {
	dir := writeTempFiles(t, "a.txt", "b.txt", "c.txt")
	p := NewLocalPlanner()
	info := core.JobInfo{
		Input:  core.InputConfig{Paths: []string{filepath.Join(dir, "*.txt")}},
		Config: core.JobRunConfig{NumReducers: 2},
	}
	nodeA, nodeB := core.NewNodeId(), core.NewNodeId()

	plan, err := p.Plan(nil, info, []core.NodeId{nodeA, nodeB})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := 0
	for _, nodeId := range plan.MapperNodeIds() {
		total += len(plan.Mappers(nodeId))
	}
	if total != 3 {
		t.Fatalf("expected 3 splits total across mapper nodes, got %d", total)
	}
	if plan.ReducerCount() != 2 {
		t.Fatalf("expected reducer count 2, got %d", plan.ReducerCount())
	}

	reducerTotal := 0
	for _, nodeId := range plan.ReducerNodeIds() {
		reducerTotal += len(plan.Reducers(nodeId))
	}
	if reducerTotal != 2 {
		t.Fatalf("expected 2 reducers assigned in total, got %d", reducerTotal)
	}
}

func TestPlan_TaskNumbersAreStableAndDistinct(t *testing.T) {
	dir := writeTempFiles(t, "a.txt", "b.txt")
	p := NewLocalPlanner()
	info := core.JobInfo{
		Input:  core.InputConfig{Paths: []string{filepath.Join(dir, "*.txt")}},
		Config: core.JobRunConfig{NumReducers: 1},
	}

	plan, err := p.Plan(nil, info, []core.NodeId{core.NewNodeId()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[int]bool)
	for _, nodeId := range plan.MapperNodeIds() {
		for split := range plan.Mappers(nodeId) {
			n := plan.TaskNumber(split)
			if seen[n] {
				t.Fatalf("task number %d assigned to more than one split", n)
			}
			seen[n] = true
		}
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 distinct task numbers, got %d", len(seen))
	}
}
