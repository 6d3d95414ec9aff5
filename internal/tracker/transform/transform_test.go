package transform

import (
	"errors"
	"testing"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

type fakePlan struct {
	mapperNode core.NodeId
	splits     map[core.InputSplit]struct{}
	reducerCnt int
}

func (p *fakePlan) MapperNodeIds() []core.NodeId { return []core.NodeId{p.mapperNode} }
func (p *fakePlan) Mappers(nodeId core.NodeId) map[core.InputSplit]struct{} {
	if nodeId != p.mapperNode {
		return nil
	}
	return p.splits
}
func (p *fakePlan) ReducerNodeIds() []core.NodeId        { return []core.NodeId{p.mapperNode} }
func (p *fakePlan) Reducers(nodeId core.NodeId) []int    { return nil }
func (p *fakePlan) ReducerCount() int                    { return p.reducerCnt }
func (p *fakePlan) TaskNumber(split core.InputSplit) int { return 0 }

func newTestMetadata() *core.JobMetadata {
	split := core.InputSplit{Path: "/data/a.txt"}
	node := core.NewNodeId()
	plan := &fakePlan{
		mapperNode: node,
		splits:     map[core.InputSplit]struct{}{split: {}},
		reducerCnt: 2,
	}
	return core.NewJobMetadata(core.NewJobId(), node, core.JobInfo{Name: "wordcount"}, plan)
}

func TestUpdatePhase_StampsSetupCompleteOnMap(t *testing.T) {
	m := newTestMetadata()
	out := UpdatePhase(core.PhaseMap)(m)
	if out.Phase != core.PhaseMap {
		t.Fatalf("expected phase MAP, got %s", out.Phase)
	}
	if out.Timestamps.SetupCompleteAt == nil {
		t.Fatal("expected SetupCompleteAt to be stamped")
	}
	if m.Phase != core.PhaseSetup {
		t.Fatal("UpdatePhase must not mutate the input in place")
	}
}

func TestUpdatePhase_StampsCompleteOnComplete(t *testing.T) {
	m := newTestMetadata()
	out := UpdatePhase(core.PhaseComplete)(m)
	if out.Timestamps.CompleteAt == nil {
		t.Fatal("expected CompleteAt to be stamped")
	}
}

func TestRemoveMappers_TransitionsToReduceWhenEmpty(t *testing.T) {
	m := newTestMetadata()
	split := core.InputSplit{Path: "/data/a.txt"}

	out := RemoveMappers([]core.InputSplit{split}, nil)(m)
	if len(out.PendingSplits) != 0 {
		t.Fatal("expected split to be removed")
	}
	if out.Phase != core.PhaseReduce {
		t.Fatalf("expected phase REDUCE, got %s", out.Phase)
	}
	if out.Timestamps.MapCompleteAt == nil {
		t.Fatal("expected MapCompleteAt to be stamped")
	}
}

func TestRemoveMappers_FailureTransitionsToCancelling(t *testing.T) {
	m := newTestMetadata()
	split := core.InputSplit{Path: "/data/a.txt"}
	failCause := errors.New("mapper crashed")

	out := RemoveMappers([]core.InputSplit{split}, failCause)(m)
	if out.Phase != core.PhaseCancelling {
		t.Fatalf("expected phase CANCELLING, got %s", out.Phase)
	}
	if !errors.Is(out.FailCause, failCause) {
		t.Fatal("expected failCause to be recorded")
	}
}

func TestRemoveMappers_NilInputReturnsNil(t *testing.T) {
	out := RemoveMappers(nil, nil)(nil)
	if out != nil {
		t.Fatal("expected nil old to produce nil new")
	}
}

func TestRemoveReducer_FailureTransitionsToCancelling(t *testing.T) {
	m := newTestMetadata()
	failCause := errors.New("reducer crashed")

	out := RemoveReducer(0, failCause)(m)
	if _, pending := out.PendingReducers[0]; pending {
		t.Fatal("expected reducer 0 to be removed from pending set")
	}
	if out.Phase != core.PhaseCancelling {
		t.Fatalf("expected phase CANCELLING, got %s", out.Phase)
	}
}

func TestInitializeReducers_MergesAddresses(t *testing.T) {
	m := newTestMetadata()
	desc := core.ProcessDescriptor{NodeId: core.NewNodeId(), Address: "10.0.0.1:9000"}

	out := InitializeReducers([]int{0, 1}, desc)(m)
	if out.ReducerAddresses[0] != desc || out.ReducerAddresses[1] != desc {
		t.Fatal("expected both reducers to receive the descriptor")
	}
}

func TestCancelJob_RemovesGivenSplitsAndReducers(t *testing.T) {
	m := newTestMetadata()
	split := core.InputSplit{Path: "/data/a.txt"}
	failCause := errors.New("participant lost")

	out := CancelJob(failCause, []core.InputSplit{split}, []int{0})(m)
	if out.Phase != core.PhaseCancelling {
		t.Fatalf("expected phase CANCELLING, got %s", out.Phase)
	}
	if !errors.Is(out.FailCause, failCause) {
		t.Fatal("expected failCause to be recorded")
	}
	if len(out.PendingSplits) != 0 {
		t.Fatal("expected split to be removed")
	}
	if _, pending := out.PendingReducers[0]; pending {
		t.Fatal("expected reducer 0 to be removed")
	}
}

func TestIncrementCounters_MergesWithoutMutatingOriginal(t *testing.T) {
	m := newTestMetadata()
	m.Counters = core.Counters{"records": 1}

	out := IncrementCounters(core.Counters{"records": 4})(m)
	if out.Counters["records"] != 5 {
		t.Fatalf("expected merged counter 5, got %d", out.Counters["records"])
	}
	if m.Counters["records"] != 1 {
		t.Fatal("IncrementCounters must not mutate the input in place")
	}
}

func TestStampTTL_SetsFutureDeadline(t *testing.T) {
	m := newTestMetadata()
	out := StampTTL(0)(m)
	if out.TTL.IsZero() {
		t.Fatal("expected TTL to be set")
	}
}

func TestStack_ComposesPredThenNext(t *testing.T) {
	m := newTestMetadata()
	split := core.InputSplit{Path: "/data/a.txt"}

	fn := Stack(IncrementCounters(core.Counters{"records": 1}), RemoveMappers([]core.InputSplit{split}, nil))
	out := fn(m)
	if out.Counters["records"] != 1 {
		t.Fatal("expected pred's counter increment to have applied")
	}
	if out.Phase != core.PhaseReduce {
		t.Fatal("expected next's phase transition to have applied on top of pred's result")
	}
}

func TestStack_NilPredIsJustNext(t *testing.T) {
	m := newTestMetadata()
	fn := Stack(nil, UpdatePhase(core.PhaseMap))
	out := fn(m)
	if out.Phase != core.PhaseMap {
		t.Fatal("expected Stack(nil, next) to behave as next alone")
	}
}
