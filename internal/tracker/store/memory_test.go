package store

import (
	"context"
	"testing"
	"time"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

type stubPlan struct{}

func (stubPlan) MapperNodeIds() []core.NodeId                            { return nil }
func (stubPlan) Mappers(nodeId core.NodeId) map[core.InputSplit]struct{} { return nil }
func (stubPlan) ReducerNodeIds() []core.NodeId                           { return nil }
func (stubPlan) Reducers(nodeId core.NodeId) []int                      { return nil }
func (stubPlan) ReducerCount() int                                      { return 0 }
func (stubPlan) TaskNumber(split core.InputSplit) int                   { return 0 }

func newStoreTestMetadata() *core.JobMetadata {
	return core.NewJobMetadata(core.NewJobId(), core.NewNodeId(), core.JobInfo{Name: "wordcount"}, stubPlan{})
}

func TestPutIfAbsent_RejectsDuplicate(t *testing.T) {
	s := NewInMemoryStore()
	meta := newStoreTestMetadata()

	inserted, err := s.PutIfAbsent(meta)
	if err != nil || !inserted {
		t.Fatalf("expected first PutIfAbsent to succeed, got inserted=%v err=%v", inserted, err)
	}

	inserted, err = s.PutIfAbsent(meta)
	if err != nil || inserted {
		t.Fatalf("expected duplicate PutIfAbsent to report not-inserted, got inserted=%v err=%v", inserted, err)
	}
}

func TestGet_ReturnsClone(t *testing.T) {
	s := NewInMemoryStore()
	meta := newStoreTestMetadata()
	s.PutIfAbsent(meta)

	got, err := s.Get(meta.JobId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.Phase = core.PhaseComplete

	again, _ := s.Get(meta.JobId)
	if again.Phase == core.PhaseComplete {
		t.Fatal("mutating a Get result must not affect the stored record")
	}
}

func TestGet_UnknownJobReturnsNil(t *testing.T) {
	s := NewInMemoryStore()
	got, err := s.Get(core.NewJobId())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for unknown job")
	}
}

func TestGet_EvictsExpiredTTL(t *testing.T) {
	s := NewInMemoryStore()
	meta := newStoreTestMetadata()
	meta.TTL = time.Now().UTC().Add(-time.Second)
	s.PutIfAbsent(meta)

	got, err := s.Get(meta.JobId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatal("expected expired record to be evicted")
	}
}

func TestTransform_AppliesFuncAndPublishes(t *testing.T) {
	s := NewInMemoryStore()
	meta := newStoreTestMetadata()
	s.PutIfAbsent(meta)

	var notified *core.JobMetadata
	unsubscribe := s.Subscribe(func(m *core.JobMetadata) { notified = m })
	defer unsubscribe()

	errCh := s.Transform(context.Background(), meta.JobId, func(old *core.JobMetadata) *core.JobMetadata {
		old.Phase = core.PhaseMap
		return old
	})
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected transform error: %v", err)
	}

	got, _ := s.Get(meta.JobId)
	if got.Phase != core.PhaseMap {
		t.Fatalf("expected phase MAP after transform, got %s", got.Phase)
	}
	if notified == nil || notified.Phase != core.PhaseMap {
		t.Fatal("expected subscriber to be notified of the new phase")
	}
}

func TestTransform_NilResultDeletesRecord(t *testing.T) {
	s := NewInMemoryStore()
	meta := newStoreTestMetadata()
	s.PutIfAbsent(meta)

	errCh := s.Transform(context.Background(), meta.JobId, func(old *core.JobMetadata) *core.JobMetadata {
		return nil
	})
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected transform error: %v", err)
	}

	got, _ := s.Get(meta.JobId)
	if got != nil {
		t.Fatal("expected record to be deleted")
	}
}

func TestSubscribe_UnsubscribeStopsNotifications(t *testing.T) {
	s := NewInMemoryStore()
	meta := newStoreTestMetadata()

	calls := 0
	unsubscribe := s.Subscribe(func(m *core.JobMetadata) { calls++ })
	unsubscribe()

	s.PutIfAbsent(meta)
	if calls != 0 {
		t.Fatalf("expected no notifications after unsubscribe, got %d", calls)
	}
}

func TestJobs_ListsAllNonEvictedRecords(t *testing.T) {
	s := NewInMemoryStore()
	a := newStoreTestMetadata()
	b := newStoreTestMetadata()
	expired := newStoreTestMetadata()
	expired.TTL = time.Now().UTC().Add(-time.Second)

	s.PutIfAbsent(a)
	s.PutIfAbsent(b)
	s.PutIfAbsent(expired)

	jobs, err := s.Jobs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 non-expired jobs, got %d", len(jobs))
	}
}
