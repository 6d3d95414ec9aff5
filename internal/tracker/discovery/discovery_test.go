package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

func TestJoin_MakesNodeLive(t *testing.T) {
	d := NewHeartbeatDiscovery(time.Minute)
	node := core.NewNodeId()
	d.Join(node)

	live := d.LiveNodes()
	if len(live) != 1 || live[0] != node {
		t.Fatalf("expected node to be live, got %v", live)
	}
}

func TestLeave_PublishesNodeLeft(t *testing.T) {
	d := NewHeartbeatDiscovery(time.Minute)
	node := core.NewNodeId()
	d.Join(node)

	var got *Event
	d.Subscribe(func(evt Event) { got = &evt })
	d.Leave(node)

	if got == nil || got.Kind != NodeLeft || got.NodeId != node {
		t.Fatalf("expected NodeLeft event for %s, got %+v", node, got)
	}
	if len(d.LiveNodes()) != 0 {
		t.Fatal("expected node to be removed from live set")
	}
}

func TestLeave_UnknownNodeIsNoop(t *testing.T) {
	d := NewHeartbeatDiscovery(time.Minute)

	called := false
	d.Subscribe(func(Event) { called = true })
	d.Leave(core.NewNodeId())

	if called {
		t.Fatal("expected no event for a node that was never live")
	}
}

func TestSweep_PublishesNodeFailedForStaleNodes(t *testing.T) {
	d := NewHeartbeatDiscovery(time.Minute)
	node := core.NewNodeId()
	d.Join(node)

	now := time.Now()
	d.clock = func() time.Time { return now.Add(2 * time.Minute) }

	var got *Event
	d.Subscribe(func(evt Event) { got = &evt })
	d.sweep()

	if got == nil || got.Kind != NodeFailed || got.NodeId != node {
		t.Fatalf("expected NodeFailed event for %s, got %+v", node, got)
	}
	if len(d.LiveNodes()) != 0 {
		t.Fatal("expected stale node to be removed from live set")
	}
}

func TestSweep_LeavesFreshNodesAlone(t *testing.T) {
	d := NewHeartbeatDiscovery(time.Minute)
	node := core.NewNodeId()
	d.Join(node)

	called := false
	d.Subscribe(func(Event) { called = true })
	d.sweep()

	if called {
		t.Fatal("expected no event for a node heartbeating within the stale timeout")
	}
	if len(d.LiveNodes()) != 1 {
		t.Fatal("expected fresh node to remain live")
	}
}

func TestHeartbeat_RefreshesDeadline(t *testing.T) {
	d := NewHeartbeatDiscovery(time.Minute)
	node := core.NewNodeId()

	base := time.Now()
	tick := base
	d.clock = func() time.Time { return tick }

	d.Join(node)
	tick = base.Add(90 * time.Second)
	d.Heartbeat(node)
	tick = base.Add(100 * time.Second)

	called := false
	d.Subscribe(func(Event) { called = true })
	d.sweep()

	if called {
		t.Fatal("expected heartbeat to have pushed the deadline forward")
	}
}

func TestSubscribe_UnsubscribeStopsEvents(t *testing.T) {
	d := NewHeartbeatDiscovery(time.Minute)
	node := core.NewNodeId()
	d.Join(node)

	calls := 0
	unsubscribe := d.Subscribe(func(Event) { calls++ })
	unsubscribe()
	d.Leave(node)

	if calls != 0 {
		t.Fatalf("expected no notifications after unsubscribe, got %d", calls)
	}
}

func TestRun_StopsWhenContextCancelled(t *testing.T) {
	d := NewHeartbeatDiscovery(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		d.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after context cancellation")
	}
}
