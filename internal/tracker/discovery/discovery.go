// Package discovery declares the cluster-membership contract (spec §6) and
// a ticker-driven implementation that sweeps stale nodes and publishes a
// NodeLeft/NodeFailed event for each, so the job tracker's EventLoop can
// react per spec §4.6.
package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// EventKind distinguishes a graceful departure from a detected failure.
type EventKind int

const (
	NodeLeft EventKind = iota
	NodeFailed
)

type Event struct {
	Kind   EventKind
	NodeId core.NodeId
}

// Discovery exposes live cluster membership and subscribes to changes.
type Discovery interface {
	LiveNodes() []core.NodeId
	Subscribe(cb func(Event)) (unsubscribe func())
}

// HeartbeatDiscovery tracks node liveness via explicit heartbeats and
// periodically sweeps for nodes that have gone stale, mirroring
// WorkerHealthChecker.removeStaleWorkers but emitting events instead of
// mutating a worker store directly.
type HeartbeatDiscovery struct {
	mu            sync.Mutex
	lastHeartbeat map[core.NodeId]time.Time

	staleTimeout time.Duration

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSubID   int

	clock func() time.Time
}

func NewHeartbeatDiscovery(staleTimeout time.Duration) *HeartbeatDiscovery {
	return &HeartbeatDiscovery{
		lastHeartbeat: make(map[core.NodeId]time.Time),
		staleTimeout:  staleTimeout,
		subscribers:   make(map[int]func(Event)),
		clock:         time.Now,
	}
}

// Join registers nodeId as live, recording its first heartbeat.
func (d *HeartbeatDiscovery) Join(nodeId core.NodeId) {
	d.mu.Lock()
	d.lastHeartbeat[nodeId] = d.clock()
	d.mu.Unlock()
}

// Heartbeat refreshes nodeId's liveness deadline.
func (d *HeartbeatDiscovery) Heartbeat(nodeId core.NodeId) {
	d.mu.Lock()
	if _, ok := d.lastHeartbeat[nodeId]; ok {
		d.lastHeartbeat[nodeId] = d.clock()
	}
	d.mu.Unlock()
}

// Leave immediately and gracefully removes nodeId, publishing NodeLeft.
func (d *HeartbeatDiscovery) Leave(nodeId core.NodeId) {
	d.mu.Lock()
	_, existed := d.lastHeartbeat[nodeId]
	delete(d.lastHeartbeat, nodeId)
	d.mu.Unlock()

	if existed {
		d.publish(Event{Kind: NodeLeft, NodeId: nodeId})
	}
}

func (d *HeartbeatDiscovery) LiveNodes() []core.NodeId {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes := make([]core.NodeId, 0, len(d.lastHeartbeat))
	for id := range d.lastHeartbeat {
		nodes = append(nodes, id)
	}
	return nodes
}

func (d *HeartbeatDiscovery) Subscribe(cb func(Event)) func() {
	d.subMu.Lock()
	id := d.nextSubID
	d.nextSubID++
	d.subscribers[id] = cb
	d.subMu.Unlock()

	return func() {
		d.subMu.Lock()
		delete(d.subscribers, id)
		d.subMu.Unlock()
	}
}

// Run starts the sweep loop; it returns when ctx is cancelled.
func (d *HeartbeatDiscovery) Run(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}

func (d *HeartbeatDiscovery) sweep() {
	threshold := d.clock().Add(-d.staleTimeout)

	d.mu.Lock()
	var failed []core.NodeId
	for id, last := range d.lastHeartbeat {
		if last.Before(threshold) {
			failed = append(failed, id)
			delete(d.lastHeartbeat, id)
		}
	}
	d.mu.Unlock()

	for _, id := range failed {
		d.publish(Event{Kind: NodeFailed, NodeId: id})
	}
}

func (d *HeartbeatDiscovery) publish(evt Event) {
	d.subMu.Lock()
	cbs := make([]func(Event), 0, len(d.subscribers))
	for _, cb := range d.subscribers {
		cbs = append(cbs, cb)
	}
	d.subMu.Unlock()

	for _, cb := range cbs {
		cb(evt)
	}
}
