package store

import (
	"context"
	"sync"
	"time"

	"github.com/nemanja-m/gomr/internal/tracker/core"
)

// InMemoryStore is a sync.Mutex-guarded map implementation of
// MetadataStore: it applies transform closures and fans the result out to
// subscribers, so every "node" sharing one InMemoryStore observes the same
// notification order a real replicated cache would deliver.
type InMemoryStore struct {
	mu   sync.Mutex
	jobs map[core.JobId]*core.JobMetadata

	subMu       sync.Mutex
	subscribers map[int]func(meta *core.JobMetadata)
	nextSubID   int

	clock func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		jobs:        make(map[core.JobId]*core.JobMetadata),
		subscribers: make(map[int]func(meta *core.JobMetadata)),
		clock:       time.Now,
	}
}

func (s *InMemoryStore) Get(jobId core.JobId) (*core.JobMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(jobId), nil
}

func (s *InMemoryStore) getLocked(jobId core.JobId) *core.JobMetadata {
	meta, ok := s.jobs[jobId]
	if !ok {
		return nil
	}
	if !meta.TTL.IsZero() && !s.clock().Before(meta.TTL) {
		delete(s.jobs, jobId)
		return nil
	}
	return meta.Clone()
}

func (s *InMemoryStore) PutIfAbsent(meta *core.JobMetadata) (bool, error) {
	s.mu.Lock()
	if _, exists := s.jobs[meta.JobId]; exists {
		s.mu.Unlock()
		return false, nil
	}
	stored := meta.Clone()
	s.jobs[meta.JobId] = stored
	s.mu.Unlock()

	s.publish(stored)
	return true, nil
}

func (s *InMemoryStore) Transform(ctx context.Context, jobId core.JobId, fn TransformFunc) <-chan error {
	out := make(chan error, 1)
	go func() {
		defer close(out)

		s.mu.Lock()
		old := s.getLocked(jobId)
		next := fn(old)
		if next == nil {
			delete(s.jobs, jobId)
			s.mu.Unlock()
			if old != nil {
				s.publish(nil)
			}
			out <- nil
			return
		}
		stored := next.Clone()
		s.jobs[jobId] = stored
		s.mu.Unlock()

		s.publish(stored)
		out <- nil
	}()
	return out
}

func (s *InMemoryStore) Jobs() ([]*core.JobMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.JobMetadata, 0, len(s.jobs))
	for jobId := range s.jobs {
		if meta := s.getLocked(jobId); meta != nil {
			out = append(out, meta)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Subscribe(cb func(meta *core.JobMetadata)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = cb
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *InMemoryStore) publish(meta *core.JobMetadata) {
	s.subMu.Lock()
	cbs := make([]func(meta *core.JobMetadata), 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		cbs = append(cbs, cb)
	}
	s.subMu.Unlock()

	for _, cb := range cbs {
		cb(meta.Clone())
	}
}
