package archive

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a process-local archive for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]StoryRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]StoryRecord)}
}

func (s *InMemoryStore) Save(_ context.Context, record StoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record = prepare(record, time.Now().UTC())
	if prev, ok := s.records[record.ID]; ok {
		record.CreatedAt = prev.CreatedAt
	}
	s.records[record.ID] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (StoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return StoryRecord{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]StoryRecord, error) {
	s.mu.RLock()
	out := make([]StoryRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
