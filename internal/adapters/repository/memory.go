package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/sackline/pkg/metrics"
)

// MemoryStore keeps the most recent records in memory, newest first.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []Record // sorted by newer
	byID     map[string]struct{}
	capacity int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := newSettings(opts)
	return &MemoryStore{byID: make(map[string]struct{}), capacity: s.capacity}
}

// Save implements Store.Save. The oldest record is evicted at capacity.
func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, dup := s.byID[rec.ID]; dup {
		s.mu.Unlock()
		metrics.RecordHistoryWriteError()
		return ErrDuplicateID
	}
	i, _ := slices.BinarySearchFunc(s.records, rec, newer)
	s.records = slices.Insert(s.records, i, rec)
	s.byID[rec.ID] = struct{}{}
	if len(s.records) > s.capacity {
		last := s.records[len(s.records)-1]
		delete(s.byID, last.ID)
		s.records = s.records[:len(s.records)-1]
	}
	n := len(s.records)
	s.mu.Unlock()

	metrics.UpdateHistoryRecords(n)
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byID[id]; !ok {
		return Record{}, ErrNotFound
	}
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Recent implements Store.Recent.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]Record, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records[:min(n, len(s.records))]), nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close implements Store.Close.
func (s *MemoryStore) Close() error { return nil }
