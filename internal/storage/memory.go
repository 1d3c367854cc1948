package storage

import (
	"context"
	"sync"

	"anima/internal/model"
)

// MemoryStore keeps records in process memory, for tests and ephemeral runs.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	tickStats map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string][]byte),
		tickStats: make(map[string][]byte),
	}
}

func (s *MemoryStore) Init(_ context.Context) error {
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snapshot model.GraphSnapshot) error {
	payload, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ID] = payload
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, id string) (model.GraphSnapshot, bool, error) {
	s.mu.RLock()
	payload, ok := s.snapshots[id]
	s.mu.RUnlock()
	if !ok {
		return model.GraphSnapshot{}, false, nil
	}
	snapshot, err := DecodeSnapshot(payload)
	if err != nil {
		return model.GraphSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func (s *MemoryStore) SaveTickStats(_ context.Context, runID string, stats []model.TickStats) error {
	payload, err := EncodeTickStats(stats)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickStats[runID] = payload
	return nil
}

func (s *MemoryStore) GetTickStats(_ context.Context, runID string) ([]model.TickStats, bool, error) {
	s.mu.RLock()
	payload, ok := s.tickStats[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	stats, err := DecodeTickStats(payload)
	if err != nil {
		return nil, false, err
	}
	return stats, true, nil
}
