package storage

import (
	"context"
	"errors"
	"sync"
)

type recordKey struct {
	runID string
	kind  string
}

// MemoryStore keeps records in process memory. Records are copied in and out
// so callers cannot alias stored parameters.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records == nil {
		s.records = make(map[recordKey]Record)
	}
	return nil
}

func (s *MemoryStore) SaveNetwork(_ context.Context, record Record) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records == nil {
		return errors.New("store is not initialized")
	}
	s.records[recordKey{record.RunID, record.Kind}] = copyRecord(record)
	return nil
}

func (s *MemoryStore) GetNetwork(_ context.Context, runID, kind string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.records == nil {
		return Record{}, false, errors.New("store is not initialized")
	}
	record, ok := s.records[recordKey{runID, kind}]
	if !ok {
		return Record{}, false, nil
	}
	return copyRecord(record), true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyRecord(r Record) Record {
	c := r
	c.Network.Topology.Hidden = append([]int(nil), r.Network.Topology.Hidden...)
	c.Network.Weights = make([][]float64, len(r.Network.Weights))
	for i, w := range r.Network.Weights {
		c.Network.Weights[i] = append([]float64(nil), w...)
	}
	c.Network.Biases = make([][]float64, len(r.Network.Biases))
	for i, b := range r.Network.Biases {
		c.Network.Biases[i] = append([]float64(nil), b...)
	}
	return c
}
