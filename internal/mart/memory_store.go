package mart

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for testing
type MemoryStore struct {
	mu          sync.RWMutex
	predictions []Prediction
}

// NewMemoryStore creates a new in-memory mart store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) ReplacePredictions(ctx context.Context, preds []Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = append([]Prediction(nil), preds...)
	return nil
}

func (m *MemoryStore) ListPredictions(ctx context.Context) ([]Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]Prediction(nil), m.predictions...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].TransactionID < out[j].TransactionID
	})
	return out, nil
}

func (m *MemoryStore) CountPredictions(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.predictions), nil
}
