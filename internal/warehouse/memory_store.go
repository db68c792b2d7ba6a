package warehouse

import (
	"context"
	"sort"
	"sync"

	"github.com/dmarchuk/fraudetl/internal/txn"
)

// MemoryStore is an in-memory implementation of Store for testing
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]txn.Record
	features     []txn.FeatureRow
}

// NewMemoryStore creates a new in-memory warehouse store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transactions: make(map[string]txn.Record)}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) InsertTransactions(ctx context.Context, records []txn.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.transactions[r.TransactionID] = r
	}
	return nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context) ([]txn.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]txn.Record, 0, len(m.transactions))
	for _, r := range m.transactions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out, nil
}

func (m *MemoryStore) GetTransaction(ctx context.Context, id string) (*txn.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &r, nil
}

func (m *MemoryStore) CountTransactions(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions), nil
}

func (m *MemoryStore) ReplaceFeatures(ctx context.Context, rows []txn.FeatureRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features = append([]txn.FeatureRow(nil), rows...)
	return nil
}

func (m *MemoryStore) ListFeatures(ctx context.Context) ([]txn.FeatureRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]txn.FeatureRow(nil), m.features...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out, nil
}
