package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// MemoryStore keeps both documents as encoded JSON in memory. It goes
// through the same codec as the durable stores, so it also exercises
// schema validation.
type MemoryStore struct {
	mu          sync.Mutex
	history     []byte
	performance []byte
	saveErr     error
	saves       int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreFromJSON seeds the store with raw documents; nil means missing.
func NewMemoryStoreFromJSON(history, performance []byte) *MemoryStore {
	return &MemoryStore{history: history, performance: performance}
}

// FailSaves makes every following save fail with err wrapped in a
// *domain.PersistenceError. nil restores normal behaviour.
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves returns how many successful writes happened.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Raw returns the currently stored documents.
func (m *MemoryStore) Raw() (history, performance []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.history...), append([]byte(nil), m.performance...)
}

func (m *MemoryStore) LoadHistory(_ context.Context) (domain.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.history == nil {
		return domain.NewHistory(), nil
	}
	h, err := decodeHistory(HistoryDocument, m.history)
	if err != nil {
		return domain.History{}, fmt.Errorf("storage.MemoryStore.LoadHistory: %w", err)
	}
	return h, nil
}

func (m *MemoryStore) LoadPerformance(_ context.Context) (domain.PerformanceByCondition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.performance == nil {
		return domain.PerformanceByCondition{}, nil
	}
	perf, err := decodePerformance(PerformanceDocument, m.performance)
	if err != nil {
		return nil, fmt.Errorf("storage.MemoryStore.LoadPerformance: %w", err)
	}
	return perf, nil
}

func (m *MemoryStore) Save(_ context.Context, h domain.History, perf domain.PerformanceByCondition) error {
	hData, err := encodeDocument(HistoryDocument, h)
	if err != nil {
		return err
	}
	pData, err := encodeDocument(PerformanceDocument, perf)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return &domain.PersistenceError{Op: "save", Target: "memory", Err: m.saveErr}
	}
	m.history, m.performance = hData, pData
	m.saves++
	return nil
}

func (m *MemoryStore) SaveHistory(_ context.Context, h domain.History) error {
	data, err := encodeDocument(HistoryDocument, h)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return &domain.PersistenceError{Op: "save", Target: "memory", Err: m.saveErr}
	}
	m.history = data
	m.saves++
	return nil
}

func (m *MemoryStore) Close() error { return nil }
