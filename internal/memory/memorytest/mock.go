// Package memorytest provides test doubles for memory.VectorStore.
package memorytest

import (
	"context"
	"sync"

	"github.com/flemzord/mindcanvas/internal/memory"
)

// MockStore is a configurable test double for memory.VectorStore.
// Unset funcs panic on call. All methods are safe for concurrent use.
type MockStore struct {
	MatchFunc func(ctx context.Context, vec []float32, threshold float64, limit int) ([]memory.Candidate, error)
	ListFunc  func(ctx context.Context) ([]memory.Record, error)

	mu         sync.Mutex
	MatchCalls int
	ListCalls  int
	Threshold  float64
	Limit      int
}

// Match records its arguments and delegates to MatchFunc.
func (m *MockStore) Match(ctx context.Context, vec []float32, threshold float64, limit int) ([]memory.Candidate, error) {
	m.mu.Lock()
	m.MatchCalls++
	m.Threshold = threshold
	m.Limit = limit
	m.mu.Unlock()
	return m.MatchFunc(ctx, vec, threshold, limit)
}

// List delegates to ListFunc.
func (m *MockStore) List(ctx context.Context) ([]memory.Record, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	return m.ListFunc(ctx)
}

// Counts returns the number of Match and List calls.
func (m *MockStore) Counts() (match, list int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MatchCalls, m.ListCalls
}

var _ memory.VectorStore = (*MockStore)(nil)
