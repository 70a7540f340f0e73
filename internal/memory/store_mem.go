package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// InMemoryStore is a thread-safe, in-memory implementation of VectorStore.
// Similarity is computed with Cosine over every stored embedding.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int // id → index in records slice
}

// NewInMemoryStore creates a store holding recs.
func NewInMemoryStore(recs ...Record) *InMemoryStore {
	s := &InMemoryStore{
		index: make(map[string]int),
	}
	for _, r := range recs {
		_ = s.Put(context.Background(), r)
	}
	return s
}

var (
	_ VectorStore = (*InMemoryStore)(nil)
	_ Writer      = (*InMemoryStore)(nil)
	_ Backfiller  = (*InMemoryStore)(nil)
)

// Put stores rec, replacing any record with the same ID.
func (s *InMemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, exists := s.index[rec.ID]; exists {
		s.records[i] = rec
		return nil
	}

	s.index[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

// Match ranks every record with an embedding against vec.
func (s *InMemoryStore) Match(_ context.Context, vec []float32, threshold float64, limit int) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Rank(s.records, vec, threshold, limit), nil
}

// List returns a copy of all records, newest first.
func (s *InMemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	out := slices.Clone(s.records)
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// MissingEmbeddings returns up to limit records without a vector, oldest first.
func (s *InMemoryStore) MissingEmbeddings(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range s.records {
		if r.HasEmbedding() {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetEmbedding stores vec on the record with the given ID.
func (s *InMemoryStore) SetEmbedding(_ context.Context, id string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return ErrNotFound
	}
	s.records[i].Embedding = slices.Clone(vec)
	return nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
