package retrieval

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/flemzord/mindcanvas/internal/memory"
)

// Searcher runs similarity queries against a memory.VectorStore.
type Searcher struct {
	store memory.VectorStore
}

// NewSearcher returns a Searcher over store.
func NewSearcher(store memory.VectorStore) *Searcher {
	return &Searcher{store: store}
}

// Search returns candidates with similarity >= threshold, most similar
// first, at most limit of them. A non-positive limit uses DefaultLimit.
// The ordering and bounds are enforced here even if the store already
// applies them. Store errors are returned wrapped; no partial results.
func (s *Searcher) Search(ctx context.Context, vec []float32, threshold float64, limit int) ([]memory.Candidate, error) {
	if len(vec) == 0 {
		return nil, ErrEmptyQueryVector
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.store.Match(ctx, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieval: vector search: %w", err)
	}

	out := make([]memory.Candidate, 0, len(rows))
	for _, c := range rows {
		if c.Similarity >= threshold {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b memory.Candidate) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Pinned resolves ids against records, keeping the order of ids and
// dropping duplicates and unknown IDs. Each candidate gets similarity 1.
func Pinned(records []memory.Record, ids []string) []memory.Candidate {
	byID := make(map[string]memory.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	out := make([]memory.Candidate, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if r, ok := byID[id]; ok {
			out = append(out, memory.Candidate{Record: r, Similarity: 1})
		}
	}
	return out
}
