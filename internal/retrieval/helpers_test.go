package retrieval

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/memory/memorytest"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/provider/providertest"
	"github.com/flemzord/mindcanvas/internal/security/securitytest"
)

func candidate(id string, sim float64) memory.Candidate {
	return memory.Candidate{
		Record:     memory.Record{ID: id, Title: "title " + id, Content: "content " + id},
		Similarity: sim,
	}
}

func fixedEmbedder(vec []float32, err error) *providertest.MockEmbedder {
	return &providertest.MockEmbedder{
		EmbedFunc: func(context.Context, string) ([]float32, error) { return vec, err },
	}
}

func replyWith(t *testing.T, answer string, ids ...string) *providertest.MockProvider {
	t.Helper()
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(map[string]any{"answer": answer, "relevantIds": ids})
	if err != nil {
		t.Fatal(err)
	}
	return rawReply(string(raw), nil)
}

func rawReply(content string, err error) *providertest.MockProvider {
	return &providertest.MockProvider{
		CompleteFunc: func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{Content: content}, err
		},
	}
}

func matchReturning(rows []memory.Candidate, err error) *memorytest.MockStore {
	return &memorytest.MockStore{
		MatchFunc: func(context.Context, []float32, float64, int) ([]memory.Candidate, error) {
			return rows, err
		},
		ListFunc: func(context.Context) ([]memory.Record, error) {
			panic("List must not be called")
		},
	}
}

func newTestService(store memory.VectorStore, emb provider.Embedder, gen provider.Provider) *Service {
	return NewService(Config{}, store, emb, gen, securitytest.DiscardLogger())
}

func recordIDs(recs []memory.Record) []string {
	ids := make([]string, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
