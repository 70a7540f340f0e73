package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/memory/memorytest"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/provider/providertest"
)

func TestPerformSearch_InitialQuery(t *testing.T) {
	t.Parallel()

	store := matchReturning([]memory.Candidate{
		candidate("id1", 0.82),
		candidate("id2", 0.65),
		candidate("id3", 0.41),
	}, nil)
	emb := fixedEmbedder([]float32{0.3, 0.7}, nil)
	gen := replyWith(t, "You have two sunset photos.", "id1", "id2")

	res := newTestService(store, emb, gen).PerformSearch(context.Background(), "sunset photos", nil, nil)

	if res.Answer == nil || *res.Answer != "You have two sunset photos." {
		t.Fatalf("Answer = %v", res.Answer)
	}
	if ids := recordIDs(res.Memories); !equalStrings(ids, []string{"id1", "id2"}) {
		t.Errorf("memories = %v, want [id1 id2]", ids)
	}
	if !equalStrings(res.MemoryIDs, []string{"id1", "id2", "id3"}) {
		t.Errorf("memoryIds = %v, want all candidates", res.MemoryIDs)
	}
	if res.FollowUp {
		t.Error("initial query reported as follow-up")
	}

	prompt := gen.Request().Messages[0].Content
	first := strings.Index(prompt, "[Memory ID: id1] (Relevance: 82%)")
	second := strings.Index(prompt, "[Memory ID: id2] (Relevance: 65%)")
	third := strings.Index(prompt, "[Memory ID: id3] (Relevance: 41%)")
	if first < 0 || second < first || third < second {
		t.Errorf("context not in rank order:\n%s", prompt)
	}
	if store.Threshold != DefaultThreshold || store.Limit != DefaultLimit {
		t.Errorf("search used threshold=%v limit=%d", store.Threshold, store.Limit)
	}
}

func TestPerformSearch_FollowUp(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := &memorytest.MockStore{
		MatchFunc: func(context.Context, []float32, float64, int) ([]memory.Candidate, error) {
			panic("Match must not be called on follow-up")
		},
		ListFunc: func(context.Context) ([]memory.Record, error) {
			return []memory.Record{
				{ID: "c", Title: "C", CreatedAt: now},
				{ID: "z", Title: "Z", CreatedAt: now},
				{ID: "a", Title: "A", CreatedAt: now},
				{ID: "b", Title: "B", CreatedAt: now},
			}, nil
		},
	}
	emb := fixedEmbedder([]float32{1}, nil)
	gen := replyWith(t, "More about them.")
	history := []memory.Turn{
		{Role: memory.RoleUser, Content: "cafes in Lisbon"},
		{Role: memory.RoleAssistant, Content: "Three cafes."},
	}

	res := newTestService(store, emb, gen).PerformSearch(context.Background(), "tell me more", history, []string{"a", "b", "c"})

	if len(emb.Calls()) != 0 {
		t.Error("follow-up must not embed the query")
	}
	if !equalStrings(res.MemoryIDs, []string{"a", "b", "c"}) {
		t.Errorf("memoryIds = %v, want [a b c] in pinned order", res.MemoryIDs)
	}
	if !res.FollowUp {
		t.Error("expected FollowUp")
	}

	prompt := gen.Request().Messages[0].Content
	if strings.Contains(prompt, "Relevance:") {
		t.Errorf("follow-up context must not show scores:\n%s", prompt)
	}
	if !strings.Contains(prompt, "User: cafes in Lisbon") {
		t.Errorf("follow-up prompt should carry history:\n%s", prompt)
	}
	// No relevant IDs selected, so the top candidates are shown.
	if ids := recordIDs(res.Memories); !equalStrings(ids, []string{"a", "b", "c"}) {
		t.Errorf("memories = %v", ids)
	}
}

func TestPerformSearch_FollowUpIgnoresQueryText(t *testing.T) {
	t.Parallel()

	store := &memorytest.MockStore{
		ListFunc: func(context.Context) ([]memory.Record, error) {
			return []memory.Record{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	for _, q := range []string{"", "something else entirely", "tell me more"} {
		res := newTestService(store, nil, replyWith(t, "ok")).PerformSearch(context.Background(), q, nil, []string{"b", "a"})
		if !equalStrings(res.MemoryIDs, []string{"b", "a"}) {
			t.Errorf("query %q: memoryIds = %v, want [b a]", q, res.MemoryIDs)
		}
	}
}

func TestPerformSearch_NoCandidates(t *testing.T) {
	t.Parallel()

	gen := replyWith(t, "unused")
	res := newTestService(matchReturning(nil, nil), fixedEmbedder([]float32{1}, nil), gen).
		PerformSearch(context.Background(), "quantum knitting", nil, nil)

	if res.Answer == nil || *res.Answer != MessageNoResults {
		t.Errorf("Answer = %v, want no-results message", res.Answer)
	}
	if len(res.Memories) != 0 || len(res.MemoryIDs) != 0 {
		t.Errorf("expected empty memories, got %+v", res)
	}
	if gen.Calls() != 0 {
		t.Error("answerer must not be invoked without candidates")
	}
}

func TestPerformSearch_EmbeddingFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		emb  provider.Embedder
	}{
		{"embedder error", fixedEmbedder(nil, errors.New("connection reset"))},
		{"empty vector", fixedEmbedder(nil, nil)},
		{"no embedder", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := matchReturning(nil, nil)
			gen := replyWith(t, "unused")

			res := newTestService(store, tt.emb, gen).PerformSearch(context.Background(), "anything", nil, nil)

			if res.Answer != nil {
				t.Errorf("Answer = %q, want nil", *res.Answer)
			}
			if res.Memories == nil || len(res.Memories) != 0 || res.MemoryIDs == nil || len(res.MemoryIDs) != 0 {
				t.Errorf("expected empty non-nil slices, got %+v", res)
			}
			if m, _ := store.Counts(); m != 0 {
				t.Error("search must not run without a query vector")
			}
			if gen.Calls() != 0 {
				t.Error("answerer must not run without a query vector")
			}
		})
	}
}

func TestPerformSearch_DisplayFilter(t *testing.T) {
	t.Parallel()

	rows := make([]memory.Candidate, 0, 8)
	for i, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8"} {
		rows = append(rows, candidate(id, 0.9-float64(i)*0.05))
	}

	tests := []struct {
		name  string
		reply *providertest.MockProvider
		want  []string
	}{
		{"selected subset keeps candidate order", replyWith(t, "ok", "m6", "m2"), []string{"m2", "m6"}},
		{"none selected shows top five", replyWith(t, "ok"), []string{"m1", "m2", "m3", "m4", "m5"}},
		{"unparseable reply shows top five", rawReply("I think m6.", nil), []string{"m1", "m2", "m3", "m4", "m5"}},
		{"only unknown ids shows top five", replyWith(t, "ok", "nope"), []string{"m1", "m2", "m3", "m4", "m5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := newTestService(matchReturning(rows, nil), fixedEmbedder([]float32{1}, nil), tt.reply).
				PerformSearch(context.Background(), "q", nil, nil)

			if ids := recordIDs(res.Memories); !equalStrings(ids, tt.want) {
				t.Errorf("memories = %v, want %v", ids, tt.want)
			}
			if len(res.MemoryIDs) != len(rows) {
				t.Errorf("memoryIds = %d, want all %d candidates", len(res.MemoryIDs), len(rows))
			}
			known := make(map[string]bool)
			for _, id := range res.MemoryIDs {
				known[id] = true
			}
			for _, m := range res.Memories {
				if !known[m.ID] {
					t.Errorf("displayed %s is not a candidate", m.ID)
				}
			}
		})
	}
}

func TestPerformSearch_StoreFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("database unreachable")

	search := newTestService(matchReturning(nil, boom), fixedEmbedder([]float32{1}, nil), replyWith(t, "unused")).
		PerformSearch(context.Background(), "q", nil, nil)
	if search.Answer == nil || *search.Answer != MessageSearchFailed || len(search.Memories) != 0 {
		t.Errorf("search failure result = %+v", search)
	}

	listStore := &memorytest.MockStore{
		ListFunc: func(context.Context) ([]memory.Record, error) { return nil, boom },
	}
	list := newTestService(listStore, nil, replyWith(t, "unused")).
		PerformSearch(context.Background(), "q", nil, []string{"a"})
	if list.Answer == nil || *list.Answer != MessageSearchFailed || len(list.MemoryIDs) != 0 {
		t.Errorf("list failure result = %+v", list)
	}
}

func TestPerformSearch_BlankQuery(t *testing.T) {
	t.Parallel()

	emb := fixedEmbedder([]float32{1}, nil)
	res := newTestService(matchReturning(nil, nil), emb, nil).PerformSearch(context.Background(), "   ", nil, []string{" ", ""})

	if res.Answer != nil || len(res.Memories) != 0 || len(res.MemoryIDs) != 0 {
		t.Errorf("blank query result = %+v", res)
	}
	if len(emb.Calls()) != 0 {
		t.Error("blank query must not be embedded")
	}
}

func TestPerformSearch_GeneratorFailure(t *testing.T) {
	t.Parallel()

	rows := []memory.Candidate{candidate("a", 0.9), candidate("b", 0.8)}
	res := newTestService(matchReturning(rows, nil), fixedEmbedder([]float32{1}, nil), rawReply("", provider.ErrProviderDown)).
		PerformSearch(context.Background(), "q", nil, nil)

	if res.Answer == nil || *res.Answer != MessageGenerateFailed {
		t.Errorf("Answer = %v", res.Answer)
	}
	if ids := recordIDs(res.Memories); !equalStrings(ids, []string{"a", "b"}) {
		t.Errorf("memories = %v, want fallback to top candidates", ids)
	}
}

func TestNewService_ConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := newTestService(matchReturning(nil, nil), nil, nil).Config()
	if cfg.Threshold != DefaultThreshold || cfg.Limit != DefaultLimit || cfg.DisplayFallback != DefaultDisplayFallback {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	custom := NewService(Config{Threshold: 0.7, Limit: 3, DisplayFallback: 2}, matchReturning(nil, nil), nil, nil, nil).Config()
	if custom.Threshold != 0.7 || custom.Limit != 3 || custom.DisplayFallback != 2 {
		t.Errorf("custom config overwritten: %+v", custom)
	}
}

func TestResult_WithoutEmbeddings(t *testing.T) {
	t.Parallel()

	res := Result{Memories: []memory.Record{{ID: "a", Embedding: []float32{1, 2}}}}
	out := res.WithoutEmbeddings()

	if out.Memories[0].Embedding != nil {
		t.Error("embedding should be stripped")
	}
	if res.Memories[0].Embedding == nil {
		t.Error("original result should be untouched")
	}
	if out.MemoryIDs == nil {
		t.Error("MemoryIDs should be non-nil")
	}
}
