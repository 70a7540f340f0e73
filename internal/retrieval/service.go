package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/provider"
)

// Result is what PerformSearch returns to callers.
type Result struct {
	// Memories are the records to display: the ones the model selected, or
	// the top candidates when it selected none.
	Memories []memory.Record `json:"memories"`

	// Answer is nil when no answer could be attempted (blank query, no
	// query embedding).
	Answer *string `json:"answer"`

	// MemoryIDs lists every candidate considered, so a caller can pin the
	// whole set for the next turn.
	MemoryIDs []string `json:"memoryIds"`

	// FollowUp reports whether the request used pinned IDs.
	FollowUp bool `json:"-"`
}

// WithoutEmbeddings returns a copy of r whose records carry no vectors and
// whose slices are never nil, ready to be encoded for a client.
func (r Result) WithoutEmbeddings() Result {
	out := r
	out.Memories = make([]memory.Record, len(r.Memories))
	for i, rec := range r.Memories {
		rec.Embedding = nil
		out.Memories[i] = rec
	}
	if out.MemoryIDs == nil {
		out.MemoryIDs = []string{}
	}
	return out
}

func emptyResult(followUp bool) Result {
	return Result{Memories: []memory.Record{}, MemoryIDs: []string{}, FollowUp: followUp}
}

func messageResult(msg string, followUp bool) Result {
	r := emptyResult(followUp)
	r.Answer = &msg
	return r
}

// Service runs the full pipeline. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	cfg      Config
	store    memory.VectorStore
	embedder *EmbeddingClient
	searcher *Searcher
	answerer *Answerer
	logger   *slog.Logger
}

// NewService wires a Service. embedder and gen may be nil; the pipeline then
// degrades as if their credentials were missing.
func NewService(cfg Config, store memory.VectorStore, embedder provider.Embedder, gen provider.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()
	return &Service{
		cfg:      cfg,
		store:    store,
		embedder: NewEmbeddingClient(embedder, logger),
		searcher: NewSearcher(store),
		answerer: NewAnswerer(gen, cfg, logger),
		logger:   logger,
	}
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// PerformSearch answers query from the user's memories.
//
// With pinnedIDs the request is a follow-up: those records are the
// candidates, in the given order, and no embedding or search happens.
// Otherwise the query is embedded and matched. The model then answers from
// the candidates and selects which to show. PerformSearch never fails;
// every error is logged and turned into a degraded Result.
func (s *Service) PerformSearch(ctx context.Context, query string, history []memory.Turn, pinnedIDs []string) Result {
	pinned := compactIDs(pinnedIDs)
	followUp := len(pinned) > 0

	ctx, span := tracer.Start(ctx, "retrieval.perform_search", trace.WithAttributes(
		attribute.Bool("retrieval.follow_up", followUp),
		attribute.Int("retrieval.pinned", len(pinned)),
		attribute.Int("retrieval.history", len(history)),
	))
	defer span.End()

	if strings.TrimSpace(query) == "" && !followUp {
		return emptyResult(false)
	}

	var candidates []memory.Candidate
	if followUp {
		records, err := s.store.List(ctx)
		if err != nil {
			s.fail(span, "loading pinned memories failed", err)
			return messageResult(MessageSearchFailed, true)
		}
		candidates = Pinned(records, pinned)
	} else {
		vec := s.embed(ctx, query)
		if len(vec) == 0 {
			return emptyResult(false)
		}
		var err error
		candidates, err = s.search(ctx, vec)
		if err != nil {
			s.fail(span, "memory search failed", err)
			return messageResult(MessageSearchFailed, false)
		}
	}
	span.SetAttributes(attribute.Int("retrieval.candidates", len(candidates)))

	if len(candidates) == 0 {
		return messageResult(MessageNoResults, followUp)
	}

	ids := memory.IDs(candidates)
	req := AnswerRequest{
		Query:        query,
		Context:      Assemble(candidates, !followUp),
		CandidateIDs: ids,
		FollowUp:     followUp,
	}
	if followUp {
		req.History = history
	}
	ans := s.answer(ctx, req)

	shown := s.display(candidates, ans.RelevantIDs)
	span.SetAttributes(
		attribute.Int("retrieval.relevant", len(ans.RelevantIDs)),
		attribute.Int("retrieval.displayed", len(shown)),
	)

	return Result{
		Memories:  shown,
		Answer:    &ans.Text,
		MemoryIDs: ids,
		FollowUp:  followUp,
	}
}

func (s *Service) embed(ctx context.Context, query string) []float32 {
	ctx, span := tracer.Start(ctx, "retrieval.embed")
	defer span.End()

	vec := s.embedder.Embed(ctx, query)
	span.SetAttributes(attribute.Int("retrieval.dimensions", len(vec)))
	return vec
}

func (s *Service) search(ctx context.Context, vec []float32) ([]memory.Candidate, error) {
	ctx, span := tracer.Start(ctx, "retrieval.search", trace.WithAttributes(
		attribute.Float64("retrieval.threshold", s.cfg.Threshold),
		attribute.Int("retrieval.limit", s.cfg.Limit),
	))
	defer span.End()

	candidates, err := s.searcher.Search(ctx, vec, s.cfg.Threshold, s.cfg.Limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
	}
	return candidates, err
}

func (s *Service) answer(ctx context.Context, req AnswerRequest) Answer {
	ctx, span := tracer.Start(ctx, "retrieval.answer")
	defer span.End()
	return s.answerer.Answer(ctx, req)
}

// display picks the records to show: candidates named in relevant, in
// candidate order, or the first DisplayFallback candidates when relevant is
// empty.
func (s *Service) display(candidates []memory.Candidate, relevant []string) []memory.Record {
	if len(relevant) == 0 {
		n := min(len(candidates), s.cfg.DisplayFallback)
		out := make([]memory.Record, n)
		for i := range n {
			out[i] = candidates[i].Record
		}
		return out
	}

	keep := make(map[string]struct{}, len(relevant))
	for _, id := range relevant {
		keep[id] = struct{}{}
	}
	out := make([]memory.Record, 0, len(relevant))
	for i := range candidates {
		if _, ok := keep[candidates[i].ID]; ok {
			out = append(out, candidates[i].Record)
		}
	}
	return out
}

func (s *Service) fail(span trace.Span, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.logger.Error(msg, "error", err)
}

// compactIDs trims ids and drops blanks.
func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
