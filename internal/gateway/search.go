package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/retrieval"
	"github.com/flemzord/mindcanvas/internal/security"
)

// Searcher is the retrieval entry point served by /api/search.
type Searcher interface {
	PerformSearch(ctx context.Context, query string, history []memory.Turn, pinnedIDs []string) retrieval.Result
}

type searchRequest struct {
	Query               string      `json:"query" validate:"max=4000"`
	ConversationHistory []turnInput `json:"conversationHistory" validate:"max=100,dive"`
	PinnedMemoryIDs     []string    `json:"pinnedMemoryIds" validate:"max=200,dive,required,max=128"`
}

type turnInput struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=32000"`
}

func (r searchRequest) history() []memory.Turn {
	if len(r.ConversationHistory) == 0 {
		return nil
	}
	out := make([]memory.Turn, len(r.ConversationHistory))
	for i, t := range r.ConversationHistory {
		out[i] = memory.Turn{Role: memory.Role(t.Role), Content: t.Content}
	}
	return out
}

// searchResponse mirrors retrieval.Result without embeddings.
type searchResponse struct {
	Memories  []memory.Record `json:"memories"`
	Answer    *string         `json:"answer"`
	MemoryIDs []string        `json:"memoryIds"`
}

func newSearchResponse(res retrieval.Result) searchResponse {
	res = res.WithoutEmbeddings()
	return searchResponse{Memories: res.Memories, Answer: res.Answer, MemoryIDs: res.MemoryIDs}
}

// handleSearchPost serves POST /api/search.
func (g *Gateway) handleSearchPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := security.ReadBody(r.Body, g.config.MaxBodyBytes)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, security.ErrBodyTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, err.Error(), nil)
			return
		}
		if err := security.ValidateJSONDepth(body, 0); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}

		var req searchRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
			return
		}

		g.serveSearch(w, r, req)
	}
}

// handleSearchGet serves GET /api/search?q=…&pin=…
func (g *Gateway) handleSearchGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		g.serveSearch(w, r, searchRequest{
			Query:           q.Get("q"),
			PinnedMemoryIDs: q["pin"],
		})
	}
}

func (g *Gateway) serveSearch(w http.ResponseWriter, r *http.Request, req searchRequest) {
	fields, err := validateRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "invalid request", fields)
		return
	}

	res := g.search.PerformSearch(r.Context(), req.Query, req.history(), req.PinnedMemoryIDs)
	g.metrics.ObserveSearch(res)

	writeJSON(w, http.StatusOK, newSearchResponse(res))
}
