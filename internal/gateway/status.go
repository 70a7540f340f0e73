package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/flemzord/mindcanvas/internal/retrieval"
)

// counter is implemented by stores that can report their size.
type counter interface {
	Count(ctx context.Context) (total, embedded int, err error)
}

// StatusResponse is the JSON response for GET /api/status.
type StatusResponse struct {
	Uptime         int64             `json:"uptime_seconds"`
	Memories       *int              `json:"memories,omitempty"`
	Embedded       *int              `json:"embedded,omitempty"`
	Model          string            `json:"model,omitempty"`
	EmbeddingModel string            `json:"embedding_model,omitempty"`
	Retrieval      *retrieval.Config `json:"retrieval,omitempty"`
}

// handleStatus returns an http.HandlerFunc for GET /api/status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Uptime: int64(time.Since(g.startedAt).Seconds()),
		}

		if g.counter != nil {
			if total, embedded, err := g.counter.Count(r.Context()); err == nil {
				resp.Memories = &total
				resp.Embedded = &embedded
			} else {
				g.logger.Warn("status: counting memories failed", "error", err)
			}
		}
		if g.models.generator != nil {
			resp.Model = g.models.generator.ModelName()
		}
		if g.models.embedder != nil {
			resp.EmbeddingModel = g.models.embedder.EmbeddingModel()
		}
		if cfg, ok := g.search.(interface{ Config() retrieval.Config }); ok {
			c := cfg.Config()
			resp.Retrieval = &c
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
