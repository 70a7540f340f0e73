package gateway

import (
	"context"
	"net/http"
	"time"
)

// healthChecker is implemented by stores and providers that report health.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ComponentStatus is the health of one dependency.
type ComponentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status     string            `json:"status"` // "ok" or "degraded"
	Components []ComponentStatus `json:"components"`
}

const healthTimeout = 3 * time.Second

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 if every checked component is healthy, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok", Components: []ComponentStatus{}}
		for _, name := range sortedKeys(g.checks) {
			st := ComponentStatus{Name: name, Healthy: true}
			if err := g.checks[name].HealthCheck(ctx); err != nil {
				st.Healthy = false
				st.Error = err.Error()
				resp.Status = "degraded"
			}
			resp.Components = append(resp.Components, st)
		}

		status := http.StatusOK
		if resp.Status == "degraded" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
