package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/retrieval"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveSearch(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveSearch(retrieval.Result{Memories: make([]memory.Record, 3), Answer: answer("a")})
	m.ObserveSearch(retrieval.Result{FollowUp: true, Answer: answer("b")})
	m.ObserveSearch(retrieval.Result{})

	if got := testutil.ToFloat64(m.searches.WithLabelValues("fresh", "true")); got != 1 {
		t.Errorf("fresh answered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.searches.WithLabelValues("follow_up", "true")); got != 1 {
		t.Errorf("follow_up answered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.searches.WithLabelValues("fresh", "false")); got != 1 {
		t.Errorf("fresh unanswered = %v, want 1", got)
	}
}

func TestMetrics_InstrumentByRoute(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, "{}", newTestEnv())
	router := g.buildRouter()

	for range 2 {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/search?q=go", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if got := testutil.ToFloat64(g.metrics.requests.WithLabelValues("/api/search", "200")); got != 2 {
		t.Errorf("/api/search 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(g.metrics.requests.WithLabelValues("unmatched", "404")); got != 1 {
		t.Errorf("unmatched 404 = %v, want 1", got)
	}
}

func TestMetrics_Endpoint(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, "{}", newTestEnv())
	serve(t, g, httptest.NewRequest(http.MethodGet, "/api/search?q=go", nil))

	rr := serve(t, g, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"mindcanvas_http_requests_total", "mindcanvas_searches_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
