package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flemzord/mindcanvas/internal/retrieval"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway Prometheus collectors on a private registry.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	searches  *prometheus.CounterVec
	displayed prometheus.Histogram
}

// NewMetrics creates and registers the gateway collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindcanvas",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mindcanvas",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"route"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindcanvas",
			Name:      "searches_total",
			Help:      "Searches by mode (fresh or follow_up) and whether an answer was returned.",
		}, []string{"mode", "answered"}),
		displayed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mindcanvas",
			Name:      "search_displayed_memories",
			Help:      "Number of memories displayed per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 15},
		}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.searches, m.displayed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records the shape of a search result.
func (m *Metrics) ObserveSearch(res retrieval.Result) {
	mode := "fresh"
	if res.FollowUp {
		mode = "follow_up"
	}
	m.searches.WithLabelValues(mode, strconv.FormatBool(res.Answer != nil)).Inc()
	m.displayed.Observe(float64(len(res.Memories)))
}

// instrument records request counts and latency keyed by the chi route pattern.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
