package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/provider/providertest"
	"github.com/flemzord/mindcanvas/internal/retrieval"
	"gopkg.in/yaml.v3"
)

// fakeSearcher records the arguments of every PerformSearch call.
type fakeSearcher struct {
	result retrieval.Result

	mu      sync.Mutex
	queries []string
	history [][]memory.Turn
	pinned  [][]string
}

func (f *fakeSearcher) PerformSearch(_ context.Context, query string, history []memory.Turn, pinnedIDs []string) retrieval.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.history = append(f.history, history)
	f.pinned = append(f.pinned, pinnedIDs)
	return f.result
}

func (f *fakeSearcher) Config() retrieval.Config {
	return retrieval.Config{Threshold: 0.4, Limit: 15, DisplayFallback: 5}
}

func (f *fakeSearcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// fakeStore reports a fixed size and health.
type fakeStore struct {
	healthErr error
	total     int
	embedded  int
}

func (s *fakeStore) HealthCheck(context.Context) error { return s.healthErr }

func (s *fakeStore) Count(context.Context) (int, int, error) {
	return s.total, s.embedded, nil
}

func answer(s string) *string { return &s }

// testEnv holds the services a test gateway is provisioned with.
type testEnv struct {
	search *fakeSearcher
	store  *fakeStore
	gen    *providertest.MockProvider
	emb    *providertest.MockEmbedder
}

func newTestEnv() *testEnv {
	return &testEnv{
		search: &fakeSearcher{result: retrieval.Result{Memories: []memory.Record{}, MemoryIDs: []string{}}},
		store:  &fakeStore{total: 3, embedded: 2},
		gen: &providertest.MockProvider{
			HealthCheckFunc: func(context.Context) error { return nil },
		},
		emb: &providertest.MockEmbedder{},
	}
}

// newTestGateway provisions a Gateway from configYAML and the services in env.
func newTestGateway(t *testing.T, configYAML string, env *testEnv) *Gateway {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := core.NewAppContext(logger, t.TempDir())
	appCtx.RegisterService(retrieval.ServiceName, env.search)
	if env.store != nil {
		appCtx.RegisterService(retrieval.StoreServiceName, env.store)
	}
	if env.gen != nil {
		appCtx.RegisterService(provider.GeneratorService, env.gen)
	}
	if env.emb != nil {
		appCtx.RegisterService(provider.EmbedderService, env.emb)
	}

	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, configYAML)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return g
}

// serve sends req through the full router.
func serve(t *testing.T, g *Gateway, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	g.buildRouter().ServeHTTP(rr, req)
	return rr
}

func postJSON(path string, v any) *http.Request {
	var body bytes.Buffer
	_ = json.NewEncoder(&body).Encode(v)
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode}
	}
	return doc.Content[0]
}
