package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/security"
	"gopkg.in/yaml.v3"
)

func newTestProvider(baseURL string) *Provider {
	return &Provider{
		config: Config{
			BaseURL:        baseURL,
			APIKey:         "test-key",
			Model:          "test-model",
			EmbeddingModel: "test-embed",
			Timeout:        5 * time.Second,
		},
		apiKey: "test-key",
		client: &http.Client{Timeout: 5 * time.Second},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func userRequest(content string) provider.CompletionRequest {
	return provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: content}},
	}
}

func TestConfigure(t *testing.T) {
	yamlData := `
base_url: "https://api.example.com/v1/"
api_key: "sk-test-123"
model: "gpt-4o-mini"
embedding_model: "text-embedding-3-small"
max_tokens: 1024
headers:
  X-Custom: "value"
timeout: 60s
serve: [embedder]
`
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(yamlData), &node); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}

	p := &Provider{}
	if err := p.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if p.config.BaseURL != "https://api.example.com/v1" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", p.config.BaseURL)
	}
	if p.config.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %q", p.config.EmbeddingModel)
	}
	if p.config.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want %d", p.config.MaxTokens, 1024)
	}
	if p.config.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want %v", p.config.Timeout, 60*time.Second)
	}
	if len(p.config.Serve) != 1 || p.config.Serve[0] != "embedder" {
		t.Errorf("Serve = %v", p.config.Serve)
	}
}

func TestConfigure_Defaults(t *testing.T) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(`base_url: "http://localhost:11434/v1"`), &node); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}

	p := &Provider{}
	if err := p.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if p.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want %v", p.config.Timeout, 30*time.Second)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "missing base_url",
			config:  Config{Model: "m", EmbeddingModel: "e"},
			wantErr: "base_url is required",
		},
		{
			name:    "bad scheme",
			config:  Config{BaseURL: "ftp://example.com", Model: "m", EmbeddingModel: "e"},
			wantErr: "scheme must be http or https",
		},
		{
			name:    "generator needs model",
			config:  Config{BaseURL: "https://x", Serve: []string{"generator"}},
			wantErr: "model is required",
		},
		{
			name:    "embedder needs embedding_model",
			config:  Config{BaseURL: "https://x", Model: "m"},
			wantErr: "embedding_model is required",
		},
		{
			name:    "unknown role",
			config:  Config{BaseURL: "https://x", Serve: []string{"vision"}},
			wantErr: "unknown role",
		},
		{
			name:    "negative max_tokens",
			config:  Config{BaseURL: "https://x", Model: "m", EmbeddingModel: "e", MaxTokens: -1},
			wantErr: "max_tokens must not be negative",
		},
		{
			name:   "embedder only",
			config: Config{BaseURL: "https://x", EmbeddingModel: "e", Serve: []string{"embedder"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestProvision_RegistersRoles(t *testing.T) {
	t.Setenv("MINDCANVAS_TEST_OAI_KEY", "sk-fromenvironment0000000000")

	p := &Provider{config: Config{
		BaseURL:        "https://api.example.com/v1",
		APIKeyEnv:      "MINDCANVAS_TEST_OAI_KEY",
		EmbeddingModel: "e",
		Serve:          []string{"embedder"},
	}}

	ctx := core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil)), t.TempDir())
	redactor := security.NewRedactor()
	ctx.RegisterService(security.RedactorService, redactor)

	if err := p.Provision(ctx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if _, ok := core.ServiceAs[provider.Embedder](ctx, provider.EmbedderService); !ok {
		t.Error("embedder not registered")
	}
	if _, ok := ctx.Service(provider.GeneratorService); ok {
		t.Error("generator registered but not requested")
	}
	if got := redactor.Redact("key=sk-fromenvironment0000000000"); strings.Contains(got, "fromenvironment") {
		t.Errorf("api key not redacted: %q", got)
	}
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", auth, "Bearer test-key")
		}

		var req oaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v, want json_object", req.ResponseFormat)
		}

		writeJSON(w, oaiResponse{
			Choices: []oaiChoice{
				{
					Message:      oaiMessage{Role: "assistant", Content: `{"answer":"hi","relevantMemoryIds":[]}`},
					FinishReason: "stop",
				},
			},
			Usage: oaiUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)

	req := userRequest("Hi")
	req.JSONResponse = true
	resp, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if !strings.Contains(resp.Content, `"answer":"hi"`) {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != provider.FinishReasonStop {
		t.Errorf("FinishReason = %q, want %q", resp.FinishReason, provider.FinishReasonStop)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want %d", resp.Usage.TotalTokens, 15)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, oaiResponse{})
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Complete(context.Background(), userRequest("Hi"))
	if !errors.Is(err, provider.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestComplete_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limit", http.StatusTooManyRequests, "slow down", provider.ErrRateLimit},
		{"server error", http.StatusBadGateway, "upstream", provider.ErrProviderDown},
		{"auth", http.StatusUnauthorized, "bad key", provider.ErrAuthentication},
		{"context length", http.StatusBadRequest, `{"error":{"code":"context_length_exceeded"}}`, provider.ErrContextLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestProvider(srv.URL).Complete(context.Background(), userRequest("Hi"))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestComplete_MissingKeyFromEnv(t *testing.T) {
	p := newTestProvider("http://127.0.0.1:1")
	p.apiKey = ""
	p.config.APIKeyEnv = "MINDCANVAS_UNSET_KEY"

	_, err := p.Complete(context.Background(), userRequest("Hi"))
	if !errors.Is(err, provider.ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
	if _, err := p.Embed(context.Background(), "x"); !errors.Is(err, provider.ErrMissingCredentials) {
		t.Errorf("embed err = %v, want ErrMissingCredentials", err)
	}
}

func TestComplete_NoKeyNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("Authorization = %q, want none", auth)
		}
		writeJSON(w, oaiResponse{Choices: []oaiChoice{{Message: oaiMessage{Content: "ok"}}}})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	p.apiKey = ""
	p.config.APIKey = ""

	if _, err := p.Complete(context.Background(), userRequest("Hi")); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("path = %s, want /embeddings", r.URL.Path)
		}
		var req oaiEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "test-embed" || req.Input != "hello world" {
			t.Errorf("request = %+v", req)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	vec, err := newTestProvider(srv.URL).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Errorf("vec = %v", vec)
	}
}

func TestEmbed_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Embed(context.Background(), "x")
	if !errors.Is(err, provider.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %s, want /models", r.URL.Path)
		}
		writeJSON(w, map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	if err := newTestProvider(srv.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestHealthCheck_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestProvider(srv.URL).HealthCheck(context.Background())
	if !errors.Is(err, provider.ErrProviderDown) {
		t.Errorf("err = %v, want ErrProviderDown", err)
	}
}

func TestCustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Custom"); got != "value" {
			t.Errorf("X-Custom = %q, want %q", got, "value")
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	p.config.Headers = map[string]string{"X-Custom": "value"}

	if _, err := p.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
}

func TestModelNames(t *testing.T) {
	p := newTestProvider("http://localhost")
	if p.ModelName() != "test-model" {
		t.Errorf("ModelName = %q", p.ModelName())
	}
	if p.EmbeddingModel() != "test-embed" {
		t.Errorf("EmbeddingModel = %q", p.EmbeddingModel())
	}
}

func TestConfigMaxTokensFallback(t *testing.T) {
	tests := []struct {
		name       string
		configMax  int
		requestMax int
		want       int
	}{
		{"request wins", 100, 50, 50},
		{"config fallback", 100, 0, 100},
		{"neither", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := userRequest("x")
			req.MaxTokens = tt.requestMax
			got := buildRequest("m", tt.configMax, req)
			if got.MaxTokens != tt.want {
				t.Errorf("MaxTokens = %d, want %d", got.MaxTokens, tt.want)
			}
			if got.ResponseFormat != nil {
				t.Error("response_format set without JSONResponse")
			}
		})
	}
}

func TestComplete_ContextCancelNotProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestProvider(srv.URL).Complete(ctx, userRequest("Hi"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, provider.ErrProviderDown) {
		t.Errorf("canceled request classified as provider down: %v", err)
	}
}
