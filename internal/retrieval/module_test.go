package retrieval

import (
	"errors"
	"testing"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/security/securitytest"
	"gopkg.in/yaml.v3"
)

func TestModule_ProvisionRequiresStore(t *testing.T) {
	t.Parallel()

	m := &Module{}
	err := m.Provision(core.NewAppContext(securitytest.DiscardLogger(), t.TempDir()))
	if !errors.Is(err, ErrNoStore) {
		t.Fatalf("err = %v, want ErrNoStore", err)
	}
}

func TestModule_ProvisionPublishesService(t *testing.T) {
	t.Parallel()

	ctx := core.NewAppContext(securitytest.DiscardLogger(), t.TempDir())
	ctx.RegisterService(StoreServiceName, memory.NewInMemoryStore())
	ctx.RegisterService(EmbedderServiceName, fixedEmbedder([]float32{1}, nil))

	var node yaml.Node
	if err := yaml.Unmarshal([]byte("threshold: 0.55\nlimit: 8\n"), &node); err != nil {
		t.Fatal(err)
	}

	m := &Module{}
	if err := m.Configure(node.Content[0]); err != nil {
		t.Fatal(err)
	}
	if err := m.Provision(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}

	svc, ok := core.ServiceAs[*Service](ctx, ServiceName)
	if !ok {
		t.Fatal("retrieval.service not registered")
	}
	if cfg := svc.Config(); cfg.Threshold != 0.55 || cfg.Limit != 8 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestConfigure_Threshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		want    float64
		wantErr bool
	}{
		{"absent uses default", "limit: 5\n", DefaultThreshold, false},
		{"explicit zero kept", "threshold: 0\n", 0, false},
		{"explicit value", "threshold: 0.25\n", 0.25, false},
		{"negative rejected", "threshold: -0.2\n", -0.2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var node yaml.Node
			if err := yaml.Unmarshal([]byte(tt.yaml), &node); err != nil {
				t.Fatal(err)
			}
			m := &Module{}
			if err := m.Configure(node.Content[0]); err != nil {
				t.Fatalf("Configure: %v", err)
			}
			m.config.defaults()
			if m.config.Threshold != tt.want {
				t.Errorf("Threshold = %v, want %v", m.config.Threshold, tt.want)
			}
			if err := m.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if got := NewService(m.config, nil, nil, nil, nil).Config().Threshold; got != tt.want {
				t.Errorf("service threshold = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	hot := 3.0
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"threshold above one", Config{Threshold: 1.2}, true},
		{"negative threshold", Config{Threshold: -0.1}, true},
		{"temperature out of range", Config{Temperature: &hot}, true},
		{"negative max tokens", Config{MaxTokens: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.cfg
			cfg.defaults()
			if err := cfg.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
