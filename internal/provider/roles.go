package provider

import (
	"fmt"
	"slices"
)

// Service names under which provider modules publish themselves.
const (
	GeneratorService = "provider.generator"
	EmbedderService  = "provider.embedder"
)

// Role is a capability a provider module may serve.
type Role string

// Roles a provider module can be configured to serve.
const (
	RoleGenerator Role = "generator"
	RoleEmbedder  Role = "embedder"
)

// ServiceName returns the AppContext service name for r.
func (r Role) ServiceName() string {
	switch r {
	case RoleGenerator:
		return GeneratorService
	case RoleEmbedder:
		return EmbedderService
	default:
		return ""
	}
}

// ParseRoles validates a configured "serve" list. An empty list means
// every role. Duplicates are dropped.
func ParseRoles(names []string) ([]Role, error) {
	if len(names) == 0 {
		return []Role{RoleGenerator, RoleEmbedder}, nil
	}
	out := make([]Role, 0, len(names))
	for _, n := range names {
		r := Role(n)
		if r.ServiceName() == "" {
			return nil, fmt.Errorf("provider: unknown role %q (want generator or embedder)", n)
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}
