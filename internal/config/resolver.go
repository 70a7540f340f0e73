package config

import (
	"cmp"
	"slices"
	"strings"
)

// namespaceRank orders module namespaces so that providers of a service are
// provisioned before its consumers.
var namespaceRank = map[string]int{
	"telemetry": 0,
	"store":     1,
	"provider":  2,
	"retrieval": 3,
	"backfill":  4,
	"gateway":   5,
}

// Resolve returns the module IDs from the configuration in load order:
// by namespace rank, then by ID. Unknown namespaces load last.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

func rank(id string) int {
	ns, _, _ := strings.Cut(id, ".")
	if r, ok := namespaceRank[ns]; ok {
		return r
	}
	return len(namespaceRank)
}
