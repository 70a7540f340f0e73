package core

import "strings"

// ModuleID is a dotted identifier such as "store.sqlite" or "provider.gemini".
// The first segment is the namespace.
type ModuleID string

// Namespace returns the segment before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns everything after the first dot, or the whole ID when it has
// no namespace.
func (id ModuleID) Name() string {
	_, name, found := strings.Cut(string(id), ".")
	if !found {
		return string(id)
	}
	return name
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is the minimal interface every module implements.
type Module interface {
	ModuleInfo() ModuleInfo
}
