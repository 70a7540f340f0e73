package core

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownModule is returned when a configuration names a module ID that
// is not compiled into the binary.
var ErrUnknownModule = errors.New("unknown module")

var (
	registry   = make(map[ModuleID]ModuleInfo)
	registryMu sync.RWMutex
)

// RegisterModule adds a module to the registry from init(). IDs must have
// the form "namespace.name" so that config sections group by namespace.
// It panics on a malformed ID, a nil constructor or a duplicate.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if ns, name, ok := strings.Cut(string(info.ID), "."); !ok || ns == "" || name == "" {
		panic(fmt.Sprintf("module ID %q: want namespace.name", info.ID))
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[info.ID]; exists {
		panic(fmt.Sprintf("module already registered: %s", info.ID))
	}
	registry[info.ID] = info
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[ModuleID(id)]
	return info, ok
}

// LookupModule is GetModule with an error that wraps ErrUnknownModule and
// names the compiled modules sharing the requested namespace, so a typo
// such as "store.sqlit" points at "store.sqlite".
func LookupModule(id string) (ModuleInfo, error) {
	if info, ok := GetModule(id); ok {
		return info, nil
	}
	ns := ModuleID(id).Namespace()
	siblings := GetModulesByNamespace(ns)
	if len(siblings) == 0 {
		return ModuleInfo{}, fmt.Errorf("%w %s", ErrUnknownModule, id)
	}
	names := make([]string, len(siblings))
	for i, s := range siblings {
		names[i] = string(s.ID)
	}
	return ModuleInfo{}, fmt.Errorf("%w %s (compiled %s modules: %s)",
		ErrUnknownModule, id, ns, strings.Join(names, ", "))
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedModules(func(ModuleID) bool { return true })
}

// GetModulesByNamespace returns the modules under namespace, sorted by ID.
// "store" matches store.sqlite and store.postgres but not storefront.x.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedModules(func(id ModuleID) bool {
		return strings.Contains(string(id), ".") && id.Namespace() == namespace
	})
}

// sortedModules must be called with registryMu held.
func sortedModules(keep func(ModuleID) bool) []ModuleInfo {
	var result []ModuleInfo
	for id, info := range registry {
		if keep(id) {
			result = append(result, info)
		}
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[ModuleID]ModuleInfo)
}
