package broker

import (
	"sort"
	"strings"
	"sync"

	"SignalTrader/internal/domain/service"
)

// Registry maps broker names to adapters. Lookups are case-insensitive.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]service.BrokerAdapter
}

func NewRegistry(adapters ...service.BrokerAdapter) *Registry {
	r := &Registry{adapters: make(map[string]service.BrokerAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Name().
func (r *Registry) Register(a service.BrokerAdapter) {
	if a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[normalize(a.Name())] = a
}

func (r *Registry) Lookup(name string) (service.BrokerAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[normalize(name)]
	return a, ok
}

// Names returns the registered broker names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
