package llm

import (
	"strings"
	"sync"

	"github.com/promptcheck/promptcheck/internal/config"
)

// Registry hands out one Provider instance per backend name for the
// lifetime of a run. Lookups are cached, including misses, so each backend's
// credential and client setup happens at most once.
type Registry struct {
	cfg *config.Config

	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry builds a registry resolving credentials against cfg.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:       cfg,
		providers: make(map[string]Provider),
	}
}

// Register installs a provider under its own name, replacing any cached
// entry. Tests use this to plant fakes.
func (r *Registry) Register(p Provider) {
	if r == nil || p == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(p.Name()))
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[name] = p
}

// Get returns the provider for name, constructing it on first use. Unknown
// names report false; the miss is cached too.
func (r *Registry) Get(name string) (Provider, bool) {
	if r == nil {
		return nil, false
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	if p, ok := r.providers[key]; ok {
		return p, p != nil
	}

	p := newProvider(key, r.cfg)
	r.providers[key] = p
	return p, p != nil
}
