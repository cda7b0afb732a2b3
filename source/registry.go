package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Swind/go-feed-agent/core"
)

// Config describes a source to instantiate through a Factory.
type Config struct {
	ID     uint64
	Type   string
	Title  string
	Params map[string]string
}

// Factory creates a source of one type from its configuration.
type Factory func(cfg Config) (Source, error)

// Registry holds the sources known to the process and resolves them by id.
// It implements core.SourceResolver.
type Registry struct {
	mu        sync.RWMutex
	sources   map[uint64]Source
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources:   make(map[uint64]Source),
		factories: make(map[string]Factory),
	}
}

// RegisterType installs the factory used by New for sources of type typ.
func (r *Registry) RegisterType(typ string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typ] = f
}

// Build instantiates cfg through its type's factory without registering it.
func (r *Registry) Build(cfg Config) (Source, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("source: unknown type %q", cfg.Type)
	}

	src, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("source: create %s source %d: %w", cfg.Type, cfg.ID, err)
	}
	return src, nil
}

// New instantiates cfg through its type's factory and registers the result.
func (r *Registry) New(cfg Config) (Source, error) {
	src, err := r.Build(cfg)
	if err != nil {
		return nil, err
	}
	r.Register(src)
	return src, nil
}

// Register adds src, replacing any source with the same id.
func (r *Registry) Register(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[src.ID()] = src
}

// Remove forgets the source with the given id. Jobs already queued for it
// will find it missing and finish quietly.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, id)
}

// Lookup returns the business source with the given id.
func (r *Registry) Lookup(id uint64) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	return src, ok
}

// GetSource implements core.SourceResolver.
func (r *Registry) GetSource(ctx context.Context, id uint64) (core.Source, error) {
	src, ok := r.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("source %d: %w", id, core.ErrSourceNotFound)
	}
	return src, nil
}

// Sources returns every registered source ordered by id.
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	out := make([]Source, 0, len(r.sources))
	for _, src := range r.sources {
		out = append(out, src)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SourceIDs returns the ids of every registered source in ascending order.
func (r *Registry) SourceIDs() []uint64 {
	sources := r.Sources()
	ids := make([]uint64, len(sources))
	for i, src := range sources {
		ids[i] = src.ID()
	}
	return ids
}
