package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry manages all registered order sources.
// Sources are returned in registration order so sync input is deterministic.
type Registry struct {
	sources map[string]OrderSource
	order   []string
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewRegistry creates a new provider registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sources: make(map[string]OrderSource),
		logger:  logger,
	}
}

// Register adds a source to the registry
func (r *Registry) Register(source OrderSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := source.Name()
	if !IsKnown(name) {
		return fmt.Errorf("unknown provider %q", name)
	}
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.sources[name] = source
	r.order = append(r.order, name)
	r.logger.Info("registered provider",
		slog.String("provider", name),
		slog.String("display_name", source.DisplayName()),
	)

	return nil
}

// Get returns a source by name
func (r *Registry) Get(name string) (OrderSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, exists := r.sources[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}

	return source, nil
}

// List returns all registered provider names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// GetAll returns all registered sources
func (r *Registry) GetAll() []OrderSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]OrderSource, 0, len(r.order))
	for _, name := range r.order {
		sources = append(sources, r.sources[name])
	}
	return sources
}

// Select returns the named sources in registration order.
// An empty names list selects every registered source.
func (r *Registry) Select(names []string) ([]OrderSource, error) {
	if len(names) == 0 {
		return r.GetAll(), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			return nil, err
		}
		wanted[name] = true
	}

	var selected []OrderSource
	for _, source := range r.GetAll() {
		if wanted[source.Name()] {
			selected = append(selected, source)
		}
	}
	return selected, nil
}

// CheckAuth runs auth checks on all sources concurrently
func (r *Registry) CheckAuth(ctx context.Context) map[string]AuthResult {
	sources := r.GetAll()

	results := make(map[string]AuthResult, len(sources))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, source := range sources {
		wg.Add(1)
		go func(s OrderSource) {
			defer wg.Done()
			res := s.CheckAuth(ctx)
			mu.Lock()
			results[s.Name()] = res
			mu.Unlock()

			if !res.OK() {
				r.logger.Warn("provider auth check failed",
					slog.String("provider", s.Name()),
					slog.String("status", string(res.Status)),
					slog.String("message", res.Message),
				)
			} else {
				r.logger.Debug("provider auth check passed",
					slog.String("provider", s.Name()),
				)
			}
		}(source)
	}

	wg.Wait()
	return results
}
