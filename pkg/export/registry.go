package export

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
)

// Registry stores exporters by name, providing discovery and duplication
// safeguards.
type Registry struct {
	mu        sync.RWMutex
	exporters map[string]Exporter
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		exporters: make(map[string]Exporter),
	}
}

// DefaultRegistry returns a registry holding the html and descriptor exporters.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(NewHTML())
	r.MustRegister(NewDescriptor())
	return r
}

// Register adds an exporter by its Name(). Duplicate names return an error.
func (r *Registry) Register(exporter Exporter) error {
	if exporter == nil {
		return fmt.Errorf("export: exporter is required")
	}
	name := exporter.Name()
	if name == "" {
		return fmt.Errorf("export: exporter name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.exporters[name]; exists {
		return fmt.Errorf("export: exporter %q already registered", name)
	}

	r.exporters[name] = exporter
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(exporter Exporter) {
	if err := r.Register(exporter); err != nil {
		panic(err)
	}
}

// Get retrieves an exporter by name.
func (r *Registry) Get(name string) (Exporter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exporter, ok := r.exporters[name]
	if !ok {
		return nil, fmt.Errorf("export: exporter %q not found", name)
	}
	return exporter, nil
}

// List returns a sorted list of exporter names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.exporters))
	for name := range r.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an exporter is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.exporters[name]
	return ok
}

// Export runs the named exporter and packages its output.
func (r *Registry) Export(ctx context.Context, name string, result orchestrator.Result) (Artifact, error) {
	exporter, err := r.Get(name)
	if err != nil {
		return Artifact{}, err
	}
	data, err := exporter.Export(ctx, result)
	if err != nil {
		return Artifact{}, fmt.Errorf("export: %s: %w", name, err)
	}
	return Artifact{
		Name:        exporter.Name(),
		Filename:    exporter.Filename(),
		ContentType: exporter.ContentType(),
		Data:        data,
	}, nil
}
