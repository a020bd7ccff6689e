package source

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/fetcher"
)

// Registry maps source names to their implementations, preserving
// registration order. Pass order is corpus order: the engine walks the
// registry front to back.
type Registry struct {
	sources map[string]Source
	order   []string
}

// NewRegistry builds a registry from the configured source specs.
func NewRegistry(specs []config.SourceConfig, f fetcher.Fetcher, fetchCfg config.FetchConfig) (*Registry, error) {
	r := &Registry{sources: make(map[string]Source)}

	for _, spec := range specs {
		src, err := New(spec, f, fetchCfg)
		if err != nil {
			return nil, err
		}
		r.Register(src)
	}

	return r, nil
}

// New constructs a single source from its spec.
func New(spec config.SourceConfig, f fetcher.Fetcher, fetchCfg config.FetchConfig) (Source, error) {
	switch spec.Type {
	case "huggingface":
		return NewHuggingFace(spec, f, fetchCfg), nil
	case "jsonl":
		return NewJSONL(spec, f), nil
	case "csv":
		return NewCSV(spec, f), nil
	case "xlsx":
		return NewXLSX(spec, f), nil
	default:
		return nil, eris.Errorf("source: unknown type %q for %q (valid: huggingface, jsonl, csv, xlsx)", spec.Type, spec.Name)
	}
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	name := s.Name()
	r.sources[name] = s
	r.order = append(r.order, name)
}

// Get returns a source by name.
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, eris.Errorf("source: unknown source %q", name)
	}
	return s, nil
}

// Select returns the named sources in registration order, or all
// sources when names is empty.
func (r *Registry) Select(names []string) ([]Source, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			return nil, err
		}
		want[name] = true
	}

	var result []Source
	for _, name := range r.order {
		if want[name] {
			result = append(result, r.sources[name])
		}
	}
	return result, nil
}

// All returns all sources in registration order.
func (r *Registry) All() []Source {
	result := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.sources[name])
	}
	return result
}
