package profile

import (
	"fmt"
	"strings"

	"NewsDigest/internal/usecase"
)

// Runtime bundles the wired use cases of one configured profile.
type Runtime struct {
	Name      string
	Pipeline  *usecase.Pipeline
	Publisher *usecase.Publisher

	// Videos is nil when the profile has no video source directory.
	Videos *usecase.VideoUploader
}

// Registry keeps profile runtimes in registration order, keyed case-insensitively.
type Registry struct {
	order    []string
	runtimes map[string]Runtime
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: map[string]Runtime{}}
}

// Register adds or replaces a profile runtime.
func (r *Registry) Register(rt Runtime) {
	if r.runtimes == nil {
		r.runtimes = map[string]Runtime{}
	}
	key := strings.ToLower(rt.Name)
	if _, ok := r.runtimes[key]; !ok {
		r.order = append(r.order, key)
	}
	r.runtimes[key] = rt
}

// Resolve returns a profile by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Runtime, error) {
	if rt, ok := r.runtimes[strings.ToLower(name)]; ok {
		return rt, nil
	}
	return Runtime{}, fmt.Errorf("profile %s is not configured", name)
}

// Select resolves the named profiles; no names selects every profile in registration order.
func (r *Registry) Select(names ...string) ([]Runtime, error) {
	if len(names) == 0 {
		out := make([]Runtime, 0, len(r.order))
		for _, key := range r.order {
			out = append(out, r.runtimes[key])
		}
		return out, nil
	}

	out := make([]Runtime, 0, len(names))
	for _, name := range names {
		rt, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}

// Pipelines returns every registered pipeline in registration order.
func (r *Registry) Pipelines() []*usecase.Pipeline {
	out := make([]*usecase.Pipeline, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.runtimes[key].Pipeline)
	}
	return out
}
