// Package render defines the capability every output target implements and a
// registry that resolves targets by name.
package render

import (
	"fmt"
	"slices"

	"pipegen/pkg/pipeline"
	"pipegen/pkg/project"
)

// Artifact is one rendered document together with the path, relative to the
// output directory, it is saved under.
type Artifact struct {
	Path    string
	Content []byte
}

// Renderer projects a project config and stage list into one artifact.
// Implementations must be deterministic and must not mutate their inputs.
type Renderer interface {
	Name() string
	Filename() string
	Render(config project.Config, stages []pipeline.Stage) (Artifact, error)
}

// Registry resolves renderers by name. Names are listed in registration order.
type Registry struct {
	renderers map[string]Renderer
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]Renderer)}
}

// Register adds renderer. Registering a second renderer under the same name fails.
func (r *Registry) Register(renderer Renderer) error {
	if renderer == nil {
		return fmt.Errorf("renderer cannot be nil")
	}
	name := renderer.Name()
	if name == "" {
		return fmt.Errorf("renderer name cannot be empty")
	}

	if _, exists := r.renderers[name]; exists {
		return fmt.Errorf("renderer already registered: %s", name)
	}
	r.renderers[name] = renderer
	r.order = append(r.order, name)
	return nil
}

// Get returns the renderer registered under name.
func (r *Registry) Get(name string) (Renderer, error) {
	renderer, ok := r.renderers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported render target: %s", name)
	}
	return renderer, nil
}

// Names lists registered renderer names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Renderers lists registered renderers in registration order.
func (r *Registry) Renderers() []Renderer {
	out := make([]Renderer, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.renderers[name])
	}
	return out
}
