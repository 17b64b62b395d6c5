package engine

import (
	"slices"

	"github.com/chazu/dlfl/pkg/dlfl"
	"github.com/chazu/dlfl/pkg/kernel"
	"github.com/chazu/dlfl/pkg/tessellate"
)

// Scene holds the meshes a script defined, by name, in definition order.
// All meshes share the scene's ID session.
type Scene struct {
	session *dlfl.Session
	meshes  map[string]*dlfl.Mesh
	order   []string
}

func newScene(s *dlfl.Session) *Scene {
	return &Scene{session: s, meshes: make(map[string]*dlfl.Mesh)}
}

// Session returns the ID session the scene's meshes were built on.
func (s *Scene) Session() *dlfl.Session { return s.session }

// Add stores m under name. Redefining a name replaces the mesh but keeps
// its original position.
func (s *Scene) Add(name string, m *dlfl.Mesh) {
	if _, ok := s.meshes[name]; !ok {
		s.order = append(s.order, name)
	}
	s.meshes[name] = m
}

// Get returns the mesh named name, or nil.
func (s *Scene) Get(name string) *dlfl.Mesh { return s.meshes[name] }

// Names returns the mesh names in definition order.
func (s *Scene) Names() []string { return slices.Clone(s.order) }

// Len returns the number of named meshes.
func (s *Scene) Len() int { return len(s.order) }

// Named returns the meshes in definition order.
func (s *Scene) Named() []tessellate.Named {
	out := make([]tessellate.Named, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, tessellate.Named{Name: name, Mesh: s.meshes[name]})
	}
	return out
}

// Render tessellates every mesh for display.
func (s *Scene) Render(shading tessellate.Shading) ([]*kernel.Mesh, error) {
	return tessellate.All(s.Named(), shading)
}
