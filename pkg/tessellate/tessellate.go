// Package tessellate converts DLFL polygon meshes into flat triangle meshes
// for rendering. The conversion is read-only and never mutates the source
// mesh.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/dlfl/pkg/dlfl"
	"github.com/chazu/dlfl/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Shading selects how normals are assigned.
type Shading int

const (
	// Flat gives every triangle its own vertices carrying the face normal.
	Flat Shading = iota
	// Smooth shares one render vertex per mesh vertex, carrying the
	// normalized sum of its incident face normals.
	Smooth
)

// Tessellate fan-triangulates every face of m with flat shading.
func Tessellate(m *dlfl.Mesh, name string) (*kernel.Mesh, error) {
	return TessellateShaded(m, name, Flat)
}

// TessellateShaded fan-triangulates every face of m from its head corner.
// Faces with fewer than three corners have no area and are skipped. Fans
// are exact for convex faces, which is what the hull builder and the
// importers produce.
func TessellateShaded(m *dlfl.Mesh, name string, shading Shading) (*kernel.Mesh, error) {
	if m == nil {
		return nil, errors.New("tessellate: nil mesh")
	}
	out := &kernel.Mesh{Name: name}

	var (
		index   map[dlfl.VertexRef]uint32
		normals map[dlfl.VertexRef]v3.Vec
	)
	if shading == Smooth {
		index = make(map[dlfl.VertexRef]uint32)
		normals = make(map[dlfl.VertexRef]v3.Vec)
	}

	for f := range m.Faces() {
		n, err := m.ComputeNormal(f)
		if errors.Is(err, dlfl.ErrDegenerateFace) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("tessellate: %s: %w", name, err)
		}
		vs := m.FaceVertices(f)

		if shading == Flat {
			for i := 1; i+1 < len(vs); i++ {
				out.AddTriangle(kernel.Triangle{
					m.Vertex(vs[0]).Coords,
					m.Vertex(vs[i]).Coords,
					m.Vertex(vs[i+1]).Coords,
				}, n)
			}
			continue
		}

		for _, v := range vs {
			if _, ok := index[v]; !ok {
				p := m.Vertex(v).Coords
				index[v] = uint32(out.VertexCount())
				out.Vertices = append(out.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
			}
			normals[v] = normals[v].Add(n)
		}
		for i := 1; i+1 < len(vs); i++ {
			out.Indices = append(out.Indices, index[vs[0]], index[vs[i]], index[vs[i+1]])
		}
	}

	if shading == Smooth {
		out.Normals = make([]float32, len(out.Vertices))
		for v, i := range index {
			n := dlfl.Unit(normals[v])
			out.Normals[i*3] = float32(n.X)
			out.Normals[i*3+1] = float32(n.Y)
			out.Normals[i*3+2] = float32(n.Z)
		}
	}
	return out, nil
}

// Named is a mesh with the name it is rendered under.
type Named struct {
	Name string
	Mesh *dlfl.Mesh
}

// All tessellates each named mesh in order.
func All(meshes []Named, shading Shading) ([]*kernel.Mesh, error) {
	out := make([]*kernel.Mesh, 0, len(meshes))
	for _, nm := range meshes {
		km, err := TessellateShaded(nm.Mesh, nm.Name, shading)
		if err != nil {
			return nil, err
		}
		out = append(out, km)
	}
	return out, nil
}
