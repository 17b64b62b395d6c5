package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // the named mesh this was built from
}

// FromTriangles flattens a triangle soup. Every triangle gets its own three
// vertices carrying the facet normal, so shading stays flat.
func FromTriangles(tris []Triangle, name string) *Mesh {
	m := &Mesh{
		Vertices: make([]float32, 0, len(tris)*9),
		Normals:  make([]float32, 0, len(tris)*9),
		Indices:  make([]uint32, 0, len(tris)*3),
		Name:     name,
	}
	for _, t := range tris {
		m.AddTriangle(t, t.Normal())
	}
	return m
}

// AddTriangle appends one flat-shaded triangle.
func (m *Mesh) AddTriangle(t Triangle, n v3.Vec) {
	base := uint32(m.VertexCount())
	for j, p := range t {
		m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
		m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		m.Indices = append(m.Indices, base+uint32(j))
	}
}

// Triangle returns the i'th triangle's corner positions.
func (m *Mesh) Triangle(i int) Triangle {
	var t Triangle
	for j := range 3 {
		k := int(m.Indices[i*3+j]) * 3
		t[j] = v3.Vec{X: float64(m.Vertices[k]), Y: float64(m.Vertices[k+1]), Z: float64(m.Vertices[k+2])}
	}
	return t
}

// Triangles expands the indexed mesh back into a soup.
func (m *Mesh) Triangles() []Triangle {
	out := make([]Triangle, m.TriangleCount())
	for i := range out {
		out[i] = m.Triangle(i)
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the vertices. An empty
// mesh reports ok=false.
func (m *Mesh) Bounds() (min, max v3.Vec, ok bool) {
	if m.IsEmpty() {
		return min, max, false
	}
	min = v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		p := v3.Vec{X: float64(m.Vertices[i]), Y: float64(m.Vertices[i+1]), Z: float64(m.Vertices[i+2])}
		min = min.Min(p)
		max = max.Max(p)
	}
	return min, max, true
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}
