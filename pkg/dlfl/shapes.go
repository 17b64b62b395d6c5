package dlfl

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// FromPolygons builds a mesh from a vertex table and faces given as indices
// into it, then pairs edges. It is the import path for every text and
// triangle-soup reader.
func FromPolygons(s *Session, points []v3.Vec, faces [][]int) (*Mesh, error) {
	m := NewMesh(s)
	vs := make([]VertexRef, len(points))
	for i, p := range points {
		v, err := m.AddVertex(p)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	for fi, face := range faces {
		refs := make([]VertexRef, len(face))
		for i, idx := range face {
			if idx < 0 || idx >= len(vs) {
				return nil, fmt.Errorf("dlfl: face %d: vertex index %d out of range", fi, idx)
			}
			refs[i] = vs[idx]
		}
		if _, err := m.AddFace(refs...); err != nil {
			return nil, fmt.Errorf("dlfl: face %d: %w", fi, err)
		}
	}
	if _, err := m.BuildEdges(); err != nil {
		return nil, err
	}
	return m, nil
}

// Cube returns an axis-aligned cube of the given edge length centered at the
// origin, with outward-facing quads.
func Cube(s *Session, size float64) (*Mesh, error) {
	h := size / 2
	points := []v3.Vec{
		{X: -h, Y: -h, Z: -h}, {X: h, Y: -h, Z: -h}, {X: h, Y: h, Z: -h}, {X: -h, Y: h, Z: -h},
		{X: -h, Y: -h, Z: h}, {X: h, Y: -h, Z: h}, {X: h, Y: h, Z: h}, {X: -h, Y: h, Z: h},
	}
	faces := [][]int{
		{0, 3, 2, 1}, // -z
		{4, 5, 6, 7}, // +z
		{0, 1, 5, 4}, // -y
		{2, 3, 7, 6}, // +y
		{1, 2, 6, 5}, // +x
		{0, 4, 7, 3}, // -x
	}
	return FromPolygons(s, points, faces)
}

// Tetrahedron returns the tetrahedron on the given four points. The first
// three are wound so that their face points away from the fourth.
func Tetrahedron(s *Session, a, b, c, d v3.Vec) (*Mesh, error) {
	if b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a)) > 0 {
		b, c = c, b
	}
	return FromPolygons(s, []v3.Vec{a, b, c, d}, [][]int{
		{0, 1, 2},
		{0, 3, 1},
		{1, 3, 2},
		{2, 3, 0},
	})
}
