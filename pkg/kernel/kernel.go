// Package kernel defines the solid-modeling source used to seed DLFL
// meshes and the flat triangle mesh handed to renderers. Implementations
// (sdfx) build implicit solids and polygonize them; the resulting triangle
// soup is welded into a DLFL mesh by meshio.
package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max v3.Vec)
}

// Triangle is one polygonized facet, wound counter-clockwise seen from
// outside the solid.
type Triangle [3]v3.Vec

// Normal returns the unit normal of t, or the zero vector for a degenerate
// triangle.
func (t Triangle) Normal() v3.Vec {
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.DivScalar(l)
}

// Kernel builds solids and polygonizes them.
type Kernel interface {
	// Primitives, centered on the origin.
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)
	Sphere(radius float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Triangles polygonizes s into a triangle soup.
	Triangles(s Solid) ([]Triangle, error)
}

// ToMesh polygonizes s with k and flattens the result into a render mesh.
func ToMesh(k Kernel, s Solid, name string) (*Mesh, error) {
	tris, err := k.Triangles(s)
	if err != nil {
		return nil, err
	}
	return FromTriangles(tris, name), nil
}
