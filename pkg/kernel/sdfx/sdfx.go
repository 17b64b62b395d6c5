// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Solids are signed distance
// functions; Triangles polygonizes them with uniform marching cubes.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/dlfl/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells is the marching cubes resolution along the longest
// bounding box axis.
const DefaultMeshCells = 64

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

func (s *sdfxSolid) BoundingBox() (min, max v3.Vec) {
	bb := s.s.BoundingBox()
	return bb.Min, bb.Max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a kernel polygonizing at DefaultMeshCells.
func New() *SdfxKernel {
	return NewWithCells(DefaultMeshCells)
}

// NewWithCells returns a kernel polygonizing at the given resolution.
// Values below 1 fall back to DefaultMeshCells.
func NewWithCells(cells int) *SdfxKernel {
	if cells < 1 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// Cells returns the marching cubes resolution.
func (k *SdfxKernel) Cells() int { return k.cells }

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions centered on the origin.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box: %w", err)
	}
	return wrap(s), nil
}

// Cylinder creates a cylinder along Z centered on the origin.
func (k *SdfxKernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return wrap(s), nil
}

// Sphere creates a sphere centered on the origin.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: sphere: %w", err)
	}
	return wrap(s), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) applied X, then Y, then Z.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	rad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	m := sdf.RotateZ(rad(z)).Mul(sdf.RotateY(rad(y))).Mul(sdf.RotateX(rad(x)))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Triangles polygonizes s with marching cubes. Degenerate triangles, which
// the polygonizer emits where the surface grazes a cell corner, are
// dropped.
func (k *SdfxKernel) Triangles(s kernel.Solid) ([]kernel.Triangle, error) {
	renderer := render.NewMarchingCubesUniform(k.cells)
	soup := render.ToTriangles(unwrap(s), renderer)

	out := make([]kernel.Triangle, 0, len(soup))
	for _, tri := range soup {
		t := kernel.Triangle{tri[0], tri[1], tri[2]}
		if t.Normal() == (v3.Vec{}) {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sdfx: polygonizing at %d cells produced no triangles", k.cells)
	}
	return out, nil
}
