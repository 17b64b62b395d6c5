//go:build manifold

// Package manifold binds the Manifold mesh boolean library
// (https://github.com/elalish/manifold) as a kernel.Kernel. Its solids are
// exact triangle meshes, so the triangles handed to meshio weld without the
// sliver faces marching cubes leaves behind.
//
// The package needs the manifoldc C library installed under /usr/local.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/dlfl/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	_ kernel.Kernel = (*Kernel)(nil)
	_ kernel.Solid  = (*solid)(nil)
)

// DefaultSegments is the number of facets around a cylinder or sphere.
const DefaultSegments = 32

// Available reports whether this build links the Manifold library.
const Available = true

type solid struct {
	ptr *C.ManifoldManifold
}

func (s *solid) BoundingBox() (min, max v3.Vec) {
	bbox := C.manifold_bounding_box(C.manifold_alloc_box(), s.ptr)
	defer C.manifold_delete_box(bbox)

	min = v3.Vec{
		X: float64(C.manifold_box_min_x(bbox)),
		Y: float64(C.manifold_box_min_y(bbox)),
		Z: float64(C.manifold_box_min_z(bbox)),
	}
	max = v3.Vec{
		X: float64(C.manifold_box_max_x(bbox)),
		Y: float64(C.manifold_box_max_y(bbox)),
		Z: float64(C.manifold_box_max_z(bbox)),
	}
	return min, max
}

// wrap takes ownership of ptr; the C object is freed with the Go value.
func wrap(ptr *C.ManifoldManifold) *solid {
	s := &solid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *solid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func unwrap(s kernel.Solid) *C.ManifoldManifold {
	return s.(*solid).ptr
}

// Kernel implements kernel.Kernel on Manifold.
type Kernel struct {
	segments int
}

// New returns a Manifold kernel using DefaultSegments for round primitives.
func New() (kernel.Kernel, error) {
	return &Kernel{segments: DefaultSegments}, nil
}

func positive(what string, vals ...float64) error {
	for _, v := range vals {
		if v <= 0 {
			return fmt.Errorf("manifold: %s: dimensions must be positive, got %g", what, v)
		}
	}
	return nil
}

// Box creates a box centered on the origin.
func (k *Kernel) Box(x, y, z float64) (kernel.Solid, error) {
	if err := positive("box", x, y, z); err != nil {
		return nil, err
	}
	ptr := C.manifold_cube(C.manifold_alloc_manifold(),
		C.double(x), C.double(y), C.double(z),
		C.int(1), // centered
	)
	return wrap(ptr), nil
}

// Cylinder creates an untapered cylinder along Z centered on the origin.
func (k *Kernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	if err := positive("cylinder", height, radius); err != nil {
		return nil, err
	}
	ptr := C.manifold_cylinder(C.manifold_alloc_manifold(),
		C.double(height),
		C.double(radius), C.double(radius),
		C.int(k.segments),
		C.int(1),
	)
	return wrap(ptr), nil
}

// Sphere creates a sphere centered on the origin.
func (k *Kernel) Sphere(radius float64) (kernel.Solid, error) {
	if err := positive("sphere", radius); err != nil {
		return nil, err
	}
	ptr := C.manifold_sphere(C.manifold_alloc_manifold(), C.double(radius), C.int(k.segments))
	return wrap(ptr), nil
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(C.manifold_union(C.manifold_alloc_manifold(), unwrap(a), unwrap(b)))
}

func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(C.manifold_difference(C.manifold_alloc_manifold(), unwrap(a), unwrap(b)))
}

func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(C.manifold_intersection(C.manifold_alloc_manifold(), unwrap(a), unwrap(b)))
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return wrap(C.manifold_translate(C.manifold_alloc_manifold(), unwrap(s),
		C.double(x), C.double(y), C.double(z)))
}

// Rotate rotates s by Euler angles in degrees about X, then Y, then Z.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return wrap(C.manifold_rotate(C.manifold_alloc_manifold(), unwrap(s),
		C.double(x), C.double(y), C.double(z)))
}

// Triangles reads the solid's MeshGL. Vertex properties start with the
// position; any further properties are skipped.
func (k *Kernel) Triangles(s kernel.Solid) ([]kernel.Triangle, error) {
	mesh := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), unwrap(s))
	defer C.manifold_delete_meshgl(mesh)

	numVert := int(C.manifold_meshgl_num_vert(mesh))
	numTri := int(C.manifold_meshgl_num_tri(mesh))
	numProp := int(C.manifold_meshgl_num_prop(mesh))
	if numVert == 0 || numTri == 0 {
		return nil, nil
	}
	if numProp < 3 {
		return nil, fmt.Errorf("manifold: mesh has %d vertex properties, need at least 3", numProp)
	}

	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), mesh)
	idx := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&idx[0])), mesh)

	pos := func(i uint32) v3.Vec {
		b := int(i) * numProp
		return v3.Vec{X: float64(props[b]), Y: float64(props[b+1]), Z: float64(props[b+2])}
	}
	tris := make([]kernel.Triangle, 0, numTri)
	for t := range numTri {
		a, b, c := idx[3*t], idx[3*t+1], idx[3*t+2]
		if int(max(a, b, c)) >= numVert {
			return nil, errors.New("manifold: triangle index out of range")
		}
		tris = append(tris, kernel.Triangle{pos(a), pos(b), pos(c)})
	}
	return tris, nil
}
