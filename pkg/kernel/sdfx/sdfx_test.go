package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/dlfl/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func mustSolid(t *testing.T) func(kernel.Solid, error) kernel.Solid {
	return func(s kernel.Solid, err error) kernel.Solid {
		t.Helper()
		if err != nil {
			t.Fatalf("primitive failed: %v", err)
		}
		return s
	}
}

func TestBox(t *testing.T) {
	k := NewWithCells(16)
	box := mustSolid(t)(k.Box(100, 50, 25))
	tris, err := k.Triangles(box)
	if err != nil {
		t.Fatalf("Triangles failed: %v", err)
	}
	if len(tris) == 0 {
		t.Fatal("expected triangles")
	}
	for i, tri := range tris {
		if tri.Normal() == (v3.Vec{}) {
			t.Fatalf("triangle %d is degenerate", i)
		}
	}
	t.Logf("box triangle count: %d", len(tris))
}

func TestTrianglesFaceOutward(t *testing.T) {
	k := NewWithCells(24)
	sphere := mustSolid(t)(k.Sphere(10))
	tris, err := k.Triangles(sphere)
	if err != nil {
		t.Fatalf("Triangles failed: %v", err)
	}
	inward := 0
	for _, tri := range tris {
		c := tri[0].Add(tri[1]).Add(tri[2]).DivScalar(3)
		if tri.Normal().Dot(c) < 0 {
			inward++
		}
	}
	if inward > 0 {
		t.Errorf("%d of %d triangles face inward", inward, len(tris))
	}
}

func TestInvalidPrimitives(t *testing.T) {
	k := New()
	if _, err := k.Box(-1, 1, 1); err == nil {
		t.Error("Box with negative size should fail")
	}
	if _, err := k.Cylinder(10, -1); err == nil {
		t.Error("Cylinder with negative radius should fail")
	}
	if _, err := k.Sphere(0); err == nil {
		t.Error("Sphere with zero radius should fail")
	}
}

func TestCellsDefault(t *testing.T) {
	if got := NewWithCells(0).Cells(); got != DefaultMeshCells {
		t.Errorf("Cells() = %d, want %d", got, DefaultMeshCells)
	}
	if got := NewWithCells(10).Cells(); got != 10 {
		t.Errorf("Cells() = %d, want 10", got)
	}
}

func TestDifference(t *testing.T) {
	k := NewWithCells(32)

	box := mustSolid(t)(k.Box(100, 100, 100))
	boxTris, err := k.Triangles(box)
	if err != nil {
		t.Fatalf("Triangles(box) failed: %v", err)
	}

	cyl := mustSolid(t)(k.Cylinder(120, 20))
	diffTris, err := k.Triangles(k.Difference(box, cyl))
	if err != nil {
		t.Fatalf("Triangles(diff) failed: %v", err)
	}
	// A box with a hole has more surface to cover.
	if len(diffTris) <= len(boxTris) {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			len(diffTris), len(boxTris))
	}
}

func TestUnionAndIntersection(t *testing.T) {
	k := NewWithCells(16)
	a := mustSolid(t)(k.Box(50, 50, 50))
	b := k.Translate(mustSolid(t)(k.Box(50, 50, 50)), 30, 0, 0)

	umin, umax := k.Union(a, b).BoundingBox()
	if math.Abs(umin.X+25) > 0.01 || math.Abs(umax.X-55) > 0.01 {
		t.Errorf("union x extent = [%f, %f], want [-25, 55]", umin.X, umax.X)
	}
	if _, err := k.Triangles(k.Intersection(a, b)); err != nil {
		t.Errorf("Triangles(intersection) failed: %v", err)
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	box := mustSolid(t)(k.Box(10, 10, 10))
	min, max := k.Translate(box, 100, 200, 300).BoundingBox()

	const tol = 0.5
	expectMin := v3.Vec{X: 95, Y: 195, Z: 295}
	expectMax := v3.Vec{X: 105, Y: 205, Z: 305}
	if min.Sub(expectMin).Length() > tol {
		t.Errorf("min = %v, expected ~%v", min, expectMin)
	}
	if max.Sub(expectMax).Length() > tol {
		t.Errorf("max = %v, expected ~%v", max, expectMax)
	}
}

func TestRotate(t *testing.T) {
	k := New()
	box := mustSolid(t)(k.Box(100, 10, 10))

	// A long box along X rotated 90 degrees around Z extends along Y.
	min, max := k.Rotate(box, 0, 0, 90).BoundingBox()
	xExtent := max.X - min.X
	yExtent := max.Y - min.Y

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}

func TestToMesh(t *testing.T) {
	k := NewWithCells(16)
	m, err := kernel.ToMesh(k, mustSolid(t)(k.Sphere(5)), "ball")
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if m.IsEmpty() || m.Name != "ball" {
		t.Fatalf("unexpected mesh: %d vertices, name %q", m.VertexCount(), m.Name)
	}
	if len(m.Indices) != m.TriangleCount()*3 || len(m.Normals) != len(m.Vertices) {
		t.Fatal("inconsistent array lengths")
	}
}
