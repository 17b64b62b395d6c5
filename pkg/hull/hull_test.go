package hull

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/chazu/dlfl/pkg/dlfl"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/geo/r3"
	quickhull "github.com/markus-wa/quickhull-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }

func cubeCorners(h float64) []v3.Vec {
	var pts []v3.Vec
	for _, x := range []float64{-h, h} {
		for _, y := range []float64{-h, h} {
			for _, z := range []float64{-h, h} {
				pts = append(pts, vec(x, y, z))
			}
		}
	}
	return pts
}

// assertClosedHull checks the structural and orientation properties every
// hull must have.
func assertClosedHull(t *testing.T, m *dlfl.Mesh) {
	t.Helper()
	assert.Empty(t, m.Check())
	assert.True(t, m.IsClosed())
	assert.Equal(t, 2, m.NumVertices()-m.NumEdges()+m.NumFaces(), "Euler characteristic")

	var center v3.Vec
	for v := range m.Vertices() {
		center = center.Add(m.Vertex(v).Coords)
	}
	center = center.DivScalar(float64(m.NumVertices()))

	for f := range m.Faces() {
		face := m.Face(f)
		assert.Equal(t, 3, face.Size())
		assert.Greater(t, face.Normal.Dot(face.Centroid.Sub(center)), 0.0, "face %d faces inward", f)
		// Convexity: no vertex is in front of any face.
		for v := range m.Vertices() {
			assert.LessOrEqual(t, face.Normal.Dot(m.Vertex(v).Coords.Sub(face.Centroid)), 1e-9)
		}
	}
	for e := range m.Edges() {
		assert.True(t, m.IsValid(e))
	}
}

func TestTetrahedron(t *testing.T) {
	pts := []v3.Vec{vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0), vec(0, 0, 1)}
	b := New(pts, Options{})
	all, err := b.Construct()
	require.NoError(t, err)
	assert.True(t, all)

	m := b.Mesh()
	assert.Equal(t, 4, m.NumFaces())
	assert.Equal(t, 4, m.NumVertices())
	assert.Equal(t, 6, m.NumEdges())
	assertClosedHull(t, m)
	for i, in := range b.Inputs() {
		assert.True(t, in.Processed, "point %d", i)
		assert.True(t, in.OnHull, "point %d", i)
		assert.Equal(t, pts[i], m.Vertex(b.Vertex(i)).Coords)
	}
}

func TestTetrahedronEitherWinding(t *testing.T) {
	// The fourth point on the other side of the seed triangle.
	pts := []v3.Vec{vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0), vec(0, 0, -1)}
	b := New(pts, Options{})
	all, err := b.Construct()
	require.NoError(t, err)
	assert.True(t, all)
	assertClosedHull(t, b.Mesh())
}

func TestInteriorPointExcluded(t *testing.T) {
	pts := []v3.Vec{vec(0, 0, 0), vec(4, 0, 0), vec(0, 4, 0), vec(0, 0, 4), vec(1, 1, 1)}
	b := New(pts, Options{})
	all, err := b.Construct()
	require.NoError(t, err)
	assert.False(t, all)
	assert.False(t, b.OnHull(4))
	assert.True(t, b.Inputs()[4].Processed)
	assert.Equal(t, dlfl.VertexRef(dlfl.Nil), b.Vertex(4))
	assert.Equal(t, 4, b.Mesh().NumFaces())
	assertClosedHull(t, b.Mesh())
}

func TestInteriorPointFirst(t *testing.T) {
	// The interior point is used for the seed triangle and later dropped.
	pts := []v3.Vec{vec(0.1, 0.1, 0.1), vec(-2, -2, -2), vec(3, -2, -2), vec(-2, 3, -2), vec(-2, -2, 3)}
	b := New(pts, Options{})
	all, err := b.Construct()
	require.NoError(t, err)
	assert.False(t, all)
	assert.False(t, b.OnHull(0))
	for i := 1; i < len(pts); i++ {
		assert.True(t, b.OnHull(i), "point %d", i)
	}
	assert.Equal(t, 4, b.Mesh().NumVertices())
	assertClosedHull(t, b.Mesh())
}

func TestCube(t *testing.T) {
	pts := append(cubeCorners(1), vec(0, 0, 0), vec(0.5, -0.2, 0.9))
	b := New(pts, Options{})
	all, err := b.Construct()
	require.NoError(t, err)
	assert.False(t, all)

	m := b.Mesh()
	assert.Equal(t, 8, m.NumVertices())
	assert.Equal(t, 12, m.NumFaces())
	assertClosedHull(t, m)
	for i := range 8 {
		assert.True(t, b.OnHull(i), "corner %d", i)
	}
	assert.False(t, b.OnHull(8))
	assert.False(t, b.OnHull(9))
}

func TestDuplicatePoints(t *testing.T) {
	pts := append(cubeCorners(1), vec(1, 1, 1))
	b := New(pts, Options{})
	all, err := b.Construct()
	require.NoError(t, err)
	assert.False(t, all, "a duplicate cannot be a second hull vertex")
	assert.Equal(t, 8, b.Mesh().NumVertices())
	assertClosedHull(t, b.Mesh())
}

func TestDegenerateInput(t *testing.T) {
	tests := []struct {
		name string
		pts  []v3.Vec
		want error
	}{
		{"empty", nil, ErrTooFewPoints},
		{"three", []v3.Vec{vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0)}, ErrTooFewPoints},
		{"coincident", []v3.Vec{vec(1, 1, 1), vec(1, 1, 1), vec(1, 1, 1), vec(1, 1, 1)}, ErrColinear},
		{"colinear", []v3.Vec{vec(0, 0, 0), vec(1, 1, 1), vec(2, 2, 2), vec(-3, -3, -3), vec(5, 5, 5)}, ErrColinear},
		{"coplanar", []v3.Vec{vec(0, 0, 0), vec(1, 0, 0), vec(1, 1, 0), vec(0, 1, 0), vec(0.5, 0.5, 0)}, ErrCoplanar},
		{"nan", []v3.Vec{vec(0, 0, 0), vec(1, 0, 0), vec(math.NaN(), 0, 0), vec(0, 1, 0), vec(0, 0, 1)}, ErrNonFinite},
		{"inf", []v3.Vec{vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0), vec(0, 0, math.Inf(-1))}, ErrNonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.pts, Options{})
			all, err := b.Construct()
			assert.False(t, all)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			// The result is sticky.
			_, again := b.Construct()
			assert.Equal(t, err, again)
		})
	}
}

func TestConstructIsIdempotent(t *testing.T) {
	b := New(cubeCorners(2), Options{})
	all, err := b.Construct()
	require.NoError(t, err)
	faces := b.Mesh().NumFaces()

	again, err := b.Construct()
	require.NoError(t, err)
	assert.Equal(t, all, again)
	assert.Equal(t, faces, b.Mesh().NumFaces())
}

func TestBuild(t *testing.T) {
	m, err := Build(cubeCorners(1), Options{Session: dlfl.NewSession()})
	require.NoError(t, err)
	assertClosedHull(t, m)

	_, err = Build(cubeCorners(1)[:3], Options{})
	assert.True(t, errors.Is(err, ErrTooFewPoints))
}

// TestMatchesQuickhull compares the hull vertex set against an independent
// implementation on random clouds.
func TestMatchesQuickhull(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewPCG(seed, 99))
		pts := make([]v3.Vec, 150)
		cloud := make([]r3.Vector, len(pts))
		for i := range pts {
			p := vec(rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()*2-1)
			pts[i] = p
			cloud[i] = r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
		}

		b := New(pts, Options{})
		_, err := b.Construct()
		require.NoError(t, err)
		assertClosedHull(t, b.Mesh())

		var got []int
		for i := range pts {
			if b.OnHull(i) {
				got = append(got, i)
			}
		}

		qh := new(quickhull.QuickHull)
		ch := qh.ConvexHull(cloud, true, true, 1e-10)
		seen := make(map[int]bool)
		var want []int
		for _, idx := range ch.Indices {
			if !seen[idx] {
				seen[idx] = true
				want = append(want, idx)
			}
		}
		sort.Ints(want)

		assert.Equal(t, want, got, "seed %d", seed)
		assert.Equal(t, len(ch.Indices)/3, b.Mesh().NumFaces(), "seed %d", seed)
	}
}

func TestSpherePointsAllOnHull(t *testing.T) {
	var pts []v3.Vec
	for i := range 12 {
		for j := 1; j < 6; j++ {
			theta := float64(i) * 2 * math.Pi / 12
			phi := float64(j) * math.Pi / 6
			pts = append(pts, vec(math.Sin(phi)*math.Cos(theta), math.Sin(phi)*math.Sin(theta), math.Cos(phi)))
		}
	}
	pts = append(pts, vec(0, 0, 1), vec(0, 0, -1))
	b := New(pts, Options{})
	all, err := b.Construct()
	require.NoError(t, err)
	assert.True(t, all)
	assertClosedHull(t, b.Mesh())
}

func TestVolumeSign(t *testing.T) {
	m, err := dlfl.FromPolygons(nil,
		[]v3.Vec{vec(0, 0, 0), vec(1, 0, 0), vec(0, 1, 0), vec(1, 1, 0)},
		[][]int{{0, 1, 2}, {0, 1, 3, 2}})
	require.NoError(t, err)

	assert.Equal(t, 1, VolumeSign(m, 0, vec(0.2, 0.2, 1), DefaultEpsilon))
	assert.Equal(t, -1, VolumeSign(m, 0, vec(0.2, 0.2, -1), DefaultEpsilon))
	assert.Equal(t, 0, VolumeSign(m, 0, vec(5, 5, 0), DefaultEpsilon), "in plane")
	assert.Equal(t, 0, VolumeSign(m, 0, vec(5, 5, 1e-12), DefaultEpsilon), "within eps")
	assert.Equal(t, 0, VolumeSign(m, 1, vec(0.2, 0.2, 1), DefaultEpsilon), "not a triangle")
	assert.Equal(t, 0, VolumeSign(m, 7, vec(0.2, 0.2, 1), DefaultEpsilon), "stale face")
}

func TestColinear(t *testing.T) {
	assert.True(t, Colinear(vec(0, 0, 0), vec(1, 1, 1), vec(3, 3, 3)))
	assert.True(t, Colinear(vec(0, 0, 0), vec(1, 1, 1), vec(-3, -3, -3)))
	assert.True(t, Colinear(vec(0, 0, 0), vec(0, 0, 0), vec(1, 2, 3)))
	assert.False(t, Colinear(vec(0, 0, 0), vec(1, 0, 0), vec(0, 1e-3, 0)))
}
