package meshio_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/dlfl/pkg/dlfl"
	"github.com/chazu/dlfl/pkg/kernel"
	"github.com/chazu/dlfl/pkg/meshio"
	"github.com/chazu/dlfl/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCube(t *testing.T) *dlfl.Mesh {
	t.Helper()
	m, err := dlfl.Cube(nil, 2)
	require.NoError(t, err)
	return m
}

// faceLoops returns every face as its vertex positions, rotated so the
// lexicographically smallest position leads.
func faceLoops(m *dlfl.Mesh) [][]v3.Vec {
	var out [][]v3.Vec
	for f := range m.Faces() {
		vs := m.FaceVertices(f)
		loop := make([]v3.Vec, len(vs))
		start := 0
		for i, v := range vs {
			loop[i] = m.Vertex(v).Coords
			if less(loop[i], loop[start]) {
				start = i
			}
		}
		out = append(out, append(loop[start:], loop[:start]...))
	}
	return out
}

func less(a, b v3.Vec) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func TestRoundTrip(t *testing.T) {
	src := newCube(t)
	var buf bytes.Buffer
	require.NoError(t, meshio.Write(&buf, src, meshio.WriteOptions{}))

	out := buf.String()
	assert.Equal(t, 8, strings.Count(out, "\nv "))
	assert.Equal(t, 6, strings.Count(out, "\nf "))
	assert.Equal(t, 12, strings.Count(out, "\ne "))

	got, err := meshio.Read(strings.NewReader(out), nil)
	require.NoError(t, err)
	assert.Equal(t, src.NumVertices(), got.NumVertices())
	assert.Equal(t, src.NumFaces(), got.NumFaces())
	assert.Equal(t, src.NumEdges(), got.NumEdges())
	assert.True(t, got.IsClosed())
	assert.Empty(t, got.Check())
	assert.ElementsMatch(t, faceLoops(src), faceLoops(got))
}

func TestWriteReverse(t *testing.T) {
	src := newCube(t)
	var buf bytes.Buffer
	require.NoError(t, meshio.Write(&buf, src, meshio.WriteOptions{Reverse: true}))

	got, err := meshio.Read(&buf, nil)
	require.NoError(t, err)
	require.Equal(t, 6, got.NumFaces())
	for f := range got.Faces() {
		n, err := got.ComputeNormal(f)
		require.NoError(t, err)
		c, err := got.Centroid(f)
		require.NoError(t, err)
		assert.Less(t, n.Dot(c), 0.0, "reversed face should point inward")
	}
}

func TestWriteOpenMesh(t *testing.T) {
	m, err := dlfl.FromPolygons(nil, []v3.Vec{{}, {X: 1}, {Y: 1}}, [][]int{{0, 1, 2}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, meshio.Write(&buf, m, meshio.WriteOptions{}))
	assert.Contains(t, buf.String(), "e 1 2\n")
	assert.Equal(t, 3, strings.Count(buf.String(), "\ne "))

	got, err := meshio.Read(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, got.NumEdges())
	assert.False(t, got.IsClosed())
}

func TestWriteNoEdges(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, meshio.Write(&buf, newCube(t), meshio.WriteOptions{NoEdges: true}))
	assert.NotContains(t, buf.String(), "\ne ")
}

func TestReadSkipsCommentsAndBlankLines(t *testing.T) {
	src := `# triangle

v 0 0 0
v 1 0 0
   # indented comment
v 0 1 0
f 1 2 3
`
	m, err := meshio.Read(strings.NewReader(src), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumVertices())
	assert.Equal(t, 1, m.NumFaces())
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"short vertex", "v 1 2\n", 1},
		{"bad coordinate", "v 1 2 x\n", 1},
		{"infinite coordinate", "v 0 0 0\nv 1 0 Inf\nv 0 1 0\nf 1 2 3\n", 2},
		{"nan coordinate", "v NaN 0 0\n", 1},
		{"empty face", "v 0 0 0\nf\n", 2},
		{"index out of range", "v 0 0 0\nv 1 0 0\nf 1 2 3\n", 3},
		{"zero index", "v 0 0 0\nf 0\n", 2},
		{"bad index", "v 0 0 0\nf one\n", 2},
		{"short edge", "v 0 0 0\ne 1\n", 2},
		{"unknown record", "v 0 0 0\nvt 0 0\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := meshio.Read(strings.NewReader(tt.src), nil)
			var perr *meshio.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestReadRejectsUnknownEdge(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 5 5 5\nf 1 2 3\ne 1 4\n"
	_, err := meshio.Read(strings.NewReader(src), nil)
	require.Error(t, err)
	var perr *meshio.ParseError
	assert.False(t, errors.As(err, &perr))
}

func TestWelder(t *testing.T) {
	w := meshio.NewWelder(0.01)
	a := w.Add(v3.Vec{X: 1, Y: 1, Z: 1})
	b := w.Add(v3.Vec{X: 1.005, Y: 1, Z: 1})
	c := w.Add(v3.Vec{X: 1.02, Y: 1, Z: 1})
	d := w.Add(v3.Vec{X: -1, Y: -1, Z: -1})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, w.Points(), 3)
}

func TestWelderAcrossCellBoundary(t *testing.T) {
	// Cells are ten thresholds wide; these straddle the boundary at 0.1.
	w := meshio.NewWelder(0.01)
	a := w.Add(v3.Vec{X: 0.0999})
	b := w.Add(v3.Vec{X: 0.1001})
	assert.Equal(t, a, b)
}

func TestFromRenderWeldsCube(t *testing.T) {
	km, err := tessellate.Tessellate(newCube(t), "cube")
	require.NoError(t, err)
	require.Equal(t, 36, km.VertexCount())

	m, err := meshio.FromRender(nil, km, meshio.DefaultWeld)
	require.NoError(t, err)
	assert.Equal(t, 8, m.NumVertices())
	assert.Equal(t, 12, m.NumFaces())
	assert.Equal(t, 18, m.NumEdges())
	assert.True(t, m.IsClosed())
	assert.Empty(t, m.Check())
}

func TestFromTrianglesDropsDegenerateAndDuplicates(t *testing.T) {
	p := []v3.Vec{{}, {X: 1}, {Y: 1}, {X: 5, Y: 5, Z: 5}}
	tris := []kernel.Triangle{
		{p[0], p[1], p[2]},
		// A rotation of the first.
		{p[1], p[2], p[0]},
		{p[3], p[3], p[3]},
		// Collapses once the last corner welds onto the first.
		{p[0], p[1], {X: 1e-9}},
	}
	m, err := meshio.FromTriangles(nil, tris, meshio.DefaultWeld)
	require.NoError(t, err)
	assert.Equal(t, 1, m.NumFaces())
	// The point only used by dropped triangles is not kept.
	assert.Equal(t, 3, m.NumVertices())
}

func TestFromTrianglesAllDegenerate(t *testing.T) {
	_, err := meshio.FromTriangles(nil, []kernel.Triangle{{}}, meshio.DefaultWeld)
	assert.Error(t, err)

	_, err = meshio.FromRender(nil, &kernel.Mesh{}, meshio.DefaultWeld)
	assert.Error(t, err)
}

func TestReadPoints(t *testing.T) {
	src := `# cloud
0 0 0
1 0 0
v 0 1 0
f 1 2 3
e 1 2

0 0 1.5
`
	pts, err := meshio.ReadPoints(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []v3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1.5}}, pts)

	_, err = meshio.ReadPoints(strings.NewReader("0 0\n"))
	var perr *meshio.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Line)

	_, err = meshio.ReadPoints(strings.NewReader("0 0 0\n1 x 0\n"))
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestReadPointsRejectsNonFinite(t *testing.T) {
	for _, src := range []string{
		"0 0 0\n1 0 0\nNaN 0 0\n0 1 0\n0 0 1\n",
		"0 0 0\n1 0 0\n0 -inf 0\n",
		"0 0 0\n1 0 0\nv 0 0 +Inf\n",
	} {
		_, err := meshio.ReadPoints(strings.NewReader(src))
		var perr *meshio.ParseError
		require.ErrorAs(t, err, &perr, src)
		assert.Equal(t, 3, perr.Line, src)
		assert.Contains(t, perr.Msg, "non-finite")
	}
}
