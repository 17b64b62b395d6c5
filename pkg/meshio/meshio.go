// Package meshio reads and writes DLFL meshes in a line-oriented text
// format and welds triangle soups into meshes.
//
// The format has one record per line:
//
//	# comment
//	v <x> <y> <z>
//	f <i> <j> <k> ...
//	e <a> <b>
//
// Vertex indices are 1-based and refer to the v records in file order. Face
// records list a corner cycle. Edge records name the vertices at an edge's
// two corners; they are written for readers that want explicit edges and
// are checked, but not needed, on import since edges are rebuilt by pairing
// opposite corners.
package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/dlfl/pkg/dlfl"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ParseError reports a malformed record.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("meshio: line %d: %s", e.Line, e.Msg)
}

// WriteOptions controls export.
type WriteOptions struct {
	// Reverse writes every face with the opposite winding.
	Reverse bool
	// NoEdges omits the e records.
	NoEdges bool
}

// Write exports m. Vertices are numbered in iteration order.
func Write(w io.Writer, m *dlfl.Mesh, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	index := make(map[dlfl.VertexRef]int, m.NumVertices())

	fmt.Fprintf(bw, "# dlfl %d vertices %d faces %d edges\n", m.NumVertices(), m.NumFaces(), m.NumEdges())
	for v := range m.Vertices() {
		index[v] = len(index) + 1
		p := m.Vertex(v).Coords
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}

	for f := range m.Faces() {
		vs := m.FaceVertices(f)
		if opts.Reverse {
			reverseCycle(vs)
		}
		bw.WriteString("f")
		for _, v := range vs {
			fmt.Fprintf(bw, " %d", index[v])
		}
		bw.WriteString("\n")
	}

	if !opts.NoEdges {
		cornerIndex := func(c dlfl.CornerRef) int { return index[m.Corner(c).Vertex()] }
		for e := range m.Edges() {
			if err := writeEdge(bw, m, e, cornerIndex, opts.Reverse); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func writeEdge(w io.Writer, m *dlfl.Mesh, e dlfl.EdgeRef, index dlfl.IndexFunc, reverse bool) error {
	if !m.IsBoundary(e) {
		if reverse {
			return m.WriteEdgeReverse(w, e, index)
		}
		return m.WriteEdge(w, e, index)
	}
	// A boundary edge has one corner; its far end is that corner's successor.
	edge := m.Edge(e)
	c := edge.Corner1()
	if c == dlfl.Nil {
		c = edge.Corner2()
	}
	next := m.Corner(c).Next()
	a, b := index(c), index(next)
	if reverse {
		a, b = b, a
	}
	_, err := fmt.Fprintf(w, "e %d %d\n", a, b)
	return err
}

// reverseCycle reverses vs while keeping its first element first, so that a
// reversed face starts at the same vertex.
func reverseCycle(vs []dlfl.VertexRef) {
	for i, j := 1, len(vs)-1; i < j; i, j = i+1, j-1 {
		vs[i], vs[j] = vs[j], vs[i]
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Read imports a mesh written by Write, drawing IDs from s.
func Read(r io.Reader, s *dlfl.Session) (*dlfl.Mesh, error) {
	var (
		points []v3.Vec
		faces  [][]int
		edges  [][2]int
	)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) != 4 {
				return nil, &ParseError{line, fmt.Sprintf("vertex needs 3 coordinates, got %d", len(fields)-1)}
			}
			var xyz [3]float64
			for i := range xyz {
				f, err := parseCoord(fields[i+1])
				if err != nil {
					return nil, &ParseError{line, err.Error()}
				}
				xyz[i] = f
			}
			points = append(points, v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
		case "f":
			if len(fields) < 2 {
				return nil, &ParseError{line, "face has no vertices"}
			}
			face := make([]int, len(fields)-1)
			for i, tok := range fields[1:] {
				idx, err := parseIndex(tok, len(points))
				if err != nil {
					return nil, &ParseError{line, err.Error()}
				}
				face[i] = idx
			}
			faces = append(faces, face)
		case "e":
			if len(fields) != 3 {
				return nil, &ParseError{line, fmt.Sprintf("edge needs 2 indices, got %d", len(fields)-1)}
			}
			var ab [2]int
			for i, tok := range fields[1:] {
				idx, err := parseIndex(tok, len(points))
				if err != nil {
					return nil, &ParseError{line, err.Error()}
				}
				ab[i] = idx
			}
			edges = append(edges, ab)
		default:
			return nil, &ParseError{line, fmt.Sprintf("unknown record %q", fields[0])}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("meshio: read: %w", err)
	}

	m, err := dlfl.FromPolygons(s, points, faces)
	if err != nil {
		return nil, fmt.Errorf("meshio: read: %w", err)
	}
	if len(edges) > 0 {
		if err := checkEdges(m, edges); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// parseIndex converts a 1-based index into a 0-based one bounded by n.
func parseIndex(tok string, n int) (int, error) {
	i, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", tok)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("index %d out of range 1..%d", i, n)
	}
	return i - 1, nil
}

// checkEdges verifies that every e record names a rebuilt edge. A freshly
// built mesh iterates its vertices in file order.
func checkEdges(m *dlfl.Mesh, edges [][2]int) error {
	type pair struct{ a, b dlfl.VertexRef }
	byIndex := make([]dlfl.VertexRef, 0, m.NumVertices())
	for v := range m.Vertices() {
		byIndex = append(byIndex, v)
	}
	have := make(map[pair]bool, m.NumEdges())
	for e := range m.Edges() {
		a, b := m.EdgeVertices(e)
		if a == dlfl.Nil || b == dlfl.Nil {
			edge := m.Edge(e)
			c := edge.Corner1()
			if c == dlfl.Nil {
				c = edge.Corner2()
			}
			a = m.Corner(c).Vertex()
			b = m.Corner(m.Corner(c).Next()).Vertex()
		}
		have[pair{a, b}] = true
		have[pair{b, a}] = true
	}
	for _, ab := range edges {
		if !have[pair{byIndex[ab[0]], byIndex[ab[1]]}] {
			return fmt.Errorf("meshio: read: edge %d-%d does not match any face side", ab[0]+1, ab[1]+1)
		}
	}
	return nil
}
