package dlfl

import "fmt"

// Violation describes one broken structural invariant.
type Violation struct {
	Kind    Kind
	Handle  int32
	Message string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s %d: %s", v.Kind, v.Handle, v.Message)
}

// Check walks the whole mesh and reports every broken link. An empty result
// means the corner cycles, edge back-references, and vertex seeds are all
// consistent. Check never mutates the mesh.
func (m *Mesh) Check() []Violation {
	var out []Violation
	out = append(out, m.checkFaces()...)
	out = append(out, m.checkCorners()...)
	out = append(out, m.checkEdges()...)
	out = append(out, m.checkVertices()...)
	return out
}

func (m *Mesh) checkFaces() []Violation {
	var out []Violation
	m.faces.Each(func(idx int32, f *Face) bool {
		bad := func(format string, args ...any) {
			out = append(out, Violation{KindFace, idx, fmt.Sprintf(format, args...)})
		}
		c := f.head
		for i := 0; i < f.size; i++ {
			corner := m.Corner(c)
			if corner == nil {
				bad("corner %d of cycle is not live", c)
				return true
			}
			if corner.face != FaceRef(idx) {
				bad("corner %d belongs to face %d", c, corner.face)
			}
			c = corner.next
		}
		if c != f.head {
			bad("cycle of %d corners does not close", f.size)
		}
		return true
	})
	return out
}

func (m *Mesh) checkCorners() []Violation {
	var out []Violation
	m.corners.Each(func(idx int32, c *Corner) bool {
		bad := func(format string, args ...any) {
			out = append(out, Violation{KindCorner, idx, fmt.Sprintf(format, args...)})
		}
		h := CornerRef(idx)
		if m.Vertex(c.vertex) == nil {
			bad("vertex %d is not live", c.vertex)
		}
		if m.Face(c.face) == nil {
			bad("face %d is not live", c.face)
		}
		if next := m.Corner(c.next); next == nil || next.prev != h {
			bad("next link %d is broken", c.next)
		}
		if prev := m.Corner(c.prev); prev == nil || prev.next != h {
			bad("prev link %d is broken", c.prev)
		}
		if c.edge != Nil {
			edge := m.Edge(c.edge)
			if edge == nil {
				bad("edge %d is not live", c.edge)
			} else if edge.c1 != h && edge.c2 != h {
				bad("edge %d does not reference this corner", c.edge)
			}
		}
		return true
	})
	return out
}

func (m *Mesh) checkEdges() []Violation {
	var out []Violation
	m.edges.Each(func(idx int32, e *Edge) bool {
		for _, c := range [2]CornerRef{e.c1, e.c2} {
			if c == Nil {
				continue
			}
			corner := m.Corner(c)
			if corner == nil {
				out = append(out, Violation{KindEdge, idx, fmt.Sprintf("corner %d is not live", c)})
			} else if corner.edge != EdgeRef(idx) {
				out = append(out, Violation{KindEdge, idx, fmt.Sprintf("corner %d points at edge %d", c, corner.edge)})
			}
		}
		if c1, c2 := m.Corner(e.c1), m.Corner(e.c2); c1 != nil && c2 != nil {
			// The two corners must run in opposite directions.
			a1, a2 := c1.vertex, m.cornerVertex(c1.next)
			b1, b2 := c2.vertex, m.cornerVertex(c2.next)
			if a1 != b2 || a2 != b1 {
				out = append(out, Violation{KindEdge, idx, "corners do not run opposite ways"})
			}
		}
		return true
	})
	return out
}

func (m *Mesh) checkVertices() []Violation {
	var out []Violation
	counts := make(map[VertexRef]int)
	m.corners.Each(func(_ int32, c *Corner) bool {
		counts[c.vertex]++
		return true
	})
	m.vertices.Each(func(idx int32, v *Vertex) bool {
		h := VertexRef(idx)
		if counts[h] != v.ncorners {
			out = append(out, Violation{KindVertex, idx, fmt.Sprintf("valence %d but %d corners", v.ncorners, counts[h])})
		}
		if v.ncorners > 0 {
			if c := m.Corner(v.corner); c == nil || c.vertex != h {
				out = append(out, Violation{KindVertex, idx, fmt.Sprintf("seed corner %d is not incident", v.corner)})
			}
		}
		return true
	})
	return out
}
