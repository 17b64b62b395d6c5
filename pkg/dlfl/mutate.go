package dlfl

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// AddVertex creates an isolated vertex at p.
func (m *Mesh) AddVertex(p v3.Vec) (VertexRef, error) {
	idx, v, err := m.vertices.Alloc()
	if err != nil {
		return Nil, fmt.Errorf("dlfl: add vertex: %w", err)
	}
	v.id = m.session.NextID(KindVertex)
	v.corner = Nil
	v.Coords = p
	return VertexRef(idx), nil
}

// AddFace creates a face whose corners visit vs in order. The new corners
// have no edges; call Link or BuildEdges to connect them. A vertex may appear
// more than once.
func (m *Mesh) AddFace(vs ...VertexRef) (FaceRef, error) {
	if len(vs) == 0 {
		return Nil, fmt.Errorf("dlfl: add face: no vertices")
	}
	for _, v := range vs {
		if m.Vertex(v) == nil {
			return Nil, fmt.Errorf("dlfl: add face: vertex %d: %w", v, ErrStaleHandle)
		}
	}

	fidx, face, err := m.faces.Alloc()
	if err != nil {
		return Nil, fmt.Errorf("dlfl: add face: %w", err)
	}
	f := FaceRef(fidx)
	face.id = m.session.NextID(KindFace)
	face.head = Nil

	cs := make([]CornerRef, 0, len(vs))
	for _, v := range vs {
		cidx, corner, err := m.corners.Alloc()
		if err != nil {
			for _, c := range cs {
				m.corners.Free(int32(c))
			}
			m.faces.Free(fidx)
			return Nil, fmt.Errorf("dlfl: add face: %w", err)
		}
		corner.id = m.session.NextID(KindCorner)
		corner.vertex = v
		corner.face = f
		corner.edge = Nil
		cs = append(cs, CornerRef(cidx))
	}

	n := len(cs)
	for i, c := range cs {
		corner := m.Corner(c)
		corner.next = cs[(i+1)%n]
		corner.prev = cs[(i+n-1)%n]
		vert := m.Vertex(corner.vertex)
		vert.ncorners++
		if vert.corner == Nil {
			vert.corner = c
		}
	}
	face.head = cs[0]
	face.size = n
	return f, nil
}

// Link creates an edge between c1 and c2. c2 may be Nil for a boundary edge
// that will be completed later with SetNullCorner.
func (m *Mesh) Link(c1, c2 CornerRef) (EdgeRef, error) {
	if m.Corner(c1) == nil {
		return Nil, fmt.Errorf("dlfl: link: corner %d: %w", c1, ErrStaleHandle)
	}
	if c2 != Nil && m.Corner(c2) == nil {
		return Nil, fmt.Errorf("dlfl: link: corner %d: %w", c2, ErrStaleHandle)
	}
	idx, e, err := m.edges.Alloc()
	if err != nil {
		return Nil, fmt.Errorf("dlfl: link: %w", err)
	}
	h := EdgeRef(idx)
	e.id = m.session.NextID(KindEdge)
	e.c1, e.c2 = c1, c2
	m.Corner(c1).edge = h
	if c2 != Nil {
		m.Corner(c2).edge = h
	}
	m.UpdateMidPoint(h)
	return h, nil
}

// BuildEdges pairs every corner that has no edge with the corner running the
// opposite way between the same two vertices. Corners with no partner get a
// boundary edge whose second corner is Nil. It returns the number of
// boundary edges created.
func (m *Mesh) BuildEdges() (int, error) {
	type key struct{ from, to VertexRef }
	var pending []CornerRef
	m.corners.Each(func(idx int32, c *Corner) bool {
		if m.Edge(c.edge) == nil {
			pending = append(pending, CornerRef(idx))
		}
		return true
	})

	open := make(map[key][]CornerRef)
	var order []key
	for _, c := range pending {
		corner := m.Corner(c)
		k := key{corner.vertex, m.Corner(corner.next).vertex}
		twin := key{k.to, k.from}
		if waiting := open[twin]; len(waiting) > 0 {
			partner := waiting[0]
			open[twin] = waiting[1:]
			if _, err := m.Link(partner, c); err != nil {
				return 0, err
			}
			continue
		}
		if _, ok := open[k]; !ok {
			order = append(order, k)
		}
		open[k] = append(open[k], c)
	}

	boundary := 0
	for _, k := range order {
		for _, c := range open[k] {
			if _, err := m.Link(c, Nil); err != nil {
				return boundary, err
			}
			boundary++
		}
	}
	return boundary, nil
}

// SetNullCorner fills the first unset corner slot of e with c and makes c
// point at e. It reports false if both slots are taken.
func (m *Mesh) SetNullCorner(e EdgeRef, c CornerRef) bool {
	edge := m.Edge(e)
	corner := m.Corner(c)
	if edge == nil || corner == nil {
		return false
	}
	switch {
	case edge.c1 == Nil:
		edge.c1 = c
	case edge.c2 == Nil:
		edge.c2 = c
	default:
		return false
	}
	corner.edge = e
	return true
}

// ResetCorner clears the slot of e holding c.
func (m *Mesh) ResetCorner(e EdgeRef, c CornerRef) {
	edge := m.Edge(e)
	if edge == nil {
		return
	}
	if edge.c1 == c {
		edge.c1 = Nil
	} else if edge.c2 == c {
		edge.c2 = Nil
	}
}

// ReplaceCorner swaps old for repl in e and registers e on repl.
func (m *Mesh) ReplaceCorner(e EdgeRef, old, repl CornerRef) bool {
	edge := m.Edge(e)
	corner := m.Corner(repl)
	if edge == nil || corner == nil {
		return false
	}
	switch old {
	case edge.c1:
		edge.c1 = repl
	case edge.c2:
		edge.c2 = repl
	default:
		return false
	}
	corner.edge = e
	return true
}

// Reverse moves both corners of e to their successors and registers e on
// them, so that the edge's ends track the following corners in each face.
// The corners previously holding e keep their edge reference; callers are
// expected to re-point them.
func (m *Mesh) Reverse(e EdgeRef) error {
	edge := m.Edge(e)
	if edge == nil {
		return fmt.Errorf("dlfl: reverse edge %d: %w", e, ErrStaleHandle)
	}
	c1, c2 := m.Corner(edge.c1), m.Corner(edge.c2)
	if c1 == nil || c2 == nil {
		return fmt.Errorf("dlfl: reverse edge %d: %w", e, ErrUnsetCorner)
	}
	n1, n2 := m.Corner(c1.next), m.Corner(c2.next)
	if n1 == nil || n2 == nil {
		return fmt.Errorf("dlfl: reverse edge %d: next corner: %w", e, ErrStaleHandle)
	}
	edge.c1, edge.c2 = c1.next, c2.next
	n1.edge = e
	n2.edge = e
	return nil
}

// MakeUnique gives e a fresh ID.
func (m *Mesh) MakeUnique(e EdgeRef) {
	if edge := m.Edge(e); edge != nil {
		edge.id = m.session.NextID(KindEdge)
	}
}

// RemoveFace deletes f and its corners. Edges lose the corresponding corner
// slot and are deleted once both slots are empty. Vertices whose seed corner
// disappears are re-seeded from their remaining corners.
func (m *Mesh) RemoveFace(f FaceRef) error {
	if m.Face(f) == nil {
		return fmt.Errorf("dlfl: remove face %d: %w", f, ErrStaleHandle)
	}
	var cs []CornerRef
	for c := range m.FaceCorners(f) {
		cs = append(cs, c)
	}

	reseed := make(map[VertexRef]bool)
	for _, c := range cs {
		corner := m.Corner(c)
		if edge := m.Edge(corner.edge); edge != nil {
			m.ResetCorner(corner.edge, c)
			if edge.c1 == Nil && edge.c2 == Nil {
				m.edges.Free(int32(corner.edge))
			}
		}
		if vert := m.Vertex(corner.vertex); vert != nil {
			vert.ncorners--
			if vert.corner == c {
				vert.corner = Nil
				reseed[corner.vertex] = true
			}
		}
	}
	for _, c := range cs {
		m.corners.Free(int32(c))
	}
	m.faces.Free(int32(f))
	m.reseed(reseed)
	return nil
}

// reseed picks a live corner for every vertex in vs that still has corners.
func (m *Mesh) reseed(vs map[VertexRef]bool) {
	for v := range vs {
		if vert := m.Vertex(v); vert == nil || vert.ncorners == 0 {
			delete(vs, v)
		}
	}
	if len(vs) == 0 {
		return
	}
	m.corners.Each(func(idx int32, c *Corner) bool {
		if vs[c.vertex] {
			m.Vertex(c.vertex).corner = CornerRef(idx)
			delete(vs, c.vertex)
		}
		return len(vs) > 0
	})
}

// RemoveVertex deletes v together with every face that uses it.
func (m *Mesh) RemoveVertex(v VertexRef) error {
	if m.Vertex(v) == nil {
		return fmt.Errorf("dlfl: remove vertex %d: %w", v, ErrStaleHandle)
	}
	seen := make(map[FaceRef]bool)
	for _, f := range m.VertexFaces(v) {
		if seen[f] {
			continue
		}
		seen[f] = true
		if err := m.RemoveFace(f); err != nil {
			return err
		}
	}
	m.vertices.Free(int32(v))
	return nil
}

// Destroy releases every pool. The mesh is empty afterwards and all handles
// into it are stale.
func (m *Mesh) Destroy() {
	m.vertices.Teardown()
	m.edges.Teardown()
	m.faces.Teardown()
	m.corners.Teardown()
}
