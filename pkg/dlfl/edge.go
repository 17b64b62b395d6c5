package dlfl

import (
	"fmt"
	"io"
)

// OtherCorner returns the corner of e that is not c, or Nil if c is not one
// of e's corners.
func (m *Mesh) OtherCorner(e EdgeRef, c CornerRef) CornerRef {
	edge := m.Edge(e)
	if edge == nil || c == Nil {
		return Nil
	}
	switch c {
	case edge.c1:
		return edge.c2
	case edge.c2:
		return edge.c1
	}
	return Nil
}

// EdgeFaces returns the faces of e's two corners. Either may be Nil.
func (m *Mesh) EdgeFaces(e EdgeRef) (FaceRef, FaceRef) {
	edge := m.Edge(e)
	if edge == nil {
		return Nil, Nil
	}
	return m.cornerFace(edge.c1), m.cornerFace(edge.c2)
}

// EdgeVertices returns the vertices of e's two corners. Either may be Nil.
func (m *Mesh) EdgeVertices(e EdgeRef) (VertexRef, VertexRef) {
	edge := m.Edge(e)
	if edge == nil {
		return Nil, Nil
	}
	return m.cornerVertex(edge.c1), m.cornerVertex(edge.c2)
}

// OtherFace returns the face across e from f. If both sides of e lie in f
// the result is f itself. Nil means f is not adjacent to e.
func (m *Mesh) OtherFace(e EdgeRef, f FaceRef) FaceRef {
	f1, f2 := m.EdgeFaces(e)
	if f == Nil {
		return Nil
	}
	switch f {
	case f1:
		return f2
	case f2:
		return f1
	}
	return Nil
}

// OtherVertex returns the far end of e from v, or Nil if v is not an end.
func (m *Mesh) OtherVertex(e EdgeRef, v VertexRef) VertexRef {
	v1, v2 := m.EdgeVertices(e)
	if v == Nil {
		return Nil
	}
	switch v {
	case v1:
		return v2
	case v2:
		return v1
	}
	return Nil
}

// CornerInFace returns the corner of e that belongs to f, or Nil.
func (m *Mesh) CornerInFace(e EdgeRef, f FaceRef) CornerRef {
	edge := m.Edge(e)
	if edge == nil || f == Nil {
		return Nil
	}
	if m.cornerFace(edge.c1) == f {
		return edge.c1
	}
	if m.cornerFace(edge.c2) == f {
		return edge.c2
	}
	return Nil
}

// EFCorners returns the four corners adjacent to e: the successor of
// corner1, corner1, the successor of corner2, corner2.
func (m *Mesh) EFCorners(e EdgeRef) ([4]CornerRef, error) {
	out := [4]CornerRef{Nil, Nil, Nil, Nil}
	edge := m.Edge(e)
	if edge == nil {
		return out, ErrStaleHandle
	}
	c1, c2 := m.Corner(edge.c1), m.Corner(edge.c2)
	if c1 == nil || c2 == nil {
		return out, ErrUnsetCorner
	}
	out = [4]CornerRef{c1.next, edge.c1, c2.next, edge.c2}
	return out, nil
}

// IsValid reports whether e's corners lie in two different faces. Edges
// with an unset corner are not valid.
func (m *Mesh) IsValid(e EdgeRef) bool {
	f1, f2 := m.EdgeFaces(e)
	return f1 != Nil && f2 != Nil && f1 != f2
}

// IsSelfLoop reports whether both corners of e sit on the same vertex.
func (m *Mesh) IsSelfLoop(e EdgeRef) bool {
	v1, v2 := m.EdgeVertices(e)
	return v1 != Nil && v1 == v2
}

// IsBoundary reports whether e is missing a corner.
func (m *Mesh) IsBoundary(e EdgeRef) bool {
	edge := m.Edge(e)
	return edge != nil && (edge.c1 == Nil || edge.c2 == Nil)
}

// EdgesEqual reports whether a and b join the same two vertices, in either
// order. Vertices are compared by ID, so edges from different meshes on the
// same session compare as expected.
func (m *Mesh) EdgesEqual(a, b EdgeRef) bool {
	a1, a2, ok := m.endpointIDs(a)
	if !ok {
		return false
	}
	b1, b2, ok := m.endpointIDs(b)
	if !ok {
		return false
	}
	return (a1 == b1 && a2 == b2) || (a1 == b2 && a2 == b1)
}

func (m *Mesh) endpointIDs(e EdgeRef) (uint64, uint64, bool) {
	v1, v2 := m.EdgeVertices(e)
	p, q := m.Vertex(v1), m.Vertex(v2)
	if p == nil || q == nil {
		return 0, 0, false
	}
	return p.id, q.id, true
}

// CoFacial reports whether a and b share an adjacent face.
func (m *Mesh) CoFacial(a, b EdgeRef) bool {
	a1, a2 := m.EdgeFaces(a)
	b1, b2 := m.EdgeFaces(b)
	for _, fa := range [2]FaceRef{a1, a2} {
		if fa == Nil {
			continue
		}
		if fa == b1 || fa == b2 {
			return true
		}
	}
	return false
}

// IndexFunc maps a corner to the index written for it on export.
type IndexFunc func(c CornerRef) int

// WriteEdge writes "e <a> <b>" with the indices of e's two corners.
func (m *Mesh) WriteEdge(w io.Writer, e EdgeRef, index IndexFunc) error {
	edge := m.Edge(e)
	if edge == nil {
		return fmt.Errorf("dlfl: write edge %d: %w", e, ErrStaleHandle)
	}
	if edge.c1 == Nil || edge.c2 == Nil {
		return fmt.Errorf("dlfl: write edge %d: %w", e, ErrUnsetCorner)
	}
	_, err := fmt.Fprintf(w, "e %d %d\n", index(edge.c1), index(edge.c2))
	return err
}

// WriteEdgeReverse writes e as it reads with reversed winding: the indices
// of the corners following each of e's corners.
func (m *Mesh) WriteEdgeReverse(w io.Writer, e EdgeRef, index IndexFunc) error {
	corners, err := m.EFCorners(e)
	if err != nil {
		return fmt.Errorf("dlfl: write edge %d: %w", e, err)
	}
	_, err = fmt.Fprintf(w, "e %d %d\n", index(corners[0]), index(corners[2]))
	return err
}

func (m *Mesh) cornerFace(c CornerRef) FaceRef {
	if corner := m.Corner(c); corner != nil {
		return corner.face
	}
	return Nil
}

func (m *Mesh) cornerVertex(c CornerRef) VertexRef {
	if corner := m.Corner(c); corner != nil {
		return corner.vertex
	}
	return Nil
}
