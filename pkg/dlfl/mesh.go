package dlfl

import (
	"iter"
	"slices"

	"github.com/chazu/dlfl/pkg/pool"
)

// Mesh owns the vertex, edge, face, and corner pools of one polygon mesh.
type Mesh struct {
	session  *Session
	vertices *pool.Pool[Vertex]
	edges    *pool.Pool[Edge]
	faces    *pool.Pool[Face]
	corners  *pool.Pool[Corner]
}

// NewMesh returns an empty mesh drawing IDs from s. A nil session gets a
// private one. Pool options apply to all four pools.
func NewMesh(s *Session, opts ...pool.Option) *Mesh {
	if s == nil {
		s = NewSession()
	}
	return &Mesh{
		session:  s,
		vertices: pool.New[Vertex](opts...),
		edges:    pool.New[Edge](opts...),
		faces:    pool.New[Face](opts...),
		corners:  pool.New[Corner](opts...),
	}
}

// Session returns the ID session the mesh was built on.
func (m *Mesh) Session() *Session { return m.session }

// Vertex returns the vertex for h, or nil if h is not live.
func (m *Mesh) Vertex(h VertexRef) *Vertex { return m.vertices.Get(int32(h)) }

// Edge returns the edge for h, or nil if h is not live.
func (m *Mesh) Edge(h EdgeRef) *Edge { return m.edges.Get(int32(h)) }

// Face returns the face for h, or nil if h is not live.
func (m *Mesh) Face(h FaceRef) *Face { return m.faces.Get(int32(h)) }

// Corner returns the corner for h, or nil if h is not live.
func (m *Mesh) Corner(h CornerRef) *Corner { return m.corners.Get(int32(h)) }

func (m *Mesh) NumVertices() int { return m.vertices.Len() }
func (m *Mesh) NumEdges() int    { return m.edges.Len() }
func (m *Mesh) NumFaces() int    { return m.faces.Len() }
func (m *Mesh) NumCorners() int  { return m.corners.Len() }

// PoolStats reports allocator counters per entity kind.
func (m *Mesh) PoolStats() map[Kind]pool.Stats {
	return map[Kind]pool.Stats{
		KindVertex: m.vertices.Stats(),
		KindEdge:   m.edges.Stats(),
		KindFace:   m.faces.Stats(),
		KindCorner: m.corners.Stats(),
	}
}

// Vertices yields every live vertex. The mesh must not be mutated while the
// sequence is being consumed.
func (m *Mesh) Vertices() iter.Seq[VertexRef] {
	return func(yield func(VertexRef) bool) {
		m.vertices.Each(func(idx int32, _ *Vertex) bool {
			return yield(VertexRef(idx))
		})
	}
}

// Edges yields every live edge.
func (m *Mesh) Edges() iter.Seq[EdgeRef] {
	return func(yield func(EdgeRef) bool) {
		m.edges.Each(func(idx int32, _ *Edge) bool {
			return yield(EdgeRef(idx))
		})
	}
}

// Faces yields every live face.
func (m *Mesh) Faces() iter.Seq[FaceRef] {
	return func(yield func(FaceRef) bool) {
		m.faces.Each(func(idx int32, _ *Face) bool {
			return yield(FaceRef(idx))
		})
	}
}

// FaceCorners yields the corners of f in cycle order starting at its head.
func (m *Mesh) FaceCorners(f FaceRef) iter.Seq[CornerRef] {
	return func(yield func(CornerRef) bool) {
		face := m.Face(f)
		if face == nil {
			return
		}
		c := face.head
		for i := 0; i < face.size; i++ {
			corner := m.Corner(c)
			if corner == nil || !yield(c) {
				return
			}
			c = corner.next
		}
	}
}

// FaceVertices returns the vertices of f in cycle order.
func (m *Mesh) FaceVertices(f FaceRef) []VertexRef {
	var vs []VertexRef
	for c := range m.FaceCorners(f) {
		vs = append(vs, m.Corner(c).vertex)
	}
	return vs
}

// VertexCorners yields every corner referring to v.
func (m *Mesh) VertexCorners(v VertexRef) iter.Seq[CornerRef] {
	return func(yield func(CornerRef) bool) {
		for _, c := range m.vertexCorners(v) {
			if !yield(c) {
				return
			}
		}
	}
}

// vertexCorners walks the fan around v through edge adjacency. It falls
// back to scanning the corner pool only when the walk cannot account for
// every corner of v (non-manifold vertex or broken links).
func (m *Mesh) vertexCorners(v VertexRef) []CornerRef {
	if out, ok := m.walkFan(v); ok {
		return out
	}
	var out []CornerRef
	m.corners.Each(func(idx int32, corner *Corner) bool {
		if corner.vertex == v {
			out = append(out, CornerRef(idx))
		}
		return true
	})
	return out
}

// walkFan collects the corners of v by stepping from face to face across
// shared edges. An open fan (v on the boundary) is walked forward from
// v's corner until a boundary edge, then backward from the same corner.
// ok is false when the walk does not reach exactly v's corner count.
func (m *Mesh) walkFan(v VertexRef) (out []CornerRef, ok bool) {
	vert := m.Vertex(v)
	if vert == nil || vert.ncorners == 0 {
		return nil, true
	}
	out = make([]CornerRef, 0, vert.ncorners)
	add := func(c CornerRef) bool {
		corner := m.Corner(c)
		if corner == nil || corner.vertex != v || len(out) == vert.ncorners || slices.Contains(out, c) {
			return false
		}
		out = append(out, c)
		return true
	}

	start := vert.corner
	c := start
	for add(c) {
		c = m.fanNext(c)
		if c == start {
			return out, len(out) == vert.ncorners
		}
		if c == Nil {
			break
		}
	}
	if c != Nil {
		return nil, false
	}
	for c = m.fanPrev(start); c != Nil && add(c); {
		c = m.fanPrev(c)
	}
	return out, len(out) == vert.ncorners
}

// fanNext returns the corner at the same vertex in the face across c's
// outgoing edge, or Nil on a boundary.
func (m *Mesh) fanNext(c CornerRef) CornerRef {
	corner := m.Corner(c)
	if corner == nil {
		return Nil
	}
	other := m.Corner(m.OtherCorner(corner.edge, c))
	if other == nil {
		return Nil
	}
	return other.next
}

// fanPrev returns the corner at the same vertex in the face across c's
// incoming edge, or Nil on a boundary.
func (m *Mesh) fanPrev(c CornerRef) CornerRef {
	corner := m.Corner(c)
	if corner == nil {
		return Nil
	}
	prev := corner.prev
	p := m.Corner(prev)
	if p == nil {
		return Nil
	}
	return m.OtherCorner(p.edge, prev)
}

// VertexFaces returns the faces incident to v, one entry per corner.
func (m *Mesh) VertexFaces(v VertexRef) []FaceRef {
	var fs []FaceRef
	for c := range m.VertexCorners(v) {
		fs = append(fs, m.Corner(c).face)
	}
	return fs
}

// VertexEdges returns the edges incident to v. An edge is reported once
// even when both of its corners sit on v.
func (m *Mesh) VertexEdges(v VertexRef) []EdgeRef {
	seen := make(map[EdgeRef]bool)
	var es []EdgeRef
	add := func(e EdgeRef) {
		if m.Edge(e) != nil && !seen[e] {
			seen[e] = true
			es = append(es, e)
		}
	}
	for c := range m.VertexCorners(v) {
		corner := m.Corner(c)
		add(corner.edge)
		if p := m.Corner(corner.prev); p != nil {
			add(p.edge)
		}
	}
	return es
}

// IsClosed reports whether every edge has both corners set.
func (m *Mesh) IsClosed() bool {
	closed := true
	m.edges.Each(func(_ int32, e *Edge) bool {
		if e.c1 == Nil || e.c2 == Nil {
			closed = false
		}
		return closed
	})
	return closed
}
