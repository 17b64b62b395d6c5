package dlfl

import (
	"errors"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Nil is the "no entity" value for every handle type.
const Nil = -1

// Handles index into the owning mesh's pools.
type (
	VertexRef int32
	EdgeRef   int32
	FaceRef   int32
	CornerRef int32
)

var (
	// ErrDegenerateFace is returned when geometry is requested from a face
	// with fewer than three corners.
	ErrDegenerateFace = errors.New("dlfl: face has fewer than 3 corners")

	// ErrStaleHandle is returned when a mutation is given a handle that does
	// not refer to a live entity.
	ErrStaleHandle = errors.New("dlfl: stale or nil handle")

	// ErrUnsetCorner is returned when an edge operation needs both corners
	// and one of them is unset.
	ErrUnsetCorner = errors.New("dlfl: edge corner unset")
)

// EdgeType tags edges for algorithms that need to distinguish them.
type EdgeType int

const (
	EdgeNormal EdgeType = iota
	EdgeCrease
	EdgeSeam
)

func (t EdgeType) String() string {
	switch t {
	case EdgeNormal:
		return "normal"
	case EdgeCrease:
		return "crease"
	case EdgeSeam:
		return "seam"
	default:
		return "unknown"
	}
}

// Vertex is a point in space. Corner is an arbitrary incident corner used to
// start traversals around the vertex.
type Vertex struct {
	id       uint64
	corner   CornerRef
	ncorners int

	Coords v3.Vec
	Aux    v3.Vec
}

func (v *Vertex) ID() uint64        { return v.id }
func (v *Vertex) Corner() CornerRef { return v.corner }

// Valence is the number of corners referring to this vertex.
func (v *Vertex) Valence() int { return v.ncorners }

// Edge joins two corners, one per adjacent face. Corner1 traverses the edge
// from its own vertex to the vertex of its next corner; Corner2 traverses it
// the other way.
type Edge struct {
	id       uint64
	c1, c2   CornerRef
	midpoint v3.Vec
	normal   v3.Vec

	Type      EdgeType
	AuxCoords v3.Vec
	AuxNormal v3.Vec
}

func (e *Edge) ID() uint64         { return e.id }
func (e *Edge) Corner1() CornerRef { return e.c1 }
func (e *Edge) Corner2() CornerRef { return e.c2 }

// MidPoint returns the cached midpoint. See Mesh.UpdateMidPoint.
func (e *Edge) MidPoint() v3.Vec { return e.midpoint }

// Normal returns the cached normal. See Mesh.UpdateEdgeNormal.
func (e *Edge) Normal() v3.Vec { return e.normal }

// ResetType sets the tag back to EdgeNormal.
func (e *Edge) ResetType() { e.Type = EdgeNormal }

// ResetAux zeroes the auxiliary coordinate and normal.
func (e *Edge) ResetAux() {
	e.AuxCoords = v3.Vec{}
	e.AuxNormal = v3.Vec{}
}

// Face is a cycle of corners. Normal and Centroid are caches filled by
// Mesh.UpdateFace; they are stale after any geometry change.
type Face struct {
	id   uint64
	head CornerRef
	size int

	Normal   v3.Vec
	Centroid v3.Vec
}

func (f *Face) ID() uint64      { return f.id }
func (f *Face) Head() CornerRef { return f.head }
func (f *Face) Size() int       { return f.size }

// Corner binds a vertex to a face position.
type Corner struct {
	id     uint64
	vertex VertexRef
	edge   EdgeRef
	face   FaceRef
	next   CornerRef
	prev   CornerRef

	Aux v3.Vec
}

func (c *Corner) ID() uint64        { return c.id }
func (c *Corner) Vertex() VertexRef { return c.vertex }
func (c *Corner) Edge() EdgeRef     { return c.edge }
func (c *Corner) Face() FaceRef     { return c.face }
func (c *Corner) Next() CornerRef   { return c.next }
func (c *Corner) Prev() CornerRef   { return c.prev }
