package dlfl

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// ZeroLength is the segment length below which distance queries fall
	// back to the distance from the first endpoint.
	ZeroLength = 1e-10

	// colinearTol bounds the squared length of the unit triangle normals
	// for the intersection test to consider four points colinear.
	colinearTol = 1e-5

	// coplanarTol bounds the squared length of the summed unit normals
	// for the intersection test to consider two points on opposite sides.
	coplanarTol = 1e-4
)

// Unit returns v scaled to length 1, or the zero vector when v is too short
// to normalize.
func Unit(v v3.Vec) v3.Vec {
	l := v.Length()
	if l < 1e-12 {
		return v3.Vec{}
	}
	return v.DivScalar(l)
}

// CornerPos returns the position of the vertex at c.
func (m *Mesh) CornerPos(c CornerRef) (v3.Vec, bool) {
	vert := m.Vertex(m.cornerVertex(c))
	if vert == nil {
		return v3.Vec{}, false
	}
	return vert.Coords, true
}

// CornerNormal is the unit normal of the triangle formed by c and its two
// neighbours in the face.
func (m *Mesh) CornerNormal(c CornerRef) v3.Vec {
	corner := m.Corner(c)
	if corner == nil {
		return v3.Vec{}
	}
	p, ok1 := m.CornerPos(c)
	n, ok2 := m.CornerPos(corner.next)
	q, ok3 := m.CornerPos(corner.prev)
	if !ok1 || !ok2 || !ok3 {
		return v3.Vec{}
	}
	return Unit(n.Sub(p).Cross(q.Sub(p)))
}

// ComputeNormal returns the unit normal of f using Newell's method, which
// tolerates non-planar and non-convex polygons.
func (m *Mesh) ComputeNormal(f FaceRef) (v3.Vec, error) {
	face := m.Face(f)
	if face == nil {
		return v3.Vec{}, fmt.Errorf("dlfl: face normal %d: %w", f, ErrStaleHandle)
	}
	if face.size < 3 {
		return v3.Vec{}, fmt.Errorf("dlfl: face normal %d: %w", f, ErrDegenerateFace)
	}
	var n v3.Vec
	for c := range m.FaceCorners(f) {
		p, _ := m.CornerPos(c)
		q, _ := m.CornerPos(m.Corner(c).next)
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return Unit(n), nil
}

// Centroid returns the mean of f's corner positions.
func (m *Mesh) Centroid(f FaceRef) (v3.Vec, error) {
	face := m.Face(f)
	if face == nil {
		return v3.Vec{}, fmt.Errorf("dlfl: face centroid %d: %w", f, ErrStaleHandle)
	}
	if face.size < 3 {
		return v3.Vec{}, fmt.Errorf("dlfl: face centroid %d: %w", f, ErrDegenerateFace)
	}
	var sum v3.Vec
	for c := range m.FaceCorners(f) {
		p, _ := m.CornerPos(c)
		sum = sum.Add(p)
	}
	return sum.DivScalar(float64(face.size)), nil
}

// UpdateFace recomputes and caches f's normal and centroid.
func (m *Mesh) UpdateFace(f FaceRef) error {
	n, err := m.ComputeNormal(f)
	if err != nil {
		return err
	}
	c, err := m.Centroid(f)
	if err != nil {
		return err
	}
	face := m.Face(f)
	face.Normal = n
	face.Centroid = c
	return nil
}

// EndPoints returns the positions of e's two corners.
func (m *Mesh) EndPoints(e EdgeRef) (p1, p2 v3.Vec, ok bool) {
	edge := m.Edge(e)
	if edge == nil {
		return p1, p2, false
	}
	p1, ok1 := m.CornerPos(edge.c1)
	p2, ok2 := m.CornerPos(edge.c2)
	return p1, p2, ok1 && ok2
}

// UpdateMidPoint recomputes the cached midpoint of e. It leaves the old
// value untouched when either corner is unset.
func (m *Mesh) UpdateMidPoint(e EdgeRef) {
	p1, p2, ok := m.EndPoints(e)
	if !ok {
		return
	}
	m.Edge(e).midpoint = p1.Add(p2).MulScalar(0.5)
}

// UpdateEdgeNormal recomputes the cached normal of e as the normalized sum
// of the corner normals at its four adjacent corners. It leaves the old
// value untouched when either corner is unset.
func (m *Mesh) UpdateEdgeNormal(e EdgeRef) {
	cs, err := m.EFCorners(e)
	if err != nil {
		return
	}
	var n v3.Vec
	for _, c := range cs {
		n = n.Add(m.CornerNormal(c))
	}
	m.Edge(e).normal = Unit(n)
}

// Length returns the distance between e's end points, or 0 if a corner is
// unset.
func (m *Mesh) Length(e EdgeRef) float64 {
	p1, p2, ok := m.EndPoints(e)
	if !ok {
		return 0
	}
	return p2.Sub(p1).Length()
}

// EdgeVector returns corner2's position minus corner1's.
func (m *Mesh) EdgeVector(e EdgeRef) v3.Vec {
	p1, p2, ok := m.EndPoints(e)
	if !ok {
		return v3.Vec{}
	}
	return p2.Sub(p1)
}

// DistBetween returns the distance between the cached midpoints of a and b.
func (m *Mesh) DistBetween(a, b EdgeRef) float64 {
	ea, eb := m.Edge(a), m.Edge(b)
	if ea == nil || eb == nil {
		return math.Inf(1)
	}
	return ea.midpoint.Sub(eb.midpoint).Length()
}

// DistFrom returns the distance from p to the segment of e. Edges with an
// unset corner are infinitely far away.
func (m *Mesh) DistFrom(e EdgeRef, p v3.Vec) float64 {
	p1, p2, ok := m.EndPoints(e)
	if !ok {
		return math.Inf(1)
	}
	return segmentDist(
		[]float64{p1.X, p1.Y, p1.Z},
		[]float64{p2.X, p2.Y, p2.Z},
		[]float64{p.X, p.Y, p.Z},
	)
}

// DistFromXY is DistFrom with everything projected onto the XY plane.
func (m *Mesh) DistFromXY(e EdgeRef, x, y float64) float64 {
	p1, p2, ok := m.EndPoints(e)
	if !ok {
		return math.Inf(1)
	}
	return segmentDist([]float64{p1.X, p1.Y}, []float64{p2.X, p2.Y}, []float64{x, y})
}

// DistFromYZ is DistFrom with everything projected onto the YZ plane.
func (m *Mesh) DistFromYZ(e EdgeRef, y, z float64) float64 {
	p1, p2, ok := m.EndPoints(e)
	if !ok {
		return math.Inf(1)
	}
	return segmentDist([]float64{p1.Y, p1.Z}, []float64{p2.Y, p2.Z}, []float64{y, z})
}

// DistFromZX is DistFrom with everything projected onto the ZX plane.
func (m *Mesh) DistFromZX(e EdgeRef, z, x float64) float64 {
	p1, p2, ok := m.EndPoints(e)
	if !ok {
		return math.Inf(1)
	}
	return segmentDist([]float64{p1.Z, p1.X}, []float64{p2.Z, p2.X}, []float64{z, x})
}

// segmentDist measures from p to the segment a-b in any dimension. Outside
// the segment's parameter range the nearer endpoint is used.
func segmentDist(a, b, p []float64) float64 {
	var ab2, t float64
	for i := range a {
		d := b[i] - a[i]
		ab2 += d * d
		t += (p[i] - a[i]) * d
	}
	if math.Sqrt(ab2) < ZeroLength {
		return pointDist(p, a)
	}
	t /= ab2
	switch {
	case t < 0:
		return pointDist(p, a)
	case t > 1:
		return pointDist(p, b)
	}
	var d2 float64
	for i := range a {
		d := p[i] - (a[i] + t*(b[i]-a[i]))
		d2 += d * d
	}
	return math.Sqrt(d2)
}

func pointDist(p, q []float64) float64 {
	var d2 float64
	for i := range p {
		d := p[i] - q[i]
		d2 += d * d
	}
	return math.Sqrt(d2)
}

// Intersects reports whether a and b cross each other in a common plane.
// Self-loops never intersect. Skew segments, colinear segments, and
// segments that only touch at an endpoint are not reported.
func (m *Mesh) Intersects(a, b EdgeRef) bool {
	if m.IsSelfLoop(a) || m.IsSelfLoop(b) {
		return false
	}
	a1, a2, ok := m.EndPoints(a)
	if !ok {
		return false
	}
	b1, b2, ok := m.EndPoints(b)
	if !ok {
		return false
	}

	n1 := Unit(a2.Sub(a1).Cross(b1.Sub(a1)))
	n2 := Unit(a2.Sub(a1).Cross(b2.Sub(a1)))
	if n1.Length2() < colinearTol && n2.Length2() < colinearTol {
		return false
	}
	// Opposite unit normals mean b's ends straddle the line through a.
	if n1.Add(n2).Length2() >= coplanarTol {
		return false
	}
	n1 = Unit(b2.Sub(b1).Cross(a1.Sub(b1)))
	n2 = Unit(b2.Sub(b1).Cross(a2.Sub(b1)))
	return n1.Add(n2).Length2() < coplanarTol
}

// UpdateAll refreshes every cached face normal, face centroid, edge
// midpoint and edge normal. Degenerate faces keep their previous values.
func (m *Mesh) UpdateAll() {
	for f := range m.Faces() {
		m.UpdateFace(f)
	}
	for e := range m.Edges() {
		m.UpdateMidPoint(e)
		m.UpdateEdgeNormal(e)
	}
}

// Translate moves every vertex by d.
func (m *Mesh) Translate(d v3.Vec) {
	for v := range m.Vertices() {
		vert := m.Vertex(v)
		vert.Coords = vert.Coords.Add(d)
	}
	m.UpdateAll()
}
