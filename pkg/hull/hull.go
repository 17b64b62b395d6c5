// Package hull builds the convex hull of a point set as a DLFL mesh using
// incremental insertion. Each point is tested against every current face;
// the faces it can see are replaced by a cone of triangles joining the
// horizon to the point.
package hull

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/dlfl/pkg/dlfl"
	"github.com/chazu/dlfl/pkg/pool"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultEpsilon is the distance from a face plane within which a point is
// treated as lying on the plane.
const DefaultEpsilon = 1e-10

// colinearEps bounds sin² of the angle at the first point for three points
// to count as colinear.
const colinearEps = 1e-10

var (
	ErrTooFewPoints = errors.New("hull: need at least 4 points")
	ErrColinear     = errors.New("hull: all points are colinear")
	ErrCoplanar     = errors.New("hull: all points are coplanar")
	ErrHorizon      = errors.New("hull: horizon is not a closed loop")
	ErrNonFinite    = errors.New("hull: point has a NaN or infinite coordinate")
)

// InputVertex tracks one input point through construction.
type InputVertex struct {
	Point     v3.Vec
	Processed bool
	OnHull    bool
	ref       dlfl.VertexRef
}

// Options configures a Builder. The zero value is usable.
type Options struct {
	// Epsilon is the plane distance below which a point does not see a
	// face. Zero means DefaultEpsilon.
	Epsilon float64
	// Session supplies entity IDs. Nil gets a private session.
	Session *dlfl.Session
	// Pool options are passed to the mesh's pools.
	Pool []pool.Option
	// Logger receives per-point debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// Builder runs one hull construction.
type Builder struct {
	inputs []InputVertex
	mesh   *dlfl.Mesh
	owner  map[dlfl.VertexRef]int
	eps    float64
	log    *slog.Logger

	done      bool
	allOnHull bool
	err       error
}

// faceState tags faces for the duration of one insertion.
type faceState uint8

const (
	faceInvisible faceState = iota
	faceVisible
)

// New prepares a builder over a copy of points.
func New(points []v3.Vec, opts Options) *Builder {
	b := &Builder{
		inputs: make([]InputVertex, len(points)),
		mesh:   dlfl.NewMesh(opts.Session, opts.Pool...),
		owner:  make(map[dlfl.VertexRef]int),
		eps:    opts.Epsilon,
		log:    opts.Logger,
	}
	if b.eps <= 0 {
		b.eps = DefaultEpsilon
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	for i, p := range points {
		b.inputs[i] = InputVertex{Point: p, ref: dlfl.Nil}
	}
	return b
}

// Build is a shortcut for New followed by Construct. Interior points are
// not an error.
func Build(points []v3.Vec, opts Options) (*dlfl.Mesh, error) {
	b := New(points, opts)
	if _, err := b.Construct(); err != nil {
		return nil, err
	}
	return b.Mesh(), nil
}

// Mesh returns the mesh under construction.
func (b *Builder) Mesh() *dlfl.Mesh { return b.mesh }

// Inputs returns a copy of the per-point state.
func (b *Builder) Inputs() []InputVertex {
	out := make([]InputVertex, len(b.inputs))
	copy(out, b.inputs)
	return out
}

// OnHull reports whether input point i is a vertex of the finished hull.
func (b *Builder) OnHull(i int) bool {
	return i >= 0 && i < len(b.inputs) && b.inputs[i].OnHull
}

// Vertex returns the mesh vertex created for input point i, or Nil.
func (b *Builder) Vertex(i int) dlfl.VertexRef {
	if i < 0 || i >= len(b.inputs) || !b.inputs[i].OnHull {
		return dlfl.Nil
	}
	return b.inputs[i].ref
}

// Construct processes every input point. It reports whether all of them
// ended up on the hull; interior and duplicate points make it false. An
// error means the input has no volume or an allocation failed. Calling
// Construct again returns the first result.
func (b *Builder) Construct() (bool, error) {
	if b.done {
		return b.allOnHull, b.err
	}
	b.done = true
	b.allOnHull, b.err = b.construct()
	return b.allOnHull, b.err
}

func (b *Builder) construct() (bool, error) {
	first, err := b.seed()
	if err != nil {
		return false, err
	}
	if err := b.insert(first); err != nil {
		return false, err
	}
	for i := range b.inputs {
		if b.inputs[i].Processed {
			continue
		}
		if err := b.insert(i); err != nil {
			return false, err
		}
	}

	for f := range b.mesh.Faces() {
		if err := b.mesh.UpdateFace(f); err != nil {
			return false, err
		}
	}
	for e := range b.mesh.Edges() {
		b.mesh.UpdateEdgeNormal(e)
	}

	all := true
	for i := range b.inputs {
		in := &b.inputs[i]
		in.OnHull = in.ref != dlfl.Nil && b.mesh.Vertex(in.ref) != nil
		all = all && in.OnHull
	}
	b.log.Debug("hull: constructed",
		"points", len(b.inputs),
		"vertices", b.mesh.NumVertices(),
		"faces", b.mesh.NumFaces(),
		"all_on_hull", all)
	return all, nil
}

// seed builds the initial double triangle and returns the index of a point
// off its plane, which must be inserted next.
func (b *Builder) seed() (int, error) {
	if len(b.inputs) < 4 {
		return 0, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(b.inputs))
	}
	pt := func(i int) v3.Vec { return b.inputs[i].Point }
	for i := range b.inputs {
		if p := pt(i); !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return 0, fmt.Errorf("%w: point %d is %v", ErrNonFinite, i, p)
		}
	}

	i1 := -1
	for i := 1; i < len(b.inputs); i++ {
		if pt(i).Sub(pt(0)).Length() > b.eps {
			i1 = i
			break
		}
	}
	if i1 < 0 {
		return 0, ErrColinear
	}
	i2 := -1
	for i := i1 + 1; i < len(b.inputs); i++ {
		if !Colinear(pt(0), pt(i1), pt(i)) {
			i2 = i
			break
		}
	}
	if i2 < 0 {
		return 0, ErrColinear
	}
	n := dlfl.Unit(pt(i1).Sub(pt(0)).Cross(pt(i2).Sub(pt(0))))
	i3 := -1
	for i := 1; i < len(b.inputs); i++ {
		if d := n.Dot(pt(i).Sub(pt(0))); d > b.eps || d < -b.eps {
			i3 = i
			break
		}
	}
	if i3 < 0 {
		return 0, ErrCoplanar
	}

	var vs [3]dlfl.VertexRef
	for k, i := range [3]int{0, i1, i2} {
		v, err := b.addVertex(i)
		if err != nil {
			return 0, err
		}
		vs[k] = v
		b.inputs[i].Processed = true
	}
	if _, err := b.mesh.AddFace(vs[0], vs[1], vs[2]); err != nil {
		return 0, fmt.Errorf("hull: seed: %w", err)
	}
	if _, err := b.mesh.AddFace(vs[2], vs[1], vs[0]); err != nil {
		return 0, fmt.Errorf("hull: seed: %w", err)
	}
	if _, err := b.mesh.BuildEdges(); err != nil {
		return 0, fmt.Errorf("hull: seed: %w", err)
	}
	b.log.Debug("hull: seeded", "a", 0, "b", i1, "c", i2, "apex", i3)
	return i3, nil
}

func (b *Builder) addVertex(i int) (dlfl.VertexRef, error) {
	v, err := b.mesh.AddVertex(b.inputs[i].Point)
	if err != nil {
		return dlfl.Nil, fmt.Errorf("hull: point %d: %w", i, err)
	}
	b.inputs[i].ref = v
	b.owner[v] = i
	return v, nil
}

type border struct {
	edge   dlfl.EdgeRef
	corner dlfl.CornerRef // the edge's corner in the visible face
}

// insert adds input point i to the hull if it lies outside it.
func (b *Builder) insert(i int) error {
	m := b.mesh
	p := b.inputs[i].Point
	b.inputs[i].Processed = true

	faces := make(map[dlfl.FaceRef]faceState)
	visible := 0
	for f := range m.Faces() {
		if VolumeSign(m, f, p, b.eps) > 0 {
			faces[f] = faceVisible
			visible++
		}
	}
	if visible == 0 {
		return nil
	}

	// Edges with one visible face form the horizon. Edges with two are
	// freed along with the visible faces.
	var borders []border
	interior := 0
	for e := range m.Edges() {
		f1, f2 := m.EdgeFaces(e)
		v1, v2 := faces[f1] == faceVisible, faces[f2] == faceVisible
		switch {
		case v1 && v2:
			interior++
		case v1:
			borders = append(borders, border{e, m.Edge(e).Corner1()})
		case v2:
			borders = append(borders, border{e, m.Edge(e).Corner2()})
		}
	}

	apex, err := b.addVertex(i)
	if err != nil {
		return err
	}

	// Spoke edges join a horizon vertex to the apex. Each is met twice,
	// once per adjacent cone face; the first corner waits here for the
	// second.
	spokes := make(map[dlfl.VertexRef]dlfl.CornerRef)
	pair := func(rim dlfl.VertexRef, c dlfl.CornerRef) error {
		other, ok := spokes[rim]
		if !ok {
			spokes[rim] = c
			return nil
		}
		delete(spokes, rim)
		if _, err := m.Link(other, c); err != nil {
			return fmt.Errorf("hull: point %d: %w", i, err)
		}
		return nil
	}

	for _, bd := range borders {
		cv := m.Corner(bd.corner)
		a := cv.Vertex()
		bv := m.Corner(cv.Next()).Vertex()
		f, err := m.AddFace(a, bv, apex)
		if err != nil {
			return fmt.Errorf("hull: point %d: %w", i, err)
		}
		ca := m.Face(f).Head()
		cb := m.Corner(ca).Next()
		cp := m.Corner(cb).Next()
		m.ReplaceCorner(bd.edge, bd.corner, ca)
		if err := pair(bv, cb); err != nil {
			return err
		}
		if err := pair(a, cp); err != nil {
			return err
		}
	}
	if len(spokes) > 0 {
		return fmt.Errorf("%w: point %d left %d unpaired spokes", ErrHorizon, i, len(spokes))
	}

	var touched []dlfl.VertexRef
	for f := range faces {
		touched = append(touched, m.FaceVertices(f)...)
		if err := m.RemoveFace(f); err != nil {
			return fmt.Errorf("hull: point %d: %w", i, err)
		}
	}
	removed := 0
	for _, v := range touched {
		if vert := m.Vertex(v); vert != nil && vert.Valence() == 0 {
			if err := m.RemoveVertex(v); err != nil {
				return fmt.Errorf("hull: point %d: %w", i, err)
			}
			// The slot may be reused by a later point.
			b.inputs[b.owner[v]].ref = dlfl.Nil
			delete(b.owner, v)
			removed++
		}
	}

	b.log.Debug("hull: inserted point",
		"index", i,
		"visible", visible,
		"border", len(borders),
		"dropped", interior,
		"vertices_removed", removed)
	return nil
}

// VolumeSign classifies p against triangle f: 1 if p lies more than eps in
// front of the face (the side its normal points to), -1 if more than eps
// behind, and 0 otherwise. Faces that are not triangles, or whose triangle
// has no area, give 0.
func VolumeSign(m *dlfl.Mesh, f dlfl.FaceRef, p v3.Vec, eps float64) int {
	face := m.Face(f)
	if face == nil || face.Size() != 3 {
		return 0
	}
	vs := m.FaceVertices(f)
	a := m.Vertex(vs[0]).Coords
	n := m.Vertex(vs[1]).Coords.Sub(a).Cross(m.Vertex(vs[2]).Coords.Sub(a))
	l := n.Length()
	if l == 0 {
		return 0
	}
	d := n.Dot(p.Sub(a)) / l
	switch {
	case d > eps:
		return 1
	case d < -eps:
		return -1
	}
	return 0
}

// Colinear reports whether a, b, and c lie on one line. Coincident points
// are colinear.
func Colinear(a, b, c v3.Vec) bool {
	ab, ac := b.Sub(a), c.Sub(a)
	return ab.Cross(ac).Length2() <= colinearEps*ab.Length2()*ac.Length2()
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
