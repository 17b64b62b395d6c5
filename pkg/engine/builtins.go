package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/chazu/dlfl/pkg/dlfl"
	"github.com/chazu/dlfl/pkg/hull"
	"github.com/chazu/dlfl/pkg/kernel"
	"github.com/chazu/dlfl/pkg/meshio"
	"github.com/chazu/dlfl/pkg/smooth"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPoints is a point cloud, the input to hull.
type sexpPoints struct {
	pts []v3.Vec
}

func (p *sexpPoints) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(points %d)", len(p.pts))
}
func (p *sexpPoints) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid that has not been polygonized yet.
type sexpSolid struct {
	solid kernel.Solid
	kind  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(solid %s)", s.kind)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpMesh wraps a DLFL mesh. Operations like smooth and translate mutate
// the mesh in place and return the same value.
type sexpMesh struct {
	mesh *dlfl.Mesh
}

func (m *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh :vertices %d :faces %d)", m.mesh.NumVertices(), m.mesh.NumFaces())
}
func (m *sexpMesh) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// A trailing keyword is a flag.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts either a keyword (:planar) or a plain string.
func toKeywordString(s zygo.Sexp) (string, error) {
	if name, ok := isKW(s); ok {
		return name, nil
	}
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

func toMesh(s zygo.Sexp) (*dlfl.Mesh, error) {
	if v, ok := s.(*sexpMesh); ok {
		return v.mesh, nil
	}
	return nil, fmt.Errorf("expected mesh, got %T (%s)", s, s.SexpString(nil))
}

// toPoints flattens vec3 values, point clouds and lists of either.
func toPoints(args []zygo.Sexp) ([]v3.Vec, error) {
	var out []v3.Vec
	for _, a := range args {
		switch v := a.(type) {
		case *sexpVec3:
			out = append(out, v.vec)
		case *sexpPoints:
			out = append(out, v.pts...)
		default:
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, fmt.Errorf("expected vec3, points or list, got %T (%s)", a, a.SexpString(nil))
			}
			pts, err := toPoints(items)
			if err != nil {
				return nil, err
			}
			out = append(out, pts...)
		}
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func intSexp(n int) zygo.Sexp { return &zygo.SexpInt{Val: int64(n)} }

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builder carries what the builtins of one evaluation share.
type builder struct {
	opts  Options
	scene *Scene
	log   *slog.Logger
}

func (b *builder) hullOptions() hull.Options {
	return hull.Options{
		Epsilon: b.opts.Epsilon,
		Session: b.scene.Session(),
		Pool:    b.opts.Pool,
		Logger:  b.log,
	}
}

type builtin func(b *builder, args []zygo.Sexp) (zygo.Sexp, error)

// builtins maps registered names to implementations. Names with hyphens are
// registered in their preprocessed snake_case form.
var builtins = map[string]builtin{
	"vec3":         builtinVec3,
	"points":       builtinPoints,
	"hull":         builtinHull,
	"cube":         builtinCube,
	"tetrahedron":  builtinTetrahedron,
	"box":          builtinBox,
	"cylinder":     builtinCylinder,
	"sphere":       builtinSphere,
	"translate":    builtinTranslate,
	"rotate":       builtinRotate,
	"union":        builtinBoolean(kernel.Kernel.Union),
	"difference":   builtinBoolean(kernel.Kernel.Difference),
	"intersection": builtinBoolean(kernel.Kernel.Intersection),
	"to_mesh":      builtinToMesh,
	"read_mesh":    builtinReadMesh,
	"smooth":       builtinSmooth,
	"defmesh":      builtinDefmesh,
	"mesh":         builtinMesh,
	"mesh_stats":   builtinMeshStats,
	"check_mesh":   builtinCheckMesh,
}

// displayName turns a registered name back into the name scripts use.
func displayName(name string) string { return strings.ReplaceAll(name, "_", "-") }

// registerBuiltins installs the mesh builtins into env. Source must be run
// through preprocessSource first so keywords and hyphenated names match.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	for name, fn := range builtins {
		display := displayName(name)
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			out, err := fn(b, args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", display, err)
			}
			return out, nil
		})
	}
}

// (vec3 1 2 3)
func builtinVec3(_ *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("requires exactly 3 arguments, got %d", len(args))
	}
	var xyz [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%c: %w", "xyz"[i], err)
		}
		xyz[i] = f
	}
	return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
}

// (points (vec3 0 0 0) (vec3 1 0 0) ...) or (points (list ...))
func builtinPoints(_ *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	pts, err := toPoints(args)
	if err != nil {
		return nil, err
	}
	return &sexpPoints{pts: pts}, nil
}

// (hull pts :epsilon 1e-9)
func builtinHull(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	pts, err := toPoints(pa.positional)
	if err != nil {
		return nil, err
	}
	opts := b.hullOptions()
	if v, ok := pa.kw["epsilon"]; ok {
		if opts.Epsilon, err = toFloat64(v); err != nil {
			return nil, fmt.Errorf("epsilon: %w", err)
		}
	}
	m, err := hull.Build(pts, opts)
	if err != nil {
		return nil, err
	}
	return &sexpMesh{mesh: m}, nil
}

// (cube 10)
func builtinCube(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("requires a size")
	}
	size, err := toFloat64(args[0])
	if err != nil {
		return nil, fmt.Errorf("size: %w", err)
	}
	if size <= 0 {
		return nil, fmt.Errorf("size must be positive, got %g", size)
	}
	m, err := dlfl.Cube(b.scene.Session(), size)
	if err != nil {
		return nil, err
	}
	m.UpdateAll()
	return &sexpMesh{mesh: m}, nil
}

// (tetrahedron a b c d)
func builtinTetrahedron(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	pts, err := toPoints(args)
	if err != nil {
		return nil, err
	}
	if len(pts) != 4 {
		return nil, fmt.Errorf("requires 4 points, got %d", len(pts))
	}
	m, err := dlfl.Tetrahedron(b.scene.Session(), pts[0], pts[1], pts[2], pts[3])
	if err != nil {
		return nil, err
	}
	m.UpdateAll()
	return &sexpMesh{mesh: m}, nil
}

// (box 10 20 30)
func builtinBox(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("requires 3 sizes, got %d", len(args))
	}
	var xyz [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%c: %w", "xyz"[i], err)
		}
		xyz[i] = f
	}
	s, err := b.opts.Kernel.Box(xyz[0], xyz[1], xyz[2])
	if err != nil {
		return nil, err
	}
	return &sexpSolid{solid: s, kind: "box"}, nil
}

// (cylinder :height 10 :radius 2)
func builtinCylinder(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	var height, radius float64
	for key, dst := range map[string]*float64{"height": &height, "radius": &radius} {
		v, ok := pa.kw[key]
		if !ok {
			return nil, fmt.Errorf("missing :%s", key)
		}
		f, err := toFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
	}
	s, err := b.opts.Kernel.Cylinder(height, radius)
	if err != nil {
		return nil, err
	}
	return &sexpSolid{solid: s, kind: "cylinder"}, nil
}

// (sphere 5)
func builtinSphere(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("requires a radius")
	}
	r, err := toFloat64(args[0])
	if err != nil {
		return nil, fmt.Errorf("radius: %w", err)
	}
	s, err := b.opts.Kernel.Sphere(r)
	if err != nil {
		return nil, err
	}
	return &sexpSolid{solid: s, kind: "sphere"}, nil
}

// (translate obj (vec3 1 2 3)) works on solids and meshes.
func builtinTranslate(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("requires an object and an offset")
	}
	d, err := toVec3(args[1])
	if err != nil {
		return nil, fmt.Errorf("offset: %w", err)
	}
	switch v := args[0].(type) {
	case *sexpSolid:
		return &sexpSolid{solid: b.opts.Kernel.Translate(v.solid, d.X, d.Y, d.Z), kind: v.kind}, nil
	case *sexpMesh:
		v.mesh.Translate(d)
		return v, nil
	}
	return nil, fmt.Errorf("expected solid or mesh, got %T (%s)", args[0], args[0].SexpString(nil))
}

// (rotate solid (vec3 0 0 90)) takes Euler angles in degrees.
func builtinRotate(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("requires a solid and angles")
	}
	s, err := toSolid(args[0])
	if err != nil {
		return nil, err
	}
	a, err := toVec3(args[1])
	if err != nil {
		return nil, fmt.Errorf("angles: %w", err)
	}
	return &sexpSolid{solid: b.opts.Kernel.Rotate(s, a.X, a.Y, a.Z), kind: "rotated"}, nil
}

// builtinBoolean folds op over two or more solids: (union a b c).
func builtinBoolean(op func(kernel.Kernel, kernel.Solid, kernel.Solid) kernel.Solid) builtin {
	return func(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("requires at least 2 solids, got %d", len(args))
		}
		acc, err := toSolid(args[0])
		if err != nil {
			return nil, err
		}
		for i, a := range args[1:] {
			s, err := toSolid(a)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+2, err)
			}
			acc = op(b.opts.Kernel, acc, s)
		}
		return &sexpSolid{solid: acc, kind: "csg"}, nil
	}
}

// (to-mesh solid :weld 1e-6) polygonizes a solid and welds the triangles.
func builtinToMesh(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return nil, fmt.Errorf("requires a solid")
	}
	s, err := toSolid(pa.positional[0])
	if err != nil {
		return nil, err
	}
	weld := b.opts.Weld
	if v, ok := pa.kw["weld"]; ok {
		if weld, err = toFloat64(v); err != nil {
			return nil, fmt.Errorf("weld: %w", err)
		}
	}
	tris, err := b.opts.Kernel.Triangles(s)
	if err != nil {
		return nil, err
	}
	m, err := meshio.FromTriangles(b.scene.Session(), tris, weld)
	if err != nil {
		return nil, err
	}
	m.UpdateAll()
	b.log.Debug("engine: polygonized", "triangles", len(tris), "vertices", m.NumVertices())
	return &sexpMesh{mesh: m}, nil
}

// (read-mesh "v 0 0 0\nv 1 0 0\n...") parses the meshio text format.
func builtinReadMesh(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("requires mesh text")
	}
	text, err := toString(args[0])
	if err != nil {
		return nil, err
	}
	m, err := meshio.Read(strings.NewReader(text), b.scene.Session())
	if err != nil {
		return nil, err
	}
	m.UpdateAll()
	return &sexpMesh{mesh: m}, nil
}

// (smooth m :iterations 3 :mode :planar)
func builtinSmooth(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return nil, fmt.Errorf("requires a mesh")
	}
	m, err := toMesh(pa.positional[0])
	if err != nil {
		return nil, err
	}
	n := 1
	if v, ok := pa.kw["iterations"]; ok {
		if n, err = toInt(v); err != nil {
			return nil, fmt.Errorf("iterations: %w", err)
		}
		if n < 0 {
			return nil, fmt.Errorf("iterations must not be negative, got %d", n)
		}
	}
	opts := smooth.Options{Logger: b.log}
	if v, ok := pa.kw["mode"]; ok {
		name, err := toKeywordString(v)
		if err != nil {
			return nil, fmt.Errorf("mode: %w", err)
		}
		if opts.Mode, err = smooth.ParseMode(name); err != nil {
			return nil, err
		}
	}
	smooth.Iterate(m, n, opts)
	return pa.positional[0], nil
}

// (defmesh "name" m) adds m to the scene.
func builtinDefmesh(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("requires a name and a mesh")
	}
	name, err := toString(args[0])
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if name == "" {
		return nil, errors.New("name must not be empty")
	}
	m, err := toMesh(args[1])
	if err != nil {
		return nil, err
	}
	b.scene.Add(name, m)
	return args[1], nil
}

// (mesh "name") looks up a defined mesh.
func builtinMesh(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("requires a name")
	}
	name, err := toString(args[0])
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	m := b.scene.Get(name)
	if m == nil {
		return nil, fmt.Errorf("no mesh named %q", name)
	}
	return &sexpMesh{mesh: m}, nil
}

// (mesh-stats m) returns (vertices edges faces boundary-edges).
func builtinMeshStats(_ *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("requires a mesh")
	}
	m, err := toMesh(args[0])
	if err != nil {
		return nil, err
	}
	boundary := 0
	for e := range m.Edges() {
		if m.IsBoundary(e) {
			boundary++
		}
	}
	return zygo.MakeList([]zygo.Sexp{
		intSexp(m.NumVertices()),
		intSexp(m.NumEdges()),
		intSexp(m.NumFaces()),
		intSexp(boundary),
	}), nil
}

// (check-mesh m) returns the number of structural violations.
func builtinCheckMesh(b *builder, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("requires a mesh")
	}
	m, err := toMesh(args[0])
	if err != nil {
		return nil, err
	}
	vs := m.Check()
	for _, v := range vs {
		b.log.Warn("engine: mesh violation", "violation", v.Error())
	}
	return intSexp(len(vs)), nil
}
