package engine

import (
	"math"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(smooth m :mode :planar)`,
			expect: `(smooth m "__kw_mode" "__kw_planar")`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`v 0 0 0 ; not-a-comment`",
			expect: "`v 0 0 0 ; not-a-comment`",
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(mesh-stats (to-mesh s))`,
			expect: `(mesh_stats (to_mesh s))`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative number preserved",
			input:  `(vec3 -1 x-1 2)`,
			expect: `(vec3 -1 x-1 2)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:max-step`,
			expect: `"__kw_max-step"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

func TestHull(t *testing.T) {
	sc := mustEval(t, newTestEngine(), `
; a tetrahedron with one interior point
(defmesh "tet"
  (hull (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0) (vec3 0 0 1)
        (vec3 0.1 0.1 0.1)))
`)
	m := sc.Get("tet")
	if m == nil {
		t.Fatal("expected mesh named 'tet'")
	}
	if m.NumVertices() != 4 || m.NumFaces() != 4 || m.NumEdges() != 6 {
		t.Errorf("got V=%d F=%d E=%d, want 4/4/6", m.NumVertices(), m.NumFaces(), m.NumEdges())
	}
	if !m.IsClosed() {
		t.Error("hull should be closed")
	}
}

func TestVariableReference(t *testing.T) {
	sc := mustEval(t, newTestEngine(), `
(def pts (points (vec3 -1 -1 -1) (vec3 1 -1 -1) (vec3 1 1 -1) (vec3 -1 1 -1)))
(def top (points (list (vec3 -1 -1 1) (vec3 1 -1 1) (vec3 1 1 1) (vec3 -1 1 1))))
(defmesh "box" (hull pts top))
`)
	m := sc.Get("box")
	if m == nil {
		t.Fatal("expected mesh named 'box'")
	}
	if m.NumVertices() != 8 || m.NumFaces() != 12 {
		t.Errorf("got V=%d F=%d, want 8/12", m.NumVertices(), m.NumFaces())
	}
}

func TestMeshLookup(t *testing.T) {
	sc := mustEval(t, newTestEngine(), `
(defmesh "a" (cube 2))
(defmesh "b" (mesh "a"))
`)
	if sc.Get("a") != sc.Get("b") {
		t.Error("mesh lookup should return the same mesh")
	}
	if names := sc.Names(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}

func TestMeshLookupError(t *testing.T) {
	errs := evalErrors(t, newTestEngine(), `(mesh "nope")`)
	if !strings.Contains(errs[0].Message, `no mesh named "nope"`) {
		t.Errorf("unexpected message: %q", errs[0].Message)
	}
}

func TestTranslateMesh(t *testing.T) {
	sc := mustEval(t, newTestEngine(), `(defmesh "c" (translate (cube 2) (vec3 10 0 0)))`)
	m := sc.Get("c")
	for v := range m.Vertices() {
		x := m.Vertex(v).Coords.X
		if x != 9 && x != 11 {
			t.Errorf("vertex x = %f, want 9 or 11", x)
		}
	}
}

func TestSmoothPlanarCube(t *testing.T) {
	sc := mustEval(t, newTestEngine(), `(defmesh "c" (smooth (cube 2) :iterations 2 :mode :planar))`)
	m := sc.Get("c")
	if m.NumVertices() != 8 {
		t.Fatalf("got %d vertices, want 8", m.NumVertices())
	}
	// Planar smoothing pulls each corner inward along the diagonal, keeping
	// the cube's symmetry.
	for v := range m.Vertices() {
		p := m.Vertex(v).Coords
		if math.Abs(math.Abs(p.X)-math.Abs(p.Y)) > 1e-9 || math.Abs(math.Abs(p.Y)-math.Abs(p.Z)) > 1e-9 {
			t.Errorf("vertex %v lost symmetry", p)
		}
		if math.Abs(p.X) >= 1 {
			t.Errorf("vertex %v did not move inward", p)
		}
	}
}

func TestSmoothTangentialCubeIsFixed(t *testing.T) {
	sc := mustEval(t, newTestEngine(), `(defmesh "c" (smooth (cube 2) :mode "tangential"))`)
	m := sc.Get("c")
	for v := range m.Vertices() {
		p := m.Vertex(v).Coords
		for _, c := range []float64{p.X, p.Y, p.Z} {
			if math.Abs(math.Abs(c)-1) > 1e-9 {
				t.Errorf("vertex %v moved", p)
			}
		}
	}
}

func TestSmoothErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"bad mode", `(smooth (cube 2) :mode :wobbly)`, "unknown mode"},
		{"negative iterations", `(smooth (cube 2) :iterations -1)`, "must not be negative"},
		{"not a mesh", `(smooth (sphere 2))`, "expected mesh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := evalErrors(t, newTestEngine(), tt.source)
			if !strings.Contains(errs[0].Message, tt.want) {
				t.Errorf("message %q does not contain %q", errs[0].Message, tt.want)
			}
		})
	}
}

func TestSolidToMesh(t *testing.T) {
	sc := mustEval(t, newTestEngine(), `
(def body (difference (box 10 10 10) (translate (sphere 4) (vec3 5 5 5))))
(defmesh "part" (to-mesh body))
`)
	m := sc.Get("part")
	if m == nil || m.NumFaces() == 0 {
		t.Fatal("expected a non-empty mesh")
	}
	for f := range m.Faces() {
		if m.Face(f).Size() != 3 {
			t.Fatalf("face %d has %d corners, want 3", f, m.Face(f).Size())
		}
	}
}

func TestBooleanArity(t *testing.T) {
	errs := evalErrors(t, newTestEngine(), `(union (box 1 1 1))`)
	if !strings.Contains(errs[0].Message, "union") {
		t.Errorf("message %q should name the builtin", errs[0].Message)
	}
}

func TestCylinderRequiresKeywords(t *testing.T) {
	errs := evalErrors(t, newTestEngine(), `(cylinder :height 10)`)
	if !strings.Contains(errs[0].Message, "missing :radius") {
		t.Errorf("unexpected message: %q", errs[0].Message)
	}
}

func TestCubeRejectsBadSize(t *testing.T) {
	errs := evalErrors(t, newTestEngine(), `(cube -1)`)
	if !strings.Contains(errs[0].Message, "must be positive") {
		t.Errorf("unexpected message: %q", errs[0].Message)
	}
}

func TestReadMesh(t *testing.T) {
	sc := mustEval(t, newTestEngine(), "(defmesh \"tri\" (read-mesh `\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n`))")
	m := sc.Get("tri")
	if m.NumFaces() != 1 || m.NumEdges() != 3 {
		t.Errorf("got F=%d E=%d, want 1/3", m.NumFaces(), m.NumEdges())
	}
}

func TestMeshStats(t *testing.T) {
	sc := mustEval(t, newTestEngine(), `
(def s (mesh-stats (cube 2)))
(if (and (== (first s) 8) (== (first (rest s)) 12))
  (defmesh "ok" (cube 1))
  (defmesh "bad" (cube 1)))
`)
	if sc.Get("ok") == nil {
		t.Errorf("mesh-stats returned unexpected counts; scene has %v", sc.Names())
	}
}

func TestCheckMesh(t *testing.T) {
	sc := mustEval(t, newTestEngine(), `
(if (== (check-mesh (tetrahedron (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0) (vec3 0 0 1))) 0)
  (defmesh "ok" (cube 1))
  (defmesh "bad" (cube 1)))
`)
	if sc.Get("ok") == nil {
		t.Errorf("check-mesh reported violations; scene has %v", sc.Names())
	}
}

func TestVec3Arity(t *testing.T) {
	errs := evalErrors(t, newTestEngine(), `(vec3 1 2)`)
	if !strings.Contains(errs[0].Message, "exactly 3") {
		t.Errorf("unexpected message: %q", errs[0].Message)
	}
}
