package meshio

import (
	"fmt"
	"math"

	"github.com/chazu/dlfl/pkg/dlfl"
	"github.com/chazu/dlfl/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultWeld is the distance below which triangle-soup vertices merge.
const DefaultWeld = 1e-6

const weldBuckets = 1 << 12

// Welder deduplicates points that lie within a threshold of each other. Points
// are hashed into cells ten thresholds wide; a lookup scans every cell the
// threshold sphere overlaps and returns the closest earlier point.
type Welder struct {
	thr    float64
	points []v3.Vec
	next   []int
	first  [weldBuckets]int
}

// NewWelder returns a welder merging points closer than thr. Non-positive
// thresholds fall back to DefaultWeld.
func NewWelder(thr float64) *Welder {
	if thr <= 0 {
		thr = DefaultWeld
	}
	w := &Welder{thr: thr}
	for i := range w.first {
		w.first[i] = -1
	}
	return w
}

// Points returns the unique points in insertion order.
func (w *Welder) Points() []v3.Vec { return w.points }

func (w *Welder) cellSize() float64 { return w.thr * 10 }

func (w *Welder) cell(x float64) int {
	return int(math.Floor(x / w.cellSize()))
}

func bucket(x, y, z int) int {
	const (
		h1 = 0x8da6b343
		h2 = 0xd8163841
		h3 = 0xcb1ab31f
	)
	return (h1*x + h2*y + h3*z) & (weldBuckets - 1)
}

// Add returns the index of the point within the threshold of p, adding p if
// there is none.
func (w *Welder) Add(p v3.Vec) int {
	best, bestDist := -1, w.thr*w.thr
	for z := w.cell(p.Z - w.thr); z <= w.cell(p.Z+w.thr); z++ {
		for y := w.cell(p.Y - w.thr); y <= w.cell(p.Y+w.thr); y++ {
			for x := w.cell(p.X - w.thr); x <= w.cell(p.X+w.thr); x++ {
				for i := w.first[bucket(x, y, z)]; i != -1; i = w.next[i] {
					if d := w.points[i].Sub(p).Length2(); d < bestDist {
						best, bestDist = i, d
					}
				}
			}
		}
	}
	if best >= 0 {
		return best
	}

	idx := len(w.points)
	h := bucket(w.cell(p.X), w.cell(p.Y), w.cell(p.Z))
	w.points = append(w.points, p)
	w.next = append(w.next, w.first[h])
	w.first[h] = idx
	return idx
}

// FromTriangles welds a triangle soup into a DLFL mesh. Triangles that
// collapse to fewer than three distinct vertices after welding are dropped,
// as are exact duplicates of an earlier triangle.
func FromTriangles(s *dlfl.Session, tris []kernel.Triangle, weld float64) (*dlfl.Mesh, error) {
	w := NewWelder(weld)
	type key [3]int
	seen := make(map[key]bool, len(tris))
	faces := make([][]int, 0, len(tris))
	for _, t := range tris {
		a, b, c := w.Add(t[0]), w.Add(t[1]), w.Add(t[2])
		if a == b || b == c || c == a {
			continue
		}
		// Rotate so the smallest index leads; duplicates then compare equal.
		k := key{a, b, c}
		for k[0] > k[1] || k[0] > k[2] {
			k = key{k[1], k[2], k[0]}
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		faces = append(faces, []int{a, b, c})
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("meshio: weld: no non-degenerate triangles in %d", len(tris))
	}

	// Points only used by dropped triangles would become isolated vertices.
	remap := make([]int, len(w.Points()))
	for i := range remap {
		remap[i] = -1
	}
	var points []v3.Vec
	for _, f := range faces {
		for i, idx := range f {
			if remap[idx] < 0 {
				remap[idx] = len(points)
				points = append(points, w.Points()[idx])
			}
			f[i] = remap[idx]
		}
	}
	return dlfl.FromPolygons(s, points, faces)
}

// FromRender welds a render mesh back into a DLFL mesh.
func FromRender(s *dlfl.Session, m *kernel.Mesh, weld float64) (*dlfl.Mesh, error) {
	if m == nil || m.IsEmpty() {
		return nil, fmt.Errorf("meshio: weld: empty render mesh")
	}
	return FromTriangles(s, m.Triangles(), weld)
}
