// Package smooth relaxes DLFL meshes in place by moving every vertex toward
// the mean centroid of its incident faces.
package smooth

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/chazu/dlfl/pkg/dlfl"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mode selects which component of the displacement toward the averaged
// centroid is applied.
type Mode int

const (
	// ModeTangential keeps the part of the displacement that lies in the
	// averaged face plane, sliding vertices along the surface.
	ModeTangential Mode = iota
	// ModePlanar keeps only the part along the averaged normal, pulling
	// each vertex onto the plane through the averaged centroid.
	ModePlanar
)

func (m Mode) String() string {
	switch m {
	case ModeTangential:
		return "tangential"
	case ModePlanar:
		return "planar"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name as used in config files and scripts.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tangential":
		return ModeTangential, nil
	case "planar":
		return ModePlanar, nil
	}
	return 0, fmt.Errorf("smooth: unknown mode %q", s)
}

// Options configures a smoothing pass.
type Options struct {
	Mode   Mode
	Logger *slog.Logger
}

// Stats summarizes one pass.
type Stats struct {
	Moved   int     // vertices whose position changed
	Skipped int     // vertices with no usable incident faces
	MaxStep float64 // largest displacement
}

// Smooth runs one relaxation step over m. Face normals and centroids are
// recomputed first from the current positions, then every vertex moves
// using those cached values, so the result does not depend on vertex
// order. Face centroids and normals, edge midpoints and edge normals are
// refreshed afterwards. Faces with fewer
// than three corners are ignored.
func Smooth(m *dlfl.Mesh, opts Options) Stats {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	usable := make(map[dlfl.FaceRef]bool, m.NumFaces())
	for f := range m.Faces() {
		if err := m.UpdateFace(f); err == nil {
			usable[f] = true
		}
	}

	type move struct {
		v   dlfl.VertexRef
		pos v3.Vec
	}
	var (
		moves []move
		st    Stats
	)
	for v := range m.Vertices() {
		var centroid, normal v3.Vec
		n := 0
		for c := range m.VertexCorners(v) {
			f := m.Corner(c).Face()
			if !usable[f] {
				continue
			}
			face := m.Face(f)
			centroid = centroid.Add(face.Centroid)
			normal = normal.Add(face.Normal)
			n++
		}
		if n == 0 {
			st.Skipped++
			continue
		}
		centroid = centroid.DivScalar(float64(n))
		normal = dlfl.Unit(normal)

		old := m.Vertex(v).Coords
		d := centroid.Sub(old)
		along := normal.MulScalar(d.Dot(normal))
		var step v3.Vec
		switch opts.Mode {
		case ModePlanar:
			step = along
		default:
			step = d.Sub(along)
		}
		if l := step.Length(); l > 0 {
			st.Moved++
			if l > st.MaxStep {
				st.MaxStep = l
			}
		}
		moves = append(moves, move{v, old.Add(step)})
	}

	for _, mv := range moves {
		m.Vertex(mv.v).Coords = mv.pos
	}
	for f := range usable {
		m.UpdateFace(f)
	}
	for e := range m.Edges() {
		m.UpdateMidPoint(e)
		m.UpdateEdgeNormal(e)
	}
	log.Debug("smooth: pass", "mode", opts.Mode, "moved", st.Moved, "skipped", st.Skipped, "max_step", st.MaxStep)
	return st
}

// Iterate runs n passes of Smooth and returns the stats of the last one.
func Iterate(m *dlfl.Mesh, n int, opts Options) Stats {
	var st Stats
	for range n {
		st = Smooth(m, opts)
	}
	return st
}
