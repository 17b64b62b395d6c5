package meshio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ReadPoints reads a point cloud, one point per line as "x y z". Lines may
// also be v records, so a mesh file's vertices can be read as a cloud; any
// other record in such a file is ignored.
func ReadPoints(r io.Reader) ([]v3.Vec, error) {
	var pts []v3.Vec
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			fields = fields[1:]
		case "f", "e":
			continue
		}
		if len(fields) != 3 {
			return nil, &ParseError{line, fmt.Sprintf("point needs 3 coordinates, got %d", len(fields))}
		}
		var xyz [3]float64
		for i, tok := range fields {
			f, err := parseCoord(tok)
			if err != nil {
				return nil, &ParseError{line, err.Error()}
			}
			xyz[i] = f
		}
		pts = append(pts, v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("meshio: read points: %w", err)
	}
	return pts, nil
}

// parseCoord parses one coordinate. NaN and infinities are rejected: they
// poison every normal and distance computed from the point.
func parseCoord(tok string) (float64, error) {
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("bad coordinate %q", tok)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite coordinate %q", tok)
	}
	return f, nil
}
