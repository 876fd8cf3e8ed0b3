package leveler

import (
	"errors"
	"math"

	"github.com/fogleman/delaunay"

	"github.com/cncio/gsend/coord"
)

// Mesh interpolates Z offsets over a Delaunay triangulation of probe
// points.
type Mesh struct {
	minX, minY, maxX, maxY float64
	triangles              []coord.Triangle
}

var _ ZOffsetter = Mesh{}

func NewMesh(points []coord.Point) (*Mesh, error) {
	if len(points) < 3 {
		return nil, errors.New("mesh needs at least 3 probe points")
	}

	m := &Mesh{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
	pts := make([]delaunay.Point, len(points))
	for i, p := range points {
		m.minX = math.Min(m.minX, p.X)
		m.minY = math.Min(m.minY, p.Y)
		m.maxX = math.Max(m.maxX, p.X)
		m.maxY = math.Max(m.maxY, p.Y)
		pts[i] = delaunay.Point{X: p.X, Y: p.Y}
	}
	m.minX -= coord.Epsilon
	m.minY -= coord.Epsilon
	m.maxX += coord.Epsilon
	m.maxY += coord.Epsilon

	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil, err
	}

	// triangle indices refer back to the input order, which still
	// carries the probed Z
	m.triangles = make([]coord.Triangle, 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		m.triangles = append(m.triangles, coord.Triangle{
			A: points[tri.Triangles[i]],
			B: points[tri.Triangles[i+1]],
			C: points[tri.Triangles[i+2]],
		})
	}

	return m, nil
}

func (m Mesh) OffsetZ(x, y float64) (bool, float64) {
	if x < m.minX || x > m.maxX || y < m.minY || y > m.maxY {
		return false, 0
	}
	for _, t := range m.triangles {
		if t.ContainsXY(x, y) {
			return true, t.Z(x, y)
		}
	}
	return false, 0
}
