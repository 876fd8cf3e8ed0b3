package motion

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cncio/gsend/coord"
)

func TestExpandPointsStayOnArc(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cx := rapid.Float64Range(-100, 100).Draw(t, "cx")
		cy := rapid.Float64Range(-100, 100).Draw(t, "cy")
		r := rapid.Float64Range(0.5, 50).Draw(t, "r")
		a0 := rapid.Float64Range(-math.Pi, math.Pi).Draw(t, "startAngle")
		a1 := rapid.Float64Range(-math.Pi, math.Pi).Draw(t, "endAngle")
		z0 := rapid.Float64Range(-10, 10).Draw(t, "z0")
		z1 := rapid.Float64Range(-10, 10).Draw(t, "z1")
		cw := rapid.Bool().Draw(t, "clockwise")

		seg := Segment{
			Start:     coord.Point{X: cx + r*math.Cos(a0), Y: cy + r*math.Sin(a0), Z: z0},
			End:       coord.Point{X: cx + r*math.Cos(a1), Y: cy + r*math.Sin(a1), Z: z1},
			Arc:       true,
			Clockwise: cw,
			Center:    coord.Point{X: cx, Y: cy, Z: z0},
			Radius:    r,
		}

		exp := seg.Expand(0.01, 0.5)
		if exp == nil {
			return // too short to expand, passed through
		}

		tol := 1e-9 * (1 + r)
		zLo := math.Min(z0, z1) - tol
		zHi := math.Max(z0, z1) + tol
		var last coord.Point
		n := 0
		for {
			p, err := exp.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			d := math.Hypot(p.X-cx, p.Y-cy)
			require.InDelta(t, r, d, tol, "point off the circle")
			require.GreaterOrEqual(t, p.Z, zLo)
			require.LessOrEqual(t, p.Z, zHi)
			last = p
			n++
		}
		require.GreaterOrEqual(t, n, 2)
		require.Equal(t, seg.End, last, "final point must be the exact endpoint")
	})
}
