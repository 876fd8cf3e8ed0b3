package motion

import (
	"io"
	"math"

	"github.com/cncio/gsend/coord"
	"github.com/cncio/gsend/gcode"
)

// arcCenter resolves the arc center in the XY plane from I/J offsets or,
// failing that, from an R radius word. Offsets are relative to the start
// of the move.
func arcCenter(b gcode.Block, start, end coord.Point, clockwise bool, mul float64) (coord.Point, float64) {
	center := start
	okI, i := b.Arg('I')
	okJ, j := b.Arg('J')
	if okI || okJ {
		center.X += i * mul
		center.Y += j * mul
		center.Z = start.Z
		return center, start.DistanceXY(center.X, center.Y)
	}

	okR, r := b.Arg('R')
	if !okR {
		return center, 0
	}
	r *= mul

	// grbl-style center solve: offset h from the chord midpoint along
	// the chord perpendicular, sign picked by direction and R sign.
	dx := end.X - start.X
	dy := end.Y - start.Y
	d := math.Hypot(dx, dy)
	if d == 0 {
		return center, 0
	}
	h2d := -math.Sqrt(math.Max(4*r*r-d*d, 0)) / d
	if !clockwise {
		h2d = -h2d
	}
	if r < 0 {
		h2d = -h2d
		r = -r
	}
	center.X += 0.5 * (dx - dy*h2d)
	center.Y += 0.5 * (dy + dx*h2d)
	center.Z = start.Z
	return center, r
}

// Expander lazily produces the points of a line-segment approximation
// of an arc. It is finite and cannot be restarted.
type Expander struct {
	seg        Segment
	startAngle float64
	sweep      float64 // signed, positive counter-clockwise

	n, i int
}

// Expand returns a point source approximating the arc, or nil when the
// arc is shorter than threshold or no sensible approximation exists.
// Callers receiving nil should emit the original command unmodified.
func (sg Segment) Expand(threshold, segmentLength float64) *Expander {
	if !sg.Arc || sg.Radius <= 0 || segmentLength <= 0 {
		return nil
	}

	startAngle := math.Atan2(sg.Start.Y-sg.Center.Y, sg.Start.X-sg.Center.X)
	endAngle := math.Atan2(sg.End.Y-sg.Center.Y, sg.End.X-sg.Center.X)

	sweep := endAngle - startAngle
	if sg.Clockwise {
		sweep = -sweep
	}
	for sweep <= 0 {
		sweep += 2 * math.Pi // start == end is a full circle
	}

	arcLength := sweep * sg.Radius
	if arcLength < threshold {
		return nil
	}

	n := int(math.Ceil(arcLength / segmentLength))
	if n < 2 {
		return nil
	}

	if sg.Clockwise {
		sweep = -sweep
	}
	return &Expander{
		seg:        sg,
		startAngle: startAngle,
		sweep:      sweep,
		n:          n,
	}
}

// Next returns the next point along the arc. The final point is the
// exact arc endpoint; after that io.EOF is returned.
func (e *Expander) Next() (coord.Point, error) {
	if e.i == e.n {
		return coord.Point{}, io.EOF
	}
	e.i++
	if e.i == e.n {
		return e.seg.End, nil
	}

	t := float64(e.i) / float64(e.n)
	angle := e.startAngle + e.sweep*t
	return coord.Point{
		X: e.seg.Center.X + e.seg.Radius*math.Cos(angle),
		Y: e.seg.Center.Y + e.seg.Radius*math.Sin(angle),
		Z: e.seg.Start.Z + (e.seg.End.Z-e.seg.Start.Z)*t,
	}, nil
}
