package motion

import (
	"io"
	"math"
	"testing"

	"github.com/cncio/gsend/coord"
	"github.com/stretchr/testify/assert"
)

func TestState_Advance(t *testing.T) {
	s := NewState()

	s, seg := s.Advance("G0X10Y5")
	assert.NotNil(t, seg)
	assert.Equal(t, coord.Point{X: 10, Y: 5}, s.Pos)
	assert.False(t, seg.Arc)

	// relative mode
	s, seg = s.Advance("G91")
	assert.Nil(t, seg)
	assert.False(t, s.Absolute)

	s, seg = s.Advance("G1X-4Z2")
	assert.NotNil(t, seg)
	assert.Equal(t, coord.Point{X: 6, Y: 5, Z: 2}, s.Pos)

	// sticky motion mode, no G word
	s, seg = s.Advance("X1")
	assert.NotNil(t, seg)
	assert.Equal(t, coord.Point{X: 7, Y: 5, Z: 2}, s.Pos)

	// non-gcode lines leave state untouched
	s2, seg := s.Advance("$H")
	assert.Nil(t, seg)
	assert.Equal(t, s.Pos, s2.Pos)
}

func TestState_Advance_Inches(t *testing.T) {
	s := NewState()
	s, seg := s.Advance("G20")
	assert.Nil(t, seg)

	s, seg = s.Advance("G0X1")
	assert.NotNil(t, seg)
	assert.InDelta(t, 25.4, s.Pos.X, .0001)
}

func TestState_Advance_Arc(t *testing.T) {
	s := NewState()
	s, _ = s.Advance("G0X0Y0")

	s, seg := s.Advance("G2X10Y0I5J0")
	assert.NotNil(t, seg)
	assert.True(t, seg.Arc)
	assert.True(t, seg.Clockwise)
	assert.Equal(t, coord.Point{X: 5, Y: 0}, seg.Center)
	assert.InDelta(t, 5, seg.Radius, .0001)
	assert.Equal(t, coord.Point{X: 10, Y: 0}, s.Pos)
}

func TestState_Advance_ArcRadius(t *testing.T) {
	s := NewState()
	s, _ = s.Advance("G0X0Y0")

	// CW half-ish circle from origin to (10,0) with R5: center (5,0)
	_, seg := s.Advance("G2X10Y0R5")
	assert.NotNil(t, seg)
	assert.InDelta(t, 5, seg.Center.X, .0001)
	assert.InDelta(t, 0, seg.Center.Y, .0001)
	assert.InDelta(t, 5, seg.Radius, .0001)
}

func TestSegment_Expand(t *testing.T) {
	seg := Segment{
		Start:     coord.Point{X: 0, Y: 0},
		End:       coord.Point{X: 10, Y: 0},
		Arc:       true,
		Clockwise: false,
		Center:    coord.Point{X: 5, Y: 0},
		Radius:    5,
	}

	e := seg.Expand(1, 0.5)
	assert.NotNil(t, e)

	var pts []coord.Point
	for {
		p, err := e.Next()
		if err == io.EOF {
			break
		}
		assert.NoError(t, err)
		pts = append(pts, p)
	}

	// half circle, r=5: length ~15.7 => 32 segments
	assert.Len(t, pts, 32)
	// CCW from (0,0) around (5,0) goes through negative Y
	assert.True(t, pts[0].Y < 0)
	// every point stays on the circle
	for _, p := range pts {
		assert.InDelta(t, 5, p.DistanceXY(5, 0), .0001)
	}
	// exact endpoint last
	assert.Equal(t, seg.End, pts[len(pts)-1])
}

func TestSegment_Expand_FullCircle(t *testing.T) {
	seg := Segment{
		Start:     coord.Point{X: 0, Y: 0},
		End:       coord.Point{X: 0, Y: 0},
		Arc:       true,
		Clockwise: true,
		Center:    coord.Point{X: 5, Y: 0},
		Radius:    5,
	}

	e := seg.Expand(1, 0.5)
	assert.NotNil(t, e)
	n := 0
	for {
		_, err := e.Next()
		if err == io.EOF {
			break
		}
		n++
	}
	assert.Equal(t, int(math.Ceil(2*math.Pi*5/0.5)), n)
}

func TestSegment_Expand_SmallArc(t *testing.T) {
	seg := Segment{
		Start:     coord.Point{X: 0, Y: 0},
		End:       coord.Point{X: 0.2, Y: 0},
		Arc:       true,
		Clockwise: true,
		Center:    coord.Point{X: 0.1, Y: 0},
		Radius:    0.1,
	}

	// below threshold: caller keeps the original command
	assert.Nil(t, seg.Expand(1, 0.3))
}
