// Package motion tracks interpreter position state across a stream of
// gcode commands and expands circular moves into line segments.
package motion

import (
	"github.com/cncio/gsend/coord"
	"github.com/cncio/gsend/gcode"
)

const inchToMM = 25.4

// State is the motion interpreter state carried across a session. It is
// a value: Advance returns the updated copy rather than mutating, so
// callers thread state explicitly through preprocessing.
type State struct {
	Pos      coord.Point
	Absolute bool
	Metric   bool

	// active motion mode (G0/G1/G2/G3), -1 until one is seen
	Mode float64
}

func NewState() State {
	return State{Absolute: true, Metric: true, Mode: -1}
}

// Segment is the motion produced by a single command.
type Segment struct {
	Start, End coord.Point

	Arc       bool
	Clockwise bool
	Center    coord.Point
	Radius    float64
}

// Advance interprets one command and returns the updated state along
// with the segment of motion the command produces. Commands that cause
// no motion (mode switches, unparseable or non-gcode lines) return a
// nil segment.
func (s State) Advance(line string) (State, *Segment) {
	b, err := gcode.ParseLine(line)
	if err != nil {
		return s, nil
	}

	for _, w := range b {
		if w.W != 'G' {
			continue
		}
		switch w.Arg {
		case 0, 1, 2, 3:
			s.Mode = w.Arg
		case 20:
			s.Metric = false
		case 21:
			s.Metric = true
		case 90:
			s.Absolute = true
		case 91:
			s.Absolute = false
		}
	}

	if !b.Has('X') && !b.Has('Y') && !b.Has('Z') {
		return s, nil
	}
	if s.Mode < 0 {
		return s, nil
	}

	mul := 1.0
	if !s.Metric {
		mul = inchToMM
	}

	start := s.Pos
	end := start
	for _, w := range b {
		switch w.W {
		case 'X':
			end.X = axisValue(start.X, w.Arg*mul, s.Absolute)
		case 'Y':
			end.Y = axisValue(start.Y, w.Arg*mul, s.Absolute)
		case 'Z':
			end.Z = axisValue(start.Z, w.Arg*mul, s.Absolute)
		}
	}

	seg := &Segment{Start: start, End: end}
	if s.Mode == 2 || s.Mode == 3 {
		seg.Arc = true
		seg.Clockwise = s.Mode == 2
		seg.Center, seg.Radius = arcCenter(b, start, end, seg.Clockwise, mul)
	}

	s.Pos = end
	return s, seg
}

func axisValue(current, arg float64, absolute bool) float64 {
	if absolute {
		return arg
	}
	return current + arg
}
