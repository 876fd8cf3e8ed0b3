package control

import (
	"io"
	"strings"

	"github.com/cncio/gsend/gcode"
	"github.com/cncio/gsend/leveler"
	"github.com/cncio/gsend/motion"
)

const defaultPrecision = 4

// preprocess runs one raw line through the text pipeline and, when arc
// conversion is on, through the motion tracker. Motion state is an
// explicit input/output pair so the transform stays a pure function of
// (state, line).
//
// An empty result slice means the line reduced to nothing and should be
// queued as a skip.
func preprocess(raw string, cfg Config, st motion.State) (out []string, next motion.State, comment string) {
	text, comment := gcode.StripComment(raw)

	if cfg.SpeedOverride > 0 {
		text = gcode.OverrideSpeed(text, cfg.SpeedOverride)
	}
	if cfg.TruncateDecimalLength > 0 {
		text = gcode.TruncateDecimals(cfg.TruncateDecimalLength, text)
	}
	if cfg.RemoveAllWhitespace {
		text = gcode.RemoveAllWhitespace(text)
	}
	text = strings.TrimSpace(text)

	if text != "" {
		out = []string{text}
	}
	if !cfg.ConvertArcsToLines {
		return out, st, comment
	}

	// every command advances the tracker, not only arcs
	next, seg := st.Advance(text)
	if seg == nil {
		return out, next, comment
	}

	prec := cfg.TruncateDecimalLength
	if prec <= 0 {
		prec = defaultPrecision
	}

	if !seg.Arc {
		if cfg.Leveler != nil {
			if leveled, ok := levelLine(text, seg, next.Absolute, cfg.Leveler); ok {
				out = []string{leveled}
			}
		}
		return out, next, comment
	}

	exp := seg.Expand(cfg.SmallArcThreshold, cfg.SmallArcSegmentLength)
	if exp == nil {
		return out, next, comment
	}

	lines := make([]string, 0, 16)
	start := seg.Start
	for {
		p, err := exp.Next()
		if err == io.EOF {
			break
		}
		lines = append(lines, gcode.LinearMove(start, p, next.Absolute, prec))
		start = p
	}
	return lines, next, comment
}

// levelLine offsets the Z word of a straight move so the tool follows
// the probed surface. Moves outside the mesh are left untouched.
func levelLine(text string, seg *motion.Segment, absolute bool, zo leveler.ZOffsetter) (string, bool) {
	ok, endOff := zo.OffsetZ(seg.End.X, seg.End.Y)
	if !ok {
		return "", false
	}

	b, err := gcode.ParseLine(text)
	if err != nil {
		return "", false
	}
	b = b.Clone()

	if absolute {
		setOrAddZ(&b, seg.End.Z+endOff)
		return b.String(), true
	}

	ok, startOff := zo.OffsetZ(seg.Start.X, seg.Start.Y)
	if !ok {
		return "", false
	}
	if startOff == endOff {
		return "", false
	}
	setOrAddZ(&b, seg.End.Z-seg.Start.Z+(endOff-startOff))
	return b.String(), true
}

func setOrAddZ(b *gcode.Block, z float64) {
	if b.Has('Z') {
		b.SetArg('Z', z)
		return
	}
	*b = append(*b, gcode.Word{W: 'Z', Arg: z})
}
