package gcode

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cncio/gsend/coord"
)

var (
	rxParenComment = regexp.MustCompile(`\(([^)]*)\)`)
	rxLineComment  = regexp.MustCompile(`;(.*)`)
	rxFeed         = regexp.MustCompile(`[Ff][0-9.]+`)
	rxDecimal      = regexp.MustCompile(`[0-9]*\.[0-9]+`)
	rxWhitespace   = regexp.MustCompile(`\s`)
)

// StripComment removes a parenthetical or trailing line comment and
// returns the remaining command text along with the comment text.
func StripComment(line string) (clean, comment string) {
	clean = line
	if m := rxParenComment.FindStringSubmatch(clean); m != nil {
		comment = m[1]
		clean = rxParenComment.ReplaceAllString(clean, "")
	}
	if m := rxLineComment.FindStringSubmatch(clean); m != nil {
		if comment == "" {
			comment = strings.TrimSpace(m[1])
		}
		clean = rxLineComment.ReplaceAllString(clean, "")
	}
	return clean, comment
}

// OverrideSpeed replaces an existing feed rate word with the given speed.
// Lines without a feed word are returned unmodified.
func OverrideSpeed(line string, speed float64) string {
	if !rxFeed.MatchString(line) {
		return line
	}
	return rxFeed.ReplaceAllString(line, "F"+FormatFloat(speed, 4))
}

// TruncateDecimals rounds every decimal literal in the line to at most
// prec fractional digits.
func TruncateDecimals(prec int, line string) string {
	return rxDecimal.ReplaceAllStringFunc(line, func(s string) string {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return s
		}
		return FormatFloat(v, prec)
	})
}

// RemoveAllWhitespace strips every whitespace character from the line.
func RemoveAllWhitespace(line string) string {
	return rxWhitespace.ReplaceAllString(line, "")
}

// LinearMove renders a G1 command moving from start to end. In absolute
// mode the end coordinates are emitted directly, otherwise the deltas.
func LinearMove(start, end coord.Point, absolute bool, prec int) string {
	var sb strings.Builder
	sb.WriteString("G1")
	if absolute {
		sb.WriteString("X" + FormatFloat(end.X, prec))
		sb.WriteString("Y" + FormatFloat(end.Y, prec))
		sb.WriteString("Z" + FormatFloat(end.Z, prec))
	} else {
		d := end.Sub(start)
		sb.WriteString("X" + FormatFloat(d.X, prec))
		sb.WriteString("Y" + FormatFloat(d.Y, prec))
		sb.WriteString("Z" + FormatFloat(d.Z, prec))
	}
	return sb.String()
}
