package gcode

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type Block []Word

func (b Block) Arg(w byte) (bool, float64) {
	for _, g := range b {
		if g.W == w {
			return true, g.Arg
		}
	}
	return false, 0
}

func (b Block) Has(w byte) bool {
	ok, _ := b.Arg(w)
	return ok
}

func (b Block) SetArg(w byte, val float64) {
	for i, g := range b {
		if g.W == w {
			b[i].Arg = val
			return
		}
	}
}

func (b Block) Clone() Block {
	c := make(Block, len(b))
	copy(c, b)
	return c
}

func (b Block) String() string {
	var sb strings.Builder
	for _, g := range b {
		sb.WriteString(g.String())
	}
	return sb.String()
}

var (
	rxLine  = regexp.MustCompile(`^([A-Z][+\-]?[0-9.]+)+$`)
	rxSplit = regexp.MustCompile(`[A-Z][+\-]?[0-9.]+`)
)

// ParseLine parses a single line of gcode into a Block. Whitespace is
// ignored and letters are upcased. Lines that are not plain word/argument
// gcode (system commands like "$H", empty lines) are an error.
func ParseLine(line string) (Block, error) {
	s := strings.ToUpper(line)
	s = strings.Join(strings.Fields(s), "")

	if s == "" {
		return nil, errors.New("empty line")
	}
	if !rxLine.MatchString(s) {
		return nil, errors.New("invalid or unhandled line: " + line)
	}

	codes := rxSplit.FindAllString(s, -1)
	res := make(Block, len(codes))

	for i, c := range codes {
		_, err := fmt.Sscanf(c, "%c%f", &res[i].W, &res[i].Arg)
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}
