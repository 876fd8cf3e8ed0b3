package grbl

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cncio/gsend/coord"
)

// Status is one parsed grbl status report. WCO is carried over from the
// previous report when omitted; grbl only includes it intermittently.
type Status struct {
	State string
	MPos  coord.Point
	WCO   coord.Point
}

// WPos is the work position derived from the machine position.
func (s Status) WPos() coord.Point {
	return s.MPos.Sub(s.WCO)
}

func parseCoords(data string) (p coord.Point, err error) {
	parts := strings.Split(data, ",")
	if len(parts) != 3 {
		return p, errors.New("invalid number of elements")
	}
	p.X, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return p, err
	}
	p.Y, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return p, err
	}
	p.Z, err = strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return p, err
	}
	return p, nil
}

// parseStatus parses a `<...>` status report, carrying forward fields
// from prev that the report omits.
func parseStatus(prev Status, data string) (*Status, error) {
	data = strings.TrimSpace(data)
	data = strings.TrimPrefix(data, "<")
	data = strings.TrimSuffix(data, ">")
	parts := strings.Split(data, "|")
	stat := prev
	stat.State = parts[0]
	var err error
	for _, s := range parts[1:] {
		sParts := strings.SplitN(s, ":", 2)
		if len(sParts) < 2 {
			// field name with no value, don't choke on garbled lines
			continue
		}
		switch sParts[0] {
		case "MPos":
			stat.MPos, err = parseCoords(sParts[1])
		case "WPos":
			var wpos coord.Point
			wpos, err = parseCoords(sParts[1])
			stat.MPos = wpos.Add(stat.WCO)
		case "WCO":
			stat.WCO, err = parseCoords(sParts[1])
		}
		if err != nil {
			return nil, err
		}
	}
	return &stat, nil
}
