package control

import (
	"github.com/cncio/gsend/leveler"
)

// Config holds the preprocessing and session options. Values are read
// when a command is appended or a stream begins; changing them does not
// affect commands already queued.
type Config struct {
	// SpeedOverride replaces the feed rate of commands that carry one.
	// Disabled when <= 0.
	SpeedOverride float64

	// MaxCommandLength rejects commands longer than this after
	// preprocessing.
	MaxCommandLength int

	// TruncateDecimalLength rounds decimal literals to this many
	// fractional digits. Disabled when <= 0.
	TruncateDecimalLength int

	RemoveAllWhitespace bool

	// ConvertArcsToLines expands G2/G3 moves into line segments.
	ConvertArcsToLines    bool
	SmallArcThreshold     float64
	SmallArcSegmentLength float64

	// Leveler, when set, adjusts the Z axis of straight moves to follow
	// a probed surface. Requires ConvertArcsToLines for point tracking.
	Leveler leveler.ZOffsetter

	StatusUpdatesEnabled bool
	StatusUpdateRate     int // milliseconds
}

// DefaultConfig mirrors common grbl sender defaults.
func DefaultConfig() Config {
	return Config{
		SpeedOverride:         -1,
		MaxCommandLength:      50,
		TruncateDecimalLength: 4,
		RemoveAllWhitespace:   true,
		SmallArcThreshold:     1.0,
		SmallArcSegmentLength: 0.3,
		StatusUpdatesEnabled:  true,
		StatusUpdateRate:      200,
	}
}
