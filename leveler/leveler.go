// Package leveler adjusts the Z axis of linear moves to follow a probed
// work surface.
package leveler

// A ZOffsetter reports the surface height offset at an XY position. The
// bool result is false when the position is outside the known area, in
// which case the move is left untouched.
type ZOffsetter interface {
	OffsetZ(x, y float64) (bool, float64)
}
