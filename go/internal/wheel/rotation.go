package wheel

// BaseSpins is the number of extra full turns applied to every spin so the
// animation always rotates in the same visible direction regardless of the
// wheel's prior resting angle.
const BaseSpins = FullCircle * 3

// PointerOffset aligns the fixed pointer graphic with the index accounting
// used by Select. The constant is empirically tuned against the reference
// pointer position; do not re-derive it.
const PointerOffset = 450.0

// TargetRotation returns the rotation in degrees that every client applies
// for a round with draw value r. Rotating the wheel by exactly this many
// degrees leaves the pointer inside the arc belonging to Select's winner.
func TargetRotation(r float64) float64 {
	return BaseSpins + PointerOffset - r
}
