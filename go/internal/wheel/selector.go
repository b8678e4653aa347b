package wheel

import "math"

// FullCircle is the angular size of the wheel in degrees.
const FullCircle = 360.0

// NoWinner is the sentinel index used before a round has resolved.
// Winning indices are 1-based so that 0 stays free for this sentinel.
const NoWinner = 0

// ArcWidth returns the angular width of one partition in degrees.
func ArcWidth(partitionCount int) float64 {
	return FullCircle / float64(partitionCount)
}

// Select maps a draw value to the 1-based winning partition index.
//
// The draw value r must lie in [0, 360). The winner is ceil(r / arcWidth),
// with r = 0 mapping to index 1. The ceiling rule (rather than a modulo) is
// what keeps the index aligned with TargetRotation: the same function runs on
// the drawing authority and on every client that recomputes the outcome, so
// it must never be reimplemented elsewhere.
func Select(partitionCount int, r float64) int {
	if partitionCount < 1 {
		return NoWinner
	}
	if r <= 0 {
		return 1
	}
	i := int(math.Ceil(r / ArcWidth(partitionCount)))
	if i > partitionCount {
		i = partitionCount
	}
	return i
}
