package wheel

import (
	"fmt"
	"math"
)

// LabelPlacement describes where a partition's display name is drawn.
type LabelPlacement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"` // degrees
}

// PartitionPath returns the SVG path for one partition of a wheel of the
// given pixel size. Partition 0 starts at twelve o'clock and arcs run
// clockwise. A single-partition wheel is the whole circle.
func PartitionPath(partitionCount, index int, size float64) string {
	radius := size / 2
	cx, cy := radius, radius

	if partitionCount == 1 {
		return fmt.Sprintf("M%g,%g m%g,0 a%g,%g 0 1,0 %g,0 a%g,%g 0 1,0 %g,0",
			cx, cy, -radius, radius, radius, size, radius, radius, -size)
	}

	angle := 2 * math.Pi / float64(partitionCount)
	start := float64(index) * angle
	end := start + angle

	x1 := cx + radius*math.Sin(start)
	y1 := cy - radius*math.Cos(start)
	x2 := cx + radius*math.Sin(end)
	y2 := cy - radius*math.Cos(end)

	return fmt.Sprintf("M%g,%g L%g,%g A%g,%g 0 0,1 %g,%g Z", cx, cy, x1, y1, radius, radius, x2, y2)
}

// LabelPosition returns the placement of a partition label, centered along
// the partition's bisector at radius/1.3 from the hub.
func LabelPosition(partitionCount, index int, size float64) LabelPlacement {
	radius := size / 2
	cx, cy := radius, radius

	angle := 2 * math.Pi / float64(partitionCount)
	textAngle := float64(index)*angle + angle/2

	return LabelPlacement{
		X:        cx + (radius/1.3)*math.Sin(textAngle),
		Y:        cy - (radius/1.3)*math.Cos(textAngle),
		Rotation: textAngle*180/math.Pi - 90,
	}
}
