package world

import (
	"math"

	"treg2d/internal/sim/mathx"
)

// VerticalBoundaries split [0,1) into down/stay/up so that an agent takes
// on average the organ's crossing time to walk from top to bottom.
type VerticalBoundaries struct {
	Alpha   float64
	X, Y, Z float64
	B1, B2  float64
}

// NewVerticalBoundaries computes the boundaries for a grid of the given
// height crossed in `crossing` hours at `tick` hours a step. The raw X, Y and
// Z are kept as computed; B1 and B2 are the clamped values used by Sample.
func NewVerticalBoundaries(height int, crossing, tick float64) VerticalBoundaries {
	n := int(crossing / tick)
	alpha := math.Inf(1)
	if n > 0 {
		alpha = float64(height) / float64(n)
	}
	x := (1 + 1.5*alpha) / 3
	z := x - alpha
	y := (x + z) / 2
	vb := VerticalBoundaries{Alpha: alpha, X: x, Y: y, Z: z}
	if math.IsInf(alpha, 1) {
		vb.B1, vb.B2 = 1, 1
		return vb
	}
	vb.B1 = mathx.Clamp01(x)
	vb.B2 = math.Max(vb.B1, mathx.Clamp01(x+y))
	return vb
}

// Sample maps a uniform draw onto a vertical step: +1 moves toward the exit.
func (vb VerticalBoundaries) Sample(u float64) int {
	switch {
	case u < vb.B1:
		return 1
	case u < vb.B2:
		return 0
	default:
		return -1
	}
}
