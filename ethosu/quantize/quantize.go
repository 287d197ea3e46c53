// quantize.go - Quantisierungs-Mathematik: LUT-Synthese, Rundung, Rang-Padding
// Hauptfunktionen: RoundAwayZero, LUT, Sigmoid, PadShape, PadAxes
package quantize

import "math"

// RoundAwayZero rounds to the nearest integer with ties away from zero,
// the rounding the hardware applies to requantized values.
func RoundAwayZero(x float64) float64 {
	if x < 0 {
		return math.Ceil(x - 0.5)
	}
	return math.Floor(x + 0.5)
}

// Sigmoid is the logistic function with the saturation limits inherited
// from TFLite: 0 below -8, 1 above +8.
func Sigmoid(x float64) float64 {
	switch {
	case x <= -8.0:
		return 0.0
	case x >= 8.0:
		return 1.0
	default:
		return 1.0 / (1.0 + math.Exp(-x))
	}
}

// LUT synthesizes the 256-entry lookup table for a pointwise function f
// between the given input and output quantizations. For every int8 code
// x the real input is ifmScale*(x-ifmZP); the real result is quantized
// with round-away-from-zero and clamped to the int8 range.
func LUT(ifmScale float32, ifmZP int, ofmScale float32, ofmZP int, f func(float64) float64) [256]int8 {
	var lut [256]int8
	for x := -128; x <= 127; x++ {
		xReal := float64(ifmScale) * float64(x-ifmZP)
		outReal := f(xReal)
		q := int(RoundAwayZero(float64(ofmZP) + outReal/float64(ofmScale)))
		q = min(127, max(-128, q))
		lut[x+128] = int8(q)
	}
	return lut
}

// PadShape prepends size-1 axes until shape has the given rank. Shapes
// already at or above the rank are returned unchanged.
func PadShape(shape []int, rank int) []int {
	if len(shape) >= rank {
		return shape
	}
	padded := make([]int, rank)
	for i := range rank - len(shape) {
		padded[i] = 1
	}
	copy(padded[rank-len(shape):], shape)
	return padded
}

// PadAxes shifts reduction axis indices to account for the size-1 axes
// PadShape prepends when growing a shape of the given rank.
func PadAxes(axes []int, fromRank, toRank int) []int {
	if fromRank >= toRank {
		return axes
	}
	shifted := make([]int, len(axes))
	for i, a := range axes {
		shifted[i] = a + toRank - fromRank
	}
	return shifted
}
