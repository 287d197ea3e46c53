// pack.go - Bias/Scale-Packung fuer die NPU (externe Dienstschnittstelle)
// Die Legalisierung behandelt das Ergebnis als opakes Byte-Blob; nur der
// Scheduler interpretiert die Kodierung.
package vela

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/x448/float16"
	"gonum.org/v1/gonum/floats"

	"github.com/redbopo/tvm/relay"
)

// RecordSize is the packed size of one output channel: a 40-bit bias, a
// 32-bit fixed-point multiplier and a 6-bit shift.
const RecordSize = 10

var errNoScales = errors.New("vela: at least one weight scale is required")

// Bias values occupy a 40-bit signed field.
const (
	biasMin = -(1 << 39)
	biasMax = 1<<39 - 1
)

// Pack converts per-channel integer biases and floating-point scale
// ratios into the hardware's packed encoding. weightScales is either
// per-channel or a single broadcast entry. A 16-bit feature map and the
// LUT-based activations both run the accumulator rescale with a
// float16-reduced multiplier.
func Pack(biases []int64, ifmScale float32, ifmDType relay.DType, weightScales []float32, ofmScale float32, tanhOrSigmoid bool) ([]byte, error) {
	if len(weightScales) == 0 {
		return nil, errNoScales
	}
	ws64 := make([]float64, len(weightScales))
	for i, s := range weightScales {
		ws64[i] = float64(s)
	}
	if floats.Min(ws64) <= 0 || ifmScale <= 0 || ofmScale <= 0 {
		return nil, fmt.Errorf("vela: quantization scales must be positive (ifm=%v ofm=%v)", ifmScale, ofmScale)
	}
	reduced := tanhOrSigmoid || ifmDType == relay.DTypeInt16

	out := make([]byte, 0, len(biases)*RecordSize)
	for i, bias := range biases {
		if bias < biasMin || bias > biasMax {
			return nil, fmt.Errorf("vela: bias %d for channel %d exceeds the 40-bit field", bias, i)
		}
		ws := ws64[0]
		if len(ws64) > 1 {
			ws = ws64[i]
		}
		rescale := float64(ifmScale) * ws / float64(ofmScale)
		if reduced {
			rescale = float64(float16.Fromfloat32(float32(rescale)).Float32())
		}
		mult, shift := quantiseScale(rescale)

		var rec [RecordSize]byte
		binary.LittleEndian.PutUint32(rec[0:4], uint32(uint64(bias)&0xffffffff))
		rec[4] = byte(uint64(bias) >> 32)
		binary.LittleEndian.PutUint32(rec[5:9], mult)
		rec[9] = shift & 0x3f
		out = append(out, rec[:]...)
	}
	return out, nil
}

// quantiseScale decomposes a positive real scale into a 32-bit
// significand and a right shift such that scale ~= mult * 2^(shift-31).
func quantiseScale(scale float64) (mult uint32, shift uint8) {
	frac, exp := math.Frexp(scale)
	significand := int64(math.Round(frac * (1 << 31)))
	if significand == 1<<31 {
		significand >>= 1
		exp++
	}
	s := 31 - exp
	if s < 0 {
		s = 0
	}
	if s > 63 {
		s = 63
	}
	return uint32(significand), uint8(s)
}
