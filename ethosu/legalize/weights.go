// weights.go - Gewichts-Umordnung in das kanonische OHWI-Layout
// Hauptfunktionen: transposeWeights, onesWeights, biasValues
package legalize

import (
	"fmt"
	"slices"

	"github.com/pdevine/tensor"

	"github.com/redbopo/tvm/relay"
)

// transposeWeights permutes the axes of an int8 weight constant. A nil
// permutation means the values are already in the canonical layout.
func transposeWeights(w *relay.Constant, perm []int) (*relay.Constant, error) {
	if perm == nil {
		return w, nil
	}
	backing, ok := w.Data.([]int8)
	if !ok {
		return nil, fmt.Errorf("legalize: weight constant must be int8, got %s", w.T.DType)
	}
	n := tensor.New(tensor.WithShape(w.T.Shape...), tensor.WithBacking(slices.Clone(backing)))
	if err := n.T(perm...); err != nil {
		return nil, fmt.Errorf("legalize: transposing weights: %w", err)
	}
	if err := n.Transpose(); err != nil {
		return nil, fmt.Errorf("legalize: materializing weight transpose: %w", err)
	}
	return relay.Const(n.Data().([]int8), relay.Tensor([]int(n.Shape()), w.T.DType)), nil
}

// onesWeights builds an all-ones int8 weight constant of the given
// shape, used by the mean lowerings to sum a pooling window.
func onesWeights(shape []int) *relay.Constant {
	n := tensor.Ones(tensor.Int8, shape...)
	return relay.Const(n.Data().([]int8), relay.Tensor(shape, relay.DTypeInt8))
}

// biasValues widens a bias constant to the int64 values the packing
// service consumes.
func biasValues(b *relay.Constant) ([]int64, error) {
	switch data := b.Data.(type) {
	case []int32:
		out := make([]int64, len(data))
		for i, v := range data {
			out[i] = int64(v)
		}
		return out, nil
	case []int64:
		return slices.Clone(data), nil
	default:
		return nil, fmt.Errorf("legalize: bias constant must be int32 or int64, got %s", b.T.DType)
	}
}
