// binary.go - Legalisierung binaerer Elementwise-Operatoren
// Operanden unter Rang 4 werden mit 1er-Achsen aufgefuellt; die
// Ausgabe behaelt die urspruengliche Form des ersten Operanden.
package legalize

import (
	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/ethosu/quantize"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

// padRank4 reshapes a tensor below rank 4 by prepending size-1 axes.
func padRank4(t TensorParams) relay.Expr {
	if len(t.Shape) >= 4 {
		return t.Tensor
	}
	return relay.Reshape(t.Tensor, quantize.PadShape(t.Shape, 4))
}

func binaryRewriter(composite, binOp, operatorType string) pattern.Rewriter {
	return pattern.Rewriter{
		Pattern: pattern.CallOf(pattern.HasComposite(composite), pattern.Wildcard(), pattern.Wildcard()),
		Callback: func(post *relay.Call) (relay.Expr, error) {
			p, err := parseBinaryParams(post, binOp)
			if err != nil {
				return nil, err
			}
			if _, ok := channelsAxis[p.ofm.Layout]; !ok {
				return nil, &ethosu.UnsupportedLayoutError{Layout: p.ofm.Layout}
			}
			activation, clipMin, clipMax := clipActivation(p.activation)

			// The hardware requires the broadcastable operand as the
			// second argument, so the first operand's original shape
			// is the output shape.
			out := ethosu.BinaryElementwise(padRank4(p.ifm), padRank4(p.ifm2), ethosu.EmptyLUT(), &ethosu.BinaryElementwiseAttrs{
				OperatorType:     operatorType,
				IfmScale:         p.ifm.Q.Scale,
				IfmZeroPoint:     p.ifm.Q.ZeroPoint,
				Ifm2Scale:        p.ifm2.Q.Scale,
				Ifm2ZeroPoint:    p.ifm2.Q.ZeroPoint,
				OfmScale:         p.ofm.Q.Scale,
				OfmZeroPoint:     p.ofm.Q.ZeroPoint,
				IfmChannels:      p.ifm.Shape[len(p.ifm.Shape)-1],
				Ifm2Channels:     p.ifm2.Shape[len(p.ifm2.Shape)-1],
				ReversedOperands: p.reversed,
				Activation:       activation,
				ClipMin:          clipMin,
				ClipMax:          clipMax,
				RoundingMode:     ethosu.RoundingTFL,
				IfmLayout:        p.ifm.Layout,
				Ifm2Layout:       p.ifm2.Layout,
				OfmLayout:        p.ofm.Layout,
				OfmDType:         p.ofm.DType,
			})
			if len(p.ifm.Shape) < 4 {
				return relay.Reshape(out, p.ifm.Shape), nil
			}
			return out, nil
		},
	}
}

func addRewriter() pattern.Rewriter {
	return binaryRewriter(CompositeAdd, relay.OpQnnAdd, ethosu.BinaryAdd)
}

func subRewriter() pattern.Rewriter {
	return binaryRewriter(CompositeSub, relay.OpQnnSubtract, ethosu.BinarySub)
}

func mulRewriter() pattern.Rewriter {
	return binaryRewriter(CompositeMul, relay.OpQnnMul, ethosu.BinaryMul)
}

func minRewriter() pattern.Rewriter {
	return binaryRewriter(CompositeMin, relay.OpMinimum, ethosu.BinaryMin)
}

func maxRewriter() pattern.Rewriter {
	return binaryRewriter(CompositeMax, relay.OpMaximum, ethosu.BinaryMax)
}

func shlRewriter() pattern.Rewriter {
	return binaryRewriter(CompositeShl, relay.OpLeftShift, ethosu.BinaryShl)
}
