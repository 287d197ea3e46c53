// unary.go - Legalisierung unaerer Elementwise-Operatoren
// Nur channel-last wird akzeptiert; Rang-Padding symmetrisch zum
// binaeren Fall, aber mit einem Operanden.
package legalize

import (
	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/ethosu/quantize"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

func unaryRewriter(composite, unaryOp, operatorType string) pattern.Rewriter {
	return pattern.Rewriter{
		Pattern: pattern.CallOf(pattern.HasComposite(composite), pattern.Wildcard()),
		Callback: func(post *relay.Call) (relay.Expr, error) {
			p, err := parseUnaryParams(post, unaryOp)
			if err != nil {
				return nil, err
			}
			if p.ofm.Layout != ethosu.LayoutNHWC {
				return nil, &ethosu.UnsupportedLayoutError{Layout: p.ofm.Layout}
			}
			activation, clipMin, clipMax := clipActivation(p.activation)

			input := p.ifm.Tensor
			inputShape := p.ifm.Shape
			if len(inputShape) < 4 {
				inputShape = quantize.PadShape(inputShape, 4)
				input = relay.Reshape(input, inputShape)
			}

			out := ethosu.UnaryElementwise(input, ethosu.EmptyLUT(), &ethosu.UnaryElementwiseAttrs{
				OperatorType: operatorType,
				IfmScale:     p.ifm.Q.Scale,
				IfmZeroPoint: p.ifm.Q.ZeroPoint,
				OfmScale:     p.ofm.Q.Scale,
				OfmZeroPoint: p.ofm.Q.ZeroPoint,
				OfmChannels:  inputShape[3],
				Activation:   activation,
				ClipMin:      clipMin,
				ClipMax:      clipMax,
				IfmLayout:    p.ifm.Layout,
				OfmLayout:    p.ofm.Layout,
			})
			if len(p.ifm.Shape) < 4 {
				return relay.Reshape(out, p.ifm.Shape), nil
			}
			return out, nil
		},
	}
}

func absRewriter() pattern.Rewriter {
	return unaryRewriter(CompositeAbs, relay.OpAbs, ethosu.UnaryAbs)
}

func clzRewriter() pattern.Rewriter {
	return unaryRewriter(CompositeCLZ, relay.OpCLZ, ethosu.UnaryCLZ)
}
