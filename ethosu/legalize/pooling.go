// pooling.go - Legalisierung von Max- und Average-Pooling
// Gemeinsame Logik, parametrisiert ueber Pooling-Art und Composite-Name.
package legalize

import (
	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

func poolingRewriter(composite, poolOp string, kind ethosu.PoolingType) pattern.Rewriter {
	return pattern.Rewriter{
		Pattern: pattern.CallOf(pattern.HasComposite(composite), pattern.Wildcard()),
		Callback: func(post *relay.Call) (relay.Expr, error) {
			p, err := parsePoolParams(post, poolOp)
			if err != nil {
				return nil, err
			}
			chAxis, ok := channelsAxis[p.ofm.Layout]
			if !ok {
				return nil, &ethosu.UnsupportedLayoutError{Layout: p.ofm.Layout}
			}
			activation, clipMin, clipMax := clipActivation(p.activation)

			// Pooling never folds a pointwise function; the LUT
			// stays empty.
			return ethosu.Pooling(post.Args[0], ethosu.EmptyLUT(), &ethosu.PoolingAttrs{
				PoolingType:  kind,
				IfmScale:     p.ifm.Q.Scale,
				IfmZeroPoint: p.ifm.Q.ZeroPoint,
				OfmScale:     p.ofm.Q.Scale,
				OfmZeroPoint: p.ofm.Q.ZeroPoint,
				PoolShape:    p.poolShape,
				OfmChannels:  p.ofm.Shape[chAxis],
				Strides:      p.strides,
				Padding:      p.padding,
				Activation:   activation,
				ClipMin:      clipMin,
				ClipMax:      clipMax,
				RoundingMode: ethosu.RoundingTFL,
				Upscale:      ethosu.UpscaleNone,
				IfmLayout:    p.ifm.Layout,
				OfmLayout:    p.ofm.Layout,
			}), nil
		},
	}
}

func maxPoolingRewriter() pattern.Rewriter {
	return poolingRewriter(CompositeMaxPool2D, relay.OpMaxPool2D, ethosu.PoolingMax)
}

func avgPoolingRewriter() pattern.Rewriter {
	return poolingRewriter(CompositeAvgPool2D, relay.OpAvgPool2D, ethosu.PoolingAvg)
}
