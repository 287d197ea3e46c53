// depthwise.go - Legalisierung der quantisierten Depthwise-Faltung
// Akzeptiert nur HWOI-Gewichte; Kanal- und Multiplikator-Achse sind
// gegenueber der Standardfaltung vertauscht.
package legalize

import (
	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/ethosu/vela"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

var (
	depthwiseKernelAxes = map[string][2]int{
		"HWOI": {0, 1},
	}
	depthwiseWeightToOHWI = map[string][]int{
		"HWOI": {2, 0, 1, 3},
	}
)

func legalizeDepthwiseConv2D(post *relay.Call) (relay.Expr, error) {
	p, err := parseConvParams(post, relay.OpQnnDepthwiseConv2D)
	if err != nil {
		return nil, err
	}
	chAxis, ok := channelsAxis[p.ofm.Layout]
	if !ok {
		return nil, &ethosu.UnsupportedLayoutError{Layout: p.ofm.Layout}
	}
	kernelAxes, ok := depthwiseKernelAxes[p.weightLayout]
	if !ok {
		return nil, &ethosu.UnsupportedLayoutError{Layout: p.weightLayout}
	}
	kernelShape := [2]int{p.weights.T.Shape[kernelAxes[0]], p.weights.T.Shape[kernelAxes[1]]}

	weights, err := transposeWeights(p.weights, depthwiseWeightToOHWI[p.weightLayout])
	if err != nil {
		return nil, err
	}
	activation, clipMin, clipMax := clipActivation(p.activation)

	biases, err := biasValues(p.biases)
	if err != nil {
		return nil, err
	}
	scaleBias, err := vela.Pack(biases, p.ifm.Q.Scale, p.ifm.DType, p.weightScales, p.ofm.Q.Scale,
		activation == ethosu.ActivationTanh || activation == ethosu.ActivationSigmoid)
	if err != nil {
		return nil, err
	}

	return ethosu.DepthwiseConv2D(
		post.Args[0],
		weights,
		relay.Const(scaleBias, relay.Tensor([]int{len(scaleBias)}, relay.DTypeUint8)),
		ethosu.EmptyLUT(),
		&ethosu.DepthwiseConv2DAttrs{
			IfmScale:        p.ifm.Q.Scale,
			IfmZeroPoint:    p.ifm.Q.ZeroPoint,
			WeightZeroPoint: p.weightZP,
			OfmScale:        p.ofm.Q.Scale,
			OfmZeroPoint:    p.ofm.Q.ZeroPoint,
			KernelShape:     kernelShape,
			OfmChannels:     p.ofm.Shape[chAxis],
			Strides:         p.strides,
			Padding:         p.padding,
			Dilation:        p.dilation,
			Activation:      activation,
			ClipMin:         clipMin,
			ClipMax:         clipMax,
			Upscale:         ethosu.UpscaleNone,
			RoundingMode:    ethosu.RoundingTFL,
			IfmLayout:       p.ifm.Layout,
			OfmLayout:       p.ofm.Layout,
			OfmDType:        p.ofm.DType,
		},
	), nil
}

func depthwiseConv2DRewriter() pattern.Rewriter {
	return pattern.Rewriter{
		Pattern:  pattern.CallOf(pattern.HasComposite(CompositeDepthwiseConv2D), pattern.Wildcard()),
		Callback: legalizeDepthwiseConv2D,
	}
}
