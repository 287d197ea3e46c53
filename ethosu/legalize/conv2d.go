// conv2d.go - Legalisierung der quantisierten 2D-Faltung
// Gewichte werden nach OHWI umgeordnet, Bias und Skalen an den
// Packdienst delegiert.
package legalize

import (
	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/ethosu/vela"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

// channelsAxis maps an accepted feature-map layout to its channel axis.
var channelsAxis = map[string]int{
	ethosu.LayoutNHWC: 3,
}

// Kernel height/width positions per accepted conv weight layout, and
// the axis permutation into OHWI where a reorder is needed.
var (
	convKernelAxes = map[string][2]int{
		"HWIO": {0, 1},
		"OHWI": {1, 2},
		"HWOI": {0, 1},
	}
	convWeightToOHWI = map[string][]int{
		"HWIO": {3, 0, 1, 2},
		"OHWI": nil,
		"HWOI": {2, 0, 1, 3},
	}
)

func legalizeConv2D(post *relay.Call) (relay.Expr, error) {
	p, err := parseConvParams(post, relay.OpQnnConv2D)
	if err != nil {
		return nil, err
	}
	chAxis, ok := channelsAxis[p.ofm.Layout]
	if !ok {
		return nil, &ethosu.UnsupportedLayoutError{Layout: p.ofm.Layout}
	}
	kernelAxes, ok := convKernelAxes[p.weightLayout]
	if !ok {
		return nil, &ethosu.UnsupportedLayoutError{Layout: p.weightLayout}
	}
	kernelShape := [2]int{p.weights.T.Shape[kernelAxes[0]], p.weights.T.Shape[kernelAxes[1]]}

	weights, err := transposeWeights(p.weights, convWeightToOHWI[p.weightLayout])
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

	return ethosu.Conv2D(
		post.Args[0],
		weights,
		relay.Const(scaleBias, relay.Tensor([]int{len(scaleBias)}, relay.DTypeUint8)),
		ethosu.EmptyLUT(),
		&ethosu.Conv2DAttrs{
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

func conv2DRewriter() pattern.Rewriter {
	return pattern.Rewriter{
		Pattern:  pattern.CallOf(pattern.HasComposite(CompositeConv2D), pattern.Wildcard()),
		Callback: legalizeConv2D,
	}
}
