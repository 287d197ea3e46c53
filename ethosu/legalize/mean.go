// mean.go - Dreiwege-Zerlegung der Mean-Reduktion
// Fall A: depthwise_conv2d + binary MUL, Fall B: avg pooling,
// Fall C: depthwise_conv2d mit Reziprok-Gewichtsskala.
package legalize

import (
	"slices"

	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/ethosu/quantize"
	"github.com/redbopo/tvm/ethosu/vela"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

func legalizeMean(post *relay.Call) (relay.Expr, error) {
	p, err := parseMeanParams(post)
	if err != nil {
		return nil, err
	}

	ifmShape := p.ifm.Shape
	ofmShape := p.ofm.Shape
	axis := slices.Clone(p.axis)
	reduced := p.ifm.Tensor

	// Normalize to rank 4. A rank-3 input is H,W,C; anything lower is
	// treated as a plain H,W plane. Axis indices shift with the
	// prepended batch axis.
	if len(ifmShape) < 4 {
		axis = quantize.PadAxes(axis, len(ifmShape), len(ifmShape)+1)
		if len(ifmShape) == 3 {
			ifmShape = []int{1, ifmShape[0], ifmShape[1], ifmShape[2]}
		} else {
			ifmShape = []int{1, ifmShape[0], ifmShape[1], 1}
		}
		reduced = relay.Reshape(reduced, ifmShape)
	}

	filterHeight, filterWidth := 1, 1
	if slices.Contains(axis, 1) {
		filterHeight = ifmShape[1]
	}
	if slices.Contains(axis, 2) {
		filterWidth = ifmShape[2]
	}
	channels := ifmShape[3]
	spatialAxes := len(axis) == 2 && slices.Contains(axis, 1) && slices.Contains(axis, 2)

	// Windows taller than the hardware maximum are flattened into a
	// single width dimension. A shape accommodation only; the reduced
	// element set is unchanged.
	if spatialAxes && filterHeight > ethosu.MaxKernelHeight {
		ifmShape = []int{ifmShape[0], 1, filterHeight * filterWidth, channels}
		filterWidth = filterHeight * filterWidth
		filterHeight = 1
		reduced = relay.Reshape(reduced, ifmShape)
	}

	switch {
	case spatialAxes && p.keepDims:
		reduced, err = meanToDepthwiseMul(p, reduced, filterHeight, filterWidth, channels)
	case p.ifm.Q == p.ofm.Q:
		reduced, err = meanToPooling(p, reduced, filterHeight, filterWidth, channels)
	default:
		reduced, err = meanToDepthwise(p, reduced, filterHeight, filterWidth, channels)
	}
	if err != nil {
		return nil, err
	}

	if len(ofmShape) < 4 {
		reduced = relay.Reshape(reduced, ofmShape)
	}
	return reduced, nil
}

// meanToDepthwiseMul sums the window with an all-ones depthwise
// convolution into a wider intermediate, then divides by the element
// count with a MUL against a reciprocal scalar. The epsilon offsets the
// fixed-point rounding bias of even-sized windows.
func meanToDepthwiseMul(p *meanParams, ifm relay.Expr, filterHeight, filterWidth, channels int) (relay.Expr, error) {
	weights := onesWeights([]int{channels, filterHeight, filterWidth, channels})
	scaleBias, err := vela.Pack(make([]int64, channels), p.ifm.Q.Scale, p.ifm.DType, []float32{1}, p.ofm.Q.Scale, false)
	if err != nil {
		return nil, err
	}
	summed := ethosu.DepthwiseConv2D(ifm, weights,
		relay.Const(scaleBias, relay.Tensor([]int{len(scaleBias)}, relay.DTypeUint8)),
		ethosu.EmptyLUT(),
		&ethosu.DepthwiseConv2DAttrs{
			IfmScale:     p.ifm.Q.Scale,
			IfmZeroPoint: p.ifm.Q.ZeroPoint,
			OfmScale:     p.ofm.Q.Scale,
			OfmZeroPoint: p.ofm.Q.ZeroPoint,
			KernelShape:  [2]int{filterHeight, filterWidth},
			OfmChannels:  channels,
			Strides:      [2]int{1, 1},
			Dilation:     [2]int{1, 1},
			Activation:   ethosu.ActivationNone,
			RoundingMode: ethosu.RoundingTFL,
			Upscale:      ethosu.UpscaleNone,
			IfmLayout:    ethosu.LayoutNHWC,
			OfmLayout:    ethosu.LayoutNHWC,
			OfmDType:     relay.DTypeInt16,
		})

	n := filterHeight * filterWidth
	eps := 0.0
	if n%2 == 0 {
		eps = 1.0 / (256.0 * float64(n+1))
	}
	scalar := relay.Const([]int16{1}, relay.Tensor([]int{1, 1, 1, 1}, relay.DTypeInt16))

	return ethosu.BinaryElementwise(summed, scalar, ethosu.EmptyLUT(), &ethosu.BinaryElementwiseAttrs{
		OperatorType:  ethosu.BinaryMul,
		IfmScale:      p.ofm.Q.Scale,
		IfmZeroPoint:  p.ofm.Q.ZeroPoint,
		Ifm2Scale:     float32(1.0 / (float64(n) - eps)),
		Ifm2ZeroPoint: 0,
		OfmScale:      p.ofm.Q.Scale,
		OfmZeroPoint:  p.ofm.Q.ZeroPoint,
		IfmChannels:   channels,
		Ifm2Channels:  channels,
		Activation:    ethosu.ActivationNone,
		RoundingMode:  ethosu.RoundingNatural,
		IfmLayout:     ethosu.LayoutNHWC,
		Ifm2Layout:    ethosu.LayoutNHWC,
		OfmLayout:     ethosu.LayoutNHWC,
		OfmDType:      p.ofm.DType,
	}), nil
}

// meanToPooling lowers a quantization-neutral mean to a single average
// pooling. The common zero-point cancels out of the mean, so both sides
// run with a pseudo zero-point of 0.
func meanToPooling(p *meanParams, ifm relay.Expr, filterHeight, filterWidth, channels int) (relay.Expr, error) {
	return ethosu.Pooling(ifm, ethosu.EmptyLUT(), &ethosu.PoolingAttrs{
		PoolingType:  ethosu.PoolingAvg,
		IfmScale:     p.ifm.Q.Scale,
		IfmZeroPoint: 0,
		OfmScale:     p.ofm.Q.Scale,
		OfmZeroPoint: 0,
		PoolShape:    [2]int{filterHeight, filterWidth},
		OfmChannels:  channels,
		Strides:      [2]int{1, 1},
		Activation:   ethosu.ActivationNone,
		RoundingMode: ethosu.RoundingTruncate,
		Upscale:      ethosu.UpscaleNone,
		IfmLayout:    ethosu.LayoutNHWC,
		OfmLayout:    ethosu.LayoutNHWC,
	}), nil
}

// meanToDepthwise lowers the general case to one depthwise convolution
// whose all-ones weights carry a 1/windowSize scale. The bias cancels
// the input zero-point offset accumulated over the window.
func meanToDepthwise(p *meanParams, ifm relay.Expr, filterHeight, filterWidth, channels int) (relay.Expr, error) {
	windowSize := filterHeight * filterWidth
	weightScale := float32(1.0 / float64(windowSize))
	weights := onesWeights([]int{channels, filterHeight, filterWidth, channels})

	bias := -int64(p.ifm.Q.ZeroPoint) * int64(windowSize)
	biases := make([]int64, channels)
	for i := range biases {
		biases[i] = bias
	}
	scaleBias, err := vela.Pack(biases, p.ifm.Q.Scale, p.ifm.DType, []float32{weightScale}, p.ofm.Q.Scale, false)
	if err != nil {
		return nil, err
	}

	return ethosu.DepthwiseConv2D(ifm, weights,
		relay.Const(scaleBias, relay.Tensor([]int{len(scaleBias)}, relay.DTypeUint8)),
		ethosu.EmptyLUT(),
		&ethosu.DepthwiseConv2DAttrs{
			IfmScale:     p.ifm.Q.Scale,
			IfmZeroPoint: 0,
			OfmScale:     p.ofm.Q.Scale,
			OfmZeroPoint: p.ofm.Q.ZeroPoint,
			KernelShape:  [2]int{filterHeight, filterWidth},
			OfmChannels:  channels,
			Strides:      [2]int{1, 1},
			Dilation:     [2]int{1, 1},
			Activation:   ethosu.ActivationNone,
			RoundingMode: ethosu.RoundingNatural,
			Upscale:      ethosu.UpscaleNone,
			IfmLayout:    ethosu.LayoutNHWC,
			OfmLayout:    ethosu.LayoutNHWC,
			OfmDType:     p.ofm.DType,
		}), nil
}

func meanRewriter() pattern.Rewriter {
	return pattern.Rewriter{
		Pattern:  pattern.CallOf(pattern.HasComposite(CompositeMean), pattern.Wildcard()),
		Callback: legalizeMean,
	}
}
