// params.go - Extraktion der Composite-Parameter aus Partitionierer-Subgraphen
// Liest die vom Partitionierer markierten Funktionskoerper und liefert
// read-only Tensor-Deskriptoren fuer die Legalisierer.
package legalize

import (
	"fmt"

	"github.com/redbopo/tvm/relay"
)

// QuantParams is the affine quantization of one tensor:
// real = scale * (code - zeroPoint). Scale is always positive and the
// zero point lies within the dtype's representable range; both are
// guaranteed by the upstream type checker.
type QuantParams struct {
	Scale     float32
	ZeroPoint int
}

// TensorParams is a derived, read-only view over one tensor-valued
// expression: its shape, element type, layout tag and quantization.
type TensorParams struct {
	Tensor relay.Expr
	Shape  []int
	DType  relay.DType
	Layout string
	Q      QuantParams
}

func tensorParams(e relay.Expr, layout string, q QuantParams) TensorParams {
	t := e.Checked().(*relay.TensorType)
	return TensorParams{Tensor: e, Shape: t.Shape, DType: t.DType, Layout: layout, Q: q}
}

// compositeBody returns the body of the composite function a call
// targets.
func compositeBody(call *relay.Call) (relay.Expr, error) {
	fn, ok := call.Op.(*relay.Function)
	if !ok {
		return nil, fmt.Errorf("legalize: call is not a composite function call")
	}
	return fn.Body, nil
}

// stripClip peels an optional trailing clip activation off a composite
// body, returning the inner expression and the clip bounds if present.
func stripClip(body relay.Expr) (relay.Expr, *relay.ClipAttrs) {
	if call, ok := body.(*relay.Call); ok && call.OpName() == relay.OpClip {
		return call.Args[0], call.Attrs.(*relay.ClipAttrs)
	}
	return body, nil
}

func expectOp(e relay.Expr, name string) (*relay.Call, error) {
	call, ok := e.(*relay.Call)
	if !ok || call.OpName() != name {
		return nil, fmt.Errorf("legalize: composite body is missing a %s operator", name)
	}
	return call, nil
}

// convParams are the parameters of a quantized (depthwise) convolution
// composite: clip?(requantize(bias_add(qnn_conv(ifm, weights), biases))).
type convParams struct {
	ifm          TensorParams
	ofm          TensorParams
	weights      *relay.Constant
	weightScales []float32
	weightZP     int
	weightLayout string
	biases       *relay.Constant
	strides      [2]int
	padding      [4]int
	dilation     [2]int
	activation   *relay.ClipAttrs
}

func parseConvParams(call *relay.Call, convOp string) (*convParams, error) {
	body, err := compositeBody(call)
	if err != nil {
		return nil, err
	}
	inner, clip := stripClip(body)
	requant, err := expectOp(inner, relay.OpQnnRequantize)
	if err != nil {
		return nil, err
	}
	rq := requant.Attrs.(*relay.RequantizeAttrs)
	biasAdd, err := expectOp(requant.Args[0], relay.OpBiasAdd)
	if err != nil {
		return nil, err
	}
	conv, err := expectOp(biasAdd.Args[0], convOp)
	if err != nil {
		return nil, err
	}
	ca := conv.Attrs.(*relay.QnnConv2DAttrs)

	p := &convParams{
		ifm: tensorParams(call.Args[0], ca.DataLayout, QuantParams{Scale: ca.IfmScale, ZeroPoint: ca.IfmZeroPoint}),
		ofm: tensorParams(body, ca.DataLayout, QuantParams{Scale: rq.OutScale, ZeroPoint: rq.OutZeroPoint}),

		weightScales: ca.WeightScales,
		weightZP:     ca.WeightZeroPoint,
		weightLayout: ca.KernelLayout,
		strides:      ca.Strides,
		padding:      ca.Padding,
		dilation:     ca.Dilation,
		activation:   clip,
	}
	var ok bool
	if p.weights, ok = conv.Args[1].(*relay.Constant); !ok {
		return nil, fmt.Errorf("legalize: %s weights must be constant", convOp)
	}
	if p.biases, ok = biasAdd.Args[1].(*relay.Constant); !ok {
		return nil, fmt.Errorf("legalize: %s biases must be constant", convOp)
	}
	return p, nil
}

// poolParams are the parameters of a quantized pooling composite:
// clip?(pool(ifm)). Pooling does not rescale, so both sides share one
// quantization pair.
type poolParams struct {
	ifm        TensorParams
	ofm        TensorParams
	poolShape  [2]int
	strides    [2]int
	padding    [4]int
	activation *relay.ClipAttrs
}

func parsePoolParams(call *relay.Call, poolOp string) (*poolParams, error) {
	body, err := compositeBody(call)
	if err != nil {
		return nil, err
	}
	inner, clip := stripClip(body)
	pool, err := expectOp(inner, poolOp)
	if err != nil {
		return nil, err
	}
	pa := pool.Attrs.(*relay.PoolAttrs)
	q := QuantParams{Scale: pa.IfmScale, ZeroPoint: pa.IfmZeroPoint}
	return &poolParams{
		ifm:        tensorParams(call.Args[0], pa.Layout, q),
		ofm:        tensorParams(body, pa.Layout, q),
		poolShape:  pa.PoolSize,
		strides:    pa.Strides,
		padding:    pa.Padding,
		activation: clip,
	}, nil
}

// binaryParams are the parameters of a quantized binary elementwise
// composite: clip?(binop(lhs, rhs)). The reversed-operands flag
// restores the true IFM order for converter patterns that swapped it.
type binaryParams struct {
	ifm        TensorParams
	ifm2       TensorParams
	ofm        TensorParams
	reversed   bool
	activation *relay.ClipAttrs
}

func parseBinaryParams(call *relay.Call, binOp string) (*binaryParams, error) {
	body, err := compositeBody(call)
	if err != nil {
		return nil, err
	}
	inner, clip := stripClip(body)
	bin, err := expectOp(inner, binOp)
	if err != nil {
		return nil, err
	}
	ba := bin.Attrs.(*relay.QnnBinaryAttrs)
	lhs, rhs := call.Args[0], call.Args[1]
	if ba.ReversedOperands {
		lhs, rhs = rhs, lhs
	}
	return &binaryParams{
		ifm:        tensorParams(lhs, ba.Layout, QuantParams{Scale: ba.IfmScale, ZeroPoint: ba.IfmZeroPoint}),
		ifm2:       tensorParams(rhs, ba.Layout, QuantParams{Scale: ba.Ifm2Scale, ZeroPoint: ba.Ifm2ZeroPoint}),
		ofm:        tensorParams(body, ba.Layout, QuantParams{Scale: ba.OfmScale, ZeroPoint: ba.OfmZeroPoint}),
		reversed:   ba.ReversedOperands,
		activation: clip,
	}, nil
}

// unaryParams are the parameters of a quantized unary elementwise
// composite: clip?(op(ifm)).
type unaryParams struct {
	ifm        TensorParams
	ofm        TensorParams
	activation *relay.ClipAttrs
}

func parseUnaryParams(call *relay.Call, unaryOp string) (*unaryParams, error) {
	body, err := compositeBody(call)
	if err != nil {
		return nil, err
	}
	inner, clip := stripClip(body)
	op, err := expectOp(inner, unaryOp)
	if err != nil {
		return nil, err
	}
	ua := op.Attrs.(*relay.QnnUnaryAttrs)
	return &unaryParams{
		ifm:        tensorParams(call.Args[0], ua.Layout, QuantParams{Scale: ua.IfmScale, ZeroPoint: ua.IfmZeroPoint}),
		ofm:        tensorParams(body, ua.Layout, QuantParams{Scale: ua.OfmScale, ZeroPoint: ua.OfmZeroPoint}),
		activation: clip,
	}, nil
}

// meanParams are the parameters of a mean composite:
// requantize(mean(ifm)). The partitioner always emits the requantize;
// equal input/output pairs mean the reduction is quantization-neutral.
type meanParams struct {
	ifm      TensorParams
	ofm      TensorParams
	axis     []int
	keepDims bool
}

func parseMeanParams(call *relay.Call) (*meanParams, error) {
	body, err := compositeBody(call)
	if err != nil {
		return nil, err
	}
	requant, err := expectOp(body, relay.OpQnnRequantize)
	if err != nil {
		return nil, err
	}
	rq := requant.Attrs.(*relay.RequantizeAttrs)
	mean, err := expectOp(requant.Args[0], relay.OpMean)
	if err != nil {
		return nil, err
	}
	ma := mean.Attrs.(*relay.MeanAttrs)
	return &meanParams{
		ifm:      tensorParams(call.Args[0], "", QuantParams{Scale: rq.InScale, ZeroPoint: rq.InZeroPoint}),
		ofm:      tensorParams(body, "", QuantParams{Scale: rq.OutScale, ZeroPoint: rq.OutZeroPoint}),
		axis:     ma.Axis,
		keepDims: ma.KeepDims,
	}, nil
}

// lutParams are the quantization pairs of a LUT-legalized activation:
// quantize(act(dequantize(ifm))).
type lutParams struct {
	in  QuantParams
	out QuantParams
}

func parseLUTParams(call *relay.Call, actOp string) (*lutParams, error) {
	body, err := compositeBody(call)
	if err != nil {
		return nil, err
	}
	quant, err := expectOp(body, relay.OpQnnQuantize)
	if err != nil {
		return nil, err
	}
	qa := quant.Attrs.(*relay.QuantizeAttrs)
	act, err := expectOp(quant.Args[0], actOp)
	if err != nil {
		return nil, err
	}
	dequant, err := expectOp(act.Args[0], relay.OpQnnDequantize)
	if err != nil {
		return nil, err
	}
	da := dequant.Attrs.(*relay.DequantizeAttrs)
	return &lutParams{
		in:  QuantParams{Scale: da.Scale, ZeroPoint: da.ZeroPoint},
		out: QuantParams{Scale: qa.Scale, ZeroPoint: qa.ZeroPoint},
	}, nil
}

// concatParams is the surviving axis of a concatenate composite:
// requantize?(concatenate(tuple)).
type concatParams struct {
	axis int
}

func parseConcatParams(call *relay.Call) (*concatParams, error) {
	body, err := compositeBody(call)
	if err != nil {
		return nil, err
	}
	inner := body
	if c, ok := body.(*relay.Call); ok && c.OpName() == relay.OpQnnRequantize {
		inner = c.Args[0]
	}
	concat, err := expectOp(inner, relay.OpConcatenate)
	if err != nil {
		return nil, err
	}
	return &concatParams{axis: concat.Attrs.(*relay.ConcatAttrs).Axis}, nil
}
