// helpers_test.go - Baukasten fuer partitionierte Composite-Subgraphen
package legalize

import (
	"strings"

	"github.com/redbopo/tvm/relay"
)

func int8Var(name string, shape ...int) *relay.Var {
	return relay.NewVar(name, relay.Tensor(shape, relay.DTypeInt8))
}

func moduleOf(body relay.Expr, params ...*relay.Var) *relay.Module {
	mod := relay.NewModule()
	mod.Add("main", &relay.Function{Params: params, Body: body})
	return mod
}

func mainBody(mod *relay.Module) relay.Expr {
	fn, _ := mod.Get("main")
	return fn.Body
}

// opNames returns all call operator names in post-order; composite
// calls report their composite tag.
func opNames(e relay.Expr) []string {
	var names []string
	var walk func(relay.Expr)
	walk = func(e relay.Expr) {
		switch n := e.(type) {
		case *relay.Call:
			for _, a := range n.Args {
				walk(a)
			}
			if name := n.OpName(); name != "" {
				names = append(names, name)
			} else {
				names = append(names, n.CompositeName())
			}
		case *relay.Tuple:
			for _, f := range n.Fields {
				walk(f)
			}
		}
	}
	walk(e)
	return names
}

// hardwareOps filters opNames down to NPU operators.
func hardwareOps(e relay.Expr) []string {
	var ops []string
	for _, name := range opNames(e) {
		if strings.HasPrefix(name, "contrib.ethosu.") {
			ops = append(ops, strings.TrimPrefix(name, "contrib.ethosu."))
		}
	}
	return ops
}

func findCall(e relay.Expr, opName string) *relay.Call {
	var found *relay.Call
	var walk func(relay.Expr)
	walk = func(e relay.Expr) {
		switch n := e.(type) {
		case *relay.Call:
			for _, a := range n.Args {
				walk(a)
			}
			if n.OpName() == opName {
				found = n
			}
		case *relay.Tuple:
			for _, f := range n.Fields {
				walk(f)
			}
		}
	}
	walk(e)
	return found
}

func ascendingInt8(n int) []int8 {
	out := make([]int8, n)
	for i := range out {
		out[i] = int8(i % 125)
	}
	return out
}

type convOpts struct {
	composite    string
	convOp       string
	ifmShape     []int
	weightShape  []int
	weightLayout string
	dataLayout   string
	clip         *relay.ClipAttrs
	ifmQ         QuantParams
	ofmQ         QuantParams
	outChannels  int
}

// buildConvComposite assembles the partitioner's conv body
// clip?(requantize(bias_add(qnn_conv(p, w), b))) and calls it on x.
func buildConvComposite(x relay.Expr, o convOpts) *relay.Call {
	p := relay.NewVar("p", x.Checked().(*relay.TensorType))

	weights := relay.Const(ascendingInt8(numElements(o.weightShape)), relay.Tensor(o.weightShape, relay.DTypeInt8))
	biases := relay.Const(make([]int32, o.outChannels), relay.Tensor([]int{o.outChannels}, relay.DTypeInt32))

	ifmShape := o.ifmShape
	kh, kw := kernelHW(o.weightShape, o.weightLayout)
	outShape := []int{ifmShape[0], ifmShape[1] - kh + 1, ifmShape[2] - kw + 1, o.outChannels}

	conv := relay.CallOp(o.convOp, []relay.Expr{p, weights}, &relay.QnnConv2DAttrs{
		IfmScale:     o.ifmQ.Scale,
		IfmZeroPoint: o.ifmQ.ZeroPoint,
		WeightScales: []float32{0.25},
		Strides:      [2]int{1, 1},
		Dilation:     [2]int{1, 1},
		DataLayout:   o.dataLayout,
		KernelLayout: o.weightLayout,
	}, relay.Tensor(outShape, relay.DTypeInt32))

	biasAdd := relay.CallOp(relay.OpBiasAdd, []relay.Expr{conv, biases}, nil, conv.T)
	body := relay.Expr(relay.CallOp(relay.OpQnnRequantize, []relay.Expr{biasAdd}, &relay.RequantizeAttrs{
		OutScale:     o.ofmQ.Scale,
		OutZeroPoint: o.ofmQ.ZeroPoint,
	}, relay.Tensor(outShape, relay.DTypeInt8)))
	if o.clip != nil {
		body = relay.CallOp(relay.OpClip, []relay.Expr{body}, o.clip, body.Checked())
	}
	return relay.CallFunc(relay.Composite(o.composite, []*relay.Var{p}, body), x)
}

func kernelHW(weightShape []int, layout string) (int, int) {
	switch layout {
	case "HWIO", "HWOI":
		return weightShape[0], weightShape[1]
	case "OHWI":
		return weightShape[1], weightShape[2]
	}
	return 1, 1
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// buildMeanComposite assembles requantize(mean(p)) and calls it on x.
func buildMeanComposite(x relay.Expr, axis []int, keepDims bool, ifmQ, ofmQ QuantParams) *relay.Call {
	t := x.Checked().(*relay.TensorType)
	p := relay.NewVar("p", t)

	outShape := meanOutShape(t.Shape, axis, keepDims)
	mean := relay.CallOp(relay.OpMean, []relay.Expr{p}, &relay.MeanAttrs{Axis: axis, KeepDims: keepDims},
		relay.Tensor(outShape, relay.DTypeInt32))
	requant := relay.CallOp(relay.OpQnnRequantize, []relay.Expr{mean}, &relay.RequantizeAttrs{
		InScale:      ifmQ.Scale,
		InZeroPoint:  ifmQ.ZeroPoint,
		OutScale:     ofmQ.Scale,
		OutZeroPoint: ofmQ.ZeroPoint,
	}, relay.Tensor(outShape, relay.DTypeInt8))
	return relay.CallFunc(relay.Composite(CompositeMean, []*relay.Var{p}, requant), x)
}

func meanOutShape(in, axis []int, keepDims bool) []int {
	reduced := make(map[int]bool, len(axis))
	for _, a := range axis {
		reduced[a] = true
	}
	var out []int
	for i, d := range in {
		switch {
		case !reduced[i]:
			out = append(out, d)
		case keepDims:
			out = append(out, 1)
		}
	}
	return out
}

// buildBinaryComposite assembles clip?(binop(p0, p1)) and calls it on
// lhs, rhs.
func buildBinaryComposite(lhs, rhs relay.Expr, composite, binOp string, attrs *relay.QnnBinaryAttrs, clip *relay.ClipAttrs) *relay.Call {
	p0 := relay.NewVar("p0", lhs.Checked().(*relay.TensorType))
	p1 := relay.NewVar("p1", rhs.Checked().(*relay.TensorType))

	first := relay.Expr(p0)
	if attrs.ReversedOperands {
		first = p1
	}
	body := relay.Expr(relay.CallOp(binOp, []relay.Expr{p0, p1}, attrs, first.Checked()))
	if clip != nil {
		body = relay.CallOp(relay.OpClip, []relay.Expr{body}, clip, body.Checked())
	}
	return relay.CallFunc(relay.Composite(composite, []*relay.Var{p0, p1}, body), lhs, rhs)
}

// buildLUTComposite assembles quantize(act(dequantize(p))) and calls it
// on x.
func buildLUTComposite(x relay.Expr, composite, actOp string, inQ, outQ QuantParams) *relay.Call {
	t := x.Checked().(*relay.TensorType)
	p := relay.NewVar("p", t)

	realT := relay.Tensor(t.Shape, relay.DTypeFloat32)
	dequant := relay.CallOp(relay.OpQnnDequantize, []relay.Expr{p},
		&relay.DequantizeAttrs{Scale: inQ.Scale, ZeroPoint: inQ.ZeroPoint}, realT)
	act := relay.CallOp(actOp, []relay.Expr{dequant}, nil, realT)
	quant := relay.CallOp(relay.OpQnnQuantize, []relay.Expr{act},
		&relay.QuantizeAttrs{Scale: outQ.Scale, ZeroPoint: outQ.ZeroPoint}, relay.Tensor(t.Shape, relay.DTypeInt8))
	return relay.CallFunc(relay.Composite(composite, []*relay.Var{p}, quant), x)
}

// buildPoolComposite assembles clip?(pool(p)) and calls it on x.
func buildPoolComposite(x relay.Expr, composite, poolOp string, attrs *relay.PoolAttrs, clip *relay.ClipAttrs) *relay.Call {
	t := x.Checked().(*relay.TensorType)
	p := relay.NewVar("p", t)

	outShape := []int{
		t.Shape[0],
		(t.Shape[1]-attrs.PoolSize[0])/attrs.Strides[0] + 1,
		(t.Shape[2]-attrs.PoolSize[1])/attrs.Strides[1] + 1,
		t.Shape[3],
	}
	body := relay.Expr(relay.CallOp(poolOp, []relay.Expr{p}, attrs, relay.Tensor(outShape, t.DType)))
	if clip != nil {
		body = relay.CallOp(relay.OpClip, []relay.Expr{body}, clip, body.Checked())
	}
	return relay.CallFunc(relay.Composite(composite, []*relay.Var{p}, body), x)
}

// buildUnaryComposite assembles op(p) and calls it on x.
func buildUnaryComposite(x relay.Expr, composite, unaryOp string, attrs *relay.QnnUnaryAttrs) *relay.Call {
	t := x.Checked().(*relay.TensorType)
	p := relay.NewVar("p", t)
	body := relay.CallOp(unaryOp, []relay.Expr{p}, attrs, t)
	return relay.CallFunc(relay.Composite(composite, []*relay.Var{p}, body), x)
}

// buildReshapeComposite assembles the pass-through reshape wrapper.
func buildReshapeComposite(x relay.Expr, newShape []int) *relay.Call {
	t := x.Checked().(*relay.TensorType)
	p := relay.NewVar("p", t)
	body := relay.Reshape(p, newShape)
	return relay.CallFunc(relay.Composite(CompositeReshape, []*relay.Var{p}, body), x)
}

// buildConcatComposite assembles requantize(concatenate(tuple)) over
// the call-valued inputs; constant inputs become extra function params
// outside the tuple, the way converter patterns append quantization
// scalars.
func buildConcatComposite(axis int, inputs ...relay.Expr) *relay.Call {
	params := make([]*relay.Var, len(inputs))
	var fields []relay.Expr
	for i, in := range inputs {
		params[i] = relay.NewVar("p", in.Checked().(*relay.TensorType))
		if _, ok := in.(*relay.Call); ok {
			fields = append(fields, params[i])
		}
	}
	concat := relay.Concatenate(fields, axis)
	requant := relay.CallOp(relay.OpQnnRequantize, []relay.Expr{concat}, &relay.RequantizeAttrs{
		OutScale: 0.5, OutZeroPoint: 0,
	}, concat.T)
	return relay.CallFunc(relay.Composite(CompositeConcat, params, requant), inputs...)
}
