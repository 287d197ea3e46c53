// op.go - Konstruktoren der NPU-Operatoren
// Jeder Konstruktor liefert einen voll typisierten relay.Call; die
// Attribut-Structs bestimmen die Ausfuehrung vollstaendig.
package ethosu

import (
	"github.com/redbopo/tvm/relay"
)

// Names of the hardware operators emitted by legalization.
const (
	OpConv2D            = "contrib.ethosu.conv2d"
	OpDepthwiseConv2D   = "contrib.ethosu.depthwise_conv2d"
	OpPooling           = "contrib.ethosu.pooling"
	OpBinaryElementwise = "contrib.ethosu.binary_elementwise"
	OpUnaryElementwise  = "contrib.ethosu.unary_elementwise"
	OpIdentity          = "contrib.ethosu.identity"
)

// Conv2DAttrs parameterizes a hardware 2D convolution. The weight
// argument is laid out OHWI; ScaleBias is the packed per-channel
// bias+rescale blob produced by the vela packing service.
type Conv2DAttrs struct {
	IfmScale        float32
	IfmZeroPoint    int
	WeightZeroPoint int
	OfmScale        float32
	OfmZeroPoint    int
	KernelShape     [2]int
	OfmChannels     int
	Strides         [2]int
	Padding         [4]int
	Dilation        [2]int
	Activation      Activation
	ClipMin         int
	ClipMax         int
	RoundingMode    RoundingMode
	Upscale         Upscale
	IfmLayout       string
	OfmLayout       string
	OfmDType        relay.DType
}

// DepthwiseConv2DAttrs parameterizes a hardware depthwise convolution.
type DepthwiseConv2DAttrs struct {
	IfmScale        float32
	IfmZeroPoint    int
	WeightZeroPoint int
	OfmScale        float32
	OfmZeroPoint    int
	KernelShape     [2]int
	OfmChannels     int
	Strides         [2]int
	Padding         [4]int
	Dilation        [2]int
	Activation      Activation
	ClipMin         int
	ClipMax         int
	RoundingMode    RoundingMode
	Upscale         Upscale
	IfmLayout       string
	OfmLayout       string
	OfmDType        relay.DType
}

// PoolingAttrs parameterizes a hardware pooling operator. Pooling never
// uses a LUT; the lut argument is fixed to the empty table.
type PoolingAttrs struct {
	PoolingType  PoolingType
	IfmScale     float32
	IfmZeroPoint int
	OfmScale     float32
	OfmZeroPoint int
	PoolShape    [2]int
	OfmChannels  int
	Strides      [2]int
	Padding      [4]int
	Activation   Activation
	ClipMin      int
	ClipMax      int
	RoundingMode RoundingMode
	Upscale      Upscale
	IfmLayout    string
	OfmLayout    string
}

// BinaryElementwiseAttrs parameterizes a hardware binary elementwise
// operator. The broadcastable operand must be the second argument;
// ReversedOperands records that the original graph had them swapped.
type BinaryElementwiseAttrs struct {
	OperatorType     string
	IfmScale         float32
	IfmZeroPoint     int
	Ifm2Scale        float32
	Ifm2ZeroPoint    int
	OfmScale         float32
	OfmZeroPoint     int
	IfmChannels      int
	Ifm2Channels     int
	ReversedOperands bool
	Activation       Activation
	ClipMin          int
	ClipMax          int
	RoundingMode     RoundingMode
	IfmLayout        string
	Ifm2Layout       string
	OfmLayout        string
	OfmDType         relay.DType
}

// UnaryElementwiseAttrs parameterizes a hardware unary elementwise
// operator.
type UnaryElementwiseAttrs struct {
	OperatorType string
	IfmScale     float32
	IfmZeroPoint int
	OfmScale     float32
	OfmZeroPoint int
	OfmChannels  int
	Activation   Activation
	ClipMin      int
	ClipMax      int
	IfmLayout    string
	OfmLayout    string
}

// IdentityAttrs parameterizes a requantizing identity operator. With a
// LUT attached it implements an arbitrary pointwise function.
type IdentityAttrs struct {
	IfmScale     float32
	IfmZeroPoint int
	OfmScale     float32
	OfmZeroPoint int
	Activation   Activation
}

// Binary elementwise operator kinds.
const (
	BinaryAdd = "ADD"
	BinarySub = "SUB"
	BinaryMul = "MUL"
	BinaryMin = "MIN"
	BinaryMax = "MAX"
	BinaryShl = "SHL"
)

// Unary elementwise operator kinds.
const (
	UnaryAbs = "ABS"
	UnaryCLZ = "CLZ"
)

// EmptyLUT returns the empty lookup table constant used by operators
// that do not fold a pointwise function.
func EmptyLUT() *relay.Constant {
	return relay.Const([]int8{}, relay.Tensor([]int{0}, relay.DTypeInt8))
}

// LUTConst wraps a 256-entry table into a uint8 constant. The entries
// are signed codes stored as their two's-complement bit patterns.
func LUTConst(values [256]int8) *relay.Constant {
	data := make([]uint8, len(values))
	for i, v := range values {
		data[i] = uint8(v)
	}
	return relay.Const(data, relay.Tensor([]int{256}, relay.DTypeUint8))
}

func convOutDim(in, kernel, dilation, stride, padBefore, padAfter int) int {
	dilated := (kernel-1)*dilation + 1
	return (in+padBefore+padAfter-dilated)/stride + 1
}

// Conv2D builds a hardware convolution call. The IFM is NHWC, the
// weight constant OHWI.
func Conv2D(ifm relay.Expr, weight, scaleBias, lut *relay.Constant, attrs *Conv2DAttrs) *relay.Call {
	in := ifm.Checked().(*relay.TensorType)
	shape := []int{
		in.Shape[0],
		convOutDim(in.Shape[1], attrs.KernelShape[0], attrs.Dilation[0], attrs.Strides[0], attrs.Padding[0], attrs.Padding[2]),
		convOutDim(in.Shape[2], attrs.KernelShape[1], attrs.Dilation[1], attrs.Strides[1], attrs.Padding[1], attrs.Padding[3]),
		attrs.OfmChannels,
	}
	dtype := attrs.OfmDType
	if dtype == relay.DTypeOther {
		dtype = in.DType
	}
	args := []relay.Expr{ifm, weight, scaleBias, lut}
	return relay.CallOp(OpConv2D, args, attrs, relay.Tensor(shape, dtype))
}

// DepthwiseConv2D builds a hardware depthwise convolution call.
func DepthwiseConv2D(ifm relay.Expr, weight, scaleBias, lut *relay.Constant, attrs *DepthwiseConv2DAttrs) *relay.Call {
	in := ifm.Checked().(*relay.TensorType)
	shape := []int{
		in.Shape[0],
		convOutDim(in.Shape[1], attrs.KernelShape[0], attrs.Dilation[0], attrs.Strides[0], attrs.Padding[0], attrs.Padding[2]),
		convOutDim(in.Shape[2], attrs.KernelShape[1], attrs.Dilation[1], attrs.Strides[1], attrs.Padding[1], attrs.Padding[3]),
		attrs.OfmChannels,
	}
	dtype := attrs.OfmDType
	if dtype == relay.DTypeOther {
		dtype = in.DType
	}
	args := []relay.Expr{ifm, weight, scaleBias, lut}
	return relay.CallOp(OpDepthwiseConv2D, args, attrs, relay.Tensor(shape, dtype))
}

// Pooling builds a hardware pooling call.
func Pooling(ifm relay.Expr, lut *relay.Constant, attrs *PoolingAttrs) *relay.Call {
	in := ifm.Checked().(*relay.TensorType)
	shape := []int{
		in.Shape[0],
		convOutDim(in.Shape[1], attrs.PoolShape[0], 1, attrs.Strides[0], attrs.Padding[0], attrs.Padding[2]),
		convOutDim(in.Shape[2], attrs.PoolShape[1], 1, attrs.Strides[1], attrs.Padding[1], attrs.Padding[3]),
		attrs.OfmChannels,
	}
	args := []relay.Expr{ifm, lut}
	return relay.CallOp(OpPooling, args, attrs, relay.Tensor(shape, in.DType))
}

// BinaryElementwise builds a hardware binary elementwise call. The
// output shape is the first operand's shape; the second operand must be
// broadcastable to it.
func BinaryElementwise(ifm, ifm2 relay.Expr, lut *relay.Constant, attrs *BinaryElementwiseAttrs) *relay.Call {
	in := ifm.Checked().(*relay.TensorType)
	dtype := attrs.OfmDType
	if dtype == relay.DTypeOther {
		dtype = in.DType
	}
	args := []relay.Expr{ifm, ifm2, lut}
	return relay.CallOp(OpBinaryElementwise, args, attrs, relay.Tensor(in.Shape, dtype))
}

// UnaryElementwise builds a hardware unary elementwise call.
func UnaryElementwise(ifm relay.Expr, lut *relay.Constant, attrs *UnaryElementwiseAttrs) *relay.Call {
	in := ifm.Checked().(*relay.TensorType)
	args := []relay.Expr{ifm, lut}
	return relay.CallOp(OpUnaryElementwise, args, attrs, relay.Tensor(in.Shape, in.DType))
}

// Identity builds a requantizing identity call.
func Identity(ifm relay.Expr, lut *relay.Constant, attrs *IdentityAttrs) *relay.Call {
	in := ifm.Checked().(*relay.TensorType)
	args := []relay.Expr{ifm, lut}
	return relay.CallOp(OpIdentity, args, attrs, relay.Tensor(in.Shape, in.DType))
}
