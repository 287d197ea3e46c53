// op.go - Generisches Operator-Vokabular des Eingangsgraphen
// Enthaelt: Attribut-Structs und Konstruktoren fuer reshape, strided_slice,
// concatenate, split, clip, mean und die qnn-Operatoren.
package relay

// Names of the generic operators the partitioner emits. The legalizers
// replace most of these with hardware operators; reshape and
// strided_slice survive as plain data-movement ops.
const (
	OpSplit        = "split"
	OpReshape      = "reshape"
	OpStridedSlice = "strided_slice"
	OpConcatenate  = "concatenate"
	OpClip         = "clip"
	OpMean         = "mean"
	OpAbs          = "abs"
	OpCLZ          = "clz"
	OpTanh         = "tanh"
	OpSigmoid      = "sigmoid"

	OpQnnConv2D          = "qnn.conv2d"
	OpQnnDepthwiseConv2D = "qnn.depthwise_conv2d"
	OpQnnRequantize      = "qnn.requantize"
	OpQnnQuantize        = "qnn.quantize"
	OpQnnDequantize      = "qnn.dequantize"
	OpQnnAdd             = "qnn.add"
	OpQnnSubtract        = "qnn.subtract"
	OpQnnMul             = "qnn.mul"
	OpMinimum            = "minimum"
	OpMaximum            = "maximum"
	OpLeftShift          = "left_shift"
	OpMaxPool2D          = "nn.max_pool2d"
	OpAvgPool2D          = "nn.avg_pool2d"
	OpBiasAdd            = "nn.bias_add"
)

// SplitAttrs describes a split along one axis. Exactly one of Indices
// (explicit ascending cut coordinates) or Sections (equal section
// count) is set; Sections == 0 selects the Indices form.
type SplitAttrs struct {
	Axis     int
	Indices  []int
	Sections int
}

// ReshapeAttrs carries the target shape of a reshape.
type ReshapeAttrs struct {
	NewShape []int
}

// StridedSliceAttrs carries the begin/end coordinates of a slice.
// Strides of nil means all-ones.
type StridedSliceAttrs struct {
	Begin   []int
	End     []int
	Strides []int
}

// ConcatAttrs carries the concatenation axis.
type ConcatAttrs struct {
	Axis int
}

// ClipAttrs carries the clamp bounds of a clip activation.
type ClipAttrs struct {
	Min int
	Max int
}

// MeanAttrs describes a mean reduction.
type MeanAttrs struct {
	Axis     []int
	KeepDims bool
}

// QnnConv2DAttrs is the partitioner's annotation on a quantized
// convolution: input and weight quantization plus kernel geometry.
// WeightScales is per-output-channel, or a single broadcast entry.
type QnnConv2DAttrs struct {
	IfmScale        float32
	IfmZeroPoint    int
	WeightScales    []float32
	WeightZeroPoint int
	Strides         [2]int
	Padding         [4]int
	Dilation        [2]int
	DataLayout      string
	KernelLayout    string
}

// RequantizeAttrs rescales from one quantization to another. Conv
// composites only consume the output pair; the mean composite reads
// both sides.
type RequantizeAttrs struct {
	InScale      float32
	InZeroPoint  int
	OutScale     float32
	OutZeroPoint int
}

// QuantizeAttrs quantizes real values into integer codes.
type QuantizeAttrs struct {
	Scale     float32
	ZeroPoint int
}

// DequantizeAttrs recovers real values from integer codes.
type DequantizeAttrs struct {
	Scale     float32
	ZeroPoint int
}

// QnnBinaryAttrs is the partitioner's annotation on a quantized binary
// elementwise operator. ReversedOperands marks patterns whose converter
// swapped the operand order.
type QnnBinaryAttrs struct {
	IfmScale         float32
	IfmZeroPoint     int
	Ifm2Scale        float32
	Ifm2ZeroPoint    int
	OfmScale         float32
	OfmZeroPoint     int
	ReversedOperands bool
	Layout           string
}

// QnnUnaryAttrs is the partitioner's annotation on a quantized unary
// elementwise operator.
type QnnUnaryAttrs struct {
	IfmScale     float32
	IfmZeroPoint int
	OfmScale     float32
	OfmZeroPoint int
	Layout       string
}

// PoolAttrs describes a quantized pooling window. Pooling does not
// rescale, so a single scale/zero-point pair covers both sides.
type PoolAttrs struct {
	PoolSize     [2]int
	Strides      [2]int
	Padding      [4]int
	Layout       string
	IfmScale     float32
	IfmZeroPoint int
}

// Reshape builds a reshape call. The caller guarantees the element
// count is preserved.
func Reshape(x Expr, newShape []int) *Call {
	t := x.Checked().(*TensorType)
	return CallOp(OpReshape, []Expr{x}, &ReshapeAttrs{NewShape: newShape}, Tensor(newShape, t.DType))
}

// StridedSlice builds a unit-stride slice call from begin/end
// coordinates.
func StridedSlice(x Expr, begin, end []int) *Call {
	t := x.Checked().(*TensorType)
	shape := make([]int, len(begin))
	for i := range begin {
		shape[i] = end[i] - begin[i]
	}
	b := make([]int, len(begin))
	copy(b, begin)
	e := make([]int, len(end))
	copy(e, end)
	return CallOp(OpStridedSlice, []Expr{x}, &StridedSliceAttrs{Begin: b, End: e}, Tensor(shape, t.DType))
}

// Concatenate builds a concatenate call over the tuple fields along the
// given axis.
func Concatenate(fields []Expr, axis int) *Call {
	first := fields[0].Checked().(*TensorType)
	shape := make([]int, len(first.Shape))
	copy(shape, first.Shape)
	shape[axis] = 0
	for _, f := range fields {
		shape[axis] += f.Checked().(*TensorType).Shape[axis]
	}
	return CallOp(OpConcatenate, []Expr{TupleOf(fields...)}, &ConcatAttrs{Axis: axis}, Tensor(shape, first.DType))
}
