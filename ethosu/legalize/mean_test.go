// mean_test.go - Tests fuer die Mean-Zerlegung
package legalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

func meanModule(shape, axis []int, keepDims bool, ifmQ, ofmQ QuantParams) *relay.Module {
	x := int8Var("x", shape...)
	return moduleOf(buildMeanComposite(x, axis, keepDims, ifmQ, ofmQ), x)
}

// A spatial mean with kept dimensions becomes a summing depthwise
// convolution into a wider intermediate followed by a reciprocal MUL.
func TestMeanSpatialKeepDims(t *testing.T) {
	mod := meanModule([]int{1, 8, 16, 16}, []int{1, 2}, true,
		QuantParams{Scale: 0.5, ZeroPoint: 4}, QuantParams{Scale: 0.25, ZeroPoint: -2})

	got, err := pattern.RewriteModule(meanRewriter(), mod)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"depthwise_conv2d", "binary_elementwise"}, hardwareOps(mainBody(got))); diff != "" {
		t.Fatalf("hardware ops mismatch (-want +got):\n%s", diff)
	}

	dw := findCall(mainBody(got), ethosu.OpDepthwiseConv2D)
	dwAttrs := dw.Attrs.(*ethosu.DepthwiseConv2DAttrs)
	if dwAttrs.KernelShape != [2]int{8, 16} {
		t.Errorf("kernel shape = %v, want [8 16]", dwAttrs.KernelShape)
	}
	if dwAttrs.OfmDType != relay.DTypeInt16 {
		t.Errorf("sum dtype = %s, want int16", dwAttrs.OfmDType)
	}

	mul := findCall(mainBody(got), ethosu.OpBinaryElementwise)
	mulAttrs := mul.Attrs.(*ethosu.BinaryElementwiseAttrs)
	if mulAttrs.OperatorType != ethosu.BinaryMul {
		t.Errorf("operator = %q, want MUL", mulAttrs.OperatorType)
	}
	if mulAttrs.RoundingMode != ethosu.RoundingNatural {
		t.Errorf("rounding = %s, want NATURAL", mulAttrs.RoundingMode)
	}
	if mulAttrs.Ifm2ZeroPoint != 0 {
		t.Errorf("scalar zero point = %d, want 0", mulAttrs.Ifm2ZeroPoint)
	}

	tt := mainBody(got).(*relay.Call).Checked().(*relay.TensorType)
	if diff := cmp.Diff([]int{1, 1, 1, 16}, tt.Shape); diff != "" {
		t.Errorf("output shape mismatch (-want +got):\n%s", diff)
	}
}

// An odd window needs no rounding-bias epsilon: the reciprocal is exact.
func TestMeanOddWindowReciprocal(t *testing.T) {
	mod := meanModule([]int{1, 3, 5, 2}, []int{1, 2}, true,
		QuantParams{Scale: 0.5, ZeroPoint: 0}, QuantParams{Scale: 0.25, ZeroPoint: 0})

	got, err := pattern.RewriteModule(meanRewriter(), mod)
	if err != nil {
		t.Fatal(err)
	}
	mul := findCall(mainBody(got), ethosu.OpBinaryElementwise)
	attrs := mul.Attrs.(*ethosu.BinaryElementwiseAttrs)
	if want := float32(1.0 / 15.0); attrs.Ifm2Scale != want {
		t.Errorf("reciprocal = %v, want %v", attrs.Ifm2Scale, want)
	}
}

// Equal input and output quantization cancels out of the mean, so it
// lowers to a single average pooling with pseudo zero-points.
func TestMeanQuantNeutralPooling(t *testing.T) {
	q := QuantParams{Scale: 0.5, ZeroPoint: 7}
	mod := meanModule([]int{1, 4, 6, 3}, []int{1, 2}, false, q, q)

	got, err := pattern.RewriteModule(meanRewriter(), mod)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"pooling"}, hardwareOps(mainBody(got))); diff != "" {
		t.Fatalf("hardware ops mismatch (-want +got):\n%s", diff)
	}
	pool := findCall(mainBody(got), ethosu.OpPooling)
	attrs := pool.Attrs.(*ethosu.PoolingAttrs)
	if attrs.PoolingType != ethosu.PoolingAvg {
		t.Errorf("pooling type = %s, want AVG", attrs.PoolingType)
	}
	if attrs.IfmZeroPoint != 0 || attrs.OfmZeroPoint != 0 {
		t.Errorf("zero points = (%d, %d), want (0, 0)", attrs.IfmZeroPoint, attrs.OfmZeroPoint)
	}
	if attrs.PoolShape != [2]int{4, 6} {
		t.Errorf("pool shape = %v, want [4 6]", attrs.PoolShape)
	}
	if attrs.RoundingMode != ethosu.RoundingTruncate {
		t.Errorf("rounding = %s, want TRUNCATE", attrs.RoundingMode)
	}

	// Dropped spatial axes leave a rank-2 result.
	tt := mainBody(got).(*relay.Call).Checked().(*relay.TensorType)
	if diff := cmp.Diff([]int{1, 3}, tt.Shape); diff != "" {
		t.Errorf("output shape mismatch (-want +got):\n%s", diff)
	}
}

// The general case folds the reciprocal into the depthwise weight scale
// and cancels the input zero-point through the bias.
func TestMeanGeneralDepthwise(t *testing.T) {
	mod := meanModule([]int{1, 5, 6, 3}, []int{1}, false,
		QuantParams{Scale: 0.5, ZeroPoint: 9}, QuantParams{Scale: 0.25, ZeroPoint: -1})

	got, err := pattern.RewriteModule(meanRewriter(), mod)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"depthwise_conv2d"}, hardwareOps(mainBody(got))); diff != "" {
		t.Fatalf("hardware ops mismatch (-want +got):\n%s", diff)
	}
	dw := findCall(mainBody(got), ethosu.OpDepthwiseConv2D)
	attrs := dw.Attrs.(*ethosu.DepthwiseConv2DAttrs)
	if attrs.KernelShape != [2]int{5, 1} {
		t.Errorf("kernel shape = %v, want [5 1]", attrs.KernelShape)
	}
	if attrs.IfmZeroPoint != 0 {
		t.Errorf("ifm zero point = %d, want 0 (cancelled by bias)", attrs.IfmZeroPoint)
	}
	if attrs.RoundingMode != ethosu.RoundingNatural {
		t.Errorf("rounding = %s, want NATURAL", attrs.RoundingMode)
	}
}

// Windows taller than the hardware maximum are flattened into one width
// dimension before the reduction.
func TestMeanTallWindowFlattens(t *testing.T) {
	mod := meanModule([]int{1, 70, 4, 3}, []int{1, 2}, true,
		QuantParams{Scale: 0.5, ZeroPoint: 0}, QuantParams{Scale: 0.25, ZeroPoint: 0})

	got, err := pattern.RewriteModule(meanRewriter(), mod)
	if err != nil {
		t.Fatal(err)
	}
	dw := findCall(mainBody(got), ethosu.OpDepthwiseConv2D)
	attrs := dw.Attrs.(*ethosu.DepthwiseConv2DAttrs)
	if attrs.KernelShape != [2]int{1, 280} {
		t.Errorf("kernel shape = %v, want [1 280]", attrs.KernelShape)
	}
	ifmT := dw.Args[0].Checked().(*relay.TensorType)
	if diff := cmp.Diff([]int{1, 1, 280, 3}, ifmT.Shape); diff != "" {
		t.Errorf("flattened ifm shape mismatch (-want +got):\n%s", diff)
	}
}

// A rank-3 H,W,C input gains a batch axis; the reduction axes shift
// with it and the result reshapes back to the original rank.
func TestMeanRank3Input(t *testing.T) {
	mod := meanModule([]int{8, 16, 16}, []int{0, 1}, true,
		QuantParams{Scale: 0.5, ZeroPoint: 4}, QuantParams{Scale: 0.25, ZeroPoint: -2})

	got, err := pattern.RewriteModule(meanRewriter(), mod)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"depthwise_conv2d", "binary_elementwise"}, hardwareOps(mainBody(got))); diff != "" {
		t.Fatalf("hardware ops mismatch (-want +got):\n%s", diff)
	}
	body := mainBody(got).(*relay.Call)
	if body.OpName() != relay.OpReshape {
		t.Fatalf("result is %q, want a reshape back to rank 3", body.OpName())
	}
	tt := body.Checked().(*relay.TensorType)
	if diff := cmp.Diff([]int{1, 1, 16}, tt.Shape); diff != "" {
		t.Errorf("output shape mismatch (-want +got):\n%s", diff)
	}
}
