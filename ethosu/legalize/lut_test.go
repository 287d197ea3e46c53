// lut_test.go - Tests fuer die LUT-Legalisierung von Tanh und Sigmoid
package legalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

func lutModule(shape []int, composite, actOp string, inQ, outQ QuantParams) *relay.Module {
	x := int8Var("x", shape...)
	return moduleOf(buildLUTComposite(x, composite, actOp, inQ, outQ), x)
}

func TestTanhBecomesIdentityWithLUT(t *testing.T) {
	inQ := QuantParams{Scale: 0.05, ZeroPoint: 10}
	outQ := QuantParams{Scale: 1.0 / 128.0, ZeroPoint: 0}
	mod := lutModule([]int{1, 4, 4, 8}, CompositeTanh, relay.OpTanh, inQ, outQ)

	got, err := pattern.RewriteModule(tanhRewriter(), mod)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"identity"}, hardwareOps(mainBody(got))); diff != "" {
		t.Fatalf("hardware ops mismatch (-want +got):\n%s", diff)
	}

	id := mainBody(got).(*relay.Call)
	attrs := id.Attrs.(*ethosu.IdentityAttrs)
	// The requantization lives in the table, so the operator keeps the
	// input quantization on both sides.
	if attrs.IfmScale != inQ.Scale || attrs.IfmZeroPoint != inQ.ZeroPoint {
		t.Errorf("ifm quantization = (%v, %d), want input pair", attrs.IfmScale, attrs.IfmZeroPoint)
	}
	if attrs.OfmScale != inQ.Scale || attrs.OfmZeroPoint != inQ.ZeroPoint {
		t.Errorf("ofm quantization = (%v, %d), want input pair", attrs.OfmScale, attrs.OfmZeroPoint)
	}
	if attrs.Activation != ethosu.ActivationTanh {
		t.Errorf("activation = %s, want TANH", attrs.Activation)
	}

	lut := id.Args[1].(*relay.Constant)
	lutT := lut.T
	if diff := cmp.Diff([]int{256}, lutT.Shape); diff != "" {
		t.Errorf("lut shape mismatch (-want +got):\n%s", diff)
	}
	if lutT.DType != relay.DTypeUint8 {
		t.Errorf("lut dtype = %s, want uint8", lutT.DType)
	}
}

func TestSigmoidBecomesIdentityWithLUT(t *testing.T) {
	inQ := QuantParams{Scale: 0.1, ZeroPoint: 0}
	outQ := QuantParams{Scale: 1.0 / 256.0, ZeroPoint: -128}
	mod := lutModule([]int{1, 8}, CompositeSigmoid, relay.OpSigmoid, inQ, outQ)

	got, err := pattern.RewriteModule(sigmoidRewriter(), mod)
	if err != nil {
		t.Fatal(err)
	}
	id := mainBody(got).(*relay.Call)
	if id.OpName() != ethosu.OpIdentity {
		t.Fatalf("result is %q, want identity", id.OpName())
	}
	attrs := id.Attrs.(*ethosu.IdentityAttrs)
	if attrs.Activation != ethosu.ActivationSigmoid {
		t.Errorf("activation = %s, want SIGMOID", attrs.Activation)
	}
	if attrs.OfmScale != inQ.Scale || attrs.OfmZeroPoint != inQ.ZeroPoint {
		t.Errorf("ofm quantization = (%v, %d), want input pair", attrs.OfmScale, attrs.OfmZeroPoint)
	}
}

// The identity does not change shape or dtype of the feature map.
func TestLUTIdentityPreservesType(t *testing.T) {
	shape := []int{2, 3, 4, 5}
	mod := lutModule(shape, CompositeTanh, relay.OpTanh,
		QuantParams{Scale: 0.05, ZeroPoint: 0}, QuantParams{Scale: 1.0 / 128.0, ZeroPoint: 0})

	got, err := pattern.RewriteModule(tanhRewriter(), mod)
	if err != nil {
		t.Fatal(err)
	}
	tt := mainBody(got).(*relay.Call).Checked().(*relay.TensorType)
	if diff := cmp.Diff(shape, tt.Shape); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
	if tt.DType != relay.DTypeInt8 {
		t.Errorf("dtype = %s, want int8", tt.DType)
	}
}
