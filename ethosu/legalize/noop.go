// noop.go - No-Op-Schutz fuer nackte reshape/strided_slice Senken
// Laeuft als letzter Pass: jede Datenfluss-Senke muss in einem echten
// Hardware-Operator enden.
package legalize

import (
	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/relay"
)

func isBareMovement(e relay.Expr) (*relay.Call, bool) {
	call, ok := e.(*relay.Call)
	if !ok {
		return nil, false
	}
	switch call.OpName() {
	case relay.OpReshape, relay.OpStridedSlice:
		return call, true
	}
	return nil, false
}

// guardSink wraps a bare data-movement sink in a requantizing identity
// with an empty LUT. The int32 accumulator type is exempt: it never
// leaves the hardware pipeline and needs no terminating operator.
func guardSink(e relay.Expr) relay.Expr {
	call, ok := isBareMovement(e)
	if !ok {
		return e
	}
	if t, ok := call.Checked().(*relay.TensorType); ok && t.DType == relay.DTypeInt32 {
		return e
	}
	return ethosu.Identity(call, ethosu.EmptyLUT(), &ethosu.IdentityAttrs{
		IfmScale:     1,
		IfmZeroPoint: 0,
		OfmScale:     1,
		OfmZeroPoint: 0,
		Activation:   ethosu.ActivationNone,
	})
}

// legalizeNoOps wraps every function's data-flow sinks. Only the sinks
// are inspected, so re-running the pipeline on a legalized module is a
// no-op.
func legalizeNoOps(mod *relay.Module) (*relay.Module, error) {
	out := relay.NewModule()
	for _, name := range mod.Names() {
		fn, _ := mod.Get(name)
		switch body := fn.Body.(type) {
		case *relay.Tuple:
			fields := make([]relay.Expr, len(body.Fields))
			changed := false
			for i, f := range body.Fields {
				fields[i] = guardSink(f)
				changed = changed || fields[i] != f
			}
			if changed {
				fn = fn.WithBody(relay.TupleOf(fields...))
			}
		default:
			if guarded := guardSink(fn.Body); guarded != fn.Body {
				fn = fn.WithBody(guarded)
			}
		}
		out.Add(name, fn)
	}
	return out, nil
}
