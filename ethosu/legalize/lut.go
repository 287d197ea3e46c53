// lut.go - Legalisierung von Tanh/Sigmoid ueber Lookup-Tabellen
// Die Requantisierung wird vollstaendig in die 256-Eintrag-LUT gebacken;
// der Identity-Operator behaelt die Eingangsquantisierung.
package legalize

import (
	"math"

	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/ethosu/quantize"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

func lutActivationRewriter(composite, actOp string, activation ethosu.Activation, f func(float64) float64) pattern.Rewriter {
	return pattern.Rewriter{
		Pattern: pattern.CallOf(pattern.HasComposite(composite), pattern.Wildcard()),
		Once:    true,
		Callback: func(post *relay.Call) (relay.Expr, error) {
			p, err := parseLUTParams(post, actOp)
			if err != nil {
				return nil, err
			}
			lut := quantize.LUT(p.in.Scale, p.in.ZeroPoint, p.out.Scale, p.out.ZeroPoint, f)
			return ethosu.Identity(post.Args[0], ethosu.LUTConst(lut), &ethosu.IdentityAttrs{
				IfmScale:     p.in.Scale,
				IfmZeroPoint: p.in.ZeroPoint,
				OfmScale:     p.in.Scale,
				OfmZeroPoint: p.in.ZeroPoint,
				Activation:   activation,
			}), nil
		},
	}
}

func tanhRewriter() pattern.Rewriter {
	return lutActivationRewriter(CompositeTanh, relay.OpTanh, ethosu.ActivationTanh, math.Tanh)
}

func sigmoidRewriter() pattern.Rewriter {
	return lutActivationRewriter(CompositeSigmoid, relay.OpSigmoid, ethosu.ActivationSigmoid, quantize.Sigmoid)
}
