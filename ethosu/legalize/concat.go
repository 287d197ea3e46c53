// concat.go - Legalisierung der quantisierten Konkatenation
// Der Requantize-Wrapper hat die Quantisierung der Eingaben bereits
// angeglichen; uebrig bleibt eine gewoehnliche Konkatenation.
package legalize

import (
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

func legalizeConcat(post *relay.Call) (relay.Expr, error) {
	p, err := parseConcatParams(post)
	if err != nil {
		return nil, err
	}

	// Only genuine tensor-producing calls survive; scale and
	// zero-point constants the converter appended are dropped.
	var args []relay.Expr
	for _, arg := range post.Args {
		if _, ok := arg.(*relay.Call); ok {
			args = append(args, arg)
		}
	}
	return relay.Concatenate(args, p.axis), nil
}

func concatRewriter() pattern.Rewriter {
	return pattern.Rewriter{
		Pattern:  pattern.CallOf(pattern.HasComposite(CompositeConcat)),
		Once:     true,
		Callback: legalizeConcat,
	}
}
