// legalize.go - Pipeline-Orchestrierung der NPU-Legalisierung
// Hauptfunktionen: LegalizeEthosU; Composite-Namen des Partitionierers.
package legalize

import (
	"fmt"
	"log/slog"

	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

// Composite markers the partitioner attaches to offloadable subgraphs.
const (
	CompositeConv2D          = "ethos-u.qnn_conv2d"
	CompositeDepthwiseConv2D = "ethos-u.qnn_depthwise_conv2d"
	CompositeMaxPool2D       = "ethos-u.maxpool2d"
	CompositeAvgPool2D       = "ethos-u.avgpool2d"
	CompositeAdd             = "ethos-u.add"
	CompositeSub             = "ethos-u.sub"
	CompositeMul             = "ethos-u.mul"
	CompositeMin             = "ethos-u.min"
	CompositeMax             = "ethos-u.max"
	CompositeShl             = "ethos-u.shl"
	CompositeAbs             = "ethos-u.abs"
	CompositeCLZ             = "ethos-u.clz"
	CompositeTanh            = "ethos-u.tanh"
	CompositeSigmoid         = "ethos-u.sigmoid"
	CompositeMean            = "ethos-u.mean"
	CompositeConcat          = "ethos-u.concat"
	CompositeReshape         = "ethos-u.reshape"
	CompositeStridedSlice    = "ethos-u.strided_slice"
)

type pass struct {
	name  string
	apply func(*relay.Module) (*relay.Module, error)
}

func rewritePass(name string, rw pattern.Rewriter) pass {
	return pass{
		name: name,
		apply: func(mod *relay.Module) (*relay.Module, error) {
			return pattern.RewriteModule(rw, mod)
		},
	}
}

// passes is the fixed, dependency-respecting legalizer order. The
// reshape and strided-slice extraction must follow every
// operator-specific legalizer, and the no-op guard must run last so it
// only sees already-legalized sinks.
func passes() []pass {
	return []pass{
		rewritePass("split", splitRewriter()),
		rewritePass("conv2d", conv2DRewriter()),
		rewritePass("depthwise_conv2d", depthwiseConv2DRewriter()),
		rewritePass("max_pooling", maxPoolingRewriter()),
		rewritePass("avg_pooling", avgPoolingRewriter()),
		rewritePass("add", addRewriter()),
		rewritePass("sub", subRewriter()),
		rewritePass("mul", mulRewriter()),
		rewritePass("min", minRewriter()),
		rewritePass("max", maxRewriter()),
		rewritePass("shl", shlRewriter()),
		rewritePass("abs", absRewriter()),
		rewritePass("clz", clzRewriter()),
		rewritePass("tanh", tanhRewriter()),
		rewritePass("mean", meanRewriter()),
		rewritePass("concat", concatRewriter()),
		rewritePass("sigmoid", sigmoidRewriter()),
		rewritePass("reshape", reshapeRewriter()),
		rewritePass("strided_slice", stridedSliceRewriter()),
		{name: "no_ops", apply: legalizeNoOps},
	}
}

// LegalizeEthosU rewrites every partitioner-tagged subgraph of mod into
// fully parameterized hardware operators. The first failing legalizer
// aborts the whole run; nothing is partially committed.
func LegalizeEthosU(mod *relay.Module) (*relay.Module, error) {
	for _, p := range passes() {
		slog.Debug("legalizing", "pass", p.name, "functions", mod.Len())
		next, err := p.apply(mod)
		if err != nil {
			return nil, fmt.Errorf("legalize %s: %w", p.name, err)
		}
		mod = next
	}
	return mod, nil
}

// clipActivation translates an optional clip attribute into the
// hardware activation triple shared by most legalizers. The clip bounds
// are zero (and unused) without an activation.
func clipActivation(clip *relay.ClipAttrs) (act ethosu.Activation, clipMin, clipMax int) {
	if clip == nil {
		return ethosu.ActivationNone, 0, 0
	}
	return ethosu.ActivationClip, clip.Min, clip.Max
}
