// passthrough.go - Extraktion von reshape und strided_slice
// Die Composite-Huelle existiert nur fuer die Fusionsregeln des
// Partitionierers; hier wird der nackte Operator wiederhergestellt.
package legalize

import (
	"github.com/redbopo/tvm/ethosu"
	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

func reshapeRewriter() pattern.Rewriter {
	return pattern.Rewriter{
		Pattern: pattern.CallOf(pattern.HasComposite(CompositeReshape), pattern.Wildcard()),
		Once:    true,
		Callback: func(post *relay.Call) (relay.Expr, error) {
			body, err := compositeBody(post)
			if err != nil {
				return nil, err
			}
			reshape, err := expectOp(body, relay.OpReshape)
			if err != nil {
				return nil, err
			}
			attrs := reshape.Attrs.(*relay.ReshapeAttrs)
			return relay.Reshape(post.Args[0], attrs.NewShape), nil
		},
	}
}

func stridedSliceRewriter() pattern.Rewriter {
	return pattern.Rewriter{
		Pattern: pattern.CallOf(pattern.HasComposite(CompositeStridedSlice), pattern.Wildcard()),
		Once:    true,
		Callback: func(post *relay.Call) (relay.Expr, error) {
			body, err := compositeBody(post)
			if err != nil {
				return nil, err
			}
			slice, err := expectOp(body, relay.OpStridedSlice)
			if err != nil {
				return nil, err
			}
			attrs := slice.Attrs.(*relay.StridedSliceAttrs)
			// The hardware moves contiguous blocks only.
			for _, s := range attrs.Strides {
				if s != 1 {
					return nil, &ethosu.UnsupportedAttributeError{Op: relay.OpStridedSlice, Attribute: "strides"}
				}
			}
			return relay.StridedSlice(post.Args[0], attrs.Begin, attrs.End), nil
		},
	}
}
