// split.go - Legalisierung von split in eine Folge von strided_slice
// Der Codegen arbeitet auf Slices; split wird daher vollstaendig
// aufgeloest.
package legalize

import (
	"fmt"

	"github.com/redbopo/tvm/relay"
	"github.com/redbopo/tvm/relay/pattern"
)

// sectionBegins turns either split form into the list of section begin
// coordinates along the split axis. A section count that does not
// divide the axis extent is an explicit error rather than a silent
// truncation.
func sectionBegins(attrs *relay.SplitAttrs, axisLen int) ([]int, error) {
	if attrs.Sections == 0 {
		return append([]int{0}, attrs.Indices...), nil
	}
	if axisLen%attrs.Sections != 0 {
		return nil, fmt.Errorf("legalize: split into %d sections does not divide axis extent %d", attrs.Sections, axisLen)
	}
	sectionLen := axisLen / attrs.Sections
	begins := make([]int, 0, attrs.Sections)
	for b := 0; b < axisLen; b += sectionLen {
		begins = append(begins, b)
	}
	return begins, nil
}

func legalizeSplit(post *relay.Call) (relay.Expr, error) {
	attrs := post.Attrs.(*relay.SplitAttrs)
	input := post.Args[0]
	shape := input.Checked().(*relay.TensorType).Shape

	begins, err := sectionBegins(attrs, shape[attrs.Axis])
	if err != nil {
		return nil, err
	}

	// Each section ends where the next begins; the last one ends at
	// the axis extent.
	sections := make([]relay.Expr, len(begins))
	for i, sb := range begins {
		begin := make([]int, len(shape))
		begin[attrs.Axis] = sb

		end := make([]int, len(shape))
		copy(end, shape)
		if i+1 < len(begins) {
			end[attrs.Axis] = begins[i+1]
		}
		sections[i] = relay.StridedSlice(input, begin, end)
	}
	return relay.TupleOf(sections...), nil
}

func splitRewriter() pattern.Rewriter {
	return pattern.Rewriter{
		Pattern:  pattern.IsOp(relay.OpSplit),
		Callback: legalizeSplit,
	}
}
