// pattern.go - Deklarative Muster-Kombinatoren fuer Relay-Ausdruecke
// Hauptfunktionen: Wildcard, IsOp, HasComposite, CallOf, AttrPred
package pattern

import (
	"github.com/redbopo/tvm/relay"
)

// Pattern matches a single expression node. Patterns are evaluated
// eagerly against an immutable tree; there is no backtracking state.
type Pattern interface {
	Match(e relay.Expr) bool
}

type wildcard struct{}

func (wildcard) Match(relay.Expr) bool { return true }

// Wildcard matches any expression.
func Wildcard() Pattern { return wildcard{} }

type isOp struct {
	name string
}

func (p isOp) Match(e relay.Expr) bool {
	call, ok := e.(*relay.Call)
	return ok && call.OpName() == p.name
}

// IsOp matches a call to the named primitive operator, any arity.
func IsOp(name string) Pattern { return isOp{name: name} }

type hasComposite struct {
	name string
}

func (p hasComposite) Match(e relay.Expr) bool {
	call, ok := e.(*relay.Call)
	return ok && call.CompositeName() == p.name
}

// HasComposite matches a call whose target function carries the given
// composite marker.
func HasComposite(name string) Pattern { return hasComposite{name: name} }

type callOf struct {
	op   Pattern
	args []Pattern
}

func (p callOf) Match(e relay.Expr) bool {
	call, ok := e.(*relay.Call)
	if !ok || !p.op.Match(e) {
		return false
	}
	if len(p.args) == 0 {
		return true
	}
	if len(call.Args) != len(p.args) {
		return false
	}
	for i, a := range p.args {
		if !a.Match(call.Args[i]) {
			return false
		}
	}
	return true
}

// CallOf matches a call whose node matches op and whose arguments match
// args positionally. An empty args list accepts any arity.
func CallOf(op Pattern, args ...Pattern) Pattern {
	return callOf{op: op, args: args}
}

type attrPred struct {
	inner Pattern
	pred  func(attrs any) bool
}

func (p attrPred) Match(e relay.Expr) bool {
	if !p.inner.Match(e) {
		return false
	}
	call := e.(*relay.Call)
	return p.pred(call.Attrs)
}

// AttrPred narrows a call pattern with a predicate over the call's
// attribute struct.
func AttrPred(inner Pattern, pred func(attrs any) bool) Pattern {
	return attrPred{inner: inner, pred: pred}
}

type anyOf struct {
	alts []Pattern
}

func (p anyOf) Match(e relay.Expr) bool {
	for _, alt := range p.alts {
		if alt.Match(e) {
			return true
		}
	}
	return false
}

// AnyOf matches when any alternative matches.
func AnyOf(alts ...Pattern) Pattern { return anyOf{alts: alts} }
