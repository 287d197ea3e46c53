// rewrite.go - Mustergesteuerter Graph-Rewriter (Postorder)
// Hauptfunktionen: MatchSites, Rewrite, RewriteModule
package pattern

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/v2/sets/linkedhashset"
	"github.com/redbopo/tvm/relay"
)

// Callback produces the replacement for a matched call. Returning an
// error aborts the whole rewrite; legalization is all-or-nothing.
type Callback func(post *relay.Call) (relay.Expr, error)

// Rewriter pairs a pattern with its rewrite callback. Once selects
// match-once-per-root mode: every match site is rewritten exactly once
// in a single sweep and replacements are not re-matched. The default
// mode repeats full sweeps until a fixed point is reached.
type Rewriter struct {
	Pattern  Pattern
	Callback Callback
	Once     bool
}

// Sweeps are capped so a callback that keeps producing fresh matches
// surfaces as an error instead of spinning.
const maxSweeps = 100

// ErrNoFixpoint reports a rewrite that did not converge.
var ErrNoFixpoint = errors.New("pattern: rewrite did not reach a fixed point")

// MatchSites returns the calls in fn's body matching p, in
// deterministic post-order. Shared subtrees yield a single site.
func MatchSites(p Pattern, fn *relay.Function) []*relay.Call {
	seen := linkedhashset.New[relay.Expr]()
	var sites []*relay.Call
	var walk func(e relay.Expr)
	walk = func(e relay.Expr) {
		if seen.Contains(e) {
			return
		}
		seen.Add(e)
		switch n := e.(type) {
		case *relay.Call:
			for _, a := range n.Args {
				walk(a)
			}
			if p.Match(n) {
				sites = append(sites, n)
			}
		case *relay.Tuple:
			for _, f := range n.Fields {
				walk(f)
			}
		}
	}
	walk(fn.Body)
	return sites
}

type rewriteState struct {
	rw   Rewriter
	memo map[relay.Expr]relay.Expr
	hit  bool
	err  error
}

// visit rebuilds e bottom-up, applying the callback wherever the
// pattern matches. Shared subtrees are transformed once and stay shared
// in the output. Replacements are not descended into.
func (s *rewriteState) visit(e relay.Expr) relay.Expr {
	if s.err != nil {
		return e
	}
	if out, ok := s.memo[e]; ok {
		return out
	}
	out := e
	switch n := e.(type) {
	case *relay.Call:
		args := make([]relay.Expr, len(n.Args))
		changed := false
		for i, a := range n.Args {
			args[i] = s.visit(a)
			changed = changed || args[i] != a
		}
		rebuilt := n
		if changed {
			rebuilt = &relay.Call{Op: n.Op, Args: args, Attrs: n.Attrs, T: n.T}
		}
		out = rebuilt
		if s.rw.Pattern.Match(rebuilt) {
			repl, err := s.rw.Callback(rebuilt)
			if err != nil {
				s.err = err
				return e
			}
			out = repl
			s.hit = true
		}
	case *relay.Tuple:
		fields := make([]relay.Expr, len(n.Fields))
		changed := false
		for i, f := range n.Fields {
			fields[i] = s.visit(f)
			changed = changed || fields[i] != f
		}
		if changed {
			out = &relay.Tuple{Fields: fields}
		}
	}
	s.memo[e] = out
	return out
}

// Rewrite applies rw to fn's body. A function with no match is returned
// unchanged; it is a no-op, not an error.
func Rewrite(rw Rewriter, fn *relay.Function) (*relay.Function, error) {
	if len(MatchSites(rw.Pattern, fn)) == 0 {
		return fn, nil
	}
	body := fn.Body
	for sweep := 0; ; sweep++ {
		if sweep == maxSweeps {
			return nil, fmt.Errorf("%w after %d sweeps", ErrNoFixpoint, maxSweeps)
		}
		s := &rewriteState{rw: rw, memo: make(map[relay.Expr]relay.Expr)}
		next := s.visit(body)
		if s.err != nil {
			return nil, s.err
		}
		body = next
		if rw.Once || !s.hit {
			break
		}
	}
	if body == fn.Body {
		return fn, nil
	}
	return fn.WithBody(body), nil
}

// RewriteModule applies rw to every function of mod, rebinding each
// rewritten function. The input module is not modified.
func RewriteModule(rw Rewriter, mod *relay.Module) (*relay.Module, error) {
	out := relay.NewModule()
	for _, name := range mod.Names() {
		fn, _ := mod.Get(name)
		nfn, err := Rewrite(rw, fn)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", name, err)
		}
		out.Add(name, nfn)
	}
	return out, nil
}
