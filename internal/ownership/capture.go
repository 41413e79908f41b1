package ownership

import (
	"sort"

	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
)

// decideCaptures handles closures: lambdas that escape capture by move
// with non-copy captures cloned in a preamble, and nested defs record
// which bindings of the enclosing function they capture.
func (a *analyzer) decideCaptures(fn *hir.Func) {
	escaping := escapingLambdas(fn)
	counts := nameCounts(fn.Body)
	hir.Inspect(fn.Body, hir.Visitor{Expr: func(e *hir.Expr) bool {
		l, ok := e.Data.(*hir.LambdaData)
		if !ok {
			return true
		}
		l.Move = escaping[e] || fn.Flags.HasFlag(hir.FuncReturnsIterator)
		l.Captures = nil
		if !l.Move {
			return true
		}
		inner := map[string]int{}
		hir.InspectExpr(l.Body, hir.Visitor{Expr: func(x *hir.Expr) bool {
			if n := hir.NameOf(x); n != "" {
				inner[n]++
			}
			return true
		}})
		for _, name := range lambdaFree(l) {
			t := fn.LocalType(name)
			if t == nil || t.IsCopy() {
				continue
			}
			if counts[name] > inner[name] {
				l.Captures = append(l.Captures, name)
				a.record(fn, trace.DecisionOwnership, name+".clone() into closure", "closure is moved and "+name+" is used outside it", e.Span)
			}
		}
		return true
	}})
	for _, nested := range nestedFuncs(fn) {
		for _, name := range freeNames(nested) {
			if fn.LocalType(name) == nil {
				continue
			}
			fn.Captured.Insert(name)
			if p := fn.Param(name); p != nil && (p.Mutated || fn.Mutable.Contains(name)) {
				a.record(fn, trace.DecisionOwnership, name+".clone() into "+nested.Name, "mutated parameter captured by nested function", nested.Span)
			}
		}
	}
}

// escapingLambdas finds lambdas that are returned, yielded or stored.
func escapingLambdas(fn *hir.Func) map[*hir.Expr]bool {
	out := map[*hir.Expr]bool{}
	mark := func(e *hir.Expr) {
		if e != nil && e.Kind == hir.ExprLambda {
			out[e] = true
		}
	}
	hir.Inspect(fn.Body, hir.Visitor{
		Stmt: func(s *hir.Stmt) bool {
			switch d := s.Data.(type) {
			case *hir.ReturnData:
				mark(d.Value)
			case *hir.AssignData:
				mark(d.Value)
			}
			return true
		},
		Expr: func(e *hir.Expr) bool {
			switch d := e.Data.(type) {
			case *hir.YieldData:
				mark(d.Value)
			case *hir.ElemsData:
				for _, el := range d.Elems {
					mark(el)
				}
			case *hir.DictData:
				for _, v := range d.Values {
					mark(v)
				}
			case *hir.MethodCallData:
				if storingMethods[d.Method] {
					for _, arg := range d.Args {
						mark(arg)
					}
				}
			}
			return true
		},
	})
	return out
}

func nameCounts(b *hir.Block) map[string]int {
	out := map[string]int{}
	hir.Inspect(b, hir.Visitor{Expr: func(e *hir.Expr) bool {
		if n := hir.NameOf(e); n != "" {
			out[n]++
		}
		return true
	}})
	return out
}

func lambdaFree(l *hir.LambdaData) []string {
	params := map[string]bool{}
	for _, p := range l.Params {
		params[p.Name] = true
	}
	seen := map[string]bool{}
	var out []string
	hir.InspectExpr(l.Body, hir.Visitor{Expr: func(e *hir.Expr) bool {
		if n := hir.NameOf(e); n != "" && !params[n] && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
		return true
	}})
	sort.Strings(out)
	return out
}

// freeNames lists names a nested function reads without binding them.
func freeNames(fn *hir.Func) []string {
	bound := map[string]bool{}
	for _, p := range fn.Params {
		bound[p.Name] = true
	}
	var bind func(t *hir.Target)
	bind = func(t *hir.Target) {
		if t == nil {
			return
		}
		if t.Kind == hir.TargetSymbol {
			bound[t.Name] = true
		}
		for _, el := range t.Elems {
			bind(el)
		}
	}
	hir.Inspect(fn.Body, hir.Visitor{
		Stmt: func(s *hir.Stmt) bool {
			switch d := s.Data.(type) {
			case *hir.AssignData:
				bind(d.Target)
			case *hir.ForData:
				bind(d.Target)
			}
			return true
		},
		Expr: func(e *hir.Expr) bool {
			if c, ok := e.Data.(*hir.CompData); ok {
				for _, g := range c.Gens {
					bind(g.Target)
				}
			}
			return true
		},
	})
	seen := map[string]bool{}
	var out []string
	hir.Inspect(fn.Body, hir.Visitor{Nested: true, Expr: func(e *hir.Expr) bool {
		if n := hir.NameOf(e); n != "" && !bound[n] && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
		return true
	}})
	sort.Strings(out)
	return out
}
