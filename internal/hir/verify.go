package hir

import (
	"fmt"

	"github.com/paiml/depyler-sub011/internal/source"
)

// Violation is a broken structural invariant. Violations come from
// translator bugs, not user input.
type Violation struct {
	Func string
	Span source.Span
	Msg  string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Func, v.Msg)
}

// VerifyOptions selects which invariants to check.
type VerifyOptions struct {
	// Typed requires every expression to carry a concrete type.
	Typed bool
}

// Verify checks labels, generator flags and (optionally) type
// completeness for every function in m.
func Verify(m *Module, opts VerifyOptions) []Violation {
	var out []Violation
	for _, fn := range m.AllFuncs() {
		out = append(out, verifyFunc(fn, opts)...)
	}
	return out
}

func verifyFunc(fn *Func, opts VerifyOptions) []Violation {
	var out []Violation
	report := func(sp source.Span, format string, args ...any) {
		out = append(out, Violation{Func: fn.QualName(), Span: sp, Msg: fmt.Sprintf(format, args...)})
	}
	yields := ContainsYield(fn.Body)
	if yields != fn.IsGenerator() {
		report(fn.Span, "generator flag %v but body yields=%v", fn.IsGenerator(), yields)
	}
	var labels []string
	var walk func(b *Block)
	walk = func(b *Block) {
		if b == nil {
			return
		}
		for _, s := range b.Stmts {
			pushed := ""
			switch d := s.Data.(type) {
			case *WhileData:
				pushed = d.Label
			case *ForData:
				pushed = d.Label
			case *BlockData:
				pushed = d.Label
			case *BranchData:
				if d.Label != "" && !contains(labels, d.Label) {
					report(s.Span, "%s to missing label '%s", s.Kind, d.Label)
				}
			}
			if opts.Typed {
				for _, e := range StmtExprs(s) {
					InspectExpr(e, Visitor{Expr: func(x *Expr) bool {
						if x.Type == nil || x.Type.HasUnknown() {
							report(x.Span, "%s expression left untyped", x.Kind)
						}
						return true
					}})
				}
			}
			labels = append(labels, pushed)
			for _, nb := range StmtBlocks(s) {
				walk(nb)
			}
			labels = labels[:len(labels)-1]
		}
	}
	walk(fn.Body)
	return out
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}
