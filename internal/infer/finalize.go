package infer

import (
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// finalize replaces every remaining unknown with the dynamic value and
// reports the bindings that fell back to it.
func (in *inferer) finalize() {
	for _, g := range in.module.Globals {
		g.Type = in.settle(g.Type, g.Name, g.Span)
		in.finalizeExpr(g.Value)
	}
	for _, c := range in.module.Classes {
		for _, f := range c.Fields {
			f.Type = in.settle(f.Type, c.Name+"."+f.Name, f.Span)
			in.finalizeExpr(f.Default)
		}
		for _, k := range c.Constants {
			k.Type = types.Concrete(k.Type)
			in.finalizeExpr(k.Value)
		}
	}
	for _, p := range in.module.Protocols {
		for _, m := range p.Methods {
			in.finalizeSignature(m)
		}
	}
	for _, fn := range in.allFuncsWithNested() {
		in.finalizeFunc(fn)
	}
}

func (in *inferer) settle(t *types.Type, what string, sp source.Span) *types.Type {
	if !t.IsKnown() {
		in.report(diag.TypDynamicFallback, sp, "type of %s could not be inferred; using DynValue", what)
		in.record(trace.DecisionTypeMapping, "DynValue", what+" has no inferable type", sp)
	}
	return types.Concrete(t)
}

func (in *inferer) finalizeSignature(fn *hir.Func) {
	prev := in.fn
	in.fn = fn
	defer func() { in.fn = prev }()
	for _, p := range fn.Params {
		if p.Declared {
			p.Type = types.Concrete(p.Type)
		} else {
			p.Type = in.settle(p.Type, p.Name, p.Span)
		}
		in.finalizeExpr(p.Default)
	}
	fn.Result = types.Concrete(fn.Result)
}

func (in *inferer) finalizeFunc(fn *hir.Func) {
	in.finalizeSignature(fn)
	for name, t := range fn.Locals {
		fn.Locals[name] = types.Concrete(t)
	}
	hir.Inspect(fn.Body, hir.Visitor{
		Stmt: func(s *hir.Stmt) bool {
			switch d := s.Data.(type) {
			case *hir.AssignData:
				in.finalizeTarget(fn, d.Target)
			case *hir.AugAssignData:
				in.finalizeTarget(fn, d.Target)
			case *hir.ForData:
				in.finalizeTarget(fn, d.Target)
			}
			return true
		},
		Expr: func(e *hir.Expr) bool {
			in.finalizeNode(fn, e)
			return true
		},
	})
}

func (in *inferer) finalizeExpr(e *hir.Expr) {
	hir.InspectExpr(e, hir.Visitor{Expr: func(x *hir.Expr) bool {
		in.finalizeNode(nil, x)
		return true
	}})
}

func (in *inferer) finalizeNode(fn *hir.Func, e *hir.Expr) {
	e.Type = types.Concrete(e.Type)
	switch d := e.Data.(type) {
	case *hir.LambdaData:
		for _, p := range d.Params {
			if fn != nil && fn.Locals[p.Name] != nil && !p.Type.IsKnown() {
				p.Type = fn.Locals[p.Name]
			}
			p.Type = types.Concrete(p.Type)
		}
	case *hir.CompData:
		for _, g := range d.Gens {
			in.finalizeTarget(fn, g.Target)
		}
	}
}

func (in *inferer) finalizeTarget(fn *hir.Func, t *hir.Target) {
	if t == nil {
		return
	}
	if t.Kind == hir.TargetSymbol && fn != nil {
		if lt := fn.LocalType(t.Name); lt != nil && (t.Type == nil || !t.Type.IsKnown()) {
			t.Type = lt
		} else if g := in.module.Global(t.Name); g != nil && (t.Type == nil || !t.Type.IsKnown()) {
			t.Type = g.Type
		}
	}
	t.Type = types.Concrete(t.Type)
	for _, el := range t.Elems {
		in.finalizeTarget(fn, el)
	}
}
