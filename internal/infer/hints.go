package infer

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// hintParams types parameters that are still unknown from how the body
// uses them: `n * 2` makes n an int, `s + "x"` makes s a str, iterating
// with `for x in xs` makes xs a list.
func (in *inferer) hintParams() {
	for _, fn := range in.module.AllFuncs() {
		in.hintFunc(fn)
	}
}

func (in *inferer) hintFunc(fn *hir.Func) {
	open := map[string]*hir.Param{}
	for _, p := range fn.Params {
		if !p.Declared && !p.Type.IsKnown() && p.Kind == hir.ParamPositional {
			open[p.Name] = p
		}
	}
	hint := func(name string, t *types.Type) {
		p := open[name]
		if p == nil || t == nil || !t.IsKnown() || t.IsDynamic() || t.Kind == types.KindNone {
			return
		}
		p.Type = t
		delete(open, name)
		prev := in.fn
		in.fn = fn
		in.record(trace.DecisionTypeMapping, name+": "+t.String(), "inferred from usage", p.Span)
		in.fn = prev
	}
	hir.Inspect(fn.Body, hir.Visitor{
		Nested: true,
		Stmt: func(s *hir.Stmt) bool {
			if d, ok := s.Data.(*hir.ForData); ok {
				hint(hir.NameOf(d.Iter), types.ListOf(types.Unknown))
			}
			return true
		},
		Expr: func(e *hir.Expr) bool {
			switch d := e.Data.(type) {
			case *hir.BinaryData:
				if d.Op.IsLogical() || d.Op == hir.OpIn || d.Op == hir.OpNotIn || d.Op == hir.OpIs || d.Op == hir.OpIsNot {
					break
				}
				hint(hir.NameOf(d.Left), usageHint(d.Right))
				hint(hir.NameOf(d.Right), usageHint(d.Left))
			case *hir.IndexData:
				if d.Index.Type != nil && d.Index.Type.Kind == types.KindStr {
					hint(hir.NameOf(d.Base), types.DictOf(types.Str, types.Unknown))
				}
			case *hir.MethodCallData:
				if d.Module == nil {
					hint(hir.NameOf(d.Recv), receiverHint(d.Method))
				}
			}
			return true
		},
	})
}

// usageHint is the type a binding must have to combine with other.
func usageHint(other *hir.Expr) *types.Type {
	if other == nil || other.Type == nil {
		return nil
	}
	switch other.Type.Kind {
	case types.KindInt, types.KindFloat, types.KindStr:
		return other.Type
	}
	return nil
}
