package infer

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/types"
)

// returnSink observes the return statements of the function being typed.
type returnSink func(*hir.ReturnData)

func (in *inferer) inferBlock(b *hir.Block, ret returnSink) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		in.inferStmt(s, ret)
	}
}

func (in *inferer) inferStmt(s *hir.Stmt, ret returnSink) {
	switch d := s.Data.(type) {
	case *hir.AssignData:
		vt := d.Declared
		if d.Value != nil {
			vt = in.typeExpected(d.Value, d.Declared)
		}
		if d.Declared != nil && d.Declared.IsKnown() {
			vt = d.Declared
		}
		if d.Value != nil && d.Value.Kind == hir.ExprLambda && d.Target.Kind == hir.TargetSymbol && in.fn != nil {
			in.lambdas[lambdaKey{in.fn, d.Target.Name}] = d.Value
		}
		in.assignTarget(d.Target, vt, s.Span)
	case *hir.AugAssignData:
		vt := in.typeExpr(d.Value)
		cur := in.targetType(d.Target)
		in.assignTarget(d.Target, binaryResult(d.Op, cur, vt), s.Span)
	case *hir.ReturnData:
		if d.Value != nil {
			var want *types.Type
			if in.fn != nil && in.fn.Declared {
				want = in.fn.Result
			}
			in.typeExpected(d.Value, want)
		}
		if ret != nil {
			ret(d)
		}
	case *hir.IfData:
		in.typeExpr(d.Cond)
		in.inferBlock(d.Then, ret)
		in.inferBlock(d.Else, ret)
	case *hir.WhileData:
		in.typeExpr(d.Cond)
		in.inferBlock(d.Body, ret)
	case *hir.ForData:
		it := in.typeExpr(d.Iter)
		in.assignTarget(d.Target, iterElem(it), s.Span)
		in.inferBlock(d.Body, ret)
	case *hir.ExprStmtData:
		in.typeExpr(d.Value)
	case *hir.RaiseData:
		if d.Exc != nil {
			in.typeExpr(d.Exc)
		}
	case *hir.WithData:
		for _, it := range d.Items {
			ct := in.typeExpr(it.Context)
			if it.Name != "" {
				in.bindLocal(it.Name, ct, s.Span)
			}
		}
		in.inferBlock(d.Body, ret)
	case *hir.TryData:
		in.inferBlock(d.Body, ret)
		for _, h := range d.Handlers {
			if h.Name != "" {
				cls := "Exception"
				if len(h.Classes) == 1 {
					cls = h.Classes[0]
				}
				in.bindLocal(h.Name, types.Custom(cls), h.Span)
			}
			in.inferBlock(h.Body, ret)
		}
		in.inferBlock(d.Else, ret)
		in.inferBlock(d.Finally, ret)
	case *hir.AssertData:
		in.typeExpr(d.Test)
		if d.Msg != nil {
			in.typeExpr(d.Msg)
		}
	case *hir.BlockData:
		in.inferBlock(d.Body, ret)
	case *hir.FuncDefData:
		in.inferNested(d.Func)
	}
}

// inferNested types a nested def. Its body sees the enclosing function's
// bindings, which are copied in as read-only context.
func (in *inferer) inferNested(fn *hir.Func) {
	outer := in.fn
	if fn.Locals == nil {
		fn.Locals = map[string]*types.Type{}
	}
	if outer != nil {
		for name, t := range outer.Locals {
			if _, own := fn.Locals[name]; !own && fn.Param(name) == nil {
				fn.Locals[name] = t
			}
		}
		for _, p := range outer.Params {
			if _, own := fn.Locals[p.Name]; !own && fn.Param(p.Name) == nil {
				fn.Locals[p.Name] = p.Type
			}
		}
	}
	in.inferFunc(fn, in.class)
	if outer != nil {
		outer.Locals[fn.Name] = funcType(fn)
	}
}

func (in *inferer) targetType(t *hir.Target) *types.Type {
	switch t.Kind {
	case hir.TargetSymbol:
		return in.lookup(t.Name)
	case hir.TargetSubscript:
		bt := in.typeExpr(t.Base)
		in.typeExpr(t.Index)
		return indexResult(bt, t.Index)
	case hir.TargetAttribute:
		bt := in.typeExpr(t.Base)
		return in.attrType(bt, t.Field)
	}
	return types.Unknown
}

func (in *inferer) assignTarget(t *hir.Target, vt *types.Type, sp source.Span) {
	if vt == nil {
		vt = types.Unknown
	}
	switch t.Kind {
	case hir.TargetSymbol:
		in.bindLocal(t.Name, vt, sp)
		t.Type = in.lookup(t.Name)
	case hir.TargetTuple:
		for i, el := range t.Elems {
			var et *types.Type
			switch {
			case vt.Kind == types.KindTuple && i < len(vt.Elems):
				et = vt.Elems[i]
			default:
				et = iterElem(vt)
			}
			in.assignTarget(el, et, sp)
		}
		t.Type = vt
	case hir.TargetSubscript:
		bt := in.typeExpr(t.Base)
		it := in.typeExpr(t.Index)
		if name := hir.NameOf(t.Base); name != "" {
			switch {
			case bt.Kind == types.KindDict:
				in.bindLocal(name, types.DictOf(it, vt), sp)
			case bt.Kind == types.KindList:
				in.bindLocal(name, types.ListOf(vt), sp)
			}
			t.Base.Type = in.lookup(name)
		} else {
			in.refineField(t.Base, func(ft *types.Type) *types.Type {
				if ft.Kind == types.KindDict {
					return types.DictOf(it, vt)
				}
				return ft
			})
		}
		t.Type = vt
	case hir.TargetAttribute:
		bt := in.typeExpr(t.Base)
		if c := in.classOf(bt); c != nil {
			if f := in.findField(c, t.Field); f != nil {
				f.Type = types.Join(f.Type, vt)
				t.Type = f.Type
				return
			}
		}
		t.Type = vt
	}
}

// refineField joins a refined container type into self.<field>.
func (in *inferer) refineField(base *hir.Expr, refine func(*types.Type) *types.Type) {
	a, ok := base.Data.(*hir.AttrData)
	if !ok || a.Base == nil || hir.NameOf(a.Base) != "self" || in.class == nil {
		return
	}
	if f := in.findField(in.class, a.Name); f != nil {
		f.Type = types.Join(f.Type, refine(f.Type))
	}
}

// iterElem is the element type produced by a for loop over t.
func iterElem(t *types.Type) *types.Type {
	if t == nil {
		return types.Unknown
	}
	if t.Kind == types.KindOptional {
		return iterElem(t.Elem)
	}
	return types.ElemOf(t)
}
