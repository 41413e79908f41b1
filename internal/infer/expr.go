package infer

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

// typeExpected types e and, when e is an empty container or None
// literal whose own type is incomplete, adopts the expected type.
func (in *inferer) typeExpected(e *hir.Expr, want *types.Type) *types.Type {
	if e.Kind == hir.ExprLambda && want != nil && want.Kind == types.KindFunc {
		return in.typeLambda(e, want.Elems)
	}
	t := in.typeExpr(e)
	if want == nil || !want.IsKnown() {
		return t
	}
	if t.HasUnknown() && types.Assignable(t, want) && t.Kind == want.Kind {
		e.Type = want
		return want
	}
	return e.Type
}

func (in *inferer) typeExprs(es []*hir.Expr) []*types.Type {
	out := make([]*types.Type, len(es))
	for i, e := range es {
		out[i] = in.typeExpr(e)
	}
	return out
}

// typeExpr computes, stores and returns the type of e.
func (in *inferer) typeExpr(e *hir.Expr) *types.Type {
	if e == nil {
		return types.None
	}
	t := in.computeType(e)
	if t == nil {
		t = types.Unknown
	}
	e.Type = t
	return t
}

func (in *inferer) computeType(e *hir.Expr) *types.Type {
	switch d := e.Data.(type) {
	case *hir.LiteralData:
		return literalType(d)
	case *hir.NameData:
		return in.nameType(d.Name)
	case *hir.BinaryData:
		lt := in.typeExpr(d.Left)
		rt := in.typeExpr(d.Right)
		if d.Op == hir.OpIn || d.Op == hir.OpNotIn {
			in.refineFromMembership(d.Right, lt)
		}
		return binaryResult(d.Op, lt, rt)
	case *hir.UnaryData:
		ot := in.typeExpr(d.Operand)
		if d.Op == hir.OpNot {
			return types.Bool
		}
		if d.Op == hir.OpInvert {
			return types.Int
		}
		return ot
	case *hir.CallData:
		return in.typeCall(e, d)
	case *hir.DynCallData:
		ct := in.typeExpr(d.Callee)
		in.typeExprs(d.Args)
		if ct.Kind == types.KindFunc {
			return ct.Result
		}
		return types.Dynamic
	case *hir.MethodCallData:
		return in.typeMethodCall(e, d)
	case *hir.IndexData:
		bt := in.typeExpr(d.Base)
		in.typeExpr(d.Index)
		return indexResult(bt, d.Index)
	case *hir.SliceData:
		bt := in.typeExpr(d.Base)
		in.typeExpr(d.Start)
		in.typeExpr(d.Stop)
		in.typeExpr(d.Step)
		switch bt.Kind {
		case types.KindStr, types.KindList, types.KindBytes, types.KindDynamic:
			return bt
		case types.KindTuple, types.KindArray:
			return types.ListOf(types.ElemOf(bt))
		}
		return types.Unknown
	case *hir.AttrData:
		if d.Module != nil {
			return moduleAttrType(d.Module.Module, d.Name)
		}
		bt := in.typeExpr(d.Base)
		return in.attrType(bt, d.Name)
	case *hir.ElemsData:
		elems := in.typeExprs(d.Elems)
		switch e.Kind {
		case hir.ExprTuple:
			return types.TupleOf(elems...)
		case hir.ExprSet:
			return types.SetOf(joinAll(elems))
		default:
			return types.ListOf(joinAll(elems))
		}
	case *hir.DictData:
		return types.DictOf(joinAll(in.typeExprs(d.Keys)), joinAll(in.typeExprs(d.Values)))
	case *hir.CompData:
		return in.typeComp(d)
	case *hir.LambdaData:
		return in.typeLambda(e, nil)
	case *hir.BorrowData:
		return in.typeExpr(d.Value)
	case *hir.AwaitData:
		return in.typeExpr(d.Value)
	case *hir.YieldData:
		in.typeExpr(d.Value)
		return types.None
	case *hir.FStringData:
		for _, p := range d.Parts {
			if p.Expr != nil {
				in.typeExpr(p.Expr)
			}
		}
		return types.Str
	case *hir.NamedData:
		vt := in.typeExpr(d.Value)
		in.bindLocal(d.Name, vt, e.Span)
		return vt
	case *hir.IfExprData:
		in.typeExpr(d.Cond)
		return types.Join(in.typeExpr(d.Then), in.typeExpr(d.Else))
	case *hir.SortByKeyData:
		it := in.typeExpr(d.Iter)
		elem := iterElem(it)
		if d.Key != nil {
			in.typeExpected(d.Key, types.FuncOf([]*types.Type{elem}, types.Unknown))
		}
		in.typeExpr(d.Reverse)
		return types.ListOf(elem)
	case *hir.PlaceholderData:
		return types.Dynamic
	}
	return types.Unknown
}

func literalType(d *hir.LiteralData) *types.Type {
	switch d.Kind {
	case hir.LiteralInt:
		return types.Int
	case hir.LiteralFloat:
		return types.Float
	case hir.LiteralStr:
		return types.Str
	case hir.LiteralBool:
		return types.Bool
	case hir.LiteralBytes:
		return types.Bytes
	}
	return types.None
}

func (in *inferer) nameType(name string) *types.Type {
	if t := in.lookup(name); t.IsKnown() {
		return t
	}
	if imp, it := in.module.ImportedItem(name); imp != nil {
		return moduleAttrType(imp.Module, it.Name)
	}
	return types.Unknown
}

func joinAll(ts []*types.Type) *types.Type {
	var out *types.Type
	for _, t := range ts {
		out = types.Join(out, t)
	}
	if out == nil {
		return types.Unknown
	}
	return out
}

// binaryResult follows the source language's numeric tower: true
// division always yields float, mixing int and float yields float.
func binaryResult(op hir.BinaryOp, l, r *types.Type) *types.Type {
	if op.IsComparison() {
		return types.Bool
	}
	if op == hir.OpAnd || op == hir.OpOr {
		if l.Kind == types.KindBool && r.Kind == types.KindBool {
			return types.Bool
		}
		return types.Join(l, r)
	}
	if l.IsDynamic() || r.IsDynamic() {
		if l.Kind == types.KindDynamic || r.Kind == types.KindDynamic {
			return types.Dynamic
		}
		if l.IsKnown() {
			return l
		}
		return r
	}
	switch op {
	case hir.OpDiv:
		if l.IsNumeric() && r.IsNumeric() {
			return types.Float
		}
	case hir.OpAdd:
		if l.Kind == r.Kind && (l.Kind == types.KindStr || l.Kind == types.KindList || l.Kind == types.KindBytes) {
			return types.Join(l, r)
		}
		if l.Kind == types.KindTuple && r.Kind == types.KindTuple {
			return types.TupleOf(append(append([]*types.Type{}, l.Elems...), r.Elems...)...)
		}
		if l.IsExtern(types.ExtDateTime) || l.IsExtern(types.ExtDate) {
			return l
		}
	case hir.OpSub:
		if l.IsExtern(types.ExtDateTime) && r.IsExtern(types.ExtDateTime) {
			return types.Extern(types.ExtTimeDelta)
		}
		if l.Kind == types.KindSet {
			return l
		}
	case hir.OpMul:
		if (l.Kind == types.KindStr || l.Kind == types.KindList) && r.Kind == types.KindInt {
			return l
		}
		if l.Kind == types.KindInt && (r.Kind == types.KindStr || r.Kind == types.KindList) {
			return r
		}
	case hir.OpMod:
		if l.Kind == types.KindStr {
			return types.Str
		}
	case hir.OpBitOr, hir.OpBitAnd, hir.OpBitXor:
		if l.Kind == types.KindSet || l.Kind == types.KindDict {
			return types.Join(l, r)
		}
		if l.Kind == types.KindBool && r.Kind == types.KindBool {
			return types.Bool
		}
		return types.Int
	case hir.OpLShift, hir.OpRShift:
		return types.Int
	case hir.OpPow:
		if l.Kind == types.KindInt && r.Kind == types.KindInt {
			return types.Int
		}
	}
	if l.IsNumeric() && r.IsNumeric() {
		if l.Kind == types.KindFloat || r.Kind == types.KindFloat {
			return types.Float
		}
		return types.Int
	}
	if l.Kind == types.KindBool && r.IsNumeric() {
		return r
	}
	if !l.IsKnown() {
		return r
	}
	return l
}

// indexResult types base[index].
func indexResult(bt *types.Type, index *hir.Expr) *types.Type {
	switch bt.Kind {
	case types.KindList, types.KindArray:
		return bt.Elem
	case types.KindDict:
		return bt.Value
	case types.KindStr:
		return types.Str
	case types.KindBytes:
		return types.Int
	case types.KindTuple:
		if lit, ok := index.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralInt {
			i := int(lit.Int)
			if i < 0 {
				i += len(bt.Elems)
			}
			if i >= 0 && i < len(bt.Elems) {
				return bt.Elems[i]
			}
		}
		return types.ElemOf(bt)
	case types.KindOptional:
		return indexResult(bt.Elem, index)
	case types.KindExtern:
		switch bt.Name {
		case types.ExtJSON:
			return types.Extern(types.ExtJSON)
		case types.ExtMatch:
			return types.Str
		}
	case types.KindDynamic:
		return types.Dynamic
	}
	return types.Unknown
}

// refineFromMembership types an empty container from `x in c`.
func (in *inferer) refineFromMembership(container *hir.Expr, elem *types.Type) {
	name := hir.NameOf(container)
	if name == "" || !elem.IsKnown() {
		return
	}
	ct := container.Type
	switch {
	case ct.Kind == types.KindSet && !ct.Elem.IsKnown():
		in.bindLocal(name, types.SetOf(elem), container.Span)
	case ct.Kind == types.KindDict && !ct.Key.IsKnown():
		in.bindLocal(name, types.DictOf(elem, ct.Value), container.Span)
	case ct.Kind == types.KindList && !ct.Elem.IsKnown():
		in.bindLocal(name, types.ListOf(elem), container.Span)
	}
}

func (in *inferer) typeComp(d *hir.CompData) *types.Type {
	for _, g := range d.Gens {
		it := in.typeExpr(g.Iter)
		in.assignTarget(g.Target, iterElem(it), g.Iter.Span)
		in.typeExprs(g.Ifs)
	}
	et := in.typeExpr(d.Elem)
	switch d.Kind {
	case hir.CompSet:
		return types.SetOf(et)
	case hir.CompDict:
		return types.DictOf(et, in.typeExpr(d.Value))
	case hir.CompGen:
		return types.IteratorOf(et)
	}
	return types.ListOf(et)
}

// typeLambda types a lambda. hints carry parameter types from the use
// site (sort keys, map/filter callbacks, annotated targets).
func (in *inferer) typeLambda(e *hir.Expr, hints []*types.Type) *types.Type {
	d := e.Data.(*hir.LambdaData)
	params := make([]*types.Type, len(d.Params))
	for i, p := range d.Params {
		if i < len(hints) && hints[i] != nil && hints[i].IsKnown() && !p.Declared {
			p.Type = types.Join(p.Type, hints[i])
		}
		if p.Default != nil {
			p.Type = types.Join(p.Type, in.typeExpr(p.Default))
		}
		if in.fn != nil {
			in.fn.Locals[p.Name] = types.Join(in.fn.Locals[p.Name], p.Type)
		}
		params[i] = p.Type
	}
	bt := in.typeExpr(d.Body)
	for i, p := range d.Params {
		if in.fn != nil && !p.Type.IsKnown() {
			p.Type = in.fn.Locals[p.Name]
			params[i] = p.Type
		}
	}
	t := types.FuncOf(params, bt)
	e.Type = t
	return t
}
