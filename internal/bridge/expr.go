package bridge

import (
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/hashicorp/go-set/v3"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/trace"
)

var reflectionBuiltins = map[string]bool{
	"eval": true, "exec": true, "compile": true, "getattr": true, "hasattr": true,
	"globals": true, "locals": true, "vars": true, "__import__": true,
}

var attrMutationBuiltins = map[string]bool{"setattr": true, "delattr": true}

func (l *lowerer) expr(kind hir.ExprKind, n pyast.Node, data hir.ExprData) *hir.Expr {
	return &hir.Expr{Kind: kind, Span: l.span(n), Data: data}
}

func (l *lowerer) placeholder(n pyast.Node, what string) *hir.Expr {
	return l.expr(hir.ExprPlaceholder, n, &hir.PlaceholderData{What: what})
}

func (l *lowerer) lowerExprs(es []pyast.Expr) []*hir.Expr {
	out := make([]*hir.Expr, 0, len(es))
	for _, e := range es {
		out = append(out, l.lowerExpr(e))
	}
	return out
}

func (l *lowerer) lowerExpr(e pyast.Expr) *hir.Expr {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case *pyast.Constant:
		return l.lowerConstant(v)
	case *pyast.Name:
		return l.expr(hir.ExprName, v, &hir.NameData{Name: ident(v.ID)})
	case *pyast.BinOp:
		return l.expr(hir.ExprBinary, v, &hir.BinaryData{Op: binaryOp(v.Op), Left: l.lowerExpr(v.Left), Right: l.lowerExpr(v.Right)})
	case *pyast.BoolOp:
		op := hir.OpAnd
		if v.Op == pyast.Or {
			op = hir.OpOr
		}
		acc := l.lowerExpr(v.Values[0])
		for _, next := range v.Values[1:] {
			acc = l.expr(hir.ExprBinary, v, &hir.BinaryData{Op: op, Left: acc, Right: l.lowerExpr(next)})
		}
		return acc
	case *pyast.UnaryOp:
		return l.expr(hir.ExprUnary, v, &hir.UnaryData{Op: unaryOp(v.Op), Operand: l.lowerExpr(v.Operand)})
	case *pyast.Compare:
		return l.lowerCompare(v)
	case *pyast.Call:
		return l.lowerCall(v)
	case *pyast.Attribute:
		if imp := l.moduleRef(v.Value); imp != nil {
			return l.expr(hir.ExprAttr, v, &hir.AttrData{Name: v.Attr, Module: imp})
		}
		return l.expr(hir.ExprAttr, v, &hir.AttrData{Base: l.lowerExpr(v.Value), Name: v.Attr})
	case *pyast.Subscript:
		base := l.lowerExpr(v.Value)
		if sl, ok := v.Slice.(*pyast.Slice); ok {
			return l.expr(hir.ExprSlice, v, &hir.SliceData{
				Base: base, Start: l.lowerExpr(sl.Lower), Stop: l.lowerExpr(sl.Upper), Step: l.lowerExpr(sl.Step),
			})
		}
		return l.expr(hir.ExprIndex, v, &hir.IndexData{Base: base, Index: l.lowerExpr(v.Slice)})
	case *pyast.List:
		return l.expr(hir.ExprList, v, &hir.ElemsData{Elems: l.lowerElems(v.Elts)})
	case *pyast.Tuple:
		return l.expr(hir.ExprTuple, v, &hir.ElemsData{Elems: l.lowerElems(v.Elts)})
	case *pyast.Set:
		return l.expr(hir.ExprSet, v, &hir.ElemsData{Elems: l.lowerElems(v.Elts)})
	case *pyast.Dict:
		d := &hir.DictData{}
		for i, k := range v.Keys {
			if k == nil {
				l.unsupported(diag.UnsStarArgs, v, "dict unpacking with ** is not supported")
				continue
			}
			d.Keys = append(d.Keys, l.lowerExpr(k))
			d.Values = append(d.Values, l.lowerExpr(v.Values[i]))
		}
		return l.expr(hir.ExprDict, v, d)
	case *pyast.ListComp:
		return l.lowerComp(v, hir.CompList, v.Elt, nil, v.Generators)
	case *pyast.SetComp:
		return l.lowerComp(v, hir.CompSet, v.Elt, nil, v.Generators)
	case *pyast.GeneratorExp:
		return l.lowerComp(v, hir.CompGen, v.Elt, nil, v.Generators)
	case *pyast.DictComp:
		return l.lowerComp(v, hir.CompDict, v.Key, v.Value, v.Generators)
	case *pyast.Lambda:
		return l.lowerLambda(v)
	case *pyast.IfExp:
		return l.expr(hir.ExprIf, v, &hir.IfExprData{Cond: l.lowerExpr(v.Test), Then: l.lowerExpr(v.Body), Else: l.lowerExpr(v.Orelse)})
	case *pyast.Await:
		return l.expr(hir.ExprAwait, v, &hir.AwaitData{Value: l.lowerExpr(v.Value)})
	case *pyast.Yield:
		return l.expr(hir.ExprYield, v, &hir.YieldData{Value: l.lowerExpr(v.Value)})
	case *pyast.YieldFrom:
		return l.expr(hir.ExprYield, v, &hir.YieldData{Value: l.lowerExpr(v.Value), From: true})
	case *pyast.JoinedStr:
		return l.lowerFString(v)
	case *pyast.NamedExpr:
		name := ident(v.Target.ID)
		value := l.lowerExpr(v.Value)
		l.bind(name)
		return l.expr(hir.ExprNamed, v, &hir.NamedData{Name: name, Value: value})
	case *pyast.Starred:
		l.unsupported(diag.UnsStarArgs, v, "starred expression is not supported here")
		return l.placeholder(v, "starred")
	case *pyast.BadExpr:
		l.unsupported(diag.UnsExpression, v, "unsupported expression %s", v.Kind)
		return l.placeholder(v, v.Kind)
	}
	l.unsupported(diag.UnsExpression, e, "unsupported expression")
	return l.placeholder(e, "expression")
}

func (l *lowerer) lowerElems(es []pyast.Expr) []*hir.Expr {
	out := make([]*hir.Expr, 0, len(es))
	for _, e := range es {
		if s, ok := e.(*pyast.Starred); ok {
			l.unsupported(diag.UnsStarArgs, s, "starred element is not supported")
			continue
		}
		out = append(out, l.lowerExpr(e))
	}
	return out
}

func (l *lowerer) lowerConstant(c *pyast.Constant) *hir.Expr {
	lit := func(d *hir.LiteralData) *hir.Expr { return l.expr(hir.ExprLiteral, c, d) }
	switch c.Value.Kind {
	case pyast.ConstNone:
		return lit(&hir.LiteralData{Kind: hir.LiteralNone})
	case pyast.ConstBool:
		return lit(&hir.LiteralData{Kind: hir.LiteralBool, Bool: c.Value.Bool})
	case pyast.ConstInt:
		return lit(&hir.LiteralData{Kind: hir.LiteralInt, Int: l.intLiteral(c), Text: c.Value.Int})
	case pyast.ConstFloat:
		return lit(&hir.LiteralData{Kind: hir.LiteralFloat, Float: c.Value.Float})
	case pyast.ConstStr:
		return lit(&hir.LiteralData{Kind: hir.LiteralStr, Text: c.Value.Str})
	case pyast.ConstBytes:
		return lit(&hir.LiteralData{Kind: hir.LiteralBytes, Bytes: c.Value.Bytes})
	case pyast.ConstEllipsis:
		return l.placeholder(c, "...")
	}
	l.unsupported(diag.UnsExpression, c, "complex number literals are not supported")
	return l.placeholder(c, "complex")
}

// intLiteral parses a decimal literal. Literals outside the 64-bit range
// are reported and clamp to zero.
func (l *lowerer) intLiteral(c *pyast.Constant) int64 {
	text := strings.ReplaceAll(c.Value.Int, "_", "")
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n
	}
	if u, err := strconv.ParseUint(text, 10, 64); err == nil {
		if n, err := safecast.Conv[int64](u); err == nil {
			return n
		}
	}
	diag.ReportWarning(l.rep, diag.TypIntLiteralOverflow, l.span(c),
		"integer literal "+c.Value.Int+" does not fit in 64 bits").Emit()
	return 0
}

// lowerCompare turns a chain a < b < c into (a < b) and (b < c).
func (l *lowerer) lowerCompare(v *pyast.Compare) *hir.Expr {
	left := l.lowerExpr(v.Left)
	var acc *hir.Expr
	for i, op := range v.Ops {
		right := l.lowerExpr(v.Comparators[i])
		cmp := l.expr(hir.ExprBinary, v, &hir.BinaryData{Op: compareOp(op), Left: left, Right: right})
		if acc == nil {
			acc = cmp
		} else {
			acc = l.expr(hir.ExprBinary, v, &hir.BinaryData{Op: hir.OpAnd, Left: acc, Right: cmp})
		}
		left = l.lowerExpr(v.Comparators[i])
	}
	return acc
}

func (l *lowerer) lowerKwargs(c *pyast.Call) []*hir.Kwarg {
	var out []*hir.Kwarg
	for _, kw := range c.Keywords {
		if kw.Name == "" {
			l.unsupported(diag.UnsStarArgs, kw, "**kwargs at a call site is not supported")
			continue
		}
		out = append(out, &hir.Kwarg{Name: kw.Name, Value: l.lowerExpr(kw.Value)})
	}
	return out
}

func (l *lowerer) lowerCall(c *pyast.Call) *hir.Expr {
	args := make([]*hir.Expr, 0, len(c.Args))
	for _, a := range c.Args {
		if s, ok := a.(*pyast.Starred); ok {
			l.unsupported(diag.UnsStarArgs, s, "*args at a call site is not supported")
			continue
		}
		args = append(args, l.lowerExpr(a))
	}
	kwargs := l.lowerKwargs(c)

	switch fn := c.Func.(type) {
	case *pyast.Name:
		name := ident(fn.ID)
		if !l.isLocal(name) {
			switch {
			case reflectionBuiltins[name]:
				l.unsupported(diag.UnsReflection, c, "%s() relies on runtime reflection", name)
				return l.placeholder(c, name)
			case attrMutationBuiltins[name]:
				l.unsupported(diag.UnsAttrMutation, c, "%s() mutates attributes dynamically", name)
				return l.placeholder(c, name)
			case name == "sorted" && len(args) == 1:
				if key := findKw(kwargs, "key"); key != nil {
					return l.expr(hir.ExprSortByKey, c, &hir.SortByKeyData{Iter: args[0], Key: key, Reverse: findKw(kwargs, "reverse")})
				}
			}
		}
		return l.expr(hir.ExprCall, c, &hir.CallData{Func: name, Args: args, Kwargs: kwargs})
	case *pyast.Attribute:
		if imp := l.moduleRef(fn.Value); imp != nil {
			l.record(trace.DecisionMethodDispatch, imp.Module+"."+fn.Attr, "module function", l.span(c))
			return l.expr(hir.ExprMethodCall, c, &hir.MethodCallData{Method: fn.Attr, Args: args, Kwargs: kwargs, Module: imp})
		}
		recv := l.lowerExpr(fn.Value)
		return l.expr(hir.ExprMethodCall, c, &hir.MethodCallData{Recv: recv, Method: fn.Attr, Args: args, Kwargs: kwargs})
	}
	callee := l.lowerExpr(c.Func)
	if len(kwargs) > 0 {
		l.unsupported(diag.UnsStarArgs, c, "keyword arguments on a computed callee are not supported")
	}
	return l.expr(hir.ExprDynCall, c, &hir.DynCallData{Callee: callee, Args: args})
}

func findKw(kws []*hir.Kwarg, name string) *hir.Expr {
	for _, kw := range kws {
		if kw.Name == name {
			return kw.Value
		}
	}
	return nil
}

func (l *lowerer) lowerComp(n pyast.Expr, kind hir.CompKind, elem, value pyast.Expr, gens []*pyast.Comprehension) *hir.Expr {
	saved := l.bound
	l.bound = cloneSet(saved)
	defer func() { l.bound = saved }()
	d := &hir.CompData{Kind: kind}
	for _, g := range gens {
		if g.IsAsync {
			l.unsupported(diag.UnsExpression, n, "async comprehension is not supported")
		}
		iter := l.lowerExpr(g.Iter)
		d.Gens = append(d.Gens, &hir.Generator{Target: l.lowerTarget(g.Target), Iter: iter, Ifs: l.lowerExprs(g.Ifs)})
	}
	d.Elem = l.lowerExpr(elem)
	d.Value = l.lowerExpr(value)
	return l.expr(hir.ExprComp, n, d)
}

func (l *lowerer) lowerLambda(v *pyast.Lambda) *hir.Expr {
	saved := l.bound
	l.bound = cloneSet(saved)
	defer func() { l.bound = saved }()
	params := l.lowerParams(v.Args, &hir.Func{})
	return l.expr(hir.ExprLambda, v, &hir.LambdaData{Params: params, Body: l.lowerExpr(v.Body)})
}

func cloneSet(s *set.Set[string]) *set.Set[string] {
	if s == nil {
		return set.New[string](4)
	}
	return s.Copy()
}

func (l *lowerer) lowerFString(v *pyast.JoinedStr) *hir.Expr {
	d := &hir.FStringData{}
	for _, part := range v.Values {
		switch p := part.(type) {
		case *pyast.Constant:
			d.Parts = append(d.Parts, &hir.FPart{Lit: p.Value.Str})
		case *pyast.FormattedValue:
			fp := &hir.FPart{Expr: l.lowerExpr(p.Value)}
			if p.Conversion > 0 {
				fp.Conv = rune(p.Conversion)
			}
			if p.FormatSpec != nil {
				fp.Spec = l.formatSpec(p.FormatSpec)
			}
			d.Parts = append(d.Parts, fp)
		default:
			l.unsupported(diag.UnsExpression, part, "unsupported f-string part")
		}
	}
	return l.expr(hir.ExprFString, v, d)
}

// formatSpec flattens a constant format spec such as ".2f".
func (l *lowerer) formatSpec(e pyast.Expr) string {
	js, ok := e.(*pyast.JoinedStr)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, p := range js.Values {
		c, ok := p.(*pyast.Constant)
		if !ok {
			l.unsupported(diag.UnsExpression, p, "computed format spec is not supported")
			continue
		}
		b.WriteString(c.Value.Str)
	}
	return b.String()
}

func binaryOp(op pyast.Operator) hir.BinaryOp {
	switch op {
	case pyast.Add:
		return hir.OpAdd
	case pyast.Sub:
		return hir.OpSub
	case pyast.Mult:
		return hir.OpMul
	case pyast.MatMult:
		return hir.OpMatMul
	case pyast.Div:
		return hir.OpDiv
	case pyast.Mod:
		return hir.OpMod
	case pyast.Pow:
		return hir.OpPow
	case pyast.LShift:
		return hir.OpLShift
	case pyast.RShift:
		return hir.OpRShift
	case pyast.BitOr:
		return hir.OpBitOr
	case pyast.BitXor:
		return hir.OpBitXor
	case pyast.BitAnd:
		return hir.OpBitAnd
	case pyast.FloorDiv:
		return hir.OpFloorDiv
	}
	panic("bridge: unknown operator " + string(op))
}

func unaryOp(op pyast.UnaryOperator) hir.UnaryOp {
	switch op {
	case pyast.USub:
		return hir.OpNeg
	case pyast.UAdd:
		return hir.OpPos
	case pyast.Not:
		return hir.OpNot
	case pyast.Invert:
		return hir.OpInvert
	}
	panic("bridge: unknown unary operator " + string(op))
}

func compareOp(op pyast.CmpOperator) hir.BinaryOp {
	switch op {
	case pyast.Eq:
		return hir.OpEq
	case pyast.NotEq:
		return hir.OpNotEq
	case pyast.Lt:
		return hir.OpLt
	case pyast.LtE:
		return hir.OpLtE
	case pyast.Gt:
		return hir.OpGt
	case pyast.GtE:
		return hir.OpGtE
	case pyast.Is:
		return hir.OpIs
	case pyast.IsNot:
		return hir.OpIsNot
	case pyast.In:
		return hir.OpIn
	case pyast.NotIn:
		return hir.OpNotIn
	}
	panic("bridge: unknown comparison " + string(op))
}
