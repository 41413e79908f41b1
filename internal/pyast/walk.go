package pyast

// Inspect traverses the tree rooted at n in source order, calling f for
// every node; f returning false prunes that node's children. Nested
// function and class bodies are visited.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || isNilNode(n) || !f(n) {
		return
	}
	for _, c := range children(n) {
		Inspect(c, f)
	}
}

// InspectBody runs Inspect over a statement list.
func InspectBody(body []Stmt, f func(Node) bool) {
	for _, s := range body {
		Inspect(s, f)
	}
}

func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *Name:
		return v == nil
	case *Arg:
		return v == nil
	}
	return false
}

func children(n Node) []Node {
	var out []Node
	exprs := func(es ...Expr) {
		for _, e := range es {
			if e != nil {
				out = append(out, e)
			}
		}
	}
	stmts := func(ss []Stmt) {
		for _, s := range ss {
			out = append(out, s)
		}
	}
	argsOf := func(a *Arguments) {
		if a == nil {
			return
		}
		exprs(a.Defaults...)
		exprs(a.KwDefaults...)
	}
	comps := func(gens []*Comprehension) {
		for _, g := range gens {
			exprs(g.Target, g.Iter)
			exprs(g.Ifs...)
		}
	}
	switch v := n.(type) {
	case *FunctionDef:
		exprs(v.Decorators...)
		argsOf(v.Args)
		stmts(v.Body)
	case *ClassDef:
		exprs(v.Decorators...)
		exprs(v.Bases...)
		stmts(v.Body)
	case *Return:
		exprs(v.Value)
	case *Delete:
		exprs(v.Targets...)
	case *Assign:
		exprs(v.Targets...)
		exprs(v.Value)
	case *AugAssign:
		exprs(v.Target, v.Value)
	case *AnnAssign:
		exprs(v.Target, v.Value)
	case *For:
		exprs(v.Target, v.Iter)
		stmts(v.Body)
		stmts(v.Orelse)
	case *While:
		exprs(v.Test)
		stmts(v.Body)
		stmts(v.Orelse)
	case *If:
		exprs(v.Test)
		stmts(v.Body)
		stmts(v.Orelse)
	case *With:
		for _, it := range v.Items {
			exprs(it.Context, it.Vars)
		}
		stmts(v.Body)
	case *Raise:
		exprs(v.Exc, v.Cause)
	case *Try:
		stmts(v.Body)
		for _, h := range v.Handlers {
			out = append(out, h)
		}
		stmts(v.Orelse)
		stmts(v.Finalbody)
	case *ExceptHandler:
		exprs(v.Type)
		stmts(v.Body)
	case *Assert:
		exprs(v.Test, v.Msg)
	case *ExprStmt:
		exprs(v.Value)
	case *BoolOp:
		exprs(v.Values...)
	case *NamedExpr:
		exprs(v.Target, v.Value)
	case *BinOp:
		exprs(v.Left, v.Right)
	case *UnaryOp:
		exprs(v.Operand)
	case *Lambda:
		argsOf(v.Args)
		exprs(v.Body)
	case *IfExp:
		exprs(v.Test, v.Body, v.Orelse)
	case *Dict:
		exprs(v.Keys...)
		exprs(v.Values...)
	case *Set:
		exprs(v.Elts...)
	case *ListComp:
		comps(v.Generators)
		exprs(v.Elt)
	case *SetComp:
		comps(v.Generators)
		exprs(v.Elt)
	case *GeneratorExp:
		comps(v.Generators)
		exprs(v.Elt)
	case *DictComp:
		comps(v.Generators)
		exprs(v.Key, v.Value)
	case *Await:
		exprs(v.Value)
	case *Yield:
		exprs(v.Value)
	case *YieldFrom:
		exprs(v.Value)
	case *Compare:
		exprs(v.Left)
		exprs(v.Comparators...)
	case *Call:
		exprs(v.Func)
		exprs(v.Args...)
		for _, kw := range v.Keywords {
			exprs(kw.Value)
		}
	case *FormattedValue:
		exprs(v.Value, v.FormatSpec)
	case *JoinedStr:
		exprs(v.Values...)
	case *Attribute:
		exprs(v.Value)
	case *Subscript:
		exprs(v.Value, v.Slice)
	case *Starred:
		exprs(v.Value)
	case *List:
		exprs(v.Elts...)
	case *Tuple:
		exprs(v.Elts...)
	case *Slice:
		exprs(v.Lower, v.Upper, v.Step)
	}
	return out
}
