package bridge

import (
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/source"
)

func (l *lowerer) lowerStmts(stmts []pyast.Stmt) []*hir.Stmt {
	out := make([]*hir.Stmt, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, l.lowerStmt(s)...)
	}
	return out
}

func (l *lowerer) block(stmts []pyast.Stmt) *hir.Block {
	b := &hir.Block{Stmts: l.lowerStmts(stmts)}
	if len(stmts) > 0 {
		b.Span = l.span(stmts[0]).Cover(l.span(stmts[len(stmts)-1]))
	}
	return b
}

func (l *lowerer) stmt(kind hir.StmtKind, n pyast.Node, data hir.StmtData) *hir.Stmt {
	return &hir.Stmt{Kind: kind, Span: l.span(n), Data: data}
}

func (l *lowerer) lowerStmt(s pyast.Stmt) []*hir.Stmt {
	one := func(st *hir.Stmt) []*hir.Stmt { return []*hir.Stmt{st} }
	switch v := s.(type) {
	case *pyast.FunctionDef:
		fn := l.lowerFunc(v, nil)
		l.bind(fn.Name)
		return one(l.stmt(hir.StmtFuncDef, v, &hir.FuncDefData{Func: fn}))
	case *pyast.ClassDef:
		l.unsupported(diag.UnsStatement, v, "class %s defined inside a function is not supported", v.Name)
		return one(l.stmt(hir.StmtUnsupported, v, &hir.UnsupportedData{What: "nested class"}))
	case *pyast.Return:
		d := &hir.ReturnData{}
		if v.Value != nil {
			d.Value = l.lowerExpr(v.Value)
		}
		return one(l.stmt(hir.StmtReturn, v, d))
	case *pyast.Delete:
		return l.lowerDelete(v)
	case *pyast.Assign:
		return l.lowerAssign(v)
	case *pyast.AugAssign:
		value := l.lowerExpr(v.Value)
		return one(l.stmt(hir.StmtAugAssign, v, &hir.AugAssignData{
			Target: l.lowerTarget(v.Target), Op: binaryOp(v.Op), Value: value,
		}))
	case *pyast.AnnAssign:
		d := &hir.AssignData{Declared: l.typeOf(v.Annotation)}
		if v.Value != nil {
			d.Value = l.lowerExpr(v.Value)
		}
		d.Target = l.lowerTarget(v.Target)
		return one(l.stmt(hir.StmtAssign, v, d))
	case *pyast.For:
		return one(l.lowerFor(v))
	case *pyast.While:
		return one(l.lowerWhile(v))
	case *pyast.If:
		d := &hir.IfData{Cond: l.lowerExpr(v.Test), Then: l.block(v.Body)}
		if len(v.Orelse) > 0 {
			d.Else = l.block(v.Orelse)
		}
		return one(l.stmt(hir.StmtIf, v, d))
	case *pyast.With:
		return one(l.lowerWith(v))
	case *pyast.Raise:
		return one(l.lowerRaise(v))
	case *pyast.Try:
		return one(l.lowerTry(v))
	case *pyast.Assert:
		d := &hir.AssertData{Test: l.lowerExpr(v.Test)}
		if v.Msg != nil {
			d.Msg = l.lowerExpr(v.Msg)
		}
		return one(l.stmt(hir.StmtAssert, v, d))
	case *pyast.Import:
		l.lowerImport(v)
		return nil
	case *pyast.ImportFrom:
		l.lowerImportFrom(v)
		return nil
	case *pyast.Global:
		if l.fn != nil {
			for _, name := range v.Names {
				l.fn.Globals.Insert(ident(name))
			}
		}
		return nil
	case *pyast.Nonlocal:
		l.unsupported(diag.UnsGlobalScope, v, "nonlocal is not supported; pass the value explicitly")
		return nil
	case *pyast.ExprStmt:
		if c, ok := v.Value.(*pyast.Constant); ok && (c.Value.Kind == pyast.ConstStr || c.Value.Kind == pyast.ConstEllipsis) {
			return nil
		}
		return one(l.stmt(hir.StmtExpr, v, &hir.ExprStmtData{Value: l.lowerExpr(v.Value)}))
	case *pyast.Pass:
		return one(l.stmt(hir.StmtPass, v, nil))
	case *pyast.Break:
		d := &hir.BranchData{}
		if n := len(l.loops); n > 0 {
			d.Label = l.loops[n-1].elseLabel
		}
		return one(l.stmt(hir.StmtBreak, v, d))
	case *pyast.Continue:
		return one(l.stmt(hir.StmtContinue, v, &hir.BranchData{}))
	case *pyast.TypeAlias:
		l.unsupported(diag.UnsStatement, v, "type alias inside a function is not supported")
		return nil
	case *pyast.BadStmt:
		l.unsupported(diag.UnsStatement, v, "unsupported statement %s", v.Kind)
		return one(l.stmt(hir.StmtUnsupported, v, &hir.UnsupportedData{What: v.Kind}))
	}
	l.unsupported(diag.UnsStatement, s, "unsupported statement")
	return one(l.stmt(hir.StmtUnsupported, s, &hir.UnsupportedData{What: "statement"}))
}

// lowerAssign handles single, chained (a = b = v) and destructuring
// assignments. Chained targets after the first copy from the first.
func (l *lowerer) lowerAssign(v *pyast.Assign) []*hir.Stmt {
	value := l.lowerExpr(v.Value)
	first := l.lowerTarget(v.Targets[0])
	out := []*hir.Stmt{l.stmt(hir.StmtAssign, v, &hir.AssignData{Target: first, Value: value})}
	for _, t := range v.Targets[1:] {
		if first.Kind != hir.TargetSymbol {
			l.unsupported(diag.UnsDestructure, v, "chained assignment must start with a plain name")
			break
		}
		src := &hir.Expr{Kind: hir.ExprName, Span: first.Span, Data: &hir.NameData{Name: first.Name}}
		out = append(out, l.stmt(hir.StmtAssign, v, &hir.AssignData{Target: l.lowerTarget(t), Value: src}))
	}
	return out
}

// lowerDelete maps `del c[k]` onto a removal call and `del x` onto drop.
func (l *lowerer) lowerDelete(v *pyast.Delete) []*hir.Stmt {
	var out []*hir.Stmt
	for _, t := range v.Targets {
		switch tt := t.(type) {
		case *pyast.Subscript:
			if _, ok := tt.Slice.(*pyast.Slice); ok {
				l.unsupported(diag.UnsStatement, t, "del of a slice is not supported")
				continue
			}
			call := &hir.Expr{Kind: hir.ExprMethodCall, Span: l.span(t), Data: &hir.MethodCallData{
				Recv: l.lowerExpr(tt.Value), Method: "__delitem__", Args: []*hir.Expr{l.lowerExpr(tt.Slice)},
			}}
			out = append(out, l.stmt(hir.StmtExpr, v, &hir.ExprStmtData{Value: call}))
		case *pyast.Name:
			call := &hir.Expr{Kind: hir.ExprCall, Span: l.span(t), Data: &hir.CallData{
				Func: "drop", Args: []*hir.Expr{l.lowerExpr(tt)},
			}}
			out = append(out, l.stmt(hir.StmtExpr, v, &hir.ExprStmtData{Value: call}))
		default:
			l.unsupported(diag.UnsStatement, t, "unsupported del target")
		}
	}
	return out
}

func (l *lowerer) lowerTarget(e pyast.Expr) *hir.Target {
	sp := l.span(e)
	switch v := e.(type) {
	case *pyast.Name:
		name := ident(v.ID)
		l.bind(name)
		return hir.SymbolTarget(name, sp)
	case *pyast.Subscript:
		if _, ok := v.Slice.(*pyast.Slice); ok {
			l.unsupported(diag.UnsDestructure, e, "assignment to a slice is not supported")
		}
		return &hir.Target{Kind: hir.TargetSubscript, Base: l.lowerExpr(v.Value), Index: l.lowerExpr(v.Slice), Span: sp}
	case *pyast.Attribute:
		return &hir.Target{Kind: hir.TargetAttribute, Base: l.lowerExpr(v.Value), Field: v.Attr, Span: sp}
	case *pyast.Tuple:
		return l.tupleTarget(v.Elts, sp)
	case *pyast.List:
		return l.tupleTarget(v.Elts, sp)
	case *pyast.Starred:
		l.unsupported(diag.UnsDestructure, e, "starred assignment target is not supported")
		return hir.SymbolTarget("_", sp)
	}
	l.unsupported(diag.UnsDestructure, e, "unsupported assignment target")
	return hir.SymbolTarget("_", sp)
}

func (l *lowerer) tupleTarget(elts []pyast.Expr, sp source.Span) *hir.Target {
	t := &hir.Target{Kind: hir.TargetTuple, Span: sp}
	for _, e := range elts {
		t.Elems = append(t.Elems, l.lowerTarget(e))
	}
	return t
}

func (l *lowerer) pushLoop(hasElse bool) string {
	ctx := loopCtx{}
	if hasElse {
		ctx.elseLabel = l.newLabel("loop_else")
	}
	l.loops = append(l.loops, ctx)
	return ctx.elseLabel
}

func (l *lowerer) popLoop() { l.loops = l.loops[:len(l.loops)-1] }

// wrapElse places a loop with an else clause in a labelled block:
// breaking out of the loop skips the else statements that follow it.
func (l *lowerer) wrapElse(loop *hir.Stmt, label string, orelse []pyast.Stmt, n pyast.Node) *hir.Stmt {
	if label == "" {
		return loop
	}
	body := &hir.Block{Stmts: append([]*hir.Stmt{loop}, l.lowerStmts(orelse)...), Span: loop.Span}
	return l.stmt(hir.StmtBlock, n, &hir.BlockData{Body: body, Label: label})
}

func (l *lowerer) lowerFor(v *pyast.For) *hir.Stmt {
	if v.IsAsync {
		l.unsupported(diag.UnsStatement, v, "async for is not supported")
	}
	iter := l.lowerExpr(v.Iter)
	target := l.lowerTarget(v.Target)
	label := l.pushLoop(len(v.Orelse) > 0)
	body := l.block(v.Body)
	l.popLoop()
	loop := l.stmt(hir.StmtFor, v, &hir.ForData{Target: target, Iter: iter, Body: body})
	return l.wrapElse(loop, label, v.Orelse, v)
}

func (l *lowerer) lowerWhile(v *pyast.While) *hir.Stmt {
	cond := l.lowerExpr(v.Test)
	label := l.pushLoop(len(v.Orelse) > 0)
	body := l.block(v.Body)
	l.popLoop()
	loop := l.stmt(hir.StmtWhile, v, &hir.WhileData{Cond: cond, Body: body})
	return l.wrapElse(loop, label, v.Orelse, v)
}

func (l *lowerer) lowerWith(v *pyast.With) *hir.Stmt {
	if v.IsAsync {
		l.unsupported(diag.UnsStatement, v, "async with is not supported")
	}
	d := &hir.WithData{}
	for _, it := range v.Items {
		wi := &hir.WithItem{Context: l.lowerExpr(it.Context)}
		switch vars := it.Vars.(type) {
		case nil:
		case *pyast.Name:
			wi.Name = ident(vars.ID)
			l.bind(wi.Name)
		default:
			l.unsupported(diag.UnsDestructure, v, "with target must be a plain name")
		}
		d.Items = append(d.Items, wi)
	}
	d.Body = l.block(v.Body)
	return l.stmt(hir.StmtWith, v, d)
}

func (l *lowerer) lowerRaise(v *pyast.Raise) *hir.Stmt {
	d := &hir.RaiseData{}
	if v.Exc == nil {
		return l.stmt(hir.StmtRaise, v, d)
	}
	d.Exc = l.lowerExpr(v.Exc)
	switch e := v.Exc.(type) {
	case *pyast.Call:
		d.Class = lastSegment(dottedName(e.Func))
		if len(e.Args) > 0 {
			d.Message = l.lowerExpr(e.Args[0])
		}
	case *pyast.Name, *pyast.Attribute:
		d.Class = lastSegment(dottedName(e))
	}
	return l.stmt(hir.StmtRaise, v, d)
}

func (l *lowerer) lowerTry(v *pyast.Try) *hir.Stmt {
	d := &hir.TryData{Body: l.block(v.Body)}
	for _, h := range v.Handlers {
		hd := &hir.Handler{Span: l.span(h)}
		switch t := h.Type.(type) {
		case nil:
		case *pyast.Tuple:
			for _, e := range t.Elts {
				hd.Classes = append(hd.Classes, lastSegment(dottedName(e)))
			}
		default:
			hd.Classes = []string{lastSegment(dottedName(t))}
		}
		if h.Name != "" {
			hd.Name = ident(h.Name)
			l.bind(hd.Name)
		}
		hd.Body = l.block(h.Body)
		d.Handlers = append(d.Handlers, hd)
	}
	if len(v.Orelse) > 0 {
		d.Else = l.block(v.Orelse)
	}
	if len(v.Finalbody) > 0 {
		d.Finally = l.block(v.Finalbody)
	}
	return l.stmt(hir.StmtTry, v, d)
}

func lastSegment(dotted string) string {
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' {
			return dotted[i+1:]
		}
	}
	return dotted
}
