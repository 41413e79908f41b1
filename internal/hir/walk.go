package hir

// Children returns the direct sub-expressions of e in evaluation order.
func Children(e *Expr) []*Expr {
	if e == nil {
		return nil
	}
	var out []*Expr
	add := func(xs ...*Expr) {
		for _, x := range xs {
			if x != nil {
				out = append(out, x)
			}
		}
	}
	addKw := func(kws []*Kwarg) {
		for _, kw := range kws {
			add(kw.Value)
		}
	}
	switch d := e.Data.(type) {
	case *BinaryData:
		add(d.Left, d.Right)
	case *UnaryData:
		add(d.Operand)
	case *CallData:
		add(d.Args...)
		addKw(d.Kwargs)
	case *DynCallData:
		add(d.Callee)
		add(d.Args...)
	case *MethodCallData:
		add(d.Recv)
		add(d.Args...)
		addKw(d.Kwargs)
	case *IndexData:
		add(d.Base, d.Index)
	case *SliceData:
		add(d.Base, d.Start, d.Stop, d.Step)
	case *AttrData:
		add(d.Base)
	case *ElemsData:
		add(d.Elems...)
	case *DictData:
		for i := range d.Values {
			if i < len(d.Keys) {
				add(d.Keys[i])
			}
			add(d.Values[i])
		}
	case *CompData:
		for _, g := range d.Gens {
			add(g.Iter)
			add(TargetExprs(g.Target)...)
			add(g.Ifs...)
		}
		add(d.Elem, d.Value)
	case *LambdaData:
		add(d.Body)
	case *BorrowData:
		add(d.Value)
	case *AwaitData:
		add(d.Value)
	case *YieldData:
		add(d.Value)
	case *FStringData:
		for _, p := range d.Parts {
			add(p.Expr)
		}
	case *NamedData:
		add(d.Value)
	case *IfExprData:
		add(d.Cond, d.Then, d.Else)
	case *SortByKeyData:
		add(d.Iter, d.Key, d.Reverse)
	}
	return out
}

// TargetExprs returns the expressions embedded in an assignment target.
func TargetExprs(t *Target) []*Expr {
	if t == nil {
		return nil
	}
	var out []*Expr
	if t.Base != nil {
		out = append(out, t.Base)
	}
	if t.Index != nil {
		out = append(out, t.Index)
	}
	for _, e := range t.Elems {
		out = append(out, TargetExprs(e)...)
	}
	return out
}

// StmtExprs returns the expressions a statement evaluates directly, not
// counting nested blocks.
func StmtExprs(s *Stmt) []*Expr {
	var out []*Expr
	add := func(xs ...*Expr) {
		for _, x := range xs {
			if x != nil {
				out = append(out, x)
			}
		}
	}
	switch d := s.Data.(type) {
	case *AssignData:
		add(d.Value)
		add(TargetExprs(d.Target)...)
	case *AugAssignData:
		add(TargetExprs(d.Target)...)
		add(d.Value)
	case *ReturnData:
		add(d.Value)
	case *IfData:
		add(d.Cond)
	case *WhileData:
		add(d.Cond)
	case *ForData:
		add(d.Iter)
	case *ExprStmtData:
		add(d.Value)
	case *RaiseData:
		add(d.Exc)
	case *WithData:
		for _, it := range d.Items {
			add(it.Context)
		}
	case *AssertData:
		add(d.Test, d.Msg)
	}
	return out
}

// StmtBlocks returns nested blocks in source order. Nested function
// bodies are not included.
func StmtBlocks(s *Stmt) []*Block {
	var out []*Block
	add := func(bs ...*Block) {
		for _, b := range bs {
			if b != nil {
				out = append(out, b)
			}
		}
	}
	switch d := s.Data.(type) {
	case *IfData:
		add(d.Then, d.Else)
	case *WhileData:
		add(d.Body)
	case *ForData:
		add(d.Body)
	case *WithData:
		add(d.Body)
	case *TryData:
		add(d.Body)
		for _, h := range d.Handlers {
			add(h.Body)
		}
		add(d.Else, d.Finally)
	case *BlockData:
		add(d.Body)
	}
	return out
}

// Visitor receives statements and expressions during Inspect. Returning
// false from either callback skips that node's children.
type Visitor struct {
	Stmt func(*Stmt) bool
	Expr func(*Expr) bool
	// Nested controls descent into nested function bodies.
	Nested bool
}

// Inspect walks a block in program order.
func Inspect(b *Block, v Visitor) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		InspectStmt(s, v)
	}
}

// InspectStmt walks one statement.
func InspectStmt(s *Stmt, v Visitor) {
	if s == nil {
		return
	}
	if v.Stmt != nil && !v.Stmt(s) {
		return
	}
	for _, e := range StmtExprs(s) {
		InspectExpr(e, v)
	}
	for _, b := range StmtBlocks(s) {
		Inspect(b, v)
	}
	if fd, ok := s.Data.(*FuncDefData); ok && v.Nested && fd.Func != nil {
		Inspect(fd.Func.Body, v)
	}
}

// InspectExpr walks an expression tree pre-order.
func InspectExpr(e *Expr, v Visitor) {
	if e == nil {
		return
	}
	if v.Expr != nil && !v.Expr(e) {
		return
	}
	for _, c := range Children(e) {
		InspectExpr(c, v)
	}
}

// ContainsYield reports whether a body yields, ignoring nested defs and
// lambdas.
func ContainsYield(b *Block) bool {
	found := false
	Inspect(b, Visitor{
		Expr: func(e *Expr) bool {
			if found || e.Kind == ExprLambda {
				return false
			}
			if e.Kind == ExprYield {
				found = true
				return false
			}
			return true
		},
	})
	return found
}
