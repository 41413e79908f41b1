package bridge

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// moduleScan is what lowering needs to know about the whole module
// before visiting statements in order.
type moduleScan struct {
	globalDecl   *set.Set[string] // names declared `global` in some function
	usedInFuncs  *set.Set[string] // names loaded inside function bodies
	assignCounts map[string]int   // module-level assignments per name
	typeVars     *set.Set[string]
}

func (l *lowerer) scanModule(mod *pyast.Module) *moduleScan {
	sc := &moduleScan{
		globalDecl:   set.New[string](0),
		usedInFuncs:  set.New[string](0),
		assignCounts: map[string]int{},
		typeVars:     set.New[string](0),
	}
	for _, s := range mod.Body {
		switch st := s.(type) {
		case *pyast.ClassDef:
			l.classes[ident(st.Name)] = true
			if isProtocolClass(st) {
				l.protocols[ident(st.Name)] = true
			}
		case *pyast.Assign:
			for _, t := range st.Targets {
				if n, ok := t.(*pyast.Name); ok {
					sc.assignCounts[ident(n.ID)]++
					if isTypeVarCall(st.Value) {
						sc.typeVars.Insert(ident(n.ID))
					}
				}
			}
		case *pyast.AnnAssign:
			if n, ok := st.Target.(*pyast.Name); ok && st.Value != nil {
				sc.assignCounts[ident(n.ID)]++
			}
		case *pyast.AugAssign:
			if n, ok := st.Target.(*pyast.Name); ok {
				sc.assignCounts[ident(n.ID)]++
			}
		}
		switch s.(type) {
		case *pyast.FunctionDef, *pyast.ClassDef:
			pyast.Inspect(s, func(n pyast.Node) bool {
				switch v := n.(type) {
				case *pyast.Global:
					for _, name := range v.Names {
						sc.globalDecl.Insert(ident(name))
					}
				case *pyast.Name:
					sc.usedInFuncs.Insert(ident(v.ID))
				}
				return true
			})
		}
	}
	return sc
}

func isTypeVarCall(e pyast.Expr) bool {
	c, ok := e.(*pyast.Call)
	if !ok {
		return false
	}
	switch f := c.Func.(type) {
	case *pyast.Name:
		return f.ID == "TypeVar"
	case *pyast.Attribute:
		return f.Attr == "TypeVar"
	}
	return false
}

func isProtocolClass(c *pyast.ClassDef) bool {
	for _, b := range c.Bases {
		switch v := b.(type) {
		case *pyast.Name:
			if v.ID == "Protocol" {
				return true
			}
		case *pyast.Attribute:
			if v.Attr == "Protocol" {
				return true
			}
		case *pyast.Subscript:
			if n, ok := v.Value.(*pyast.Name); ok && n.ID == "Protocol" {
				return true
			}
		}
	}
	return false
}

func (l *lowerer) lowerModule(mod *pyast.Module) {
	sc := l.scanModule(mod)
	l.typeVars = sc.typeVars
	body := mod.Body
	if doc, ok := docstring(body); ok {
		l.module.Doc = doc
		body = body[1:]
	}
	for _, s := range body {
		switch st := s.(type) {
		case *pyast.Import:
			l.lowerImport(st)
		case *pyast.ImportFrom:
			l.lowerImportFrom(st)
		case *pyast.FunctionDef:
			l.module.Funcs = append(l.module.Funcs, l.lowerFunc(st, nil))
		case *pyast.ClassDef:
			if l.protocols[ident(st.Name)] {
				l.module.Protocols = append(l.module.Protocols, l.lowerProtocol(st))
			} else if c := l.lowerClass(st); c != nil {
				l.module.Classes = append(l.module.Classes, c)
			}
		case *pyast.TypeAlias:
			if n, ok := st.Name.(*pyast.Name); ok {
				l.module.TypeAliases = append(l.module.TypeAliases, &hir.TypeAlias{
					Name: ident(n.ID), Type: l.typeOf(st.Value), Span: l.span(st),
				})
			}
		case *pyast.If:
			if isMainGuard(st.Test) {
				l.lowerEntry(st.Body)
				if len(st.Orelse) > 0 {
					l.unsupported(diag.UnsStatement, st, "else branch of the __main__ guard is ignored")
				}
				continue
			}
			l.lowerEntry([]pyast.Stmt{st})
		case *pyast.Assign, *pyast.AnnAssign:
			if !l.lowerModuleBinding(s, sc) {
				l.lowerEntry([]pyast.Stmt{s})
			}
		default:
			l.lowerEntry([]pyast.Stmt{s})
		}
	}
	l.finishEntry()
}

// lowerModuleBinding turns a module-level assignment into a global when
// functions refer to it, or into a type alias. It returns false when the
// statement belongs to the entry function instead.
func (l *lowerer) lowerModuleBinding(s pyast.Stmt, sc *moduleScan) bool {
	var name string
	var value, annotation pyast.Expr
	switch st := s.(type) {
	case *pyast.Assign:
		if len(st.Targets) != 1 {
			return false
		}
		n, ok := st.Targets[0].(*pyast.Name)
		if !ok {
			return false
		}
		name, value = ident(n.ID), st.Value
	case *pyast.AnnAssign:
		n, ok := st.Target.(*pyast.Name)
		if !ok || st.Value == nil {
			return false
		}
		name, value, annotation = ident(n.ID), st.Value, st.Annotation
		if isTypeAliasAnnotation(annotation) {
			l.module.TypeAliases = append(l.module.TypeAliases, &hir.TypeAlias{Name: name, Type: l.typeOf(value), Span: l.span(s)})
			return true
		}
	}
	if sc.typeVars.Contains(name) {
		return true
	}
	if annotation == nil && looksLikeTypeExpr(value) && isTypeName(name) {
		l.module.TypeAliases = append(l.module.TypeAliases, &hir.TypeAlias{Name: name, Type: l.typeOf(value), Span: l.span(s)})
		return true
	}
	if existing := l.module.Global(name); existing != nil {
		// Later module-level rebinding of a global runs in the entry.
		return false
	}
	if !sc.usedInFuncs.Contains(name) && !sc.globalDecl.Contains(name) {
		return false
	}
	g := &hir.Global{Name: name, Value: l.lowerExpr(value), Span: l.span(s)}
	if annotation != nil {
		g.Type = l.typeOf(annotation)
	}
	switch {
	case sc.globalDecl.Contains(name) || sc.assignCounts[name] > 1:
		g.Kind = hir.GlobalMutable
	case isPrimitiveLiteral(g.Value):
		g.Kind = hir.GlobalConst
	default:
		g.Kind = hir.GlobalStatic
	}
	l.module.Globals = append(l.module.Globals, g)
	return true
}

func isTypeAliasAnnotation(e pyast.Expr) bool {
	switch v := e.(type) {
	case *pyast.Name:
		return v.ID == "TypeAlias"
	case *pyast.Attribute:
		return v.Attr == "TypeAlias"
	}
	return false
}

// isTypeName follows the convention that aliases are capitalized.
func isTypeName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z' && name != upper(name)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

// looksLikeTypeExpr accepts subscripted typing constructs such as
// List[int] or Dict[str, Optional[int]].
func looksLikeTypeExpr(e pyast.Expr) bool {
	sub, ok := e.(*pyast.Subscript)
	if !ok {
		return false
	}
	var base string
	switch v := sub.Value.(type) {
	case *pyast.Name:
		base = v.ID
	case *pyast.Attribute:
		base = v.Attr
	}
	switch base {
	case "List", "Dict", "Set", "Tuple", "Optional", "Union", "Callable", "Iterator", "Iterable",
		"list", "dict", "set", "tuple", "frozenset", "FrozenSet", "Sequence", "Mapping":
		return true
	}
	return false
}

func isPrimitiveLiteral(e *hir.Expr) bool {
	if e == nil {
		return false
	}
	switch d := e.Data.(type) {
	case *hir.LiteralData:
		return d.Kind != hir.LiteralBytes && d.Kind != hir.LiteralNone
	case *hir.UnaryData:
		return d.Op == hir.OpNeg && isPrimitiveLiteral(d.Operand)
	}
	return false
}

func isMainGuard(test pyast.Expr) bool {
	cmp, ok := test.(*pyast.Compare)
	if !ok || len(cmp.Ops) != 1 || cmp.Ops[0] != pyast.Eq || len(cmp.Comparators) != 1 {
		return false
	}
	isName := func(e pyast.Expr) bool {
		n, ok := e.(*pyast.Name)
		return ok && n.ID == "__name__"
	}
	isMain := func(e pyast.Expr) bool {
		c, ok := e.(*pyast.Constant)
		return ok && c.Value.Kind == pyast.ConstStr && c.Value.Str == "__main__"
	}
	return (isName(cmp.Left) && isMain(cmp.Comparators[0])) || (isMain(cmp.Left) && isName(cmp.Comparators[0]))
}

func docstring(body []pyast.Stmt) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	es, ok := body[0].(*pyast.ExprStmt)
	if !ok {
		return "", false
	}
	c, ok := es.Value.(*pyast.Constant)
	if !ok || c.Value.Kind != pyast.ConstStr {
		return "", false
	}
	return c.Value.Str, true
}

// lowerEntry lowers top-level statements into the entry function body.
func (l *lowerer) lowerEntry(stmts []pyast.Stmt) {
	saved := funcState{fn: l.fn, loops: l.loops, bound: l.bound}
	if l.entryVars == nil {
		l.entryVars = set.New[string](8)
	}
	l.fn, l.loops, l.bound = l.entryFunc(), nil, l.entryVars
	l.module.Entry.Stmts = append(l.module.Entry.Stmts, l.lowerStmts(stmts)...)
	l.leaveFunc(saved)
}

func (l *lowerer) entryFunc() *hir.Func {
	if l.entry == nil {
		l.entry = &hir.Func{Name: "main", Flags: hir.FuncEntry, Result: types.None, Body: l.module.Entry, Globals: set.New[string](0)}
	}
	return l.entry
}

// finishEntry materializes the entry function. A bare `main()` call is
// dropped when the module defines main itself; any other entry code
// makes the user's main a regular function named main_impl.
func (l *lowerer) finishEntry() {
	user := l.module.Func("main")
	stmts := l.module.Entry.Stmts
	if user != nil && len(stmts) > 0 && isBareCall(stmts[len(stmts)-1], "main") {
		stmts = stmts[:len(stmts)-1]
		l.module.Entry.Stmts = stmts
		if len(stmts) == 0 {
			return
		}
	}
	if len(stmts) == 0 {
		return
	}
	if user != nil {
		user.Name = "main_impl"
		renameCalls(l.module, "main", "main_impl")
		l.module.Entry.Stmts = append(l.module.Entry.Stmts, &hir.Stmt{
			Kind: hir.StmtExpr,
			Data: &hir.ExprStmtData{Value: &hir.Expr{Kind: hir.ExprCall, Data: &hir.CallData{Func: "main_impl"}}},
		})
		l.record(trace.DecisionImportResolve, "main -> main_impl", "module has executable top-level code besides main()", user.Span)
	}
	fn := l.entryFunc()
	l.module.Funcs = append(l.module.Funcs, fn)
}

func isBareCall(s *hir.Stmt, name string) bool {
	es, ok := s.Data.(*hir.ExprStmtData)
	if !ok {
		return false
	}
	c, ok := es.Value.Data.(*hir.CallData)
	return ok && c.Func == name && len(c.Args) == 0 && len(c.Kwargs) == 0
}

func renameCalls(m *hir.Module, from, to string) {
	v := hir.Visitor{
		Nested: true,
		Expr: func(e *hir.Expr) bool {
			if c, ok := e.Data.(*hir.CallData); ok && c.Func == from {
				c.Func = to
			}
			return true
		},
	}
	for _, fn := range m.AllFuncs() {
		hir.Inspect(fn.Body, v)
	}
	hir.Inspect(m.Entry, v)
}
