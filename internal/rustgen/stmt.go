package rustgen

import (
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

func (f *funcEmitter) block(b *hir.Block) {
	f.scope.Enter()
	if b != nil {
		f.stmtList(b.Stmts)
	}
	f.scope.Exit()
}

func (f *funcEmitter) stmtList(stmts []*hir.Stmt) {
	f.stmtsBefore(stmts, nil)
}

// stmtsBefore emits stmts when tail follows them in the same Rust block
// but is emitted separately, as a tail expression or super call does.
func (f *funcEmitter) stmtsBefore(stmts, tail []*hir.Stmt) {
	for i, s := range stmts {
		rest := append(append([]*hir.Stmt(nil), stmts[i+1:]...), tail...)
		f.hoist(s, rest)
		f.stmt(s)
	}
}

func (f *funcEmitter) stmt(s *hir.Stmt) {
	f.predeclare(s)
	switch d := s.Data.(type) {
	case *hir.AssignData:
		f.assign(s, d)
	case *hir.AugAssignData:
		f.augAssign(s, d)
	case *hir.ReturnData:
		f.returnStmt(d)
	case *hir.IfData:
		f.ifStmt(d, false)
	case *hir.WhileData:
		f.whileStmt(d)
	case *hir.ForData:
		f.forStmt(d)
	case *hir.BranchData:
		f.branch(s, d)
	case *hir.ExprStmtData:
		f.exprStmt(d.Value)
	case *hir.RaiseData:
		f.raise(s, d)
	case *hir.WithData:
		f.with(d)
	case *hir.TryData:
		f.try(s, d)
	case *hir.AssertData:
		if d.Msg != nil {
			f.line("assert!(%s, \"{}\", %s);", f.cond(d.Test), f.expr(d.Msg))
		} else {
			f.line("assert!(%s);", f.cond(d.Test))
		}
	case *hir.BlockData:
		if d.Label != "" {
			f.line("%s: {", label(d.Label))
			f.labels = append(f.labels, d.Label)
		} else {
			f.line("{")
		}
		f.indent++
		f.block(d.Body)
		f.indent--
		if d.Label != "" {
			f.labels = f.labels[:len(f.labels)-1]
		}
		f.line("}")
	case *hir.FuncDefData:
		f.funcDef(d)
	case *hir.UnsupportedData:
		f.report(diag.GenUnsupportedStmt, s.Span, "no translation for %s", d.What)
		f.line("// unsupported: %s", d.What)
	}
}

// hoist declares bindings that the compound statement s assigns and
// rest reads, so they outlive the Rust block they are assigned in. An
// if/else assigning in both arms gets `let mut x;` before the if.
func (f *funcEmitter) hoist(s *hir.Stmt, rest []*hir.Stmt) {
	initialize := true
	switch s.Data.(type) {
	case *hir.IfData, *hir.WithData, *hir.BlockData:
		initialize = false
	case *hir.TryData, *hir.WhileData, *hir.ForData:
	default:
		return
	}
	for _, name := range assignedIn(s) {
		if f.scope.IsDeclared(name) || f.global(name) != nil || f.fields[name] != "" {
			continue
		}
		t := f.fn.LocalType(name)
		if t == nil || !readBeforeWrite(rest, name) {
			continue
		}
		if t.Kind == types.KindIterator || t.Kind == types.KindFunc {
			continue
		}
		if initialize || !definitelyAssigns(s, name) {
			f.line("let mut %s: %s = %s;", SafeIdent(name), f.rust(t), f.e.mapper.Default(t))
		} else {
			f.line("let mut %s: %s;", SafeIdent(name), f.rust(t))
		}
		f.scope.Declare(name)
	}
}

// definitelyAssigns reports whether every path through s binds name, so
// a deferred `let mut x;` is initialized before any later read.
func definitelyAssigns(s *hir.Stmt, name string) bool {
	switch d := s.Data.(type) {
	case *hir.AssignData:
		for _, n := range d.Target.Names() {
			if n == name {
				return true
			}
		}
	case *hir.IfData:
		return blockAssigns(d.Then, name) && blockAssigns(d.Else, name)
	case *hir.WithData:
		return blockAssigns(d.Body, name)
	case *hir.BlockData:
		return d.Label == "" && blockAssigns(d.Body, name)
	}
	return false
}

func blockAssigns(b *hir.Block, name string) bool {
	if b == nil {
		return false
	}
	for _, s := range b.Stmts {
		if definitelyAssigns(s, name) || diverges(s) {
			return true
		}
	}
	return false
}

// assignedIn lists names bound by plain assignment anywhere inside s,
// excluding loop targets.
func assignedIn(s *hir.Stmt) []string {
	seen := map[string]bool{}
	var out []string
	add := func(t *hir.Target) {
		for _, n := range t.Names() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	hir.InspectStmt(s, hir.Visitor{Stmt: func(st *hir.Stmt) bool {
		switch d := st.Data.(type) {
		case *hir.AssignData:
			add(d.Target)
		case *hir.WithData:
			for _, it := range d.Items {
				if it.Name != "" && !seen[it.Name] {
					seen[it.Name] = true
					out = append(out, it.Name)
				}
			}
		case *hir.FuncDefData:
			return false
		}
		return true
	}})
	return out
}

// readBeforeWrite reports whether the first statement mentioning name
// reads it rather than rebinding it.
func readBeforeWrite(stmts []*hir.Stmt, name string) bool {
	for _, s := range stmts {
		if a, ok := s.Data.(*hir.AssignData); ok && a.Target.Kind == hir.TargetSymbol && a.Target.Name == name {
			return mentions(a.Value, name)
		}
		found := false
		hir.InspectStmt(s, hir.Visitor{Nested: true, Expr: func(e *hir.Expr) bool {
			if hir.NameOf(e) == name {
				found = true
			}
			return !found
		}, Stmt: func(st *hir.Stmt) bool {
			if a, ok := st.Data.(*hir.AugAssignData); ok && a.Target.Root() == name {
				found = true
			}
			return !found
		}})
		if found {
			return true
		}
	}
	return false
}

func mentions(e *hir.Expr, name string) bool {
	found := false
	hir.InspectExpr(e, hir.Visitor{Expr: func(x *hir.Expr) bool {
		if hir.NameOf(x) == name {
			found = true
		}
		return !found
	}})
	return found
}

// global returns the module global a name refers to at this point, or
// nil for locals.
func (f *funcEmitter) global(name string) *hir.Global {
	if f.compVars[name] || f.scope.IsDeclared(name) {
		return nil
	}
	g := f.e.mod.Global(name)
	if g == nil || g.Kind == hir.GlobalLocal {
		return nil
	}
	if f.fn.Globals.Contains(name) || f.fn.Flags.HasFlag(hir.FuncEntry) || f.fn.LocalType(name) == nil {
		return g
	}
	return nil
}

func (f *funcEmitter) assign(s *hir.Stmt, d *hir.AssignData) {
	t := d.Target
	switch t.Kind {
	case hir.TargetSymbol:
		f.assignSymbol(t.Name, d.Value, d.Declared)
	case hir.TargetTuple:
		f.assignTuple(s, t, d.Value)
	case hir.TargetSubscript:
		f.assignIndex(t, d.Value)
	case hir.TargetAttribute:
		f.assignAttr(t, d.Value)
	}
}

func (f *funcEmitter) assignSymbol(name string, value *hir.Expr, declared *types.Type) {
	if g := f.global(name); g != nil {
		if g.Kind == hir.GlobalMutable {
			f.line("*%s.lock().unwrap() = %s;", name, f.coerce(value, g.Type))
			return
		}
	}
	f.noteBinding(name, value)
	if f.parsers[name] != "" {
		return
	}
	t := f.fn.LocalType(name)
	if declared != nil {
		t = declared
	}
	if t == nil {
		t = value.Type
	}
	if f.scope.IsDeclared(name) {
		f.line("%s = %s;", f.ident(name), f.coerce(value, t))
		return
	}
	mut := ""
	if f.fn.IsMutable(name) || needsMut(t) {
		mut = "mut "
	}
	f.scope.Declare(name)
	if value.Kind == hir.ExprLambda {
		f.line("let %s%s = %s;", mut, f.ident(name), f.lambda(value, true))
		return
	}
	if needsAnnotation(value, t, declared != nil) {
		f.line("let %s%s: %s = %s;", mut, f.ident(name), f.rust(t), f.coerce(value, t))
		return
	}
	f.line("let %s%s = %s;", mut, f.ident(name), f.coerce(value, t))
}

// noteBinding remembers facts later calls on the binding depend on.
func (f *funcEmitter) noteBinding(name string, value *hir.Expr) {
	if c, ok := value.Data.(*hir.CallData); ok {
		if imp, it := f.e.mod.ImportedItem(c.Func); imp != nil && imp.Module == "csv" && it.Name == "DictWriter" {
			if cols := c.Kwarg("fieldnames"); cols != nil {
				f.csvCols[name] = f.expr(cols)
			}
		}
		return
	}
	d, ok := value.Data.(*hir.MethodCallData)
	if !ok {
		return
	}
	if d.Module != nil && d.Module.Module == "csv" && d.Method == "DictWriter" {
		if cols := d.Kwarg("fieldnames"); cols != nil {
			f.csvCols[name] = f.expr(cols)
		}
	}
	if d.Recv != nil && d.Recv.Type.IsExtern(types.ExtArgParser) &&
		(d.Method == "add_argument_group" || d.Method == "add_mutually_exclusive_group") {
		f.parsers[name] = f.parserRoot(d.Recv)
	}
}

// needsMut covers library values whose every use takes &mut self.
func needsMut(t *types.Type) bool {
	if t != nil && t.Kind == types.KindIterator {
		return true
	}
	if t == nil || t.Kind != types.KindExtern {
		return false
	}
	switch t.Name {
	case types.ExtCSVReader, types.ExtCSVDictReader, types.ExtCSVWriter, types.ExtCSVDictWriter,
		types.ExtPopen, types.ExtHasher, types.ExtRandom, types.ExtFile, types.ExtArgParser:
		return true
	}
	return false
}

func needsAnnotation(value *hir.Expr, t *types.Type, declared bool) bool {
	if t == nil || t.Kind == types.KindIterator || t.Kind == types.KindFunc {
		return false
	}
	if declared || t.IsDynamic() || t.Kind == types.KindOptional {
		return true
	}
	switch d := value.Data.(type) {
	case *hir.ElemsData:
		return len(d.Elems) == 0
	case *hir.DictData:
		return len(d.Keys) == 0
	case *hir.CallData:
		return len(d.Args) == 0 && (d.Func == "list" || d.Func == "dict" || d.Func == "set")
	case *hir.MethodCallData:
		return d.Module != nil && d.Module.Module == "collections"
	case *hir.LiteralData:
		return d.Kind == hir.LiteralNone
	}
	return false
}

// pattern spells a binding target.
func (f *funcEmitter) pattern(t *hir.Target) string {
	switch t.Kind {
	case hir.TargetSymbol:
		if t.Name == "_" {
			return "_"
		}
		if f.fn.IsMutable(t.Name) {
			return "mut " + f.ident(t.Name)
		}
		return f.ident(t.Name)
	case hir.TargetTuple:
		parts := make([]string, len(t.Elems))
		for i, el := range t.Elems {
			parts[i] = f.pattern(el)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	f.report(diag.GenUnsupportedStmt, t.Span, "cannot bind to a %s target here", t.Kind)
	return "_"
}

func declareTarget(s *ScopeTracker, t *hir.Target) {
	for _, n := range t.Names() {
		s.Declare(n)
	}
}

func (f *funcEmitter) assignTuple(s *hir.Stmt, t *hir.Target, value *hir.Expr) {
	v := f.value(value)
	if !t.AllSymbols() || hasNestedComplex(t) {
		tmps := make([]string, len(t.Elems))
		for i := range t.Elems {
			tmps[i] = f.temp("v")
		}
		f.line("let (%s) = %s;", strings.Join(tmps, ", "), v)
		for i, el := range t.Elems {
			f.assignFrom(el, tmps[i])
		}
		return
	}
	names := t.Names()
	declared := 0
	for _, n := range names {
		if f.scope.IsDeclared(n) {
			declared++
		}
	}
	if declared == len(names) {
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = f.ident(n)
		}
		f.line("(%s) = %s;", strings.Join(parts, ", "), v)
		return
	}
	f.line("let %s = %s;", f.pattern(t), v)
	declareTarget(f.scope, t)
}

func hasNestedComplex(t *hir.Target) bool {
	for _, el := range t.Elems {
		if el.Kind == hir.TargetTuple {
			return true
		}
	}
	return false
}

// assignFrom stores an already-evaluated Rust value into a target.
func (f *funcEmitter) assignFrom(t *hir.Target, v string) {
	switch t.Kind {
	case hir.TargetSymbol:
		if f.scope.IsDeclared(t.Name) {
			f.line("%s = %s;", f.ident(t.Name), v)
			return
		}
		f.scope.Declare(t.Name)
		f.line("let %s = %s;", f.pattern(t), v)
	case hir.TargetSubscript:
		f.storeIndex(t, v)
	case hir.TargetAttribute:
		f.line("%s = %s;", f.attrPlace(t), v)
	case hir.TargetTuple:
		f.line("let %s = %s;", f.pattern(t), v)
		declareTarget(f.scope, t)
	}
}

func (f *funcEmitter) assignIndex(t *hir.Target, value *hir.Expr) {
	base := t.Base.Type
	if base.Kind == types.KindDict {
		if acc := f.accumulate(t, value); acc != "" {
			f.line("%s", acc)
			return
		}
		f.line("%s.insert(%s, %s);", f.place(t.Base), f.owned(t.Index, base.Key), f.coerce(value, base.Value))
		return
	}
	var v string
	if base.Kind == types.KindList {
		v = f.coerce(value, base.Elem)
	} else {
		v = f.value(value)
	}
	f.storeIndex(t, v)
}

func (f *funcEmitter) storeIndex(t *hir.Target, v string) {
	base := t.Base.Type
	switch {
	case base.Kind == types.KindDict:
		f.line("%s.insert(%s, %s);", f.place(t.Base), f.owned(t.Index, base.Key), v)
	case base.Kind == types.KindList || base.Kind == types.KindArray:
		f.line("%s[%s] = %s;", f.place(t.Base), f.listIndex(t.Base, t.Index), v)
	case base.IsExtern(types.ExtJSON):
		f.line("%s[%s] = serde_json::Value::from(%s);", f.place(t.Base), f.keyArg(t.Index), v)
	case base.IsDynamic():
		f.e.dyn = true
		f.line("%s.set_item(%s::from(%s), %s::from(%s));", f.place(t.Base), DynName, f.value(t.Index), DynName, v)
	case base.Kind == types.KindCustom:
		f.line("%s.set_item(%s, %s);", f.place(t.Base), f.value(t.Index), v)
	default:
		f.report(diag.GenUnsupportedStmt, t.Span, "item assignment on %s", base)
		f.line("// unsupported item assignment on %s", base)
	}
}

// accumulate recognizes `d[k] = d.get(k, dflt) <op> v` and emits an
// entry update instead of a lookup followed by an insert.
func (f *funcEmitter) accumulate(t *hir.Target, value *hir.Expr) string {
	bin, ok := value.Data.(*hir.BinaryData)
	if !ok || !bin.Op.IsArithmetic() {
		return ""
	}
	get, ok := bin.Left.Data.(*hir.MethodCallData)
	if !ok || get.Method != "get" || len(get.Args) != 2 || !sameExpr(get.Recv, t.Base) || !sameExpr(get.Args[0], t.Index) {
		return ""
	}
	op, ok := compoundOps[bin.Op]
	if !ok {
		return ""
	}
	vt := t.Base.Type.Value
	if vt.Kind == types.KindStr && bin.Op == hir.OpAdd {
		return "(*" + f.place(t.Base) + ".entry(" + f.owned(t.Index, t.Base.Type.Key) + ").or_insert(" + f.coerce(get.Args[1], vt) + ")).push_str(" + f.strArg(bin.Right) + ");"
	}
	return "*" + f.place(t.Base) + ".entry(" + f.owned(t.Index, t.Base.Type.Key) + ").or_insert(" + f.coerce(get.Args[1], vt) + ") " + op + " " + f.coerce(bin.Right, vt) + ";"
}

var compoundOps = map[hir.BinaryOp]string{
	hir.OpAdd: "+=", hir.OpSub: "-=", hir.OpMul: "*=",
	hir.OpBitOr: "|=", hir.OpBitAnd: "&=", hir.OpBitXor: "^=",
	hir.OpLShift: "<<=", hir.OpRShift: ">>=",
}

// sameExpr compares side-effect-free expressions structurally.
func sameExpr(a, b *hir.Expr) bool {
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch x := a.Data.(type) {
	case *hir.NameData:
		return x.Name == b.Data.(*hir.NameData).Name
	case *hir.LiteralData:
		y := b.Data.(*hir.LiteralData)
		return x.Kind == y.Kind && x.Int == y.Int && x.Text == y.Text && x.Bool == y.Bool && x.Float == y.Float
	case *hir.AttrData:
		y := b.Data.(*hir.AttrData)
		return x.Name == y.Name && sameExpr(x.Base, y.Base)
	case *hir.IndexData:
		y := b.Data.(*hir.IndexData)
		return sameExpr(x.Base, y.Base) && sameExpr(x.Index, y.Index)
	}
	return false
}

func (f *funcEmitter) assignAttr(t *hir.Target, value *hir.Expr) {
	if c := f.e.classOf(t.Base.Type); c != nil {
		if setter := f.e.findMethod(c, "set_"+t.Field); setter != nil && setter.Flags.HasFlag(hir.FuncProperty) {
			f.line("%s.%s(%s);", f.place(t.Base), methodName(setter), f.args(setter.Params, []*hir.Expr{value}, nil))
			return
		}
	}
	want := value.Type
	if ft := f.e.fieldType(t.Base.Type, t.Field); ft != nil {
		want = ft
	}
	f.line("%s = %s;", f.attrPlace(t), f.coerce(value, want))
}

func (f *funcEmitter) attrPlace(t *hir.Target) string {
	return f.place(t.Base) + "." + f.e.fieldPath(t.Base.Type, t.Field)
}

func (f *funcEmitter) augAssign(s *hir.Stmt, d *hir.AugAssignData) {
	t := d.Target
	switch t.Kind {
	case hir.TargetSymbol:
		lt := f.fn.LocalType(t.Name)
		place := f.ident(t.Name)
		if g := f.global(t.Name); g != nil {
			lt = g.Type
			place = "*" + t.Name + ".lock().unwrap()"
		}
		f.compound(place, lt, d)
	case hir.TargetAttribute:
		ft := f.e.fieldType(t.Base.Type, t.Field)
		if ft == nil {
			ft = d.Value.Type
		}
		f.compound(f.attrPlace(t), ft, d)
	case hir.TargetSubscript:
		bt := t.Base.Type
		switch bt.Kind {
		case types.KindDict:
			place := "*" + f.place(t.Base) + ".entry(" + f.owned(t.Index, bt.Key) + ").or_default()"
			f.compound(place, bt.Value, d)
		case types.KindList, types.KindArray:
			place := f.place(t.Base) + "[" + f.listIndex(t.Base, t.Index) + "]"
			f.compound(place, bt.Elem, d)
		default:
			f.report(diag.GenUnsupportedStmt, s.Span, "augmented item assignment on %s", bt)
		}
	default:
		f.report(diag.GenUnsupportedStmt, s.Span, "augmented assignment to a tuple")
	}
}

// compound emits `place op= value`, falling back to a full rebinding for
// operators without a Rust compound form.
func (f *funcEmitter) compound(place string, t *types.Type, d *hir.AugAssignData) {
	if t == nil {
		t = d.Value.Type
	}
	switch {
	case t.Kind == types.KindStr && d.Op == hir.OpAdd:
		recv := place
		if strings.HasPrefix(place, "*") {
			recv = "(" + place + ")"
		}
		f.line("%s.push_str(%s);", recv, f.strArg(d.Value))
		return
	case t.Kind == types.KindList && d.Op == hir.OpAdd:
		recv := place
		if strings.HasPrefix(place, "*") {
			recv = "(" + place + ")"
		}
		f.line("%s.extend(%s);", recv, f.iterSource(d.Value))
		return
	case t.IsDynamic():
		f.e.dyn = true
	}
	if op, ok := compoundOps[d.Op]; ok {
		f.line("%s %s %s;", place, op, f.coerce(d.Value, t))
		return
	}
	if d.Op == hir.OpDiv && t.Kind == types.KindFloat {
		f.line("%s /= %s;", place, f.coerce(d.Value, t))
		return
	}
	if d.Op == hir.OpMod && t.Kind == types.KindFloat {
		f.line("%s %%= %s;", place, f.coerce(d.Value, t))
		return
	}
	cur := operand{text: place, t: t}
	if strings.HasPrefix(place, "*") {
		cur.text = "(" + place + ")"
	}
	v := f.arith(d.Op, cur, f.operand(d.Value), t)
	if strings.Contains(place, ".lock()") {
		f.line("{ let _v = %s; %s = _v; }", v, place)
		return
	}
	f.line("%s = %s;", place, v)
}

func (f *funcEmitter) returnStmt(d *hir.ReturnData) {
	if len(f.tryLoops) > 0 {
		f.line("return Ok(Some(%s));", f.plainReturn(d.Value))
		return
	}
	if f.fn.Flags.HasFlag(hir.FuncEntry) {
		f.line("return;")
		return
	}
	v := f.returnValue(d.Value)
	if v == "()" {
		f.line("return;")
		return
	}
	f.line("return %s;", v)
}

func (f *funcEmitter) ifStmt(d *hir.IfData, chained bool) {
	head := "if " + f.cond(d.Cond) + " {"
	if chained {
		f.buf.WriteString(head + "\n")
	} else {
		f.line("%s", head)
	}
	f.indent++
	f.block(d.Then)
	f.indent--
	if d.Else.Len() == 0 {
		f.line("}")
		return
	}
	if len(d.Else.Stmts) == 1 {
		if elif, ok := d.Else.Stmts[0].Data.(*hir.IfData); ok {
			for i := 0; i < f.indent; i++ {
				f.buf.WriteString("    ")
			}
			f.buf.WriteString("} else ")
			f.ifStmt(elif, true)
			return
		}
	}
	f.line("} else {")
	f.indent++
	f.block(d.Else)
	f.indent--
	f.line("}")
}

func (f *funcEmitter) loopHead(lbl string) string {
	if lbl == "" {
		return ""
	}
	return label(lbl) + ": "
}

func (f *funcEmitter) whileStmt(d *hir.WhileData) {
	if isTrueLit(d.Cond) {
		f.line("%sloop {", f.loopHead(d.Label))
	} else {
		f.line("%swhile %s {", f.loopHead(d.Label), f.cond(d.Cond))
	}
	f.labels = append(f.labels, d.Label)
	f.indent++
	f.block(d.Body)
	f.indent--
	f.labels = f.labels[:len(f.labels)-1]
	f.line("}")
}

func (f *funcEmitter) forStmt(d *hir.ForData) {
	src := f.iterSource(d.Iter)
	f.scope.Enter()
	pat := f.pattern(d.Target)
	declareTarget(f.scope, d.Target)
	f.line("%sfor %s in %s {", f.loopHead(d.Label), pat, src)
	f.labels = append(f.labels, d.Label)
	f.indent++
	f.block(d.Body)
	f.indent--
	f.labels = f.labels[:len(f.labels)-1]
	f.scope.Exit()
	f.line("}")
}

func (f *funcEmitter) branch(s *hir.Stmt, d *hir.BranchData) {
	kw := "break"
	if s.Kind == hir.StmtContinue {
		kw = "continue"
	}
	target := len(f.labels) - 1
	if d.Label != "" {
		target = -1
		for i := len(f.labels) - 1; i >= 0; i-- {
			if f.labels[i] == d.Label {
				target = i
				break
			}
		}
		if target < 0 {
			f.report(diag.GenMissingLabel, s.Span, "%s to label '%s outside any enclosing loop", kw, d.Label)
			f.line("%s;", kw)
			return
		}
	}
	if n := len(f.tryLoops); n > 0 && target < f.tryLoops[n-1] {
		f.report(diag.GenUnsupportedStmt, s.Span, "%s out of a try block", kw)
		f.line("return Ok(None);")
		return
	}
	if d.Label != "" {
		f.line("%s %s;", kw, label(d.Label))
		return
	}
	f.line("%s;", kw)
}

func (f *funcEmitter) exprStmt(e *hir.Expr) {
	switch d := e.Data.(type) {
	case *hir.LiteralData:
		if d.Kind == hir.LiteralStr || d.Kind == hir.LiteralNone {
			return
		}
	case *hir.YieldData:
		f.yield(e, d)
		return
	case *hir.CallData:
		if d.Func == "print" && d.Target == nil {
			f.line("%s;", f.print(d))
			return
		}
	case *hir.MethodCallData:
		if s, ok := f.statementMethod(e, d); ok {
			if s != "" {
				f.line("%s", s)
			}
			return
		}
	}
	s := f.expr(e)
	if s == "" || s == "()" {
		return
	}
	f.line("%s;", s)
}

func (f *funcEmitter) with(d *hir.WithData) {
	f.line("{")
	f.indent++
	f.scope.Enter()
	for _, it := range d.Items {
		v := f.value(it.Context)
		if it.Name == "" {
			f.line("let _guard = %s;", v)
			continue
		}
		mut := ""
		if f.fn.IsMutable(it.Name) || needsMut(it.Context.Type) {
			mut = "mut "
		}
		if f.scope.IsDeclared(it.Name) {
			f.line("%s = %s;", f.ident(it.Name), v)
			continue
		}
		f.line("let %s%s = %s;", mut, f.ident(it.Name), v)
		f.scope.Declare(it.Name)
	}
	f.block(d.Body)
	f.scope.Exit()
	f.indent--
	f.line("}")
}
