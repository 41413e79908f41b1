package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// dunderNames are the Rust method names of special methods.
var dunderNames = map[string]string{
	"__str__":      "py_str",
	"__repr__":     "py_repr",
	"__len__":      "len",
	"__contains__": "contains",
	"__getitem__":  "get_item",
	"__setitem__":  "set_item",
	"__iter__":     "iter",
	"__eq__":       "py_eq",
	"__lt__":       "py_lt",
	"__le__":       "py_le",
	"__gt__":       "py_gt",
	"__ge__":       "py_ge",
	"__hash__":     "py_hash",
	"__add__":      "py_add",
	"__sub__":      "py_sub",
	"__mul__":      "py_mul",
	"__truediv__":  "py_div",
	"__call__":     "call",
	"__enter__":    "enter",
	"__exit__":     "exit",
	"__next__":     "next_item",
	"__bool__":     "is_truthy",
}

// methodName spells a user method.
func methodName(fn *hir.Func) string {
	if fn.Name == "__init__" {
		return "new"
	}
	if n, ok := dunderNames[fn.Name]; ok {
		return n
	}
	return SafeIdent(fn.Name)
}

// funcName spells a free function; the user main is renamed when it does
// not fit Rust's entry signature.
func (e *Emitter) funcName(fn *hir.Func) string {
	if fn.Flags.HasFlag(hir.FuncEntry) {
		return "main"
	}
	if fn.Class != "" {
		return methodName(fn)
	}
	if fn.Name == "main" && fn.Class == "" && !userMainIsEntry(fn) {
		return "main_impl"
	}
	return SafeIdent(fn.Name)
}

// userMainIsEntry reports a user-defined main usable as the Rust entry.
func userMainIsEntry(fn *hir.Func) bool {
	if fn.Flags.HasFlag(hir.FuncNested) || len(fn.Params) > 0 || fn.IsAsync() || fn.IsGenerator() {
		return false
	}
	return fn.Result == nil || fn.Result.Kind == types.KindNone
}

func (e *Emitter) emitFunc(fn *hir.Func, class *hir.Class, indent int, out *strings.Builder) {
	if fn.IsGenerator() && e.emitStateMachine(fn, class, indent, out) {
		return
	}
	f := e.newFuncEmitter(fn, class, indent, out)
	f.emitItem()
	if fn.Name == "main" && fn.Class == "" && !fn.Flags.HasFlag(hir.FuncEntry) && !userMainIsEntry(fn) && len(fn.Params) == 0 && e.mod.Func("main") == fn {
		if !hasEntry(e.mod) {
			f.line("fn main() {")
			f.indent++
			call := "main_impl()"
			if fn.IsAsync() && !e.opts.SafetyMode {
				e.need("tokio")
				call = "tokio::runtime::Runtime::new().unwrap().block_on(main_impl())"
			}
			if fn.CanFail() {
				call += ".unwrap()"
			}
			f.line("let _ = %s;", call)
			f.indent--
			f.line("}")
			f.buf.WriteString("\n")
		}
	}
}

func hasEntry(m *hir.Module) bool {
	for _, fn := range m.Funcs {
		if fn.Flags.HasFlag(hir.FuncEntry) {
			return true
		}
	}
	return false
}

// emitItem writes the function with its doc comment.
func (f *funcEmitter) emitItem() {
	for _, l := range docLines(f.fn.Doc) {
		f.line("///%s", l)
	}
	f.line("%s {", f.signature(f.e.funcName(f.fn), true))
	f.indent++
	f.body()
	if d := f.scope.Depth(); d != 1 {
		panic(fmt.Sprintf("rustgen: %s ends at scope depth %d", f.fn.Name, d))
	}
	f.indent--
	f.line("}")
	f.buf.WriteString("\n")
}

// signature renders `pub fn name(params) -> R` for the function.
func (f *funcEmitter) signature(name string, pub bool) string {
	fn := f.fn
	var b strings.Builder
	if pub && !fn.Flags.HasFlag(hir.FuncNested) && !fn.Flags.HasFlag(hir.FuncEntry) && name != "main" {
		b.WriteString("pub ")
	}
	if fn.IsAsync() && !f.e.opts.SafetyMode && name != "main" {
		b.WriteString("async ")
	}
	b.WriteString("fn ")
	b.WriteString(name)
	if tv := typeVars(fn); len(tv) > 0 {
		b.WriteString("<")
		for i, v := range tv {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(v + ": Clone + PartialEq + PartialOrd + std::fmt::Debug")
		}
		b.WriteString(">")
	}
	b.WriteString("(")
	b.WriteString(strings.Join(f.params(), ", "))
	b.WriteString(")")
	if r := f.resultType(); r != "" {
		b.WriteString(" -> " + r)
	}
	return b.String()
}

func (f *funcEmitter) params() []string {
	fn := f.fn
	var out []string
	if fn.Class != "" && fn.Name != "__init__" && !fn.Flags.HasFlag(hir.FuncStatic) && !fn.Flags.HasFlag(hir.FuncClassMethod) {
		if fn.Flags.HasFlag(hir.FuncMutSelf) {
			out = append(out, "&mut self")
		} else {
			out = append(out, "&self")
		}
	}
	for _, p := range fn.Params {
		mut := ""
		if (p.Mode == hir.OwnershipOwn || p.Mode == hir.OwnershipCopy) && (fn.IsMutable(p.Name) || p.Mutated) {
			mut = "mut "
		}
		out = append(out, mut+SafeIdent(p.Name)+": "+f.e.paramType(p))
	}
	return out
}

// paramType spells a parameter from its decided mode.
func (e *Emitter) paramType(p *hir.Param) string {
	t := p.Type
	if t.Kind == types.KindIterator || t.Kind == types.KindFunc {
		return e.spell(t, types.PosParam)
	}
	switch p.Mode {
	case hir.OwnershipRef:
		switch t.Kind {
		case types.KindStr:
			return "&str"
		case types.KindList:
			return "&[" + e.rust(t.Elem) + "]"
		case types.KindBytes:
			return "&[u8]"
		}
		return "&" + e.rust(t)
	case hir.OwnershipRefMut:
		return "&mut " + e.rust(t)
	}
	return e.spell(t, types.PosParam)
}

// valueType is the declared result ignoring fallibility.
func (f *funcEmitter) valueType() string {
	fn := f.fn
	if fn.Name == "__init__" && fn.Class != "" {
		return "Self"
	}
	if fn.Result == nil || fn.Result.Kind == types.KindNone {
		return "()"
	}
	return f.e.spell(fn.Result, types.PosReturn)
}

func (f *funcEmitter) resultType() string {
	fn := f.fn
	if fn.Flags.HasFlag(hir.FuncEntry) {
		return ""
	}
	t := f.valueType()
	if fn.CanFail() {
		return "Result<" + t + ", " + f.e.errorType(fn) + ">"
	}
	if t == "()" {
		return ""
	}
	return t
}

func typeVars(fn *hir.Func) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(t *types.Type)
	walk = func(t *types.Type) {
		if t == nil {
			return
		}
		if t.Kind == types.KindTypeVar && !seen[t.Name] {
			seen[t.Name] = true
			out = append(out, t.Name)
		}
		walk(t.Elem)
		walk(t.Key)
		walk(t.Value)
		walk(t.Result)
		for _, x := range t.Elems {
			walk(x)
		}
	}
	for _, p := range fn.Params {
		walk(p.Type)
	}
	walk(fn.Result)
	return out
}

// body emits the statements of the function, ending with the tail value
// when the last statement returns one.
func (f *funcEmitter) body() {
	fn := f.fn
	for _, p := range fn.Params {
		f.scope.Declare(p.Name)
	}
	if fn.Name == "__init__" && f.class != nil {
		f.constructorBody()
		return
	}
	if fn.IsGenerator() {
		f.collectGenerator()
		return
	}
	stmts := fn.Body.Stmts
	n := len(stmts)
	if n > 0 && !fn.Flags.HasFlag(hir.FuncEntry) {
		if rd, ok := stmts[n-1].Data.(*hir.ReturnData); ok && rd.Value != nil {
			f.stmtsBefore(stmts[:n-1], stmts[n-1:])
			f.line("%s", f.returnValue(rd.Value))
			return
		}
	}
	f.stmtList(stmts)
	f.fallOff(stmts)
}

// fallOff closes a body whose last statement does not return a value.
func (f *funcEmitter) fallOff(stmts []*hir.Stmt) {
	fn := f.fn
	if fn.Flags.HasFlag(hir.FuncEntry) || (len(stmts) > 0 && diverges(stmts[len(stmts)-1])) {
		return
	}
	switch {
	case fn.Result == nil || fn.Result.Kind == types.KindNone:
		if fn.CanFail() {
			f.line("Ok(())")
		}
	case fn.Result.Kind == types.KindOptional:
		if fn.CanFail() {
			f.line("Ok(None)")
		} else {
			f.line("None")
		}
	default:
		f.line("unreachable!()")
	}
}

func diverges(s *hir.Stmt) bool {
	switch d := s.Data.(type) {
	case *hir.ReturnData, *hir.RaiseData:
		return true
	case *hir.WhileData:
		return isTrueLit(d.Cond) && !breaksOut(d.Body, d.Label)
	case *hir.IfData:
		return d.Else.Len() > 0 && d.Then.Len() > 0 &&
			diverges(d.Then.Stmts[len(d.Then.Stmts)-1]) && diverges(d.Else.Stmts[len(d.Else.Stmts)-1])
	}
	return false
}

func isTrueLit(e *hir.Expr) bool {
	d, ok := e.Data.(*hir.LiteralData)
	return ok && d.Kind == hir.LiteralBool && d.Bool
}

// breaksOut reports a break leaving the loop whose body is b.
func breaksOut(b *hir.Block, lbl string) bool {
	found := false
	var walk func(b *hir.Block, depth int)
	walk = func(b *hir.Block, depth int) {
		if b == nil {
			return
		}
		for _, s := range b.Stmts {
			switch d := s.Data.(type) {
			case *hir.BranchData:
				if s.Kind == hir.StmtBreak && ((depth == 0 && d.Label == "") || (lbl != "" && d.Label == lbl)) {
					found = true
				}
			case *hir.WhileData:
				walk(d.Body, depth+1)
				continue
			case *hir.ForData:
				walk(d.Body, depth+1)
				continue
			}
			for _, nb := range hir.StmtBlocks(s) {
				walk(nb, depth)
			}
		}
	}
	walk(b, 0)
	return found
}

// returnValue spells the value of `return v` for this function.
func (f *funcEmitter) returnValue(v *hir.Expr) string {
	s := f.plainReturn(v)
	if f.fn.CanFail() {
		return "Ok(" + s + ")"
	}
	return s
}

// plainReturn spells the returned value without the fallible envelope.
func (f *funcEmitter) plainReturn(v *hir.Expr) string {
	fn := f.fn
	var s string
	switch {
	case fn.IsGenerator():
		s = genBuf + ".into_iter()"
	case v == nil && fn.Result != nil && fn.Result.Kind == types.KindOptional:
		s = "None"
	case v == nil || fn.Result == nil || fn.Result.Kind == types.KindNone:
		s = "()"
		if v != nil && !hir.IsNoneLit(v) {
			s = "{ " + f.expr(v) + "; }"
		}
	default:
		s = f.coerce(v, fn.Result)
	}
	return s
}

// funcDef emits a nested def: a local fn when it captures nothing,
// otherwise a closure bound to its name.
func (f *funcEmitter) funcDef(d *hir.FuncDefData) {
	inner := d.Func
	caps := f.nestedCaptures(inner)
	f.scope.Declare(inner.Name)
	if len(caps) == 0 {
		sub := f.e.newFuncEmitter(inner, nil, f.indent, f.buf)
		sub.line("%s {", sub.signature(SafeIdent(inner.Name), false))
		sub.indent++
		sub.body()
		sub.indent--
		sub.line("}")
		return
	}
	move := f.returnsName(inner.Name)
	sub := f.e.newFuncEmitter(inner, f.class, f.indent, f.buf)
	sub.selfName = f.selfName
	for _, c := range caps {
		sub.scope.Declare(c)
	}
	params := sub.params()
	head := "|" + strings.Join(params, ", ") + "|"
	if r := sub.resultType(); r != "" {
		head += " -> " + r
	}
	if move {
		f.line("let %s = {", SafeIdent(inner.Name))
		f.indent++
		for _, c := range caps {
			if t := f.fn.LocalType(c); t != nil && !t.IsCopy() {
				f.line("let %s = %s.clone();", SafeIdent(c), SafeIdent(c))
			}
		}
		f.line("move %s {", head)
		f.record(trace.DecisionOwnership, "move closure "+inner.Name, "nested function escapes its scope", inner.Span)
	} else {
		f.line("let %s = %s {", SafeIdent(inner.Name), head)
	}
	sub.indent = f.indent + 1
	sub.body()
	if move {
		f.line("}")
		f.indent--
		f.line("};")
	} else {
		f.line("};")
	}
}

// nestedCaptures lists bindings of f's function a nested def reads.
func (f *funcEmitter) nestedCaptures(inner *hir.Func) []string {
	seen := map[string]bool{}
	var out []string
	hir.Inspect(inner.Body, hir.Visitor{Nested: true, Expr: func(e *hir.Expr) bool {
		n := hir.NameOf(e)
		if n == "" || seen[n] || inner.LocalType(n) != nil {
			return true
		}
		if f.fn.LocalType(n) != nil || f.scope.IsDeclared(n) {
			seen[n] = true
			out = append(out, n)
		}
		return true
	}})
	return out
}

func (f *funcEmitter) returnsName(name string) bool {
	found := false
	hir.Inspect(f.fn.Body, hir.Visitor{Stmt: func(s *hir.Stmt) bool {
		if rd, ok := s.Data.(*hir.ReturnData); ok && hir.NameOf(rd.Value) == name {
			found = true
		}
		return !found
	}})
	return found
}
