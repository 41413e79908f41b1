package rustgen

import (
	"slices"
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// genBuf is the buffer a collected generator pushes into.
const genBuf = "_gen"

// itemType is the element type of a generator's iterator.
func itemType(fn *hir.Func) *types.Type {
	if fn.Result != nil && fn.Result.Kind == types.KindIterator && fn.Result.Elem != nil {
		return fn.Result.Elem
	}
	return types.Dynamic
}

// stateLoop matches the generator shape with a lazy lowering: setup
// statements then one while loop whose body yields exactly once at its
// top level. The loop is the last statement.
func stateLoop(fn *hir.Func) (setup []*hir.Stmt, loop *hir.WhileData, at int, ok bool) {
	stmts := fn.Body.Stmts
	if len(stmts) == 0 {
		return nil, nil, 0, false
	}
	loop, ok = stmts[len(stmts)-1].Data.(*hir.WhileData)
	if !ok || loop.Label != "" {
		return nil, nil, 0, false
	}
	setup = stmts[:len(stmts)-1]
	for _, s := range setup {
		if hir.ContainsYield(hir.NewBlock(s)) {
			return nil, nil, 0, false
		}
	}
	at = -1
	for i, s := range loop.Body.Stmts {
		if es, isExpr := s.Data.(*hir.ExprStmtData); isExpr {
			if y, isYield := es.Value.Data.(*hir.YieldData); isYield && !y.From {
				if at >= 0 {
					return nil, nil, 0, false
				}
				at = i
				continue
			}
		}
		if hir.ContainsYield(hir.NewBlock(s)) {
			return nil, nil, 0, false
		}
	}
	if at < 0 {
		return nil, nil, 0, false
	}
	escapes := false
	hir.Inspect(loop.Body, hir.Visitor{
		Stmt: func(s *hir.Stmt) bool {
			switch s.Data.(type) {
			case *hir.ReturnData, *hir.TryData, *hir.FuncDefData, *hir.ForData, *hir.WhileData, *hir.WithData:
				escapes = true
			case *hir.BranchData:
				escapes = true
			}
			return !escapes
		},
		Expr: func(x *hir.Expr) bool {
			if x.Kind == hir.ExprComp || x.Kind == hir.ExprLambda || x.Kind == hir.ExprNamed {
				escapes = true
			}
			return !escapes
		},
	})
	return setup, loop, at, !escapes
}

// stateFields lists the bindings a lazy generator keeps between calls
// to next, in a stable order.
func stateFields(fn *hir.Func) ([]string, bool) {
	var names []string
	for _, p := range fn.Params {
		if p.Kind != hir.ParamPositional {
			return nil, false
		}
		names = append(names, p.Name)
	}
	var locals []string
	for name := range fn.Locals {
		if fn.Param(name) == nil {
			locals = append(locals, name)
		}
	}
	slices.Sort(locals)
	names = append(names, locals...)
	for _, n := range names {
		t := fn.LocalType(n)
		if t == nil || !t.IsCopy() {
			return nil, false
		}
	}
	return names, true
}

// emitStateMachine lowers a generator to a struct implementing Iterator.
// It reports false when the generator does not fit the lazy shape.
func (e *Emitter) emitStateMachine(fn *hir.Func, class *hir.Class, indent int, out *strings.Builder) bool {
	if class != nil || indent > 0 || fn.CanFail() || fn.IsAsync() || fn.Flags.HasFlag(hir.FuncNested) {
		return false
	}
	setup, loop, at, ok := stateLoop(fn)
	if !ok {
		return false
	}
	names, ok := stateFields(fn)
	if !ok {
		return false
	}
	state := pascal(fn.Name) + "State"
	item := e.rust(itemType(fn))
	e.record(trace.DecisionGenerator, fn.QualName(), state, "generator state kept in an Iterator struct", fn.Span)

	out.WriteString("pub struct " + state + " {\n")
	for _, n := range names {
		out.WriteString("    " + SafeIdent(n) + ": " + e.rust(fn.LocalType(n)) + ",\n")
	}
	out.WriteString("    _resume: bool,\n    _done: bool,\n}\n\n")

	out.WriteString("impl Iterator for " + state + " {\n")
	out.WriteString("    type Item = " + item + ";\n\n")
	next := e.newFuncEmitter(fn, nil, 2, out)
	for _, n := range names {
		next.fields[n] = "self." + SafeIdent(n)
		next.scope.Declare(n)
	}
	next.line("fn next(&mut self) -> Option<Self::Item> {")
	next.indent++
	next.line("if self._done {")
	next.line("    return None;")
	next.line("}")
	if at+1 < len(loop.Body.Stmts) {
		next.line("if self._resume {")
		next.indent++
		next.stmtList(loop.Body.Stmts[at+1:])
		next.indent--
		next.line("}")
	}
	next.line("self._resume = true;")
	next.line("if !(%s) {", next.cond(loop.Cond))
	next.line("    self._done = true;")
	next.line("    return None;")
	next.line("}")
	next.stmtsBefore(loop.Body.Stmts[:at], loop.Body.Stmts[at:at+1])
	y := loop.Body.Stmts[at].Data.(*hir.ExprStmtData).Value.Data.(*hir.YieldData)
	next.line("Some(%s)", next.yieldValue(y))
	next.indent--
	next.line("}")
	out.WriteString("}\n\n")

	ctor := e.newFuncEmitter(fn, nil, 0, out)
	for _, l := range docLines(fn.Doc) {
		ctor.line("///%s", l)
	}
	ctor.line("%s {", ctor.signature(e.funcName(fn), true))
	ctor.indent++
	for _, p := range fn.Params {
		ctor.scope.Declare(p.Name)
	}
	ctor.stmtList(setup)
	var inits []string
	for _, n := range names {
		id := SafeIdent(n)
		if ctor.scope.IsDeclared(n) {
			inits = append(inits, id)
		} else {
			inits = append(inits, id+": "+e.mapper.Default(fn.LocalType(n)))
		}
	}
	inits = append(inits, "_resume: false", "_done: false")
	ctor.line("%s { %s }", state, strings.Join(inits, ", "))
	ctor.indent--
	ctor.line("}")
	out.WriteString("\n")
	return true
}

func pascal(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

// collectGenerator runs the body eagerly into a buffer and returns an
// iterator over it.
func (f *funcEmitter) collectGenerator() {
	fn := f.fn
	f.record(trace.DecisionGenerator, "Vec::into_iter", "generator body collected eagerly", fn.Span)
	f.line("let mut %s: Vec<%s> = Vec::new();", genBuf, f.rust(itemType(fn)))
	f.scope.Declare(genBuf)
	stmts := fn.Body.Stmts
	f.stmtList(stmts)
	if len(stmts) > 0 && diverges(stmts[len(stmts)-1]) {
		return
	}
	if fn.CanFail() {
		f.line("Ok(%s.into_iter())", genBuf)
		return
	}
	f.line("%s.into_iter()", genBuf)
}

// yield pushes one value, or every value of a `yield from` source.
func (f *funcEmitter) yield(e *hir.Expr, d *hir.YieldData) {
	if !f.fn.IsGenerator() {
		f.report(diag.GenUnsupportedExpr, e.Span, "yield outside a generator")
		return
	}
	if d.From {
		f.line("%s.extend(%s);", genBuf, f.iterSource(d.Value))
		return
	}
	f.line("%s.push(%s);", genBuf, f.yieldValue(d))
}

func (f *funcEmitter) yieldValue(d *hir.YieldData) string {
	if d.Value == nil {
		return "()"
	}
	return f.owned(d.Value, itemType(f.fn))
}
