package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/infer"
	"github.com/paiml/depyler-sub011/internal/trace"
)

// errorStruct renders the runtime type of a builtin exception class.
func errorStruct(name string) string {
	return fmt.Sprintf(`#[derive(Debug, Clone, PartialEq)]
pub struct %[1]s {
    pub message: String,
}

impl %[1]s {
    pub fn new(message: impl Into<String>) -> Self {
        Self { message: message.into() }
    }
}

impl std::fmt::Display for %[1]s {
    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {
        write!(f, "{}", self.message)
    }
}

impl std::error::Error for %[1]s {}
`, name)
}

// raiseValue spells the error value of a raise statement.
func (f *funcEmitter) raiseValue(d *hir.RaiseData) string {
	if call, ok := d.Exc.Data.(*hir.CallData); ok && call.Target == nil {
		return f.expr(d.Exc)
	}
	if n := hir.NameOf(d.Exc); n != "" && !f.isLocal(n) && d.Class != "" {
		return f.e.className(d.Class) + "::new(\"\")"
	}
	return f.value(d.Exc)
}

func (f *funcEmitter) raise(s *hir.Stmt, d *hir.RaiseData) {
	if d.Exc == nil || (f.caughtAs != "" && hir.NameOf(d.Exc) == f.caughtAs) {
		if f.caught == "" {
			f.report(diag.GenUnsupportedStmt, s.Span, "bare raise outside an except clause")
			f.line("panic!(\"re-raise outside an except clause\");")
			return
		}
		f.reraise(f.caught)
		return
	}
	cls := d.Class
	if cls == "" {
		cls = "Exception"
	}
	v := f.raiseValue(d)
	switch {
	case f.canFail():
		f.record(trace.DecisionErrorHandling, "return Err", "raise "+cls, s.Span)
		f.line("return Err(%s.into());", v)
	case f.fn.Flags.HasFlag(hir.FuncEntry):
		f.line("eprintln!(\"%s: {}\", %s);", cls, v)
		f.line("std::process::exit(1);")
	default:
		f.record(trace.DecisionErrorHandling, "panic!", "raise "+cls+" where no error can be returned", s.Span)
		f.line("panic!(\"%s: {}\", %s);", cls, v)
	}
}

// reraise propagates the boxed error bound to err.
func (f *funcEmitter) reraise(err string) {
	if !f.canFail() {
		f.line("panic!(\"{}\", %s);", err)
		return
	}
	mine := f.errorType()
	if mine == infer.BoxedError {
		f.line("return Err(%s);", err)
		return
	}
	f.line("return Err(match %s.downcast::<%s>() { Ok(v) => *v, Err(o) => %s::new(o.to_string()) });", err, mine, mine)
}

// try lowers try/except/else/finally. The body runs in an immediately
// called closure returning Result<Option<R>>: Some(v) carries a return
// out of the body, Err the raised error, matched against each handler
// in order. Returns and raises inside handlers leave before the finally
// block runs.
func (f *funcEmitter) try(s *hir.Stmt, d *hir.TryData) {
	ret := "()"
	if !f.fn.Flags.HasFlag(hir.FuncEntry) {
		ret = f.valueType()
	}
	returns := containsReturn(d.Body)
	res := f.temp("try")
	flow := f.temp("flow")
	pending := f.temp("pending")
	reraises := !coversAll(d.Handlers)

	f.record(trace.DecisionErrorHandling, "match on Result", "try statement", s.Span)
	f.line("let %s = (|| -> Result<Option<%s>, %s> {", res, ret, infer.BoxedError)
	f.indent++
	f.tryLoops = append(f.tryLoops, len(f.labels))
	f.block(d.Body)
	f.tryLoops = f.tryLoops[:len(f.tryLoops)-1]
	if d.Body.Len() == 0 || !diverges(d.Body.Stmts[len(d.Body.Stmts)-1]) {
		f.line("Ok(None)")
	}
	f.indent--
	f.line("})();")
	if reraises {
		f.line("let mut %s: Option<%s> = None;", pending, infer.BoxedError)
	}
	head := "match " + res + " {"
	if returns {
		head = "let " + flow + ": Option<" + ret + "> = match " + res + " {"
	}
	f.line("%s", head)
	f.indent++
	if d.Else.Len() > 0 {
		f.line("Ok(_v) => {")
		f.indent++
		f.line("if _v.is_none() {")
		f.indent++
		f.block(d.Else)
		f.indent--
		f.line("}")
		if returns {
			f.line("_v")
		}
		f.indent--
		f.line("}")
	} else if returns {
		f.line("Ok(_v) => _v,")
	} else {
		f.line("Ok(_) => {}")
	}
	errName := f.temp("e")
	f.line("Err(%s) => {", errName)
	f.indent++
	f.handlers(d, errName, pending, reraises, returns)
	f.indent--
	f.line("}")
	f.indent--
	if returns {
		f.line("};")
	} else {
		f.line("}")
	}
	if d.Finally.Len() > 0 {
		f.block(d.Finally)
	}
	if reraises {
		f.line("if let Some(%s) = %s {", errName, pending)
		f.indent++
		f.reraise(errName)
		f.indent--
		f.line("}")
	}
	if returns {
		f.line("if let Some(_v) = %s {", flow)
		f.indent++
		switch {
		case len(f.tryLoops) > 0:
			f.line("return Ok(Some(_v));")
		case f.fn.Flags.HasFlag(hir.FuncEntry):
			f.line("return;")
		case f.fn.CanFail():
			f.line("return Ok(_v);")
		default:
			f.line("return _v;")
		}
		f.indent--
		f.line("}")
	}
}

// handlers emits the if/else chain choosing an except clause for err.
func (f *funcEmitter) handlers(d *hir.TryData, err, pending string, reraises, returns bool) {
	ours := f.raisedIn(d.Body)
	tail := ""
	if returns {
		tail = "None"
	}
	for i, h := range d.Handlers {
		cond, only := f.handlerCond(h, err, ours)
		switch {
		case i == 0 && cond == "true":
			f.line("{")
		case i == 0:
			f.line("if %s {", cond)
		case cond == "true":
			f.line("} else {")
		default:
			f.line("} else if %s {", cond)
		}
		f.indent++
		f.scope.Enter()
		prev, prevAs := f.caught, f.caughtAs
		f.caught, f.caughtAs = err, h.Name
		if h.Name != "" {
			if only != "" {
				f.line("let %s = %s.downcast_ref::<%s>().unwrap();", SafeIdent(h.Name), err, only)
			} else {
				f.line("let %s = &%s;", SafeIdent(h.Name), err)
			}
			f.scope.Declare(h.Name)
		}
		f.stmtList(h.Body.Stmts)
		f.caught, f.caughtAs = prev, prevAs
		f.scope.Exit()
		if tail != "" {
			f.line("%s", tail)
		}
		f.indent--
		if cond == "true" {
			f.line("}")
			return
		}
	}
	if len(d.Handlers) > 0 {
		f.line("} else {")
		f.indent++
	}
	if reraises {
		f.line("%s = Some(%s);", pending, err)
	}
	if tail != "" {
		f.line("%s", tail)
	}
	if len(d.Handlers) > 0 {
		f.indent--
		f.line("}")
	}
}

// handlerCond spells the test selecting h for err. only names the single
// exception type the handler can see, "" when several can reach it.
func (f *funcEmitter) handlerCond(h *hir.Handler, err string, ours []string) (cond, only string) {
	if len(h.Classes) == 0 {
		return "true", ""
	}
	for _, c := range h.Classes {
		if c == "Exception" || c == "BaseException" {
			return "true", ""
		}
	}
	var parts, matched []string
	for _, cls := range ours {
		if f.e.catches(h, cls) {
			parts = append(parts, err+".is::<"+f.e.className(cls)+">()")
			matched = append(matched, f.e.className(cls))
		}
	}
	if infer.CatchesStdlib(h) {
		if len(ours) == 0 {
			return "true", ""
		}
		var known []string
		for _, cls := range ours {
			known = append(known, err+".is::<"+f.e.className(cls)+">()")
		}
		parts = append(parts, "!("+strings.Join(known, " || ")+")")
		matched = nil
	}
	if len(parts) == 0 {
		return "false", ""
	}
	if len(matched) == 1 && len(parts) == 1 {
		only = matched[0]
	}
	return strings.Join(parts, " || "), only
}

// catches mirrors except-clause matching over the class hierarchy.
func (e *Emitter) catches(h *hir.Handler, cls string) bool {
	for depth := 0; cls != "" && depth < 32; depth++ {
		if h.Catches(cls) {
			return true
		}
		c := e.mod.Class(cls)
		if c == nil {
			return false
		}
		cls = c.Base
	}
	return false
}

// raisedIn lists exception classes that can escape into a handler from
// b: direct raises and the errors of called user functions.
func (f *funcEmitter) raisedIn(b *hir.Block) []string {
	seen := map[string]bool{}
	var out []string
	add := func(cls string) {
		if cls != "" && cls != infer.BoxedError && !seen[cls] {
			seen[cls] = true
			out = append(out, cls)
		}
	}
	addFunc := func(fn *hir.Func) {
		if fn == nil || !fn.CanFail() {
			return
		}
		add(fn.ErrorType)
		for _, r := range fn.Raises {
			add(r)
		}
	}
	hir.Inspect(b, hir.Visitor{
		Stmt: func(s *hir.Stmt) bool {
			if r, ok := s.Data.(*hir.RaiseData); ok && r.Exc != nil {
				cls := r.Class
				if cls == "" {
					cls = "Exception"
				}
				add(cls)
			}
			return true
		},
		Expr: func(x *hir.Expr) bool {
			switch c := x.Data.(type) {
			case *hir.CallData:
				addFunc(c.Target)
			case *hir.MethodCallData:
				addFunc(c.Target)
			}
			return true
		},
	})
	return out
}

// coversAll reports a handler list catching every error.
func coversAll(hs []*hir.Handler) bool {
	for _, h := range hs {
		if len(h.Classes) == 0 {
			return true
		}
		for _, c := range h.Classes {
			if c == "Exception" || c == "BaseException" {
				return true
			}
		}
	}
	return false
}

func containsReturn(b *hir.Block) bool {
	found := false
	hir.Inspect(b, hir.Visitor{Stmt: func(s *hir.Stmt) bool {
		if _, ok := s.Data.(*hir.ReturnData); ok {
			found = true
		}
		return !found
	}})
	return found
}
