package infer

import (
	"sort"
	"strings"

	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
)

// BoxedError is the error type of functions whose failures do not share
// one exception class.
const BoxedError = "Box<dyn std::error::Error>"

// stdlibCatchers are handler classes that cover failures of fallible
// library calls (parse errors, I/O errors).
var stdlibCatchers = names(
	"Exception", "BaseException", "ValueError", "TypeError", "OSError", "IOError",
	"FileNotFoundError", "PermissionError", "RuntimeError", "KeyError", "UnicodeDecodeError",
	"JSONDecodeError", "CalledProcessError",
)

// CatchesStdlib reports whether h covers failures of library calls.
func CatchesStdlib(h *hir.Handler) bool {
	if len(h.Classes) == 0 {
		return true
	}
	for _, c := range h.Classes {
		if stdlibCatchers[lastDot(c)] {
			return true
		}
	}
	return false
}

func lastDot(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[i+1:]
		}
	}
	return s
}

// failure is one way a function body can fail: a raised class, or a
// library call ("" class).
type failure struct {
	class  string
	raised bool // a raise statement in the body itself
}

// propagateCanFail marks functions that raise or call fallible code
// without handling it, and picks their error type. Callers of fallible
// user functions become fallible in turn, up to a fixpoint. A callee's
// escaping classes travel with it so a caller's handlers see the real
// exception classes, not an opaque boxed error.
func (in *inferer) propagateCanFail() {
	funcs := in.allFuncsWithNested()
	in.escapes = map[*hir.Func][]string{}
	for _, fn := range funcs {
		fn.Flags &^= hir.FuncCanFail
		fn.ErrorType = ""
		fn.Raises = nil
	}
	for changed, rounds := true, 0; changed && rounds < 64; rounds++ {
		changed = false
		for _, fn := range funcs {
			if fn.Flags.HasFlag(hir.FuncEntry) || fn.IsGenerator() {
				continue
			}
			fails := in.failures(fn)
			if len(fails) == 0 {
				continue
			}
			classes := failureClasses(fails)
			errType := errorTypeOf(fails)
			if !fn.CanFail() || fn.ErrorType != errType || !sameClasses(in.escapes[fn], classes) {
				fn.Flags |= hir.FuncCanFail
				fn.ErrorType = errType
				in.escapes[fn] = classes
				changed = true
			}
		}
	}
	for _, fn := range funcs {
		fn.Raises = in.raises(fn)
		if fn.CanFail() {
			prev := in.fn
			in.fn = fn
			in.record(trace.DecisionErrorHandling, "Result<_, "+fn.ErrorType+">", "body can fail", fn.Span)
			in.fn = prev
		}
	}
}

// failureClasses is the sorted set of classes in fails; "" stands for
// library failures.
func failureClasses(fails []failure) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range fails {
		if !seen[f.class] {
			seen[f.class] = true
			out = append(out, f.class)
		}
	}
	sort.Strings(out)
	return out
}

func sameClasses(a, b []string) bool {
	return strings.Join(a, "\x00") == strings.Join(b, "\x00") && len(a) == len(b)
}

func errorTypeOf(fails []failure) string {
	first := fails[0].class
	for _, f := range fails[1:] {
		if f.class != first {
			return BoxedError
		}
	}
	if first == "" {
		return BoxedError
	}
	return first
}

// failures lists the unhandled failure sources of fn's body.
func (in *inferer) failures(fn *hir.Func) []failure {
	var out []failure
	in.walkFailures(fn.Body, nil, func(f failure) { out = append(out, f) })
	return out
}

// raises lists the named exception classes that escape fn: its own
// raise statements first, then classes passed through from callees.
func (in *inferer) raises(fn *hir.Func) []string {
	var out []string
	seen := map[string]bool{"": true}
	in.walkFailures(fn.Body, nil, func(f failure) {
		if f.raised && !seen[f.class] {
			seen[f.class] = true
			out = append(out, f.class)
		}
	})
	for _, c := range in.escapes[fn] {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// walkFailures reports each failure source in b not covered by one of
// the enclosing handlers.
func (in *inferer) walkFailures(b *hir.Block, handlers [][]*hir.Handler, emit func(failure)) {
	if b == nil {
		return
	}
	covered := func(f failure) bool {
		for _, hs := range handlers {
			for _, h := range hs {
				if f.class == "" && CatchesStdlib(h) {
					return true
				}
				if f.class != "" && in.catches(h, f.class) {
					return true
				}
			}
		}
		return false
	}
	report := func(f failure) {
		if !covered(f) {
			emit(f)
		}
	}
	for _, s := range b.Stmts {
		for _, e := range hir.StmtExprs(s) {
			in.exprFailures(e, report)
		}
		switch d := s.Data.(type) {
		case *hir.RaiseData:
			cls := d.Class
			if cls == "" {
				cls = "Exception"
			}
			report(failure{class: cls, raised: true})
		case *hir.TryData:
			inner := append(append([][]*hir.Handler(nil), handlers...), d.Handlers)
			in.walkFailures(d.Body, inner, emit)
			for _, h := range d.Handlers {
				in.walkFailures(h.Body, handlers, emit)
			}
			in.walkFailures(d.Else, handlers, emit)
			in.walkFailures(d.Finally, handlers, emit)
			continue
		case *hir.FuncDefData:
			continue
		}
		for _, nb := range hir.StmtBlocks(s) {
			in.walkFailures(nb, handlers, emit)
		}
	}
}

// exprFailures reports fallible calls in e. Lambda bodies are skipped:
// closures unwrap their own failures.
func (in *inferer) exprFailures(e *hir.Expr, report func(failure)) {
	hir.InspectExpr(e, hir.Visitor{Expr: func(x *hir.Expr) bool {
		switch d := x.Data.(type) {
		case *hir.LambdaData:
			return false
		case *hir.CallData:
			if d.CanFail {
				report(failure{})
			}
			in.calleeFailures(d.Target, report)
		case *hir.MethodCallData:
			if d.CanFail {
				report(failure{})
			}
			in.calleeFailures(d.Target, report)
		}
		return true
	}})
}

// calleeFailures reports every class that escapes a fallible user
// function.
func (in *inferer) calleeFailures(fn *hir.Func, report func(failure)) {
	if fn == nil || !fn.CanFail() {
		return
	}
	classes, ok := in.escapes[fn]
	if !ok {
		classes = []string{errorClass(fn.ErrorType)}
	}
	for _, c := range classes {
		report(failure{class: c})
	}
}

func errorClass(errType string) string {
	if errType == BoxedError {
		return ""
	}
	return errType
}

// catches walks the user class hierarchy so `except Base` covers
// subclasses.
func (in *inferer) catches(h *hir.Handler, cls string) bool {
	for depth := 0; cls != "" && depth < 32; depth++ {
		if h.Catches(cls) {
			return true
		}
		c := in.module.Class(cls)
		if c == nil {
			return false
		}
		cls = c.Base
	}
	return false
}

func (in *inferer) allFuncsWithNested() []*hir.Func {
	var out []*hir.Func
	var add func(fn *hir.Func)
	add = func(fn *hir.Func) {
		out = append(out, fn)
		hir.Inspect(fn.Body, hir.Visitor{Stmt: func(s *hir.Stmt) bool {
			if fd, ok := s.Data.(*hir.FuncDefData); ok && fd.Func != nil {
				add(fd.Func)
			}
			return true
		}})
	}
	for _, fn := range in.module.AllFuncs() {
		add(fn)
	}
	return out
}
