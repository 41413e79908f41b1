package ownership

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/trace"
)

// Options configure an ownership run.
type Options struct {
	Reporter  diag.Reporter
	Decisions *trace.DecisionLog
}

// Analyze annotates m in place. m must be fully typed.
func Analyze(m *hir.Module, opts Options) {
	if m == nil {
		return
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	a := &analyzer{module: m, reporter: opts.Reporter, log: opts.Decisions}
	a.run()
}

type analyzer struct {
	module   *hir.Module
	reporter diag.Reporter
	log      *trace.DecisionLog
	funcs    []*hir.Func
}

func (a *analyzer) run() {
	a.funcs = allFuncs(a.module)
	for _, fn := range a.funcs {
		fn.Mutable = set.New[string](0)
		fn.Moved = set.New[string](0)
		fn.Captured = set.New[string](0)
		if fn.Globals == nil {
			fn.Globals = set.New[string](0)
		}
	}
	// Mutation flows from callees to callers (passing a binding to a
	// parameter that is mutated mutates the binding), so iterate.
	for changed := true; changed; {
		changed = false
		for _, fn := range a.funcs {
			if a.scanMutation(fn) {
				changed = true
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for _, fn := range a.funcs {
			if a.decideParams(fn) {
				changed = true
			}
		}
	}
	for _, fn := range a.funcs {
		a.recordParams(fn)
		a.decideUses(fn)
		a.decideCaptures(fn)
	}
}

func (a *analyzer) report(code diag.Code, sp source.Span, format string, args ...any) {
	diag.Report(a.reporter, code, sp, format, args...).Emit()
}

func (a *analyzer) record(fn *hir.Func, cat trace.DecisionCategory, choice, reason string, sp source.Span) {
	a.log.Record(cat, fn.QualName(), choice, reason, sp)
}

// allFuncs lists module functions, methods and nested defs, outer
// functions before the defs they contain.
func allFuncs(m *hir.Module) []*hir.Func {
	var out []*hir.Func
	var add func(fn *hir.Func)
	add = func(fn *hir.Func) {
		out = append(out, fn)
		for _, nested := range nestedFuncs(fn) {
			add(nested)
		}
	}
	for _, fn := range m.AllFuncs() {
		add(fn)
	}
	return out
}

func nestedFuncs(fn *hir.Func) []*hir.Func {
	var out []*hir.Func
	hir.Inspect(fn.Body, hir.Visitor{Stmt: func(s *hir.Stmt) bool {
		if fd, ok := s.Data.(*hir.FuncDefData); ok && fd.Func != nil {
			out = append(out, fd.Func)
		}
		return true
	}})
	return out
}
