package infer

import (
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// rounds bounds how often the module is re-typed; each round lets one
// more level of unannotated call chains resolve.
const rounds = 3

// Options configure an inference run.
type Options struct {
	Reporter  diag.Reporter
	Decisions *trace.DecisionLog
}

// Infer types m in place.
func Infer(m *hir.Module, opts Options) {
	if m == nil {
		return
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	in := &inferer{
		module:   m,
		reporter: opts.Reporter,
		log:      opts.Decisions,
		parsers:  map[string]*argParser{},
		widened:  map[string]bool{},
		lambdas:  map[lambdaKey]*hir.Expr{},
	}
	in.run()
}

type inferer struct {
	module   *hir.Module
	reporter diag.Reporter
	log      *trace.DecisionLog

	fn      *hir.Func  // function being typed
	class   *hir.Class // class of fn, nil for free functions
	final   bool       // last round: report instead of guessing
	parsers map[string]*argParser
	widened map[string]bool         // bindings already reported as widened
	escapes map[*hir.Func][]string  // classes that escape each fallible function
	lambdas map[lambdaKey]*hir.Expr // lambdas bound to a local name
}

type lambdaKey struct {
	fn   *hir.Func
	name string
}

func (in *inferer) run() {
	for _, c := range in.module.Classes {
		for _, f := range c.Fields {
			if f.Default != nil && !f.Type.IsKnown() {
				f.Type = in.typeExpr(f.Default)
			}
		}
	}
	for round := 0; round < rounds; round++ {
		in.final = round == rounds-1
		in.inferGlobals()
		for _, fn := range in.module.Funcs {
			in.inferFunc(fn, nil)
		}
		for _, c := range in.module.Classes {
			for _, m := range c.Methods {
				in.inferFunc(m, c)
			}
			in.inferClassConstants(c)
		}
		for _, p := range in.module.Protocols {
			for _, m := range p.Methods {
				in.seedParams(m)
			}
		}
		in.hintParams()
	}
	in.propagateCanFail()
	in.finalize()
}

func (in *inferer) inferGlobals() {
	prev := in.fn
	in.fn = nil
	for _, g := range in.module.Globals {
		t := in.typeExpr(g.Value)
		if g.Type == nil || !g.Type.IsKnown() {
			g.Type = t
		}
	}
	in.fn = prev
}

func (in *inferer) inferClassConstants(c *hir.Class) {
	prev := in.fn
	in.fn = nil
	for _, k := range c.Constants {
		t := in.typeExpr(k.Value)
		if k.Type == nil || !k.Type.IsKnown() {
			k.Type = t
		}
	}
	in.fn = prev
}

func (in *inferer) seedParams(fn *hir.Func) {
	if fn.Locals == nil {
		fn.Locals = map[string]*types.Type{}
	}
	for _, p := range fn.Params {
		if p.Default != nil {
			dt := in.typeExpr(p.Default)
			if !p.Declared {
				p.Type = types.Join(p.Type, dt)
			} else if dt.Kind == types.KindNone && p.Type.Kind != types.KindOptional {
				// def f(x: list[int] = None) means Optional[list[int]].
				p.Type = types.OptionalOf(p.Type)
			}
		}
	}
}

// inferFunc types one function body. Nested defs are typed when their
// FuncDef statement is reached, with parent's locals visible.
func (in *inferer) inferFunc(fn *hir.Func, class *hir.Class) {
	prevFn, prevClass := in.fn, in.class
	in.fn, in.class = fn, class
	defer func() { in.fn, in.class = prevFn, prevClass }()

	in.seedParams(fn)
	fn.Raises = nil
	fn.Flags &^= hir.FuncCanFail
	var returns []*types.Type
	hasBareReturn := false
	in.inferBlock(fn.Body, func(r *hir.ReturnData) {
		if r.Value == nil {
			hasBareReturn = true
			return
		}
		returns = append(returns, r.Value.Type)
	})
	if fn.IsGenerator() {
		fn.Flags |= hir.FuncReturnsIterator
		if !fn.Declared || fn.Result.Kind != types.KindIterator {
			fn.Result = types.IteratorOf(in.yieldType(fn))
		}
		return
	}
	if fn.Flags.HasFlag(hir.FuncEntry) {
		fn.Result = types.None
		return
	}
	in.settleResult(fn, returns, hasBareReturn)
}

// settleResult derives the result type from the return statements and
// the returns-optional flag.
func (in *inferer) settleResult(fn *hir.Func, returns []*types.Type, hasBareReturn bool) {
	sawNone := hasBareReturn
	var joined *types.Type
	for _, t := range returns {
		if t.Kind == types.KindNone {
			sawNone = true
			continue
		}
		joined = types.Join(joined, t)
	}
	if fn.Declared && joined != nil && fn.Result.HasUnknown() && joined.Kind == fn.Result.Kind {
		// a bare `-> dict` takes its parameters from what the body returns
		if refined := types.Join(fn.Result, joined); !refined.Equal(fn.Result) {
			fn.Result = refined
			if in.final {
				in.record(trace.DecisionTypeMapping, refined.String(), "unparameterised return annotation refined from the body", fn.Span)
			}
		}
	}
	if !fn.Declared {
		switch {
		case joined == nil:
			fn.Result = types.None
		case sawNone:
			fn.Result = types.OptionalOf(joined)
		default:
			fn.Result = joined
		}
	}
	if sawNone && joined != nil {
		fn.Flags |= hir.FuncReturnsOptional
		if fn.Result.Kind != types.KindOptional {
			fn.Result = types.OptionalOf(fn.Result)
		}
		if in.final {
			in.record(trace.DecisionTypeMapping, "Option<"+fn.Result.Elem.String()+">", "some path returns None", fn.Span)
		}
	}
	if fn.Result.Kind == types.KindOptional {
		fn.Flags |= hir.FuncReturnsOptional
	}
}

func (in *inferer) yieldType(fn *hir.Func) *types.Type {
	var t *types.Type
	hir.Inspect(fn.Body, hir.Visitor{Expr: func(e *hir.Expr) bool {
		if e.Kind == hir.ExprLambda {
			return false
		}
		if y, ok := e.Data.(*hir.YieldData); ok && y.Value != nil {
			if y.From {
				t = types.Join(t, types.ElemOf(y.Value.Type))
			} else {
				t = types.Join(t, y.Value.Type)
			}
		}
		return true
	}})
	if t == nil {
		return types.Unknown
	}
	return t
}

// bindLocal records an observation of a binding and reports precision
// loss once per binding.
func (in *inferer) bindLocal(name string, t *types.Type, sp source.Span) {
	if in.fn == nil || name == "_" {
		return
	}
	if g := in.module.Global(name); g != nil && in.fn.Globals != nil && in.fn.Globals.Contains(name) {
		g.Type = types.Join(g.Type, t)
		return
	}
	if p := in.fn.Param(name); p != nil {
		if !p.Declared {
			p.Type = types.Join(p.Type, t)
		}
		return
	}
	before := in.fn.Locals[name]
	after := types.Join(before, t)
	in.fn.Locals[name] = after
	key := in.fn.QualName() + "." + name
	if types.Widened(before, after) && !in.widened[key] {
		in.widened[key] = true
		in.report(diag.TypWidened, sp, "%s is assigned both %s and %s; using a dynamic value", name, before, t)
	}
}

// lookup resolves a name: locals and parameters, then module globals,
// functions and classes.
func (in *inferer) lookup(name string) *types.Type {
	if in.fn != nil {
		if t := in.fn.LocalType(name); t != nil {
			return t
		}
	}
	if t := in.receiverType(name); t != nil {
		return t
	}
	if g := in.module.Global(name); g != nil && g.Type != nil {
		return g.Type
	}
	if fn := in.module.Func(name); fn != nil {
		return funcType(fn)
	}
	if c := in.module.Class(name); c != nil {
		return types.Custom(c.Name)
	}
	return types.Unknown
}

// receiverType types the implicit receiver of a method body: self in
// instance methods and their nested closures, cls in class methods.
func (in *inferer) receiverType(name string) *types.Type {
	if in.class == nil || in.fn == nil {
		return nil
	}
	switch name {
	case "self":
		if in.fn.Flags.HasFlag(hir.FuncStatic) || in.fn.Flags.HasFlag(hir.FuncClassMethod) {
			return nil
		}
		return types.Custom(in.class.Name)
	case "cls":
		if in.fn.Flags.HasFlag(hir.FuncStatic) {
			return nil
		}
		return types.Custom(in.class.Name)
	}
	return nil
}

func funcType(fn *hir.Func) *types.Type {
	params := make([]*types.Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type
	}
	return types.FuncOf(params, fn.Result)
}

func (in *inferer) report(code diag.Code, sp source.Span, format string, args ...any) {
	diag.Report(in.reporter, code, sp, format, args...).Emit()
}

func (in *inferer) record(cat trace.DecisionCategory, choice, reason string, sp source.Span) {
	site := "<module>"
	if in.fn != nil {
		site = in.fn.QualName()
	}
	in.log.Record(cat, site, choice, reason, sp)
}

func (in *inferer) classOf(t *types.Type) *hir.Class {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case types.KindCustom, types.KindGeneric:
		return in.module.Class(t.Name)
	case types.KindOptional:
		return in.classOf(t.Elem)
	}
	return nil
}

// findMethod walks the single-inheritance chain.
func (in *inferer) findMethod(c *hir.Class, name string) *hir.Func {
	for depth := 0; c != nil && depth < 32; depth++ {
		if m := c.Method(name); m != nil {
			return m
		}
		c = in.module.Class(c.Base)
	}
	return nil
}

func (in *inferer) findField(c *hir.Class, name string) *hir.Field {
	for depth := 0; c != nil && depth < 32; depth++ {
		if f := c.Field(name); f != nil {
			return f
		}
		c = in.module.Class(c.Base)
	}
	return nil
}
