package bridge

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// funcState is the per-function part of the lowerer, saved and restored
// around nested definitions.
type funcState struct {
	fn    *hir.Func
	loops []loopCtx
	bound *set.Set[string]
}

func (l *lowerer) enterFunc(fn *hir.Func) funcState {
	saved := funcState{fn: l.fn, loops: l.loops, bound: l.bound}
	l.fn, l.loops, l.bound = fn, nil, set.New[string](8)
	return saved
}

func (l *lowerer) leaveFunc(saved funcState) {
	l.fn, l.loops, l.bound = saved.fn, saved.loops, saved.bound
}

func (l *lowerer) bind(names ...string) {
	if l.bound == nil {
		l.bound = set.New[string](8)
	}
	for _, n := range names {
		l.bound.Insert(n)
	}
}

func (l *lowerer) isLocal(name string) bool {
	return l.bound != nil && l.bound.Contains(name)
}

// lowerFunc lowers a def. class is the owning class for methods.
func (l *lowerer) lowerFunc(st *pyast.FunctionDef, class *hir.Class) *hir.Func {
	fn := &hir.Func{
		Name:    ident(st.Name),
		Result:  types.Unknown,
		Span:    l.span(st),
		Globals: set.New[string](0),
	}
	if class != nil {
		fn.Class = class.Name
	}
	if st.IsAsync {
		fn.Flags |= hir.FuncAsync
	}
	if l.fn != nil && !l.fn.Flags.HasFlag(hir.FuncEntry) {
		fn.Flags |= hir.FuncNested
	}
	l.lowerDecorators(fn, st.Decorators, class != nil)
	if class != nil && !fn.Flags.HasFlag(hir.FuncStatic) && !fn.Flags.HasFlag(hir.FuncClassMethod) {
		fn.Flags |= hir.FuncMethod
	}
	if st.Returns != nil {
		fn.Result = l.typeOf(st.Returns)
		fn.Declared = true
	} else if fn.Name == "__init__" {
		fn.Result = types.None
		fn.Declared = true
	}
	fn.Annotations = l.annotationsFor(fn.QualName())

	saved := l.enterFunc(fn)
	defer l.leaveFunc(saved)

	fn.Params = l.lowerParams(st.Args, fn)
	body := st.Body
	if doc, ok := docstring(body); ok {
		fn.Doc = doc
		body = body[1:]
	}
	fn.Body = &hir.Block{Stmts: l.lowerStmts(body), Span: l.span(st)}
	if hir.ContainsYield(fn.Body) {
		fn.Flags |= hir.FuncGenerator
		if !fn.Declared {
			fn.Result = types.IteratorOf(types.Unknown)
		}
		l.record(trace.DecisionGenerator, "generator", "body contains yield", fn.Span)
	}
	return fn
}

func (l *lowerer) lowerParams(args *pyast.Arguments, fn *hir.Func) []*hir.Param {
	if args == nil {
		return nil
	}
	var params []*hir.Param
	positional := append(append([]*pyast.Arg{}, args.PosOnly...), args.Args...)
	firstDefault := len(positional) - len(args.Defaults)
	skipReceiver := fn.IsMethod() || fn.Flags.HasFlag(hir.FuncClassMethod)
	for i, a := range positional {
		if i == 0 && skipReceiver {
			continue
		}
		p := l.lowerParam(a, hir.ParamPositional)
		if i >= firstDefault && i-firstDefault < len(args.Defaults) {
			p.Default = l.lowerExpr(args.Defaults[i-firstDefault])
		}
		params = append(params, p)
	}
	if args.VarArg != nil {
		p := l.lowerParam(args.VarArg, hir.ParamVarArgs)
		p.Type = types.ListOf(p.Type)
		params = append(params, p)
	}
	for i, a := range args.KwOnly {
		p := l.lowerParam(a, hir.ParamKeywordOnly)
		if i < len(args.KwDefaults) && args.KwDefaults[i] != nil {
			p.Default = l.lowerExpr(args.KwDefaults[i])
		}
		params = append(params, p)
	}
	if args.KwArg != nil {
		p := l.lowerParam(args.KwArg, hir.ParamKwArgs)
		p.Type = types.DictOf(types.Str, p.Type)
		params = append(params, p)
	}
	return params
}

func (l *lowerer) lowerParam(a *pyast.Arg, kind hir.ParamKind) *hir.Param {
	p := &hir.Param{Name: ident(a.Name), Type: types.Unknown, Kind: kind, Span: l.span(a)}
	if a.Annotation != nil {
		p.Type = l.typeOf(a.Annotation)
		p.Declared = true
	}
	l.bind(p.Name)
	return p
}

// lowerDecorators sets flags for the decorators that change how a def
// is emitted. Decorators that only affect runtime behavior are recorded
// and dropped.
func (l *lowerer) lowerDecorators(fn *hir.Func, decs []pyast.Expr, inClass bool) {
	for _, d := range decs {
		name := dottedName(d)
		if c, ok := d.(*pyast.Call); ok {
			name = dottedName(c.Func)
		}
		fn.Decorators = append(fn.Decorators, name)
		switch name {
		case "staticmethod":
			fn.Flags |= hir.FuncStatic
		case "classmethod":
			fn.Flags |= hir.FuncClassMethod
		case "property", "functools.cached_property", "cached_property":
			fn.Flags |= hir.FuncProperty
		case "abstractmethod", "abc.abstractmethod", "override", "typing.override", "final", "typing.final":
		case "functools.lru_cache", "lru_cache", "functools.cache", "cache", "functools.wraps", "wraps":
			l.record(trace.DecisionTypeMapping, "drop @"+name, "memoization has no effect on emitted semantics", l.span(d))
		default:
			if inClass && len(name) > 7 && name[len(name)-7:] == ".setter" {
				fn.Flags |= hir.FuncProperty | hir.FuncMutSelf
				fn.Name = "set_" + fn.Name
				continue
			}
			l.unsupported(diag.UnsDecorator, d, "decorator @%s is not supported", name)
		}
	}
}
