package infer

import (
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

func (in *inferer) typeCall(e *hir.Expr, d *hir.CallData) *types.Type {
	shadowed := in.fn != nil && in.fn.LocalType(d.Func) != nil
	if !shadowed {
		if fn := in.module.Func(d.Func); fn != nil {
			d.Target = fn
			in.typeArgs(d.Args, d.Kwargs, fn.Params)
			return fn.Result
		}
		if c := in.module.Class(d.Func); c != nil {
			d.Class = c
			if init := in.findMethod(c, "__init__"); init != nil {
				in.typeArgs(d.Args, d.Kwargs, init.Params)
			} else {
				in.typeArgs(d.Args, d.Kwargs, fieldParams(c))
			}
			return types.Custom(c.Name)
		}
	}
	if shadowed {
		args := in.typeArgs(d.Args, d.Kwargs, nil)
		if lam := in.lambdas[lambdaKey{in.fn, d.Func}]; lam != nil {
			in.fn.Locals[d.Func] = types.Join(in.fn.Locals[d.Func], in.typeLambda(lam, args))
		}
		if ft := in.fn.LocalType(d.Func); ft.Kind == types.KindFunc {
			return ft.Result
		}
		return types.Dynamic
	}
	if imp, it := in.module.ImportedItem(d.Func); imp != nil {
		args := in.typeArgs(d.Args, d.Kwargs, nil)
		t, fallible := moduleCallResult(imp.Module, it.Name, args, d.Args)
		d.CanFail = fallible
		return t
	}
	if isExceptionClass(d.Func) {
		in.typeArgs(d.Args, d.Kwargs, nil)
		return types.Custom(d.Func)
	}
	if d.Func == "super" && in.class != nil && in.class.Base != "" {
		return types.Custom(in.class.Base)
	}
	if (d.Func == "map" || d.Func == "filter") && len(d.Args) > 1 {
		in.typeExpr(d.Args[1])
	}
	args := in.typeArgs(d.Args, d.Kwargs, builtinParamHints(d.Func, d.Args))
	if t, fallible, ok := builtinResult(d.Func, args, d); ok {
		d.CanFail = fallible
		return t
	}
	if in.final {
		in.report(diag.TypUnresolved, e.Span, "call to unknown function %s returns a dynamic value", d.Func)
		in.record(trace.DecisionTypeMapping, "DynValue", "unknown callee "+d.Func, e.Span)
	}
	return types.Dynamic
}

// typeArgs types call arguments, using parameter types as expectations
// and feeding argument types back into unannotated parameters.
func (in *inferer) typeArgs(args []*hir.Expr, kwargs []*hir.Kwarg, params []*hir.Param) []*types.Type {
	out := make([]*types.Type, len(args))
	positional := make([]*hir.Param, 0, len(params))
	for _, p := range params {
		if p.Kind == hir.ParamPositional {
			positional = append(positional, p)
		}
	}
	for i, a := range args {
		var p *hir.Param
		if i < len(positional) {
			p = positional[i]
		} else if n := len(params); n > 0 && params[n-1].Kind == hir.ParamVarArgs {
			p = params[n-1]
		}
		out[i] = in.typeArg(a, p)
	}
	for _, kw := range kwargs {
		var p *hir.Param
		for _, cand := range params {
			if cand.Name == kw.Name {
				p = cand
			}
		}
		in.typeArg(kw.Value, p)
	}
	return out
}

func (in *inferer) typeArg(a *hir.Expr, p *hir.Param) *types.Type {
	if p == nil {
		return in.typeExpr(a)
	}
	want := p.Type
	if p.Kind == hir.ParamVarArgs && want.Kind == types.KindList {
		want = want.Elem
	}
	t := in.typeExpected(a, want)
	if !p.Declared && t.IsKnown() && t.Kind != types.KindNone && p.Kind == hir.ParamPositional {
		p.Type = types.Join(p.Type, t)
	}
	return t
}

// fieldParams models a dataclass constructor.
func fieldParams(c *hir.Class) []*hir.Param {
	params := make([]*hir.Param, 0, len(c.Fields))
	for _, f := range c.Fields {
		params = append(params, &hir.Param{Name: f.Name, Type: f.Type, Declared: true, Default: f.Default})
	}
	return params
}

func (in *inferer) typeMethodCall(e *hir.Expr, d *hir.MethodCallData) *types.Type {
	if d.Module != nil {
		args := in.typeArgs(d.Args, d.Kwargs, nil)
		if d.Module.Module == "argparse" && d.Method == "ArgumentParser" {
			return types.Extern(types.ExtArgParser)
		}
		t, fallible := moduleCallResult(d.Module.Module, d.Method, args, d.Args)
		d.CanFail = fallible
		if !t.IsKnown() && in.final {
			in.report(diag.MthUnknownModule, e.Span, "%s.%s is not in the standard library table", d.Module.Module, d.Method)
		}
		return t
	}
	if imp := in.importedReceiver(d.Recv); imp != nil {
		d.Recv.Type = types.Dynamic
		args := in.typeArgs(d.Args, d.Kwargs, nil)
		t, fallible := moduleCallResult(imp.Module, d.Method, args, d.Args)
		d.CanFail = fallible
		return t
	}
	rt := in.typeExpr(d.Recv)
	if c := in.classOf(rt); c != nil {
		if m := in.findMethod(c, d.Method); m != nil {
			d.Target = m
			in.typeArgs(d.Args, d.Kwargs, m.Params)
			return m.Result
		}
	}
	if rt.IsExtern(types.ExtArgParser) {
		return in.argparseCall(d)
	}
	args := in.typeArgs(d.Args, d.Kwargs, methodParamHints(rt, d.Method))
	in.refineReceiver(d, rt, args)
	if rt.Kind == types.KindOptional && rt.Elem != nil {
		rt = rt.Elem
	}
	t, fallible, ok := methodResult(rt, d.Method, args)
	if ok {
		d.CanFail = fallible
		return t
	}
	if rt.IsDynamic() || !rt.IsKnown() {
		if in.final {
			in.record(trace.DecisionMethodDispatch, "DynValue."+d.Method, "receiver type unresolved", e.Span)
		}
		if ht := hintedResult(d.Method); ht != nil {
			return ht
		}
		return types.Dynamic
	}
	if in.final {
		in.report(diag.MthUnknownMethod, e.Span, "unknown method %s on %s", d.Method, rt)
	}
	return types.Dynamic
}

// refineReceiver sharpens a local container's element types from how it
// is filled: xs.append(1) makes an empty list a list[int].
func (in *inferer) refineReceiver(d *hir.MethodCallData, rt *types.Type, args []*types.Type) {
	var refined *types.Type
	switch d.Method {
	case "append", "insert", "remove":
		if len(args) == 0 {
			return
		}
		elem := args[len(args)-1]
		if rt.Kind == types.KindList || !rt.IsKnown() {
			refined = types.ListOf(elem)
		}
	case "extend":
		if len(args) == 1 && (rt.Kind == types.KindList || !rt.IsKnown()) {
			refined = types.ListOf(types.ElemOf(args[0]))
		}
	case "add", "discard":
		if len(args) == 1 && (rt.Kind == types.KindSet || !rt.IsKnown()) {
			refined = types.SetOf(args[0])
		}
	case "setdefault":
		if len(args) == 2 && (rt.Kind == types.KindDict || !rt.IsKnown()) {
			refined = types.DictOf(args[0], args[1])
		}
	case "update":
		if len(args) == 1 && args[0].Kind == rt.Kind && (rt.Kind == types.KindDict || rt.Kind == types.KindSet) {
			refined = args[0]
		}
	default:
		if !rt.IsKnown() {
			refined = receiverHint(d.Method)
		}
	}
	if refined == nil {
		return
	}
	if name := hir.NameOf(d.Recv); name != "" {
		in.bindLocal(name, refined, d.Recv.Span)
		d.Recv.Type = in.lookup(name)
		return
	}
	in.refineField(d.Recv, func(*types.Type) *types.Type { return refined })
}

func isExceptionClass(name string) bool {
	switch name {
	case "Exception", "BaseException", "ValueError", "TypeError", "KeyError", "IndexError",
		"RuntimeError", "ZeroDivisionError", "FileNotFoundError", "IOError", "OSError",
		"AttributeError", "NotImplementedError", "StopIteration", "AssertionError",
		"LookupError", "ArithmeticError", "OverflowError", "PermissionError", "TimeoutError":
		return true
	}
	return false
}

// importedReceiver resolves `datetime.now()` after `from datetime import
// datetime`: a receiver naming an imported class, not shadowed locally.
func (in *inferer) importedReceiver(recv *hir.Expr) *hir.Import {
	name := hir.NameOf(recv)
	if name == "" || in.lookup(name).IsKnown() {
		return nil
	}
	imp, it := in.module.ImportedItem(name)
	if imp == nil || moduleAttrType(imp.Module, it.Name).IsKnown() {
		return nil
	}
	return imp
}
