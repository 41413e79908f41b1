package rustgen

import (
	"strconv"
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/infer"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

func (f *funcEmitter) call(e *hir.Expr, d *hir.CallData) string {
	if f.isLocal(d.Func) && f.e.mod.Func(d.Func) == nil {
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = f.value(a)
		}
		return f.ident(d.Func) + "(" + strings.Join(args, ", ") + ")"
	}
	if d.Target != nil {
		return f.userCall(f.e.funcName(d.Target), d.Target, d.Args, d.Kwargs)
	}
	if d.Class != nil {
		return f.construct(e, d.Class, d.Args, d.Kwargs)
	}
	if imp, it := f.e.mod.ImportedItem(d.Func); imp != nil {
		s, fallible := f.moduleCall(e, imp, it.Name, d.Args, d.Kwargs)
		if fallible {
			return f.propagate(s, "")
		}
		return s
	}
	if builtinException(d.Func) {
		return f.e.className(d.Func) + "::new(" + f.excMessage(d.Args) + ")"
	}
	if s, ok := f.builtin(e, d); ok {
		return s
	}
	// inference already reported the unresolved callee
	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		args[i] = f.value(a)
	}
	return SafeIdent(d.Func) + "(" + strings.Join(args, ", ") + ")"
}

// userCall spells a call of a translated function or method path.
func (f *funcEmitter) userCall(path string, target *hir.Func, args []*hir.Expr, kwargs []*hir.Kwarg) string {
	s := path + "(" + f.args(target.Params, args, kwargs) + ")"
	// safety mode emits async bodies as plain functions
	if target.IsAsync() && !f.e.opts.SafetyMode {
		if f.fn.IsAsync() {
			s += ".await"
		} else {
			f.e.need("tokio")
			s = "tokio::runtime::Runtime::new().unwrap().block_on(" + s + ")"
		}
	}
	if target.CanFail() {
		return f.propagate(s, f.e.errorType(target))
	}
	return s
}

// awaitsItself reports an expression whose emission already resolves
// its future: user async calls await (or block on) at the call.
func awaitsItself(e *hir.Expr) bool {
	var target *hir.Func
	switch d := e.Data.(type) {
	case *hir.CallData:
		target = d.Target
	case *hir.MethodCallData:
		target = d.Target
	}
	return target != nil && target.IsAsync()
}

// propagate settles a Result from a call. errType is the callee's error
// type, "" for library errors.
func (f *funcEmitter) propagate(s, errType string) string {
	if !f.canFail() {
		return atom(s) + ".unwrap()"
	}
	mine := f.errorType()
	if mine == infer.BoxedError || mine == errType {
		return atom(s) + "?"
	}
	return atom(s) + ".map_err(|e| " + mine + "::new(e.to_string()))?"
}

// construct spells a class instantiation.
func (f *funcEmitter) construct(e *hir.Expr, c *hir.Class, args []*hir.Expr, kwargs []*hir.Kwarg) string {
	if f.e.isException(c.Name) && f.e.findMethod(c, "__init__") == nil {
		return c.RustName + "::new(" + f.excMessage(args) + ")"
	}
	if init := f.e.findMethod(c, "__init__"); init != nil {
		return f.userCall(c.RustName+"::new", init, args, kwargs)
	}
	return c.RustName + "::new(" + f.args(f.e.fieldParams(c), args, kwargs) + ")"
}

// excMessage spells the message argument of an exception constructor.
func (f *funcEmitter) excMessage(args []*hir.Expr) string {
	if len(args) == 0 {
		return `""`
	}
	a := args[0]
	if lit, ok := a.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
		return quote(lit.Text)
	}
	if a.Type.Kind == types.KindStr {
		return f.value(a)
	}
	arg, ph := f.formatArg(a, 0, "")
	return "format!(\"" + ph + "\", " + arg + ")"
}

// args spells call arguments against the callee's parameters, filling
// keyword arguments and defaults into positional order.
func (f *funcEmitter) args(params []*hir.Param, args []*hir.Expr, kwargs []*hir.Kwarg) string {
	var out []string
	used := map[string]bool{}
	ai := 0
	for _, p := range params {
		switch p.Kind {
		case hir.ParamVarArgs:
			var elems []string
			for ; ai < len(args); ai++ {
				elems = append(elems, f.coerce(args[ai], types.ElemOf(p.Type)))
			}
			if len(elems) == 0 {
				out = append(out, "Vec::new()")
			} else {
				out = append(out, "vec!["+strings.Join(elems, ", ")+"]")
			}
			continue
		case hir.ParamKwArgs:
			var pairs []string
			for _, kw := range kwargs {
				if !used[kw.Name] {
					pairs = append(pairs, "("+quote(kw.Name)+".to_string(), "+f.coerce(kw.Value, p.Type.Value)+")")
				}
			}
			out = append(out, "std::collections::HashMap::from(["+strings.Join(pairs, ", ")+"])")
			continue
		}
		var a *hir.Expr
		if p.Kind == hir.ParamPositional && ai < len(args) {
			a = args[ai]
			ai++
		} else {
			for _, kw := range kwargs {
				if kw.Name == p.Name {
					a = kw.Value
					used[kw.Name] = true
				}
			}
		}
		if a == nil {
			a = p.Default
		}
		if a == nil {
			f.report(diag.GenUnsupportedExpr, p.Span, "missing argument for parameter %s", p.Name)
			out = append(out, f.e.mapper.Default(p.Type))
			continue
		}
		out = append(out, f.argFor(p, a))
	}
	if ai < len(args) {
		f.report(diag.GenUnsupportedExpr, args[ai].Span, "too many positional arguments")
	}
	return strings.Join(out, ", ")
}

// argFor spells one argument for the decided parameter mode.
func (f *funcEmitter) argFor(p *hir.Param, a *hir.Expr) string {
	if a.Type == nil {
		a.Type = p.Type
	}
	pt := p.Type
	switch {
	case pt.Kind == types.KindFunc:
		if a.Kind == hir.ExprLambda {
			return f.lambda(a, false)
		}
		return f.expr(a)
	case pt.Kind == types.KindIterator && a.Type.Kind != types.KindIterator:
		return f.iterSource(a)
	}
	switch p.Mode {
	case hir.OwnershipRef:
		if pt.Kind == types.KindStr {
			return f.strArg(a)
		}
		if pt.Kind == types.KindOptional && hir.IsNoneLit(a) {
			return "&None"
		}
		if a.Type.Kind != pt.Kind && !a.Type.IsDynamic() {
			return "&" + atom(f.coerce(a, pt))
		}
		return f.refArg(a)
	case hir.OwnershipRefMut:
		if n := hir.NameOf(a); n != "" && f.borrowedParam(n) != nil {
			return f.ident(n)
		}
		if pt.Kind == types.KindOptional && a.Type.Kind != types.KindOptional {
			// a temporary: the callee fills in a fresh Some or None
			return "&mut " + f.coerce(a, pt)
		}
		return "&mut " + atom(f.place(a))
	}
	return f.coerce(a, pt)
}

// fieldParams models a constructor without __init__.
func (e *Emitter) fieldParams(c *hir.Class) []*hir.Param {
	var out []*hir.Param
	for _, fl := range e.allFields(c) {
		out = append(out, &hir.Param{Name: fl.Name, Type: fl.Type, Default: fl.Default, Mode: hir.OwnershipOwn, Span: fl.Span})
	}
	return out
}

// builtin spells a call to a Python builtin function.
func (f *funcEmitter) builtin(e *hir.Expr, d *hir.CallData) (string, bool) {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	a0 := arg(0)
	it := f.e.opts.IntType
	switch d.Func {
	case "print":
		return f.print(d), true
	case "len":
		if a0 == nil {
			return "", false
		}
		return f.length(a0), true
	case "abs":
		return atom(f.expr(a0)) + ".abs()", true
	case "min", "max":
		return f.minMax(e, d), true
	case "sum":
		s := atom(f.iterSource(a0)) + ".sum::<" + f.rust(e.Type) + ">()"
		if a1 := arg(1); a1 != nil {
			s += " + " + paren(f.coerce(a1, e.Type))
		}
		return s, true
	case "round":
		if a0.Type.Kind != types.KindFloat {
			return f.expr(a0), true
		}
		if a1 := arg(1); a1 != nil {
			n := paren(f.expr(a1))
			return "{ let _p = 10f64.powi(" + n + " as i32); (" + paren(f.expr(a0)) + " * _p).round() / _p }", true
		}
		return "(" + atom(f.expr(a0)) + ".round() as " + it + ")", true
	case "int":
		return f.toInt(a0, arg(1)), true
	case "float":
		return f.toFloatCall(a0), true
	case "str":
		if a0 == nil {
			return "String::new()", true
		}
		return f.toStr(a0), true
	case "repr", "ascii":
		return "format!(\"{:?}\", " + f.expr(a0) + ")", true
	case "format":
		spec := ""
		if a1 := arg(1); a1 != nil {
			if lit, ok := a1.Data.(*hir.LiteralData); ok {
				spec = lit.Text
			}
		}
		v, ph := f.formatArg(a0, 0, spec)
		return "format!(\"" + ph + "\", " + v + ")", true
	case "bool":
		if a0 == nil {
			return "false", true
		}
		return f.cond(a0), true
	case "chr":
		return "char::from_u32(" + paren(f.expr(a0)) + " as u32).unwrap_or_default().to_string()", true
	case "ord":
		return "(" + atom(f.expr(a0)) + ".chars().next().unwrap_or_default() as " + it + ")", true
	case "hex":
		return "format!(\"{:#x}\", " + f.expr(a0) + ")", true
	case "bin":
		return "format!(\"{:#b}\", " + f.expr(a0) + ")", true
	case "oct":
		return "format!(\"{:#o}\", " + f.expr(a0) + ")", true
	case "isinstance":
		return f.isinstance(e, a0, arg(1)), true
	case "issubclass", "callable":
		f.record(trace.DecisionTypeMapping, d.Func, "folded at translation time", e.Span)
		return "true", true
	case "any", "all":
		return f.anyAll(d.Func, a0), true
	case "list", "tuple":
		if a0 == nil {
			return "Vec::new()", true
		}
		return atom(f.iterSource(a0)) + ".collect::<Vec<_>>()", true
	case "set", "frozenset":
		if a0 == nil {
			return "std::collections::HashSet::new()", true
		}
		return atom(f.iterSource(a0)) + ".collect::<std::collections::HashSet<_>>()", true
	case "dict":
		return f.dictCall(e, d), true
	case "bytes", "bytearray":
		switch {
		case a0 == nil:
			return "Vec::<u8>::new()", true
		case a0.Type.Kind == types.KindStr:
			return atom(f.expr(a0)) + ".as_bytes().to_vec()", true
		case a0.Type.Kind == types.KindInt:
			return "vec![0u8; " + paren(f.expr(a0)) + " as usize]", true
		}
		return atom(f.iterSource(a0)) + ".map(|b| b as u8).collect::<Vec<u8>>()", true
	case "sorted":
		return f.sorted(d), true
	case "reversed", "enumerate", "zip", "range", "iter":
		return f.builtinIter(e, d)
	case "map":
		return f.mapCall(d), true
	case "filter":
		return f.filterCall(d), true
	case "next":
		s := atom(f.expr(a0)) + ".next()"
		if a1 := arg(1); a1 != nil {
			return s + ".unwrap_or(" + f.coerce(a1, e.Type) + ")", true
		}
		return s + ".unwrap()", true
	case "divmod":
		l, r := f.operand(a0), f.operand(arg(1))
		return "(" + f.arith(hir.OpFloorDiv, l, r, e.Type.Elems[0]) + ", " + f.arith(hir.OpMod, l, r, e.Type.Elems[1]) + ")", true
	case "pow":
		s := f.arith(hir.OpPow, f.operand(a0), f.operand(arg(1)), e.Type)
		if a2 := arg(2); a2 != nil {
			return "(" + s + ") % " + paren(f.expr(a2)), true
		}
		return s, true
	case "open":
		return f.open(d), true
	case "input":
		return f.input(a0), true
	case "hash":
		return "{ use std::hash::{Hash, Hasher}; let mut _h = std::collections::hash_map::DefaultHasher::new(); " + atom(f.expr(a0)) + ".hash(&mut _h); _h.finish() as " + it + " }", true
	case "exit", "quit":
		code := "0"
		if a0 != nil {
			code = f.expr(a0)
		}
		return "std::process::exit(" + code + ")", true
	case "drop":
		return "drop(" + f.value(a0) + ")", true
	case "super":
		if f.selfName != "" {
			return f.selfName + ".base", true
		}
		return "self.base", true
	case "id":
		return "(" + f.refArg(a0) + " as *const _ as usize as " + it + ")", true
	}
	return "", false
}

// length spells len(x).
func (f *funcEmitter) length(x *hir.Expr) string {
	it := f.e.opts.IntType
	t := x.Type
	s := atom(f.expr(x))
	if t.Kind == types.KindOptional {
		s += ".as_ref().unwrap()"
		t = t.Elem
	}
	switch {
	case t.Kind == types.KindStr:
		return s + ".chars().count() as " + it
	case t.Kind == types.KindTuple:
		return strconv.Itoa(len(t.Elems))
	case t.Kind == types.KindIterator:
		return s + ".count() as " + it
	case t.Kind == types.KindCustom:
		if c := f.e.classOf(t); c != nil && f.e.findMethod(c, "__len__") != nil {
			return s + ".len()"
		}
	case t.IsExtern(types.ExtJSON):
		return s + ".as_array().map_or(0, |a| a.len()) as " + it
	case t.IsDynamic():
		f.e.dyn = true
	}
	return s + ".len() as " + it
}

func (f *funcEmitter) minMax(e *hir.Expr, d *hir.CallData) string {
	name := d.Func
	t := e.Type
	if len(d.Args) == 1 {
		src := atom(f.iterSource(d.Args[0]))
		var s string
		switch {
		case d.Kwarg("key") != nil:
			cmp := f.sortCompare(d.Kwarg("key"), t, false)
			s = src + "." + name + "_by(" + cmp + ")"
		case t.Kind == types.KindFloat:
			s = src + ".reduce(f64::" + name + ")"
		default:
			s = src + "." + name + "()"
		}
		if dflt := d.Kwarg("default"); dflt != nil {
			return s + ".unwrap_or(" + f.coerce(dflt, t) + ")"
		}
		return s + ".unwrap()"
	}
	if t.IsNumeric() {
		s := paren(f.coerce(d.Args[0], t))
		for _, a := range d.Args[1:] {
			s = atom(s) + "." + name + "(" + f.coerce(a, t) + ")"
		}
		return s
	}
	s := f.value(d.Args[0])
	for _, a := range d.Args[1:] {
		s = "std::cmp::" + name + "(" + s + ", " + f.value(a) + ")"
	}
	return s
}

func (f *funcEmitter) toInt(x, base *hir.Expr) string {
	it := f.e.opts.IntType
	if x == nil {
		return "0"
	}
	switch t := x.Type; {
	case base != nil:
		return f.propagate(it+"::from_str_radix("+f.strArg(x)+".trim(), "+paren(f.expr(base))+" as u32)", "")
	case t.Kind == types.KindStr:
		return f.propagate(atom(f.strArg(x))+".trim().parse::<"+it+">()", "")
	case t.Kind == types.KindInt:
		return f.expr(x)
	case t.Kind == types.KindFloat, t.Kind == types.KindBool:
		return "(" + paren(f.expr(x)) + " as " + it + ")"
	case t.IsDynamic():
		f.e.dyn = true
		return "(" + atom(f.expr(x)) + ".as_i64() as " + it + ")"
	}
	f.report(diag.GenUnsupportedExpr, x.Span, "int() of %s", x.Type)
	return "(" + paren(f.expr(x)) + " as " + it + ")"
}

func (f *funcEmitter) toFloatCall(x *hir.Expr) string {
	if x == nil {
		return "0.0"
	}
	switch t := x.Type; {
	case t.Kind == types.KindStr:
		return f.propagate(atom(f.strArg(x))+".trim().parse::<f64>()", "")
	case t.Kind == types.KindFloat:
		return f.expr(x)
	case t.Kind == types.KindInt, t.Kind == types.KindBool:
		return "(" + paren(f.expr(x)) + " as f64)"
	case t.IsDynamic():
		f.e.dyn = true
		return atom(f.expr(x)) + ".as_f64()"
	}
	return "(" + paren(f.expr(x)) + " as f64)"
}

func (f *funcEmitter) toStr(x *hir.Expr) string {
	t := x.Type
	switch {
	case t.Kind == types.KindStr:
		if lit, ok := x.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			return quote(lit.Text) + ".to_string()"
		}
		return atom(f.expr(x)) + ".to_string()"
	case t.Kind == types.KindBytes:
		return "String::from_utf8_lossy(&" + atom(f.expr(x)) + ").to_string()"
	case t.IsExtern(types.ExtPath):
		return atom(f.expr(x)) + ".display().to_string()"
	case t.HasDisplay() || t.IsDynamic() || (t.Kind == types.KindCustom && f.displays(t)):
		if t.IsDynamic() {
			f.e.dyn = true
		}
		return atom(f.expr(x)) + ".to_string()"
	}
	arg, ph := f.formatArg(x, 0, "")
	return "format!(\"" + ph + "\", " + arg + ")"
}

// isinstance folds a type test against the inferred type.
func (f *funcEmitter) isinstance(e, x, cls *hir.Expr) string {
	if x == nil || cls == nil {
		return "false"
	}
	var names []string
	if d, ok := cls.Data.(*hir.ElemsData); ok {
		for _, el := range d.Elems {
			names = append(names, hir.NameOf(el))
		}
	} else {
		names = append(names, hir.NameOf(cls))
	}
	t := x.Type
	if t.IsDynamic() {
		f.e.dyn = true
		var checks []string
		for _, n := range names {
			if v := dynVariant(n); v != "" {
				checks = append(checks, "matches!("+f.refArg(x)+", "+DynName+"::"+v+"(..))")
			}
		}
		if len(checks) == 0 {
			return "false"
		}
		return strings.Join(checks, " || ")
	}
	for _, n := range names {
		if typeNamed(t, n) || f.e.derivesFrom(t, n) {
			f.record(trace.DecisionTypeMapping, "isinstance => true", "static type "+t.String()+" matches "+n, e.Span)
			return "true"
		}
	}
	f.record(trace.DecisionTypeMapping, "isinstance => false", "static type "+t.String()+" excludes the tested classes", e.Span)
	return "false"
}

func dynVariant(name string) string {
	switch name {
	case "int":
		return "Int"
	case "float":
		return "Float"
	case "str":
		return "Str"
	case "bool":
		return "Bool"
	case "list":
		return "List"
	case "dict":
		return "Dict"
	}
	return ""
}

func typeNamed(t *types.Type, name string) bool {
	switch name {
	case "int":
		return t.Kind == types.KindInt || t.Kind == types.KindBool
	case "float":
		return t.Kind == types.KindFloat
	case "str":
		return t.Kind == types.KindStr
	case "bool":
		return t.Kind == types.KindBool
	case "list":
		return t.Kind == types.KindList
	case "dict":
		return t.Kind == types.KindDict
	case "set":
		return t.Kind == types.KindSet
	case "tuple":
		return t.Kind == types.KindTuple
	case "bytes":
		return t.Kind == types.KindBytes
	case "object":
		return true
	}
	return t.Kind == types.KindCustom && t.Name == name
}

func (f *funcEmitter) anyAll(name string, src *hir.Expr) string {
	elem := types.ElemOf(src.Type)
	body := f.truthy(operand{text: "x", t: elem})
	if elem.Kind == types.KindBool {
		body = "x"
	}
	return atom(f.iterSource(src)) + "." + name + "(|x| " + body + ")"
}

func (f *funcEmitter) dictCall(e *hir.Expr, d *hir.CallData) string {
	if len(d.Args) == 0 {
		if len(d.Kwargs) == 0 {
			return "std::collections::HashMap::new()"
		}
		pairs := make([]string, len(d.Kwargs))
		for i, kw := range d.Kwargs {
			pairs[i] = "(" + quote(kw.Name) + ".to_string(), " + f.coerce(kw.Value, e.Type.Value) + ")"
		}
		return "std::collections::HashMap::from([" + strings.Join(pairs, ", ") + "])"
	}
	a := d.Args[0]
	if a.Type.Kind == types.KindDict {
		return atom(f.expr(a)) + ".clone()"
	}
	return atom(f.iterSource(a)) + ".collect::<std::collections::HashMap<_, _>>()"
}

func (f *funcEmitter) sorted(d *hir.CallData) string {
	src := d.Args[0]
	elem := types.ElemOf(src.Type)
	rev, dynamic := boolLit(d.Kwarg("reverse"))
	var sort string
	switch {
	case elem.Kind == types.KindFloat || elem.IsDynamic():
		sort = "_s.sort_by(|a, b| a.partial_cmp(b).unwrap_or(std::cmp::Ordering::Equal));"
		if rev {
			sort = "_s.sort_by(|a, b| b.partial_cmp(a).unwrap_or(std::cmp::Ordering::Equal));"
		}
	case rev:
		sort = "_s.sort_by(|a, b| b.cmp(a));"
	default:
		sort = "_s.sort();"
	}
	s := "{ let mut _s = " + atom(f.iterSource(src)) + ".collect::<Vec<_>>(); " + sort + " "
	if dynamic {
		s += "if " + f.cond(d.Kwarg("reverse")) + " { _s.reverse(); } "
	}
	return s + "_s }"
}

func (f *funcEmitter) mapCall(d *hir.CallData) string {
	if len(d.Args) < 2 {
		f.report(diag.GenUnsupportedExpr, d.Args[0].Span, "map() needs an iterable")
		return "std::iter::empty()"
	}
	fn := d.Args[0]
	if len(d.Args) == 2 {
		elem := types.ElemOf(d.Args[1].Type)
		return atom(f.iterSource(d.Args[1])) + ".map(|x| " + f.callback(fn, "x", elem) + ")"
	}
	src := atom(f.iterSource(d.Args[1]))
	for _, a := range d.Args[2:] {
		src += ".zip(" + f.iterSource(a) + ")"
	}
	if lam, ok := fn.Data.(*hir.LambdaData); ok && len(lam.Params) == len(d.Args)-1 {
		names := make([]string, len(lam.Params))
		pat := ""
		for i, p := range lam.Params {
			names[i] = p.Name
			if i == 0 {
				pat = SafeIdent(p.Name)
			} else {
				pat = "(" + pat + ", " + SafeIdent(p.Name) + ")"
			}
		}
		restore := f.bind(names)
		f.lambdaDepth++
		body := f.value(lam.Body)
		f.lambdaDepth--
		restore()
		return src + ".map(|" + pat + "| " + body + ")"
	}
	f.report(diag.GenUnsupportedExpr, fn.Span, "map() over several iterables needs a lambda")
	return src
}

func (f *funcEmitter) filterCall(d *hir.CallData) string {
	if len(d.Args) < 2 {
		return "std::iter::empty()"
	}
	src := atom(f.iterSource(d.Args[1]))
	elem := types.ElemOf(d.Args[1].Type)
	fn := d.Args[0]
	if hir.IsNoneLit(fn) {
		return src + ".filter(|x| " + f.truthy(operand{text: "x", t: elem}) + ")"
	}
	if lam, ok := fn.Data.(*hir.LambdaData); ok && len(lam.Params) == 1 {
		restore := f.bind([]string{lam.Params[0].Name})
		f.lambdaDepth++
		pat := SafeIdent(lam.Params[0].Name)
		if elem.IsCopy() {
			pat = "&" + pat
		}
		body := f.cond(lam.Body)
		f.lambdaDepth--
		restore()
		return src + ".filter(|" + pat + "| " + body + ")"
	}
	return src + ".filter(|x| " + f.callback(fn, "x.clone()", elem) + ")"
}

func (f *funcEmitter) open(d *hir.CallData) string {
	path := d.Args[0]
	p := f.strArg(path)
	if path.Type.IsExtern(types.ExtPath) {
		p = f.refArg(path)
	}
	mode := "r"
	var m *hir.Expr
	if len(d.Args) > 1 {
		m = d.Args[1]
	} else {
		m = d.Kwarg("mode")
	}
	if m != nil {
		if lit, ok := m.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			mode = lit.Text
		}
	}
	var s string
	switch {
	case strings.Contains(mode, "a"):
		s = "std::fs::OpenOptions::new().append(true).create(true).open(" + p + ")"
	case strings.Contains(mode, "w"):
		s = "std::fs::File::create(" + p + ")"
	case strings.Contains(mode, "+"):
		s = "std::fs::OpenOptions::new().read(true).write(true).open(" + p + ")"
	default:
		s = "std::fs::File::open(" + p + ")"
	}
	return f.propagate(s, "")
}

func (f *funcEmitter) input(prompt *hir.Expr) string {
	var b strings.Builder
	b.WriteString("{ use std::io::Write; ")
	if prompt != nil {
		b.WriteString("print!(\"{}\", " + f.expr(prompt) + "); ")
		b.WriteString(f.propagate("std::io::stdout().flush()", "") + "; ")
	}
	b.WriteString("let mut _line = String::new(); ")
	b.WriteString(f.propagate("std::io::stdin().read_line(&mut _line)", "") + "; ")
	b.WriteString("_line.trim_end_matches(['\\n', '\\r']).to_string() }")
	return b.String()
}

// print spells print(...) as a formatting macro.
func (f *funcEmitter) print(d *hir.CallData) string {
	sep, end := " ", "\n"
	if s := d.Kwarg("sep"); s != nil {
		if lit, ok := s.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			sep = lit.Text
		}
	}
	if s := d.Kwarg("end"); s != nil {
		if lit, ok := s.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			end = lit.Text
		}
	}
	var b strings.Builder
	var args []string
	for i, a := range d.Args {
		if i > 0 {
			b.WriteString(formatLit(sep))
		}
		if lit, ok := a.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			b.WriteString(formatLit(lit.Text))
			continue
		}
		v, ph := f.formatArg(a, 0, "")
		b.WriteString(ph)
		args = append(args, v)
	}
	macro := "print"
	if end == "\n" {
		macro = "println"
	} else {
		b.WriteString(formatLit(end))
	}
	file := d.Kwarg("file")
	switch {
	case file == nil:
	case isStream(file, "stderr"):
		macro = "e" + macro
	case isStream(file, "stdout"):
	default:
		w := "write"
		if macro == "println" {
			w = "writeln"
		}
		call := w + "!(" + f.place(file) + ", \"" + b.String() + "\""
		for _, a := range args {
			call += ", " + a
		}
		return "{ use std::io::Write; " + f.propagate(call+")", "") + "; }"
	}
	if b.Len() == 0 && macro == "println" {
		return "println!()"
	}
	s := macro + "!(\"" + b.String() + "\""
	for _, a := range args {
		s += ", " + a
	}
	return s + ")"
}

// isStream matches sys.stdout and sys.stderr.
func isStream(e *hir.Expr, name string) bool {
	d, ok := e.Data.(*hir.AttrData)
	return ok && d.Module != nil && d.Module.Module == "sys" && d.Name == name
}
