package rustgen

import (
	"strconv"
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// bind makes closure parameters visible as locals and returns the undo.
func (f *funcEmitter) bind(names []string) func() {
	prevComp := map[string]bool{}
	prevField := map[string]string{}
	for _, n := range names {
		prevComp[n] = f.compVars[n]
		if sub, ok := f.fields[n]; ok {
			prevField[n] = sub
			delete(f.fields, n)
		}
		f.compVars[n] = true
	}
	return func() {
		for n, was := range prevComp {
			if was {
				f.compVars[n] = true
			} else {
				delete(f.compVars, n)
			}
		}
		for n, sub := range prevField {
			f.fields[n] = sub
		}
	}
}

// closurePattern spells a comprehension target as a closure parameter.
// byRef patterns receive &Item, as filter closures do.
func (f *funcEmitter) closurePattern(t *hir.Target, elem *types.Type, byRef bool) string {
	var pat string
	switch t.Kind {
	case hir.TargetSymbol:
		pat = f.ident(t.Name)
		if t.Name == "_" {
			pat = "_"
		}
	case hir.TargetTuple:
		parts := make([]string, len(t.Elems))
		for i, el := range t.Elems {
			var et *types.Type
			if elem != nil && elem.Kind == types.KindTuple && i < len(elem.Elems) {
				et = elem.Elems[i]
			}
			parts[i] = f.closurePattern(el, et, false)
		}
		pat = "(" + strings.Join(parts, ", ") + ")"
	default:
		f.report(diag.GenUnsupportedExpr, t.Span, "comprehension target must bind names")
		pat = "_"
	}
	if byRef && elem.IsCopy() {
		return "&" + pat
	}
	return pat
}

func (f *funcEmitter) comprehension(e *hir.Expr, d *hir.CompData) string {
	var names []string
	for _, g := range d.Gens {
		names = append(names, g.Target.Names()...)
	}
	f.lambdaDepth++
	restore := f.bind(names)
	defer func() {
		restore()
		f.lambdaDepth--
	}()
	move := ""
	if d.Kind == hir.CompGen && f.fn.Flags.HasFlag(hir.FuncReturnsIterator) {
		move = "move "
		f.record(trace.DecisionGenerator, "move closure", "generator expression escapes the function", e.Span)
	}
	var elem string
	if d.Kind == hir.CompDict {
		elem = "(" + f.coerce(d.Elem, e.Type.Key) + ", " + f.coerce(d.Value, e.Type.Value) + ")"
	} else {
		elem = f.coerce(d.Elem, types.ElemOf(e.Type))
	}
	src := f.compGens(d.Gens, 0, elem, move)
	switch d.Kind {
	case hir.CompList:
		return src + ".collect::<Vec<_>>()"
	case hir.CompSet:
		return src + ".collect::<std::collections::HashSet<_>>()"
	case hir.CompDict:
		return src + ".collect::<std::collections::HashMap<_, _>>()"
	}
	return src
}

// compGens chains generator i and the ones after it into one iterator.
func (f *funcEmitter) compGens(gens []*hir.Generator, i int, elem, move string) string {
	g := gens[i]
	et := g.Target.Type
	if et == nil {
		et = types.ElemOf(g.Iter.Type)
	}
	var b strings.Builder
	b.WriteString(atom(f.iterSource(g.Iter)))
	for _, cond := range g.Ifs {
		b.WriteString(".filter(" + move + "|" + f.closurePattern(g.Target, et, true) + "| " + f.cond(cond) + ")")
	}
	pat := f.closurePattern(g.Target, et, false)
	if i == len(gens)-1 {
		if elem != pat {
			b.WriteString(".map(" + move + "|" + pat + "| " + elem + ")")
		}
		return b.String()
	}
	inner := f.compGens(gens, i+1, elem, move)
	b.WriteString(".flat_map(" + move + "|" + pat + "| " + atom(inner) + ".collect::<Vec<_>>())")
	return b.String()
}

// lambda spells a lambda as a closure. Stored closures annotate their
// parameters since no call site fixes the types.
func (f *funcEmitter) lambda(e *hir.Expr, stored bool) string {
	d, ok := e.Data.(*hir.LambdaData)
	if !ok {
		return f.value(e)
	}
	names := make([]string, len(d.Params))
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
		params[i] = SafeIdent(p.Name)
		if stored && p.Type.IsKnown() && !p.Type.IsDynamic() {
			params[i] += ": " + f.rust(p.Type)
		}
	}
	f.lambdaDepth++
	restore := f.bind(names)
	body := f.value(d.Body)
	restore()
	f.lambdaDepth--
	head := "|" + strings.Join(params, ", ") + "| " + body
	if !d.Move {
		return head
	}
	var pre []string
	for _, c := range d.Captures {
		if t := f.fn.LocalType(c); t != nil && !t.IsCopy() {
			pre = append(pre, "let "+SafeIdent(c)+" = "+f.ident(c)+".clone();")
		}
	}
	f.record(trace.DecisionOwnership, "move closure", "lambda outlives the bindings it captures", e.Span)
	if len(pre) == 0 {
		return "move " + head
	}
	return "{ " + strings.Join(pre, " ") + " move " + head + " }"
}

// callback spells a function-valued argument as something callable on
// one owned item.
func (f *funcEmitter) callback(fe *hir.Expr, arg string, argT *types.Type) string {
	switch d := fe.Data.(type) {
	case *hir.LambdaData:
		if len(d.Params) == 1 {
			restore := f.bind([]string{d.Params[0].Name})
			f.lambdaDepth++
			body := f.value(d.Body)
			f.lambdaDepth--
			restore()
			return "{ let " + SafeIdent(d.Params[0].Name) + " = " + arg + "; " + body + " }"
		}
	case *hir.NameData:
		if fn := f.e.mod.Func(d.Name); fn != nil && !f.isLocal(d.Name) {
			if len(fn.Params) > 0 && fn.Params[0].Mode == hir.OwnershipRef {
				return f.e.funcName(fn) + "(&" + atom(arg) + ")"
			}
			return f.e.funcName(fn) + "(" + arg + ")"
		}
		if f.isLocal(d.Name) {
			return f.ident(d.Name) + "(" + arg + ")"
		}
		switch d.Name {
		case "str":
			return atom(arg) + ".to_string()"
		case "int":
			if argT.Kind == types.KindStr {
				return atom(arg) + ".trim().parse::<" + f.e.opts.IntType + ">().unwrap()"
			}
			return "(" + arg + " as " + f.e.opts.IntType + ")"
		case "float":
			if argT.Kind == types.KindStr {
				return atom(arg) + ".trim().parse::<f64>().unwrap()"
			}
			return "(" + arg + " as f64)"
		case "len":
			return atom(arg) + ".len() as " + f.e.opts.IntType
		case "abs":
			return atom(arg) + ".abs()"
		case "bool":
			return f.truthy(operand{text: arg, t: argT})
		}
	case *hir.AttrData:
		if hir.NameOf(d.Base) == "str" {
			switch d.Name {
			case "lower":
				return atom(arg) + ".to_lowercase()"
			case "upper":
				return atom(arg) + ".to_uppercase()"
			case "strip":
				return atom(arg) + ".trim().to_string()"
			}
		}
	}
	f.report(diag.GenUnsupportedExpr, fe.Span, "callable argument of this form")
	return "(" + f.expr(fe) + ")(" + arg + ")"
}

// sortCompare spells the comparator closure of a keyed sort.
func (f *funcEmitter) sortCompare(key *hir.Expr, elem *types.Type, reverse bool) string {
	bindA, bindB := "a.clone()", "b.clone()"
	if elem.IsCopy() {
		bindA, bindB = "*a", "*b"
	}
	ka := "(" + bindA + ")"
	kb := "(" + bindB + ")"
	if key != nil {
		ka = f.callback(key, bindA, elem)
		kb = f.callback(key, bindB, elem)
	}
	if reverse {
		ka, kb = kb, ka
	}
	return "|a, b| { let ka = " + ka + "; let kb = " + kb + "; ka.partial_cmp(&kb).unwrap_or(std::cmp::Ordering::Equal) }"
}

func (f *funcEmitter) sortByKey(e *hir.Expr, d *hir.SortByKeyData) string {
	elem := types.ElemOf(d.Iter.Type)
	rev, dynamic := boolLit(d.Reverse)
	f.record(trace.DecisionMethodDispatch, "sort_by", "sorted with a key function", e.Span)
	var b strings.Builder
	b.WriteString("{ let mut _s = " + atom(f.iterSource(d.Iter)) + ".collect::<Vec<_>>(); ")
	b.WriteString("_s.sort_by(" + f.sortCompare(d.Key, elem, rev) + "); ")
	if dynamic {
		b.WriteString("if " + f.cond(d.Reverse) + " { _s.reverse(); } ")
	}
	b.WriteString("_s }")
	return b.String()
}

// boolLit reads a literal flag. dynamic is set when the flag is an
// arbitrary expression.
func boolLit(e *hir.Expr) (value, dynamic bool) {
	if e == nil {
		return false, false
	}
	if lit, ok := e.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralBool {
		return lit.Bool, false
	}
	return false, true
}

// iterSource spells e as an iterator over owned items.
func (f *funcEmitter) iterSource(e *hir.Expr) string {
	switch d := e.Data.(type) {
	case *hir.CallData:
		if d.Target == nil && d.Class == nil && !f.isLocal(d.Func) {
			if s, ok := f.builtinIter(e, d); ok {
				return s
			}
		}
	case *hir.MethodCallData:
		if d.Module == nil && d.Target == nil && len(d.Args) == 0 {
			rt := d.Recv.Type
			recv := atom(f.expr(d.Recv))
			if rt.Kind == types.KindDict {
				switch d.Method {
				case "items":
					return recv + ".iter().map(|(k, v)| (k.clone(), v.clone()))"
				case "keys":
					return recv + ".keys().cloned()"
				case "values":
					return recv + ".values().cloned()"
				}
			}
			if rt.IsExtern(types.ExtJSON) && d.Method == "items" {
				return recv + ".as_object().cloned().unwrap_or_default().into_iter()"
			}
		}
	case *hir.CompData:
		if d.Kind == hir.CompGen {
			return f.expr(e)
		}
	}
	t := e.Type
	s := f.expr(e)
	owned := e.Use == hir.UseMove || !isPlace(e)
	if n := hir.NameOf(e); n != "" && (f.global(n) != nil || f.borrowedParam(n) != nil) {
		owned = false
	}
	switch {
	case t.Kind == types.KindIterator:
		return s
	case t.Kind == types.KindList || t.Kind == types.KindSet || t.Kind == types.KindArray:
		if owned {
			return atom(s) + ".into_iter()"
		}
		if t.Elem.IsCopy() {
			return atom(s) + ".iter().copied()"
		}
		return atom(s) + ".iter().cloned()"
	case t.Kind == types.KindBytes:
		return atom(s) + ".iter().map(|b| *b as " + f.e.opts.IntType + ")"
	case t.Kind == types.KindDict:
		if owned {
			return atom(s) + ".into_keys()"
		}
		return atom(s) + ".keys().cloned()"
	case t.Kind == types.KindStr:
		return atom(s) + ".chars().map(|c| c.to_string())"
	case t.Kind == types.KindTuple:
		parts := make([]string, len(t.Elems))
		for i := range t.Elems {
			parts[i] = atom(s) + "." + strconv.Itoa(i)
		}
		return "[" + strings.Join(parts, ", ") + "].into_iter()"
	case t.Kind == types.KindOptional:
		return atom(s) + ".into_iter().flatten()"
	case t.IsExtern(types.ExtFile):
		if s == "std::io::stdin()" {
			return "std::io::stdin().lines().map_while(Result::ok)"
		}
		return "std::io::BufRead::lines(std::io::BufReader::new(&" + atom(s) + ")).map_while(Result::ok)"
	case t.IsExtern(types.ExtCSVReader):
		f.e.need("csv")
		return atom(s) + ".records().map_while(Result::ok).map(|r| r.iter().map(|c| c.to_string()).collect::<Vec<_>>())"
	case t.IsExtern(types.ExtCSVDictReader):
		f.e.need("csv")
		return "{ let _h = " + atom(s) + ".headers().cloned().unwrap_or_default(); " + atom(s) +
			".records().map_while(Result::ok).map(move |r| _h.iter().zip(r.iter()).map(|(k, v)| (k.to_string(), v.to_string())).collect::<std::collections::HashMap<_, _>>()) }"
	case t.IsExtern(types.ExtJSON):
		return atom(s) + ".as_array().cloned().unwrap_or_default().into_iter()"
	case t.Kind == types.KindCustom:
		if c := f.e.classOf(t); c != nil && f.e.findMethod(c, "__iter__") != nil {
			return atom(s) + ".iter()"
		}
	case t.IsDynamic():
		f.e.dyn = true
		return atom(s) + ".to_list().into_iter()"
	}
	f.report(diag.GenUnsupportedExpr, e.Span, "iteration over %s", t)
	return atom(s) + ".into_iter()"
}

// isPlace reports an expression naming existing storage.
func isPlace(e *hir.Expr) bool {
	switch e.Data.(type) {
	case *hir.NameData, *hir.AttrData, *hir.IndexData:
		return true
	}
	return false
}

// builtinIter spells iteration over range, enumerate and friends
// without materializing them.
func (f *funcEmitter) builtinIter(e *hir.Expr, d *hir.CallData) (string, bool) {
	switch d.Func {
	case "range":
		return f.rangeExpr(e, d), true
	case "enumerate":
		if len(d.Args) == 0 {
			return "", false
		}
		start := d.Kwarg("start")
		if start == nil && len(d.Args) > 1 {
			start = d.Args[1]
		}
		idx := "i as " + f.e.opts.IntType
		if start != nil {
			idx += " + " + paren(f.expr(start))
		}
		return atom(f.iterSource(d.Args[0])) + ".enumerate().map(|(i, x)| (" + idx + ", x))", true
	case "zip":
		if len(d.Args) == 0 {
			return "", false
		}
		s := atom(f.iterSource(d.Args[0]))
		for _, a := range d.Args[1:] {
			s += ".zip(" + f.iterSource(a) + ")"
		}
		if n := len(d.Args); n > 2 {
			pat := "(a0, a1)"
			out := []string{"a0", "a1"}
			for i := 2; i < n; i++ {
				pat = "(" + pat + ", a" + strconv.Itoa(i) + ")"
				out = append(out, "a"+strconv.Itoa(i))
			}
			s += ".map(|" + pat + "| (" + strings.Join(out, ", ") + "))"
		}
		return s, true
	case "reversed":
		if len(d.Args) == 1 {
			return atom(f.iterSource(d.Args[0])) + ".rev()", true
		}
	case "iter":
		if len(d.Args) == 1 {
			return f.iterSource(d.Args[0]), true
		}
	case "sorted", "list", "set", "tuple":
		return atom(f.call(e, d)) + ".into_iter()", true
	}
	return "", false
}

// rangeExpr spells range(...) as a Rust range.
func (f *funcEmitter) rangeExpr(e *hir.Expr, d *hir.CallData) string {
	arg := func(i int) string { return paren(f.expr(d.Args[i])) }
	switch len(d.Args) {
	case 1:
		return "(0.." + arg(0) + ")"
	case 2:
		return "(" + arg(0) + ".." + arg(1) + ")"
	case 3:
		if n, ok := intLit(d.Args[2]); ok {
			if n < 0 {
				s := "((" + arg(1) + " + 1)..(" + arg(0) + " + 1)).rev()"
				if n != -1 {
					s += ".step_by(" + strconv.FormatInt(-n, 10) + ")"
				}
				return s
			}
			return "(" + arg(0) + ".." + arg(1) + ").step_by(" + strconv.FormatInt(n, 10) + ")"
		}
		f.report(diag.GenUnsupportedExpr, d.Args[2].Span, "range step must be a literal; assuming it is positive")
		return "(" + arg(0) + ".." + arg(1) + ").step_by(" + arg(2) + " as usize)"
	}
	f.report(diag.GenUnsupportedExpr, e.Span, "range with %d arguments", len(d.Args))
	return "(0..0)"
}
