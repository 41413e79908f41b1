package rustgen

import (
	"strconv"
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// methodCall dispatches recv.method(args): module functions first, then
// user methods, then the per-type tables.
func (f *funcEmitter) methodCall(e *hir.Expr, d *hir.MethodCallData) string {
	if d.Module != nil {
		s, fallible := f.moduleCall(e, d.Module, d.Method, d.Args, d.Kwargs)
		if fallible {
			return f.propagate(s, "")
		}
		return s
	}
	if imp := f.importedRecv(d.Recv); imp != nil {
		s, fallible := f.moduleCall(e, imp, d.Method, d.Args, d.Kwargs)
		if fallible {
			return f.propagate(s, "")
		}
		return s
	}
	if d.Target != nil {
		return f.userMethod(e, d)
	}
	rt := d.Recv.Type
	if rt.Kind == types.KindOptional {
		rt = rt.Elem
	}
	s, ok := f.builtinMethod(e, d, rt)
	if !ok {
		f.report(diag.MthUnknownMethod, e.Span, "no translation for method %s on %s", d.Method, rt)
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = f.value(a)
		}
		return atom(f.expr(d.Recv)) + "." + SafeIdent(d.Method) + "(" + strings.Join(args, ", ") + ")"
	}
	if d.CanFail {
		return f.propagate(s, "")
	}
	return s
}

// importedRecv resolves a receiver naming an imported class such as
// datetime after `from datetime import datetime`.
func (f *funcEmitter) importedRecv(recv *hir.Expr) *hir.Import {
	name := hir.NameOf(recv)
	if name == "" || f.isLocal(name) {
		return nil
	}
	imp, _ := f.e.mod.ImportedItem(name)
	return imp
}

func (f *funcEmitter) userMethod(e *hir.Expr, d *hir.MethodCallData) string {
	m := d.Target
	cls := f.e.classOf(d.Recv.Type)
	if isSuperCall(d.Recv) {
		if base := f.e.mod.Class(f.class.Base); base != nil {
			cls = base
		}
	}
	if m.Flags.HasFlag(hir.FuncStatic) || m.Flags.HasFlag(hir.FuncClassMethod) || f.namesClass(d.Recv) {
		owner := m.Class
		if cls != nil {
			owner = cls.Name
		}
		f.record(trace.DecisionMethodDispatch, owner+"::"+methodName(m), "associated function call", e.Span)
		return f.userCall(f.e.className(owner)+"::"+methodName(m), m, d.Args, d.Kwargs)
	}
	var recv string
	switch {
	case isSuperCall(d.Recv):
		recv = f.ident("self") + ".base"
	case m.Flags.HasFlag(hir.FuncMutSelf):
		recv = atom(f.place(d.Recv))
		if d.Recv.Type.Kind == types.KindOptional {
			recv += ".as_mut().unwrap()"
		}
	default:
		recv = atom(f.expr(d.Recv))
		if d.Recv.Type.Kind == types.KindOptional {
			recv += ".as_ref().unwrap()"
		}
	}
	return f.userCall(recv+"."+methodName(m), m, d.Args, d.Kwargs)
}

// namesClass reports a receiver that is the class itself, as in
// Point.origin().
func (f *funcEmitter) namesClass(recv *hir.Expr) bool {
	n := hir.NameOf(recv)
	return n != "" && !f.isLocal(n) && f.e.mod.Class(n) != nil
}

func isSuperCall(e *hir.Expr) bool {
	d, ok := e.Data.(*hir.CallData)
	return ok && d.Func == "super"
}

// statementMethod handles calls whose statement form differs from their
// expression form. ok is false for ordinary calls.
func (f *funcEmitter) statementMethod(e *hir.Expr, d *hir.MethodCallData) (string, bool) {
	if isSuperCall(d.Recv) && d.Method == "__init__" {
		return "", true
	}
	rt := d.Recv.Type
	switch {
	case rt.IsExtern(types.ExtArgParser):
		return f.parserStatement(e, d)
	case rt.IsExtern(types.ExtFile) && d.Method == "close":
		f.record(trace.DecisionMethodDispatch, "drop", "files close when their binding goes out of scope", e.Span)
		return "", true
	}
	return "", false
}

// eqPred compares the reference v against x.
func (f *funcEmitter) eqPred(elem *types.Type, x *hir.Expr) string {
	switch {
	case elem.Kind == types.KindStr:
		return "v == " + f.strArg(x)
	case elem.IsCopy():
		return "*v == " + f.coerce(x, elem)
	}
	return "v == " + f.refArg(x)
}

// builtinMethod dispatches through the tables for builtin and library
// receiver types.
func (f *funcEmitter) builtinMethod(e *hir.Expr, d *hir.MethodCallData, rt *types.Type) (string, bool) {
	switch {
	case rt.Kind == types.KindStr:
		return f.strMethod(e, d)
	case rt.Kind == types.KindBytes:
		return f.bytesMethod(e, d)
	case rt.Kind == types.KindList || rt.Kind == types.KindArray:
		return f.listMethod(e, d, rt)
	case rt.Kind == types.KindDict:
		return f.dictMethod(e, d, rt)
	case rt.Kind == types.KindSet:
		return f.setMethod(e, d, rt)
	case rt.Kind == types.KindInt:
		r := atom(f.expr(d.Recv))
		switch d.Method {
		case "bit_length":
			return "((" + f.e.opts.IntType + "::BITS - " + r + ".unsigned_abs().leading_zeros()) as " + f.e.opts.IntType + ")", true
		case "bit_count":
			return "(" + r + ".count_ones() as " + f.e.opts.IntType + ")", true
		case "to_bytes":
			order := "be"
			if len(d.Args) > 1 {
				if lit, ok := d.Args[1].Data.(*hir.LiteralData); ok && lit.Text == "little" {
					order = "le"
				}
			}
			return r + ".to_" + order + "_bytes().to_vec()", true
		}
	case rt.Kind == types.KindFloat:
		r := atom(f.expr(d.Recv))
		switch d.Method {
		case "is_integer":
			return "(" + r + ".fract() == 0.0)", true
		case "hex":
			return "format!(\"{:e}\", " + r + ")", true
		}
	case rt.Kind == types.KindExtern:
		return f.externMethod(e, d, rt)
	case rt.IsDynamic() || !rt.IsKnown():
		return f.dynMethod(e, d), true
	}
	return "", false
}

// recv spells the receiver for reading, unwrapping an optional.
func (f *funcEmitter) recv(d *hir.MethodCallData) string {
	r := atom(f.expr(d.Recv))
	if d.Recv.Type.Kind == types.KindOptional {
		r += ".as_ref().unwrap()"
	}
	return r
}

// recvMut spells the receiver for mutation.
func (f *funcEmitter) recvMut(d *hir.MethodCallData) string {
	r := atom(f.place(d.Recv))
	if d.Recv.Type.Kind == types.KindOptional {
		r += ".as_mut().unwrap()"
	}
	return r
}

func (f *funcEmitter) strMethod(e *hir.Expr, d *hir.MethodCallData) (string, bool) {
	r := f.recv(d)
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	it := f.e.opts.IntType
	collect := ".map(|s| s.to_string()).collect::<Vec<String>>()"
	switch d.Method {
	case "upper":
		return r + ".to_uppercase()", true
	case "lower", "casefold":
		return r + ".to_lowercase()", true
	case "strip", "lstrip", "rstrip":
		fn := map[string]string{"strip": "trim", "lstrip": "trim_start", "rstrip": "trim_end"}[d.Method]
		if a := arg(0); a != nil && !hir.IsNoneLit(a) {
			return r + "." + fn + "_matches(|c: char| " + atom(f.strArg(a)) + ".contains(c)).to_string()", true
		}
		return r + "." + fn + "().to_string()", true
	case "title":
		return r + ".split(' ').map(|w| { let mut c = w.chars(); match c.next() { Some(h) => h.to_uppercase().collect::<String>() + &c.as_str().to_lowercase(), None => String::new() } }).collect::<Vec<_>>().join(\" \")", true
	case "capitalize":
		return "{ let mut c = " + r + ".chars(); match c.next() { Some(h) => h.to_uppercase().collect::<String>() + &c.as_str().to_lowercase(), None => String::new() } }", true
	case "swapcase":
		return r + ".chars().map(|c| if c.is_uppercase() { c.to_lowercase().to_string() } else { c.to_uppercase().to_string() }).collect::<String>()", true
	case "replace":
		if a := arg(2); a != nil {
			return r + ".replacen(" + f.strArg(arg(0)) + ", " + f.strArg(arg(1)) + ", " + paren(f.expr(a)) + " as usize)", true
		}
		return r + ".replace(" + f.strArg(arg(0)) + ", " + f.strArg(arg(1)) + ")", true
	case "zfill":
		return "format!(\"{:0>w$}\", " + r + ", w = " + paren(f.expr(arg(0))) + " as usize)", true
	case "center", "ljust", "rjust":
		align := map[string]string{"center": "^", "ljust": "<", "rjust": ">"}[d.Method]
		fill := ""
		if a := arg(1); a != nil {
			if lit, ok := a.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr && len(lit.Text) == 1 && lit.Text != "{" && lit.Text != "}" {
				fill = lit.Text
			}
		}
		return "format!(\"{:" + fill + align + "w$}\", " + r + ", w = " + paren(f.expr(arg(0))) + " as usize)", true
	case "join":
		src := arg(0)
		if src.Type.Kind == types.KindList && types.ElemOf(src.Type).Kind == types.KindStr && isPlace(src) {
			return atom(f.expr(src)) + ".join(" + f.strArg(d.Recv) + ")", true
		}
		elem := types.ElemOf(src.Type)
		items := atom(f.iterSource(src))
		if elem.Kind != types.KindStr {
			items += ".map(|x| x.to_string())"
		}
		return items + ".collect::<Vec<String>>().join(" + f.strArg(d.Recv) + ")", true
	case "format":
		return f.strFormat(e, d)
	case "startswith", "endswith":
		fn := "starts_with"
		if d.Method == "endswith" {
			fn = "ends_with"
		}
		if tup, ok := arg(0).Data.(*hir.ElemsData); ok {
			pats := make([]string, len(tup.Elems))
			for i, p := range tup.Elems {
				pats[i] = f.strArg(p)
			}
			return "[" + strings.Join(pats, ", ") + "].iter().any(|p| " + r + "." + fn + "(p))", true
		}
		return r + "." + fn + "(" + f.strArg(arg(0)) + ")", true
	case "isdigit", "isdecimal":
		return "(!" + r + ".is_empty() && " + r + ".chars().all(|c| c.is_ascii_digit()))", true
	case "isnumeric":
		return "(!" + r + ".is_empty() && " + r + ".chars().all(|c| c.is_numeric()))", true
	case "isalpha":
		return "(!" + r + ".is_empty() && " + r + ".chars().all(|c| c.is_alphabetic()))", true
	case "isalnum":
		return "(!" + r + ".is_empty() && " + r + ".chars().all(|c| c.is_alphanumeric()))", true
	case "isspace":
		return "(!" + r + ".is_empty() && " + r + ".chars().all(|c| c.is_whitespace()))", true
	case "isupper":
		return "(" + r + ".chars().any(|c| c.is_alphabetic()) && !" + r + ".chars().any(|c| c.is_lowercase()))", true
	case "islower":
		return "(" + r + ".chars().any(|c| c.is_alphabetic()) && !" + r + ".chars().any(|c| c.is_uppercase()))", true
	case "istitle":
		return r + ".split_whitespace().all(|w| w.chars().next().map_or(false, |c| c.is_uppercase()))", true
	case "isidentifier":
		return "(" + r + ".chars().next().map_or(false, |c| c.is_alphabetic() || c == '_') && " + r + ".chars().all(|c| c.is_alphanumeric() || c == '_'))", true
	case "isascii":
		return r + ".is_ascii()", true
	case "isprintable":
		return r + ".chars().all(|c| !c.is_control())", true
	case "find", "rfind":
		return r + "." + d.Method + "(" + f.strArg(arg(0)) + ").map_or(-1, |i| i as " + it + ")", true
	case "index", "rindex":
		fn := "find"
		if d.Method == "rindex" {
			fn = "rfind"
		}
		return r + "." + fn + "(" + f.strArg(arg(0)) + ").map(|i| i as " + it + ").expect(\"substring not found\")", true
	case "count":
		return "(" + r + ".matches(" + f.strArg(arg(0)) + ").count() as " + it + ")", true
	case "split":
		sep := arg(0)
		if sep == nil || hir.IsNoneLit(sep) {
			return r + ".split_whitespace()" + collect, true
		}
		if n := arg(1); n != nil {
			return r + ".splitn(" + paren(f.expr(n)) + " as usize + 1, " + f.strArg(sep) + ")" + collect, true
		}
		return r + ".split(" + f.strArg(sep) + ")" + collect, true
	case "rsplit":
		sep := arg(0)
		if sep == nil || hir.IsNoneLit(sep) {
			return r + ".split_whitespace()" + collect, true
		}
		if n := arg(1); n != nil {
			return "{ let mut _v = " + r + ".rsplitn(" + paren(f.expr(n)) + " as usize + 1, " + f.strArg(sep) + ")" + collect + "; _v.reverse(); _v }", true
		}
		return r + ".split(" + f.strArg(sep) + ")" + collect, true
	case "splitlines":
		return r + ".lines()" + collect, true
	case "encode":
		return r + ".as_bytes().to_vec()", true
	case "partition":
		sep := f.strArg(arg(0))
		return "match " + r + ".split_once(" + sep + ") { Some((a, b)) => (a.to_string(), " + sep + ".to_string(), b.to_string()), None => (" + r + ".to_string(), String::new(), String::new()) }", true
	case "rpartition":
		sep := f.strArg(arg(0))
		return "match " + r + ".rsplit_once(" + sep + ") { Some((a, b)) => (a.to_string(), " + sep + ".to_string(), b.to_string()), None => (String::new(), String::new(), " + r + ".to_string()) }", true
	case "removeprefix", "removesuffix":
		fn := "strip_prefix"
		if d.Method == "removesuffix" {
			fn = "strip_suffix"
		}
		return r + "." + fn + "(" + f.strArg(arg(0)) + ").unwrap_or(&" + r + "[..]).to_string()", true
	case "expandtabs":
		return r + ".replace('\\t', \"        \")", true
	}
	return "", false
}

// strFormat lowers "...".format(args) onto the f-string path.
func (f *funcEmitter) strFormat(e *hir.Expr, d *hir.MethodCallData) (string, bool) {
	lit, ok := d.Recv.Data.(*hir.LiteralData)
	if !ok || lit.Kind != hir.LiteralStr {
		f.report(diag.GenUnsupportedExpr, e.Span, "str.format on a non-literal template")
		return "format!(\"{}\", " + f.expr(d.Recv) + ")", true
	}
	var parts []*hir.FPart
	var buf strings.Builder
	text := lit.Text
	auto := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c == '{' || c == '}') && i+1 < len(text) && text[i+1] == c {
			buf.WriteByte(c)
			i++
			continue
		}
		if c != '{' {
			buf.WriteByte(c)
			continue
		}
		end := strings.IndexByte(text[i:], '}')
		if end < 0 {
			buf.WriteString(text[i:])
			break
		}
		field := text[i+1 : i+end]
		i += end
		spec := ""
		if k := strings.IndexByte(field, ':'); k >= 0 {
			field, spec = field[:k], field[k+1:]
		}
		var conv rune
		if k := strings.IndexByte(field, '!'); k >= 0 && k+1 < len(field) {
			conv = rune(field[k+1])
			field = field[:k]
		}
		var x *hir.Expr
		switch n, err := strconv.Atoi(field); {
		case field == "":
			if auto < len(d.Args) {
				x = d.Args[auto]
			}
			auto++
		case err == nil:
			if n < len(d.Args) {
				x = d.Args[n]
			}
		default:
			x = d.Kwarg(field)
		}
		if x == nil {
			f.report(diag.GenUnsupportedExpr, e.Span, "format field {%s} has no argument", field)
			continue
		}
		if buf.Len() > 0 {
			parts = append(parts, &hir.FPart{Lit: buf.String()})
			buf.Reset()
		}
		parts = append(parts, &hir.FPart{Expr: x, Conv: conv, Spec: spec})
	}
	if buf.Len() > 0 {
		parts = append(parts, &hir.FPart{Lit: buf.String()})
	}
	return f.fstring(&hir.FStringData{Parts: parts}), true
}

func (f *funcEmitter) bytesMethod(e *hir.Expr, d *hir.MethodCallData) (string, bool) {
	r := f.recv(d)
	it := f.e.opts.IntType
	switch d.Method {
	case "decode":
		return "String::from_utf8(" + r + ".to_vec())", true
	case "hex":
		return r + ".iter().map(|b| format!(\"{:02x}\", b)).collect::<String>()", true
	case "startswith":
		return r + ".starts_with(" + f.refArg(d.Args[0]) + ")", true
	case "endswith":
		return r + ".ends_with(" + f.refArg(d.Args[0]) + ")", true
	case "find", "index":
		pos := "{ let _n = " + f.refArg(d.Args[0]) + "; " + r + ".windows(_n.len()).position(|w| w == &_n[..]) }"
		if d.Method == "index" {
			return pos + ".map(|i| i as " + it + ").expect(\"subsection not found\")", true
		}
		return pos + ".map_or(-1, |i| i as " + it + ")", true
	case "count":
		return "{ let _n = " + f.refArg(d.Args[0]) + "; " + r + ".windows(_n.len()).filter(|w| *w == &_n[..]).count() as " + it + " }", true
	case "strip":
		return r + ".trim_ascii().to_vec()", true
	case "upper":
		return r + ".to_ascii_uppercase()", true
	case "lower":
		return r + ".to_ascii_lowercase()", true
	}
	return "", false
}

func (f *funcEmitter) listMethod(e *hir.Expr, d *hir.MethodCallData, rt *types.Type) (string, bool) {
	elem := rt.Elem
	it := f.e.opts.IntType
	switch d.Method {
	case "append":
		return f.recvMut(d) + ".push(" + f.coerce(d.Args[0], elem) + ")", true
	case "extend":
		return f.recvMut(d) + ".extend(" + f.iterSource(d.Args[0]) + ")", true
	case "insert":
		return f.recvMut(d) + ".insert(" + f.listIndex(d.Recv, d.Args[0]) + ", " + f.coerce(d.Args[1], elem) + ")", true
	case "remove":
		p := f.recvMut(d)
		return "{ let _i = " + p + ".iter().position(|v| " + f.eqPred(elem, d.Args[0]) + ").expect(\"list.remove(x): x not in list\"); " + p + ".remove(_i); }", true
	case "pop":
		if len(d.Args) == 0 {
			return f.recvMut(d) + ".pop().unwrap()", true
		}
		return f.recvMut(d) + ".remove(" + f.listIndex(d.Recv, d.Args[0]) + ")", true
	case "clear", "reverse":
		return f.recvMut(d) + "." + d.Method + "()", true
	case "sort":
		return f.listSort(d, elem), true
	case "copy":
		return f.recv(d) + ".clone()", true
	case "index":
		return f.recv(d) + ".iter().position(|v| " + f.eqPred(elem, d.Args[0]) + ").map(|i| i as " + it + ").expect(\"value not in list\")", true
	case "count":
		return "(" + f.recv(d) + ".iter().filter(|&v| " + f.eqPred(elem, d.Args[0]) + ").count() as " + it + ")", true
	case "__delitem__":
		return f.recvMut(d) + ".remove(" + f.listIndex(d.Recv, d.Args[0]) + ")", true
	case "appendleft":
		return f.recvMut(d) + ".insert(0, " + f.coerce(d.Args[0], elem) + ")", true
	case "popleft":
		return f.recvMut(d) + ".remove(0)", true
	}
	return "", false
}

func (f *funcEmitter) listSort(d *hir.MethodCallData, elem *types.Type) string {
	p := f.recvMut(d)
	rev, dynamic := boolLit(d.Kwarg("reverse"))
	var s string
	switch {
	case d.Kwarg("key") != nil:
		s = p + ".sort_by(" + f.sortCompare(d.Kwarg("key"), elem, rev) + ")"
	case elem.Kind == types.KindFloat || elem.IsDynamic():
		if rev {
			s = p + ".sort_by(|a, b| b.partial_cmp(a).unwrap_or(std::cmp::Ordering::Equal))"
		} else {
			s = p + ".sort_by(|a, b| a.partial_cmp(b).unwrap_or(std::cmp::Ordering::Equal))"
		}
	case rev:
		s = p + ".sort_by(|a, b| b.cmp(a))"
	default:
		s = p + ".sort()"
	}
	if dynamic {
		s = "{ " + s + "; if " + f.cond(d.Kwarg("reverse")) + " { " + p + ".reverse(); } }"
	}
	return s
}

func (f *funcEmitter) dictMethod(e *hir.Expr, d *hir.MethodCallData, rt *types.Type) (string, bool) {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	dflt := arg(1)
	if dflt == nil {
		dflt = d.Kwarg("default")
	}
	switch d.Method {
	case "get":
		s := f.recv(d) + ".get(" + f.keyArg(arg(0)) + ").cloned()"
		if dflt != nil {
			return s + ".unwrap_or(" + f.coerce(dflt, rt.Value) + ")", true
		}
		return s, true
	case "keys":
		return f.recv(d) + ".keys().cloned().collect::<Vec<_>>()", true
	case "values":
		return f.recv(d) + ".values().cloned().collect::<Vec<_>>()", true
	case "items":
		return f.recv(d) + ".iter().map(|(k, v)| (k.clone(), v.clone())).collect::<Vec<_>>()", true
	case "pop":
		s := f.recvMut(d) + ".remove(" + f.keyArg(arg(0)) + ")"
		if dflt != nil {
			return s + ".unwrap_or(" + f.coerce(dflt, rt.Value) + ")", true
		}
		return s + ".expect(\"key not found\")", true
	case "setdefault":
		v := f.e.mapper.Default(rt.Value)
		if dflt != nil {
			v = f.coerce(dflt, rt.Value)
		}
		s := f.recvMut(d) + ".entry(" + f.owned(arg(0), rt.Key) + ").or_insert(" + v + ")"
		if rt.Value.IsCopy() {
			return "*" + s, true
		}
		return s + ".clone()", true
	case "update":
		src := arg(0)
		if src == nil {
			var pairs []string
			for _, kw := range d.Kwargs {
				pairs = append(pairs, "("+quote(kw.Name)+".to_string(), "+f.coerce(kw.Value, rt.Value)+")")
			}
			return f.recvMut(d) + ".extend([" + strings.Join(pairs, ", ") + "])", true
		}
		if src.Type.Kind == types.KindDict {
			if _, lit := src.Data.(*hir.DictData); lit {
				return f.recvMut(d) + ".extend(" + f.coerce(src, rt) + ")", true
			}
			return f.recvMut(d) + ".extend(" + f.refArg(src) + ".iter().map(|(k, v)| (k.clone(), v.clone())))", true
		}
		return f.recvMut(d) + ".extend(" + f.iterSource(src) + ")", true
	case "clear":
		return f.recvMut(d) + ".clear()", true
	case "copy":
		return f.recv(d) + ".clone()", true
	case "popitem":
		p := f.recvMut(d)
		return "{ let _k = " + p + ".keys().next().cloned().expect(\"popitem(): dictionary is empty\"); let _v = " + p + ".remove(&_k).unwrap(); (_k, _v) }", true
	case "__delitem__":
		return f.recvMut(d) + ".remove(" + f.keyArg(arg(0)) + ")", true
	case "most_common":
		s := "{ let mut _c = " + f.recv(d) + ".iter().map(|(k, v)| (k.clone(), *v)).collect::<Vec<_>>(); _c.sort_by(|a, b| b.1.cmp(&a.1)); "
		if n := arg(0); n != nil {
			s += "_c.truncate(" + paren(f.expr(n)) + " as usize); "
		}
		return s + "_c }", true
	}
	return "", false
}

func (f *funcEmitter) setMethod(e *hir.Expr, d *hir.MethodCallData, rt *types.Type) (string, bool) {
	other := func() string { return f.refArg(d.Args[0]) }
	hs := "std::collections::HashSet<_>"
	switch d.Method {
	case "add":
		return f.recvMut(d) + ".insert(" + f.owned(d.Args[0], rt.Elem) + ")", true
	case "discard", "remove":
		return f.recvMut(d) + ".remove(" + f.keyArg(d.Args[0]) + ")", true
	case "clear":
		return f.recvMut(d) + ".clear()", true
	case "update":
		return f.recvMut(d) + ".extend(" + f.iterSource(d.Args[0]) + ")", true
	case "union", "intersection", "difference", "symmetric_difference":
		return f.recv(d) + "." + d.Method + "(" + other() + ").cloned().collect::<" + hs + ">()", true
	case "copy":
		return f.recv(d) + ".clone()", true
	case "issubset":
		return f.recv(d) + ".is_subset(" + other() + ")", true
	case "issuperset":
		return f.recv(d) + ".is_superset(" + other() + ")", true
	case "isdisjoint":
		return f.recv(d) + ".is_disjoint(" + other() + ")", true
	case "difference_update":
		return "{ let _o = " + other() + ".clone(); " + f.recvMut(d) + ".retain(|x| !_o.contains(x)); }", true
	case "intersection_update":
		return "{ let _o = " + other() + ".clone(); " + f.recvMut(d) + ".retain(|x| _o.contains(x)); }", true
	case "pop":
		p := f.recvMut(d)
		return "{ let _x = " + p + ".iter().next().cloned().expect(\"pop from an empty set\"); " + p + ".remove(&_x); _x }", true
	}
	return "", false
}

// dynMethod forwards a call on an unresolved receiver to the runtime
// value's method table.
func (f *funcEmitter) dynMethod(e *hir.Expr, d *hir.MethodCallData) string {
	f.e.dyn = true
	f.record(trace.DecisionMethodDispatch, DynName+"::call_method", "receiver type unresolved", e.Span)
	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		args[i] = DynName + "::from(" + f.value(a) + ")"
	}
	s := atom(f.place(d.Recv)) + ".call_method(" + quote(d.Method) + ", vec![" + strings.Join(args, ", ") + "])"
	if t := e.Type; t != nil && t.IsKnown() && !t.IsDynamic() && t.Kind != types.KindNone {
		return f.fromDyn(s, t, e)
	}
	return s
}
