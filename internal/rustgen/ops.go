package rustgen

import (
	"strconv"
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

// operand is a spelled sub-expression with its type. e is nil for
// synthesized operands such as the current value of a compound
// assignment.
type operand struct {
	text string
	t    *types.Type
	e    *hir.Expr
}

func (f *funcEmitter) operand(e *hir.Expr) operand {
	return operand{text: f.expr(e), t: e.Type, e: e}
}

// paren wraps s when it would not bind as a single operand.
func paren(s string) string {
	if topLevelSpace(s) || strings.HasPrefix(s, "move ") {
		return "(" + s + ")"
	}
	return s
}

// toFloat spells an int operand as f64.
func toFloat(o operand) string {
	if o.t.Kind != types.KindInt {
		return paren(o.text)
	}
	if n, ok := intLit(o.e); ok {
		return strconv.FormatInt(n, 10) + ".0"
	}
	return "(" + paren(o.text) + " as f64)"
}

func (f *funcEmitter) binary(e *hir.Expr, d *hir.BinaryData) string {
	switch {
	case d.Op.IsLogical():
		return f.logical(e, d)
	case d.Op == hir.OpIs || d.Op == hir.OpIsNot:
		return f.identity(d)
	case d.Op == hir.OpIn || d.Op == hir.OpNotIn:
		s := f.membership(d.Left, d.Right)
		if d.Op == hir.OpNotIn {
			return "!" + atom(s)
		}
		return s
	case d.Op.IsComparison():
		return f.compare(d.Op, d.Left, d.Right)
	case d.Op == hir.OpAdd && e.Type.Kind == types.KindStr:
		return f.concat(e)
	case d.Op == hir.OpMod && d.Left.Type.Kind == types.KindStr:
		return f.percentFormat(d.Left, d.Right)
	}
	return f.arith(d.Op, f.operand(d.Left), f.operand(d.Right), e.Type)
}

// unwrapOptional treats a narrowed optional operand as its value.
func unwrapOptional(o operand) operand {
	if o.t != nil && o.t.Kind == types.KindOptional {
		o.text = atom(o.text) + ".unwrap()"
		o.t = o.t.Elem
	}
	return o
}

// arith spells an arithmetic operator with Python semantics.
func (f *funcEmitter) arith(op hir.BinaryOp, l, r operand, t *types.Type) string {
	l, r = unwrapOptional(l), unwrapOptional(r)
	if l.t.IsDynamic() || r.t.IsDynamic() {
		return f.dynArith(op, l, r)
	}
	if c := f.e.classOf(l.t); c != nil && r.e != nil {
		if name, ok := dunderFor[op]; ok {
			if m := f.e.findMethod(c, name); m != nil {
				return atom(l.text) + "." + methodName(m) + "(" + f.args(m.Params, []*hir.Expr{r.e}, nil) + ")"
			}
		}
		f.report(diag.GenUnsupportedExpr, r.e.Span, "%s has no %s method", c.Name, op)
	}
	ls, rs := paren(l.text), paren(r.text)
	mixed := l.t.Kind == types.KindFloat || r.t.Kind == types.KindFloat
	if mixed && l.t.IsNumeric() && r.t.IsNumeric() {
		ls, rs = toFloat(l), toFloat(r)
	}
	switch op {
	case hir.OpAdd:
		switch {
		case l.t.Kind == types.KindStr:
			return "format!(\"{}{}\", " + l.text + ", " + r.text + ")"
		case l.t.Kind == types.KindList || l.t.Kind == types.KindBytes:
			return "[&" + ls + "[..], &" + rs + "[..]].concat()"
		case l.t.Kind == types.KindTuple && r.t.Kind == types.KindTuple:
			return f.tupleConcat(l, r)
		}
	case hir.OpSub:
		if l.t.Kind == types.KindSet {
			return atom(l.text) + ".difference(&" + rs + ").cloned().collect::<std::collections::HashSet<_>>()"
		}
	case hir.OpMul:
		if s, ok := f.repeat(l, r); ok {
			return s
		}
		if s, ok := f.repeat(r, l); ok {
			return s
		}
	case hir.OpDiv:
		if l.t.IsExtern(types.ExtPath) {
			return atom(l.text) + ".join(" + f.pathArg(r) + ")"
		}
		return toFloat(l) + " / " + toFloat(r)
	case hir.OpFloorDiv:
		if t.Kind == types.KindFloat {
			return "(" + ls + " / " + rs + ").floor()"
		}
		return "{ let a = " + l.text + "; let b = " + r.text + "; let q = a / b; if (a % b != 0) && ((a < 0) != (b < 0)) { q - 1 } else { q } }"
	case hir.OpMod:
		if t.Kind == types.KindFloat {
			return "{ let a = " + ls + "; let b = " + rs + "; ((a % b) + b) % b }"
		}
		return "{ let a = " + l.text + "; let b = " + r.text + "; ((a % b) + b) % b }"
	case hir.OpPow:
		return f.power(l, r, t)
	case hir.OpBitOr, hir.OpBitAnd, hir.OpBitXor:
		if l.t.Kind == types.KindSet {
			method := map[hir.BinaryOp]string{hir.OpBitOr: "union", hir.OpBitAnd: "intersection", hir.OpBitXor: "symmetric_difference"}[op]
			return atom(l.text) + "." + method + "(&" + rs + ").cloned().collect::<std::collections::HashSet<_>>()"
		}
		if l.t.Kind == types.KindDict && op == hir.OpBitOr {
			return "{ let mut _m = " + atom(l.text) + ".clone(); _m.extend(" + atom(r.text) + ".clone()); _m }"
		}
	case hir.OpMatMul:
		if r.e != nil {
			f.report(diag.GenUnsupportedExpr, r.e.Span, "matrix multiplication has no scalar translation")
		}
		return "unimplemented!(\"@\")"
	}
	return ls + " " + rustOp[op] + " " + rs
}

var rustOp = map[hir.BinaryOp]string{
	hir.OpAdd: "+", hir.OpSub: "-", hir.OpMul: "*", hir.OpDiv: "/",
	hir.OpMod: "%", hir.OpLShift: "<<", hir.OpRShift: ">>",
	hir.OpBitOr: "|", hir.OpBitXor: "^", hir.OpBitAnd: "&",
	hir.OpEq: "==", hir.OpNotEq: "!=", hir.OpLt: "<", hir.OpLtE: "<=", hir.OpGt: ">", hir.OpGtE: ">=",
}

var dunderFor = map[hir.BinaryOp]string{
	hir.OpAdd: "__add__", hir.OpSub: "__sub__", hir.OpMul: "__mul__", hir.OpDiv: "__truediv__",
	hir.OpEq: "__eq__", hir.OpLt: "__lt__", hir.OpLtE: "__le__", hir.OpGt: "__gt__", hir.OpGtE: "__ge__",
}

// repeat spells sequence * count.
func (f *funcEmitter) repeat(seq, n operand) (string, bool) {
	if n.t.Kind != types.KindInt {
		return "", false
	}
	count := paren(n.text) + " as usize"
	switch seq.t.Kind {
	case types.KindStr:
		return atom(seq.text) + ".repeat(" + count + ")", true
	case types.KindList:
		if seq.e != nil {
			if d, ok := seq.e.Data.(*hir.ElemsData); ok && len(d.Elems) == 1 {
				return "vec![" + f.coerce(d.Elems[0], seq.t.Elem) + "; " + count + "]", true
			}
		}
		if seq.t.Elem.IsCopy() {
			return atom(seq.text) + ".repeat(" + count + ")", true
		}
		return atom(seq.text) + ".iter().cloned().cycle().take(" + atom(seq.text) + ".len() * " + paren(count) + ").collect::<Vec<_>>()", true
	}
	return "", false
}

func (f *funcEmitter) power(l, r operand, t *types.Type) string {
	if t.Kind == types.KindFloat || l.t.Kind == types.KindFloat || r.t.Kind == types.KindFloat {
		if r.t.Kind == types.KindInt {
			return atom(toFloat(l)) + ".powi(" + paren(r.text) + " as i32)"
		}
		return atom(toFloat(l)) + ".powf(" + toFloat(r) + ")"
	}
	base := l.text
	if n, ok := intLit(l.e); ok {
		base = "(" + strconv.FormatInt(n, 10) + "_" + f.e.opts.IntType + ")"
	}
	if n, ok := intLit(r.e); ok && n >= 0 {
		return atom(base) + ".pow(" + strconv.FormatInt(n, 10) + ")"
	}
	return atom(base) + ".pow(" + paren(r.text) + " as u32)"
}

func (f *funcEmitter) tupleConcat(l, r operand) string {
	var parts []string
	for i := range l.t.Elems {
		parts = append(parts, atom(l.text)+"."+strconv.Itoa(i))
	}
	for i := range r.t.Elems {
		parts = append(parts, atom(r.text)+"."+strconv.Itoa(i))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (f *funcEmitter) dynArith(op hir.BinaryOp, l, r operand) string {
	f.e.dyn = true
	wrap := func(o operand) string {
		if o.t.IsDynamic() {
			return paren(o.text)
		}
		return DynName + "::from(" + o.text + ")"
	}
	sym, ok := rustOp[op]
	if !ok || op == hir.OpLShift || op == hir.OpRShift || op == hir.OpBitAnd || op == hir.OpBitOr || op == hir.OpBitXor {
		if l.e != nil {
			f.report(diag.GenUnsupportedExpr, l.e.Span, "%s on a dynamic value", op)
		}
		sym = "+"
	}
	return wrap(l) + " " + sym + " " + wrap(r)
}

// concat flattens a chain of string additions into one format!.
func (f *funcEmitter) concat(e *hir.Expr) string {
	var format strings.Builder
	var args []string
	var walk func(x *hir.Expr)
	walk = func(x *hir.Expr) {
		if d, ok := x.Data.(*hir.BinaryData); ok && d.Op == hir.OpAdd && x.Type.Kind == types.KindStr {
			walk(d.Left)
			walk(d.Right)
			return
		}
		if lit, ok := x.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			format.WriteString(formatLit(lit.Text))
			return
		}
		format.WriteString("{}")
		args = append(args, f.expr(x))
	}
	walk(e)
	if len(args) == 0 {
		return quote(strings.ReplaceAll(strings.ReplaceAll(format.String(), "{{", "{"), "}}", "}")) + ".to_string()"
	}
	return "format!(\"" + format.String() + "\", " + strings.Join(args, ", ") + ")"
}

// percentFormat spells `"..." % args` as format!.
func (f *funcEmitter) percentFormat(l, r *hir.Expr) string {
	lit, ok := l.Data.(*hir.LiteralData)
	if !ok || lit.Kind != hir.LiteralStr {
		f.report(diag.GenUnsupportedExpr, l.Span, "%%-formatting with a non-literal format")
		return f.expr(l)
	}
	var vals []*hir.Expr
	if d, ok := r.Data.(*hir.ElemsData); ok && r.Kind == hir.ExprTuple {
		vals = d.Elems
	} else {
		vals = []*hir.Expr{r}
	}
	var b strings.Builder
	var args []string
	text := lit.Text
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '%' {
			b.WriteString(formatLit(string(c)))
			continue
		}
		j := i + 1
		for j < len(text) && strings.IndexByte("0123456789.-+ #", text[j]) >= 0 {
			j++
		}
		if j >= len(text) {
			b.WriteString("%")
			break
		}
		flags, conv := text[i+1:j], text[j]
		i = j
		if conv == '%' {
			b.WriteString("%")
			continue
		}
		if len(args) >= len(vals) {
			f.report(diag.GenUnsupportedExpr, l.Span, "not enough arguments for format string")
			break
		}
		v := vals[len(args)]
		args = append(args, f.expr(v))
		b.WriteString(percentSpec(flags, conv, v.Type))
	}
	if len(args) == 0 {
		return quote(text) + ".to_string()"
	}
	return "format!(\"" + b.String() + "\", " + strings.Join(args, ", ") + ")"
}

func percentSpec(flags string, conv byte, t *types.Type) string {
	spec := ""
	if strings.HasPrefix(flags, "-") {
		spec += "<"
		flags = flags[1:]
	} else if flags != "" && flags[0] != '.' && flags[0] != '0' {
		spec += ">"
	}
	spec += flags
	switch conv {
	case 'r':
		return "{:" + spec + "?}"
	case 'x', 'X', 'o', 'e', 'E':
		if conv == 'X' {
			return "{:" + spec + "X}"
		}
		return "{:" + spec + string(conv) + "}"
	case 's':
		if !t.HasDisplay() {
			return "{:" + spec + "?}"
		}
	}
	if spec == "" {
		return "{}"
	}
	return "{:" + spec + "}"
}

// compare spells an ordering or equality comparison.
func (f *funcEmitter) compare(op hir.BinaryOp, le, re *hir.Expr) string {
	l, r := f.operand(le), f.operand(re)
	if c := f.e.classOf(l.t); c != nil {
		if m := f.e.findMethod(c, dunderFor[op]); m != nil {
			return atom(l.text) + "." + methodName(m) + "(" + f.args(m.Params, []*hir.Expr{re}, nil) + ")"
		}
		if op == hir.OpNotEq {
			if m := f.e.findMethod(c, "__eq__"); m != nil {
				return "!" + atom(l.text) + "." + methodName(m) + "(" + f.args(m.Params, []*hir.Expr{re}, nil) + ")"
			}
		}
	}
	sym := rustOp[op]
	switch {
	case l.t.IsNumeric() && r.t.IsNumeric() && l.t.Kind != r.t.Kind:
		return toFloat(l) + " " + sym + " " + toFloat(r)
	case l.t.Kind == types.KindStr && r.t.Kind == types.KindStr:
		if op == hir.OpEq || op == hir.OpNotEq {
			return f.strSide(le) + " " + sym + " " + f.strSide(re)
		}
		return f.strRef(le) + " " + sym + " " + f.strRef(re)
	case l.t.Kind == types.KindOptional && r.t.Kind != types.KindOptional && !hir.IsNoneLit(re):
		return paren(l.text) + " " + sym + " " + f.coerce(re, l.t)
	case r.t.Kind == types.KindOptional && l.t.Kind != types.KindOptional && !hir.IsNoneLit(le):
		return f.coerce(le, r.t) + " " + sym + " " + paren(r.text)
	case hir.IsNoneLit(re) && l.t.Kind == types.KindOptional:
		return f.identity(&hir.BinaryData{Op: isOp(op), Left: le, Right: re})
	case l.t.IsDynamic() != r.t.IsDynamic():
		f.e.dyn = true
		if l.t.IsDynamic() {
			return paren(l.text) + " " + sym + " " + DynName + "::from(" + f.value(re) + ")"
		}
		return DynName + "::from(" + f.value(le) + ") " + sym + " " + paren(r.text)
	}
	return paren(l.text) + " " + sym + " " + paren(r.text)
}

func isOp(op hir.BinaryOp) hir.BinaryOp {
	if op == hir.OpNotEq {
		return hir.OpIsNot
	}
	return hir.OpIs
}

// strSide spells a string operand of == as written, literals as &str.
func (f *funcEmitter) strSide(e *hir.Expr) string {
	if lit, ok := e.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
		return quote(lit.Text)
	}
	return paren(f.expr(e))
}

// strRef spells a string operand as &str.
func (f *funcEmitter) strRef(e *hir.Expr) string {
	if lit, ok := e.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
		return quote(lit.Text)
	}
	if n := hir.NameOf(e); n != "" && f.borrowedParam(n) != nil {
		return f.ident(n)
	}
	return atom(f.expr(e)) + ".as_str()"
}

func (f *funcEmitter) identity(d *hir.BinaryData) string {
	neg := d.Op == hir.OpIsNot
	subject, other := d.Left, d.Right
	if hir.IsNoneLit(subject) {
		subject, other = other, subject
	}
	if hir.IsNoneLit(other) {
		t := subject.Type
		switch {
		case t.Kind == types.KindOptional:
			if neg {
				return atom(f.expr(subject)) + ".is_some()"
			}
			return atom(f.expr(subject)) + ".is_none()"
		case t.IsDynamic():
			f.e.dyn = true
			if neg {
				return "!" + atom(f.expr(subject)) + ".is_none()"
			}
			return atom(f.expr(subject)) + ".is_none()"
		case t.Kind == types.KindNone:
			return strconv.FormatBool(!neg)
		}
		return strconv.FormatBool(neg)
	}
	op := hir.OpEq
	if neg {
		op = hir.OpNotEq
	}
	return f.compare(op, d.Left, d.Right)
}

// membership spells `x in c`.
func (f *funcEmitter) membership(x, c *hir.Expr) string {
	ct := c.Type
	if mc, ok := c.Data.(*hir.MethodCallData); ok && mc.Module == nil && mc.Recv.Type.Kind == types.KindDict && len(mc.Args) == 0 {
		switch mc.Method {
		case "keys":
			return atom(f.expr(mc.Recv)) + ".contains_key(" + f.keyArg(x) + ")"
		case "values":
			return atom(f.expr(mc.Recv)) + ".values().any(|v| *v == " + f.coerce(x, mc.Recv.Type.Value) + ")"
		}
	}
	if d, ok := c.Data.(*hir.ElemsData); ok && (c.Kind == hir.ExprTuple || c.Kind == hir.ExprList) && allLiterals(d.Elems) {
		parts := make([]string, len(d.Elems))
		for i, el := range d.Elems {
			parts[i] = f.strSide(el)
		}
		needle := "&" + atom(f.expr(x))
		if x.Type.Kind == types.KindStr {
			needle = "&" + f.strRef(x)
		}
		return "[" + strings.Join(parts, ", ") + "].contains(" + needle + ")"
	}
	recv := atom(f.expr(c))
	if ct.Kind == types.KindOptional {
		recv += ".as_ref().unwrap()"
		ct = ct.Elem
	}
	switch {
	case ct.Kind == types.KindDict:
		return recv + ".contains_key(" + f.keyArg(x) + ")"
	case ct.Kind == types.KindSet:
		return recv + ".contains(" + f.keyArg(x) + ")"
	case ct.Kind == types.KindStr:
		return recv + ".contains(" + f.strArg(x) + ")"
	case ct.Kind == types.KindList || ct.Kind == types.KindArray:
		if lit, ok := x.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			return recv + ".iter().any(|v| v == " + quote(lit.Text) + ")"
		}
		return recv + ".contains(" + f.refArg(x) + ")"
	case ct.Kind == types.KindBytes:
		return recv + ".contains(&(" + f.expr(x) + " as u8))"
	case ct.IsExtern(types.ExtJSON):
		return recv + ".get(" + f.strArg(x) + ").is_some()"
	case ct.IsDynamic():
		f.e.dyn = true
		return recv + ".contains(&" + DynName + "::from(" + f.value(x) + "))"
	case ct.Kind == types.KindCustom:
		if cl := f.e.classOf(ct); cl != nil {
			if m := f.e.findMethod(cl, "__contains__"); m != nil {
				return recv + ".contains(" + f.args(m.Params, []*hir.Expr{x}, nil) + ")"
			}
		}
	case ct.Kind == types.KindIterator:
		return "{ let mut _it = " + f.iterSource(c) + "; _it.any(|v| v == " + f.value(x) + ") }"
	}
	f.report(diag.GenUnsupportedExpr, c.Span, "membership test on %s", ct)
	return recv + ".contains(" + f.refArg(x) + ")"
}

func allLiterals(es []*hir.Expr) bool {
	for _, e := range es {
		if _, ok := e.Data.(*hir.LiteralData); !ok {
			return false
		}
	}
	return len(es) > 0
}

// logical spells and/or: boolean operators in a boolean context,
// Python's value-returning forms otherwise.
func (f *funcEmitter) logical(e *hir.Expr, d *hir.BinaryData) string {
	and := d.Op == hir.OpAnd
	if e.Type.Kind == types.KindBool || (d.Left.Type.Kind == types.KindBool && d.Right.Type.Kind == types.KindBool) {
		sym := " || "
		if and {
			sym = " && "
		}
		return f.logicSide(d.Left, d.Op) + sym + f.logicSide(d.Right, d.Op)
	}
	lt := d.Left.Type
	if !and && lt.Kind == types.KindOptional {
		if e.Type.Kind == types.KindOptional {
			return atom(f.value(d.Left)) + ".or(" + f.coerce(d.Right, e.Type) + ")"
		}
		return atom(f.value(d.Left)) + ".unwrap_or(" + f.coerce(d.Right, e.Type) + ")"
	}
	left := f.coerce(d.Left, e.Type)
	test := f.truthy(operand{text: "_l", t: lt})
	if and {
		return "{ let _l = " + left + "; if " + test + " { " + f.coerce(d.Right, e.Type) + " } else { _l } }"
	}
	return "{ let _l = " + left + "; if " + test + " { _l } else { " + f.coerce(d.Right, e.Type) + " } }"
}

// logicSide parenthesizes an operand of && or || that mixes operators.
func (f *funcEmitter) logicSide(e *hir.Expr, op hir.BinaryOp) string {
	s := f.cond(e)
	if d, ok := e.Data.(*hir.BinaryData); ok && d.Op.IsLogical() && d.Op != op {
		return "(" + s + ")"
	}
	return s
}
