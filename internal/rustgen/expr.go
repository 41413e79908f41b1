package rustgen

import (
	"math"
	"strconv"
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// expr spells e in read position: no clone or borrow is added.
func (f *funcEmitter) expr(e *hir.Expr) string {
	switch d := e.Data.(type) {
	case *hir.LiteralData:
		return f.literal(d)
	case *hir.NameData:
		return f.nameRef(d.Name)
	case *hir.BinaryData:
		return f.binary(e, d)
	case *hir.UnaryData:
		return f.unary(d)
	case *hir.CallData:
		return f.call(e, d)
	case *hir.DynCallData:
		args := make([]string, len(d.Args))
		for i, a := range d.Args {
			args[i] = f.value(a)
		}
		return "(" + f.expr(d.Callee) + ")(" + strings.Join(args, ", ") + ")"
	case *hir.MethodCallData:
		return f.methodCall(e, d)
	case *hir.IndexData:
		return f.index(e, d)
	case *hir.SliceData:
		return f.slice(e, d)
	case *hir.AttrData:
		return f.attr(e, d)
	case *hir.ElemsData:
		return f.elems(e, d, e.Type)
	case *hir.DictData:
		return f.dict(e, d, e.Type)
	case *hir.CompData:
		return f.comprehension(e, d)
	case *hir.LambdaData:
		return f.lambda(e, false)
	case *hir.BorrowData:
		if d.Mut {
			return "&mut " + atom(f.expr(d.Value))
		}
		return "&" + atom(f.expr(d.Value))
	case *hir.AwaitData:
		if f.e.opts.SafetyMode || awaitsItself(d.Value) {
			return f.expr(d.Value)
		}
		return atom(f.expr(d.Value)) + ".await"
	case *hir.YieldData:
		f.report(diag.GenUnsupportedExpr, e.Span, "yield used as a value")
		return "()"
	case *hir.FStringData:
		return f.fstring(d)
	case *hir.NamedData:
		v := f.coerce(d.Value, f.fn.LocalType(d.Name))
		name := f.ident(d.Name)
		if d.Value.Type.IsCopy() {
			return "{ " + name + " = " + v + "; " + name + " }"
		}
		return "{ " + name + " = " + v + "; " + name + ".clone() }"
	case *hir.IfExprData:
		return "if " + f.cond(d.Cond) + " { " + f.coerce(d.Then, e.Type) + " } else { " + f.coerce(d.Else, e.Type) + " }"
	case *hir.SortByKeyData:
		return f.sortByKey(e, d)
	case *hir.PlaceholderData:
		f.report(diag.GenPlaceholder, e.Span, "placeholder for %s reached code generation", d.What)
		return "unimplemented!(" + quote(d.What) + ")"
	}
	f.report(diag.GenUnsupportedExpr, e.Span, "no translation for %s expression", e.Kind)
	return "unimplemented!()"
}

func (f *funcEmitter) literal(d *hir.LiteralData) string {
	switch d.Kind {
	case hir.LiteralInt:
		return strconv.FormatInt(d.Int, 10)
	case hir.LiteralFloat:
		return floatLit(d.Float)
	case hir.LiteralStr:
		return quote(d.Text) + ".to_string()"
	case hir.LiteralBool:
		return strconv.FormatBool(d.Bool)
	case hir.LiteralBytes:
		return byteString(d.Bytes) + ".to_vec()"
	}
	return "None"
}

func floatLit(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "f64::INFINITY"
	case math.IsInf(v, -1):
		return "f64::NEG_INFINITY"
	case math.IsNaN(v):
		return "f64::NAN"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	if strings.Contains(s, "e") && !strings.Contains(s, ".") {
		i := strings.Index(s, "e")
		s = s[:i] + ".0" + s[i:]
	}
	return s
}

func (f *funcEmitter) nameRef(name string) string {
	if g := f.global(name); g != nil {
		switch g.Kind {
		case hir.GlobalMutable:
			if g.Type.IsCopy() {
				return "(*" + name + ".lock().unwrap())"
			}
			return name + ".lock().unwrap()"
		}
		return name
	}
	if f.isLocal(name) {
		return f.ident(name)
	}
	if fn := f.e.mod.Func(name); fn != nil {
		return f.e.funcName(fn)
	}
	if c := f.e.mod.Class(name); c != nil {
		return c.RustName
	}
	if imp, it := f.e.mod.ImportedItem(name); imp != nil {
		if s, ok := f.moduleAttr(imp, it.Name, nil); ok {
			return s
		}
	}
	return f.ident(name)
}

// value spells e where an owned value is needed, applying the Use mark.
func (f *funcEmitter) value(e *hir.Expr) string {
	s := f.expr(e)
	switch e.Use {
	case hir.UseClone:
		return f.cloneText(e, s)
	case hir.UseBorrow:
		if strings.HasPrefix(s, "&") {
			return s
		}
		return "&" + atom(s)
	case hir.UseBorrowMut:
		return "&mut " + atom(s)
	case hir.UseMove, hir.UseCopy:
		return s
	}
	if n := hir.NameOf(e); n != "" && !e.Type.IsCopy() {
		if f.global(n) != nil || f.borrowedParam(n) != nil {
			return f.cloneText(e, s)
		}
	}
	return s
}

// borrowedParam returns the parameter name binds when it is passed by
// reference.
func (f *funcEmitter) borrowedParam(name string) *hir.Param {
	if f.scope.Depth() == 0 || f.fields[name] != "" {
		return nil
	}
	p := f.fn.Param(name)
	if p == nil || (p.Mode != hir.OwnershipRef && p.Mode != hir.OwnershipRefMut) {
		return nil
	}
	if p.Type.Kind == types.KindIterator || p.Type.Kind == types.KindFunc {
		return nil
	}
	return p
}

func (f *funcEmitter) cloneText(e *hir.Expr, s string) string {
	if e.Type.IsCopy() {
		if strings.HasPrefix(s, "*") || hir.NameOf(e) == "" || f.borrowedParam(hir.NameOf(e)) == nil {
			return s
		}
		return "*" + s
	}
	if n := hir.NameOf(e); n != "" {
		if p := f.borrowedParam(n); p != nil {
			switch p.Type.Kind {
			case types.KindStr:
				return s + ".to_string()"
			case types.KindList, types.KindBytes:
				return s + ".to_vec()"
			}
		}
		if g := f.global(n); g != nil && g.Kind == hir.GlobalConst && g.Type.Kind == types.KindStr {
			return s + ".to_string()"
		}
	}
	return atom(s) + ".clone()"
}

// owned spells e as an owned value of type t, cloning names that stay
// live after the use.
func (f *funcEmitter) owned(e *hir.Expr, t *types.Type) string {
	if n := hir.NameOf(e); n != "" && !e.Type.IsCopy() && e.Use == hir.UseDefault && f.global(n) == nil {
		return f.cloneText(e, f.expr(e))
	}
	return f.coerce(e, t)
}

// coerce spells e as a value of type want.
func (f *funcEmitter) coerce(e *hir.Expr, want *types.Type) string {
	if want == nil || e.Type == nil {
		return f.value(e)
	}
	have := e.Type
	switch {
	case want.Kind == types.KindOptional:
		if hir.IsNoneLit(e) {
			return "None"
		}
		if have.Kind == types.KindOptional || have.Kind == types.KindNone {
			return f.value(e)
		}
		if have.IsDynamic() {
			return f.value(e) + ".into_option()"
		}
		return "Some(" + f.coerce(e, want.Elem) + ")"
	case want.IsDynamic() && !have.IsDynamic():
		f.e.dyn = true
		if hir.IsNoneLit(e) {
			return DynName + "::None"
		}
		return DynName + "::from(" + f.value(e) + ")"
	case have.IsDynamic() && want.IsKnown() && !want.IsDynamic():
		return f.fromDyn(f.value(e), want, e)
	case want.Kind == types.KindFloat && have.Kind == types.KindInt:
		if lit, ok := e.Data.(*hir.LiteralData); ok {
			return strconv.FormatInt(lit.Int, 10) + ".0"
		}
		return atom(f.value(e)) + " as f64"
	case want.Kind == types.KindInt && have.Kind == types.KindBool:
		return atom(f.value(e)) + " as " + f.e.opts.IntType
	}
	switch d := e.Data.(type) {
	case *hir.ElemsData:
		return f.elems(e, d, want)
	case *hir.DictData:
		return f.dict(e, d, want)
	}
	return f.value(e)
}

// fromDyn converts a DynValue to a concrete type.
func (f *funcEmitter) fromDyn(s string, want *types.Type, e *hir.Expr) string {
	f.e.dyn = true
	switch want.Kind {
	case types.KindInt:
		return atom(s) + ".as_i64() as " + f.e.opts.IntType
	case types.KindFloat:
		return atom(s) + ".as_f64()"
	case types.KindBool:
		return atom(s) + ".is_truthy()"
	case types.KindStr:
		return atom(s) + ".as_str().to_string()"
	case types.KindList:
		return atom(s) + ".as_list().iter().map(|v| " + f.fromDyn("v.clone()", want.Elem, e) + ").collect::<Vec<_>>()"
	}
	f.report(diag.TypDynamicFallback, e.Span, "dynamic value used where %s is expected", want)
	f.record(trace.DecisionTypeMapping, DynName, "no conversion from a dynamic value to "+want.String(), e.Span)
	return s
}

// strArg spells a string expression as &str.
func (f *funcEmitter) strArg(e *hir.Expr) string {
	if lit, ok := e.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
		return quote(lit.Text)
	}
	if n := hir.NameOf(e); n != "" {
		if f.borrowedParam(n) != nil {
			return f.ident(n)
		}
		if g := f.global(n); g != nil && g.Kind == hir.GlobalConst {
			return n
		}
	}
	if e.Type.IsDynamic() {
		f.e.dyn = true
		return atom(f.expr(e)) + ".as_str()"
	}
	s := f.expr(e)
	if strings.HasPrefix(s, "&") {
		return s
	}
	if e.Type.Kind == types.KindOptional {
		return atom(s) + ".as_deref().unwrap_or_default()"
	}
	if e.Type.Kind == types.KindStr {
		return "&*" + atom(s)
	}
	return "&" + atom(s)
}

// keyArg spells e as a lookup key (&Q).
func (f *funcEmitter) keyArg(e *hir.Expr) string {
	if e.Type.Kind == types.KindStr {
		return f.strArg(e)
	}
	if n := hir.NameOf(e); n != "" && f.borrowedParam(n) != nil {
		return f.ident(n)
	}
	return "&" + atom(f.expr(e))
}

// refArg spells e as a shared reference argument.
func (f *funcEmitter) refArg(e *hir.Expr) string {
	if n := hir.NameOf(e); n != "" && f.borrowedParam(n) != nil {
		return f.ident(n)
	}
	if e.Use == hir.UseBorrow || e.Use == hir.UseBorrowMut {
		return f.value(e)
	}
	return "&" + atom(f.expr(e))
}

// place spells a receiver that is mutated in place.
func (f *funcEmitter) place(e *hir.Expr) string {
	switch d := e.Data.(type) {
	case *hir.NameData:
		if g := f.global(d.Name); g != nil && g.Kind == hir.GlobalMutable {
			return d.Name + ".lock().unwrap()"
		}
		return f.nameRef(d.Name)
	case *hir.IndexData:
		if d.Base.Type.Kind == types.KindDict {
			return f.place(d.Base) + ".entry(" + f.owned(d.Index, d.Base.Type.Key) + ").or_default()"
		}
	}
	return f.expr(e)
}

// listIndex spells a sequence index as usize, resolving negative
// literals against the length.
func (f *funcEmitter) listIndex(base, idx *hir.Expr) string {
	if n, ok := intLit(idx); ok {
		if n >= 0 {
			return strconv.FormatInt(n, 10)
		}
		return atom(f.expr(base)) + ".len() - " + strconv.FormatInt(-n, 10)
	}
	if idx.Type.IsDynamic() {
		f.e.dyn = true
		return atom(f.expr(idx)) + ".as_i64() as usize"
	}
	return atom(f.expr(idx)) + " as usize"
}

// intLit reads an integer literal, including a negated one.
func intLit(e *hir.Expr) (int64, bool) {
	if e == nil {
		return 0, false
	}
	switch d := e.Data.(type) {
	case *hir.LiteralData:
		if d.Kind == hir.LiteralInt {
			return d.Int, true
		}
	case *hir.UnaryData:
		if d.Op == hir.OpNeg {
			if n, ok := intLit(d.Operand); ok {
				return -n, true
			}
		}
	}
	return 0, false
}

func (f *funcEmitter) index(e *hir.Expr, d *hir.IndexData) string {
	bt := d.Base.Type
	base := atom(f.expr(d.Base))
	if bt.Kind == types.KindOptional {
		base += ".as_ref().unwrap()"
		bt = bt.Elem
	}
	switch {
	case bt.Kind == types.KindList || bt.Kind == types.KindArray:
		return base + "[" + f.listIndex(d.Base, d.Index) + "]"
	case bt.Kind == types.KindBytes:
		return base + "[" + f.listIndex(d.Base, d.Index) + "] as " + f.e.opts.IntType
	case bt.Kind == types.KindDict:
		return base + "[" + f.keyArg(d.Index) + "]"
	case bt.Kind == types.KindStr:
		if n, ok := intLit(d.Index); ok && n < 0 {
			return base + ".chars().rev().nth(" + strconv.FormatInt(-n-1, 10) + ").map(|c| c.to_string()).unwrap_or_default()"
		}
		return base + ".chars().nth(" + f.listIndex(d.Base, d.Index) + ").map(|c| c.to_string()).unwrap_or_default()"
	case bt.Kind == types.KindTuple:
		if n, ok := intLit(d.Index); ok {
			if n < 0 {
				n += int64(len(bt.Elems))
			}
			return base + "." + strconv.FormatInt(n, 10)
		}
	case bt.IsExtern(types.ExtJSON):
		if d.Index.Type.Kind == types.KindInt {
			return base + "[" + f.listIndex(d.Base, d.Index) + "]"
		}
		return base + "[" + f.strArg(d.Index) + "]"
	case bt.IsExtern(types.ExtMatch):
		return base + ".as_str().to_string()"
	case bt.IsDynamic():
		f.e.dyn = true
		return base + ".get_item(&" + DynName + "::from(" + f.value(d.Index) + "))"
	case bt.Kind == types.KindCustom:
		return base + ".get_item(" + f.value(d.Index) + ")"
	}
	f.report(diag.GenUnsupportedExpr, e.Span, "indexing a %s", bt)
	return base + "[" + f.expr(d.Index) + "]"
}

func (f *funcEmitter) slice(e *hir.Expr, d *hir.SliceData) string {
	bt := d.Base.Type
	base := atom(f.expr(d.Base))
	bound := func(x *hir.Expr, stop bool) string {
		if x == nil {
			return ""
		}
		if n, ok := intLit(x); ok {
			if n >= 0 {
				if stop {
					return strconv.FormatInt(n, 10) + ".min(" + base + ".len())"
				}
				return strconv.FormatInt(n, 10)
			}
			return base + ".len().saturating_sub(" + strconv.FormatInt(-n, 10) + ")"
		}
		v := atom(f.expr(x)) + " as usize"
		if stop {
			return "(" + v + ").min(" + base + ".len())"
		}
		return v
	}
	if step, ok := intLit(d.Step); ok && step < 0 {
		if d.Start != nil || d.Stop != nil {
			f.report(diag.GenUnsupportedExpr, e.Span, "negative slice step with bounds")
		}
		if bt.Kind == types.KindStr {
			return base + ".chars().rev().collect::<String>()"
		}
		return base + ".iter().rev().cloned().collect::<Vec<_>>()"
	}
	rng := bound(d.Start, false) + ".." + bound(d.Stop, true)
	switch bt.Kind {
	case types.KindStr:
		if d.Step != nil {
			return base + "[" + rng + "].chars().step_by(" + atom(f.expr(d.Step)) + " as usize).collect::<String>()"
		}
		return base + "[" + rng + "].to_string()"
	case types.KindList, types.KindBytes, types.KindArray:
		if d.Step != nil {
			return base + "[" + rng + "].iter().step_by(" + atom(f.expr(d.Step)) + " as usize).cloned().collect::<Vec<_>>()"
		}
		return base + "[" + rng + "].to_vec()"
	}
	f.report(diag.GenUnsupportedExpr, e.Span, "slicing a %s", bt)
	return base + "[" + rng + "].to_vec()"
}

func (f *funcEmitter) attr(e *hir.Expr, d *hir.AttrData) string {
	if d.Module != nil {
		if s, ok := f.moduleAttr(d.Module, d.Name, e); ok {
			return s
		}
		f.report(diag.MthUnknownAttr, e.Span, "%s.%s has no mapping", d.Module.Module, d.Name)
		return "unimplemented!(" + quote(d.Module.Module+"."+d.Name) + ")"
	}
	bt := d.Base.Type
	if name := hir.NameOf(d.Base); name != "" && !f.isLocal(name) {
		if c := f.e.mod.Class(name); c != nil {
			if f.e.isConstant(c, d.Name) {
				return f.e.constRef(c, d.Name)
			}
			return c.RustName + "::" + d.Name
		}
	}
	base := atom(f.expr(d.Base))
	if bt.Kind == types.KindOptional {
		base += ".as_ref().unwrap()"
		bt = bt.Elem
	}
	if c := f.e.classOf(bt); c != nil {
		if m := f.e.findMethod(c, d.Name); m != nil && m.Flags.HasFlag(hir.FuncProperty) {
			return base + "." + methodName(m) + "()"
		}
		if f.e.isConstant(c, d.Name) {
			return f.e.constRef(c, d.Name)
		}
		return base + "." + f.e.fieldPath(bt, d.Name)
	}
	if f.e.isException(bt.Name) && bt.Kind == types.KindCustom {
		return base + ".to_string()"
	}
	if s, ok := f.externAttr(base, bt, d.Name, e); ok {
		return s
	}
	if bt.IsDynamic() {
		f.e.dyn = true
		f.record(trace.DecisionMethodDispatch, DynName+"."+d.Name, "attribute of a dynamic value", e.Span)
		return base + ".get_attr(" + quote(d.Name) + ")"
	}
	f.report(diag.MthUnknownAttr, e.Span, "unknown attribute %s on %s", d.Name, bt)
	return base + "." + SafeIdent(d.Name)
}

// elems spells list, set and tuple displays as type t.
func (f *funcEmitter) elems(e *hir.Expr, d *hir.ElemsData, t *types.Type) string {
	if t == nil {
		t = e.Type
	}
	parts := make([]string, len(d.Elems))
	for i, el := range d.Elems {
		var want *types.Type
		switch {
		case t.Kind == types.KindTuple && i < len(t.Elems):
			want = t.Elems[i]
		case t.Kind == types.KindList || t.Kind == types.KindSet:
			want = t.Elem
		}
		parts[i] = f.coerce(el, want)
	}
	switch e.Kind {
	case hir.ExprTuple:
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case hir.ExprSet:
		if len(parts) == 0 {
			return "std::collections::HashSet::new()"
		}
		return "std::collections::HashSet::from([" + strings.Join(parts, ", ") + "])"
	}
	if len(parts) == 0 {
		return "Vec::new()"
	}
	return "vec![" + strings.Join(parts, ", ") + "]"
}

func (f *funcEmitter) dict(e *hir.Expr, d *hir.DictData, t *types.Type) string {
	if t == nil || t.Kind != types.KindDict {
		t = e.Type
	}
	if len(d.Values) == 0 {
		return "std::collections::HashMap::new()"
	}
	spread := false
	for _, k := range d.Keys {
		if k == nil {
			spread = true
		}
	}
	if !spread {
		pairs := make([]string, len(d.Values))
		for i := range d.Values {
			pairs[i] = "(" + f.coerce(d.Keys[i], t.Key) + ", " + f.coerce(d.Values[i], t.Value) + ")"
		}
		return "std::collections::HashMap::from([" + strings.Join(pairs, ", ") + "])"
	}
	var b strings.Builder
	b.WriteString("{ let mut _m = std::collections::HashMap::new(); ")
	for i, v := range d.Values {
		if d.Keys[i] == nil {
			b.WriteString("_m.extend(" + atom(f.expr(v)) + ".clone()); ")
			continue
		}
		b.WriteString("_m.insert(" + f.coerce(d.Keys[i], t.Key) + ", " + f.coerce(v, t.Value) + "); ")
	}
	b.WriteString("_m }")
	return b.String()
}

func (f *funcEmitter) unary(d *hir.UnaryData) string {
	switch d.Op {
	case hir.OpNeg:
		if d.Operand.Type.IsDynamic() {
			f.e.dyn = true
		}
		return "-" + atom(f.expr(d.Operand))
	case hir.OpPos:
		return f.expr(d.Operand)
	case hir.OpNot:
		return "!" + atom(f.cond(d.Operand))
	case hir.OpInvert:
		return "!" + atom(f.expr(d.Operand))
	}
	return f.expr(d.Operand)
}

// predeclare binds walrus targets of s before the statement runs.
func (f *funcEmitter) predeclare(s *hir.Stmt) {
	for _, e := range hir.StmtExprs(s) {
		hir.InspectExpr(e, hir.Visitor{Expr: func(x *hir.Expr) bool {
			if x.Kind == hir.ExprLambda || x.Kind == hir.ExprComp {
				return false
			}
			if n, ok := x.Data.(*hir.NamedData); ok && !f.scope.IsDeclared(n.Name) {
				t := f.fn.LocalType(n.Name)
				if t == nil {
					t = n.Value.Type
				}
				f.line("let mut %s: %s;", f.ident(n.Name), f.rust(t))
				f.scope.Declare(n.Name)
			}
			return true
		}})
	}
}
