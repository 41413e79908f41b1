package rustgen

import (
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// Single inheritance lowers to composition: a derived struct holds its
// base in a `base` field and forwards inherited methods to it. Exception
// classes flatten their fields instead so they stay plain error values.

func (e *Emitter) classOf(t *types.Type) *hir.Class {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case types.KindCustom, types.KindGeneric:
		return e.mod.Class(t.Name)
	case types.KindOptional:
		return e.classOf(t.Elem)
	}
	return nil
}

// findMethod walks the inheritance chain.
func (e *Emitter) findMethod(c *hir.Class, name string) *hir.Func {
	for depth := 0; c != nil && depth < 32; depth++ {
		if m := c.Method(name); m != nil {
			return m
		}
		c = e.mod.Class(c.Base)
	}
	return nil
}

func (e *Emitter) baseOf(c *hir.Class) *hir.Class {
	if c == nil || c.Base == "" || e.isException(c.Name) {
		return nil
	}
	return e.mod.Class(c.Base)
}

// ownFields are the fields stored directly in c's struct.
func (e *Emitter) ownFields(c *hir.Class) []*hir.Field {
	if e.isException(c.Name) {
		return e.allFields(c)
	}
	base := e.baseOf(c)
	var out []*hir.Field
	for _, fl := range c.Fields {
		if base != nil && e.hasField(base, fl.Name) {
			continue
		}
		out = append(out, fl)
	}
	return out
}

// allFields lists c's fields with inherited ones first.
func (e *Emitter) allFields(c *hir.Class) []*hir.Field {
	var chain []*hir.Class
	for depth, cc := 0, c; cc != nil && depth < 32; depth, cc = depth+1, e.mod.Class(cc.Base) {
		chain = append(chain, cc)
	}
	seen := map[string]bool{}
	var out []*hir.Field
	for i := len(chain) - 1; i >= 0; i-- {
		for _, fl := range chain[i].Fields {
			if !seen[fl.Name] {
				seen[fl.Name] = true
				out = append(out, fl)
			}
		}
	}
	return out
}

func (e *Emitter) hasField(c *hir.Class, name string) bool {
	for _, fl := range e.allFields(c) {
		if fl.Name == name {
			return true
		}
	}
	return false
}

// fieldType types t.name, nil when t has no such field.
func (e *Emitter) fieldType(t *types.Type, name string) *types.Type {
	c := e.classOf(t)
	if c == nil {
		return nil
	}
	for _, fl := range e.allFields(c) {
		if fl.Name == name {
			return fl.Type
		}
	}
	return nil
}

// fieldPath spells the access path of a field through base structs.
func (e *Emitter) fieldPath(t *types.Type, name string) string {
	c := e.classOf(t)
	path := ""
	for depth := 0; c != nil && depth < 32; depth++ {
		if c.Field(name) != nil && !e.hasFieldInBase(c, name) {
			break
		}
		base := e.baseOf(c)
		if base == nil {
			break
		}
		path += "base."
		c = base
	}
	return path + SafeIdent(name)
}

func (e *Emitter) hasFieldInBase(c *hir.Class, name string) bool {
	base := e.baseOf(c)
	return base != nil && e.hasField(base, name)
}

// constant finds a class-level constant through the chain.
func (e *Emitter) constant(c *hir.Class, name string) *hir.Global {
	for depth := 0; c != nil && depth < 32; depth++ {
		for _, k := range c.Constants {
			if k.Name == name {
				return k
			}
		}
		c = e.mod.Class(c.Base)
	}
	return nil
}

func (e *Emitter) isConstant(c *hir.Class, name string) bool {
	return e.constant(c, name) != nil
}

// derivesFrom reports whether the class of t inherits from name.
func (e *Emitter) derivesFrom(t *types.Type, name string) bool {
	c := e.classOf(t)
	for depth := 0; c != nil && depth < 32; depth++ {
		if c.Base == name {
			return true
		}
		c = e.mod.Class(c.Base)
	}
	return false
}

// derives computes the derivable traits of a class from its fields.
type derives struct {
	debug, clone, eq, def bool
}

func (d derives) and(o derives) derives {
	return derives{d.debug && o.debug, d.clone && o.clone, d.eq && o.eq, d.def && o.def}
}

var all = derives{true, true, true, true}

func (e *Emitter) typeDerives(t *types.Type, visiting *set.Set[string]) derives {
	if t == nil {
		return all
	}
	switch t.Kind {
	case types.KindFunc, types.KindIterator:
		return derives{}
	case types.KindExtern:
		switch t.Name {
		case types.ExtFile, types.ExtPopen, types.ExtCSVReader, types.ExtCSVWriter, types.ExtCSVDictReader, types.ExtCSVDictWriter:
			return derives{debug: true}
		case types.ExtPattern:
			return derives{debug: true, clone: true}
		case types.ExtMatch:
			return derives{}
		case types.ExtHasher, types.ExtArgParser:
			return derives{debug: true, clone: true, def: true}
		case types.ExtCompleted, types.ExtRandom:
			return derives{debug: true, clone: true, eq: true}
		}
		return all
	case types.KindOptional:
		d := e.typeDerives(t.Elem, visiting)
		d.def = true
		return d
	case types.KindCustom, types.KindGeneric:
		c := e.mod.Class(t.Name)
		if c == nil || visiting.Contains(c.Name) {
			return all
		}
		return e.classDerives(c, visiting)
	}
	d := all
	for _, x := range []*types.Type{t.Elem, t.Key, t.Value} {
		if x != nil {
			d = d.and(e.typeDerives(x, visiting))
		}
	}
	for _, x := range t.Elems {
		d = d.and(e.typeDerives(x, visiting))
	}
	return d
}

func (e *Emitter) classDerives(c *hir.Class, visiting *set.Set[string]) derives {
	visiting.Insert(c.Name)
	defer visiting.Remove(c.Name)
	d := all
	for _, fl := range e.allFields(c) {
		d = d.and(e.typeDerives(fl.Type, visiting))
	}
	if c.Method("__eq__") != nil {
		d.eq = false
	}
	return d
}

func (d derives) attr() string {
	var names []string
	if d.debug {
		names = append(names, "Debug")
	}
	if d.clone {
		names = append(names, "Clone")
	}
	if d.eq {
		names = append(names, "PartialEq")
	}
	if d.def {
		names = append(names, "Default")
	}
	if len(names) == 0 {
		return ""
	}
	return "#[derive(" + strings.Join(names, ", ") + ")]"
}

func (e *Emitter) emitClass(c *hir.Class) {
	b := &e.body
	for _, l := range docLines(c.Doc) {
		b.WriteString("///" + l + "\n")
	}
	exc := e.isException(c.Name)
	d := e.classDerives(c, set.New[string](4))
	fields := e.ownFields(c)
	if exc {
		d.debug = true
		if !e.hasField(c, "message") {
			fields = append([]*hir.Field{{Name: "message", Type: types.Str, Span: c.Span}}, fields...)
		}
	}
	if a := d.attr(); a != "" {
		b.WriteString(a + "\n")
	}
	base := e.baseOf(c)
	if len(fields) == 0 && base == nil {
		b.WriteString("pub struct " + c.RustName + ";\n\n")
	} else {
		b.WriteString("pub struct " + c.RustName + " {\n")
		if base != nil {
			b.WriteString("    pub base: " + base.RustName + ",\n")
			e.record(trace.DecisionTypeMapping, c.Name, "base: "+base.RustName, "single inheritance lowers to composition", c.Span)
		}
		for _, fl := range fields {
			b.WriteString("    pub " + SafeIdent(fl.Name) + ": " + e.rust(fl.Type) + ",\n")
		}
		b.WriteString("}\n\n")
	}

	var body strings.Builder
	for _, k := range c.Constants {
		e.emitConstant(c, k, &body)
	}
	if c.Method("__init__") == nil {
		e.emitFieldConstructor(c, fields, base, &body)
	}
	for _, m := range c.Methods {
		e.emitFunc(m, c, 1, &body)
	}
	e.emitForwarders(c, &body)
	if body.Len() > 0 {
		b.WriteString("impl " + c.RustName + " {\n")
		b.WriteString(strings.TrimRight(body.String(), "\n") + "\n")
		b.WriteString("}\n\n")
	}
	e.emitTraitImpls(c, exc)
}

// emitConstant writes a class attribute as an associated const, or an
// associated function when the value needs runtime construction.
func (e *Emitter) emitConstant(c *hir.Class, k *hir.Global, out *strings.Builder) {
	f := e.constEmitter(c.Name+"."+k.Name, 1, out)
	t := k.Type
	if t == nil && k.Value != nil {
		t = k.Value.Type
		k.Type = t
	}
	if k.Value == nil {
		f.line("pub const %s: %s = %s;", k.Name, e.rust(t), e.mapper.Default(t))
		return
	}
	if k.Kind == hir.GlobalConst {
		if t.Kind == types.KindStr {
			f.line("pub const %s: &'static str = %s;", k.Name, f.constValue(k.Value, t))
			return
		}
		f.line("pub const %s: %s = %s;", k.Name, e.rust(t), f.constValue(k.Value, t))
		return
	}
	f.line("pub fn %s() -> %s {", k.Name, e.rust(t))
	f.indent++
	f.line("%s", f.coerce(k.Value, t))
	f.indent--
	f.line("}")
}

// emitFieldConstructor writes new() for classes without __init__:
// dataclasses and plain field holders.
func (e *Emitter) emitFieldConstructor(c *hir.Class, fields []*hir.Field, base *hir.Class, out *strings.Builder) {
	if e.isException(c.Name) && len(e.allFields(c)) == 0 {
		f := e.constEmitter(c.Name+".new", 1, out)
		f.line("pub fn new(message: impl Into<String>) -> Self {")
		f.line("    Self { message: message.into() }")
		f.line("}")
		out.WriteString("\n")
		return
	}
	if len(fields) == 0 && base == nil {
		return
	}
	f := e.constEmitter(c.Name+".new", 1, out)
	var params, inits []string
	if base != nil {
		var args []string
		for _, p := range e.fieldParams(base) {
			params = append(params, SafeIdent(p.Name)+": "+e.rust(p.Type))
			args = append(args, SafeIdent(p.Name))
		}
		inits = append(inits, "base: "+base.RustName+"::new("+strings.Join(args, ", ")+")")
	}
	for _, fl := range fields {
		if fl.Name == "message" && e.isException(c.Name) && c.Field("message") == nil {
			params = append(params, "message: impl Into<String>")
			inits = append(inits, "message: message.into()")
			continue
		}
		params = append(params, SafeIdent(fl.Name)+": "+e.rust(fl.Type))
		inits = append(inits, SafeIdent(fl.Name))
	}
	f.line("pub fn new(%s) -> Self {", strings.Join(params, ", "))
	f.line("    Self { %s }", strings.Join(inits, ", "))
	f.line("}")
	out.WriteString("\n")
}

// emitForwarders writes methods inherited from base classes as calls
// through the base field.
func (e *Emitter) emitForwarders(c *hir.Class, out *strings.Builder) {
	base := e.baseOf(c)
	if base == nil {
		return
	}
	done := map[string]bool{"__init__": true}
	for _, m := range c.Methods {
		done[m.Name] = true
	}
	for bc := base; bc != nil; bc = e.baseOf(bc) {
		for _, m := range bc.Methods {
			if done[m.Name] {
				continue
			}
			done[m.Name] = true
			f := e.newFuncEmitter(m, bc, 1, out)
			var args []string
			for _, p := range m.Params {
				args = append(args, SafeIdent(p.Name))
			}
			call := methodName(m) + "(" + strings.Join(args, ", ") + ")"
			switch {
			case m.Flags.HasFlag(hir.FuncStatic) || m.Flags.HasFlag(hir.FuncClassMethod):
				call = bc.RustName + "::" + call
			default:
				call = "self.base." + call
			}
			if m.IsAsync() && !e.opts.SafetyMode {
				call += ".await"
			}
			f.line("%s {", f.signature(methodName(m), true))
			f.line("    %s", call)
			f.line("}")
			out.WriteString("\n")
		}
	}
}

// emitTraitImpls writes Display for classes with __str__ or __repr__,
// Error for exception classes and Iterator for classes with __next__.
func (e *Emitter) emitTraitImpls(c *hir.Class, exc bool) {
	b := &e.body
	str := e.findMethod(c, "__str__")
	if str == nil {
		str = e.findMethod(c, "__repr__")
	}
	switch {
	case str != nil:
		b.WriteString("impl std::fmt::Display for " + c.RustName + " {\n")
		b.WriteString("    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {\n")
		b.WriteString("        write!(f, \"{}\", self." + methodName(str) + "())\n")
		b.WriteString("    }\n}\n\n")
	case exc:
		b.WriteString("impl std::fmt::Display for " + c.RustName + " {\n")
		b.WriteString("    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {\n")
		b.WriteString("        write!(f, \"{}\", self.message)\n")
		b.WriteString("    }\n}\n\n")
	}
	if exc {
		b.WriteString("impl std::error::Error for " + c.RustName + " {}\n\n")
	}
	if next := e.findMethod(c, "__next__"); next != nil && next.Result != nil {
		item := next.Result
		if item.Kind == types.KindOptional {
			item = item.Elem
		}
		b.WriteString("impl Iterator for " + c.RustName + " {\n")
		b.WriteString("    type Item = " + e.rust(item) + ";\n\n")
		b.WriteString("    fn next(&mut self) -> Option<Self::Item> {\n")
		switch {
		case next.Result.Kind == types.KindOptional && !next.CanFail():
			b.WriteString("        self.next_item()\n")
		case next.CanFail():
			b.WriteString("        self.next_item().ok()\n")
		default:
			b.WriteString("        Some(self.next_item())\n")
		}
		b.WriteString("    }\n}\n\n")
	}
	for _, p := range e.mod.Protocols {
		if e.implements(c, p) {
			e.emitProtocolImpl(c, p)
		}
	}
}

func (e *Emitter) emitProtocol(p *hir.Protocol) {
	b := &e.body
	for _, l := range docLines(p.Doc) {
		b.WriteString("///" + l + "\n")
	}
	b.WriteString("pub trait " + ClassName(p.Name) + " {\n")
	for _, m := range p.Methods {
		f := e.newFuncEmitter(m, nil, 1, b)
		f.line("%s;", f.signature(methodName(m), false))
	}
	b.WriteString("}\n\n")
}

// implements checks a class structurally against a protocol: every
// protocol method exists with the same arity.
func (e *Emitter) implements(c *hir.Class, p *hir.Protocol) bool {
	if len(p.Methods) == 0 {
		return false
	}
	for _, pm := range p.Methods {
		m := e.findMethod(c, pm.Name)
		if m == nil || len(m.Params) != len(pm.Params) || m.IsAsync() != pm.IsAsync() || m.CanFail() != pm.CanFail() {
			return false
		}
		if m.Flags.HasFlag(hir.FuncMutSelf) && !pm.Flags.HasFlag(hir.FuncMutSelf) {
			return false
		}
		for i, p := range pm.Params {
			if e.paramType(p) != e.paramType(m.Params[i]) {
				return false
			}
		}
	}
	return true
}

func (e *Emitter) emitProtocolImpl(c *hir.Class, p *hir.Protocol) {
	b := &e.body
	e.record(trace.DecisionMethodDispatch, c.Name, "impl "+ClassName(p.Name), "class provides every protocol method", c.Span)
	b.WriteString("impl " + ClassName(p.Name) + " for " + c.RustName + " {\n")
	for _, pm := range p.Methods {
		m := e.findMethod(c, pm.Name)
		f := e.newFuncEmitter(pm, nil, 1, b)
		args := []string{"self"}
		if pm.Flags.HasFlag(hir.FuncStatic) || pm.Flags.HasFlag(hir.FuncClassMethod) {
			args = nil
		}
		for _, p := range pm.Params {
			args = append(args, SafeIdent(p.Name))
		}
		f.line("%s {", f.signature(methodName(pm), false))
		call := c.RustName + "::" + methodName(m) + "(" + strings.Join(args, ", ") + ")"
		if pm.IsAsync() && !e.opts.SafetyMode {
			call += ".await"
		}
		f.line("    %s", call)
		f.line("}")
	}
	b.WriteString("}\n\n")
}

// constructorBody emits __init__ as new(). Bodies made only of field
// assignments become a struct literal; anything else builds a mutable
// value with defaults and runs the body against it.
func (f *funcEmitter) constructorBody() {
	c := f.class
	stmts := f.fn.Body.Stmts
	base := f.e.baseOf(c)
	fields := f.e.ownFields(c)
	exc := f.e.isException(c.Name)
	if exc && c.Field("message") == nil && !f.e.hasField(c, "message") {
		fields = append([]*hir.Field{{Name: "message", Type: types.Str}}, fields...)
	}

	superAt := -1
	for i, s := range stmts {
		if es, ok := s.Data.(*hir.ExprStmtData); ok {
			if mc, ok := es.Value.Data.(*hir.MethodCallData); ok && isSuperCall(mc.Recv) && mc.Method == "__init__" {
				superAt = i
				break
			}
		}
	}
	var superCall *hir.MethodCallData
	if superAt >= 0 {
		superCall = stmts[superAt].Data.(*hir.ExprStmtData).Value.Data.(*hir.MethodCallData)
		f.stmtsBefore(stmts[:superAt], stmts[superAt:])
		stmts = stmts[superAt+1:]
	}
	inits := map[string]string{}
	if superCall != nil {
		switch {
		case base != nil:
			if init := f.e.findMethod(base, "__init__"); init != nil {
				inits["base"] = f.userCall(base.RustName+"::new", init, superCall.Args, superCall.Kwargs)
			} else {
				inits["base"] = base.RustName + "::new(" + f.args(f.e.fieldParams(base), superCall.Args, superCall.Kwargs) + ")"
			}
		case exc && len(superCall.Args) > 0:
			inits["message"] = f.excMessage(superCall.Args)
		}
	}
	if base != nil && inits["base"] == "" {
		inits["base"] = base.RustName + "::default()"
	}
	wrap := func(s string) string {
		if f.fn.CanFail() {
			return "Ok(" + s + ")"
		}
		return s
	}
	if lit, ok := f.fieldLiteral(stmts, fields, inits); ok {
		f.line("%s", wrap(lit))
		return
	}
	var parts []string
	if base != nil {
		parts = append(parts, "base: "+inits["base"])
	}
	for _, fl := range fields {
		v, ok := inits[fl.Name]
		if !ok {
			v = f.e.mapper.Default(fl.Type)
		}
		parts = append(parts, SafeIdent(fl.Name)+": "+v)
	}
	f.selfName = "_self"
	f.line("let mut _self = Self { %s };", strings.Join(parts, ", "))
	f.scope.Declare("self")
	f.stmtList(stmts)
	f.line("%s", wrap("_self"))
}

// fieldLiteral renders Self { .. } when stmts only assign each field
// once from values not reading self.
func (f *funcEmitter) fieldLiteral(stmts []*hir.Stmt, fields []*hir.Field, inits map[string]string) (string, bool) {
	values := map[string]*hir.Expr{}
	for _, s := range stmts {
		d, ok := s.Data.(*hir.AssignData)
		if !ok || d.Target.Kind != hir.TargetAttribute || hir.NameOf(d.Target.Base) != "self" {
			return "", false
		}
		if _, dup := values[d.Target.Field]; dup || mentions(d.Value, "self") {
			return "", false
		}
		values[d.Target.Field] = d.Value
	}
	var parts []string
	if v, ok := inits["base"]; ok {
		parts = append(parts, "base: "+v)
	}
	for _, fl := range fields {
		name := SafeIdent(fl.Name)
		switch v, ok := values[fl.Name]; {
		case ok:
			text := f.coerce(v, fl.Type)
			if text == name {
				parts = append(parts, name)
			} else {
				parts = append(parts, name+": "+text)
			}
			delete(values, fl.Name)
		case inits[fl.Name] != "":
			parts = append(parts, name+": "+inits[fl.Name])
		default:
			parts = append(parts, name+": "+f.e.mapper.Default(fl.Type))
		}
	}
	if len(values) > 0 {
		return "", false
	}
	if len(parts) == 0 {
		return "Self", true
	}
	return "Self { " + strings.Join(parts, ", ") + " }", true
}

// constEmitter renders module and class level values that have no
// enclosing function.
func (e *Emitter) constEmitter(site string, indent int, out *strings.Builder) *funcEmitter {
	fn := &hir.Func{Name: site, Result: types.None, Body: hir.NewBlock(), Globals: set.New[string](0)}
	return e.newFuncEmitter(fn, nil, indent, out)
}

// constValue spells a value in const position, where strings stay
// &'static str.
func (f *funcEmitter) constValue(v *hir.Expr, t *types.Type) string {
	if lit, ok := v.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
		return quote(lit.Text)
	}
	return f.coerce(v, t)
}

// constRef spells a read of a class constant.
func (e *Emitter) constRef(c *hir.Class, name string) string {
	k := e.constant(c, name)
	owner := c
	for owner != nil && !slices.Contains(owner.Constants, k) {
		owner = e.mod.Class(owner.Base)
	}
	if owner == nil {
		owner = c
	}
	path := owner.RustName + "::" + name
	switch {
	case k.Value != nil && k.Kind != hir.GlobalConst:
		return path + "()"
	case k.Type != nil && k.Type.Kind == types.KindStr:
		return path + ".to_string()"
	}
	return path
}
