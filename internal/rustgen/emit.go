package rustgen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/infer"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// Options configure one generation run.
type Options struct {
	// IntType spells Python int; "i32" when empty.
	IntType string
	// SafetyMode strips async and prefers std spellings over runtime
	// crates.
	SafetyMode bool
	Reporter   diag.Reporter
	Decisions  *trace.DecisionLog
}

// Output is the generated source and the crates it refers to.
type Output struct {
	Code  string
	Needs []string // crate names, sorted
}

// Generate renders m. The module must have been through inference and
// ownership analysis.
func Generate(m *hir.Module, opts Options) *Output {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.IntType == "" {
		opts.IntType = "i32"
	}
	e := &Emitter{
		mod:        m,
		opts:       opts,
		needs:      set.New[string](4),
		errs:       set.New[string](4),
		exceptions: map[string]bool{},
		argActions: map[string]string{},
	}
	e.mapper = &types.Mapper{
		IntType: opts.IntType,
		Rename:  e.className,
		Need:    e.need,
		OnDyn:   func(*types.Type) { e.dyn = true },
	}
	return e.run()
}

// Emitter holds module-wide generation state.
type Emitter struct {
	mod    *hir.Module
	opts   Options
	mapper *types.Mapper

	needs      *set.Set[string] // crates referenced
	errs       *set.Set[string] // builtin exception structs referenced
	dyn        bool             // DynValue referenced
	exceptions map[string]bool  // user classes deriving from an exception
	argActions map[string]string

	body strings.Builder
}

func (e *Emitter) run() *Output {
	e.prepare()
	e.emitImports()
	e.emitAliases()
	e.emitGlobals()
	for _, p := range e.mod.Protocols {
		e.emitProtocol(p)
	}
	for _, c := range e.mod.Classes {
		e.emitClass(c)
	}
	for _, fn := range e.mod.Funcs {
		e.emitFunc(fn, nil, 0, &e.body)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "// Generated from %s.\n", e.mod.Path)
	for _, l := range docLines(e.mod.Doc) {
		out.WriteString("//!" + l + "\n")
	}
	out.WriteString("#![allow(unused_mut, unused_variables, unused_imports, unused_parens, dead_code, unreachable_code, non_snake_case, non_upper_case_globals)]\n\n")
	if e.dyn {
		out.WriteString(dynPreamble)
		out.WriteString("\n")
	}
	errs := e.errs.Slice()
	slices.Sort(errs)
	for _, name := range errs {
		out.WriteString(errorStruct(name))
		out.WriteString("\n")
	}
	out.WriteString(e.body.String())

	needs := e.needs.Slice()
	slices.Sort(needs)
	return &Output{Code: strings.TrimRight(out.String(), "\n") + "\n", Needs: needs}
}

// prepare settles class names and the facts codegen needs before any
// body is emitted.
func (e *Emitter) prepare() {
	for _, c := range e.mod.Classes {
		c.RustName = ClassName(c.Name)
		if c.RustName != c.Name {
			e.record(trace.DecisionTypeMapping, c.Name, c.RustName, "class name shadows a standard library type", c.Span)
		}
	}
	for changed := true; changed; {
		changed = false
		for _, c := range e.mod.Classes {
			if !e.exceptions[c.Name] && (builtinException(c.Base) || e.exceptions[c.Base]) {
				e.exceptions[c.Name] = true
				changed = true
			}
		}
	}
	e.collectArgActions()
}

func (e *Emitter) need(crate string) { e.needs.Insert(crate) }

func (e *Emitter) rust(t *types.Type) string { return e.mapper.Rust(t) }

func (e *Emitter) spell(t *types.Type, pos types.Position) string { return e.mapper.Spell(t, pos) }

func (e *Emitter) className(name string) string {
	if c := e.mod.Class(name); c != nil && c.RustName != "" {
		return c.RustName
	}
	if builtinException(name) {
		e.errs.Insert(name)
	}
	return ClassName(name)
}

func (e *Emitter) report(code diag.Code, sp source.Span, format string, args ...any) {
	diag.Report(e.opts.Reporter, code, sp, format, args...).Emit()
}

func (e *Emitter) record(cat trace.DecisionCategory, site, choice, reason string, sp source.Span) {
	e.opts.Decisions.Record(cat, site, choice, reason, sp)
}

// errorType spells the error side of a fallible function.
func (e *Emitter) errorType(fn *hir.Func) string {
	if fn.ErrorType == "" || fn.ErrorType == infer.BoxedError {
		return infer.BoxedError
	}
	return e.className(fn.ErrorType)
}

// isException reports a class raised and caught as an error value.
func (e *Emitter) isException(name string) bool {
	return builtinException(name) || e.exceptions[name]
}

func (e *Emitter) emitImports() {
	for _, imp := range e.mod.Imports {
		if !imp.Resolved {
			fmt.Fprintf(&e.body, "// unresolved import: %s\n", imp.Module)
			continue
		}
		if imp.Crate != "" {
			e.need(imp.Crate)
		}
	}
	if len(e.mod.Imports) > 0 {
		e.body.WriteString("\n")
	}
}

func (e *Emitter) emitAliases() {
	for _, a := range e.mod.TypeAliases {
		fmt.Fprintf(&e.body, "pub type %s = %s;\n", ClassName(a.Name), e.rust(a.Type))
	}
	if len(e.mod.TypeAliases) > 0 {
		e.body.WriteString("\n")
	}
}

// funcEmitter writes one function body.
type funcEmitter struct {
	e      *Emitter
	fn     *hir.Func
	class  *hir.Class
	buf    *strings.Builder
	indent int
	scope  *ScopeTracker
	tmp    int

	labels      []string // enclosing loop labels, "" for unlabelled loops
	tryLoops    []int    // len(labels) at each enclosing try-body closure
	lambdaDepth int      // depth of closures that cannot propagate errors
	caught      string   // binding of the error in the innermost handler
	caughtAs    string   // user name of that error, "" when unnamed

	selfName string            // receiver spelling inside constructors
	fields   map[string]string // generator state substitutions
	compVars map[string]bool   // comprehension bindings
	csvCols  map[string]string // DictWriter binding -> field names
	parsers  map[string]string // argument group binding -> parser binding
}

func (e *Emitter) newFuncEmitter(fn *hir.Func, class *hir.Class, indent int, buf *strings.Builder) *funcEmitter {
	return &funcEmitter{
		e:        e,
		fn:       fn,
		class:    class,
		buf:      buf,
		indent:   indent,
		scope:    NewScopeTracker(),
		fields:   map[string]string{},
		compVars: map[string]bool{},
		csvCols:  map[string]string{},
		parsers:  map[string]string{},
	}
}

func (f *funcEmitter) line(format string, args ...any) {
	for i := 0; i < f.indent; i++ {
		f.buf.WriteString("    ")
	}
	if len(args) == 0 {
		f.buf.WriteString(format)
	} else {
		fmt.Fprintf(f.buf, format, args...)
	}
	f.buf.WriteByte('\n')
}

func (f *funcEmitter) temp(prefix string) string {
	f.tmp++
	return fmt.Sprintf("_%s%d", prefix, f.tmp)
}

func (f *funcEmitter) site() string { return f.fn.QualName() }

func (f *funcEmitter) report(code diag.Code, sp source.Span, format string, args ...any) {
	f.e.report(code, sp, format, args...)
}

func (f *funcEmitter) record(cat trace.DecisionCategory, choice, reason string, sp source.Span) {
	f.e.record(cat, f.site(), choice, reason, sp)
}

func (f *funcEmitter) rust(t *types.Type) string { return f.e.rust(t) }

// canFail reports whether `?` is available at the current position.
func (f *funcEmitter) canFail() bool {
	if f.lambdaDepth > 0 {
		return false
	}
	return len(f.tryLoops) > 0 || f.fn.CanFail()
}

// errorType is the error side of the innermost fallible context.
func (f *funcEmitter) errorType() string {
	if len(f.tryLoops) > 0 {
		return infer.BoxedError
	}
	return f.e.errorType(f.fn)
}

// fallible settles a Result-producing expression: propagate where the
// context can fail, abort otherwise.
func (f *funcEmitter) fallible(text string) string {
	if f.canFail() {
		return atom(text) + "?"
	}
	return atom(text) + ".unwrap()"
}

func (f *funcEmitter) isLocal(name string) bool {
	if f.compVars[name] || f.scope.IsDeclared(name) {
		return true
	}
	return f.fn.LocalType(name) != nil
}

// ident spells a local binding.
func (f *funcEmitter) ident(name string) string {
	if sub, ok := f.fields[name]; ok {
		return sub
	}
	if name == "self" {
		if f.selfName != "" {
			return f.selfName
		}
		if f.fn.IsMethod() {
			return "self"
		}
	}
	return SafeIdent(name)
}

func docLines(doc string) []string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil
	}
	var out []string
	for _, l := range strings.Split(doc, "\n") {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			out = append(out, "")
			continue
		}
		out = append(out, " "+strings.TrimSpace(l))
	}
	return out
}

func builtinException(name string) bool {
	switch name {
	case "Exception", "BaseException", "ValueError", "TypeError", "KeyError", "IndexError",
		"RuntimeError", "ZeroDivisionError", "FileNotFoundError", "IOError", "OSError",
		"AttributeError", "NotImplementedError", "StopIteration", "AssertionError",
		"LookupError", "ArithmeticError", "OverflowError", "PermissionError", "TimeoutError":
		return true
	}
	return false
}
