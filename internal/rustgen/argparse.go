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

// An ArgumentParser binding lowers to a clap::Command that add_argument
// rebuilds in place; argument groups share their parser's command.

// newParser spells ArgumentParser(...).
func (f *funcEmitter) newParser(c *modCall) string {
	f.e.need("clap")
	prog := quote(f.e.mod.Name)
	if p := c.kwarg("prog"); p != nil {
		prog = f.clapStr(p)
	}
	s := "clap::Command::new(" + prog + ")"
	if d := c.argOr(1, "description"); d != nil {
		s += ".about(" + f.clapStr(d) + ")"
	}
	if ep := c.kwarg("epilog"); ep != nil {
		s += ".after_help(" + f.clapStr(ep) + ")"
	}
	return s
}

// parserRoot spells the command binding an argument registration
// rebuilds.
func (f *funcEmitter) parserRoot(recv *hir.Expr) string {
	if p := f.parsers[hir.RootName(recv)]; p != "" {
		return p
	}
	return f.place(recv)
}

// parserStatement spells parser methods used as statements.
func (f *funcEmitter) parserStatement(e *hir.Expr, d *hir.MethodCallData) (string, bool) {
	root := f.parserRoot(d.Recv)
	switch d.Method {
	case "add_argument":
		a, ok := f.clapArg(e, d)
		if !ok {
			return "", true
		}
		return root + " = " + root + ".arg(" + a + ");", true
	case "set_defaults":
		f.record(trace.DecisionMethodDispatch, "clap::Arg::default_value", "set_defaults folds into argument defaults", e.Span)
		return "", true
	case "add_argument_group", "add_mutually_exclusive_group":
		return "", true
	case "print_help":
		return root + ".print_help().ok();", true
	case "print_usage":
		return "println!(\"{}\", " + root + ".render_usage());", true
	case "error":
		msg := "\"error\""
		if len(d.Args) > 0 {
			msg = f.clapStr(d.Args[0])
		}
		return root + ".error(clap::error::ErrorKind::InvalidValue, " + msg + ").exit();", true
	}
	return "", false
}

// parserMethod spells parser methods that produce values.
func (f *funcEmitter) parserMethod(d *hir.MethodCallData) (string, bool) {
	root := f.parserRoot(d.Recv)
	switch d.Method {
	case "parse_args", "parse_known_args":
		if a := d.Kwarg("args"); a != nil || len(d.Args) > 0 {
			if a == nil {
				a = d.Args[0]
			}
			if !hir.IsNoneLit(a) {
				return root + ".clone().get_matches_from(std::iter::once(" + quote(f.e.mod.Name) + ".to_string()).chain(" + f.iterSource(a) + "))", true
			}
		}
		return root + ".clone().get_matches()", true
	case "format_help":
		return root + ".render_help().to_string()", true
	case "format_usage":
		return root + ".render_usage().to_string()", true
	case "add_argument":
		a, ok := f.clapArg(nil, d)
		if !ok {
			return "()", true
		}
		return "(" + root + " = " + root + ".clone().arg(" + a + "))", true
	}
	return "", false
}

// argFlags returns the literal option strings of add_argument.
func argFlags(d *hir.MethodCallData) []string {
	var flags []string
	for _, a := range d.Args {
		if lit, ok := a.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			flags = append(flags, lit.Text)
		}
	}
	return flags
}

func kwElems(e *hir.Expr) (*hir.ElemsData, bool) {
	if e == nil {
		return nil, false
	}
	d, ok := e.Data.(*hir.ElemsData)
	return d, ok
}

// clapStr spells a builder string: literals stay static.
func (f *funcEmitter) clapStr(e *hir.Expr) string {
	if s, ok := e.Data.(*hir.LiteralData); ok && s.Kind == hir.LiteralStr {
		return quote(s.Text)
	}
	return f.coerce(e, types.Str)
}

func kwText(e *hir.Expr) string {
	if e == nil {
		return ""
	}
	if lit, ok := e.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
		return lit.Text
	}
	return ""
}

// clapArg builds the clap::Arg for one add_argument call.
func (f *funcEmitter) clapArg(e *hir.Expr, d *hir.MethodCallData) (string, bool) {
	flags := argFlags(d)
	if len(flags) == 0 {
		sp := d.Recv.Span
		if e != nil {
			sp = e.Span
		}
		f.report(diag.MthUnknownMethod, sp, "add_argument without literal option strings")
		return "", false
	}
	dest := infer.ArgDest(flags, kwText(d.Kwarg("dest")))
	positional := !strings.HasPrefix(flags[0], "-")
	var b strings.Builder
	b.WriteString("clap::Arg::new(" + quote(dest) + ")")
	if !positional {
		for _, fl := range flags {
			switch {
			case strings.HasPrefix(fl, "--"):
				b.WriteString(".long(" + quote(fl[2:]) + ")")
			case len(fl) == 2:
				b.WriteString(".short('" + fl[1:] + "')")
			default:
				b.WriteString(".long(" + quote(strings.TrimLeft(fl, "-")) + ")")
			}
		}
	}
	if h := d.Kwarg("help"); h != nil {
		b.WriteString(".help(" + f.clapStr(h) + ")")
	}
	if mv := d.Kwarg("metavar"); mv != nil {
		b.WriteString(".value_name(" + f.clapStr(mv) + ")")
	}
	action := kwText(d.Kwarg("action"))
	switch action {
	case "store_true":
		b.WriteString(".action(clap::ArgAction::SetTrue)")
	case "store_false":
		b.WriteString(".action(clap::ArgAction::SetFalse)")
	case "count":
		b.WriteString(".action(clap::ArgAction::Count)")
	case "append", "extend":
		b.WriteString(".action(clap::ArgAction::Append)")
	case "", "store":
	default:
		f.report(diag.MthUnknownMethod, d.Recv.Span, "argparse action %q is not supported", action)
	}
	switch hir.NameOf(d.Kwarg("type")) {
	case "int":
		b.WriteString(".value_parser(clap::value_parser!(" + f.e.opts.IntType + "))")
	case "float":
		b.WriteString(".value_parser(clap::value_parser!(f64))")
	case "", "str":
		if ch, ok := kwElems(d.Kwarg("choices")); ok {
			parts := make([]string, 0, len(ch.Elems))
			for _, el := range ch.Elems {
				if s := kwText(el); s != "" {
					parts = append(parts, quote(s))
				}
			}
			if len(parts) == len(ch.Elems) {
				b.WriteString(".value_parser([" + strings.Join(parts, ", ") + "])")
			}
		}
	default:
		f.record(trace.DecisionTypeMapping, "String", "custom argparse type converters are read as strings", d.Kwarg("type").Span)
	}
	nargs := d.Kwarg("nargs")
	optional := false
	switch kwText(nargs) {
	case "+":
		b.WriteString(".num_args(1..)")
	case "*":
		b.WriteString(".num_args(0..)")
		optional = true
	case "?":
		b.WriteString(".num_args(0..=1)")
		optional = true
	default:
		if n, ok := intLit(nargs); ok && nargs != nil {
			b.WriteString(".num_args(" + strconv.FormatInt(n, 10) + ")")
		}
	}
	if action == "extend" && nargs == nil {
		b.WriteString(".num_args(1..)")
	}
	def := d.Kwarg("default")
	if def != nil && !hir.IsNoneLit(def) && action != "store_true" && action != "store_false" && action != "count" {
		b.WriteString(".default_value(" + f.defaultText(def) + ")")
		optional = true
	}
	required, _ := boolLit(d.Kwarg("required"))
	if required || positional && !optional {
		b.WriteString(".required(true)")
	}
	return b.String(), true
}

// defaultText renders a default as the string clap parses back.
func (f *funcEmitter) defaultText(e *hir.Expr) string {
	if lit, ok := e.Data.(*hir.LiteralData); ok {
		switch lit.Kind {
		case hir.LiteralStr:
			return quote(lit.Text)
		case hir.LiteralInt:
			return quote(strconv.FormatInt(lit.Int, 10))
		case hir.LiteralFloat:
			return quote(strconv.FormatFloat(lit.Float, 'g', -1, 64))
		}
	}
	return f.toStr(e)
}

// namespaceAttr reads a parsed argument of type t back out of the
// matches.
func (f *funcEmitter) namespaceAttr(base, name string, t *types.Type) string {
	id := quote(name)
	if f.e.argActions[name] == "count" {
		return "(" + base + ".get_count(" + id + ") as " + f.e.opts.IntType + ")"
	}
	elem := t
	if t.Kind == types.KindList || t.Kind == types.KindOptional {
		elem = t.Elem
	}
	if t.Kind == types.KindBool {
		return base + ".get_flag(" + id + ")"
	}
	vt := "String"
	switch elem.Kind {
	case types.KindInt:
		vt = f.e.opts.IntType
	case types.KindFloat:
		vt = "f64"
	}
	switch t.Kind {
	case types.KindList:
		return base + ".get_many::<" + vt + ">(" + id + ").map(|v| v.cloned().collect::<Vec<" + vt + ">>()).unwrap_or_default()"
	case types.KindOptional:
		return base + ".get_one::<" + vt + ">(" + id + ").cloned()"
	}
	return base + ".get_one::<" + vt + ">(" + id + ").cloned().unwrap_or_default()"
}

// collectArgActions records the action of every registered argument so
// counted flags read back as counts.
func (e *Emitter) collectArgActions() {
	for _, fn := range e.mod.AllFuncs() {
		hir.Inspect(fn.Body, hir.Visitor{Expr: func(x *hir.Expr) bool {
			d, ok := x.Data.(*hir.MethodCallData)
			if !ok || d.Method != "add_argument" || !d.Recv.Type.IsExtern(types.ExtArgParser) {
				return true
			}
			if flags := argFlags(d); len(flags) > 0 {
				if a := kwText(d.Kwarg("action")); a != "" {
					e.argActions[infer.ArgDest(flags, kwText(d.Kwarg("dest")))] = a
				}
			}
			return true
		}})
	}
}
