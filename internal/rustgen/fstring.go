package rustgen

import (
	"strings"

	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

// fstring spells an f-string as format!.
func (f *funcEmitter) fstring(d *hir.FStringData) string {
	var b strings.Builder
	var args []string
	for _, p := range d.Parts {
		if p.Expr == nil {
			b.WriteString(formatLit(p.Lit))
			continue
		}
		arg, placeholder := f.formatArg(p.Expr, p.Conv, p.Spec)
		b.WriteString(placeholder)
		args = append(args, arg)
	}
	if len(args) == 0 {
		return quote(literalText(d)) + ".to_string()"
	}
	return "format!(\"" + b.String() + "\", " + strings.Join(args, ", ") + ")"
}

func literalText(d *hir.FStringData) string {
	var b strings.Builder
	for _, p := range d.Parts {
		b.WriteString(p.Lit)
	}
	return b.String()
}

// formatArg spells one interpolated value and its placeholder.
func (f *funcEmitter) formatArg(e *hir.Expr, conv rune, spec string) (string, string) {
	arg := f.expr(e)
	t := e.Type
	rs, percent := translateSpec(spec)
	if percent {
		arg = toFloat(operand{text: arg, t: t, e: e}) + " * 100.0"
		t = types.Float
	}
	debug := conv == 'r' || conv == 'a'
	switch {
	case debug:
	case t.IsExtern(types.ExtPath):
		arg = atom(arg) + ".display()"
	case t.Kind == types.KindOptional:
		if t.Elem.HasDisplay() {
			arg = atom(arg) + ".as_ref().map(|v| v.to_string()).unwrap_or_else(|| \"None\".to_string())"
		} else {
			debug = true
		}
	case t.IsDynamic():
		f.e.dyn = true
	case t.Kind == types.KindCustom && f.displays(t):
	case !t.HasDisplay():
		debug = true
	}
	ph := "{"
	if rs != "" || debug {
		ph += ":" + rs
		if debug && !strings.ContainsAny(rs, "xXobeE") {
			ph += "?"
		}
	}
	ph += "}"
	if percent {
		ph += "%"
	}
	return arg, ph
}

// displays reports a custom type that implements Display.
func (f *funcEmitter) displays(t *types.Type) bool {
	if f.e.isException(t.Name) {
		return true
	}
	c := f.e.classOf(t)
	return c != nil && (f.e.findMethod(c, "__str__") != nil || f.e.findMethod(c, "__repr__") != nil)
}

// translateSpec maps a Python format spec onto Rust's. percent is set
// for the `%` presentation, which scales the value.
func translateSpec(spec string) (out string, percent bool) {
	if spec == "" {
		return "", false
	}
	var fill, align string
	s := spec
	if len(s) >= 2 && strings.ContainsRune("<>^=", rune(s[1])) {
		fill, align, s = s[:1], s[1:2], s[2:]
	} else if len(s) >= 1 && strings.ContainsRune("<>^=", rune(s[0])) {
		align, s = s[:1], s[1:]
	}
	if align == "=" {
		align = ""
	}
	var sign string
	if s != "" && (s[0] == '+' || s[0] == '-' || s[0] == ' ') {
		if s[0] == '+' {
			sign = "+"
		}
		s = s[1:]
	}
	alt := ""
	if strings.HasPrefix(s, "#") {
		alt, s = "#", s[1:]
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	width := s[:i]
	s = s[i:]
	s = strings.TrimLeft(s, ",_")
	var prec string
	if strings.HasPrefix(s, ".") {
		j := 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		prec, s = s[:j], s[j:]
	}
	var kind string
	switch s {
	case "x", "X", "o", "b", "e", "E":
		kind = s
	case "%":
		percent = true
	}
	if fill != "" && align == "" {
		fill = ""
	}
	return fill + align + sign + alt + width + prec + kind, percent
}
