// Package directive reads `# @depyler: key = value` comments that attach
// translation hints to the def or class right below them.
package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/paiml/depyler-sub011/internal/hir"
)

// Directive is one annotation comment.
type Directive struct {
	Key    string
	Value  string
	Target string // qualified name of the annotated def or class
	Line   int
}

// Problem is a malformed or misplaced directive.
type Problem struct {
	Line int
	Msg  string
}

func (p *Problem) Error() string { return fmt.Sprintf("line %d: %s", p.Line, p.Msg) }

var directiveRe = regexp.MustCompile(`^#\s*@depyler:\s*(\w+)\s*=\s*(.+?)\s*$`)

type frame struct {
	indent int
	class  string // "" for defs
}

// Scan finds every directive in src and resolves its target by tracking
// indentation of enclosing classes.
func Scan(src []byte) ([]Directive, []error) {
	var (
		out      []Directive
		problems []error
		pending  []Directive
		stack    []frame
	)
	flush := func(target string) {
		for _, d := range pending {
			if target == "" {
				problems = append(problems, &Problem{Line: d.Line, Msg: fmt.Sprintf("%s does not precede a def or class", d.Key)})
				continue
			}
			d.Target = target
			out = append(out, d)
		}
		pending = pending[:0]
	}
	for i, line := range strings.Split(string(src), "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		trimmed = strings.TrimRight(trimmed, "\r")
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			if !strings.Contains(trimmed, "@depyler:") {
				continue
			}
			m := directiveRe.FindStringSubmatch(trimmed)
			if m == nil {
				problems = append(problems, &Problem{Line: i + 1, Msg: "expected `# @depyler: key = value`"})
				continue
			}
			pending = append(pending, Directive{Key: m[1], Value: unquote(m[2]), Line: i + 1})
			continue
		}
		if strings.HasPrefix(trimmed, "@") {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		kind, name := header(trimmed)
		if kind == "" {
			flush("")
			continue
		}
		qual := name
		if kind == "def" && len(stack) > 0 && stack[len(stack)-1].class != "" {
			qual = stack[len(stack)-1].class + "." + name
		}
		flush(qual)
		f := frame{indent: indent}
		if kind == "class" {
			f.class = name
		}
		stack = append(stack, f)
	}
	flush("")
	return out, problems
}

// header recognizes def, async def and class lines.
func header(line string) (kind, name string) {
	rest, ok := strings.CutPrefix(line, "async ")
	if ok {
		line = strings.TrimLeft(rest, " \t")
	}
	switch {
	case strings.HasPrefix(line, "def "):
		kind, line = "def", line[4:]
	case strings.HasPrefix(line, "class ") && !ok:
		kind, line = "class", line[6:]
	default:
		return "", ""
	}
	line = strings.TrimLeft(line, " \t")
	end := strings.IndexAny(line, "(:[ \t")
	if end <= 0 {
		return "", ""
	}
	return kind, line[:end]
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// Apply sets one hint on a. Keys follow the directive spelling; the
// config file uses the same keys.
func Apply(a *hir.Annotations, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "optimization", "optimization_level":
		switch strings.ToLower(value) {
		case "speed", "aggressive":
			a.Optimization = "speed"
		case "size", "conservative":
			a.Optimization = "size"
		case "", "standard", "none":
			a.Optimization = ""
		default:
			return fmt.Errorf("%s: unknown level %q (expected speed|size|standard)", key, value)
		}
	case "ownership":
		switch strings.ToLower(value) {
		case "owned":
			a.Ownership = "owned"
		case "borrowed", "shared":
			a.Ownership = "borrowed"
		case "":
			a.Ownership = ""
		default:
			return fmt.Errorf("ownership: unknown model %q (expected owned|borrowed)", value)
		}
	case "safety_mode":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("safety_mode: %w", err)
		}
		a.SafetyMode = b
	case "safety_level":
		switch strings.ToLower(value) {
		case "safe":
			a.SafetyMode = true
		case "unsafe_allowed", "standard":
			a.SafetyMode = false
		default:
			return fmt.Errorf("safety_level: unknown level %q (expected safe|unsafe_allowed)", value)
		}
	case "clone":
		a.Clone = append(a.Clone, splitList(value)...)
	case "borrow":
		a.Borrow = append(a.Borrow, splitList(value)...)
	default:
		return fmt.Errorf("unknown annotation key %q", key)
	}
	return nil
}

func splitList(v string) []string {
	v = strings.Trim(v, "[]")
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = unquote(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
