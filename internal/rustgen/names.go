package rustgen

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/paiml/depyler-sub011/internal/types"
)

var rustKeywords = map[string]bool{
	"as": true, "async": true, "await": true, "break": true, "const": true, "continue": true,
	"crate": true, "dyn": true, "else": true, "enum": true, "extern": true, "false": true,
	"fn": true, "for": true, "if": true, "impl": true, "in": true, "let": true, "loop": true,
	"match": true, "mod": true, "move": true, "mut": true, "pub": true, "ref": true,
	"return": true, "self": true, "Self": true, "static": true, "struct": true, "super": true,
	"trait": true, "true": true, "type": true, "unsafe": true, "use": true, "where": true,
	"while": true, "abstract": true, "become": true, "box": true, "do": true, "final": true,
	"macro": true, "override": true, "priv": true, "typeof": true, "unsized": true,
	"virtual": true, "yield": true, "try": true, "gen": true,
}

// stdNames are type and prelude names a user class must not shadow.
var stdNames = map[string]bool{
	"String": true, "Vec": true, "Option": true, "Result": true, "Box": true, "Some": true,
	"None": true, "Ok": true, "Err": true, "HashMap": true, "HashSet": true, "BTreeMap": true,
	"Iterator": true, "Default": true, "Clone": true, "Copy": true, "Debug": true,
	"Display": true, "Error": true, "Path": true, "PathBuf": true, "File": true,
	"Duration": true, "Instant": true, "Rc": true, "Arc": true, "Cell": true, "RefCell": true,
	"Mutex": true, "Ordering": true, "Send": true, "Sync": true, "Sized": true, "Fn": true,
	"FnMut": true, "FnOnce": true, "Drop": true, "From": true, "Into": true, "ToString": true,
	"Hash": true, "Eq": true, "PartialEq": true, "Ord": true, "PartialOrd": true,
	DynName: true,
}

// DynName is the runtime enum for values of unresolved type.
const DynName = types.DynName

// SafeIdent makes a source identifier usable as a Rust binding: keywords
// get a trailing underscore.
func SafeIdent(name string) string {
	if rustKeywords[name] {
		return name + "_"
	}
	return name
}

// ClassName returns the Rust name for a user class, prefixing names that
// would shadow standard library types.
func ClassName(name string) string {
	if stdNames[name] {
		return "Py" + name
	}
	if rustKeywords[name] {
		return name + "_"
	}
	return name
}

// quote renders s as a Rust string literal.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	escapeInto(&b, s)
	b.WriteByte('"')
	return b.String()
}

// formatLit renders literal f-string text for a format! template, which
// also needs braces doubled.
func formatLit(s string) string {
	var b strings.Builder
	escapeInto(&b, strings.NewReplacer("{", "{{", "}", "}}").Replace(s))
	return b.String()
}

func escapeInto(b *strings.Builder, s string) {
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r == utf8.RuneError && size == 1 || r < 0x20 || r == 0x7f {
				fmt.Fprintf(b, `\u{%x}`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
}

// byteString renders bytes as a Rust byte string literal.
func byteString(bs []byte) string {
	var b strings.Builder
	b.WriteString(`b"`)
	for _, c := range bs {
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// atom parenthesizes s unless it is already a primary expression, so it
// can be used as a method receiver or operand.
func atom(s string) string {
	if s == "" {
		return "()"
	}
	switch s[0] {
	case '-', '!', '&', '*', '|':
		return "(" + s + ")"
	}
	if strings.HasPrefix(s, "move ") || topLevelSpace(s) {
		return "(" + s + ")"
	}
	return s
}

// topLevelSpace reports a space outside brackets and string literals.
func topLevelSpace(s string) bool {
	depth := 0
	inStr := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ' ':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func label(name string) string {
	return "'" + name
}
