package infer

import (
	"sort"
	"strings"

	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

// argParser collects the arguments registered on one ArgumentParser
// (or argument group) binding.
type argParser struct {
	fields map[string]*types.Type // dest -> Namespace attribute type
}

func (in *inferer) argparseCall(d *hir.MethodCallData) *types.Type {
	in.typeArgs(d.Args, d.Kwargs, nil)
	switch d.Method {
	case "add_argument":
		name := hir.RootName(d.Recv)
		p := in.parsers[name]
		if p == nil {
			p = &argParser{fields: map[string]*types.Type{}}
			in.parsers[name] = p
		}
		if dest, t := argumentField(d); dest != "" {
			p.fields[dest] = t
		}
		return types.None
	case "parse_args", "parse_known_args":
		return types.Extern(types.ExtNamespace)
	case "add_argument_group", "add_mutually_exclusive_group":
		return types.Extern(types.ExtArgParser)
	case "print_help", "print_usage", "error", "set_defaults":
		return types.None
	case "format_help", "format_usage":
		return types.Str
	}
	return types.Dynamic
}

// namespaceField types args.<name> from the registered arguments.
func (in *inferer) namespaceField(name string) *types.Type {
	keys := make([]string, 0, len(in.parsers))
	for k := range in.parsers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t, ok := in.parsers[k].fields[name]; ok {
			return t
		}
	}
	return types.Dynamic
}

// argumentField derives the destination and attribute type of one
// add_argument call.
func argumentField(d *hir.MethodCallData) (string, *types.Type) {
	var flags []string
	for _, a := range d.Args {
		if lit, ok := a.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			flags = append(flags, lit.Text)
		}
	}
	if len(flags) == 0 {
		return "", nil
	}
	dest := ArgDest(flags, kwargString(d.Kwarg("dest")))
	positional := !strings.HasPrefix(flags[0], "-")

	elem := types.Str
	if tk := d.Kwarg("type"); tk != nil {
		switch hir.NameOf(tk) {
		case "int":
			elem = types.Int
		case "float":
			elem = types.Float
		case "str":
			elem = types.Str
		default:
			elem = types.Dynamic
		}
	}
	switch kwargString(d.Kwarg("action")) {
	case "store_true", "store_false":
		return dest, types.Bool
	case "count":
		return dest, types.Int
	case "append", "extend":
		return dest, types.ListOf(elem)
	}
	switch kwargString(d.Kwarg("nargs")) {
	case "+", "*":
		return dest, types.ListOf(elem)
	case "?":
		if d.Kwarg("default") == nil {
			return dest, types.OptionalOf(elem)
		}
		return dest, elem
	}
	if n := d.Kwarg("nargs"); n != nil {
		if lit, ok := n.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralInt {
			return dest, types.ListOf(elem)
		}
	}
	if positional || d.Kwarg("default") != nil || kwargBool(d.Kwarg("required")) {
		return dest, elem
	}
	return dest, types.OptionalOf(elem)
}

// ArgDest mirrors argparse's destination rule: the explicit dest, else
// the first long option, else the first name, with dashes stripped and
// inner hyphens turned into underscores.
func ArgDest(flags []string, dest string) string {
	if dest != "" {
		return dest
	}
	pick := flags[0]
	for _, f := range flags {
		if strings.HasPrefix(f, "--") {
			pick = f
			break
		}
	}
	return strings.ReplaceAll(strings.TrimLeft(pick, "-"), "-", "_")
}

func kwargString(e *hir.Expr) string {
	if e == nil {
		return ""
	}
	if lit, ok := e.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
		return lit.Text
	}
	return ""
}

func kwargBool(e *hir.Expr) bool {
	if e == nil {
		return false
	}
	lit, ok := e.Data.(*hir.LiteralData)
	return ok && lit.Kind == hir.LiteralBool && lit.Bool
}
