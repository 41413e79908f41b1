package bridge

import (
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/types"
)

// externAnnotations maps annotation spellings of library types. Both the
// qualified and the bare (from-imported) spelling are accepted.
var externAnnotations = map[string]string{
	"re.Pattern":                  types.ExtPattern,
	"re.Match":                    types.ExtMatch,
	"Pattern":                     types.ExtPattern,
	"Match":                       types.ExtMatch,
	"typing.Pattern":              types.ExtPattern,
	"typing.Match":                types.ExtMatch,
	"pathlib.Path":                types.ExtPath,
	"Path":                        types.ExtPath,
	"datetime.datetime":           types.ExtDateTime,
	"datetime.date":               types.ExtDate,
	"datetime.time":               types.ExtTime,
	"datetime.timedelta":          types.ExtTimeDelta,
	"datetime":                    types.ExtDateTime,
	"date":                        types.ExtDate,
	"timedelta":                   types.ExtTimeDelta,
	"argparse.ArgumentParser":     types.ExtArgParser,
	"argparse.Namespace":          types.ExtNamespace,
	"ArgumentParser":              types.ExtArgParser,
	"Namespace":                   types.ExtNamespace,
	"subprocess.CompletedProcess": types.ExtCompleted,
	"subprocess.Popen":            types.ExtPopen,
	"CompletedProcess":            types.ExtCompleted,
	"io.TextIOWrapper":            types.ExtFile,
	"typing.TextIO":               types.ExtFile,
	"typing.IO":                   types.ExtFile,
	"TextIO":                      types.ExtFile,
	"IO":                          types.ExtFile,
	"random.Random":               types.ExtRandom,
}

func (l *lowerer) typeOf(e pyast.Expr) *types.Type {
	if e == nil {
		return types.Unknown
	}
	switch v := e.(type) {
	case *pyast.Constant:
		switch v.Value.Kind {
		case pyast.ConstNone:
			return types.None
		case pyast.ConstStr:
			// Forward reference such as "Node".
			return l.namedType(v.Value.Str, e)
		}
	case *pyast.Name:
		return l.namedType(ident(v.ID), e)
	case *pyast.Attribute:
		return l.namedType(dottedName(v), e)
	case *pyast.BinOp:
		if v.Op == pyast.BitOr {
			return types.UnionOf(l.typeOf(v.Left), l.typeOf(v.Right))
		}
	case *pyast.Subscript:
		return l.genericType(v)
	}
	l.badAnnotation(e, "unsupported annotation form")
	return types.Unknown
}

func (l *lowerer) namedType(name string, at pyast.Expr) *types.Type {
	switch name {
	case "int":
		return types.Int
	case "float":
		return types.Float
	case "bool":
		return types.Bool
	case "str":
		return types.Str
	case "bytes", "bytearray":
		return types.Bytes
	case "None", "NoneType":
		return types.None
	case "Any", "typing.Any", "object":
		return types.Dynamic
	case "list", "List", "typing.List", "Sequence", "MutableSequence":
		return types.ListOf(types.Unknown)
	case "dict", "Dict", "typing.Dict", "Mapping", "MutableMapping":
		return types.DictOf(types.Unknown, types.Unknown)
	case "set", "Set", "typing.Set", "frozenset", "FrozenSet":
		return types.SetOf(types.Unknown)
	case "tuple", "Tuple", "typing.Tuple":
		return types.TupleOf()
	case "Iterator", "Generator", "Iterable", "typing.Iterator", "typing.Iterable":
		return types.IteratorOf(types.Unknown)
	case "Callable", "typing.Callable":
		return types.FuncOf(nil, types.Unknown)
	case "json.Value", "JSON":
		return types.Extern(types.ExtJSON)
	}
	if ext, ok := externAnnotations[name]; ok {
		return types.Extern(ext)
	}
	if l.typeVars != nil && l.typeVars.Contains(name) {
		return types.TypeVar(name)
	}
	for _, a := range l.module.TypeAliases {
		if a.Name == name {
			return a.Type
		}
	}
	if l.classes[name] {
		return types.Custom(name)
	}
	if isExceptionName(name) {
		return types.Custom(name)
	}
	l.badAnnotation(at, "unknown type "+name)
	return types.Custom(name)
}

func (l *lowerer) genericType(s *pyast.Subscript) *types.Type {
	base := dottedName(s.Value)
	args := subscriptArgs(s.Slice)
	arg := func(i int) *types.Type {
		if i < len(args) {
			return l.typeOf(args[i])
		}
		return types.Unknown
	}
	switch trimTyping(base) {
	case "list", "List", "Sequence", "MutableSequence", "Iterable", "Collection", "Deque", "deque":
		return types.ListOf(arg(0))
	case "dict", "Dict", "Mapping", "MutableMapping", "DefaultDict", "defaultdict", "OrderedDict":
		return types.DictOf(arg(0), arg(1))
	case "Counter":
		return types.DictOf(arg(0), types.Int)
	case "set", "Set", "frozenset", "FrozenSet", "AbstractSet", "MutableSet":
		return types.SetOf(arg(0))
	case "tuple", "Tuple":
		if len(args) == 2 && isEllipsis(args[1]) {
			return types.ListOf(arg(0))
		}
		elems := make([]*types.Type, 0, len(args))
		for _, a := range args {
			elems = append(elems, l.typeOf(a))
		}
		return types.TupleOf(elems...)
	case "Optional":
		return types.OptionalOf(arg(0))
	case "Union":
		members := make([]*types.Type, 0, len(args))
		for _, a := range args {
			members = append(members, l.typeOf(a))
		}
		return types.UnionOf(members...)
	case "Callable":
		var params []*types.Type
		if len(args) > 0 {
			if lst, ok := args[0].(*pyast.List); ok {
				for _, p := range lst.Elts {
					params = append(params, l.typeOf(p))
				}
			}
		}
		return types.FuncOf(params, arg(1))
	case "Iterator", "Generator", "AsyncIterator", "AsyncGenerator", "Reversible":
		return types.IteratorOf(arg(0))
	case "Type", "type":
		return arg(0)
	case "Final", "ClassVar", "Annotated", "Required", "NotRequired":
		return arg(0)
	case "Literal":
		if len(args) > 0 {
			if c, ok := args[0].(*pyast.Constant); ok {
				return literalType(c.Value.Kind)
			}
		}
		return types.Unknown
	}
	if l.classes[base] {
		targs := make([]*types.Type, 0, len(args))
		for _, a := range args {
			targs = append(targs, l.typeOf(a))
		}
		return types.GenericOf(base, targs...)
	}
	l.badAnnotation(s, "unknown generic "+base)
	return types.Unknown
}

func trimTyping(name string) string {
	for _, prefix := range []string{"typing.", "collections.abc.", "collections."} {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return name[len(prefix):]
		}
	}
	return name
}

func subscriptArgs(e pyast.Expr) []pyast.Expr {
	if t, ok := e.(*pyast.Tuple); ok {
		return t.Elts
	}
	return []pyast.Expr{e}
}

func isEllipsis(e pyast.Expr) bool {
	c, ok := e.(*pyast.Constant)
	return ok && c.Value.Kind == pyast.ConstEllipsis
}

func literalType(k pyast.ConstKind) *types.Type {
	switch k {
	case pyast.ConstInt:
		return types.Int
	case pyast.ConstFloat:
		return types.Float
	case pyast.ConstStr:
		return types.Str
	case pyast.ConstBool:
		return types.Bool
	case pyast.ConstBytes:
		return types.Bytes
	case pyast.ConstNone:
		return types.None
	}
	return types.Unknown
}

func (l *lowerer) badAnnotation(e pyast.Expr, msg string) {
	diag.ReportWarning(l.rep, diag.TypBadAnnotation, l.span(e), msg).Emit()
}

var builtinExceptions = map[string]bool{
	"Exception": true, "BaseException": true, "ValueError": true, "TypeError": true,
	"KeyError": true, "IndexError": true, "RuntimeError": true, "ZeroDivisionError": true,
	"FileNotFoundError": true, "IOError": true, "OSError": true, "AttributeError": true,
	"NotImplementedError": true, "StopIteration": true, "AssertionError": true,
	"LookupError": true, "ArithmeticError": true, "OverflowError": true,
	"PermissionError": true, "TimeoutError": true, "UnicodeDecodeError": true,
	"subprocess.CalledProcessError": true, "CalledProcessError": true,
	"json.JSONDecodeError": true, "JSONDecodeError": true,
}

func isExceptionName(name string) bool { return builtinExceptions[name] }
