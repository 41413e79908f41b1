package infer

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

// builtinParamHints gives callback parameters of map/filter/sorted-like
// builtins the element type of the iterable they run over.
func builtinParamHints(name string, args []*hir.Expr) []*hir.Param {
	switch name {
	case "map", "filter":
		if len(args) < 2 || args[1].Type == nil {
			return nil
		}
		elem := iterElem(args[1].Type)
		return []*hir.Param{{Name: "f", Type: types.FuncOf([]*types.Type{elem}, types.Unknown), Declared: true}}
	}
	return nil
}

// builtinResult types a call to a builtin function. fallible marks calls
// whose target spelling returns a fallible envelope (parsing, I/O).
func builtinResult(name string, args []*types.Type, d *hir.CallData) (t *types.Type, fallible, ok bool) {
	arg := func(i int) *types.Type {
		if i < len(args) {
			return args[i]
		}
		return types.Unknown
	}
	switch name {
	case "print", "exit", "quit", "drop":
		return types.None, false, true
	case "len", "hash", "id", "ord":
		return types.Int, false, true
	case "range":
		return types.IteratorOf(types.Int), false, true
	case "abs":
		return arg(0), false, true
	case "min", "max":
		if len(args) == 1 {
			return iterElem(arg(0)), false, true
		}
		return joinAll(args), false, true
	case "sum":
		if len(args) == 0 {
			return types.Int, false, true
		}
		if el := iterElem(arg(0)); el.IsKnown() {
			return el, false, true
		}
		return types.Int, false, true
	case "round":
		if len(args) >= 2 {
			return types.Float, false, true
		}
		return types.Int, false, true
	case "int":
		return types.Int, arg(0).Kind == types.KindStr, true
	case "float":
		return types.Float, arg(0).Kind == types.KindStr, true
	case "str", "repr", "chr", "hex", "bin", "oct", "format", "ascii":
		return types.Str, false, true
	case "bool", "isinstance", "issubclass", "callable", "any", "all":
		return types.Bool, false, true
	case "list":
		if len(args) == 0 {
			return types.ListOf(types.Unknown), false, true
		}
		return types.ListOf(iterElem(arg(0))), false, true
	case "tuple":
		if len(args) == 0 {
			return types.TupleOf(), false, true
		}
		return types.ListOf(iterElem(arg(0))), false, true
	case "set", "frozenset":
		if len(args) == 0 {
			return types.SetOf(types.Unknown), false, true
		}
		return types.SetOf(iterElem(arg(0))), false, true
	case "dict":
		if len(args) == 0 {
			return dictFromKwargs(d), false, true
		}
		if a := arg(0); a.Kind == types.KindDict {
			return a, false, true
		}
		if el := iterElem(arg(0)); el.Kind == types.KindTuple && len(el.Elems) == 2 {
			return types.DictOf(el.Elems[0], el.Elems[1]), false, true
		}
		return types.DictOf(types.Unknown, types.Unknown), false, true
	case "bytes", "bytearray":
		return types.Bytes, false, true
	case "sorted":
		return types.ListOf(iterElem(arg(0))), false, true
	case "reversed", "iter":
		return types.IteratorOf(iterElem(arg(0))), false, true
	case "enumerate":
		return types.IteratorOf(types.TupleOf(types.Int, iterElem(arg(0)))), false, true
	case "zip":
		elems := make([]*types.Type, len(args))
		for i, a := range args {
			elems[i] = iterElem(a)
		}
		return types.IteratorOf(types.TupleOf(elems...)), false, true
	case "map":
		if f := arg(0); f.Kind == types.KindFunc {
			return types.IteratorOf(f.Result), false, true
		}
		return types.IteratorOf(types.Unknown), false, true
	case "filter":
		return types.IteratorOf(iterElem(arg(1))), false, true
	case "next":
		el := iterElem(arg(0))
		if len(args) > 1 {
			return types.Join(el, arg(1)), false, true
		}
		return el, false, true
	case "divmod":
		t := arg(0)
		if t.Kind != types.KindFloat {
			t = types.Int
		}
		return types.TupleOf(t, t), false, true
	case "pow":
		if arg(0).Kind == types.KindFloat || arg(1).Kind == types.KindFloat {
			return types.Float, false, true
		}
		return types.Int, false, true
	case "open":
		return types.Extern(types.ExtFile), true, true
	case "input":
		return types.Str, true, true
	case "super":
		return types.Unknown, false, true
	}
	return nil, false, false
}

func dictFromKwargs(d *hir.CallData) *types.Type {
	if d == nil || len(d.Kwargs) == 0 {
		return types.DictOf(types.Unknown, types.Unknown)
	}
	var vt *types.Type
	for _, kw := range d.Kwargs {
		vt = types.Join(vt, kw.Value.Type)
	}
	return types.DictOf(types.Str, vt)
}
