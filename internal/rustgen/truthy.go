package rustgen

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

// cond spells e in a boolean context.
func (f *funcEmitter) cond(e *hir.Expr) string {
	if e.Type.Kind == types.KindBool {
		return f.expr(e)
	}
	switch d := e.Data.(type) {
	case *hir.UnaryData:
		if d.Op == hir.OpNot {
			return "!" + atom(f.cond(d.Operand))
		}
	case *hir.BinaryData:
		// only the truth of and/or is needed here, so each side is
		// tested on its own type
		if d.Op == hir.OpAnd {
			return f.logicSide(d.Left, d.Op) + " && " + f.logicSide(d.Right, d.Op)
		}
		if d.Op == hir.OpOr {
			return f.logicSide(d.Left, d.Op) + " || " + f.logicSide(d.Right, d.Op)
		}
	}
	return f.truthy(f.operand(e))
}

// truthy applies Python truthiness to a spelled value.
func (f *funcEmitter) truthy(o operand) string {
	t := o.t
	s := atom(o.text)
	switch {
	case t == nil:
	case t.Kind == types.KindBool:
		return o.text
	case t.Kind == types.KindInt:
		return paren(o.text) + " != 0"
	case t.Kind == types.KindFloat:
		return paren(o.text) + " != 0.0"
	case t.Kind == types.KindOptional:
		return s + ".is_some()"
	case t.Kind == types.KindNone:
		return "false"
	case t.IsContainer() && t.Kind != types.KindTuple:
		return "!" + s + ".is_empty()"
	case t.Kind == types.KindTuple:
		if len(t.Elems) == 0 {
			return "false"
		}
		return "true"
	case t.IsExtern(types.ExtJSON):
		return "!(" + s + ".is_null() || " + s + ".as_bool() == Some(false))"
	case t.Kind == types.KindCustom:
		if c := f.e.classOf(t); c != nil {
			if m := f.e.findMethod(c, "__bool__"); m != nil {
				return s + "." + methodName(m) + "()"
			}
			if m := f.e.findMethod(c, "__len__"); m != nil {
				return s + "." + methodName(m) + "() != 0"
			}
		}
		return "true"
	case t.Kind == types.KindExtern || t.Kind == types.KindFunc || t.Kind == types.KindIterator:
		return "true"
	}
	f.e.dyn = true
	return s + ".is_truthy()"
}
