package types

// Join merges two observations of the same binding. Unknown yields to
// the other side, int widens to float, None makes the result optional,
// containers and callables of the same shape join element-wise; anything else widens
// to a union (which lowers to the dynamic placeholder).
func Join(a, b *Type) *Type {
	switch {
	case a == nil || a.Kind == KindUnknown:
		return orUnknown(b)
	case b == nil || b.Kind == KindUnknown:
		return a
	case a.Equal(b):
		return a
	case a.Kind == KindDynamic || b.Kind == KindDynamic:
		return Dynamic
	case a.Kind == KindNone:
		return OptionalOf(b)
	case b.Kind == KindNone:
		return OptionalOf(a)
	case a.Kind == KindOptional && b.Kind == KindOptional:
		return OptionalOf(Join(a.Elem, b.Elem))
	case a.Kind == KindOptional:
		return OptionalOf(Join(a.Elem, b))
	case b.Kind == KindOptional:
		return OptionalOf(Join(a, b.Elem))
	case a.IsNumeric() && b.IsNumeric():
		return Float
	}
	if a.Kind == b.Kind {
		switch a.Kind {
		case KindList:
			return ListOf(Join(a.Elem, b.Elem))
		case KindSet:
			return SetOf(Join(a.Elem, b.Elem))
		case KindIterator:
			return IteratorOf(Join(a.Elem, b.Elem))
		case KindDict:
			return DictOf(Join(a.Key, b.Key), Join(a.Value, b.Value))
		case KindTuple:
			if len(a.Elems) == len(b.Elems) {
				elems := make([]*Type, len(a.Elems))
				for i := range a.Elems {
					elems[i] = Join(a.Elems[i], b.Elems[i])
				}
				return TupleOf(elems...)
			}
		case KindFunc:
			if len(a.Elems) == len(b.Elems) {
				params := make([]*Type, len(a.Elems))
				for i := range a.Elems {
					params[i] = Join(a.Elems[i], b.Elems[i])
				}
				return FuncOf(params, Join(a.Result, b.Result))
			}
		}
	}
	return UnionOf(a, b)
}

// Widened reports whether joining b into a changed the type in a way
// that loses precision, i.e. produced a union or dynamic placeholder.
func Widened(before, after *Type) bool {
	if before == nil || before.Kind == KindUnknown {
		return false
	}
	return !before.Equal(after) && after.IsDynamic()
}

// Assignable reports whether a value of type from can flow where to is
// expected without conversion code.
func Assignable(from, to *Type) bool {
	switch {
	case to == nil || from == nil:
		return true
	case to.IsDynamic() || from.Kind == KindUnknown:
		return true
	case to.Kind == KindOptional && from.Kind == KindNone:
		return true
	case to.Kind == KindOptional && from.Kind != KindOptional:
		return Assignable(from, to.Elem)
	case to.Kind == KindTypeVar || from.Kind == KindTypeVar:
		return true
	}
	if from.Kind != to.Kind {
		return false
	}
	switch from.Kind {
	case KindList, KindSet, KindOptional, KindIterator, KindArray:
		return Assignable(from.Elem, to.Elem)
	case KindDict:
		return Assignable(from.Key, to.Key) && Assignable(from.Value, to.Value)
	}
	return from.Equal(to) || len(from.Elems) == len(to.Elems)
}
