package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInt
	KindFloat
	KindBool
	KindStr
	KindBytes
	KindNone
	KindList
	KindSet
	KindDict
	KindTuple
	KindOptional
	KindArray
	KindFunc
	KindCustom
	KindTypeVar
	KindGeneric
	KindUnion
	KindIterator
	KindExtern
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindNone:
		return "none"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindDict:
		return "dict"
	case KindTuple:
		return "tuple"
	case KindOptional:
		return "optional"
	case KindArray:
		return "array"
	case KindFunc:
		return "func"
	case KindCustom:
		return "custom"
	case KindTypeVar:
		return "typevar"
	case KindGeneric:
		return "generic"
	case KindUnion:
		return "union"
	case KindIterator:
		return "iterator"
	case KindExtern:
		return "extern"
	case KindDynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a semantic type. Values are treated as immutable once built;
// passes share them freely.
type Type struct {
	Kind   Kind
	Elem   *Type   // list, set, optional, array, iterator
	Key    *Type   // dict
	Value  *Type   // dict
	Elems  []*Type // tuple elements, union members, generic args, func params
	Result *Type   // func
	Name   string  // custom, typevar, generic base, extern
	Size   int     // array
}

// Shared primitive instances.
var (
	Unknown = &Type{Kind: KindUnknown}
	Int     = &Type{Kind: KindInt}
	Float   = &Type{Kind: KindFloat}
	Bool    = &Type{Kind: KindBool}
	Str     = &Type{Kind: KindStr}
	Bytes   = &Type{Kind: KindBytes}
	None    = &Type{Kind: KindNone}
	Dynamic = &Type{Kind: KindDynamic}
)

func ListOf(elem *Type) *Type { return &Type{Kind: KindList, Elem: orUnknown(elem)} }

func SetOf(elem *Type) *Type { return &Type{Kind: KindSet, Elem: orUnknown(elem)} }

func DictOf(key, value *Type) *Type {
	return &Type{Kind: KindDict, Key: orUnknown(key), Value: orUnknown(value)}
}

func TupleOf(elems ...*Type) *Type { return &Type{Kind: KindTuple, Elems: elems} }

func IteratorOf(elem *Type) *Type { return &Type{Kind: KindIterator, Elem: orUnknown(elem)} }

func ArrayOf(elem *Type, size int) *Type {
	return &Type{Kind: KindArray, Elem: orUnknown(elem), Size: size}
}

func FuncOf(params []*Type, result *Type) *Type {
	return &Type{Kind: KindFunc, Elems: params, Result: orUnknown(result)}
}

func Custom(name string) *Type { return &Type{Kind: KindCustom, Name: name} }

func TypeVar(name string) *Type { return &Type{Kind: KindTypeVar, Name: name} }

func GenericOf(base string, args ...*Type) *Type {
	return &Type{Kind: KindGeneric, Name: base, Elems: args}
}

func Extern(name string) *Type { return &Type{Kind: KindExtern, Name: name} }

// OptionalOf wraps elem; optionals never nest and Optional[None] is None.
func OptionalOf(elem *Type) *Type {
	elem = orUnknown(elem)
	switch elem.Kind {
	case KindOptional, KindNone:
		return elem
	}
	return &Type{Kind: KindOptional, Elem: elem}
}

// UnionOf flattens, drops duplicates and simplifies: a single member is
// returned as is, and T | None becomes Optional[T].
func UnionOf(members ...*Type) *Type {
	var flat []*Type
	hasNone := false
	var add func(t *Type)
	add = func(t *Type) {
		switch {
		case t == nil:
			return
		case t.Kind == KindUnion:
			for _, m := range t.Elems {
				add(m)
			}
			return
		case t.Kind == KindNone:
			hasNone = true
			return
		case t.Kind == KindOptional:
			hasNone = true
			add(t.Elem)
			return
		}
		for _, f := range flat {
			if f.Equal(t) {
				return
			}
		}
		flat = append(flat, t)
	}
	for _, m := range members {
		add(m)
	}
	var out *Type
	switch len(flat) {
	case 0:
		if hasNone {
			return None
		}
		return Unknown
	case 1:
		out = flat[0]
	default:
		out = &Type{Kind: KindUnion, Elems: flat}
	}
	if hasNone {
		return OptionalOf(out)
	}
	return out
}

func orUnknown(t *Type) *Type {
	if t == nil {
		return Unknown
	}
	return t
}

// Equal reports structural equality.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if t.Kind != o.Kind || t.Name != o.Name || t.Size != o.Size || len(t.Elems) != len(o.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return eqOpt(t.Elem, o.Elem) && eqOpt(t.Key, o.Key) && eqOpt(t.Value, o.Value) && eqOpt(t.Result, o.Result)
}

func eqOpt(a, b *Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// IsCopy reports copy semantics in the target: numerics, bools, unit and
// tuples/optionals/arrays built only from those.
func (t *Type) IsCopy() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindInt, KindFloat, KindBool, KindNone:
		return true
	case KindOptional, KindArray:
		return t.Elem.IsCopy()
	case KindTuple:
		for _, e := range t.Elems {
			if !e.IsCopy() {
				return false
			}
		}
		return true
	case KindExtern:
		switch t.Name {
		case ExtDate, ExtTime, ExtDateTime, ExtTimeDelta:
			return true
		}
	}
	return false
}

// HasDisplay reports whether the target type formats with `{}`.
func (t *Type) HasDisplay() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindInt, KindFloat, KindBool, KindStr:
		return true
	case KindExtern:
		switch t.Name {
		case ExtDate, ExtTime, ExtDateTime, ExtPath, ExtJSON:
			return true
		}
	}
	return false
}

func (t *Type) IsNumeric() bool { return t != nil && (t.Kind == KindInt || t.Kind == KindFloat) }

// IsContainer covers everything with a length.
func (t *Type) IsContainer() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindList, KindSet, KindDict, KindTuple, KindArray, KindStr, KindBytes:
		return true
	}
	return false
}

// IsSequence covers indexable containers.
func (t *Type) IsSequence() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindList, KindArray, KindTuple, KindStr, KindBytes:
		return true
	}
	return false
}

func (t *Type) IsKnown() bool { return t != nil && t.Kind != KindUnknown }

// IsDynamic reports a type that lowers to the dynamic value placeholder.
func (t *Type) IsDynamic() bool {
	if t == nil {
		return true
	}
	switch t.Kind {
	case KindUnknown, KindDynamic, KindUnion:
		return true
	}
	return false
}

// HasUnknown reports whether any component is still unknown.
func (t *Type) HasUnknown() bool {
	if t == nil || t.Kind == KindUnknown {
		return true
	}
	for _, c := range t.children() {
		if c.HasUnknown() {
			return true
		}
	}
	return false
}

func (t *Type) children() []*Type {
	var out []*Type
	for _, c := range []*Type{t.Elem, t.Key, t.Value, t.Result} {
		if c != nil {
			out = append(out, c)
		}
	}
	return append(out, t.Elems...)
}

// Concrete replaces every unknown component with the dynamic placeholder.
func Concrete(t *Type) *Type {
	if t == nil || t.Kind == KindUnknown {
		return Dynamic
	}
	if !t.HasUnknown() {
		return t
	}
	cp := *t
	if t.Elem != nil {
		cp.Elem = Concrete(t.Elem)
	}
	if t.Key != nil {
		cp.Key = Concrete(t.Key)
	}
	if t.Value != nil {
		cp.Value = Concrete(t.Value)
	}
	if t.Result != nil {
		cp.Result = Concrete(t.Result)
	}
	if len(t.Elems) > 0 {
		cp.Elems = make([]*Type, len(t.Elems))
		for i, e := range t.Elems {
			cp.Elems[i] = Concrete(e)
		}
	}
	return &cp
}

// ElemOf is the type produced by iterating t.
func ElemOf(t *Type) *Type {
	if t == nil {
		return Unknown
	}
	switch t.Kind {
	case KindList, KindSet, KindArray, KindIterator:
		return t.Elem
	case KindDict:
		return t.Key
	case KindStr:
		return Str
	case KindBytes:
		return Int
	case KindTuple:
		if len(t.Elems) == 0 {
			return Unknown
		}
		return UnionOf(t.Elems...)
	case KindExtern:
		switch t.Name {
		case ExtFile:
			return Str
		case ExtCSVReader:
			return ListOf(Str)
		case ExtCSVDictReader:
			return DictOf(Str, Str)
		case ExtJSON:
			return Extern(ExtJSON)
		}
	case KindDynamic:
		return Dynamic
	}
	return Unknown
}

// String renders t in source-language notation.
func (t *Type) String() string {
	if t == nil {
		return "?"
	}
	switch t.Kind {
	case KindUnknown:
		return "?"
	case KindNone:
		return "None"
	case KindList:
		return "list[" + t.Elem.String() + "]"
	case KindSet:
		return "set[" + t.Elem.String() + "]"
	case KindDict:
		return "dict[" + t.Key.String() + ", " + t.Value.String() + "]"
	case KindTuple:
		return "tuple[" + join(t.Elems, ", ") + "]"
	case KindOptional:
		return t.Elem.String() + " | None"
	case KindArray:
		return "array[" + t.Elem.String() + ", " + strconv.Itoa(t.Size) + "]"
	case KindIterator:
		return "Iterator[" + t.Elem.String() + "]"
	case KindFunc:
		return "Callable[[" + join(t.Elems, ", ") + "], " + t.Result.String() + "]"
	case KindCustom, KindTypeVar, KindExtern:
		return t.Name
	case KindGeneric:
		return t.Name + "[" + join(t.Elems, ", ") + "]"
	case KindUnion:
		return join(t.Elems, " | ")
	case KindDynamic:
		return "Any"
	}
	return t.Kind.String()
}

func join(ts []*Type, sep string) string {
	parts := make([]string, len(ts))
	for i, e := range ts {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}
