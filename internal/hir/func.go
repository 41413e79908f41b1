package hir

import (
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/types"
)

// FuncFlags represents function properties as a bitmask.
type FuncFlags uint32

const (
	// FuncAsync marks `async def`.
	FuncAsync FuncFlags = 1 << iota
	// FuncGenerator marks a body containing yield.
	FuncGenerator
	// FuncCanFail marks a function lowered to a fallible return.
	FuncCanFail
	// FuncReturnsOptional marks a function that returns None on some path.
	FuncReturnsOptional
	// FuncReturnsIterator marks a function whose result is lazy.
	FuncReturnsIterator
	// FuncMethod marks an instance method (implicit receiver).
	FuncMethod
	// FuncStatic marks @staticmethod.
	FuncStatic
	// FuncClassMethod marks @classmethod.
	FuncClassMethod
	// FuncProperty marks @property.
	FuncProperty
	// FuncMutSelf marks a method that mutates its receiver.
	FuncMutSelf
	// FuncNested marks a def inside another function.
	FuncNested
	// FuncEntry marks the synthesized script entry.
	FuncEntry
)

// HasFlag returns true if the given flag is set.
func (f FuncFlags) HasFlag(flag FuncFlags) bool {
	return f&flag != 0
}

// String returns a human-readable representation of flags.
func (f FuncFlags) String() string {
	var parts []string
	names := []struct {
		flag FuncFlags
		name string
	}{
		{FuncAsync, "async"},
		{FuncGenerator, "generator"},
		{FuncCanFail, "can-fail"},
		{FuncReturnsOptional, "returns-optional"},
		{FuncReturnsIterator, "returns-iterator"},
		{FuncMethod, "method"},
		{FuncStatic, "static"},
		{FuncClassMethod, "classmethod"},
		{FuncProperty, "property"},
		{FuncMutSelf, "mut-self"},
		{FuncNested, "nested"},
		{FuncEntry, "entry"},
	}
	for _, n := range names {
		if f.HasFlag(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, " ")
}

// Annotations are user hints attached to a function or class by
// qualified name.
type Annotations struct {
	Optimization string   // "speed" | "size" | ""
	Ownership    string   // "owned" | "borrowed" | ""
	Clone        []string // bindings to clone explicitly
	Borrow       []string // bindings to pass by reference
	SafetyMode   bool
}

// Empty reports whether no hint is set.
func (a Annotations) Empty() bool {
	return a.Optimization == "" && a.Ownership == "" && len(a.Clone) == 0 && len(a.Borrow) == 0 && !a.SafetyMode
}

// Func represents an HIR function or method.
type Func struct {
	Name        string
	Class       string // owning class, "" for free functions
	Params      []*Param
	Result      *types.Type
	Declared    bool // result came from an annotation
	Body        *Block
	Flags       FuncFlags
	Doc         string
	Decorators  []string
	Annotations Annotations
	Span        source.Span

	// Filled by inference.
	Locals map[string]*types.Type // variable-type table keyed by binding name
	Raises []string               // named exception classes escaping the body

	// Filled by ownership inference.
	Mutable   *set.Set[string] // bindings that need `let mut`
	Moved     *set.Set[string] // bindings consumed by value somewhere
	Globals   *set.Set[string] // names declared `global`
	Captured  *set.Set[string] // params captured by nested closures
	ErrorType string           // error type of the fallible return
}

// QualName is Class.name for methods and name otherwise.
func (f *Func) QualName() string {
	if f.Class != "" {
		return f.Class + "." + f.Name
	}
	return f.Name
}

func (f *Func) IsAsync() bool     { return f.Flags.HasFlag(FuncAsync) }
func (f *Func) IsGenerator() bool { return f.Flags.HasFlag(FuncGenerator) }
func (f *Func) CanFail() bool     { return f.Flags.HasFlag(FuncCanFail) }
func (f *Func) IsMethod() bool    { return f.Flags.HasFlag(FuncMethod) }

// Param finds a parameter by name.
func (f *Func) Param(name string) *Param {
	for _, p := range f.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// LocalType returns the recorded type of a binding, or nil.
func (f *Func) LocalType(name string) *types.Type {
	if p := f.Param(name); p != nil {
		return p.Type
	}
	if f.Locals == nil {
		return nil
	}
	return f.Locals[name]
}

// IsMutable reports whether a binding needs `mut`.
func (f *Func) IsMutable(name string) bool {
	return f.Mutable != nil && f.Mutable.Contains(name)
}

// ParamKind distinguishes how a parameter is bound at call sites.
type ParamKind uint8

const (
	ParamPositional ParamKind = iota
	ParamKeywordOnly
	ParamVarArgs
	ParamKwArgs
)

func (k ParamKind) String() string {
	switch k {
	case ParamPositional:
		return "positional"
	case ParamKeywordOnly:
		return "keyword-only"
	case ParamVarArgs:
		return "varargs"
	case ParamKwArgs:
		return "kwargs"
	default:
		return "?"
	}
}

// Param represents a function parameter.
type Param struct {
	Name     string
	Type     *types.Type
	Default  *Expr
	Kind     ParamKind
	Declared bool      // type came from an annotation
	Mode     Ownership // decided by ownership inference
	Mutated  bool
	Span     source.Span
}

// Block is an ordered statement list.
type Block struct {
	Stmts []*Stmt
	Span  source.Span
}

// NewBlock wraps statements.
func NewBlock(stmts ...*Stmt) *Block { return &Block{Stmts: stmts} }

// Len tolerates nil blocks.
func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Stmts)
}
