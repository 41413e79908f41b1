package hir

import (
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/types"
)

// ExprKind enumerates HIR expression kinds.
type ExprKind uint8

const (
	ExprLiteral ExprKind = iota
	ExprName
	ExprBinary
	ExprUnary
	// ExprCall calls a function or class by name.
	ExprCall
	// ExprDynCall calls the value of an arbitrary expression.
	ExprDynCall
	ExprMethodCall
	ExprIndex
	ExprSlice
	ExprAttr
	ExprList
	ExprSet
	ExprDict
	ExprTuple
	// ExprComp covers list, set and dict comprehensions and generator
	// expressions; CompData.Kind tells them apart.
	ExprComp
	ExprLambda
	ExprBorrow
	ExprAwait
	ExprYield
	ExprFString
	ExprNamed
	ExprIf
	// ExprSortByKey is `sorted(xs, key=..., reverse=...)`.
	ExprSortByKey
	// ExprPlaceholder stands for an expression the bridge rejected.
	ExprPlaceholder
)

// String returns a human-readable name for the expression kind.
func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "Literal"
	case ExprName:
		return "Name"
	case ExprBinary:
		return "Binary"
	case ExprUnary:
		return "Unary"
	case ExprCall:
		return "Call"
	case ExprDynCall:
		return "DynCall"
	case ExprMethodCall:
		return "MethodCall"
	case ExprIndex:
		return "Index"
	case ExprSlice:
		return "Slice"
	case ExprAttr:
		return "Attr"
	case ExprList:
		return "List"
	case ExprSet:
		return "Set"
	case ExprDict:
		return "Dict"
	case ExprTuple:
		return "Tuple"
	case ExprComp:
		return "Comp"
	case ExprLambda:
		return "Lambda"
	case ExprBorrow:
		return "Borrow"
	case ExprAwait:
		return "Await"
	case ExprYield:
		return "Yield"
	case ExprFString:
		return "FString"
	case ExprNamed:
		return "Named"
	case ExprIf:
		return "If"
	case ExprSortByKey:
		return "SortByKey"
	case ExprPlaceholder:
		return "Placeholder"
	default:
		return "Unknown"
	}
}

// Expr represents an HIR expression. Type is nil until inference runs
// and never nil afterwards; Use is set by ownership inference.
type Expr struct {
	Kind ExprKind
	Type *types.Type
	Use  Use
	Span source.Span
	Data ExprData // Kind-specific payload
}

// ExprData is the interface for expression-specific data.
type ExprData interface {
	exprData()
}

// LiteralKind enumerates literal value kinds.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralStr
	LiteralBool
	LiteralNone
	LiteralBytes
)

// LiteralData holds data for ExprLiteral.
type LiteralData struct {
	Kind  LiteralKind
	Int   int64
	Text  string // int literal digits as written; string payload
	Float float64
	Bool  bool
	Bytes []byte
}

func (*LiteralData) exprData() {}

type NameData struct {
	Name string
}

func (*NameData) exprData() {}

// BinaryData holds data for ExprBinary, including comparisons and the
// short-circuit operators.
type BinaryData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}

func (*BinaryData) exprData() {}

type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

func (*UnaryData) exprData() {}

// Kwarg is a keyword argument at a call site.
type Kwarg struct {
	Name  string
	Value *Expr
}

// CallData holds data for ExprCall.
type CallData struct {
	Func   string
	Args   []*Expr
	Kwargs []*Kwarg

	// Filled by inference.
	Target  *Func  // resolved module function, nil for builtins
	Class   *Class // set when Func names a class (constructor call)
	CanFail bool   // the call produces a fallible envelope
}

func (*CallData) exprData() {}

// Kwarg returns the value of a keyword argument, or nil.
func (c *CallData) Kwarg(name string) *Expr { return findKwarg(c.Kwargs, name) }

type DynCallData struct {
	Callee *Expr
	Args   []*Expr
}

func (*DynCallData) exprData() {}

// MethodCallData holds data for ExprMethodCall.
type MethodCallData struct {
	Recv   *Expr
	Method string
	Args   []*Expr
	Kwargs []*Kwarg

	// Module is the imported module when Recv names one.
	Module  *Import
	CanFail bool
	Target  *Func // resolved user method
}

func (*MethodCallData) exprData() {}

func (c *MethodCallData) Kwarg(name string) *Expr { return findKwarg(c.Kwargs, name) }

func findKwarg(kws []*Kwarg, name string) *Expr {
	for _, kw := range kws {
		if kw.Name == name {
			return kw.Value
		}
	}
	return nil
}

type IndexData struct {
	Base  *Expr
	Index *Expr
}

func (*IndexData) exprData() {}

// SliceData holds base[start:stop:step]; absent bounds are nil.
type SliceData struct {
	Base  *Expr
	Start *Expr
	Stop  *Expr
	Step  *Expr
}

func (*SliceData) exprData() {}

type AttrData struct {
	Base *Expr
	Name string
	// Module is set when Base names an imported module.
	Module *Import
}

func (*AttrData) exprData() {}

// ElemsData holds data for ExprList, ExprSet and ExprTuple.
type ElemsData struct {
	Elems []*Expr
}

func (*ElemsData) exprData() {}

type DictData struct {
	Keys   []*Expr
	Values []*Expr
}

func (*DictData) exprData() {}

// CompKind says what a comprehension builds.
type CompKind uint8

const (
	CompList CompKind = iota
	CompSet
	CompDict
	CompGen
)

func (k CompKind) String() string {
	switch k {
	case CompList:
		return "list"
	case CompSet:
		return "set"
	case CompDict:
		return "dict"
	case CompGen:
		return "gen"
	default:
		return "?"
	}
}

// Generator is one `for target in iter if cond...` clause.
type Generator struct {
	Target *Target
	Iter   *Expr
	Ifs    []*Expr
}

// CompData holds data for ExprComp. Gens is never empty.
type CompData struct {
	Kind  CompKind
	Elem  *Expr // element, or key for dict comprehensions
	Value *Expr // dict comprehensions only
	Gens  []*Generator
}

func (*CompData) exprData() {}

// LambdaData holds data for ExprLambda.
type LambdaData struct {
	Params []*Param
	Body   *Expr
	// Captures lists free variables cloned into the closure preamble;
	// set by ownership inference.
	Captures []string
	Move     bool
}

func (*LambdaData) exprData() {}

type BorrowData struct {
	Value *Expr
	Mut   bool
}

func (*BorrowData) exprData() {}

type AwaitData struct {
	Value *Expr
}

func (*AwaitData) exprData() {}

type YieldData struct {
	Value *Expr
	From  bool
}

func (*YieldData) exprData() {}

// FPart is one f-string segment: literal text or an interpolation.
type FPart struct {
	Lit  string
	Expr *Expr
	Conv rune   // 'r', 's', 'a' or 0
	Spec string // format spec text after ':'
}

type FStringData struct {
	Parts []*FPart
}

func (*FStringData) exprData() {}

// NamedData holds data for ExprNamed (`name := value`).
type NamedData struct {
	Name  string
	Value *Expr
}

func (*NamedData) exprData() {}

type IfExprData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (*IfExprData) exprData() {}

// SortByKeyData holds data for ExprSortByKey. Key is nil for identity.
type SortByKeyData struct {
	Iter    *Expr
	Key     *Expr
	Reverse *Expr
}

func (*SortByKeyData) exprData() {}

type PlaceholderData struct {
	What string
}

func (*PlaceholderData) exprData() {}

// RootName returns the binding an lvalue-ish expression is rooted at.
func RootName(e *Expr) string {
	for e != nil {
		switch d := e.Data.(type) {
		case *NameData:
			return d.Name
		case *AttrData:
			e = d.Base
		case *IndexData:
			e = d.Base
		case *SliceData:
			e = d.Base
		case *BorrowData:
			e = d.Value
		default:
			return ""
		}
	}
	return ""
}

// NameOf returns the name for an ExprName, or "".
func NameOf(e *Expr) string {
	if e == nil {
		return ""
	}
	if d, ok := e.Data.(*NameData); ok {
		return d.Name
	}
	return ""
}

// IsNoneLit reports a literal None.
func IsNoneLit(e *Expr) bool {
	if e == nil {
		return false
	}
	d, ok := e.Data.(*LiteralData)
	return ok && d.Kind == LiteralNone
}
