package hir

import (
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/types"
)

// StmtKind enumerates HIR statement kinds.
type StmtKind uint8

const (
	StmtAssign StmtKind = iota
	StmtAugAssign
	StmtReturn
	StmtIf
	StmtWhile
	StmtFor
	StmtBreak
	StmtContinue
	StmtExpr
	StmtRaise
	StmtWith
	StmtTry
	StmtPass
	StmtAssert
	// StmtBlock is a scoped, optionally labelled block.
	StmtBlock
	StmtFuncDef
	// StmtUnsupported is the placeholder left for constructs the bridge
	// rejected; codegen reports and skips it.
	StmtUnsupported
)

// String returns a human-readable name for the statement kind.
func (k StmtKind) String() string {
	switch k {
	case StmtAssign:
		return "Assign"
	case StmtAugAssign:
		return "AugAssign"
	case StmtReturn:
		return "Return"
	case StmtIf:
		return "If"
	case StmtWhile:
		return "While"
	case StmtFor:
		return "For"
	case StmtBreak:
		return "Break"
	case StmtContinue:
		return "Continue"
	case StmtExpr:
		return "Expr"
	case StmtRaise:
		return "Raise"
	case StmtWith:
		return "With"
	case StmtTry:
		return "Try"
	case StmtPass:
		return "Pass"
	case StmtAssert:
		return "Assert"
	case StmtBlock:
		return "Block"
	case StmtFuncDef:
		return "FuncDef"
	case StmtUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Stmt represents an HIR statement.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData // Kind-specific payload
}

// StmtData is the interface for statement-specific data.
type StmtData interface {
	stmtData()
}

// AssignData holds data for StmtAssign.
type AssignData struct {
	Target   *Target
	Value    *Expr
	Declared *types.Type // annotation on `x: T = v`
}

func (*AssignData) stmtData() {}

// AugAssignData holds data for StmtAugAssign.
type AugAssignData struct {
	Target *Target
	Op     BinaryOp
	Value  *Expr
}

func (*AugAssignData) stmtData() {}

type ReturnData struct {
	Value *Expr // nil for bare return
}

func (*ReturnData) stmtData() {}

// IfData holds data for StmtIf. elif chains nest in Else.
type IfData struct {
	Cond *Expr
	Then *Block
	Else *Block
}

func (*IfData) stmtData() {}

type WhileData struct {
	Cond  *Expr
	Body  *Block
	Label string
}

func (*WhileData) stmtData() {}

type ForData struct {
	Target *Target
	Iter   *Expr
	Body   *Block
	Label  string
}

func (*ForData) stmtData() {}

// BranchData holds data for StmtBreak and StmtContinue.
type BranchData struct {
	Label string // "" applies to the innermost loop
}

func (*BranchData) stmtData() {}

type ExprStmtData struct {
	Value *Expr
}

func (*ExprStmtData) stmtData() {}

// RaiseData holds data for StmtRaise.
type RaiseData struct {
	Exc     *Expr  // raised expression, nil for a bare re-raise
	Class   string // exception class, e.g. "ValueError"
	Message *Expr  // first constructor argument when present
}

func (*RaiseData) stmtData() {}

// WithItem is one `ctx as name` clause.
type WithItem struct {
	Context *Expr
	Name    string // "" without `as`
}

// WithData holds data for StmtWith. Acquisition happens at block entry;
// release is the end of the Rust scope.
type WithData struct {
	Items []*WithItem
	Body  *Block
}

func (*WithData) stmtData() {}

// Handler is one except clause.
type Handler struct {
	Classes []string // empty for bare except
	Name    string
	Body    *Block
	Span    source.Span
}

// Catches reports whether the handler covers exception class cls.
func (h *Handler) Catches(cls string) bool {
	if len(h.Classes) == 0 {
		return true
	}
	for _, c := range h.Classes {
		if c == cls || c == "Exception" || c == "BaseException" {
			return true
		}
		if c == "OSError" && (cls == "IOError" || cls == "FileNotFoundError") {
			return true
		}
		if c == "LookupError" && (cls == "KeyError" || cls == "IndexError") {
			return true
		}
		if c == "ArithmeticError" && cls == "ZeroDivisionError" {
			return true
		}
	}
	return false
}

type TryData struct {
	Body     *Block
	Handlers []*Handler
	Else     *Block
	Finally  *Block
}

func (*TryData) stmtData() {}

type AssertData struct {
	Test *Expr
	Msg  *Expr
}

func (*AssertData) stmtData() {}

// BlockData holds data for StmtBlock.
type BlockData struct {
	Body  *Block
	Label string
}

func (*BlockData) stmtData() {}

type FuncDefData struct {
	Func *Func
}

func (*FuncDefData) stmtData() {}

type UnsupportedData struct {
	What string
}

func (*UnsupportedData) stmtData() {}

// TargetKind classifies assignment targets.
type TargetKind uint8

const (
	TargetSymbol TargetKind = iota
	TargetSubscript
	TargetAttribute
	TargetTuple
)

func (k TargetKind) String() string {
	switch k {
	case TargetSymbol:
		return "symbol"
	case TargetSubscript:
		return "subscript"
	case TargetAttribute:
		return "attribute"
	case TargetTuple:
		return "tuple"
	default:
		return "?"
	}
}

// Target is the left side of an assignment, a for target or a
// comprehension target.
type Target struct {
	Kind  TargetKind
	Name  string    // symbol
	Base  *Expr     // subscript and attribute object
	Index *Expr     // subscript key
	Field string    // attribute name
	Elems []*Target // tuple destructure
	Type  *types.Type
	Span  source.Span
}

// SymbolTarget builds a plain name target.
func SymbolTarget(name string, sp source.Span) *Target {
	return &Target{Kind: TargetSymbol, Name: name, Span: sp}
}

// AllSymbols reports whether a tuple target only binds names.
func (t *Target) AllSymbols() bool {
	switch t.Kind {
	case TargetSymbol:
		return true
	case TargetTuple:
		for _, e := range t.Elems {
			if e.Kind != TargetSymbol {
				return false
			}
		}
		return true
	}
	return false
}

// Names lists the names a target binds.
func (t *Target) Names() []string {
	switch t.Kind {
	case TargetSymbol:
		return []string{t.Name}
	case TargetTuple:
		var out []string
		for _, e := range t.Elems {
			out = append(out, e.Names()...)
		}
		return out
	}
	return nil
}

// Root is the binding whose contents an assignment through t mutates:
// `a` for `a[i] = v` and `a.b.c = v`.
func (t *Target) Root() string {
	switch t.Kind {
	case TargetSymbol:
		return t.Name
	case TargetSubscript, TargetAttribute:
		return RootName(t.Base)
	}
	return ""
}
