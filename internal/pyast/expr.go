package pyast

type BoolOp struct {
	Pos
	Op     BoolOperator
	Values []Expr
}

type NamedExpr struct {
	Pos
	Target *Name
	Value  Expr
}

type BinOp struct {
	Pos
	Left  Expr
	Op    Operator
	Right Expr
}

type UnaryOp struct {
	Pos
	Op      UnaryOperator
	Operand Expr
}

type Lambda struct {
	Pos
	Args *Arguments
	Body Expr
}

type IfExp struct {
	Pos
	Test   Expr
	Body   Expr
	Orelse Expr
}

// Dict keys are nil for `**other` entries.
type Dict struct {
	Pos
	Keys   []Expr
	Values []Expr
}

type Set struct {
	Pos
	Elts []Expr
}

type ListComp struct {
	Pos
	Elt        Expr
	Generators []*Comprehension
}

type SetComp struct {
	Pos
	Elt        Expr
	Generators []*Comprehension
}

type GeneratorExp struct {
	Pos
	Elt        Expr
	Generators []*Comprehension
}

type DictComp struct {
	Pos
	Key        Expr
	Value      Expr
	Generators []*Comprehension
}

type Await struct {
	Pos
	Value Expr
}

type Yield struct {
	Pos
	Value Expr
}

type YieldFrom struct {
	Pos
	Value Expr
}

type Compare struct {
	Pos
	Left        Expr
	Ops         []CmpOperator
	Comparators []Expr
}

type Call struct {
	Pos
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

type FormattedValue struct {
	Pos
	Value      Expr
	Conversion int // -1 none, 's', 'r', 'a'
	FormatSpec Expr
}

type JoinedStr struct {
	Pos
	Values []Expr
}

type Constant struct {
	Pos
	Value Value
}

type Attribute struct {
	Pos
	Value Expr
	Attr  string
}

type Subscript struct {
	Pos
	Value Expr
	Slice Expr
}

type Starred struct {
	Pos
	Value Expr
}

type Name struct {
	Pos
	ID string
}

type List struct {
	Pos
	Elts []Expr
}

type Tuple struct {
	Pos
	Elts []Expr
}

type Slice struct {
	Pos
	Lower Expr
	Upper Expr
	Step  Expr
}

// BadExpr stands for an expression kind the model does not cover.
type BadExpr struct {
	Pos
	Kind string
}

func (*BoolOp) node()         {}
func (*NamedExpr) node()      {}
func (*BinOp) node()          {}
func (*UnaryOp) node()        {}
func (*Lambda) node()         {}
func (*IfExp) node()          {}
func (*Dict) node()           {}
func (*Set) node()            {}
func (*ListComp) node()       {}
func (*SetComp) node()        {}
func (*GeneratorExp) node()   {}
func (*DictComp) node()       {}
func (*Await) node()          {}
func (*Yield) node()          {}
func (*YieldFrom) node()      {}
func (*Compare) node()        {}
func (*Call) node()           {}
func (*FormattedValue) node() {}
func (*JoinedStr) node()      {}
func (*Constant) node()       {}
func (*Attribute) node()      {}
func (*Subscript) node()      {}
func (*Starred) node()        {}
func (*Name) node()           {}
func (*List) node()           {}
func (*Tuple) node()          {}
func (*Slice) node()          {}
func (*BadExpr) node()        {}

func (*BoolOp) expr()         {}
func (*NamedExpr) expr()      {}
func (*BinOp) expr()          {}
func (*UnaryOp) expr()        {}
func (*Lambda) expr()         {}
func (*IfExp) expr()          {}
func (*Dict) expr()           {}
func (*Set) expr()            {}
func (*ListComp) expr()       {}
func (*SetComp) expr()        {}
func (*GeneratorExp) expr()   {}
func (*DictComp) expr()       {}
func (*Await) expr()          {}
func (*Yield) expr()          {}
func (*YieldFrom) expr()      {}
func (*Compare) expr()        {}
func (*Call) expr()           {}
func (*FormattedValue) expr() {}
func (*JoinedStr) expr()      {}
func (*Constant) expr()       {}
func (*Attribute) expr()      {}
func (*Subscript) expr()      {}
func (*Starred) expr()        {}
func (*Name) expr()           {}
func (*List) expr()           {}
func (*Tuple) expr()          {}
func (*Slice) expr()          {}
func (*BadExpr) expr()        {}
