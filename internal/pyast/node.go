package pyast

// Pos is a node's source range in Python coordinates.
type Pos struct {
	Line    int
	Col     int
	EndLine int
	EndCol  int
}

func (p Pos) Position() Pos { return p }

type Node interface {
	Position() Pos
	node()
}

type Stmt interface {
	Node
	stmt()
}

type Expr interface {
	Node
	expr()
}

// Module is one translation unit.
type Module struct {
	Path string
	Body []Stmt
}

// Arguments is a function or lambda parameter list.
type Arguments struct {
	PosOnly    []*Arg
	Args       []*Arg
	VarArg     *Arg
	KwOnly     []*Arg
	KwDefaults []Expr // parallel to KwOnly; nil entries have no default
	KwArg      *Arg
	Defaults   []Expr // right-aligned against PosOnly+Args
}

type Arg struct {
	Pos
	Name       string
	Annotation Expr
}

type Keyword struct {
	Pos
	Name  string // empty for **kwargs
	Value Expr
}

type Alias struct {
	Pos
	Name   string
	AsName string
}

type WithItem struct {
	Context Expr
	Vars    Expr
}

type ExceptHandler struct {
	Pos
	Type Expr
	Name string
	Body []Stmt
}

type Comprehension struct {
	Target  Expr
	Iter    Expr
	Ifs     []Expr
	IsAsync bool
}

func (*Arg) node()           {}
func (*Keyword) node()       {}
func (*Alias) node()         {}
func (*ExceptHandler) node() {}
