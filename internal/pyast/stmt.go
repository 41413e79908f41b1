package pyast

type FunctionDef struct {
	Pos
	Name       string
	Args       *Arguments
	Body       []Stmt
	Decorators []Expr
	Returns    Expr
	IsAsync    bool
}

type ClassDef struct {
	Pos
	Name       string
	Bases      []Expr
	Keywords   []*Keyword
	Body       []Stmt
	Decorators []Expr
}

type Return struct {
	Pos
	Value Expr
}

type Delete struct {
	Pos
	Targets []Expr
}

type Assign struct {
	Pos
	Targets []Expr
	Value   Expr
}

type AugAssign struct {
	Pos
	Target Expr
	Op     Operator
	Value  Expr
}

type AnnAssign struct {
	Pos
	Target     Expr
	Annotation Expr
	Value      Expr
	Simple     bool
}

// TypeAlias is the 3.12 `type X = ...` statement.
type TypeAlias struct {
	Pos
	Name  Expr
	Value Expr
}

type For struct {
	Pos
	Target  Expr
	Iter    Expr
	Body    []Stmt
	Orelse  []Stmt
	IsAsync bool
}

type While struct {
	Pos
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type If struct {
	Pos
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type With struct {
	Pos
	Items   []*WithItem
	Body    []Stmt
	IsAsync bool
}

type Raise struct {
	Pos
	Exc   Expr
	Cause Expr
}

type Try struct {
	Pos
	Body      []Stmt
	Handlers  []*ExceptHandler
	Orelse    []Stmt
	Finalbody []Stmt
}

type Assert struct {
	Pos
	Test Expr
	Msg  Expr
}

type Import struct {
	Pos
	Names []*Alias
}

type ImportFrom struct {
	Pos
	Module string
	Names  []*Alias
	Level  int
}

type Global struct {
	Pos
	Names []string
}

type Nonlocal struct {
	Pos
	Names []string
}

type ExprStmt struct {
	Pos
	Value Expr
}

type Pass struct{ Pos }

type Break struct{ Pos }

type Continue struct{ Pos }

// BadStmt stands for a statement kind the model does not cover (match,
// try*). The bridge reports it as unsupported.
type BadStmt struct {
	Pos
	Kind string
}

func (*FunctionDef) node() {}
func (*ClassDef) node()    {}
func (*Return) node()      {}
func (*Delete) node()      {}
func (*Assign) node()      {}
func (*AugAssign) node()   {}
func (*AnnAssign) node()   {}
func (*TypeAlias) node()   {}
func (*For) node()         {}
func (*While) node()       {}
func (*If) node()          {}
func (*With) node()        {}
func (*Raise) node()       {}
func (*Try) node()         {}
func (*Assert) node()      {}
func (*Import) node()      {}
func (*ImportFrom) node()  {}
func (*Global) node()      {}
func (*Nonlocal) node()    {}
func (*ExprStmt) node()    {}
func (*Pass) node()        {}
func (*Break) node()       {}
func (*Continue) node()    {}
func (*BadStmt) node()     {}

func (*FunctionDef) stmt() {}
func (*ClassDef) stmt()    {}
func (*Return) stmt()      {}
func (*Delete) stmt()      {}
func (*Assign) stmt()      {}
func (*AugAssign) stmt()   {}
func (*AnnAssign) stmt()   {}
func (*TypeAlias) stmt()   {}
func (*For) stmt()         {}
func (*While) stmt()       {}
func (*If) stmt()          {}
func (*With) stmt()        {}
func (*Raise) stmt()       {}
func (*Try) stmt()         {}
func (*Assert) stmt()      {}
func (*Import) stmt()      {}
func (*ImportFrom) stmt()  {}
func (*Global) stmt()      {}
func (*Nonlocal) stmt()    {}
func (*ExprStmt) stmt()    {}
func (*Pass) stmt()        {}
func (*Break) stmt()       {}
func (*Continue) stmt()    {}
func (*BadStmt) stmt()     {}
