package pyast

// Constructors for building trees in code. The bridge and its tests use
// them to synthesize nodes without a Python round trip.

func NewName(id string) *Name { return &Name{ID: id} }

func NewInt(v string) *Constant { return &Constant{Value: Value{Kind: ConstInt, Int: v}} }

func NewFloat(v float64) *Constant { return &Constant{Value: Value{Kind: ConstFloat, Float: v}} }

func NewStr(s string) *Constant { return &Constant{Value: Value{Kind: ConstStr, Str: s}} }

func NewBool(b bool) *Constant { return &Constant{Value: Value{Kind: ConstBool, Bool: b}} }

func NewNone() *Constant { return &Constant{Value: Value{Kind: ConstNone}} }

func NewAttr(value Expr, attr string) *Attribute { return &Attribute{Value: value, Attr: attr} }

func NewCall(fn Expr, args ...Expr) *Call { return &Call{Func: fn, Args: args} }

// NewMethodCall builds recv.method(args...).
func NewMethodCall(recv Expr, method string, args ...Expr) *Call {
	return &Call{Func: NewAttr(recv, method), Args: args}
}

func NewBin(l Expr, op Operator, r Expr) *BinOp { return &BinOp{Left: l, Op: op, Right: r} }

func NewCompare(l Expr, op CmpOperator, r Expr) *Compare {
	return &Compare{Left: l, Ops: []CmpOperator{op}, Comparators: []Expr{r}}
}

func NewSubscript(value, index Expr) *Subscript { return &Subscript{Value: value, Slice: index} }

func NewList(elts ...Expr) *List { return &List{Elts: elts} }

func NewTuple(elts ...Expr) *Tuple { return &Tuple{Elts: elts} }

// NewArg declares a parameter; annotation may be nil.
func NewArg(name string, annotation Expr) *Arg { return &Arg{Name: name, Annotation: annotation} }

// NewFunc builds a plain def with positional parameters.
func NewFunc(name string, params []*Arg, returns Expr, body ...Stmt) *FunctionDef {
	return &FunctionDef{Name: name, Args: &Arguments{Args: params}, Returns: returns, Body: body}
}

func NewReturn(v Expr) *Return { return &Return{Value: v} }

func NewAssign(target string, value Expr) *Assign {
	return &Assign{Targets: []Expr{NewName(target)}, Value: value}
}

func NewExprStmt(e Expr) *ExprStmt { return &ExprStmt{Value: e} }

func NewIf(test Expr, body []Stmt, orelse []Stmt) *If {
	return &If{Test: test, Body: body, Orelse: orelse}
}

func NewFor(target string, iter Expr, body ...Stmt) *For {
	return &For{Target: NewName(target), Iter: iter, Body: body}
}
