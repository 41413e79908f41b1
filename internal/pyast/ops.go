package pyast

// Operator names match the ast class names so decoding is a cast.
type Operator string

const (
	Add      Operator = "Add"
	Sub      Operator = "Sub"
	Mult     Operator = "Mult"
	MatMult  Operator = "MatMult"
	Div      Operator = "Div"
	Mod      Operator = "Mod"
	Pow      Operator = "Pow"
	LShift   Operator = "LShift"
	RShift   Operator = "RShift"
	BitOr    Operator = "BitOr"
	BitXor   Operator = "BitXor"
	BitAnd   Operator = "BitAnd"
	FloorDiv Operator = "FloorDiv"
)

type BoolOperator string

const (
	And BoolOperator = "And"
	Or  BoolOperator = "Or"
)

type UnaryOperator string

const (
	Invert UnaryOperator = "Invert"
	Not    UnaryOperator = "Not"
	UAdd   UnaryOperator = "UAdd"
	USub   UnaryOperator = "USub"
)

type CmpOperator string

const (
	Eq    CmpOperator = "Eq"
	NotEq CmpOperator = "NotEq"
	Lt    CmpOperator = "Lt"
	LtE   CmpOperator = "LtE"
	Gt    CmpOperator = "Gt"
	GtE   CmpOperator = "GtE"
	Is    CmpOperator = "Is"
	IsNot CmpOperator = "IsNot"
	In    CmpOperator = "In"
	NotIn CmpOperator = "NotIn"
)

// ConstKind tags a Constant's payload.
type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstStr
	ConstBytes
	ConstEllipsis
	ConstComplex
)

// Value is a literal payload. Int keeps the decimal text because Python
// integers are unbounded; range checks happen in the bridge.
type Value struct {
	Kind  ConstKind
	Bool  bool
	Int   string
	Float float64
	Str   string
	Bytes []byte
}
