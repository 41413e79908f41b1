package hir

// BinaryOp enumerates binary, comparison and boolean operators.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpMatMul
	OpLShift
	OpRShift
	OpBitOr
	OpBitXor
	OpBitAnd
	OpAnd
	OpOr
	OpEq
	OpNotEq
	OpLt
	OpLtE
	OpGt
	OpGtE
	OpIs
	OpIsNot
	OpIn
	OpNotIn
)

var binaryNames = [...]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpFloorDiv: "//",
	OpMod:      "%",
	OpPow:      "**",
	OpMatMul:   "@",
	OpLShift:   "<<",
	OpRShift:   ">>",
	OpBitOr:    "|",
	OpBitXor:   "^",
	OpBitAnd:   "&",
	OpAnd:      "and",
	OpOr:       "or",
	OpEq:       "==",
	OpNotEq:    "!=",
	OpLt:       "<",
	OpLtE:      "<=",
	OpGt:       ">",
	OpGtE:      ">=",
	OpIs:       "is",
	OpIsNot:    "is not",
	OpIn:       "in",
	OpNotIn:    "not in",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return "?"
}

// IsComparison covers the relational, identity and membership operators.
func (op BinaryOp) IsComparison() bool { return op >= OpEq }

// IsLogical covers and/or.
func (op BinaryOp) IsLogical() bool { return op == OpAnd || op == OpOr }

// IsArithmetic covers operators producing a number from numbers.
func (op BinaryOp) IsArithmetic() bool { return op <= OpMatMul }

type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpPos
	OpNot
	OpInvert
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpPos:
		return "+"
	case OpNot:
		return "not "
	case OpInvert:
		return "~"
	default:
		return "?"
	}
}
