package diag

import "fmt"

// Code is a stable numeric diagnostic identifier. The thousands digit
// selects the category.
type Code uint16

const (
	UnknownCode Code = 0

	// unsupported-construct
	UnsInfo                Code = 1000
	UnsConstruct           Code = 1001
	UnsMetaclass           Code = 1002
	UnsDecorator           Code = 1003
	UnsReflection          Code = 1004
	UnsDestructure         Code = 1005
	UnsAttrMutation        Code = 1006
	UnsImport              Code = 1007
	UnsStarArgs            Code = 1008
	UnsMultipleInheritance Code = 1009
	UnsStatement           Code = 1010
	UnsExpression          Code = 1011
	UnsGlobalScope         Code = 1012

	// codegen-unsupported
	GenInfo            Code = 2000
	GenUnsupportedStmt Code = 2001
	GenUnsupportedExpr Code = 2002
	GenMissingLabel    Code = 2003
	GenPlaceholder     Code = 2004
	GenUnknownType     Code = 2005

	// unknown-method
	MthInfo          Code = 3000
	MthUnknownMethod Code = 3001
	MthUnknownAttr   Code = 3002
	MthDynamicMethod Code = 3003
	MthUnknownModule Code = 3004

	// type-unresolved
	TypInfo               Code = 4000
	TypUnresolved         Code = 4001
	TypDynamicFallback    Code = 4002
	TypIntLiteralOverflow Code = 4003
	TypWidened            Code = 4004
	TypBadAnnotation      Code = 4005

	// ownership-conflict
	OwnInfo           Code = 5000
	OwnUseAfterMove   Code = 5001
	OwnBorrowConflict Code = 5002

	// outer surfaces
	IOLoadFileError Code = 6001
	IODecodeError   Code = 6002
	CfgInvalid      Code = 7001
)

// Category groups codes into the five translator failure classes plus the
// surfaces around the core.
type Category uint8

const (
	CatUnknown Category = iota
	CatUnsupportedConstruct
	CatCodegenUnsupported
	CatUnknownMethod
	CatTypeUnresolved
	CatOwnershipConflict
	CatIO
	CatConfig
)

func (c Category) String() string {
	switch c {
	case CatUnsupportedConstruct:
		return "unsupported-construct"
	case CatCodegenUnsupported:
		return "codegen-unsupported"
	case CatUnknownMethod:
		return "unknown-method"
	case CatTypeUnresolved:
		return "type-unresolved"
	case CatOwnershipConflict:
		return "ownership-conflict"
	case CatIO:
		return "io"
	case CatConfig:
		return "config"
	}
	return "unknown"
}

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	UnsInfo:                "Unsupported construct information",
	UnsConstruct:           "Construct outside the supported subset",
	UnsMetaclass:           "Metaclasses and dynamic class creation are not supported",
	UnsDecorator:           "Decorator is not recognized",
	UnsReflection:          "Reflective evaluation is not supported",
	UnsDestructure:         "Destructuring target is too complex",
	UnsAttrMutation:        "Runtime attribute mutation is not supported",
	UnsImport:              "Module has no known mapping",
	UnsStarArgs:            "Star arguments are not supported here",
	UnsMultipleInheritance: "Multiple inheritance is not supported",
	UnsStatement:           "Statement is not supported",
	UnsExpression:          "Expression is not supported",
	UnsGlobalScope:         "Global declaration refers to an unknown module binding",
	GenInfo:                "Code generation information",
	GenUnsupportedStmt:     "No code generation for statement",
	GenUnsupportedExpr:     "No code generation for expression",
	GenMissingLabel:        "Loop label does not refer to an enclosing loop",
	GenPlaceholder:         "Placeholder node reached code generation",
	GenUnknownType:         "Unknown type reached code generation",
	MthInfo:                "Method dispatch information",
	MthUnknownMethod:       "Method is not in the dispatch table",
	MthUnknownAttr:         "Attribute is not known for this type",
	MthDynamicMethod:       "Method on dynamic value has no precise mapping",
	MthUnknownModule:       "Function is not in the module item map",
	TypInfo:                "Type inference information",
	TypUnresolved:          "Type could not be resolved",
	TypDynamicFallback:     "Falling back to dynamic value",
	TypIntLiteralOverflow:  "Integer literal out of range",
	TypWidened:             "Binding reassigned with a different type",
	TypBadAnnotation:       "Type annotation is not understood",
	OwnInfo:                "Ownership information",
	OwnUseAfterMove:        "Value used after move and cannot be cloned",
	OwnBorrowConflict:      "Conflicting borrows of the same value",
	IOLoadFileError:        "I/O load file error",
	IODecodeError:          "Input AST could not be decoded",
	CfgInvalid:             "Invalid configuration",
}

// Category maps the code to its failure class.
func (c Code) Category() Category {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return CatUnsupportedConstruct
	case ic >= 2000 && ic < 3000:
		return CatCodegenUnsupported
	case ic >= 3000 && ic < 4000:
		return CatUnknownMethod
	case ic >= 4000 && ic < 5000:
		return CatTypeUnresolved
	case ic >= 5000 && ic < 6000:
		return CatOwnershipConflict
	case ic >= 6000 && ic < 7000:
		return CatIO
	case ic >= 7000 && ic < 8000:
		return CatConfig
	}
	return CatUnknown
}

func (c Code) ID() string {
	switch c.Category() {
	case CatUnsupportedConstruct:
		return fmt.Sprintf("UNS%04d", int(c))
	case CatCodegenUnsupported:
		return fmt.Sprintf("GEN%04d", int(c))
	case CatUnknownMethod:
		return fmt.Sprintf("MTH%04d", int(c))
	case CatTypeUnresolved:
		return fmt.Sprintf("TYP%04d", int(c))
	case CatOwnershipConflict:
		return fmt.Sprintf("OWN%04d", int(c))
	case CatIO:
		return fmt.Sprintf("IO%04d", int(c))
	case CatConfig:
		return fmt.Sprintf("CFG%04d", int(c))
	}
	return "E0000"
}

func (c Code) Title() string {
	if desc, ok := codeDescription[c]; ok {
		return desc
	}
	return codeDescription[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// DefaultSeverity is the severity a code carries unless the producer
// overrides it.
func (c Code) DefaultSeverity() Severity {
	switch c.Category() {
	case CatUnknownMethod, CatTypeUnresolved:
		return SevWarning
	}
	if c%1000 == 0 {
		return SevInfo
	}
	return SevError
}
