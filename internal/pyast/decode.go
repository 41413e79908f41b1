package pyast

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// ErrMalformed is wrapped by every decoding error caused by tree shape.
var ErrMalformed = errors.New("malformed ast document")

type object = map[string]any

// Decode converts a generic tree (as produced by encoding/json with
// UseNumber, or by msgpack) into a Module.
func Decode(tree any) (mod *Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(decodeError)
			if !ok {
				panic(r)
			}
			mod, err = nil, fmt.Errorf("%w: %s", ErrMalformed, string(de))
		}
	}()
	obj := asObject(tree, "module")
	if t := typeName(obj); t != "Module" && t != "Interactive" {
		fail("root node is %q, want Module", t)
	}
	return &Module{Body: stmts(obj["body"])}, nil
}

type decodeError string

func fail(format string, args ...any) {
	panic(decodeError(fmt.Sprintf(format, args...)))
}

func asObject(v any, what string) object {
	switch o := v.(type) {
	case map[string]any:
		return o
	case map[any]any:
		out := make(object, len(o))
		for k, val := range o {
			ks, ok := k.(string)
			if !ok {
				fail("%s: non-string key %v", what, k)
			}
			out[ks] = val
		}
		return out
	}
	fail("%s: expected object, got %T", what, v)
	return nil
}

func asList(v any) []any {
	if v == nil {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		fail("expected list, got %T", v)
	}
	return l
}

func typeName(o object) string {
	s, _ := o["_type"].(string)
	return s
}

func str(v any) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		fail("expected string, got %T", v)
	}
	return s
}

func integer(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case json.Number:
		i, err := strconv.Atoi(string(n))
		if err != nil {
			fail("expected int, got %q", string(n))
		}
		return i
	case float64:
		return int(n)
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		if n > math.MaxInt {
			fail("int out of range: %d", n)
		}
		return int(n)
	}
	fail("expected int, got %T", v)
	return 0
}

func pos(o object) Pos {
	return Pos{
		Line:    integer(o["lineno"]),
		Col:     integer(o["col_offset"]),
		EndLine: integer(o["end_lineno"]),
		EndCol:  integer(o["end_col_offset"]),
	}
}

func stmts(v any) []Stmt {
	items := asList(v)
	out := make([]Stmt, 0, len(items))
	for _, it := range items {
		out = append(out, stmt(asObject(it, "stmt")))
	}
	return out
}

func exprs(v any) []Expr {
	items := asList(v)
	out := make([]Expr, 0, len(items))
	for _, it := range items {
		out = append(out, optExpr(it))
	}
	return out
}

func names(v any) []string {
	items := asList(v)
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, str(it))
	}
	return out
}

func stmt(o object) Stmt {
	p := pos(o)
	switch t := typeName(o); t {
	case "FunctionDef", "AsyncFunctionDef":
		return &FunctionDef{
			Pos:        p,
			Name:       str(o["name"]),
			Args:       arguments(o["args"]),
			Body:       stmts(o["body"]),
			Decorators: exprs(o["decorator_list"]),
			Returns:    optExpr(o["returns"]),
			IsAsync:    t == "AsyncFunctionDef",
		}
	case "ClassDef":
		return &ClassDef{
			Pos:        p,
			Name:       str(o["name"]),
			Bases:      exprs(o["bases"]),
			Keywords:   keywords(o["keywords"]),
			Body:       stmts(o["body"]),
			Decorators: exprs(o["decorator_list"]),
		}
	case "Return":
		return &Return{Pos: p, Value: optExpr(o["value"])}
	case "Delete":
		return &Delete{Pos: p, Targets: exprs(o["targets"])}
	case "Assign":
		return &Assign{Pos: p, Targets: exprs(o["targets"]), Value: optExpr(o["value"])}
	case "AugAssign":
		return &AugAssign{Pos: p, Target: optExpr(o["target"]), Op: Operator(opName(o["op"])), Value: optExpr(o["value"])}
	case "AnnAssign":
		return &AnnAssign{
			Pos:        p,
			Target:     optExpr(o["target"]),
			Annotation: optExpr(o["annotation"]),
			Value:      optExpr(o["value"]),
			Simple:     integer(o["simple"]) != 0,
		}
	case "TypeAlias":
		return &TypeAlias{Pos: p, Name: optExpr(o["name"]), Value: optExpr(o["value"])}
	case "For", "AsyncFor":
		return &For{
			Pos:     p,
			Target:  optExpr(o["target"]),
			Iter:    optExpr(o["iter"]),
			Body:    stmts(o["body"]),
			Orelse:  stmts(o["orelse"]),
			IsAsync: t == "AsyncFor",
		}
	case "While":
		return &While{Pos: p, Test: optExpr(o["test"]), Body: stmts(o["body"]), Orelse: stmts(o["orelse"])}
	case "If":
		return &If{Pos: p, Test: optExpr(o["test"]), Body: stmts(o["body"]), Orelse: stmts(o["orelse"])}
	case "With", "AsyncWith":
		var items []*WithItem
		for _, it := range asList(o["items"]) {
			wo := asObject(it, "withitem")
			items = append(items, &WithItem{Context: optExpr(wo["context_expr"]), Vars: optExpr(wo["optional_vars"])})
		}
		return &With{Pos: p, Items: items, Body: stmts(o["body"]), IsAsync: t == "AsyncWith"}
	case "Raise":
		return &Raise{Pos: p, Exc: optExpr(o["exc"]), Cause: optExpr(o["cause"])}
	case "Try":
		var handlers []*ExceptHandler
		for _, it := range asList(o["handlers"]) {
			ho := asObject(it, "excepthandler")
			handlers = append(handlers, &ExceptHandler{
				Pos:  pos(ho),
				Type: optExpr(ho["type"]),
				Name: str(ho["name"]),
				Body: stmts(ho["body"]),
			})
		}
		return &Try{Pos: p, Body: stmts(o["body"]), Handlers: handlers, Orelse: stmts(o["orelse"]), Finalbody: stmts(o["finalbody"])}
	case "Assert":
		return &Assert{Pos: p, Test: optExpr(o["test"]), Msg: optExpr(o["msg"])}
	case "Import":
		return &Import{Pos: p, Names: aliases(o["names"])}
	case "ImportFrom":
		return &ImportFrom{Pos: p, Module: str(o["module"]), Names: aliases(o["names"]), Level: integer(o["level"])}
	case "Global":
		return &Global{Pos: p, Names: names(o["names"])}
	case "Nonlocal":
		return &Nonlocal{Pos: p, Names: names(o["names"])}
	case "Expr":
		return &ExprStmt{Pos: p, Value: optExpr(o["value"])}
	case "Pass":
		return &Pass{Pos: p}
	case "Break":
		return &Break{Pos: p}
	case "Continue":
		return &Continue{Pos: p}
	case "":
		fail("statement without _type")
	default:
		return &BadStmt{Pos: p, Kind: t}
	}
	return nil
}

func optExpr(v any) Expr {
	if v == nil {
		return nil
	}
	return expr(asObject(v, "expr"))
}

func expr(o object) Expr {
	p := pos(o)
	switch t := typeName(o); t {
	case "BoolOp":
		return &BoolOp{Pos: p, Op: BoolOperator(opName(o["op"])), Values: exprs(o["values"])}
	case "NamedExpr":
		target, ok := optExpr(o["target"]).(*Name)
		if !ok {
			fail("named expression target is not a name")
		}
		return &NamedExpr{Pos: p, Target: target, Value: optExpr(o["value"])}
	case "BinOp":
		return &BinOp{Pos: p, Left: optExpr(o["left"]), Op: Operator(opName(o["op"])), Right: optExpr(o["right"])}
	case "UnaryOp":
		return &UnaryOp{Pos: p, Op: UnaryOperator(opName(o["op"])), Operand: optExpr(o["operand"])}
	case "Lambda":
		return &Lambda{Pos: p, Args: arguments(o["args"]), Body: optExpr(o["body"])}
	case "IfExp":
		return &IfExp{Pos: p, Test: optExpr(o["test"]), Body: optExpr(o["body"]), Orelse: optExpr(o["orelse"])}
	case "Dict":
		return &Dict{Pos: p, Keys: exprs(o["keys"]), Values: exprs(o["values"])}
	case "Set":
		return &Set{Pos: p, Elts: exprs(o["elts"])}
	case "ListComp":
		return &ListComp{Pos: p, Elt: optExpr(o["elt"]), Generators: comprehensions(o["generators"])}
	case "SetComp":
		return &SetComp{Pos: p, Elt: optExpr(o["elt"]), Generators: comprehensions(o["generators"])}
	case "GeneratorExp":
		return &GeneratorExp{Pos: p, Elt: optExpr(o["elt"]), Generators: comprehensions(o["generators"])}
	case "DictComp":
		return &DictComp{Pos: p, Key: optExpr(o["key"]), Value: optExpr(o["value"]), Generators: comprehensions(o["generators"])}
	case "Await":
		return &Await{Pos: p, Value: optExpr(o["value"])}
	case "Yield":
		return &Yield{Pos: p, Value: optExpr(o["value"])}
	case "YieldFrom":
		return &YieldFrom{Pos: p, Value: optExpr(o["value"])}
	case "Compare":
		var ops []CmpOperator
		for _, op := range asList(o["ops"]) {
			ops = append(ops, CmpOperator(opName(op)))
		}
		return &Compare{Pos: p, Left: optExpr(o["left"]), Ops: ops, Comparators: exprs(o["comparators"])}
	case "Call":
		return &Call{Pos: p, Func: optExpr(o["func"]), Args: exprs(o["args"]), Keywords: keywords(o["keywords"])}
	case "FormattedValue":
		return &FormattedValue{Pos: p, Value: optExpr(o["value"]), Conversion: integer(o["conversion"]), FormatSpec: optExpr(o["format_spec"])}
	case "JoinedStr":
		return &JoinedStr{Pos: p, Values: exprs(o["values"])}
	case "Constant":
		return &Constant{Pos: p, Value: constant(o["value"])}
	case "Attribute":
		return &Attribute{Pos: p, Value: optExpr(o["value"]), Attr: str(o["attr"])}
	case "Subscript":
		return &Subscript{Pos: p, Value: optExpr(o["value"]), Slice: optExpr(o["slice"])}
	case "Index":
		return optExpr(o["value"])
	case "Starred":
		return &Starred{Pos: p, Value: optExpr(o["value"])}
	case "Name":
		return &Name{Pos: p, ID: str(o["id"])}
	case "List":
		return &List{Pos: p, Elts: exprs(o["elts"])}
	case "Tuple":
		return &Tuple{Pos: p, Elts: exprs(o["elts"])}
	case "Slice":
		return &Slice{Pos: p, Lower: optExpr(o["lower"]), Upper: optExpr(o["upper"]), Step: optExpr(o["step"])}
	case "":
		fail("expression without _type")
	default:
		return &BadExpr{Pos: p, Kind: t}
	}
	return nil
}

func opName(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return typeName(asObject(v, "operator"))
}

func arguments(v any) *Arguments {
	if v == nil {
		return &Arguments{}
	}
	o := asObject(v, "arguments")
	a := &Arguments{
		PosOnly:  args(o["posonlyargs"]),
		Args:     args(o["args"]),
		KwOnly:   args(o["kwonlyargs"]),
		Defaults: exprs(o["defaults"]),
	}
	a.KwDefaults = exprs(o["kw_defaults"])
	if o["vararg"] != nil {
		a.VarArg = arg(asObject(o["vararg"], "arg"))
	}
	if o["kwarg"] != nil {
		a.KwArg = arg(asObject(o["kwarg"], "arg"))
	}
	return a
}

func args(v any) []*Arg {
	items := asList(v)
	out := make([]*Arg, 0, len(items))
	for _, it := range items {
		out = append(out, arg(asObject(it, "arg")))
	}
	return out
}

func arg(o object) *Arg {
	return &Arg{Pos: pos(o), Name: str(o["arg"]), Annotation: optExpr(o["annotation"])}
}

func keywords(v any) []*Keyword {
	items := asList(v)
	out := make([]*Keyword, 0, len(items))
	for _, it := range items {
		o := asObject(it, "keyword")
		out = append(out, &Keyword{Pos: pos(o), Name: str(o["arg"]), Value: optExpr(o["value"])})
	}
	return out
}

func aliases(v any) []*Alias {
	items := asList(v)
	out := make([]*Alias, 0, len(items))
	for _, it := range items {
		o := asObject(it, "alias")
		out = append(out, &Alias{Pos: pos(o), Name: str(o["name"]), AsName: str(o["asname"])})
	}
	return out
}

func comprehensions(v any) []*Comprehension {
	items := asList(v)
	out := make([]*Comprehension, 0, len(items))
	for _, it := range items {
		o := asObject(it, "comprehension")
		out = append(out, &Comprehension{
			Target:  optExpr(o["target"]),
			Iter:    optExpr(o["iter"]),
			Ifs:     exprs(o["ifs"]),
			IsAsync: integer(o["is_async"]) != 0,
		})
	}
	return out
}

// constant decodes a literal. Payloads JSON cannot carry natively are
// wrapped by the dumper: {"_bytes": hex}, {"_float": repr},
// {"_bigint": digits}, {"_complex": repr}, {"_ellipsis": true}.
func constant(v any) Value {
	switch c := v.(type) {
	case nil:
		return Value{Kind: ConstNone}
	case bool:
		return Value{Kind: ConstBool, Bool: c}
	case string:
		return Value{Kind: ConstStr, Str: c}
	case []byte:
		return Value{Kind: ConstBytes, Bytes: c}
	case json.Number:
		return number(string(c))
	case float64:
		return Value{Kind: ConstFloat, Float: c}
	case float32:
		return Value{Kind: ConstFloat, Float: float64(c)}
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		return Value{Kind: ConstInt, Int: fmt.Sprint(c)}
	}
	o := asObject(v, "constant")
	switch {
	case o["_bytes"] != nil:
		b, err := hex.DecodeString(str(o["_bytes"]))
		if err != nil {
			fail("bad bytes literal: %v", err)
		}
		return Value{Kind: ConstBytes, Bytes: b}
	case o["_float"] != nil:
		f, err := strconv.ParseFloat(str(o["_float"]), 64)
		if err != nil {
			fail("bad float literal: %v", err)
		}
		return Value{Kind: ConstFloat, Float: f}
	case o["_bigint"] != nil:
		if _, ok := new(big.Int).SetString(str(o["_bigint"]), 10); !ok {
			fail("bad integer literal %q", o["_bigint"])
		}
		return Value{Kind: ConstInt, Int: str(o["_bigint"])}
	case o["_complex"] != nil:
		return Value{Kind: ConstComplex, Str: str(o["_complex"])}
	case o["_ellipsis"] != nil:
		return Value{Kind: ConstEllipsis}
	}
	fail("unknown constant payload")
	return Value{}
}

func number(text string) Value {
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Value{Kind: ConstInt, Int: text}
	}
	if _, ok := new(big.Int).SetString(text, 10); ok {
		return Value{Kind: ConstInt, Int: text}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		fail("bad number %q", text)
	}
	return Value{Kind: ConstFloat, Float: f}
}
