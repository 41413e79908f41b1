package rustgen_test

import (
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/bridge"
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/infer"
	"github.com/paiml/depyler-sub011/internal/ownership"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/rustgen"
	"github.com/paiml/depyler-sub011/internal/trace"
)

func generate(t *testing.T, body ...pyast.Stmt) (*rustgen.Output, *trace.DecisionLog) {
	t.Helper()
	out, _, log := generateWith(t, rustgen.Options{}, body...)
	return out, log
}

func generateWith(t *testing.T, opts rustgen.Options, body ...pyast.Stmt) (*rustgen.Output, *diag.Bag, *trace.DecisionLog) {
	t.Helper()
	bag := diag.NewBag(100)
	rep := diag.BagReporter{Bag: bag}
	log := trace.NewDecisionLog(nil, 0)
	mod := bridge.Lower(&pyast.Module{Path: "sample.py", Body: body}, nil, 0, bridge.Options{Decisions: log}, rep)
	infer.Infer(mod, infer.Options{Reporter: rep, Decisions: log})
	ownership.Analyze(mod, ownership.Options{Reporter: rep, Decisions: log})
	opts.Reporter, opts.Decisions = rep, log
	return rustgen.Generate(mod, opts), bag, log
}

func mustNotContain(t *testing.T, code string, bad ...string) {
	t.Helper()
	for _, b := range bad {
		if strings.Contains(code, b) {
			t.Errorf("unexpected %q in:\n%s", b, code)
		}
	}
}

func listArg(name, elem string) *pyast.Arg {
	return pyast.NewArg(name, pyast.NewSubscript(pyast.NewName("list"), pyast.NewName(elem)))
}

func lambda(body pyast.Expr, params ...string) *pyast.Lambda {
	args := make([]*pyast.Arg, len(params))
	for i, p := range params {
		args[i] = pyast.NewArg(p, nil)
	}
	return &pyast.Lambda{Args: &pyast.Arguments{Args: args}, Body: body}
}

func mustContain(t *testing.T, code string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(code, w) {
			t.Errorf("missing %q in:\n%s", w, code)
		}
	}
}

func intArg(name string) *pyast.Arg { return pyast.NewArg(name, pyast.NewName("int")) }

func strArg(name string) *pyast.Arg { return pyast.NewArg(name, pyast.NewName("str")) }

func call(name string, args ...pyast.Expr) *pyast.Call {
	return pyast.NewCall(pyast.NewName(name), args...)
}

func selfAttr(field string) *pyast.Attribute { return pyast.NewAttr(pyast.NewName("self"), field) }

func TestTailExpression(t *testing.T) {
	// def add(a: int, b: int) -> int:
	//     return a + b
	add := pyast.NewFunc("add", []*pyast.Arg{intArg("a"), intArg("b")}, pyast.NewName("int"),
		pyast.NewReturn(pyast.NewBin(pyast.NewName("a"), pyast.Add, pyast.NewName("b"))))
	out, _ := generate(t, add)

	mustContain(t, out.Code, "pub fn add(a: i32, b: i32) -> i32 {", "a + b")
	if strings.Contains(out.Code, "return a + b;") {
		t.Errorf("last return should become the tail expression:\n%s", out.Code)
	}
	if len(out.Needs) != 0 {
		t.Errorf("needs = %v, want none", out.Needs)
	}
}

func TestFloorDivisionRoundsTowardNegativeInfinity(t *testing.T) {
	fd := pyast.NewFunc("fd", []*pyast.Arg{intArg("a"), intArg("b")}, pyast.NewName("int"),
		pyast.NewReturn(pyast.NewBin(pyast.NewName("a"), pyast.FloorDiv, pyast.NewName("b"))))
	out, _ := generate(t, fd)

	mustContain(t, out.Code, "let q = a / b;", "((a < 0) != (b < 0))", "q - 1")
}

func TestParseBecomesFallible(t *testing.T) {
	// def parse(s: str) -> int:
	//     return int(s)
	parse := pyast.NewFunc("parse", []*pyast.Arg{strArg("s")}, pyast.NewName("int"),
		pyast.NewReturn(call("int", pyast.NewName("s"))))
	out, _ := generate(t, parse)

	mustContain(t, out.Code,
		"-> Result<i32, Box<dyn std::error::Error>>",
		"parse::<i32>()?",
		"Ok(",
	)
}

func TestDictAccumulateUsesEntry(t *testing.T) {
	// def count(words: list[str]) -> dict[str, int]:
	//     counts: dict[str, int] = {}
	//     for w in words:
	//         counts[w] = counts.get(w, 0) + 1
	//     return counts
	dictT := pyast.NewSubscript(pyast.NewName("dict"), pyast.NewTuple(pyast.NewName("str"), pyast.NewName("int")))
	get := pyast.NewMethodCall(pyast.NewName("counts"), "get", pyast.NewName("w"), pyast.NewInt("0"))
	update := &pyast.Assign{
		Targets: []pyast.Expr{pyast.NewSubscript(pyast.NewName("counts"), pyast.NewName("w"))},
		Value:   pyast.NewBin(get, pyast.Add, pyast.NewInt("1")),
	}
	count := pyast.NewFunc("count",
		[]*pyast.Arg{pyast.NewArg("words", pyast.NewSubscript(pyast.NewName("list"), pyast.NewName("str")))},
		dictT,
		&pyast.AnnAssign{Target: pyast.NewName("counts"), Annotation: dictT, Value: &pyast.Dict{}, Simple: true},
		pyast.NewFor("w", pyast.NewName("words"), update),
		pyast.NewReturn(pyast.NewName("counts")),
	)
	out, _ := generate(t, count)

	mustContain(t, out.Code, "std::collections::HashMap<String, i32>", ".entry(", ".or_insert(0) += 1;")
}

func TestFilterMapComprehension(t *testing.T) {
	// def pos_doubled(nums: list[int]) -> list[int]:
	//     return [x * 2 for x in nums if x > 0]
	comp := &pyast.ListComp{
		Elt: pyast.NewBin(pyast.NewName("x"), pyast.Mult, pyast.NewInt("2")),
		Generators: []*pyast.Comprehension{{
			Target: pyast.NewName("x"),
			Iter:   pyast.NewName("nums"),
			Ifs:    []pyast.Expr{pyast.NewCompare(pyast.NewName("x"), pyast.Gt, pyast.NewInt("0"))},
		}},
	}
	fn := pyast.NewFunc("pos_doubled",
		[]*pyast.Arg{pyast.NewArg("nums", pyast.NewSubscript(pyast.NewName("list"), pyast.NewName("int")))},
		pyast.NewSubscript(pyast.NewName("list"), pyast.NewName("int")),
		pyast.NewReturn(comp))
	out, _ := generate(t, fn)

	mustContain(t, out.Code, ".filter(|&x| x > 0)", ".map(|x| x * 2)", ".collect::<Vec<_>>()")
}

func TestClassWithConstructor(t *testing.T) {
	// class Point:
	//     def __init__(self, x: int, y: int):
	//         self.x = x
	//         self.y = y
	//     def norm2(self) -> int:
	//         return self.x * self.x + self.y * self.y
	init := pyast.NewFunc("__init__", []*pyast.Arg{pyast.NewArg("self", nil), intArg("x"), intArg("y")}, nil,
		&pyast.Assign{Targets: []pyast.Expr{selfAttr("x")}, Value: pyast.NewName("x")},
		&pyast.Assign{Targets: []pyast.Expr{selfAttr("y")}, Value: pyast.NewName("y")},
	)
	sq := func(f string) pyast.Expr { return pyast.NewBin(selfAttr(f), pyast.Mult, selfAttr(f)) }
	norm := pyast.NewFunc("norm2", []*pyast.Arg{pyast.NewArg("self", nil)}, pyast.NewName("int"),
		pyast.NewReturn(pyast.NewBin(sq("x"), pyast.Add, sq("y"))))
	point := &pyast.ClassDef{Name: "Point", Body: []pyast.Stmt{init, norm}}
	out, _ := generate(t, point)

	mustContain(t, out.Code,
		"pub struct Point {",
		"pub x: i32,",
		"pub fn new(x: i32, y: i32) -> Self {",
		"Self { x, y }",
		"pub fn norm2(&self) -> i32 {",
		"self.x * self.x",
	)
}

func TestUserExceptionIsAnErrorType(t *testing.T) {
	// class InsufficientFunds(Exception):
	//     pass
	// def withdraw(balance: int, amount: int) -> int:
	//     if amount > balance:
	//         raise InsufficientFunds("too much")
	//     return balance - amount
	exc := &pyast.ClassDef{Name: "InsufficientFunds", Bases: []pyast.Expr{pyast.NewName("Exception")}, Body: []pyast.Stmt{&pyast.Pass{}}}
	withdraw := pyast.NewFunc("withdraw", []*pyast.Arg{intArg("balance"), intArg("amount")}, pyast.NewName("int"),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("amount"), pyast.Gt, pyast.NewName("balance")),
			[]pyast.Stmt{&pyast.Raise{Exc: call("InsufficientFunds", pyast.NewStr("too much"))}}, nil),
		pyast.NewReturn(pyast.NewBin(pyast.NewName("balance"), pyast.Sub, pyast.NewName("amount"))),
	)
	out, _ := generate(t, exc, withdraw)

	mustContain(t, out.Code,
		"pub struct InsufficientFunds {",
		"pub message: String,",
		"impl std::error::Error for InsufficientFunds {}",
		`InsufficientFunds::new("too much")`,
		"return Err(",
	)
}

func TestTryExceptCatchesParseFailure(t *testing.T) {
	// def safe(s: str) -> int:
	//     try:
	//         return int(s)
	//     except ValueError:
	//         return 0
	try := &pyast.Try{
		Body: []pyast.Stmt{pyast.NewReturn(call("int", pyast.NewName("s")))},
		Handlers: []*pyast.ExceptHandler{{
			Type: pyast.NewName("ValueError"),
			Body: []pyast.Stmt{pyast.NewReturn(pyast.NewInt("0"))},
		}},
	}
	safe := pyast.NewFunc("safe", []*pyast.Arg{strArg("s")}, pyast.NewName("int"), try)
	out, _ := generate(t, safe)

	mustContain(t, out.Code,
		"-> Result<Option<i32>, Box<dyn std::error::Error>> {",
		"parse::<i32>()?",
		"return 0;",
	)
	if strings.Contains(out.Code, "pub fn safe(s: &str) -> Result<") {
		t.Errorf("a caught failure should not make safe fallible:\n%s", out.Code)
	}
}

func TestSimpleGeneratorBecomesStateMachine(t *testing.T) {
	// def count_up(n: int):
	//     i = 0
	//     while i < n:
	//         yield i
	//         i += 1
	loop := &pyast.While{
		Test: pyast.NewCompare(pyast.NewName("i"), pyast.Lt, pyast.NewName("n")),
		Body: []pyast.Stmt{
			pyast.NewExprStmt(&pyast.Yield{Value: pyast.NewName("i")}),
			&pyast.AugAssign{Target: pyast.NewName("i"), Op: pyast.Add, Value: pyast.NewInt("1")},
		},
	}
	gen := pyast.NewFunc("count_up", []*pyast.Arg{intArg("n")}, nil, pyast.NewAssign("i", pyast.NewInt("0")), loop)
	out, log := generate(t, gen)

	mustContain(t, out.Code,
		"pub struct CountUpState {",
		"impl Iterator for CountUpState {",
		"type Item = i32;",
		"self._resume = true;",
		"Some(self.i)",
		"impl Iterator<Item = i32>",
	)
	found := false
	for _, d := range log.Entries() {
		if d.Category == trace.DecisionGenerator {
			found = true
		}
	}
	if !found {
		t.Errorf("generator lowering was not recorded")
	}
}

func TestGeneratorWithBreakIsCollected(t *testing.T) {
	// def firsts(xs: list[int]):
	//     for x in xs:
	//         if x < 0:
	//             break
	//         yield x
	body := pyast.NewFor("x", pyast.NewName("xs"),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("x"), pyast.Lt, pyast.NewInt("0")), []pyast.Stmt{&pyast.Break{}}, nil),
		pyast.NewExprStmt(&pyast.Yield{Value: pyast.NewName("x")}),
	)
	gen := pyast.NewFunc("firsts",
		[]*pyast.Arg{pyast.NewArg("xs", pyast.NewSubscript(pyast.NewName("list"), pyast.NewName("int")))}, nil, body)
	out, _ := generate(t, gen)

	mustContain(t, out.Code, "let mut _gen: Vec<i32> = Vec::new();", "_gen.push(", "_gen.into_iter()")
	if strings.Contains(out.Code, "FirstsState") {
		t.Errorf("for-loop generators should be collected:\n%s", out.Code)
	}
}

func TestTruthinessFollowsOperandType(t *testing.T) {
	ret := func(v string) pyast.Stmt { return pyast.NewReturn(pyast.NewInt(v)) }
	optional := pyast.NewArg("o", pyast.NewSubscript(pyast.NewName("Optional"), pyast.NewName("int")))
	tests := []struct {
		name   string
		params []*pyast.Arg
		test   pyast.Stmt
		want   string
	}{
		{"str", []*pyast.Arg{strArg("s")},
			pyast.NewIf(pyast.NewName("s"), []pyast.Stmt{ret("1")}, nil), "if !s.is_empty() {"},
		{"list", []*pyast.Arg{listArg("xs", "int")},
			pyast.NewIf(pyast.NewName("xs"), []pyast.Stmt{ret("1")}, nil), "if !xs.is_empty() {"},
		{"optional", []*pyast.Arg{optional},
			pyast.NewIf(pyast.NewName("o"), []pyast.Stmt{ret("1")}, nil), "if o.is_some() {"},
		{"int while", []*pyast.Arg{intArg("n")},
			&pyast.While{Test: pyast.NewName("n"), Body: []pyast.Stmt{
				&pyast.AugAssign{Target: pyast.NewName("n"), Op: pyast.Sub, Value: pyast.NewInt("1")},
			}}, "while n != 0 {"},
		{"and", []*pyast.Arg{listArg("xs", "int"), intArg("n")},
			pyast.NewIf(&pyast.BoolOp{Op: pyast.And, Values: []pyast.Expr{pyast.NewName("xs"), pyast.NewName("n")}},
				[]pyast.Stmt{ret("1")}, nil), "if !xs.is_empty() && n != 0 {"},
		{"or", []*pyast.Arg{strArg("s"), intArg("n")},
			pyast.NewIf(&pyast.BoolOp{Op: pyast.Or, Values: []pyast.Expr{pyast.NewName("s"), pyast.NewName("n")}},
				[]pyast.Stmt{ret("1")}, nil), "if !s.is_empty() || n != 0 {"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := pyast.NewFunc("check", tt.params, pyast.NewName("int"), tt.test, ret("0"))
			out, _ := generate(t, fn)
			mustContain(t, out.Code, tt.want)
			mustNotContain(t, out.Code, "is_truthy", "DynValue")
		})
	}
}

func TestFStringSpecifiers(t *testing.T) {
	spec := func(s string) pyast.Expr { return &pyast.JoinedStr{Values: []pyast.Expr{pyast.NewStr(s)}} }
	tests := []struct {
		name string
		part *pyast.FormattedValue
		want string
	}{
		{"precision", &pyast.FormattedValue{Value: pyast.NewName("x"), Conversion: -1, FormatSpec: spec(".2f")}, `format!("{:.2}", x)`},
		{"width", &pyast.FormattedValue{Value: pyast.NewName("n"), Conversion: -1, FormatSpec: spec(">5")}, `format!("{:>5}", n)`},
		{"hex", &pyast.FormattedValue{Value: pyast.NewName("n"), Conversion: -1, FormatSpec: spec("x")}, `format!("{:x}", n)`},
		{"sign", &pyast.FormattedValue{Value: pyast.NewName("n"), Conversion: -1, FormatSpec: spec("+d")}, `format!("{:+}", n)`},
		{"percent", &pyast.FormattedValue{Value: pyast.NewName("x"), Conversion: -1, FormatSpec: spec(".1%")}, `format!("{:.1}%", x * 100.0)`},
		{"repr", &pyast.FormattedValue{Value: pyast.NewName("s"), Conversion: 'r'}, `format!("{:?}", s)`},
		{"list", &pyast.FormattedValue{Value: pyast.NewName("xs"), Conversion: -1}, `format!("{:?}", xs)`},
		{"plain", &pyast.FormattedValue{Value: pyast.NewName("n"), Conversion: -1}, `format!("{}", n)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := []*pyast.Arg{pyast.NewArg("x", pyast.NewName("float")), intArg("n"), strArg("s"), listArg("xs", "int")}
			fn := pyast.NewFunc("show", params, pyast.NewName("str"),
				pyast.NewReturn(&pyast.JoinedStr{Values: []pyast.Expr{tt.part}}))
			out, _ := generate(t, fn)
			mustContain(t, out.Code, tt.want)
		})
	}
}

func TestWalrusDeclaresBeforeUse(t *testing.T) {
	// def big(xs: list[int]) -> int:
	//     if (n := len(xs)) > 2:
	//         return n
	//     return 0
	walrus := &pyast.NamedExpr{Target: pyast.NewName("n"), Value: call("len", pyast.NewName("xs"))}
	fn := pyast.NewFunc("big", []*pyast.Arg{listArg("xs", "int")}, pyast.NewName("int"),
		pyast.NewIf(pyast.NewCompare(walrus, pyast.Gt, pyast.NewInt("2")),
			[]pyast.Stmt{pyast.NewReturn(pyast.NewName("n"))}, nil),
		pyast.NewReturn(pyast.NewInt("0")))
	out, _ := generate(t, fn)

	mustContain(t, out.Code, "let mut n: i32;", "{ n = ", "return n;")
	if strings.Index(out.Code, "let mut n: i32;") > strings.Index(out.Code, "{ n = ") {
		t.Errorf("walrus target declared after its use:\n%s", out.Code)
	}
}

func TestSortedKeyWithRuntimeReverse(t *testing.T) {
	// def order(words: list[str], desc: bool) -> list[str]:
	//     return sorted(words, key=lambda w: len(w), reverse=desc)
	sorted := call("sorted", pyast.NewName("words"))
	sorted.Keywords = []*pyast.Keyword{
		{Name: "key", Value: lambda(call("len", pyast.NewName("w")), "w")},
		{Name: "reverse", Value: pyast.NewName("desc")},
	}
	fn := pyast.NewFunc("order", []*pyast.Arg{listArg("words", "str"), pyast.NewArg("desc", pyast.NewName("bool"))},
		pyast.NewSubscript(pyast.NewName("list"), pyast.NewName("str")), pyast.NewReturn(sorted))
	out, log := generate(t, fn)

	mustContain(t, out.Code, "_s.sort_by(", "if desc { _s.reverse(); }", "_s }")
	mustNotContain(t, out.Code, "DynValue")
	if len(log.Filter(trace.DecisionMethodDispatch)) == 0 {
		t.Error("keyed sort not recorded")
	}
}

func TestLoopVariableNotVisibleAfterLoop(t *testing.T) {
	// def f() -> int:
	//     total = 0
	//     for i in range(3):
	//         total += i
	//     i = 10
	//     return total + i
	fn := pyast.NewFunc("f", nil, pyast.NewName("int"),
		pyast.NewAssign("total", pyast.NewInt("0")),
		pyast.NewFor("i", call("range", pyast.NewInt("3")),
			&pyast.AugAssign{Target: pyast.NewName("total"), Op: pyast.Add, Value: pyast.NewName("i")}),
		pyast.NewAssign("i", pyast.NewInt("10")),
		pyast.NewReturn(pyast.NewBin(pyast.NewName("total"), pyast.Add, pyast.NewName("i"))))
	out, _ := generate(t, fn)

	if !strings.Contains(out.Code, "let i = 10;") && !strings.Contains(out.Code, "let mut i = 10;") {
		t.Errorf("binding after the loop must be a fresh let:\n%s", out.Code)
	}
	mustContain(t, out.Code, "for i in ", "0..3")
}

func TestBindingsAssignedInBothArmsAreHoisted(t *testing.T) {
	// def pick(c: bool) -> int:
	//     if c:
	//         x = 1
	//     else:
	//         x = 2
	//     return x
	// def maybe(c: bool) -> int:
	//     if c:
	//         y = 1
	//     return y
	boolArg := pyast.NewArg("c", pyast.NewName("bool"))
	pick := pyast.NewFunc("pick", []*pyast.Arg{boolArg}, pyast.NewName("int"),
		pyast.NewIf(pyast.NewName("c"),
			[]pyast.Stmt{pyast.NewAssign("x", pyast.NewInt("1"))},
			[]pyast.Stmt{pyast.NewAssign("x", pyast.NewInt("2"))}),
		pyast.NewReturn(pyast.NewName("x")))
	maybe := pyast.NewFunc("maybe", []*pyast.Arg{pyast.NewArg("c", pyast.NewName("bool"))}, pyast.NewName("int"),
		pyast.NewIf(pyast.NewName("c"), []pyast.Stmt{pyast.NewAssign("y", pyast.NewInt("1"))}, nil),
		pyast.NewReturn(pyast.NewName("y")))
	out, _ := generate(t, pick, maybe)

	mustContain(t, out.Code,
		"let mut x: i32;\n    if c {",
		"        x = 1;",
		"        x = 2;",
		"let mut y: i32 = 0;",
		"        y = 1;",
	)
	mustNotContain(t, out.Code, "let mut x = 1;", "let x = 1;", "let x = 2;", "let y = 1;")
}

func TestTranslationIsIdempotent(t *testing.T) {
	src := func() []pyast.Stmt {
		dictT := pyast.NewSubscript(pyast.NewName("dict"), pyast.NewTuple(pyast.NewName("str"), pyast.NewName("int")))
		count := pyast.NewFunc("count", []*pyast.Arg{listArg("words", "str")}, dictT,
			&pyast.AnnAssign{Target: pyast.NewName("counts"), Annotation: dictT, Value: &pyast.Dict{}, Simple: true},
			pyast.NewFor("w", pyast.NewName("words"),
				&pyast.Assign{
					Targets: []pyast.Expr{pyast.NewSubscript(pyast.NewName("counts"), pyast.NewName("w"))},
					Value:   pyast.NewBin(pyast.NewMethodCall(pyast.NewName("counts"), "get", pyast.NewName("w"), pyast.NewInt("0")), pyast.Add, pyast.NewInt("1")),
				}),
			pyast.NewReturn(pyast.NewName("counts")))
		parse := pyast.NewFunc("parse", []*pyast.Arg{strArg("s")}, pyast.NewName("int"),
			pyast.NewReturn(call("int", pyast.NewName("s"))))
		point := &pyast.ClassDef{Name: "Point", Body: []pyast.Stmt{
			pyast.NewFunc("__init__", []*pyast.Arg{pyast.NewArg("self", nil), intArg("x")}, nil,
				&pyast.Assign{Targets: []pyast.Expr{selfAttr("x")}, Value: pyast.NewName("x")}),
		}}
		return []pyast.Stmt{count, parse, point, pyast.NewExprStmt(call("print", call("parse", pyast.NewStr("4"))))}
	}
	first, _ := generate(t, src()...)
	second, _ := generate(t, src()...)
	if first.Code != second.Code {
		t.Errorf("two translations differ:\n--- first\n%s\n--- second\n%s", first.Code, second.Code)
	}
	if strings.Join(first.Needs, ",") != strings.Join(second.Needs, ",") {
		t.Errorf("needs differ: %v vs %v", first.Needs, second.Needs)
	}
}

func asyncModule() []pyast.Stmt {
	// import asyncio
	// async def fetch(n: int) -> int:
	//     await asyncio.sleep(1)
	//     return n
	// async def run() -> int:
	//     return await fetch(2)
	// asyncio.run(run())
	fetch := pyast.NewFunc("fetch", []*pyast.Arg{intArg("n")}, pyast.NewName("int"),
		pyast.NewExprStmt(&pyast.Await{Value: pyast.NewMethodCall(pyast.NewName("asyncio"), "sleep", pyast.NewInt("1"))}),
		pyast.NewReturn(pyast.NewName("n")))
	fetch.IsAsync = true
	run := pyast.NewFunc("run", nil, pyast.NewName("int"),
		pyast.NewReturn(&pyast.Await{Value: call("fetch", pyast.NewInt("2"))}))
	run.IsAsync = true
	return []pyast.Stmt{
		&pyast.Import{Names: []*pyast.Alias{{Name: "asyncio"}}},
		fetch, run,
		pyast.NewExprStmt(pyast.NewMethodCall(pyast.NewName("asyncio"), "run", call("run"))),
	}
}

func TestAwaitIsEmittedOnce(t *testing.T) {
	out, _, _ := generateWith(t, rustgen.Options{}, asyncModule()...)

	mustContain(t, out.Code,
		"pub async fn fetch(n: i32) -> i32 {",
		"tokio::time::sleep(std::time::Duration::from_secs_f64(1.0)).await;",
		"fetch(2).await",
	)
	mustNotContain(t, out.Code, ".await.await", "block_on(tokio")
	if n := strings.Count(out.Code, "block_on("); n != 1 {
		t.Errorf("block_on appears %d times:\n%s", n, out.Code)
	}
}

func TestSafetyModeStripsAsync(t *testing.T) {
	out, _, _ := generateWith(t, rustgen.Options{SafetyMode: true}, asyncModule()...)

	mustContain(t, out.Code, "pub fn fetch(n: i32) -> i32 {", "std::thread::sleep(", "fetch(2)")
	mustNotContain(t, out.Code, "async fn", ".await", "block_on", "tokio::")
	for _, n := range out.Needs {
		if n == "tokio" {
			t.Errorf("safety mode still needs tokio: %v", out.Needs)
		}
	}
}

func TestLambdaParamsTypedFromUse(t *testing.T) {
	// def bump(xs: list[int]) -> list[int]:
	//     return list(map(lambda type: type + 1, xs))
	// def twice(n: int) -> int:
	//     f = lambda v: v * 2
	//     return f(n)
	bump := pyast.NewFunc("bump", []*pyast.Arg{listArg("xs", "int")}, pyast.NewSubscript(pyast.NewName("list"), pyast.NewName("int")),
		pyast.NewReturn(call("list", call("map",
			lambda(pyast.NewBin(pyast.NewName("type"), pyast.Add, pyast.NewInt("1")), "type"),
			pyast.NewName("xs")))))
	twice := pyast.NewFunc("twice", []*pyast.Arg{intArg("n")}, pyast.NewName("int"),
		pyast.NewAssign("f", lambda(pyast.NewBin(pyast.NewName("v"), pyast.Mult, pyast.NewInt("2")), "v")),
		pyast.NewReturn(call("f", pyast.NewName("n"))))
	out, bag, _ := generateWith(t, rustgen.Options{}, bump, twice)

	mustContain(t, out.Code,
		"let type_ = x;",
		"type_ + 1",
		"let f = |v: i32| v * 2;",
		"f(n)",
	)
	mustNotContain(t, out.Code, "DynValue")
	for _, d := range bag.Items() {
		if d.Code == diag.GenUnsupportedExpr || d.Code == diag.TypUnresolved {
			t.Errorf("unexpected diagnostic %v", d)
		}
	}
}

func TestOptionalContainerParamBorrowsOptional(t *testing.T) {
	// def total(xs: list[int] = None) -> int:
	//     if xs is None:
	//         return 0
	//     return len(xs)
	// def run() -> int:
	//     a = [1, 2]
	//     return total(a)
	// def empty() -> int:
	//     return total()
	total := pyast.NewFunc("total", []*pyast.Arg{listArg("xs", "int")}, pyast.NewName("int"),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("xs"), pyast.Is, pyast.NewNone()),
			[]pyast.Stmt{pyast.NewReturn(pyast.NewInt("0"))}, nil),
		pyast.NewReturn(call("len", pyast.NewName("xs"))))
	total.Args.Defaults = []pyast.Expr{pyast.NewNone()}
	run := pyast.NewFunc("run", nil, pyast.NewName("int"),
		pyast.NewAssign("a", pyast.NewList(pyast.NewInt("1"), pyast.NewInt("2"))),
		pyast.NewReturn(call("total", pyast.NewName("a"))))
	empty := pyast.NewFunc("empty", nil, pyast.NewName("int"), pyast.NewReturn(call("total")))
	out, _ := generate(t, total, run, empty)

	mustContain(t, out.Code,
		"xs: &mut Option<Vec<i32>>",
		"total(&mut Some(a))",
		"total(&mut None)",
	)
}

func TestCalleeErrorClassesReachCallerHandlers(t *testing.T) {
	// def k(n: int) -> int:
	//     if n < 0: raise KeyError("neg")
	//     if n == 0: raise ValueError("zero")
	//     return n
	// def only_value(n: int) -> int:
	//     try:
	//         return k(n)
	//     except ValueError:
	//         return 0
	n := []*pyast.Arg{intArg("n")}
	k := pyast.NewFunc("k", n, pyast.NewName("int"),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("n"), pyast.Lt, pyast.NewInt("0")),
			[]pyast.Stmt{&pyast.Raise{Exc: call("KeyError", pyast.NewStr("neg"))}}, nil),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("n"), pyast.Eq, pyast.NewInt("0")),
			[]pyast.Stmt{&pyast.Raise{Exc: call("ValueError", pyast.NewStr("zero"))}}, nil),
		pyast.NewReturn(pyast.NewName("n")))
	onlyValue := pyast.NewFunc("only_value", []*pyast.Arg{intArg("n")}, pyast.NewName("int"), &pyast.Try{
		Body:     []pyast.Stmt{pyast.NewReturn(call("k", pyast.NewName("n")))},
		Handlers: []*pyast.ExceptHandler{{Type: pyast.NewName("ValueError"), Body: []pyast.Stmt{pyast.NewReturn(pyast.NewInt("0"))}}},
	})
	out, _ := generate(t, k, onlyValue)

	mustContain(t, out.Code,
		"pub fn only_value(n: i32) -> Result<i32, KeyError> {",
		".is::<ValueError>()",
	)
}

func TestDocstringBecomesDocComment(t *testing.T) {
	fn := pyast.NewFunc("rate", []*pyast.Arg{pyast.NewArg("n", pyast.NewName("int"))}, pyast.NewName("int"),
		pyast.NewExprStmt(pyast.NewStr("Scale n to 100%.\n\nNever negative.")),
		pyast.NewReturn(pyast.NewName("n")))
	out, _, _ := generateWith(t, rustgen.Options{}, fn)
	mustContain(t, out.Code, "/// Scale n to 100%.\n///\n/// Never negative.\npub fn rate(")
	mustNotContain(t, out.Code, "%!")
}
