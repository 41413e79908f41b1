package infer_test

import (
	"testing"

	"github.com/paiml/depyler-sub011/internal/bridge"
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/infer"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

func typed(t *testing.T, body ...pyast.Stmt) (*hir.Module, *diag.Bag, *trace.DecisionLog) {
	t.Helper()
	bag := diag.NewBag(100)
	log := trace.NewDecisionLog(nil, 0)
	rep := diag.BagReporter{Bag: bag}
	mod := bridge.Lower(&pyast.Module{Path: "sample.py", Body: body}, nil, 0, bridge.Options{Decisions: log}, rep)
	infer.Infer(mod, infer.Options{Reporter: rep, Decisions: log})
	return mod, bag, log
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func call(name string, args ...pyast.Expr) *pyast.Call {
	return pyast.NewCall(pyast.NewName(name), args...)
}

func kwCall(recv pyast.Expr, method string, args []pyast.Expr, kws ...*pyast.Keyword) *pyast.Call {
	c := pyast.NewMethodCall(recv, method, args...)
	c.Keywords = kws
	return c
}

func TestParamsTypedFromCallSites(t *testing.T) {
	// def double(x): return x * 2
	// print(double(3))
	double := pyast.NewFunc("double", []*pyast.Arg{pyast.NewArg("x", nil)}, nil,
		pyast.NewReturn(pyast.NewBin(pyast.NewName("x"), pyast.Mult, pyast.NewInt("2"))))
	mod, _, _ := typed(t, double, pyast.NewExprStmt(call("print", call("double", pyast.NewInt("3")))))

	fn := mod.Func("double")
	if !fn.Params[0].Type.Equal(types.Int) {
		t.Fatalf("x = %s, want int", fn.Params[0].Type)
	}
	if !fn.Result.Equal(types.Int) {
		t.Fatalf("result = %s, want int", fn.Result)
	}
	if v := hir.Verify(mod, hir.VerifyOptions{Typed: true}); len(v) != 0 {
		t.Fatalf("verify: %v", v)
	}
}

func TestReturnsOptional(t *testing.T) {
	// def find(xs: list[int], target: int):
	//     for x in xs:
	//         if x == target:
	//             return x
	//     return None
	loop := pyast.NewFor("x", pyast.NewName("xs"),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("x"), pyast.Eq, pyast.NewName("target")),
			[]pyast.Stmt{pyast.NewReturn(pyast.NewName("x"))}, nil))
	find := pyast.NewFunc("find",
		[]*pyast.Arg{
			pyast.NewArg("xs", pyast.NewSubscript(pyast.NewName("list"), pyast.NewName("int"))),
			pyast.NewArg("target", pyast.NewName("int")),
		}, nil, loop, pyast.NewReturn(pyast.NewNone()))
	mod, _, log := typed(t, find)

	fn := mod.Func("find")
	if fn.Result.String() != "int | None" {
		t.Fatalf("result = %s", fn.Result)
	}
	if !fn.Flags.HasFlag(hir.FuncReturnsOptional) {
		t.Fatalf("flags = %s", fn.Flags)
	}
	if len(log.Filter(trace.DecisionTypeMapping)) == 0 {
		t.Fatal("optional return not recorded")
	}
}

func TestCanFailPropagation(t *testing.T) {
	// def parse(s: str) -> int: return int(s)
	// def total(a: str) -> int: return parse(a) + 1
	// def safe(a: str) -> int:
	//     try: return parse(a)
	//     except ValueError: return 0
	str := pyast.NewName("str")
	intT := pyast.NewName("int")
	parse := pyast.NewFunc("parse", []*pyast.Arg{pyast.NewArg("s", str)}, intT,
		pyast.NewReturn(call("int", pyast.NewName("s"))))
	total := pyast.NewFunc("total", []*pyast.Arg{pyast.NewArg("a", str)}, intT,
		pyast.NewReturn(pyast.NewBin(call("parse", pyast.NewName("a")), pyast.Add, pyast.NewInt("1"))))
	safe := pyast.NewFunc("safe", []*pyast.Arg{pyast.NewArg("a", str)}, intT,
		&pyast.Try{
			Body: []pyast.Stmt{pyast.NewReturn(call("parse", pyast.NewName("a")))},
			Handlers: []*pyast.ExceptHandler{{
				Type: pyast.NewName("ValueError"),
				Body: []pyast.Stmt{pyast.NewReturn(pyast.NewInt("0"))},
			}},
		})
	mod, _, _ := typed(t, parse, total, safe)

	tests := []struct {
		name    string
		canFail bool
	}{
		{"parse", true},
		{"total", true},
		{"safe", false},
	}
	for _, tt := range tests {
		fn := mod.Func(tt.name)
		if fn.CanFail() != tt.canFail {
			t.Errorf("%s: can-fail = %v, want %v", tt.name, fn.CanFail(), tt.canFail)
		}
		if tt.canFail && fn.ErrorType != infer.BoxedError {
			t.Errorf("%s: error type = %q", tt.name, fn.ErrorType)
		}
	}
}

func TestRaisedClassBecomesErrorType(t *testing.T) {
	// class AppError(Exception): pass
	// def check(n: int) -> int:
	//     if n < 0: raise ValueError("negative")
	//     return n
	// def run() -> None: raise AppError("boom")
	// def guarded() -> None:
	//     try: run()
	//     except Exception: pass
	appErr := &pyast.ClassDef{Name: "AppError", Bases: []pyast.Expr{pyast.NewName("Exception")}, Body: []pyast.Stmt{&pyast.Pass{}}}
	check := pyast.NewFunc("check", []*pyast.Arg{pyast.NewArg("n", pyast.NewName("int"))}, pyast.NewName("int"),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("n"), pyast.Lt, pyast.NewInt("0")),
			[]pyast.Stmt{&pyast.Raise{Exc: call("ValueError", pyast.NewStr("negative"))}}, nil),
		pyast.NewReturn(pyast.NewName("n")))
	run := pyast.NewFunc("run", nil, pyast.NewNone(), &pyast.Raise{Exc: call("AppError", pyast.NewStr("boom"))})
	guarded := pyast.NewFunc("guarded", nil, pyast.NewNone(), &pyast.Try{
		Body:     []pyast.Stmt{pyast.NewExprStmt(call("run"))},
		Handlers: []*pyast.ExceptHandler{{Type: pyast.NewName("Exception"), Body: []pyast.Stmt{&pyast.Pass{}}}},
	})
	mod, _, _ := typed(t, appErr, check, run, guarded)

	c := mod.Func("check")
	if !c.CanFail() || c.ErrorType != "ValueError" {
		t.Fatalf("check: can-fail=%v error=%q", c.CanFail(), c.ErrorType)
	}
	if len(c.Raises) != 1 || c.Raises[0] != "ValueError" {
		t.Fatalf("check raises %v", c.Raises)
	}
	if r := mod.Func("run"); r.ErrorType != "AppError" {
		t.Fatalf("run error = %q", r.ErrorType)
	}
	if mod.Func("guarded").CanFail() {
		t.Fatal("handler for Exception must stop propagation")
	}
}

func TestCalleeClassesSurviveNarrowHandler(t *testing.T) {
	// def k(n: int) -> int:
	//     if n < 0: raise KeyError("neg")
	//     if n == 0: raise ValueError("zero")
	//     return n
	// def only_value(n: int) -> int:
	//     try: return k(n)
	//     except ValueError: return 0
	// def both(n: int) -> int:
	//     try: return k(n)
	//     except (KeyError, ValueError): return 0
	intT := pyast.NewName("int")
	n := []*pyast.Arg{pyast.NewArg("n", intT)}
	k := pyast.NewFunc("k", n, intT,
		pyast.NewIf(pyast.NewCompare(pyast.NewName("n"), pyast.Lt, pyast.NewInt("0")),
			[]pyast.Stmt{&pyast.Raise{Exc: call("KeyError", pyast.NewStr("neg"))}}, nil),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("n"), pyast.Eq, pyast.NewInt("0")),
			[]pyast.Stmt{&pyast.Raise{Exc: call("ValueError", pyast.NewStr("zero"))}}, nil),
		pyast.NewReturn(pyast.NewName("n")))
	guard := func(name string, exc pyast.Expr) *pyast.FunctionDef {
		return pyast.NewFunc(name, n, intT, &pyast.Try{
			Body:     []pyast.Stmt{pyast.NewReturn(call("k", pyast.NewName("n")))},
			Handlers: []*pyast.ExceptHandler{{Type: exc, Body: []pyast.Stmt{pyast.NewReturn(pyast.NewInt("0"))}}},
		})
	}
	mod, _, _ := typed(t, k,
		guard("only_value", pyast.NewName("ValueError")),
		guard("both", pyast.NewTuple(pyast.NewName("KeyError"), pyast.NewName("ValueError"))))

	if fn := mod.Func("k"); fn.ErrorType != infer.BoxedError || len(fn.Raises) != 2 {
		t.Fatalf("k: error=%q raises=%v", fn.ErrorType, fn.Raises)
	}
	ov := mod.Func("only_value")
	if !ov.CanFail() {
		t.Fatal("except ValueError must not swallow KeyError")
	}
	if ov.ErrorType != "KeyError" {
		t.Errorf("only_value error = %q, want KeyError", ov.ErrorType)
	}
	if len(ov.Raises) != 1 || ov.Raises[0] != "KeyError" {
		t.Errorf("only_value raises %v", ov.Raises)
	}
	if mod.Func("both").CanFail() {
		t.Error("handler naming both classes must stop propagation")
	}
}

func TestEntryNeverFails(t *testing.T) {
	// print(int(input()))
	mod, _, _ := typed(t, pyast.NewExprStmt(call("print", call("int", call("input")))))
	main := mod.Func("main")
	if main == nil || main.CanFail() {
		t.Fatal("entry function must not be fallible")
	}
}

func TestContainerRefinedFromUse(t *testing.T) {
	// def build():
	//     xs = []
	//     xs.append(1)
	//     counts = {}
	//     counts["a"] = 2
	//     return xs
	build := pyast.NewFunc("build", nil, nil,
		pyast.NewAssign("xs", pyast.NewList()),
		pyast.NewExprStmt(pyast.NewMethodCall(pyast.NewName("xs"), "append", pyast.NewInt("1"))),
		pyast.NewAssign("counts", &pyast.Dict{}),
		&pyast.Assign{Targets: []pyast.Expr{pyast.NewSubscript(pyast.NewName("counts"), pyast.NewStr("a"))}, Value: pyast.NewInt("2")},
		pyast.NewReturn(pyast.NewName("xs")))
	mod, _, _ := typed(t, build)

	fn := mod.Func("build")
	if got := fn.Locals["xs"].String(); got != "list[int]" {
		t.Fatalf("xs = %s", got)
	}
	if got := fn.Locals["counts"].String(); got != "dict[str, int]" {
		t.Fatalf("counts = %s", got)
	}
	if got := fn.Result.String(); got != "list[int]" {
		t.Fatalf("result = %s", got)
	}
}

func TestBareContainerReturnRefinedFromBody(t *testing.T) {
	// def tally(words: list[str]) -> dict:
	//     counts = {}
	//     for w in words:
	//         counts[w] = 1
	//     return counts
	// def names() -> list:
	//     return ["a"]
	tally := pyast.NewFunc("tally",
		[]*pyast.Arg{pyast.NewArg("words", pyast.NewSubscript(pyast.NewName("list"), pyast.NewName("str")))},
		pyast.NewName("dict"),
		pyast.NewAssign("counts", &pyast.Dict{}),
		pyast.NewFor("w", pyast.NewName("words"),
			&pyast.Assign{Targets: []pyast.Expr{pyast.NewSubscript(pyast.NewName("counts"), pyast.NewName("w"))}, Value: pyast.NewInt("1")}),
		pyast.NewReturn(pyast.NewName("counts")))
	names := pyast.NewFunc("names", nil, pyast.NewName("list"), pyast.NewReturn(pyast.NewList(pyast.NewStr("a"))))
	mod, _, _ := typed(t, tally, names)

	tests := []struct {
		fn, want string
	}{
		{"tally", "dict[str, int]"},
		{"names", "list[str]"},
	}
	for _, tt := range tests {
		if got := mod.Func(tt.fn).Result.String(); got != tt.want {
			t.Errorf("%s result = %s, want %s", tt.fn, got, tt.want)
		}
	}
}

func TestWideningIsReportedOnce(t *testing.T) {
	// def f():
	//     x = 1
	//     x = "a"
	f := pyast.NewFunc("f", nil, nil,
		pyast.NewAssign("x", pyast.NewInt("1")),
		pyast.NewAssign("x", pyast.NewStr("a")))
	mod, bag, _ := typed(t, f)

	if !mod.Func("f").Locals["x"].IsDynamic() {
		t.Fatalf("x = %s, want dynamic", mod.Func("f").Locals["x"])
	}
	n := 0
	for _, d := range bag.Items() {
		if d.Code == diag.TypWidened {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("got %d widening reports, want 1", n)
	}
}

func TestUnusedParamFallsBackToDynamic(t *testing.T) {
	// def ident(x): return x
	ident := pyast.NewFunc("ident", []*pyast.Arg{pyast.NewArg("x", nil)}, nil, pyast.NewReturn(pyast.NewName("x")))
	mod, bag, _ := typed(t, ident)

	if p := mod.Func("ident").Params[0]; p.Type.Kind != types.KindDynamic {
		t.Fatalf("x = %s", p.Type)
	}
	if !hasCode(bag, diag.TypDynamicFallback) {
		t.Fatal("fallback not reported")
	}
}

func TestStdlibCallTypes(t *testing.T) {
	// import re, hashlib
	// def digest(s: str):
	//     h = hashlib.sha256()
	//     m = re.match("a+", s)
	//     return h.hexdigest()
	imp := &pyast.Import{Names: []*pyast.Alias{{Name: "re"}, {Name: "hashlib"}}}
	fn := pyast.NewFunc("digest", []*pyast.Arg{pyast.NewArg("s", pyast.NewName("str"))}, nil,
		pyast.NewAssign("h", pyast.NewMethodCall(pyast.NewName("hashlib"), "sha256")),
		pyast.NewAssign("m", pyast.NewMethodCall(pyast.NewName("re"), "match", pyast.NewStr("a+"), pyast.NewName("s"))),
		pyast.NewReturn(pyast.NewMethodCall(pyast.NewName("h"), "hexdigest")))
	mod, _, _ := typed(t, imp, fn)

	got := mod.Func("digest")
	if h := got.Locals["h"]; types.HashAlgo(h) != "sha256" {
		t.Fatalf("h = %s", h)
	}
	if m := got.Locals["m"]; m.Kind != types.KindOptional || !m.Elem.IsExtern(types.ExtMatch) {
		t.Fatalf("m = %s", m)
	}
	if !got.Result.Equal(types.Str) {
		t.Fatalf("result = %s", got.Result)
	}
	if !got.CanFail() {
		t.Fatal("re.match compiles a pattern and can fail")
	}
}

func TestArgparseNamespaceFields(t *testing.T) {
	// import argparse
	// parser = argparse.ArgumentParser()
	// parser.add_argument("--verbose", action="store_true")
	// parser.add_argument("--count", type=int, default=1)
	// parser.add_argument("--out-file")
	// parser.add_argument("name")
	// args = parser.parse_args()
	// verbose = args.verbose; count = args.count; out = args.out_file; name = args.name
	parser := pyast.NewName("parser")
	args := pyast.NewName("args")
	mod, _, _ := typed(t,
		&pyast.Import{Names: []*pyast.Alias{{Name: "argparse"}}},
		pyast.NewAssign("parser", pyast.NewMethodCall(pyast.NewName("argparse"), "ArgumentParser")),
		pyast.NewExprStmt(kwCall(parser, "add_argument", []pyast.Expr{pyast.NewStr("--verbose")},
			&pyast.Keyword{Name: "action", Value: pyast.NewStr("store_true")})),
		pyast.NewExprStmt(kwCall(parser, "add_argument", []pyast.Expr{pyast.NewStr("--count")},
			&pyast.Keyword{Name: "type", Value: pyast.NewName("int")},
			&pyast.Keyword{Name: "default", Value: pyast.NewInt("1")})),
		pyast.NewExprStmt(kwCall(parser, "add_argument", []pyast.Expr{pyast.NewStr("--out-file")})),
		pyast.NewExprStmt(kwCall(parser, "add_argument", []pyast.Expr{pyast.NewStr("name")})),
		pyast.NewAssign("args", pyast.NewMethodCall(parser, "parse_args")),
		pyast.NewAssign("verbose", pyast.NewAttr(args, "verbose")),
		pyast.NewAssign("count", pyast.NewAttr(args, "count")),
		pyast.NewAssign("out", pyast.NewAttr(args, "out_file")),
		pyast.NewAssign("name", pyast.NewAttr(args, "name")),
	)
	main := mod.Func("main")
	tests := []struct {
		local string
		want  string
	}{
		{"verbose", "bool"},
		{"count", "int"},
		{"out", "str | None"},
		{"name", "str"},
	}
	for _, tt := range tests {
		if got := main.Locals[tt.local]; got == nil || got.String() != tt.want {
			t.Errorf("%s = %v, want %s", tt.local, got, tt.want)
		}
	}
}

func TestArgDest(t *testing.T) {
	tests := []struct {
		flags []string
		dest  string
		want  string
	}{
		{[]string{"-v", "--verbose"}, "", "verbose"},
		{[]string{"--dry-run"}, "", "dry_run"},
		{[]string{"-n"}, "", "n"},
		{[]string{"input"}, "", "input"},
		{[]string{"--x"}, "target", "target"},
	}
	for _, tt := range tests {
		if got := infer.ArgDest(tt.flags, tt.dest); got != tt.want {
			t.Errorf("ArgDest(%v, %q) = %q, want %q", tt.flags, tt.dest, got, tt.want)
		}
	}
}
