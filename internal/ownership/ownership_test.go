package ownership_test

import (
	"testing"

	"github.com/paiml/depyler-sub011/internal/bridge"
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/infer"
	"github.com/paiml/depyler-sub011/internal/ownership"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/trace"
)

func analyze(t *testing.T, body ...pyast.Stmt) (*hir.Module, *trace.DecisionLog) {
	t.Helper()
	bag := diag.NewBag(100)
	rep := diag.BagReporter{Bag: bag}
	log := trace.NewDecisionLog(nil, 0)
	mod := bridge.Lower(&pyast.Module{Path: "sample.py", Body: body}, nil, 0, bridge.Options{}, rep)
	infer.Infer(mod, infer.Options{Reporter: rep, Decisions: log})
	ownership.Analyze(mod, ownership.Options{Reporter: rep, Decisions: log})
	return mod, log
}

func listOf(elem string) pyast.Expr {
	return pyast.NewSubscript(pyast.NewName("list"), pyast.NewName(elem))
}

func call(name string, args ...pyast.Expr) *pyast.Call {
	return pyast.NewCall(pyast.NewName(name), args...)
}

// nameUses collects every occurrence of name in fn's body.
func nameUses(fn *hir.Func, name string) []*hir.Expr {
	var out []*hir.Expr
	hir.Inspect(fn.Body, hir.Visitor{Expr: func(e *hir.Expr) bool {
		if hir.NameOf(e) == name {
			out = append(out, e)
		}
		return true
	}})
	return out
}

func TestParamModes(t *testing.T) {
	// def upper(s: str) -> str: return s.upper()
	// def push(xs: list[int], v: int) -> None: xs.append(v)
	// def keep(name: str) -> str: return name
	upper := pyast.NewFunc("upper", []*pyast.Arg{pyast.NewArg("s", pyast.NewName("str"))}, pyast.NewName("str"),
		pyast.NewReturn(pyast.NewMethodCall(pyast.NewName("s"), "upper")))
	push := pyast.NewFunc("push", []*pyast.Arg{pyast.NewArg("xs", listOf("int")), pyast.NewArg("v", pyast.NewName("int"))}, pyast.NewNone(),
		pyast.NewExprStmt(pyast.NewMethodCall(pyast.NewName("xs"), "append", pyast.NewName("v"))))
	keep := pyast.NewFunc("keep", []*pyast.Arg{pyast.NewArg("name", pyast.NewName("str"))}, pyast.NewName("str"),
		pyast.NewReturn(pyast.NewName("name")))
	mod, log := analyze(t, upper, push, keep)

	tests := []struct {
		fn, param string
		want      hir.Ownership
	}{
		{"upper", "s", hir.OwnershipRef},
		{"push", "xs", hir.OwnershipRefMut},
		{"push", "v", hir.OwnershipCopy},
		{"keep", "name", hir.OwnershipOwn},
	}
	for _, tt := range tests {
		p := mod.Func(tt.fn).Param(tt.param)
		if p.Mode != tt.want {
			t.Errorf("%s(%s) = %s, want %s", tt.fn, tt.param, p.Mode, tt.want)
		}
	}
	if !mod.Func("push").Param("xs").Mutated {
		t.Fatal("xs should be marked mutated")
	}
	if len(log.Filter(trace.DecisionBorrowStrategy)) == 0 {
		t.Fatal("parameter modes not recorded")
	}
}

func TestMutationPropagatesToCaller(t *testing.T) {
	// def push(xs: list[int]) -> None: xs.append(1)
	// def run() -> None:
	//     items = [0]
	//     push(items)
	//     print(items)
	push := pyast.NewFunc("push", []*pyast.Arg{pyast.NewArg("xs", listOf("int"))}, pyast.NewNone(),
		pyast.NewExprStmt(pyast.NewMethodCall(pyast.NewName("xs"), "append", pyast.NewInt("1"))))
	run := pyast.NewFunc("run", nil, pyast.NewNone(),
		pyast.NewAssign("items", pyast.NewList(pyast.NewInt("0"))),
		pyast.NewExprStmt(call("push", pyast.NewName("items"))),
		pyast.NewExprStmt(call("print", pyast.NewName("items"))))
	mod, _ := analyze(t, run, push)

	fn := mod.Func("run")
	if !fn.IsMutable("items") {
		t.Fatal("items must be mutable after being passed to a mutating callee")
	}
	uses := nameUses(fn, "items")
	if len(uses) != 2 || uses[0].Use != hir.UseBorrowMut {
		t.Fatalf("argument use = %v", uses[0].Use)
	}
}

func TestMoveOnLastUseCloneOtherwise(t *testing.T) {
	// def f():
	//     a = [1, 2]
	//     b = a
	//     print(a)
	// def g():
	//     a = [1]
	//     b = a
	//     return b
	f := pyast.NewFunc("f", nil, nil,
		pyast.NewAssign("a", pyast.NewList(pyast.NewInt("1"), pyast.NewInt("2"))),
		pyast.NewAssign("b", pyast.NewName("a")),
		pyast.NewExprStmt(call("print", pyast.NewName("a"))))
	g := pyast.NewFunc("g", nil, nil,
		pyast.NewAssign("a", pyast.NewList(pyast.NewInt("1"))),
		pyast.NewAssign("b", pyast.NewName("a")),
		pyast.NewReturn(pyast.NewName("b")))
	mod, log := analyze(t, f, g)

	if u := nameUses(mod.Func("f"), "a")[0].Use; u != hir.UseClone {
		t.Fatalf("f: a = %v, want clone", u)
	}
	if u := nameUses(mod.Func("g"), "a")[0].Use; u != hir.UseMove {
		t.Fatalf("g: a = %v, want move", u)
	}
	if !mod.Func("g").Moved.Contains("a") {
		t.Fatal("moved set not recorded")
	}
	if len(log.Filter(trace.DecisionOwnership)) == 0 {
		t.Fatal("clone decision not recorded")
	}
}

func TestValueUsedInsideLoopIsCloned(t *testing.T) {
	// def h(xs: list[str]) -> list[str]:
	//     s = "a"
	//     out = []
	//     for x in xs:
	//         out.append(s)
	//     return out
	h := pyast.NewFunc("h", []*pyast.Arg{pyast.NewArg("xs", listOf("str"))}, listOf("str"),
		pyast.NewAssign("s", pyast.NewStr("a")),
		pyast.NewAssign("out", pyast.NewList()),
		pyast.NewFor("x", pyast.NewName("xs"),
			pyast.NewExprStmt(pyast.NewMethodCall(pyast.NewName("out"), "append", pyast.NewName("s")))),
		pyast.NewReturn(pyast.NewName("out")))
	mod, _ := analyze(t, h)

	fn := mod.Func("h")
	if u := nameUses(fn, "s")[0].Use; u != hir.UseClone {
		t.Fatalf("s inside loop = %v, want clone", u)
	}
	if u := nameUses(fn, "xs")[0].Use; u != hir.UseBorrow {
		t.Fatalf("borrowed parameter iterated as %v", u)
	}
	if !fn.IsMutable("out") {
		t.Fatal("out is appended to and must be mutable")
	}
}

func TestComprehensionSourceMovedOnLastUse(t *testing.T) {
	// def f() -> list[int]:
	//     nums = [1, 2, 3]
	//     result = [x * 2 for x in nums if x > 0]
	//     return result
	comp := &pyast.ListComp{
		Elt: pyast.NewBin(pyast.NewName("x"), pyast.Mult, pyast.NewInt("2")),
		Generators: []*pyast.Comprehension{{
			Target: pyast.NewName("x"),
			Iter:   pyast.NewName("nums"),
			Ifs:    []pyast.Expr{pyast.NewCompare(pyast.NewName("x"), pyast.Gt, pyast.NewInt("0"))},
		}},
	}
	f := pyast.NewFunc("f", nil, listOf("int"),
		pyast.NewAssign("nums", pyast.NewList(pyast.NewInt("1"), pyast.NewInt("2"), pyast.NewInt("3"))),
		pyast.NewAssign("result", comp),
		pyast.NewReturn(pyast.NewName("result")))
	mod, _ := analyze(t, f)

	if u := nameUses(mod.Func("f"), "nums")[0].Use; u != hir.UseMove {
		t.Fatalf("nums = %v, want move", u)
	}
}

func TestEscapingLambdaClonesCaptures(t *testing.T) {
	// def build():
	//     p = "a"
	//     f = lambda x: p + x
	//     print(p)
	//     return f
	lambda := &pyast.Lambda{
		Args: &pyast.Arguments{Args: []*pyast.Arg{pyast.NewArg("x", nil)}},
		Body: pyast.NewBin(pyast.NewName("p"), pyast.Add, pyast.NewName("x")),
	}
	build := pyast.NewFunc("build", nil, nil,
		pyast.NewAssign("p", pyast.NewStr("a")),
		pyast.NewAssign("f", lambda),
		pyast.NewExprStmt(call("print", pyast.NewName("p"))),
		pyast.NewReturn(pyast.NewName("f")))
	mod, _ := analyze(t, build)

	var l *hir.LambdaData
	hir.Inspect(mod.Func("build").Body, hir.Visitor{Expr: func(e *hir.Expr) bool {
		if d, ok := e.Data.(*hir.LambdaData); ok {
			l = d
		}
		return true
	}})
	if l == nil || !l.Move {
		t.Fatal("stored lambda must capture by move")
	}
	if len(l.Captures) != 1 || l.Captures[0] != "p" {
		t.Fatalf("captures = %v", l.Captures)
	}
}

func TestMutatingMethodMarksSelf(t *testing.T) {
	// class Tally:
	//     def __init__(self): self.n = 0
	//     def bump(self) -> None: self.n += 1
	//     def get(self) -> int: return self.n
	self := pyast.NewName("self")
	cls := &pyast.ClassDef{Name: "Tally", Body: []pyast.Stmt{
		pyast.NewFunc("__init__", []*pyast.Arg{pyast.NewArg("self", nil)}, nil,
			&pyast.Assign{Targets: []pyast.Expr{pyast.NewAttr(self, "n")}, Value: pyast.NewInt("0")}),
		pyast.NewFunc("bump", []*pyast.Arg{pyast.NewArg("self", nil)}, pyast.NewNone(),
			&pyast.AugAssign{Target: pyast.NewAttr(self, "n"), Op: pyast.Add, Value: pyast.NewInt("1")}),
		pyast.NewFunc("get", []*pyast.Arg{pyast.NewArg("self", nil)}, pyast.NewName("int"),
			pyast.NewReturn(pyast.NewAttr(self, "n"))),
	}}
	mod, _ := analyze(t, cls)

	c := mod.Class("Tally")
	if !c.Method("bump").Flags.HasFlag(hir.FuncMutSelf) {
		t.Fatal("bump mutates self")
	}
	if c.Method("get").Flags.HasFlag(hir.FuncMutSelf) {
		t.Fatal("get only reads self")
	}
}

func TestIsMutatingMethod(t *testing.T) {
	if ownership.IsMutatingMethod(nil, "upper") {
		t.Fatal("upper does not mutate")
	}
	if !ownership.IsMutatingMethod(nil, "append") {
		t.Fatal("append mutates")
	}
}

func TestOptionalContainerDefaultIsBorrowedExclusively(t *testing.T) {
	// def total(xs: list[int] = None) -> int:
	//     if xs is None:
	//         return 0
	//     return len(xs)
	// def run() -> int:
	//     a = [1, 2]
	//     return total(a)
	total := pyast.NewFunc("total", []*pyast.Arg{pyast.NewArg("xs", listOf("int"))}, pyast.NewName("int"),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("xs"), pyast.Is, pyast.NewNone()),
			[]pyast.Stmt{pyast.NewReturn(pyast.NewInt("0"))}, nil),
		pyast.NewReturn(call("len", pyast.NewName("xs"))))
	total.Args.Defaults = []pyast.Expr{pyast.NewNone()}
	run := pyast.NewFunc("run", nil, pyast.NewName("int"),
		pyast.NewAssign("a", pyast.NewList(pyast.NewInt("1"), pyast.NewInt("2"))),
		pyast.NewReturn(call("total", pyast.NewName("a"))))
	mod, log := analyze(t, total, run)

	p := mod.Func("total").Param("xs")
	if p.Type.String() != "list[int] | None" {
		t.Fatalf("xs = %s", p.Type)
	}
	if p.Mode != hir.OwnershipRefMut {
		t.Fatalf("xs mode = %s, want exclusive borrow", p.Mode)
	}
	uses := nameUses(mod.Func("run"), "a")
	if len(uses) != 1 || uses[0].Use != hir.UseMove {
		t.Fatalf("a is wrapped in a fresh Some and must move, got %v", uses[0].Use)
	}
	found := false
	for _, d := range log.Filter(trace.DecisionBorrowStrategy) {
		if d.Reason == "optional container defaulting to None" {
			found = true
		}
	}
	if !found {
		t.Error("borrow of the optional container not recorded")
	}
}
