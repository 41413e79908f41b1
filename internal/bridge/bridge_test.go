package bridge_test

import (
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/bridge"
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

func lower(t *testing.T, body ...pyast.Stmt) (*hir.Module, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(100)
	mod := bridge.Lower(&pyast.Module{Path: "sample.py", Body: body}, nil, 0, bridge.Options{}, diag.BagReporter{Bag: bag})
	return mod, bag
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestLowerFunctionSignature(t *testing.T) {
	fn := pyast.NewFunc("add",
		[]*pyast.Arg{pyast.NewArg("a", pyast.NewName("int")), pyast.NewArg("b", pyast.NewName("int"))},
		pyast.NewName("int"),
		pyast.NewReturn(pyast.NewBin(pyast.NewName("a"), pyast.Add, pyast.NewName("b"))),
	)
	mod, bag := lower(t, fn)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if mod.Name != "sample" {
		t.Fatalf("module name = %q", mod.Name)
	}
	got := mod.Func("add")
	if got == nil {
		t.Fatal("add not lowered")
	}
	if len(got.Params) != 2 || !got.Params[0].Type.Equal(types.Int) || !got.Params[0].Declared {
		t.Fatalf("params = %+v", got.Params)
	}
	if !got.Result.Equal(types.Int) || !got.Declared {
		t.Fatalf("result = %v", got.Result)
	}
	ret := got.Body.Stmts[0].Data.(*hir.ReturnData)
	if bin, ok := ret.Value.Data.(*hir.BinaryData); !ok || bin.Op != hir.OpAdd {
		t.Fatalf("return value = %#v", ret.Value.Data)
	}
	if len(mod.Entry.Stmts) != 0 || mod.Func("main") != nil {
		t.Fatal("library module must not get an entry function")
	}
}

func TestAnnotationTypes(t *testing.T) {
	optional := pyast.NewSubscript(pyast.NewName("Optional"), pyast.NewName("str"))
	dict := pyast.NewSubscript(pyast.NewName("Dict"), pyast.NewTuple(pyast.NewName("str"), pyast.NewSubscript(pyast.NewName("List"), pyast.NewName("int"))))
	union := pyast.NewBin(pyast.NewName("int"), pyast.BitOr, pyast.NewNone())
	fn := pyast.NewFunc("f",
		[]*pyast.Arg{pyast.NewArg("a", optional), pyast.NewArg("b", dict), pyast.NewArg("c", union), pyast.NewArg("d", pyast.NewName("Any"))},
		pyast.NewSubscript(pyast.NewName("Iterator"), pyast.NewName("int")),
		&pyast.Pass{},
	)
	mod, _ := lower(t, fn)
	ps := mod.Func("f").Params
	tests := []struct {
		got  *types.Type
		want string
	}{
		{ps[0].Type, "str | None"},
		{ps[1].Type, "dict[str, list[int]]"},
		{ps[2].Type, "int | None"},
		{ps[3].Type, "Any"},
		{mod.Func("f").Result, "Iterator[int]"},
	}
	for i, tt := range tests {
		if tt.got.String() != tt.want {
			t.Errorf("case %d: got %s, want %s", i, tt.got, tt.want)
		}
	}
}

func TestChainedComparisonBecomesConjunction(t *testing.T) {
	cmp := &pyast.Compare{
		Left:        pyast.NewInt("0"),
		Ops:         []pyast.CmpOperator{pyast.LtE, pyast.Lt},
		Comparators: []pyast.Expr{pyast.NewName("x"), pyast.NewInt("10")},
	}
	fn := pyast.NewFunc("in_range", []*pyast.Arg{pyast.NewArg("x", pyast.NewName("int"))}, pyast.NewName("bool"), pyast.NewReturn(cmp))
	mod, _ := lower(t, fn)
	ret := mod.Func("in_range").Body.Stmts[0].Data.(*hir.ReturnData)
	and, ok := ret.Value.Data.(*hir.BinaryData)
	if !ok || and.Op != hir.OpAnd {
		t.Fatalf("expected conjunction, got %#v", ret.Value.Data)
	}
	left := and.Left.Data.(*hir.BinaryData)
	right := and.Right.Data.(*hir.BinaryData)
	if left.Op != hir.OpLtE || right.Op != hir.OpLt || hir.NameOf(right.Left) != "x" {
		t.Fatalf("chain lowered wrong: %v %v", left.Op, right.Op)
	}
}

func TestForElseUsesLabelledBlock(t *testing.T) {
	loop := pyast.NewFor("x", pyast.NewName("items"),
		pyast.NewIf(pyast.NewCompare(pyast.NewName("x"), pyast.Eq, pyast.NewName("target")),
			[]pyast.Stmt{pyast.NewReturn(pyast.NewBool(true)), &pyast.Break{}}, nil),
	)
	loop.Orelse = []pyast.Stmt{pyast.NewReturn(pyast.NewBool(false))}
	fn := pyast.NewFunc("find",
		[]*pyast.Arg{pyast.NewArg("items", pyast.NewSubscript(pyast.NewName("list"), pyast.NewName("int"))), pyast.NewArg("target", pyast.NewName("int"))},
		pyast.NewName("bool"), loop, pyast.NewReturn(pyast.NewBool(true)))
	mod, _ := lower(t, fn)
	f := mod.Func("find")
	blk, ok := f.Body.Stmts[0].Data.(*hir.BlockData)
	if !ok || blk.Label == "" {
		t.Fatalf("expected labelled block, got %#v", f.Body.Stmts[0].Data)
	}
	if len(blk.Body.Stmts) != 2 || blk.Body.Stmts[0].Kind != hir.StmtFor || blk.Body.Stmts[1].Kind != hir.StmtReturn {
		t.Fatalf("labelled block body = %v", blk.Body.Stmts)
	}
	var breakLabel string
	hir.Inspect(f.Body, hir.Visitor{Stmt: func(s *hir.Stmt) bool {
		if s.Kind == hir.StmtBreak {
			breakLabel = s.Data.(*hir.BranchData).Label
		}
		return true
	}})
	if breakLabel != blk.Label {
		t.Fatalf("break label %q, block label %q", breakLabel, blk.Label)
	}
	if v := hir.Verify(mod, hir.VerifyOptions{}); len(v) != 0 {
		t.Fatalf("verify: %v", v)
	}
}

func TestScriptEntryAndGlobals(t *testing.T) {
	// LIMIT = 10
	// cache = {}
	// def get(k: str) -> int:
	//     global cache
	//     return cache.get(k, LIMIT)
	// print(get("a"))
	get := pyast.NewFunc("get", []*pyast.Arg{pyast.NewArg("k", pyast.NewName("str"))}, pyast.NewName("int"),
		&pyast.Global{Names: []string{"cache"}},
		pyast.NewReturn(pyast.NewMethodCall(pyast.NewName("cache"), "get", pyast.NewName("k"), pyast.NewName("LIMIT"))),
	)
	mod, _ := lower(t,
		pyast.NewAssign("LIMIT", pyast.NewInt("10")),
		pyast.NewAssign("cache", &pyast.Dict{}),
		pyast.NewAssign("unused", pyast.NewInt("3")),
		get,
		pyast.NewExprStmt(pyast.NewCall(pyast.NewName("print"), pyast.NewCall(pyast.NewName("get"), pyast.NewStr("a")))),
	)
	if g := mod.Global("LIMIT"); g == nil || g.Kind != hir.GlobalConst {
		t.Fatalf("LIMIT = %+v", g)
	}
	if g := mod.Global("cache"); g == nil || g.Kind != hir.GlobalMutable {
		t.Fatalf("cache = %+v", g)
	}
	if mod.Global("unused") != nil {
		t.Fatal("name only used at top level must stay an entry local")
	}
	if !mod.Func("get").Globals.Contains("cache") {
		t.Fatal("global declaration not recorded")
	}
	main := mod.Func("main")
	if main == nil || !main.Flags.HasFlag(hir.FuncEntry) {
		t.Fatal("entry function not synthesized")
	}
	if len(main.Body.Stmts) != 2 {
		t.Fatalf("entry has %d statements, want 2", len(main.Body.Stmts))
	}
}

func TestUserMainAndGuard(t *testing.T) {
	userMain := pyast.NewFunc("main", nil, pyast.NewNone(), pyast.NewExprStmt(pyast.NewCall(pyast.NewName("print"), pyast.NewStr("hi"))))
	guard := pyast.NewIf(pyast.NewCompare(pyast.NewName("__name__"), pyast.Eq, pyast.NewStr("__main__")),
		[]pyast.Stmt{pyast.NewExprStmt(pyast.NewCall(pyast.NewName("main")))}, nil)

	mod, _ := lower(t, userMain, guard)
	if len(mod.Funcs) != 1 || mod.Funcs[0].Name != "main" || mod.Funcs[0].Flags.HasFlag(hir.FuncEntry) {
		t.Fatalf("guard calling main should reuse the user main, got %d funcs", len(mod.Funcs))
	}

	setup := pyast.NewExprStmt(pyast.NewCall(pyast.NewName("print"), pyast.NewStr("setup")))
	guard.Body = []pyast.Stmt{setup, pyast.NewExprStmt(pyast.NewCall(pyast.NewName("main")))}
	mod, _ = lower(t, userMain, guard)
	if mod.Func("main_impl") == nil {
		t.Fatal("user main should be renamed when the entry has other code")
	}
	entry := mod.Func("main")
	if entry == nil || !entry.Flags.HasFlag(hir.FuncEntry) {
		t.Fatal("entry function missing")
	}
	last := entry.Body.Stmts[len(entry.Body.Stmts)-1].Data.(*hir.ExprStmtData)
	if call := last.Value.Data.(*hir.CallData); call.Func != "main_impl" {
		t.Fatalf("entry calls %q", call.Func)
	}
}

func TestImportResolution(t *testing.T) {
	log := trace.NewDecisionLog(nil, 0)
	imp := &pyast.Import{Names: []*pyast.Alias{{Name: "os"}, {Name: "leftpad"}}}
	fn := pyast.NewFunc("exists", []*pyast.Arg{pyast.NewArg("p", pyast.NewName("str"))}, pyast.NewName("bool"),
		pyast.NewReturn(pyast.NewMethodCall(pyast.NewAttr(pyast.NewName("os"), "path"), "exists", pyast.NewName("p"))))
	bag := diag.NewBag(10)
	mod := bridge.Lower(&pyast.Module{Path: "m.py", Body: []pyast.Stmt{imp, fn}}, nil, 0,
		bridge.Options{Decisions: log}, diag.BagReporter{Bag: bag})

	if !hasCode(bag, diag.UnsImport) {
		t.Fatal("unknown module should be reported")
	}
	if mod.Import("os") == nil || !mod.Import("os").Resolved || mod.Import("leftpad").Resolved {
		t.Fatal("import resolution flags wrong")
	}
	ret := mod.Func("exists").Body.Stmts[0].Data.(*hir.ReturnData)
	call := ret.Value.Data.(*hir.MethodCallData)
	if call.Module == nil || call.Module.Module != "os.path" || call.Module.Path != "std::path" {
		t.Fatalf("module call resolved to %+v", call.Module)
	}
	found := false
	for _, e := range log.Entries() {
		if e.Category == trace.DecisionImportResolve && strings.HasPrefix(e.Choice, "os.path") {
			found = true
		}
	}
	if !found {
		t.Fatal("implicit os.path import not recorded")
	}
}

func TestUnsupportedConstructsAreReported(t *testing.T) {
	tests := []struct {
		name string
		stmt pyast.Stmt
		code diag.Code
	}{
		{"eval", pyast.NewExprStmt(pyast.NewCall(pyast.NewName("eval"), pyast.NewStr("1"))), diag.UnsReflection},
		{"setattr", pyast.NewExprStmt(pyast.NewCall(pyast.NewName("setattr"), pyast.NewName("o"), pyast.NewStr("a"), pyast.NewInt("1"))), diag.UnsAttrMutation},
		{"star-args", pyast.NewExprStmt(pyast.NewCall(pyast.NewName("f"), &pyast.Starred{Value: pyast.NewName("xs")})), diag.UnsStarArgs},
		{"overflow", pyast.NewAssign("big", pyast.NewInt("123456789012345678901234567890")), diag.TypIntLiteralOverflow},
		{"match", &pyast.BadStmt{Kind: "Match"}, diag.UnsStatement},
		{"metaclass", &pyast.ClassDef{Name: "M", Keywords: []*pyast.Keyword{{Name: "metaclass", Value: pyast.NewName("ABCMeta")}}}, diag.UnsMetaclass},
		{"multiple-inheritance", &pyast.ClassDef{Name: "C", Bases: []pyast.Expr{pyast.NewName("A"), pyast.NewName("B")}}, diag.UnsMultipleInheritance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bag := lower(t, tt.stmt)
			if !hasCode(bag, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code.ID(), bag.Items())
			}
		})
	}
}

func TestClassLowering(t *testing.T) {
	// @dataclass
	// class Point:
	//     x: int
	//     y: int = 0
	//     def norm(self) -> int: return self.x
	//     @staticmethod
	//     def origin() -> "Point": return Point(0, 0)
	norm := pyast.NewFunc("norm", []*pyast.Arg{pyast.NewArg("self", nil)}, pyast.NewName("int"),
		pyast.NewReturn(pyast.NewAttr(pyast.NewName("self"), "x")))
	origin := pyast.NewFunc("origin", nil, pyast.NewStr("Point"),
		pyast.NewReturn(pyast.NewCall(pyast.NewName("Point"), pyast.NewInt("0"), pyast.NewInt("0"))))
	origin.Decorators = []pyast.Expr{pyast.NewName("staticmethod")}
	cls := &pyast.ClassDef{
		Name:       "Point",
		Decorators: []pyast.Expr{pyast.NewName("dataclass")},
		Body: []pyast.Stmt{
			&pyast.AnnAssign{Target: pyast.NewName("x"), Annotation: pyast.NewName("int")},
			&pyast.AnnAssign{Target: pyast.NewName("y"), Annotation: pyast.NewName("int"), Value: pyast.NewInt("0")},
			norm, origin,
		},
	}
	mod, bag := lower(t, cls)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	c := mod.Class("Point")
	if c == nil || !c.Dataclass || len(c.Fields) != 2 || c.Field("y").Default == nil {
		t.Fatalf("class = %+v", c)
	}
	if m := c.Method("norm"); !m.IsMethod() || len(m.Params) != 0 {
		t.Fatal("self must not be a parameter of an instance method")
	}
	if m := c.Method("origin"); !m.Flags.HasFlag(hir.FuncStatic) || m.IsMethod() || !m.Result.Equal(types.Custom("Point")) {
		t.Fatalf("origin flags = %s result = %s", m.Flags, m.Result)
	}
}

func TestInitAssignmentsBecomeFields(t *testing.T) {
	init := pyast.NewFunc("__init__", []*pyast.Arg{pyast.NewArg("self", nil), pyast.NewArg("name", pyast.NewName("str"))}, nil,
		&pyast.Assign{Targets: []pyast.Expr{pyast.NewAttr(pyast.NewName("self"), "name")}, Value: pyast.NewName("name")},
		&pyast.Assign{Targets: []pyast.Expr{pyast.NewAttr(pyast.NewName("self"), "count")}, Value: pyast.NewInt("0")},
	)
	bump := pyast.NewFunc("bump", []*pyast.Arg{pyast.NewArg("self", nil)}, nil,
		&pyast.AugAssign{Target: pyast.NewAttr(pyast.NewName("self"), "count"), Op: pyast.Add, Value: pyast.NewInt("1")})
	mod, _ := lower(t, &pyast.ClassDef{Name: "Counter", Body: []pyast.Stmt{init, bump}})
	c := mod.Class("Counter")
	if f := c.Field("name"); f == nil || !f.Type.Equal(types.Str) {
		t.Fatalf("name field = %+v", f)
	}
	if c.Field("count") == nil {
		t.Fatal("count field missing")
	}
	if !c.Method("bump").Flags.HasFlag(hir.FuncMutSelf) {
		t.Fatal("bump mutates self")
	}
}

func TestGeneratorFlag(t *testing.T) {
	fn := pyast.NewFunc("count", []*pyast.Arg{pyast.NewArg("n", pyast.NewName("int"))}, nil,
		pyast.NewFor("i", pyast.NewCall(pyast.NewName("range"), pyast.NewName("n")),
			pyast.NewExprStmt(&pyast.Yield{Value: pyast.NewName("i")})))
	mod, _ := lower(t, fn)
	f := mod.Func("count")
	if !f.IsGenerator() || f.Result.Kind != types.KindIterator {
		t.Fatalf("flags = %s, result = %s", f.Flags, f.Result)
	}
}

func TestSortedWithKey(t *testing.T) {
	key := &pyast.Lambda{Args: &pyast.Arguments{Args: []*pyast.Arg{pyast.NewArg("p", nil)}}, Body: pyast.NewSubscript(pyast.NewName("p"), pyast.NewInt("1"))}
	call := pyast.NewCall(pyast.NewName("sorted"), pyast.NewName("pairs"))
	call.Keywords = []*pyast.Keyword{{Name: "key", Value: key}, {Name: "reverse", Value: pyast.NewBool(true)}}
	mod, _ := lower(t, pyast.NewExprStmt(call))
	e := mod.Entry.Stmts[0].Data.(*hir.ExprStmtData).Value
	d, ok := e.Data.(*hir.SortByKeyData)
	if !ok || d.Reverse == nil {
		t.Fatalf("sorted(key=) lowered to %#v", e.Data)
	}
	if lam := d.Key.Data.(*hir.LambdaData); len(lam.Params) != 1 || lam.Params[0].Name != "p" {
		t.Fatal("key lambda params wrong")
	}
}

func TestIdentifiersAreNormalized(t *testing.T) {
	// U+FB01 (ﬁ ligature) normalizes to "fi" under NFKC.
	mod, _ := lower(t, pyast.NewAssign("ﬁle", pyast.NewInt("1")), pyast.NewExprStmt(pyast.NewCall(pyast.NewName("print"), pyast.NewName("file"))))
	target := mod.Entry.Stmts[0].Data.(*hir.AssignData).Target
	if target.Name != "file" {
		t.Fatalf("target = %q", target.Name)
	}
}
