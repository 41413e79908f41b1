package translate_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/bridge"
	"github.com/paiml/depyler-sub011/internal/cargo"
	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/observ"
	"github.com/paiml/depyler-sub011/internal/pyast"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/testkit"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/translate"
)

const addDump = `{"_type": "Module", "body": [
 {"_type": "FunctionDef", "name": "add", "lineno": 1, "col_offset": 0, "end_lineno": 2, "end_col_offset": 16,
  "args": {"_type": "arguments", "posonlyargs": [], "args": [
    {"_type": "arg", "arg": "a", "annotation": {"_type": "Name", "id": "int"}, "lineno": 1, "col_offset": 8},
    {"_type": "arg", "arg": "b", "annotation": {"_type": "Name", "id": "int"}, "lineno": 1, "col_offset": 16}],
   "vararg": null, "kwonlyargs": [], "kw_defaults": [], "kwarg": null, "defaults": []},
  "body": [{"_type": "Return", "lineno": 2, "col_offset": 4, "end_lineno": 2, "end_col_offset": 16,
    "value": {"_type": "BinOp", "left": {"_type": "Name", "id": "a"}, "op": {"_type": "Add"}, "right": {"_type": "Name", "id": "b"}}}],
  "decorator_list": [], "returns": {"_type": "Name", "id": "int"}}],
 "type_ignores": []}`

func addModule() *pyast.Module {
	add := pyast.NewFunc("add",
		[]*pyast.Arg{pyast.NewArg("a", pyast.NewName("int")), pyast.NewArg("b", pyast.NewName("int"))},
		pyast.NewName("int"),
		pyast.NewReturn(pyast.NewBin(pyast.NewName("a"), pyast.Add, pyast.NewName("b"))))
	return &pyast.Module{Path: "calc.py", Body: []pyast.Stmt{add}}
}

func TestModuleRunsEveryPass(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	timer := observ.NewTimer()

	res := translate.Module(ctx, addModule(), nil, 0, translate.Options{Timer: timer, Verify: true})
	if res.Failed() {
		t.Fatalf("unexpected errors: %v", res.Bag.Items())
	}
	if !strings.Contains(res.Code, "pub fn add(a: i32, b: i32) -> i32 {") {
		t.Errorf("missing signature:\n%s", res.Code)
	}

	var names []string
	for _, p := range timer.Phases() {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, ","); got != "bridge,infer,ownership,rustgen" {
		t.Errorf("phases = %s", got)
	}

	ended := map[string]bool{}
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanEnd {
			ended[ev.Name] = true
		}
	}
	for _, name := range []string{"translate", "bridge", "infer", "ownership", "rustgen"} {
		if !ended[name] {
			t.Errorf("no span end for %s", name)
		}
	}
}

func TestIntTypeOption(t *testing.T) {
	res := translate.Module(context.Background(), addModule(), nil, 0, translate.Options{IntType: "i64"})
	if !strings.Contains(res.Code, "pub fn add(a: i64, b: i64) -> i64 {") {
		t.Errorf("i64 not applied:\n%s", res.Code)
	}
}

func TestUnknownCalleeIsAWarningWithDecision(t *testing.T) {
	// def f():
	//     return mystery(1)
	f := pyast.NewFunc("f", nil, nil,
		pyast.NewReturn(pyast.NewCall(pyast.NewName("mystery"), pyast.NewInt("1"))))
	res := translate.Module(context.Background(), &pyast.Module{Path: "m.py", Body: []pyast.Stmt{f}}, nil, 0, translate.Options{})

	if res.Bag.HasErrors() {
		t.Fatalf("unknown callee should not be an error: %v", res.Bag.Items())
	}
	if len(res.Bag.ByCategory(diag.CatTypeUnresolved)) == 0 {
		t.Errorf("expected a type-unresolved diagnostic, got %v", res.Bag.Items())
	}
	if len(res.Decisions.Filter(trace.DecisionTypeMapping)) == 0 {
		t.Error("expected a type-mapping decision for the dynamic fallback")
	}
}

func TestFileDecodesJSONAndMsgpack(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "calc.json")
	if err := os.WriteFile(jsonPath, []byte(addDump), 0o600); err != nil {
		t.Fatal(err)
	}
	tree, err := pyast.DecodeJSON([]byte(addDump))
	if err != nil {
		t.Fatal(err)
	}
	mpPath := filepath.Join(dir, "calc.pyast.mp")
	if err := pyast.WriteMsgpack(mpPath, tree); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{jsonPath, mpPath} {
		res, err := translate.File(context.Background(), pyast.Loader{}, path, translate.Options{})
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if !strings.Contains(res.Code, "a + b") {
			t.Errorf("%s: unexpected code:\n%s", path, res.Code)
		}
		if res.Module.Name != "calc" {
			t.Errorf("%s: module name = %q", path, res.Module.Name)
		}
	}
}

func TestFileReportsLoadErrors(t *testing.T) {
	_, err := translate.File(context.Background(), pyast.Loader{}, filepath.Join(t.TempDir(), "missing.json"), translate.Options{})
	if err == nil {
		t.Fatal("expected an error for a missing input")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error should wrap fs.ErrNotExist: %v", err)
	}
}

func TestModuleName(t *testing.T) {
	cases := map[string]string{
		"src/calc.py":        "calc",
		"word-count.py":      "word_count",
		"9lives.json":        "_9lives",
		"data/tree.pyast.mp": "tree",
		".py":                "main",
	}
	for in, want := range cases {
		if got := translate.ModuleName(in); got != want {
			t.Errorf("ModuleName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCargoTomlIncludesMappedCrates(t *testing.T) {
	imp := &pyast.Import{Names: []*pyast.Alias{{Name: "leftpad"}}}
	mod := &pyast.Module{Path: "pad.py", Body: []pyast.Stmt{imp}}
	res := translate.Module(context.Background(), mod, nil, 0, translate.Options{
		Imports: bridge.ImportTable{
			"leftpad": {RustPath: "leftpad", Crate: "leftpad", Version: "0.2"},
		},
	})
	if len(res.Needs) != 1 || res.Needs[0] != "leftpad" {
		t.Fatalf("needs = %v", res.Needs)
	}
	manifest, err := res.CargoToml(cargo.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`name = "pad"`, `leftpad = "0.2"`} {
		if !strings.Contains(manifest, want) {
			t.Errorf("manifest missing %q:\n%s", want, manifest)
		}
	}
}

func TestSpansStayInsideTheirFunction(t *testing.T) {
	const src = "def add(a: int, b: int) -> int:\n    return a + b\n"
	tree, err := pyast.DecodeJSON([]byte(addDump))
	if err != nil {
		t.Fatal(err)
	}
	mod, err := pyast.Decode(tree)
	if err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSet()
	file := fs.AddVirtual("calc.py", []byte(src))

	res := translate.Module(context.Background(), mod, fs, file, translate.Options{ModuleName: "calc"})
	if err := testkit.CheckSpanInvariants(res.Module, fs.Get(file)); err != nil {
		t.Fatal(err)
	}
	fn := res.Module.Funcs[0]
	if got := fs.Text(fn.Body.Stmts[0].Span); got != "return a + b" {
		t.Errorf("return span text = %q", got)
	}
}

func TestSourceThroughPython(t *testing.T) {
	if _, err := exec.LookPath(pyast.DefaultPython); err != nil {
		t.Skipf("%s not available", pyast.DefaultPython)
	}
	src := []byte(`from typing import List


def mean(xs: List[float]) -> float:
    return sum(xs) / len(xs)


def label(n: int) -> str:
    if n > 0:
        kind = "pos"
    else:
        kind = "neg"
    return kind


def bump(xs: List[int]) -> List[int]:
    return list(map(lambda v: v + 1, xs))
`)
	res, err := translate.Source(context.Background(), pyast.Loader{}, "stats.py", src, translate.Options{})
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if res.Bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Bag.Items())
	}
	for _, want := range []string{"pub fn mean(", "kind: String;", "v + 1"} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("missing %q in:\n%s", want, res.Code)
		}
	}
	if strings.Contains(res.Code, "DynValue") {
		t.Errorf("dynamic fallback in:\n%s", res.Code)
	}
}
