package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/paiml/depyler-sub011/internal/config"
	"github.com/paiml/depyler-sub011/internal/driver"
)

const addDump = `{"_type": "Module", "body": [
 {"_type": "FunctionDef", "name": "add", "lineno": 1, "col_offset": 0,
  "args": {"_type": "arguments", "posonlyargs": [], "args": [
    {"_type": "arg", "arg": "a", "annotation": {"_type": "Name", "id": "int"}},
    {"_type": "arg", "arg": "b", "annotation": {"_type": "Name", "id": "int"}}],
   "vararg": null, "kwonlyargs": [], "kw_defaults": [], "kwarg": null, "defaults": []},
  "body": [{"_type": "Return", "lineno": 2, "col_offset": 4,
    "value": {"_type": "BinOp", "left": {"_type": "Name", "id": "a"}, "op": {"_type": "Add"}, "right": {"_type": "Name", "id": "b"}}}],
  "decorator_list": [], "returns": {"_type": "Name", "id": "int"}}],
 "type_ignores": []}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestListInputs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.json"), addDump)
	writeFile(t, filepath.Join(root, "a.py"), "x = 1\n")
	writeFile(t, filepath.Join(root, "pkg", "c.pyast.mp"), "")
	writeFile(t, filepath.Join(root, "notes.txt"), "")
	writeFile(t, filepath.Join(root, ".hidden", "d.py"), "")
	writeFile(t, filepath.Join(root, "__pycache__", "e.py"), "")

	files, err := driver.ListInputs(root)
	if err != nil {
		t.Fatal(err)
	}
	var rel []string
	for _, f := range files {
		r, _ := filepath.Rel(root, f)
		rel = append(rel, filepath.ToSlash(r))
	}
	if got := strings.Join(rel, ","); got != "a.py,b.json,pkg/c.pyast.mp" {
		t.Errorf("inputs = %s", got)
	}

	single, err := driver.ListInputs(filepath.Join(root, "b.json"))
	if err != nil || len(single) != 1 {
		t.Errorf("file root = %v, %v", single, err)
	}
}

func TestRunTranslatesAndCaches(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "src")
	out := filepath.Join(root, "out")
	writeFile(t, filepath.Join(in, "calc.json"), addDump)
	writeFile(t, filepath.Join(in, "more.json"), addDump)

	cache, err := driver.NewDiskCache(filepath.Join(root, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	inputs, err := driver.ListInputs(in)
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu     sync.Mutex
		events []driver.Event
	)
	opts := driver.Options{
		Jobs:   2,
		Cache:  cache,
		OutDir: out,
		Sink: driver.SinkFunc(func(e driver.Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}),
	}
	first, err := driver.Run(context.Background(), inputs, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Failed != 0 || first.Cached != 0 {
		t.Fatalf("first run: failed=%d cached=%d", first.Failed, first.Cached)
	}
	for _, r := range first.Files {
		if r.Result == nil || r.OutPath == "" {
			t.Fatalf("%s: result=%v out=%q err=%v", r.Path, r.Result, r.OutPath, r.Err)
		}
	}
	code, err := os.ReadFile(filepath.Join(out, "calc.rs"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(code), "pub fn add(a: i32, b: i32) -> i32") {
		t.Errorf("written code:\n%s", code)
	}

	second, err := driver.Run(context.Background(), inputs, opts)
	if err != nil {
		t.Fatal(err)
	}
	if second.Cached != len(inputs) {
		t.Fatalf("second run cached %d of %d", second.Cached, len(inputs))
	}
	if second.Files[0].Code != first.Files[0].Code {
		t.Error("cached code differs from the fresh translation")
	}
	for _, r := range second.Files {
		want := strings.TrimSuffix(filepath.Base(r.Path), ".json")
		if r.Module != want {
			t.Errorf("%s: cached entry carries module %q", r.Path, r.Module)
		}
	}

	var cachedEvents, doneWrites int
	for _, e := range events {
		if e.Status == driver.StatusCached {
			cachedEvents++
		}
		if e.Stage == driver.StageWrite && e.Status == driver.StatusDone {
			doneWrites++
		}
	}
	if cachedEvents != len(inputs) || doneWrites != 2*len(inputs) {
		t.Errorf("events: cached=%d writes=%d", cachedEvents, doneWrites)
	}
}

func TestConfigChangeMissesCache(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "calc.json")
	writeFile(t, input, addDump)
	cache, err := driver.NewDiskCache(filepath.Join(root, "cache"))
	if err != nil {
		t.Fatal(err)
	}

	opts := driver.Options{Cache: cache, NoWrite: true}
	if _, err := driver.Run(context.Background(), []string{input}, opts); err != nil {
		t.Fatal(err)
	}
	wide, err := config.Decode("[translate]\nint_width = \"i64\"\n")
	if err != nil {
		t.Fatal(err)
	}
	opts.Config = wide
	rep, err := driver.Run(context.Background(), []string{input}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Cached != 0 {
		t.Fatal("a different configuration must not reuse the cache")
	}
	if !strings.Contains(rep.Files[0].Code, "a: i64") {
		t.Errorf("code:\n%s", rep.Files[0].Code)
	}
}

func TestRunEmitsCrate(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "calc.json")
	writeFile(t, input, addDump)

	rep, err := driver.Run(context.Background(), []string{input}, driver.Options{OutDir: filepath.Join(root, "out"), Cargo: true})
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "out", "calc", "src", "main.rs")
	if rep.Files[0].OutPath != want {
		t.Fatalf("out = %q, want %q", rep.Files[0].OutPath, want)
	}
	manifest, err := os.ReadFile(filepath.Join(root, "out", "calc", "Cargo.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(manifest), `name = "calc"`) {
		t.Errorf("manifest:\n%s", manifest)
	}
}

func TestRunReportsBadInputs(t *testing.T) {
	root := t.TempDir()
	broken := filepath.Join(root, "broken.json")
	writeFile(t, broken, `{"_type": "Module", "body": [`)
	missing := filepath.Join(root, "missing.json")

	rep, err := driver.Run(context.Background(), []string{broken, missing}, driver.Options{NoWrite: true})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Failed != 2 {
		t.Fatalf("failed = %d", rep.Failed)
	}
	for _, r := range rep.Files {
		if r.Err == nil || !r.Bag.HasErrors() {
			t.Errorf("%s: err=%v diags=%d", r.Path, r.Err, r.Bag.Len())
		}
	}
	if code := rep.Files[0].Bag.Items()[0].Code.ID(); !strings.HasPrefix(code, "IO") {
		t.Errorf("decode failure code = %s", code)
	}
}

func TestOutputPath(t *testing.T) {
	cases := []struct {
		input, outDir, module string
		crate                 bool
		want                  string
	}{
		{"src/calc.py", "", "calc", false, filepath.Join("src", "calc.rs")},
		{"src/calc.py", "out", "calc", false, filepath.Join("out", "calc.rs")},
		{"src/calc.py", "out", "calc", true, filepath.Join("out", "calc", "src", "main.rs")},
	}
	for _, tc := range cases {
		if got := driver.OutputPath(tc.input, tc.outDir, tc.module, tc.crate); got != tc.want {
			t.Errorf("OutputPath(%q, %q, crate=%v) = %q, want %q", tc.input, tc.outDir, tc.crate, got, tc.want)
		}
	}
}
