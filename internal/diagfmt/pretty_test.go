package diagfmt_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/diagfmt"
	"github.com/paiml/depyler-sub011/internal/source"
)

const calcSource = "def f(x):\n    return eval(x)\n\nprint(f('1'))\n"

func calcBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("/home/user/project/src/calc.py", []byte(calcSource))
	start := uint32(strings.Index(calcSource, "eval"))
	bag := diag.NewBag(10)
	d := diag.Newf(diag.UnsReflection, source.Span{File: id, Start: start, End: start + 7}, "eval is not supported").
		WithNote(source.Span{File: id, Start: 0, End: 3}, "inside f")
	bag.Add(d)
	return bag, fs
}

func TestPrettyHeaderAndCaret(t *testing.T) {
	bag, fs := calcBag(t)
	var buf bytes.Buffer
	diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{PathMode: diagfmt.PathModeBasename, ShowNotes: true})
	out := buf.String()

	if !strings.Contains(out, "calc.py:2:12: ERROR UNS1004: eval is not supported") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, " 2 |     return eval(x)\n") {
		t.Errorf("missing source line:\n%s", out)
	}
	if !strings.Contains(out, "   |            ^~~~~~~\n") {
		t.Errorf("caret misplaced:\n%s", out)
	}
	if !strings.Contains(out, "note: calc.py:1:1: inside f") {
		t.Errorf("missing note:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("color escapes with Color off")
	}
}

func TestPrettyContextLines(t *testing.T) {
	bag, fs := calcBag(t)
	var buf bytes.Buffer
	diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{Context: 1, PathMode: diagfmt.PathModeBasename})
	out := buf.String()
	for _, want := range []string{" 1 | def f(x):", " 2 |     return eval(x)", " 3 | "} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "print") {
		t.Errorf("context leaked past one line:\n%s", out)
	}
	if strings.Contains(out, "note:") {
		t.Error("notes printed without ShowNotes")
	}
}

func TestPrettyWideCharacters(t *testing.T) {
	src := "s = '名前' + eval(x)\n"
	fs := source.NewFileSet()
	id := fs.AddVirtual("wide.py", []byte(src))
	start := uint32(strings.Index(src, "eval"))
	bag := diag.NewBag(1)
	bag.Add(diag.Newf(diag.UnsReflection, source.Span{File: id, Start: start, End: start + 4}, "eval"))

	var buf bytes.Buffer
	diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{})
	// "s = '名前' + " is 13 display columns.
	if !strings.Contains(buf.String(), "|"+strings.Repeat(" ", 14)+"^~~~\n") {
		t.Errorf("caret not aligned to display width:\n%s", buf.String())
	}
}

func TestPathModes(t *testing.T) {
	bag, fs := calcBag(t)
	tests := []struct {
		name     string
		opts     diagfmt.PrettyOpts
		contains string
	}{
		{"absolute", diagfmt.PrettyOpts{PathMode: diagfmt.PathModeAbsolute}, "/home/user/project/src/calc.py:2:12"},
		{"relative", diagfmt.PrettyOpts{PathMode: diagfmt.PathModeRelative, BaseDir: "/home/user/project"}, "src/calc.py:2:12"},
		{"basename", diagfmt.PrettyOpts{PathMode: diagfmt.PathModeBasename}, "calc.py:2:12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			diagfmt.Short(&buf, bag, fs, tt.opts)
			line := buf.String()
			if !strings.HasPrefix(line, tt.contains) {
				t.Errorf("got %q, want prefix %q", line, tt.contains)
			}
		})
	}
}

func TestPrettyWithoutSource(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.Add("calc.json", nil, 0)
	bag := diag.NewBag(1)
	bag.Add(diag.Newf(diag.TypUnresolved, source.Span{File: id}, "cannot infer"))
	var buf bytes.Buffer
	diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{PathMode: diagfmt.PathModeBasename})
	if got := buf.String(); got != "calc.json:1:1: WARNING TYP4001: cannot infer\n" {
		t.Errorf("got %q", got)
	}
}
