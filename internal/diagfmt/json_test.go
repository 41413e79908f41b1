package diagfmt_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/diagfmt"
	"github.com/paiml/depyler-sub011/internal/source"
)

func TestJSONOutput(t *testing.T) {
	bag, fs := calcBag(t)
	var buf bytes.Buffer
	err := diagfmt.JSON(&buf, bag, fs, diagfmt.JSONOpts{
		IncludePositions: true,
		IncludeNotes:     true,
		PathMode:         diagfmt.PathModeBasename,
	})
	if err != nil {
		t.Fatal(err)
	}
	var out diagfmt.DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "UNS1004" || d.Category != "unsupported-construct" {
		t.Errorf("diagnostic = %+v", d)
	}
	if d.Location.File != "calc.py" || d.Location.StartLine != 2 || d.Location.StartCol != 12 {
		t.Errorf("location = %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Message != "inside f" {
		t.Errorf("notes = %+v", d.Notes)
	}
}

func TestJSONOmitsPositionsAndNotes(t *testing.T) {
	bag, fs := calcBag(t)
	out := diagfmt.BuildDiagnosticsOutput(bag, fs, diagfmt.JSONOpts{PathMode: diagfmt.PathModeBasename})
	d := out.Diagnostics[0]
	if d.Location.StartLine != 0 || len(d.Notes) != 0 {
		t.Errorf("unexpected detail: %+v", d)
	}
}

func TestJSONMaxTruncates(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.py", []byte("x\ny\nz\n"))
	bag := diag.NewBag(10)
	for i := range uint32(3) {
		bag.Add(diag.Newf(diag.TypUnresolved, source.Span{File: id, Start: 2 * i, End: 2*i + 1}, "d%d", i))
	}
	out := diagfmt.BuildDiagnosticsOutput(bag, fs, diagfmt.JSONOpts{Max: 2})
	if out.Count != 2 {
		t.Errorf("count = %d", out.Count)
	}
	if empty := diagfmt.BuildDiagnosticsOutput(nil, nil, diagfmt.JSONOpts{}); empty.Count != 0 || empty.Diagnostics == nil {
		t.Errorf("nil bag = %+v", empty)
	}
}
