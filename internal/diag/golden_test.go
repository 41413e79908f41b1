package diag_test

import (
	"testing"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.Add("testdata/sample.py", []byte("a\nb\n"), 0)

	diags := []diag.Diagnostic{
		{
			Severity: diag.SevWarning,
			Code:     diag.MthUnknownMethod,
			Message:  "another",
			Primary:  source.Span{File: file, Start: 2, End: 3},
		},
		{
			Severity: diag.SevError,
			Code:     diag.UnsReflection,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: file, Start: 0, End: 1},
			Notes: []diag.Note{
				{Span: source.Span{File: file, Start: 2, End: 3}, Msg: "note line"},
			},
		},
	}

	want := "error UNS1004 testdata/sample.py:1:1 first line second\n" +
		"note UNS1004 testdata/sample.py:2:1 note line\n" +
		"warning MTH3001 testdata/sample.py:2:1 another"
	if got := diag.FormatGoldenDiagnostics(diags, fs, true); got != want {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}

func TestCodeCategories(t *testing.T) {
	tests := []struct {
		code diag.Code
		cat  string
		id   string
		sev  diag.Severity
	}{
		{diag.UnsConstruct, "unsupported-construct", "UNS1001", diag.SevError},
		{diag.GenUnsupportedStmt, "codegen-unsupported", "GEN2001", diag.SevError},
		{diag.MthUnknownMethod, "unknown-method", "MTH3001", diag.SevWarning},
		{diag.TypUnresolved, "type-unresolved", "TYP4001", diag.SevWarning},
		{diag.OwnUseAfterMove, "ownership-conflict", "OWN5001", diag.SevError},
	}
	for _, tt := range tests {
		if got := tt.code.Category().String(); got != tt.cat {
			t.Errorf("%d: category %q, want %q", tt.code, got, tt.cat)
		}
		if got := tt.code.ID(); got != tt.id {
			t.Errorf("%d: id %q, want %q", tt.code, got, tt.id)
		}
		if got := tt.code.DefaultSeverity(); got != tt.sev {
			t.Errorf("%d: severity %v, want %v", tt.code, got, tt.sev)
		}
	}
}

func TestBagSortDedupAndCap(t *testing.T) {
	bag := diag.NewBag(3)
	r := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	sp := func(start uint32) source.Span { return source.Span{Start: start, End: start + 1} }

	diag.Report(r, diag.TypUnresolved, sp(9), "late").Emit()
	diag.Report(r, diag.UnsConstruct, sp(1), "early").Emit()
	diag.Report(r, diag.UnsConstruct, sp(1), "early").Emit()
	diag.Report(r, diag.MthUnknownMethod, sp(4), "middle").Emit()
	if bag.Len() != 3 {
		t.Fatalf("dedup should leave 3 items, got %d", bag.Len())
	}
	if bag.Add(diag.New(diag.SevInfo, diag.GenInfo, sp(0), "over cap")) {
		t.Error("Add beyond cap should report false")
	}

	bag.Sort()
	items := bag.Items()
	if items[0].Message != "early" || items[2].Message != "late" {
		t.Errorf("unexpected order: %q, %q, %q", items[0].Message, items[1].Message, items[2].Message)
	}
	if !bag.HasErrors() {
		t.Error("expected HasErrors")
	}
	if got := len(bag.ByCategory(diag.CatUnknownMethod)); got != 1 {
		t.Errorf("ByCategory(unknown-method) = %d, want 1", got)
	}
}

func TestPromoteAndFilter(t *testing.T) {
	bag := diag.NewBag(0)
	bag.Add(diag.New(diag.SevInfo, diag.GenInfo, source.Span{}, "info"))
	bag.Add(diag.New(diag.SevWarning, diag.TypUnresolved, source.Span{}, "warn"))
	if bag.HasErrors() {
		t.Fatal("no errors yet")
	}
	if n := bag.Promote(diag.SevWarning, diag.SevError); n != 1 {
		t.Fatalf("promoted %d, want 1", n)
	}
	if !bag.HasErrors() {
		t.Error("promoted warning should count as an error")
	}
	bag.Filter(diag.SevWarning)
	if bag.Len() != 1 || bag.Items()[0].Message != "warn" {
		t.Errorf("after filter: %+v", bag.Items())
	}

	var nilBag *diag.Bag
	if nilBag.Promote(diag.SevInfo, diag.SevError) != 0 {
		t.Error("nil bag promotes nothing")
	}
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]diag.Severity{"info": diag.SevInfo, "WARN": diag.SevWarning, " error ": diag.SevError} {
		got, err := diag.ParseSeverity(in)
		if err != nil || got != want {
			t.Errorf("ParseSeverity(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := diag.ParseSeverity("fatal"); err == nil {
		t.Error("fatal should be rejected")
	}
	if diag.SevWarning.Label() != "warning" {
		t.Errorf("label = %q", diag.SevWarning.Label())
	}
}
