package directive

import (
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/hir"
)

const sample = `import os

# @depyler: optimization_level = "aggressive"
# @depyler: ownership = "borrowed"
def total(xs: list[int]) -> int:
    return sum(xs)

class Stack:
    # @depyler: clone = "items, top"
    def push(self, x: int) -> None:
        self.items.append(x)

    @property
    # @depyler: safety_level = "safe"
    def size(self) -> int:
        return len(self.items)

# @depyler: ownership = "owned"
async def fetch() -> None:
    pass
`

func TestScanResolvesTargets(t *testing.T) {
	found, problems := Scan([]byte(sample))
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	var got []string
	for _, d := range found {
		got = append(got, d.Target+":"+d.Key+"="+d.Value)
	}
	want := []string{
		"total:optimization_level=aggressive",
		"total:ownership=borrowed",
		"Stack.push:clone=items, top",
		"Stack.size:safety_level=safe",
		"fetch:ownership=owned",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("directives:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if found[0].Line != 3 {
		t.Errorf("first directive line = %d, want 3", found[0].Line)
	}
}

func TestScanReportsProblems(t *testing.T) {
	src := "# @depyler: broken\nx = 1\n# @depyler: ownership = \"owned\"\ny = 2\n"
	_, problems := Scan([]byte(src))
	if len(problems) != 2 {
		t.Fatalf("problems = %v, want 2", problems)
	}
	if !strings.Contains(problems[0].Error(), "line 1") {
		t.Errorf("first problem = %v", problems[0])
	}
	if !strings.Contains(problems[1].Error(), "does not precede") {
		t.Errorf("second problem = %v", problems[1])
	}
}

func TestRegistryAnnotations(t *testing.T) {
	r := NewRegistry()
	if errs := r.CollectFromSource("sample.py", []byte(sample)); len(errs) != 0 {
		t.Fatalf("collect: %v", errs)
	}
	if r.Len() != 5 {
		t.Fatalf("Len = %d, want 5", r.Len())
	}
	if got := len(r.ForTarget("total")); got != 2 {
		t.Errorf("ForTarget(total) = %d directives", got)
	}

	base := map[string]hir.Annotations{"total": {Borrow: []string{"xs"}}}
	ann, errs := r.Annotations(base)
	if len(errs) != 0 {
		t.Fatalf("annotations: %v", errs)
	}
	total := ann["total"]
	if total.Optimization != "speed" || total.Ownership != "borrowed" || len(total.Borrow) != 1 {
		t.Errorf("total = %+v", total)
	}
	if push := ann["Stack.push"]; len(push.Clone) != 2 || push.Clone[1] != "top" {
		t.Errorf("Stack.push = %+v", push)
	}
	if !ann["Stack.size"].SafetyMode {
		t.Error("Stack.size should be in safety mode")
	}
	if len(base["total"].Clone) != 0 || base["total"].Optimization != "" {
		t.Error("base map was modified")
	}
}

func TestApplyRejectsUnknownValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"ownership", "leased"},
		{"optimization", "ludicrous"},
		{"safety_mode", "maybe"},
		{"colour", "red"},
	}
	for _, tc := range cases {
		var a hir.Annotations
		if err := Apply(&a, tc.key, tc.value); err == nil {
			t.Errorf("Apply(%s=%s) should fail", tc.key, tc.value)
		}
	}
}
