package rustgen_test

import (
	"testing"

	"github.com/paiml/depyler-sub011/internal/rustgen"
)

func TestSafeIdent(t *testing.T) {
	cases := map[string]string{
		"type":   "type_",
		"match":  "match_",
		"count":  "count",
		"async":  "async_",
		"values": "values",
	}
	for in, want := range cases {
		if got := rustgen.SafeIdent(in); got != want {
			t.Errorf("SafeIdent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassNameAvoidsStdNames(t *testing.T) {
	cases := map[string]string{
		"String":   "PyString",
		"Result":   "PyResult",
		"DynValue": "PyDynValue",
		"Point":    "Point",
	}
	for in, want := range cases {
		if got := rustgen.ClassName(in); got != want {
			t.Errorf("ClassName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScopeTracker(t *testing.T) {
	s := rustgen.NewScopeTracker()
	s.Declare("x")
	s.Enter()
	s.Declare("y")
	if !s.IsDeclared("x") || !s.IsDeclared("y") {
		t.Fatalf("outer and inner bindings should both be visible")
	}
	if s.Depth() != 2 {
		t.Fatalf("depth = %d, want 2", s.Depth())
	}
	s.Exit()
	if s.IsDeclared("y") {
		t.Fatalf("y leaked out of its block")
	}
	if !s.IsDeclared("x") {
		t.Fatalf("x lost after exiting an inner block")
	}
}

func TestScopeTrackerExitFunctionScopePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("exiting the function scope should panic")
		}
	}()
	rustgen.NewScopeTracker().Exit()
}
