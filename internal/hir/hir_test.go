package hir_test

import (
	"strings"
	"testing"

	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/source"
	"github.com/paiml/depyler-sub011/internal/types"
)

func name(n string) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprName, Type: types.Int, Data: &hir.NameData{Name: n}}
}

func intLit(v int64, text string) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprLiteral, Type: types.Int, Data: &hir.LiteralData{Kind: hir.LiteralInt, Int: v, Text: text}}
}

func stmt(kind hir.StmtKind, data hir.StmtData) *hir.Stmt {
	return &hir.Stmt{Kind: kind, Data: data}
}

func TestRootName(t *testing.T) {
	idx := &hir.Expr{Kind: hir.ExprIndex, Data: &hir.IndexData{Base: &hir.Expr{Kind: hir.ExprAttr, Data: &hir.AttrData{Base: name("obj"), Name: "items"}}, Index: intLit(0, "0")}}
	if got := hir.RootName(idx); got != "obj" {
		t.Fatalf("RootName = %q, want obj", got)
	}
	tgt := &hir.Target{Kind: hir.TargetSubscript, Base: name("d"), Index: name("k")}
	if got := tgt.Root(); got != "d" {
		t.Fatalf("Target.Root = %q, want d", got)
	}
}

func TestInspectVisitsProgramOrder(t *testing.T) {
	body := hir.NewBlock(
		stmt(hir.StmtAssign, &hir.AssignData{Target: hir.SymbolTarget("x", source.NoSpan), Value: intLit(1, "1")}),
		stmt(hir.StmtIf, &hir.IfData{
			Cond: name("x"),
			Then: hir.NewBlock(stmt(hir.StmtReturn, &hir.ReturnData{Value: name("y")})),
		}),
	)
	var seen []string
	hir.Inspect(body, hir.Visitor{
		Stmt: func(s *hir.Stmt) bool { seen = append(seen, s.Kind.String()); return true },
		Expr: func(e *hir.Expr) bool {
			if n := hir.NameOf(e); n != "" {
				seen = append(seen, n)
			}
			return true
		},
	})
	want := "Assign If x Return y"
	if got := strings.Join(seen, " "); got != want {
		t.Fatalf("visit order = %q, want %q", got, want)
	}
}

func TestVerifyCatchesMissingLabelAndGeneratorFlag(t *testing.T) {
	fn := &hir.Func{
		Name: "gen",
		Body: hir.NewBlock(
			stmt(hir.StmtExpr, &hir.ExprStmtData{Value: &hir.Expr{Kind: hir.ExprYield, Type: types.None, Data: &hir.YieldData{Value: intLit(1, "1")}}}),
			stmt(hir.StmtBreak, &hir.BranchData{Label: "outer"}),
		),
	}
	vs := hir.Verify(&hir.Module{Funcs: []*hir.Func{fn}}, hir.VerifyOptions{})
	if len(vs) != 2 {
		t.Fatalf("expected 2 violations, got %v", vs)
	}
	fn.Flags |= hir.FuncGenerator
	fn.Body.Stmts[1] = stmt(hir.StmtBlock, &hir.BlockData{Label: "outer", Body: hir.NewBlock(stmt(hir.StmtBreak, &hir.BranchData{Label: "outer"}))})
	if vs := hir.Verify(&hir.Module{Funcs: []*hir.Func{fn}}, hir.VerifyOptions{Typed: true}); len(vs) != 0 {
		t.Fatalf("unexpected violations: %v", vs)
	}
}

func TestDumpShowsOwnershipAndTypes(t *testing.T) {
	fn := &hir.Func{
		Name:   "upper",
		Params: []*hir.Param{{Name: "s", Type: types.Str, Mode: hir.OwnershipRef}},
		Result: types.Str,
		Body: hir.NewBlock(stmt(hir.StmtReturn, &hir.ReturnData{Value: &hir.Expr{
			Kind: hir.ExprMethodCall,
			Type: types.Str,
			Data: &hir.MethodCallData{Recv: &hir.Expr{Kind: hir.ExprName, Type: types.Str, Data: &hir.NameData{Name: "s"}}, Method: "upper"},
		}})),
	}
	var sb strings.Builder
	if err := hir.Dump(&sb, &hir.Module{Name: "m", Funcs: []*hir.Func{fn}}, hir.DumpOptions{EmitTypes: true, EmitOwnership: true}); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"fn upper(s: & str) -> str", "return s::str.upper()::str"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
