package types_test

import (
	"testing"

	"github.com/paiml/depyler-sub011/internal/types"
)

func TestUnionSimplifies(t *testing.T) {
	cases := []struct {
		name string
		in   []*types.Type
		want string
	}{
		{"single", []*types.Type{types.Int}, "int"},
		{"dedup", []*types.Type{types.Int, types.Int}, "int"},
		{"with none", []*types.Type{types.Str, types.None}, "str | None"},
		{"only none", []*types.Type{types.None}, "None"},
		{"flatten", []*types.Type{types.UnionOf(types.Int, types.Str), types.Bool}, "int | str | bool"},
		{"optional member", []*types.Type{types.OptionalOf(types.Int), types.Str}, "int | str | None"},
	}
	for _, tc := range cases {
		if got := types.UnionOf(tc.in...).String(); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		a, b *types.Type
		want string
	}{
		{types.Unknown, types.Int, "int"},
		{types.Int, types.Float, "float"},
		{types.Int, types.None, "int | None"},
		{types.ListOf(types.Unknown), types.ListOf(types.Str), "list[str]"},
		{types.DictOf(types.Str, types.Int), types.DictOf(types.Str, types.Unknown), "dict[str, int]"},
		{types.Int, types.Str, "int | str"},
	}
	for _, tc := range cases {
		if got := types.Join(tc.a, tc.b).String(); got != tc.want {
			t.Errorf("Join(%s, %s) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
	if !types.Widened(types.Int, types.Join(types.Int, types.Str)) {
		t.Errorf("int -> int|str should count as widening")
	}
}

func TestCopyAndDisplay(t *testing.T) {
	if !types.Int.IsCopy() || !types.TupleOf(types.Int, types.Bool).IsCopy() {
		t.Errorf("primitive tuples must be copy")
	}
	if types.Str.IsCopy() || types.ListOf(types.Int).IsCopy() {
		t.Errorf("strings and lists are not copy")
	}
	if !types.Str.HasDisplay() || types.ListOf(types.Int).HasDisplay() || types.OptionalOf(types.Int).HasDisplay() {
		t.Errorf("display predicate mismatch")
	}
}

func TestConcreteReplacesUnknown(t *testing.T) {
	got := types.Concrete(types.DictOf(types.Str, types.Unknown))
	if got.HasUnknown() {
		t.Fatalf("unknown survived: %s", got)
	}
	if got.Value.Kind != types.KindDynamic {
		t.Errorf("value kind = %s", got.Value.Kind)
	}
}

func TestRustSpelling(t *testing.T) {
	var needs []string
	m := &types.Mapper{
		IntType: "i64",
		Rename:  func(s string) string { return "Py" + s },
		Need:    func(c string) { needs = append(needs, c) },
	}
	cases := []struct {
		t    *types.Type
		pos  types.Position
		want string
	}{
		{types.Int, types.PosValue, "i64"},
		{types.ListOf(types.Str), types.PosValue, "Vec<String>"},
		{types.DictOf(types.Str, types.Float), types.PosValue, "std::collections::HashMap<String, f64>"},
		{types.OptionalOf(types.Int), types.PosValue, "Option<i64>"},
		{types.TupleOf(types.Int), types.PosValue, "(i64,)"},
		{types.ArrayOf(types.Int, 4), types.PosValue, "[i64; 4]"},
		{types.IteratorOf(types.Int), types.PosReturn, "impl Iterator<Item = i64>"},
		{types.FuncOf([]*types.Type{types.Int}, types.Bool), types.PosParam, "impl Fn(i64) -> bool"},
		{types.Custom("Vec"), types.PosValue, "PyVec"},
		{types.UnionOf(types.Int, types.Str), types.PosValue, "DynValue"},
		{types.Extern(types.ExtPattern), types.PosValue, "regex::Regex"},
	}
	for _, tc := range cases {
		if got := m.Spell(tc.t, tc.pos); got != tc.want {
			t.Errorf("Spell(%s) = %q, want %q", tc.t, got, tc.want)
		}
	}
	if len(needs) != 1 || needs[0] != "regex" {
		t.Errorf("needs = %v", needs)
	}
}

func TestDefaults(t *testing.T) {
	m := &types.Mapper{}
	cases := map[string]*types.Type{
		"0":             types.Int,
		"0.0":           types.Float,
		"String::new()": types.Str,
		"Vec::new()":    types.ListOf(types.Int),
		"None":          types.OptionalOf(types.Str),
		"(0, false)":    types.TupleOf(types.Int, types.Bool),
	}
	for want, typ := range cases {
		if got := m.Default(typ); got != want {
			t.Errorf("Default(%s) = %q, want %q", typ, got, want)
		}
	}
}
