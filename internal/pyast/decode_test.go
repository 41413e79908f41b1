package pyast

import (
	"errors"
	"testing"
)

const addDump = `{"_type": "Module", "body": [
 {"_type": "FunctionDef", "name": "add", "lineno": 1, "col_offset": 0, "end_lineno": 2, "end_col_offset": 16,
  "args": {"_type": "arguments", "posonlyargs": [], "args": [
    {"_type": "arg", "arg": "a", "annotation": {"_type": "Name", "id": "int", "ctx": {"_type": "Load"}}, "lineno": 1, "col_offset": 8},
    {"_type": "arg", "arg": "b", "annotation": {"_type": "Name", "id": "int", "ctx": {"_type": "Load"}}, "lineno": 1, "col_offset": 16}],
   "vararg": null, "kwonlyargs": [], "kw_defaults": [], "kwarg": null, "defaults": []},
  "body": [{"_type": "Return", "lineno": 2, "col_offset": 4, "end_lineno": 2, "end_col_offset": 16,
    "value": {"_type": "BinOp", "left": {"_type": "Name", "id": "a"}, "op": {"_type": "Add"}, "right": {"_type": "Name", "id": "b"}}}],
  "decorator_list": [], "returns": {"_type": "Name", "id": "int"}, "type_comment": null}],
 "type_ignores": []}`

func TestDecodeFunction(t *testing.T) {
	tree, err := DecodeJSON([]byte(addDump))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	mod, err := Decode(tree)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(mod.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(mod.Body))
	}
	fn, ok := mod.Body[0].(*FunctionDef)
	if !ok {
		t.Fatalf("expected *FunctionDef, got %T", mod.Body[0])
	}
	if fn.Name != "add" || len(fn.Args.Args) != 2 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	if got := fn.Args.Args[1].Position(); got.Line != 1 || got.Col != 16 {
		t.Errorf("arg position = %+v", got)
	}
	ret, ok := fn.Body[0].(*Return)
	if !ok {
		t.Fatalf("expected *Return, got %T", fn.Body[0])
	}
	bin, ok := ret.Value.(*BinOp)
	if !ok || bin.Op != Add {
		t.Fatalf("expected a + b, got %#v", ret.Value)
	}
	if ret.Position().EndCol != 16 {
		t.Errorf("return end col = %d", ret.Position().EndCol)
	}
}

func TestDecodeConstants(t *testing.T) {
	cases := []struct {
		json string
		want Value
	}{
		{`null`, Value{Kind: ConstNone}},
		{`true`, Value{Kind: ConstBool, Bool: true}},
		{`42`, Value{Kind: ConstInt, Int: "42"}},
		{`123456789012345678901234567890`, Value{Kind: ConstInt, Int: "123456789012345678901234567890"}},
		{`{"_bigint": "99999999999999999999"}`, Value{Kind: ConstInt, Int: "99999999999999999999"}},
		{`1.5`, Value{Kind: ConstFloat, Float: 1.5}},
		{`"hi"`, Value{Kind: ConstStr, Str: "hi"}},
		{`{"_ellipsis": true}`, Value{Kind: ConstEllipsis}},
	}
	for _, tc := range cases {
		doc := `{"_type": "Module", "body": [{"_type": "Expr", "value": {"_type": "Constant", "value": ` + tc.json + `}}]}`
		tree, err := DecodeJSON([]byte(doc))
		if err != nil {
			t.Fatalf("%s: %v", tc.json, err)
		}
		mod, err := Decode(tree)
		if err != nil {
			t.Fatalf("%s: %v", tc.json, err)
		}
		got := mod.Body[0].(*ExprStmt).Value.(*Constant).Value
		if got.Kind != tc.want.Kind || got.Int != tc.want.Int || got.Str != tc.want.Str || got.Float != tc.want.Float || got.Bool != tc.want.Bool {
			t.Errorf("%s: got %+v, want %+v", tc.json, got, tc.want)
		}
	}
}

func TestDecodeBytesConstant(t *testing.T) {
	doc := `{"_type": "Module", "body": [{"_type": "Expr", "value": {"_type": "Constant", "value": {"_bytes": "6869"}}}]}`
	tree, err := DecodeJSON([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	mod, err := Decode(tree)
	if err != nil {
		t.Fatal(err)
	}
	v := mod.Body[0].(*ExprStmt).Value.(*Constant).Value
	if v.Kind != ConstBytes || string(v.Bytes) != "hi" {
		t.Fatalf("got %+v", v)
	}
}

func TestDecodeUnknownNodesBecomeBad(t *testing.T) {
	doc := `{"_type": "Module", "body": [
		{"_type": "Match", "lineno": 3, "col_offset": 0},
		{"_type": "Expr", "value": {"_type": "Frobnicate"}}]}`
	tree, err := DecodeJSON([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	mod, err := Decode(tree)
	if err != nil {
		t.Fatal(err)
	}
	bad, ok := mod.Body[0].(*BadStmt)
	if !ok || bad.Kind != "Match" || bad.Line != 3 {
		t.Errorf("first statement = %#v", mod.Body[0])
	}
	if be, ok := mod.Body[1].(*ExprStmt).Value.(*BadExpr); !ok || be.Kind != "Frobnicate" {
		t.Errorf("second statement = %#v", mod.Body[1])
	}
}

func TestDecodeLegacyIndexWrapper(t *testing.T) {
	doc := `{"_type": "Module", "body": [{"_type": "Expr", "value":
		{"_type": "Subscript", "value": {"_type": "Name", "id": "xs"},
		 "slice": {"_type": "Index", "value": {"_type": "Constant", "value": 0}}}}]}`
	tree, err := DecodeJSON([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	mod, err := Decode(tree)
	if err != nil {
		t.Fatal(err)
	}
	sub := mod.Body[0].(*ExprStmt).Value.(*Subscript)
	if c, ok := sub.Slice.(*Constant); !ok || c.Value.Int != "0" {
		t.Fatalf("slice = %#v", sub.Slice)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, doc := range []string{
		`[]`,
		`{"_type": "Expression"}`,
		`{"_type": "Module", "body": [{"lineno": 1}]}`,
		`{"_type": "Module", "body": 7}`,
	} {
		tree, err := DecodeJSON([]byte(doc))
		if err != nil {
			t.Fatalf("%s: %v", doc, err)
		}
		if _, err := Decode(tree); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", doc, err)
		}
	}
}

func TestMsgpackRoundTripPreservesTree(t *testing.T) {
	tree, err := DecodeJSON([]byte(addDump))
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodeMsgpack(tree)
	if err != nil {
		t.Fatalf("EncodeMsgpack: %v", err)
	}
	back, err := DecodeMsgpack(data)
	if err != nil {
		t.Fatalf("DecodeMsgpack: %v", err)
	}
	mod, err := Decode(back)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	fn := mod.Body[0].(*FunctionDef)
	if fn.Name != "add" || fn.Position().EndLine != 2 {
		t.Fatalf("round trip lost data: %+v", fn)
	}
}

func TestFormatOf(t *testing.T) {
	cases := map[string]Format{
		"a.py":       FormatPython,
		"a.json":     FormatJSON,
		"a.pyast.mp": FormatMsgpack,
		"dir/b.py":   FormatPython,
	}
	for path, want := range cases {
		got, err := FormatOf(path)
		if err != nil || got != want {
			t.Errorf("FormatOf(%q) = %v, %v; want %v", path, got, err, want)
		}
	}
	if _, err := FormatOf("a.txt"); err == nil {
		t.Errorf("expected error for .txt")
	}
}
