package infer

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

var (
	strToStr = names(
		"upper", "lower", "strip", "lstrip", "rstrip", "title", "capitalize", "casefold",
		"swapcase", "replace", "zfill", "center", "ljust", "rjust", "format", "join",
		"expandtabs", "removeprefix", "removesuffix",
	)
	strToBool = names(
		"startswith", "endswith", "isdigit", "isalpha", "isalnum", "isspace", "isupper",
		"islower", "isnumeric", "isdecimal", "isidentifier", "istitle", "isascii", "isprintable",
	)
	strToInt  = names("find", "rfind", "index", "rindex", "count")
	strToList = names("split", "rsplit", "splitlines")
	listVoid  = names("append", "extend", "insert", "remove", "clear", "sort", "reverse")
	setVoid   = names("add", "discard", "remove", "clear", "update", "difference_update", "intersection_update")
	setToSet  = names("union", "intersection", "difference", "symmetric_difference", "copy")
	setToBool = names("issubset", "issuperset", "isdisjoint")
)

func names(list ...string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, n := range list {
		m[n] = true
	}
	return m
}

// methodParamHints types callbacks passed by keyword, e.g. the key of
// list.sort or the default of dict.get.
func methodParamHints(rt *types.Type, method string) []*hir.Param {
	switch {
	case rt.Kind == types.KindList && method == "sort":
		return []*hir.Param{{Name: "key", Type: types.FuncOf([]*types.Type{rt.Elem}, types.Unknown), Declared: true, Kind: hir.ParamKeywordOnly}}
	case rt.Kind == types.KindDict && (method == "get" || method == "setdefault" || method == "pop"):
		return []*hir.Param{
			{Name: "key", Type: rt.Key, Declared: true},
			{Name: "default", Type: rt.Value, Declared: true},
		}
	}
	return nil
}

// methodResult types recv.method(args) for builtin and library
// receivers. ok is false for methods missing from the table.
func methodResult(rt *types.Type, method string, args []*types.Type) (t *types.Type, fallible, ok bool) {
	arg := func(i int) *types.Type {
		if i < len(args) {
			return args[i]
		}
		return types.Unknown
	}
	switch rt.Kind {
	case types.KindStr:
		switch {
		case strToStr[method]:
			return types.Str, false, true
		case strToBool[method]:
			return types.Bool, false, true
		case strToInt[method]:
			return types.Int, false, true
		case strToList[method]:
			return types.ListOf(types.Str), false, true
		case method == "encode":
			return types.Bytes, false, true
		case method == "partition" || method == "rpartition":
			return types.TupleOf(types.Str, types.Str, types.Str), false, true
		}
	case types.KindBytes:
		switch method {
		case "decode", "hex":
			return types.Str, method == "decode", true
		case "startswith", "endswith":
			return types.Bool, false, true
		case "count", "find", "index":
			return types.Int, false, true
		case "strip", "replace", "upper", "lower":
			return types.Bytes, false, true
		}
	case types.KindList:
		switch {
		case listVoid[method]:
			return types.None, false, true
		case method == "pop":
			return rt.Elem, false, true
		case method == "index" || method == "count":
			return types.Int, false, true
		case method == "copy":
			return rt, false, true
		}
	case types.KindDict:
		switch method {
		case "get":
			if len(args) >= 2 {
				return types.Join(rt.Value, arg(1)), false, true
			}
			return types.OptionalOf(rt.Value), false, true
		case "keys":
			return types.ListOf(rt.Key), false, true
		case "values":
			return types.ListOf(rt.Value), false, true
		case "items":
			return types.ListOf(types.TupleOf(rt.Key, rt.Value)), false, true
		case "pop":
			if len(args) >= 2 {
				return types.Join(rt.Value, arg(1)), false, true
			}
			return rt.Value, false, true
		case "setdefault":
			return rt.Value, false, true
		case "update", "clear", "__delitem__":
			return types.None, false, true
		case "copy":
			return rt, false, true
		case "popitem":
			return types.TupleOf(rt.Key, rt.Value), false, true
		}
	case types.KindSet:
		switch {
		case setVoid[method]:
			return types.None, false, true
		case setToSet[method]:
			return rt, false, true
		case setToBool[method]:
			return types.Bool, false, true
		case method == "pop":
			return rt.Elem, false, true
		}
	case types.KindInt:
		switch method {
		case "bit_length", "bit_count":
			return types.Int, false, true
		case "to_bytes":
			return types.Bytes, false, true
		}
	case types.KindFloat:
		switch method {
		case "is_integer":
			return types.Bool, false, true
		case "hex":
			return types.Str, false, true
		}
	case types.KindExtern:
		return externMethod(rt, method, args)
	}
	if method == "__delitem__" {
		return types.None, false, true
	}
	return nil, false, false
}

func externMethod(rt *types.Type, method string, args []*types.Type) (*types.Type, bool, bool) {
	switch rt.Name {
	case types.ExtPattern:
		switch method {
		case "match", "search", "fullmatch":
			return types.OptionalOf(types.Extern(types.ExtMatch)), false, true
		case "findall":
			return types.ListOf(types.Str), false, true
		case "finditer":
			return types.IteratorOf(types.Extern(types.ExtMatch)), false, true
		case "sub":
			return types.Str, false, true
		case "split":
			return types.ListOf(types.Str), false, true
		}
	case types.ExtMatch:
		switch method {
		case "group":
			return types.Str, false, true
		case "groups":
			return types.ListOf(types.Str), false, true
		case "start", "end":
			return types.Int, false, true
		case "span":
			return types.TupleOf(types.Int, types.Int), false, true
		}
	case types.ExtFile:
		switch method {
		case "read", "readline":
			return types.Str, true, true
		case "readlines":
			return types.ListOf(types.Str), true, true
		case "write":
			return types.None, true, true
		case "writelines", "flush":
			return types.None, true, true
		case "close":
			return types.None, false, true
		}
	case types.ExtPath:
		switch method {
		case "exists", "is_file", "is_dir", "is_absolute":
			return types.Bool, false, true
		case "read_text":
			return types.Str, true, true
		case "read_bytes":
			return types.Bytes, true, true
		case "write_text", "write_bytes", "mkdir", "unlink", "rmdir", "touch":
			return types.None, true, true
		case "joinpath", "resolve", "absolute", "with_suffix", "with_name", "expanduser":
			return rt, method == "resolve", true
		case "iterdir", "glob", "rglob":
			return types.ListOf(rt), true, true
		case "open":
			return types.Extern(types.ExtFile), true, true
		}
	case types.ExtDateTime, types.ExtDate, types.ExtTime:
		switch method {
		case "strftime", "isoformat":
			return types.Str, false, true
		case "date":
			return types.Extern(types.ExtDate), false, true
		case "time":
			return types.Extern(types.ExtTime), false, true
		case "timestamp":
			return types.Float, false, true
		case "replace":
			return rt, false, true
		case "weekday", "isoweekday":
			return types.Int, false, true
		}
	case types.ExtTimeDelta:
		if method == "total_seconds" {
			return types.Float, false, true
		}
	case types.ExtHasher:
		switch method {
		case "update":
			return types.None, false, true
		case "hexdigest":
			return types.Str, false, true
		case "digest":
			return types.Bytes, false, true
		case "copy":
			return rt, false, true
		}
	case types.ExtPopen:
		switch method {
		case "wait":
			return types.Int, true, true
		case "communicate":
			return types.TupleOf(types.Str, types.Str), true, true
		case "poll":
			return types.OptionalOf(types.Int), true, true
		case "kill", "terminate":
			return types.None, true, true
		}
	case types.ExtCompleted:
		if method == "check_returncode" {
			return types.None, true, true
		}
	case types.ExtNamespace:
	case types.ExtCSVWriter, types.ExtCSVDictWriter:
		switch method {
		case "writerow", "writerows", "writeheader":
			return types.None, true, true
		}
	case types.ExtJSON:
		switch method {
		case "get":
			return types.OptionalOf(types.Extern(types.ExtJSON)), false, true
		case "keys":
			return types.ListOf(types.Str), false, true
		case "values":
			return types.ListOf(types.Extern(types.ExtJSON)), false, true
		case "items":
			return types.ListOf(types.TupleOf(types.Str, types.Extern(types.ExtJSON))), false, true
		}
	case types.ExtRandom:
		return randomResult(method, args)
	}
	return nil, false, false
}

func randomResult(method string, args []*types.Type) (*types.Type, bool, bool) {
	switch method {
	case "randint", "randrange", "getrandbits":
		return types.Int, false, true
	case "random", "uniform", "gauss":
		return types.Float, false, true
	case "choice":
		if len(args) > 0 {
			return iterElem(args[0]), false, true
		}
		return types.Unknown, false, true
	case "shuffle", "seed":
		return types.None, false, true
	case "sample":
		if len(args) > 0 {
			return types.ListOf(iterElem(args[0])), false, true
		}
		return types.ListOf(types.Unknown), false, true
	}
	return nil, false, false
}

// receiverHint guesses a receiver type from the method called on it.
func receiverHint(method string) *types.Type {
	switch {
	case method == "append" || method == "extend" || method == "insert" || method == "sort" || method == "reverse":
		return types.ListOf(types.Unknown)
	case method == "keys" || method == "values" || method == "items" || method == "setdefault":
		return types.DictOf(types.Unknown, types.Unknown)
	case method == "add" || method == "discard" || setToBool[method]:
		return types.SetOf(types.Unknown)
	case strToStr[method] && method != "join" && method != "format" || strToBool[method] || strToList[method]:
		return types.Str
	}
	return nil
}

// hintedResult types a method call on a dynamic receiver when the
// method name alone determines the result.
func hintedResult(method string) *types.Type {
	switch {
	case strToStr[method]:
		return types.Str
	case strToBool[method], setToBool[method]:
		return types.Bool
	case strToList[method]:
		return types.ListOf(types.Str)
	case listVoid[method] || setVoid[method]:
		return types.None
	}
	return nil
}

// attrType types base.name.
func (in *inferer) attrType(bt *types.Type, name string) *types.Type {
	if c := in.classOf(bt); c != nil {
		if f := in.findField(c, name); f != nil {
			return f.Type
		}
		if m := in.findMethod(c, name); m != nil && m.Flags.HasFlag(hir.FuncProperty) {
			return m.Result
		}
		for depth, cc := 0, c; cc != nil && depth < 32; depth, cc = depth+1, in.module.Class(cc.Base) {
			for _, k := range cc.Constants {
				if k.Name == name && k.Type != nil {
					return k.Type
				}
			}
		}
		return types.Unknown
	}
	if bt.Kind != types.KindExtern {
		if bt.Kind == types.KindDynamic {
			return types.Dynamic
		}
		return types.Unknown
	}
	switch bt.Name {
	case types.ExtCompleted:
		switch name {
		case "returncode":
			return types.Int
		case "stdout", "stderr":
			return types.Str
		case "args":
			return types.ListOf(types.Str)
		}
	case types.ExtPopen:
		switch name {
		case "returncode":
			return types.OptionalOf(types.Int)
		case "pid":
			return types.Int
		}
	case types.ExtPath:
		switch name {
		case "name", "stem", "suffix":
			return types.Str
		case "parent":
			return bt
		case "parts":
			return types.ListOf(types.Str)
		}
	case types.ExtDateTime, types.ExtDate, types.ExtTime:
		switch name {
		case "year", "month", "day", "hour", "minute", "second", "microsecond":
			return types.Int
		}
	case types.ExtTimeDelta:
		switch name {
		case "days", "seconds", "microseconds":
			return types.Int
		}
	case types.ExtNamespace:
		return in.namespaceField(name)
	case types.ExtCSVDictReader:
		if name == "fieldnames" {
			return types.ListOf(types.Str)
		}
	}
	return types.Unknown
}
