package infer

import (
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/types"
)

var mathFloat = names(
	"sqrt", "exp", "log", "log10", "log2", "sin", "cos", "tan", "asin", "acos", "atan",
	"atan2", "hypot", "pow", "fabs", "degrees", "radians", "sinh", "cosh", "tanh", "fmod",
)

// moduleCallResult types module.fn(args). Unknown results come back as
// types.Unknown so the caller can report them.
func moduleCallResult(module, fn string, args []*types.Type, argExprs []*hir.Expr) (t *types.Type, fallible bool) {
	arg := func(i int) *types.Type {
		if i < len(args) {
			return args[i]
		}
		return types.Unknown
	}
	switch module {
	case "math":
		switch {
		case mathFloat[fn]:
			return types.Float, false
		case fn == "floor" || fn == "ceil" || fn == "trunc" || fn == "factorial" || fn == "gcd" || fn == "lcm" || fn == "isqrt" || fn == "comb" || fn == "perm":
			return types.Int, false
		case fn == "isnan" || fn == "isinf" || fn == "isfinite" || fn == "isclose":
			return types.Bool, false
		case fn == "fsum" || fn == "prod":
			return types.Float, false
		}
	case "os":
		switch fn {
		case "getcwd":
			return types.Str, true
		case "getenv":
			if len(args) > 1 {
				return types.Str, false
			}
			return types.OptionalOf(types.Str), false
		case "listdir":
			return types.ListOf(types.Str), true
		case "mkdir", "makedirs", "remove", "rmdir", "rename", "unlink", "chdir":
			return types.None, true
		case "cpu_count":
			return types.OptionalOf(types.Int), false
		case "getpid":
			return types.Int, false
		}
	case "os.path":
		switch fn {
		case "join", "basename", "dirname", "expanduser", "normpath":
			return types.Str, false
		case "abspath", "realpath":
			return types.Str, true
		case "exists", "isfile", "isdir", "isabs":
			return types.Bool, false
		case "splitext", "split":
			return types.TupleOf(types.Str, types.Str), false
		case "getsize":
			return types.Int, true
		}
	case "sys":
		if fn == "exit" {
			return types.None, false
		}
	case "json":
		switch fn {
		case "loads", "load":
			return types.Extern(types.ExtJSON), true
		case "dumps":
			return types.Str, true
		case "dump":
			return types.None, true
		}
	case "re":
		switch fn {
		case "compile":
			return types.Extern(types.ExtPattern), true
		case "search", "match", "fullmatch":
			return types.OptionalOf(types.Extern(types.ExtMatch)), true
		case "findall", "split":
			return types.ListOf(types.Str), true
		case "finditer":
			return types.IteratorOf(types.Extern(types.ExtMatch)), true
		case "sub":
			return types.Str, true
		case "escape":
			return types.Str, false
		}
	case "datetime":
		switch fn {
		case "datetime", "now", "today", "fromtimestamp":
			return types.Extern(types.ExtDateTime), false
		case "strptime", "fromisoformat":
			return types.Extern(types.ExtDateTime), true
		case "date":
			return types.Extern(types.ExtDate), false
		case "time":
			return types.Extern(types.ExtTime), false
		case "timedelta":
			return types.Extern(types.ExtTimeDelta), false
		}
	case "time":
		switch fn {
		case "time", "perf_counter", "monotonic":
			return types.Float, false
		case "sleep":
			return types.None, false
		case "time_ns", "perf_counter_ns", "monotonic_ns":
			return types.Int, false
		}
	case "random":
		if fn == "Random" {
			return types.Extern(types.ExtRandom), false
		}
		if t, _, ok := randomResult(fn, args); ok {
			return t, false
		}
	case "hashlib":
		switch fn {
		case "md5", "sha224", "sha256", "sha384", "sha512":
			return types.Hasher(fn), false
		case "new":
			if len(argExprs) > 0 {
				if lit, ok := argExprs[0].Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
					return types.Hasher(lit.Text), false
				}
			}
			return types.Hasher("sha256"), false
		}
	case "base64":
		switch fn {
		case "b64encode", "urlsafe_b64encode":
			return types.Bytes, false
		case "b64decode", "urlsafe_b64decode":
			return types.Bytes, true
		}
	case "subprocess":
		switch fn {
		case "run":
			return types.Extern(types.ExtCompleted), true
		case "Popen":
			return types.Extern(types.ExtPopen), true
		case "check_output":
			return types.Str, true
		case "call", "check_call":
			return types.Int, true
		}
	case "pathlib":
		if fn == "Path" || fn == "PurePath" {
			return types.Extern(types.ExtPath), false
		}
	case "csv":
		switch fn {
		case "reader":
			return types.Extern(types.ExtCSVReader), false
		case "writer":
			return types.Extern(types.ExtCSVWriter), false
		case "DictReader":
			return types.Extern(types.ExtCSVDictReader), false
		case "DictWriter":
			return types.Extern(types.ExtCSVDictWriter), false
		}
	case "collections":
		switch fn {
		case "defaultdict":
			return types.DictOf(types.Unknown, defaultFactory(argExprs)), false
		case "Counter":
			if len(args) > 0 {
				return types.DictOf(iterElem(arg(0)), types.Int), false
			}
			return types.DictOf(types.Unknown, types.Int), false
		case "OrderedDict":
			return types.DictOf(types.Unknown, types.Unknown), false
		case "deque":
			if len(args) > 0 {
				return types.ListOf(iterElem(arg(0))), false
			}
			return types.ListOf(types.Unknown), false
		}
	case "itertools":
		switch fn {
		case "chain", "cycle", "islice", "takewhile", "dropwhile":
			src := arg(0)
			if fn == "takewhile" || fn == "dropwhile" {
				src = arg(1)
			}
			return types.IteratorOf(iterElem(src)), false
		case "repeat":
			return types.IteratorOf(arg(0)), false
		case "count":
			return types.IteratorOf(types.Int), false
		case "accumulate":
			return types.IteratorOf(iterElem(arg(0))), false
		}
	case "functools":
		if fn == "reduce" {
			if f := arg(0); f.Kind == types.KindFunc && f.Result.IsKnown() {
				return f.Result, false
			}
			if len(args) > 2 {
				return arg(2), false
			}
			return iterElem(arg(1)), false
		}
	case "asyncio":
		if fn == "sleep" {
			return types.None, false
		}
	case "shutil":
		switch fn {
		case "copy", "copyfile", "move":
			return types.Str, true
		case "rmtree":
			return types.None, true
		}
	case "statistics":
		switch fn {
		case "mean", "median", "stdev", "variance", "pstdev", "pvariance":
			return types.Float, false
		case "mode":
			return iterElem(arg(0)), false
		}
	case "copy":
		if fn == "copy" || fn == "deepcopy" {
			return arg(0), false
		}
	}
	return types.Unknown, false
}

// defaultFactory types the values of defaultdict(factory).
func defaultFactory(argExprs []*hir.Expr) *types.Type {
	if len(argExprs) == 0 {
		return types.Unknown
	}
	switch hir.NameOf(argExprs[0]) {
	case "int":
		return types.Int
	case "float":
		return types.Float
	case "str":
		return types.Str
	case "list":
		return types.ListOf(types.Unknown)
	case "set":
		return types.SetOf(types.Unknown)
	case "dict":
		return types.DictOf(types.Unknown, types.Unknown)
	}
	return types.Unknown
}

// moduleAttrType types module constants such as math.pi or sys.argv.
func moduleAttrType(module, attr string) *types.Type {
	switch module {
	case "math":
		switch attr {
		case "pi", "e", "tau", "inf", "nan":
			return types.Float
		}
	case "sys":
		switch attr {
		case "argv":
			return types.ListOf(types.Str)
		case "platform", "version":
			return types.Str
		case "maxsize":
			return types.Int
		case "stdin", "stdout", "stderr":
			return types.Extern(types.ExtFile)
		}
	case "os":
		switch attr {
		case "environ":
			return types.DictOf(types.Str, types.Str)
		case "sep", "linesep", "name":
			return types.Str
		}
	case "string":
		return types.Str
	case "re":
		return types.Int
	case "subprocess":
		if attr == "PIPE" || attr == "DEVNULL" || attr == "STDOUT" {
			return types.Int
		}
	}
	return types.Unknown
}
