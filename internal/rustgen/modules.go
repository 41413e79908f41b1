package rustgen

import (
	"strings"

	"github.com/paiml/depyler-sub011/internal/diag"
	"github.com/paiml/depyler-sub011/internal/hir"
	"github.com/paiml/depyler-sub011/internal/trace"
	"github.com/paiml/depyler-sub011/internal/types"
)

// modCall carries one module-level call through the per-module tables.
type modCall struct {
	e      *hir.Expr
	name   string
	args   []*hir.Expr
	kwargs []*hir.Kwarg
}

func (c *modCall) arg(i int) *hir.Expr {
	if i < len(c.args) {
		return c.args[i]
	}
	return nil
}

func (c *modCall) kwarg(name string) *hir.Expr { return findKw(c.kwargs, name) }

// argOr returns positional i, else the keyword.
func (c *modCall) argOr(i int, name string) *hir.Expr {
	if a := c.arg(i); a != nil {
		return a
	}
	return c.kwarg(name)
}

// moduleCall spells module.name(args). fallible is set when the text is
// a Result the caller must settle.
func (f *funcEmitter) moduleCall(e *hir.Expr, imp *hir.Import, name string, args []*hir.Expr, kwargs []*hir.Kwarg) (string, bool) {
	c := &modCall{e: e, name: name, args: args, kwargs: kwargs}
	if imp.Crate != "" {
		f.e.need(imp.Crate)
	}
	var (
		s        string
		fallible bool
		ok       bool
	)
	switch imp.Module {
	case "math":
		s, ok = f.mathCall(c)
	case "os":
		s, fallible, ok = f.osCall(c)
	case "os.path":
		s, fallible, ok = f.osPathCall(c)
	case "sys":
		if name == "exit" {
			code := "0"
			if a := c.arg(0); a != nil {
				code = f.expr(a)
			}
			s, ok = "std::process::exit("+code+")", true
		}
	case "json":
		s, fallible, ok = f.jsonCall(c)
	case "re":
		s, ok = f.reCall(c)
	case "datetime":
		s, fallible, ok = f.datetimeCall(c)
	case "time":
		s, ok = f.timeCall(c)
	case "random":
		s, ok = f.randomCall(c, "&mut rand::thread_rng()")
	case "hashlib":
		s, ok = f.hashlibCall(c)
	case "base64":
		s, fallible, ok = f.base64Call(c)
	case "subprocess":
		s, fallible, ok = f.subprocessCall(c)
	case "pathlib":
		if name == "Path" || name == "PurePath" {
			s, ok = f.pathNew(c), true
		}
	case "csv":
		s, ok = f.csvCall(c)
	case "argparse":
		if name == "ArgumentParser" {
			s, ok = f.newParser(c), true
		}
	case "collections":
		s, ok = f.collectionsCall(c)
	case "itertools":
		s, ok = f.itertoolsCall(c)
	case "functools":
		s, ok = f.functoolsCall(c)
	case "asyncio":
		s, ok = f.asyncioCall(c)
	case "shutil":
		s, fallible, ok = f.shutilCall(c)
	case "statistics":
		s, ok = f.statisticsCall(c)
	case "copy":
		if name == "copy" || name == "deepcopy" {
			s, ok = atom(f.expr(c.arg(0)))+".clone()", true
		}
	}
	if ok {
		f.record(trace.DecisionMethodDispatch, imp.Module+"."+name, "standard library table", e.Span)
		return s, fallible
	}
	return f.mappedCall(c, imp), false
}

// mappedCall spells a call the tables do not cover through the import
// mapping, reporting it.
func (f *funcEmitter) mappedCall(c *modCall, imp *hir.Import) string {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = f.value(a)
	}
	path := ""
	if it := imp.Item(c.name); it != nil && it.Rust != "" {
		path = it.Rust
	} else if imp.Path != "" {
		path = imp.Path + "::" + SafeIdent(c.name)
	}
	if path == "" {
		f.report(diag.MthUnknownModule, c.e.Span, "%s.%s has no mapping", imp.Module, c.name)
		return "unimplemented!(" + quote(imp.Module+"."+c.name) + ")"
	}
	f.report(diag.MthUnknownModule, c.e.Span, "%s.%s is not in the standard library table; emitting %s", imp.Module, c.name, path)
	return path + "(" + strings.Join(args, ", ") + ")"
}

// moduleAttr spells module.name used as a value. e is nil for names
// imported with from-import.
func (f *funcEmitter) moduleAttr(imp *hir.Import, name string, e *hir.Expr) (string, bool) {
	it := f.e.opts.IntType
	switch imp.Module {
	case "math":
		switch name {
		case "pi":
			return "std::f64::consts::PI", true
		case "e":
			return "std::f64::consts::E", true
		case "tau":
			return "std::f64::consts::TAU", true
		case "inf":
			return "f64::INFINITY", true
		case "nan":
			return "f64::NAN", true
		}
	case "sys":
		switch name {
		case "argv":
			return "std::env::args().collect::<Vec<String>>()", true
		case "platform":
			return "std::env::consts::OS.to_string()", true
		case "version":
			return "env!(\"CARGO_PKG_VERSION\").to_string()", true
		case "maxsize":
			return it + "::MAX", true
		case "stdin", "stdout", "stderr":
			return "std::io::" + name + "()", true
		}
	case "os":
		switch name {
		case "environ":
			return "std::env::vars().collect::<std::collections::HashMap<String, String>>()", true
		case "sep":
			return "std::path::MAIN_SEPARATOR.to_string()", true
		case "linesep":
			return "\"\\n\".to_string()", true
		case "name":
			return "\"posix\".to_string()", true
		}
	case "string":
		if item, ok := stringConstants[name]; ok {
			return quote(item) + ".to_string()", true
		}
	case "re":
		if _, ok := regexFlags[name]; ok {
			return "0", true
		}
	case "subprocess":
		switch name {
		case "PIPE", "DEVNULL", "STDOUT":
			return "0", true
		}
	}
	if e != nil {
		f.report(diag.MthUnknownModule, e.Span, "%s.%s has no mapping", imp.Module, name)
	}
	return "", false
}

var stringConstants = map[string]string{
	"ascii_letters":   "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
	"ascii_lowercase": "abcdefghijklmnopqrstuvwxyz",
	"ascii_uppercase": "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	"digits":          "0123456789",
	"hexdigits":       "0123456789abcdefABCDEF",
	"octdigits":       "01234567",
	"punctuation":     "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~",
	"whitespace":      " \t\n\r\x0b\x0c",
}

var regexFlags = map[string]string{
	"IGNORECASE": "i", "I": "i",
	"MULTILINE": "m", "M": "m",
	"DOTALL": "s", "S": "s",
	"VERBOSE": "x", "X": "x",
}

func (f *funcEmitter) mathCall(c *modCall) (string, bool) {
	fl := func(i int) string { return toFloat(f.operand(c.arg(i))) }
	it := f.e.opts.IntType
	switch c.name {
	case "sqrt", "exp", "log10", "log2", "sin", "cos", "tan", "sinh", "cosh", "tanh", "trunc":
		s := fl(0) + "." + c.name + "()"
		if c.name == "trunc" {
			return "(" + s + " as " + it + ")", true
		}
		return s, true
	case "asin", "acos", "atan":
		return fl(0) + "." + c.name + "()", true
	case "log":
		if c.arg(1) != nil {
			return fl(0) + ".log(" + fl(1) + ")", true
		}
		return fl(0) + ".ln()", true
	case "atan2", "hypot":
		return fl(0) + "." + c.name + "(" + fl(1) + ")", true
	case "pow":
		return fl(0) + ".powf(" + fl(1) + ")", true
	case "fabs":
		return fl(0) + ".abs()", true
	case "degrees":
		return fl(0) + ".to_degrees()", true
	case "radians":
		return fl(0) + ".to_radians()", true
	case "fmod":
		return "(" + fl(0) + " % " + fl(1) + ")", true
	case "floor", "ceil":
		if c.arg(0).Type.Kind == types.KindInt {
			return f.expr(c.arg(0)), true
		}
		return "(" + fl(0) + "." + c.name + "() as " + it + ")", true
	case "isnan":
		return fl(0) + ".is_nan()", true
	case "isinf":
		return fl(0) + ".is_infinite()", true
	case "isfinite":
		return fl(0) + ".is_finite()", true
	case "isclose":
		return "{ let (_a, _b) = (" + fl(0) + ", " + fl(1) + "); (_a - _b).abs() <= 1e-9 * _a.abs().max(_b.abs()) }", true
	case "factorial":
		return "(1..=" + paren(f.expr(c.arg(0))) + ").product::<" + it + ">()", true
	case "gcd":
		return "{ let (mut _a, mut _b) = (" + paren(f.expr(c.arg(0))) + ".abs(), " + paren(f.expr(c.arg(1))) + ".abs()); while _b != 0 { let _t = _b; _b = _a % _b; _a = _t; } _a }", true
	case "lcm":
		a, b := paren(f.expr(c.arg(0))), paren(f.expr(c.arg(1)))
		return "{ let (_x, _y) = (" + a + ".abs(), " + b + ".abs()); let (mut _a, mut _b) = (_x, _y); while _b != 0 { let _t = _b; _b = _a % _b; _a = _t; } if _a == 0 { 0 } else { _x / _a * _y } }", true
	case "isqrt":
		return "(" + fl(0) + ".sqrt() as " + it + ")", true
	case "comb":
		return "{ let (_n, _k) = (" + f.expr(c.arg(0)) + ", " + f.expr(c.arg(1)) + "); (0.._k).fold(1, |acc, i| acc * (_n - i) / (i + 1)) }", true
	case "perm":
		return "{ let (_n, _k) = (" + f.expr(c.arg(0)) + ", " + f.expr(c.arg(1)) + "); (0.._k).fold(1, |acc, i| acc * (_n - i)) }", true
	case "fsum":
		return atom(f.iterSource(c.arg(0))) + ".map(|x| x as f64).sum::<f64>()", true
	case "prod":
		return atom(f.iterSource(c.arg(0))) + ".map(|x| x as f64).product::<f64>()", true
	}
	return "", false
}

func (f *funcEmitter) osCall(c *modCall) (string, bool, bool) {
	it := f.e.opts.IntType
	switch c.name {
	case "getcwd":
		return "std::env::current_dir().map(|p| p.display().to_string())", true, true
	case "getenv":
		s := "std::env::var(" + f.strArg(c.arg(0)) + ")"
		if d := c.argOr(1, "default"); d != nil {
			return s + ".unwrap_or_else(|_| " + f.coerce(d, types.Str) + ")", false, true
		}
		return s + ".ok()", false, true
	case "listdir":
		dir := "\".\""
		if a := c.arg(0); a != nil {
			dir = f.strArg(a)
		}
		return "std::fs::read_dir(" + dir + ").map(|rd| rd.filter_map(|e| e.ok().map(|e| e.file_name().to_string_lossy().to_string())).collect::<Vec<String>>())", true, true
	case "mkdir":
		return "std::fs::create_dir(" + f.strArg(c.arg(0)) + ")", true, true
	case "makedirs":
		return "std::fs::create_dir_all(" + f.strArg(c.arg(0)) + ")", true, true
	case "remove", "unlink":
		return "std::fs::remove_file(" + f.strArg(c.arg(0)) + ")", true, true
	case "rmdir":
		return "std::fs::remove_dir(" + f.strArg(c.arg(0)) + ")", true, true
	case "rename":
		return "std::fs::rename(" + f.strArg(c.arg(0)) + ", " + f.strArg(c.arg(1)) + ")", true, true
	case "chdir":
		return "std::env::set_current_dir(" + f.strArg(c.arg(0)) + ")", true, true
	case "cpu_count":
		return "std::thread::available_parallelism().ok().map(|n| n.get() as " + it + ")", false, true
	case "getpid":
		return "(std::process::id() as " + it + ")", false, true
	}
	return "", false, false
}

func (f *funcEmitter) osPathCall(c *modCall) (string, bool, bool) {
	p := func(i int) string { return "std::path::Path::new(" + f.strArg(c.arg(i)) + ")" }
	lossy := ".map(|s| s.to_string_lossy().to_string()).unwrap_or_default()"
	switch c.name {
	case "join":
		s := p(0)
		for _, a := range c.args[1:] {
			s += ".join(" + f.strArg(a) + ")"
		}
		return s + ".display().to_string()", false, true
	case "basename":
		return p(0) + ".file_name()" + lossy, false, true
	case "dirname":
		return p(0) + ".parent().map(|s| s.display().to_string()).unwrap_or_default()", false, true
	case "exists":
		return p(0) + ".exists()", false, true
	case "isfile":
		return p(0) + ".is_file()", false, true
	case "isdir":
		return p(0) + ".is_dir()", false, true
	case "isabs":
		return p(0) + ".is_absolute()", false, true
	case "abspath":
		return "std::path::absolute(" + f.strArg(c.arg(0)) + ").map(|p| p.display().to_string())", true, true
	case "realpath":
		return "std::fs::canonicalize(" + f.strArg(c.arg(0)) + ").map(|p| p.display().to_string())", true, true
	case "splitext":
		return "{ let _s: &str = " + f.strArg(c.arg(0)) + "; match std::path::Path::new(_s).extension() { Some(e) => (_s[.._s.len() - e.len() - 1].to_string(), format!(\".{}\", e.to_string_lossy())), None => (_s.to_string(), String::new()) } }", false, true
	case "split":
		return "{ let _p = " + p(0) + "; (_p.parent().map(|s| s.display().to_string()).unwrap_or_default(), _p.file_name()" + lossy + ") }", false, true
	case "expanduser":
		return f.strArg(c.arg(0)) + ".replacen('~', &std::env::var(\"HOME\").unwrap_or_default(), 1)", false, true
	case "normpath":
		return p(0) + ".components().collect::<std::path::PathBuf>().display().to_string()", false, true
	case "getsize":
		return "std::fs::metadata(" + f.strArg(c.arg(0)) + ").map(|m| m.len() as " + f.e.opts.IntType + ")", true, true
	}
	return "", false, false
}

func (f *funcEmitter) jsonCall(c *modCall) (string, bool, bool) {
	f.e.need("serde_json")
	pretty := c.kwarg("indent") != nil && !hir.IsNoneLit(c.kwarg("indent"))
	switch c.name {
	case "loads":
		return "serde_json::from_str::<serde_json::Value>(" + f.strArg(c.arg(0)) + ")", true, true
	case "load":
		return "serde_json::from_reader::<_, serde_json::Value>(" + f.refArg(c.arg(0)) + ")", true, true
	case "dumps":
		fn := "to_string"
		if pretty {
			fn = "to_string_pretty"
		}
		return "serde_json::" + fn + "(" + f.refArg(c.arg(0)) + ")", true, true
	case "dump":
		fn := "to_writer"
		if pretty {
			fn = "to_writer_pretty"
		}
		return "serde_json::" + fn + "(" + f.refArg(c.argOr(1, "fp")) + ", " + f.refArg(c.arg(0)) + ")", true, true
	}
	return "", false, false
}

// regexNew spells the compiled pattern of a module-level re call and
// settles its Result in place.
func (f *funcEmitter) regexNew(pat, flags *hir.Expr) string {
	f.e.need("regex")
	prefix := ""
	if flags != nil {
		hir.InspectExpr(flags, hir.Visitor{Expr: func(x *hir.Expr) bool {
			if a, ok := x.Data.(*hir.AttrData); ok {
				prefix += regexFlags[a.Name]
			}
			if n := hir.NameOf(x); n != "" {
				if imp, it := f.e.mod.ImportedItem(n); imp != nil && imp.Module == "re" {
					prefix += regexFlags[it.Name]
				}
			}
			return true
		}})
	}
	var p string
	switch lit, ok := pat.Data.(*hir.LiteralData); {
	case ok && lit.Kind == hir.LiteralStr && prefix != "":
		p = quote("(?" + prefix + ")" + lit.Text)
	case prefix != "":
		p = "&format!(\"(?" + prefix + "){}\", " + f.strArg(pat) + ")"
	default:
		p = f.strArg(pat)
	}
	return "regex::Regex::new(" + p + ")"
}

func (f *funcEmitter) reCall(c *modCall) (string, bool) {
	f.e.need("regex")
	if c.name == "escape" {
		return "regex::escape(" + f.strArg(c.arg(0)) + ")", true
	}
	if c.name == "compile" {
		return f.propagate(f.regexNew(c.arg(0), c.argOr(1, "flags")), ""), true
	}
	// re.fn(pattern, ...) is Pattern.fn(...) on a fresh pattern
	var flags *hir.Expr
	rest := c.args[1:]
	switch c.name {
	case "search", "match", "fullmatch", "findall", "finditer", "split":
		flags = c.argOr(2, "flags")
		if len(rest) > 1 {
			rest = rest[:1]
		}
	case "sub":
		flags = c.argOr(4, "flags")
		if len(rest) > 3 {
			rest = rest[:3]
		}
	}
	re := atom(f.propagate(f.regexNew(c.arg(0), flags), ""))
	return f.patternMethod(re, c.name, rest, c.kwargs)
}

// patternMethod spells Pattern methods against a compiled regex.
func (f *funcEmitter) patternMethod(re, method string, args []*hir.Expr, kwargs []*hir.Kwarg) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s := f.strArg(args[0])
	switch method {
	case "search":
		return re + ".captures(" + s + ")", true
	case "match":
		return re + ".captures(" + s + ").filter(|c| c.get(0).map_or(false, |m| m.start() == 0))", true
	case "fullmatch":
		return "{ let _h: &str = " + s + "; " + re + ".captures(_h).filter(|c| c.get(0).map_or(false, |m| m.start() == 0 && m.end() == _h.len())) }", true
	case "findall":
		return re + ".captures_iter(" + s + ").map(|c| c.get(if c.len() > 1 { 1 } else { 0 }).map_or(String::new(), |m| m.as_str().to_string())).collect::<Vec<String>>()", true
	case "finditer":
		return re + ".captures_iter(" + s + ")", true
	case "split":
		return re + ".split(" + s + ").map(|s| s.to_string()).collect::<Vec<String>>()", true
	case "sub":
		if len(args) < 2 {
			return "", false
		}
		repl := f.strArg(args[0])
		if lit, ok := args[0].Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			repl = quote(pythonBackrefs(lit.Text))
		}
		hay := f.strArg(args[1])
		count := findKw(kwargs, "count")
		if len(args) > 2 {
			count = args[2]
		}
		if count != nil {
			return re + ".replacen(" + hay + ", " + paren(f.expr(count)) + " as usize, " + repl + ").to_string()", true
		}
		return re + ".replace_all(" + hay + ", " + repl + ").to_string()", true
	}
	return "", false
}

func findKw(kws []*hir.Kwarg, name string) *hir.Expr {
	for _, kw := range kws {
		if kw.Name == name {
			return kw.Value
		}
	}
	return nil
}

// pythonBackrefs rewrites \1 group references as ${1}.
func pythonBackrefs(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			b.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
			continue
		}
		if s[i] == '$' {
			b.WriteString("$$")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (f *funcEmitter) datetimeCall(c *modCall) (string, bool, bool) {
	f.e.need("chrono")
	u32 := func(i int, kw string) string {
		if a := c.argOr(i, kw); a != nil {
			return paren(f.expr(a)) + " as u32"
		}
		return "0"
	}
	switch c.name {
	case "now", "today":
		return "chrono::Local::now()", false, true
	case "datetime":
		date := "chrono::NaiveDate::from_ymd_opt(" + f.expr(c.argOr(0, "year")) + ", " + u32(1, "month") + ", " + u32(2, "day") + ").expect(\"invalid date\")"
		return date + ".and_hms_opt(" + u32(3, "hour") + ", " + u32(4, "minute") + ", " + u32(5, "second") + ").expect(\"invalid time\").and_local_timezone(chrono::Local).unwrap()", false, true
	case "date":
		return "chrono::NaiveDate::from_ymd_opt(" + f.expr(c.argOr(0, "year")) + ", " + u32(1, "month") + ", " + u32(2, "day") + ").expect(\"invalid date\")", false, true
	case "time":
		return "chrono::NaiveTime::from_hms_opt(" + u32(0, "hour") + ", " + u32(1, "minute") + ", " + u32(2, "second") + ").expect(\"invalid time\")", false, true
	case "timedelta":
		var parts []string
		units := []struct{ kw, fn string }{
			{"weeks", "weeks"}, {"days", "days"}, {"hours", "hours"},
			{"minutes", "minutes"}, {"seconds", "seconds"}, {"milliseconds", "milliseconds"},
		}
		if a := c.arg(0); a != nil {
			parts = append(parts, "chrono::Duration::days("+paren(f.expr(a))+" as i64)")
		}
		for _, u := range units {
			if a := c.kwarg(u.kw); a != nil {
				if a.Type.Kind == types.KindFloat && u.kw == "seconds" {
					parts = append(parts, "chrono::Duration::milliseconds(("+paren(f.expr(a))+" * 1000.0) as i64)")
					continue
				}
				parts = append(parts, "chrono::Duration::"+u.fn+"("+paren(f.expr(a))+" as i64)")
			}
		}
		if len(parts) == 0 {
			return "chrono::Duration::zero()", false, true
		}
		return strings.Join(parts, " + "), false, true
	case "fromtimestamp":
		return "chrono::DateTime::from_timestamp(" + toFloat(f.operand(c.arg(0))) + " as i64, 0).expect(\"timestamp out of range\").with_timezone(&chrono::Local)", false, true
	case "strptime":
		return "chrono::NaiveDateTime::parse_from_str(" + f.strArg(c.arg(0)) + ", " + f.strArg(c.arg(1)) + ").map(|d| d.and_local_timezone(chrono::Local).unwrap())", true, true
	case "fromisoformat":
		return "chrono::NaiveDateTime::parse_from_str(" + f.strArg(c.arg(0)) + ", \"%Y-%m-%dT%H:%M:%S\").map(|d| d.and_local_timezone(chrono::Local).unwrap())", true, true
	}
	return "", false, false
}

func (f *funcEmitter) timeCall(c *modCall) (string, bool) {
	it := f.e.opts.IntType
	epoch := "std::time::SystemTime::now().duration_since(std::time::UNIX_EPOCH).unwrap_or_default()"
	switch c.name {
	case "time", "perf_counter", "monotonic":
		return epoch + ".as_secs_f64()", true
	case "time_ns", "perf_counter_ns", "monotonic_ns":
		return "(" + epoch + ".as_nanos() as " + it + ")", true
	case "sleep":
		return "std::thread::sleep(std::time::Duration::from_secs_f64(" + toFloat(f.operand(c.arg(0))) + "))", true
	}
	return "", false
}

// randomCall spells random-module functions against rng, either the
// thread generator or a seeded StdRng binding.
func (f *funcEmitter) randomCall(c *modCall, rng string) (string, bool) {
	f.e.need("rand")
	it := f.e.opts.IntType
	switch c.name {
	case "Random":
		if a := c.argOr(0, "x"); a != nil {
			return "<rand::rngs::StdRng as rand::SeedableRng>::seed_from_u64(" + paren(f.expr(a)) + " as u64)", true
		}
		return "<rand::rngs::StdRng as rand::SeedableRng>::from_entropy()", true
	case "random":
		return "rand::Rng::gen::<f64>(" + rng + ")", true
	case "randint":
		return "rand::Rng::gen_range(" + rng + ", " + paren(f.expr(c.arg(0))) + "..=" + paren(f.expr(c.arg(1))) + ")", true
	case "randrange":
		if c.arg(1) == nil {
			return "rand::Rng::gen_range(" + rng + ", 0.." + paren(f.expr(c.arg(0))) + ")", true
		}
		return "rand::Rng::gen_range(" + rng + ", " + paren(f.expr(c.arg(0))) + ".." + paren(f.expr(c.arg(1))) + ")", true
	case "uniform":
		return "rand::Rng::gen_range(" + rng + ", " + toFloat(f.operand(c.arg(0))) + "..=" + toFloat(f.operand(c.arg(1))) + ")", true
	case "gauss":
		return "{ let _u1: f64 = rand::Rng::gen(" + rng + "); let _u2: f64 = rand::Rng::gen(" + rng + "); " + toFloat(f.operand(c.arg(0))) + " + " + toFloat(f.operand(c.arg(1))) + " * (-2.0 * (1.0 - _u1).ln()).sqrt() * (2.0 * std::f64::consts::PI * _u2).cos() }", true
	case "getrandbits":
		return "(rand::Rng::gen::<u64>(" + rng + ") >> (64 - " + paren(f.expr(c.arg(0))) + ") as " + it + ")", true
	case "choice":
		src := c.arg(0)
		if src.Type.Kind == types.KindStr {
			return "{ let _c: Vec<char> = " + atom(f.expr(src)) + ".chars().collect(); rand::seq::SliceRandom::choose(&_c[..], " + rng + ").copied().unwrap().to_string() }", true
		}
		return "rand::seq::SliceRandom::choose(&" + atom(f.expr(src)) + "[..], " + rng + ").cloned().expect(\"choice from an empty sequence\")", true
	case "shuffle":
		return "rand::seq::SliceRandom::shuffle(&mut " + atom(f.place(c.arg(0))) + "[..], " + rng + ")", true
	case "sample":
		return "rand::seq::SliceRandom::choose_multiple(&" + atom(f.expr(c.arg(0))) + "[..], " + rng + ", " + paren(f.expr(c.arg(1))) + " as usize).cloned().collect::<Vec<_>>()", true
	case "seed":
		f.record(trace.DecisionMethodDispatch, "random.seed", "the thread generator cannot be reseeded; use random.Random(seed)", c.e.Span)
		return "()", true
	}
	return "", false
}

// hasherPath spells the hasher type for an algorithm name.
func (f *funcEmitter) hasherPath(algo string) string {
	return f.rust(types.Hasher(algo))
}

func (f *funcEmitter) hashlibCall(c *modCall) (string, bool) {
	algo := c.name
	args := c.args
	if algo == "new" {
		if len(args) == 0 {
			return "", false
		}
		algo = "sha256"
		if lit, ok := args[0].Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr {
			algo = lit.Text
		}
		args = args[1:]
	}
	switch algo {
	case "md5", "sha224", "sha256", "sha384", "sha512":
	default:
		return "", false
	}
	path := f.hasherPath(algo)
	// the Digest trait is reached through sha2 for every algorithm
	f.e.need("sha2")
	if len(args) == 0 {
		return "<" + path + " as sha2::Digest>::new()", true
	}
	return "{ let mut _h = <" + path + " as sha2::Digest>::new(); sha2::Digest::update(&mut _h, " + f.bytesArg(args[0]) + "); _h }", true
}

// bytesArg spells e as a byte slice argument.
func (f *funcEmitter) bytesArg(e *hir.Expr) string {
	if e.Type.Kind == types.KindStr {
		return atom(f.strArg(e)) + ".as_bytes()"
	}
	return f.refArg(e)
}

func (f *funcEmitter) base64Call(c *modCall) (string, bool, bool) {
	f.e.need("base64")
	engine := "STANDARD"
	if strings.HasPrefix(c.name, "urlsafe") {
		engine = "URL_SAFE"
	}
	eng := "base64::engine::general_purpose::" + engine
	switch c.name {
	case "b64encode", "urlsafe_b64encode":
		return "base64::Engine::encode(&" + eng + ", " + f.bytesArg(c.arg(0)) + ").into_bytes()", false, true
	case "b64decode", "urlsafe_b64decode":
		return "base64::Engine::decode(&" + eng + ", " + f.bytesArg(c.arg(0)) + ")", true, true
	}
	return "", false, false
}

// command spells a std::process::Command for a subprocess argv.
func (f *funcEmitter) command(c *modCall) string {
	cmd := c.argOr(0, "args")
	var s string
	shell, _ := boolLit(c.kwarg("shell"))
	switch {
	case shell || cmd.Type.Kind == types.KindStr:
		s = "std::process::Command::new(\"sh\").arg(\"-c\").arg(" + f.strArg(cmd) + ")"
	default:
		if lst, ok := cmd.Data.(*hir.ElemsData); ok && len(lst.Elems) > 0 {
			s = "std::process::Command::new(" + f.strArg(lst.Elems[0]) + ")"
			if len(lst.Elems) > 1 {
				rest := make([]string, len(lst.Elems)-1)
				for i, a := range lst.Elems[1:] {
					rest[i] = f.strArg(a)
				}
				s += ".args([" + strings.Join(rest, ", ") + "])"
			}
		} else {
			v := f.refArg(cmd)
			s = "std::process::Command::new(&" + atom(v) + "[0]).args(&" + atom(v) + "[1..])"
		}
	}
	if cwd := c.kwarg("cwd"); cwd != nil {
		s += ".current_dir(" + f.strArg(cwd) + ")"
	}
	return s
}

func (f *funcEmitter) subprocessCall(c *modCall) (string, bool, bool) {
	it := f.e.opts.IntType
	cmd := f.command(c)
	check, _ := boolLit(c.kwarg("check"))
	checked := func(s string) string {
		if !check {
			return s
		}
		return s + ".and_then(|o| if o.status.success() { Ok(o) } else { Err(std::io::Error::new(std::io::ErrorKind::Other, format!(\"command failed: {}\", o.status))) })"
	}
	switch c.name {
	case "run":
		capture, _ := boolLit(c.kwarg("capture_output"))
		if capture || c.kwarg("stdout") != nil {
			return checked(cmd + ".output()"), true, true
		}
		return checked(cmd + ".spawn().and_then(|c| c.wait_with_output())"), true, true
	case "check_output":
		return cmd + ".output().and_then(|o| if o.status.success() { Ok(String::from_utf8_lossy(&o.stdout).to_string()) } else { Err(std::io::Error::new(std::io::ErrorKind::Other, format!(\"command failed: {}\", o.status))) })", true, true
	case "call":
		return cmd + ".status().map(|s| s.code().unwrap_or(-1) as " + it + ")", true, true
	case "check_call":
		return cmd + ".status().and_then(|s| if s.success() { Ok(0 as " + it + ") } else { Err(std::io::Error::new(std::io::ErrorKind::Other, format!(\"command failed: {}\", s))) })", true, true
	case "Popen":
		if c.kwarg("stdout") != nil {
			cmd += ".stdout(std::process::Stdio::piped())"
		}
		if c.kwarg("stderr") != nil {
			cmd += ".stderr(std::process::Stdio::piped())"
		}
		if c.kwarg("stdin") != nil {
			cmd += ".stdin(std::process::Stdio::piped())"
		}
		return cmd + ".spawn()", true, true
	}
	return "", false, false
}

// pathNew spells Path(...) construction.
func (f *funcEmitter) pathNew(c *modCall) string {
	if len(c.args) == 0 {
		return "std::path::PathBuf::from(\".\")"
	}
	s := "std::path::PathBuf::from(" + f.pathPart(c.args[0]) + ")"
	for _, a := range c.args[1:] {
		s += ".join(" + f.pathPart(a) + ")"
	}
	return s
}

// pathPart spells one path component argument.
func (f *funcEmitter) pathPart(e *hir.Expr) string {
	if e.Type.IsExtern(types.ExtPath) {
		return f.refArg(e)
	}
	return f.strArg(e)
}

// pathArg spells the right operand of Path / x.
func (f *funcEmitter) pathArg(o operand) string {
	if o.e != nil {
		return f.pathPart(o.e)
	}
	return o.text
}

func (f *funcEmitter) csvCall(c *modCall) (string, bool) {
	f.e.need("csv")
	src := f.value(c.arg(0))
	opts := ""
	if d := c.kwarg("delimiter"); d != nil {
		if lit, ok := d.Data.(*hir.LiteralData); ok && lit.Kind == hir.LiteralStr && len(lit.Text) == 1 {
			opts = ".delimiter(b'" + strings.ReplaceAll(lit.Text, "'", "\\'") + "')"
		}
	}
	switch c.name {
	case "reader":
		return "csv::ReaderBuilder::new().has_headers(false)" + opts + ".from_reader(" + src + ")", true
	case "DictReader":
		return "csv::ReaderBuilder::new()" + opts + ".from_reader(" + src + ")", true
	case "writer", "DictWriter":
		return "csv::WriterBuilder::new()" + opts + ".from_writer(" + src + ")", true
	}
	return "", false
}

func (f *funcEmitter) collectionsCall(c *modCall) (string, bool) {
	t := c.e.Type
	switch c.name {
	case "defaultdict", "OrderedDict":
		f.record(trace.DecisionTypeMapping, "HashMap", c.name+" lowers to a map with entry().or_default()", c.e.Span)
		if src := c.arg(0); src != nil && c.name == "OrderedDict" {
			return atom(f.iterSource(src)) + ".collect::<" + f.rust(t) + ">()", true
		}
		return f.rust(t) + "::new()", true
	case "Counter":
		src := c.arg(0)
		if src == nil {
			return f.rust(t) + "::new()", true
		}
		return "{ let mut _c: " + f.rust(t) + " = std::collections::HashMap::new(); for _x in " + f.iterSource(src) + " { *_c.entry(_x).or_insert(0) += 1; } _c }", true
	case "deque":
		if src := c.arg(0); src != nil {
			return atom(f.iterSource(src)) + ".collect::<Vec<_>>()", true
		}
		return "Vec::new()", true
	}
	return "", false
}

func (f *funcEmitter) itertoolsCall(c *modCall) (string, bool) {
	switch c.name {
	case "chain":
		if len(c.args) == 0 {
			return "std::iter::empty()", true
		}
		s := atom(f.iterSource(c.args[0]))
		for _, a := range c.args[1:] {
			s += ".chain(" + f.iterSource(a) + ")"
		}
		return s, true
	case "cycle":
		return atom(f.iterSource(c.arg(0))) + ".collect::<Vec<_>>().into_iter().cycle()", true
	case "islice":
		src := atom(f.iterSource(c.arg(0)))
		if c.arg(2) != nil {
			return src + ".skip(" + paren(f.expr(c.arg(1))) + " as usize).take((" + f.expr(c.arg(2)) + " - " + paren(f.expr(c.arg(1))) + ") as usize)", true
		}
		return src + ".take(" + paren(f.expr(c.arg(1))) + " as usize)", true
	case "takewhile", "dropwhile":
		fn := "take_while"
		if c.name == "dropwhile" {
			fn = "skip_while"
		}
		elem := types.ElemOf(c.arg(1).Type)
		return atom(f.iterSource(c.arg(1))) + "." + fn + "(|x| " + f.callback(c.arg(0), "x.clone()", elem) + ")", true
	case "repeat":
		s := "std::iter::repeat(" + f.value(c.arg(0)) + ")"
		if n := c.argOr(1, "times"); n != nil {
			s += ".take(" + paren(f.expr(n)) + " as usize)"
		}
		return s, true
	case "count":
		start := "0"
		if a := c.argOr(0, "start"); a != nil {
			start = f.expr(a)
		}
		if step := c.argOr(1, "step"); step != nil {
			return "(" + start + "..).step_by(" + paren(f.expr(step)) + " as usize)", true
		}
		return "(" + paren(start) + "..)", true
	case "accumulate":
		return atom(f.iterSource(c.arg(0))) + ".scan(None, |acc, x| { let v = match acc.take() { Some(a) => a + x, None => x }; *acc = Some(v.clone()); Some(v) })", true
	}
	return "", false
}

func (f *funcEmitter) functoolsCall(c *modCall) (string, bool) {
	if c.name != "reduce" || len(c.args) < 2 {
		return "", false
	}
	fn, src := c.args[0], c.args[1]
	lam, ok := fn.Data.(*hir.LambdaData)
	body := ""
	if ok && len(lam.Params) == 2 {
		restore := f.bind([]string{lam.Params[0].Name, lam.Params[1].Name})
		f.lambdaDepth++
		body = "|" + SafeIdent(lam.Params[0].Name) + ", " + SafeIdent(lam.Params[1].Name) + "| " + f.value(lam.Body)
		f.lambdaDepth--
		restore()
	} else {
		body = "|a, b| " + f.value(fn) + "(a, b)"
		if n := hir.NameOf(fn); n != "" {
			if target := f.e.mod.Func(n); target != nil {
				body = "|a, b| " + f.e.funcName(target) + "(a, b)"
			}
		}
	}
	if init := c.arg(2); init != nil {
		return atom(f.iterSource(src)) + ".fold(" + f.coerce(init, c.e.Type) + ", " + body + ")", true
	}
	return atom(f.iterSource(src)) + ".reduce(" + body + ").expect(\"reduce() of empty iterable with no initial value\")", true
}

func (f *funcEmitter) asyncioCall(c *modCall) (string, bool) {
	switch c.name {
	case "sleep":
		secs := "std::time::Duration::from_secs_f64(" + toFloat(f.operand(c.arg(0))) + ")"
		if f.e.opts.SafetyMode || !f.fn.IsAsync() {
			return "std::thread::sleep(" + secs + ")", true
		}
		f.e.need("tokio")
		return "tokio::time::sleep(" + secs + ")", true
	case "run":
		if f.e.opts.SafetyMode || awaitsItself(c.arg(0)) {
			return f.expr(c.arg(0)), true
		}
		f.e.need("tokio")
		return "tokio::runtime::Runtime::new().unwrap().block_on(" + f.expr(c.arg(0)) + ")", true
	}
	return "", false
}

func (f *funcEmitter) shutilCall(c *modCall) (string, bool, bool) {
	switch c.name {
	case "copy", "copyfile":
		dst := f.strArg(c.arg(1))
		return "std::fs::copy(" + f.strArg(c.arg(0)) + ", " + dst + ").map(|_| " + atom(dst) + ".to_string())", true, true
	case "move":
		dst := f.strArg(c.arg(1))
		return "std::fs::rename(" + f.strArg(c.arg(0)) + ", " + dst + ").map(|_| " + atom(dst) + ".to_string())", true, true
	case "rmtree":
		return "std::fs::remove_dir_all(" + f.strArg(c.arg(0)) + ")", true, true
	}
	return "", false, false
}

func (f *funcEmitter) statisticsCall(c *modCall) (string, bool) {
	src := c.arg(0)
	if src == nil {
		return "", false
	}
	data := "let _d: Vec<f64> = " + atom(f.iterSource(src)) + ".map(|x| x as f64).collect(); "
	mean := "_d.iter().sum::<f64>() / _d.len() as f64"
	variance := func(sample bool) string {
		n := "_d.len() as f64"
		if sample {
			n = "(_d.len() - 1) as f64"
		}
		return "let _m = " + mean + "; _d.iter().map(|x| (x - _m).powi(2)).sum::<f64>() / " + n
	}
	switch c.name {
	case "mean":
		return "{ " + data + mean + " }", true
	case "median":
		return "{ let mut _d: Vec<f64> = " + atom(f.iterSource(src)) + ".map(|x| x as f64).collect(); _d.sort_by(|a, b| a.partial_cmp(b).unwrap_or(std::cmp::Ordering::Equal)); let _n = _d.len(); if _n % 2 == 1 { _d[_n / 2] } else { (_d[_n / 2 - 1] + _d[_n / 2]) / 2.0 } }", true
	case "variance":
		return "{ " + data + variance(true) + " }", true
	case "pvariance":
		return "{ " + data + variance(false) + " }", true
	case "stdev":
		return "{ " + data + "(" + variance(true) + ").sqrt() }", true
	case "pstdev":
		return "{ " + data + "(" + variance(false) + ").sqrt() }", true
	case "mode":
		return "{ let mut _c = std::collections::HashMap::new(); let mut _best = None; let mut _n = 0; for _x in " + f.iterSource(src) + " { let _k = _c.entry(_x.clone()).or_insert(0); *_k += 1; if *_k > _n { _n = *_k; _best = Some(_x); } } _best.expect(\"no mode for empty data\") }", true
	}
	return "", false
}
